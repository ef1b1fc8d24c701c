// Package gid extracts the calling goroutine's runtime id.
//
// Go has no public goroutine-local storage. The harness's Scheduler needs a
// "current scheduler for this thread of execution" lookup (see
// harness/scheduler.go) so that a Channel send/receive or an Endpoint
// operation can tell, without any value being threaded through the call
// stack, whether it is running inside a cooperative task or on a bare
// goroutine. Current is the standard workaround: parse the id out of the
// goroutine's own stack trace header.
package gid

import (
	"bytes"
	"runtime"
	"strconv"
)

// Current returns the numeric id of the calling goroutine. It never fails;
// on the rare parse error it returns 0 (an id the Go runtime never assigns
// to a real goroutine). Callers do not special-case 0: the harness's
// scheduler registry uses it as an ordinary key.
func Current() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := buf[:n]

	const prefix = "goroutine "
	b = bytes.TrimPrefix(b, []byte(prefix))
	sp := bytes.IndexByte(b, ' ')
	if sp < 0 {
		return 0
	}
	id, err := strconv.ParseUint(string(b[:sp]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
