package harness

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced to callers. Mirrors the teacher's
// reverse_hub.go convention of package-level sentinel errors for expected,
// recoverable conditions.
var (
	// ErrChannelClosed is returned by Channel.Send on a closed channel, and
	// by Channel.Receive once a closed channel has drained.
	ErrChannelClosed = errors.New("harness: channel closed")

	// ErrTimeout is surfaced to a ClientStub caller when the per-call
	// deadline elapses with no matching response (§7).
	ErrTimeout = errors.New("harness: call timed out")

	// ErrActorGone's message is the description of the *RemoteError that
	// ClientStub.Call returns when the actor's request channel is already
	// closed, i.e. the actor shut down before the request could be sent
	// (§7). Call does not return ErrActorGone itself.
	ErrActorGone = errors.New("harness: actor shut down before responding")
)

// RemoteError is a Failed response surfaced to the caller, carrying the
// server-provided description verbatim (§7 "Remote failure").
type RemoteError struct {
	Description string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("harness: remote failure: %s", e.Description)
}

// invariantViolation panics with a diagnostic. Spec §3/§4.5/§7 calls for
// programmer errors (unknown method tag, duplicate parked waiter id) to
// "abort the actor" / "abort loudly rather than corrupting state" instead
// of being surfaced as ordinary results; this is the one place that happens.
func invariantViolation(format string, args ...any) {
	panic(fmt.Sprintf("harness: invariant violation: "+format, args...))
}
