// Package harness implements a local RPC harness: a test-oriented substrate
// that lets a program describe a service by a typed interface, instantiate
// many independent implementations of that interface as in-process actors,
// and invoke them as if they were remote peers.
//
// The package covers exactly the concurrency substrate: a closable typed
// channel, a per-actor server loop, a client-side request/response
// correlator, and the control plane (sleep/drop/filter) layered on top. The
// interface-reflection layer (method tags, argument/return codecs) is an
// external collaborator described by the Dispatcher interface in
// service.go; package service provides a concrete stand-in.
package harness

import "time"

// MethodTag is a stable, opaque identifier for one overload of one service
// method. The harness treats it as an opaque comparable value — producing a
// stable tag per method overload is the reflection/codegen layer's job, not
// the harness's.
type MethodTag string

// ShutdownTag is reserved for the internal shutdown sentinel request and
// must never collide with a user-assigned method tag.
const ShutdownTag MethodTag = "shutdown@command"

// Status is the outcome carried by a Response.
type Status uint8

const (
	// StatusSuccess means data holds the encoded return value (empty for
	// void returns).
	StatusSuccess Status = iota
	// StatusFailed means data holds a human-readable error description.
	StatusFailed
	// StatusTimeout is synthesized locally by the client; it is never put
	// on the wire by a server.
	StatusTimeout
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "Success"
	case StatusFailed:
		return "Failed"
	case StatusTimeout:
		return "Timeout"
	default:
		return "Unknown"
	}
}

// Request is the immutable record sent from a ClientStub to a server
// Endpoint. Once constructed it is consumed by exactly one server dispatch
// task.
type Request struct {
	ReplyTo *Endpoint // response-only endpoint; nil for the shutdown sentinel
	ID      uint64    // unique within the scope of the issuing client
	Method  MethodTag
	Args    []byte
}

// Response is the record sent back from a server dispatch task to the
// client endpoint named by the originating Request's ReplyTo, or
// synthesized locally by the client on timeout.
type Response struct {
	Status Status
	ID     uint64
	Data   []byte
}

// SleepCmd instructs a ServerLoop to enter a sleep window of the given
// duration. While sleeping, Drop controls whether arriving requests are
// dropped (true) or deferred until the window ends (false).
type SleepCmd struct {
	Duration time.Duration
	Drop     bool
}

// FilterCmd installs (or, with an empty tag, clears) a method filter. A
// matching request is answered immediately with StatusFailed instead of
// being dispatched.
type FilterCmd struct {
	MethodTag MethodTag // empty clears the filter
}

// Empty reports whether this is the "clear filter" command.
func (f FilterCmd) Empty() bool {
	return f.MethodTag == ""
}

// filteredMessage is the fixed description sent back for a request that
// matches the active filter (§4.4 handle() step 1).
func filteredMessage(pretty string) string {
	return "Filtered method '" + pretty + "'"
}
