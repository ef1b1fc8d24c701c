package harness

import (
	"fmt"
	"strings"
)

// Endpoint is the addressable identity of an actor's inbound channel
// bundle (a "server endpoint"), or of a client's response channel (a
// "client endpoint"). Equality is referential — two Endpoints name the same
// actor iff they are the same pointer (§3).
type Endpoint struct {
	// server role
	req    *Channel[Request]
	sleep  *Channel[SleepCmd]
	filter *Channel[FilterCmd]

	// client role
	res *Channel[Response]
}

// NewServerEndpoint constructs the server-side endpoint for a new actor:
// the three inbound channels a ServerLoop drains.
func NewServerEndpoint() *Endpoint {
	return &Endpoint{
		req:    NewChannel[Request](),
		sleep:  NewChannel[SleepCmd](),
		filter: NewChannel[FilterCmd](),
	}
}

// NewClientEndpoint constructs the client-side endpoint a ClientStub reads
// responses from.
func NewClientEndpoint() *Endpoint {
	return &Endpoint{res: NewChannel[Response]()}
}

// bootstrap runs fn as a task. If the calling goroutine already has a
// Scheduler installed, fn just runs inline — it is already cooperating with
// that Scheduler's other tasks. Otherwise (a bare OS thread, §4.3) it
// transparently stands up a short-lived Scheduler, spawns fn as a task on
// it, blocks on a condition until that task completes, then tears the
// Scheduler down. Either way the caller never needs to know whether a
// Scheduler existed.
func bootstrap(fn func() error) error {
	if currentScheduler() != nil {
		return fn()
	}

	var result error
	s := NewScheduler()
	s.Start(func() {
		done := s.NewCondition()
		s.Spawn(func() {
			result = fn()
			done.Broadcast()
		})
		s.Wait(done, 0)
	})
	return result
}

// PutRequest enqueues req on the server's request channel.
func (e *Endpoint) PutRequest(req Request) error {
	return bootstrap(func() error { return e.req.Send(req) })
}

// PutSleep enqueues a sleep command on the server's control-time channel.
func (e *Endpoint) PutSleep(cmd SleepCmd) error {
	return bootstrap(func() error { return e.sleep.Send(cmd) })
}

// PutFilter enqueues a filter command on the server's control-filter
// channel.
func (e *Endpoint) PutFilter(cmd FilterCmd) error {
	return bootstrap(func() error { return e.filter.Send(cmd) })
}

// Close closes all three server-side channels. Idempotent (Channel.Close
// already is).
func (e *Endpoint) Close() {
	e.req.Close()
	e.sleep.Close()
	e.filter.Close()
}

// PutResponse enqueues res on the client's response channel.
func (e *Endpoint) PutResponse(res Response) error {
	return bootstrap(func() error { return e.res.Send(res) })
}

// CloseClient closes the client-side response channel.
func (e *Endpoint) CloseClient() {
	e.res.Close()
}

// Closed reports whether this endpoint's channels have been closed: for a
// server endpoint, whether Close has run; for a client endpoint, whether
// CloseClient has run.
func (e *Endpoint) Closed() bool {
	if e.req != nil {
		return e.req.Closed()
	}
	return e.res.Closed()
}

// String renders a stable debug identity: STR(<hex>:0) for a server
// endpoint, CTR(0:<hex>) for a client endpoint, where <hex> identifies the
// underlying channel bundle.
func (e *Endpoint) String() string {
	if e.req != nil {
		return fmt.Sprintf("STR(%s:0)", hexAddr(e.req))
	}
	return fmt.Sprintf("CTR(0:%s)", hexAddr(e.res))
}

func hexAddr[T any](p *Channel[T]) string {
	return strings.TrimPrefix(fmt.Sprintf("%p", p), "0x")
}
