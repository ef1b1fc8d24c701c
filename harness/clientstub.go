package harness

import (
	"sync/atomic"
	"time"
)

// ClientStub is the caller-side façade for invoking methods on a remote
// actor (§4.6). Each invocation allocates a request id, ships a Request to
// the actor's server Endpoint, waits for the matching Response through the
// stub's own WaitingManager, and surfaces success, a remote failure, or a
// timeout to the caller.
type ClientStub struct {
	server  *Endpoint // the actor being called
	client  *Endpoint // this stub's own response endpoint
	wm      *WaitingManager
	timeout time.Duration // 0 = no timeout
}

// NewClientStub constructs a stub bound to server with the given default
// per-call timeout (0 disables it). Each stub owns a fresh client Endpoint
// and WaitingManager.
func NewClientStub(server *Endpoint, timeout time.Duration) *ClientStub {
	return &ClientStub{
		server:  server,
		client:  NewClientEndpoint(),
		wm:      NewWaitingManager(),
		timeout: timeout,
	}
}

// Call invokes method on the remote actor with encoded argument bytes and
// returns the encoded return value. Errors are *RemoteError for a
// server-side failure or a filtered method, ErrTimeout once the deadline
// elapses with no matching response arriving.
//
// Per call this installs a fresh Scheduler and runs the triad described by
// §4.6: a sender task that ships the request, a receiver task that drains
// this stub's response channel into the WaitingManager until told to stop,
// and a root task that parks in WaitResponse and then tells the receiver
// to stop.
func (c *ClientStub) Call(method MethodTag, args []byte) ([]byte, error) {
	id := c.wm.AllocID()
	req := Request{ReplyTo: c.client, ID: id, Method: method, Args: args}

	var terminate atomic.Bool
	var result Response

	sched := NewScheduler()
	sched.Start(func() {
		sched.Spawn(func() {
			if err := c.server.PutRequest(req); err != nil {
				// The actor's request channel is already closed — it shut
				// down before accepting this call. Resolve it now instead
				// of waiting out the full timeout for nothing.
				c.wm.Deliver(Response{Status: StatusFailed, ID: id, Data: []byte(ErrActorGone.Error())})
			}
		})

		sched.Spawn(func() {
			for !terminate.Load() {
				res, ok := c.client.res.TryReceive(time.Millisecond)
				if !ok {
					continue
				}
				c.wm.Deliver(res)
			}
		})

		result = c.wm.WaitResponse(id, c.timeout)
		terminate.Store(true)
	})

	switch result.Status {
	case StatusSuccess:
		return result.Data, nil
	case StatusFailed:
		return nil, &RemoteError{Description: string(result.Data)}
	default: // StatusTimeout
		return nil, ErrTimeout
	}
}

// Close tears down the stub's client endpoint. Any call still parked on
// another goroutine unblocks via its own timeout once this closes (or, for
// an untimed call, hangs — callers should not Close with untimed calls
// outstanding, per §4.6 "Shutdown of the stub").
func (c *ClientStub) Close() {
	c.client.CloseClient()
}
