package harness

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// controlState is the sleep/filter state a ServerLoop owns. Spec §4.4 calls
// for it to be "mutated only by its own tasks". It carries no lock of its
// own: requestTask, sleepTask, filterTask and every handle() task all run
// under the ServerLoop's single Scheduler, which lets exactly one of them
// execute between suspension points at a time (§4.2), so reads here can
// never actually race a write.
type controlState struct {
	filter            FilterCmd
	sleepUntil        time.Time
	dropWhileSleeping bool
}

func (c *controlState) sleeping() bool {
	return time.Now().Before(c.sleepUntil)
}

func (c *controlState) dropping() bool {
	return c.dropWhileSleeping
}

func (c *controlState) setSleep(cmd SleepCmd) {
	c.sleepUntil = time.Now().Add(cmd.Duration)
	c.dropWhileSleeping = cmd.Drop
}

func (c *controlState) setFilter(cmd FilterCmd) {
	c.filter = cmd
}

func (c *controlState) currentFilter() FilterCmd {
	return c.filter
}

// Metrics receives instrumentation events from a ServerLoop. It is satisfied
// by *metrics.Collector; the harness core only depends on this narrow
// interface so it never imports the Prometheus client library directly.
type Metrics interface {
	Dispatched(method string)
	Filtered(method string)
	Dropped(method string)
	Failed(method string)
	ActiveCallsInc()
	ActiveCallsDec()
}

// ServerLoop is the per-actor event loop (§4.4). It owns the user
// implementation, drains the three inbound channels of its Endpoint
// concurrently on its own Scheduler, dispatches each request on its own
// task, and applies sleep/drop/filter policy.
type ServerLoop struct {
	endpoint   *Endpoint
	impl       any
	dispatcher Dispatcher
	sched      *Scheduler
	state      *controlState
	metrics    Metrics
}

// NewServerLoop constructs a ServerLoop for impl, bound to endpoint, using
// dispatcher to resolve method tags.
func NewServerLoop(endpoint *Endpoint, impl any, dispatcher Dispatcher) *ServerLoop {
	return &ServerLoop{
		endpoint:   endpoint,
		impl:       impl,
		dispatcher: dispatcher,
		sched:      NewScheduler(),
		state:      &controlState{},
	}
}

// WithMetrics attaches a Metrics sink, returning sl for chaining. Call it
// before Run; nil disables instrumentation (the default).
func (sl *ServerLoop) WithMetrics(m Metrics) *ServerLoop {
	sl.metrics = m
	return sl
}

// Run starts the three long-lived intake tasks and blocks until all of them
// (and everything they transitively spawn) have exited — i.e. until the
// actor has fully shut down (§4.4 startup sequence, steps 2-4).
func (sl *ServerLoop) Run() {
	sl.sched.Start(func() {
		sl.sched.Spawn(sl.requestTask)
		sl.sched.Spawn(sl.sleepTask)
		sl.sched.Spawn(sl.filterTask)
	})
}

func (sl *ServerLoop) requestTask() {
	for {
		req, err := sl.endpoint.req.Receive()
		if err != nil {
			return
		}
		if req.Method == ShutdownTag {
			// No further dispatch tasks are spawned after this is
			// observed (§3 invariant, §5 ordering guarantee).
			return
		}

		switch {
		case !sl.state.sleeping():
			sl.sched.Spawn(func() { sl.handle(req) })
		case !sl.state.dropping():
			sl.sched.Spawn(func() { sl.deferThenHandle(req) })
		default:
			if sl.metrics != nil {
				sl.metrics.Dropped(string(req.Method))
			}
			log.Debug().
				Str("method", string(req.Method)).
				Uint64("id", req.ID).
				Msg("[ServerLoop] dropping request while sleeping")
		}
	}
}

// deferThenHandle busy-waits cooperatively until the sleep window ends,
// then dispatches req normally (§4.4 request task, drop=false branch).
func (sl *ServerLoop) deferThenHandle(req Request) {
	cond := sl.sched.NewCondition()
	for sl.state.sleeping() {
		sl.sched.Wait(cond, time.Millisecond)
	}
	sl.handle(req)
}

func (sl *ServerLoop) sleepTask() {
	for {
		cmd, err := sl.endpoint.sleep.Receive()
		if err != nil {
			return
		}
		sl.state.setSleep(cmd)
	}
}

func (sl *ServerLoop) filterTask() {
	for {
		cmd, err := sl.endpoint.filter.Receive()
		if err != nil {
			return
		}
		sl.state.setFilter(cmd)
	}
}

// handle dispatches a single request (§4.4 handle()). It runs as its own
// task, so long-running implementation work never blocks intake, and
// multiple handles may interleave freely.
func (sl *ServerLoop) handle(req Request) {
	if filter := sl.state.currentFilter(); !filter.Empty() && filter.MethodTag == req.Method {
		if sl.metrics != nil {
			sl.metrics.Filtered(string(req.Method))
		}
		sl.reply(req, Response{
			Status: StatusFailed,
			ID:     req.ID,
			Data:   []byte(filteredMessage(sl.dispatcher.Pretty(req.Method))),
		})
		return
	}

	if !sl.dispatcher.Has(req.Method) {
		invariantViolation("unknown method tag %q for request id %d", req.Method, req.ID)
	}

	if sl.metrics != nil {
		sl.metrics.ActiveCallsInc()
		defer sl.metrics.ActiveCallsDec()
	}

	data, err := sl.invoke(req)
	if err != nil {
		if sl.metrics != nil {
			sl.metrics.Failed(string(req.Method))
		}
		sl.reply(req, Response{Status: StatusFailed, ID: req.ID, Data: []byte(err.Error())})
		return
	}
	if sl.metrics != nil {
		sl.metrics.Dispatched(string(req.Method))
	}
	sl.reply(req, Response{Status: StatusSuccess, ID: req.ID, Data: data})
}

// invoke calls the dispatcher, converting a panic from the implementation
// or codec into an error instead of propagating it (§4.4 handle() step 3).
func (sl *ServerLoop) invoke(req Request) (data []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return sl.dispatcher.Dispatch(context.Background(), sl.impl, req.Method, req.Args)
}

func (sl *ServerLoop) reply(req Request, resp Response) {
	if req.ReplyTo == nil {
		return
	}
	if err := req.ReplyTo.PutResponse(resp); err != nil {
		// The caller vanished (its response channel closed, likely past
		// its own timeout). Nothing to do: the server discards the
		// outcome (§5 "Cancellation and timeout").
		log.Debug().Uint64("id", req.ID).Err(err).Msg("[ServerLoop] client vanished before response")
	}
}
