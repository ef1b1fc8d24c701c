package harness

import (
	"sync"
	"sync/atomic"
	"time"
)

// waiter is a single parked task's handle: a condition to wake it, plus the
// busy marker the spec calls for.
type waiter struct {
	cond *Condition
	busy bool
}

// WaitingManager is the per-client response correlator (§4.5): it
// allocates request ids, parks the calling task, routes arriving responses
// to the right parked task, and enforces per-call timeout. One is owned by
// each ClientStub — unlike the source this distills from, which used a
// process-global id counter, ids here are scoped per-manager (§9 design
// note: "a deliberate tightening") so independently spawned actors/clients
// in the same test process get independent id sequences.
type WaitingManager struct {
	nextID atomic.Uint64

	mu      sync.Mutex
	waiters map[uint64]*waiter
	pending map[uint64]Response
}

// NewWaitingManager constructs an empty WaitingManager with its id counter
// starting at 0.
func NewWaitingManager() *WaitingManager {
	return &WaitingManager{
		waiters: make(map[uint64]*waiter),
		pending: make(map[uint64]Response),
	}
}

// AllocID returns the next id in a strictly increasing sequence, unique for
// the lifetime of this manager.
func (wm *WaitingManager) AllocID() uint64 {
	return wm.nextID.Add(1) - 1
}

// Exists reports whether id currently has a parked waiter.
func (wm *WaitingManager) Exists(id uint64) bool {
	wm.mu.Lock()
	defer wm.mu.Unlock()
	_, ok := wm.waiters[id]
	return ok
}

// WaitResponse parks the calling task until a Response for id arrives or
// timeout elapses (0 waits indefinitely), then returns it. On timeout it
// synthesizes Response{Timeout, id, nil}. The waiter entry for id is always
// removed before returning, even on timeout.
func (wm *WaitingManager) WaitResponse(id uint64, timeout time.Duration) Response {
	cond := NewCondition()

	wm.mu.Lock()
	if _, exists := wm.waiters[id]; exists {
		wm.mu.Unlock()
		invariantViolation("duplicate parked waiter for id %d", id)
	}
	wm.waiters[id] = &waiter{cond: cond, busy: true}
	wm.mu.Unlock()

	defer func() {
		wm.mu.Lock()
		delete(wm.waiters, id)
		delete(wm.pending, id)
		wm.mu.Unlock()
	}()

	cond.Wait(timeout)

	wm.mu.Lock()
	resp, ok := wm.pending[id]
	wm.mu.Unlock()

	if !ok {
		return Response{Status: StatusTimeout, ID: id}
	}
	return resp
}

// Deliver routes an arriving Response to its waiter. If res.ID's waiter
// entry has not yet been installed — the response raced the caller's own
// WaitResponse call, since sending and receiving run as sibling tasks
// (§9 "Receiver races sender") — Deliver polls briefly until it appears.
// The poll releases any installed Scheduler's token for each sleep so a
// sibling task (e.g. the one about to register the waiter) gets to run.
func (wm *WaitingManager) Deliver(res Response) {
	sched := currentScheduler()
	for !wm.Exists(res.ID) {
		if sched != nil {
			sched.release()
		}
		time.Sleep(time.Millisecond)
		if sched != nil {
			sched.acquire()
		}
	}

	wm.mu.Lock()
	w, ok := wm.waiters[res.ID]
	if !ok {
		wm.mu.Unlock()
		return
	}
	wm.pending[res.ID] = res
	wm.mu.Unlock()

	w.cond.Broadcast()
}
