package harness

import (
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gosuda/rpcharness/internal/gid"
)

// schedByG is the thread-local "current scheduler" registry (§4.2,
// §9 design note "Global thread-local current scheduler"). Go has no native
// TLS, so it is keyed by the calling goroutine's runtime id (package gid)
// with stack-discipline install/restore around Scheduler.Start and
// Scheduler.Spawn.
var (
	schedMu  sync.Mutex
	schedByG = map[uint64]*Scheduler{}
)

// installScheduler installs s for the calling goroutine and returns
// whatever Scheduler (possibly nil) was previously installed there, so the
// caller can restore it afterward. A non-nil previous scheduler means this
// is a re-entrant install: a task already running under that scheduler has,
// on its own goroutine, turned around and started a nested Scheduler —
// exactly what a ClientStub.Call issued from inside a handler does (§4.6
// "re-entrancy").
func installScheduler(s *Scheduler) *Scheduler {
	id := gid.Current()
	schedMu.Lock()
	prev := schedByG[id]
	schedByG[id] = s
	schedMu.Unlock()
	return prev
}

// restoreScheduler undoes installScheduler, putting prev back (or clearing
// the entry if prev is nil) instead of unconditionally deleting it.
// Deleting unconditionally would clobber an enclosing scheduler's
// registration once a nested Start returns, leaving the calling goroutine
// looking "bare" to any later Channel/Condition wait it performs.
func restoreScheduler(prev *Scheduler) {
	id := gid.Current()
	schedMu.Lock()
	if prev == nil {
		delete(schedByG, id)
	} else {
		schedByG[id] = prev
	}
	schedMu.Unlock()
}

// currentScheduler returns the Scheduler installed for the calling
// goroutine, or nil if none is installed (a "bare" goroutine, §4.3).
func currentScheduler() *Scheduler {
	id := gid.Current()
	schedMu.Lock()
	s := schedByG[id]
	schedMu.Unlock()
	return s
}

// Scheduler runs cooperative tasks that share one logical thread of
// execution (§4.2). A task is, concretely, a goroutine that Spawn both
// starts and tracks, but at most one task's goroutine is ever actually
// executing user code at a time: Spawn and Start gate entry behind a
// single-slot token, and every blocking primitive a task can call —
// Channel.Receive/TryReceive, Condition.Wait, Yield — releases that token
// before it parks and reacquires it before returning control to the
// caller. Tasks are still goroutines (Go gives every blocked task its own
// stack for free), but only one of them is ever running between
// suspension points at a time, so handler code never needs its own locks
// to stay consistent (§5 "No locks are required in user code").
//
// The task-tree join is an errgroup.Group rather than a bare sync.WaitGroup:
// it keeps the door open for a future task to report failure without
// another rework of Start's fan-in, and matches how the rest of the corpus
// joins goroutine trees.
type Scheduler struct {
	mu    sync.Mutex
	eg    *errgroup.Group
	token chan struct{}
}

// NewScheduler constructs an idle Scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// acquire blocks until the calling goroutine holds s's single execution
// token, i.e. until it is this Scheduler's turn to run user code.
func (s *Scheduler) acquire() {
	<-s.token
}

// release hands s's token back so another ready task may run.
func (s *Scheduler) release() {
	s.token <- struct{}{}
}

// Spawn schedules fn as a new task under s. fn may itself call s.Spawn to
// fan out further; Start waits for the whole tree. Spawn must only be
// called from root or from a task already running under s (i.e. after
// Start has installed s's errgroup and token).
func (s *Scheduler) Spawn(fn func()) {
	s.mu.Lock()
	eg := s.eg
	s.mu.Unlock()

	eg.Go(func() error {
		prev := installScheduler(s)
		defer restoreScheduler(prev)

		s.acquire()
		fn()
		s.release()
		return nil
	})
}

// Start installs s as the calling goroutine's current scheduler, runs root
// synchronously (holding s's token), and then blocks until root and every
// task transitively spawned from it have completed.
//
// If the calling goroutine already has a scheduler installed — a nested
// Start, which is exactly what a re-entrant ClientStub.Call performs from
// inside a handler task — Start releases that enclosing scheduler's token
// for the duration, so the enclosing actor's other tasks (including a
// request that calls back into it) keep making progress while this
// goroutine sits parked waiting on the nested call. The enclosing token is
// reacquired, and the enclosing scheduler restored as "current", only once
// the nested Start fully returns.
func (s *Scheduler) Start(root func()) {
	s.mu.Lock()
	s.eg = &errgroup.Group{}
	eg := s.eg
	s.token = make(chan struct{}, 1)
	s.token <- struct{}{}
	s.mu.Unlock()

	prev := installScheduler(s)
	if prev != nil {
		prev.release()
	}
	defer func() {
		if prev != nil {
			prev.acquire()
		}
		restoreScheduler(prev)
	}()

	s.acquire()
	root()
	s.release()
	_ = eg.Wait()
}

// NewCondition constructs a cooperative condition variable understood by
// this Scheduler's Wait.
func (s *Scheduler) NewCondition() *Condition {
	return &Condition{gen: make(chan struct{})}
}

// Wait suspends the calling task until c is notified or timeout elapses. A
// timeout of 0 waits indefinitely.
func (s *Scheduler) Wait(c *Condition, timeout time.Duration) {
	c.wait(timeout)
}

// Yield voluntarily relinquishes the current task so sibling tasks on the
// same Scheduler get a chance to run: it releases the installed
// Scheduler's token, lets the runtime schedule someone else, and
// reacquires the token before returning. On a bare goroutine (no Scheduler
// installed) it falls back to a plain runtime.Gosched.
func Yield() {
	sched := currentScheduler()
	if sched == nil {
		runtime.Gosched()
		return
	}
	sched.release()
	runtime.Gosched()
	sched.acquire()
}

// Condition is a cooperative condition variable (§4.2). Broadcast wakes
// every task currently parked in Wait.
type Condition struct {
	mu  sync.Mutex
	gen chan struct{}
}

// NewCondition constructs a standalone Condition, for callers that are not
// routing through a Scheduler (e.g. Endpoint's bootstrap path, §4.3).
func NewCondition() *Condition {
	return &Condition{gen: make(chan struct{})}
}

// Broadcast wakes every waiter parked in Wait.
func (c *Condition) Broadcast() {
	c.mu.Lock()
	close(c.gen)
	c.gen = make(chan struct{})
	c.mu.Unlock()
}

// wait blocks the calling goroutine until c is notified or timeout elapses.
// If a Scheduler is installed for this goroutine, its token is released
// for the duration of the block and reacquired before wait returns, so
// other tasks on that Scheduler run while this one is parked.
func (c *Condition) wait(timeout time.Duration) {
	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()

	sched := currentScheduler()
	if sched != nil {
		sched.release()
		defer sched.acquire()
	}

	if timeout <= 0 {
		<-gen
		return
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-gen:
	case <-timer.C:
	}
}

// Wait suspends the calling goroutine until c is notified or timeout
// elapses, without requiring a Scheduler in scope.
func (c *Condition) Wait(timeout time.Duration) {
	c.wait(timeout)
}
