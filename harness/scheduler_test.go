package harness

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestSchedulerStartWaitsForSpawnedTasks(t *testing.T) {
	sched := NewScheduler()
	var count atomic.Int32

	sched.Start(func() {
		for i := 0; i < 10; i++ {
			sched.Spawn(func() {
				time.Sleep(5 * time.Millisecond)
				count.Add(1)
			})
		}
	})

	if got := count.Load(); got != 10 {
		t.Fatalf("expected all 10 spawned tasks to complete before Start returns, got %d", got)
	}
}

func TestSchedulerStartWaitsForTransitivelySpawnedTasks(t *testing.T) {
	sched := NewScheduler()
	var leaf atomic.Bool

	sched.Start(func() {
		sched.Spawn(func() {
			sched.Spawn(func() {
				time.Sleep(10 * time.Millisecond)
				leaf.Store(true)
			})
		})
	})

	if !leaf.Load() {
		t.Fatalf("Start returned before a transitively spawned task completed")
	}
}

func TestConditionBroadcastWakesWaiter(t *testing.T) {
	c := NewCondition()
	woke := make(chan struct{})

	go func() {
		c.Wait(0)
		close(woke)
	}()

	time.Sleep(10 * time.Millisecond)
	c.Broadcast()

	select {
	case <-woke:
	case <-time.After(time.Second):
		t.Fatalf("waiter was never woken by Broadcast")
	}
}

func TestConditionWaitTimesOutWithoutBroadcast(t *testing.T) {
	c := NewCondition()
	start := time.Now()
	c.Wait(30 * time.Millisecond)
	if elapsed := time.Since(start); elapsed < 25*time.Millisecond {
		t.Fatalf("Wait returned too early: %v", elapsed)
	}
}

func TestCurrentSchedulerInstalledDuringStartAndSpawn(t *testing.T) {
	sched := NewScheduler()
	var sawRoot, sawTask *Scheduler

	sched.Start(func() {
		sawRoot = currentScheduler()
		sched.Spawn(func() {
			sawTask = currentScheduler()
		})
	})

	if sawRoot != sched {
		t.Fatalf("expected currentScheduler() inside root to be sched")
	}
	if sawTask != sched {
		t.Fatalf("expected currentScheduler() inside spawned task to be sched")
	}
	if currentScheduler() != nil {
		t.Fatalf("expected currentScheduler() to be nil after Start returns")
	}
}
