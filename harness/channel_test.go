package harness

import (
	"testing"
	"time"
)

func TestChannelClosedDeliversRemainingItemsInOrder(t *testing.T) {
	c := NewChannel[int]()
	for i := 0; i < 5; i++ {
		if err := c.Send(i); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}
	c.Close()

	for i := 0; i < 5; i++ {
		v, err := c.Receive()
		if err != nil {
			t.Fatalf("receive %d: unexpected error %v", i, err)
		}
		if v != i {
			t.Fatalf("receive %d: got %d", i, v)
		}
	}

	if _, err := c.Receive(); err != ErrChannelClosed {
		t.Fatalf("expected ErrChannelClosed on drained closed channel, got %v", err)
	}
}

func TestChannelSendAfterCloseFails(t *testing.T) {
	c := NewChannel[string]()
	c.Close()
	if err := c.Send("hello"); err != ErrChannelClosed {
		t.Fatalf("expected ErrChannelClosed, got %v", err)
	}
}

func TestChannelCloseIsIdempotent(t *testing.T) {
	c := NewChannel[int]()
	c.Close()
	c.Close() // must not panic
	if !c.Closed() {
		t.Fatalf("expected channel to report closed")
	}
}

func TestChannelTryReceiveZeroDurationPolls(t *testing.T) {
	c := NewChannel[int]()
	start := time.Now()
	_, ok := c.TryReceive(0)
	elapsed := time.Since(start)
	if ok {
		t.Fatalf("expected no value from empty channel")
	}
	if elapsed > 20*time.Millisecond {
		t.Fatalf("zero-duration TryReceive should not sleep, took %v", elapsed)
	}
}

func TestChannelTryReceiveTimesOut(t *testing.T) {
	c := NewChannel[int]()
	start := time.Now()
	_, ok := c.TryReceive(30 * time.Millisecond)
	elapsed := time.Since(start)
	if ok {
		t.Fatalf("expected timeout, got a value")
	}
	if elapsed < 25*time.Millisecond {
		t.Fatalf("expected to wait roughly the timeout, took %v", elapsed)
	}
}

func TestChannelReceiveBlocksUntilSend(t *testing.T) {
	c := NewChannel[int]()
	done := make(chan int, 1)
	go func() {
		v, err := c.Receive()
		if err != nil {
			t.Errorf("receive: %v", err)
			return
		}
		done <- v
	}()

	time.Sleep(10 * time.Millisecond)
	if err := c.Send(7); err != nil {
		t.Fatalf("send: %v", err)
	}

	select {
	case v := <-done:
		if v != 7 {
			t.Fatalf("got %d, want 7", v)
		}
	case <-time.After(time.Second):
		t.Fatalf("receive never unblocked")
	}
}

func TestChannelCloseWakesBlockedReceivers(t *testing.T) {
	c := NewChannel[int]()
	errCh := make(chan error, 1)
	go func() {
		_, err := c.Receive()
		errCh <- err
	}()

	time.Sleep(10 * time.Millisecond)
	c.Close()

	select {
	case err := <-errCh:
		if err != ErrChannelClosed {
			t.Fatalf("got %v, want ErrChannelClosed", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("blocked receiver was never woken by Close")
	}
}
