package proc

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestExitNotifiesWatchersExactlyOnce(t *testing.T) {
	p := New("x")
	var calls int32
	var reason atomic.Value
	p.Watch(func(r string) {
		atomic.AddInt32(&calls, 1)
		reason.Store(r)
	})

	p.Exit("first")
	p.Exit("second")

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("watcher ran %d times, want 1", got)
	}
	if got := reason.Load(); got != "first" {
		t.Fatalf("reason = %v, want first", got)
	}
	if p.ExitReason() != "first" {
		t.Fatalf("ExitReason = %q, want first", p.ExitReason())
	}
	if p.Alive() {
		t.Fatalf("exited proc reports alive")
	}
	select {
	case <-p.Done():
	default:
		t.Fatalf("done channel not closed")
	}
}

func TestWatchAfterExitFiresAsynchronously(t *testing.T) {
	p := New("x")
	p.Exit("gone")

	got := make(chan string, 1)
	p.Watch(func(r string) { got <- r })
	select {
	case r := <-got:
		if r != "gone" {
			t.Fatalf("reason = %q, want gone", r)
		}
	case <-time.After(time.Second):
		t.Fatalf("late watcher never fired")
	}
}

func TestWatchCancelPreventsNotification(t *testing.T) {
	p := New("x")
	var calls int32
	cancel := p.Watch(func(string) { atomic.AddInt32(&calls, 1) })
	cancel()
	p.Exit("done")
	if got := atomic.LoadInt32(&calls); got != 0 {
		t.Fatalf("cancelled watcher ran %d times", got)
	}
}

func TestConcurrentExitSignals(t *testing.T) {
	p := New("x")
	var calls int32
	p.Watch(func(string) { atomic.AddInt32(&calls, 1) })

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Exit("race")
		}()
	}
	wg.Wait()
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("watcher ran %d times under concurrent exits", got)
	}
}

func TestProcIDsAreUnique(t *testing.T) {
	a, b := New("a"), New("b")
	if a.ID() == b.ID() {
		t.Fatalf("two procs share id %s", a.ID())
	}
	if a.Name() != "a" {
		t.Fatalf("Name = %q", a.Name())
	}
}
