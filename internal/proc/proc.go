// Package proc provides the process-handle and death-watch primitive the
// runtime and directory are built on: a handle that can exit once, with
// watchers that are each notified exactly once regardless of how many
// signals report the death.
package proc

import (
	"strconv"
	"sync"
	"sync/atomic"
)

var procSeq uint64

// Proc is the liveness handle of one logical process (a runtime instance,
// a directory, or any other single-threaded task).
type Proc struct {
	id   string
	name string

	mu       sync.Mutex
	exited   bool
	reason   string
	watchers map[uint64]func(reason string)
	nextRef  uint64
	done     chan struct{}
}

// New creates a live handle. name is informational (usually the object id
// or a component name).
func New(name string) *Proc {
	return &Proc{
		id:       procID(),
		name:     name,
		watchers: make(map[uint64]func(string)),
		done:     make(chan struct{}),
	}
}

func procID() string {
	return "proc-" + strconv.FormatUint(atomic.AddUint64(&procSeq, 1), 10)
}

// ID returns the unique process identity.
func (p *Proc) ID() string { return p.id }

// Name returns the informational name supplied at creation.
func (p *Proc) Name() string { return p.name }

// Alive reports whether the process has not exited yet.
func (p *Proc) Alive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.exited
}

// Done returns a channel closed on exit.
func (p *Proc) Done() <-chan struct{} { return p.done }

// ExitReason returns the recorded exit reason, or "" while alive.
func (p *Proc) ExitReason() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reason
}

// Exit marks the process dead and notifies every watcher exactly once.
// Only the first call has any effect; the first reason wins.
func (p *Proc) Exit(reason string) {
	p.mu.Lock()
	if p.exited {
		p.mu.Unlock()
		return
	}
	p.exited = true
	p.reason = reason
	watchers := make([]func(string), 0, len(p.watchers))
	for _, fn := range p.watchers {
		watchers = append(watchers, fn)
	}
	p.watchers = nil
	close(p.done)
	p.mu.Unlock()

	for _, fn := range watchers {
		fn(reason)
	}
}

// Watch registers fn to run exactly once when the process exits. If the
// process is already dead, fn runs asynchronously with the recorded
// reason. The returned cancel removes the watcher; after cancel returns,
// fn will not be invoked by a later Exit.
func (p *Proc) Watch(fn func(reason string)) (cancel func()) {
	p.mu.Lock()
	if p.exited {
		reason := p.reason
		p.mu.Unlock()
		go fn(reason)
		return func() {}
	}
	ref := p.nextRef
	p.nextRef++
	p.watchers[ref] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.watchers, ref)
	}
}
