// Package runtime implements the generic per-entity state machine: one
// Runtime instance exists per live entity and owns its session
// exclusively. All mutation happens on the instance's single dispatch
// loop; callers interact through message requests only, so no locking
// guards the session itself.
package runtime

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"domaincore/internal/archive"
	"domaincore/internal/directory"
	"domaincore/internal/observability"
	"domaincore/internal/proc"
	"domaincore/internal/storage"
	"domaincore/pkg/object"
	"domaincore/pkg/typeapi"
)

// mailboxSize bounds the per-instance request queue. Event fan-out between
// instances enqueues without blocking the sender's loop in the common
// case; a sustained full mailbox applies backpressure to callers.
const mailboxSize = 256

// Options carries the runtime tunables shared by every instance of a tree.
type Options struct {
	// SaveRetryInterval is the delay before retrying a failed save while
	// the session stays dirty. Zero disables automatic retry.
	SaveRetryInterval time.Duration
	// DefaultTimeout bounds SyncOp and WaitSave when the caller passes no
	// explicit timeout.
	DefaultTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.SaveRetryInterval < 0 {
		o.SaveRetryInterval = 0
	}
	if o.DefaultTimeout <= 0 {
		o.DefaultTimeout = 5 * time.Second
	}
	return o
}

// Config assembles one runtime instance.
type Config struct {
	// Session seed: ID, Type, Path, ParentID and Object must be set by
	// the caller; the runtime owns everything else.
	Session object.Session
	// Created marks a brand-new entity: it starts dirty and its first
	// persist is a Create (which enforces path uniqueness).
	Created bool
	// Dirty carries the caller's dirty flag for loaded entities.
	Dirty bool

	// ParentDisabled starts the entity disabled regardless of its stored
	// enabled field, mirroring a runtime-disabled parent. The entity
	// re-enables when the parent's enable cascade reaches it.
	ParentDisabled bool

	Behavior typeapi.Behavior
	// Behaviors resolves child types for create_child/load_child. May be
	// nil for leaf entities.
	Behaviors *typeapi.Registry
	Backend   storage.Backend
	Archive   archive.Store        // optional; nil disables archiving
	Directory *directory.Directory // optional; nil skips registration
	Parent    *proc.Proc           // optional; set for every non-root entity

	Logger  zerolog.Logger
	Metrics observability.MetricsRecorder
	Options Options
}

type childEntry struct {
	ref    object.ChildRef
	rt     *Runtime
	cancel func()
}

type saveWaiter chan error

// Runtime is one live entity instance.
type Runtime struct {
	mailbox chan func()
	self    *proc.Proc

	session      object.Session
	behavior     typeapi.Behavior
	behaviors    *typeapi.Registry
	backend      storage.Backend
	arch         archive.Store
	dir          *directory.Directory
	parent       *proc.Proc
	parentCancel func()

	links    []link
	children map[object.TypeTag]map[string]childEntry
	waiters  []saveWaiter

	created        bool
	parentDisabled bool
	stopping       bool
	deleted        bool
	exitPending    bool
	exitReason     string
	live           bool
	firstLoaded    time.Time
	expireTimer    *time.Timer
	retryTimer     *time.Timer
	final          atomic.Pointer[object.Session]

	log     zerolog.Logger
	baseLog zerolog.Logger
	metrics observability.MetricsRecorder
	opts    Options
}

// Start launches the instance and runs the load protocol to completion:
// expiration check, start hook, directory registration, initial persist,
// and the loaded event. It returns only after the protocol finished, so a
// failed load surfaces here and the instance is already unloaded.
func Start(cfg Config) (*Runtime, error) {
	opts := cfg.Options.withDefaults()
	r := &Runtime{
		mailbox:        make(chan func(), mailboxSize),
		self:           proc.New(cfg.Session.ID),
		session:        cfg.Session.Clone(),
		behavior:       cfg.Behavior,
		behaviors:      cfg.Behaviors,
		backend:        cfg.Backend,
		arch:           cfg.Archive,
		dir:            cfg.Directory,
		parent:         cfg.Parent,
		children:       make(map[object.TypeTag]map[string]childEntry),
		created:        cfg.Created,
		parentDisabled: cfg.ParentDisabled,
		log: cfg.Logger.With().
			Str("object_id", cfg.Session.ID).
			Str("object_type", string(cfg.Session.Type)).
			Str("path", cfg.Session.Path).Logger(),
		baseLog: cfg.Logger,
		metrics: cfg.Metrics,
		opts:    opts,
	}
	r.session.Status = object.StatusInit
	r.session.StartedAt = time.Now()
	r.session.Dirty = cfg.Created || cfg.Dirty
	r.session.Children = make(map[object.TypeTag]map[string]object.ChildRef)

	go r.loop()

	if r.parent != nil {
		r.parentCancel = r.parent.Watch(func(string) {
			r.enqueue(func() { r.terminate(object.ReasonParentDown) })
		})
	}

	errc := make(chan error, 1)
	r.enqueue(func() { errc <- r.load() })
	var err error
	select {
	case err = <-errc:
	case <-r.self.Done():
		// The load protocol's own termination exits the proc right after
		// its result was sent; prefer that result over the closed handle.
		select {
		case err = <-errc:
		default:
			return nil, object.NotFoundError{Ref: cfg.Session.ID}
		}
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Runtime) loop() {
	for {
		select {
		case fn := <-r.mailbox:
			fn()
			// Exit is deferred until the current request has returned, so
			// its reply reaches the caller before Done closes.
			if r.exitPending {
				r.self.Exit(r.exitReason)
				return
			}
		case <-r.self.Done():
			return
		}
	}
}

// enqueue submits work to the dispatch loop, dropping it if the instance
// already exited.
func (r *Runtime) enqueue(fn func()) {
	select {
	case r.mailbox <- fn:
	case <-r.self.Done():
	}
}

// call runs fn on the loop and waits for its result. A result sent before
// the instance exited always reaches the caller: when fn itself stops the
// instance, the loop exits the proc only after the reply was sent, so the
// Done branch re-checks the reply channel.
func (r *Runtime) call(ctx context.Context, fn func() error) error {
	errc := make(chan error, 1)
	r.enqueue(func() { errc <- fn() })
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-r.self.Done():
		select {
		case err := <-errc:
			return err
		default:
			return object.NotFoundError{Ref: r.self.Name()}
		}
	}
}

// Proc returns the liveness handle of this instance.
func (r *Runtime) Proc() *proc.Proc { return r.self }

// Done returns a channel closed when the instance exits.
func (r *Runtime) Done() <-chan struct{} { return r.self.Done() }

// ID returns the entity id served by this instance.
func (r *Runtime) ID() string { return r.self.Name() }

func (r *Runtime) observe(op string, start time.Time, err error) {
	observability.Record(context.Background(), r.metrics, op, err == nil, time.Since(start))
}

func (r *Runtime) timeline(event string) {
	entry := object.TimelineEntry{Event: event, Elapsed: time.Since(r.session.StartedAt)}
	r.session.Timeline = append([]object.TimelineEntry{entry}, r.session.Timeline...)
}
