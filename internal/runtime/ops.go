package runtime

import (
	"context"
	"errors"
	"time"

	"domaincore/pkg/object"
	"domaincore/pkg/typeapi"
)

// GetSession returns a snapshot of the current session.
func (r *Runtime) GetSession(ctx context.Context) (object.Session, error) {
	var snap object.Session
	err := r.call(ctx, func() error {
		snap = r.session.Clone()
		return nil
	})
	return snap, err
}

// Update validates patch against the behavior's update schema, deep-merges
// it into the object, and attempts a synchronous persist. A patch that
// changes nothing leaves the session clean and emits no event. A persist
// failure is not an update failure: the session stays dirty and the retry
// policy takes over.
func (r *Runtime) Update(ctx context.Context, patch map[string]any) error {
	start := time.Now()
	err := r.call(ctx, func() error {
		if r.stopping {
			return object.NotFoundError{Ref: r.session.ID}
		}
		if err := r.behavior.Schema(typeapi.SchemaUpdate).Validate(typeapi.SchemaUpdate, patch); err != nil {
			return err
		}
		merged, changed := object.Merge(r.session.Object, patch)
		if !changed {
			return nil
		}
		r.session.Object = merged
		r.session.Dirty = true
		r.scheduleExpire()
		r.attemptSave("update")
		r.timeline("updated")
		r.emit(object.EventUpdated, object.CloneMap(patch))
		res, err := r.behavior.OnUpdated(object.CloneMap(patch), r.session.Clone())
		if err != nil {
			r.log.Error().Err(err).Msg("update hook failed")
			return nil
		}
		r.applyHook(res)
		return nil
	})
	r.observe("runtime.update", start, err)
	return err
}

// Enable sets the runtime enabled flag. A direct call already at the
// target state is a no-op. Enabling is refused silently while the object's
// own stored enabled field is explicitly false. Either flip cascades to
// all live children without waiting for them.
func (r *Runtime) Enable(ctx context.Context, enabled bool) error {
	start := time.Now()
	err := r.call(ctx, func() error {
		if r.stopping {
			return object.NotFoundError{Ref: r.session.ID}
		}
		r.setEnabled(enabled, false)
		return nil
	})
	r.observe("runtime.enable", start, err)
	return err
}

// setEnabled implements the enable algorithm on the loop. Cascaded calls
// skip the direct-call idempotence check so a parent notice always
// re-evaluates local state.
func (r *Runtime) setEnabled(enabled, cascaded bool) {
	if r.stopping {
		return
	}
	if !cascaded && enabled == r.session.Enabled {
		return
	}
	target := enabled
	if target && !r.session.StoredEnabled() {
		// The stored field pins the entity disabled; the request is
		// accepted but does not flip runtime state.
		target = false
	}
	changed := r.session.Enabled != target
	r.session.Enabled = target
	if changed {
		event := "disabled"
		if target {
			event = "enabled"
		}
		r.timeline(event)
		r.emit(object.EventEnabled, map[string]any{"enabled": target})
		res, err := r.behavior.OnEnabled(target, r.session.Clone())
		if err != nil {
			r.log.Error().Err(err).Msg("enable hook failed")
		} else {
			r.applyHook(res)
		}
	}
	// Children receive the effective state, not the requested one: a
	// parent pinned disabled by its stored field never enables its
	// subtree.
	for _, byName := range r.children {
		for _, entry := range byName {
			child := entry.rt
			child.enqueue(func() { child.setEnabled(target, true) })
		}
	}
}

// SetStatus moves the session to a behavior-defined status and notifies
// links. The reserved statuses are owned by the lifecycle and rejected.
func (r *Runtime) SetStatus(ctx context.Context, status object.Status) error {
	return r.call(ctx, func() error {
		if r.stopping {
			return object.NotFoundError{Ref: r.session.ID}
		}
		if status == object.StatusInit || status == object.StatusUnloaded {
			return object.ValidationError{Field: "status", Reason: "reserved status"}
		}
		if r.session.Status == status {
			return nil
		}
		r.session.Status = status
		r.timeline("status:" + string(status))
		r.emit(object.EventStatus, map[string]any{"status": string(status)})
		res, err := r.behavior.OnStatus(status, r.session.Clone())
		if err != nil {
			r.log.Error().Err(err).Msg("status hook failed")
			return nil
		}
		r.applyHook(res)
		return nil
	})
}

// SyncOp dispatches a generic operation to the behavior and blocks for
// its reply. Callers without a deadline get the configured default
// timeout; expiry means unknown outcome, not rollback.
func (r *Runtime) SyncOp(ctx context.Context, op typeapi.Op) (map[string]any, error) {
	start := time.Now()
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.DefaultTimeout)
		defer cancel()
	}
	var reply map[string]any
	err := r.call(ctx, func() error {
		if r.stopping {
			return object.NotFoundError{Ref: r.session.ID}
		}
		res, err := r.behavior.OnSyncOp(op, r.session.Clone())
		if err != nil {
			return object.InternalError{Hook: "on_sync_op", Err: err}
		}
		reply = res.Reply
		return r.applyOpResult(res)
	})
	if errors.Is(err, context.DeadlineExceeded) {
		err = object.TimeoutError{Op: op.Name, Timeout: r.opts.DefaultTimeout}
	}
	r.observe("runtime.sync_op", start, err)
	return reply, err
}

// AsyncOp dispatches a generic operation without blocking the caller.
// Failures are logged only.
func (r *Runtime) AsyncOp(op typeapi.Op) {
	r.enqueue(func() {
		if r.stopping {
			return
		}
		start := time.Now()
		res, err := r.behavior.OnAsyncOp(op, r.session.Clone())
		if err != nil {
			r.log.Error().Err(err).Str("op", op.Name).Msg("async op failed")
			r.observe("runtime.async_op", start, err)
			return
		}
		err = r.applyOpResult(res)
		if err != nil && !errors.Is(err, typeapi.ErrNotHandled) {
			r.log.Warn().Err(err).Str("op", op.Name).Msg("async op not applied")
		}
		r.observe("runtime.async_op", start, err)
	})
}

// applyOpResult folds an op disposition into the session on the loop.
func (r *Runtime) applyOpResult(res typeapi.OpResult) error {
	if res.Update != nil {
		merged, changed := object.Merge(r.session.Object, res.Update)
		if changed {
			r.session.Object = merged
			r.session.Dirty = true
			r.scheduleExpire()
		}
	}
	switch res.Outcome {
	case typeapi.OpReply, typeapi.OpNoReply:
		return nil
	case typeapi.OpReplyAndSave, typeapi.OpNoReplyAndSave:
		// Persist failure keeps the session dirty for the retry policy;
		// the op itself succeeded.
		r.attemptSave("op")
		return nil
	case typeapi.OpStop:
		reason := res.StopReason
		if reason == "" {
			reason = object.ReasonUnloaded
		}
		r.terminate(reason)
		return nil
	case typeapi.OpNotHandled:
		return typeapi.ErrNotHandled
	default:
		return object.ValidationError{Field: "outcome", Reason: "unknown op outcome"}
	}
}

// Delete removes the entity: refused while live children remain, then
// delete hook, storage delete, archival, and termination with reason
// object_deleted.
func (r *Runtime) Delete(ctx context.Context) error {
	start := time.Now()
	err := r.call(ctx, func() error {
		if r.stopping {
			return object.NotFoundError{Ref: r.session.ID}
		}
		if n := r.session.ChildCount(); n > 0 {
			return object.HasChildrenError{ID: r.session.ID, Count: n}
		}
		if err := r.behavior.OnDeleted(r.session.Clone()); err != nil {
			return object.InternalError{Hook: "on_deleted", Err: err}
		}
		if err := r.backend.Delete(ctx, r.session.ID); err != nil {
			return object.PersistenceError{Op: "delete", Err: err}
		}
		r.deleted = true
		r.timeline("deleted")
		r.terminate(object.ReasonDeleted)
		return nil
	})
	r.observe("runtime.delete", start, err)
	return err
}

// WaitSave blocks until the session's dirty state has been flushed,
// answering immediately when already clean. The waiter settles with the
// completing save's error. Expiry is a TimeoutError; the pending save is
// not cancelled.
func (r *Runtime) WaitSave(ctx context.Context, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = r.opts.DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	w := make(saveWaiter, 1)
	err := r.call(ctx, func() error {
		if !r.session.Dirty {
			w <- nil
			return nil
		}
		r.waiters = append(r.waiters, w)
		return nil
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return object.TimeoutError{Op: "wait_save", Timeout: timeout}
		}
		return err
	}
	select {
	case res := <-w:
		return res
	case <-ctx.Done():
		return object.TimeoutError{Op: "wait_save", Timeout: timeout}
	case <-r.self.Done():
		return object.NotFoundError{Ref: r.session.ID}
	}
}

// Unload requests an asynchronous stop. The empty reason defaults to
// unload_requested.
func (r *Runtime) Unload(reason string) {
	if reason == "" {
		reason = object.ReasonUnloaded
	}
	r.enqueue(func() { r.terminate(reason) })
}
