package runtime

import (
	"context"
	"time"

	"domaincore/internal/archive"
	"domaincore/internal/observability"
	"domaincore/internal/storage"
	"domaincore/pkg/object"
	"domaincore/pkg/typeapi"
)

// record builds the persisted form of the current session. Runtime-only
// state never crosses into the record.
func (r *Runtime) record() storage.Record {
	return storage.Record{
		ID:       r.session.ID,
		Type:     r.session.Type,
		Path:     r.session.Path,
		ParentID: r.session.ParentID,
		Object:   object.CloneMap(r.session.Object),
	}
}

// load runs the load protocol on the dispatch loop. A non-nil error means
// the instance never became live and already exited.
func (r *Runtime) load() error {
	start := time.Now()
	err := r.doLoad()
	r.observe("runtime.load", start, err)
	return err
}

func (r *Runtime) doLoad() error {
	r.firstLoaded = r.session.StartedAt

	// An object that expired before it was loaded never becomes enabled:
	// it goes straight through the termination protocol.
	if exp, ok := r.session.ExpiresAt(); ok && !exp.After(time.Now()) {
		r.timeline("expired")
		r.terminate(object.ReasonExpired)
		return nil
	}

	res, err := r.behavior.OnStart(r.session.Clone())
	if err != nil {
		r.log.Error().Err(err).Msg("start hook failed")
		r.terminate(object.ReasonStartFailed)
		return object.InternalError{Hook: "on_start", Err: err}
	}
	r.applyHook(res)
	if r.stopping {
		return nil
	}

	if r.created {
		// Create is the authoritative uniqueness check: a concurrent
		// create of the same path loses here, before the entity is live.
		if err := r.backend.Create(context.Background(), r.record()); err != nil {
			r.terminate(object.ReasonStartFailed)
			return err
		}
		r.created = false
		r.session.Dirty = false
	} else if r.session.Dirty {
		r.attemptSave("load")
	}

	r.session.Enabled = r.session.StoredEnabled() && !r.parentDisabled
	r.timeline("loaded")
	r.register()
	r.scheduleExpire()
	r.live = true
	observability.Live(r.metrics, 1)
	r.log.Info().Bool("enabled", r.session.Enabled).Msg("object loaded")
	r.emit(object.EventLoaded, map[string]any{"enabled": r.session.Enabled})
	return nil
}

// applyHook folds a hook result into the session: a patch dirties the
// object when it changes anything, an explicit save flushes immediately,
// and a stop reason enters the termination protocol.
func (r *Runtime) applyHook(res typeapi.HookResult) {
	if res.Update != nil {
		merged, changed := object.Merge(r.session.Object, res.Update)
		if changed {
			r.session.Object = merged
			r.session.Dirty = true
			r.scheduleExpire()
		}
	}
	if res.Save && r.session.Dirty {
		r.attemptSave("hook")
	}
	if res.StopReason != "" {
		r.terminate(res.StopReason)
	}
}

// attemptSave persists the session if dirty. On success the dirty flag
// clears and waiters settle with nil; on failure the session stays dirty,
// waiters settle with the error, and a retry is scheduled.
func (r *Runtime) attemptSave(origin string) error {
	if !r.session.Dirty {
		r.notifyWaiters(nil)
		return nil
	}
	start := time.Now()
	err := r.backend.Save(context.Background(), r.record())
	r.observe("runtime.save", start, err)
	if err != nil {
		err = object.PersistenceError{Op: "save", Err: err}
		r.log.Warn().Err(err).Str("origin", origin).Msg("save failed")
		r.scheduleRetry()
		r.notifyWaiters(err)
		return err
	}
	r.session.Dirty = false
	if r.retryTimer != nil {
		r.retryTimer.Stop()
		r.retryTimer = nil
	}
	r.notifyWaiters(nil)
	return nil
}

func (r *Runtime) scheduleRetry() {
	if r.opts.SaveRetryInterval <= 0 || r.retryTimer != nil || r.stopping {
		return
	}
	r.retryTimer = time.AfterFunc(r.opts.SaveRetryInterval, func() {
		r.enqueue(func() {
			r.retryTimer = nil
			if r.session.Dirty && !r.stopping {
				r.attemptSave("retry")
			}
		})
	})
}

func (r *Runtime) notifyWaiters(err error) {
	for _, w := range r.waiters {
		w <- err
	}
	r.waiters = nil
}

// scheduleExpire arms the expiration timer from the object's expires_time
// field. Called again after every change to the field; a removed or
// malformed value disarms the timer.
func (r *Runtime) scheduleExpire() {
	if r.expireTimer != nil {
		r.expireTimer.Stop()
		r.expireTimer = nil
	}
	exp, ok := r.session.ExpiresAt()
	if !ok || r.stopping {
		return
	}
	delay := time.Until(exp)
	if delay < 0 {
		delay = 0
	}
	r.expireTimer = time.AfterFunc(delay, func() {
		r.enqueue(func() {
			if r.stopping {
				return
			}
			// The field may have moved since the timer was armed.
			exp, ok := r.session.ExpiresAt()
			if !ok {
				return
			}
			if exp.After(time.Now()) {
				r.scheduleExpire()
				return
			}
			r.timeline("expired")
			r.terminate(object.ReasonExpired)
		})
	})
}

// checkIdle applies the residence policy: a non-root entity with no links
// and no live children stops unless its behavior asks to stay resident.
// Minimum residence times defer the first eligible check.
func (r *Runtime) checkIdle() {
	if r.stopping || r.parent == nil {
		return
	}
	if len(r.links) > 0 || r.session.ChildCount() > 0 {
		return
	}
	info := r.behavior.Info()
	min := info.MinStartedTime
	if info.MinFirstTime > min {
		min = info.MinFirstTime
	}
	if min > 0 {
		if remaining := min - time.Since(r.firstLoaded); remaining > 0 {
			time.AfterFunc(remaining, func() { r.enqueue(r.checkIdle) })
			return
		}
	}
	keep, err := r.behavior.OnAllLinksDown(r.session.Clone())
	if err != nil {
		r.log.Error().Err(err).Msg("links-down hook failed")
	}
	if keep {
		return
	}
	r.terminate(object.ReasonNoLinks)
}

// terminate runs the termination protocol exactly once: stop hook, final
// save attempt, terminal status, unload and record events, optional
// removal and archival, then process exit.
func (r *Runtime) terminate(reason string) {
	if r.stopping {
		return
	}
	r.stopping = true

	if r.expireTimer != nil {
		r.expireTimer.Stop()
		r.expireTimer = nil
	}
	if r.retryTimer != nil {
		r.retryTimer.Stop()
		r.retryTimer = nil
	}
	if r.parentCancel != nil {
		r.parentCancel()
		r.parentCancel = nil
	}
	// Children learn of the stop through their own watch on this process;
	// dropping our watches first keeps their exits from re-entering here.
	for _, byName := range r.children {
		for _, entry := range byName {
			entry.cancel()
		}
	}

	if err := r.behavior.OnStop(reason, r.session.Clone()); err != nil {
		r.log.Error().Err(err).Str("reason", reason).Msg("stop hook failed")
	}
	r.timeline("stopped")

	info := r.behavior.Info()
	remove := r.deleted || info.RemoveAfterStop

	if r.session.Dirty && !remove {
		if err := r.attemptSave("stop"); err != nil {
			r.log.Warn().Err(err).Msg("final save failed")
		}
	}

	r.session.Status = object.StatusUnloaded
	r.session.UnloadReason = reason
	r.session.Enabled = false

	r.emit(object.EventUnloaded, map[string]any{"reason": reason})
	r.emit(object.EventRecord, map[string]any{"reason": reason, "timeline": append([]object.TimelineEntry(nil), r.session.Timeline...)})

	if info.RemoveAfterStop && !r.deleted {
		if err := r.backend.Delete(context.Background(), r.session.ID); err != nil {
			r.log.Warn().Err(err).Msg("remove after stop failed")
		} else {
			r.deleted = true
		}
	}
	if r.deleted && info.Archive {
		r.archiveRecord()
	}

	r.notifyWaiters(object.NotFoundError{Ref: r.session.ID})
	snapshot := r.session.Clone()
	r.final.Store(&snapshot)
	if r.live {
		r.live = false
		observability.Live(r.metrics, -1)
	}
	r.log.Info().Str("reason", reason).Msg("object unloaded")
	// The actual proc exit is performed by the dispatch loop once the
	// request that triggered termination has delivered its reply.
	r.exitPending = true
	r.exitReason = reason
}

// archiveRecord writes the terminal snapshot. Best effort: archival never
// blocks or fails the termination protocol.
func (r *Runtime) archiveRecord() {
	if r.arch == nil {
		return
	}
	payload, err := r.behavior.OnArchive(r.session.Clone())
	if err != nil {
		r.log.Warn().Err(err).Msg("archive hook failed")
		return
	}
	if _, err := archive.WriteRecord(context.Background(), r.arch, r.record(), payload); err != nil {
		r.log.Warn().Err(err).Msg("archive write failed")
	}
}

// FinalSession returns the terminal session snapshot once the instance
// exited. The second return is false while the instance is live.
func (r *Runtime) FinalSession() (object.Session, bool) {
	if s := r.final.Load(); s != nil {
		return s.Clone(), true
	}
	return object.Session{}, false
}
