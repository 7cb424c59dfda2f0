package runtime

import (
	"context"
	"time"

	"domaincore/internal/directory"
	"domaincore/internal/proc"
	"domaincore/pkg/object"
)

// link is one registered subscriber: it receives this instance's lifecycle
// events in generation order, and its death feeds the idle policy.
type link struct {
	tag     string
	key     string
	proc    *proc.Proc
	deliver func(object.Event)
	cancel  func()
}

// RegisterLink subscribes a peer process to this instance's events under
// tag. The peer's death removes the link, runs the reg-down hook, and
// re-evaluates the idle policy.
func (r *Runtime) RegisterLink(ctx context.Context, tag, key string, p *proc.Proc, deliver func(object.Event)) error {
	start := time.Now()
	err := r.call(ctx, func() error {
		if r.stopping {
			return object.NotFoundError{Ref: r.session.ID}
		}
		for _, l := range r.links {
			if l.tag == tag && l.key == key {
				return nil
			}
		}
		l := link{tag: tag, key: key, proc: p, deliver: deliver}
		if p != nil {
			l.cancel = p.Watch(func(reason string) {
				r.enqueue(func() { r.linkDown(tag, key, reason) })
			})
		}
		r.links = append(r.links, l)
		return nil
	})
	r.observe("runtime.register_link", start, err)
	return err
}

// UnregisterLink removes a subscription without running any hook, then
// re-evaluates the idle policy.
func (r *Runtime) UnregisterLink(ctx context.Context, tag, key string) error {
	return r.call(ctx, func() error {
		for i, l := range r.links {
			if l.tag == tag && l.key == key {
				if l.cancel != nil {
					l.cancel()
				}
				r.links = append(r.links[:i], r.links[i+1:]...)
				r.checkIdle()
				return nil
			}
		}
		return object.NotFoundError{Ref: tag}
	})
}

// linkDown handles the death of a linked peer. The link is removed before
// the hook runs, so a duplicate death signal finds nothing to do.
func (r *Runtime) linkDown(tag, key, reason string) {
	if r.stopping {
		return
	}
	found := false
	for i, l := range r.links {
		if l.tag == tag && l.key == key {
			r.links = append(r.links[:i], r.links[i+1:]...)
			found = true
			break
		}
	}
	if !found {
		return
	}
	res, err := r.behavior.OnRegDown(tag, key, reason, r.session.Clone())
	if err != nil {
		r.log.Error().Err(err).Str("tag", tag).Msg("reg-down hook failed")
	}
	r.applyHook(res)
	r.checkIdle()
}

// emit delivers one lifecycle event to every link, in registration order.
// Deliver callbacks run on this instance's loop; subscribers hand the
// event off to their own mailbox.
func (r *Runtime) emit(kind object.EventKind, payload map[string]any) {
	if len(r.links) == 0 {
		return
	}
	ev := object.Event{Kind: kind, ObjectID: r.session.ID, Path: r.session.Path, Payload: payload}
	for _, l := range r.links {
		if l.deliver != nil {
			l.deliver(ev)
		}
	}
}

// DeliverEvent hands an event from another object to this instance's
// behavior. Fire and forget.
func (r *Runtime) DeliverEvent(ev object.Event) {
	r.enqueue(func() {
		if r.stopping {
			return
		}
		if err := r.behavior.OnEvent(ev, r.session.Clone()); err != nil {
			r.log.Error().Err(err).Str("kind", string(ev.Kind)).Msg("event hook failed")
		}
	})
}

// register publishes this instance in the directory under both its id and
// its path. Registration failures are logged, not fatal: the entity stays
// reachable through its parent.
func (r *Runtime) register() {
	if r.dir == nil {
		return
	}
	metadata := map[string]any{
		"id":   r.session.ID,
		"type": string(r.session.Type),
		"path": r.session.Path,
	}
	party := directory.Party{Proc: r.self, Notify: r.notice}
	ctx := context.Background()
	for _, key := range []string{r.session.ID, r.session.Path} {
		if err := r.dir.Register(ctx, key, metadata, party); err != nil {
			r.log.Warn().Err(err).Str("key", key).Msg("directory registration failed")
		}
	}
}

// notice receives directory notifications for this instance and routes
// them through the reg-down hook on the dispatch loop.
func (r *Runtime) notice(n directory.Notice) {
	r.enqueue(func() {
		if r.stopping {
			return
		}
		tag := n.Tag
		if tag == "" {
			tag = string(n.Kind)
		}
		key := n.PeerKey
		if key == "" {
			key = n.Key
		}
		res, err := r.behavior.OnRegDown(tag, key, n.Reason, r.session.Clone())
		if err != nil {
			r.log.Error().Err(err).Str("tag", tag).Msg("reg-down hook failed")
		}
		r.applyHook(res)
	})
}
