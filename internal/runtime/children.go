package runtime

import (
	"context"
	"time"

	"domaincore/pkg/object"
	"domaincore/pkg/typeapi"
)

// ChildSpec describes a child entity to create or load under this
// instance.
type ChildSpec struct {
	ID   string
	Type object.TypeTag
	// Path must be a direct descendant of the parent's path.
	Path string
	// Object is the initial field map for create_child. For load_child a
	// nil map is fetched from storage instead.
	Object map[string]any
	// Dirty carries the caller's dirty flag for load_child.
	Dirty bool
}

// CreateChild starts a new entity under this instance. The child starts
// dirty and its first persist is a create, which is the authoritative
// path-uniqueness check: a concurrent create of the same path fails with
// PathExistsError.
func (r *Runtime) CreateChild(ctx context.Context, spec ChildSpec) (*Runtime, error) {
	start := time.Now()
	rt, err := r.startChild(ctx, spec, true)
	r.observe("runtime.create_child", start, err)
	return rt, err
}

// LoadChild starts a runtime for an already-persisted entity under this
// instance. The dirty flag is inherited from the caller.
func (r *Runtime) LoadChild(ctx context.Context, spec ChildSpec) (*Runtime, error) {
	start := time.Now()
	rt, err := r.startChild(ctx, spec, false)
	r.observe("runtime.load_child", start, err)
	return rt, err
}

func (r *Runtime) startChild(ctx context.Context, spec ChildSpec, created bool) (*Runtime, error) {
	var rt *Runtime
	err := r.call(ctx, func() error {
		if r.stopping {
			return object.NotFoundError{Ref: r.session.ID}
		}
		path, err := object.NormalizePath(spec.Path)
		if err != nil {
			return err
		}
		if !object.IsDirectChild(r.session.Path, path) {
			return object.ValidationError{Field: "path", Reason: "not a direct descendant"}
		}
		name := object.PathName(path)
		if _, live := r.session.Child(spec.Type, name); live {
			return object.NameInUseError{Type: spec.Type, Name: name}
		}
		if spec.ID == "" {
			return object.ValidationError{Field: "id", Reason: "missing id"}
		}
		behavior := r.behavior
		if r.behaviors != nil {
			if b, ok := r.behaviors.Lookup(spec.Type); ok {
				behavior = b
			} else {
				return object.ValidationError{Field: "type", Reason: "no behavior registered"}
			}
		} else if behavior.Info().Type != spec.Type {
			return object.ValidationError{Field: "type", Reason: "no behavior registered"}
		}

		fields := object.CloneMap(spec.Object)
		dirty := spec.Dirty
		if created {
			// Early rejection for an occupied path; the child's create is
			// still the authoritative check under concurrency.
			if _, err := r.backend.Find(ctx, object.Ref{Path: path}); err == nil {
				return object.PathExistsError{Path: path}
			}
			if fields == nil {
				fields = map[string]any{}
			}
			if err := behavior.Schema(typeapi.SchemaLoad).Validate(typeapi.SchemaLoad, fields); err != nil {
				return err
			}
		} else if fields == nil {
			rec, err := r.backend.Find(ctx, object.Ref{ID: spec.ID, Path: path})
			if err != nil {
				return err
			}
			fields = rec.Object
		}

		child, err := Start(Config{
			Session: object.Session{
				ID:       spec.ID,
				Type:     spec.Type,
				Path:     path,
				ParentID: r.session.ID,
				Object:   fields,
			},
			Created:        created,
			Dirty:          dirty,
			ParentDisabled: !r.session.Enabled,
			Behavior:       behavior,
			Behaviors:      r.behaviors,
			Backend:        r.backend,
			Archive:        r.arch,
			Directory:      r.dir,
			Parent:         r.self,
			Logger:         r.baseLog,
			Metrics:        r.metrics,
			Options:        r.opts,
		})
		if err != nil {
			return err
		}
		if _, done := child.FinalSession(); done {
			// Loaded straight into the terminal state (already expired):
			// nothing to supervise.
			rt = child
			return nil
		}

		ref := object.ChildRef{ID: spec.ID, Path: path}
		typ, childName := spec.Type, name
		cancel := child.Proc().Watch(func(reason string) {
			r.enqueue(func() { r.childDown(typ, childName, ref.ID, reason) })
		})
		if r.children[typ] == nil {
			r.children[typ] = make(map[string]childEntry)
		}
		r.children[typ][childName] = childEntry{ref: ref, rt: child, cancel: cancel}
		if r.session.Children[typ] == nil {
			r.session.Children[typ] = make(map[string]object.ChildRef)
		}
		r.session.Children[typ][childName] = ref
		rt = child
		return nil
	})
	return rt, err
}

// childDown records the death of a supervised child: the child table slot
// is freed, links are notified, and the idle policy re-evaluates.
func (r *Runtime) childDown(typ object.TypeTag, name, id, reason string) {
	if r.stopping {
		return
	}
	entry, ok := r.children[typ][name]
	if !ok || entry.ref.ID != id {
		return
	}
	delete(r.children[typ], name)
	if len(r.children[typ]) == 0 {
		delete(r.children, typ)
	}
	delete(r.session.Children[typ], name)
	if len(r.session.Children[typ]) == 0 {
		delete(r.session.Children, typ)
	}
	r.timeline("child_down")
	r.log.Info().Str("child_id", id).Str("reason", reason).Msg("child stopped")
	r.emit(object.EventChildDown, map[string]any{"child_id": id, "child_path": entry.ref.Path, "reason": reason})
	r.checkIdle()
}

// Child returns the live runtime of a supervised child.
func (r *Runtime) Child(ctx context.Context, typ object.TypeTag, name string) (*Runtime, error) {
	var rt *Runtime
	err := r.call(ctx, func() error {
		entry, ok := r.children[typ][name]
		if !ok {
			return object.NotFoundError{Ref: name}
		}
		rt = entry.rt
		return nil
	})
	return rt, err
}
