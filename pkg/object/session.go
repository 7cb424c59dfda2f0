package object

import (
	"time"
)

// ChildRef identifies one live child in a session's child table. The
// owning runtime holds the process handle; snapshots carry ids only.
type ChildRef struct {
	ID   string `json:"id"`
	Path string `json:"path"`
}

// TimelineEntry is one lifecycle event with its elapsed offset from
// session start. The timeline is ordered most-recent-first and is kept
// for diagnostics only.
type TimelineEntry struct {
	Event   string        `json:"event"`
	Elapsed time.Duration `json:"elapsed"`
}

// Session is the state owned exclusively by one runtime instance. Values
// handed to callers are snapshots; all mutation happens on the owning
// runtime's loop.
type Session struct {
	ID           string                          `json:"id"`
	Type         TypeTag                         `json:"type"`
	Path         string                          `json:"path"`
	ParentID     string                          `json:"parent_id,omitempty"`
	Object       map[string]any                  `json:"object"`
	Status       Status                          `json:"status"`
	UnloadReason string                          `json:"unload_reason,omitempty"`
	Dirty        bool                            `json:"is_dirty"`
	Enabled      bool                            `json:"is_enabled"`
	Children     map[TypeTag]map[string]ChildRef `json:"children,omitempty"`
	StartedAt    time.Time                       `json:"started_at"`
	Timeline     []TimelineEntry                 `json:"timeline,omitempty"`
}

// Name returns the last path segment of the session.
func (s Session) Name() string { return PathName(s.Path) }

// ChildCount returns the number of live children across all types.
func (s Session) ChildCount() int {
	n := 0
	for _, byName := range s.Children {
		n += len(byName)
	}
	return n
}

// Child looks up a live child by type and name.
func (s Session) Child(typ TypeTag, name string) (ChildRef, bool) {
	byName, ok := s.Children[typ]
	if !ok {
		return ChildRef{}, false
	}
	ref, ok := byName[name]
	return ref, ok
}

// StoredEnabled reports the object's own persisted enabled field. A
// missing field counts as enabled; only an explicit false pins the entity
// disabled. Kept distinct from the runtime Enabled flag.
func (s Session) StoredEnabled() bool {
	v, ok := s.Object["enabled"]
	if !ok {
		return true
	}
	b, ok := v.(bool)
	if !ok {
		return true
	}
	return b
}

// ExpiresAt parses the object's expires_time field as RFC 3339. The second
// return is false when the field is absent or malformed.
func (s Session) ExpiresAt() (time.Time, bool) {
	v, ok := s.Object["expires_time"]
	if !ok {
		return time.Time{}, false
	}
	str, ok := v.(string)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, str)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Clone returns a deep copy safe to hand outside the owning runtime.
func (s Session) Clone() Session {
	cp := s
	cp.Object = CloneMap(s.Object)
	if s.Children != nil {
		cp.Children = make(map[TypeTag]map[string]ChildRef, len(s.Children))
		for typ, byName := range s.Children {
			inner := make(map[string]ChildRef, len(byName))
			for name, ref := range byName {
				inner[name] = ref
			}
			cp.Children[typ] = inner
		}
	}
	cp.Timeline = append([]TimelineEntry(nil), s.Timeline...)
	return cp
}
