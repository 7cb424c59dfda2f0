// Package object defines the core value types shared by the per-entity
// runtime and the directory: sessions, lifecycle events, typed errors, and
// the hierarchical path helpers every entity rides on.
package object

import (
	"fmt"
	"strings"
)

// TypeTag identifies the entity type of a stored object. It selects the
// type behavior implementation bound to the runtime instance.
type TypeTag string

// Status is the lifecycle status of a live session. Beyond the two
// reserved values, type behaviors may set custom statuses.
type Status string

const (
	// StatusInit is the status of a session before its start hook ran.
	StatusInit Status = "init"
	// StatusUnloaded is the terminal status; the unload reason is carried
	// separately on the session.
	StatusUnloaded Status = "unloaded"
)

// Stop reasons used by the runtime termination protocol.
const (
	ReasonDeleted      = "object_deleted"
	ReasonExpired      = "object_expired"
	ReasonParentDown   = "parent_stopped"
	ReasonNoLinks      = "no_links_remaining"
	ReasonUnloaded     = "unload_requested"
	ReasonStartFailed  = "start_failed"
	ReasonSessionFault = "session_fault"
)

// Ref addresses a persisted object by id or hierarchical path.
type Ref struct {
	ID   string `json:"id,omitempty"`
	Path string `json:"path,omitempty"`
}

func (r Ref) String() string {
	if r.ID != "" {
		return r.ID
	}
	return r.Path
}

// IsZero reports whether the reference carries neither an id nor a path.
func (r Ref) IsZero() bool { return r.ID == "" && r.Path == "" }

// NormalizePath canonicalizes a hierarchical path: it must be absolute,
// slash-separated, with no empty or dot segments and no trailing slash.
func NormalizePath(path string) (string, error) {
	if path == "" || path[0] != '/' {
		return "", ValidationError{Field: "path", Reason: fmt.Sprintf("path %q must be absolute", path)}
	}
	if path == "/" {
		return "/", nil
	}
	segments := strings.Split(strings.TrimSuffix(path[1:], "/"), "/")
	for _, seg := range segments {
		if seg == "" || seg == "." || seg == ".." {
			return "", ValidationError{Field: "path", Reason: fmt.Sprintf("path %q has invalid segment %q", path, seg)}
		}
	}
	return "/" + strings.Join(segments, "/"), nil
}

// ParentPath returns the path of the direct parent, or "" for the root.
func ParentPath(path string) string {
	if path == "" || path == "/" {
		return ""
	}
	idx := strings.LastIndexByte(path, '/')
	if idx <= 0 {
		return "/"
	}
	return path[:idx]
}

// PathName returns the last segment of the path.
func PathName(path string) string {
	if path == "/" {
		return "/"
	}
	idx := strings.LastIndexByte(path, '/')
	if idx < 0 {
		return path
	}
	return path[idx+1:]
}

// IsDirectChild reports whether child is exactly one level below parent.
func IsDirectChild(parent, child string) bool {
	if parent == "" || child == "" {
		return false
	}
	return ParentPath(child) == parent
}
