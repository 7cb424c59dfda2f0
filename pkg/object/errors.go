package object

import (
	"fmt"
	"time"
)

// ValidationError reports input rejected by a type behavior schema or a
// malformed request. Recoverable; the session is left untouched.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation: %s", e.Reason)
	}
	return fmt.Sprintf("validation: field %s: %s", e.Field, e.Reason)
}

// NotFoundError reports a missing id, path, or directory key.
type NotFoundError struct {
	Ref string
}

func (e NotFoundError) Error() string { return fmt.Sprintf("%s not found", e.Ref) }

// PathExistsError reports a create that collided with a persisted object.
type PathExistsError struct {
	Path string
}

func (e PathExistsError) Error() string { return fmt.Sprintf("path %s already exists", e.Path) }

// NameInUseError reports a create/load whose type+name slot is already
// occupied by a live sibling.
type NameInUseError struct {
	Type TypeTag
	Name string
}

func (e NameInUseError) Error() string {
	return fmt.Sprintf("%s %q already loaded", e.Type, e.Name)
}

// HasChildrenError reports a delete refused because live children remain.
type HasChildrenError struct {
	ID    string
	Count int
}

func (e HasChildrenError) Error() string {
	return fmt.Sprintf("object %s has %d live children", e.ID, e.Count)
}

// TimeoutError reports a blocking call that expired. The underlying
// operation is not rolled back; the outcome is unknown to the caller.
type TimeoutError struct {
	Op      string
	Timeout time.Duration
}

func (e TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Op, e.Timeout)
}

// PersistenceError wraps a storage or archive failure. The session stays
// dirty so a later save attempt can succeed.
type PersistenceError struct {
	Op  string
	Err error
}

func (e PersistenceError) Error() string { return fmt.Sprintf("persist %s: %v", e.Op, e.Err) }

func (e PersistenceError) Unwrap() error { return e.Err }

// InternalError wraps an unexpected failure inside a type behavior hook.
// It is reported to the caller without crashing the runtime.
type InternalError struct {
	Hook string
	Err  error
}

func (e InternalError) Error() string { return fmt.Sprintf("hook %s: %v", e.Hook, e.Err) }

func (e InternalError) Unwrap() error { return e.Err }
