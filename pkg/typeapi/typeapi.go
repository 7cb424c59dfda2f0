// Package typeapi defines the contract between the generic object runtime
// and per-type behavior implementations. One Behavior exists per entity
// type; the runtime dispatches every type-specific decision through it and
// never branches on the type tag directly.
package typeapi

import (
	"errors"
	"time"

	"domaincore/pkg/object"
)

// ErrNotHandled is returned to callers of a sync op the behavior declined.
var ErrNotHandled = errors.New("operation not handled")

// Info is the static metadata a behavior declares once.
type Info struct {
	Type object.TypeTag
	// Archive requests a terminal snapshot in the archive store when the
	// entity is deleted or removed after stop.
	Archive bool
	// RemoveAfterStop deletes and archives the entity as a side effect of
	// stopping, for ephemeral token-like types.
	RemoveAfterStop bool
	// MinFirstTime is the minimum residence time after first load before
	// the idle policy may stop the entity.
	MinFirstTime time.Duration
	// MinStartedTime is the minimum residence time after any load.
	MinStartedTime time.Duration
}

// Op is a generic extension operation dispatched to a behavior.
type Op struct {
	Name string
	Args map[string]any
}

// OpOutcome enumerates how a behavior disposed of an op.
type OpOutcome string

const (
	OpReply          OpOutcome = "reply"
	OpReplyAndSave   OpOutcome = "reply_save"
	OpNoReply        OpOutcome = "noreply"
	OpNoReplyAndSave OpOutcome = "noreply_save"
	OpStop           OpOutcome = "stop"
	OpNotHandled     OpOutcome = "not_handled"
)

// OpResult carries the behavior's disposition of a sync/async op. Update,
// when non-nil, is merged into the object before any requested save.
type OpResult struct {
	Outcome    OpOutcome
	Reply      map[string]any
	Update     map[string]any
	StopReason string
}

// HookResult carries the outcome of a lifecycle hook. A zero value means
// "no state change, no save, keep running".
type HookResult struct {
	Update     map[string]any
	Save       bool
	StopReason string
}

// Behavior is the polymorphic capability set implemented per entity type.
// The session argument is always a snapshot; behaviors request mutation
// through their results, never by writing the snapshot.
type Behavior interface {
	Info() Info
	Schema(purpose SchemaPurpose) Schema

	OnStart(s object.Session) (HookResult, error)
	OnStop(reason string, s object.Session) error
	OnUpdated(patch map[string]any, s object.Session) (HookResult, error)
	OnDeleted(s object.Session) error
	// OnArchive shapes the archived payload; a nil map archives the full
	// session record.
	OnArchive(s object.Session) (map[string]any, error)
	OnEnabled(enabled bool, s object.Session) (HookResult, error)
	OnStatus(status object.Status, s object.Session) (HookResult, error)
	OnEvent(ev object.Event, s object.Session) error
	OnSyncOp(op Op, s object.Session) (OpResult, error)
	OnAsyncOp(op Op, s object.Session) (OpResult, error)
	// OnAllLinksDown decides the idle policy when the link set drains and
	// no children remain: true keeps the entity resident.
	OnAllLinksDown(s object.Session) (keepalive bool, err error)
	OnRegDown(tag, key, reason string, s object.Session) (HookResult, error)
}
