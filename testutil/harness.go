package testutil

import (
	"sync"
	"time"

	"domaincore/pkg/object"
	"domaincore/pkg/typeapi"
)

// StubBehavior is a configurable Behavior for runtime tests. Zero value is
// a plain container type with an open schema. Hook invocations are
// recorded under a mutex so tests can assert across goroutines.
type StubBehavior struct {
	typeapi.Base

	Tag             object.TypeTag
	Archive         bool
	RemoveAfterStop bool
	MinStartedTime  time.Duration
	UpdateSchema    typeapi.Schema
	LoadSchema      typeapi.Schema
	Keepalive       bool

	StartResult typeapi.HookResult
	StartErr    error
	SyncOpFn    func(op typeapi.Op, s object.Session) (typeapi.OpResult, error)

	mu    sync.Mutex
	calls []string
	stops []string
}

// Info implements typeapi.Behavior.
func (b *StubBehavior) Info() typeapi.Info {
	tag := b.Tag
	if tag == "" {
		tag = "stub"
	}
	return typeapi.Info{
		Type:            tag,
		Archive:         b.Archive,
		RemoveAfterStop: b.RemoveAfterStop,
		MinStartedTime:  b.MinStartedTime,
	}
}

// Schema returns the configured schema for the purpose.
func (b *StubBehavior) Schema(purpose typeapi.SchemaPurpose) typeapi.Schema {
	if purpose == typeapi.SchemaLoad {
		return b.LoadSchema
	}
	return b.UpdateSchema
}

func (b *StubBehavior) OnStart(object.Session) (typeapi.HookResult, error) {
	b.record("on_start")
	return b.StartResult, b.StartErr
}

func (b *StubBehavior) OnStop(reason string, _ object.Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, "on_stop")
	b.stops = append(b.stops, reason)
	return nil
}

func (b *StubBehavior) OnUpdated(map[string]any, object.Session) (typeapi.HookResult, error) {
	b.record("on_updated")
	return typeapi.HookResult{}, nil
}

func (b *StubBehavior) OnDeleted(object.Session) error {
	b.record("on_deleted")
	return nil
}

func (b *StubBehavior) OnEnabled(bool, object.Session) (typeapi.HookResult, error) {
	b.record("on_enabled")
	return typeapi.HookResult{}, nil
}

func (b *StubBehavior) OnAllLinksDown(object.Session) (bool, error) {
	b.record("on_all_links_down")
	return b.Keepalive, nil
}

func (b *StubBehavior) OnRegDown(tag, key, reason string, _ object.Session) (typeapi.HookResult, error) {
	b.record("on_reg_down:" + tag)
	return typeapi.HookResult{}, nil
}

func (b *StubBehavior) OnSyncOp(op typeapi.Op, s object.Session) (typeapi.OpResult, error) {
	b.record("on_sync_op:" + op.Name)
	if b.SyncOpFn != nil {
		return b.SyncOpFn(op, s)
	}
	return typeapi.OpResult{Outcome: typeapi.OpNotHandled}, nil
}

func (b *StubBehavior) record(call string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, call)
}

// Calls returns the recorded hook invocations in order.
func (b *StubBehavior) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

// StopReasons returns the reasons passed to OnStop.
func (b *StubBehavior) StopReasons() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.stops...)
}
