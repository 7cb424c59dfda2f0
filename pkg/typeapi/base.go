package typeapi

import "domaincore/pkg/object"

// Base is an embeddable no-op implementation of every Behavior hook except
// Info. Concrete behaviors embed it and override what they need.
type Base struct{}

// Schema returns an empty schema: every field map is accepted.
func (Base) Schema(SchemaPurpose) Schema { return nil }

func (Base) OnStart(object.Session) (HookResult, error) { return HookResult{}, nil }

func (Base) OnStop(string, object.Session) error { return nil }

func (Base) OnUpdated(map[string]any, object.Session) (HookResult, error) {
	return HookResult{}, nil
}

func (Base) OnDeleted(object.Session) error { return nil }

func (Base) OnArchive(object.Session) (map[string]any, error) { return nil, nil }

func (Base) OnEnabled(bool, object.Session) (HookResult, error) { return HookResult{}, nil }

func (Base) OnStatus(object.Status, object.Session) (HookResult, error) {
	return HookResult{}, nil
}

func (Base) OnEvent(object.Event, object.Session) error { return nil }

func (Base) OnSyncOp(Op, object.Session) (OpResult, error) {
	return OpResult{Outcome: OpNotHandled}, nil
}

func (Base) OnAsyncOp(Op, object.Session) (OpResult, error) {
	return OpResult{Outcome: OpNotHandled}, nil
}

func (Base) OnAllLinksDown(object.Session) (bool, error) { return false, nil }

func (Base) OnRegDown(string, string, string, object.Session) (HookResult, error) {
	return HookResult{}, nil
}
