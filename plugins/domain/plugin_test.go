package domain

import (
	"errors"
	"testing"

	"domaincore/pkg/object"
	"domaincore/pkg/typeapi"
)

func TestInfoDeclaresContainer(t *testing.T) {
	info := New().Info()
	if info.Type != TypeTag || !info.Archive {
		t.Fatalf("info = %+v", info)
	}
	if info.RemoveAfterStop {
		t.Fatalf("containers must keep their records after stop")
	}
}

func TestKeepsResidentWithoutLinks(t *testing.T) {
	keep, err := New().OnAllLinksDown(object.Session{})
	if err != nil || !keep {
		t.Fatalf("keepalive = %v, %v", keep, err)
	}
}

func TestSchema(t *testing.T) {
	b := New()
	if err := b.Schema(typeapi.SchemaLoad).Validate(typeapi.SchemaLoad, map[string]any{
		"name":       "auth",
		"attributes": map[string]any{"tier": "gold"},
	}); err != nil {
		t.Fatalf("valid load rejected: %v", err)
	}
	var verr object.ValidationError
	if err := b.Schema(typeapi.SchemaLoad).Validate(typeapi.SchemaLoad, map[string]any{}); !errors.As(err, &verr) {
		t.Fatalf("missing name accepted: %v", err)
	}
	if err := b.Schema(typeapi.SchemaUpdate).Validate(typeapi.SchemaUpdate, map[string]any{"name": "renamed"}); !errors.As(err, &verr) {
		t.Fatalf("rename through update accepted: %v", err)
	}
	if err := b.Schema(typeapi.SchemaUpdate).Validate(typeapi.SchemaUpdate, map[string]any{"description": "billing domain"}); err != nil {
		t.Fatalf("valid update rejected: %v", err)
	}
}

func TestDescribeOp(t *testing.T) {
	s := object.Session{
		ID:      "d1",
		Type:    TypeTag,
		Path:    "/acme",
		Enabled: true,
		Object:  map[string]any{"name": "acme"},
		Children: map[object.TypeTag]map[string]object.ChildRef{
			"token": {"t1": {ID: "x", Path: "/acme/t1"}},
		},
	}
	res, err := New().OnSyncOp(typeapi.Op{Name: "describe"}, s)
	if err != nil || res.Outcome != typeapi.OpReply {
		t.Fatalf("result = %+v, %v", res, err)
	}
	if res.Reply["name"] != "acme" || res.Reply["children"] != 1 || res.Reply["enabled"] != true {
		t.Fatalf("reply = %v", res.Reply)
	}
}

func TestUnknownOpNotHandled(t *testing.T) {
	res, err := New().OnSyncOp(typeapi.Op{Name: "mystery"}, object.Session{})
	if err != nil || res.Outcome != typeapi.OpNotHandled {
		t.Fatalf("result = %+v, %v", res, err)
	}
}
