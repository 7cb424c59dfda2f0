package typeapi

import (
	"testing"

	"domaincore/pkg/object"
)

type taggedBehavior struct {
	Base
	tag object.TypeTag
}

func (b taggedBehavior) Info() Info { return Info{Type: b.tag} }

func TestRegistryRegisterAndLookup(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(taggedBehavior{tag: "domain"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, ok := reg.Lookup("domain"); !ok {
		t.Fatalf("registered behavior not found")
	}
	if _, ok := reg.Lookup("missing"); ok {
		t.Fatalf("lookup of unregistered tag succeeded")
	}
}

func TestRegistryRejectsDuplicatesAndEmptyTags(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(taggedBehavior{tag: "x"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.Register(taggedBehavior{tag: "x"}); err == nil {
		t.Fatalf("duplicate registration accepted")
	}
	if err := reg.Register(taggedBehavior{}); err == nil {
		t.Fatalf("empty tag accepted")
	}
	if got := len(reg.Types()); got != 1 {
		t.Fatalf("Types() = %d entries, want 1", got)
	}
}
