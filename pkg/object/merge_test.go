package object

import (
	"reflect"
	"testing"
)

func TestMergeNoOpPatchReportsUnchanged(t *testing.T) {
	base := map[string]any{"name": "alpha", "nested": map[string]any{"a": 1}}
	merged, changed := Merge(base, map[string]any{"name": "alpha", "nested": map[string]any{"a": 1}})
	if changed {
		t.Fatalf("no-op patch reported as change")
	}
	if !reflect.DeepEqual(merged, base) {
		t.Fatalf("merged = %v, want %v", merged, base)
	}
}

func TestMergeNestedMapsRecursively(t *testing.T) {
	base := map[string]any{"nested": map[string]any{"a": 1, "b": 2}}
	merged, changed := Merge(base, map[string]any{"nested": map[string]any{"b": 3, "c": 4}})
	if !changed {
		t.Fatalf("expected change")
	}
	want := map[string]any{"nested": map[string]any{"a": 1, "b": 3, "c": 4}}
	if !reflect.DeepEqual(merged, want) {
		t.Fatalf("merged = %v, want %v", merged, want)
	}
}

func TestMergeReplacesNonMapValuesWholesale(t *testing.T) {
	base := map[string]any{"v": map[string]any{"x": 1}}
	merged, changed := Merge(base, map[string]any{"v": "scalar"})
	if !changed {
		t.Fatalf("expected change")
	}
	if merged["v"] != "scalar" {
		t.Fatalf("v = %v, want scalar", merged["v"])
	}
}

func TestMergeDoesNotMutateBase(t *testing.T) {
	base := map[string]any{"nested": map[string]any{"a": 1}}
	merged, _ := Merge(base, map[string]any{"nested": map[string]any{"a": 2}})
	if base["nested"].(map[string]any)["a"] != 1 {
		t.Fatalf("base mutated: %v", base)
	}
	merged["nested"].(map[string]any)["a"] = 99
	if base["nested"].(map[string]any)["a"] != 1 {
		t.Fatalf("merged aliases base: %v", base)
	}
}

func TestMergeAddsNewKeys(t *testing.T) {
	merged, changed := Merge(map[string]any{}, map[string]any{"k": []any{1, 2}})
	if !changed {
		t.Fatalf("expected change")
	}
	if !reflect.DeepEqual(merged["k"], []any{1, 2}) {
		t.Fatalf("k = %v", merged["k"])
	}
}

func TestCloneMapDeepCopies(t *testing.T) {
	src := map[string]any{"m": map[string]any{"k": "v"}, "s": []any{"a"}}
	cp := CloneMap(src)
	cp["m"].(map[string]any)["k"] = "changed"
	cp["s"].([]any)[0] = "changed"
	if src["m"].(map[string]any)["k"] != "v" || src["s"].([]any)[0] != "a" {
		t.Fatalf("clone aliases source: %v", src)
	}
	if CloneMap(nil) != nil {
		t.Fatalf("clone of nil should stay nil")
	}
}
