package object

import "reflect"

// Merge deep-merges patch into base and returns the merged map plus a flag
// reporting whether anything observable changed. base is never mutated.
// Nested maps merge recursively; any other value type replaces wholesale.
// A patch that changes nothing returns base's clone with changed=false so
// callers can skip dirty-marking and event emission.
func Merge(base, patch map[string]any) (map[string]any, bool) {
	merged := CloneMap(base)
	changed := false
	for key, pv := range patch {
		bv, exists := merged[key]
		if exists {
			bm, bok := bv.(map[string]any)
			pm, pok := pv.(map[string]any)
			if bok && pok {
				sub, subChanged := Merge(bm, pm)
				merged[key] = sub
				changed = changed || subChanged
				continue
			}
			if reflect.DeepEqual(bv, pv) {
				continue
			}
		}
		merged[key] = cloneValue(pv)
		changed = true
	}
	return merged, changed
}

// CloneMap deep-copies a field map. Nil stays nil.
func CloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch tv := v.(type) {
	case map[string]any:
		return CloneMap(tv)
	case []any:
		out := make([]any, len(tv))
		for i, item := range tv {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
