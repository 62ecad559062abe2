package snapshot

// Merge composes snapshots ordered from strongest to weakest, returning a new
// snapshot that keeps explicit entries from stronger layers while filling any
// missing data from weaker ones. Nested map[string]any values merge
// recursively; every other value type is taken wholesale from the strongest
// layer that carries it. Inputs are never mutated.
func Merge(layers ...Snapshot) Snapshot {
	if len(layers) == 0 {
		return Snapshot{}
	}

	merged := cloneAny(map[string]any(layers[len(layers)-1])).(map[string]any)
	if merged == nil {
		merged = map[string]any{}
	}
	for i := len(layers) - 2; i >= 0; i-- {
		merged = mergeMaps(layers[i], merged)
	}
	return Snapshot(merged)
}

func mergeMaps(strong map[string]any, weak map[string]any) map[string]any {
	result := make(map[string]any, len(strong)+len(weak))
	for key, value := range weak {
		result[key] = cloneAny(value)
	}
	for key, value := range strong {
		existing, ok := result[key]
		if !ok {
			result[key] = cloneAny(value)
			continue
		}
		strongMap, strongIsMap := value.(map[string]any)
		weakMap, weakIsMap := existing.(map[string]any)
		if strongIsMap && weakIsMap {
			result[key] = mergeMaps(strongMap, weakMap)
			continue
		}
		result[key] = cloneAny(value)
	}
	return result
}

func cloneAny(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		if typed == nil {
			return map[string]any(nil)
		}
		clone := make(map[string]any, len(typed))
		for key, entry := range typed {
			clone[key] = cloneAny(entry)
		}
		return clone
	case []any:
		if typed == nil {
			return []any(nil)
		}
		clone := make([]any, len(typed))
		for i, entry := range typed {
			clone[i] = cloneAny(entry)
		}
		return clone
	default:
		return value
	}
}
