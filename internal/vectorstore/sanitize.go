package vectorstore

import "strings"

// SanitizeMetadata returns a cleaned copy of meta compatible with the
// underlying index: keys mapping to an empty list are dropped; non-empty
// lists lose nil entries and blank strings while keeping the order and type
// of the rest; scalar values pass through unchanged. Pure and deterministic;
// it runs before every upsert.
func SanitizeMetadata(meta map[string]any) map[string]any {
	cleaned := make(map[string]any, len(meta))
	for key, value := range meta {
		list, isList := asList(value)
		if !isList {
			cleaned[key] = value
			continue
		}
		if len(list) == 0 {
			continue
		}
		kept := make([]any, 0, len(list))
		for _, entry := range list {
			if entry == nil {
				continue
			}
			if text, ok := entry.(string); ok && strings.TrimSpace(text) == "" {
				continue
			}
			kept = append(kept, entry)
		}
		if len(kept) == 0 {
			continue
		}
		cleaned[key] = kept
	}
	return cleaned
}

func asList(value any) ([]any, bool) {
	switch v := value.(type) {
	case []any:
		return v, true
	case []string:
		list := make([]any, len(v))
		for i, entry := range v {
			list[i] = entry
		}
		return list, true
	case []int:
		list := make([]any, len(v))
		for i, entry := range v {
			list[i] = entry
		}
		return list, true
	case []int64:
		list := make([]any, len(v))
		for i, entry := range v {
			list[i] = entry
		}
		return list, true
	case []float64:
		list := make([]any, len(v))
		for i, entry := range v {
			list[i] = entry
		}
		return list, true
	default:
		return nil, false
	}
}
