package normalize

import (
	"encoding/json"
	"sort"
	"strings"
)

// maxJSONDepth bounds the recursive walk over structured records.
const maxJSONDepth = 10

// textKeys are fields whose string values are harvested as text.
var textKeys = map[string]bool{
	"text":        true,
	"message":     true,
	"body":        true,
	"content":     true,
	"caption":     true,
	"description": true,
	"title":       true,
	"comment":     true,
}

// containerKeys are fields whose values are recursed into.
var containerKeys = map[string]bool{
	"items":    true,
	"posts":    true,
	"comments": true,
	"data":     true,
	"replies":  true,
	"messages": true,
	"entries":  true,
	"records":  true,
	"results":  true,
	"children": true,
}

// jsonText harvests text-bearing fields from a structured record. If the
// bytes do not parse as JSON, the raw text is returned unparsed.
func jsonText(data []byte) string {
	var root any
	if err := json.Unmarshal(data, &root); err != nil {
		return string(data)
	}

	var parts []string
	harvest(root, 0, &parts)
	return strings.Join(parts, "\n")
}

func harvest(node any, depth int, parts *[]string) {
	if depth > maxJSONDepth {
		return
	}

	switch v := node.(type) {
	case map[string]any:
		// Maps iterate in random order; sort so harvested text keeps a
		// stable first-seen order across runs.
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			val := v[key]
			if textKeys[key] {
				if s, ok := val.(string); ok {
					*parts = append(*parts, s)
					continue
				}
			}
			if containerKeys[key] {
				harvest(val, depth+1, parts)
			}
		}
	case []any:
		for _, item := range v {
			harvest(item, depth+1, parts)
		}
	}
}
