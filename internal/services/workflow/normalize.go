package workflow

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/comfygate/comfy-gateway/internal/utils/jsonutil"
)

// Normalize translates a workflow document into the executor-native keyed
// form. Editor-style exports ({"nodes": [...]}) are converted node by node;
// already-keyed documents pass through with non-digit keys (metadata) dropped.
// Normalizing a keyed document is idempotent.
func Normalize(doc Document) Normalized {
	if nodes, ok := doc["nodes"].([]any); ok {
		return normalizeEditor(nodes)
	}

	return normalizeKeyed(doc)
}

func normalizeEditor(nodes []any) Normalized {
	result := make(Normalized, len(nodes))

	for _, raw := range nodes {
		node, ok := raw.(map[string]any)
		if !ok {
			continue
		}

		id, ok := nodeIDString(node["id"])
		if !ok {
			continue
		}

		classType, _ := node["type"].(string)

		inputs := map[string]any{}
		if existing, ok := node["inputs"].(map[string]any); ok {
			for k, v := range existing {
				inputs[k] = v
			}
		}

		// Widget values become synthetic positional inputs.
		if widgets, ok := node["widgets_values"].([]any); ok {
			for i, value := range widgets {
				inputs[fmt.Sprintf("input_%d", i)] = value
			}
		}

		normalized := NormalizedNode{
			Inputs:    inputs,
			ClassType: classType,
		}
		if title, ok := node["title"].(string); ok {
			normalized.Meta = &NodeMeta{Title: title}
		}

		result[id] = normalized
	}

	return result
}

func normalizeKeyed(doc Document) Normalized {
	result := make(Normalized, len(doc))

	for key, value := range doc {
		if !isDigits(key) {
			continue
		}

		body, ok := value.(map[string]any)
		if !ok {
			continue
		}

		var node NormalizedNode
		if err := jsonutil.MapToStruct(body, &node); err != nil {
			continue
		}
		if node.Inputs == nil {
			node.Inputs = map[string]any{}
		}

		result[key] = node
	}

	return result
}

// SortedNodeIDs returns the workflow's node ids in numeric order, so scans
// over a Normalized map are deterministic.
func SortedNodeIDs(n Normalized) []string {
	ids := make([]string, 0, len(n))
	for id := range n {
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool {
		a, _ := strconv.Atoi(ids[i])
		b, _ := strconv.Atoi(ids[j])
		return a < b
	})

	return ids
}

func nodeIDString(raw any) (string, bool) {
	switch v := raw.(type) {
	case float64:
		return strconv.Itoa(int(v)), true
	case string:
		if v != "" {
			return v, true
		}
	}
	return "", false
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
