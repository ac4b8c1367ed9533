package workflow

// Document is a parsed workflow graph in either of the two supported shapes:
// an editor-style export ({"nodes": [...]}) or an executor-native keyed
// mapping (digit-string keys to node bodies).
type Document map[string]any

// MetadataKey is the one non-node key a keyed document may carry.
const MetadataKey = "workflow_metadata"

// Normalized is the executor-native workflow representation: node id to
// {inputs, class_type}. It is derived by Normalize, never authored directly.
type Normalized map[string]NormalizedNode

type NormalizedNode struct {
	Inputs    map[string]any `json:"inputs"`
	ClassType string         `json:"class_type"`
	Meta      *NodeMeta      `json:"_meta,omitempty"`
}

type NodeMeta struct {
	Title string `json:"title"`
}

// Metadata returns the document's workflow_metadata block, if present.
func (d Document) Metadata() map[string]any {
	if meta, ok := d[MetadataKey].(map[string]any); ok {
		return meta
	}
	return map[string]any{}
}
