package workflow

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseDoc(t *testing.T, raw string) Document {
	t.Helper()

	var doc Document
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))
	return doc
}

func TestNormalize_EditorExport(t *testing.T) {
	doc := parseDoc(t, `{
		"nodes": [
			{
				"id": 3,
				"type": "KSampler",
				"title": "Sampler",
				"inputs": {"model": ["4", 0]},
				"widgets_values": [42, "euler"]
			},
			{
				"id": 4,
				"type": "CheckpointLoaderSimple",
				"widgets_values": ["sd15.safetensors"]
			}
		],
		"links": [[1, 4, 0, 3, 0]]
	}`)

	normalized := Normalize(doc)
	require.Len(t, normalized, 2)

	sampler, ok := normalized["3"]
	require.True(t, ok)
	assert.Equal(t, "KSampler", sampler.ClassType)
	assert.Equal(t, []any{"4", float64(0)}, sampler.Inputs["model"])
	assert.Equal(t, float64(42), sampler.Inputs["input_0"])
	assert.Equal(t, "euler", sampler.Inputs["input_1"])
	require.NotNil(t, sampler.Meta)
	assert.Equal(t, "Sampler", sampler.Meta.Title)

	loader := normalized["4"]
	assert.Equal(t, "sd15.safetensors", loader.Inputs["input_0"])
	assert.Nil(t, loader.Meta)
}

func TestNormalize_KeyedDocumentPassesThrough(t *testing.T) {
	doc := parseDoc(t, `{
		"3": {"class_type": "KSampler", "inputs": {"seed": 42}},
		"4": {"class_type": "CheckpointLoaderSimple", "inputs": {"ckpt_name": "sd15.safetensors"}},
		"workflow_metadata": {"name": "test", "version": 2}
	}`)

	normalized := Normalize(doc)
	require.Len(t, normalized, 2)

	assert.Equal(t, "KSampler", normalized["3"].ClassType)
	assert.Equal(t, float64(42), normalized["3"].Inputs["seed"])
	_, hasMetadata := normalized["workflow_metadata"]
	assert.False(t, hasMetadata)
}

func TestNormalize_KeyedNodeWithoutInputs(t *testing.T) {
	doc := parseDoc(t, `{"7": {"class_type": "SaveImage"}}`)

	normalized := Normalize(doc)
	require.Contains(t, normalized, "7")
	assert.NotNil(t, normalized["7"].Inputs)
	assert.Empty(t, normalized["7"].Inputs)
}

func TestNormalize_Idempotent(t *testing.T) {
	doc := parseDoc(t, `{
		"nodes": [
			{"id": 10, "type": "LoadImage", "widgets_values": ["ref.png"]}
		]
	}`)

	once := Normalize(doc)

	// Round-trip the keyed form through JSON and normalize again.
	data, err := json.Marshal(once)
	require.NoError(t, err)
	twice := Normalize(parseDoc(t, string(data)))

	assert.Equal(t, once, twice)
}

func TestSortedNodeIDs_NumericOrder(t *testing.T) {
	n := Normalized{
		"10":  {},
		"2":   {},
		"137": {},
		"9":   {},
	}

	assert.Equal(t, []string{"2", "9", "10", "137"}, SortedNodeIDs(n))
}

func TestDocumentMetadata(t *testing.T) {
	doc := parseDoc(t, `{
		"3": {"class_type": "KSampler"},
		"workflow_metadata": {"name": "portrait"}
	}`)

	meta := doc.Metadata()
	require.NotNil(t, meta)
	assert.Equal(t, "portrait", meta["name"])

	assert.Empty(t, parseDoc(t, `{"3": {"class_type": "KSampler"}}`).Metadata())
}
