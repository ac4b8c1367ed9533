package workflow

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/comfygate/comfy-gateway/internal/utils/hashutil"
	"github.com/comfygate/comfy-gateway/internal/utils/jsonutil"

	"go.uber.org/zap"
)

var ErrTemplateCorrupt = errors.New("template corrupt after placeholder substitution")

// Params carries the caller-supplied values a template is rewritten with.
type Params struct {
	JobID    string
	FileName string
	Prompt   string
}

// Injector rewrites a template with caller parameters. Implementations are
// pure: the input document is never mutated, a rewritten deep copy is
// returned. The two strategies correspond to the two template families in
// storage and are chosen per template, not merged.
type Injector interface {
	Inject(doc Document, params Params) (Document, error)
}

// Placeholder tokens recognized by PlaceholderInjector.
const (
	TokenReferenceImage = "{reference_image}"
	TokenUserPrompt     = "{user_prompt}"
	TokenTimestamp      = "{timestamp}"
)

// NodeInjector locates nodes by id in an editor-style export and overwrites
// the first widget value of the image-loader and prompt nodes.
type NodeInjector struct {
	ImageNodeID  int
	PromptNodeID int

	logger *zap.Logger
}

func NewNodeInjector(imageNodeID, promptNodeID int, logger *zap.Logger) *NodeInjector {
	return &NodeInjector{
		ImageNodeID:  imageNodeID,
		PromptNodeID: promptNodeID,
		logger:       logger,
	}
}

func (i *NodeInjector) Inject(doc Document, params Params) (Document, error) {
	copied, err := deepCopy(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to copy template: %w", err)
	}

	i.setFirstWidgetValue(copied, i.ImageNodeID, params.FileName, "image loader")
	i.setFirstWidgetValue(copied, i.PromptNodeID, params.Prompt, "prompt")

	return copied, nil
}

// setFirstWidgetValue overwrites widgets_values[0] of the node with the given
// id. A missing node or widget list is a warning, not an error: the template
// simply does not take that parameter.
func (i *NodeInjector) setFirstWidgetValue(doc Document, nodeID int, value string, role string) {
	nodes, ok := doc["nodes"].([]any)
	if !ok {
		i.logger.Warn("template has no nodes array", zap.String("role", role))
		return
	}

	for _, raw := range nodes {
		node, ok := raw.(map[string]any)
		if !ok || !nodeIDEquals(node["id"], nodeID) {
			continue
		}

		widgets, ok := node["widgets_values"].([]any)
		if !ok || len(widgets) == 0 {
			i.logger.Warn("node has no widgets_values",
				zap.Int("node_id", nodeID), zap.String("role", role))
			return
		}

		widgets[0] = value
		return
	}

	i.logger.Warn("node not found in template",
		zap.Int("node_id", nodeID), zap.String("role", role))
}

func nodeIDEquals(raw any, id int) bool {
	switch v := raw.(type) {
	case float64:
		return int(v) == id
	case string:
		return v == strconv.Itoa(id)
	}
	return false
}

// PlaceholderInjector serializes the whole template and substitutes bracketed
// tokens literally, then parses the result back. Values are JSON-escaped so a
// prompt containing quotes cannot break the document.
type PlaceholderInjector struct{}

func NewPlaceholderInjector() *PlaceholderInjector {
	return &PlaceholderInjector{}
}

func (i *PlaceholderInjector) Inject(doc Document, params Params) (Document, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize template: %w", err)
	}

	text := string(data)
	text = strings.ReplaceAll(text, TokenReferenceImage, jsonEscape(params.FileName))
	text = strings.ReplaceAll(text, TokenUserPrompt, jsonEscape(params.Prompt))
	text = strings.ReplaceAll(text, TokenTimestamp, hashutil.ShortHash(params.JobID))

	var result Document
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplateCorrupt, err)
	}

	return result, nil
}

func jsonEscape(s string) string {
	encoded, err := json.Marshal(s)
	if err != nil {
		return s
	}

	// Strip surrounding quotes; tokens sit inside JSON string literals.
	return string(encoded[1 : len(encoded)-1])
}

func deepCopy(doc Document) (Document, error) {
	copied, err := jsonutil.DeepCopy(doc)
	if err != nil {
		return nil, err
	}

	return Document(copied), nil
}
