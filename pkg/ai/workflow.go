package ai

import (
	"encoding/json"
	"fmt"
	"os"
)

// Workflow is a parameterized generation graph in the video engine's API
// format: a map of node id to node. The graph is opaque to this service
// except for the node inputs it patches per request.
type Workflow map[string]map[string]any

// LoadWorkflow reads and parses a workflow template from disk.
func LoadWorkflow(path string) (Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workflow template: %w", err)
	}
	var wf Workflow
	if err := json.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("parse workflow template: %w", err)
	}
	if len(wf) == 0 {
		return nil, fmt.Errorf("workflow template %s has no nodes", path)
	}
	return wf, nil
}

// Clone deep-copies the workflow so the loaded template is never mutated.
func (w Workflow) Clone() (Workflow, error) {
	data, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("clone workflow: %w", err)
	}
	var copied Workflow
	if err := json.Unmarshal(data, &copied); err != nil {
		return nil, fmt.Errorf("clone workflow: %w", err)
	}
	return copied, nil
}

// SetNodeInput patches one input value on the addressed node.
func (w Workflow) SetNodeInput(nodeID, input string, value any) error {
	node, ok := w[nodeID]
	if !ok {
		return fmt.Errorf("workflow node %q not found", nodeID)
	}
	inputs, ok := node["inputs"].(map[string]any)
	if !ok {
		return fmt.Errorf("workflow node %q has no inputs", nodeID)
	}
	inputs[input] = value
	return nil
}
