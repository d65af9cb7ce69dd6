// Package parser turns Terraform state and raw graph documents into the
// resource graph the planner works on.
package parser

import (
	"encoding/json"
	"fmt"

	"github.com/terrascope/replicaplan/internal/models"
)

func ParseTfstate(data []byte) (*models.TerraformState, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty tfstate data")
	}

	var state models.TerraformState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tfstate: %w", err)
	}

	if state.Version == 0 {
		return nil, fmt.Errorf("invalid tfstate: missing version field")
	}

	if state.TerraformVersion == "" {
		return nil, fmt.Errorf("invalid tfstate: missing terraform_version field")
	}

	return &state, nil
}

// ParseGraph decodes a raw graph document. Node IDs must be present and
// unique; edges may reference unknown nodes.
func ParseGraph(data []byte) (*models.Graph, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty graph data")
	}

	var graph models.Graph
	if err := json.Unmarshal(data, &graph); err != nil {
		return nil, fmt.Errorf("failed to unmarshal graph: %w", err)
	}

	seen := make(map[string]bool, len(graph.Nodes))
	for i, n := range graph.Nodes {
		if n.ID == "" {
			return nil, fmt.Errorf("invalid graph: node %d has no id", i)
		}
		if seen[n.ID] {
			return nil, fmt.Errorf("invalid graph: duplicate node id %q", n.ID)
		}
		seen[n.ID] = true
	}
	if graph.Nodes == nil {
		graph.Nodes = []models.Node{}
	}
	if graph.Edges == nil {
		graph.Edges = []models.Edge{}
	}

	graph.Stats = ComputeStats(&graph)
	return &graph, nil
}

// LoadGraph accepts either a Terraform state or a raw graph document and
// returns the resource graph.
func LoadGraph(data []byte) (*models.Graph, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty input")
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("failed to unmarshal input: %w", err)
	}

	if _, ok := probe["terraform_version"]; ok {
		state, err := ParseTfstate(data)
		if err != nil {
			return nil, err
		}
		return BuildGraph(state), nil
	}

	return ParseGraph(data)
}
