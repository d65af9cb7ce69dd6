// Package models defines the data structures shared by the parser, the
// planning core and the HTTP layer: resource graphs, Terraform state and
// replication plans.
package models

// UnassignedPattern groups nodes without a pattern label when the rest of the
// graph carries pattern labels.
const UnassignedPattern = "_unassigned"

type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
	Stats *Stats `json:"stats,omitempty"`
}

// Node is one resource instance of the source tenant. Pattern is empty when
// the resource does not belong to any architecture pattern.
type Node struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Pattern  string         `json:"pattern,omitempty"`
	Mode     string         `json:"mode,omitempty"`
	Provider string         `json:"provider,omitempty"`
	Module   string         `json:"module,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type,omitempty"`
}

type Stats struct {
	TotalNodes         int            `json:"total_nodes"`
	TotalEdges         int            `json:"total_edges"`
	ResourcesByType    map[string]int `json:"resources_by_type,omitempty"`
	ResourcesByMode    map[string]int `json:"resources_by_mode,omitempty"`
	ResourcesByPattern map[string]int `json:"resources_by_pattern,omitempty"`
}
