// Package models defines the data structures shared by the parser, the
// planning core and the HTTP layer: resource graphs, Terraform state and
// replication plans.
package models

// ArchitecturePattern is the per-run view of one pattern: its members, the
// four structural metrics behind its distribution score and the number of
// instances allocated to it.
type ArchitecturePattern struct {
	ID                string   `json:"id"`
	NodeIDs           []string `json:"node_ids,omitempty"`
	Share             float64  `json:"share"`
	Cohesion          float64  `json:"cohesion"`
	Diversity         float64  `json:"diversity"`
	Coupling          float64  `json:"coupling"`
	DistributionScore float64  `json:"distribution_score"`
	TargetAllocation  int      `json:"target_allocation"`
}

// CandidateInstance is a unit eligible for selection: a single node, or a
// connected cluster of nodes from the same pattern. ID is the first member
// node ID in sorted order.
type CandidateInstance struct {
	ID      string   `json:"id"`
	Pattern string   `json:"pattern,omitempty"`
	Nodes   []string `json:"nodes"`
	Types   []string `json:"types"`
}

// SelectedInstance records why an instance is in the plan.
type SelectedInstance struct {
	ID      string   `json:"id"`
	Pattern string   `json:"pattern,omitempty"`
	Nodes   []string `json:"nodes"`
	Types   []string `json:"types"`
	Rank    int      `json:"rank"`
	Boost   float64  `json:"boost,omitempty"`
	Score   float64  `json:"score,omitempty"`
}

type CoverageStats struct {
	SourceTypes  int      `json:"source_types"`
	CoveredTypes int      `json:"covered_types"`
	Ratio        float64  `json:"ratio"`
	MissingTypes []string `json:"missing_types,omitempty"`
}

type PlanValidation struct {
	NoDuplicates  bool `json:"no_duplicates"`
	AllocationSum int  `json:"allocation_sum"`
	CandidatePool int  `json:"candidate_pool"`
	SelectedNodes int  `json:"selected_nodes"`
}

// ReplicationPlan is the output of a planning run. Selected is ordered: earlier
// entries were judged higher priority.
type ReplicationPlan struct {
	ID                 string             `json:"id"`
	Strategy           string             `json:"strategy"`
	SamplingStrategy   string             `json:"sampling_strategy,omitempty"`
	TargetSize         int                `json:"target_size"`
	Selected           []string           `json:"selected"`
	Instances          []SelectedInstance `json:"instances"`
	PatternAllocations map[string]int     `json:"pattern_allocations,omitempty"`
	PatternCounts      map[string]int     `json:"pattern_counts,omitempty"`
	SpectralDistance   float64            `json:"spectral_distance"`
	Quality            string             `json:"quality"`
	Coverage           CoverageStats      `json:"coverage"`
	Validation         PlanValidation     `json:"validation"`
	Truncated          bool               `json:"truncated,omitempty"`
	Warnings           []string           `json:"warnings,omitempty"`
}

// NodeIDs flattens the selected instances into the node IDs to materialise.
func (p *ReplicationPlan) NodeIDs() []string {
	var out []string
	for _, inst := range p.Instances {
		out = append(out, inst.Nodes...)
	}
	return out
}
