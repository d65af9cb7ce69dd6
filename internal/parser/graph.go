// Package parser turns Terraform state and raw graph documents into the
// resource graph the planner works on.
package parser

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/terrascope/replicaplan/internal/models"
)

// Tag keys that pin a resource to an architecture pattern. Checked in order.
var patternTags = []string{"pattern", "architecture_pattern"}

func BuildGraph(state *models.TerraformState) *models.Graph {
	graph := &models.Graph{
		Nodes: []models.Node{},
		Edges: []models.Edge{},
	}
	nodeMap := make(map[string]bool)
	byAddress := make(map[string][]string)

	type pending struct {
		source string
		deps   map[string]string
	}
	var links []pending

	for _, res := range state.Resources {
		address := res.Address()
		for i, instance := range res.Instances {
			nodeID := buildNodeID(res, instance, i)

			if nodeMap[nodeID] {
				continue
			}

			graph.Nodes = append(graph.Nodes, models.Node{
				ID:       nodeID,
				Type:     res.Type,
				Pattern:  derivePattern(res, instance),
				Mode:     res.Mode,
				Provider: extractProviderName(res.Provider),
				Module:   res.Module,
				Metadata: buildMetadata(res, instance),
			})
			nodeMap[nodeID] = true
			byAddress[address] = append(byAddress[address], nodeID)
			links = append(links, pending{
				source: nodeID,
				deps:   collectDependencies(res.DependsOn, instance.Dependencies),
			})
		}
	}

	seen := make(map[[2]string]bool)
	for _, l := range links {
		targets := make([]string, 0, len(l.deps))
		for dep := range l.deps {
			targets = append(targets, dep)
		}
		sort.Strings(targets)

		for _, dep := range targets {
			for _, target := range resolveAddress(dep, byAddress, nodeMap) {
				key := [2]string{l.source, target}
				if target == l.source || seen[key] {
					continue
				}
				seen[key] = true
				graph.Edges = append(graph.Edges, models.Edge{
					Source: l.source,
					Target: target,
					Type:   l.deps[dep],
				})
			}
		}
	}

	graph.Stats = ComputeStats(graph)
	return graph
}

// resolveAddress maps a dependency address to instance node IDs. A resource
// address fans out to every instance; "addr[key]" picks one instance. Unknown
// addresses are kept verbatim so the dependency stays visible.
func resolveAddress(dep string, byAddress map[string][]string, nodeMap map[string]bool) []string {
	if ids, ok := byAddress[dep]; ok {
		return ids
	}
	if i := strings.Index(dep, "["); i > 0 {
		key := strings.ReplaceAll(dep[i:], `"`, "")
		id := dep[:i] + "." + key
		if nodeMap[id] {
			return []string{id}
		}
	}
	return []string{dep}
}

func buildNodeID(res models.ResourceState, instance models.ResourceInstance, instanceIndex int) string {
	id := res.Address()

	if len(res.Instances) > 1 {
		key := instance.IndexKey
		if key != nil {
			val := reflect.ValueOf(key)
			if val.Kind() == reflect.Ptr && !val.IsNil() {
				val = val.Elem()
			}
			id += fmt.Sprintf(".[%v]", val.Interface())
		} else {
			id += fmt.Sprintf(".[%d]", instanceIndex)
		}
	}

	return id
}

// derivePattern prefers an explicit pattern tag, then the root module name.
// Root-module resources without a tag carry no pattern.
func derivePattern(res models.ResourceState, instance models.ResourceInstance) string {
	tags := instance.Tags()
	for _, key := range patternTags {
		if p := strings.TrimSpace(tags[key]); p != "" {
			return p
		}
	}

	parts := strings.Split(res.Module, ".")
	if len(parts) >= 2 && parts[0] == "module" {
		return parts[1]
	}
	return ""
}

func extractProviderName(providerString string) string {
	providerString = strings.TrimPrefix(providerString, "provider[\"")
	providerString = strings.TrimSuffix(providerString, "\"]")

	parts := strings.Split(providerString, "/")
	if len(parts) > 0 {
		return parts[len(parts)-1]
	}

	return providerString
}

// identityKeys never take part in configuration similarity.
var identityKeys = map[string]bool{
	"id": true, "arn": true, "name": true, "tags": true, "tags_all": true,
}

func buildMetadata(res models.ResourceState, instance models.ResourceInstance) map[string]any {
	metadata := map[string]any{
		"mode": res.Mode,
	}

	for _, key := range []string{"id", "name", "arn"} {
		if v, ok := instance.Attributes[key]; ok {
			metadata[key] = v
		}
	}

	if tags := instance.Tags(); len(tags) > 0 {
		metadata["tags"] = tags
	}

	if instance.IndexKey != nil {
		metadata["index_key"] = instance.IndexKey
	}

	config := map[string]any{}
	for k, v := range instance.Attributes {
		if identityKeys[k] || strings.HasSuffix(k, "_id") || strings.HasSuffix(k, "_arn") {
			continue
		}
		switch v.(type) {
		case string, bool, float64, int:
			config[k] = v
		}
	}
	if len(config) > 0 {
		metadata["config"] = config
	}

	return metadata
}

func collectDependencies(explicit, implicit []string) map[string]string {
	deps := make(map[string]string)

	for _, dep := range explicit {
		deps[dep] = "depends_on"
	}

	for _, dep := range implicit {
		if _, exists := deps[dep]; !exists {
			deps[dep] = "implicit"
		}
	}

	return deps
}

// ComputeStats summarises node and edge counts by type, mode and pattern.
func ComputeStats(graph *models.Graph) *models.Stats {
	stats := &models.Stats{
		TotalNodes:         len(graph.Nodes),
		TotalEdges:         len(graph.Edges),
		ResourcesByType:    map[string]int{},
		ResourcesByMode:    map[string]int{},
		ResourcesByPattern: map[string]int{},
	}

	for _, n := range graph.Nodes {
		stats.ResourcesByType[n.Type]++
		if n.Mode != "" {
			stats.ResourcesByMode[n.Mode]++
		}
		if n.Pattern != "" {
			stats.ResourcesByPattern[n.Pattern]++
		}
	}

	return stats
}
