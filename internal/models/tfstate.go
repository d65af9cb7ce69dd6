// Package models defines the data structures shared by the parser, the
// planning core and the HTTP layer: resource graphs, Terraform state and
// replication plans.
package models

import "strings"

type TerraformState struct {
	Version          int               `json:"version"`
	TerraformVersion string            `json:"terraform_version"`
	Serial           int               `json:"serial"`
	Lineage          string            `json:"lineage"`
	Outputs          map[string]Output `json:"outputs,omitempty"`
	Resources        []ResourceState   `json:"resources"`
}

type Output struct {
	Value     any  `json:"value"`
	Type      any  `json:"type"`
	Sensitive bool `json:"sensitive,omitempty"`
}

type ResourceState struct {
	Mode      string             `json:"mode"`
	Type      string             `json:"type"`
	Name      string             `json:"name"`
	Provider  string             `json:"provider"`
	Module    string             `json:"module,omitempty"`
	Instances []ResourceInstance `json:"instances"`
	DependsOn []string           `json:"depends_on,omitempty"`
}

// Address is the resource address dependencies refer to, e.g.
// "module.app.aws_instance.web" or "data.aws_ami.ubuntu".
func (r ResourceState) Address() string {
	parts := []string{}
	if r.Module != "" {
		parts = append(parts, r.Module)
	}
	if r.Mode == "data" {
		parts = append(parts, "data")
	}
	parts = append(parts, r.Type, r.Name)
	return strings.Join(parts, ".")
}

type ResourceInstance struct {
	SchemaVersion  int               `json:"schema_version"`
	Attributes     map[string]any    `json:"attributes"`
	AttributesFlat map[string]string `json:"attributes_flat,omitempty"`
	Private        string            `json:"private,omitempty"`
	Dependencies   []string          `json:"dependencies,omitempty"`
	IndexKey       any               `json:"index_key,omitempty"`
}

// Tags merges "tags_all" and "tags" (the latter wins) into string values.
// Non-string tag values are skipped.
func (i ResourceInstance) Tags() map[string]string {
	out := map[string]string{}
	for _, key := range []string{"tags_all", "tags"} {
		raw, ok := i.Attributes[key].(map[string]any)
		if !ok {
			continue
		}
		for k, v := range raw {
			if s, ok := v.(string); ok {
				out[k] = s
			}
		}
	}
	return out
}
