package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTerraformStateUnmarshal(t *testing.T) {
	jsonData := `{
		"version": 4,
		"terraform_version": "1.5.0",
		"serial": 1,
		"lineage": "abc-123",
		"resources": [
			{
				"mode": "managed",
				"type": "aws_instance",
				"name": "web",
				"module": "module.app",
				"depends_on": ["module.app.aws_security_group.web"],
				"instances": [
					{"attributes": {"id": "i-1"}, "index_key": 0},
					{"attributes": {"id": "i-2"}, "index_key": 1}
				]
			}
		]
	}`

	var state TerraformState
	err := json.Unmarshal([]byte(jsonData), &state)

	require.NoError(t, err)
	require.Len(t, state.Resources, 1)
	assert.Len(t, state.Resources[0].Instances, 2)
	assert.Equal(t, []string{"module.app.aws_security_group.web"}, state.Resources[0].DependsOn)
}

func TestResourceStateAddress(t *testing.T) {
	tests := []struct {
		name     string
		res      ResourceState
		expected string
	}{
		{
			name:     "root managed resource",
			res:      ResourceState{Mode: "managed", Type: "aws_vpc", Name: "main"},
			expected: "aws_vpc.main",
		},
		{
			name:     "module resource",
			res:      ResourceState{Mode: "managed", Type: "aws_instance", Name: "web", Module: "module.app"},
			expected: "module.app.aws_instance.web",
		},
		{
			name:     "data source",
			res:      ResourceState{Mode: "data", Type: "aws_ami", Name: "ubuntu"},
			expected: "data.aws_ami.ubuntu",
		},
		{
			name:     "data source in module",
			res:      ResourceState{Mode: "data", Type: "aws_ami", Name: "ubuntu", Module: "module.app"},
			expected: "module.app.data.aws_ami.ubuntu",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.res.Address())
		})
	}
}

func TestResourceInstanceTags(t *testing.T) {
	t.Run("tags override tags_all", func(t *testing.T) {
		inst := ResourceInstance{
			Attributes: map[string]any{
				"tags_all": map[string]any{"pattern": "inherited", "Owner": "platform"},
				"tags":     map[string]any{"pattern": "web"},
			},
		}

		tags := inst.Tags()

		assert.Equal(t, "web", tags["pattern"])
		assert.Equal(t, "platform", tags["Owner"])
	})

	t.Run("non string values are skipped", func(t *testing.T) {
		inst := ResourceInstance{
			Attributes: map[string]any{
				"tags": map[string]any{"count": 3, "Name": "api"},
			},
		}

		tags := inst.Tags()

		assert.Equal(t, map[string]string{"Name": "api"}, tags)
	})

	t.Run("missing tags yield empty map", func(t *testing.T) {
		inst := ResourceInstance{Attributes: map[string]any{"id": "x"}}

		assert.Empty(t, inst.Tags())
	})
}
