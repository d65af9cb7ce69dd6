package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terrascope/replicaplan/internal/models"
	"github.com/terrascope/replicaplan/internal/planner"
)

const emptyTfstate = `{
	"version": 4,
	"terraform_version": "1.5.0",
	"serial": 1,
	"lineage": "abc-123",
	"resources": []
}`

// moduleTfstate has a web module with a counted instance behind a load
// balancer, and a root vpc they depend on.
const moduleTfstate = `{
	"version": 4,
	"terraform_version": "1.6.2",
	"serial": 7,
	"lineage": "def-456",
	"resources": [
		{
			"mode": "managed",
			"type": "aws_vpc",
			"name": "main",
			"provider": "provider[\"registry.terraform.io/hashicorp/aws\"]",
			"instances": [{"schema_version": 1, "attributes": {"id": "vpc-1", "cidr_block": "10.0.0.0/16"}}]
		},
		{
			"module": "module.web",
			"mode": "managed",
			"type": "aws_instance",
			"name": "app",
			"provider": "provider[\"registry.terraform.io/hashicorp/aws\"]",
			"instances": [
				{"index_key": 0, "schema_version": 1, "attributes": {"id": "i-0", "instance_type": "t3.small"}, "dependencies": ["aws_vpc.main"]},
				{"index_key": 1, "schema_version": 1, "attributes": {"id": "i-1", "instance_type": "t3.small"}, "dependencies": ["aws_vpc.main"]}
			]
		},
		{
			"module": "module.web",
			"mode": "managed",
			"type": "aws_lb",
			"name": "front",
			"provider": "provider[\"registry.terraform.io/hashicorp/aws\"]",
			"instances": [{"schema_version": 0, "attributes": {"id": "lb-1"}, "dependencies": ["module.web.aws_instance.app"]}]
		}
	]
}`

func testAPI() *API {
	opts := planner.DefaultOptions()
	opts.TargetSize = 2
	return NewAPI(opts, 1<<20, nil)
}

func post(h http.HandlerFunc, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

func TestParse(t *testing.T) {
	api := testAPI()

	t.Run("empty state gives an empty graph", func(t *testing.T) {
		w := post(api.Parse, "/parse", emptyTfstate)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		var graph models.Graph
		require.NoError(t, json.NewDecoder(w.Body).Decode(&graph))
		assert.Empty(t, graph.Nodes)
		assert.Empty(t, graph.Edges)
	})

	t.Run("labels module resources with their pattern", func(t *testing.T) {
		w := post(api.Parse, "/parse", moduleTfstate)

		require.Equal(t, http.StatusOK, w.Code)
		var graph models.Graph
		require.NoError(t, json.NewDecoder(w.Body).Decode(&graph))

		patterns := map[string]string{}
		for _, n := range graph.Nodes {
			patterns[n.ID] = n.Pattern
		}
		assert.Len(t, graph.Nodes, 4)
		assert.Equal(t, "web", patterns["module.web.aws_lb.front"])
		assert.Equal(t, "", patterns["aws_vpc.main"])
		require.NotNil(t, graph.Stats)
		assert.Equal(t, 3, graph.Stats.ResourcesByPattern["web"])
	})

	t.Run("dependencies fan out to every instance", func(t *testing.T) {
		w := post(api.Parse, "/parse", moduleTfstate)

		var graph models.Graph
		require.NoError(t, json.NewDecoder(w.Body).Decode(&graph))
		fromLB := 0
		for _, e := range graph.Edges {
			if e.Source == "module.web.aws_lb.front" {
				fromLB++
			}
		}
		assert.Equal(t, 2, fromLB)
	})

	t.Run("pretty output is indented", func(t *testing.T) {
		w := post(api.Parse, "/parse?pretty=true", emptyTfstate)

		assert.Contains(t, w.Body.String(), "\n  \"nodes\"")
	})

	t.Run("rejects invalid state", func(t *testing.T) {
		tests := []struct {
			name string
			body string
		}{
			{"invalid json", `{not json`},
			{"empty body", ``},
			{"missing version", `{"terraform_version": "1.5.0", "resources": []}`},
			{"binary", "\x00\x01\x02"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				w := post(api.Parse, "/parse", tt.body)

				assert.Equal(t, http.StatusBadRequest, w.Code)
				assert.Contains(t, w.Body.String(), "Invalid tfstate")
			})
		}
	})

	t.Run("rejects non POST methods", func(t *testing.T) {
		for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
			req := httptest.NewRequest(method, "/parse", nil)
			w := httptest.NewRecorder()

			api.Parse(w, req)

			assert.Equal(t, http.StatusMethodNotAllowed, w.Code, method)
		}
	})

	t.Run("rejects oversized bodies", func(t *testing.T) {
		small := NewAPI(planner.DefaultOptions(), 16, nil)
		req := httptest.NewRequest(http.MethodPost, "/parse", bytes.NewReader(bytes.Repeat([]byte(" "), 64)))
		w := httptest.NewRecorder()

		small.Parse(w, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})
}
