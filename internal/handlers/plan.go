package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/terrascope/replicaplan/internal/parser"
	"github.com/terrascope/replicaplan/internal/planner"
)

// PlanRequest carries the source as either a resource graph or a raw
// Terraform state, plus option overrides applied over the server defaults.
type PlanRequest struct {
	Graph   json.RawMessage `json:"graph,omitempty"`
	Tfstate json.RawMessage `json:"tfstate,omitempty"`
	Options json.RawMessage `json:"options,omitempty"`
}

func (a *API) Plan(w http.ResponseWriter, r *http.Request) {
	body, ok := a.readBody(w, r)
	if !ok {
		return
	}

	var req PlanRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "Invalid request: "+err.Error(), http.StatusBadRequest)
		return
	}

	var input []byte
	switch {
	case len(req.Graph) > 0 && len(req.Tfstate) > 0:
		http.Error(w, "Invalid request: provide either graph or tfstate, not both", http.StatusBadRequest)
		return
	case len(req.Graph) > 0:
		input = req.Graph
	case len(req.Tfstate) > 0:
		input = req.Tfstate
	default:
		http.Error(w, "Invalid request: graph or tfstate is required", http.StatusBadRequest)
		return
	}

	source, err := parser.LoadGraph(input)
	if err != nil {
		http.Error(w, "Invalid input: "+err.Error(), http.StatusBadRequest)
		return
	}

	opts := a.defaults
	if len(req.Options) > 0 {
		if err := json.Unmarshal(req.Options, &opts); err != nil {
			http.Error(w, "Invalid options: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	plan, err := a.planner.GenerateReplicationPlan(r.Context(), source, opts)
	if err != nil {
		if errors.Is(err, planner.ErrInvalidConfig) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		a.logger.Error("plan generation failed", slog.Any("error", err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	a.writeJSON(w, r, http.StatusOK, plan)
}
