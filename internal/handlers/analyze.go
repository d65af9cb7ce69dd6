package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/terrascope/replicaplan/internal/models"
	"github.com/terrascope/replicaplan/internal/parser"
)

type AnalyzeResponse struct {
	Target   int                          `json:"target"`
	Stats    *models.Stats                `json:"stats,omitempty"`
	Patterns []models.ArchitecturePattern `json:"patterns"`
}

// Analyze reports the pattern distribution of a graph or Terraform state
// and, with ?target=N, how N instances would be split across patterns.
func (a *API) Analyze(w http.ResponseWriter, r *http.Request) {
	body, ok := a.readBody(w, r)
	if !ok {
		return
	}

	target := a.defaults.TargetSize
	if raw := r.URL.Query().Get("target"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, "Invalid target: must be a non-negative integer", http.StatusBadRequest)
			return
		}
		target = n
	}

	graph, err := parser.LoadGraph(body)
	if err != nil {
		http.Error(w, "Invalid input: "+err.Error(), http.StatusBadRequest)
		return
	}

	patterns, err := a.planner.Analyze(graph, target, a.defaults.CandidateMode)
	if err != nil {
		a.logger.Error("analyze failed", slog.Any("error", err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if patterns == nil {
		patterns = []models.ArchitecturePattern{}
	}

	a.writeJSON(w, r, http.StatusOK, AnalyzeResponse{
		Target:   target,
		Stats:    graph.Stats,
		Patterns: patterns,
	})
}
