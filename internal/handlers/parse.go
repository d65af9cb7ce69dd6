package handlers

import (
	"net/http"

	"github.com/terrascope/replicaplan/internal/parser"
)

// Parse turns a Terraform state into the resource graph the planner works
// on, with pattern labels and stats.
func (a *API) Parse(w http.ResponseWriter, r *http.Request) {
	body, ok := a.readBody(w, r)
	if !ok {
		return
	}

	state, err := parser.ParseTfstate(body)
	if err != nil {
		http.Error(w, "Invalid tfstate: "+err.Error(), http.StatusBadRequest)
		return
	}

	a.writeJSON(w, r, http.StatusOK, parser.BuildGraph(state))
}
