package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/terrascope/replicaplan/internal/planner"
)

// API holds what the planning endpoints share: the planner, the options
// requests start from and the request body limit.
type API struct {
	planner  *planner.Planner
	defaults planner.Options
	maxBody  int64
	logger   *slog.Logger
}

// NewAPI returns handlers planning with defaults unless a request overrides
// them. maxBody <= 0 leaves request bodies unbounded.
func NewAPI(defaults planner.Options, maxBody int64, logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.Default()
	}
	return &API{
		planner:  planner.New(logger),
		defaults: defaults,
		maxBody:  maxBody,
		logger:   logger.With(slog.String("component", "http")),
	}
}

// readBody enforces POST and the body limit. It writes the error response
// itself and reports whether the handler should go on.
func (a *API) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return nil, false
	}
	defer r.Body.Close()

	reader := io.Reader(r.Body)
	if a.maxBody > 0 {
		reader = http.MaxBytesReader(w, r.Body, a.maxBody)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
			return nil, false
		}
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return nil, false
	}
	return body, true
}

// writeJSON encodes v with status, indented when ?pretty=true.
func (a *API) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	encoder := json.NewEncoder(w)
	if r.URL.Query().Get("pretty") == "true" {
		encoder.SetIndent("", "  ")
	}
	if err := encoder.Encode(v); err != nil {
		a.logger.Error("encoding response", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
}
