// Package selection implements the strategies that pick which candidate
// instances make up a replication target.
package selection

import (
	"context"
	"errors"
	"log/slog"

	"github.com/terrascope/replicaplan/internal/graph"
	"github.com/terrascope/replicaplan/internal/models"
	"github.com/terrascope/replicaplan/internal/spectral"
)

const defaultCacheSize = 1024

var ErrNoPatterns = errors.New("graph has no architecture patterns")

// Strategy selects up to Input.Target candidates. Implementations never
// return the same candidate twice and never modify their input.
type Strategy interface {
	Name() string
	Select(ctx context.Context, in Input) (Result, error)
}

// Input is everything a strategy needs for one run.
type Input struct {
	Source     *graph.Model
	Candidates []models.CandidateInstance
	Target     int
	// Allocations is the per-pattern instance budget. Only the proportional
	// strategy uses it.
	Allocations map[string]int
	// Calculator is the run's spectral distance cache. A nil Calculator
	// gets a fresh one.
	Calculator *spectral.Calculator
	Logger     *slog.Logger
}

func (in Input) calculator() *spectral.Calculator {
	if in.Calculator != nil {
		return in.Calculator
	}
	return spectral.NewCalculator(defaultCacheSize, in.Logger)
}

func (in Input) logger(strategy string) *slog.Logger {
	l := in.Logger
	if l == nil {
		l = slog.Default()
	}
	return l.With(slog.String("component", "selection"), slog.String("strategy", strategy))
}

type Result struct {
	Instances []models.SelectedInstance
	// Truncated is set when a caller budget (context or round limit) ended
	// the run before the target was reached.
	Truncated bool
	Warnings  []string
}

// state is the mutable selection state of one strategy invocation.
type state struct {
	src      *graph.Model
	builder  *graph.Builder
	selected []models.SelectedInstance
	chosen   map[string]bool
	covered  map[string]int
}

func newState(src *graph.Model) *state {
	return &state{
		src:     src,
		builder: graph.NewBuilder(src),
		chosen:  map[string]bool{},
		covered: map[string]int{},
	}
}

func (s *state) add(c models.CandidateInstance, boost, score float64) {
	for _, id := range c.Nodes {
		if s.builder.Contains(id) {
			continue
		}
		if s.builder.Add(id) == 1 {
			if n, ok := s.src.Node(id); ok && n.Type != "" {
				s.covered[n.Type]++
			}
		}
	}
	s.chosen[c.ID] = true
	s.selected = append(s.selected, models.SelectedInstance{
		ID:      c.ID,
		Pattern: c.Pattern,
		Nodes:   c.Nodes,
		Types:   c.Types,
		Rank:    len(s.selected),
		Boost:   boost,
		Score:   score,
	})
}

// covers reports whether the target already holds a node of type t. Safe for
// concurrent use while no add is running.
func (s *state) covers(t string) bool { return s.covered[t] > 0 }

// unchosen returns the candidates not yet selected, first occurrence of
// each ID only, in input order.
func (s *state) unchosen(cs []models.CandidateInstance) []models.CandidateInstance {
	out := make([]models.CandidateInstance, 0, len(cs))
	seen := map[string]bool{}
	for _, c := range cs {
		if s.chosen[c.ID] || seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		out = append(out, c)
	}
	return out
}

func (s *state) result(truncated bool, warnings []string) Result {
	return Result{Instances: s.selected, Truncated: truncated, Warnings: warnings}
}
