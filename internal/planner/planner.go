// Package planner chooses which instances of a source resource graph to
// replicate into a bounded-size target. It ties together the graph model,
// pattern distribution, selection strategies and spectral quality check.
package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/terrascope/replicaplan/internal/distribution"
	"github.com/terrascope/replicaplan/internal/graph"
	"github.com/terrascope/replicaplan/internal/metrics"
	"github.com/terrascope/replicaplan/internal/models"
	"github.com/terrascope/replicaplan/internal/selection"
	"github.com/terrascope/replicaplan/internal/spectral"
)

// planNamespace scopes plan IDs; any fixed UUID works.
var planNamespace = uuid.MustParse("6f1c2a4e-5b8d-4c1e-9a7f-2d3b4c5e6f70")

type Planner struct {
	logger *slog.Logger
}

// New returns a planner logging to logger, or to slog.Default when nil.
func New(logger *slog.Logger) *Planner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Planner{logger: logger.With(slog.String("component", "planner"))}
}

// GenerateReplicationPlan plans with a default planner.
func GenerateReplicationPlan(ctx context.Context, source *models.Graph, opts Options) (*models.ReplicationPlan, error) {
	return New(nil).GenerateReplicationPlan(ctx, source, opts)
}

// GenerateReplicationPlan selects up to opts.TargetSize instances of source.
// Only invalid options are errors: empty graphs, empty candidate pools and
// non-positive targets produce an empty plan with a warning. A cancelled ctx
// or round limit yields the partial plan marked Truncated. source is never
// modified.
func (p *Planner) GenerateReplicationPlan(ctx context.Context, source *models.Graph, opts Options) (*models.ReplicationPlan, error) {
	if err := opts.Validate(); err != nil {
		metrics.PlansTotal.WithLabelValues("none", "invalid").Inc()
		return nil, err
	}

	start := time.Now()
	m := graph.New(source)
	plan := &models.ReplicationPlan{
		Strategy:   "none",
		TargetSize: opts.TargetSize,
		Selected:   []string{},
		Instances:  []models.SelectedInstance{},
	}

	cands, err := graph.Candidates(m, graph.CandidateMode(opts.CandidateMode))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	switch {
	case m.Len() == 0:
		plan.Warnings = append(plan.Warnings, "source graph is empty")
	case opts.TargetSize <= 0:
		plan.Warnings = append(plan.Warnings, fmt.Sprintf("target size %d selects nothing", opts.TargetSize))
	case len(cands) == 0:
		plan.Warnings = append(plan.Warnings, "no candidate instances")
	}
	if len(plan.Warnings) > 0 {
		p.logger.Warn("degenerate planning input", slog.String("reason", plan.Warnings[0]))
		p.finish(plan, m, cands, opts, nil, p.newCalculator(opts), start, "empty")
		return plan, nil
	}

	strategy, alloc := p.strategy(m, cands, opts, plan)
	calc := p.newCalculator(opts)

	log := p.logger.With(slog.String("strategy", strategy.Name()))
	log.Info("planning started",
		slog.Int("nodes", m.Len()),
		slog.Int("edges", m.EdgeCount()),
		slog.Int("candidates", len(cands)),
		slog.Int("target", opts.TargetSize))

	res, err := strategy.Select(ctx, selection.Input{
		Source:      m,
		Candidates:  cands,
		Target:      opts.TargetSize,
		Allocations: alloc,
		Calculator:  calc,
		Logger:      p.logger,
	})
	if err != nil {
		metrics.PlansTotal.WithLabelValues(strategy.Name(), "error").Inc()
		return nil, fmt.Errorf("%s selection: %w", strategy.Name(), err)
	}

	plan.Instances = res.Instances
	plan.Truncated = res.Truncated
	plan.Warnings = append(plan.Warnings, res.Warnings...)

	result := "ok"
	if res.Truncated {
		result = "truncated"
	}
	p.finish(plan, m, cands, opts, alloc, calc, start, result)

	log.Info("planning finished",
		slog.String("plan_id", plan.ID),
		slog.Int("selected", len(plan.Selected)),
		slog.Float64("spectral_distance", plan.SpectralDistance),
		slog.String("quality", plan.Quality),
		slog.Float64("coverage", plan.Coverage.Ratio),
		slog.Duration("elapsed", time.Since(start)))
	return plan, nil
}

// strategy picks proportional selection when distribution data is wanted and
// available, greedy otherwise. The returned allocations are capped by the
// candidates each pattern actually has.
func (p *Planner) strategy(m *graph.Model, cands []models.CandidateInstance, opts Options, plan *models.ReplicationPlan) (selection.Strategy, map[string]int) {
	greedy := selection.Greedy{
		NodeCoverageWeight: opts.NodeCoverageWeight,
		Workers:            opts.Workers,
		MaxRounds:          opts.MaxRounds,
	}

	if !opts.UseArchitectureDistribution {
		plan.Strategy = greedy.Name()
		return greedy, nil
	}
	if !m.HasPatterns() {
		msg := "graph has no architecture pattern labels; using greedy selection"
		p.logger.Warn(msg)
		plan.Warnings = append(plan.Warnings, msg)
		plan.Strategy = greedy.Name()
		return greedy, nil
	}

	_, alloc := allocate(m, cands, opts.TargetSize)

	prop := selection.Proportional{
		Sampling:       selection.Sampling(opts.SamplingStrategy),
		SpectralWeight: opts.SpectralWeight,
		RareBoost:      opts.RareBoostFactor,
		PoolFactor:     opts.PoolFactor,
		Seed:           opts.Seed,
	}
	plan.Strategy = prop.Name()
	plan.SamplingStrategy = opts.SamplingStrategy
	plan.PatternAllocations = alloc
	return prop, alloc
}

func (p *Planner) newCalculator(opts Options) *spectral.Calculator {
	return spectral.NewCalculator(opts.SpectralCacheSize, p.logger)
}

// finish fills the derived plan fields and records metrics.
func (p *Planner) finish(
	plan *models.ReplicationPlan,
	m *graph.Model,
	cands []models.CandidateInstance,
	opts Options,
	alloc map[string]int,
	calc *spectral.Calculator,
	start time.Time,
	result string,
) {
	seen := map[string]bool{}
	noDup := true
	for _, inst := range plan.Instances {
		if seen[inst.ID] {
			noDup = false
		}
		seen[inst.ID] = true
		plan.Selected = append(plan.Selected, inst.ID)
		if inst.Pattern != "" {
			if plan.PatternCounts == nil {
				plan.PatternCounts = map[string]int{}
			}
			plan.PatternCounts[inst.Pattern]++
		}
	}

	nodeIDs := plan.NodeIDs()
	target := m.Subgraph(nodeIDs)
	plan.SpectralDistance = calc.Distance(m, target)
	plan.Quality = spectral.Quality(plan.SpectralDistance)
	plan.Coverage = coverage(m, target)
	plan.Validation = models.PlanValidation{
		NoDuplicates:  noDup,
		AllocationSum: distribution.Total(alloc),
		CandidatePool: len(cands),
		SelectedNodes: target.Len(),
	}
	plan.ID = planID(m, opts, plan.Selected)

	metrics.PlansTotal.WithLabelValues(plan.Strategy, result).Inc()
	metrics.PlanDuration.WithLabelValues(plan.Strategy).Observe(time.Since(start).Seconds())
	if result != "empty" {
		metrics.PlanSpectralDistance.Observe(plan.SpectralDistance)
		metrics.PlanCoverageRatio.Observe(plan.Coverage.Ratio)
	}
}

func coverage(source, target *graph.Model) models.CoverageStats {
	covered := target.TypeCounts()
	stats := models.CoverageStats{SourceTypes: len(source.Types())}
	for _, t := range source.Types() {
		if covered[t] > 0 {
			stats.CoveredTypes++
		} else {
			stats.MissingTypes = append(stats.MissingTypes, t)
		}
	}
	if stats.SourceTypes > 0 {
		stats.Ratio = float64(stats.CoveredTypes) / float64(stats.SourceTypes)
	}
	return stats
}

// planID derives a UUIDv5 from the source structure, the options and the
// selection, so identical runs share an ID.
func planID(m *graph.Model, opts Options, selected []string) string {
	key, _ := json.Marshal(struct {
		Fingerprint uint64   `json:"fingerprint"`
		Nodes       []string `json:"nodes"`
		Options     Options  `json:"options"`
		Selected    []string `json:"selected"`
	}{m.Fingerprint(), m.IDs(), opts, selected})
	return uuid.NewSHA1(planNamespace, key).String()
}

// Analyze returns the pattern distribution of source with total instances
// allocated, capped by each pattern's candidate count in mode.
func (p *Planner) Analyze(source *models.Graph, total int, mode string) ([]models.ArchitecturePattern, error) {
	m := graph.New(source)
	cands, err := graph.Candidates(m, graph.CandidateMode(mode))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	patterns, _ := allocate(m, cands, total)
	sort.SliceStable(patterns, func(i, j int) bool {
		return patterns[i].DistributionScore > patterns[j].DistributionScore
	})
	p.logger.Debug("patterns analyzed", slog.Int("patterns", len(patterns)), slog.Int("total", total))
	return patterns, nil
}

// allocate analyzes the patterns of m and splits total across them, capped by
// the candidates each pattern has.
func allocate(m *graph.Model, cands []models.CandidateInstance, total int) ([]models.ArchitecturePattern, map[string]int) {
	patterns := distribution.Analyze(m, total)
	capacity := map[string]int{}
	for _, c := range cands {
		capacity[c.Pattern]++
	}
	alloc := map[string]int{}
	for _, pat := range patterns {
		alloc[pat.ID] = pat.TargetAllocation
	}
	alloc = distribution.Rebalance(alloc, capacity, distribution.Scores(patterns))
	for i := range patterns {
		patterns[i].TargetAllocation = alloc[patterns[i].ID]
	}
	return patterns, alloc
}
