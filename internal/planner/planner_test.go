package planner

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terrascope/replicaplan/internal/models"
)

// tenant builds web/api/batch patterns of lb-instance pairs (30/15/5 pairs)
// hung off a shared, unlabelled vpc. One batch instance has a rare type.
func tenant() *models.Graph {
	g := &models.Graph{}
	for _, tier := range []struct {
		name  string
		pairs int
	}{{"web", 30}, {"api", 15}, {"batch", 5}} {
		for i := 0; i < tier.pairs; i++ {
			lb := fmt.Sprintf("module.%s.aws_lb.lb[%d]", tier.name, i)
			vm := fmt.Sprintf("module.%s.aws_instance.vm[%d]", tier.name, i)
			vmType := "aws_instance"
			if tier.name == "batch" && i == 4 {
				vmType = "aws_batch_compute_environment"
			}
			g.Nodes = append(g.Nodes,
				models.Node{ID: lb, Type: "aws_lb", Pattern: tier.name},
				models.Node{ID: vm, Type: vmType, Pattern: tier.name},
			)
			g.Edges = append(g.Edges, models.Edge{Source: lb, Target: vm})
		}
	}
	return g
}

func unlabelled() *models.Graph {
	g := &models.Graph{}
	for i := 0; i < 8; i++ {
		g.Nodes = append(g.Nodes, models.Node{ID: fmt.Sprintf("n%d", i), Type: fmt.Sprintf("t%d", i%3)})
		if i > 0 {
			g.Edges = append(g.Edges, models.Edge{Source: fmt.Sprintf("n%d", i-1), Target: fmt.Sprintf("n%d", i)})
		}
	}
	return g
}

func withTarget(n int) Options {
	opts := DefaultOptions()
	opts.TargetSize = n
	return opts
}

func TestOptionsValidate(t *testing.T) {
	t.Run("defaults are valid", func(t *testing.T) {
		assert.NoError(t, DefaultOptions().Validate())
	})

	tests := []struct {
		name   string
		mutate func(*Options)
	}{
		{"spectral weight above one", func(o *Options) { o.SpectralWeight = 1.5 }},
		{"negative node coverage weight", func(o *Options) { o.NodeCoverageWeight = -0.1 }},
		{"rare boost below one", func(o *Options) { o.RareBoostFactor = 0.5 }},
		{"unknown sampling strategy", func(o *Options) { o.SamplingStrategy = "best" }},
		{"unknown candidate mode", func(o *Options) { o.CandidateMode = "subnet" }},
		{"pool factor below one", func(o *Options) { o.PoolFactor = 0.5 }},
		{"negative workers", func(o *Options) { o.Workers = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.mutate(&opts)

			err := opts.Validate()

			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestGenerateReplicationPlan(t *testing.T) {
	ctx := context.Background()

	t.Run("allocates 60/30/10 and fills it", func(t *testing.T) {
		plan, err := GenerateReplicationPlan(ctx, tenant(), withTarget(20))

		require.NoError(t, err)
		assert.Equal(t, "proportional", plan.Strategy)
		assert.Equal(t, "coverage", plan.SamplingStrategy)
		assert.Equal(t, map[string]int{"web": 12, "api": 6, "batch": 2}, plan.PatternAllocations)
		assert.Equal(t, plan.PatternAllocations, plan.PatternCounts)
		assert.Len(t, plan.Selected, 20)
		assert.Equal(t, 20, plan.Validation.AllocationSum)
		assert.True(t, plan.Validation.NoDuplicates)
		assert.NotEmpty(t, plan.ID)
		assert.Contains(t, []string{"good", "fair", "poor"}, plan.Quality)
		assert.GreaterOrEqual(t, plan.SpectralDistance, 0.0)
		assert.LessOrEqual(t, plan.SpectralDistance, 1.0)
	})

	t.Run("rare boost covers every type", func(t *testing.T) {
		opts := withTarget(20)
		opts.RareBoostFactor = 3

		plan, err := GenerateReplicationPlan(ctx, tenant(), opts)

		require.NoError(t, err)
		assert.Equal(t, 1.0, plan.Coverage.Ratio)
		assert.Empty(t, plan.Coverage.MissingTypes)
		assert.Contains(t, plan.Selected, "module.batch.aws_instance.vm[4]")
	})

	t.Run("deterministic", func(t *testing.T) {
		for _, sampling := range []string{"coverage", "random", "coherence"} {
			opts := withTarget(15)
			opts.SamplingStrategy = sampling
			opts.Seed = 99

			first, err := GenerateReplicationPlan(ctx, tenant(), opts)
			require.NoError(t, err)
			second, err := GenerateReplicationPlan(ctx, tenant(), opts)
			require.NoError(t, err)

			assert.Equal(t, first.Selected, second.Selected, sampling)
			assert.Equal(t, first.ID, second.ID, sampling)
		}
	})

	t.Run("target larger than the pool selects everything", func(t *testing.T) {
		plan, err := GenerateReplicationPlan(ctx, tenant(), withTarget(500))

		require.NoError(t, err)
		assert.Len(t, plan.Selected, 100)
		assert.Equal(t, 100, plan.Validation.AllocationSum)
		assert.Equal(t, 0.0, plan.SpectralDistance)
	})

	t.Run("falls back to greedy without pattern labels", func(t *testing.T) {
		plan, err := GenerateReplicationPlan(ctx, unlabelled(), withTarget(3))

		require.NoError(t, err)
		assert.Equal(t, "greedy", plan.Strategy)
		assert.Len(t, plan.Selected, 3)
		assert.NotEmpty(t, plan.Warnings)
		assert.Nil(t, plan.PatternAllocations)
	})

	t.Run("greedy when distribution is disabled", func(t *testing.T) {
		opts := withTarget(4)
		opts.UseArchitectureDistribution = false
		opts.CandidateMode = "cluster"

		plan, err := GenerateReplicationPlan(ctx, tenant(), opts)

		require.NoError(t, err)
		assert.Equal(t, "greedy", plan.Strategy)
		assert.Len(t, plan.Selected, 4)
		assert.Len(t, plan.NodeIDs(), 8)
		assert.Equal(t, 8, plan.Validation.SelectedNodes)
	})

	t.Run("round limit truncates greedy", func(t *testing.T) {
		opts := withTarget(5)
		opts.MaxRounds = 2

		plan, err := GenerateReplicationPlan(ctx, unlabelled(), opts)

		require.NoError(t, err)
		assert.True(t, plan.Truncated)
		assert.Len(t, plan.Selected, 2)
	})

	t.Run("degenerate inputs give an empty plan", func(t *testing.T) {
		tests := []struct {
			name  string
			graph *models.Graph
			opts  Options
		}{
			{"empty graph", &models.Graph{}, withTarget(5)},
			{"nil graph", nil, withTarget(5)},
			{"zero target", tenant(), withTarget(0)},
			{"negative target", tenant(), withTarget(-3)},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				plan, err := GenerateReplicationPlan(ctx, tt.graph, tt.opts)

				require.NoError(t, err)
				assert.Empty(t, plan.Selected)
				assert.NotEmpty(t, plan.Warnings)
				assert.Equal(t, 1.0, plan.SpectralDistance)
				assert.Equal(t, "poor", plan.Quality)
			})
		}
	})

	t.Run("invalid options are an error", func(t *testing.T) {
		opts := withTarget(5)
		opts.SpectralWeight = 2

		_, err := GenerateReplicationPlan(ctx, tenant(), opts)

		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("does not modify the source graph", func(t *testing.T) {
		g := tenant()
		before := tenant()

		_, err := GenerateReplicationPlan(ctx, g, withTarget(10))

		require.NoError(t, err)
		assert.Equal(t, before, g)
	})
}

func TestAnalyze(t *testing.T) {
	patterns, err := New(nil).Analyze(tenant(), 20, "node")

	require.NoError(t, err)
	require.Len(t, patterns, 3)
	assert.Equal(t, "web", patterns[0].ID)
	total := 0
	for _, p := range patterns {
		total += p.TargetAllocation
	}
	assert.Equal(t, 20, total)

	_, err = New(nil).Analyze(tenant(), 20, "subnet")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
