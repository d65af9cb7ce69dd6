package selection

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/terrascope/replicaplan/internal/metrics"
	"github.com/terrascope/replicaplan/internal/models"
	"github.com/terrascope/replicaplan/internal/scoring"
	"github.com/terrascope/replicaplan/internal/spectral"
)

// Greedy adds one candidate per round: the one minimising the weighted sum of
// the spectral distance the target would have with it and its node-coverage
// penalty. Candidates of a round are scored in parallel; rounds are not.
type Greedy struct {
	NodeCoverageWeight float64
	// Workers bounds concurrent evaluations; 0 means GOMAXPROCS.
	Workers int
	// MaxRounds caps the number of rounds; 0 means no cap.
	MaxRounds int
}

func (g Greedy) Name() string { return "greedy" }

func (g Greedy) Select(ctx context.Context, in Input) (Result, error) {
	log := in.logger(g.Name())
	calc := in.calculator()
	st := newState(in.Source)
	remaining := st.unchosen(in.Candidates)

	workers := g.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	for round := 0; len(st.selected) < in.Target && len(remaining) > 0; round++ {
		if g.MaxRounds > 0 && round >= g.MaxRounds {
			log.Warn("round limit reached",
				slog.Int("max_rounds", g.MaxRounds),
				slog.Int("selected", len(st.selected)))
			return st.result(true, []string{fmt.Sprintf("stopped after %d rounds", g.MaxRounds)}), nil
		}

		scores, err := g.round(ctx, st, remaining, in, calc, workers)
		if err != nil {
			log.Warn("selection interrupted", slog.Int("round", round), slog.Any("error", err))
			return st.result(true, []string{fmt.Sprintf("selection interrupted: %v", err)}), nil
		}

		best := 0
		for i := 1; i < len(scores); i++ {
			if scores[i] < scores[best] {
				best = i
			}
		}
		st.add(remaining[best], 0, scores[best])
		remaining = append(remaining[:best], remaining[best+1:]...)

		log.Debug("round complete",
			slog.Int("round", round),
			slog.String("picked", st.selected[len(st.selected)-1].ID),
			slog.Float64("score", scores[best]))
	}

	return st.result(false, nil), nil
}

// round scores every remaining candidate against the current target.
func (g Greedy) round(
	ctx context.Context,
	st *state,
	remaining []models.CandidateInstance,
	in Input,
	calc *spectral.Calculator,
	workers int,
) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scores := make([]float64, len(remaining))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i, c := range remaining {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			d := calc.Distance(in.Source, st.builder.GraphWith(c.Nodes))
			scores[i] = scoring.WeightedSumScore(d, scoring.NodeCoveragePenalty(c, st.covers), g.NodeCoverageWeight)
			metrics.GreedyEvaluations.Inc()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return scores, nil
}
