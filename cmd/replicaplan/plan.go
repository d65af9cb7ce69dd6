package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/terrascope/replicaplan/internal/planner"
)

func newPlanCmd(ro *rootOptions) *cobra.Command {
	var (
		input    string
		target   int
		strategy string
		sampling string
		mode     string
		seed     uint64
		rare     float64
		weight   float64
		coverage float64
		rounds   int
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Select a replica subset of the input graph",
		Example: `  replicaplan plan -i terraform.tfstate -t 20
  replicaplan plan -i graph.json -t 10 --strategy greedy -o yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := ro.load(cmd)
			if err != nil {
				return err
			}
			source, err := readGraph(cmd, input)
			if err != nil {
				return err
			}

			opts := cfg.Planner
			flags := cmd.Flags()
			if flags.Changed("target") {
				opts.TargetSize = target
			}
			if flags.Changed("strategy") {
				switch strategy {
				case "proportional":
					opts.UseArchitectureDistribution = true
				case "greedy":
					opts.UseArchitectureDistribution = false
				default:
					return fmt.Errorf("unknown strategy %q (want proportional or greedy)", strategy)
				}
			}
			if flags.Changed("sampling") {
				opts.SamplingStrategy = sampling
			}
			if flags.Changed("candidates") {
				opts.CandidateMode = mode
			}
			if flags.Changed("seed") {
				opts.Seed = seed
			}
			if flags.Changed("rare-boost") {
				opts.RareBoostFactor = rare
			}
			if flags.Changed("spectral-weight") {
				opts.SpectralWeight = weight
			}
			if flags.Changed("node-coverage-weight") {
				opts.NodeCoverageWeight = coverage
			}
			if flags.Changed("max-rounds") {
				opts.MaxRounds = rounds
			}

			plan, err := planner.New(logger).GenerateReplicationPlan(cmd.Context(), source, opts)
			if err != nil {
				return err
			}
			return ro.write(cmd.OutOrStdout(), plan)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&input, "input", "i", "-", "Terraform state or graph JSON file, - for stdin")
	f.IntVarP(&target, "target", "t", 0, "number of instances to select")
	f.StringVar(&strategy, "strategy", "proportional", "proportional or greedy")
	f.StringVar(&sampling, "sampling", "coverage", "proportional sampling: coverage, random or coherence")
	f.StringVar(&mode, "candidates", "node", "candidate instances: node or cluster")
	f.Uint64Var(&seed, "seed", 0, "random seed for reproducible plans")
	f.Float64Var(&rare, "rare-boost", 1, "priority boost for missing and scarce resource types")
	f.Float64Var(&weight, "spectral-weight", 0.5, "weight of spectral distance when re-ranking coverage pools")
	f.Float64Var(&coverage, "node-coverage-weight", 0.5, "greedy weight of the already-covered-types penalty against spectral distance")
	f.IntVar(&rounds, "max-rounds", 0, "greedy round limit, 0 for none")
	return cmd
}
