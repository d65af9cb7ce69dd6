package main

import (
	"github.com/spf13/cobra"

	"github.com/terrascope/replicaplan/internal/models"
	"github.com/terrascope/replicaplan/internal/planner"
)

type analysis struct {
	Target   int                          `json:"target"`
	Stats    *models.Stats                `json:"stats,omitempty"`
	Patterns []models.ArchitecturePattern `json:"patterns"`
}

func newAnalyzeCmd(ro *rootOptions) *cobra.Command {
	var (
		input  string
		target int
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Show architecture patterns and how a target splits across them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := ro.load(cmd)
			if err != nil {
				return err
			}
			source, err := readGraph(cmd, input)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("target") {
				target = cfg.Planner.TargetSize
			}

			patterns, err := planner.New(logger).Analyze(source, target, cfg.Planner.CandidateMode)
			if err != nil {
				return err
			}
			if patterns == nil {
				patterns = []models.ArchitecturePattern{}
			}
			return ro.write(cmd.OutOrStdout(), analysis{Target: target, Stats: source.Stats, Patterns: patterns})
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "-", "Terraform state or graph JSON file, - for stdin")
	cmd.Flags().IntVarP(&target, "target", "t", 0, "target size to split across patterns")
	return cmd
}
