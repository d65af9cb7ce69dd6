package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/terrascope/replicaplan/internal/config"
	"github.com/terrascope/replicaplan/internal/models"
	"github.com/terrascope/replicaplan/internal/parser"
)

type rootOptions struct {
	configPath string
	output     string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	ro := &rootOptions{}
	cmd := &cobra.Command{
		Use:          "replicaplan",
		Short:        "Plan structurally faithful replicas of infrastructure graphs",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if ro.output != "json" && ro.output != "yaml" {
				return fmt.Errorf("unsupported output format %q (want json or yaml)", ro.output)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&ro.configPath, "config", "c", "", "YAML config file (default $"+config.EnvConfigPath+")")
	cmd.PersistentFlags().StringVarP(&ro.output, "output", "o", "json", "output format: json or yaml")
	cmd.PersistentFlags().BoolVarP(&ro.verbose, "verbose", "v", false, "log planning progress to stderr")

	cmd.AddCommand(newPlanCmd(ro), newAnalyzeCmd(ro))
	return cmd
}

// load returns the config and a logger writing to the command's stderr.
// Without --verbose only warnings and errors are logged.
func (ro *rootOptions) load(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(ro.configPath)
	if err != nil {
		return cfg, nil, err
	}
	if !ro.verbose && cfg.Server.LogLevel != "error" {
		cfg.Server.LogLevel = "warn"
	}
	return cfg, cfg.Server.NewLogger(cmd.ErrOrStderr()), nil
}

// readGraph loads a Terraform state or graph document from path, "-"
// meaning stdin.
func readGraph(cmd *cobra.Command, path string) (*models.Graph, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return parser.LoadGraph(data)
}

// write renders v in the selected format. YAML keeps the JSON field names.
func (ro *rootOptions) write(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if ro.output == "json" {
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return err
	}
	return enc.Close()
}
