package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"income_valuation/pkg/core/config"
	"income_valuation/pkg/core/logging"
)

// rootOptions holds global CLI flags.
type rootOptions struct {
	ConfigPath string
	EnvFile    string
	LogLevel   string
	Lenient    bool
}

// app carries initialized dependencies through the command tree.
type app struct {
	opts   rootOptions
	cfg    config.Config
	logger logging.Logger
}

func newRootCommand() *cobra.Command {
	a := &app{logger: logging.NewNopLogger()}

	cmd := &cobra.Command{
		Use:   "valuate",
		Short: "Income-approach cash-flow aggregation and valuation",
		Long: "valuate re-expresses a monthly property cash-flow projection at quarterly,\n" +
			"annual or whole-hold granularity, capitalizes Year-1 NOI bases, runs a DCF\n" +
			"and builds discount rate x exit cap rate sensitivity grids.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&a.opts.ConfigPath, "config", "c", "valuate.yaml", "config file path")
	pf.StringVar(&a.opts.EnvFile, "env-file", ".env", "dotenv file loaded before the environment is read")
	pf.StringVar(&a.opts.LogLevel, "log-level", "", "log level (debug, info, warn, error); overrides config")
	pf.BoolVar(&a.opts.Lenient, "lenient", false, "repair malformed input JSON instead of rejecting it")

	cmd.AddCommand(
		newAggregateCmd(a),
		newBasesCmd(a),
		newDCFCmd(a),
		newSensitivityCmd(a),
		newRunCmd(a),
		newRunsCmd(a),
	)
	return cmd
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.opts.ConfigPath, a.opts.EnvFile)
	if err != nil {
		return err
	}
	if a.opts.LogLevel != "" {
		cfg.Log.Level = a.opts.LogLevel
	}
	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger.Named("valuate").With(logging.String("command", cmd.Name()))
	return nil
}

// readInput reads path, or stdin for "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "" {
		return nil, fmt.Errorf("--input is required")
	}
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return data, nil
}

// printJSON writes v as indented JSON to the command's stdout.
func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
