package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"income_valuation/pkg/core/aggregate"
	"income_valuation/pkg/core/logging"
	"income_valuation/pkg/core/store"
	"income_valuation/pkg/core/valuation"
)

func newAggregateCmd(a *app) *cobra.Command {
	var (
		input    string
		scale    string
		terminal bool
	)
	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Re-express the monthly series at another granularity",
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := aggregate.ParseScale(scale)
			if err != nil {
				return err
			}
			doc, err := a.readDoc(cmd, input)
			if err != nil {
				return err
			}
			series, err := a.series(doc)
			if err != nil {
				return err
			}
			grid, err := aggregate.Aggregate(series, sc)
			if err != nil {
				return err
			}
			if terminal {
				if series.Terminal == nil {
					return fmt.Errorf("--terminal requested but the series has no terminal projection")
				}
				if err := aggregate.AppendTerminal(grid, series.Terminal, series.HoldYears()); err != nil {
					return err
				}
			}
			return printJSON(cmd, grid)
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "input document (- for stdin)")
	cmd.Flags().StringVar(&scale, "scale", "annual", "monthly | quarterly | annual | overall")
	cmd.Flags().BoolVar(&terminal, "terminal", false, "append the terminal reference year (annual and quarterly only)")
	return cmd
}

func newBasesCmd(a *app) *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "bases",
		Short: "Capitalize Year-1 NOI for each basis",
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.readDoc(cmd, input)
			if err != nil {
				return err
			}
			tiles, err := valuation.ValuateBases(doc.Bases, doc.CapRates, doc.Property)
			if err != nil {
				return err
			}
			for _, t := range tiles {
				if !t.Available() {
					a.logger.Warn("basis unavailable", logging.String("basis", string(t.Basis)),
						logging.String("reason", t.Unavailable["capitalized_value"]))
				}
			}
			return printJSON(cmd, tiles)
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "input document (- for stdin)")
	return cmd
}

func newDCFCmd(a *app) *cobra.Command {
	var (
		input      string
		withSeries bool
	)
	cmd := &cobra.Command{
		Use:   "dcf",
		Short: "Discount the hold-period cash flows and the reversion",
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.readDoc(cmd, input)
			if err != nil {
				return err
			}
			series, err := a.series(doc)
			if err != nil {
				return err
			}
			res, err := valuation.RunDCF(a.dcfInput(doc, series))
			if err != nil {
				return err
			}
			if !withSeries {
				res.Series = nil
			}
			return printJSON(cmd, res)
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "input document (- for stdin)")
	cmd.Flags().BoolVar(&withSeries, "series", false, "include the discounted monthly series")
	return cmd
}

func newSensitivityCmd(a *app) *cobra.Command {
	var (
		input string
		steps int
	)
	cmd := &cobra.Command{
		Use:   "sensitivity",
		Short: "Discount rate x exit cap rate grid around the base case",
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.readDoc(cmd, input)
			if err != nil {
				return err
			}
			series, err := a.series(doc)
			if err != nil {
				return err
			}
			axes := a.cfg.Engine.Sensitivity
			axes.DiscountRateStep = doc.Assumptions.DiscountRateStep
			axes.CapRateStep = doc.Assumptions.CapRateStep
			if steps > 0 {
				axes.Steps = steps
			}
			grid, err := valuation.Sensitivity(a.dcfInput(doc, series), axes)
			if err != nil {
				return err
			}
			if n := grid.Failed(); n > 0 {
				a.logger.Warn("sensitivity cells unavailable", logging.Int("cells", n))
			}
			return printJSON(cmd, grid)
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "input document (- for stdin)")
	cmd.Flags().IntVar(&steps, "steps", 0, "values per axis, odd (default from config)")
	return cmd
}

func newRunCmd(a *app) *cobra.Command {
	var (
		input string
		save  bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Bases, DCF, sensitivity and the annual grid in one report",
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.readDoc(cmd, input)
			if err != nil {
				return err
			}
			series, err := a.series(doc)
			if err != nil {
				return err
			}

			runner := valuation.NewRunner(a.cfg.Engine.RunnerOptions(), a.logger)
			report, err := runner.Run(cmd.Context(), valuation.Request{
				Series:        series,
				Assumptions:   doc.Assumptions,
				Property:      doc.Property,
				Bases:         doc.Bases,
				CapRates:      doc.CapRates,
				SelectedBasis: doc.SelectedBasis,
			})
			if err != nil {
				return err
			}

			if save {
				repo, err := a.openRepo(cmd)
				if err != nil {
					return err
				}
				defer store.Close()
				if err := store.EnsureSchema(cmd.Context(), store.GetPool()); err != nil {
					return err
				}
				if err := repo.Save(cmd.Context(), report); err != nil {
					return err
				}
			}
			return printJSON(cmd, report)
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "input document (- for stdin)")
	cmd.Flags().BoolVar(&save, "save", false, "persist the report to the database")
	return cmd
}

func newRunsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect saved valuation runs",
	}

	var limit int
	listCmd := &cobra.Command{
		Use:   "list <property>",
		Short: "List saved runs for a property, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := a.openRepo(cmd)
			if err != nil {
				return err
			}
			defer store.Close()
			runs, err := repo.ListByProperty(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			return printJSON(cmd, runs)
		},
	}
	listCmd.Flags().IntVar(&limit, "limit", 20, "maximum runs to list")

	showCmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Print a saved report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid run id: %w", err)
			}
			repo, err := a.openRepo(cmd)
			if err != nil {
				return err
			}
			defer store.Close()
			report, err := repo.Load(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd, report)
		},
	}

	cmd.AddCommand(listCmd, showCmd)
	return cmd
}

func (a *app) readDoc(cmd *cobra.Command, path string) (*inputDoc, error) {
	data, err := readInput(cmd, path)
	if err != nil {
		return nil, err
	}
	return a.loadInput(data)
}

func (a *app) openRepo(cmd *cobra.Command) (*store.RunRepo, error) {
	if err := store.InitDB(cmd.Context(), a.cfg.Database.URL); err != nil {
		return nil, err
	}
	return store.NewRunRepo(nil, a.logger), nil
}
