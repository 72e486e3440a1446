package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/spf13/cobra"

	"EditaisScanner/internal/app"
	"EditaisScanner/internal/classify"
	"EditaisScanner/internal/config"
	"EditaisScanner/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:           "editaisscanner",
		Short:         "Discovers public notices (editais) across feeds, pages and APIs",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cfgFile != "" {
				return os.Setenv("EDITAIS_SCANNER_CONFIG", cfgFile)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "path to the YAML config file")

	root.AddCommand(newRunCmd(), newServeCmd(), newMigrateCmd(), newTaxonomyCmd())
	return root
}

// withApp loads config, builds the application and closes it after fn.
func withApp(ctx context.Context, fn func(*app.Application) error) error {
	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := application.Close(); err != nil {
			logger.Error("close application", "error", err)
		}
	}()

	return fn(application)
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the ingestion pipeline once and print the number of new editais",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app.Application) error {
				fmt.Fprintln(cmd.OutOrStdout(), a.Run(cmd.Context()))
				return nil
			})
		},
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the pipeline on the configured cron schedule and expose metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app.Application) error {
				return a.Serve(cmd.Context())
			})
		},
	}
}

func newMigrateCmd() *cobra.Command {
	var steps int

	cmd := &cobra.Command{
		Use:       "migrate [up|down]",
		Short:     "Apply or roll back the database schema",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"up", "down"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var n int
			switch args[0] {
			case "up":
			case "down":
				n = -steps
				if n >= 0 {
					n = -1
				}
			default:
				return fmt.Errorf("unknown direction %q, want up or down", args[0])
			}
			return withApp(cmd.Context(), func(a *app.Application) error {
				return a.Migrate(n)
			})
		},
	}
	cmd.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back with down")
	return cmd
}

func newTaxonomyCmd() *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "taxonomy",
		Short: "Print the category labels (stored ones, or the taxonomy seed list)",
		RunE: func(cmd *cobra.Command, args []string) error {
			printLabels := func(labels []string) {
				for _, l := range labels {
					fmt.Fprintln(cmd.OutOrStdout(), l)
				}
			}
			if offline {
				printLabels(classify.NewCategorizer(config.Load().Taxonomy).Labels())
				return nil
			}
			return withApp(cmd.Context(), func(a *app.Application) error {
				labels, err := a.Categories(cmd.Context())
				if err != nil {
					return err
				}
				printLabels(labels)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "print the configured taxonomy without touching the database")
	return cmd
}
