package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"gaiaf/internal/evaluate"
	"gaiaf/internal/logging"
	"gaiaf/internal/model"
	gaiafapi "gaiaf/pkg/gaiaf"
)

const shutdownTimeout = 10 * time.Second

type rootOptions struct {
	configPath  string
	historyPath string
	storeKind   string
	dbPath      string
	logLevel    string
	logFormat   string
	cycles      int
	capacity    int
	pauseCycles int
	pausable    bool
	seed        int64
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "gaiafctl",
		Short:         "Evolve numeric pipeline organisms against a price history",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "YAML configuration file")
	flags.StringVar(&opts.historyPath, "history", "", "CSV price history")
	flags.StringVar(&opts.storeKind, "store", "", "organism store backend: memory|sqlite")
	flags.StringVar(&opts.dbPath, "db", "", "sqlite database path")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug|info|warn|error")
	flags.StringVar(&opts.logFormat, "log-format", "", "log format: text|json")
	flags.IntVar(&opts.cycles, "cycles", 0, "mutation cycles per experiment")
	flags.IntVar(&opts.capacity, "capacity", 0, "population capacity per experiment")
	flags.IntVar(&opts.pauseCycles, "pause-cycles", 0, "pause every N cycles when pausable")
	flags.BoolVar(&opts.pausable, "pausable", false, "pause automatically every --pause-cycles cycles")
	flags.Int64Var(&opts.seed, "seed", 0, "random seed for every experiment")

	root.AddCommand(newRunCmd(opts), newServeCmd(opts), newConfigCmd(opts))
	return root
}

func newRunCmd(opts *rootOptions) *cobra.Command {
	var experiments int
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run experiments to completion and report the best organism of each",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd, opts)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			client, err := openClient(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer client.Close()

			statuses, runErr := client.Run(ctx, experiments)
			reports := make([]runReport, 0, len(statuses))
			for _, status := range statuses {
				if status.ExperimentID == "" {
					continue
				}
				report := runReport{Status: status}
				if best, err := client.Best(ctx, status.ExperimentID); err == nil {
					report.BestScore = &best.Score
					report.BestOrganismID = best.OrganismID
				}
				reports = append(reports, report)
			}
			if err := writeReports(cmd, reports, asJSON); err != nil {
				return err
			}
			return runErr
		},
	}
	cmd.Flags().IntVar(&experiments, "experiments", 1, "experiments to run concurrently")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print reports as JSON")
	return cmd
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the experiment API and /metrics over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd, opts)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.HTTP.Addr = addr
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			client, err := openClient(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer client.Close()

			server := &http.Server{
				Addr:              cfg.HTTP.Addr,
				Handler:           client.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}
			errCh := make(chan error, 1)
			go func() {
				logger.Info("http server listening", "addr", cfg.HTTP.Addr)
				errCh <- server.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}
			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	return cmd
}

func newConfigCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd, opts)
			if err != nil {
				return err
			}
			data, err := cfg.YAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

// resolveConfig loads the file, applies explicitly set flags and validates
// the result.
func resolveConfig(cmd *cobra.Command, opts *rootOptions) (FileConfig, error) {
	cfg, err := loadFileConfig(opts.configPath)
	if err != nil {
		return FileConfig{}, err
	}
	changed := cmd.Flags().Changed
	if changed("history") {
		cfg.Evaluator.HistoryPath = opts.historyPath
	}
	if changed("store") {
		cfg.Store.Kind = opts.storeKind
	}
	if changed("db") {
		cfg.Store.DBPath = opts.dbPath
	}
	if changed("log-level") {
		cfg.Log.Level = opts.logLevel
	}
	if changed("log-format") {
		cfg.Log.Format = opts.logFormat
	}
	if changed("cycles") {
		cfg.Experiment.CycleCount = opts.cycles
	}
	if changed("capacity") {
		cfg.Experiment.Capacity = opts.capacity
	}
	if changed("pause-cycles") {
		cfg.Experiment.PauseCycles = opts.pauseCycles
	}
	if changed("pausable") {
		cfg.Experiment.Pausable = opts.pausable
	}
	if changed("seed") {
		cfg.Experiment.Seed = opts.seed
	}
	if err := cfg.Validate(); err != nil {
		return FileConfig{}, err
	}
	return cfg, nil
}

func newLogger(cfg FileConfig) (*slog.Logger, error) {
	return logging.New(logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: "gaiafctl",
	})
}

func openClient(ctx context.Context, cfg FileConfig, logger *slog.Logger) (*gaiafapi.Client, error) {
	client, err := gaiafapi.New(gaiafapi.Options{
		StoreKind:   cfg.Store.Kind,
		DBPath:      cfg.Store.DBPath,
		HistoryPath: cfg.Evaluator.HistoryPath,
		Prediction: evaluate.PredictionConfig{
			TargetIndex: cfg.Evaluator.TargetIndex,
			LeadCount:   cfg.Evaluator.LeadCount,
		},
		Experiment: cfg.Experiment,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}
	if err := client.Init(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("init organism store: %w", err)
	}
	return client, nil
}

type runReport struct {
	Status         model.ExperimentStatus `json:"status"`
	BestScore      *float64               `json:"bestScore,omitempty"`
	BestOrganismID string                 `json:"bestOrganismId,omitempty"`
}

func writeReports(cmd *cobra.Command, reports []runReport, asJSON bool) error {
	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(reports)
	}
	for _, report := range reports {
		status := report.Status
		best := "n/a"
		if report.BestScore != nil {
			best = fmt.Sprintf("%.6f (%s)", *report.BestScore, report.BestOrganismID)
		}
		if _, err := fmt.Fprintf(out, "experiment=%s state=%s cycles=%d replaced=%d best=%s\n",
			status.ExperimentID, status.State, status.CyclesCompleted, status.OrganismsReplaced, best); err != nil {
			return err
		}
	}
	return nil
}
