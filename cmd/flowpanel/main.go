package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	"github.com/dd0wney/flowpanel/pkg/config"
	"github.com/dd0wney/flowpanel/pkg/logging"
	"github.com/dd0wney/flowpanel/pkg/merge"
	"github.com/dd0wney/flowpanel/pkg/metrics"
	"github.com/dd0wney/flowpanel/pkg/pipeline"
	"github.com/dd0wney/flowpanel/pkg/sink"
)

func main() {
	// Optional .env file for local runs; deployments set real env vars.
	_ = godotenv.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle SIGINT/SIGTERM for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "interrupt received, shutting down")
		cancel()
	}()

	cmd := &cli.Command{
		Name:  "flowpanel",
		Usage: "Per-period network metrics over transport flow snapshots",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML config file",
				Sources: cli.EnvVars("FLOWPANEL_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "input",
				Usage: "Snapshot input directory (overrides config)",
			},
			&cli.StringFlag{
				Name:  "output",
				Usage: "CSV output directory (overrides config)",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Snapshot-level parallelism (0 = one per CPU)",
			},
			&cli.IntFlag{
				Name:  "seed",
				Usage: "Community detection RNG seed (overrides config)",
				Value: -1,
			},
		},
		Commands: []*cli.Command{
			runCmd(),
			centralityCmd(),
			communityCmd(),
			mergeCmd(),
		},
	}

	if err := cmd.Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig resolves the effective configuration from file, env, and
// command-line overrides.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}
	if v := cmd.String("input"); v != "" {
		cfg.InputDir = v
	}
	if v := cmd.String("output"); v != "" {
		cfg.OutputDir = v
	}
	if v := cmd.Int("workers"); v != 0 {
		cfg.Workers = int(v)
	}
	if v := cmd.Int("seed"); v >= 0 {
		cfg.Community.Seed = int64(v)
	}
	return cfg, cfg.Validate()
}

// runPipeline executes one full pass and writes the selected outputs.
func runPipeline(ctx context.Context, cmd *cli.Command, writeCentrality, writeCommunity, writeMerged bool) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger := logging.NewDefaultLogger()
	reg := metrics.DefaultRegistry()

	if cfg.MetricsAddr != "" {
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: reg.Handler()}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server failed", logging.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	p := pipeline.New(cfg, logger, reg)
	result, err := p.Run(ctx)
	if err != nil {
		return err
	}

	if err := writeOutputs(cfg.OutputDir, result, writeCentrality, writeCommunity, writeMerged); err != nil {
		return err
	}

	if writeMerged && cfg.Postgres.URL != "" {
		if err := writeSink(ctx, cfg, logger, reg, result); err != nil {
			return err
		}
	}

	if !result.Report.Clean() {
		fmt.Fprintf(os.Stderr, "warning: %d centrality-only and %d community-only rows in merged output\n",
			result.Report.CentralityOnly, result.Report.CommunityOnly)
	}
	return nil
}

func writeOutputs(dir string, result *pipeline.Result, centrality, community, merged bool) error {
	if centrality && community && merged {
		return pipeline.WriteOutputs(dir, result)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir %s: %w", dir, err)
	}
	if centrality {
		if err := writeCSV(dir, pipeline.CentralityFile, result.Centrality.WriteCSV); err != nil {
			return err
		}
	}
	if community {
		if err := writeCSV(dir, pipeline.CommunityFile, result.Community.WriteCSV); err != nil {
			return err
		}
	}
	if merged {
		if err := writeCSV(dir, pipeline.MergedFile, func(w io.Writer) error {
			return merge.WriteCSV(w, result.Merged)
		}); err != nil {
			return err
		}
	}
	return nil
}

func writeCSV(dir, name string, write func(io.Writer) error) error {
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return err
	}
	defer f.Close()
	return write(f)
}

func writeSink(ctx context.Context, cfg *config.Config, logger logging.Logger, reg *metrics.Registry, result *pipeline.Result) error {
	s, err := sink.NewPGSink(ctx, cfg.Postgres.URL, cfg.Postgres.Table)
	if err != nil {
		return err
	}
	defer s.Close()

	start := time.Now()
	copied, err := s.WriteMerged(ctx, result.RunID, result.Merged)
	if err != nil {
		reg.RecordSinkWrite("error", time.Since(start))
		return err
	}
	reg.RecordSinkWrite("success", time.Since(start))
	logger.Info("panel rows persisted",
		logging.RunID(result.RunID), logging.Int("rows", int(copied)))
	return nil
}

func runCmd() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Compute both metric tables, merge them, and write all outputs",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runPipeline(ctx, cmd, true, true, true)
		},
	}
}

func centralityCmd() *cli.Command {
	return &cli.Command{
		Name:  "centrality",
		Usage: "Compute the centrality table only",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runPipeline(ctx, cmd, true, false, false)
		},
	}
}

func communityCmd() *cli.Command {
	return &cli.Command{
		Name:  "community",
		Usage: "Compute the community table only",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runPipeline(ctx, cmd, false, true, false)
		},
	}
}

func mergeCmd() *cli.Command {
	return &cli.Command{
		Name:  "merge",
		Usage: "Compute both tables and write only the merged panel",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runPipeline(ctx, cmd, false, false, true)
		},
	}
}
