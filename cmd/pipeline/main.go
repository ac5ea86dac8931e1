// Command pipeline runs the data preparation pipeline end to end:
// load raw files, clean, merge, derive, export, and optionally write
// the summary report.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"path/filepath"

	"petpulse/internal/config"
	"petpulse/internal/files"
	"petpulse/internal/infrastructure"
	"petpulse/internal/petcare"
	"petpulse/internal/pipeline"
	"petpulse/internal/report"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file (optional)")
	dataDir := flag.String("data", "", "directory with raw input files (overrides config)")
	outPath := flag.String("out", "", "output path for the prepared CSV (overrides config)")
	noReport := flag.Bool("no-report", false, "skip the summary report")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Error("failed to initialize logging", "error", err)
		os.Exit(1)
	}
	defer infrastructure.CloseLogFile()

	ctx := infrastructure.WithRunID(context.Background(), infrastructure.NewRunID())

	spec, err := buildSpec(cfg, *outPath)
	if err != nil {
		logger.ErrorContext(ctx, "cannot build pipeline spec", "error", err)
		os.Exit(1)
	}

	runner := pipeline.NewRunner(logger)
	result, err := runner.Run(ctx, spec)
	if err != nil {
		logger.ErrorContext(ctx, "pipeline run failed", "error", err)
		os.Exit(1)
	}

	if cfg.Report.Enabled && !*noReport {
		summarizer := report.NewSummarizer(logger, report.DefaultOptions())
		summary, err := summarizer.Summarize(ctx, result.Table)
		if err != nil {
			logger.ErrorContext(ctx, "report generation failed", "error", err)
			os.Exit(1)
		}
		if err := summarizer.WriteMarkdown(ctx, cfg.Report.MarkdownPath, summary); err != nil {
			logger.ErrorContext(ctx, "report generation failed", "error", err)
			os.Exit(1)
		}
		if err := summarizer.WriteJSON(ctx, cfg.Report.JSONPath, summary); err != nil {
			logger.ErrorContext(ctx, "report generation failed", "error", err)
			os.Exit(1)
		}
	}

	logger.InfoContext(ctx, "done",
		slog.Int("rows_exported", result.RowsExported),
		slog.String("output", spec.OutputPath))
}

// buildSpec uses the explicit pipeline section of the config when
// present, and otherwise falls back to the built-in pet care recipe
// over files discovered in the data directory.
func buildSpec(cfg *config.Config, outOverride string) (pipeline.RunSpec, error) {
	if cfg.HasPipeline() {
		if err := cfg.ValidatePipeline(); err != nil {
			return pipeline.RunSpec{}, err
		}
		spec := cfg.Pipeline
		if outOverride != "" {
			spec.OutputPath = outOverride
		}
		return spec, nil
	}

	discovery := files.NewDiscovery(cfg.DataDir)
	found, err := discovery.FindDataFiles(".")
	if err != nil {
		return pipeline.RunSpec{}, err
	}
	inputs, err := petcare.MatchInputs(files.Paths(found))
	if err != nil {
		return pipeline.RunSpec{}, err
	}

	out := outOverride
	if out == "" {
		out = filepath.Join(cfg.DataDir, "processed_data.csv")
	}
	return petcare.Spec(inputs, out), nil
}
