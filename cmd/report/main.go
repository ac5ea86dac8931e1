// Command report generates the markdown and JSON summary report from
// an already prepared dataset CSV.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"path/filepath"

	"petpulse/internal/config"
	"petpulse/internal/dataset"
	"petpulse/internal/infrastructure"
	"petpulse/internal/pipeline"
	"petpulse/internal/report"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file (optional)")
	inPath := flag.String("in", "", "prepared dataset CSV (defaults to <data_dir>/processed_data.csv)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Error("failed to initialize logging", "error", err)
		os.Exit(1)
	}
	defer infrastructure.CloseLogFile()

	ctx := infrastructure.WithRunID(context.Background(), infrastructure.NewRunID())

	path := *inPath
	if path == "" {
		path = filepath.Join(cfg.DataDir, "processed_data.csv")
	}

	loader := pipeline.NewLoader(logger)
	raw, err := loader.LoadFile(ctx, path)
	if err != nil {
		logger.ErrorContext(ctx, "cannot load prepared dataset", "error", err)
		os.Exit(1)
	}

	// Restore the column types the summarizer reads; everything else
	// stays a string.
	opts := report.DefaultOptions()
	var rules []pipeline.ColumnRule
	if raw.HasColumn(opts.TimeColumn) {
		rules = append(rules, pipeline.ColumnRule{Name: opts.TimeColumn, Type: dataset.KindTime})
	}
	if raw.HasColumn(opts.ValueColumn) {
		rules = append(rules, pipeline.ColumnRule{Name: opts.ValueColumn, Type: dataset.KindFloat})
	}

	cleaner := pipeline.NewCleaner(logger)
	typed, _, err := cleaner.Clean(ctx, raw, rules)
	if err != nil {
		logger.ErrorContext(ctx, "cannot type prepared dataset", "error", err)
		os.Exit(1)
	}

	summarizer := report.NewSummarizer(logger, opts)
	summary, err := summarizer.Summarize(ctx, typed)
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

	logger.InfoContext(ctx, "report written",
		slog.String("markdown", cfg.Report.MarkdownPath),
		slog.String("json", cfg.Report.JSONPath))
}
