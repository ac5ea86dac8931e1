// Package pipeline implements the data preparation pipeline: loading
// raw tabular files, cleaning them under per-column rules, merging on a
// shared key, deriving computed columns, and exporting the result.
//
// The pipeline is a single linear pass. Every stage returns a typed
// error from internal/errors and the first failure aborts the run; there
// are no retries and no partial results.
//
// Typical flow:
//
//	runner := pipeline.NewRunner(logger)
//	result, err := runner.Run(ctx, spec)
//
// where spec describes inputs, column rules, the join key, derived
// columns, and the output path. Individual stages (Loader, Cleaner,
// Merger, Deriver, Exporter) are exported for direct use in tests and
// notebook-style exploration.
package pipeline
