// Package report turns a prepared dataset into a narrative markdown
// report plus a JSON document of the same descriptive statistics.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"petpulse/internal/dataset"
	"petpulse/internal/errors"
)

// Options names the dataset columns the summarizer reads. Entity and
// Time are required; Category and Value are optional and skip their
// sections when absent from the table.
type Options struct {
	EntityColumn   string
	TimeColumn     string
	CategoryColumn string
	ValueColumn    string
}

// DefaultOptions summarizes the prepared pet care dataset.
func DefaultOptions() Options {
	return Options{
		EntityColumn:   "pet_id",
		TimeColumn:     "date",
		CategoryColumn: "activity_type",
		ValueColumn:    "duration_minutes",
	}
}

// CategoryStat is the per-category breakdown across the whole dataset.
type CategoryStat struct {
	Category   string  `json:"category"`
	Records    int     `json:"records"`
	TotalValue float64 `json:"total_value"`
	MeanValue  float64 `json:"mean_value"`
}

// EntitySummary is the per-entity breakdown.
type EntitySummary struct {
	Entity    string  `json:"entity"`
	Records   int     `json:"records"`
	FirstDate string  `json:"first_date,omitempty"`
	LastDate  string  `json:"last_date,omitempty"`
	SpanDays  float64 `json:"span_days"`
}

// Summary is the complete report payload.
type Summary struct {
	ReportID    string          `json:"report_id"`
	GeneratedAt string          `json:"generated_at"`
	Rows        int             `json:"rows"`
	Entities    int             `json:"entities"`
	FirstDate   string          `json:"first_date,omitempty"`
	LastDate    string          `json:"last_date,omitempty"`
	Categories  []CategoryStat  `json:"categories,omitempty"`
	PerEntity   []EntitySummary `json:"per_entity"`
}

// Summarizer computes descriptive statistics over a prepared dataset.
type Summarizer struct {
	logger *slog.Logger
	opts   Options
}

// NewSummarizer creates a summarizer.
func NewSummarizer(logger *slog.Logger, opts Options) *Summarizer {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.EntityColumn == "" {
		opts = DefaultOptions()
	}
	return &Summarizer{logger: logger, opts: opts}
}

// Summarize walks the table once and aggregates counts, date ranges,
// and value statistics.
func (s *Summarizer) Summarize(ctx context.Context, t *dataset.Table) (*Summary, error) {
	entityIdx, ok := t.ColumnIndex(s.opts.EntityColumn)
	if !ok {
		return nil, errors.NewSchemaError(fmt.Sprintf(
			"report: table has no entity column %q", s.opts.EntityColumn))
	}
	timeIdx, ok := t.ColumnIndex(s.opts.TimeColumn)
	if !ok {
		return nil, errors.NewSchemaError(fmt.Sprintf(
			"report: table has no time column %q", s.opts.TimeColumn))
	}
	categoryIdx, hasCategory := t.ColumnIndex(s.opts.CategoryColumn)
	valueIdx, hasValue := t.ColumnIndex(s.opts.ValueColumn)

	type entityAgg struct {
		records     int
		first, last time.Time
		dated       bool
	}
	type categoryAgg struct {
		records int
		total   float64
		counted int
	}
	entities := make(map[string]*entityAgg)
	categories := make(map[string]*categoryAgg)
	var rangeFirst, rangeLast time.Time
	var ranged bool

	for i := 0; i < t.NumRows(); i++ {
		row := t.Row(i)

		entity := row[entityIdx].Format()
		agg := entities[entity]
		if agg == nil {
			agg = &entityAgg{}
			entities[entity] = agg
		}
		agg.records++

		if ts := row[timeIdx]; !ts.IsNull() {
			when := ts.TimeVal()
			if !agg.dated || when.Before(agg.first) {
				agg.first = when
			}
			if !agg.dated || when.After(agg.last) {
				agg.last = when
			}
			agg.dated = true
			if !ranged || when.Before(rangeFirst) {
				rangeFirst = when
			}
			if !ranged || when.After(rangeLast) {
				rangeLast = when
			}
			ranged = true
		}

		if hasCategory {
			category := row[categoryIdx].Format()
			cat := categories[category]
			if cat == nil {
				cat = &categoryAgg{}
				categories[category] = cat
			}
			cat.records++
			if hasValue {
				if v := row[valueIdx]; !v.IsNull() {
					cat.total += v.Float64()
					cat.counted++
				}
			}
		}
	}

	summary := &Summary{
		ReportID:    uuid.NewString(),
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Rows:        t.NumRows(),
		Entities:    len(entities),
	}
	if ranged {
		summary.FirstDate = rangeFirst.Format(dataset.TimeFormat)
		summary.LastDate = rangeLast.Format(dataset.TimeFormat)
	}

	for name, cat := range categories {
		stat := CategoryStat{Category: name, Records: cat.records, TotalValue: cat.total}
		if cat.counted > 0 {
			stat.MeanValue = cat.total / float64(cat.counted)
		}
		summary.Categories = append(summary.Categories, stat)
	}
	sort.Slice(summary.Categories, func(i, j int) bool {
		return summary.Categories[i].Category < summary.Categories[j].Category
	})

	for name, agg := range entities {
		es := EntitySummary{Entity: name, Records: agg.records}
		if agg.dated {
			es.FirstDate = agg.first.Format(dataset.TimeFormat)
			es.LastDate = agg.last.Format(dataset.TimeFormat)
			es.SpanDays = agg.last.Sub(agg.first).Hours() / 24
		}
		summary.PerEntity = append(summary.PerEntity, es)
	}
	sort.Slice(summary.PerEntity, func(i, j int) bool {
		return summary.PerEntity[i].Entity < summary.PerEntity[j].Entity
	})

	s.logger.InfoContext(ctx, "summarized dataset",
		slog.Int("rows", summary.Rows),
		slog.Int("entities", summary.Entities),
		slog.Int("categories", len(summary.Categories)))

	return summary, nil
}

// WriteMarkdown renders the summary as a narrative markdown report.
func (s *Summarizer) WriteMarkdown(ctx context.Context, path string, summary *Summary) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# Exploratory Data Analysis Report\n\n")
	fmt.Fprintf(&b, "Generated at %s (report %s).\n\n", summary.GeneratedAt, summary.ReportID)

	fmt.Fprintf(&b, "## Dataset\n\n")
	fmt.Fprintf(&b, "- Records: %d\n", summary.Rows)
	fmt.Fprintf(&b, "- Entities: %d\n", summary.Entities)
	if summary.FirstDate != "" {
		fmt.Fprintf(&b, "- Date range: %s to %s\n", summary.FirstDate, summary.LastDate)
	}
	b.WriteString("\n")

	if len(summary.Categories) > 0 {
		fmt.Fprintf(&b, "## Activity breakdown\n\n")
		fmt.Fprintf(&b, "| Category | Records | Total | Mean |\n")
		fmt.Fprintf(&b, "|---|---|---|---|\n")
		for _, c := range summary.Categories {
			fmt.Fprintf(&b, "| %s | %d | %.1f | %.1f |\n", c.Category, c.Records, c.TotalValue, c.MeanValue)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "## Per-entity summary\n\n")
	fmt.Fprintf(&b, "| Entity | Records | First | Last | Span (days) |\n")
	fmt.Fprintf(&b, "|---|---|---|---|---|\n")
	for _, e := range summary.PerEntity {
		fmt.Fprintf(&b, "| %s | %d | %s | %s | %.1f |\n",
			e.Entity, e.Records, e.FirstDate, e.LastDate, e.SpanDays)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.NewStorageError(fmt.Sprintf("cannot create directory for %s", path), err)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return errors.NewStorageError(fmt.Sprintf("cannot write report %s", path), err)
	}

	s.logger.InfoContext(ctx, "wrote markdown report", slog.String("path", path))
	return nil
}

// WriteJSON writes the summary as an indented JSON document.
func (s *Summarizer) WriteJSON(ctx context.Context, path string, summary *Summary) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.NewStorageError(fmt.Sprintf("cannot create directory for %s", path), err)
	}
	file, err := os.Create(path)
	if err != nil {
		return errors.NewStorageError(fmt.Sprintf("cannot create %s", path), err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(summary); err != nil {
		return errors.NewStorageError(fmt.Sprintf("cannot encode report %s", path), err)
	}

	s.logger.InfoContext(ctx, "wrote JSON report", slog.String("path", path))
	return nil
}
