package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"petpulse/internal/dataset"
	"petpulse/internal/errors"
)

// DeriveOp names a derived-column computation.
type DeriveOp string

const (
	// OpElapsedDays computes, per entity, the fractional days elapsed
	// since the entity's previous record in chronological order. The
	// first record of each entity gets a null, never an error.
	OpElapsedDays DeriveOp = "elapsed_days"
	// OpDatePart extracts a calendar part (year, month, day, weekday)
	// from a time column into an int column. Weekdays run 0 for Monday
	// through 6 for Sunday.
	OpDatePart DeriveOp = "date_part"
)

// DeriveSpec describes one derived column.
type DeriveSpec struct {
	Column string   `yaml:"column" validate:"required"`
	Op     DeriveOp `yaml:"op" validate:"required,oneof=elapsed_days date_part"`
	Entity string   `yaml:"entity,omitempty"`
	Time   string   `yaml:"time" validate:"required"`
	Part   string   `yaml:"part,omitempty" validate:"omitempty,oneof=year month day weekday"`
}

// Deriver computes new columns from existing ones.
type Deriver struct {
	logger *slog.Logger
}

// NewDeriver creates a new deriver.
func NewDeriver(logger *slog.Logger) *Deriver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Deriver{logger: logger}
}

// Derive applies the specs in order and returns a new table. An
// elapsed_days spec sorts the table by (entity, time) as a side effect,
// since the computation is only meaningful in chronological order.
func (d *Deriver) Derive(ctx context.Context, t *dataset.Table, specs []DeriveSpec) (*dataset.Table, error) {
	out := t.Clone("")
	for _, spec := range specs {
		var err error
		switch spec.Op {
		case OpElapsedDays:
			err = d.elapsedDays(out, spec)
		case OpDatePart:
			err = d.datePart(out, spec)
		default:
			err = errors.NewConfigError(fmt.Sprintf("unknown derive op %q", spec.Op), nil)
		}
		if err != nil {
			return nil, err
		}
		d.logger.InfoContext(ctx, "derived column",
			slog.String("column", spec.Column),
			slog.String("op", string(spec.Op)))
	}
	return out, nil
}

func (d *Deriver) requireTimeColumn(t *dataset.Table, name string) error {
	idx, ok := t.ColumnIndex(name)
	if !ok {
		return errors.NewSchemaError(fmt.Sprintf("derive: table has no column %q", name))
	}
	if kind := t.Fields()[idx].Kind; kind != dataset.KindTime {
		return errors.NewSchemaError(fmt.Sprintf(
			"derive: column %q is %s, expected time", name, kind))
	}
	return nil
}

func (d *Deriver) elapsedDays(t *dataset.Table, spec DeriveSpec) error {
	if spec.Entity == "" {
		return errors.NewConfigError(
			fmt.Sprintf("derive %q: elapsed_days requires an entity column", spec.Column), nil)
	}
	if !t.HasColumn(spec.Entity) {
		return errors.NewSchemaError(fmt.Sprintf("derive: table has no column %q", spec.Entity))
	}
	if err := d.requireTimeColumn(t, spec.Time); err != nil {
		return err
	}
	if err := t.SortBy(spec.Entity, spec.Time); err != nil {
		return err
	}

	entityIdx, _ := t.ColumnIndex(spec.Entity)
	timeIdx, _ := t.ColumnIndex(spec.Time)

	cells := make([]dataset.Value, t.NumRows())
	var prevEntity string
	var prev dataset.Value
	for i := 0; i < t.NumRows(); i++ {
		row := t.Row(i)
		entity := row[entityIdx].Format()
		ts := row[timeIdx]

		if i == 0 || entity != prevEntity {
			prevEntity = entity
			prev = dataset.Null(dataset.KindTime)
		}

		if ts.IsNull() || prev.IsNull() {
			cells[i] = dataset.Null(dataset.KindFloat)
		} else {
			days := ts.TimeVal().Sub(prev.TimeVal()).Hours() / 24
			cells[i] = dataset.Float(days)
		}
		if !ts.IsNull() {
			prev = ts
		}
	}

	return t.AddColumn(dataset.Field{Name: spec.Column, Kind: dataset.KindFloat}, cells)
}

func (d *Deriver) datePart(t *dataset.Table, spec DeriveSpec) error {
	var part func(time.Time) int64
	switch spec.Part {
	case "year":
		part = func(when time.Time) int64 { return int64(when.Year()) }
	case "month":
		part = func(when time.Time) int64 { return int64(when.Month()) }
	case "day":
		part = func(when time.Time) int64 { return int64(when.Day()) }
	case "weekday":
		// 0 is Monday through 6 is Sunday.
		part = func(when time.Time) int64 { return int64(when.Weekday()+6) % 7 }
	default:
		return errors.NewConfigError(
			fmt.Sprintf("derive %q: unknown date part %q", spec.Column, spec.Part), nil)
	}
	if err := d.requireTimeColumn(t, spec.Time); err != nil {
		return err
	}
	timeIdx, _ := t.ColumnIndex(spec.Time)

	cells := make([]dataset.Value, t.NumRows())
	for i := 0; i < t.NumRows(); i++ {
		ts := t.Row(i)[timeIdx]
		if ts.IsNull() {
			cells[i] = dataset.Null(dataset.KindInt)
			continue
		}
		cells[i] = dataset.Int(part(ts.TimeVal()))
	}

	return t.AddColumn(dataset.Field{Name: spec.Column, Kind: dataset.KindInt}, cells)
}
