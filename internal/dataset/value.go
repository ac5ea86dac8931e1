// Package dataset provides the in-memory table representation used by the
// pipeline. Tables carry an explicit schema of typed columns; cells are
// tagged Values that are either null or hold exactly the declared type.
package dataset

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind enumerates the column types a table can declare.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindFloat
	KindTime
	KindBool
)

// kindNames maps kinds to their configuration spelling.
var kindNames = map[Kind]string{
	KindString: "string",
	KindInt:    "int",
	KindFloat:  "float",
	KindTime:   "time",
	KindBool:   "bool",
}

// String returns the configuration spelling of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// KindFromString parses the configuration spelling of a kind.
func KindFromString(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == strings.ToLower(strings.TrimSpace(s)) {
			return k, nil
		}
	}
	return KindString, fmt.Errorf("unknown column type %q", s)
}

// UnmarshalYAML lets column kinds appear as plain strings in YAML config.
func (k *Kind) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	parsed, err := KindFromString(raw)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// MarshalYAML renders the kind with its configuration spelling.
func (k Kind) MarshalYAML() (interface{}, error) {
	return k.String(), nil
}

// timeLayouts are the input date formats accepted during coercion,
// tried in order.
var timeLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"01/02/2006",
	"2006/01/02",
}

// TimeFormat is the canonical output format for date-only time cells.
const TimeFormat = "2006-01-02"

// TimestampFormat is the output format for time cells that carry a
// clock component.
const TimestampFormat = "2006-01-02 15:04:05"

// Value is a tagged cell. The zero Value is a null string cell.
type Value struct {
	kind  Kind
	valid bool
	s     string
	i     int64
	f     float64
	b     bool
	t     time.Time
}

// String creates a string cell.
func String(s string) Value { return Value{kind: KindString, valid: true, s: s} }

// Int creates an int cell.
func Int(i int64) Value { return Value{kind: KindInt, valid: true, i: i} }

// Float creates a float cell.
func Float(f float64) Value { return Value{kind: KindFloat, valid: true, f: f} }

// Bool creates a bool cell.
func Bool(b bool) Value { return Value{kind: KindBool, valid: true, b: b} }

// Time creates a time cell.
func Time(t time.Time) Value { return Value{kind: KindTime, valid: true, t: t} }

// Null creates a null cell of the given kind.
func Null(k Kind) Value { return Value{kind: k} }

// Kind returns the declared kind of the cell.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the cell is null.
func (v Value) IsNull() bool { return !v.valid }

// Str returns the string payload, or "" for null cells.
func (v Value) Str() string { return v.s }

// Int64 returns the int payload, or 0 for null cells.
func (v Value) Int64() int64 { return v.i }

// Float64 returns the float payload, or 0 for null cells.
func (v Value) Float64() float64 { return v.f }

// BoolVal returns the bool payload, or false for null cells.
func (v Value) BoolVal() bool { return v.b }

// TimeVal returns the time payload, or the zero time for null cells.
func (v Value) TimeVal() time.Time { return v.t }

// Equal reports whether two cells have the same kind and payload.
// Two nulls of the same kind are equal.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind || v.valid != o.valid {
		return false
	}
	if !v.valid {
		return true
	}
	switch v.kind {
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindTime:
		return v.t.Equal(o.t)
	case KindBool:
		return v.b == o.b
	default:
		return v.s == o.s
	}
}

// Format renders the cell for CSV output. Null cells render as the
// empty string; midnight times render date-only and times with a clock
// component keep it; floats use the shortest exact representation.
// Every rendering parses back to an equal cell.
func (v Value) Format() string {
	if !v.valid {
		return ""
	}
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case KindTime:
		if h, m, s := v.t.Clock(); h != 0 || m != 0 || s != 0 {
			return v.t.Format(TimestampFormat)
		}
		return v.t.Format(TimeFormat)
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return v.s
	}
}

// Parse coerces a raw string into a cell of the given kind. The empty
// string always parses to null. Times are parsed against the accepted
// layouts as naive UTC.
func Parse(k Kind, raw string) (Value, error) {
	if raw == "" {
		return Null(k), nil
	}
	switch k {
	case KindString:
		return String(raw), nil
	case KindInt:
		i, err := strconv.ParseInt(strings.ReplaceAll(raw, ",", ""), 10, 64)
		if err != nil {
			return Null(k), fmt.Errorf("cannot parse %q as int", raw)
		}
		return Int(i), nil
	case KindFloat:
		f, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
		if err != nil {
			return Null(k), fmt.Errorf("cannot parse %q as float", raw)
		}
		return Float(f), nil
	case KindBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return Null(k), fmt.Errorf("cannot parse %q as bool", raw)
		}
		return Bool(b), nil
	case KindTime:
		for _, layout := range timeLayouts {
			if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
				// Normalize to UTC at whole-second precision so the
				// rendered form parses back to an equal cell.
				return Time(t.UTC().Truncate(time.Second)), nil
			}
		}
		return Null(k), fmt.Errorf("cannot parse %q as time", raw)
	}
	return Null(k), fmt.Errorf("unknown kind %v", k)
}

// Less orders cells of the same kind; null sorts before any value.
// Used for stable table sorting.
func Less(a, b Value) bool {
	if a.IsNull() != b.IsNull() {
		return a.IsNull()
	}
	if a.IsNull() {
		return false
	}
	switch a.kind {
	case KindInt:
		return a.i < b.i
	case KindFloat:
		return a.f < b.f
	case KindTime:
		return a.t.Before(b.t)
	case KindBool:
		return !a.b && b.b
	default:
		return a.s < b.s
	}
}
