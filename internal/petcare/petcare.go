// Package petcare holds the canonical preparation recipe for the pet
// care datasets: activity logs, health visits, and owner records. It
// expresses the whole recipe as a pipeline.RunSpec so the generic
// runner can execute it.
//
// The recipe normalizes the three raw tables into one dataset:
//
//   - activity types Play/Walk/Rest become Playing/Walking/Resting
//   - health visits appear as activity "Health" with duration 0 and the
//     visit_date column renamed to date
//   - "-" durations become nulls
//   - rows missing pet_id, date, or owner_id are dropped
//   - tables join on pet_id, rows sort by pet_id, date, owner_id and
//     activity type, and columns follow a fixed order
package petcare

import (
	"fmt"
	"path/filepath"
	"strings"

	"petpulse/internal/dataset"
	"petpulse/internal/errors"
	"petpulse/internal/pipeline"
)

// JoinKey is the column shared by all three datasets.
const JoinKey = "pet_id"

// Inputs names the resolved raw files for one run.
type Inputs struct {
	Activities string
	Health     string
	Users      string
}

// datasetMarkers are the filename substrings that identify each raw
// file, in the order the recipe expects them.
var datasetMarkers = []string{"activities", "health", "users"}

// MatchInputs resolves which of the supplied paths is the activities,
// health, and users file by filename substring. Exactly one path must
// match each marker.
func MatchInputs(paths []string) (Inputs, error) {
	var resolved [3]string
	for i, marker := range datasetMarkers {
		var matches []string
		for _, p := range paths {
			if strings.Contains(filepath.Base(p), marker) {
				matches = append(matches, p)
			}
		}
		switch len(matches) {
		case 0:
			return Inputs{}, errors.NewConfigError(
				fmt.Sprintf("none of the supplied filenames contains %q", marker), nil)
		case 1:
			resolved[i] = matches[0]
		default:
			return Inputs{}, errors.NewConfigError(
				fmt.Sprintf("more than one supplied filename contains %q", marker), nil)
		}
	}
	return Inputs{Activities: resolved[0], Health: resolved[1], Users: resolved[2]}, nil
}

// tableName is the loader's naming convention: file base name without
// extension.
func tableName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// activityReplacements normalizes the activity labels that appear in
// raw exports both with and without the -ing suffix.
var activityReplacements = map[string]string{
	"Play": "Playing",
	"Walk": "Walking",
	"Rest": "Resting",
}

// Columns is the canonical column order of the prepared dataset,
// before derived columns.
var Columns = []string{
	"pet_id",
	"date",
	"activity_type",
	"duration_minutes",
	"issue",
	"resolution",
	"owner_id",
	"owner_age_group",
	"pet_type",
}

// SortBy is the canonical record order of the prepared dataset.
var SortBy = []string{"pet_id", "date", "owner_id", "activity_type"}

// Spec builds the full preparation RunSpec for the resolved inputs.
// The prepared dataset is written to outputPath with two derived
// columns appended: days_since_previous (per-pet elapsed days) and
// year.
func Spec(in Inputs, outputPath string) pipeline.RunSpec {
	activities := tableName(in.Activities)
	health := tableName(in.Health)
	users := tableName(in.Users)

	rules := map[string][]pipeline.ColumnRule{
		activities: {
			{Name: "pet_id", Type: dataset.KindString, Trim: true, OnMissing: pipeline.MissingDrop},
			{Name: "date", Type: dataset.KindTime, OnMissing: pipeline.MissingDrop},
			{Name: "activity_type", Type: dataset.KindString, Trim: true, Replace: activityReplacements},
			{Name: "duration_minutes", Type: dataset.KindFloat, Trim: true,
				Replace: map[string]string{"-": ""}},
			{Name: "issue", Type: dataset.KindString, Create: true},
			{Name: "resolution", Type: dataset.KindString, Create: true},
		},
		health: {
			{Name: "pet_id", Type: dataset.KindString, Trim: true, OnMissing: pipeline.MissingDrop},
			{Name: "visit_date", Rename: "date", Type: dataset.KindTime, OnMissing: pipeline.MissingDrop},
			{Name: "issue", Type: dataset.KindString, Trim: true},
			{Name: "resolution", Type: dataset.KindString, Trim: true},
			{Name: "activity_type", Type: dataset.KindString, Create: true,
				OnMissing: pipeline.MissingFill, Fill: "Health"},
			{Name: "duration_minutes", Type: dataset.KindFloat, Create: true,
				OnMissing: pipeline.MissingFill, Fill: "0"},
		},
		users: {
			{Name: "pet_id", Type: dataset.KindString, Trim: true, OnMissing: pipeline.MissingDrop},
			{Name: "owner_id", Type: dataset.KindString, Trim: true, OnMissing: pipeline.MissingDrop},
			{Name: "owner_age_group", Type: dataset.KindString, Trim: true},
			{Name: "pet_type", Type: dataset.KindString, Trim: true},
		},
	}

	columns := append(append([]string(nil), Columns...), "days_since_previous", "year")

	return pipeline.RunSpec{
		Inputs: []string{in.Activities, in.Health, in.Users},
		Rules:  rules,
		Concat: []pipeline.ConcatSpec{
			{Name: "combined_activities", Tables: []string{activities, health}},
		},
		JoinKey: JoinKey,
		Derive: []pipeline.DeriveSpec{
			{Column: "days_since_previous", Op: pipeline.OpElapsedDays, Entity: "pet_id", Time: "date"},
			{Column: "year", Op: pipeline.OpDatePart, Time: "date", Part: "year"},
		},
		Columns:    columns,
		SortBy:     SortBy,
		OutputPath: outputPath,
	}
}
