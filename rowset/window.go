// SPDX-FileCopyrightText: 2025 The quarry Authors
// SPDX-License-Identifier: Apache-2.0

// Package rowset holds the pure post-processing steps of the retrieval
// pipeline: time-window filtering, field projection and pagination.
package rowset

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/glowdash/quarry/model"
)

var ErrBadTimeBound = errors.New("time bound is not a recognized ISO-8601 value")

// boundLayouts are accepted for the from/to request parameters and for
// string-typed timestamp values inside records.
var boundLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Window is an optional [From, To] time range. A nil bound is open.
type Window struct {
	From *time.Time
	To   *time.Time
}

// Empty reports whether neither bound is set.
func (w Window) Empty() bool {
	return w.From == nil && w.To == nil
}

// ParseWindow parses the optional from/to strings. Empty strings leave the
// corresponding bound open; anything else must parse as a supported layout.
func ParseWindow(from, to string) (Window, error) {
	var w Window
	if from != "" {
		t, err := parseBound(from)
		if err != nil {
			return Window{}, fmt.Errorf("%w: from=%q", ErrBadTimeBound, from)
		}
		w.From = &t
	}
	if to != "" {
		t, err := parseBound(to)
		if err != nil {
			return Window{}, fmt.Errorf("%w: to=%q", ErrBadTimeBound, to)
		}
		w.To = &t
	}
	return w, nil
}

func parseBound(s string) (time.Time, error) {
	for _, layout := range boundLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrBadTimeBound
}

// FilterByWindow narrows records to rows whose timestamp field parses and
// falls within the window. Rows with a missing or unparsable timestamp are
// always excluded, even when both bounds are open.
func FilterByWindow(records []model.Record, field string, w Window) []model.Record {
	out := make([]model.Record, 0, len(records))
	for _, r := range records {
		v, ok := r[field]
		if !ok || v == nil {
			continue
		}
		ts, ok := parseTimestamp(v)
		if !ok {
			continue
		}
		if w.From != nil && ts.Before(*w.From) {
			continue
		}
		if w.To != nil && ts.After(*w.To) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// parseTimestamp accepts native times, ISO-8601 strings, and numeric epochs
// (seconds, or milliseconds for values past the year 33658).
func parseTimestamp(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		if ts, err := parseBound(t); err == nil {
			return ts, true
		}
		if epoch, err := strconv.ParseFloat(t, 64); err == nil {
			return fromEpoch(epoch), true
		}
		return time.Time{}, false
	case float64:
		return fromEpoch(t), true
	case int64:
		return fromEpoch(float64(t)), true
	case int:
		return fromEpoch(float64(t)), true
	}
	return time.Time{}, false
}

func fromEpoch(epoch float64) time.Time {
	// Anything this large cannot be a plausible seconds epoch.
	if epoch > 1e12 {
		return time.UnixMilli(int64(epoch)).UTC()
	}
	return time.Unix(int64(epoch), 0).UTC()
}
