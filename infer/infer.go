// SPDX-FileCopyrightText: 2025 The quarry Authors
// SPDX-License-Identifier: Apache-2.0

// Package infer derives a semantic type per column from a sample of records.
// Inference is pure and best-effort: it performs no I/O and never fails.
package infer

import (
	"math"
	"regexp"
	"strconv"
	"time"

	"github.com/glowdash/quarry/model"
)

// ColumnType is the inferred semantic type of a column.
type ColumnType string

const (
	TypeDate     ColumnType = "date"
	TypeDateTime ColumnType = "datetime"
	TypeBoolean  ColumnType = "boolean"
	TypeInteger  ColumnType = "integer"
	TypeNumber   ColumnType = "number"
	TypeObject   ColumnType = "object"
	TypeArray    ColumnType = "array"
	TypeString   ColumnType = "string"
	TypeUnknown  ColumnType = "unknown"
)

var plainDateRegex = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// datetimeLayouts are the ISO-8601 variants (and close relatives) accepted
// by the datetime rule. Plain dates are handled by the stricter date rule
// that runs first.
var datetimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05.000Z0700",
	"2006-01-02",
}

// Columns infers a type for every named column across the sample. Columns
// absent from every record come back as TypeUnknown.
func Columns(records []model.Record, columns []string) map[string]ColumnType {
	types := make(map[string]ColumnType, len(columns))
	for _, col := range columns {
		values := make([]interface{}, 0, len(records))
		for _, r := range records {
			v, ok := r[col]
			if !ok || v == nil {
				continue
			}
			if s, isString := v.(string); isString && s == "" {
				continue
			}
			values = append(values, v)
		}
		types[col] = Column(values)
	}
	return types
}

// Column infers the type of a single column from its non-empty values.
// The rules run in order and the first rule every value satisfies wins, so
// a single outlier pushes the column to the next, more permissive rule.
func Column(values []interface{}) ColumnType {
	if len(values) == 0 {
		return TypeUnknown
	}

	if all(values, isObject) {
		return TypeObject
	}
	if all(values, isArray) {
		return TypeArray
	}
	if all(values, isPlainDate) {
		return TypeDate
	}
	if all(values, isDateTime) {
		return TypeDateTime
	}
	if all(values, isBoolean) {
		return TypeBoolean
	}
	if all(values, isNumeric) {
		if all(values, isWholeNumber) {
			return TypeInteger
		}
		return TypeNumber
	}
	return TypeString
}

func all(values []interface{}, pred func(interface{}) bool) bool {
	for _, v := range values {
		if !pred(v) {
			return false
		}
	}
	return true
}

func isObject(v interface{}) bool {
	_, ok := v.(map[string]interface{})
	return ok
}

func isArray(v interface{}) bool {
	switch v.(type) {
	case []interface{}, []string, []float64:
		return true
	}
	return false
}

func isPlainDate(v interface{}) bool {
	s, ok := v.(string)
	if !ok || !plainDateRegex.MatchString(s) {
		return false
	}
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

func isDateTime(v interface{}) bool {
	switch t := v.(type) {
	case time.Time:
		return true
	case string:
		// Numeric strings parse under no layout, so they fall through to
		// the number rule.
		for _, layout := range datetimeLayouts {
			if _, err := time.Parse(layout, t); err == nil {
				return true
			}
		}
	}
	return false
}

// isBoolean accepts native booleans and the literal strings "true"/"false"
// only. Other truthy encodings ("1"/"0", "yes"/"no") intentionally do not
// qualify.
func isBoolean(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return true
	case string:
		return t == "true" || t == "false"
	}
	return false
}

func asFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	}
	return 0, false
}

func isNumeric(v interface{}) bool {
	_, ok := asFloat(v)
	return ok
}

func isWholeNumber(v interface{}) bool {
	f, ok := asFloat(v)
	return ok && math.Trunc(f) == f
}
