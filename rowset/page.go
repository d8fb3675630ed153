// SPDX-FileCopyrightText: 2025 The quarry Authors
// SPDX-License-Identifier: Apache-2.0

package rowset

import "github.com/glowdash/quarry/model"

// Project reduces every record to the named fields. Requested fields a
// record does not have are silently absent from the output. An empty field
// list returns the input unchanged.
func Project(records []model.Record, fields []string) []model.Record {
	if len(fields) == 0 {
		return records
	}
	out := make([]model.Record, 0, len(records))
	for _, r := range records {
		projected := make(model.Record, len(fields))
		for _, f := range fields {
			if v, ok := r[f]; ok {
				projected[f] = v
			}
		}
		out = append(out, projected)
	}
	return out
}

// Paginate slices the page-th pageSize-sized window (1-based) out of the
// records and reports the total length before slicing. Out-of-range pages
// return an empty, non-nil slice.
func Paginate(records []model.Record, page, pageSize int) ([]model.Record, int) {
	total := len(records)
	start := (page - 1) * pageSize
	if start < 0 || start >= total {
		return []model.Record{}, total
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return records[start:end], total
}
