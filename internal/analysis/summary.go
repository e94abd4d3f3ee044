package analysis

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/sourcegraph/conc/iter"
)

// Options controls how a dataset summary is built.
type Options struct {
	// SampleSize is the number of leading rows kept verbatim.
	SampleSize int
	// DistinctSampleSize caps the distinct values listed per categorical column.
	DistinctSampleSize int
	// TopValues caps the frequency table per categorical column; 0 disables it.
	TopValues int
	// FullEmbed keeps every row and skips per-column summaries. The result is
	// not size-bounded.
	FullEmbed bool
	// MaxBytes bounds the JSON encoding of the summary; 0 means unbounded.
	MaxBytes int
	// MaxCellChars clips long strings in sample rows.
	MaxCellChars int
	// OutlierThreshold is the robust z-score above which a numeric value
	// counts as an outlier. 0 means 3.5.
	OutlierThreshold float64
}

// DefaultOptions returns reasonable defaults for dataset summaries.
func DefaultOptions() Options {
	return Options{
		SampleSize:         3,
		DistinctSampleSize: 10,
		TopValues:          5,
		MaxBytes:           32 << 10,
		MaxCellChars:       80,
		OutlierThreshold:   defaultOutlierThreshold,
	}
}

// DatasetSummary is the immutable, bounded description of an uploaded table
// that accompanies every question sent to the model.
type DatasetSummary struct {
	Name      string                   `json:"name,omitempty"`
	RowCount  int                      `json:"rowCount"`
	Columns   []string                 `json:"columns"`
	PerColumn map[string]ColumnSummary `json:"perColumn"`
	Sample    []Row                    `json:"sample"`
	Rows      []Row                    `json:"rows,omitempty"`
	FullEmbed bool                     `json:"fullEmbed,omitempty"`
	Truncated bool                     `json:"truncated,omitempty"`
	Warnings  []string                 `json:"warnings,omitempty"`
}

// Build summarizes rows. When columns is empty the column set is the sorted
// union of row keys. An empty input yields an empty summary, not an error.
func Build(rows []Row, columns []string, opt Options) *DatasetSummary {
	ds := &DatasetSummary{
		RowCount:  len(rows),
		Columns:   []string{},
		PerColumn: map[string]ColumnSummary{},
		Sample:    []Row{},
	}
	if len(rows) == 0 {
		return ds
	}
	if len(columns) == 0 {
		columns = unionKeys(rows)
	}
	ds.Columns = append(ds.Columns, columns...)

	if opt.FullEmbed {
		ds.FullEmbed = true
		ds.Rows = make([]Row, len(rows))
		for i, r := range rows {
			ds.Rows[i] = cloneRow(r, columns, 0)
		}
		ds.Sample = sampleRows(rows, columns, opt.SampleSize, opt.MaxCellChars)
		ds.Warnings = append(ds.Warnings, fmt.Sprintf("full embed enabled: all %d rows included, summary is not size-bounded", len(rows)))
		return ds
	}

	summaries := iter.Map(columns, func(name *string) ColumnSummary {
		values := make([]any, len(rows))
		for i, r := range rows {
			values[i] = r[*name]
		}
		return Summarize(*name, values, InferKind(values), opt)
	})
	for _, s := range summaries {
		ds.PerColumn[s.Name] = s
	}
	ds.Sample = sampleRows(rows, columns, opt.SampleSize, opt.MaxCellChars)

	if opt.MaxBytes > 0 {
		ds.fitBudget(opt.MaxBytes)
	}
	return ds
}

// Size returns the length of the JSON encoding.
func (ds *DatasetSummary) Size() int {
	b, err := json.Marshal(ds)
	if err != nil {
		return 0
	}
	return len(b)
}

// fitBudget shrinks the summary in stages until it fits: the sample first,
// then categorical samples, then trailing per-column summaries. Each stage
// that changes anything leaves a warning.
func (ds *DatasetSummary) fitBudget(limit int) {
	if ds.Size() <= limit {
		return
	}

	if n := len(ds.Sample); n > 0 {
		for len(ds.Sample) > 0 && ds.Size() > limit {
			ds.Sample = ds.Sample[:len(ds.Sample)/2]
		}
		ds.warn(fmt.Sprintf("sample reduced from %d to %d rows to fit %d-byte budget", n, len(ds.Sample), limit))
	}
	if ds.Size() <= limit {
		return
	}

	if ds.trimCategorical(limit) {
		ds.warn(fmt.Sprintf("categorical value samples trimmed to fit %d-byte budget", limit))
	}
	if ds.Size() <= limit {
		return
	}

	var dropped []string
	note := -1
	for i := len(ds.Columns) - 1; i >= 0 && ds.Size() > limit; i-- {
		name := ds.Columns[i]
		if _, ok := ds.PerColumn[name]; !ok {
			continue
		}
		delete(ds.PerColumn, name)
		dropped = append([]string{name}, dropped...)
		msg := fmt.Sprintf("per-column summaries omitted for %d columns to fit %d-byte budget: %s", len(dropped), limit, strings.Join(dropped, ", "))
		if note < 0 {
			ds.warn(msg)
			note = len(ds.Warnings) - 1
		} else {
			ds.Warnings[note] = msg
		}
	}
	if ds.Size() > limit {
		ds.warn(fmt.Sprintf("summary still exceeds %d-byte budget", limit))
	}
}

func (ds *DatasetSummary) trimCategorical(limit int) bool {
	changed := false
	for keep := maxCategorical(ds) / 2; ; keep /= 2 {
		for name, s := range ds.PerColumn {
			if s.CategoricalStats == nil {
				continue
			}
			if len(s.DistinctSample) <= keep && len(s.TopValues) <= keep {
				continue
			}
			cs := *s.CategoricalStats
			if len(cs.DistinctSample) > keep {
				cs.DistinctSample = cs.DistinctSample[:keep]
			}
			if len(cs.TopValues) > keep {
				cs.TopValues = cs.TopValues[:keep]
			}
			if len(cs.TopValues) == 0 {
				cs.TopValues = nil
			}
			s.CategoricalStats = &cs
			ds.PerColumn[name] = s
			changed = true
		}
		if keep == 0 || ds.Size() <= limit {
			return changed
		}
	}
}

func maxCategorical(ds *DatasetSummary) int {
	m := 0
	for _, s := range ds.PerColumn {
		if s.CategoricalStats == nil {
			continue
		}
		if n := len(s.DistinctSample); n > m {
			m = n
		}
		if n := len(s.TopValues); n > m {
			m = n
		}
	}
	return m
}

func (ds *DatasetSummary) warn(msg string) {
	ds.Truncated = true
	ds.Warnings = append(ds.Warnings, msg)
}

func sampleRows(rows []Row, columns []string, n, maxChars int) []Row {
	if n < 0 {
		n = 0
	}
	if n > len(rows) {
		n = len(rows)
	}
	out := make([]Row, 0, n)
	for _, r := range rows[:n] {
		out = append(out, cloneRow(r, columns, maxChars))
	}
	return out
}

func cloneRow(r Row, columns []string, maxChars int) Row {
	out := make(Row, len(columns))
	for _, c := range columns {
		v := jsonSafe(r[c])
		if s, ok := v.(string); ok && maxChars > 0 {
			v = clip(s, maxChars)
		}
		out[c] = v
	}
	return out
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}

func unionKeys(rows []Row) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, r := range rows {
		for k := range r {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
