package analysis

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
)

// ColumnSummary captures the statistics of one column. Exactly one of the
// embedded stat blocks is set, matching Kind.
type ColumnSummary struct {
	Name    string `json:"name"`
	Kind    Kind   `json:"kind"`
	Missing int    `json:"missing"`
	*NumericStats
	*CategoricalStats
}

// NumericStats holds finite-value statistics. Min, Max and Average are nil
// when Count is zero.
type NumericStats struct {
	Count   int      `json:"count"`
	Min     *float64 `json:"min"`
	Max     *float64 `json:"max"`
	Average *float64 `json:"average"`
	Std     *float64 `json:"std,omitempty"`
	Median  *float64 `json:"median,omitempty"`
	P25     *float64 `json:"p25,omitempty"`
	P75     *float64 `json:"p75,omitempty"`

	// Outliers counts values with a robust z-score (MAD) above
	// OutlierThreshold. Only computed for columns with at least
	// minOutlierValues values and a non-zero MAD.
	Outliers         int      `json:"outliers,omitempty"`
	OutlierMaxAbsZ   *float64 `json:"outlierMaxAbsZ,omitempty"`
	OutlierThreshold float64  `json:"outlierThreshold,omitempty"`
}

const (
	minOutlierValues        = 8
	defaultOutlierThreshold = 3.5
)

type CategoricalStats struct {
	UniqueCount     int             `json:"uniqueCount"`
	MostCommon      any             `json:"mostCommon"`
	MostCommonCount int             `json:"mostCommonCount"`
	DistinctSample  []any           `json:"distinctSample"`
	TopValues       []CategoryCount `json:"topValues,omitempty"`
}

type CategoryCount struct {
	Value any `json:"value"`
	Count int `json:"count"`
}

// Summarize computes the summary of a single column for the given kind.
func Summarize(name string, values []any, kind Kind, opt Options) ColumnSummary {
	s := ColumnSummary{Name: name, Kind: kind}
	for _, v := range values {
		if isBlank(v) {
			s.Missing++
		}
	}
	switch {
	case kind == KindNumeric:
		s.NumericStats = summarizeNumeric(values, opt)
	case s.Missing == len(values):
		// nothing but blanks: no categories at all
		s.Kind = KindCategorical
		s.CategoricalStats = &CategoricalStats{DistinctSample: []any{}}
	default:
		s.Kind = KindCategorical
		s.CategoricalStats = summarizeCategorical(values, opt)
	}
	return s
}

func summarizeNumeric(values []any, opt Options) *NumericStats {
	var (
		n        int
		mean, m2 float64
		lo       = math.Inf(1)
		hi       = math.Inf(-1)
		finite   []float64
	)
	// Welford accumulation
	for _, v := range values {
		x, ok := toFloat(v)
		if !ok {
			continue
		}
		finite = append(finite, x)
		n++
		if x < lo {
			lo = x
		}
		if x > hi {
			hi = x
		}
		delta := x - mean
		mean += delta / float64(n)
		m2 += delta * (x - mean)
	}
	st := &NumericStats{Count: n}
	if n == 0 {
		return st
	}
	// rounding can push the running mean a hair outside the observed range
	if mean < lo {
		mean = lo
	}
	if mean > hi {
		mean = hi
	}
	st.Min, st.Max, st.Average = ptr(lo), ptr(hi), ptr(mean)
	if n > 1 {
		st.Std = ptr(math.Sqrt(m2 / float64(n-1)))
	}

	sort.Float64s(finite)
	st.Median = ptr(quantile(finite, 0.5))
	st.P25 = ptr(quantile(finite, 0.25))
	st.P75 = ptr(quantile(finite, 0.75))
	if n >= minOutlierValues {
		countOutliers(st, finite, opt.OutlierThreshold)
	}
	return st
}

// countOutliers flags values by robust z-score 0.6745*(x-median)/MAD.
// sorted must be in ascending order.
func countOutliers(st *NumericStats, sorted []float64, threshold float64) {
	if threshold <= 0 {
		threshold = defaultOutlierThreshold
	}
	median := quantile(sorted, 0.5)
	dev := make([]float64, len(sorted))
	for i, x := range sorted {
		dev[i] = math.Abs(x - median)
	}
	sort.Float64s(dev)
	mad := quantile(dev, 0.5)
	if mad == 0 {
		return
	}
	maxAbsZ := 0.0
	for _, x := range sorted {
		z := math.Abs(0.6745 * (x - median) / mad)
		if z > threshold {
			st.Outliers++
		}
		if z > maxAbsZ {
			maxAbsZ = z
		}
	}
	st.OutlierThreshold = threshold
	st.OutlierMaxAbsZ = ptr(maxAbsZ)
}

// quantile interpolates linearly between the closest ranks of sorted.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}

type catEntry struct {
	value any
	count int
}

func summarizeCategorical(values []any, opt Options) *CategoricalStats {
	counts := map[string]*catEntry{}
	var order []*catEntry
	for _, v := range values {
		k := categoryKey(v)
		e, ok := counts[k]
		if !ok {
			e = &catEntry{value: jsonSafe(v)}
			counts[k] = e
			order = append(order, e)
		}
		e.count++
	}

	st := &CategoricalStats{UniqueCount: len(order), DistinctSample: []any{}}
	// order is by first occurrence, so a strict comparison keeps the earliest on ties
	var best *catEntry
	for _, e := range order {
		if best == nil || e.count > best.count {
			best = e
		}
	}
	if best != nil {
		st.MostCommon = best.value
		st.MostCommonCount = best.count
	}

	limit := opt.DistinctSampleSize
	if limit < 0 {
		limit = 0
	}
	for i := 0; i < len(order) && i < limit; i++ {
		st.DistinctSample = append(st.DistinctSample, order[i].value)
	}

	if opt.TopValues > 0 && len(order) > 0 {
		tops := make([]CategoryCount, len(order))
		for i, e := range order {
			tops[i] = CategoryCount{Value: e.value, Count: e.count}
		}
		sort.SliceStable(tops, func(i, j int) bool { return tops[i].Count > tops[j].Count })
		if len(tops) > opt.TopValues {
			tops = tops[:opt.TopValues]
		}
		st.TopValues = tops
	}
	return st
}

// categoryKey tags each value with its type so that 1 and "1" stay distinct
// while nil and "" remain categories of their own.
func categoryKey(v any) string {
	switch t := v.(type) {
	case nil:
		return "n:"
	case string:
		return "s:" + t
	case bool:
		return "b:" + strconv.FormatBool(t)
	case json.Number:
		return "f:" + t.String()
	}
	if f, ok := anyNumber(v); ok {
		return "f:" + strconv.FormatFloat(f, 'g', -1, 64)
	}
	return fmt.Sprintf("%T:%v", v, v)
}

// anyNumber is toFloat without the finiteness filter.
func anyNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	}
	if f, ok := toFloat(v); ok {
		return f, true
	}
	return 0, false
}

func ptr(f float64) *float64 { return &f }
