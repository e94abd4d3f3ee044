package analysis

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Row is one record keyed by column name. Values are nil, string, bool or a number.
type Row = map[string]any

// Kind is the inferred type of a column.
type Kind string

const (
	KindNumeric     Kind = "numeric"
	KindCategorical Kind = "categorical"
)

// InferKind reports KindNumeric only when every non-null, non-empty value is a
// finite number or a string that parses as one. A single non-numeric value makes
// the whole column categorical. Columns with no usable values are categorical.
func InferKind(values []any) Kind {
	seen := 0
	for _, v := range values {
		if isBlank(v) {
			continue
		}
		if _, ok := toFloat(v); !ok {
			return KindCategorical
		}
		seen++
	}
	if seen == 0 {
		return KindCategorical
	}
	return KindNumeric
}

func isBlank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	}
	return false
}

// toFloat converts numbers and numeric strings. Booleans never count, and
// neither do NaN or infinities.
func toFloat(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int8:
		f = float64(t)
	case int16:
		f = float64(t)
	case int32:
		f = float64(t)
	case int64:
		f = float64(t)
	case uint:
		f = float64(t)
	case uint8:
		f = float64(t)
	case uint16:
		f = float64(t)
	case uint32:
		f = float64(t)
	case uint64:
		f = float64(t)
	case json.Number:
		x, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = x
	case string:
		x, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		f = x
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// jsonSafe replaces non-finite floats with their text form so summaries
// always encode.
func jsonSafe(v any) any {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return strconv.FormatFloat(t, 'g', -1, 64)
		}
	case float32:
		if math.IsNaN(float64(t)) || math.IsInf(float64(t), 0) {
			return strconv.FormatFloat(float64(t), 'g', -1, 32)
		}
	}
	return v
}
