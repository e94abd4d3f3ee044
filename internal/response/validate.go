package response

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

// Validate checks a JSON-decoded value (maps, slices, strings, float64 or
// json.Number, bools, nil) and returns the typed response it describes.
//
// Checks run in order: discriminant, shape, then cross-references. Nothing is
// coerced; a quoted number where a number is expected is a ShapeMismatch.
// Validate never panics and never returns a partial response.
func Validate(candidate any) (Response, error) {
	obj, ok := candidate.(map[string]any)
	if !ok {
		return nil, &SchemaError{Code: UnknownKind, Reason: fmt.Sprintf("expected an object, got %s", typeName(candidate))}
	}
	rawKind, ok := obj["type"].(string)
	if !ok {
		return nil, &SchemaError{Code: UnknownKind, Reason: "missing string field \"type\""}
	}
	kind := Kind(rawKind)
	switch kind {
	case KindText, KindTable, KindChart:
	default:
		return nil, &SchemaError{Code: UnknownKind, Key: rawKind}
	}

	if err := onlyKeys(obj, "", "type", "content", "data"); err != nil {
		return nil, err
	}
	content, ok := obj["content"].(string)
	if !ok {
		return nil, shapeErr("content", "expected string, got %s", typeName(obj["content"]))
	}

	switch kind {
	case KindText:
		if d, present := obj["data"]; present && d != nil {
			return nil, shapeErr("data", "text responses carry no data")
		}
		return &Text{Content: content}, nil
	case KindTable:
		return validateTable(content, obj["data"])
	default:
		return validateChart(content, obj["data"])
	}
}

func validateTable(content string, rawData any) (Response, error) {
	data, ok := rawData.(map[string]any)
	if !ok {
		return nil, shapeErr("data", "expected object, got %s", typeName(rawData))
	}
	if err := onlyKeys(data, "data.", "headers", "rows"); err != nil {
		return nil, err
	}
	headers, err := stringList(data["headers"], "data.headers")
	if err != nil {
		return nil, err
	}
	allowed := make(map[string]bool, len(headers))
	for i, h := range headers {
		if allowed[h] {
			return nil, shapeErr(fmt.Sprintf("data.headers[%d]", i), "duplicate header %q", h)
		}
		allowed[h] = true
	}
	rows, err := rowList(data["rows"], func(path, key string, v any) error {
		if !allowed[key] {
			return shapeErr(path, "key is not a header")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, h := range headers {
		if !anyRowHas(rows, h) {
			return nil, &SchemaError{Code: DanglingReference, Key: h, Reason: "header"}
		}
	}
	return &Table{Content: content, Headers: headers, Rows: rows}, nil
}

func validateChart(content string, rawData any) (Response, error) {
	data, ok := rawData.(map[string]any)
	if !ok {
		return nil, shapeErr("data", "expected object, got %s", typeName(rawData))
	}
	if err := onlyKeys(data, "data.", "chartConfig", "rows"); err != nil {
		return nil, err
	}
	cfg, err := chartConfig(data["chartConfig"])
	if err != nil {
		return nil, err
	}
	series := make(map[string]bool, len(cfg.YAxis))
	for _, y := range cfg.YAxis {
		series[y] = true
	}
	rows, err := rowList(data["rows"], func(path, key string, v any) error {
		if !series[key] || v == nil {
			return nil
		}
		if _, isNum := v.(float64); !isNum {
			return shapeErr(path, "series values must be numbers, got %s", typeName(v))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !anyRowHas(rows, cfg.XAxis) {
		return nil, &SchemaError{Code: DanglingReference, Key: cfg.XAxis, Reason: "xAxis"}
	}
	for _, y := range cfg.YAxis {
		if !anyRowHas(rows, y) {
			return nil, &SchemaError{Code: DanglingReference, Key: y, Reason: "yAxis"}
		}
	}
	return &Chart{Content: content, Config: cfg, Rows: rows}, nil
}

func chartConfig(raw any) (ChartConfig, error) {
	const at = "data.chartConfig"
	var cfg ChartConfig
	obj, ok := raw.(map[string]any)
	if !ok {
		return cfg, shapeErr(at, "expected object, got %s", typeName(raw))
	}
	if err := onlyKeys(obj, at+".", "type", "xAxis", "yAxis", "title", "stacked", "percentage", "layout"); err != nil {
		return cfg, err
	}
	switch t, _ := obj["type"].(string); ChartType(t) {
	case ChartBar, ChartLine, ChartPie:
		cfg.Type = ChartType(t)
	default:
		return cfg, shapeErr(at+".type", "expected one of bar, line, pie, got %s", describe(obj["type"]))
	}
	x, ok := obj["xAxis"].(string)
	if !ok || x == "" {
		return cfg, shapeErr(at+".xAxis", "expected non-empty string, got %s", describe(obj["xAxis"]))
	}
	cfg.XAxis = x
	ys, err := stringList(obj["yAxis"], at+".yAxis")
	if err != nil {
		return cfg, err
	}
	cfg.YAxis = ys

	if v, present := obj["title"]; present && v != nil {
		s, ok := v.(string)
		if !ok {
			return cfg, shapeErr(at+".title", "expected string, got %s", typeName(v))
		}
		cfg.Title = s
	}
	for _, f := range []struct {
		key string
		dst *bool
	}{{"stacked", &cfg.Stacked}, {"percentage", &cfg.Percentage}} {
		v, present := obj[f.key]
		if !present || v == nil {
			continue
		}
		b, ok := v.(bool)
		if !ok {
			return cfg, shapeErr(at+"."+f.key, "expected boolean, got %s", typeName(v))
		}
		*f.dst = b
	}
	if v, present := obj["layout"]; present && v != nil {
		switch l, _ := v.(string); Layout(l) {
		case LayoutVertical, LayoutHorizontal:
			cfg.Layout = Layout(l)
		default:
			return cfg, shapeErr(at+".layout", "expected vertical or horizontal, got %s", describe(v))
		}
	}
	return cfg, nil
}

// stringList requires a non-empty array of non-empty strings.
func stringList(raw any, at string) ([]string, error) {
	arr, ok := raw.([]any)
	if !ok {
		return nil, shapeErr(at, "expected array of strings, got %s", typeName(raw))
	}
	if len(arr) == 0 {
		return nil, shapeErr(at, "must not be empty")
	}
	out := make([]string, len(arr))
	for i, v := range arr {
		s, ok := v.(string)
		if !ok || s == "" {
			return nil, shapeErr(fmt.Sprintf("%s[%d]", at, i), "expected non-empty string, got %s", describe(v))
		}
		out[i] = s
	}
	return out, nil
}

// rowList requires an array of objects with scalar values. check runs for
// each key in sorted order so errors are deterministic.
func rowList(raw any, check func(path, key string, v any) error) ([]Row, error) {
	arr, ok := raw.([]any)
	if !ok {
		return nil, shapeErr("data.rows", "expected array of objects, got %s", typeName(raw))
	}
	rows := make([]Row, len(arr))
	for i, r := range arr {
		obj, ok := r.(map[string]any)
		if !ok {
			return nil, shapeErr(fmt.Sprintf("data.rows[%d]", i), "expected object, got %s", typeName(r))
		}
		row := make(Row, len(obj))
		for _, k := range sortedKeys(obj) {
			path := fmt.Sprintf("data.rows[%d].%s", i, k)
			v, err := scalar(obj[k], path)
			if err != nil {
				return nil, err
			}
			if err := check(path, k, v); err != nil {
				return nil, err
			}
			row[k] = v
		}
		rows[i] = row
	}
	return rows, nil
}

// scalar normalizes numbers to float64 and rejects nested values.
func scalar(v any, path string) (any, error) {
	switch t := v.(type) {
	case nil, string, bool:
		return t, nil
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil, shapeErr(path, "number is not finite")
		}
		return t, nil
	case json.Number:
		f, err := t.Float64()
		if err != nil || math.IsInf(f, 0) {
			return nil, shapeErr(path, "number %s is out of range", t)
		}
		return f, nil
	}
	return nil, shapeErr(path, "expected scalar, got %s", typeName(v))
}

func onlyKeys(obj map[string]any, prefix string, allowed ...string) error {
	ok := make(map[string]bool, len(allowed))
	for _, k := range allowed {
		ok[k] = true
	}
	for _, k := range sortedKeys(obj) {
		if !ok[k] {
			return shapeErr(prefix+k, "unknown field")
		}
	}
	return nil
}

func anyRowHas(rows []Row, key string) bool {
	for _, r := range rows {
		if _, ok := r[key]; ok {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, json.Number:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	}
	return fmt.Sprintf("%T", v)
}

func describe(v any) string {
	if s, ok := v.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	return typeName(v)
}
