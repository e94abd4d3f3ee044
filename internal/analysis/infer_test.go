package analysis

import (
	"encoding/json"
	"testing"
)

func TestInferKind(t *testing.T) {
	cases := []struct {
		name   string
		values []any
		want   Kind
	}{
		{"numbers", []any{1.0, 2.5, -3.0}, KindNumeric},
		{"numeric strings", []any{"1", " 2.5 ", "1e3"}, KindNumeric},
		{"mixed with blanks", []any{nil, "", "4", 5.0, "  "}, KindNumeric},
		{"one bad value demotes", []any{"1", "2", "abc", "4"}, KindCategorical},
		{"bools are not numbers", []any{true, false}, KindCategorical},
		{"bool among numbers", []any{1.0, true}, KindCategorical},
		{"unit suffix", []any{"12kg", "13kg"}, KindCategorical},
		{"nan string", []any{"1", "NaN"}, KindCategorical},
		{"inf string", []any{"Inf", "2"}, KindCategorical},
		{"all null", []any{nil, nil, ""}, KindCategorical},
		{"empty", nil, KindCategorical},
		{"ints", []any{1, int64(2), uint8(3)}, KindNumeric},
		{"json numbers", []any{json.Number("3.5"), json.Number("4")}, KindNumeric},
		{"locale comma", []any{"1,5"}, KindCategorical},
	}
	for _, c := range cases {
		if got := InferKind(c.values); got != c.want {
			t.Errorf("%s: got %s, want %s", c.name, got, c.want)
		}
	}
}

func TestInferKindDeterministic(t *testing.T) {
	vals := []any{"3", nil, "x", 4.0}
	first := InferKind(vals)
	for i := 0; i < 10; i++ {
		if got := InferKind(vals); got != first {
			t.Fatalf("run %d: got %s, want %s", i, got, first)
		}
	}
}
