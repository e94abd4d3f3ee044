package response

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		kind Kind
		body string
	}{
		{"plain json", `{"type":"text","content":"hi"}`, KindText, "hi"},
		{"fenced json", "```json\n{\"type\":\"table\",\"content\":\"t\",\"data\":{\"headers\":[\"a\"],\"rows\":[{\"a\":1}]}}\n```", KindTable, "t"},
		{"bare fence", "```\n{\"type\":\"text\",\"content\":\"x\"}\n```", KindText, "x"},
		{"prose", "  The average price is 12.5.\n", KindText, "The average price is 12.5."},
		{"fenced prose", "```\nnot json\n```", KindText, "not json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Parse(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, r.Kind())
			assert.Equal(t, tt.body, r.Body())
		})
	}
}

func TestParseKeepsLargeIntegersExact(t *testing.T) {
	r, err := Parse(`{"type":"table","content":"","data":{"headers":["n"],"rows":[{"n":12345678901}]}}`)
	require.NoError(t, err)
	assert.Equal(t, 12345678901.0, r.(*Table).Rows[0]["n"])
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		code  Code
		field string
	}{
		{"empty", "   ", ShapeMismatch, "$"},
		{"truncated", `{"type":"text","content":"h`, ShapeMismatch, "$"},
		{"trailing", `{"type":"text","content":"h"} extra`, ShapeMismatch, "$"},
		{"two objects", `{"type":"text","content":"a"}{"type":"text","content":"b"}`, ShapeMismatch, "$"},
		{"unknown kind", `{"type":"map","content":"x"}`, UnknownKind, ""},
		{"huge number", `{"type":"chart","content":"","data":{"chartConfig":{"type":"bar","xAxis":"a","yAxis":["b"]},"rows":[{"a":"x","b":1e999}]}}`, ShapeMismatch, "data.rows[0].b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Parse(tt.raw)
			assert.Nil(t, r)
			var se *SchemaError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.code, se.Code)
			if tt.field != "" {
				assert.Equal(t, tt.field, se.Field)
			}
		})
	}
}
