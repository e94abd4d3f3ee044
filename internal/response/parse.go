package response

import (
	"encoding/json"
	"errors"
	"io"
	"strings"
)

// Parse turns complete model output into a validated response. A single
// markdown code fence around the payload is removed. Output that is not a
// JSON object is taken as plain prose and returned as *Text. Output that
// looks like an object but does not decode is a ShapeMismatch at "$".
//
// Call Parse only once a streamed answer has fully arrived.
func Parse(raw string) (Response, error) {
	body := stripFence(strings.TrimSpace(raw))
	if body == "" {
		return nil, shapeErr("$", "empty response")
	}
	if !strings.HasPrefix(body, "{") {
		return &Text{Content: body}, nil
	}
	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, shapeErr("$", "invalid JSON: %v", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, shapeErr("$", "unexpected data after JSON object")
	}
	return Validate(v)
}

// stripFence removes one ``` or ```json fence wrapping the whole text.
func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	inner := s[3 : len(s)-3]
	if i := strings.IndexByte(inner, '\n'); i >= 0 {
		lang := strings.TrimSpace(inner[:i])
		if lang == "" || !strings.ContainsAny(lang, " {[\"") {
			inner = inner[i+1:]
		}
	}
	return strings.TrimSpace(inner)
}
