package response

import "fmt"

// Code classifies a SchemaError.
type Code string

const (
	// UnknownKind: the value is not an object with a recognized "type".
	UnknownKind Code = "unknown_kind"
	// ShapeMismatch: a field is missing, mistyped, or not allowed.
	ShapeMismatch Code = "shape_mismatch"
	// DanglingReference: a header or axis names a key no row has.
	DanglingReference Code = "dangling_reference"
)

// SchemaError reports why a candidate response was rejected.
type SchemaError struct {
	Code Code
	// Field is the JSON path of the offending field for ShapeMismatch.
	Field string
	// Key is the unreferenced key for DanglingReference, or the rejected
	// discriminant for UnknownKind.
	Key    string
	Reason string
}

func (e *SchemaError) Error() string {
	switch e.Code {
	case UnknownKind:
		if e.Key != "" {
			return fmt.Sprintf("response schema: unknown kind %q", e.Key)
		}
		return "response schema: unknown kind: " + e.Reason
	case DanglingReference:
		return fmt.Sprintf("response schema: %s %q is not a key of any row", e.Reason, e.Key)
	}
	return fmt.Sprintf("response schema: %s: %s", e.Field, e.Reason)
}

func shapeErr(field, format string, args ...any) *SchemaError {
	return &SchemaError{Code: ShapeMismatch, Field: field, Reason: fmt.Sprintf(format, args...)}
}
