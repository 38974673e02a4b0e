package errors

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// SchemaErrorV1 is the schema identifier stamped on every structured
// diagnostic this package emits.
const SchemaErrorV1 = "aria.error/v1"

// Fix represents a suggested fix with a confidence score.
type Fix struct {
	Suggestion string  `json:"suggestion"`
	Confidence float64 `json:"confidence"`
}

// Encoded represents a structured diagnostic in JSON form. It is the wire
// format diagnostics take when a caller asks for `--json` output; Report is
// the in-process representation everything else is built from.
type Encoded struct {
	Schema     string      `json:"schema"`
	Phase      string      `json:"phase"`
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	Fix        Fix         `json:"fix"`
	Context    interface{} `json:"context,omitempty"`
	SourceSpan string      `json:"source_span,omitempty"`
	Meta       interface{} `json:"meta,omitempty"`
}

// NewEncoded creates a structured diagnostic for the given phase.
func NewEncoded(phase, code, msg string, ctx interface{}) Encoded {
	return Encoded{
		Schema:  SchemaErrorV1,
		Phase:   phase,
		Code:    code,
		Message: msg,
		Fix:     Fix{Suggestion: "", Confidence: 0.0},
		Context: ctx,
	}
}

// WithFix adds a fix suggestion to the error.
func (e Encoded) WithFix(suggestion string, confidence float64) Encoded {
	e.Fix = Fix{Suggestion: suggestion, Confidence: confidence}
	return e
}

// WithSourceSpan adds a "file:line:col" source location to the error.
func (e Encoded) WithSourceSpan(span string) Encoded {
	e.SourceSpan = span
	return e
}

// WithMeta adds metadata to the error.
func (e Encoded) WithMeta(meta interface{}) Encoded {
	e.Meta = meta
	return e
}

// ToJSON converts the error to deterministic JSON: struct fields keep their
// declared order and map keys are sorted alphabetically by encoding/json,
// so the same Encoded value always serializes to the same bytes.
func (e Encoded) ToJSON() ([]byte, error) {
	data, err := marshalDeterministic(e)
	if err != nil {
		fallback := Encoded{
			Schema:  SchemaErrorV1,
			Message: "encoding failed",
			Meta:    map[string]string{"original_error": err.Error()},
		}
		return marshalDeterministic(fallback)
	}
	return data, nil
}

// ErrorContext provides structured context for errors that reference
// solver or classifier internals (used by the contract router).
type ErrorContext struct {
	Constraints []string          `json:"constraints,omitempty"`
	Decisions   []string          `json:"decisions,omitempty"`
	TraceSlice  string            `json:"trace_slice,omitempty"`
	Environment map[string]string `json:"environment,omitempty"`
}

// SafeEncodeError safely encodes any error, never panics.
func SafeEncodeError(err error, phase string) []byte {
	if err == nil {
		return nil
	}
	encoded := NewEncoded(phase, "ERR000", err.Error(), nil)
	data, _ := encoded.ToJSON()
	return data
}

// FormatSourceSpan formats a file position as "file:line:col".
func FormatSourceSpan(file string, line, col int) string {
	return fmt.Sprintf("%s:%d:%d", file, line, col)
}

// marshalDeterministic marshals v with two-space indentation and no HTML
// escaping, so diagnostic bytes are stable across runs and readable in CI
// logs.
func marshalDeterministic(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
