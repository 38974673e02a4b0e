package errors

import (
	"encoding/json"
	"errors"

	"github.com/aria-lang/ariac/internal/ast"
)

// Report is the canonical structured error type for the Aria compiler core.
// Every Report's Code is expected to be one of the constants in codes.go;
// NewReport looks the code up in ErrorRegistry so Phase is derived from the
// taxonomy instead of being retyped by hand at each call site.
type Report struct {
	Schema  string         `json:"schema"`
	Code    string         `json:"code"`
	Phase   string         `json:"phase"`
	Message string         `json:"message"`
	Span    *ast.Span      `json:"span,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
	Fix     *Fix           `json:"fix,omitempty"`
}

// NewReport builds a Report for a registered error code, deriving Phase from
// ErrorRegistry. Codes that fall outside the registry (first-party call
// sites should never hit this) fall back to an "internal" phase rather than
// silently shipping a blank one.
func NewReport(code, message string) *Report {
	phase := "internal"
	if info, ok := GetErrorInfo(code); ok {
		phase = info.Phase
	}
	return &Report{
		Schema:  SchemaErrorV1,
		Code:    code,
		Phase:   phase,
		Message: message,
		Data:    map[string]any{},
	}
}

// WithSpan attaches a source location and returns the Report for chaining.
func (r *Report) WithSpan(span *ast.Span) *Report {
	r.Span = span
	return r
}

// WithFix attaches a suggested fix, mirroring Encoded.WithFix in
// json_encoder.go since both types carry the same Fix payload to callers.
func (r *Report) WithFix(suggestion string, confidence float64) *Report {
	r.Fix = &Fix{Suggestion: suggestion, Confidence: confidence}
	return r
}

// WithData attaches structured context, replacing the zero-value map
// NewReport seeds by default.
func (r *Report) WithData(data map[string]any) *Report {
	r.Data = data
	return r
}

// ReportError wraps a Report as an error so structured reports survive
// errors.As() unwrapping through ordinary Go error-handling paths.
type ReportError struct {
	Rep *Report
}

func (e *ReportError) Error() string {
	if e.Rep == nil {
		return "unknown error"
	}
	return e.Rep.Code + ": " + e.Rep.Message
}

// AsReport extracts a Report from an error chain, if one is present.
func AsReport(err error) (*Report, bool) {
	var re *ReportError
	if errors.As(err, &re) {
		return re.Rep, true
	}
	return nil, false
}

// WrapReport wraps a Report as an error. Call sites should return
// WrapReport(report) rather than constructing ReportError directly, so the
// nil case collapses to a nil error.
func WrapReport(r *Report) error {
	if r == nil {
		return nil
	}
	return &ReportError{Rep: r}
}

// ToJSON renders a Report as JSON. Prefer Encoded (json_encoder.go) for the
// `--json` diagnostics stream; this is for callers that just need the raw
// Report serialized, e.g. logging or test fixtures.
func (r *Report) ToJSON(compact bool) (string, error) {
	var data []byte
	var err error

	if compact {
		data, err = json.Marshal(r)
	} else {
		data, err = json.MarshalIndent(r, "", "  ")
	}

	if err != nil {
		return "", err
	}
	return string(data), nil
}

// NewGeneric wraps an arbitrary error as a Report for a phase that has no
// more specific code to assign, e.g. an I/O failure surfaced mid-pipeline.
func NewGeneric(phase string, err error) *Report {
	return &Report{
		Schema:  SchemaErrorV1,
		Code:    SYS001,
		Phase:   phase,
		Message: err.Error(),
		Data:    map[string]any{},
	}
}
