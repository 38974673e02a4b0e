package diagnostic

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"

	"github.com/aria-lang/ariac/internal/errors"
	"github.com/aria-lang/ariac/internal/pipeline"
)

func init() {
	// Keep terminal output assertion-friendly regardless of the test
	// runner's tty detection.
	color.NoColor = true
}

func TestWriteTerminalIncludesPhaseModuleAndMessage(t *testing.T) {
	diags := []pipeline.Diagnostic{
		{Phase: "pattern", Module: "entry", Decl: "f", Message: "match is not exhaustive", Severity: pipeline.SeverityError},
	}
	var buf bytes.Buffer
	WriteTerminal(&buf, diags)
	out := buf.String()
	require.Contains(t, out, "pattern")
	require.Contains(t, out, "entry.f")
	require.Contains(t, out, "match is not exhaustive")
}

func TestWriteTerminalOrdersByPipelinePhase(t *testing.T) {
	diags := []pipeline.Diagnostic{
		{Phase: "contracts", Message: "c"},
		{Phase: "resolve", Message: "r"},
		{Phase: "effects", Message: "e"},
	}
	var buf bytes.Buffer
	WriteTerminal(&buf, diags)
	out := buf.String()
	require.Less(t, strings.Index(out, "r\n"), strings.Index(out, "e\n"))
	require.Less(t, strings.Index(out, "e\n"), strings.Index(out, "c\n"))
}

func TestWriteTerminalShowsFixSuggestionWhenPresent(t *testing.T) {
	rep := &errors.Report{
		Schema: "aria.error/v1", Code: "CTR001", Phase: "contracts", Message: "violation",
		Fix: &errors.Fix{Suggestion: "add a requires clause guarding this case", Confidence: 0.5},
	}
	diags := []pipeline.Diagnostic{
		{Phase: "contracts", Message: "violation", Severity: pipeline.SeverityError, Err: errors.WrapReport(rep)},
	}
	var buf bytes.Buffer
	WriteTerminal(&buf, diags)
	require.Contains(t, buf.String(), "add a requires clause guarding this case")
}

func TestWriteJSONLinesEmitsOneObjectPerDiagnostic(t *testing.T) {
	diags := []pipeline.Diagnostic{
		{Phase: "resolve", Message: "first"},
		{Phase: "pattern", Module: "m", Decl: "d", Message: "second", Severity: pipeline.SeverityWarning},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteJSONLines(&buf, diags))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	require.Equal(t, "aria.error/v1", first["schema"])
	require.Equal(t, "resolve", first["phase"])

	var second map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	meta := second["meta"].(map[string]any)
	require.Equal(t, "warning", meta["severity"])
	require.Equal(t, "d", meta["decl"])
}

func TestWriteJSONLinesPreservesStructuredReportCode(t *testing.T) {
	rep := &errors.Report{Schema: "aria.error/v1", Code: "CTR002", Phase: "contracts", Message: "timeout"}
	diags := []pipeline.Diagnostic{
		{Phase: "contracts", Message: "timeout", Severity: pipeline.SeverityWarning, Err: errors.WrapReport(rep)},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteJSONLines(&buf, diags))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Equal(t, "CTR002", decoded["code"])
}

func TestHasErrorsDetectsErrorSeverity(t *testing.T) {
	require.False(t, HasErrors([]pipeline.Diagnostic{{Severity: pipeline.SeverityWarning}}))
	require.True(t, HasErrors([]pipeline.Diagnostic{{Severity: pipeline.SeverityWarning}, {Severity: pipeline.SeverityError}}))
}

func TestHasErrorsEmptyIsFalse(t *testing.T) {
	require.False(t, HasErrors(nil))
}
