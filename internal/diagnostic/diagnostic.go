// Package diagnostic renders a pipeline.Result's findings for the two
// audiences it serves: a human at a terminal, and a machine reading
// line-delimited JSON off stdout. Both renderers consume the same
// pipeline.Diagnostic slice; neither owns analysis, only presentation.
package diagnostic

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"

	"github.com/aria-lang/ariac/internal/errors"
	"github.com/aria-lang/ariac/internal/pipeline"
)

var (
	errorLabel   = color.New(color.FgRed, color.Bold).SprintFunc()
	warningLabel = color.New(color.FgYellow, color.Bold).SprintFunc()
	infoLabel    = color.New(color.FgCyan, color.Bold).SprintFunc()
	locationText = color.New(color.Faint).SprintFunc()
)

// WriteTerminal renders diagnostics as plain-text error/warning/info blocks,
// one per diagnostic, grouped by phase in the order the pipeline ran them.
// Color is applied unconditionally; callers piping to a non-tty can disable
// it globally via color.NoColor before calling this function.
func WriteTerminal(w io.Writer, diags []pipeline.Diagnostic) {
	for _, d := range orderedByPhase(diags) {
		label := labelFor(d.Severity)
		if d.Module != "" || d.Decl != "" {
			fmt.Fprintf(w, "%s[%s] %s: %s\n", label, d.Phase, locationText(qualify(d)), d.Message)
		} else {
			fmt.Fprintf(w, "%s[%s]: %s\n", label, d.Phase, d.Message)
		}
		if rep, ok := errors.AsReport(d.Err); ok && rep.Fix != nil {
			fmt.Fprintf(w, "  %s %s\n", infoLabel("fix:"), rep.Fix.Suggestion)
		}
	}
}

// WriteJSONLines renders each diagnostic as one aria.error/v1 JSON object
// per line, the format `--json` output and CI log scrapers both consume.
func WriteJSONLines(w io.Writer, diags []pipeline.Diagnostic) error {
	enc := json.NewEncoder(w)
	for _, d := range orderedByPhase(diags) {
		encoded := toEncoded(d)
		if err := enc.Encode(encoded); err != nil {
			return fmt.Errorf("diagnostic: encoding %s/%s: %w", d.Phase, d.Decl, err)
		}
	}
	return nil
}

func toEncoded(d pipeline.Diagnostic) errors.Encoded {
	if rep, ok := errors.AsReport(d.Err); ok {
		e := errors.NewEncoded(rep.Phase, rep.Code, rep.Message, rep.Data)
		if rep.Fix != nil {
			e = e.WithFix(rep.Fix.Suggestion, rep.Fix.Confidence)
		}
		if rep.Span != nil {
			e = e.WithSourceSpan(fmt.Sprintf("%s:%d:%d", rep.Span.Start.File, rep.Span.Start.Line, rep.Span.Start.Column))
		}
		return e.WithMeta(map[string]string{"module": d.Module, "decl": d.Decl, "severity": severityName(d.Severity)})
	}
	return errors.NewEncoded(d.Phase, "GEN000", d.Message, nil).
		WithMeta(map[string]string{"module": d.Module, "decl": d.Decl, "severity": severityName(d.Severity)})
}

func labelFor(s pipeline.Severity) string {
	switch s {
	case pipeline.SeverityWarning:
		return warningLabel("warning")
	case pipeline.SeverityInfo:
		return infoLabel("info")
	default:
		return errorLabel("error")
	}
}

func severityName(s pipeline.Severity) string {
	switch s {
	case pipeline.SeverityWarning:
		return "warning"
	case pipeline.SeverityInfo:
		return "info"
	default:
		return "error"
	}
}

func qualify(d pipeline.Diagnostic) string {
	if d.Module != "" && d.Decl != "" {
		return d.Module + "." + d.Decl
	}
	if d.Module != "" {
		return d.Module
	}
	return d.Decl
}

// orderedByPhase returns diags stably sorted by phase, preserving the
// pipeline's own within-phase order (resolve, pattern, effects, contracts).
func orderedByPhase(diags []pipeline.Diagnostic) []pipeline.Diagnostic {
	phaseRank := map[string]int{"resolve": 0, "pattern": 1, "effects": 2, "contracts": 3}
	out := make([]pipeline.Diagnostic, len(diags))
	copy(out, diags)
	sort.SliceStable(out, func(i, j int) bool {
		return phaseRank[out[i].Phase] < phaseRank[out[j].Phase]
	})
	return out
}

// HasErrors reports whether any diagnostic is error-severity, the signal
// cmd/ariac uses to pick between exit codes 0 and 1.
func HasErrors(diags []pipeline.Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == pipeline.SeverityError {
			return true
		}
	}
	return false
}
