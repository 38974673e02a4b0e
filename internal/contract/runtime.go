package contract

import (
	"fmt"

	"github.com/aria-lang/ariac/internal/ast"
	"github.com/aria-lang/ariac/internal/errors"
)

// CheckPoint names where in a function's body a runtime predicate must be
// evaluated.
type CheckPoint int

const (
	// AtEntry evaluates the predicate before the body runs (requires).
	AtEntry CheckPoint = iota
	// AtExit evaluates the predicate after the body, with `result` bound to
	// the return value (ensures).
	AtExit
	// AtEntryAndExit evaluates the predicate at both ends of every public
	// operation (invariant).
	AtEntryAndExit
)

func (p CheckPoint) String() string {
	switch p {
	case AtEntry:
		return "entry"
	case AtExit:
		return "exit"
	default:
		return "entry+exit"
	}
}

// ViolationKind classifies a runtime contract failure.
type ViolationKind int

const (
	Precondition ViolationKind = iota
	Postcondition
	InvariantViolation
)

func (k ViolationKind) String() string {
	switch k {
	case Precondition:
		return "precondition"
	case Postcondition:
		return "postcondition"
	default:
		return "invariant"
	}
}

// code maps a violation kind to its diagnostic code.
func (k ViolationKind) code() string {
	switch k {
	case Precondition:
		return errors.CTV001
	case Postcondition:
		return errors.CTV002
	default:
		return errors.CTV003
	}
}

// RuntimeCheck is the router's request to the MIR emitter: insert a
// predicate evaluation for one clause at its legal check point. The
// emitter owns lowering the predicate itself; the router only fixes where
// the check goes, which failure it raises, and which entry-state
// sub-expressions must be snapshotted for `old(...)` before the body runs.
type RuntimeCheck struct {
	Function     string
	Kind         ViolationKind
	Point        CheckPoint
	ClauseText   string
	ResultVar    string   // bound to the return value for an exit check
	OldSnapshots []string // operand labels of old(...) occurrences, in clause order
	Pos          ast.Pos
}

// CheckEmitter is the seam to the MIR emitter collaborator. A nil emitter
// on the router means checks are recorded in the routing outcome only.
type CheckEmitter interface {
	EmitCheck(check RuntimeCheck)
}

// Violation is the error an inserted check raises when its predicate
// evaluates false at run time. It carries the clause text and source
// location so the failure reads like a compiler diagnostic, not a bare
// panic.
type Violation struct {
	Kind       ViolationKind
	ClauseText string
	Pos        ast.Pos
}

func (v *Violation) Error() string {
	return fmt.Sprintf("contract violation (%s): %s at %s", v.Kind, v.ClauseText, v.Pos)
}

// Report renders the violation as a structured diagnostic with its
// kind-specific code.
func (v *Violation) Report() *errors.Report {
	return errors.NewReport(v.Kind.code(), v.Error())
}

// checkPlacement maps a clause kind to its check point and failure kind.
// Decreases clauses have no runtime check: termination measures belong to
// a separate analysis, so the router records them without emission.
func checkPlacement(kind ast.ContractKind) (CheckPoint, ViolationKind, bool) {
	switch kind {
	case ast.Requires:
		return AtEntry, Precondition, true
	case ast.Ensures:
		return AtExit, Postcondition, true
	case ast.Invariant:
		return AtEntryAndExit, InvariantViolation, true
	default:
		return AtEntry, Precondition, false
	}
}

// collectOldSnapshots walks a clause shape and returns a label for each
// old(...) occurrence, in traversal order. The emitter captures these
// sub-expressions in the entry state before the body executes.
func collectOldSnapshots(shape ast.ExprShape) []string {
	var labels []string
	var walk func(s ast.ExprShape)
	walk = func(s ast.ExprShape) {
		if s.Kind == "old" {
			label := s.Name
			if label == "" && len(s.Children) == 1 {
				label = s.Children[0].Name
			}
			if label == "" {
				label = fmt.Sprintf("old#%d", len(labels))
			}
			labels = append(labels, label)
		}
		for _, child := range s.Children {
			walk(child)
		}
	}
	walk(shape)
	return labels
}
