package contract

import (
	"github.com/aria-lang/ariac/internal/ast"
)

// Proof is the outcome of the abstract-interpretation pass on one clause.
type Proof int

const (
	// Unknown means the abstract domain is too coarse to decide the clause
	// either way; the clause falls back to a runtime check.
	Unknown Proof = iota
	// Proven means every concrete state described by the facts satisfies
	// the clause.
	Proven
	// Refuted means no concrete state described by the facts satisfies the
	// clause.
	Refuted
)

func (p Proof) String() string {
	switch p {
	case Proven:
		return "proven"
	case Refuted:
		return "refuted"
	default:
		return "unknown"
	}
}

// Interval approximates the values an integer-valued place can take. An
// unset bound is unbounded on that side, so the zero Interval is the full
// integer line.
type Interval struct {
	Lo, Hi       int64
	LoSet, HiSet bool
}

// Point builds the degenerate interval [v, v].
func Point(v int64) Interval {
	return Interval{Lo: v, Hi: v, LoSet: true, HiSet: true}
}

// AtLeast builds the half-open interval [v, +inf).
func AtLeast(v int64) Interval { return Interval{Lo: v, LoSet: true} }

// AtMost builds the half-open interval (-inf, v].
func AtMost(v int64) Interval { return Interval{Hi: v, HiSet: true} }

// Between builds the interval [lo, hi].
func Between(lo, hi int64) Interval {
	return Interval{Lo: lo, Hi: hi, LoSet: true, HiSet: true}
}

// add returns the interval sum, saturating to unbounded on any side where
// either operand is unbounded.
func (a Interval) add(b Interval) Interval {
	var out Interval
	if a.LoSet && b.LoSet {
		out.Lo, out.LoSet = a.Lo+b.Lo, true
	}
	if a.HiSet && b.HiSet {
		out.Hi, out.HiSet = a.Hi+b.Hi, true
	}
	return out
}

// sub returns the interval difference a - b.
func (a Interval) sub(b Interval) Interval {
	var out Interval
	if a.LoSet && b.HiSet {
		out.Lo, out.LoSet = a.Lo-b.Hi, true
	}
	if a.HiSet && b.LoSet {
		out.Hi, out.HiSet = a.Hi-b.Lo, true
	}
	return out
}

// mulConst scales an interval by a known constant, flipping bounds for a
// negative multiplier. Multiplication of two non-constant intervals is not
// needed: the static tier grammar only admits multiplication by constants.
func (a Interval) mulConst(k int64) Interval {
	scale := func(v int64) int64 { return v * k }
	if k >= 0 {
		var out Interval
		if a.LoSet {
			out.Lo, out.LoSet = scale(a.Lo), true
		}
		if a.HiSet {
			out.Hi, out.HiSet = scale(a.Hi), true
		}
		return out
	}
	var out Interval
	if a.HiSet {
		out.Lo, out.LoSet = scale(a.Hi), true
	}
	if a.LoSet {
		out.Hi, out.HiSet = scale(a.Lo), true
	}
	return out
}

// constValue reports whether the interval is a single point, and its value.
func (a Interval) constValue() (int64, bool) {
	if a.LoSet && a.HiSet && a.Lo == a.Hi {
		return a.Lo, true
	}
	return 0, false
}

// Facts records what the analysis knows about one place (a parameter, a
// field path, an indexed element) at the clause's check point.
type Facts struct {
	Range    Interval
	Sorted   bool // sequence place known to be sorted ascending
	NonEmpty bool // sequence place known to have at least one element
	NonNil   bool
}

// Env maps place names to their known facts. Places absent from the map
// carry no information (full interval, no flags).
type Env map[string]Facts

// FactSource supplies the per-function abstract environment the router
// consults on a Tier-2 cache miss: argument intervals established by
// dominating checks, preconditions proven earlier in the function, and
// invariants of argument types.
type FactSource interface {
	FactsFor(funcName string) Env
}

// Interpreter evaluates a clause shape against an abstract environment.
// It decides only what the interval and flag domains can express; anything
// else is Unknown and falls through to a runtime check.
type Interpreter struct{}

// Prove runs the abstract-interpretation pass over one clause.
func (in Interpreter) Prove(shape ast.ExprShape, env Env) Proof {
	return in.proveBool(shape, env)
}

func (in Interpreter) proveBool(shape ast.ExprShape, env Env) Proof {
	switch shape.Kind {
	case "lit":
		// Boolean literals arrive as integer 0/1 from the surface checker.
		if shape.IsInt {
			if shape.IntVal != 0 {
				return Proven
			}
			return Refuted
		}
		return Unknown

	case "cmp":
		return in.proveCmp(shape, env)

	case "logic":
		return in.proveLogic(shape, env)

	case "not":
		if len(shape.Children) != 1 {
			return Unknown
		}
		switch in.proveBool(shape.Children[0], env) {
		case Proven:
			return Refuted
		case Refuted:
			return Proven
		default:
			return Unknown
		}

	case "nil-check":
		if len(shape.Children) == 1 && shape.Children[0].Kind == "var" {
			if env[shape.Children[0].Name].NonNil {
				return Proven
			}
		}
		return Unknown

	case "call":
		return in.provePredicate(shape, env)

	case "old":
		// old(e) at a check point evaluates e in the entry state; the entry
		// facts are what env carries, so the operand decides.
		if len(shape.Children) == 1 {
			return in.proveBool(shape.Children[0], env)
		}
		return Unknown

	default:
		return Unknown
	}
}

// provePredicate discharges the flag-shaped predicates the domain tracks:
// sorted(xs) and non_empty(xs) over a place with the matching fact set.
func (in Interpreter) provePredicate(shape ast.ExprShape, env Env) Proof {
	if !shape.CalleeIsPure || len(shape.Children) != 1 || shape.Children[0].Kind != "var" {
		return Unknown
	}
	facts := env[shape.Children[0].Name]
	switch shape.Name {
	case "sorted", "is_sorted":
		if facts.Sorted {
			return Proven
		}
	case "non_empty", "is_non_empty":
		if facts.NonEmpty {
			return Proven
		}
	}
	return Unknown
}

func (in Interpreter) proveLogic(shape ast.ExprShape, env Env) Proof {
	if len(shape.Children) != 2 {
		return Unknown
	}
	left := in.proveBool(shape.Children[0], env)
	right := in.proveBool(shape.Children[1], env)

	switch shape.Op {
	case "&&":
		if left == Proven && right == Proven {
			return Proven
		}
		if left == Refuted || right == Refuted {
			return Refuted
		}
	case "||":
		if left == Proven || right == Proven {
			return Proven
		}
		if left == Refuted && right == Refuted {
			return Refuted
		}
	}
	return Unknown
}

func (in Interpreter) proveCmp(shape ast.ExprShape, env Env) Proof {
	if len(shape.Children) != 2 {
		return Unknown
	}
	a, aOK := in.evalInterval(shape.Children[0], env)
	b, bOK := in.evalInterval(shape.Children[1], env)
	if !aOK || !bOK {
		return Unknown
	}

	switch shape.Op {
	case "<":
		return compareIntervals(a, b, func(x, y int64) bool { return x < y })
	case "<=":
		return compareIntervals(a, b, func(x, y int64) bool { return x <= y })
	case ">":
		return compareIntervals(b, a, func(x, y int64) bool { return x < y })
	case ">=":
		return compareIntervals(b, a, func(x, y int64) bool { return x <= y })
	case "==":
		return proveEq(a, b)
	case "!=":
		switch proveEq(a, b) {
		case Proven:
			return Refuted
		case Refuted:
			return Proven
		}
	}
	return Unknown
}

// compareIntervals decides a REL b for an order relation given as a
// point-wise predicate: proven when it holds for the extreme pair
// (a.Hi vs b.Lo), refuted when even the most favorable pair (a.Lo vs b.Hi)
// fails.
func compareIntervals(a, b Interval, rel func(x, y int64) bool) Proof {
	if a.HiSet && b.LoSet && rel(a.Hi, b.Lo) {
		return Proven
	}
	if a.LoSet && b.HiSet && !rel(a.Lo, b.Hi) {
		return Refuted
	}
	return Unknown
}

func proveEq(a, b Interval) Proof {
	av, aConst := a.constValue()
	bv, bConst := b.constValue()
	if aConst && bConst {
		if av == bv {
			return Proven
		}
		return Refuted
	}
	// Disjoint intervals can never be equal.
	if a.HiSet && b.LoSet && a.Hi < b.Lo {
		return Refuted
	}
	if b.HiSet && a.LoSet && b.Hi < a.Lo {
		return Refuted
	}
	return Unknown
}

// evalInterval approximates an integer-valued sub-expression. The second
// return is false when the shape is outside the interval domain (a string
// literal, an impure call, a float).
func (in Interpreter) evalInterval(shape ast.ExprShape, env Env) (Interval, bool) {
	switch shape.Kind {
	case "lit":
		if !shape.IsInt {
			return Interval{}, false
		}
		return Point(shape.IntVal), true

	case "var":
		return env[shape.Name].Range, true

	case "field":
		// Immutable field access: keyed as "base.field" in the environment
		// when the fact source has information about it.
		if len(shape.Children) == 1 && shape.Children[0].Kind == "var" {
			return env[shape.Children[0].Name+"."+shape.Name].Range, true
		}
		return Interval{}, true

	case "old":
		if len(shape.Children) == 1 {
			return in.evalInterval(shape.Children[0], env)
		}
		return Interval{}, false

	case "arith":
		if len(shape.Children) != 2 {
			return Interval{}, false
		}
		a, aOK := in.evalInterval(shape.Children[0], env)
		b, bOK := in.evalInterval(shape.Children[1], env)
		if !aOK || !bOK {
			return Interval{}, false
		}
		switch shape.Op {
		case "+":
			return a.add(b), true
		case "-":
			return a.sub(b), true
		case "*":
			if k, ok := b.constValue(); ok {
				return a.mulConst(k), true
			}
			if k, ok := a.constValue(); ok {
				return b.mulConst(k), true
			}
			return Interval{}, true
		default:
			// Division and mod are approximated as unbounded rather than
			// risking a wrong bound around zero divisors.
			return Interval{}, true
		}

	default:
		return Interval{}, false
	}
}
