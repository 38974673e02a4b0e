// Package effects implements the effect row system and effect inference
// of the compiler core: row-polymorphic tracking of side effects through
// function signatures.
package effects

import "sort"

// ResumptionDiscipline controls how many times a handler may resume the
// continuation for an effect of a given kind — it affects code
// generation but not typing.
type ResumptionDiscipline int

const (
	TailResumptive ResumptionDiscipline = iota
	SingleShot
	MultiShot
)

// Kind names an effect. The initial set of kinds is closed;
// user programs may register additional kinds through the Registry.
type Kind string

const (
	IO        Kind = "IO"
	Console   Kind = "Console"
	Exception Kind = "Exception"
	Async     Kind = "Async"
	State     Kind = "State"
	Reader    Kind = "Reader"
	Choice    Kind = "Choice"
	Channel   Kind = "Channel"
)

// Registry maps an effect kind to its resumption discipline. Populated
// with the built-in kinds; user-declared effects register themselves via
// RegisterKind.
var Registry = map[Kind]ResumptionDiscipline{
	IO:        TailResumptive,
	Console:   TailResumptive,
	Exception: SingleShot,
	Async:     MultiShot,
	State:     TailResumptive,
	Reader:    TailResumptive,
	Choice:    MultiShot,
	Channel:   MultiShot,
}

// RegisterKind adds a user-declared effect kind to the registry. The
// registry records the last write: redeclaring a built-in kind with a
// different discipline overwrites it, and neither this function nor
// inference reports the conflict.
func RegisterKind(k Kind, discipline ResumptionDiscipline) {
	Registry[k] = discipline
}

// IsKnownKind reports whether k has been registered, built-in or user.
func IsKnownKind(k Kind) bool {
	_, ok := Registry[k]
	return ok
}

// Effect is one occurrence of an effect kind, optionally parameterized
// (e.g. `State<Counter>`). Effects compare by structural identity: same
// kind, same type parameters in order.
type Effect struct {
	Kind       Kind
	TypeParams []string
}

// Equal reports structural identity between two effects.
func (e Effect) Equal(o Effect) bool {
	if e.Kind != o.Kind || len(e.TypeParams) != len(o.TypeParams) {
		return false
	}
	for i := range e.TypeParams {
		if e.TypeParams[i] != o.TypeParams[i] {
			return false
		}
	}
	return true
}

func (e Effect) String() string {
	if len(e.TypeParams) == 0 {
		return string(e.Kind)
	}
	s := string(e.Kind) + "<"
	for i, p := range e.TypeParams {
		if i > 0 {
			s += ", "
		}
		s += p
	}
	return s + ">"
}

// RowVar identifies an open tail variable within one inference session.
type RowVar int

// RowTail is either Closed (the row lists every effect a value can carry)
// or OpenVar(id) (the row may carry additional effects unified in later).
type RowTail struct {
	Open bool
	Var  RowVar
}

// Closed is the tail of a row with no polymorphism.
var Closed = RowTail{Open: false}

// OpenVar constructs an open tail bound to the given variable.
func OpenVar(v RowVar) RowTail { return RowTail{Open: true, Var: v} }

// Row is an unordered set of effects plus a tail. Effects are unique by
// structural identity; order carries no meaning and Canonicalize produces
// a stable ordering for display/testing.
type Row struct {
	Effects []Effect
	Tail    RowTail
}

// Empty is the empty closed row — the effect signature of a pure
// expression.
var Empty = Row{Tail: Closed}

// Canonicalize returns a copy of r with effects de-duplicated and sorted
// into a stable order (by kind, then type params), for deterministic
// diagnostics and tests.
func (r Row) Canonicalize() Row {
	seen := make(map[string]Effect)
	var order []string
	for _, e := range r.Effects {
		key := e.String()
		if _, ok := seen[key]; !ok {
			seen[key] = e
			order = append(order, key)
		}
	}
	sort.Strings(order)
	out := make([]Effect, len(order))
	for i, k := range order {
		out[i] = seen[k]
	}
	return Row{Effects: out, Tail: r.Tail}
}

// Contains reports whether e is present in r's effect set.
func (r Row) Contains(e Effect) bool {
	for _, x := range r.Effects {
		if x.Equal(e) {
			return true
		}
	}
	return false
}

// Union returns the set-union of two rows' effects, closed only if both
// inputs are closed — used by inference to combine effects along a
// call chain before unification settles open tails.
func Union(a, b Row) Row {
	out := append([]Effect(nil), a.Effects...)
	for _, e := range b.Effects {
		acc := Row{Effects: out}
		if !acc.Contains(e) {
			out = append(out, e)
		}
	}
	tail := Closed
	if a.Tail.Open {
		tail = a.Tail
	} else if b.Tail.Open {
		tail = b.Tail
	}
	return Row{Effects: out, Tail: tail}
}

// Scheme is a generalized effect row: quantified row variables plus the
// function type the row is attached to. The compiler core treats the
// underlying type opaquely (inference runs after ordinary
// Hindley-Milner inference has already assigned it).
type Scheme struct {
	Quantified []RowVar
	BodyType   interface{} // opaque function type, assigned by the type checker collaborator
	BodyRow    Row
}

// Instantiate replaces every quantified variable in s with a fresh open
// tail minted by u, producing a monomorphic row ready for unification at
// a call site.
func (s Scheme) Instantiate(u *Unifier) Row {
	sub := make(map[RowVar]RowVar, len(s.Quantified))
	for _, v := range s.Quantified {
		sub[v] = u.Fresh()
	}
	return substituteVars(s.BodyRow, sub)
}

func substituteVars(r Row, sub map[RowVar]RowVar) Row {
	tail := r.Tail
	if tail.Open {
		if fresh, ok := sub[tail.Var]; ok {
			tail = OpenVar(fresh)
		}
	}
	return Row{Effects: append([]Effect(nil), r.Effects...), Tail: tail}
}

// Generalize quantifies over every open row variable in row that does
// not appear free in env (the row variables still referenced by the
// enclosing environment).
func Generalize(row Row, env map[RowVar]bool) Scheme {
	var quantified []RowVar
	if row.Tail.Open && !env[row.Tail.Var] {
		quantified = append(quantified, row.Tail.Var)
	}
	return Scheme{Quantified: quantified, BodyRow: row}
}
