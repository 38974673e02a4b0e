package effects

import "fmt"

// Expr is the narrow visitor contract effect inference consumes: the
// typed AST is walked through callbacks rather than by field access, so
// this package never depends on the concrete node shapes. The real typed
// AST (owned by the type-checker collaborator) implements this interface
// over its own node types; it is not defined here.
type Expr interface {
	// Accept visits the expression's immediate sub-expressions, letting
	// Infer recurse without knowing the concrete node shape.
	Accept(v ExprVisitor)
}

// ExprVisitor receives one callback per expression kind relevant to
// effect inference. Kinds irrelevant to effects (arithmetic, literals,
// variable references with no side effect) are expected to report via
// Pure from the caller's own Infer wrapper; this package only defines the
// kinds that introduce, propagate, or discharge effects.
type ExprVisitor interface {
	VisitPure()
	VisitPerform(kind Kind, typeParams []string)
	VisitCall(calleeRow Row)
	VisitHandle(body Expr, handled []Kind)
	VisitLet(bound Expr, generalize bool, body Expr)
	VisitStateAccess()
	VisitRaise()
	VisitSpawn()
}

// Inferrer runs effect inference over a sequence of expressions, threading a
// Unifier so row variables introduced at different call sites unify
// consistently within one binding group.
type Inferrer struct {
	U        *Unifier
	freeVars map[RowVar]bool // row variables free in the enclosing environment
}

// NewInferrer creates an Inferrer sharing the given Unifier.
func NewInferrer(u *Unifier) *Inferrer {
	return &Inferrer{U: u, freeVars: make(map[RowVar]bool)}
}

// collector implements ExprVisitor by accumulating the row observed for
// one expression node, recursing into sub-expressions via the Inferrer.
type collector struct {
	inf *Inferrer
	row Row
	err error
}

func (c *collector) VisitPure() {
	c.row = Empty
}

func (c *collector) VisitPerform(kind Kind, typeParams []string) {
	if !IsKnownKind(kind) {
		c.err = fmt.Errorf("effects: perform of unregistered effect %q", kind)
		return
	}
	c.row = Row{Effects: []Effect{{Kind: kind, TypeParams: typeParams}}, Tail: Closed}
}

func (c *collector) VisitCall(calleeRow Row) {
	// A call's contribution is the callee's declared row, unified with a
	// fresh open row. A closed callee row comes back closed (the fresh tail
	// binds to its effects); an open callee row comes back open, so later
	// calls in the same body can still widen it.
	fresh := c.inf.U.Fresh()
	unified, err := c.inf.U.UnifyRows(calleeRow, Row{Tail: OpenVar(fresh)})
	if err != nil {
		c.err = err
		return
	}
	c.row = unified
}

func (c *collector) VisitHandle(body Expr, handled []Kind) {
	bodyRow, err := c.inf.Infer(body)
	if err != nil {
		c.err = err
		return
	}
	resolved := c.inf.U.ApplySubst(bodyRow)
	var residual []Effect
	for _, e := range resolved.Effects {
		stillHandled := false
		for _, h := range handled {
			if e.Kind == h {
				stillHandled = true
				break
			}
		}
		if !stillHandled {
			residual = append(residual, e)
		}
	}
	c.row = Row{Effects: residual, Tail: resolved.Tail}
}

func (c *collector) VisitLet(bound Expr, generalize bool, body Expr) {
	boundRow, err := c.inf.Infer(bound)
	if err != nil {
		c.err = err
		return
	}
	if generalize {
		scheme := Generalize(c.inf.U.ApplySubst(boundRow), c.inf.freeVars)
		_ = scheme // the binding's scheme is recorded by the caller's symbol table; this package only computes it.
	}
	bodyRow, err := c.inf.Infer(body)
	if err != nil {
		c.err = err
		return
	}
	c.row = Union(boundRow, bodyRow)
}

func (c *collector) VisitStateAccess() {
	c.row = Row{Effects: []Effect{{Kind: State}}, Tail: Closed}
}

func (c *collector) VisitRaise() {
	c.row = Row{Effects: []Effect{{Kind: Exception}}, Tail: Closed}
}

func (c *collector) VisitSpawn() {
	c.row = Row{Effects: []Effect{{Kind: Async}}, Tail: Closed}
}

// Infer computes the effect row for a single expression node, recursing
// through its Accept/ExprVisitor contract. Pure expressions (no Accept
// callback invoked beyond VisitPure) yield the empty closed row.
func (inf *Inferrer) Infer(e Expr) (Row, error) {
	c := &collector{inf: inf}
	e.Accept(c)
	if c.err != nil {
		return Row{}, c.err
	}
	return c.row, nil
}

// MarkFree records that row variable v is referenced by the enclosing
// environment and must not be quantified away by a later Generalize call
// within this inference session.
func (inf *Inferrer) MarkFree(v RowVar) {
	inf.freeVars[v] = true
}
