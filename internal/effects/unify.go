package effects

import "fmt"

// Unifier mints fresh row variables and records their bindings across one
// inference session. It mirrors a small union-find: a bound variable's
// row may itself mention another open variable, so Resolve walks the
// chain to a fixed point.
type Unifier struct {
	next  RowVar
	binds map[RowVar]Row
}

// NewUnifier creates an empty Unifier.
func NewUnifier() *Unifier {
	return &Unifier{binds: make(map[RowVar]Row)}
}

// Fresh mints a new, unbound row variable.
func (u *Unifier) Fresh() RowVar {
	v := u.next
	u.next++
	return v
}

// Bind records that variable v's row is r. Panics if v is already bound —
// callers must route rebinding through UnifyRows, which only ever binds a
// variable once per session.
func (u *Unifier) Bind(v RowVar, r Row) {
	if _, ok := u.binds[v]; ok {
		panic(fmt.Sprintf("effects: row variable %d already bound", v))
	}
	u.binds[v] = r
}

// Resolve follows v's binding chain to a fixed point, merging in any
// effects accumulated along the way, and returns the fully resolved row.
// An unbound variable resolves to the single-variable open row itself.
func (u *Unifier) Resolve(v RowVar) Row {
	seen := make(map[RowVar]bool)
	effects := []Effect{}
	for {
		if seen[v] {
			return Row{Effects: dedupe(effects), Tail: OpenVar(v)}
		}
		seen[v] = true
		bound, ok := u.binds[v]
		if !ok {
			return Row{Effects: dedupe(effects), Tail: OpenVar(v)}
		}
		effects = append(effects, bound.Effects...)
		if !bound.Tail.Open {
			return Row{Effects: dedupe(effects), Tail: Closed}
		}
		v = bound.Tail.Var
	}
}

// ApplySubst fully resolves row r's tail through the current bindings.
func (u *Unifier) ApplySubst(r Row) Row {
	if !r.Tail.Open {
		return r.Canonicalize()
	}
	resolved := u.Resolve(r.Tail.Var)
	return Row{Effects: dedupe(append(append([]Effect(nil), r.Effects...), resolved.Effects...)), Tail: resolved.Tail}.Canonicalize()
}

func dedupe(effects []Effect) []Effect {
	var out []Effect
	for _, e := range effects {
		found := false
		for _, o := range out {
			if o.Equal(e) {
				found = true
				break
			}
		}
		if !found {
			out = append(out, e)
		}
	}
	return out
}

// RowMismatchError reports an EFF001 unification failure: a is a closed
// row claiming fewer effects than b requires, or vice versa.
type RowMismatchError struct {
	Extra []Effect // effects present on the closed side's counterpart that it cannot absorb
	Side  string   // "left" or "right": which row was closed and too narrow; "both" when both rows were closed
}

func (e *RowMismatchError) Error() string {
	return fmt.Sprintf("effect row mismatch: %s row is closed but missing %v", e.Side, e.Extra)
}

// UnifyRows implements row unification. It fully
// resolves both inputs through u's current bindings first, partitions
// each side's effects into common and side-specific extras, and applies
// the four tail cases:
//
//   - both closed: extras on either side are a hard mismatch.
//   - one open, one closed: the closed side cannot grow, so the open
//     side's unique extras are a mismatch; otherwise the open tail binds
//     to the closed side's unique extras (closed).
//   - both open: a fresh tail γ absorbs both sides' extras; each original
//     tail binds to γ plus the *other* side's extras. If both tails are
//     already the same variable (self-unification, or two rows aliasing
//     one still-unbound variable), no binding occurs — the variable is
//     already its own unification and a second Bind on it would panic.
//
// Returns the unified row (closed, or open on a fresh/retained variable)
// with every effect from both inputs present.
func (u *Unifier) UnifyRows(a, b Row) (Row, error) {
	a = u.ApplySubst(a)
	b = u.ApplySubst(b)

	common, aOnly, bOnly := partition(a, b)

	switch {
	case !a.Tail.Open && !b.Tail.Open:
		if len(aOnly) > 0 || len(bOnly) > 0 {
			return Row{}, &RowMismatchError{Extra: append(aOnly, bOnly...), Side: "both"}
		}
		return Row{Effects: common, Tail: Closed}, nil

	case a.Tail.Open && !b.Tail.Open:
		if len(aOnly) > 0 {
			return Row{}, &RowMismatchError{Extra: aOnly, Side: "right"}
		}
		u.Bind(a.Tail.Var, Row{Effects: bOnly, Tail: Closed})
		return Row{Effects: append(common, bOnly...), Tail: Closed}, nil

	case !a.Tail.Open && b.Tail.Open:
		if len(bOnly) > 0 {
			return Row{}, &RowMismatchError{Extra: bOnly, Side: "left"}
		}
		u.Bind(b.Tail.Var, Row{Effects: aOnly, Tail: Closed})
		return Row{Effects: append(common, aOnly...), Tail: Closed}, nil

	default: // both open
		all := append(append(append([]Effect(nil), common...), aOnly...), bOnly...)
		if a.Tail.Var == b.Tail.Var {
			// Same still-unbound variable on both sides (self-unification, or
			// two rows that alias one open tail): aOnly and bOnly are empty by
			// construction since partition diffs against the same effect set,
			// so there is nothing new to bind the shared variable to.
			return Row{Effects: dedupe(all), Tail: OpenVar(a.Tail.Var)}, nil
		}
		gamma := u.Fresh()
		u.Bind(a.Tail.Var, Row{Effects: bOnly, Tail: OpenVar(gamma)})
		u.Bind(b.Tail.Var, Row{Effects: aOnly, Tail: OpenVar(gamma)})
		return Row{Effects: dedupe(all), Tail: OpenVar(gamma)}, nil
	}
}

// partition splits a's and b's effect sets into the common subset and
// each side's unique extras.
func partition(a, b Row) (common, aOnly, bOnly []Effect) {
	for _, e := range a.Effects {
		if b.Contains(e) {
			common = append(common, e)
		} else {
			aOnly = append(aOnly, e)
		}
	}
	for _, e := range b.Effects {
		if !a.Contains(e) {
			bOnly = append(bOnly, e)
		}
	}
	return
}
