package effects

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Scenario 6: f inferred with row {IO | α} called in a context expecting
// {IO, Console | β}. Expected: α bound to {Console | γ}, β bound to γ,
// no error.
func TestUnifyRowsScenario6(t *testing.T) {
	u := NewUnifier()
	alpha := u.Fresh()
	beta := u.Fresh()

	a := Row{Effects: []Effect{{Kind: IO}}, Tail: OpenVar(alpha)}
	b := Row{Effects: []Effect{{Kind: IO}, {Kind: Console}}, Tail: OpenVar(beta)}

	result, err := u.UnifyRows(a, b)
	require.NoError(t, err)
	require.True(t, result.Tail.Open)

	alphaResolved := u.Resolve(alpha)
	require.True(t, alphaResolved.Contains(Effect{Kind: Console}))
	require.True(t, alphaResolved.Tail.Open)

	betaResolved := u.Resolve(beta)
	require.Empty(t, betaResolved.Effects)
	require.True(t, betaResolved.Tail.Open)
	require.Equal(t, alphaResolved.Tail.Var, betaResolved.Tail.Var, "both should resolve to the same fresh gamma")
}

func TestUnifyRowsBothClosedMatch(t *testing.T) {
	u := NewUnifier()
	a := Row{Effects: []Effect{{Kind: IO}}, Tail: Closed}
	b := Row{Effects: []Effect{{Kind: IO}}, Tail: Closed}

	result, err := u.UnifyRows(a, b)
	require.NoError(t, err)
	require.False(t, result.Tail.Open)
	require.Len(t, result.Effects, 1)
}

func TestUnifyRowsBothClosedMismatch(t *testing.T) {
	u := NewUnifier()
	a := Row{Effects: []Effect{{Kind: IO}}, Tail: Closed}
	b := Row{Effects: []Effect{{Kind: Console}}, Tail: Closed}

	_, err := u.UnifyRows(a, b)
	require.Error(t, err)
	var mismatch *RowMismatchError
	require.ErrorAs(t, err, &mismatch)
}

func TestUnifyRowsOpenAbsorbsClosedExtras(t *testing.T) {
	u := NewUnifier()
	alpha := u.Fresh()
	a := Row{Effects: []Effect{{Kind: IO}}, Tail: OpenVar(alpha)}
	b := Row{Effects: []Effect{{Kind: IO}, {Kind: State}}, Tail: Closed}

	result, err := u.UnifyRows(a, b)
	require.NoError(t, err)
	require.False(t, result.Tail.Open)
	require.Len(t, result.Effects, 2)

	resolved := u.Resolve(alpha)
	require.True(t, resolved.Contains(Effect{Kind: State}))
	require.False(t, resolved.Tail.Open)
}

func TestUnifyRowsClosedCannotAbsorbExtraFromOpenSide(t *testing.T) {
	u := NewUnifier()
	alpha := u.Fresh()
	a := Row{Effects: []Effect{{Kind: IO}, {Kind: Exception}}, Tail: OpenVar(alpha)}
	b := Row{Effects: []Effect{{Kind: IO}}, Tail: Closed}

	_, err := u.UnifyRows(a, b)
	require.Error(t, err)
}

func TestUnifyRowsIdempotentOnSelf(t *testing.T) {
	u := NewUnifier()
	row := Row{Effects: []Effect{{Kind: IO}, {Kind: Console}}, Tail: Closed}

	result, err := u.UnifyRows(row, row)
	require.NoError(t, err)
	require.ElementsMatch(t, row.Effects, result.Effects)
	require.False(t, result.Tail.Open)
}

func TestUnifyRowsIdempotentOnSelfWithOpenTail(t *testing.T) {
	u := NewUnifier()
	alpha := u.Fresh()
	row := Row{Effects: []Effect{{Kind: IO}, {Kind: Console}}, Tail: OpenVar(alpha)}

	result, err := u.UnifyRows(row, row)
	require.NoError(t, err)
	require.ElementsMatch(t, row.Effects, result.Effects)
	require.True(t, result.Tail.Open)
	require.Equal(t, alpha, result.Tail.Var, "self-unification must not mint a fresh variable")

	resolved := u.Resolve(alpha)
	require.True(t, resolved.Tail.Open)
	require.Equal(t, alpha, resolved.Tail.Var, "alpha must stay unbound after unifying with itself")
}

func TestGeneralizeQuantifiesOnlyNonFreeVars(t *testing.T) {
	u := NewUnifier()
	v := u.Fresh()
	row := Row{Effects: []Effect{{Kind: IO}}, Tail: OpenVar(v)}

	freeInEnv := map[RowVar]bool{}
	scheme := Generalize(row, freeInEnv)
	require.Equal(t, []RowVar{v}, scheme.Quantified)

	freeInEnv2 := map[RowVar]bool{v: true}
	scheme2 := Generalize(row, freeInEnv2)
	require.Empty(t, scheme2.Quantified)
}

func TestInstantiateFreshensQuantifiedVars(t *testing.T) {
	u := NewUnifier()
	v := u.Fresh()
	scheme := Scheme{Quantified: []RowVar{v}, BodyRow: Row{Effects: []Effect{{Kind: IO}}, Tail: OpenVar(v)}}

	inst := scheme.Instantiate(u)
	require.True(t, inst.Tail.Open)
	require.NotEqual(t, v, inst.Tail.Var)
}

// Unification is symmetric modulo tail renaming: swapping the argument
// order yields the same effect set and the same open/closed shape.
func TestUnifyRowsSymmetricModuloTailRenaming(t *testing.T) {
	build := func() (*Unifier, Row, Row) {
		u := NewUnifier()
		a := Row{Effects: []Effect{{Kind: IO}}, Tail: OpenVar(u.Fresh())}
		b := Row{Effects: []Effect{{Kind: Console}, {Kind: State}}, Tail: OpenVar(u.Fresh())}
		return u, a, b
	}

	u1, a1, b1 := build()
	ab, err := u1.UnifyRows(a1, b1)
	require.NoError(t, err)

	u2, a2, b2 := build()
	ba, err := u2.UnifyRows(b2, a2)
	require.NoError(t, err)

	require.Equal(t, ab.Canonicalize().Effects, ba.Canonicalize().Effects)
	require.Equal(t, ab.Tail.Open, ba.Tail.Open)
}

// Unifying three open rows in either association produces the same effect
// set once all tails resolve.
func TestUnifyRowsAssociativeOnEffectSets(t *testing.T) {
	rows := func(u *Unifier) (Row, Row, Row) {
		return Row{Effects: []Effect{{Kind: IO}}, Tail: OpenVar(u.Fresh())},
			Row{Effects: []Effect{{Kind: Console}}, Tail: OpenVar(u.Fresh())},
			Row{Effects: []Effect{{Kind: Async}}, Tail: OpenVar(u.Fresh())}
	}

	left := NewUnifier()
	a, b, c := rows(left)
	ab, err := left.UnifyRows(a, b)
	require.NoError(t, err)
	abc, err := left.UnifyRows(ab, c)
	require.NoError(t, err)

	right := NewUnifier()
	a, b, c = rows(right)
	bc, err := right.UnifyRows(b, c)
	require.NoError(t, err)
	abc2, err := right.UnifyRows(a, bc)
	require.NoError(t, err)

	require.Equal(t, abc.Canonicalize().Effects, abc2.Canonicalize().Effects)
}
