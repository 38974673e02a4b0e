package effects

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeExpr is a minimal Expr used to exercise the Inferrer without a real
// typed AST; each constructor below drives one ExprVisitor callback.
type fakeExpr struct {
	kind    string
	effect  Kind
	callee  Row
	body    Expr
	handled []Kind
	bound   Expr
}

func (f *fakeExpr) Accept(v ExprVisitor) {
	switch f.kind {
	case "pure":
		v.VisitPure()
	case "perform":
		v.VisitPerform(f.effect, nil)
	case "call":
		v.VisitCall(f.callee)
	case "handle":
		v.VisitHandle(f.body, f.handled)
	case "let":
		v.VisitLet(f.bound, true, f.body)
	case "state":
		v.VisitStateAccess()
	case "raise":
		v.VisitRaise()
	case "spawn":
		v.VisitSpawn()
	}
}

func TestInferPureExpressionIsEmptyRow(t *testing.T) {
	inf := NewInferrer(NewUnifier())
	row, err := inf.Infer(&fakeExpr{kind: "pure"})
	require.NoError(t, err)
	require.Empty(t, row.Effects)
}

func TestInferPerformKnownEffect(t *testing.T) {
	inf := NewInferrer(NewUnifier())
	row, err := inf.Infer(&fakeExpr{kind: "perform", effect: IO})
	require.NoError(t, err)
	require.True(t, row.Contains(Effect{Kind: IO}))
}

func TestInferPerformUnknownEffectErrors(t *testing.T) {
	inf := NewInferrer(NewUnifier())
	_, err := inf.Infer(&fakeExpr{kind: "perform", effect: Kind("Bogus")})
	require.Error(t, err)
}

func TestInferHandleSubtractsHandledEffects(t *testing.T) {
	inf := NewInferrer(NewUnifier())
	body := &fakeExpr{kind: "perform", effect: IO}
	row, err := inf.Infer(&fakeExpr{kind: "handle", body: body, handled: []Kind{IO}})
	require.NoError(t, err)
	require.False(t, row.Contains(Effect{Kind: IO}))
}

func TestInferHandlePreservesUnhandledEffects(t *testing.T) {
	inf := NewInferrer(NewUnifier())
	body := &fakeExpr{kind: "perform", effect: Exception}
	row, err := inf.Infer(&fakeExpr{kind: "handle", body: body, handled: []Kind{IO}})
	require.NoError(t, err)
	require.True(t, row.Contains(Effect{Kind: Exception}))
}

func TestInferRaiseAddsException(t *testing.T) {
	inf := NewInferrer(NewUnifier())
	row, err := inf.Infer(&fakeExpr{kind: "raise"})
	require.NoError(t, err)
	require.True(t, row.Contains(Effect{Kind: Exception}))
}

func TestInferSpawnAddsAsync(t *testing.T) {
	inf := NewInferrer(NewUnifier())
	row, err := inf.Infer(&fakeExpr{kind: "spawn"})
	require.NoError(t, err)
	require.True(t, row.Contains(Effect{Kind: Async}))
}

func TestInferStateAccessAddsState(t *testing.T) {
	inf := NewInferrer(NewUnifier())
	row, err := inf.Infer(&fakeExpr{kind: "state"})
	require.NoError(t, err)
	require.True(t, row.Contains(Effect{Kind: State}))
}

func TestInferLetUnionsBoundAndBodyEffects(t *testing.T) {
	inf := NewInferrer(NewUnifier())
	bound := &fakeExpr{kind: "perform", effect: IO}
	body := &fakeExpr{kind: "raise"}
	row, err := inf.Infer(&fakeExpr{kind: "let", bound: bound, body: body})
	require.NoError(t, err)
	require.True(t, row.Contains(Effect{Kind: IO}))
	require.True(t, row.Contains(Effect{Kind: Exception}))
}
