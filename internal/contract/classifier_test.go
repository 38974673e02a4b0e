package contract

import (
	"testing"

	"github.com/aria-lang/ariac/internal/ast"
	"github.com/stretchr/testify/require"
)

func leaf(kind string) ast.ExprShape { return ast.ExprShape{Kind: kind} }

func TestClassifyLiteralIsStatic(t *testing.T) {
	require.Equal(t, Static, Classify(leaf("lit")))
}

func TestClassifyComparisonOfVarsIsStatic(t *testing.T) {
	shape := ast.ExprShape{Kind: "cmp", Children: []ast.ExprShape{leaf("var"), leaf("lit")}}
	require.Equal(t, Static, Classify(shape))
}

func TestClassifyFieldAccessIsCached(t *testing.T) {
	shape := ast.ExprShape{Kind: "field", Children: []ast.ExprShape{leaf("var")}}
	require.Equal(t, Cached, Classify(shape))
}

func TestClassifyPureCallIsCached(t *testing.T) {
	shape := ast.ExprShape{Kind: "call", CalleeIsPure: true}
	require.Equal(t, Cached, Classify(shape))
}

func TestClassifyImpureCallIsDynamic(t *testing.T) {
	shape := ast.ExprShape{Kind: "call", CalleeIsPure: false}
	require.Equal(t, Dynamic, Classify(shape))
}

func TestClassifyCallThroughVariableIsDynamicEvenIfMarkedPure(t *testing.T) {
	shape := ast.ExprShape{Kind: "call", CalleeIsVar: true, CalleeIsPure: true}
	require.Equal(t, Dynamic, Classify(shape))
}

func TestClassifyBottomUpTakesMaxOfChildren(t *testing.T) {
	// logic(field(var), lit) — the field child pulls the whole node to Cached.
	shape := ast.ExprShape{
		Kind: "logic",
		Children: []ast.ExprShape{
			{Kind: "field", Children: []ast.ExprShape{leaf("var")}},
			leaf("lit"),
		},
	}
	require.Equal(t, Cached, Classify(shape))
}

func TestClassifyUnboundedQuantifierIsDynamic(t *testing.T) {
	require.Equal(t, Dynamic, Classify(ast.ExprShape{Kind: "quantifier", Unbounded: true}))
}

func TestClassifyBoundedQuantifierIsCached(t *testing.T) {
	require.Equal(t, Cached, Classify(ast.ExprShape{Kind: "quantifier", Unbounded: false}))
}

func TestClassifyIndexOfTier1IsCached(t *testing.T) {
	require.Equal(t, Cached, Classify(ast.ExprShape{Kind: "index", IndexIsTier1: true}))
}

func TestClassifyIndexOfTier3IsDynamic(t *testing.T) {
	require.Equal(t, Dynamic, Classify(ast.ExprShape{Kind: "index", IndexIsTier1: false}))
}

func TestClassifyOldOfStaticChildIsCached(t *testing.T) {
	shape := ast.ExprShape{Kind: "old", Children: []ast.ExprShape{leaf("var")}}
	require.Equal(t, Cached, Classify(shape))
}

func TestClassifyOldOfDynamicChildIsDynamic(t *testing.T) {
	shape := ast.ExprShape{Kind: "old", Children: []ast.ExprShape{{Kind: "call", CalleeIsVar: true}}}
	require.Equal(t, Dynamic, Classify(shape))
}

func TestClassifyUnknownKindDefaultsToDynamic(t *testing.T) {
	require.Equal(t, Dynamic, Classify(leaf("whatever")))
}
