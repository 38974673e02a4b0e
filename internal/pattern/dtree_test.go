package pattern

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

// Scenario 5: match (x, y) { (true, _) => 1; (false, true) => 2; (false, false) => 3 }
// Expected: Switch x { true -> Leaf 1, false -> Switch y { true -> Leaf 2, false -> Leaf 3 } }
func TestCompileScenario5(t *testing.T) {
	m := PatternMatrix{
		ColumnTypes: []ConstructorSet{boolSet(), boolSet()},
		Rows: []PatternRow{
			{Patterns: []DeconstructedPattern{boolPat(true), wildcardPat()}, ArmIndex: 0},
			{Patterns: []DeconstructedPattern{boolPat(false), boolPat(true)}, ArmIndex: 1},
			{Patterns: []DeconstructedPattern{boolPat(false), boolPat(false)}, ArmIndex: 2},
		},
	}

	tree := Compile(m)
	sw, ok := tree.(*Switch)
	require.True(t, ok, "root should be a Switch")
	require.Equal(t, []int{0}, sw.Place)
	require.Len(t, sw.Cases, 2)
	require.Nil(t, sw.Default, "bool column is finite and fully covered")

	var trueCase, falseCase Case
	for _, c := range sw.Cases {
		if c.Ctor.Bool {
			trueCase = c
		} else {
			falseCase = c
		}
	}

	trueLeaf, ok := trueCase.Sub.(Leaf)
	require.True(t, ok)
	require.Equal(t, 0, trueLeaf.ArmIndex)

	falseSwitch, ok := falseCase.Sub.(*Switch)
	require.True(t, ok, "false branch should still switch on y")
	require.Equal(t, []int{1}, falseSwitch.Place)
	require.Len(t, falseSwitch.Cases, 2)

	for _, c := range falseSwitch.Cases {
		leaf, ok := c.Sub.(Leaf)
		require.True(t, ok)
		if c.Ctor.Bool {
			require.Equal(t, 1, leaf.ArmIndex)
		} else {
			require.Equal(t, 2, leaf.ArmIndex)
		}
	}
}

// Same scenario as TestCompileScenario5, checked in one shot with a
// structural diff instead of a manual tree walk — decision trees nest
// interfaces and slices deeply enough that a require.Equal failure here
// would just print "not equal", while cmp.Diff points at the exact node.
func TestCompileScenario5MatchesExpectedTreeShape(t *testing.T) {
	m := PatternMatrix{
		ColumnTypes: []ConstructorSet{boolSet(), boolSet()},
		Rows: []PatternRow{
			{Patterns: []DeconstructedPattern{boolPat(true), wildcardPat()}, ArmIndex: 0},
			{Patterns: []DeconstructedPattern{boolPat(false), boolPat(true)}, ArmIndex: 1},
			{Patterns: []DeconstructedPattern{boolPat(false), boolPat(false)}, ArmIndex: 2},
		},
	}

	want := &Switch{
		Place:      []int{0},
		ColumnType: boolSet(),
		Cases: []Case{
			{Ctor: Constructor{Kind: BoolLit, Bool: true}, Sub: Leaf{ArmIndex: 0}},
			{Ctor: Constructor{Kind: BoolLit, Bool: false}, Sub: &Switch{
				Place:      []int{1},
				ColumnType: boolSet(),
				Cases: []Case{
					{Ctor: Constructor{Kind: BoolLit, Bool: true}, Sub: Leaf{ArmIndex: 1}},
					{Ctor: Constructor{Kind: BoolLit, Bool: false}, Sub: Leaf{ArmIndex: 2}},
				},
			}},
		},
	}

	got := Compile(m)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("decision tree mismatch (-want +got):\n%s", diff)
	}
}

func TestCompileAllWildcardCollapsesToLeaf(t *testing.T) {
	m := PatternMatrix{
		ColumnTypes: []ConstructorSet{boolSet()},
		Rows: []PatternRow{
			{Patterns: []DeconstructedPattern{wildcardPat()}, ArmIndex: 0},
		},
	}
	tree := Compile(m)
	leaf, ok := tree.(Leaf)
	require.True(t, ok)
	require.Equal(t, 0, leaf.ArmIndex)
}

func TestCompileEmptyMatrixFails(t *testing.T) {
	m := PatternMatrix{ColumnTypes: []ConstructorSet{boolSet()}}
	tree := Compile(m)
	_, ok := tree.(Fail)
	require.True(t, ok)
}

func TestCompileCollapsesIdenticalCases(t *testing.T) {
	// Both true and false arms do the same thing: collapses to a single Leaf.
	m := PatternMatrix{
		ColumnTypes: []ConstructorSet{boolSet()},
		Rows: []PatternRow{
			{Patterns: []DeconstructedPattern{boolPat(true)}, ArmIndex: 0},
			{Patterns: []DeconstructedPattern{boolPat(false)}, ArmIndex: 0},
		},
	}
	tree := Compile(m)
	leaf, ok := tree.(Leaf)
	require.True(t, ok)
	require.Equal(t, 0, leaf.ArmIndex)
}

func rangePat(start, end int64) DeconstructedPattern {
	return DeconstructedPattern{Ctor: Constructor{Kind: RangeCtor, RangeStart: start, RangeEnd: end, RangeInclusive: true}}
}

// Range patterns lower to sequential tests in ascending bound order, no
// matter how the source arms were written.
func TestCompileOrdersRangeCasesAscending(t *testing.T) {
	intSet := ConstructorSet{TypeName: "Int", Finite: false}
	m := PatternMatrix{
		ColumnTypes: []ConstructorSet{intSet},
		Rows: []PatternRow{
			{Patterns: []DeconstructedPattern{rangePat(10, 20)}, ArmIndex: 0},
			{Patterns: []DeconstructedPattern{rangePat(0, 5)}, ArmIndex: 1},
			{Patterns: []DeconstructedPattern{rangePat(6, 9)}, ArmIndex: 2},
			{Patterns: []DeconstructedPattern{wildcardPat()}, ArmIndex: 3},
		},
	}

	tree := Compile(m)
	sw, ok := tree.(*Switch)
	require.True(t, ok)
	require.Len(t, sw.Cases, 3)
	require.Equal(t, int64(0), sw.Cases[0].Ctor.RangeStart)
	require.Equal(t, int64(6), sw.Cases[1].Ctor.RangeStart)
	require.Equal(t, int64(10), sw.Cases[2].Ctor.RangeStart)
	require.Equal(t, Leaf{ArmIndex: 3}, sw.Default)
}

func TestCanCompileToTreeHeuristic(t *testing.T) {
	single := PatternMatrix{Rows: []PatternRow{
		{Patterns: []DeconstructedPattern{wildcardPat()}},
	}}
	require.False(t, CanCompileToTree(single))

	multi := PatternMatrix{Rows: []PatternRow{
		{Patterns: []DeconstructedPattern{boolPat(true)}},
		{Patterns: []DeconstructedPattern{boolPat(false)}},
	}}
	require.True(t, CanCompileToTree(multi))
}
