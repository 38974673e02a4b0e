package pattern

// DecisionNode is the compiled form of a pattern matrix: a tree of tests
// (Switch) and results (Leaf/Fail).
type DecisionNode interface {
	isDecisionNode()
}

// Leaf is a successful match: evaluate the body of the named arm.
type Leaf struct {
	ArmIndex int
}

func (Leaf) isDecisionNode() {}

// Fail means no arm matches — reachable only for a matrix proven
// non-exhaustive upstream; a fully-verified match never reaches Fail at
// runtime.
type Fail struct{}

func (Fail) isDecisionNode() {}

// Case pairs one constructor with the sub-tree to take when the tested
// place holds a value built with it.
type Case struct {
	Ctor Constructor
	Sub  DecisionNode
}

// Switch tests the value at Place (a path of selectors from the
// scrutinee's root) against each Case's constructor, in the order given;
// Default runs when the value matches none of them.
type Switch struct {
	Place      []int
	ColumnType ConstructorSet
	Cases      []Case
	Default    DecisionNode
}

func (*Switch) isDecisionNode() {}

// Compile lowers a pattern matrix to a decision tree of switches and
// leaves. The matrix's columns are addressed as paths relative to the scrutinee:
// column i of the initial matrix is Place [i].
func Compile(m PatternMatrix) DecisionNode {
	m = ExpandOrPatterns(m)
	paths := make([][]int, len(m.ColumnTypes))
	for i := range paths {
		paths[i] = []int{i}
	}
	return compile(m, paths)
}

func compile(m PatternMatrix, paths [][]int) DecisionNode {
	if len(m.Rows) == 0 {
		return Fail{}
	}
	if isDefaultRow(m.Rows[0]) {
		return Leaf{ArmIndex: m.Rows[0].ArmIndex}
	}
	if len(m.ColumnTypes) == 0 {
		return Leaf{ArmIndex: m.Rows[0].ArmIndex}
	}

	col := chooseColumn(m)
	m, paths = swapColumn(m, paths, col)
	return buildSwitch(m, paths)
}

// isDefaultRow reports whether every column of a row is a wildcard —
// such a row matches unconditionally and terminates the search.
func isDefaultRow(row PatternRow) bool {
	for _, p := range row.Patterns {
		if !p.IsWildcard() {
			return false
		}
	}
	return true
}

// chooseColumn implements the deterministic column-selection heuristic:
// prefer a finite, small constructor set; among ties,
// prefer the fewest wildcards; among ties, leftmost wins.
func chooseColumn(m PatternMatrix) int {
	type candidate struct {
		finite    bool
		size      int
		wildcards int
	}
	var best candidate
	bestCol := 0

	for col := range m.ColumnTypes {
		wildcards := 0
		for _, row := range m.Rows {
			if row.Patterns[col].IsWildcard() {
				wildcards++
			}
		}
		cand := candidate{
			finite:    m.ColumnTypes[col].IsFinite(),
			size:      len(m.ColumnTypes[col].All),
			wildcards: wildcards,
		}

		if col == 0 {
			best, bestCol = cand, col
			continue
		}

		switch {
		case cand.finite && !best.finite:
			best, bestCol = cand, col
		case cand.finite != best.finite:
			// infinite never beats finite; nothing to do.
		case cand.size < best.size:
			best, bestCol = cand, col
		case cand.size == best.size && cand.wildcards < best.wildcards:
			best, bestCol = cand, col
		}
	}
	return bestCol
}

// swapColumn moves column `col` to the front so the rest of the compiler
// can always operate on column 0, carrying the parallel path slice along.
func swapColumn(m PatternMatrix, paths [][]int, col int) (PatternMatrix, [][]int) {
	if col == 0 {
		return m, paths
	}
	newColTypes := append([]ConstructorSet{m.ColumnTypes[col]}, removeAt(m.ColumnTypes, col)...)
	newPaths := append([][]int{paths[col]}, removeAt(paths, col)...)

	var rows []PatternRow
	for _, row := range m.Rows {
		newPatterns := append([]DeconstructedPattern{row.Patterns[col]}, removeAt(row.Patterns, col)...)
		rows = append(rows, PatternRow{Patterns: newPatterns, ArmIndex: row.ArmIndex, Guard: row.Guard})
	}
	return PatternMatrix{ColumnTypes: newColTypes, Rows: rows}, newPaths
}

func removeAt[T any](s []T, i int) []T {
	out := make([]T, 0, len(s)-1)
	out = append(out, s[:i]...)
	out = append(out, s[i+1:]...)
	return out
}

func buildSwitch(m PatternMatrix, paths [][]int) DecisionNode {
	place := paths[0]
	colType := m.ColumnTypes[0]
	ctors := orderRangeCases(HeadConstructors(m))

	var cases []Case
	for _, ctor := range ctors {
		spec := Specialize(m, ctor)
		subPaths := specializedPaths(paths, ctor, place)
		cases = append(cases, Case{Ctor: ctor, Sub: compile(spec, subPaths)})
	}

	var def DecisionNode
	complete := colType.IsFinite() && colType.Covers(ctors)
	if !complete {
		defMatrix := Default(m)
		def = compile(defMatrix, paths[1:])
	}

	if len(cases) == 0 && def != nil {
		return def
	}

	sw := &Switch{Place: place, ColumnType: colType, Cases: cases, Default: def}
	return collapse(sw)
}

// orderRangeCases moves range constructors into ascending bound order so
// they lower to sequential tests lowest-first; overlapping ranges within
// one match behave as multiple constructors in the column, tested in that
// order. Non-range constructors keep their stable source order.
func orderRangeCases(ctors []Constructor) []Constructor {
	ranges := 0
	for _, c := range ctors {
		if c.Kind == RangeCtor {
			ranges++
		}
	}
	if ranges < 2 {
		return ctors
	}
	out := append([]Constructor(nil), ctors...)
	// Insertion sort over only the range-kind elements, leaving every other
	// constructor where it stands.
	var rangeIdx []int
	for i, c := range out {
		if c.Kind == RangeCtor {
			rangeIdx = append(rangeIdx, i)
		}
	}
	for i := 1; i < len(rangeIdx); i++ {
		for j := i; j > 0; j-- {
			a, b := &out[rangeIdx[j-1]], &out[rangeIdx[j]]
			if a.RangeStart < b.RangeStart || (a.RangeStart == b.RangeStart && a.RangeEnd <= b.RangeEnd) {
				break
			}
			*a, *b = *b, *a
		}
	}
	return out
}

// specializedPaths extends the path of each of ctor's sub-patterns with
// its field index under place, followed by the unchanged tail paths.
func specializedPaths(paths [][]int, ctor Constructor, place []int) [][]int {
	sub := make([][]int, ctor.Arity)
	for i := range sub {
		p := append(append([]int(nil), place...), i)
		sub[i] = p
	}
	return append(sub, paths[1:]...)
}

// collapse implements the Switch-to-Leaf optimization: if every case and
// the default subtree are the identical leaf, the switch is redundant.
func collapse(sw *Switch) DecisionNode {
	if len(sw.Cases) == 0 {
		if sw.Default != nil {
			return sw.Default
		}
		return sw
	}
	first, ok := sw.Cases[0].Sub.(Leaf)
	if !ok {
		return sw
	}
	for _, c := range sw.Cases[1:] {
		leaf, ok := c.Sub.(Leaf)
		if !ok || leaf.ArmIndex != first.ArmIndex {
			return sw
		}
	}
	if sw.Default != nil {
		leaf, ok := sw.Default.(Leaf)
		if !ok || leaf.ArmIndex != first.ArmIndex {
			return sw
		}
	}
	return first
}

// CanCompileToTree is a worth-it heuristic: decision-tree lowering pays
// off once a match has more than one dispatchable (literal/constructor)
// arm; a single-arm or all-wildcard match gains nothing from it.
func CanCompileToTree(m PatternMatrix) bool {
	count := 0
	for _, row := range m.Rows {
		if len(row.Patterns) > 0 && !row.Patterns[0].IsWildcard() {
			count++
		}
	}
	return count >= 2
}
