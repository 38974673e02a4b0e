package pattern

// ExpandOrPatterns duplicates every row containing an or-pattern in any
// top-level column into one row per alternative, recursively, so the rest of
// the pipeline never has to reason about `A | B` directly. Nested
// or-patterns are expanded depth-first (an alternative that is itself an
// or-pattern is expanded again before the row is emitted).
func ExpandOrPatterns(m PatternMatrix) PatternMatrix {
	var expanded []PatternRow
	for _, row := range m.Rows {
		expanded = append(expanded, expandRow(row)...)
	}
	return PatternMatrix{ColumnTypes: m.ColumnTypes, Rows: expanded}
}

func expandRow(row PatternRow) []PatternRow {
	for col, pat := range row.Patterns {
		if len(pat.Alternatives) == 0 {
			continue
		}
		var out []PatternRow
		for _, alt := range pat.Alternatives {
			clone := row
			clone.Patterns = append(append([]DeconstructedPattern(nil), row.Patterns[:col]...), alt)
			clone.Patterns = append(clone.Patterns, row.Patterns[col+1:]...)
			out = append(out, expandRow(clone)...)
		}
		return out
	}
	return []PatternRow{row}
}

// Specialize implements the matrix specialization step on constructor
// ctor: rows whose head matches it are rewritten with
// ctor's sub-patterns prepended to the remaining columns; wildcard-headed
// rows expand to ctor.Arity fresh wildcards; any other constructor-headed
// row is dropped.
func Specialize(m PatternMatrix, ctor Constructor) PatternMatrix {
	newColTypes := specializedColumnTypes(m.ColumnTypes, ctor)

	var rows []PatternRow
	for _, row := range m.Rows {
		head, rest := row.Patterns[0], row.Patterns[1:]

		switch {
		case head.IsWildcard():
			fresh := make([]DeconstructedPattern, ctor.Arity)
			for i := range fresh {
				fresh[i] = DeconstructedPattern{Ctor: Constructor{Kind: Wildcard}}
			}
			rows = append(rows, PatternRow{
				Patterns: append(fresh, rest...),
				ArmIndex: row.ArmIndex,
				Guard:    row.Guard,
			})
		case head.Ctor.Equal(ctor):
			rows = append(rows, PatternRow{
				Patterns: append(append([]DeconstructedPattern(nil), head.Sub...), rest...),
				ArmIndex: row.ArmIndex,
				Guard:    row.Guard,
			})
		default:
			// Different constructor: row is dropped from this specialization.
		}
	}

	return PatternMatrix{ColumnTypes: newColTypes, Rows: rows}
}

// Default implements the default-matrix step: keeps wildcard-headed rows
// with their head column removed, and drops constructor-headed rows.
func Default(m PatternMatrix) PatternMatrix {
	var rows []PatternRow
	for _, row := range m.Rows {
		if !row.Patterns[0].IsWildcard() {
			continue
		}
		rows = append(rows, PatternRow{
			Patterns: append([]DeconstructedPattern(nil), row.Patterns[1:]...),
			ArmIndex: row.ArmIndex,
			Guard:    row.Guard,
		})
	}
	var colTypes []ConstructorSet
	if len(m.ColumnTypes) > 1 {
		colTypes = append([]ConstructorSet(nil), m.ColumnTypes[1:]...)
	}
	return PatternMatrix{ColumnTypes: colTypes, Rows: rows}
}

// HeadConstructors collects the distinct constructors appearing in the
// matrix's head column, in first-seen (source) order.
func HeadConstructors(m PatternMatrix) []Constructor {
	var out []Constructor
	seen := make(map[interface{}]bool)
	for _, row := range m.Rows {
		head := row.Patterns[0]
		if head.IsWildcard() {
			continue
		}
		k := head.Ctor.key()
		if !seen[k] {
			seen[k] = true
			out = append(out, head.Ctor)
		}
	}
	return out
}

func specializedColumnTypes(colTypes []ConstructorSet, ctor Constructor) []ConstructorSet {
	var fieldSets []ConstructorSet
	if len(ctor.FieldSets) > 0 {
		fieldSets = ctor.FieldSets
	} else {
		fieldSets = make([]ConstructorSet, ctor.Arity)
	}
	var rest []ConstructorSet
	if len(colTypes) > 1 {
		rest = colTypes[1:]
	}
	return append(append([]ConstructorSet(nil), fieldSets...), rest...)
}
