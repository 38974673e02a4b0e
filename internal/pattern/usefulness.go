package pattern

import "fmt"

// Witness is a concrete example pattern demonstrating a value not
// covered by a matrix — the output of a failed exhaustiveness check.
type Witness struct {
	Ctor        Constructor
	Sub         []Witness
	Placeholder string // set instead of Ctor for an infinite-type "any value not in {...}" witness
}

func (w Witness) String() string {
	if w.Placeholder != "" {
		return w.Placeholder
	}
	switch w.Ctor.Kind {
	case BoolLit:
		return fmt.Sprintf("%v", w.Ctor.Bool)
	case IntLit:
		return fmt.Sprintf("%d", w.Ctor.Int)
	case FloatLit:
		return fmt.Sprintf("%v", w.Ctor.Float)
	case StringLit:
		return fmt.Sprintf("%q", w.Ctor.String)
	case UnitLit:
		return "()"
	case Wildcard:
		return "_"
	case TupleCtor:
		return tupleString(w.Sub)
	case StructCtor:
		return structString(w.Ctor.Fields, w.Sub)
	case VariantCtor:
		return variantString(w.Ctor, w.Sub)
	default:
		return "_"
	}
}

func tupleString(sub []Witness) string {
	s := "("
	for i, w := range sub {
		if i > 0 {
			s += ", "
		}
		s += w.String()
	}
	return s + ")"
}

func structString(fields []string, sub []Witness) string {
	s := "{"
	for i, w := range sub {
		if i > 0 {
			s += ", "
		}
		if i < len(fields) {
			s += fields[i] + ": "
		}
		s += w.String()
	}
	return s + "}"
}

func variantString(ctor Constructor, sub []Witness) string {
	if len(sub) == 0 {
		return ctor.EnumID
	}
	return ctor.EnumID + tupleString(sub)
}

// wildcardRow produces a row of n wildcard columns, used as the "q" query
// row when testing whether a matrix is exhaustive.
func wildcardRow(n int) []DeconstructedPattern {
	row := make([]DeconstructedPattern, n)
	for i := range row {
		row[i] = DeconstructedPattern{Ctor: Constructor{Kind: Wildcard}}
	}
	return row
}

// Useful implements the usefulness predicate: does some value match query
// row q (with column types colTypes) that no row of matrix m matches?
// Guarded rows of m are treated as non-matching, so a guard never makes a
// later row non-useful.
func Useful(m PatternMatrix, q []DeconstructedPattern, colTypes []ConstructorSet) (bool, []Witness) {
	if len(colTypes) == 0 {
		// No columns left to test: q is useful iff no (unguarded) row of m
		// remains to have already claimed this value.
		for _, row := range m.Rows {
			if !row.HasGuard() {
				return false, nil
			}
		}
		return true, nil
	}

	head := q[0]
	headSet := colTypes[0]

	if len(head.Alternatives) > 0 {
		for _, alt := range head.Alternatives {
			altRow := append([]DeconstructedPattern{alt}, q[1:]...)
			if useful, witnesses := Useful(m, altRow, colTypes); useful {
				return true, witnesses
			}
		}
		return false, nil
	}

	if !head.IsWildcard() {
		spec := specializeUnguarded(m, head.Ctor)
		subCols := specializedColumnTypes(colTypes, head.Ctor)
		subQ := append(append([]DeconstructedPattern(nil), head.Sub...), q[1:]...)
		useful, witnesses := Useful(spec, subQ, subCols)
		if !useful {
			return false, nil
		}
		w := Witness{Ctor: head.Ctor, Sub: witnesses[:min(len(witnesses), head.Ctor.Arity)]}
		return true, append([]Witness{w}, witnesses[head.Ctor.Arity:]...)
	}

	present := headConstructorsUnguarded(m)

	if headSet.IsFinite() && headSet.Covers(present) {
		for _, c := range headSet.All {
			spec := specializeUnguarded(m, c)
			subCols := specializedColumnTypes(colTypes, c)
			subQ := append(wildcardRow(c.Arity), q[1:]...)
			if useful, witnesses := Useful(spec, subQ, subCols); useful {
				w := Witness{Ctor: c, Sub: witnesses[:min(len(witnesses), c.Arity)]}
				return true, append([]Witness{w}, witnesses[c.Arity:]...)
			}
		}
		return false, nil
	}

	// Either an infinite type, or a finite type not fully covered by the
	// matrix's present constructors: fall through to the default matrix.
	def := defaultUnguarded(m)
	defCols := colTypes[1:]
	useful, witnesses := Useful(def, q[1:], defCols)
	if !useful {
		return false, nil
	}
	if headSet.IsFinite() {
		missing := headSet.Missing(present)
		if len(missing) > 0 {
			return true, append([]Witness{{Ctor: missing[0]}}, witnesses...)
		}
	}
	placeholder := placeholderFor(headSet, present)
	return true, append([]Witness{{Placeholder: placeholder}}, witnesses...)
}

func placeholderFor(set ConstructorSet, present []Constructor) string {
	name := set.TypeName
	if name == "" {
		name = "value"
	}
	if len(present) == 0 {
		return fmt.Sprintf("<any %s>", name)
	}
	return fmt.Sprintf("<any %s not in {...}>", name)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// specializeUnguarded/defaultUnguarded/headConstructorsUnguarded mirror
// Specialize/Default/HeadConstructors but exclude guarded rows, since a
// guard means the row does not unconditionally cover the value.
func specializeUnguarded(m PatternMatrix, ctor Constructor) PatternMatrix {
	return Specialize(unguardedOnly(m), ctor)
}

func defaultUnguarded(m PatternMatrix) PatternMatrix {
	return Default(unguardedOnly(m))
}

func headConstructorsUnguarded(m PatternMatrix) []Constructor {
	return HeadConstructors(unguardedOnly(m))
}

func unguardedOnly(m PatternMatrix) PatternMatrix {
	var rows []PatternRow
	for _, row := range m.Rows {
		if !row.HasGuard() {
			rows = append(rows, row)
		}
	}
	return PatternMatrix{ColumnTypes: m.ColumnTypes, Rows: rows}
}

// CheckExhaustiveness tests whether m covers every possible value of its
// scrutinee. On failure it returns the witnesses for values not covered.
func CheckExhaustiveness(m PatternMatrix) (exhaustive bool, witnesses []Witness) {
	q := wildcardRow(len(m.ColumnTypes))
	useful, w := Useful(m, q, m.ColumnTypes)
	return !useful, w
}

// CheckRedundancy returns the arm indices (in source order) whose row is
// not useful against the rows that precede it — i.e. redundant arms. A
// guarded arm's own usefulness is tested against the matrix with other
// guarded rows excluded, so a guard never masks its own unreachability.
func CheckRedundancy(m PatternMatrix) []int {
	var redundant []int
	for i := range m.Rows {
		prefix := PatternMatrix{ColumnTypes: m.ColumnTypes}
		for j := 0; j < i; j++ {
			if m.Rows[j].HasGuard() {
				continue
			}
			prefix.Rows = append(prefix.Rows, m.Rows[j])
		}
		useful, _ := Useful(prefix, m.Rows[i].Patterns, m.ColumnTypes)
		if !useful {
			redundant = append(redundant, m.Rows[i].ArmIndex)
		}
	}
	return redundant
}
