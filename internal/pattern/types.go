// Package pattern implements the pattern matrix and constructor model,
// the exhaustiveness and usefulness predicate, and the decision-tree
// compiler of the compiler core.
package pattern

import "math"

// Kind tags the variant a Constructor represents.
type Kind int

const (
	BoolLit Kind = iota
	IntLit
	FloatLit
	StringLit
	UnitLit
	TupleCtor
	ArrayCtor
	StructCtor
	VariantCtor
	RangeCtor
	Wildcard
)

func (k Kind) String() string {
	switch k {
	case BoolLit:
		return "Bool"
	case IntLit:
		return "Int"
	case FloatLit:
		return "Float"
	case StringLit:
		return "String"
	case UnitLit:
		return "Unit"
	case TupleCtor:
		return "Tuple"
	case ArrayCtor:
		return "Array"
	case StructCtor:
		return "Struct"
	case VariantCtor:
		return "Variant"
	case RangeCtor:
		return "Range"
	default:
		return "Wildcard"
	}
}

// Constructor is a tagged variant over the constructor forms named in the
// specification's data model: a value of any type is built (or matched)
// by exactly one constructor, carrying the arity and field types of its
// sub-patterns.
type Constructor struct {
	Kind Kind

	Bool   bool
	Int    int64
	Float  float64
	String string

	Arity   int  // Tuple/Array/Struct/Variant sub-pattern count
	HasRest bool // Array(..., hasRest)

	Fields []string // Struct field names, in declaration order

	EnumID       string // Variant's owning enum
	VariantIndex int

	RangeStart     int64
	RangeEnd       int64
	RangeInclusive bool

	// FieldSets gives the ConstructorSet for each sub-pattern slot, used
	// when specializing a matrix's column-type list on this constructor.
	FieldSets []ConstructorSet
}

// Equal reports whether two constructors are the same tag and payload.
// Floats compare by bit pattern so NaN and signed zero behave
// consistently with the matrix's equality contract.
func (c Constructor) Equal(o Constructor) bool {
	if c.Kind != o.Kind {
		return false
	}
	switch c.Kind {
	case BoolLit:
		return c.Bool == o.Bool
	case IntLit:
		return c.Int == o.Int
	case FloatLit:
		return math.Float64bits(c.Float) == math.Float64bits(o.Float)
	case StringLit:
		return c.String == o.String
	case UnitLit:
		return true
	case TupleCtor, StructCtor:
		return c.Arity == o.Arity
	case ArrayCtor:
		return c.Arity == o.Arity && c.HasRest == o.HasRest
	case VariantCtor:
		return c.EnumID == o.EnumID && c.VariantIndex == o.VariantIndex
	case RangeCtor:
		return c.RangeStart == o.RangeStart && c.RangeEnd == o.RangeEnd && c.RangeInclusive == o.RangeInclusive
	default:
		return true
	}
}

// key returns a comparable value suitable for use as a map key, grouping
// rows by constructor identity during matrix specialization.
func (c Constructor) key() interface{} {
	switch c.Kind {
	case BoolLit:
		return [2]interface{}{c.Kind, c.Bool}
	case IntLit:
		return [2]interface{}{c.Kind, c.Int}
	case FloatLit:
		return [2]interface{}{c.Kind, math.Float64bits(c.Float)}
	case StringLit:
		return [2]interface{}{c.Kind, c.String}
	case UnitLit:
		return c.Kind
	case TupleCtor, StructCtor:
		return [2]interface{}{c.Kind, c.Arity}
	case ArrayCtor:
		return [3]interface{}{c.Kind, c.Arity, c.HasRest}
	case VariantCtor:
		return [3]interface{}{c.Kind, c.EnumID, c.VariantIndex}
	case RangeCtor:
		return [4]interface{}{c.Kind, c.RangeStart, c.RangeEnd, c.RangeInclusive}
	default:
		return c.Kind
	}
}

// ConstructorSet describes every value a type can take, for purposes of
// exhaustiveness: either a finite enumerable set or an infinite domain
// with representative "seen" constructors supplied by the matrix being
// analyzed.
type ConstructorSet struct {
	TypeName string
	Finite   bool
	All      []Constructor // only meaningful when Finite
}

// IsFinite reports whether this type has a bounded constructor set.
func (s ConstructorSet) IsFinite() bool { return s.Finite }

// Missing returns the constructors in s.All that do not appear in seen,
// preserving s.All's canonical order. Only meaningful for finite sets.
func (s ConstructorSet) Missing(seen []Constructor) []Constructor {
	var missing []Constructor
	for _, c := range s.All {
		found := false
		for _, sc := range seen {
			if c.Equal(sc) {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, c)
		}
	}
	return missing
}

// Covers reports whether seen names every constructor in a finite set —
// equivalent to len(Missing(seen)) == 0 but avoids the allocation.
func (s ConstructorSet) Covers(seen []Constructor) bool {
	if !s.Finite {
		return false
	}
	for _, c := range s.All {
		found := false
		for _, sc := range seen {
			if c.Equal(sc) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// GuardExpr is an opaque runtime predicate attached to a pattern row. The
// compiler core never evaluates it; it only needs to know whether one is
// present, since a guarded arm is treated as non-matching during
// exhaustiveness.
type GuardExpr interface{}

// DeconstructedPattern is one column's pattern, lowered to its
// constructor and sub-patterns. Alternatives is non-empty only for an
// or-pattern (`A | B`); when set, Ctor and Sub are ignored and the row is
// expanded by ExpandOrPatterns before matrix construction.
type DeconstructedPattern struct {
	Ctor         Constructor
	Sub          []DeconstructedPattern
	Binding      string // bound identifier, if any; empty for none
	Alternatives []DeconstructedPattern
}

// IsWildcard reports whether this pattern matches anything without
// testing a constructor — either an explicit wildcard or a bare binding.
func (p DeconstructedPattern) IsWildcard() bool {
	return p.Ctor.Kind == Wildcard
}

// PatternRow is one source arm, represented as an ordered sequence of
// deconstructed patterns (one per matrix column).
type PatternRow struct {
	Patterns []DeconstructedPattern
	ArmIndex int
	Guard    GuardExpr
}

// HasGuard reports whether this row carries a guard expression.
func (r PatternRow) HasGuard() bool { return r.Guard != nil }

// PatternMatrix is the insertion-ordered set of rows under analysis for
// one `match`, alongside the ConstructorSet describing each column's
// type.
type PatternMatrix struct {
	ColumnTypes []ConstructorSet
	Rows        []PatternRow
}

// NumColumns returns the matrix's column count, len(ColumnTypes); the
// rows are not consulted.
func (m PatternMatrix) NumColumns() int {
	return len(m.ColumnTypes)
}
