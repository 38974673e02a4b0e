// Package ast defines the minimal surface-tree vocabulary shared by the
// compiler core. The lexer and parser that actually build these trees from
// source text live outside this module's scope; this package only fixes the
// shape that downstream components (module resolution, pattern analysis,
// effect inference, contract verification) are allowed to depend on.
package ast

import "fmt"

// Pos identifies a single point in a source file.
type Pos struct {
	File   string
	Line   int
	Column int
}

func (p Pos) String() string {
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}

// Span is a half-open source range used to underline diagnostics.
type Span struct {
	Start Pos `json:"start"`
	End   Pos `json:"end,omitempty"`
}

func (s Span) String() string {
	if s.End == (Pos{}) || s.End == s.Start {
		return s.Start.String()
	}
	return fmt.Sprintf("%s-%d:%d", s.Start.String(), s.End.Line, s.End.Column)
}

// Visibility classifies a declaration's accessibility outside its module.
type Visibility int

const (
	Private Visibility = iota
	Public
	Crate
	Super
)

func (v Visibility) String() string {
	switch v {
	case Public:
		return "pub"
	case Crate:
		return "crate"
	case Super:
		return "super"
	default:
		return "priv"
	}
}

// Import is one `import` or `use` clause as written in source.
//
// Path holds either a dotted module name ("a::b::c") or a quoted relative
// path ("./sibling"). Symbols holds selective import names; an empty
// Symbols with Wildcard=false means "import the module itself".
type Import struct {
	Path     string
	Symbols  []ImportedSymbol
	Wildcard bool
	Reexport bool // `use` rather than `import`
	Pos      Pos
}

// ImportedSymbol is a single name in a selective import, with its optional
// `as` alias.
type ImportedSymbol struct {
	Name  string
	Alias string
}

// EffectiveName returns the alias if present, otherwise the bare name.
func (s ImportedSymbol) EffectiveName() string {
	if s.Alias != "" {
		return s.Alias
	}
	return s.Name
}

// Decl is any top-level declaration a module may export: a function, a
// value binding, a type, or an effect declaration. The compiler core only
// needs a name, a visibility, and a place to hang contract/effect
// annotations; it never inspects the declaration's body.
type Decl struct {
	Name       string
	Visibility Visibility
	Contracts  []Contract
	EffectRow  []string // declared effect names, nil if unannotated
	Pos        Pos
}

// Contract is a single requires/ensures/invariant/decreases clause attached
// to a declaration, exactly as consumed from source. The expression text is
// kept opaque (a string) since parsing expressions is outside this
// component's scope; the classifier only needs its syntactic shape, which
// is supplied out of band via ExprShape.
type Contract struct {
	Kind      ContractKind
	Text      string    // original source text, for diagnostics
	Shape     ExprShape // syntactic classification input
	ResultVar string    // bound name in `ensures |result| ...`, if any
	Pos       Pos
}

type ContractKind int

const (
	Requires ContractKind = iota
	Ensures
	Invariant
	Decreases
)

func (k ContractKind) String() string {
	switch k {
	case Requires:
		return "requires"
	case Ensures:
		return "ensures"
	case Invariant:
		return "invariant"
	case Decreases:
		return "decreases"
	default:
		return "unknown"
	}
}

// ExprShape is a coarse syntactic description of a contract clause
// expression, supplied by the surface checker as a side channel so the
// contract classifier (which never parses expressions itself) can run its
// bottom-up tier analysis. Each field mirrors one allowance of the tier
// grammar in the specification.
type ExprShape struct {
	// Kind names the node: "lit", "var", "cmp", "arith", "logic", "not",
	// "enum-member", "nil-check", "type-test", "call", "field", "index",
	// "old", "quantifier", "dynamic".
	Kind string

	// Name carries the identifier for Kind=="var" (the variable), "field"
	// (the field name), "call" (the callee), and "old" (a display label for
	// the snapshotted operand). Empty when the node has no name.
	Name string

	// Op is the operator spelling for Kind=="cmp" ("<", "<=", ">", ">=",
	// "==", "!=") and Kind=="arith" ("+", "-", "*", "/", "mod").
	Op string

	// IntVal is the value for an integer literal ("lit" with IsInt set).
	// Non-integer literals leave IsInt false and stay opaque to the
	// abstract interpreter.
	IntVal int64
	IsInt  bool

	// CalleeIsPure is set for Kind=="call" when the callee's effect row is
	// the empty closed row (inferred pure) or it carries an explicit `pure`
	// marker.
	CalleeIsPure bool

	// CalleeIsVar is set for Kind=="call" when invoked through a
	// function-typed variable rather than a statically known declaration.
	CalleeIsVar bool

	// IndexIsTier1 is set for Kind=="index" when the index expression is
	// itself Tier 1.
	IndexIsTier1 bool

	// Unbounded is set for Kind=="quantifier" when the domain is not a
	// literal finite set.
	Unbounded bool

	// DependsOnEffects is set when evaluating the expression requires IO or
	// mutable state (reading a `State` reference, calling an impure
	// function through a non-`old` path).
	DependsOnEffects bool

	Children []ExprShape
}

// Module is the surface representation of one parsed `.aria` file: just
// enough structure for the resolver, graph, and compiler to do their job.
// The full expression/statement tree produced by the parser is attached
// opaquely via Body so later phases (effect inference, pattern analysis)
// can walk it through their own visitor contracts without this package
// needing to know its shape.
type Module struct {
	Name    string
	Path    string // canonical file path
	Imports []Import
	Exports []string
	Decls   []Decl
	Body    interface{} // opaque parser output; nil in tests that don't need it
}

// FindDecl returns the declaration with the given name, if present.
func (m *Module) FindDecl(name string) (Decl, bool) {
	for _, d := range m.Decls {
		if d.Name == name {
			return d, true
		}
	}
	return Decl{}, false
}
