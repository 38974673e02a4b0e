// Package contract implements the contract classifier, the tiered
// verification router, the abstract-interpretation pass, and the SMT
// adapter of the compiler core.
package contract

import "github.com/aria-lang/ariac/internal/ast"

// Tier is the compile-time classification of a contract clause,
// determining whether verification is static (SMT), cached (abstract
// interpretation), or dynamic (runtime check).
type Tier int

const (
	Static Tier = iota
	Cached
	Dynamic
)

func (t Tier) String() string {
	switch t {
	case Static:
		return "static"
	case Cached:
		return "cached"
	default:
		return "dynamic"
	}
}

// Classify assigns a clause's tier: classification runs
// bottom-up, and the clause's tier is the maximum tier among its
// sub-expressions.
func Classify(shape ast.ExprShape) Tier {
	return classifyNode(shape)
}

func classifyNode(shape ast.ExprShape) Tier {
	own := ownTier(shape)
	for _, child := range shape.Children {
		if t := classifyNode(child); t > own {
			own = t
		}
	}
	return own
}

// ownTier classifies a single node's shape in isolation, ignoring its
// children — the bottom-up combination happens in classifyNode.
func ownTier(shape ast.ExprShape) Tier {
	switch shape.Kind {
	case "lit", "var", "nil-check", "type-test":
		return Static
	case "cmp", "arith", "logic", "not", "enum-member":
		return Static

	case "call":
		if shape.CalleeIsVar {
			return Dynamic
		}
		if shape.CalleeIsPure {
			return Cached
		}
		return Dynamic
	case "field":
		return Cached
	case "index":
		if shape.IndexIsTier1 {
			return Cached
		}
		return Dynamic
	case "old":
		// old(e)'s own tier is Cached; its operand's tier (carried via
		// Children) is folded in by classifyNode's max-of-children rule.
		return Cached

	case "quantifier":
		if shape.Unbounded {
			return Dynamic
		}
		return Cached

	default:
		if shape.DependsOnEffects {
			return Dynamic
		}
		return Dynamic
	}
}
