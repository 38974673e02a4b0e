package contract

import (
	"context"
	"fmt"

	"github.com/aria-lang/ariac/internal/ast"
	"github.com/aria-lang/ariac/internal/errors"
)

// Mode is the compile-time contract-verification policy, resolved per
// module, with an explicit per-function override taking precedence over
// the project default.
type Mode int

const (
	Full Mode = iota
	StaticOnly
	RuntimeOnly
	Off
)

// Outcome records what happened to one clause after routing.
type Outcome struct {
	Clause         ast.Contract
	Tier           Tier
	Verified       bool   // a static proof or a cached/abstract proof succeeded; no runtime cost
	Counterexample string // set when Tier 1 finds SAT on the negation
	RuntimeCheck   bool   // a runtime check must be emitted
	Warning        string // downgrade / timeout / skip warnings
}

// Request describes one function's clauses for routing.
type Request struct {
	Function string
	Public   bool // invariants are checked at entry and exit of public operations only
	Clauses  []ast.Contract

	// TypeContextDigest keys the verdict caches alongside the clause text,
	// so a clause proven under one set of argument types is never reused
	// under another.
	TypeContextDigest string
}

// Router dispatches each function's contract clauses by tier: Tier 1 to
// the SMT adapter, Tier 2 to the cached abstract-interpretation pass,
// Tier 3 to an inserted runtime check at the clause's legal check point.
type Router struct {
	adapter     *SMTAdapter
	tier2Cache  *Cache
	interp      Interpreter
	facts       FactSource   // nil means no facts: every Tier-2 miss is Unknown
	emitter     CheckEmitter // nil means checks are recorded in outcomes only
	defaultMode Mode
	overrides   map[string]Mode // per-function mode override
}

// NewRouter creates a Router with the given project-default mode and SMT
// adapter. tier2Capacity bounds the abstract-interpretation verdict cache;
// entries beyond it are evicted least-recently-used.
func NewRouter(defaultMode Mode, adapter *SMTAdapter, tier2Capacity int) *Router {
	return &Router{
		adapter:     adapter,
		tier2Cache:  NewCache(tier2Capacity),
		defaultMode: defaultMode,
		overrides:   make(map[string]Mode),
	}
}

// SetOverride records a per-function mode override.
func (r *Router) SetOverride(funcName string, mode Mode) {
	r.overrides[funcName] = mode
}

// SetFactSource installs the per-function abstract environment supplier
// consulted on Tier-2 cache misses.
func (r *Router) SetFactSource(facts FactSource) {
	r.facts = facts
}

// SetEmitter installs the MIR-emitter seam that receives runtime check
// requests for clauses the static tiers could not discharge.
func (r *Router) SetEmitter(emitter CheckEmitter) {
	r.emitter = emitter
}

// Tier2Cache exposes the abstract-interpretation verdict cache for
// lifecycle management (disk persistence between incremental builds).
func (r *Router) Tier2Cache() *Cache {
	return r.tier2Cache
}

func (r *Router) modeFor(funcName string) Mode {
	if m, ok := r.overrides[funcName]; ok {
		return m
	}
	return r.defaultMode
}

// Route classifies and dispatches every clause of one function. ctx is
// observed by in-flight SMT queries: cancellation makes them abandon and
// report unknown, which downgrades the affected clause to a runtime check.
func (r *Router) Route(ctx context.Context, req Request) ([]Outcome, []error) {
	mode := r.modeFor(req.Function)
	var outcomes []Outcome
	var diagnostics []error

	if mode == Off {
		for _, c := range req.Clauses {
			outcomes = append(outcomes, Outcome{Clause: c, Tier: Classify(c.Shape)})
		}
		return outcomes, nil
	}

	for _, c := range req.Clauses {
		tier := Classify(c.Shape)
		outcome := Outcome{Clause: c, Tier: tier}

		switch tier {
		case Static:
			if mode == RuntimeOnly {
				outcome.Tier = Dynamic
				r.requestCheck(req, c, &outcome)
				outcomes = append(outcomes, outcome)
				continue
			}
			o, err := r.routeStatic(ctx, mode, req, c)
			if err != nil {
				diagnostics = append(diagnostics, err)
			}
			outcomes = append(outcomes, o)

		case Cached:
			if mode == RuntimeOnly {
				outcome.Tier = Dynamic
				r.requestCheck(req, c, &outcome)
				outcomes = append(outcomes, outcome)
				continue
			}
			o, err := r.routeCached(mode, req, c)
			if err != nil {
				diagnostics = append(diagnostics, err)
			}
			outcomes = append(outcomes, o)

		default: // Dynamic
			if mode == StaticOnly {
				outcome.Warning = "contract clause requires a runtime check but mode is static-only; skipped"
				outcomes = append(outcomes, outcome)
				continue
			}
			r.requestCheck(req, c, &outcome)
			outcomes = append(outcomes, outcome)
		}
	}

	return outcomes, diagnostics
}

func (r *Router) routeStatic(ctx context.Context, mode Mode, req Request, c ast.Contract) (Outcome, error) {
	key := NewCacheKey(c.Text, req.TypeContextDigest, r.adapter.SolverVersion)
	verdict, err := r.adapter.Query(ctx, c, key)
	outcome := Outcome{Clause: c, Tier: Static}

	if err != nil {
		r.fallBack(mode, req, c, &outcome)
		return outcome, errors.WrapReport(errors.NewReport(errors.CTR002,
			fmt.Sprintf("SMT query failed for %q: %v", c.Text, err)))
	}

	switch verdict.Result {
	case UNSAT:
		outcome.Verified = true
	case SAT:
		outcome.Counterexample = verdict.Counterexample
		r.fallBack(mode, req, c, &outcome)
		return outcome, errors.WrapReport(errors.NewReport(errors.CTR001,
			fmt.Sprintf("static contract violation: %q has counterexample %s", c.Text, verdict.Counterexample)))
	case UNKNOWN:
		outcome.Tier = Dynamic
		r.fallBack(mode, req, c, &outcome)
		if outcome.Warning == "" {
			outcome.Warning = "solver returned unknown; downgraded to a runtime check"
		}
		return outcome, errors.WrapReport(errors.NewReport(errors.CTR002,
			fmt.Sprintf("contract verification timeout for %q", c.Text)))
	}
	return outcome, nil
}

func (r *Router) routeCached(mode Mode, req Request, c ast.Contract) (Outcome, error) {
	key := NewCacheKey(c.Text, req.TypeContextDigest, r.adapter.SolverVersion)
	outcome := Outcome{Clause: c, Tier: Cached}

	cached, hit := r.tier2Cache.Get(key)
	if !hit {
		proof := Unknown
		if r.facts != nil {
			proof = r.interp.Prove(c.Shape, r.facts.FactsFor(req.Function))
		}
		cached = tier2Verdict{Proof: proof}
		r.tier2Cache.Put(key, cached)
	}

	switch cached.Proof {
	case Proven:
		outcome.Verified = true
		return outcome, nil
	case Refuted:
		r.fallBack(mode, req, c, &outcome)
		return outcome, errors.WrapReport(errors.NewReport(errors.CTR001,
			fmt.Sprintf("contract clause %q is false for every state the analysis admits", c.Text)))
	default:
		r.fallBack(mode, req, c, &outcome)
		return outcome, nil
	}
}

// fallBack routes a clause the static tiers could not discharge: in
// static-only mode the check is skipped with a warning, otherwise a
// runtime check is requested.
func (r *Router) fallBack(mode Mode, req Request, c ast.Contract, outcome *Outcome) {
	if mode == StaticOnly {
		outcome.Warning = "contract clause requires a runtime check but mode is static-only; skipped"
		return
	}
	r.requestCheck(req, c, outcome)
}

// requestCheck marks the outcome as needing a runtime check and, when an
// emitter is wired, asks the MIR emitter to insert the predicate at the
// clause's legal check point. Invariants are only checked on public
// operations; decreases clauses never lower to a runtime check.
func (r *Router) requestCheck(req Request, c ast.Contract, outcome *Outcome) {
	point, kind, emit := checkPlacement(c.Kind)
	if !emit {
		return
	}
	if c.Kind == ast.Invariant && !req.Public {
		return
	}
	outcome.RuntimeCheck = true
	if r.emitter == nil {
		return
	}
	r.emitter.EmitCheck(RuntimeCheck{
		Function:     req.Function,
		Kind:         kind,
		Point:        point,
		ClauseText:   c.Text,
		ResultVar:    c.ResultVar,
		OldSnapshots: collectOldSnapshots(c.Shape),
		Pos:          c.Pos,
	})
}
