// Package pipeline orchestrates the compiler core's four subsystems —
// module resolution, pattern exhaustiveness, effect inference, and
// contract verification — into a single compile entry point, recording
// per-phase timings the way a production compiler reports them to
// `--dump-timings` or a CI dashboard.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aria-lang/ariac/internal/ast"
	"github.com/aria-lang/ariac/internal/contract"
	"github.com/aria-lang/ariac/internal/effects"
	"github.com/aria-lang/ariac/internal/errors"
	"github.com/aria-lang/ariac/internal/module"
	"github.com/aria-lang/ariac/internal/pattern"
)

// Mode mirrors the CLI's `build` vs `check` distinction: Check runs every
// analysis phase without requiring a `main` entry point, Build additionally
// requires one and verifies its effect row is dischargeable at the program
// boundary.
type Mode int

const (
	Check Mode = iota
	Build
)

// PatternSource supplies the pattern matrices for one declaration's match
// expressions. The typed-AST walk that builds these matrices belongs to
// the type-checker collaborator; this interface is the narrow boundary the
// pipeline consumes it through.
type PatternSource interface {
	MatchMatrices(decl ast.Decl) []pattern.PatternMatrix
}

// EffectSource supplies the inference expression for one declaration's
// body, through the effect-inference visitor contract.
type EffectSource interface {
	Body(decl ast.Decl) (effects.Expr, bool)
}

// Config bundles everything one compile call needs: the entry point, the
// collaborators for phases this module doesn't own, and contract-routing
// policy.
type Config struct {
	EntryPath   string
	Mode        Mode
	Parser      module.Parser
	SearchRoots []string

	Patterns PatternSource // nil skips the pattern phase entirely
	Effects  EffectSource  // nil skips the effect-inference phase entirely

	// Router, when set, is used as-is for contract dispatch — the path a
	// session takes when a contract.Verifier owns the process-wide caches.
	// When nil, a router is built from the three fields below.
	Router           *contract.Router
	ContractMode     contract.Mode
	ContractOverride map[string]contract.Mode
	SMTAdapter       *contract.SMTAdapter
	ContractCacheCap int
	ContractFacts    contract.FactSource   // abstract environment for Tier-2 misses; nil means none
	CheckEmitter     contract.CheckEmitter // MIR-emitter seam; nil records checks on the Result instead

	// Workers bounds how many modules are analyzed concurrently once the
	// dependency order is known. Zero or one runs strictly serially. A
	// module's analysis begins only after all of its dependencies finish,
	// whatever the worker count.
	Workers int
}

// Severity classifies a Diagnostic for rendering as an error, warning, or
// info block.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
)

// Diagnostic is one phase's non-fatal finding, carried forward rather
// than aborting the whole compile, so one run surfaces as many problems
// as it can.
type Diagnostic struct {
	Phase    string
	Module   string
	Decl     string
	Message  string
	Severity Severity
	Err      error
}

// Result is everything a compile call produces.
type Result struct {
	Program       *module.Program
	Diagnostics   []Diagnostic
	Witnesses     map[string][]pattern.Witness // decl qualified name -> non-exhaustive witnesses
	ContractLog   map[string][]contract.Outcome
	EffectRows    map[string]effects.Row // decl qualified name -> inferred row
	RuntimeChecks []contract.RuntimeCheck
	PhaseTimings  map[string]time.Duration
}

// moduleOutput is one module's analysis result, kept separate per module
// until the end so each module's diagnostics stay contiguous in the final
// report regardless of how analysis interleaved.
type moduleOutput struct {
	diags       []Diagnostic
	witnesses   map[string][]pattern.Witness
	contractLog map[string][]contract.Outcome
	effectRows  map[string]effects.Row
}

// checkRecorder collects runtime check requests when the caller supplies
// no MIR emitter of its own.
type checkRecorder struct {
	mu     sync.Mutex
	checks []contract.RuntimeCheck
}

func (r *checkRecorder) EmitCheck(c contract.RuntimeCheck) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checks = append(r.checks, c)
}

// sorted returns the recorded checks in a stable order, since parallel
// module analysis may deliver them in any interleaving.
func (r *checkRecorder) sorted() []contract.RuntimeCheck {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]contract.RuntimeCheck(nil), r.checks...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Function != out[j].Function {
			return out[i].Function < out[j].Function
		}
		return out[i].ClauseText < out[j].ClauseText
	})
	return out
}

// phaseClock accumulates per-phase durations across concurrently analyzed
// modules.
type phaseClock struct {
	mu   sync.Mutex
	sums map[string]time.Duration
}

func (c *phaseClock) add(phase string, d time.Duration) {
	c.mu.Lock()
	c.sums[phase] += d
	c.mu.Unlock()
}

// Run executes the full compiler-core pipeline: resolve, build the module
// graph and compile order, then run pattern, effect, and contract analysis
// over every module — concurrently where the dependency order permits.
//
// ctx is polled between modules and inside SMT queries; a cancelled ctx
// surfaces as an error and never exposes a partial module sequence.
func Run(ctx context.Context, cfg Config) (Result, error) {
	result := Result{
		Witnesses:    make(map[string][]pattern.Witness),
		ContractLog:  make(map[string][]contract.Outcome),
		EffectRows:   make(map[string]effects.Row),
		PhaseTimings: make(map[string]time.Duration),
	}

	mode := module.Library
	if cfg.Mode == Build {
		mode = module.Binary
	}

	start := time.Now()
	resolver := module.NewResolver(cfg.SearchRoots...)
	compiler := module.NewCompiler(resolver, cfg.Parser)
	program, parseErrs := compiler.Compile(cfg.EntryPath, mode)
	result.PhaseTimings["resolve"] = time.Since(start)
	for _, e := range parseErrs {
		result.Diagnostics = append(result.Diagnostics, Diagnostic{Phase: "resolve", Message: e.Error(), Severity: SeverityError, Err: e})
	}
	if program == nil {
		return result, fmt.Errorf("pipeline: resolve phase produced no program")
	}
	if _, ok := program.Modules[program.EntryID]; !ok {
		return result, fmt.Errorf("pipeline: entry module could not be loaded: %s", cfg.EntryPath)
	}
	result.Program = program

	router := cfg.Router
	if router == nil {
		router = contract.NewRouter(cfg.ContractMode, cfg.SMTAdapter, cfg.ContractCacheCap)
	}
	for fn, m := range cfg.ContractOverride {
		router.SetOverride(fn, m)
	}
	if cfg.ContractFacts != nil {
		router.SetFactSource(cfg.ContractFacts)
	}
	recorder := &checkRecorder{}
	if cfg.CheckEmitter != nil {
		router.SetEmitter(cfg.CheckEmitter)
	} else {
		router.SetEmitter(recorder)
	}

	clock := &phaseClock{sums: make(map[string]time.Duration)}
	outputs, err := analyzeAll(ctx, cfg, program, router, clock)
	if err != nil {
		return Result{}, err
	}

	// Stitch per-module outputs back together in dependency order so each
	// module's diagnostics are contiguous and the overall report is stable
	// for a given input.
	for _, id := range program.Order {
		out, ok := outputs[id]
		if !ok {
			continue
		}
		result.Diagnostics = append(result.Diagnostics, out.diags...)
		for k, v := range out.witnesses {
			result.Witnesses[k] = v
		}
		for k, v := range out.contractLog {
			result.ContractLog[k] = v
		}
		for k, v := range out.effectRows {
			result.EffectRows[k] = v
		}
	}

	if cfg.Mode == Build {
		if d := boundaryEffectCheck(program, result.EffectRows); d != nil {
			result.Diagnostics = append(result.Diagnostics, *d)
		}
	}

	if cfg.CheckEmitter == nil {
		result.RuntimeChecks = recorder.sorted()
	}
	for phase, d := range clock.sums {
		result.PhaseTimings[phase] = d
	}
	return result, nil
}

// analyzeAll runs per-module analysis over every loaded module, honoring
// the dependency order: a module starts only after all its dependencies
// finish. With cfg.Workers <= 1 the modules run serially in topological
// order; otherwise up to Workers modules run at once.
func analyzeAll(ctx context.Context, cfg Config, program *module.Program, router *contract.Router, clock *phaseClock) (map[module.ID]*moduleOutput, error) {
	outputs := make(map[module.ID]*moduleOutput, len(program.Modules))

	if cfg.Workers <= 1 {
		for _, id := range program.Order {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("pipeline: cancelled: %w", err)
			}
			mod, ok := program.Modules[id]
			if !ok {
				continue
			}
			outputs[id] = analyzeModule(ctx, cfg, mod, router, clock)
		}
		return outputs, nil
	}

	done := make(map[module.ID]chan struct{}, len(program.Order))
	for _, id := range program.Order {
		done[id] = make(chan struct{})
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, cfg.Workers)

	for _, id := range program.Order {
		mod, ok := program.Modules[id]
		if !ok {
			close(done[id])
			continue
		}
		wg.Add(1)
		go func(id module.ID, mod *module.Module) {
			defer wg.Done()
			defer close(done[id])

			for _, dep := range mod.Dependencies {
				if ch, ok := done[dep]; ok {
					<-ch
				}
			}
			if ctx.Err() != nil {
				return
			}

			sem <- struct{}{}
			out := analyzeModule(ctx, cfg, mod, router, clock)
			<-sem

			mu.Lock()
			outputs[id] = out
			mu.Unlock()
		}(id, mod)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("pipeline: cancelled: %w", err)
	}
	return outputs, nil
}

// analyzeModule runs the pattern, effect, and contract phases over one
// module. Each module gets its own unifier, so row variables never cross
// module boundaries; each declaration's recorded row is its inferred row
// with that unifier's substitution applied.
func analyzeModule(ctx context.Context, cfg Config, mod *module.Module, router *contract.Router, clock *phaseClock) *moduleOutput {
	out := &moduleOutput{
		witnesses:   make(map[string][]pattern.Witness),
		contractLog: make(map[string][]contract.Outcome),
		effectRows:  make(map[string]effects.Row),
	}

	start := time.Now()
	if cfg.Patterns != nil {
		for _, decl := range mod.Tree.Decls {
			for _, matrix := range cfg.Patterns.MatchMatrices(decl) {
				qualified := mod.DisplayName + "." + decl.Name
				exhaustive, witnesses := pattern.CheckExhaustiveness(matrix)
				if !exhaustive {
					out.witnesses[qualified] = witnesses
					out.diags = append(out.diags, Diagnostic{
						Phase: "pattern", Module: mod.DisplayName, Decl: decl.Name,
						Message: "match is not exhaustive", Severity: SeverityError,
					})
				}
				for _, armIdx := range pattern.CheckRedundancy(matrix) {
					out.diags = append(out.diags, Diagnostic{
						Phase: "pattern", Module: mod.DisplayName, Decl: decl.Name,
						Message: fmt.Sprintf("arm %d is unreachable", armIdx), Severity: SeverityWarning,
					})
				}
			}
		}
	}
	clock.add("pattern", time.Since(start))

	start = time.Now()
	if cfg.Effects != nil {
		unifier := effects.NewUnifier()
		inferrer := effects.NewInferrer(unifier)
		for _, decl := range mod.Tree.Decls {
			body, ok := cfg.Effects.Body(decl)
			if !ok {
				continue
			}
			qualified := mod.DisplayName + "." + decl.Name
			row, err := inferrer.Infer(body)
			if err != nil {
				out.diags = append(out.diags, Diagnostic{
					Phase: "effects", Module: mod.DisplayName, Decl: decl.Name,
					Message: err.Error(), Severity: SeverityError, Err: err,
				})
				continue
			}
			if len(decl.EffectRow) > 0 {
				declared := declaredRow(decl.EffectRow)
				if _, err := unifier.UnifyRows(row, declared); err != nil {
					out.diags = append(out.diags, Diagnostic{
						Phase: "effects", Module: mod.DisplayName, Decl: decl.Name,
						Message: fmt.Sprintf("inferred effects don't match declared row: %v", err), Severity: SeverityError, Err: err,
					})
				}
			}
			out.effectRows[qualified] = unifier.ApplySubst(row)
		}
	}
	clock.add("effects", time.Since(start))

	start = time.Now()
	for _, decl := range mod.Tree.Decls {
		if len(decl.Contracts) == 0 {
			continue
		}
		qualified := mod.DisplayName + "." + decl.Name
		outcomes, diags := router.Route(ctx, contract.Request{
			Function:          qualified,
			Public:            decl.Visibility == ast.Public,
			Clauses:           decl.Contracts,
			TypeContextDigest: mod.CanonicalPath,
		})
		out.contractLog[qualified] = outcomes
		for _, d := range diags {
			severity := SeverityError
			if rep, ok := errors.AsReport(d); ok && rep.Code == errors.CTR002 {
				severity = SeverityWarning
			}
			out.diags = append(out.diags, Diagnostic{
				Phase: "contracts", Module: mod.DisplayName, Decl: decl.Name,
				Message: d.Error(), Severity: severity, Err: d,
			})
		}
	}
	clock.add("contracts", time.Since(start))

	return out
}

// boundaryEffects are dischargeable at the program boundary: the runtime
// installs handlers for console and file-system effects around `main`.
var boundaryEffects = map[effects.Kind]bool{
	effects.IO:      true,
	effects.Console: true,
}

// boundaryEffectCheck verifies that the entry module's `main` carries no
// effects the runtime cannot discharge. Any leftover effect means a
// `perform` escaped every handler.
func boundaryEffectCheck(program *module.Program, rows map[string]effects.Row) *Diagnostic {
	entry, ok := program.Modules[program.EntryID]
	if !ok {
		return nil
	}
	row, ok := rows[entry.DisplayName+".main"]
	if !ok {
		return nil
	}
	var unhandled []string
	for _, e := range row.Effects {
		if !boundaryEffects[e.Kind] {
			unhandled = append(unhandled, e.String())
		}
	}
	if len(unhandled) == 0 {
		return nil
	}
	err := errors.WrapReport(errors.NewReport(errors.EFF002,
		fmt.Sprintf("main performs unhandled effects %v; wrap the offending calls in a handler", unhandled)))
	return &Diagnostic{
		Phase: "effects", Module: entry.DisplayName, Decl: "main",
		Message: err.Error(), Severity: SeverityError, Err: err,
	}
}

func declaredRow(names []string) effects.Row {
	row := effects.Row{Tail: effects.Closed}
	for _, n := range names {
		row.Effects = append(row.Effects, effects.Effect{Kind: effects.Kind(n)})
	}
	return row.Canonicalize()
}
