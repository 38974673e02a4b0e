package module

import (
	"fmt"

	"github.com/aria-lang/ariac/internal/ast"
	"github.com/aria-lang/ariac/internal/errors"
)

// Parser builds a surface tree from normalized source text. The lexer and
// parser themselves are external collaborators; the compiler only depends
// on this narrow seam so it can be exercised against fixtures without a
// real front end.
type Parser interface {
	Parse(source, canonicalPath string) (*ast.Module, error)
}

// Mode selects how Compile treats the entry module.
type Mode int

const (
	// Library compiles every module reachable from the entry path without
	// requiring an entry point declaration.
	Library Mode = iota
	// Binary additionally requires the entry module to declare a `main`
	// symbol.
	Binary
)

// Program is the frozen result of compiling one entry point: every
// reachable module, keyed by ID, plus a topological build order rooted at
// the entry module.
type Program struct {
	EntryID ID
	Modules map[ID]*Module
	Order   []ID
}

// Compiler orchestrates the Resolver and Graph to turn an entry path into a
// Program.
type Compiler struct {
	resolver *Resolver
	graph    *Graph
	parser   Parser
}

// NewCompiler creates a Compiler over the given resolver and parser.
func NewCompiler(resolver *Resolver, parser Parser) *Compiler {
	return &Compiler{
		resolver: resolver,
		graph:    NewGraph(),
		parser:   parser,
	}
}

// Compile discovers and parses every module reachable from entryPath,
// building the dependency graph as it goes. Parse and resolution failures
// on individual modules are accumulated as non-fatal diagnostics rather
// than aborting the whole build, so a Compile call reports as many errors
// as possible in one pass. A nil Program is returned only when the entry
// path itself cannot be resolved; when the entry module cannot be loaded
// or parsed, the Program is returned without an entry for EntryID in
// Modules.
func (c *Compiler) Compile(entryPath string, mode Mode) (*Program, []error) {
	var diagnostics []error

	entryID, err := c.resolver.ResolvePath(entryPath)
	if err != nil {
		return nil, []error{err}
	}

	modules := make(map[ID]*Module)
	visited := map[ID]bool{entryID: true}
	queue := []ID{entryID}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		c.graph.AddNode(id)

		mod, modErrs := c.loadOne(id)
		diagnostics = append(diagnostics, modErrs...)
		if mod == nil {
			// Couldn't load this module at all; its dependents still get
			// diagnosed, but there is nothing to add to the graph for it.
			continue
		}
		modules[id] = mod

		for _, imp := range mod.Tree.Imports {
			depID, err := c.resolver.Resolve(imp.Path, mod.CanonicalPath)
			if err != nil {
				diagnostics = append(diagnostics, wrapImportError(mod.CanonicalPath, imp, err))
				continue
			}
			mod.Dependencies = append(mod.Dependencies, depID)
			c.graph.AddEdge(id, depID)

			if !visited[depID] {
				visited[depID] = true
				queue = append(queue, depID)
			}
		}
	}

	order, err := c.graph.TopologicalOrder()
	if err != nil {
		diagnostics = append(diagnostics, describeCycle(err.(*CyclicError), modules))
	}

	if mode == Binary {
		if entry, ok := modules[entryID]; ok {
			if _, hasMain := entry.Tree.FindDecl("main"); !hasMain {
				diagnostics = append(diagnostics, newReport(errors.LDR006,
					fmt.Sprintf("entry module %q has no `main` declaration", entry.CanonicalPath)))
			}
		}
	}

	prog := &Program{
		EntryID: entryID,
		Modules: modules,
		Order:   order,
	}
	return prog, diagnostics
}

// loadOne resolves, loads, and parses a single module, producing the
// diagnostics it generates along the way. Returns (nil, diags) if the
// module could not be brought up to a usable Module record.
func (c *Compiler) loadOne(id ID) (*Module, []error) {
	var diagnostics []error

	source, canonicalPath, err := c.resolver.Load(id)
	if err != nil {
		return nil, []error{err}
	}

	tree, err := c.parser.Parse(source, canonicalPath)
	if err != nil {
		diagnostics = append(diagnostics, newReport(errors.PAR001,
			fmt.Sprintf("%s: %v", canonicalPath, err)))
		return nil, diagnostics
	}

	if nameErr := validateModuleName(tree); nameErr != nil {
		diagnostics = append(diagnostics, nameErr)
	}

	return NewModule(id, canonicalPath, tree), diagnostics
}

// validateModuleName rejects a module with no declared name — the narrow
// slice of MOD-phase validation that belongs to the compiler rather than
// the parser.
func validateModuleName(tree *ast.Module) error {
	if tree.Name == "" {
		return newReport(errors.MOD001, fmt.Sprintf("%s: module declares no name", tree.Path))
	}
	return nil
}

func wrapImportError(fromPath string, imp ast.Import, cause error) error {
	return newReport(errors.LDR001,
		fmt.Sprintf("%s: cannot resolve import %q: %v", fromPath, imp.Path, cause))
}

func describeCycle(cyc *CyclicError, modules map[ID]*Module) error {
	names := make([]string, 0, len(cyc.Cycle))
	for _, id := range cyc.Cycle {
		if mod, ok := modules[id]; ok {
			names = append(names, mod.CanonicalPath)
		} else {
			names = append(names, fmt.Sprintf("id=%d", id))
		}
	}
	msg := "circular dependency: "
	for i, n := range names {
		if i > 0 {
			msg += " -> "
		}
		msg += n
	}
	return newReport(errors.LDR002, msg)
}

// newReport builds a ReportError for a registered code/message pair, letting
// errors.NewReport derive Phase from the code taxonomy in codes.go.
func newReport(code, message string) error {
	return errors.WrapReport(errors.NewReport(code, message))
}
