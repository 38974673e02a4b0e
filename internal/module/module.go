// Package module implements module resolution, the dependency graph, and
// the module compiler that orchestrates both.
package module

import (
	"sort"

	"github.com/aria-lang/ariac/internal/ast"
)

// ID is a dense, opaque integer identifying a canonicalized source file.
// IDs are assigned by the Resolver on first sighting and are never reused:
// once minted, an ID stays bound to the same canonical path for the
// lifetime of the process.
type ID uint32

// Invalid is the zero value, never assigned to a real module.
const Invalid ID = 0

// Module is the frozen record the Module Compiler produces for one source
// file. It is created when the compiler first parses the file, mutated
// only during the build phase (while dependencies are still being
// discovered), and frozen once a topological order has been computed.
type Module struct {
	ID           ID
	CanonicalPath string
	DisplayName  string
	Tree         *ast.Module // opaque to this package beyond Imports/Decls
	Dependencies []ID        // ordered: first-seen import order
	Exports      map[string]bool
	Private      map[string]bool
	Visibility   map[string]ast.Visibility
}

// NewModule builds a Module record from a parsed surface tree. Dependencies
// are filled in later by the compiler as imports are resolved.
func NewModule(id ID, canonicalPath string, tree *ast.Module) *Module {
	m := &Module{
		ID:            id,
		CanonicalPath: canonicalPath,
		DisplayName:   tree.Name,
		Tree:          tree,
		Exports:       make(map[string]bool),
		Private:       make(map[string]bool),
		Visibility:    make(map[string]ast.Visibility),
	}

	exported := make(map[string]bool, len(tree.Exports))
	for _, name := range tree.Exports {
		exported[name] = true
	}

	for _, decl := range tree.Decls {
		vis := decl.Visibility
		if len(tree.Exports) > 0 {
			// Explicit export list overrides per-decl visibility markers.
			if exported[decl.Name] {
				vis = ast.Public
			} else if vis == ast.Public {
				vis = ast.Private
			}
		}
		m.Visibility[decl.Name] = vis
		if vis == ast.Public {
			m.Exports[decl.Name] = true
		} else {
			m.Private[decl.Name] = true
		}
	}

	return m
}

// SortedExports returns the module's exported names in a stable order, for
// deterministic diagnostics and tests.
func (m *Module) SortedExports() []string {
	names := make([]string, 0, len(m.Exports))
	for name := range m.Exports {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
