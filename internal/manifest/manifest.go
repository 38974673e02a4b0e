// Package manifest parses the project descriptor and its companion lock
// file. The manifest's small block-and-table grammar is parsed by a
// hand-rolled tokenizer below rather than an unreviewed third-party
// parser.
package manifest

import (
	"fmt"
	"regexp"
	"strings"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)

// Package describes the `package { name, version }` block.
type Package struct {
	Name    string
	Version string
}

// Dependency is one entry of a dependency table. A bare version string
// (`"1.2.0"`) populates only Version; a table form may additionally carry
// Git, Path, Optional, and Features.
type Dependency struct {
	Name     string
	Version  string
	Git      string
	Path     string
	Optional bool
	Features []string
}

// Manifest is the parsed project descriptor.
type Manifest struct {
	Package            Package
	Dependencies       map[string]Dependency
	DevDependencies    map[string]Dependency
	BuildDependencies  map[string]Dependency
	Features           map[string][]string // feature name -> list of implied features/deps
	DefaultFeatures    []string
	TargetDependencies map[string]map[string]Dependency // target triple -> deps
}

// Parse reads a manifest from its source text.
func Parse(source string) (*Manifest, error) {
	toks, err := tokenize(source)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	return p.parseManifest()
}

// --- tokenizer -------------------------------------------------------------

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokString
	tokLBrace
	tokRBrace
	tokLBracket
	tokRBracket
	tokComma
	tokEquals
	tokEOF
)

type token struct {
	kind tokenKind
	text string
	line int
}

func tokenize(source string) ([]token, error) {
	var toks []token
	line := 1
	r := []rune(source)
	i := 0
	for i < len(r) {
		c := r[i]
		switch {
		case c == '\n':
			line++
			i++
		case c == ' ' || c == '\t' || c == '\r':
			i++
		case c == '#':
			for i < len(r) && r[i] != '\n' {
				i++
			}
		case c == '{':
			toks = append(toks, token{tokLBrace, "{", line})
			i++
		case c == '}':
			toks = append(toks, token{tokRBrace, "}", line})
			i++
		case c == '[':
			toks = append(toks, token{tokLBracket, "[", line})
			i++
		case c == ']':
			toks = append(toks, token{tokRBracket, "]", line})
			i++
		case c == ',':
			toks = append(toks, token{tokComma, ",", line})
			i++
		case c == '=':
			toks = append(toks, token{tokEquals, "=", line})
			i++
		case c == '"':
			start := i + 1
			j := start
			for j < len(r) && r[j] != '"' {
				j++
			}
			if j >= len(r) {
				return nil, fmt.Errorf("manifest: unterminated string at line %d", line)
			}
			toks = append(toks, token{tokString, string(r[start:j]), line})
			i = j + 1
		case isIdentStart(c):
			j := i
			for j < len(r) && isIdentPart(r[j]) {
				j++
			}
			toks = append(toks, token{tokIdent, string(r[i:j]), line})
			i = j
		default:
			return nil, fmt.Errorf("manifest: unexpected character %q at line %d", c, line)
		}
	}
	toks = append(toks, token{tokEOF, "", line})
	return toks, nil
}

func isIdentStart(c rune) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c rune) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9') || c == '-' || c == '.' || c == ':'
}

// --- parser ----------------------------------------------------------------

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) expect(k tokenKind) (token, error) {
	t := p.next()
	if t.kind != k {
		return t, fmt.Errorf("manifest: unexpected token %q at line %d", t.text, t.line)
	}
	return t, nil
}

func (p *parser) parseManifest() (*Manifest, error) {
	m := &Manifest{
		Dependencies:       make(map[string]Dependency),
		DevDependencies:    make(map[string]Dependency),
		BuildDependencies:  make(map[string]Dependency),
		Features:           make(map[string][]string),
		TargetDependencies: make(map[string]map[string]Dependency),
	}

	for p.peek().kind != tokEOF {
		name, err := p.expect(tokIdent)
		if err != nil {
			return nil, err
		}
		switch name.text {
		case "package":
			pkg, err := p.parsePackageBlock()
			if err != nil {
				return nil, err
			}
			m.Package = pkg
		case "dependencies":
			deps, err := p.parseDependencyTable()
			if err != nil {
				return nil, err
			}
			m.Dependencies = deps
		case "dev-dependencies":
			deps, err := p.parseDependencyTable()
			if err != nil {
				return nil, err
			}
			m.DevDependencies = deps
		case "build-dependencies":
			deps, err := p.parseDependencyTable()
			if err != nil {
				return nil, err
			}
			m.BuildDependencies = deps
		case "features":
			feats, def, err := p.parseFeaturesBlock()
			if err != nil {
				return nil, err
			}
			m.Features = feats
			m.DefaultFeatures = def
		case "target":
			triple, deps, err := p.parseTargetBlock()
			if err != nil {
				return nil, err
			}
			m.TargetDependencies[triple] = deps
		default:
			return nil, fmt.Errorf("manifest: unknown block %q at line %d", name.text, name.line)
		}
	}

	if err := m.validateIdents(); err != nil {
		return nil, err
	}
	return m, nil
}

func (p *parser) parsePackageBlock() (Package, error) {
	var pkg Package
	if _, err := p.expect(tokLBrace); err != nil {
		return pkg, err
	}
	for p.peek().kind != tokRBrace {
		key, err := p.expect(tokIdent)
		if err != nil {
			return pkg, err
		}
		if _, err := p.expect(tokEquals); err != nil {
			return pkg, err
		}
		val, err := p.expect(tokString)
		if err != nil {
			return pkg, err
		}
		switch key.text {
		case "name":
			pkg.Name = val.text
		case "version":
			pkg.Version = val.text
		default:
			return pkg, fmt.Errorf("manifest: unknown package field %q at line %d", key.text, key.line)
		}
		p.consumeOptionalComma()
	}
	_, err := p.expect(tokRBrace)
	return pkg, err
}

func (p *parser) parseDependencyTable() (map[string]Dependency, error) {
	deps := make(map[string]Dependency)
	if _, err := p.expect(tokLBrace); err != nil {
		return nil, err
	}
	for p.peek().kind != tokRBrace {
		name, err := p.expect(tokIdent)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokEquals); err != nil {
			return nil, err
		}
		dep, err := p.parseDependencyValue(name.text)
		if err != nil {
			return nil, err
		}
		deps[name.text] = dep
		p.consumeOptionalComma()
	}
	if _, err := p.expect(tokRBrace); err != nil {
		return nil, err
	}
	return deps, nil
}

func (p *parser) parseDependencyValue(name string) (Dependency, error) {
	if p.peek().kind == tokString {
		v := p.next()
		return Dependency{Name: name, Version: v.text}, nil
	}
	if _, err := p.expect(tokLBrace); err != nil {
		return Dependency{}, err
	}
	dep := Dependency{Name: name}
	for p.peek().kind != tokRBrace {
		key, err := p.expect(tokIdent)
		if err != nil {
			return dep, err
		}
		if _, err := p.expect(tokEquals); err != nil {
			return dep, err
		}
		switch key.text {
		case "version":
			v, err := p.expect(tokString)
			if err != nil {
				return dep, err
			}
			dep.Version = v.text
		case "git":
			v, err := p.expect(tokString)
			if err != nil {
				return dep, err
			}
			dep.Git = v.text
		case "path":
			v, err := p.expect(tokString)
			if err != nil {
				return dep, err
			}
			dep.Path = v.text
		case "optional":
			v, err := p.expect(tokIdent)
			if err != nil {
				return dep, err
			}
			dep.Optional = v.text == "true"
		case "features":
			list, err := p.parseStringList()
			if err != nil {
				return dep, err
			}
			dep.Features = list
		default:
			return dep, fmt.Errorf("manifest: unknown dependency field %q at line %d", key.text, key.line)
		}
		p.consumeOptionalComma()
	}
	_, err := p.expect(tokRBrace)
	return dep, err
}

func (p *parser) parseStringList() ([]string, error) {
	if _, err := p.expect(tokLBracket); err != nil {
		return nil, err
	}
	var items []string
	for p.peek().kind != tokRBracket {
		v, err := p.expect(tokString)
		if err != nil {
			return nil, err
		}
		items = append(items, v.text)
		p.consumeOptionalComma()
	}
	_, err := p.expect(tokRBracket)
	return items, err
}

func (p *parser) parseFeaturesBlock() (map[string][]string, []string, error) {
	feats := make(map[string][]string)
	var def []string
	if _, err := p.expect(tokLBrace); err != nil {
		return nil, nil, err
	}
	for p.peek().kind != tokRBrace {
		key, err := p.expect(tokIdent)
		if err != nil {
			return nil, nil, err
		}
		if _, err := p.expect(tokEquals); err != nil {
			return nil, nil, err
		}
		list, err := p.parseStringList()
		if err != nil {
			return nil, nil, err
		}
		if key.text == "default" {
			def = list
		} else {
			feats[key.text] = list
		}
		p.consumeOptionalComma()
	}
	_, err := p.expect(tokRBrace)
	return feats, def, err
}

func (p *parser) parseTargetBlock() (string, map[string]Dependency, error) {
	triple, err := p.expect(tokString)
	if err != nil {
		return "", nil, err
	}
	if _, err := p.expect(tokLBrace); err != nil {
		return "", nil, err
	}
	name, err := p.expect(tokIdent)
	if err != nil {
		return "", nil, err
	}
	if name.text != "dependencies" {
		return "", nil, fmt.Errorf("manifest: target block only supports a dependencies table, got %q at line %d", name.text, name.line)
	}
	deps, err := p.parseDependencyTable()
	if err != nil {
		return "", nil, err
	}
	if _, err := p.expect(tokRBrace); err != nil {
		return "", nil, err
	}
	return triple.text, deps, nil
}

func (p *parser) consumeOptionalComma() {
	if p.peek().kind == tokComma {
		p.next()
	}
}

func (m *Manifest) validateIdents() error {
	if m.Package.Name != "" && !identPattern.MatchString(m.Package.Name) {
		return fmt.Errorf("manifest: invalid package name %q", m.Package.Name)
	}
	all := []map[string]Dependency{m.Dependencies, m.DevDependencies, m.BuildDependencies}
	for _, t := range m.TargetDependencies {
		all = append(all, t)
	}
	for _, table := range all {
		for name := range table {
			if !identPattern.MatchString(name) {
				return fmt.Errorf("manifest: invalid dependency name %q", name)
			}
		}
	}
	for name := range m.Features {
		if !identPattern.MatchString(name) {
			return fmt.Errorf("manifest: invalid feature name %q", name)
		}
	}
	return nil
}

// String renders a canonical textual form, primarily useful for tests and
// diagnostics; it is not a faithful round-trip formatter.
func (m *Manifest) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "package { name = %q, version = %q }\n", m.Package.Name, m.Package.Version)
	return b.String()
}
