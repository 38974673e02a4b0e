package module

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/text/unicode/norm"

	"github.com/aria-lang/ariac/internal/errors"
)

// Resolver maps an import name plus an importer's source location to a
// canonical module identity, and loads the resulting file's source text.
// Search roots are probed in declaration order; first hit wins.
type Resolver struct {
	searchRoots   []string
	caseSensitive bool

	mu    sync.Mutex
	ids   map[string]ID // canonical path -> ID
	paths []string      // ID(1-indexed) -> canonical path
}

// NewResolver creates a Resolver that searches the given roots in order.
func NewResolver(searchRoots ...string) *Resolver {
	return &Resolver{
		searchRoots:   append([]string(nil), searchRoots...),
		caseSensitive: isFileSystemCaseSensitive(),
		ids:           make(map[string]ID),
		paths:         []string{""}, // index 0 unused, keeps ID 1-indexed
	}
}

// ResolveError is returned by Resolve/ResolvePath on failure. Code is one of
// errors.LDR001 (not found), errors.LDR003 (ambiguous), or errors.LDR005
// (I/O error).
type ResolveError struct {
	Code  string
	Name  string
	Tried []string
	Cause error
}

func (e *ResolveError) Error() string {
	switch e.Code {
	case errors.LDR003:
		return fmt.Sprintf("ambiguous import %q: matches %v", e.Name, e.Tried)
	case errors.LDR005:
		return fmt.Sprintf("I/O error resolving %q: %v", e.Name, e.Cause)
	default:
		return fmt.Sprintf("module not found: %q (tried %v)", e.Name, e.Tried)
	}
}

func (e *ResolveError) Unwrap() error { return e.Cause }

// Resolve maps an import name, relative to the importer's canonical path,
// to a ModuleID. Search order: a relative prefix ("./" or "../") is
// resolved against the importer's directory; otherwise every search root is
// tried in declaration order, first as "<root>/<name>.aria" then as
// "<root>/<name>/mod.aria" — the first candidate that exists wins.
func (r *Resolver) Resolve(name, importerPath string) (ID, error) {
	candidates, err := r.candidatesFor(name, importerPath)
	if err != nil {
		return Invalid, err
	}

	var tried []string
	var hits []string
	for _, c := range candidates {
		tried = append(tried, c)
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			hits = append(hits, c)
			break // first hit wins within this candidate list
		}
	}

	if len(hits) == 0 {
		return Invalid, &ResolveError{Code: errors.LDR001, Name: name, Tried: tried}
	}

	if !r.caseSensitive {
		if amb := r.caseInsensitiveCollisions(hits[0]); len(amb) > 1 {
			return Invalid, &ResolveError{Code: errors.LDR003, Name: name, Tried: amb}
		}
	}

	return r.ResolvePath(hits[0])
}

// candidatesFor builds the ordered list of filesystem paths Resolve will
// probe, without touching the filesystem.
func (r *Resolver) candidatesFor(name, importerPath string) ([]string, error) {
	if strings.HasPrefix(name, "./") || strings.HasPrefix(name, "../") {
		if importerPath == "" {
			return nil, &ResolveError{Code: errors.LDR001, Name: name, Tried: nil,
				Cause: fmt.Errorf("relative import requires an importer path")}
		}
		dir := filepath.Dir(importerPath)
		path := withExt(filepath.Join(dir, name))
		return []string{path}, nil
	}

	rel := strings.ReplaceAll(name, "::", "/")
	var candidates []string
	for _, root := range r.searchRoots {
		candidates = append(candidates, withExt(filepath.Join(root, rel)))
		candidates = append(candidates, filepath.Join(root, rel, "mod.aria"))
	}
	return candidates, nil
}

// ResolvePath canonicalizes a filesystem path and assigns (or looks up) its
// stable ModuleID. Two distinct access paths to the same file always yield
// the same ID.
func (r *Resolver) ResolvePath(path string) (ID, error) {
	canonical, err := r.canonicalize(path)
	if err != nil {
		return Invalid, &ResolveError{Code: errors.LDR005, Name: path, Cause: err}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.ids[canonical]; ok {
		return id, nil
	}

	id := ID(len(r.paths))
	r.paths = append(r.paths, canonical)
	r.ids[canonical] = id
	return id, nil
}

// Load reads the source text for a previously resolved module and returns
// it alongside the canonical path. Source bytes are normalized (BOM
// stripped, Unicode NFC) at this boundary so lexically equivalent files
// produce identical module identities and token streams regardless of
// encoding variant.
func (r *Resolver) Load(id ID) (source string, canonicalPath string, err error) {
	r.mu.Lock()
	if int(id) <= 0 || int(id) >= len(r.paths) {
		r.mu.Unlock()
		return "", "", &ResolveError{Code: errors.LDR001, Name: fmt.Sprintf("id=%d", id)}
	}
	canonicalPath = r.paths[id]
	r.mu.Unlock()

	raw, err := os.ReadFile(canonicalPath)
	if err != nil {
		return "", canonicalPath, &ResolveError{Code: errors.LDR005, Name: canonicalPath, Cause: err}
	}
	return string(normalizeSource(raw)), canonicalPath, nil
}

// CanonicalPath returns the canonical path for a previously minted ID.
func (r *Resolver) CanonicalPath(id ID) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if int(id) <= 0 || int(id) >= len(r.paths) {
		return "", false
	}
	return r.paths[id], true
}

func (r *Resolver) canonicalize(path string) (string, error) {
	if !filepath.IsAbs(path) {
		abs, err := filepath.Abs(path)
		if err != nil {
			return "", err
		}
		path = abs
	}
	path = filepath.Clean(path)

	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		if os.IsNotExist(err) {
			return path, nil
		}
		return "", err
	}
	return resolved, nil
}

// caseInsensitiveCollisions lists sibling files in hit's directory that
// match its base name case-insensitively but resolve to different
// canonical paths — evidence of an ambiguous import on a case-insensitive
// filesystem.
func (r *Resolver) caseInsensitiveCollisions(hit string) []string {
	dir := filepath.Dir(hit)
	base := strings.ToLower(filepath.Base(hit))
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var collisions []string
	for _, e := range entries {
		if strings.ToLower(e.Name()) == base {
			collisions = append(collisions, filepath.Join(dir, e.Name()))
		}
	}
	return collisions
}

func withExt(path string) string {
	if strings.HasSuffix(path, ".aria") {
		return path
	}
	return path + ".aria"
}

func isFileSystemCaseSensitive() bool {
	switch runtime.GOOS {
	case "windows", "darwin":
		return false
	default:
		return true
	}
}

var bomUTF8 = []byte{0xEF, 0xBB, 0xBF}

// normalizeSource strips a UTF-8 BOM and applies Unicode NFC normalization,
// mirroring the invariant the lexer relies on: the same visual source
// yields the same bytes no matter which editor or OS produced the file.
func normalizeSource(src []byte) []byte {
	if len(src) >= 3 && src[0] == bomUTF8[0] && src[1] == bomUTF8[1] && src[2] == bomUTF8[2] {
		src = src[3:]
	}
	if !norm.NFC.IsNormal(src) {
		src = norm.NFC.Bytes(src)
	}
	return src
}
