package module

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, rel, contents string) string {
	t.Helper()
	path := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestResolverSearchRootOrderFirstHitWins(t *testing.T) {
	root1 := t.TempDir()
	root2 := t.TempDir()
	writeFile(t, root2, "shadowed.aria", "module shadowed\n")
	writeFile(t, root1, "shadowed.aria", "module shadowed\n")

	r := NewResolver(root1, root2)
	id, err := r.Resolve("shadowed", "")
	require.NoError(t, err)

	path, ok := r.CanonicalPath(id)
	require.True(t, ok)
	require.Contains(t, path, root1)
}

func TestResolverDirectoryModuleFallsBackToModAria(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "pkg/mod.aria", "module pkg\n")

	r := NewResolver(root)
	id, err := r.Resolve("pkg", "")
	require.NoError(t, err)

	path, ok := r.CanonicalPath(id)
	require.True(t, ok)
	require.Equal(t, "mod.aria", filepath.Base(path))
}

func TestResolverNotFound(t *testing.T) {
	root := t.TempDir()
	r := NewResolver(root)

	_, err := r.Resolve("does::not::exist", "")
	require.Error(t, err)

	var resolveErr *ResolveError
	require.ErrorAs(t, err, &resolveErr)
	require.Equal(t, "LDR001", resolveErr.Code)
}

func TestResolverRelativeImportRequiresImporter(t *testing.T) {
	r := NewResolver(t.TempDir())
	_, err := r.Resolve("./sibling", "")
	require.Error(t, err)
}

func TestResolverRelativeImportResolvesAgainstImporterDir(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a/main.aria", "module main\n")
	sibling := writeFile(t, root, "a/helper.aria", "module helper\n")

	r := NewResolver(root)
	importerID, err := r.ResolvePath(filepath.Join(root, "a/main.aria"))
	require.NoError(t, err)
	importerPath, _ := r.CanonicalPath(importerID)

	id, err := r.Resolve("./helper", importerPath)
	require.NoError(t, err)

	path, ok := r.CanonicalPath(id)
	require.True(t, ok)
	require.Equal(t, filepath.Base(sibling), filepath.Base(path))
}

func TestResolverStableIDsForSamePath(t *testing.T) {
	root := t.TempDir()
	path := writeFile(t, root, "same.aria", "module same\n")

	r := NewResolver(root)
	id1, err := r.ResolvePath(path)
	require.NoError(t, err)
	id2, err := r.Resolve("same", "")
	require.NoError(t, err)

	require.Equal(t, id1, id2)
}

func TestResolverLoadNormalizesBOM(t *testing.T) {
	root := t.TempDir()
	bom := []byte{0xEF, 0xBB, 0xBF}
	content := append(bom, []byte("module withbom\n")...)
	path := filepath.Join(root, "withbom.aria")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	r := NewResolver(root)
	id, err := r.ResolvePath(path)
	require.NoError(t, err)

	source, canonicalPath, err := r.Load(id)
	require.NoError(t, err)
	require.Equal(t, "module withbom\n", source)
	require.NotEmpty(t, canonicalPath)
}

func TestResolverLoadUnknownIDFails(t *testing.T) {
	r := NewResolver(t.TempDir())
	_, _, err := r.Load(ID(999))
	require.Error(t, err)
}
