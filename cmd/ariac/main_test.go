package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aria-lang/ariac/internal/contract"
	"github.com/aria-lang/ariac/internal/pipeline"
)

func TestParseContractModeAcceptsAllFourModes(t *testing.T) {
	cases := map[string]contract.Mode{
		"full": contract.Full, "static-only": contract.StaticOnly,
		"runtime-only": contract.RuntimeOnly, "off": contract.Off,
		"FULL": contract.Full,
	}
	for s, want := range cases {
		got, err := parseContractMode(s)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestParseContractModeRejectsUnknown(t *testing.T) {
	_, err := parseContractMode("bogus")
	require.Error(t, err)
}

func TestSurfaceParserStubNamesModuleAfterFile(t *testing.T) {
	mod, err := surfaceParserStub{}.Parse("ignored", "/tmp/foo/entry.aria")
	require.NoError(t, err)
	require.Equal(t, "entry", mod.Name)
	require.Equal(t, "/tmp/foo/entry.aria", mod.Path)
}

func TestNoopSolverAlwaysReportsUnknown(t *testing.T) {
	result, _, err := noopSolver{}.CheckSat(context.Background(), "(check-sat)", 0)
	require.NoError(t, err)
	require.Equal(t, contract.UNKNOWN, result)
}

func TestRunPipelineSucceedsOnMinimalEntryFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "entry.aria")
	require.NoError(t, os.WriteFile(path, []byte("module entry\n"), 0644))

	jsonOutput = false
	searchRoots = nil
	contractMode = "off"
	code := runPipeline(path, pipeline.Check)
	require.Equal(t, exitSuccess, code)
}

func TestRunPipelineReturnsUsageExitOnBadContractMode(t *testing.T) {
	contractMode = "bogus"
	code := runPipeline("whatever.aria", pipeline.Check)
	require.Equal(t, exitUsage, code)
	contractMode = "off"
}

func TestRunPipelineReturnsUsageExitWhenEntryPathDoesNotExist(t *testing.T) {
	dir := t.TempDir()
	jsonOutput = false
	searchRoots = nil
	contractMode = "off"
	code := runPipeline(filepath.Join(dir, "missing.aria"), pipeline.Check)
	require.Equal(t, exitUsage, code)
}

func TestManifestSearchRootsCollectsPathDependencies(t *testing.T) {
	dir := t.TempDir()
	manifestFile := filepath.Join(dir, "aria.manifest")
	src := `
package { name = "demo", version = "0.1.0" }
dependencies {
  sibling = { path = "../sibling" }
  registry-only = "1.0.0"
}
`
	require.NoError(t, os.WriteFile(manifestFile, []byte(src), 0644))

	roots, err := manifestSearchRoots(manifestFile)
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(dir, "../sibling")}, roots)
}

func TestManifestSearchRootsRejectsMalformedManifest(t *testing.T) {
	dir := t.TempDir()
	manifestFile := filepath.Join(dir, "aria.manifest")
	require.NoError(t, os.WriteFile(manifestFile, []byte("bogus { }"), 0644))

	_, err := manifestSearchRoots(manifestFile)
	require.Error(t, err)
}

func TestRunPipelineReturnsUsageExitOnBadManifestPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "entry.aria")
	require.NoError(t, os.WriteFile(path, []byte("module entry\n"), 0644))

	jsonOutput = false
	searchRoots = nil
	contractMode = "off"
	manifestPath = filepath.Join(dir, "missing.manifest")
	code := runPipeline(path, pipeline.Check)
	require.Equal(t, exitUsage, code)
	manifestPath = ""
}

func TestNewRootCommandWiresCheckAndBuildSubcommands(t *testing.T) {
	root := newRootCommand()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	require.True(t, names["check"])
	require.True(t, names["build"])
}

func TestContextCancellationSurfacesAsInternalErrorNotPartialResult(t *testing.T) {
	// Exercises the cancellation guarantee runPipeline relies on: a
	// cancelled context never yields a populated Result.
	dir := t.TempDir()
	path := filepath.Join(dir, "entry.aria")
	require.NoError(t, os.WriteFile(path, []byte("module entry\n"), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result, err := pipeline.Run(ctx, pipeline.Config{
		EntryPath: path,
		Parser:    surfaceParserStub{},
	})
	require.Error(t, err)
	require.Empty(t, result.Diagnostics)
	var buf bytes.Buffer
	buf.WriteString(err.Error())
	require.NotEmpty(t, buf.String())
}
