package manifest

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseMinimalManifest(t *testing.T) {
	src := `
package {
  name = "demo"
  version = "0.1.0"
}
`
	m, err := Parse(src)
	require.NoError(t, err)
	require.Equal(t, "demo", m.Package.Name)
	require.Equal(t, "0.1.0", m.Package.Version)
}

func TestParseDependenciesBareVersionAndTableForm(t *testing.T) {
	src := `
package { name = "demo", version = "0.1.0" }
dependencies {
  stdlib = "1.0.0"
  fancy = { version = "2.0.0", optional = true, features = ["async", "tls"] }
}
`
	m, err := Parse(src)
	require.NoError(t, err)
	require.Equal(t, "1.0.0", m.Dependencies["stdlib"].Version)
	require.Equal(t, "2.0.0", m.Dependencies["fancy"].Version)
	require.True(t, m.Dependencies["fancy"].Optional)
	require.Equal(t, []string{"async", "tls"}, m.Dependencies["fancy"].Features)
}

func TestParseGitAndPathDependencies(t *testing.T) {
	src := `
package { name = "demo", version = "0.1.0" }
dependencies {
  fromgit = { git = "https://example.invalid/repo.git" }
  fromdisk = { path = "../sibling" }
}
`
	m, err := Parse(src)
	require.NoError(t, err)
	require.Equal(t, "https://example.invalid/repo.git", m.Dependencies["fromgit"].Git)
	require.Equal(t, "../sibling", m.Dependencies["fromdisk"].Path)
}

func TestParseFeaturesBlockWithDefault(t *testing.T) {
	src := `
package { name = "demo", version = "0.1.0" }
features {
  default = ["std"]
  std = []
  net = ["async"]
}
`
	m, err := Parse(src)
	require.NoError(t, err)
	require.Equal(t, []string{"std"}, m.DefaultFeatures)
	require.Equal(t, []string{"async"}, m.Features["net"])
}

func TestParseTargetSpecificDependencies(t *testing.T) {
	src := `
package { name = "demo", version = "0.1.0" }
target "x86_64-unknown-linux" {
  dependencies {
    epoll = "1.0.0"
  }
}
`
	m, err := Parse(src)
	require.NoError(t, err)
	require.Equal(t, "1.0.0", m.TargetDependencies["x86_64-unknown-linux"]["epoll"].Version)
}

func TestParseRejectsInvalidDependencyName(t *testing.T) {
	src := `
package { name = "demo", version = "0.1.0" }
dependencies {
  "bad name" = "1.0.0"
}
`
	_, err := Parse(src)
	require.Error(t, err)
}

func TestParseRejectsUnknownBlock(t *testing.T) {
	src := `
bogus { }
`
	_, err := Parse(src)
	require.Error(t, err)
}

func TestParseDevAndBuildDependencies(t *testing.T) {
	src := `
package { name = "demo", version = "0.1.0" }
dev-dependencies {
  testkit = "1.0.0"
}
build-dependencies {
  codegen = "1.0.0"
}
`
	m, err := Parse(src)
	require.NoError(t, err)
	require.Equal(t, "1.0.0", m.DevDependencies["testkit"].Version)
	require.Equal(t, "1.0.0", m.BuildDependencies["codegen"].Version)
}

func TestParseSkipsComments(t *testing.T) {
	src := `
# top-level comment
package { name = "demo", version = "0.1.0" } # trailing comment
`
	m, err := Parse(src)
	require.NoError(t, err)
	require.Equal(t, "demo", m.Package.Name)
}
