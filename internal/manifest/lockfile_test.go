package manifest

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLockFileSaveAndLoadRoundTrip(t *testing.T) {
	lf := NewLockFile()
	lf.Packages = []LockedPackage{
		{Name: "alpha", Version: "1.0.0", Source: "registry+https://pkgs.example.invalid", Dependencies: []string{"beta"}},
		{Name: "beta", Version: "0.9.0", Source: "git+https://example.invalid/beta.git#abc123"},
		{Name: "gamma", Version: "0.1.0", Source: "path+../gamma"},
	}

	path := filepath.Join(t.TempDir(), "aria.lock")
	require.NoError(t, lf.Save(path))

	loaded, err := LoadLockFile(path)
	require.NoError(t, err)
	require.Equal(t, LockVersion, loaded.Version)
	require.Len(t, loaded.Packages, 3)

	pkg, ok := loaded.Find("alpha")
	require.True(t, ok)
	require.Equal(t, "1.0.0", pkg.Version)
	require.Equal(t, []string{"beta"}, pkg.Dependencies)
}

func TestLockFileRejectsUnsupportedVersion(t *testing.T) {
	lf := &LockFile{Version: 2}
	require.Error(t, lf.Validate())
}

func TestLockFileRejectsDuplicatePackage(t *testing.T) {
	lf := &LockFile{
		Version: LockVersion,
		Packages: []LockedPackage{
			{Name: "dup", Version: "1.0.0", Source: "registry+https://pkgs.example.invalid"},
			{Name: "dup", Version: "2.0.0", Source: "registry+https://pkgs.example.invalid"},
		},
	}
	require.Error(t, lf.Validate())
}

func TestLockFileRejectsUnrecognizedSource(t *testing.T) {
	lf := &LockFile{
		Version:  LockVersion,
		Packages: []LockedPackage{{Name: "x", Version: "1.0.0", Source: "ftp+whatever"}},
	}
	require.Error(t, lf.Validate())
}

func TestSourceKindClassification(t *testing.T) {
	require.Equal(t, "registry", Source("registry+https://pkgs.example.invalid").Kind())
	require.Equal(t, "git", Source("git+https://example.invalid/r.git#main").Kind())
	require.Equal(t, "path", Source("path+../sibling").Kind())
	require.Equal(t, "", Source("bogus").Kind())
}

func TestFindMissingPackage(t *testing.T) {
	lf := NewLockFile()
	_, ok := lf.Find("nothing")
	require.False(t, ok)
}
