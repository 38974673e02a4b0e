package manifest

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LockVersion is the only lock file format version this compiler
// understands; only version 1 is defined.
const LockVersion = 1

// Source identifies where a locked package's contents came from.
type Source string

// Kind reports which of the three source forms this value is, or an
// empty string if the value doesn't match any of them.
func (s Source) Kind() string {
	switch {
	case len(s) >= len("registry+") && s[:len("registry+")] == "registry+":
		return "registry"
	case len(s) >= len("git+") && s[:len("git+")] == "git+":
		return "git"
	case len(s) >= len("path+") && s[:len("path+")] == "path+":
		return "path"
	default:
		return ""
	}
}

// LockedPackage is one resolved dependency entry in the lock file.
type LockedPackage struct {
	Name         string   `yaml:"name"`
	Version      string   `yaml:"version"`
	Source       Source   `yaml:"source"`
	Dependencies []string `yaml:"dependencies,omitempty"`
}

// LockFile is the companion artifact recording the exact resolved
// dependency set for a manifest, so builds are reproducible.
type LockFile struct {
	Version  int             `yaml:"version"`
	Packages []LockedPackage `yaml:"packages"`
}

// NewLockFile creates an empty lock file at the current supported version.
func NewLockFile() *LockFile {
	return &LockFile{Version: LockVersion}
}

// LoadLockFile reads and validates a lock file from disk.
func LoadLockFile(path string) (*LockFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: reading lock file: %w", err)
	}
	var lf LockFile
	if err := yaml.Unmarshal(data, &lf); err != nil {
		return nil, fmt.Errorf("manifest: parsing lock file: %w", err)
	}
	if err := lf.Validate(); err != nil {
		return nil, err
	}
	return &lf, nil
}

// Validate checks the lock file's version and each entry's source form.
func (lf *LockFile) Validate() error {
	if lf.Version != LockVersion {
		return fmt.Errorf("manifest: unsupported lock file version %d (only %d is defined)", lf.Version, LockVersion)
	}
	seen := make(map[string]bool)
	for _, pkg := range lf.Packages {
		if pkg.Name == "" {
			return fmt.Errorf("manifest: locked package missing name")
		}
		if seen[pkg.Name] {
			return fmt.Errorf("manifest: duplicate locked package %q", pkg.Name)
		}
		seen[pkg.Name] = true
		if pkg.Source.Kind() == "" {
			return fmt.Errorf("manifest: locked package %q has unrecognized source %q", pkg.Name, pkg.Source)
		}
	}
	return nil
}

// Save writes the lock file to path as YAML.
func (lf *LockFile) Save(path string) error {
	data, err := yaml.Marshal(lf)
	if err != nil {
		return fmt.Errorf("manifest: marshaling lock file: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Find returns the locked entry for name, if present.
func (lf *LockFile) Find(name string) (LockedPackage, bool) {
	for _, pkg := range lf.Packages {
		if pkg.Name == name {
			return pkg, true
		}
	}
	return LockedPackage{}, false
}
