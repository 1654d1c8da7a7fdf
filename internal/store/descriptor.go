package store

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/devlink-labs/devlink/internal/userdata"
)

// ErrInvalidDescriptor is returned for names or paths the store cannot hold.
var ErrInvalidDescriptor = errors.New("invalid package descriptor")

var namePattern = regexp.MustCompile(`^(@[A-Za-z0-9~][A-Za-z0-9._~-]*/)?[A-Za-z0-9~][A-Za-z0-9._~-]*$`)

// Descriptor identifies a requested package and where it is rooted.
type Descriptor struct {
	Name       string
	Constraint string // exact version, semver range, or dist-tag
	TargetPath string
	StorePath  string
	// LocalPath, when set, names a package directory or entry file on disk
	// that is used as-is instead of anything from the registry.
	LocalPath string
	// FilesOnly marks packages consumed for their files rather than run, so
	// no entry file is required.
	FilesOnly bool
}

// NewDescriptor builds a descriptor rooted at targetPath with the store at
// targetPath/node_modules. Both paths are made absolute and cleaned.
func NewDescriptor(name, constraint, targetPath string) (Descriptor, error) {
	target, err := filepath.Abs(targetPath)
	if err != nil {
		return Descriptor{}, fmt.Errorf("%w: resolving %s: %w", ErrInvalidDescriptor, targetPath, err)
	}
	d := Descriptor{
		Name:       name,
		Constraint: strings.TrimSpace(constraint),
		TargetPath: target,
		StorePath:  filepath.Join(target, userdata.NodeModulesDir),
	}
	return d, d.Validate()
}

// LocalDescriptor describes a package used straight from path.
func LocalDescriptor(name, path string) (Descriptor, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Descriptor{}, fmt.Errorf("%w: resolving %s: %w", ErrInvalidDescriptor, path, err)
	}
	return Descriptor{Name: name, LocalPath: abs, TargetPath: abs, StorePath: abs}, nil
}

// Validate checks the name and the path invariants.
func (d Descriptor) Validate() error {
	if !namePattern.MatchString(d.Name) {
		return fmt.Errorf("%w: bad package name %q", ErrInvalidDescriptor, d.Name)
	}
	if !filepath.IsAbs(d.TargetPath) || !filepath.IsAbs(d.StorePath) {
		return fmt.Errorf("%w: paths must be absolute", ErrInvalidDescriptor)
	}
	if d.TargetPath != filepath.Clean(d.TargetPath) || d.StorePath != filepath.Clean(d.StorePath) {
		return fmt.Errorf("%w: paths must be normalized", ErrInvalidDescriptor)
	}
	rel, err := filepath.Rel(d.TargetPath, d.StorePath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%w: store %s is outside target %s", ErrInvalidDescriptor, d.StorePath, d.TargetPath)
	}
	return nil
}

// IsLocal reports whether the descriptor bypasses the registry.
func (d Descriptor) IsLocal() bool { return d.LocalPath != "" }

// WithConstraint returns a copy of d pinned to version.
func (d Descriptor) WithConstraint(version string) Descriptor {
	d.Constraint = version
	return d
}

// PackageDir returns <storePath>/<name>. Scoped names nest one level deeper.
func (d Descriptor) PackageDir() string {
	return filepath.Join(d.StorePath, filepath.FromSlash(d.Name))
}

// String renders name@constraint.
func (d Descriptor) String() string {
	if d.IsLocal() {
		return d.Name + " (" + d.LocalPath + ")"
	}
	if d.Constraint == "" {
		return d.Name
	}
	return d.Name + "@" + d.Constraint
}
