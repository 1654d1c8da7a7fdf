package store

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/devlink-labs/devlink/internal/manifest"
	"github.com/devlink-labs/devlink/internal/resolver"
	"github.com/devlink-labs/devlink/internal/userdata"
)

// ErrEntryFileMissing means the entry file a package declares is not on disk.
var ErrEntryFileMissing = errors.New("entry file missing")

// StagingDir is the directory under a store path where installs are assembled.
const StagingDir = ".staging"

// Scope selects what Clear removes.
type Scope int

const (
	// ScopeAll empties the whole cache root.
	ScopeAll Scope = iota
	// ScopeDependencies empties only the installed-packages subtree.
	ScopeDependencies
)

func (s Scope) String() string {
	if s == ScopeDependencies {
		return "dependencies"
	}
	return "all"
}

// Store is the package cache rooted at a CLI home directory.
type Store struct {
	root string
	now  func() time.Time
}

// New returns a Store over the cache root.
func New(root string) *Store {
	return &Store{root: root, now: time.Now}
}

// Root returns the cache root.
func (s *Store) Root() string { return s.root }

// Installed returns the marker of the completed install for d's name, or
// nil when nothing complete is present.
func (s *Store) Installed(d Descriptor) *Marker {
	m, err := ReadMarker(d.PackageDir())
	if err != nil || m.Name != d.Name {
		return nil
	}
	return m
}

// Exists reports whether a completed install satisfies d. A concrete
// constraint must match exactly and a range must be satisfied; a dist-tag
// cannot be checked without the registry and never matches.
func (s *Store) Exists(d Descriptor) bool {
	m := s.Installed(d)
	if m == nil {
		return false
	}
	return resolver.Satisfies(d.Constraint, m.Version)
}

// RootFilePath returns the entry file of d's installed package. When version
// is non-empty the installed copy must be that version.
func (s *Store) RootFilePath(d Descriptor, version string) (string, error) {
	if d.IsLocal() {
		return LocalRootFile(d.LocalPath)
	}
	m := s.Installed(d)
	if m == nil {
		return "", fmt.Errorf("%w: %s is not installed", ErrEntryFileMissing, d.Name)
	}
	if version != "" && resolver.Compare(m.Version, version) != 0 {
		return "", fmt.Errorf("%w: %s@%s is installed, not %s", ErrEntryFileMissing, d.Name, m.Version, version)
	}
	return EntryIn(d.PackageDir())
}

// EntryIn resolves the entry file of the package in dir via its package.json.
func EntryIn(dir string) (string, error) {
	pkg, err := manifest.Load(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %w", ErrEntryFileMissing, err)
		}
		return "", err
	}
	entry, err := manifest.EntryFile(dir, pkg)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrEntryFileMissing, err)
	}
	return entry, nil
}

// LocalRootFile resolves a local package path. A file is used directly and a
// directory is resolved through its package.json.
func LocalRootFile(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrEntryFileMissing, path, err)
	}
	if info.Mode().IsRegular() {
		return path, nil
	}
	return EntryIn(path)
}

// NewStaging creates an empty directory under <storePath>/.staging.
func (s *Store) NewStaging(d Descriptor) (string, error) {
	base := filepath.Join(d.StorePath, StagingDir)
	if err := os.MkdirAll(base, userdata.DirPermNormal); err != nil {
		return "", fmt.Errorf("creating staging area: %w", err)
	}
	dir := filepath.Join(base, randomName())
	if err := os.Mkdir(dir, userdata.DirPermNormal); err != nil {
		return "", fmt.Errorf("creating staging directory: %w", err)
	}
	return dir, nil
}

// PruneStaging removes leftovers of interrupted installs. Callers must hold
// the store lock.
func (s *Store) PruneStaging(d Descriptor) error {
	if err := os.RemoveAll(filepath.Join(d.StorePath, StagingDir)); err != nil {
		return fmt.Errorf("removing stale staging area: %w", err)
	}
	return nil
}

// Commit writes the completion marker into staging and swaps staging into
// d's package directory, replacing any previous contents. entry is the entry
// file relative to the package directory, or "" when there is none. Callers
// must hold the store lock.
func (s *Store) Commit(d Descriptor, staging, version, entry string) (*Marker, error) {
	m := Marker{Name: d.Name, Version: version, Entry: filepath.ToSlash(entry), InstalledAt: s.now().UTC()}
	if err := writeMarker(staging, m); err != nil {
		return nil, err
	}

	dest := d.PackageDir()
	if err := os.MkdirAll(filepath.Dir(dest), userdata.DirPermNormal); err != nil {
		return nil, fmt.Errorf("creating %s: %w", filepath.Dir(dest), err)
	}

	var old string
	if _, err := os.Lstat(dest); err == nil {
		old = filepath.Join(d.StorePath, StagingDir, randomName()+"-old")
		if err := os.Rename(dest, old); err != nil {
			return nil, fmt.Errorf("moving previous install aside: %w", err)
		}
	}

	if err := os.Rename(staging, dest); err != nil {
		if old != "" {
			_ = os.Rename(old, dest)
		}
		return nil, fmt.Errorf("moving install into place: %w", err)
	}

	if old != "" {
		// Leftovers are swept by the next PruneStaging.
		_ = os.RemoveAll(old)
	}
	// Fails while another install is still staging.
	_ = os.Remove(filepath.Join(d.StorePath, StagingDir))
	return &m, nil
}

// Clear empties the directory scope selects. It reports whether the
// directory existed; a missing directory is not an error.
func (s *Store) Clear(scope Scope) (bool, error) {
	dir := s.root
	if scope == ScopeDependencies {
		dir = userdata.DependenciesPath(s.root)
	}

	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", dir, err)
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return true, fmt.Errorf("clearing %s: %w", dir, err)
		}
	}
	return true, nil
}

func randomName() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

// InstalledPackage is a completed install ready to launch. It is never
// mutated; a version change yields a new value.
type InstalledPackage struct {
	Descriptor   Descriptor
	Version      string
	Dir          string
	RootFilePath string
	InstalledAt  time.Time
}

// Package returns the InstalledPackage for d's current completed install.
// The entry recorded in the marker is used as is; package.json is only read
// for installs whose marker predates it.
func (s *Store) Package(d Descriptor) (*InstalledPackage, error) {
	m := s.Installed(d)
	if m == nil {
		return nil, fmt.Errorf("%w: %s is not installed", ErrEntryFileMissing, d.Name)
	}
	var entry string
	switch rel := filepath.FromSlash(m.Entry); {
	case d.FilesOnly:
	case rel != "" && filepath.IsLocal(rel):
		entry = filepath.Join(d.PackageDir(), rel)
	default:
		var err error
		if entry, err = s.RootFilePath(d, m.Version); err != nil {
			return nil, err
		}
	}
	return &InstalledPackage{
		Descriptor:   d.WithConstraint(m.Version),
		Version:      m.Version,
		Dir:          d.PackageDir(),
		RootFilePath: entry,
		InstalledAt:  m.InstalledAt,
	}, nil
}
