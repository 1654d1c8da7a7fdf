// Package installer resolves a package descriptor against the registry and
// makes sure a matching copy is installed in the store.
package installer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/devlink-labs/devlink/internal/filelock"
	"github.com/devlink-labs/devlink/internal/manifest"
	"github.com/devlink-labs/devlink/internal/npm"
	"github.com/devlink-labs/devlink/internal/resolver"
	"github.com/devlink-labs/devlink/internal/store"
)

// Installer failure kinds.
var (
	ErrInstallFailed  = errors.New("install failed")
	ErrCorruptInstall = errors.New("corrupt install")
	ErrInstallLocked  = errors.New("store locked by another process")
)

// LockFile is the sentinel locked inside a store path during installs.
const LockFile = ".devlink.lock"

// DefaultLockTimeout bounds the wait for a concurrent install.
const DefaultLockTimeout = 30 * time.Second

// Registry is the part of the registry client the installer needs.
type Registry interface {
	FetchMetadata(ctx context.Context, name string) (*npm.Metadata, error)
}

// Fetcher materializes one published version into an empty directory.
type Fetcher interface {
	Fetch(ctx context.Context, version npm.VersionDetails, dest string) error
}

// DependencyInstaller installs a package's runtime dependencies in place.
// A non-empty warning means the step was skipped.
type DependencyInstaller interface {
	InstallDependencies(ctx context.Context, dir string) (warning string, err error)
}

// Installer orchestrates registry, resolver and store. It is safe to use
// from several processes against the same store; the store lock serializes
// them.
type Installer struct {
	registry    Registry
	store       *store.Store
	fetcher     Fetcher
	deps        DependencyInstaller
	lockTimeout time.Duration
	logger      *log.Logger
}

// Option configures an Installer.
type Option func(*Installer)

// WithFetcher replaces the tarball fetcher.
func WithFetcher(f Fetcher) Option { return func(in *Installer) { in.fetcher = f } }

// WithDependencyInstaller enables dependency installation after fetch.
// Passing nil disables it.
func WithDependencyInstaller(d DependencyInstaller) Option {
	return func(in *Installer) { in.deps = d }
}

// WithLockTimeout sets how long to wait for the store lock.
func WithLockTimeout(d time.Duration) Option { return func(in *Installer) { in.lockTimeout = d } }

// WithLogger sets the logger used for progress messages.
func WithLogger(l *log.Logger) Option { return func(in *Installer) { in.logger = l } }

// New returns an Installer over reg and st. Without options it downloads
// tarballs with a default HTTP client and skips dependency installation.
func New(reg Registry, st *store.Store, opts ...Option) *Installer {
	in := &Installer{
		registry:    reg,
		store:       st,
		fetcher:     NewTarballFetcher(nil),
		lockTimeout: DefaultLockTimeout,
		logger:      log.Default(),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// EnsureInstalled returns an installed copy of the package d describes,
// installing or updating it when needed.
//
// A local descriptor is resolved on disk only. A concrete version already
// in the store is returned without touching the network. Anything else is
// resolved against the registry and installed under the store lock.
func (in *Installer) EnsureInstalled(ctx context.Context, d store.Descriptor) (*store.InstalledPackage, error) {
	if d.IsLocal() {
		entry, err := store.LocalRootFile(d.LocalPath)
		if err != nil {
			return nil, err
		}
		return &store.InstalledPackage{Descriptor: d, Dir: d.LocalPath, RootFilePath: entry}, nil
	}

	if err := d.Validate(); err != nil {
		return nil, err
	}
	if d.Constraint == "" {
		d = d.WithConstraint(npm.LatestTag)
	}

	if resolver.IsConcrete(d.Constraint) && in.store.Exists(d) {
		pkg, err := in.store.Package(d)
		if err == nil {
			in.logger.Debug("cache hit", "package", d.Name, "version", pkg.Version)
			return pkg, nil
		}
		in.logger.Warn("cached package is unusable, reinstalling", "package", d.Name, "err", err)
	}

	lock, err := filelock.Acquire(ctx, d.StorePath, LockFile, in.lockTimeout)
	if err != nil {
		if errors.Is(err, filelock.ErrTimeout) {
			return nil, fmt.Errorf("%w: %w", ErrInstallLocked, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrInstallFailed, err)
	}
	defer func() {
		if err := lock.Release(); err != nil {
			in.logger.Debug("releasing store lock", "err", err)
		}
	}()

	return in.installLocked(ctx, d)
}

func (in *Installer) installLocked(ctx context.Context, d store.Descriptor) (*store.InstalledPackage, error) {
	if err := in.store.PruneStaging(d); err != nil {
		in.logger.Debug("pruning staging area", "err", err)
	}

	in.logger.Debug("fetching metadata", "package", d.Name, "constraint", d.Constraint)
	meta, err := in.registry.FetchMetadata(ctx, d.Name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInstallFailed, d, err)
	}

	current := in.store.Installed(d)
	version, err := resolveVersion(meta, d.Constraint)
	if err != nil {
		if current != nil && errors.Is(err, resolver.ErrNoMatchingVersion) && resolver.Satisfies(d.Constraint, current.Version) {
			// Nothing newer is published; keep what is there.
			return in.existing(d.WithConstraint(current.Version))
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrInstallFailed, d, err)
	}
	resolved := d.WithConstraint(version)
	in.logger.Debug("resolved", "package", d.Name, "constraint", d.Constraint, "version", version)

	// Another process may have finished the same install while we waited.
	if in.store.Exists(resolved) {
		if pkg, err := in.store.Package(resolved); err == nil {
			return pkg, nil
		}
	}

	switch {
	case current == nil:
		in.logger.Info("installing", "package", d.Name, "version", version)
	case resolver.IsNewer(version, current.Version):
		in.logger.Info("updating", "package", d.Name, "from", current.Version, "to", version)
	default:
		in.logger.Info("replacing", "package", d.Name, "from", current.Version, "to", version)
	}

	return in.materialize(ctx, resolved, meta.Versions[version])
}

func (in *Installer) existing(d store.Descriptor) (*store.InstalledPackage, error) {
	pkg, err := in.store.Package(d)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptInstall, err)
	}
	return pkg, nil
}

// materialize fetches into a staging directory, verifies it, and commits it.
// On any failure the staging directory is removed and the store is left as
// it was.
func (in *Installer) materialize(ctx context.Context, d store.Descriptor, details npm.VersionDetails) (*store.InstalledPackage, error) {
	staging, err := in.store.NewStaging(d)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInstallFailed, err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = os.RemoveAll(staging)
		}
	}()

	if err := in.fetcher.Fetch(ctx, details, staging); err != nil {
		return nil, fmt.Errorf("%w: fetching %s: %w", ErrInstallFailed, d, err)
	}

	pkg, err := manifest.Load(staging)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorruptInstall, d, err)
	}

	if in.deps != nil && pkg.HasDependencies() {
		warning, err := in.deps.InstallDependencies(ctx, staging)
		if err != nil {
			return nil, fmt.Errorf("%w: dependencies of %s: %w", ErrInstallFailed, d, err)
		}
		if warning != "" {
			in.logger.Warn(warning, "package", d.Name)
		}
	}

	var rel string
	if !d.FilesOnly {
		entry, err := manifest.EntryFile(staging, pkg)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrCorruptInstall, d, err)
		}
		if rel, err = filepath.Rel(staging, entry); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorruptInstall, err)
		}
	}

	marker, err := in.store.Commit(d, staging, d.Constraint, rel)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInstallFailed, err)
	}
	committed = true

	installed := &store.InstalledPackage{
		Descriptor:  d,
		Version:     marker.Version,
		Dir:         d.PackageDir(),
		InstalledAt: marker.InstalledAt,
	}
	if rel != "" {
		installed.RootFilePath = filepath.Join(d.PackageDir(), rel)
	}
	return installed, nil
}

// resolveVersion turns a constraint into a published version. Dist-tags win
// over ranges, matching npm's own precedence.
func resolveVersion(meta *npm.Metadata, constraint string) (string, error) {
	if v, ok := meta.Tag(constraint); ok {
		if _, published := meta.Versions[v]; !published {
			return "", fmt.Errorf("%w: dist-tag %s points at unpublished %s", npm.ErrRegistryMalformed, constraint, v)
		}
		return v, nil
	}
	if constraint == npm.LatestTag {
		return "", npm.ErrNoLatestTag
	}

	if resolver.IsConcrete(constraint) {
		if _, ok := meta.Versions[constraint]; ok {
			return constraint, nil
		}
		// Equal precedence can still differ in prefix or build metadata;
		// the last match in the sorted list wins.
		match := ""
		for _, v := range meta.VersionList() {
			if resolver.Satisfies(constraint, v) {
				match = v
			}
		}
		if match == "" {
			return "", fmt.Errorf("%w: %s", resolver.ErrNoMatchingVersion, constraint)
		}
		return match, nil
	}

	v, err := resolver.ResolveRange(constraint, meta.VersionList())
	if err != nil {
		return "", err
	}
	if v == "" {
		return "", fmt.Errorf("%w: %s", resolver.ErrNoMatchingVersion, constraint)
	}
	return v, nil
}
