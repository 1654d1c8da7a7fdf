package updater

import (
	"context"
	"fmt"
	"time"

	"github.com/devlink-labs/devlink/internal/branding"
	"github.com/devlink-labs/devlink/internal/resolver"
)

// DevVersion is the version string of unreleased builds, which never check.
const DevVersion = "dev"

// VersionSource finds the newest published version compatible with base.
type VersionSource interface {
	LatestSemverVersion(ctx context.Context, name, base string) (string, error)
}

// Updater checks the registry for newer releases of the CLI.
type Updater struct {
	currentVersion string
	packageName    string
	source         VersionSource
	now            func() time.Time
}

// Option configures an Updater.
type Option func(*Updater)

// WithPackageName overrides the registry package checked (default: the
// branded npm name).
func WithPackageName(name string) Option {
	return func(u *Updater) {
		u.packageName = name
	}
}

// New creates an Updater for currentVersion that queries source.
func New(currentVersion string, source VersionSource, opts ...Option) *Updater {
	u := &Updater{
		currentVersion: currentVersion,
		packageName:    branding.NPMName(),
		source:         source,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// CurrentVersion returns the version this updater was created with.
func (u *Updater) CurrentVersion() string {
	return u.currentVersion
}

// PackageName returns the registry package the updater checks.
func (u *Updater) PackageName() string {
	return u.packageName
}

// Enabled reports whether checks make sense for this build.
func (u *Updater) Enabled() bool {
	return u.currentVersion != "" && u.currentVersion != DevVersion && resolver.IsConcrete(u.currentVersion)
}

// Check queries the registry and returns a fresh cache entry. It does not
// persist the result.
func (u *Updater) Check(ctx context.Context) (*VersionCache, error) {
	if !u.Enabled() {
		return nil, fmt.Errorf("version %q cannot be checked for updates", u.currentVersion)
	}
	latest, err := u.source.LatestSemverVersion(ctx, u.packageName, u.currentVersion)
	if err != nil {
		return nil, fmt.Errorf("checking %s: %w", u.packageName, err)
	}
	if latest == "" {
		latest = u.currentVersion
	}
	return &VersionCache{
		LatestVersion:   latest,
		CurrentVersion:  u.currentVersion,
		CheckedAt:       u.now(),
		UpdateAvailable: resolver.IsNewer(latest, u.currentVersion),
	}, nil
}

// UpgradeHint returns the command that installs the newest release.
func (u *Updater) UpgradeHint() string {
	return "npm install -g " + u.packageName
}
