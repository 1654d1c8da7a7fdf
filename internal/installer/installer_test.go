package installer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devlink-labs/devlink/internal/filelock"
	"github.com/devlink-labs/devlink/internal/logging"
	"github.com/devlink-labs/devlink/internal/npm"
	"github.com/devlink-labs/devlink/internal/resolver"
	"github.com/devlink-labs/devlink/internal/store"
)

const pkgName = "@devlink/cli-init"

type fixture struct {
	reg   *fakeRegistry
	store *store.Store
	in    *Installer
	root  string
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	reg := newFakeRegistry(t, pkgName)
	root := t.TempDir()
	st := store.New(root)
	opts = append([]Option{
		WithLogger(logging.Discard()),
		WithFetcher(NewTarballFetcher(reg.srv.Client())),
		WithLockTimeout(time.Second),
	}, opts...)
	return &fixture{reg: reg, store: st, in: New(reg.client(), st, opts...), root: root}
}

func (f *fixture) descriptor(t *testing.T, constraint string) store.Descriptor {
	t.Helper()
	d, err := store.NewDescriptor(pkgName, constraint, filepath.Join(f.root, "dependencies"))
	require.NoError(t, err)
	return d
}

func TestEnsureInstalled_ConcreteIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.reg.publish("1.0.0", pkgFiles(pkgName, "1.0.0"))
	d := f.descriptor(t, "1.0.0")

	pkg, err := f.in.EnsureInstalled(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", pkg.Version)
	assert.Equal(t, filepath.Join(d.PackageDir(), "lib", "index.js"), pkg.RootFilePath)
	assert.FileExists(t, pkg.RootFilePath)
	assert.True(t, f.store.Exists(d))

	again, err := f.in.EnsureInstalled(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, pkg.RootFilePath, again.RootFilePath)
	assert.True(t, pkg.InstalledAt.Equal(again.InstalledAt), "second call must not rewrite the install")

	assert.Equal(t, int32(1), f.reg.meta.Load(), "one metadata request across both calls")
	assert.Equal(t, int32(1), f.reg.download.Load())
	assert.NoDirExists(t, filepath.Join(d.StorePath, store.StagingDir))
}

func TestEnsureInstalled_CacheHitReadsOnlyMarker(t *testing.T) {
	f := newFixture(t)
	f.reg.publish("1.0.0", pkgFiles(pkgName, "1.0.0"))
	d := f.descriptor(t, "1.0.0")

	pkg, err := f.in.EnsureInstalled(context.Background(), d)
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(d.PackageDir(), "package.json")))

	again, err := f.in.EnsureInstalled(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, pkg.RootFilePath, again.RootFilePath)
	assert.Equal(t, int32(1), f.reg.meta.Load())
}

func TestEnsureInstalled_LatestTag(t *testing.T) {
	f := newFixture(t)
	f.reg.publish("1.0.0", pkgFiles(pkgName, "1.0.0"))
	f.reg.publish("1.4.0", pkgFiles(pkgName, "1.4.0"))

	pkg, err := f.in.EnsureInstalled(context.Background(), f.descriptor(t, ""))
	require.NoError(t, err)
	assert.Equal(t, "1.4.0", pkg.Version)
	assert.Equal(t, "1.4.0", pkg.Descriptor.Constraint)
}

func TestEnsureInstalled_UpdatesToNewerCompatible(t *testing.T) {
	f := newFixture(t)
	f.reg.publish("1.0.0", pkgFiles(pkgName, "1.0.0"))

	_, err := f.in.EnsureInstalled(context.Background(), f.descriptor(t, "^1.0.0"))
	require.NoError(t, err)

	f.reg.publish("1.2.0", pkgFiles(pkgName, "1.2.0"))
	f.reg.publish("2.0.0", pkgFiles(pkgName, "2.0.0"))

	pkg, err := f.in.EnsureInstalled(context.Background(), f.descriptor(t, "^1.0.0"))
	require.NoError(t, err)
	assert.Equal(t, "1.2.0", pkg.Version)
	assert.Equal(t, "1.2.0", f.store.Installed(f.descriptor(t, "")).Version)
}

func TestEnsureInstalled_KeepsExistingWhenNothingMatches(t *testing.T) {
	f := newFixture(t)
	f.reg.publish("1.0.0", pkgFiles(pkgName, "1.0.0"))
	first, err := f.in.EnsureInstalled(context.Background(), f.descriptor(t, "^1.0.0"))
	require.NoError(t, err)

	// The registry no longer offers anything in range.
	f.reg.unpublish("1.0.0")
	f.reg.publish("2.0.0", pkgFiles(pkgName, "2.0.0"))

	pkg, err := f.in.EnsureInstalled(context.Background(), f.descriptor(t, "^1.0.0"))
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", pkg.Version)
	assert.True(t, first.InstalledAt.Equal(pkg.InstalledAt))
}

func TestEnsureInstalled_LocalPath(t *testing.T) {
	f := newFixture(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"), []byte(`{"name":"local-init","version":"0.0.1","main":"main.js"}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.js"), []byte(""), 0644))

	d, err := store.LocalDescriptor(pkgName, dir)
	require.NoError(t, err)
	pkg, err := f.in.EnsureInstalled(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "main.js"), pkg.RootFilePath)

	missing, err := store.LocalDescriptor(pkgName, filepath.Join(dir, "nope"))
	require.NoError(t, err)
	_, err = f.in.EnsureInstalled(context.Background(), missing)
	assert.ErrorIs(t, err, store.ErrEntryFileMissing)

	assert.Zero(t, f.reg.meta.Load(), "local mode never queries the registry")
}

func TestEnsureInstalled_RegistryUnreachable(t *testing.T) {
	f := newFixture(t)
	f.reg.srv.Close()
	d := f.descriptor(t, "1.0.0")

	_, err := f.in.EnsureInstalled(context.Background(), d)
	assert.ErrorIs(t, err, ErrInstallFailed)
	assert.ErrorIs(t, err, npm.ErrRegistryUnreachable)
	assert.False(t, f.store.Exists(d))
}

func TestEnsureInstalled_UnknownVersion(t *testing.T) {
	f := newFixture(t)
	f.reg.publish("1.0.0", pkgFiles(pkgName, "1.0.0"))

	_, err := f.in.EnsureInstalled(context.Background(), f.descriptor(t, "9.9.9"))
	assert.ErrorIs(t, err, ErrInstallFailed)
}

func TestEnsureInstalled_CorruptInstall(t *testing.T) {
	f := newFixture(t)
	files := pkgFiles(pkgName, "1.0.0")
	delete(files, "lib/index.js")
	f.reg.publish("1.0.0", files)
	d := f.descriptor(t, "1.0.0")

	_, err := f.in.EnsureInstalled(context.Background(), d)
	assert.ErrorIs(t, err, ErrCorruptInstall)
	assert.False(t, f.store.Exists(d))
	assert.NoDirExists(t, d.PackageDir())

	entries, _ := os.ReadDir(filepath.Join(d.StorePath, store.StagingDir))
	assert.Empty(t, entries, "staging is cleaned up")
}

func TestEnsureInstalled_FilesOnlySkipsEntryCheck(t *testing.T) {
	f := newFixture(t)
	f.reg.publish("1.0.0", map[string]string{
		"package.json":         `{"name":"` + pkgName + `","version":"1.0.0"}`,
		"material/README.md":   "# template",
		"material/src/app.txt": "hello",
	})
	d := f.descriptor(t, "1.0.0")
	d.FilesOnly = true

	pkg, err := f.in.EnsureInstalled(context.Background(), d)
	require.NoError(t, err)
	assert.Empty(t, pkg.RootFilePath)
	assert.FileExists(t, filepath.Join(pkg.Dir, "material", "README.md"))

	again, err := f.in.EnsureInstalled(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, pkg.Dir, again.Dir)
	assert.Equal(t, int32(1), f.reg.download.Load())
}

func TestEnsureInstalled_IntegrityMismatch(t *testing.T) {
	f := newFixture(t)
	f.reg.publish("1.0.0", pkgFiles(pkgName, "1.0.0"))
	f.reg.corrupt["1.0.0"] = true
	d := f.descriptor(t, "1.0.0")

	_, err := f.in.EnsureInstalled(context.Background(), d)
	assert.ErrorIs(t, err, ErrInstallFailed)
	assert.ErrorIs(t, err, ErrIntegrity)
	assert.False(t, f.store.Exists(d))
}

func TestEnsureInstalled_FailedUpdateKeepsPrevious(t *testing.T) {
	f := newFixture(t)
	f.reg.publish("1.0.0", pkgFiles(pkgName, "1.0.0"))
	_, err := f.in.EnsureInstalled(context.Background(), f.descriptor(t, "^1.0.0"))
	require.NoError(t, err)

	f.reg.publish("1.1.0", pkgFiles(pkgName, "1.1.0"))
	f.reg.corrupt["1.1.0"] = true

	_, err = f.in.EnsureInstalled(context.Background(), f.descriptor(t, "^1.0.0"))
	require.Error(t, err)
	assert.True(t, f.store.Exists(f.descriptor(t, "1.0.0")), "previous install survives a failed update")
}

func TestEnsureInstalled_Locked(t *testing.T) {
	f := newFixture(t, WithLockTimeout(50*time.Millisecond))
	f.reg.publish("1.0.0", pkgFiles(pkgName, "1.0.0"))
	d := f.descriptor(t, "1.0.0")

	held, err := filelock.Acquire(context.Background(), d.StorePath, LockFile, time.Second)
	require.NoError(t, err)
	defer held.Release()

	_, err = f.in.EnsureInstalled(context.Background(), d)
	assert.ErrorIs(t, err, ErrInstallLocked)
	assert.Zero(t, f.reg.meta.Load())
}

type recordingDeps struct {
	dirs    []string
	warning string
	err     error
}

func (r *recordingDeps) InstallDependencies(_ context.Context, dir string) (string, error) {
	r.dirs = append(r.dirs, dir)
	return r.warning, r.err
}

func TestEnsureInstalled_Dependencies(t *testing.T) {
	deps := &recordingDeps{}
	f := newFixture(t, WithDependencyInstaller(deps))
	files := pkgFiles(pkgName, "1.0.0")
	files["package.json"] = `{"name":"` + pkgName + `","version":"1.0.0","main":"lib/index.js","dependencies":{"left-pad":"^1.3.0"}}`
	f.reg.publish("1.0.0", files)

	_, err := f.in.EnsureInstalled(context.Background(), f.descriptor(t, "1.0.0"))
	require.NoError(t, err)
	require.Len(t, deps.dirs, 1)
	assert.Contains(t, deps.dirs[0], store.StagingDir, "dependencies install before the commit")

	deps.err = errors.New("npm exploded")
	f.reg.publish("1.0.1", map[string]string{
		"package.json": `{"name":"` + pkgName + `","version":"1.0.1","main":"lib/index.js","dependencies":{"left-pad":"^1.3.0"}}`,
		"lib/index.js": "",
	})
	_, err = f.in.EnsureInstalled(context.Background(), f.descriptor(t, "1.0.1"))
	assert.ErrorIs(t, err, ErrInstallFailed)
}

func TestResolveVersion_ConcreteIsDeterministic(t *testing.T) {
	meta := &npm.Metadata{
		Name:     pkgName,
		DistTags: map[string]string{"latest": "1.2.0+b"},
		Versions: map[string]npm.VersionDetails{
			"1.2.0+a": {},
			"1.2.0+b": {},
			"1.1.0":   {},
		},
	}
	for range 20 {
		got, err := resolveVersion(meta, "1.2.0")
		require.NoError(t, err)
		assert.Equal(t, "1.2.0+b", got)
	}

	got, err := resolveVersion(meta, "1.2.0+a")
	require.NoError(t, err)
	assert.Equal(t, "1.2.0+a", got, "an exact key wins over equal-precedence siblings")

	_, err = resolveVersion(meta, "1.3.0")
	assert.ErrorIs(t, err, resolver.ErrNoMatchingVersion)
}
