package cli

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha512"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/devlink-labs/devlink/internal/npm"
	"github.com/devlink-labs/devlink/internal/resolver"
)

// testRegistry serves packuments and tarballs for any number of packages.
type testRegistry struct {
	t        *testing.T
	srv      *httptest.Server
	mu       sync.Mutex
	packages map[string]map[string][]byte // name -> version -> tarball
}

func newTestRegistry(t *testing.T) *testRegistry {
	r := &testRegistry{t: t, packages: map[string]map[string][]byte{}}
	r.srv = httptest.NewServer(http.HandlerFunc(r.serve))
	t.Cleanup(r.srv.Close)
	return r
}

// publish adds a version; files are placed under package/ and entries ending
// in .sh are executable.
func (r *testRegistry) publish(name, version string, files map[string]string) {
	r.t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for path, body := range files {
		mode := int64(0o644)
		if strings.HasSuffix(path, ".sh") {
			mode = 0o755
		}
		hdr := &tar.Header{Name: "package/" + path, Mode: mode, Size: int64(len(body)), Typeflag: tar.TypeReg}
		require.NoError(r.t, tw.WriteHeader(hdr))
		_, err := tw.Write([]byte(body))
		require.NoError(r.t, err)
	}
	require.NoError(r.t, tw.Close())
	require.NoError(r.t, gz.Close())

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.packages[name] == nil {
		r.packages[name] = map[string][]byte{}
	}
	r.packages[name][version] = buf.Bytes()
}

func (r *testRegistry) serve(w http.ResponseWriter, req *http.Request) {
	r.mu.Lock()
	defer r.mu.Unlock()

	path := strings.TrimPrefix(req.URL.Path, "/")
	if name, file, ok := strings.Cut(path, "/-/"); ok {
		data, found := r.packages[name][strings.TrimSuffix(file, ".tgz")]
		if !found {
			http.NotFound(w, req)
			return
		}
		w.Write(data)
		return
	}

	versions, ok := r.packages[path]
	if !ok {
		http.NotFound(w, req)
		return
	}
	meta := npm.Metadata{Name: path, DistTags: map[string]string{}, Versions: map[string]npm.VersionDetails{}}
	for v, data := range versions {
		sum := sha512.Sum512(data)
		meta.Versions[v] = npm.VersionDetails{
			Name:    path,
			Version: v,
			Dist: npm.Dist{
				Tarball:   r.srv.URL + "/" + path + "/-/" + v + ".tgz",
				Integrity: "sha512-" + base64.StdEncoding.EncodeToString(sum[:]),
			},
		}
		if latest, ok := meta.DistTags[npm.LatestTag]; !ok || resolver.IsNewer(v, latest) {
			meta.DistTags[npm.LatestTag] = v
		}
	}
	json.NewEncoder(w).Encode(meta)
}

// sandbox isolates HOME and the CLI home for one test.
type sandbox struct {
	home    string
	cliHome string
}

func newSandbox(t *testing.T) *sandbox {
	t.Helper()
	s := &sandbox{home: t.TempDir()}
	s.cliHome = filepath.Join(s.home, "cli-home")
	t.Setenv("HOME", s.home)
	t.Setenv("USERPROFILE", s.home)
	t.Setenv("DEVLINK_CLI_HOME", s.cliHome)
	for _, key := range []string{"DEVLINK_REGISTRY", "DEVLINK_PRINT_LOGO", "DEVLINK_LOCK_TIMEOUT", "DEVLINK_INSTALL_DEPENDENCIES", "DEVLINK_LOG_LEVEL"} {
		t.Setenv(key, "")
	}
	t.Setenv("DEVLINK_INSTALL_DEPENDENCIES", "false")
	return s
}

type result struct {
	stdout string
	stderr string
	code   int
	err    error
}

// run executes the command tree in-process the way Execute does, minus the
// fang presentation layer.
func run(t *testing.T, version string, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	a := newApp(BuildInfo{Version: version, Commit: "abc123", Date: "2026-01-01"})
	a.stdout = &stdout
	a.stderr = &stderr

	root := newRootCmd(a)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	if a.updateDone != nil {
		<-a.updateDone
	}
	return result{stdout: stdout.String(), stderr: stderr.String(), code: a.finish(err), err: err}
}
