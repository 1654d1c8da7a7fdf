package installer

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"crypto/sha1"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/devlink-labs/devlink/internal/npm"
)

// tarball builds a gzip tar with every file under "package/".
func tarball(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, body := range files {
		hdr := &tar.Header{Name: name, Mode: 0o644, Size: int64(len(body)), Typeflag: tar.TypeReg}
		if !strings.HasPrefix(name, "/") && !strings.HasPrefix(name, "..") {
			hdr.Name = "package/" + name
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func pkgFiles(name, version string) map[string]string {
	return map[string]string{
		"package.json": `{"name":"` + name + `","version":"` + version + `","main":"lib/index.js"}`,
		"lib/index.js": "module.exports = (cfg) => console.log(cfg)",
	}
}

// fakeRegistry serves one package's packument and tarballs and counts hits.
type fakeRegistry struct {
	t        *testing.T
	srv      *httptest.Server
	name     string
	mu       sync.Mutex
	tags     map[string]string
	tarballs map[string][]byte
	corrupt  map[string]bool // serve wrong digests
	meta     atomic.Int32
	download atomic.Int32
}

func newFakeRegistry(t *testing.T, name string) *fakeRegistry {
	r := &fakeRegistry{
		t:        t,
		name:     name,
		tags:     map[string]string{},
		tarballs: map[string][]byte{},
		corrupt:  map[string]bool{},
	}
	r.srv = httptest.NewServer(http.HandlerFunc(r.serve))
	t.Cleanup(r.srv.Close)
	return r
}

func (r *fakeRegistry) publish(version string, files map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tarballs[version] = tarball(r.t, files)
	r.tags["latest"] = version
}

func (r *fakeRegistry) unpublish(version string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tarballs, version)
}

func (r *fakeRegistry) client() *npm.Client {
	return npm.NewClient(r.srv.URL, npm.WithHTTPClient(r.srv.Client()))
}

func (r *fakeRegistry) serve(w http.ResponseWriter, req *http.Request) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.HasPrefix(req.URL.Path, "/-/") {
		r.download.Add(1)
		version := strings.TrimSuffix(strings.TrimPrefix(req.URL.Path, "/-/"), ".tgz")
		data, ok := r.tarballs[version]
		if !ok {
			http.NotFound(w, req)
			return
		}
		w.Write(data)
		return
	}

	r.meta.Add(1)
	versions := map[string]npm.VersionDetails{}
	for v, data := range r.tarballs {
		sum512 := sha512.Sum512(data)
		sum1 := sha1.Sum(data)
		integrity := "sha512-" + base64.StdEncoding.EncodeToString(sum512[:])
		if r.corrupt[v] {
			integrity = "sha512-" + base64.StdEncoding.EncodeToString(make([]byte, 64))
		}
		versions[v] = npm.VersionDetails{
			Name:    r.name,
			Version: v,
			Dist: npm.Dist{
				Tarball:   r.srv.URL + "/-/" + v + ".tgz",
				Shasum:    hex.EncodeToString(sum1[:]),
				Integrity: integrity,
			},
		}
	}
	json.NewEncoder(w).Encode(npm.Metadata{Name: r.name, DistTags: r.tags, Versions: versions})
}
