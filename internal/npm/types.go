package npm

import (
	"maps"
	"slices"
)

// Metadata is the subset of a registry packument the CLI relies on.
type Metadata struct {
	Name     string                    `json:"name"`
	DistTags map[string]string         `json:"dist-tags"`
	Versions map[string]VersionDetails `json:"versions"`
}

// VersionDetails is the per-version manifest stored in a packument.
type VersionDetails struct {
	Name         string            `json:"name"`
	Version      string            `json:"version"`
	Main         string            `json:"main,omitempty"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
	Dist         Dist              `json:"dist"`
}

// Dist locates and authenticates a version's tarball.
type Dist struct {
	Tarball   string `json:"tarball"`
	Shasum    string `json:"shasum"`
	Integrity string `json:"integrity,omitempty"`
}

// VersionList returns the published version strings sorted lexically, so
// callers scanning it see the same order on every run.
func (m *Metadata) VersionList() []string {
	return slices.Sorted(maps.Keys(m.Versions))
}

// Tag returns the version a dist-tag points to.
func (m *Metadata) Tag(name string) (string, bool) {
	v, ok := m.DistTags[name]
	return v, ok && v != ""
}
