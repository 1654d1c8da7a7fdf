package manifest

// FileName is the manifest every installed package carries at its root.
const FileName = "package.json"

// DefaultMain is used when a package declares no main field.
const DefaultMain = "index.js"

// Package is the subset of package.json the CLI reads.
type Package struct {
	Name         string            `json:"name"`
	Version      string            `json:"version"`
	Main         string            `json:"main,omitempty"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

// MainOrDefault returns the declared main field or DefaultMain.
func (p *Package) MainOrDefault() string {
	if p.Main == "" {
		return DefaultMain
	}
	return p.Main
}

// HasDependencies reports whether the package declares runtime dependencies.
func (p *Package) HasDependencies() bool {
	return len(p.Dependencies) > 0
}
