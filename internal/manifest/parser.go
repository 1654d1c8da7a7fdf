package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalid marks a package.json that fails schema validation.
var ErrInvalid = errors.New("invalid package manifest")

// Load reads and validates <dir>/package.json.
func Load(dir string) (*Package, error) {
	path := filepath.Join(dir, FileName)
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}

	result, err := Validate(data)
	if err != nil {
		return nil, fmt.Errorf("validating %s: %w", path, err)
	}
	if !result.Valid {
		return nil, fmt.Errorf("%w %s: %s", ErrInvalid, path, result.Summary())
	}

	var pkg Package
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	return &pkg, nil
}

// EntryFile resolves the package's entry point inside dir the way Node
// resolves a main field: the exact path, then with a .js suffix, then as a
// directory holding index.js. The returned error wraps fs.ErrNotExist when no
// candidate exists.
func EntryFile(dir string, pkg *Package) (string, error) {
	main := filepath.FromSlash(strings.TrimPrefix(pkg.MainOrDefault(), "./"))
	base := filepath.Join(dir, main)

	for _, candidate := range []string{base, base + ".js", filepath.Join(base, DefaultMain)} {
		info, err := os.Stat(candidate)
		if err == nil && info.Mode().IsRegular() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("entry %s declared by %s: %w", main, pkg.Name, fs.ErrNotExist)
}

// readFile reads the contents of a file at the given path.
func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", path, err)
	}
	return data, nil
}
