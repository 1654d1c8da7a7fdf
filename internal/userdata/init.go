package userdata

import (
	"fmt"
	"os"

	"github.com/devlink-labs/devlink/internal/platform"
)

// EnsureLayout creates the CLI home and its cache directories if missing.
// It returns the directories it had to create, in creation order.
func EnsureLayout(cliHome string) ([]string, error) {
	var created []string
	for _, dir := range []string{
		cliHome,
		DependenciesPath(cliHome),
		DependenciesStorePath(cliHome),
		MaterialPath(cliHome),
	} {
		made, err := ensureDir(dir, DirPermNormal)
		if err != nil {
			return created, err
		}
		if made {
			created = append(created, dir)
		}
	}
	return created, nil
}

// ensureDir creates a directory if it doesn't exist. It reports whether the
// directory was created by this call.
func ensureDir(path string, perm os.FileMode) (bool, error) {
	if info, err := os.Stat(path); err == nil {
		if info.IsDir() {
			return false, nil
		}
		return false, fmt.Errorf("%s exists but is not a directory", path)
	}

	if err := os.MkdirAll(path, perm); err != nil {
		return false, fmt.Errorf("creating directory %s: %w", path, err)
	}
	// MkdirAll may not apply exact perms if parent dirs needed creation.
	if err := platform.Chmod(path, perm); err != nil {
		return false, fmt.Errorf("setting permissions on %s: %w", path, err)
	}
	return true, nil
}
