package userdata

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// CheckHome validates the CLI home layout and that it is writable.
// When fix is true, missing directories are created.
func CheckHome(w io.Writer, cliHome string, fix bool) error {
	fmt.Fprintln(w, "CLI home check:")

	if _, statErr := os.Stat(cliHome); os.IsNotExist(statErr) {
		fmt.Fprintf(w, "  [MISS] %s does not exist\n", cliHome)
		if !fix {
			return nil
		}
		if _, err := EnsureLayout(cliHome); err != nil {
			return fmt.Errorf("auto-fix layout: %w", err)
		}
		fmt.Fprintf(w, "  [FIX ] Created %s\n", cliHome)
	}

	checkDirExists(w, cliHome, fix)
	checkDirExists(w, DependenciesPath(cliHome), fix)
	checkDirExists(w, DependenciesStorePath(cliHome), fix)
	checkDirExists(w, MaterialPath(cliHome), fix)
	checkWritable(w, cliHome)
	checkFileExists(w, SettingsPath(cliHome))

	return nil
}

func checkDirExists(w io.Writer, path string, fix bool) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		fmt.Fprintf(w, "  [MISS] %s does not exist\n", path)
		if fix {
			if _, mkErr := ensureDir(path, DirPermNormal); mkErr != nil {
				fmt.Fprintf(w, "  [FAIL] Could not create %s: %v\n", path, mkErr)
				return
			}
			fmt.Fprintf(w, "  [FIX ] Created %s\n", path)
		}
		return
	}
	if err != nil {
		fmt.Fprintf(w, "  [FAIL] %s: %v\n", path, err)
		return
	}
	if !info.IsDir() {
		fmt.Fprintf(w, "  [WARN] %s exists but is not a directory\n", path)
		return
	}
	fmt.Fprintf(w, "  [ OK ] %s exists\n", path)
}

func checkFileExists(w io.Writer, path string) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Fprintf(w, "  [INFO] %s not created yet (defaults in use)\n", path)
		return
	}
	fmt.Fprintf(w, "  [ OK ] %s exists\n", path)
}

func checkWritable(w io.Writer, dir string) {
	probe, err := os.CreateTemp(dir, ".write-probe-*")
	if err != nil {
		fmt.Fprintf(w, "  [FAIL] %s is not writable: %v\n", dir, err)
		return
	}
	name := probe.Name()
	probe.Close()
	os.Remove(name)
	fmt.Fprintf(w, "  [ OK ] %s is writable\n", filepath.Clean(dir))
}
