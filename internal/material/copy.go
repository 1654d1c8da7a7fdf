package material

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ignoredNames are skipped both when checking that a target is empty and
// when copying a template.
var ignoredNames = map[string]bool{
	"node_modules": true,
	".git":         true,
	".DS_Store":    true,
}

// IsEmptyDir reports whether dir has no entries other than ignored ones.
// A missing directory counts as empty.
func IsEmptyDir(dir string) (bool, []string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return true, nil, nil
	}
	if err != nil {
		return false, nil, err
	}
	var names []string
	for _, e := range entries {
		if ignoredNames[e.Name()] {
			continue
		}
		names = append(names, e.Name())
	}
	return len(names) == 0, names, nil
}

// emptyDir removes everything inside dir, keeping dir itself.
func emptyDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return fmt.Errorf("removing %s: %w", e.Name(), err)
		}
	}
	return nil
}

// copyDir recursively copies src to dst, excluding entries in ignoredNames.
// It returns the number of files written.
func copyDir(src, dst string) (int, error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(dst, srcInfo.Mode().Perm()|0700); err != nil {
		return 0, err
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, entry := range entries {
		if ignoredNames[entry.Name()] {
			continue
		}

		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())

		switch {
		case entry.IsDir():
			copied, err := copyDir(srcPath, dstPath)
			n += copied
			if err != nil {
				return n, err
			}
		case entry.Type().IsRegular():
			if err := copyFile(srcPath, dstPath); err != nil {
				return n, err
			}
			n++
		}
		// Symlinks and special files are not part of a template.
	}

	return n, nil
}

// copyFile copies a single file from src to dst, preserving permissions.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
