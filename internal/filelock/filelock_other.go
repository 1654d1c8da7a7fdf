//go:build !linux && !darwin && !freebsd && !netbsd && !openbsd && !dragonfly && !solaris && !illumos && !windows

package filelock

import "os"

// Platforms without flock or LockFileEx get no cross-process exclusion.
func tryLock(*os.File) error { return nil }

func unlock(*os.File) error { return nil }
