//go:build !windows

package platform

import "os"

// IsRoot reports whether the process runs with an effective uid of 0.
func IsRoot() bool {
	return os.Geteuid() == 0
}
