//go:build windows

package platform

import "golang.org/x/sys/windows"

// IsRoot reports whether the process token is elevated.
func IsRoot() bool {
	return windows.GetCurrentProcessToken().IsElevated()
}
