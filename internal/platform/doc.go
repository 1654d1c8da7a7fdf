// Package platform hides the few OS differences the CLI cares about:
// permission bits, which Windows ignores, and whether the process runs with
// superuser privileges.
package platform
