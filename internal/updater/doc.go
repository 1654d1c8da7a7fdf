// Package updater tells users when a newer compatible release of the CLI is
// published to the registry. A daily-cached version check powers the startup
// banner; `update --check` runs the same check synchronously.
package updater
