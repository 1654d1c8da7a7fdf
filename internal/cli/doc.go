// Package cli defines the Cobra command tree for the devlink CLI. Each file
// in this package builds one top-level command (init, material, clean, etc.)
// and hands it to the root command. Command implementations delegate to
// internal packages for business logic and only handle flag parsing, I/O
// formatting, and process exit codes.
package cli
