// Package config loads user settings from <cliHome>/setting.json, the
// environment (DEVLINK_ prefix) and ~/.env into an immutable Config value
// that is threaded into every component that needs it.
package config
