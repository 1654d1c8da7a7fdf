package userdata

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/devlink-labs/devlink/internal/branding"
)

// Directory and file name constants for the CLI home layout.
const (
	DependenciesDir = "dependencies"
	NodeModulesDir  = "node_modules"
	MaterialDir     = "material"
	SettingsFile    = "setting.json"
	DotEnvFile      = ".env"
)

// Permission constants.
const (
	DirPermNormal  os.FileMode = 0755
	FilePermNormal os.FileMode = 0644
	FilePermSecure os.FileMode = 0600
)

// GetCLIHome returns the CLI home directory.
// It checks the DEVLINK_CLI_HOME environment variable first,
// then falls back to ~/.devlink-cli.
func GetCLIHome() (string, error) {
	return GetCLIHomeWith(os.Getenv)
}

// GetCLIHomeWith resolves the CLI home using the provided getenv function.
// A relative override is joined to the user's home directory, matching how
// the tool has always interpreted CLI_HOME.
func GetCLIHomeWith(getenv func(string) string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	if v := getenv(branding.EnvVar("CLI_HOME")); v != "" {
		if filepath.IsAbs(v) {
			return filepath.Clean(v), nil
		}
		return filepath.Join(home, v), nil
	}
	return filepath.Join(home, branding.HomeDir()), nil
}

// DependenciesPath returns <cliHome>/dependencies, the target path for
// packages the CLI installs for itself (e.g. the init package).
func DependenciesPath(cliHome string) string {
	return filepath.Join(cliHome, DependenciesDir)
}

// DependenciesStorePath returns <cliHome>/dependencies/node_modules.
func DependenciesStorePath(cliHome string) string {
	return filepath.Join(DependenciesPath(cliHome), NodeModulesDir)
}

// MaterialPath returns <cliHome>/material, where project templates are cached.
func MaterialPath(cliHome string) string {
	return filepath.Join(cliHome, MaterialDir)
}

// SettingsPath returns <cliHome>/setting.json.
func SettingsPath(cliHome string) string {
	return filepath.Join(cliHome, SettingsFile)
}

// DotEnvPath returns the path of the user's ~/.env file.
func DotEnvPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, DotEnvFile), nil
}
