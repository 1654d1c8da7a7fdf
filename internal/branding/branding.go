// Package branding provides compile-time identity values for the CLI.
//
// Forkers edit branding.yaml in this package before building; Go's
// //go:embed bakes it into the binary.
package branding

import (
	_ "embed"
	"strings"
	"sync"

	"go.yaml.in/yaml/v3"
)

//go:embed branding.yaml
var rawBranding []byte

var (
	once     sync.Once
	defaults brand
)

type brand struct {
	CLIName     string `yaml:"cli_name"`
	DisplayName string `yaml:"display_name"`
	Description string `yaml:"description"`
	HomeDir     string `yaml:"home_dir"`
	EnvPrefix   string `yaml:"env_prefix"`
	GoModule    string `yaml:"go_module"`
	NPMName     string `yaml:"npm_name"`
	InitPackage string `yaml:"init_package"`
}

func load() {
	once.Do(func() {
		// Set hard defaults in case the embedded file is missing/empty.
		defaults = brand{
			CLIName:     "devlink",
			DisplayName: "DevLink",
			Description: "Scaffold projects from registry-hosted materials",
			HomeDir:     ".devlink-cli",
			EnvPrefix:   "DEVLINK",
			GoModule:    "github.com/devlink-labs/devlink",
			NPMName:     "@devlink/cli",
			InitPackage: "@devlink/cli-init",
		}
		// Overlay with embedded YAML values.
		_ = yaml.Unmarshal(rawBranding, &defaults)
	})
}

// CLIName returns the root command name (e.g., "devlink").
func CLIName() string { load(); return defaults.CLIName }

// DisplayName returns the human-readable product name (e.g., "DevLink").
func DisplayName() string { load(); return defaults.DisplayName }

// Description returns the short product description.
func Description() string { load(); return defaults.Description }

// HomeDir returns the dot-directory name under $HOME (e.g., ".devlink-cli").
func HomeDir() string { load(); return defaults.HomeDir }

// EnvPrefix returns the environment variable prefix (e.g., "DEVLINK").
func EnvPrefix() string { load(); return defaults.EnvPrefix }

// GoModule returns the Go module path. Not consumed at runtime.
func GoModule() string { load(); return defaults.GoModule }

// NPMName returns the registry package name the CLI itself is published under.
// The self-update check queries the registry for this name.
func NPMName() string { load(); return defaults.NPMName }

// InitPackage returns the registry package that implements `init`.
func InitPackage() string { load(); return defaults.InitPackage }

// EnvVar returns a fully qualified env var name, e.g., EnvVar("cli_home") → "DEVLINK_CLI_HOME".
func EnvVar(suffix string) string {
	load()
	return defaults.EnvPrefix + "_" + strings.ToUpper(suffix)
}
