package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/devlink-labs/devlink/internal/branding"
	"github.com/devlink-labs/devlink/internal/platform"
	"github.com/devlink-labs/devlink/internal/userdata"
)

const fileType = "json"

// Setting keys as stored in setting.json.
const (
	KeyRegistry            = "registry"
	KeyPrintLogo           = "printLogo"
	KeyLockTimeout         = "lockTimeout"
	KeyInstallDependencies = "installDependencies"
	KeyLogLevel            = "logLevel"
)

// Well-known registry aliases.
const (
	RegistryNPM    = "npm"
	RegistryTaobao = "taobao"

	NPMRegistryURL    = "https://registry.npmjs.org"
	TaobaoRegistryURL = "https://registry.npmmirror.com"
)

// DefaultLockTimeout bounds how long an install waits for another process.
const DefaultLockTimeout = 30 * time.Second

// ErrUnknownKey is returned by SaveSettings for keys it does not recognize.
var ErrUnknownKey = errors.New("unknown setting")

// Config is the resolved, read-only configuration for one CLI invocation.
type Config struct {
	CLIHome             string
	Registry            string // raw setting: npm, taobao, or a URL
	RegistryURL         string // resolved base URL without trailing slash
	PrintLogo           bool
	LockTimeout         time.Duration
	InstallDependencies bool
	LogLevel            string
}

// Settings returns the user-visible settings as a plain map. It is the
// shape forwarded to launched entry points.
func (c Config) Settings() map[string]any {
	return map[string]any{
		KeyRegistry:            c.Registry,
		KeyPrintLogo:           c.PrintLogo,
		KeyLockTimeout:         c.LockTimeout.String(),
		KeyInstallDependencies: c.InstallDependencies,
		KeyLogLevel:            c.LogLevel,
	}
}

// Keys returns the recognized setting keys in sorted order.
func Keys() []string {
	keys := []string{KeyRegistry, KeyPrintLogo, KeyLockTimeout, KeyInstallDependencies, KeyLogLevel}
	sort.Strings(keys)
	return keys
}

func newViper(cliHome string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(userdata.SettingsPath(cliHome))
	v.SetConfigType(fileType)
	v.SetEnvPrefix(branding.EnvPrefix())
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault(KeyRegistry, RegistryNPM)
	v.SetDefault(KeyPrintLogo, false)
	v.SetDefault(KeyLockTimeout, DefaultLockTimeout.String())
	v.SetDefault(KeyInstallDependencies, true)
	v.SetDefault(KeyLogLevel, "info")

	// Bind explicitly so the camelCase keys map to DEVLINK_LOCK_TIMEOUT style names.
	for key, env := range map[string]string{
		KeyRegistry:            "REGISTRY",
		KeyPrintLogo:           "PRINT_LOGO",
		KeyLockTimeout:         "LOCK_TIMEOUT",
		KeyInstallDependencies: "INSTALL_DEPENDENCIES",
		KeyLogLevel:            "LOG_LEVEL",
	} {
		_ = v.BindEnv(key, branding.EnvVar(env))
	}
	return v
}

// Load reads setting.json under cliHome and the environment into a Config.
// A missing settings file is not an error.
func Load(cliHome string) (Config, error) {
	v := newViper(cliHome)
	if err := v.ReadInConfig(); err != nil && !isNotExist(err) {
		return Config{}, fmt.Errorf("reading %s: %w", userdata.SettingsPath(cliHome), err)
	}

	registry := v.GetString(KeyRegistry)
	registryURL, err := RegistryURL(registry)
	if err != nil {
		return Config{}, err
	}

	lockTimeout, err := cast.ToDurationE(v.Get(KeyLockTimeout))
	if err != nil || lockTimeout <= 0 {
		return Config{}, fmt.Errorf("invalid %s %q", KeyLockTimeout, v.GetString(KeyLockTimeout))
	}

	return Config{
		CLIHome:             cliHome,
		Registry:            registry,
		RegistryURL:         registryURL,
		PrintLogo:           v.GetBool(KeyPrintLogo),
		LockTimeout:         lockTimeout,
		InstallDependencies: v.GetBool(KeyInstallDependencies),
		LogLevel:            strings.ToLower(v.GetString(KeyLogLevel)),
	}, nil
}

// RegistryURL maps a registry setting to a base URL. The aliases "npm" and
// "taobao" pick the well-known mirrors; anything else must be an http(s) URL.
func RegistryURL(setting string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(setting)) {
	case "", RegistryNPM:
		return NPMRegistryURL, nil
	case RegistryTaobao:
		return TaobaoRegistryURL, nil
	}
	u, err := url.Parse(setting)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("invalid registry %q: expected npm, taobao, or an http(s) URL", setting)
	}
	return strings.TrimRight(setting, "/"), nil
}

// SaveSettings validates and writes a single key into setting.json,
// preserving the other keys already stored there. Keys are written in their
// documented camelCase spelling.
func SaveSettings(cliHome, key, value string) error {
	typed, err := coerce(key, value)
	if err != nil {
		return err
	}

	path := userdata.SettingsPath(cliHome)
	stored := map[string]any{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return fmt.Errorf("reading settings: %w", err)
	case len(bytes.TrimSpace(data)) > 0:
		if err := json.Unmarshal(data, &stored); err != nil {
			return fmt.Errorf("parsing settings: %w", err)
		}
	}

	// Older files may carry lowercased keys; fold them into the known spelling.
	for _, k := range Keys() {
		lower := strings.ToLower(k)
		if lower == k {
			continue
		}
		if old, ok := stored[lower]; ok {
			if _, set := stored[k]; !set {
				stored[k] = old
			}
			delete(stored, lower)
		}
	}
	stored[key] = typed

	out, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	if _, err := userdata.EnsureLayout(cliHome); err != nil {
		return err
	}
	if err := platform.WriteFileAtomic(path, append(out, '\n'), userdata.FilePermNormal); err != nil {
		return fmt.Errorf("writing settings: %w", err)
	}
	return nil
}

// ClearSettings removes setting.json. It reports whether a file was removed.
func ClearSettings(cliHome string) (bool, error) {
	err := os.Remove(userdata.SettingsPath(cliHome))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("removing settings: %w", err)
	}
	return true, nil
}

func coerce(key, value string) (any, error) {
	switch key {
	case KeyRegistry:
		if _, err := RegistryURL(value); err != nil {
			return nil, err
		}
		return value, nil
	case KeyPrintLogo, KeyInstallDependencies:
		b, err := cast.ToBoolE(value)
		if err != nil {
			return nil, fmt.Errorf("%s must be true or false: %w", key, err)
		}
		return b, nil
	case KeyLockTimeout:
		d, err := time.ParseDuration(value)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("%s must be a positive duration like 30s", key)
		}
		return d.String(), nil
	case KeyLogLevel:
		switch strings.ToLower(value) {
		case "debug", "info", "warn", "error":
			return strings.ToLower(value), nil
		}
		return nil, fmt.Errorf("%s must be one of debug, info, warn, error", key)
	}
	return nil, fmt.Errorf("%w %q (known: %s)", ErrUnknownKey, key, strings.Join(Keys(), ", "))
}

func isNotExist(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
}
