package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// LoadDotEnv reads a dotenv file and exports each key that is not already
// set in the environment. A missing file is ignored.
func LoadDotEnv(path string) error {
	return loadDotEnv(path, os.LookupEnv, os.Setenv)
}

func loadDotEnv(path string, lookup func(string) (string, bool), set func(string, string) error) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	// viper lowercases keys; env vars are conventionally upper case.
	for _, key := range v.AllKeys() {
		name := strings.ToUpper(key)
		if _, ok := lookup(name); ok {
			continue
		}
		if err := set(name, v.GetString(key)); err != nil {
			return fmt.Errorf("exporting %s: %w", name, err)
		}
	}
	return nil
}
