package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/devlink-labs/devlink/internal/platform"
	"github.com/devlink-labs/devlink/internal/userdata"
)

// MarkerFile is written last into a package directory to mark it complete.
const MarkerFile = ".devlink-install.json"

// Marker records what was installed into a package directory.
type Marker struct {
	Name        string    `json:"name"`
	Version     string    `json:"version"`
	Entry       string    `json:"entry,omitempty"`
	InstalledAt time.Time `json:"installedAt"`
}

// ReadMarker loads the completion marker from dir.
func ReadMarker(dir string) (*Marker, error) {
	data, err := os.ReadFile(filepath.Join(dir, MarkerFile))
	if err != nil {
		return nil, err
	}
	var m Marker
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing install marker in %s: %w", dir, err)
	}
	if m.Name == "" || m.Version == "" {
		return nil, fmt.Errorf("install marker in %s is incomplete", dir)
	}
	return &m, nil
}

func writeMarker(dir string, m Marker) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding install marker: %w", err)
	}
	return platform.WriteFileAtomic(filepath.Join(dir, MarkerFile), data, userdata.FilePermNormal)
}
