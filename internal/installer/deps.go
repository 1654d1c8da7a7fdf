package installer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// NPMDependencies installs runtime dependencies with the npm CLI.
type NPMDependencies struct {
	lookPath func(string) (string, error)
}

// NewNPMDependencies returns a DependencyInstaller backed by npm on PATH.
func NewNPMDependencies() *NPMDependencies {
	return &NPMDependencies{lookPath: exec.LookPath}
}

// InstallDependencies runs npm install for production dependencies in dir.
// A missing npm is reported as a warning rather than an error.
func (n *NPMDependencies) InstallDependencies(ctx context.Context, dir string) (string, error) {
	npmPath, err := n.lookPath("npm")
	if err != nil {
		return "npm not found, skipping dependency installation", nil
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, npmPath, "install",
		"--omit=dev", "--no-audit", "--no-fund", "--no-package-lock")
	cmd.Dir = dir
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return "", fmt.Errorf("npm install in %s: %w: %s", dir, err, lastLine(msg))
		}
		return "", fmt.Errorf("npm install in %s: %w", dir, err)
	}
	return "", nil
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
