package launcher

import (
	"context"
	"fmt"
	"os"
	"os/exec"
)

// ExecRuntime runs the entry file directly with the config as its only
// argument. The file must be executable.
type ExecRuntime struct{}

// Command returns `<entry> <config>`.
func (ExecRuntime) Command(ctx context.Context, entry string, config []byte) (*exec.Cmd, error) {
	info, err := os.Stat(entry)
	if err != nil {
		return nil, fmt.Errorf("entry %s: %w", entry, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("entry %s is a directory", entry)
	}
	return exec.CommandContext(ctx, entry, string(config)), nil
}
