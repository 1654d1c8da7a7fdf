package launcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// ErrSpawnFailed means the child process could not be started at all.
var ErrSpawnFailed = errors.New("spawn failed")

// SpawnFailureCode is the exit status used when no child ever ran.
const SpawnFailureCode = 1

// Runtime builds the command that runs an entry file.
type Runtime interface {
	Command(ctx context.Context, entry string, config []byte) (*exec.Cmd, error)
}

// DispatchRuntime picks a runtime from the entry file's extension.
func DispatchRuntime(entry string) Runtime {
	switch strings.ToLower(filepath.Ext(entry)) {
	case ".js", ".cjs", ".mjs":
		return &NodeRuntime{}
	default:
		return &ExecRuntime{}
	}
}

// Launcher spawns entry files. The zero value inherits the process's
// standard streams and environment.
type Launcher struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	// Env holds KEY=VALUE pairs added on top of the inherited environment.
	Env []string
	// Runtime overrides extension-based dispatch when set.
	Runtime Runtime
	// GracePeriod is how long a cancelled child gets between the interrupt
	// and a kill.
	GracePeriod time.Duration
}

// Run starts rootFilePath with config serialized as JSON and waits for it.
// The returned code is the child's exit status. When the child cannot be
// started the code is SpawnFailureCode and the error wraps ErrSpawnFailed.
func (l *Launcher) Run(ctx context.Context, rootFilePath string, config any) (int, error) {
	payload, err := json.Marshal(config)
	if err != nil {
		return SpawnFailureCode, fmt.Errorf("%w: serializing config: %w", ErrSpawnFailed, err)
	}

	rt := l.Runtime
	if rt == nil {
		rt = DispatchRuntime(rootFilePath)
	}
	cmd, err := rt.Command(ctx, rootFilePath, payload)
	if err != nil {
		return SpawnFailureCode, fmt.Errorf("%w: %w", ErrSpawnFailed, err)
	}

	cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
	if l.Stdin != nil {
		cmd.Stdin = l.Stdin
	}
	if l.Stdout != nil {
		cmd.Stdout = l.Stdout
	}
	if l.Stderr != nil {
		cmd.Stderr = l.Stderr
	}
	cmd.Env = mergeEnv(os.Environ(), l.Env)
	// Let the child handle the interrupt itself before it is killed.
	cmd.Cancel = func() error { return interrupt(cmd.Process) }
	cmd.WaitDelay = l.GracePeriod
	if cmd.WaitDelay == 0 {
		cmd.WaitDelay = 5 * time.Second
	}

	if err := cmd.Start(); err != nil {
		return SpawnFailureCode, fmt.Errorf("%w: %s: %w", ErrSpawnFailed, rootFilePath, err)
	}

	err = cmd.Wait()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		if code < 0 {
			// Killed by a signal.
			code = SpawnFailureCode
		}
		return code, nil
	}
	return SpawnFailureCode, fmt.Errorf("waiting for %s: %w", rootFilePath, err)
}

// mergeEnv sets or replaces each KEY=VALUE of extra in env.
func mergeEnv(env, extra []string) []string {
	for _, kv := range extra {
		key, value, _ := strings.Cut(kv, "=")
		env = setEnv(env, key, value)
	}
	return env
}

// setEnv sets or replaces an environment variable in the env slice.
func setEnv(env []string, key, value string) []string {
	prefix := key + "="
	for i, e := range env {
		if strings.HasPrefix(e, prefix) {
			env[i] = prefix + value
			return env
		}
	}
	return append(env, prefix+value)
}
