package launcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
)

func TestDispatchRuntime(t *testing.T) {
	tests := []struct {
		entry string
		node  bool
	}{
		{"/p/index.js", true},
		{"/p/index.CJS", true},
		{"/p/index.mjs", true},
		{"/p/bin/run", false},
		{"/p/run.sh", false},
	}
	for _, tt := range tests {
		_, isNode := DispatchRuntime(tt.entry).(*NodeRuntime)
		if isNode != tt.node {
			t.Errorf("DispatchRuntime(%q) node=%v, want %v", tt.entry, isNode, tt.node)
		}
	}
}

func TestCheckNodeVersion(t *testing.T) {
	tests := []struct {
		raw     string
		wantErr bool
	}{
		{"v20.11.1", false},
		{"v11.0.0", false},
		{"v10.24.1", true},
		{"garbage", true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			err := checkNodeVersion(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Errorf("checkNodeVersion(%q) err=%v, wantErr=%v", tt.raw, err, tt.wantErr)
			}
		})
	}
}

func TestMergeEnv(t *testing.T) {
	env := mergeEnv([]string{"A=1", "B=2"}, []string{"B=3", "C=4"})
	want := []string{"A=1", "B=3", "C=4"}
	if len(env) != len(want) {
		t.Fatalf("mergeEnv = %v, want %v", env, want)
	}
	for i := range want {
		if env[i] != want[i] {
			t.Errorf("env[%d] = %s, want %s", i, env[i], want[i])
		}
	}
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported on windows")
	}
	path := filepath.Join(t.TempDir(), "entry")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRun_ExecPropagatesExitCodeAndConfig(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out")
	entry := writeScript(t, `printf '%s' "$1" > "`+out+`"
printf '%s' "$DEVLINK_CLI_HOME" >> "`+out+`.env"
exit 3
`)

	var stdout bytes.Buffer
	l := &Launcher{Stdout: &stdout, Env: []string{"DEVLINK_CLI_HOME=/tmp/home"}}
	code, err := l.Run(context.Background(), entry, map[string]any{"type": "project", "force": true})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if code != 3 {
		t.Errorf("exit code = %d, want 3", code)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	var cfg map[string]any
	if err := json.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("child received non-JSON config %q: %v", data, err)
	}
	if cfg["type"] != "project" || cfg["force"] != true {
		t.Errorf("unexpected config %v", cfg)
	}

	env, _ := os.ReadFile(out + ".env")
	if string(env) != "/tmp/home" {
		t.Errorf("DEVLINK_CLI_HOME = %q, want /tmp/home", env)
	}
}

func TestRun_Success(t *testing.T) {
	entry := writeScript(t, "exit 0\n")
	code, err := (&Launcher{}).Run(context.Background(), entry, nil)
	if err != nil || code != 0 {
		t.Fatalf("Run = %d, %v; want 0, nil", code, err)
	}
}

func TestRun_SpawnFailures(t *testing.T) {
	dir := t.TempDir()
	notExec := filepath.Join(dir, "plain")
	if err := os.WriteFile(notExec, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		l    *Launcher
		path string
	}{
		{"missing entry", &Launcher{}, filepath.Join(dir, "absent")},
		{"directory entry", &Launcher{}, dir},
		{"node missing", &Launcher{Runtime: &NodeRuntime{LookPath: func(string) (string, error) {
			return "", exec.ErrNotFound
		}}}, filepath.Join(dir, "index.js")},
	}
	if runtime.GOOS != "windows" && os.Geteuid() != 0 {
		tests = append(tests, struct {
			name string
			l    *Launcher
			path string
		}{"not executable", &Launcher{}, notExec})
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := tt.l.Run(context.Background(), tt.path, map[string]any{})
			if !errors.Is(err, ErrSpawnFailed) {
				t.Fatalf("expected ErrSpawnFailed, got %v", err)
			}
			if code != SpawnFailureCode {
				t.Errorf("code = %d, want %d", code, SpawnFailureCode)
			}
		})
	}
}

func requireNode(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("node"); err != nil {
		t.Skip("Node.js not available, skipping")
	}
}

func TestNodeRuntime_CommonJS(t *testing.T) {
	requireNode(t)
	dir := t.TempDir()
	out := filepath.Join(dir, "out.json")
	entry := filepath.Join(dir, "index.js")
	src := `module.exports.default = function init(cfg) {
  require('fs').writeFileSync(` + jsString(out) + `, JSON.stringify(cfg));
  process.exitCode = 4;
};
`
	if err := os.WriteFile(entry, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	code, err := (&Launcher{}).Run(context.Background(), entry, map[string]any{"cliHome": "/x"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if code != 4 {
		t.Errorf("exit code = %d, want 4", code)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"cliHome":"/x"}` {
		t.Errorf("entry received %s", data)
	}
}

func TestNodeRuntime_ESModule(t *testing.T) {
	requireNode(t)
	if _, err := CheckNode(context.Background()); err != nil {
		t.Skip(err)
	}
	dir := t.TempDir()
	entry := filepath.Join(dir, "index.mjs")
	if err := os.WriteFile(entry, []byte("export default (cfg) => { if (cfg.n !== 2) process.exit(9); };\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	code, err := (&Launcher{}).Run(context.Background(), entry, map[string]any{"n": 2})
	if err != nil || code != 0 {
		t.Fatalf("Run = %d, %v; want 0, nil", code, err)
	}
}

func TestNodeRuntime_NoDefaultExport(t *testing.T) {
	requireNode(t)
	dir := t.TempDir()
	entry := filepath.Join(dir, "index.js")
	if err := os.WriteFile(entry, []byte("module.exports = { notAFunction: true };\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var stderr bytes.Buffer
	code, err := (&Launcher{Stderr: &stderr}).Run(context.Background(), entry, map[string]any{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if !bytes.Contains(stderr.Bytes(), []byte("does not export a function")) {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
