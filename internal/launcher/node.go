package launcher

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// MinNodeVersion is the oldest Node.js the bootstrap supports.
const MinNodeVersion = "11.0.0"

// nodeBootstrap loads the entry inside the child and calls its default export
// with the parsed config. CommonJS entries are required; ES modules fall back
// to a dynamic import.
const nodeBootstrap = `
const { pathToFileURL } = require('url');
const [entry, raw] = process.argv.slice(1);
const load = async () => {
  if (entry.endsWith('.mjs')) return import(pathToFileURL(entry).href);
  try {
    return require(entry);
  } catch (err) {
    if (err && err.code === 'ERR_REQUIRE_ESM') return import(pathToFileURL(entry).href);
    throw err;
  }
};
load()
  .then((mod) => {
    let fn = mod && mod.default !== undefined ? mod.default : mod;
    if (fn && typeof fn !== 'function' && typeof fn.default === 'function') fn = fn.default;
    if (typeof fn !== 'function') throw new Error(entry + ' does not export a function');
    return fn(JSON.parse(raw));
  })
  .catch((err) => {
    console.error((err && err.stack) || err);
    process.exit(1);
  });
`

// NodeRuntime runs JavaScript entries through `node -e <bootstrap>`.
type NodeRuntime struct {
	// LookPath finds the node binary; defaults to exec.LookPath.
	LookPath func(string) (string, error)
}

// Command returns `node -e <bootstrap> -- <entry> <config>`.
func (n *NodeRuntime) Command(ctx context.Context, entry string, config []byte) (*exec.Cmd, error) {
	nodeBin, err := n.node()
	if err != nil {
		return nil, err
	}
	return exec.CommandContext(ctx, nodeBin, "-e", nodeBootstrap, "--", entry, string(config)), nil
}

func (n *NodeRuntime) node() (string, error) {
	lookPath := n.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	bin, err := lookPath("node")
	if err != nil {
		return "", fmt.Errorf("node runtime requires Node.js: %w", err)
	}
	return bin, nil
}

// CheckNode runs `node --version` and checks it against MinNodeVersion.
// It returns the version reported by node.
func CheckNode(ctx context.Context) (string, error) {
	return checkNode(ctx, &NodeRuntime{})
}

func checkNode(ctx context.Context, n *NodeRuntime) (string, error) {
	bin, err := n.node()
	if err != nil {
		return "", err
	}
	out, err := exec.CommandContext(ctx, bin, "--version").Output()
	if err != nil {
		return "", fmt.Errorf("running node --version: %w", err)
	}
	raw := strings.TrimSpace(string(out))
	if err := checkNodeVersion(raw); err != nil {
		return raw, err
	}
	return raw, nil
}

func checkNodeVersion(raw string) error {
	v, err := semver.NewVersion(strings.TrimPrefix(raw, "v"))
	if err != nil {
		return fmt.Errorf("parsing node version %q: %w", raw, err)
	}
	if v.LessThan(semver.MustParse(MinNodeVersion)) {
		return fmt.Errorf("node %s is too old: %s or newer is required", raw, MinNodeVersion)
	}
	return nil
}
