package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/devlink-labs/devlink/internal/branding"
	"github.com/devlink-labs/devlink/internal/config"
	"github.com/devlink-labs/devlink/internal/installer"
	"github.com/devlink-labs/devlink/internal/logging"
	"github.com/devlink-labs/devlink/internal/npm"
	"github.com/devlink-labs/devlink/internal/platform"
	"github.com/devlink-labs/devlink/internal/store"
	"github.com/devlink-labs/devlink/internal/updater"
	"github.com/devlink-labs/devlink/internal/userdata"
)

// BuildInfo is injected via ldflags at build time.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// updateWait bounds how long exit waits for a background version check.
const updateWait = 2 * time.Second

// app is the state shared by every command of one invocation.
type app struct {
	build  BuildInfo
	debug  bool
	stdout io.Writer
	stderr io.Writer
	getenv func(string) string

	cliHome string
	cfg     config.Config
	logger  *log.Logger

	// exitCode is set by commands that launch a child and must exit with
	// its status without printing an error.
	exitCode int
	// updateDone closes when the background version check finishes.
	updateDone <-chan struct{}
}

func newApp(build BuildInfo) *app {
	return &app{
		build:  build,
		stdout: os.Stdout,
		stderr: os.Stderr,
		getenv: os.Getenv,
		logger: logging.New(os.Stderr, "info"),
	}
}

// skipPrepare lists commands that must work on a broken or missing home.
var skipPrepare = map[string]bool{
	"version":    true,
	"help":       true,
	"completion": true,
}

// skipUpdateBanner lists commands that manage their own state.
var skipUpdateBanner = map[string]bool{
	"clean":    true,
	"settings": true,
	"update":   true,
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   branding.CLIName(),
		Short: branding.Description(),
		Long: branding.DisplayName() + ` installs registry-hosted packages into a local cache and
runs their entry points. Project initializers and material templates are
fetched on demand, cached under ~/` + branding.HomeDir() + `, and reused offline.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if skipPrepare[cmd.Name()] {
				return nil
			}
			return a.prepare(cmd)
		},
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug logging")

	root.AddCommand(
		newInitCmd(a),
		newMaterialCmd(a),
		newCleanCmd(a),
		newSettingsCmd(a),
		newDoctorCmd(a),
		newUpdateCmd(a),
		newVersionCmd(a),
	)
	return root
}

// prepare loads the environment and configuration every command relies on.
func (a *app) prepare(cmd *cobra.Command) error {
	if path, err := userdata.DotEnvPath(); err == nil {
		if err := config.LoadDotEnv(path); err != nil {
			a.logger.Warn("ignoring dotenv file", "path", path, "err", err)
		}
	}

	cliHome, err := userdata.GetCLIHomeWith(a.getenv)
	if err != nil {
		return fmt.Errorf("resolving CLI home: %w", err)
	}
	a.cliHome = cliHome

	cfg, err := config.Load(cliHome)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := cfg.LogLevel
	if a.debug {
		level = "debug"
	}
	a.logger = logging.New(a.stderr, level)
	a.logger.Debug("configuration", "cliHome", cliHome, "registry", cfg.RegistryURL, "lockTimeout", cfg.LockTimeout)

	if cfg.PrintLogo {
		printLogo(a.stdout, a.build.Version)
	}
	if platform.IsRoot() {
		a.logger.Warn("avoid running " + branding.CLIName() + " as root")
	}

	created, err := userdata.EnsureLayout(cliHome)
	if err != nil {
		return fmt.Errorf("preparing %s: %w", cliHome, err)
	}
	for _, dir := range created {
		a.logger.Debug("created", "dir", dir)
	}

	if !skipUpdateBanner[cmd.Name()] {
		a.updateDone = a.updater().CheckAndPrintBanner(cmd.Context(), a.stderr, cliHome)
	}
	return nil
}

func (a *app) client() *npm.Client {
	return npm.NewClient(a.cfg.RegistryURL)
}

func (a *app) store() *store.Store {
	return store.New(a.cliHome)
}

func (a *app) installer() *installer.Installer {
	opts := []installer.Option{
		installer.WithLogger(a.logger),
		installer.WithLockTimeout(a.cfg.LockTimeout),
	}
	if a.cfg.InstallDependencies {
		opts = append(opts, installer.WithDependencyInstaller(installer.NewNPMDependencies()))
	}
	return installer.New(a.client(), a.store(), opts...)
}

func (a *app) updater() *updater.Updater {
	return updater.New(a.build.Version, a.client())
}

// Execute runs the CLI and returns the process exit code.
func Execute(ctx context.Context, build BuildInfo) int {
	a := newApp(build)
	root := newRootCmd(a)

	err := fang.Execute(
		ctx,
		root,
		fang.WithVersion(versionString(build)),
		fang.WithNotifySignal(os.Interrupt),
	)
	a.waitForUpdateCheck(updateWait)
	return a.finish(err)
}

// finish maps a command result to an exit code.
func (a *app) finish(err error) int {
	if err != nil {
		return 1
	}
	return a.exitCode
}

// waitForUpdateCheck gives a running background version check a chance to
// save its result before the process exits.
func (a *app) waitForUpdateCheck(d time.Duration) {
	if a.updateDone == nil {
		return
	}
	select {
	case <-a.updateDone:
	case <-time.After(d):
	}
}
