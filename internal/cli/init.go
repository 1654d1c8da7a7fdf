package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/devlink-labs/devlink/internal/branding"
	"github.com/devlink-labs/devlink/internal/launcher"
	"github.com/devlink-labs/devlink/internal/npm"
	"github.com/devlink-labs/devlink/internal/store"
	"github.com/devlink-labs/devlink/internal/userdata"
)

func newInitCmd(a *app) *cobra.Command {
	var (
		packagePath    string
		packageVersion string
		force          bool
	)

	cmd := &cobra.Command{
		Use:   "init [type]",
		Short: "Initialize a project with the registry initializer",
		Long: `Install (or reuse) the ` + branding.InitPackage() + ` initializer and run it.

The initializer is cached under ~/` + branding.HomeDir() + `/dependencies. Use --packagePath
to run a local checkout instead; the registry and the cache are then skipped.

  ` + branding.CLIName() + ` init                        # latest initializer
  ` + branding.CLIName() + ` init project --force        # pass a type and overwrite
  ` + branding.CLIName() + ` init --packageVersion ^1.2  # pin a range`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			extra := map[string]any{"force": force}
			if len(args) == 1 {
				extra["type"] = args[0]
			}
			return a.runPackage(cmd.Context(), branding.InitPackage(), packageVersion, packagePath, extra)
		},
	}
	cmd.Flags().StringVar(&packagePath, "packagePath", "", "Run the initializer from a local path")
	cmd.Flags().StringVar(&packageVersion, "packageVersion", npm.LatestTag, "Initializer version, range, or dist-tag")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite files in the current directory (use with care)")
	return cmd
}

// runPackage ensures a package is installed and launches its entry point
// with the CLI settings merged with extra. The child's exit status becomes
// the process exit status.
func (a *app) runPackage(ctx context.Context, name, constraint, localPath string, extra map[string]any) error {
	var (
		d   store.Descriptor
		err error
	)
	if localPath != "" {
		d, err = store.LocalDescriptor(name, localPath)
	} else {
		d, err = store.NewDescriptor(name, constraint, userdata.DependenciesPath(a.cliHome))
	}
	if err != nil {
		return err
	}

	pkg, err := a.installer().EnsureInstalled(ctx, d)
	if err != nil {
		return err
	}
	a.logger.Debug("launching", "package", pkg.Descriptor.String(), "entry", pkg.RootFilePath)

	l := &launcher.Launcher{
		Env: []string{branding.EnvVar("cli_home") + "=" + a.cliHome},
	}
	code, err := l.Run(ctx, pkg.RootFilePath, a.launchConfig(extra))
	if err != nil {
		return fmt.Errorf("running %s: %w", name, err)
	}
	a.logger.Debug("entry point exited", "code", code)
	a.exitCode = code
	return nil
}

// launchConfig is the settings map forwarded to an entry point.
func (a *app) launchConfig(extra map[string]any) map[string]any {
	cfg := a.cfg.Settings()
	cfg["cliHome"] = a.cliHome
	for k, v := range extra {
		cfg[k] = v
	}
	return cfg
}
