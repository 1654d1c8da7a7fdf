package cli

import (
	"github.com/spf13/cobra"

	"github.com/devlink-labs/devlink/internal/branding"
	"github.com/devlink-labs/devlink/internal/logging"
	"github.com/devlink-labs/devlink/internal/material"
	"github.com/devlink-labs/devlink/internal/npm"
)

func newMaterialCmd(a *app) *cobra.Command {
	var opts material.Options

	cmd := &cobra.Command{
		Use:   "material <package>",
		Short: "Create a project from a material template",
		Long: `Install (or reuse) a material package and copy its material/ directory into
the target directory.

The target must be empty apart from node_modules, .git and .DS_Store unless
--force is given, which empties it first.

  ` + branding.CLIName() + ` material @acme/react-starter
  ` + branding.CLIName() + ` material @acme/react-starter --target app --install-command "npm install"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Name = args[0]
			s := material.NewScaffolder(a.cliHome, a.installer(), a.logger)
			s.Stdout = cmd.OutOrStdout()
			s.Stderr = cmd.ErrOrStderr()

			res, err := s.Scaffold(cmd.Context(), opts)
			if err != nil {
				return err
			}
			logging.Success(a.logger, "material ready", "package", res.Package.Descriptor.String(), "target", res.Target)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.Version, "version", npm.LatestTag, "Material version, range, or dist-tag")
	cmd.Flags().StringVar(&opts.Target, "target", "", "Directory to create the project in (default: current directory)")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "Empty the target directory first")
	cmd.Flags().StringVar(&opts.InstallCommand, "install-command", "", "Command to install dependencies in the target")
	cmd.Flags().StringVar(&opts.StartCommand, "start-command", "", "Command to start the project in the target")
	return cmd
}
