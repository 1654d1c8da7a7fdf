package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/devlink-labs/devlink/internal/branding"
	"github.com/devlink-labs/devlink/internal/updater"
)

const updateTimeout = 30 * time.Second

func newUpdateCmd(a *app) *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:     "update",
		Aliases: []string{"self-update"},
		Short:   "Check for a newer " + branding.CLIName() + " release",
		Long: `Query the registry for the newest release compatible with the running
version and print the command that installs it.

  ` + branding.CLIName() + ` update --check   # check only, exit 0 either way`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			u := a.updater()
			if !u.Enabled() {
				fmt.Fprintf(out, "Running a %s build; update checks are disabled.\n", a.build.Version)
				return nil
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), updateTimeout)
			defer cancel()

			fmt.Fprintln(cmd.ErrOrStderr(), "Checking for updates...")
			result, err := u.Check(ctx)
			if err != nil {
				return err
			}
			// Keep the startup banner in sync with what we just learned.
			if err := updater.SaveCache(a.cliHome, result); err != nil {
				a.logger.Debug("saving version cache", "err", err)
			}

			if !result.UpdateAvailable {
				fmt.Fprintf(out, "Already up to date (%s).\n", result.CurrentVersion)
				return nil
			}
			u.PrintUpdateBanner(out, result.CurrentVersion, result.LatestVersion)
			if check {
				return nil
			}
			fmt.Fprintf(out, "%s is distributed through the registry; run the command above to upgrade.\n", branding.DisplayName())
			return nil
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "Only check for updates")
	return cmd
}
