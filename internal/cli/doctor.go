package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/devlink-labs/devlink/internal/branding"
	"github.com/devlink-labs/devlink/internal/launcher"
	"github.com/devlink-labs/devlink/internal/userdata"
)

// doctorTimeout bounds each network or subprocess probe.
const doctorTimeout = 15 * time.Second

func newDoctorCmd(a *app) *cobra.Command {
	var fix bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Health check for the " + branding.DisplayName() + " installation",
		Long: `Run diagnostic checks: the Node.js runtime, the CLI home layout and the
configured registry.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			failed := false

			if !a.checkRuntime(cmd.Context(), out) {
				failed = true
			}
			fmt.Fprintln(out)
			if err := userdata.CheckHome(out, a.cliHome, fix); err != nil {
				return err
			}
			fmt.Fprintln(out)
			if !a.checkRegistry(cmd.Context(), out) {
				failed = true
			}

			if failed {
				return fmt.Errorf("doctor found problems")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&fix, "fix", false, "Create missing directories")
	return cmd
}

func (a *app) checkRuntime(ctx context.Context, w io.Writer) bool {
	fmt.Fprintln(w, "Runtime check:")
	ctx, cancel := context.WithTimeout(ctx, doctorTimeout)
	defer cancel()

	version, err := launcher.CheckNode(ctx)
	if err != nil {
		fmt.Fprintf(w, "  [FAIL] node: %v\n", err)
		return false
	}
	fmt.Fprintf(w, "  [ OK ] node %s (>= %s)\n", version, launcher.MinNodeVersion)
	return true
}

func (a *app) checkRegistry(ctx context.Context, w io.Writer) bool {
	fmt.Fprintln(w, "Registry check:")
	ctx, cancel := context.WithTimeout(ctx, doctorTimeout)
	defer cancel()

	client := a.client()
	fmt.Fprintf(w, "  [INFO] %s (%s)\n", client.BaseURL(), a.cfg.Registry)
	latest, err := client.FetchLatestTag(ctx, branding.NPMName())
	if err != nil {
		fmt.Fprintf(w, "  [FAIL] %s: %v\n", branding.NPMName(), err)
		return false
	}
	fmt.Fprintf(w, "  [ OK ] %s@%s is reachable\n", branding.NPMName(), latest)
	return true
}
