package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/devlink-labs/devlink/internal/config"
	"github.com/devlink-labs/devlink/internal/logging"
	"github.com/devlink-labs/devlink/internal/userdata"
)

func newSettingsCmd(a *app) *cobra.Command {
	var (
		show  bool
		reset bool
		set   []string
	)

	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change user settings",
		Long: `Read and write settings stored in setting.json under the CLI home.

Known keys: ` + strings.Join(config.Keys(), ", ") + `

  settings --show
  settings --set registry=taobao --set printLogo=true
  settings --clear`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case reset:
				removed, err := config.ClearSettings(a.cliHome)
				if err != nil {
					return err
				}
				if removed {
					logging.Success(a.logger, "settings cleared", "file", userdata.SettingsPath(a.cliHome))
				} else {
					logging.Success(a.logger, "no settings to clear")
				}
				return nil
			case len(set) > 0:
				for _, pair := range set {
					key, value, ok := strings.Cut(pair, "=")
					if !ok {
						return fmt.Errorf("expected key=value, got %q", pair)
					}
					if err := config.SaveSettings(a.cliHome, strings.TrimSpace(key), strings.TrimSpace(value)); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, value)
				}
				return nil
			case show:
				printSettings(cmd, a.cfg)
				return nil
			}
			return cmd.Help()
		},
	}
	cmd.Flags().BoolVarP(&show, "show", "s", false, "Show the effective settings")
	cmd.Flags().BoolVarP(&reset, "clear", "c", false, "Remove all saved settings")
	cmd.Flags().StringArrayVar(&set, "set", nil, "Set a value (key=value, repeatable)")
	cmd.MarkFlagsMutuallyExclusive("show", "clear", "set")
	return cmd
}

func printSettings(cmd *cobra.Command, cfg config.Config) {
	out := cmd.OutOrStdout()
	settings := cfg.Settings()
	fmt.Fprintf(out, "%-20s %s\n", "cliHome", cfg.CLIHome)
	for _, key := range config.Keys() {
		fmt.Fprintf(out, "%-20s %v\n", key, settings[key])
	}
	fmt.Fprintf(out, "%-20s %s\n", "registryURL", cfg.RegistryURL)
}
