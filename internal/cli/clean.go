package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/devlink-labs/devlink/internal/logging"
	"github.com/devlink-labs/devlink/internal/store"
	"github.com/devlink-labs/devlink/internal/userdata"
)

func newCleanCmd(a *app) *cobra.Command {
	var all, dep bool

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Empty the package cache",
		Long: `Empty the cache. --dep removes installed packages only; --all (the default)
empties the whole CLI home, settings included.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, dir := store.ScopeAll, a.cliHome
			if dep && !all {
				scope, dir = store.ScopeDependencies, userdata.DependenciesPath(a.cliHome)
			}

			logging.Notice(a.logger, "clearing cache", "scope", scope)
			existed, err := a.store().Clear(scope)
			if err != nil {
				return fmt.Errorf("clearing %s: %w", dir, err)
			}
			if !existed {
				logging.Success(a.logger, "nothing to clear", "dir", dir)
				return nil
			}
			logging.Success(a.logger, "cache cleared", "dir", dir)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "Empty the whole CLI home")
	cmd.Flags().BoolVarP(&dep, "dep", "d", false, "Empty installed dependencies only")
	cmd.MarkFlagsMutuallyExclusive("all", "dep")
	return cmd
}
