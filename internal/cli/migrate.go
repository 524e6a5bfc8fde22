package cli

import (
	"fmt"

	"github.com/Rrens/flora-expert/internal/repository"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the local store schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := repository.Migrate(cmd.Context(), cfg.Store); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Store (%s) is up to date.\n", cfg.Store.Driver)
		return nil
	},
}
