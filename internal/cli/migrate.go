package cli

import (
	"github.com/spf13/cobra"

	"github.com/pyramid-aftercare/portal/internal/infrastructure/db/postgres"
)

// migrateCmd represents the migrate command.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all up migrations to the PostgreSQL profile store",
	RunE: func(cmd *cobra.Command, _ []string) error {
		b := newBackends(a.cfg, a.log)
		defer b.close()

		db, err := b.postgres(cmd.Context())
		if err != nil {
			return err
		}
		if err := postgres.MigrateUp(db); err != nil {
			return err
		}
		a.log.Info().Msg("migrations applied")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
}
