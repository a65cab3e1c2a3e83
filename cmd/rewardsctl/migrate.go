package main

import (
	"github.com/spf13/cobra"

	"github.com/aimd54/campus-rewards/internal/repository"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}

		version, err := repository.Migrate(cfg.Database.Postgres.URL())
		if err != nil {
			return err
		}
		log.Info().Uint("version", version).Msg("Database migrated")
		cmd.Printf("schema version %d\n", version)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
