package cmd

import (
	"github.com/AzielCF/az-juris/core/config"
	"github.com/AzielCF/az-juris/core/database"
	"github.com/AzielCF/az-juris/infrastructure/repository"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema and exit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg := config.Global

		db, err := database.NewDatabase(cfg)
		if err != nil {
			return err
		}
		defer closeDB(db)

		logrus.Infof("[MIGRATION] Migrating %s database (cases table: %t)", cfg.Database.Driver, cfg.Database.ManageCases)
		if err := repository.Migrate(cmd.Context(), db, cfg.Database.ManageCases); err != nil {
			return err
		}
		logrus.Info("[MIGRATION] Done")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
