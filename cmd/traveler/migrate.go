package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zulandar/traveler/internal/db"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the SQL tables",
		Long:  "Creates the profile, article, delivery, session and run journal tables. Safe to run multiple times.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()
			if _, err := a.requireSQL(); err != nil {
				return err
			}
			if err := db.AutoMigrate(a.db); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Migrated %d tables (%s)\n", len(db.AllModels()), a.cfg.Database.Driver)
			return nil
		},
	}
}
