package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"writ_docket_go/config"
	"writ_docket_go/db"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the docket tables and indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(func(cfg *config.Config) error {
				if err := db.AutoMigrate(db.DB); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Migrated %s database\n", db.DB.Dialector.Name())
				return nil
			})
		},
	}
}
