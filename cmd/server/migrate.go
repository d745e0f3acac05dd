package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jengzang/pulse-backend-go/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down|version]",
	Short:     "Apply or roll back the database schema",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"up", "down", "version"},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		if err := database.Init(database.Config{Path: cfg.DBPath}); err != nil {
			return errors.Wrap(err, "failed to initialize database")
		}
		defer database.Close()
		db := database.GetDB()

		switch args[0] {
		case "up":
			if err := database.MigrateUp(db); err != nil {
				return err
			}
		case "down":
			if err := database.MigrateDown(db); err != nil {
				return err
			}
		}

		version, dirty, err := database.MigrateVersion(db)
		if err != nil {
			return err
		}
		status := okStyle.Sprint("clean")
		if dirty {
			status = badStyle.Sprint("dirty")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (%s)\n", version, status)
		return nil
	},
}
