package main

import (
	"SlackScheduler/db"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(false)
		if err != nil {
			return err
		}

		conn, err := openDB(cfg)
		if err != nil {
			return err
		}
		defer db.Close(conn)

		if err := db.Migrate(conn); err != nil {
			return err
		}
		log.Info("Database schema is up to date")
		return nil
	},
}
