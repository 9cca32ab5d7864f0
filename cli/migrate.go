package cli

import (
	"projtrack/dao/query"
	"projtrack/logutils"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the database schema",
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := query.Open(cfg)
		if err != nil {
			return err
		}
		defer query.Close(db)

		if err := query.Migrate(db); err != nil {
			return err
		}
		logutils.Log.Info("migration complete")
		return nil
	},
}
