package cli

import (
	"fmt"
	"io"
	"os"

	"projtrack/dao/query"
	"projtrack/logutils"
	"projtrack/service"
	"projtrack/storage"

	"github.com/spf13/cobra"
)

var (
	backupOut string
	backupIn  string
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Export or restore the project snapshot",
}

var backupExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write every project with its tasks and contacts as JSON",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := query.Open(cfg)
		if err != nil {
			return err
		}
		defer query.Close(db)

		snap, err := service.ExportSnapshot(cmd.Context(), db)
		if err != nil {
			return err
		}
		data, err := service.MarshalSnapshot(snap)
		if err != nil {
			return err
		}
		if backupOut == "" || backupOut == "-" {
			_, err = cmd.OutOrStdout().Write(append(data, '\n'))
			return err
		}
		if err := os.WriteFile(backupOut, data, 0o600); err != nil {
			return err
		}
		logutils.Log.WithFields(logutils.Fields{"file": backupOut, "projects": snap.ProjectCount}).Info("backup written")
		return nil
	},
}

var backupImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Replace all projects with the contents of a snapshot",
	RunE: func(cmd *cobra.Command, _ []string) error {
		var (
			data []byte
			err  error
		)
		if backupIn == "-" {
			data, err = io.ReadAll(cmd.InOrStdin())
		} else {
			data, err = os.ReadFile(backupIn)
		}
		if err != nil {
			return fmt.Errorf("read snapshot: %w", err)
		}
		plan, err := service.ParseSnapshot(data)
		if err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := query.Open(cfg)
		if err != nil {
			return err
		}
		defer query.Close(db)
		store, err := storage.New(cmd.Context(), cfg)
		if err != nil {
			return err
		}

		res, err := service.Restore(cmd.Context(), db, store, plan)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "restored %d projects, %d assignments, %d contacts\n",
			res.Projects, res.Assignments, res.Contacts)
		return nil
	},
}

func init() {
	backupExportCmd.Flags().StringVar(&backupOut, "out", "", "output file, stdout when empty")
	backupImportCmd.Flags().StringVar(&backupIn, "in", "", "snapshot file, - for stdin")
	_ = backupImportCmd.MarkFlagRequired("in")
	backupCmd.AddCommand(backupExportCmd, backupImportCmd)
}
