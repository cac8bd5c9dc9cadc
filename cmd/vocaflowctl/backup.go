package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"vocaflow/internal/service"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write every account, classroom and conversation to a JSON file",
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		if output == "" {
			output = fmt.Sprintf("backup_%s.json", time.Now().Format("20060102_150405"))
		}

		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		if err := service.NewBackupService(e.db, e.log).ExportToFile(output); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Backup written to %s\n", output)
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Restore a JSON backup",
	RunE: func(cmd *cobra.Command, args []string) error {
		input, _ := cmd.Flags().GetString("input")
		force, _ := cmd.Flags().GetBool("force")

		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		err = service.NewBackupService(e.db, e.log).Import(input, force)
		if errors.Is(err, service.ErrDatabaseNotEmpty) {
			return fmt.Errorf("%w (pass --force to replace existing data)", err)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %s\n", input)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringP("output", "o", "", "Output file (default: backup_YYYYMMDD_HHMMSS.json)")

	importCmd.Flags().StringP("input", "i", "", "Backup file to restore")
	importCmd.Flags().Bool("force", false, "Delete existing accounts before importing")
	_ = importCmd.MarkFlagRequired("input")
}
