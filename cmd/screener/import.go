package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"alfredoptarigan/cv-screener/internal/services"
)

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Load a history workbook into the record store",
	Long:  "Upserts every row of an .xlsx history workbook, including workbooks written by the legacy screening spreadsheet.",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", args[0], err)
	}
	defer f.Close()

	records, err := services.ReadHistoryXLSX(f)
	if err != nil {
		return err
	}

	app, log, err := openStore()
	if err != nil {
		return err
	}
	defer app.Close()
	defer log.Sync()

	for i := range records {
		if err := app.Evaluations.Upsert(cmd.Context(), &records[i]); err != nil {
			return err
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d records\n", len(records))
	return nil
}
