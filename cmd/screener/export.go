package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"alfredoptarigan/cv-screener/internal/repositories"
	"alfredoptarigan/cv-screener/internal/services"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored evaluations as CSV, XLSX or a ZIP of PDF reports",
	RunE:  runExport,
}

var (
	exportFormat string
	exportOutput string
)

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "xlsx", "Export format: csv, xlsx or zip")
	exportCmd.Flags().StringVarP(&exportOutput, "out", "o", "", "Path to output file (required)")

	if err := exportCmd.MarkFlagRequired("out"); err != nil {
		panic(fmt.Sprintf("failed to mark out flag as required: %v", err))
	}

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, _ []string) error {
	switch exportFormat {
	case "csv", "xlsx", "zip":
	default:
		return fmt.Errorf("unknown format %q (want csv, xlsx or zip)", exportFormat)
	}

	app, log, err := openStore()
	if err != nil {
		return err
	}
	defer app.Close()
	defer log.Sync()

	ctx := cmd.Context()
	var buf bytes.Buffer
	var count int

	if exportFormat == "zip" {
		records, err := app.Evaluations.LoadAll(ctx)
		if err != nil {
			return err
		}
		if count, err = services.WriteReportsZip(&buf, records); err != nil {
			return err
		}
	} else {
		records, err := app.Evaluations.List(ctx, repositories.EvaluationFilter{WithoutBlobs: true})
		if err != nil {
			return err
		}
		count = len(records)
		if exportFormat == "csv" {
			err = services.WriteCSV(&buf, records)
		} else {
			err = services.WriteXLSX(&buf, records)
		}
		if err != nil {
			return err
		}
	}
	if count == 0 {
		return fmt.Errorf("nothing to export")
	}

	if dir := filepath.Dir(exportOutput); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(exportOutput, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", exportOutput, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "exported %d records to %s\n", count, exportOutput)
	return nil
}
