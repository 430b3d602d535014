package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the talent pool from stored evaluations",
	RunE:  runReindex,
}

func init() {
	rootCmd.AddCommand(reindexCmd)
}

func runReindex(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	app, log, err := openApp(ctx, nil)
	if err != nil {
		return err
	}
	defer app.Close()
	defer log.Sync()

	if !app.Config.Qdrant.Enabled() {
		return fmt.Errorf("QDRANT_URL is not set")
	}
	if err := app.TalentPool.Reset(ctx); err != nil {
		return err
	}

	records, err := app.Evaluations.LoadAll(ctx)
	if err != nil {
		return err
	}
	failed := 0
	for i := range records {
		if err := app.TalentPool.Index(ctx, &records[i]); err != nil {
			failed++
			log.Warn("failed to index candidate", "fingerprint", records[i].Fingerprint, "error", err)
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "indexed %d of %d candidates\n", len(records)-failed, len(records))
	return nil
}
