package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every stored evaluation",
	RunE:  runClear,
}

var clearYes bool

func init() {
	clearCmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "Confirm deleting every evaluation")
	rootCmd.AddCommand(clearCmd)
}

func runClear(cmd *cobra.Command, _ []string) error {
	if !clearYes {
		return fmt.Errorf("refusing to clear the record store without --yes")
	}

	app, log, err := openStore()
	if err != nil {
		return err
	}
	defer app.Close()
	defer log.Sync()

	n, err := app.Evaluations.Count(cmd.Context())
	if err != nil {
		return err
	}
	if err := app.Evaluations.Clear(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted %d evaluations\n", n)
	if app.Config.Qdrant.Enabled() {
		fmt.Fprintln(cmd.OutOrStdout(), "run `screener reindex` to rebuild the talent pool")
	}
	return nil
}
