package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"alfredoptarigan/cv-screener/internal/services"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the Gemini models available to this key and the one scoring would use",
	RunE:  runModels,
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}

func runModels(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	app, log, err := openApp(ctx, nil)
	if err != nil {
		return err
	}
	defer app.Close()
	defer log.Sync()

	available, err := app.Gemini.ListModels(ctx)
	if err != nil {
		return err
	}
	selected, err := app.Selector.Select(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, m := range available {
		if !slices.Contains(m.Actions, services.CapabilityGenerateContent) {
			continue
		}
		marker := " "
		if m.Name == selected {
			marker = "*"
		}
		fmt.Fprintf(out, "%s %s\n", marker, m.Name)
	}
	fmt.Fprintf(out, "scoring model: %s\n", selected)
	return nil
}
