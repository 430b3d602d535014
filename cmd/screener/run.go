package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"alfredoptarigan/cv-screener/internal/config"
	"alfredoptarigan/cv-screener/internal/models"
	"alfredoptarigan/cv-screener/internal/services"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Screen one or more batches of CVs",
	Long: `Screen up to four batches of CVs. Each --batch takes options and a path:

  screener run --batch "role=teaching,unit=Engineering,label=Morning:./cvs/morning" \
               --batch "role=research,unit=Economics:./cvs/econ"

Files already stored are reported as duplicates unless --no-dedup is set.`,
	RunE: runRun,
}

var (
	runBatches     []string
	runNoDedup     bool
	runFlatten     bool
	runLabel       string
	runConcurrency int
)

func init() {
	runCmd.Flags().StringArrayVarP(&runBatches, "batch", "b", nil, "Batch as role=R,unit=U[,label=L]:PATH (repeatable, up to 4)")
	runCmd.Flags().BoolVar(&runNoDedup, "no-dedup", false, "Re-score files that are already stored")
	runCmd.Flags().BoolVar(&runFlatten, "flatten", false, "Process every batch as one work list")
	runCmd.Flags().StringVar(&runLabel, "label", "", "Run label used as batch label when --flatten is set")
	runCmd.Flags().IntVar(&runConcurrency, "concurrency", 0, "Files scored in parallel (defaults to SCORING_CONCURRENCY)")

	if err := runCmd.MarkFlagRequired("batch"); err != nil {
		panic(fmt.Sprintf("failed to mark batch flag as required: %v", err))
	}

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, _ []string) error {
	if len(runBatches) > services.MaxBatches {
		return fmt.Errorf("at most %d batches per run, got %d", services.MaxBatches, len(runBatches))
	}

	input := services.RunInput{
		Dedup:   !runNoDedup,
		Flatten: runFlatten,
		Label:   runLabel,
	}
	for _, v := range runBatches {
		flag, err := parseBatchFlag(v)
		if err != nil {
			return err
		}
		batch, err := flag.config()
		if err != nil {
			return err
		}
		input.Batches = append(input.Batches, batch)
	}

	ctx := cmd.Context()
	app, log, err := openApp(ctx, func(cfg *config.Config) {
		if runConcurrency > 0 {
			cfg.Scoring.Concurrency = runConcurrency
		}
	})
	if err != nil {
		return err
	}
	defer app.Close()
	defer log.Sync()

	if !cmd.Flags().Changed("no-dedup") {
		input.Dedup = app.Config.Scoring.Dedup
	}

	out := cmd.OutOrStdout()
	input.Progress = func(done, total int, s models.FileStatus) {
		fmt.Fprintf(out, "[%d/%d] %s\n", done, total, describeStatus(s))
	}

	outcome, err := app.Orchestrator.Run(ctx, input)
	if outcome != nil {
		printSummary(out, outcome)
	}
	if err != nil && ctx.Err() != nil {
		fmt.Fprintln(out, "interrupted: files not started were left pending")
	}
	return err
}

func describeStatus(s models.FileStatus) string {
	switch s.State {
	case models.StateScored:
		return fmt.Sprintf("%s / %s: %s %.2f %s", s.Batch, s.Filename, s.Candidate, s.Composite, s.Band)
	case models.StateDuplicate:
		return fmt.Sprintf("%s / %s: already evaluated", s.Batch, s.Filename)
	case models.StateUnreadable:
		return fmt.Sprintf("%s / %s: no usable text", s.Batch, s.Filename)
	default:
		msg := s.Message
		if s.Category != "" {
			msg = s.Category + ": " + msg
		}
		return fmt.Sprintf("%s / %s: %s (%s)", s.Batch, s.Filename, s.State, msg)
	}
}

func printSummary(w io.Writer, outcome *services.RunOutcome) {
	t := outcome.Totals
	fmt.Fprintln(w, strings.Repeat("-", 40))
	fmt.Fprintf(w, "files:      %d\n", t.Total)
	fmt.Fprintf(w, "processed:  %d\n", t.Processed)
	fmt.Fprintf(w, "skipped:    %d (duplicates %d, unreadable %d)\n", t.Skipped(), t.Duplicates, t.Unreadable)
	fmt.Fprintf(w, "errors:     %d\n", t.Errors)
	fmt.Fprintf(w, "elapsed:    %s\n", outcome.FinishedAt.Sub(outcome.StartedAt).Round(time.Millisecond))
}
