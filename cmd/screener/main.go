// Command screener runs batch CV screening against the local record store.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"alfredoptarigan/cv-screener/internal/bootstrap"
	"alfredoptarigan/cv-screener/internal/config"
	"alfredoptarigan/cv-screener/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:           "screener",
	Short:         "Batch CV screening",
	Long:          "Screener extracts text from PDF and Word CVs, scores them against a role rubric with Gemini and keeps one record per unique file.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var logMode string

func init() {
	rootCmd.PersistentFlags().StringVar(&logMode, "log", "", "Logger mode: development, production or test (defaults to ENV)")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) (*logger.Logger, error) {
	mode := logMode
	if mode == "" {
		mode = cfg.Server.Env
	}
	return logger.New(mode)
}

// openStore loads configuration and opens the record store without any
// model credentials.
func openStore() (*bootstrap.App, *logger.Logger, error) {
	cfg := config.Load()
	log, err := newLogger(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}
	app, err := bootstrap.OpenStore(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return app, log, nil
}

// openApp is openStore plus the model client, talent pool and orchestrator.
// tweak runs before validation so flags can override the environment.
func openApp(ctx context.Context, tweak func(*config.Config)) (*bootstrap.App, *logger.Logger, error) {
	cfg := config.Load()
	if tweak != nil {
		tweak(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}
	app, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return app, log, nil
}
