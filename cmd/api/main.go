package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"alfredoptarigan/cv-screener/internal/bootstrap"
	"alfredoptarigan/cv-screener/internal/config"
	"alfredoptarigan/cv-screener/internal/handlers"
	"alfredoptarigan/cv-screener/internal/logger"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Server.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to initialize services", "error", err)
	}
	defer app.Close()

	if err := app.Storage.EnsureUploadDir(); err != nil {
		log.Fatal("failed to create upload directory", "error", err)
	}

	worker := app.NewWorker(log)
	worker.Start(ctx)
	log.Info("worker started", "concurrency", cfg.Worker.Concurrency)

	server := fiber.New(fiber.Config{
		AppName:      "CV Screener API",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		BodyLimit:    int(cfg.Storage.MaxFileSize) * 20,
		ErrorHandler: handlers.ErrorHandler,
	})

	server.Use(recover.New())
	server.Use(fiberlogger.New(fiberlogger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))
	server.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	handlers.RegisterRoutes(server.Group("/api/v1"), handlers.Handlers{
		Run: handlers.NewRunHandler(
			app.Runs,
			app.Documents,
			app.Storage,
			worker,
			cfg.Scoring.Units,
			cfg.Scoring.Dedup,
			log.With("component", "run_handler"),
		),
		Evaluation: handlers.NewEvaluationHandler(app.Evaluations, app.TalentPool, log.With("component", "evaluation_handler")),
		Export:     handlers.NewExportHandler(app.Evaluations, log.With("component", "export_handler")),
		Dashboard:  handlers.NewDashboardHandler(app.Evaluations, cfg.Scoring.Units),
	})

	server.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "CV Screener API",
			"version": "1.0.0",
			"endpoints": []string{
				"POST /api/v1/runs",
				"GET /api/v1/runs/:id",
				"GET /api/v1/evaluations",
				"GET /api/v1/exports/evaluations.xlsx",
				"GET /api/v1/dashboard",
				"GET /api/v1/catalog",
			},
		})
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info("shutting down server")
		cancel()
		worker.Stop()
		if err := server.Shutdown(); err != nil {
			log.Error("server forced to shutdown", "error", err)
		}
	}()

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Info("server starting", "addr", addr, "env", cfg.Server.Env)
	if err := server.Listen(addr); err != nil {
		log.Fatal("failed to start server", "error", err)
	}
}
