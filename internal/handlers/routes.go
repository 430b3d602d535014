package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Run        *RunHandler
	Evaluation *EvaluationHandler
	Export     *ExportHandler
	Dashboard  *DashboardHandler
}

// RegisterRoutes mounts every endpoint under the given router.
func RegisterRoutes(api fiber.Router, h Handlers) {
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now(),
		})
	})

	api.Post("/runs", h.Run.HandleCreateRun)
	api.Get("/runs/:id", h.Run.HandleGetRun)

	api.Get("/evaluations", h.Evaluation.HandleList)
	api.Delete("/evaluations", h.Evaluation.HandleClear)
	api.Get("/evaluations/:fingerprint", h.Evaluation.HandleGet)
	api.Get("/evaluations/:fingerprint/report", h.Evaluation.HandleReport)
	api.Get("/evaluations/:fingerprint/similar", h.Evaluation.HandleSimilar)

	api.Get("/exports/evaluations.csv", h.Export.HandleCSV)
	api.Get("/exports/evaluations.xlsx", h.Export.HandleXLSX)
	api.Get("/exports/reports.zip", h.Export.HandleReportsZip)
	api.Post("/imports/history", h.Export.HandleImportHistory)

	api.Get("/dashboard", h.Dashboard.HandleDashboard)
	api.Get("/catalog", h.Dashboard.HandleCatalog)
}
