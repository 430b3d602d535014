package handlers

import (
	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/cv-screener/internal/models"
	"alfredoptarigan/cv-screener/internal/repositories"
	"alfredoptarigan/cv-screener/internal/services"
)

type DashboardHandler struct {
	evalRepo repositories.EvaluationRepository
	units    []string
}

func NewDashboardHandler(evalRepo repositories.EvaluationRepository, units []string) *DashboardHandler {
	return &DashboardHandler{evalRepo: evalRepo, units: units}
}

func (h *DashboardHandler) HandleDashboard(c *fiber.Ctx) error {
	filter := repositories.EvaluationFilter{Units: splitQuery(c.Query("unit")), WithoutBlobs: true}
	evals, err := h.evalRepo.List(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return c.JSON(services.BuildDashboard(evals))
}

func (h *DashboardHandler) HandleCatalog(c *fiber.Ctx) error {
	resp := models.CatalogResponse{
		Units: h.units,
		Bands: models.Bands,
	}
	for _, r := range models.Roles {
		resp.Roles = append(resp.Roles, models.RoleOption{Code: r, Label: r.Label()})
	}
	return c.JSON(resp)
}
