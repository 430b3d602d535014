package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/cv-screener/internal/logger"
	"alfredoptarigan/cv-screener/internal/models"
	"alfredoptarigan/cv-screener/internal/repositories"
	"alfredoptarigan/cv-screener/internal/services"
)

type EvaluationHandler struct {
	evalRepo repositories.EvaluationRepository
	pool     services.TalentPool
	log      *logger.Logger
}

func NewEvaluationHandler(evalRepo repositories.EvaluationRepository, pool services.TalentPool, log *logger.Logger) *EvaluationHandler {
	if pool == nil {
		pool = services.NewDisabledTalentPool()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &EvaluationHandler{evalRepo: evalRepo, pool: pool, log: log}
}

// HandleList supports comma separated unit, band and role filters.
func (h *EvaluationHandler) HandleList(c *fiber.Ctx) error {
	filter := repositories.EvaluationFilter{
		Units:        splitQuery(c.Query("unit")),
		WithoutBlobs: true,
	}
	for _, b := range splitQuery(c.Query("band")) {
		filter.Bands = append(filter.Bands, models.Band(b))
	}
	for _, r := range splitQuery(c.Query("role")) {
		role, ok := models.ParseRole(r)
		if !ok {
			return &services.ValidationError{Field: "role", Message: "unknown role " + strconv.Quote(r)}
		}
		filter.Roles = append(filter.Roles, role)
	}

	evals, err := h.evalRepo.List(c.UserContext(), filter)
	if err != nil {
		return err
	}

	summaries := make([]models.EvaluationSummary, 0, len(evals))
	for _, e := range evals {
		summaries = append(summaries, toSummary(e))
	}
	return c.JSON(fiber.Map{
		"count":       len(summaries),
		"evaluations": summaries,
	})
}

func (h *EvaluationHandler) HandleGet(c *fiber.Ctx) error {
	eval, err := h.evalRepo.FindByFingerprint(c.UserContext(), c.Params("fingerprint"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"evaluation": toSummary(*eval),
		"result":     eval.ScoreResult(),
	})
}

func (h *EvaluationHandler) HandleReport(c *fiber.Ctx) error {
	eval, err := h.evalRepo.FindByFingerprint(c.UserContext(), c.Params("fingerprint"))
	if err != nil {
		return err
	}
	if !eval.HasReport() {
		return fiber.NewError(fiber.StatusNotFound, "no report stored for this evaluation")
	}
	c.Attachment(services.ReportFileName(*eval))
	c.Set(fiber.HeaderContentType, "application/pdf")
	return c.Send(eval.ReportPDF)
}

func (h *EvaluationHandler) HandleSimilar(c *fiber.Ctx) error {
	eval, err := h.evalRepo.FindByFingerprint(c.UserContext(), c.Params("fingerprint"))
	if err != nil {
		return err
	}
	limit := c.QueryInt("limit", 5)
	if limit < 1 || limit > 50 {
		return &services.ValidationError{Field: "limit", Message: "must be between 1 and 50"}
	}

	similar, err := h.pool.Similar(c.UserContext(), eval, limit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"fingerprint": eval.Fingerprint,
		"similar":     similar,
	})
}

// HandleClear deletes every stored evaluation. It requires confirm=true.
func (h *EvaluationHandler) HandleClear(c *fiber.Ctx) error {
	if c.Query("confirm") != "true" {
		return &services.ValidationError{Field: "confirm", Message: "pass confirm=true to delete every evaluation"}
	}
	if err := h.evalRepo.Clear(c.UserContext()); err != nil {
		return err
	}
	if err := h.pool.Reset(c.UserContext()); err != nil {
		h.log.Warn("failed to reset talent pool", "error", err)
	}
	h.log.Info("evaluations cleared")
	return c.SendStatus(fiber.StatusNoContent)
}

func toSummary(e models.Evaluation) models.EvaluationSummary {
	return models.EvaluationSummary{
		Fingerprint:    e.Fingerprint,
		EvaluatedAt:    e.EvaluatedAt.UTC().Format(time.RFC3339),
		BatchLabel:     e.BatchLabel,
		Filename:       e.Filename,
		CandidateName:  e.CandidateName,
		Unit:           e.Unit,
		Role:           e.Role,
		CompositeScore: e.CompositeScore,
		Band:           e.Band,
		FitLevel:       e.FitLevel,
		Summary:        e.Summary,
		HasReport:      e.HasReport(),
	}
}

func splitQuery(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
