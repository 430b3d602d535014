package handlers

import (
	"bytes"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/cv-screener/internal/logger"
	"alfredoptarigan/cv-screener/internal/repositories"
	"alfredoptarigan/cv-screener/internal/services"
)

type ExportHandler struct {
	evalRepo repositories.EvaluationRepository
	log      *logger.Logger
}

func NewExportHandler(evalRepo repositories.EvaluationRepository, log *logger.Logger) *ExportHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &ExportHandler{evalRepo: evalRepo, log: log}
}

func (h *ExportHandler) HandleCSV(c *fiber.Ctx) error {
	evals, err := h.evalRepo.List(c.UserContext(), repositories.EvaluationFilter{WithoutBlobs: true})
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := services.WriteCSV(&buf, evals); err != nil {
		return err
	}
	c.Attachment("evaluations.csv")
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	return c.Send(buf.Bytes())
}

func (h *ExportHandler) HandleXLSX(c *fiber.Ctx) error {
	evals, err := h.evalRepo.List(c.UserContext(), repositories.EvaluationFilter{WithoutBlobs: true})
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := services.WriteXLSX(&buf, evals); err != nil {
		return err
	}
	c.Attachment("evaluations.xlsx")
	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	return c.Send(buf.Bytes())
}

func (h *ExportHandler) HandleReportsZip(c *fiber.Ctx) error {
	evals, err := h.evalRepo.LoadAll(c.UserContext())
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	n, err := services.WriteReportsZip(&buf, evals)
	if err != nil {
		return err
	}
	if n == 0 {
		return fiber.NewError(fiber.StatusNotFound, "no stored reports to export")
	}
	c.Attachment("reports.zip")
	c.Set(fiber.HeaderContentType, "application/zip")
	return c.Send(buf.Bytes())
}

// HandleImportHistory upserts every row of an uploaded history workbook.
func (h *ExportHandler) HandleImportHistory(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return &services.ValidationError{Field: "file", Message: "an .xlsx file is required"}
	}
	src, err := file.Open()
	if err != nil {
		return fmt.Errorf("failed to open upload: %w", err)
	}
	defer src.Close()

	records, err := services.ReadHistoryXLSX(src)
	if err != nil {
		return &services.ValidationError{Field: "file", Message: err.Error()}
	}
	for i := range records {
		if err := h.evalRepo.Upsert(c.UserContext(), &records[i]); err != nil {
			return err
		}
	}
	h.log.Info("history imported", "rows", len(records))
	return c.JSON(fiber.Map{"imported": len(records)})
}
