package handlers

import (
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"alfredoptarigan/cv-screener/internal/logger"
	"alfredoptarigan/cv-screener/internal/models"
	"alfredoptarigan/cv-screener/internal/repositories"
	"alfredoptarigan/cv-screener/internal/services"
)

type RunEnqueuer interface {
	EnqueueRun(runID uuid.UUID)
}

type RunHandler struct {
	runRepo        repositories.RunRepository
	docRepo        repositories.DocumentRepository
	storageService services.StorageService
	queue          RunEnqueuer
	units          []string
	defaultDedup   bool
	log            *logger.Logger
}

func NewRunHandler(
	runRepo repositories.RunRepository,
	docRepo repositories.DocumentRepository,
	storageService services.StorageService,
	queue RunEnqueuer,
	units []string,
	defaultDedup bool,
	log *logger.Logger,
) *RunHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &RunHandler{
		runRepo:        runRepo,
		docRepo:        docRepo,
		storageService: storageService,
		queue:          queue,
		units:          units,
		defaultDedup:   defaultDedup,
		log:            log,
	}
}

// HandleCreateRun accepts up to four batches as batch{n}_files with
// batch{n}_role, batch{n}_unit and batch{n}_label, queues them and returns 202.
func (h *RunHandler) HandleCreateRun(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "failed to parse multipart form")
	}

	formValue := func(key string) string {
		if v := form.Value[key]; len(v) > 0 {
			return v[0]
		}
		return ""
	}

	dedup := h.defaultDedup
	if v := formValue("dedup"); v != "" {
		if dedup, err = strconv.ParseBool(v); err != nil {
			return &services.ValidationError{Field: "dedup", Message: "must be a boolean"}
		}
	}
	flatten, _ := strconv.ParseBool(formValue("flatten"))

	run := &models.BatchRun{
		ID:      uuid.New(),
		Status:  models.RunQueued,
		Dedup:   dedup,
		Flatten: flatten,
	}

	var specs []models.BatchSpec
	var docs []models.Document
	cleanup := func() {
		for _, d := range docs {
			_ = h.storageService.DeleteFile(d.Filename)
		}
	}

	for n := 1; n <= services.MaxBatches; n++ {
		files := form.File[fmt.Sprintf("batch%d_files", n)]
		if len(files) == 0 {
			continue
		}

		role, ok := models.ParseRole(formValue(fmt.Sprintf("batch%d_role", n)))
		if !ok {
			cleanup()
			return &services.ValidationError{Field: fmt.Sprintf("batch%d_role", n), Message: "unknown role"}
		}
		unit := formValue(fmt.Sprintf("batch%d_unit", n))
		if unit == "" || (len(h.units) > 0 && !slices.Contains(h.units, unit)) {
			cleanup()
			return &services.ValidationError{Field: fmt.Sprintf("batch%d_unit", n), Message: fmt.Sprintf("unknown unit %q", unit)}
		}
		label := formValue(fmt.Sprintf("batch%d_label", n))
		if label == "" {
			label = fmt.Sprintf("Batch %d", n)
		}

		batchIndex := len(specs)
		specs = append(specs, models.BatchSpec{Label: label, Role: role, Unit: unit})

		for pos, file := range files {
			filename, filePath, err := h.storageService.SaveFile(file, run.ID.String())
			if err != nil {
				cleanup()
				return err
			}
			docs = append(docs, models.Document{
				ID:               uuid.New(),
				RunID:            run.ID,
				BatchIndex:       batchIndex,
				Position:         pos,
				Filename:         filename,
				OriginalFileName: file.Filename,
				MediaType:        file.Header.Get(fiber.HeaderContentType),
				FilePath:         filePath,
				CreatedAt:        time.Now(),
			})
		}
	}

	if len(specs) == 0 {
		return &services.ValidationError{Field: "batch1_files", Message: "no files uploaded"}
	}
	run.Batches = datatypes.NewJSONSlice(specs)

	if err := h.runRepo.Create(c.UserContext(), run); err != nil {
		cleanup()
		return err
	}
	if err := h.docRepo.CreateMany(c.UserContext(), docs); err != nil {
		cleanup()
		_ = h.runRepo.UpdateError(c.UserContext(), run.ID, err.Error())
		return err
	}

	h.queue.EnqueueRun(run.ID)
	h.log.Info("run queued", "run_id", run.ID, "batches", len(specs), "files", len(docs))

	return c.Status(fiber.StatusAccepted).JSON(models.RunResponse{
		ID:     run.ID.String(),
		Status: string(run.Status),
	})
}

func (h *RunHandler) HandleGetRun(c *fiber.Ctx) error {
	runID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid run ID format")
	}

	run, err := h.runRepo.FindByID(c.UserContext(), runID)
	if err != nil {
		return err
	}

	response := models.RunResultResponse{
		ID:      run.ID.String(),
		Status:  string(run.Status),
		Batches: run.Batches,
	}
	if run.Status == models.RunCompleted {
		totals := run.Totals()
		response.Totals = &totals
		response.Skipped = totals.Skipped()
		response.Files = run.Statuses
	}
	if run.Status == models.RunFailed && run.ErrorMessage != "" {
		response.ErrorMessage = &run.ErrorMessage
	}
	return c.JSON(response)
}
