package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"alfredoptarigan/cv-screener/internal/models"
)

type RunRepository interface {
	Create(ctx context.Context, run *models.BatchRun) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.BatchRun, error)
	Claim(ctx context.Context, id uuid.UUID) (bool, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.RunStatus) error
	UpdateResult(ctx context.Context, id uuid.UUID, statuses []models.FileStatus, totals models.RunTotals) error
	UpdateError(ctx context.Context, id uuid.UUID, errorMsg string) error
	FindPendingRuns(ctx context.Context, limit int) ([]models.BatchRun, error)
}

type runRepository struct {
	db *gorm.DB
}

func NewRunRepository(db *gorm.DB) RunRepository {
	return &runRepository{db: db}
}

func (r *runRepository) Create(ctx context.Context, run *models.BatchRun) error {
	return storeErr("create run", r.db.WithContext(ctx).Create(run).Error)
}

func (r *runRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.BatchRun, error) {
	var run models.BatchRun
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&run).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, storeErr("find run", err)
	}
	return &run, nil
}

// Claim moves a queued run to processing. It returns false when another
// worker got there first or the run is no longer queued.
func (r *runRepository) Claim(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.BatchRun{}).
		Where("id = ? AND status = ?", id, models.RunQueued).
		Updates(map[string]interface{}{
			"status":     models.RunProcessing,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return false, storeErr("claim run", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *runRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.RunStatus) error {
	return r.update(ctx, id, "update run status", map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	})
}

func (r *runRepository) UpdateResult(ctx context.Context, id uuid.UUID, statuses []models.FileStatus, totals models.RunTotals) error {
	return r.update(ctx, id, "update run result", map[string]interface{}{
		"status":     models.RunCompleted,
		"statuses":   datatypes.NewJSONSlice(statuses),
		"total":      totals.Total,
		"processed":  totals.Processed,
		"duplicates": totals.Duplicates,
		"unreadable": totals.Unreadable,
		"errors":     totals.Errors,
		"updated_at": time.Now(),
	})
}

func (r *runRepository) UpdateError(ctx context.Context, id uuid.UUID, errorMsg string) error {
	return r.update(ctx, id, "update run error", map[string]interface{}{
		"status":        models.RunFailed,
		"error_message": errorMsg,
		"updated_at":    time.Now(),
	})
}

func (r *runRepository) FindPendingRuns(ctx context.Context, limit int) ([]models.BatchRun, error) {
	var runs []models.BatchRun
	err := r.db.WithContext(ctx).
		Where("status = ?", models.RunQueued).
		Order("created_at ASC").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, storeErr("find pending runs", err)
	}
	return runs, nil
}

func (r *runRepository) update(ctx context.Context, id uuid.UUID, op string, updates map[string]interface{}) error {
	result := r.db.WithContext(ctx).
		Model(&models.BatchRun{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return storeErr(op, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return nil
}
