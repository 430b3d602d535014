package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"alfredoptarigan/cv-screener/internal/models"
)

// EvaluationRepository is the record store. The fingerprint is the sole key and
// concurrent upserts of the same key resolve last-write-wins.
type EvaluationRepository interface {
	Exists(ctx context.Context, fingerprint string) (bool, error)
	Upsert(ctx context.Context, eval *models.Evaluation) error
	LoadAll(ctx context.Context) ([]models.Evaluation, error)
	Clear(ctx context.Context) error
	FindByFingerprint(ctx context.Context, fingerprint string) (*models.Evaluation, error)
	List(ctx context.Context, filter EvaluationFilter) ([]models.Evaluation, error)
	Count(ctx context.Context) (int64, error)
}

// EvaluationFilter narrows List; empty slices match everything.
type EvaluationFilter struct {
	Units []string
	Bands []models.Band
	Roles []models.Role
	// WithoutBlobs skips the raw JSON and PDF columns.
	WithoutBlobs bool
}

var summaryColumns = []string{
	"fingerprint", "evaluated_at", "batch_label", "filename", "candidate_name",
	"unit", "role", "composite_score", "band", "fit_level", "summary",
	"formation", "experience", "competencies", "software", "gaps", "risks", "strengths",
}

type evaluationRepository struct {
	db *gorm.DB
}

func NewEvaluationRepository(db *gorm.DB) EvaluationRepository {
	return &evaluationRepository{db: db}
}

// Exists implements EvaluationRepository.
func (r *evaluationRepository) Exists(ctx context.Context, fingerprint string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Evaluation{}).
		Where("fingerprint = ?", fingerprint).
		Count(&count).Error
	if err != nil {
		return false, storeErr("check fingerprint", err)
	}
	return count > 0, nil
}

// Upsert implements EvaluationRepository.
func (r *evaluationRepository) Upsert(ctx context.Context, eval *models.Evaluation) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "fingerprint"}},
			UpdateAll: true,
		}).
		Create(eval).Error
	return storeErr("upsert evaluation", err)
}

// LoadAll implements EvaluationRepository.
func (r *evaluationRepository) LoadAll(ctx context.Context) ([]models.Evaluation, error) {
	return r.List(ctx, EvaluationFilter{})
}

// Clear implements EvaluationRepository.
func (r *evaluationRepository) Clear(ctx context.Context) error {
	err := r.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&models.Evaluation{}).Error
	return storeErr("clear evaluations", err)
}

// FindByFingerprint implements EvaluationRepository.
func (r *evaluationRepository) FindByFingerprint(ctx context.Context, fingerprint string) (*models.Evaluation, error) {
	var eval models.Evaluation
	if err := r.db.WithContext(ctx).Where("fingerprint = ?", fingerprint).First(&eval).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, storeErr("find evaluation", err)
	}
	return &eval, nil
}

// List implements EvaluationRepository. Most recent evaluations come first.
func (r *evaluationRepository) List(ctx context.Context, filter EvaluationFilter) ([]models.Evaluation, error) {
	q := r.db.WithContext(ctx).Model(&models.Evaluation{})
	if filter.WithoutBlobs {
		q = q.Select(summaryColumns)
	}
	if len(filter.Units) > 0 {
		q = q.Where("unit IN ?", filter.Units)
	}
	if len(filter.Bands) > 0 {
		q = q.Where("band IN ?", filter.Bands)
	}
	if len(filter.Roles) > 0 {
		q = q.Where("role IN ?", filter.Roles)
	}

	var evals []models.Evaluation
	if err := q.Order("evaluated_at DESC").Order("fingerprint").Find(&evals).Error; err != nil {
		return nil, storeErr("list evaluations", err)
	}
	return evals, nil
}

// Count implements EvaluationRepository.
func (r *evaluationRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Evaluation{}).Count(&count).Error; err != nil {
		return 0, storeErr("count evaluations", err)
	}
	return count, nil
}
