package repositories

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"alfredoptarigan/cv-screener/internal/models"
)

type DocumentRepository interface {
	CreateMany(ctx context.Context, docs []models.Document) error
	FindByRun(ctx context.Context, runID uuid.UUID) ([]models.Document, error)
	DeleteByRun(ctx context.Context, runID uuid.UUID) error
}

type documentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

// CreateMany implements DocumentRepository.
func (d *documentRepository) CreateMany(ctx context.Context, docs []models.Document) error {
	if len(docs) == 0 {
		return nil
	}
	return storeErr("create documents", d.db.WithContext(ctx).Create(&docs).Error)
}

// FindByRun implements DocumentRepository. Documents come back in upload order.
func (d *documentRepository) FindByRun(ctx context.Context, runID uuid.UUID) ([]models.Document, error) {
	var docs []models.Document
	err := d.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("batch_index ASC").
		Order("position ASC").
		Find(&docs).Error
	if err != nil {
		return nil, storeErr("find documents", err)
	}
	return docs, nil
}

// DeleteByRun implements DocumentRepository.
func (d *documentRepository) DeleteByRun(ctx context.Context, runID uuid.UUID) error {
	err := d.db.WithContext(ctx).Where("run_id = ?", runID).Delete(&models.Document{}).Error
	return storeErr("delete documents", err)
}
