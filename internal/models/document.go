package models

import (
	"time"

	"github.com/google/uuid"
)

// UploadedDocument is a caller-provided file. It is never mutated.
type UploadedDocument struct {
	Filename  string
	MediaType string
	Content   []byte
}

// Document is an upload parked on disk until its batch run is processed.
type Document struct {
	ID               uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	RunID            uuid.UUID `gorm:"type:uuid;index;not null" json:"run_id"`
	BatchIndex       int       `gorm:"not null" json:"batch_index"`
	Position         int       `gorm:"not null" json:"position"`
	Filename         string    `gorm:"type:text" json:"filename"`
	OriginalFileName string    `gorm:"type:text" json:"original_filename"`
	MediaType        string    `gorm:"type:text" json:"media_type"`
	FilePath         string    `gorm:"type:text" json:"file_path"`
	CreatedAt        time.Time `json:"created_at"`
}

func (d *Document) TableName() string {
	return "documents"
}
