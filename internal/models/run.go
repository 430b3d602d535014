package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type RunStatus string

const (
	RunQueued     RunStatus = "queued"
	RunProcessing RunStatus = "processing"
	RunCompleted  RunStatus = "completed"
	RunFailed     RunStatus = "failed"
)

// FileState is the terminal (or pending) state of one file in a run.
type FileState string

const (
	StatePending       FileState = "pending"
	StateDuplicate     FileState = "duplicate"
	StateUnreadable    FileState = "unreadable"
	StateScoringFailed FileState = "scoring_failed"
	StateStoreFailed   FileState = "store_failed"
	StateScored        FileState = "scored"
)

// Terminal reports whether no further transition is possible.
func (s FileState) Terminal() bool {
	return s != StatePending && s != ""
}

// FileStatus records what happened to one uploaded file.
type FileStatus struct {
	Batch       string    `json:"batch"`
	Filename    string    `json:"filename"`
	Fingerprint string    `json:"fingerprint,omitempty"`
	State       FileState `json:"state"`
	Category    string    `json:"category,omitempty"`
	Message     string    `json:"message,omitempty"`
	Candidate   string    `json:"candidate,omitempty"`
	Composite   float64   `json:"composite,omitempty"`
	Band        Band      `json:"band,omitempty"`
}

// RunTotals are the end-of-run counters.
type RunTotals struct {
	Total      int `json:"total"`
	Processed  int `json:"processed"`
	Duplicates int `json:"duplicates"`
	Unreadable int `json:"unreadable"`
	Errors     int `json:"errors"`
}

// Skipped counts files that never reached the model.
func (t RunTotals) Skipped() int {
	return t.Duplicates + t.Unreadable
}

// Add folds one terminal status into the totals.
func (t *RunTotals) Add(s FileStatus) {
	t.Total++
	switch s.State {
	case StateScored:
		t.Processed++
	case StateDuplicate:
		t.Duplicates++
	case StateUnreadable:
		t.Unreadable++
	case StateScoringFailed, StateStoreFailed:
		t.Errors++
	}
}

// BatchSpec is the persisted shape of one batch of a queued run.
type BatchSpec struct {
	Label string `json:"label"`
	Role  Role   `json:"role"`
	Unit  string `json:"unit"`
}

// BatchRun is an asynchronous screening run submitted through the API.
type BatchRun struct {
	ID           uuid.UUID                       `gorm:"type:uuid;primary_key" json:"id"`
	Status       RunStatus                       `gorm:"not null;default:'queued'" json:"status"`
	Dedup        bool                            `json:"dedup"`
	Flatten      bool                            `json:"flatten"`
	Batches      datatypes.JSONSlice[BatchSpec]  `json:"batches"`
	Statuses     datatypes.JSONSlice[FileStatus] `json:"statuses"`
	Total        int                             `json:"total"`
	Processed    int                             `json:"processed"`
	Duplicates   int                             `json:"duplicates"`
	Unreadable   int                             `json:"unreadable"`
	Errors       int                             `json:"errors"`
	ErrorMessage string                          `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt    time.Time                       `json:"created_at"`
	UpdatedAt    time.Time                       `json:"updated_at"`
}

func (BatchRun) TableName() string {
	return "batch_runs"
}

// Totals returns the counters stored on the run.
func (r *BatchRun) Totals() RunTotals {
	return RunTotals{
		Total:      r.Total,
		Processed:  r.Processed,
		Duplicates: r.Duplicates,
		Unreadable: r.Unreadable,
		Errors:     r.Errors,
	}
}
