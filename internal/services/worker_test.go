package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"alfredoptarigan/cv-screener/internal/config"
	"alfredoptarigan/cv-screener/internal/models"
	"alfredoptarigan/cv-screener/internal/repositories"
)

func TestWorkerProcessRun(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "worker.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db))

	ctx := context.Background()
	runRepo := repositories.NewRunRepository(db)
	docRepo := repositories.NewDocumentRepository(db)
	uploadDir := t.TempDir()
	storage := NewStorageService(uploadDir, 0)

	f := newFixture(OrchestratorConfig{})
	w := NewWorker(runRepo, docRepo, storage, f.orch, 1, 0, nil)

	run := &models.BatchRun{
		ID:     uuid.New(),
		Status: models.RunQueued,
		Dedup:  true,
		Batches: datatypes.NewJSONSlice([]models.BatchSpec{
			{Label: "Teaching", Role: models.RoleTeaching, Unit: "Engineering"},
			{Label: "Research", Role: models.RoleResearch, Unit: "Economics"},
		}),
	}
	require.NoError(t, runRepo.Create(ctx, run))

	var docs []models.Document
	for i, name := range []string{"Ana", "Bruno"} {
		stored := "run_" + name + ".pdf"
		require.NoError(t, os.WriteFile(filepath.Join(uploadDir, stored), cv(name).Content, 0o644))
		docs = append(docs, models.Document{
			ID: uuid.New(), RunID: run.ID, BatchIndex: i, Position: 0,
			Filename: stored, OriginalFileName: name + ".pdf", MediaType: MediaTypePDF,
			FilePath: filepath.Join(uploadDir, stored),
		})
	}
	require.NoError(t, docRepo.CreateMany(ctx, docs))

	require.NoError(t, w.ProcessRun(ctx, run.ID))

	got, err := runRepo.FindByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunCompleted, got.Status)
	assert.Equal(t, 2, got.Processed)
	require.Len(t, got.Statuses, 2)
	assert.Equal(t, "Ana.pdf", got.Statuses[0].Filename)
	assert.Equal(t, "Research", got.Statuses[1].Batch)

	remaining, err := docRepo.FindByRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Empty(t, remaining)
	entries, err := os.ReadDir(uploadDir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	// a completed run is never processed twice
	require.NoError(t, w.ProcessRun(ctx, run.ID))
	assert.Equal(t, int32(2), f.scorer.calls.Load())
}

func TestWorkerEnqueueNeverBlocks(t *testing.T) {
	w := NewWorker(nil, nil, nil, nil, 1, 0, nil).(*worker)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < cap(w.jobQueue)+20; i++ {
			w.EnqueueRun(uuid.New())
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("EnqueueRun blocked on a full queue")
	}
	assert.Equal(t, cap(w.jobQueue), len(w.jobQueue))

	w.Stop()
	w.EnqueueRun(uuid.New())
	assert.Equal(t, cap(w.jobQueue), len(w.jobQueue))
}
