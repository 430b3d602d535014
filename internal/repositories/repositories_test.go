package repositories

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"alfredoptarigan/cv-screener/internal/config"
	"alfredoptarigan/cv-screener/internal/models"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db))
	return db
}

func evaluation(fp, name string, at time.Time) *models.Evaluation {
	return &models.Evaluation{
		Fingerprint:    fp,
		EvaluatedAt:    at,
		CandidateName:  name,
		Unit:           "Engineering",
		Role:           models.RoleTeaching,
		CompositeScore: 3.6,
		Band:           models.BandNeedsReferences,
		FitLevel:       models.FitHigh,
		Gaps:           datatypes.JSONSlice[string]{"LMS"},
		Risks:          datatypes.JSONSlice[string]{},
		Strengths:      datatypes.JSONSlice[string]{"PhD"},
		RawJSON:        `{"nombre":"x"}`,
		ReportPDF:      []byte("%PDF-1.3"),
	}
}

func TestEvaluationUpsertIsIdempotent(t *testing.T) {
	repo := NewEvaluationRepository(setupDB(t))
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	exists, err := repo.Exists(ctx, "fp1")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, repo.Upsert(ctx, evaluation("fp1", "Ana", now)))
	updated := evaluation("fp1", "Ana Rojas", now.Add(time.Minute))
	updated.CompositeScore = 4.1
	updated.Band = models.BandAdvance
	require.NoError(t, repo.Upsert(ctx, updated))

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	got, err := repo.FindByFingerprint(ctx, "fp1")
	require.NoError(t, err)
	assert.Equal(t, "Ana Rojas", got.CandidateName)
	assert.Equal(t, 4.1, got.CompositeScore)
	assert.Equal(t, models.BandAdvance, got.Band)
	assert.Equal(t, []string{"PhD"}, []string(got.Strengths))
	assert.Equal(t, []byte("%PDF-1.3"), got.ReportPDF)

	exists, err = repo.Exists(ctx, "fp1")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestEvaluationLoadAllMostRecentFirst(t *testing.T) {
	repo := NewEvaluationRepository(setupDB(t))
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Upsert(ctx, evaluation("old", "Old", base)))
	require.NoError(t, repo.Upsert(ctx, evaluation("new", "New", base.Add(2*time.Hour))))
	require.NoError(t, repo.Upsert(ctx, evaluation("mid", "Mid", base.Add(time.Hour))))

	all, err := repo.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"new", "mid", "old"}, []string{all[0].Fingerprint, all[1].Fingerprint, all[2].Fingerprint})
}

func TestEvaluationListFilters(t *testing.T) {
	repo := NewEvaluationRepository(setupDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	a := evaluation("a", "A", now)
	b := evaluation("b", "B", now)
	b.Unit = "Economics"
	b.Band = models.BandAdvance
	c := evaluation("c", "C", now)
	c.Role = models.RoleResearch
	for _, e := range []*models.Evaluation{a, b, c} {
		require.NoError(t, repo.Upsert(ctx, e))
	}

	byUnit, err := repo.List(ctx, EvaluationFilter{Units: []string{"Economics"}})
	require.NoError(t, err)
	require.Len(t, byUnit, 1)
	assert.Equal(t, "b", byUnit[0].Fingerprint)

	byBand, err := repo.List(ctx, EvaluationFilter{Bands: []models.Band{models.BandNeedsReferences}})
	require.NoError(t, err)
	assert.Len(t, byBand, 2)

	byRole, err := repo.List(ctx, EvaluationFilter{Roles: []models.Role{models.RoleResearch}, WithoutBlobs: true})
	require.NoError(t, err)
	require.Len(t, byRole, 1)
	assert.Equal(t, "C", byRole[0].CandidateName)
	assert.Empty(t, byRole[0].ReportPDF)
	assert.Empty(t, byRole[0].RawJSON)
}

func TestEvaluationClear(t *testing.T) {
	repo := NewEvaluationRepository(setupDB(t))
	ctx := context.Background()
	require.NoError(t, repo.Upsert(ctx, evaluation("a", "A", time.Now())))
	require.NoError(t, repo.Upsert(ctx, evaluation("b", "B", time.Now())))

	require.NoError(t, repo.Clear(ctx))

	all, err := repo.LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	_, err = repo.FindByFingerprint(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreErrorWrapsCause(t *testing.T) {
	db := setupDB(t)
	repo := NewEvaluationRepository(db)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	_, err = repo.Count(context.Background())
	var storeErr *StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "count evaluations", storeErr.Op)
}

func TestRunLifecycle(t *testing.T) {
	db := setupDB(t)
	runs := NewRunRepository(db)
	docs := NewDocumentRepository(db)
	ctx := context.Background()

	run := &models.BatchRun{
		ID:      uuid.New(),
		Status:  models.RunQueued,
		Dedup:   true,
		Batches: datatypes.NewJSONSlice([]models.BatchSpec{{Label: "A", Role: models.RoleTeaching, Unit: "Engineering"}}),
	}
	require.NoError(t, runs.Create(ctx, run))
	require.NoError(t, docs.CreateMany(ctx, []models.Document{
		{ID: uuid.New(), RunID: run.ID, BatchIndex: 0, Position: 1, Filename: "b.pdf"},
		{ID: uuid.New(), RunID: run.ID, BatchIndex: 0, Position: 0, Filename: "a.pdf"},
	}))

	pending, err := runs.FindPendingRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	claimed, err := runs.Claim(ctx, run.ID)
	require.NoError(t, err)
	assert.True(t, claimed)
	claimed, err = runs.Claim(ctx, run.ID)
	require.NoError(t, err)
	assert.False(t, claimed, "a run is claimed once")

	found, err := docs.FindByRun(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "a.pdf", found[0].Filename)

	statuses := []models.FileStatus{
		{Batch: "A", Filename: "a.pdf", State: models.StateScored},
		{Batch: "A", Filename: "b.pdf", State: models.StateUnreadable},
	}
	require.NoError(t, runs.UpdateResult(ctx, run.ID, statuses, models.RunTotals{Total: 2, Processed: 1, Unreadable: 1}))

	got, err := runs.FindByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunCompleted, got.Status)
	assert.Equal(t, statuses, []models.FileStatus(got.Statuses))
	assert.Equal(t, 1, got.Totals().Skipped())
	assert.Equal(t, models.RoleTeaching, got.Batches[0].Role)

	require.NoError(t, docs.DeleteByRun(ctx, run.ID))
	found, err = docs.FindByRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Empty(t, found)

	pending, err = runs.FindPendingRuns(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRunNotFound(t *testing.T) {
	runs := NewRunRepository(setupDB(t))
	_, err := runs.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, runs.UpdateError(context.Background(), uuid.New(), "boom"), ErrNotFound)
}
