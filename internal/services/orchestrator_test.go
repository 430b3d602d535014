package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alfredoptarigan/cv-screener/internal/models"
	"alfredoptarigan/cv-screener/internal/repositories"
)

type fakeRepo struct {
	mu        sync.Mutex
	rows      map[string]models.Evaluation
	upsertErr error
	countErr  error
	upserts   int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{rows: make(map[string]models.Evaluation)}
}

func (r *fakeRepo) Exists(_ context.Context, fp string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.rows[fp]
	return ok, nil
}

func (r *fakeRepo) Upsert(_ context.Context, e *models.Evaluation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.upsertErr != nil {
		return &repositories.StoreError{Op: "upsert evaluation", Cause: r.upsertErr}
	}
	r.upserts++
	r.rows[e.Fingerprint] = *e
	return nil
}

func (r *fakeRepo) LoadAll(ctx context.Context) ([]models.Evaluation, error) {
	return r.List(ctx, repositories.EvaluationFilter{})
}

func (r *fakeRepo) Clear(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = make(map[string]models.Evaluation)
	return nil
}

func (r *fakeRepo) FindByFingerprint(_ context.Context, fp string) (*models.Evaluation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.rows[fp]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &e, nil
}

func (r *fakeRepo) List(context.Context, repositories.EvaluationFilter) ([]models.Evaluation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Evaluation, 0, len(r.rows))
	for _, e := range r.rows {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EvaluatedAt.After(out[j].EvaluatedAt) })
	return out, nil
}

func (r *fakeRepo) Count(context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.countErr != nil {
		return 0, r.countErr
	}
	return int64(len(r.rows)), nil
}

// plainExtractor treats the upload bytes as the extracted text.
type plainExtractor struct{}

func (plainExtractor) ExtractText(doc models.UploadedDocument) string {
	return string(doc.Content)
}

// fakeScorer fails any text containing FAIL and scores the rest 4/3/5/2.
// The first failFirst calls return a transient provider error.
type fakeScorer struct {
	calls     atomic.Int32
	inFlight  atomic.Int32
	maxSeen   atomic.Int32
	hold      time.Duration
	failFirst int32
}

func (s *fakeScorer) Score(ctx context.Context, req models.ScoreRequest) (*ScoreOutcome, error) {
	call := s.calls.Add(1)
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		m := s.maxSeen.Load()
		if n <= m || s.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}
	if s.hold > 0 {
		time.Sleep(s.hold)
	}

	if call <= s.failFirst {
		return nil, newScoringError(KindTransientProvider, "provider returned 503", nil)
	}
	if strings.Contains(req.Text, "FAIL") {
		return nil, newScoringError(KindMalformedOutput, "response is not valid JSON", nil)
	}
	name := strings.Fields(req.Text)[0]
	res := models.NewScoreResult(name, models.FitHigh, models.SubScores{Formation: 4, Experience: 3, Competencies: 5, Software: 2},
		"summary", nil, nil, []string{"PhD"})
	return &ScoreOutcome{Result: res, RawJSON: `{}`, Model: "fake"}, nil
}

type fakeRenderer struct{}

func (fakeRenderer) Render(ReportInput) ([]byte, error) {
	return []byte("%PDF-1.3 fake"), nil
}

type fixture struct {
	repo   *fakeRepo
	scorer *fakeScorer
	orch   Orchestrator
}

func newFixture(cfg OrchestratorConfig) *fixture {
	f := &fixture{repo: newFakeRepo(), scorer: &fakeScorer{}}
	if cfg.Units == nil {
		cfg.Units = []string{"Engineering", "Economics"}
	}
	f.orch = NewOrchestrator(f.repo, plainExtractor{}, f.scorer, fakeRenderer{}, nil, cfg, nil)
	return f
}

func cv(name string) models.UploadedDocument {
	body := name + " " + strings.Repeat("has taught engineering courses for many years. ", 2)
	return models.UploadedDocument{Filename: strings.ToLower(name) + ".pdf", MediaType: MediaTypePDF, Content: []byte(body)}
}

func teachingBatch(files ...models.UploadedDocument) BatchConfig {
	return BatchConfig{Label: "Teaching", Role: models.RoleTeaching, Unit: "Engineering", Files: files}
}

func states(out *RunOutcome) []models.FileState {
	var s []models.FileState
	for _, f := range out.Files {
		s = append(s, f.State)
	}
	return s
}

func TestRunIsIdempotentWithDedup(t *testing.T) {
	f := newFixture(OrchestratorConfig{})
	in := RunInput{Batches: []BatchConfig{teachingBatch(cv("Ana"), cv("Bruno"), cv("Carla"))}, Dedup: true}

	first, err := f.orch.Run(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 3, first.Totals.Processed)

	second, err := f.orch.Run(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Totals.Processed)
	assert.Equal(t, 3, second.Totals.Duplicates)
	assert.Equal(t, 3, second.Totals.Skipped())

	assert.Equal(t, int32(3), f.scorer.calls.Load())
	assert.Len(t, f.repo.rows, 3)
}

func TestRunWithoutDedupOverwrites(t *testing.T) {
	f := newFixture(OrchestratorConfig{})
	in := RunInput{Batches: []BatchConfig{teachingBatch(cv("Ana"))}}

	for i := 0; i < 2; i++ {
		out, err := f.orch.Run(context.Background(), in)
		require.NoError(t, err)
		assert.Equal(t, 1, out.Totals.Processed)
	}
	assert.Equal(t, int32(2), f.scorer.calls.Load())
	assert.Equal(t, 2, f.repo.upserts)
	assert.Len(t, f.repo.rows, 1)
}

func TestRunUnreadableSkipsModel(t *testing.T) {
	f := newFixture(OrchestratorConfig{})
	short := models.UploadedDocument{Filename: "scan.pdf", Content: []byte("   only a few words   ")}

	out, err := f.orch.Run(context.Background(), RunInput{Batches: []BatchConfig{teachingBatch(short)}, Dedup: true})
	require.NoError(t, err)

	assert.Equal(t, []models.FileState{models.StateUnreadable}, states(out))
	assert.Equal(t, 1, out.Totals.Unreadable)
	assert.Equal(t, int32(0), f.scorer.calls.Load())
	assert.Empty(t, f.repo.rows)
}

func TestRunContinuesPastFailures(t *testing.T) {
	f := newFixture(OrchestratorConfig{})
	files := []models.UploadedDocument{cv("Ana"), cv("Bruno"), cv("FAIL"), cv("Dora"), cv("Elias")}

	out, err := f.orch.Run(context.Background(), RunInput{Batches: []BatchConfig{teachingBatch(files...)}, Dedup: true})
	require.NoError(t, err)

	assert.Equal(t, []models.FileState{
		models.StateScored, models.StateScored, models.StateScoringFailed, models.StateScored, models.StateScored,
	}, states(out))
	assert.Equal(t, 4, out.Totals.Processed)
	assert.Equal(t, 1, out.Totals.Errors)
	assert.Equal(t, string(KindMalformedOutput), out.Files[2].Category)
	assert.Equal(t, "fail.pdf", out.Files[2].Filename)
	assert.Len(t, f.repo.rows, 4)
}

func TestRunDuplicatesWithinRun(t *testing.T) {
	f := newFixture(OrchestratorConfig{})
	econ := BatchConfig{Label: "Economics", Role: models.RoleResearch, Unit: "Economics", Files: []models.UploadedDocument{cv("Ana")}}

	renamed := cv("Ana")
	renamed.Filename = "copy-of-ana.pdf"
	out, err := f.orch.Run(context.Background(), RunInput{
		Batches: []BatchConfig{teachingBatch(cv("Ana"), renamed), econ},
		Dedup:   true,
	})
	require.NoError(t, err)

	assert.Equal(t, []models.FileState{models.StateScored, models.StateDuplicate, models.StateDuplicate}, states(out))
	assert.Equal(t, out.Files[0].Fingerprint, out.Files[1].Fingerprint)
	assert.Equal(t, "Economics", out.Files[2].Batch)
	assert.Equal(t, int32(1), f.scorer.calls.Load())
}

func TestRunRescoresCopyAfterEarlierFailure(t *testing.T) {
	for _, concurrency := range []int{1, 2} {
		t.Run(fmt.Sprintf("concurrency %d", concurrency), func(t *testing.T) {
			f := newFixture(OrchestratorConfig{Concurrency: concurrency})
			f.scorer.failFirst = 1

			copyOfAna := cv("Ana")
			copyOfAna.Filename = "ana-copy.pdf"
			out, err := f.orch.Run(context.Background(), RunInput{
				Batches: []BatchConfig{teachingBatch(cv("Ana"), copyOfAna)},
				Dedup:   true,
			})
			require.NoError(t, err)

			assert.Equal(t, []models.FileState{models.StateScoringFailed, models.StateScored}, states(out))
			assert.Equal(t, string(KindTransientProvider), out.Files[0].Category)
			assert.Equal(t, int32(2), f.scorer.calls.Load())
			n, _ := f.repo.Count(context.Background())
			assert.Equal(t, int64(1), n)
		})
	}
}

func TestRunPooledCopiesWaitForEarlierCopy(t *testing.T) {
	f := newFixture(OrchestratorConfig{Concurrency: 4})
	f.scorer.hold = 20 * time.Millisecond

	var files []models.UploadedDocument
	for i := 0; i < 4; i++ {
		d := cv("Ana")
		d.Filename = fmt.Sprintf("ana-%d.pdf", i)
		files = append(files, d)
	}
	out, err := f.orch.Run(context.Background(), RunInput{Batches: []BatchConfig{teachingBatch(files...)}, Dedup: true})
	require.NoError(t, err)

	assert.Equal(t, 1, out.Totals.Processed)
	assert.Equal(t, 3, out.Totals.Duplicates)
	assert.Equal(t, int32(1), f.scorer.calls.Load())
}

func TestRunPooledProgressInOrder(t *testing.T) {
	f := newFixture(OrchestratorConfig{Concurrency: 4})
	f.scorer.hold = 5 * time.Millisecond

	var files []models.UploadedDocument
	for _, n := range []string{"Ana", "Bruno", "Carla", "Dora", "Elias", "Fabio"} {
		files = append(files, cv(n))
	}
	var seen []int
	_, err := f.orch.Run(context.Background(), RunInput{
		Batches: []BatchConfig{teachingBatch(files...)},
		Progress: func(done, _ int, _ models.FileStatus) {
			seen = append(seen, done)
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, seen)
}

func TestRunPooled(t *testing.T) {
	f := newFixture(OrchestratorConfig{Concurrency: 3})
	f.scorer.hold = 20 * time.Millisecond

	var files []models.UploadedDocument
	for _, n := range []string{"Ana", "Bruno", "Carla", "Dora", "Elias", "Fabio", "Gala", "Hugo"} {
		files = append(files, cv(n))
	}

	var mu sync.Mutex
	var seen []int
	out, err := f.orch.Run(context.Background(), RunInput{
		Batches: []BatchConfig{teachingBatch(files...)},
		Dedup:   true,
		Progress: func(done, total int, _ models.FileStatus) {
			mu.Lock()
			defer mu.Unlock()
			assert.Equal(t, 8, total)
			seen = append(seen, done)
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 8, out.Totals.Processed)
	assert.LessOrEqual(t, f.scorer.maxSeen.Load(), int32(3))
	assert.Greater(t, f.scorer.maxSeen.Load(), int32(1))
	sort.Ints(seen)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8}, seen)
	for i, st := range out.Files {
		assert.Equal(t, files[i].Filename, st.Filename, "statuses keep upload order")
	}
}

func TestRunStoreFailures(t *testing.T) {
	t.Run("upsert failure is per file", func(t *testing.T) {
		f := newFixture(OrchestratorConfig{})
		f.repo.upsertErr = errors.New("disk full")

		out, err := f.orch.Run(context.Background(), RunInput{Batches: []BatchConfig{teachingBatch(cv("Ana"), cv("Bruno"))}})
		require.NoError(t, err)
		assert.Equal(t, []models.FileState{models.StateStoreFailed, models.StateStoreFailed}, states(out))
		assert.Equal(t, 2, out.Totals.Errors)
		assert.Contains(t, out.Files[0].Message, "disk full")
	})

	t.Run("unreachable store is fatal", func(t *testing.T) {
		f := newFixture(OrchestratorConfig{})
		f.repo.countErr = errors.New("connection refused")

		out, err := f.orch.Run(context.Background(), RunInput{Batches: []BatchConfig{teachingBatch(cv("Ana"))}})
		require.Error(t, err)
		assert.Nil(t, out)
		assert.Equal(t, int32(0), f.scorer.calls.Load())
	})
}

func TestRunValidation(t *testing.T) {
	f := newFixture(OrchestratorConfig{})
	five := make([]BatchConfig, 5)
	for i := range five {
		five[i] = teachingBatch(cv("Ana"))
	}

	tests := []struct {
		name string
		in   RunInput
	}{
		{"no batches", RunInput{}},
		{"too many batches", RunInput{Batches: five}},
		{"unknown role", RunInput{Batches: []BatchConfig{{Role: "janitor", Unit: "Engineering", Files: []models.UploadedDocument{cv("Ana")}}}}},
		{"unknown unit", RunInput{Batches: []BatchConfig{{Role: models.RoleTeaching, Unit: "Astrology", Files: []models.UploadedDocument{cv("Ana")}}}}},
		{"empty batch", RunInput{Batches: []BatchConfig{teachingBatch()}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.orch.Run(context.Background(), tt.in)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
		})
	}
	assert.Equal(t, int32(0), f.scorer.calls.Load())
}

func TestRunFlattenUsesRunLabel(t *testing.T) {
	f := newFixture(OrchestratorConfig{})
	econ := BatchConfig{Label: "B", Role: models.RoleResearch, Unit: "Economics", Files: []models.UploadedDocument{cv("Bruno")}}

	out, err := f.orch.Run(context.Background(), RunInput{
		Batches: []BatchConfig{teachingBatch(cv("Ana")), econ},
		Flatten: true,
		Label:   "November intake",
	})
	require.NoError(t, err)
	require.Len(t, out.Files, 2)
	for _, st := range out.Files {
		assert.Equal(t, "November intake", st.Batch)
	}
	stored := f.repo.rows[out.Files[1].Fingerprint]
	assert.Equal(t, models.RoleResearch, stored.Role)
	assert.Equal(t, "Economics", stored.Unit)
}

func TestRunCancellationKeepsFinishedStatuses(t *testing.T) {
	f := newFixture(OrchestratorConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out, err := f.orch.Run(ctx, RunInput{
		Batches: []BatchConfig{teachingBatch(cv("Ana"), cv("Bruno"), cv("Carla"))},
		Progress: func(done, _ int, _ models.FileStatus) {
			if done == 1 {
				cancel()
			}
		},
	})
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, out)
	assert.Equal(t, []models.FileState{models.StateScored, models.StatePending, models.StatePending}, states(out))
	assert.Equal(t, 1, out.Totals.Total)
}

func TestRunAppliesDelayAfterModelCalls(t *testing.T) {
	f := newFixture(OrchestratorConfig{Delay: 30 * time.Millisecond})

	start := time.Now()
	out, err := f.orch.Run(context.Background(), RunInput{Batches: []BatchConfig{teachingBatch(cv("Ana"), cv("Bruno"))}})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Totals.Processed)
	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
}

func TestRunStoresRecord(t *testing.T) {
	f := newFixture(OrchestratorConfig{})
	out, err := f.orch.Run(context.Background(), RunInput{Batches: []BatchConfig{teachingBatch(cv("Ana"))}, Dedup: true})
	require.NoError(t, err)

	rec, err := f.repo.FindByFingerprint(context.Background(), out.Files[0].Fingerprint)
	require.NoError(t, err)
	assert.Equal(t, "Ana", rec.CandidateName)
	assert.Equal(t, 3.60, rec.CompositeScore)
	assert.Equal(t, models.BandNeedsReferences, rec.Band)
	assert.Equal(t, "Teaching", rec.BatchLabel)
	assert.True(t, rec.HasReport())
	assert.NotNil(t, rec.Gaps)
	assert.Equal(t, out.Files[0].Fingerprint, Fingerprint(cv("Ana").Content))
}
