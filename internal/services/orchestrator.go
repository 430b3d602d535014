package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"alfredoptarigan/cv-screener/internal/logger"
	"alfredoptarigan/cv-screener/internal/models"
	"alfredoptarigan/cv-screener/internal/repositories"
)

const MaxBatches = 4

// BatchConfig is one independently configured group of files.
type BatchConfig struct {
	Label string                    `validate:"max=120"`
	Role  models.Role               `validate:"required,oneof=teaching research academic_management"`
	Unit  string                    `validate:"required,max=120"`
	Files []models.UploadedDocument `validate:"min=1"`
}

// ProgressFunc is called once per file after it reaches a terminal state.
// Calls never overlap and done increases by one each time.
type ProgressFunc func(done, total int, status models.FileStatus)

type RunInput struct {
	Batches []BatchConfig `validate:"required,min=1,max=4,dive"`
	Dedup   bool
	// Flatten processes every batch as one work list under Label.
	Flatten  bool
	Label    string       `validate:"max=120"`
	Progress ProgressFunc `validate:"-"`
}

type RunOutcome struct {
	Files      []models.FileStatus `json:"files"`
	Totals     models.RunTotals    `json:"totals"`
	StartedAt  time.Time           `json:"started_at"`
	FinishedAt time.Time           `json:"finished_at"`
}

type OrchestratorConfig struct {
	Delay       time.Duration
	Concurrency int
	Units       []string
}

type Orchestrator interface {
	Run(ctx context.Context, in RunInput) (*RunOutcome, error)
}

type orchestrator struct {
	repo      repositories.EvaluationRepository
	extractor TextExtractor
	scorer    Scorer
	renderer  ReportRenderer
	pool      TalentPool
	cfg       OrchestratorConfig
	validate  *validator.Validate
	log       *logger.Logger
	now       func() time.Time
}

func NewOrchestrator(
	repo repositories.EvaluationRepository,
	extractor TextExtractor,
	scorer Scorer,
	renderer ReportRenderer,
	pool TalentPool,
	cfg OrchestratorConfig,
	log *logger.Logger,
) Orchestrator {
	if pool == nil {
		pool = NewDisabledTalentPool()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &orchestrator{
		repo:      repo,
		extractor: extractor,
		scorer:    scorer,
		renderer:  renderer,
		pool:      pool,
		cfg:       cfg,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		log:       log,
		now:       time.Now,
	}
}

type workItem struct {
	index int
	batch BatchConfig
	label string
	doc   models.UploadedDocument
}

// runState is shared by every file of one Run.
type runState struct {
	dedup    bool
	total    int
	progress ProgressFunc

	mu    sync.Mutex
	locks map[string]*sync.Mutex
	done  int
}

// lockFingerprint serialises files with the same content so a later copy
// sees the outcome of an earlier one before its own dedup check.
func (s *runState) lockFingerprint(fp string) func() {
	s.mu.Lock()
	l, ok := s.locks[fp]
	if !ok {
		l = &sync.Mutex{}
		s.locks[fp] = l
	}
	s.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// finish reports progress under the lock so done counts arrive in order.
func (s *runState) finish(status models.FileStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done++
	if s.progress != nil {
		s.progress(s.done, s.total, status)
	}
}

// Run processes every file of every batch. Per-file failures become file
// statuses; only invalid input and an unreachable store abort the run. When
// ctx is cancelled, files not yet started stay pending and ctx.Err() is
// returned with the partial outcome.
func (o *orchestrator) Run(ctx context.Context, in RunInput) (*RunOutcome, error) {
	if o.scorer == nil {
		return nil, errors.New("scorer is not configured")
	}
	if err := o.validateInput(in); err != nil {
		return nil, err
	}
	if _, err := o.repo.Count(ctx); err != nil {
		return nil, fmt.Errorf("record store unavailable: %w", err)
	}

	groups := o.plan(in)
	total := 0
	for _, g := range groups {
		total += len(g)
	}

	state := &runState{
		dedup:    in.Dedup,
		total:    total,
		progress: in.Progress,
		locks:    make(map[string]*sync.Mutex),
	}
	statuses := make([]models.FileStatus, total)
	for _, g := range groups {
		for _, it := range g {
			statuses[it.index] = models.FileStatus{Batch: it.label, Filename: it.doc.Filename, State: models.StatePending}
		}
	}

	outcome := &RunOutcome{StartedAt: o.now()}
	o.log.Info("run started", "files", total, "batches", len(in.Batches), "dedup", in.Dedup, "flatten", in.Flatten)

	for _, g := range groups {
		if ctx.Err() != nil {
			break
		}
		o.processGroup(ctx, g, state, statuses)
	}

	outcome.Files = statuses
	for _, s := range statuses {
		if s.State.Terminal() {
			outcome.Totals.Add(s)
		}
	}
	outcome.FinishedAt = o.now()
	o.log.Info("run finished",
		"processed", outcome.Totals.Processed,
		"duplicates", outcome.Totals.Duplicates,
		"unreadable", outcome.Totals.Unreadable,
		"errors", outcome.Totals.Errors,
	)

	if err := ctx.Err(); err != nil {
		return outcome, err
	}
	return outcome, nil
}

func (o *orchestrator) validateInput(in RunInput) error {
	if err := o.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return &ValidationError{Field: fe.Namespace(), Message: fmt.Sprintf("failed on %q", fe.Tag())}
		}
		return &ValidationError{Message: err.Error()}
	}
	if len(o.cfg.Units) > 0 {
		for i, b := range in.Batches {
			if !slices.Contains(o.cfg.Units, b.Unit) {
				return &ValidationError{Field: fmt.Sprintf("RunInput.Batches[%d].Unit", i), Message: fmt.Sprintf("unknown unit %q", b.Unit)}
			}
		}
	}
	return nil
}

// plan lays the files out in upload order, one group per batch or a
// single group when flattened.
func (o *orchestrator) plan(in RunInput) [][]workItem {
	var groups [][]workItem
	var flat []workItem
	index := 0
	for i, b := range in.Batches {
		label := b.Label
		if label == "" {
			label = fmt.Sprintf("Batch %d", i+1)
		}
		if in.Flatten && in.Label != "" {
			label = in.Label
		}
		var group []workItem
		for _, doc := range b.Files {
			group = append(group, workItem{index: index, batch: b, label: label, doc: doc})
			index++
		}
		if in.Flatten {
			flat = append(flat, group...)
		} else {
			groups = append(groups, group)
		}
	}
	if in.Flatten {
		groups = [][]workItem{flat}
	}
	return groups
}

func (o *orchestrator) processGroup(ctx context.Context, items []workItem, state *runState, statuses []models.FileStatus) {
	if o.cfg.Concurrency <= 1 {
		for _, it := range items {
			if ctx.Err() != nil {
				return
			}
			statuses[it.index] = o.processFile(ctx, it, state)
			state.finish(statuses[it.index])
		}
		return
	}

	var g errgroup.Group
	g.SetLimit(o.cfg.Concurrency)
	for _, it := range items {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			status := o.processFile(ctx, it, state)
			statuses[it.index] = status
			state.finish(status)
			return nil
		})
	}
	_ = g.Wait()
}

// processFile runs hash, dedup check, extract, score, render and persist
// for one file and returns its terminal status.
func (o *orchestrator) processFile(ctx context.Context, it workItem, state *runState) models.FileStatus {
	doc := it.doc
	fp := Fingerprint(doc.Content)
	status := models.FileStatus{Batch: it.label, Filename: doc.Filename, Fingerprint: fp}
	log := o.log.With("file", doc.Filename, "fingerprint", shortFingerprint(fp), "batch", it.label)

	if state.dedup {
		unlock := state.lockFingerprint(fp)
		defer unlock()
		exists, err := o.repo.Exists(ctx, fp)
		if err != nil {
			status.State = models.StateStoreFailed
			status.Category = "store"
			status.Message = err.Error()
			log.Error("dedup lookup failed", "error", err)
			return status
		}
		if exists {
			status.State = models.StateDuplicate
			status.Message = "already evaluated"
			log.Info("duplicate of stored evaluation")
			return status
		}
	}

	text := o.extractor.ExtractText(doc)
	if !IsUsable(text) {
		status.State = models.StateUnreadable
		status.Category = "unreadable"
		status.Message = fmt.Sprintf("extracted text shorter than %d characters", MinUsableChars)
		log.Warn("unreadable file")
		return status
	}

	scored, err := o.scorer.Score(ctx, models.ScoreRequest{Text: text, Role: it.batch.Role, Unit: it.batch.Unit})
	o.pause(ctx)
	if err != nil {
		status.State = models.StateScoringFailed
		status.Category = string(ScoringErrorKindOf(err))
		if status.Category == "" {
			status.Category = "scoring"
		}
		status.Message = err.Error()
		log.Warn("scoring failed", "error", err)
		return status
	}
	res := scored.Result

	report, err := o.renderer.Render(ReportInput{
		Result:      res,
		Role:        it.batch.Role,
		Unit:        it.batch.Unit,
		Filename:    doc.Filename,
		GeneratedAt: o.now(),
	})
	if err != nil {
		log.Warn("report rendering failed, storing without report", "error", err)
		report = nil
	}

	eval := &models.Evaluation{
		Fingerprint:    fp,
		EvaluatedAt:    o.now().UTC(),
		BatchLabel:     it.label,
		Filename:       doc.Filename,
		CandidateName:  res.CandidateName,
		Unit:           it.batch.Unit,
		Role:           it.batch.Role,
		CompositeScore: res.Composite,
		Band:           res.Band,
		FitLevel:       res.FitLevel,
		Summary:        res.Summary,
		Formation:      res.SubScores.Formation,
		Experience:     res.SubScores.Experience,
		Competencies:   res.SubScores.Competencies,
		Software:       res.SubScores.Software,
		Gaps:           jsonList(res.Gaps),
		Risks:          jsonList(res.Risks),
		Strengths:      jsonList(res.Strengths),
		RawJSON:        scored.RawJSON,
		ReportPDF:      report,
	}
	if err := o.repo.Upsert(ctx, eval); err != nil {
		status.State = models.StateStoreFailed
		status.Category = "store"
		status.Message = err.Error()
		log.Error("failed to store evaluation", "error", err)
		return status
	}

	if err := o.pool.Index(ctx, eval); err != nil {
		log.Warn("talent pool indexing failed", "error", err)
	}

	status.State = models.StateScored
	status.Candidate = res.CandidateName
	status.Composite = res.Composite
	status.Band = res.Band
	log.Info("file scored", "candidate", res.CandidateName, "composite", res.Composite, "band", res.Band, "model", scored.Model)
	return status
}

// pause applies the fixed inter-call delay.
func (o *orchestrator) pause(ctx context.Context) {
	if o.cfg.Delay <= 0 {
		return
	}
	t := time.NewTimer(o.cfg.Delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func jsonList(items []string) datatypes.JSONSlice[string] {
	if items == nil {
		return datatypes.JSONSlice[string]{}
	}
	return datatypes.NewJSONSlice(items)
}

func shortFingerprint(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}
