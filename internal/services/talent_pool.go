package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/qdrant/go-client/qdrant"

	"alfredoptarigan/cv-screener/internal/logger"
	"alfredoptarigan/cv-screener/internal/models"
)

// ErrTalentPoolDisabled is returned by similarity lookups when no vector store is configured.
var ErrTalentPoolDisabled = errors.New("talent pool is not configured")

// TalentPool indexes scored candidates for similarity search.
type TalentPool interface {
	Init(ctx context.Context) error
	Index(ctx context.Context, eval *models.Evaluation) error
	Similar(ctx context.Context, eval *models.Evaluation, limit int) ([]models.SimilarCandidate, error)
	Reset(ctx context.Context) error
}

type qdrantTalentPool struct {
	client         *qdrant.Client
	embedder       Embedder
	collectionName string
	vectorSize     uint64
	log            *logger.Logger
}

// NewQdrantTalentPool connects over gRPC; the port defaults to 6334.
func NewQdrantTalentPool(urlStr, apiKey, collectionName string, embedder Embedder, log *logger.Logger) (TalentPool, error) {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	port := 6334
	if p := parsed.Port(); p != "" {
		if v, err := strconv.Atoi(p); err == nil {
			port = v
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   parsed.Hostname(),
		Port:   port,
		APIKey: apiKey,
		UseTLS: parsed.Scheme == "https",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}
	if log == nil {
		log = logger.Nop()
	}

	return &qdrantTalentPool{
		client:         client,
		embedder:       embedder,
		collectionName: collectionName,
		vectorSize:     768,
		log:            log,
	}, nil
}

// Init implements TalentPool.
func (q *qdrantTalentPool) Init(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if exists {
		return nil
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     q.vectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	q.log.Info("talent pool collection created", "collection", q.collectionName)
	return nil
}

// Index implements TalentPool. Re-indexing a fingerprint overwrites its point.
func (q *qdrantTalentPool) Index(ctx context.Context, eval *models.Evaluation) error {
	id, err := PointID(eval.Fingerprint)
	if err != nil {
		return err
	}
	vector, err := q.embedder.Embed(ctx, ProfileText(eval))
	if err != nil {
		return err
	}

	_, err = q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collectionName,
		Points: []*qdrant.PointStruct{{
			Id:      qdrant.NewIDNum(id),
			Vectors: qdrant.NewVectors(vector...),
			Payload: qdrant.NewValueMap(map[string]any{
				"fingerprint":    eval.Fingerprint,
				"candidate_name": eval.CandidateName,
				"unit":           eval.Unit,
				"role":           string(eval.Role),
				"band":           string(eval.Band),
			}),
		}},
	})
	if err != nil {
		return fmt.Errorf("failed to upsert point: %w", err)
	}
	return nil
}

// Similar implements TalentPool. The record itself is excluded.
func (q *qdrantTalentPool) Similar(ctx context.Context, eval *models.Evaluation, limit int) ([]models.SimilarCandidate, error) {
	vector, err := q.embedder.Embed(ctx, ProfileText(eval))
	if err != nil {
		return nil, err
	}

	points, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collectionName,
		Query:          qdrant.NewQuery(vector...),
		Filter: &qdrant.Filter{
			MustNot: []*qdrant.Condition{qdrant.NewMatch("fingerprint", eval.Fingerprint)},
		},
		Limit:       qdrant.PtrOf(uint64(limit)),
		WithPayload: qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	results := make([]models.SimilarCandidate, 0, len(points))
	for _, p := range points {
		results = append(results, models.SimilarCandidate{
			Fingerprint:   p.Payload["fingerprint"].GetStringValue(),
			CandidateName: p.Payload["candidate_name"].GetStringValue(),
			Unit:          p.Payload["unit"].GetStringValue(),
			Role:          p.Payload["role"].GetStringValue(),
			Score:         p.Score,
		})
	}
	return results, nil
}

// Reset implements TalentPool.
func (q *qdrantTalentPool) Reset(ctx context.Context) error {
	if err := q.client.DeleteCollection(ctx, q.collectionName); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	return q.Init(ctx)
}

type disabledTalentPool struct{}

// NewDisabledTalentPool is used when QDRANT_URL is empty.
func NewDisabledTalentPool() TalentPool {
	return disabledTalentPool{}
}

func (disabledTalentPool) Init(context.Context) error                      { return nil }
func (disabledTalentPool) Index(context.Context, *models.Evaluation) error { return nil }
func (disabledTalentPool) Reset(context.Context) error                     { return nil }

func (disabledTalentPool) Similar(context.Context, *models.Evaluation, int) ([]models.SimilarCandidate, error) {
	return nil, ErrTalentPoolDisabled
}

// PointID derives a stable numeric point id from the first 16 hex digits
// of a fingerprint.
func PointID(fingerprint string) (uint64, error) {
	if len(fingerprint) < 16 {
		return 0, fmt.Errorf("fingerprint too short: %q", fingerprint)
	}
	id, err := strconv.ParseUint(fingerprint[:16], 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid fingerprint %q: %w", fingerprint, err)
	}
	return id, nil
}

// ProfileText is the text embedded for a candidate.
func ProfileText(eval *models.Evaluation) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s. %s candidate for %s.\n", eval.CandidateName, eval.Role.Label(), eval.Unit)
	sb.WriteString(eval.Summary)
	if len(eval.Strengths) > 0 {
		sb.WriteString("\nStrengths: ")
		sb.WriteString(strings.Join(eval.Strengths, "; "))
	}
	return sb.String()
}
