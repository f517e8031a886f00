package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"examia/internal/apperr"
	"examia/internal/auth"
	"examia/internal/model"
	"examia/internal/repository"
)

var tracer = otel.Tracer("examia/internal/service")

// Authorizer checks the capability presented on a mutating call.
type Authorizer interface {
	Authorize(c auth.Capability) error
}

// CatalogService defines the catalog use cases shared by the HTTP server and the local replica.
type CatalogService interface {
	// Query returns the questions matching every set field of f, in insertion order.
	Query(ctx context.Context, f model.Filter) ([]model.Question, error)

	// Insert authorizes, validates and stores q. Nothing is stored on any failure path.
	Insert(ctx context.Context, q model.Question, c auth.Capability) (string, error)

	// Delete removes the question with the given id, or reports apperr.ErrNotFound.
	Delete(ctx context.Context, id string, c auth.Capability) error
}

type catalogService struct {
	gate Authorizer
	repo repository.QuestionRepository
	now  func() time.Time
}

// NewCatalogService constructs a CatalogService over any question repository.
func NewCatalogService(gate Authorizer, repo repository.QuestionRepository) CatalogService {
	return &catalogService{gate: gate, repo: repo, now: time.Now}
}

func (s *catalogService) Query(ctx context.Context, f model.Filter) ([]model.Question, error) {
	ctx, span := tracer.Start(ctx, "catalog.query", trace.WithAttributes(
		attribute.String("catalog.subject", f.Subject),
		attribute.Int("catalog.year", f.Year),
		attribute.String("catalog.mode", string(f.Mode)),
		attribute.String("catalog.bucket", f.Bucket),
	))
	defer span.End()

	items, err := s.repo.List(ctx, f)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list failed")
		return nil, fmt.Errorf("query questions: %w", err)
	}
	if items == nil {
		items = []model.Question{}
	}
	span.SetAttributes(attribute.Int("catalog.results", len(items)))
	return items, nil
}

func (s *catalogService) Insert(ctx context.Context, q model.Question, c auth.Capability) (string, error) {
	ctx, span := tracer.Start(ctx, "catalog.insert")
	defer span.End()

	if err := s.gate.Authorize(c); err != nil {
		return "", err
	}
	if err := ValidateQuestion(q); err != nil {
		return "", err
	}

	q.ID = uuid.New().String()
	q.CreatedAt = s.now().UTC()

	stored, err := s.repo.Create(ctx, &q)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create failed")
		return "", fmt.Errorf("insert question: %w", err)
	}
	span.SetAttributes(attribute.String("catalog.id", stored.ID))
	return stored.ID, nil
}

func (s *catalogService) Delete(ctx context.Context, id string, c auth.Capability) error {
	ctx, span := tracer.Start(ctx, "catalog.delete", trace.WithAttributes(attribute.String("catalog.id", id)))
	defer span.End()

	if err := s.gate.Authorize(c); err != nil {
		return err
	}
	if blank(id) {
		return apperr.Validation("id is required")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFound("question not found")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete failed")
		return fmt.Errorf("delete question: %w", err)
	}
	return nil
}
