package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/railrules-api/internal/dto"
	"github.com/noah-isme/railrules-api/internal/models"
	"github.com/noah-isme/railrules-api/internal/observability"
	"github.com/noah-isme/railrules-api/internal/repository"
)

// ChangeDispatcher notifies users about a persisted change log.
type ChangeDispatcher interface {
	Dispatch(ctx context.Context, entry models.ChangeLog, audience Audience)
}

// ChangeLogService records and queries the change audit trail.
type ChangeLogService interface {
	Record(ctx context.Context, input BuildInput, audience Audience) (models.ChangeLog, error)
	Prepare(input BuildInput) (models.ChangeLog, error)
	Commit(ctx context.Context, entry models.ChangeLog, audience Audience) (models.ChangeLog, error)
	Get(ctx context.Context, id uint) (dto.ChangeLogResponse, error)
	List(ctx context.Context, req dto.ChangeLogListRequest) (dto.ChangeLogListResponse, error)
}

type changeLogService struct {
	repo       repository.ChangeLogRepository
	builder    *ChangeLogBuilder
	dispatcher ChangeDispatcher
	logger     zerolog.Logger
	tracer     trace.Tracer
}

// NewChangeLogService constructs a change log service. dispatcher may be nil.
func NewChangeLogService(repo repository.ChangeLogRepository, builder *ChangeLogBuilder, dispatcher ChangeDispatcher, logger zerolog.Logger) ChangeLogService {
	if builder == nil {
		builder = NewChangeLogBuilder(0)
	}
	return &changeLogService{
		repo:       repo,
		builder:    builder,
		dispatcher: dispatcher,
		logger:     logger.With().Str("component", "changelog_service").Logger(),
		tracer:     otel.Tracer("github.com/noah-isme/railrules-api/internal/service/changelog"),
	}
}

// Record prepares and commits a change log in one step. An UPDATE that
// changed no tracked field returns ErrNoChanges and writes nothing.
func (s *changeLogService) Record(ctx context.Context, input BuildInput, audience Audience) (models.ChangeLog, error) {
	entry, err := s.Prepare(input)
	if err != nil {
		return models.ChangeLog{}, err
	}
	return s.Commit(ctx, entry, audience)
}

// Prepare builds and validates a change log without touching any store, so
// callers can reject a mutation before writing the entity itself.
func (s *changeLogService) Prepare(input BuildInput) (models.ChangeLog, error) {
	entry, err := s.builder.Build(input)
	if err != nil {
		return models.ChangeLog{}, err
	}

	changes := entry.Changes.Data()
	if entry.Action == models.ActionUpdate && len(changes.FieldChanges) == 0 {
		return models.ChangeLog{}, ErrNoChanges
	}
	if err := validateChangeSet(changes); err != nil {
		return models.ChangeLog{}, err
	}
	return entry, nil
}

// Commit persists a prepared change log and fans it out to the audience.
func (s *changeLogService) Commit(ctx context.Context, entry models.ChangeLog, audience Audience) (models.ChangeLog, error) {
	spanCtx, span := s.tracer.Start(ctx, "changelogs.commit", trace.WithAttributes(
		attribute.String("changelog.entity_type", string(entry.EntityType)),
		attribute.Int64("changelog.entity_id", int64(entry.EntityID)),
		attribute.String("changelog.action", string(entry.Action)),
	))
	defer span.End()

	if entry.ID != 0 {
		return models.ChangeLog{}, fmt.Errorf("%w: change log %d already committed", ErrInvalidChangeLog, entry.ID)
	}

	if err := s.repo.Create(spanCtx, &entry); err != nil {
		span.RecordError(err)
		return models.ChangeLog{}, fmt.Errorf("persist change log: %w", err)
	}

	observability.ChangeLogsRecorded().WithLabelValues(string(entry.EntityType), string(entry.Action)).Inc()
	s.logger.Info().
		Uint("changelog_id", entry.ID).
		Str("entity_type", string(entry.EntityType)).
		Uint("entity_id", entry.EntityID).
		Str("action", string(entry.Action)).
		Uint("author_user_id", entry.AuthorUserID).
		Int("field_changes", len(entry.Changes.Data().FieldChanges)).
		Msg("change log recorded")

	if s.dispatcher != nil {
		s.dispatcher.Dispatch(context.WithoutCancel(spanCtx), entry, audience)
	}

	return entry, nil
}

func (s *changeLogService) Get(ctx context.Context, id uint) (dto.ChangeLogResponse, error) {
	entry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ChangeLogResponse{}, ErrChangeLogNotFound
		}
		return dto.ChangeLogResponse{}, err
	}
	return dto.NewChangeLogResponse(entry), nil
}

func (s *changeLogService) List(ctx context.Context, req dto.ChangeLogListRequest) (dto.ChangeLogListResponse, error) {
	filter := repository.ChangeLogFilter{
		Page:     normalizePage(req.Page),
		PageSize: clampPageSize(req.PageSize),
	}

	if strings.TrimSpace(req.EntityType) != "" {
		entityType, ok := models.ParseEntityType(req.EntityType)
		if !ok {
			return dto.ChangeLogListResponse{}, ErrInvalidEntityType
		}
		filter.EntityType = entityType
	}
	if strings.TrimSpace(req.Action) != "" {
		action := models.ChangeAction(strings.ToUpper(strings.TrimSpace(req.Action)))
		if !action.Valid() {
			return dto.ChangeLogListResponse{}, fmt.Errorf("%w: unknown action %q", ErrInvalidChangeLog, req.Action)
		}
		filter.Action = action
	}
	if req.EntityID > 0 {
		entityID := req.EntityID
		filter.EntityID = &entityID
	}
	if req.AuthorID > 0 {
		authorID := req.AuthorID
		filter.AuthorUserID = &authorID
	}

	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return dto.ChangeLogListResponse{}, err
	}

	items := make([]dto.ChangeLogResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.NewChangeLogResponse(entry))
	}

	return dto.ChangeLogListResponse{
		Items: items,
		Pagination: dto.PaginationMeta{
			Page:       filter.Page,
			PageSize:   filter.PageSize,
			TotalItems: total,
			TotalPages: calculateTotalPages(total, filter.PageSize),
		},
	}, nil
}
