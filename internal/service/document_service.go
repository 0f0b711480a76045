package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/railrules-api/internal/dto"
	"github.com/noah-isme/railrules-api/internal/models"
	"github.com/noah-isme/railrules-api/internal/repository"
)

// DocumentService manages rules, manuals and the other tracked documents.
// Every write records a change log for the acting user.
type DocumentService interface {
	Create(ctx context.Context, actor Actor, req dto.DocumentCreateRequest) (dto.DocumentResponse, error)
	Get(ctx context.Context, id uint) (dto.DocumentResponse, error)
	GetHighlighted(ctx context.Context, viewer Actor, id uint) (dto.HighlightedDocumentResponse, error)
	List(ctx context.Context, req dto.DocumentListRequest) (dto.DocumentListResponse, error)
	Search(ctx context.Context, query string, page, pageSize int) (dto.DocumentListResponse, error)
	Update(ctx context.Context, actor Actor, id uint, req dto.DocumentUpdateRequest) (dto.DocumentResponse, error)
	Delete(ctx context.Context, actor Actor, id uint, req dto.DocumentDeleteRequest) error
	Acknowledge(ctx context.Context, viewer Actor, id uint) (dto.AcknowledgeResponse, error)
}

type documentService struct {
	repo       repository.DocumentRepository
	changelogs ChangeLogService
	highlights HighlightService
	validator  *validator.Validate
	logger     zerolog.Logger
}

// NewDocumentService constructs a document service.
func NewDocumentService(repo repository.DocumentRepository, changelogs ChangeLogService, highlights HighlightService, validate *validator.Validate, logger zerolog.Logger) DocumentService {
	if validate == nil {
		validate = validator.New()
	}
	return &documentService{
		repo:       repo,
		changelogs: changelogs,
		highlights: highlights,
		validator:  validate,
		logger:     logger.With().Str("component", "document_service").Logger(),
	}
}

func (s *documentService) Create(ctx context.Context, actor Actor, req dto.DocumentCreateRequest) (dto.DocumentResponse, error) {
	if actor.ID == 0 {
		return dto.DocumentResponse{}, ErrUnauthenticated
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.DocumentResponse{}, err
	}
	entityType, ok := models.ParseEntityType(req.EntityType)
	if !ok {
		return dto.DocumentResponse{}, ErrInvalidEntityType
	}

	document := models.Document{
		EntityType:  entityType,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		CreatedBy:   actor.ID,
		UpdatedBy:   actor.ID,
	}
	if err := s.repo.Create(ctx, &document); err != nil {
		return dto.DocumentResponse{}, fmt.Errorf("create document: %w", err)
	}

	_, err := s.changelogs.Record(ctx, BuildInput{
		EntityType: document.EntityType,
		EntityID:   document.ID,
		Action:     models.ActionCreate,
		New:        snapshotOf(document),
		Metadata:   metadataFor(actor, req.Reason, req.SupportingDoc),
	}, Audience{Role: req.NotifyRole})
	if err != nil {
		return dto.DocumentResponse{}, err
	}

	s.logger.Info().Uint("document_id", document.ID).Str("entity_type", string(document.EntityType)).Uint("actor_id", actor.ID).Msg("document created")
	return dto.NewDocumentResponse(document), nil
}

func (s *documentService) Get(ctx context.Context, id uint) (dto.DocumentResponse, error) {
	document, err := s.find(ctx, id)
	if err != nil {
		return dto.DocumentResponse{}, err
	}
	return dto.NewDocumentResponse(document), nil
}

func (s *documentService) GetHighlighted(ctx context.Context, viewer Actor, id uint) (dto.HighlightedDocumentResponse, error) {
	if viewer.ID == 0 {
		return dto.HighlightedDocumentResponse{}, ErrUnauthenticated
	}
	document, err := s.find(ctx, id)
	if err != nil {
		return dto.HighlightedDocumentResponse{}, err
	}

	highlight, err := s.highlights.Highlight(ctx, viewer.ID, document.EntityType, document.ID, document.Description)
	if err != nil {
		return dto.HighlightedDocumentResponse{}, err
	}

	return dto.HighlightedDocumentResponse{
		Document:  dto.NewDocumentResponse(document),
		Highlight: highlight,
	}, nil
}

func (s *documentService) List(ctx context.Context, req dto.DocumentListRequest) (dto.DocumentListResponse, error) {
	filter := repository.DocumentFilter{
		Page:     normalizePage(req.Page),
		PageSize: clampPageSize(req.PageSize),
		Search:   strings.TrimSpace(req.Search),
	}
	if strings.TrimSpace(req.EntityType) != "" {
		entityType, ok := models.ParseEntityType(req.EntityType)
		if !ok {
			return dto.DocumentListResponse{}, ErrInvalidEntityType
		}
		filter.EntityType = entityType
	}

	documents, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return dto.DocumentListResponse{}, err
	}

	items := make([]dto.DocumentResponse, 0, len(documents))
	for _, document := range documents {
		items = append(items, dto.NewDocumentResponse(document))
	}

	return dto.DocumentListResponse{
		Items: items,
		Pagination: dto.PaginationMeta{
			Page:       filter.Page,
			PageSize:   filter.PageSize,
			TotalItems: total,
			TotalPages: calculateTotalPages(total, filter.PageSize),
		},
	}, nil
}

// Search is a case-insensitive substring lookup across every document type.
func (s *documentService) Search(ctx context.Context, query string, page, pageSize int) (dto.DocumentListResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return dto.DocumentListResponse{}, ErrEmptySearch
	}
	return s.List(ctx, dto.DocumentListRequest{Page: page, PageSize: pageSize, Search: query})
}

// Update validates the change log before saving the new fields, then commits
// it. A failure to persist the change log is returned even though the document
// write already happened; a change that touches no tracked text (markup only)
// is saved without a change log.
func (s *documentService) Update(ctx context.Context, actor Actor, id uint, req dto.DocumentUpdateRequest) (dto.DocumentResponse, error) {
	if actor.ID == 0 {
		return dto.DocumentResponse{}, ErrUnauthenticated
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.DocumentResponse{}, err
	}

	document, err := s.find(ctx, id)
	if err != nil {
		return dto.DocumentResponse{}, err
	}

	previous := snapshotOf(document)
	if req.Title != nil {
		document.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		document.Description = *req.Description
	}
	if snapshotOf(document) == previous {
		return dto.NewDocumentResponse(document), nil
	}

	entry, err := s.changelogs.Prepare(BuildInput{
		EntityType: document.EntityType,
		EntityID:   document.ID,
		Action:     models.ActionUpdate,
		Old:        previous,
		New:        snapshotOf(document),
		Metadata:   metadataFor(actor, req.Reason, req.SupportingDoc),
	})
	tracked := true
	if err != nil {
		if !errors.Is(err, ErrNoChanges) {
			return dto.DocumentResponse{}, err
		}
		tracked = false
	}

	document.UpdatedBy = actor.ID
	if err := s.repo.Update(ctx, &document); err != nil {
		return dto.DocumentResponse{}, fmt.Errorf("update document: %w", err)
	}

	if tracked {
		if _, err := s.changelogs.Commit(ctx, entry, Audience{Role: req.NotifyRole}); err != nil {
			return dto.DocumentResponse{}, err
		}
	}

	s.logger.Info().Uint("document_id", document.ID).Uint("actor_id", actor.ID).Msg("document updated")
	return dto.NewDocumentResponse(document), nil
}

func (s *documentService) Delete(ctx context.Context, actor Actor, id uint, req dto.DocumentDeleteRequest) error {
	if actor.ID == 0 {
		return ErrUnauthenticated
	}
	if err := s.validator.Struct(req); err != nil {
		return err
	}

	document, err := s.find(ctx, id)
	if err != nil {
		return err
	}

	entry, err := s.changelogs.Prepare(BuildInput{
		EntityType: document.EntityType,
		EntityID:   document.ID,
		Action:     models.ActionDelete,
		Old:        snapshotOf(document),
		Metadata:   metadataFor(actor, req.Reason, req.SupportingDoc),
	})
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, document.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrDocumentNotFound
		}
		return fmt.Errorf("delete document: %w", err)
	}

	if _, err := s.changelogs.Commit(ctx, entry, Audience{Role: req.NotifyRole}); err != nil {
		return err
	}

	s.logger.Info().Uint("document_id", document.ID).Uint("actor_id", actor.ID).Msg("document deleted")
	return nil
}

func (s *documentService) Acknowledge(ctx context.Context, viewer Actor, id uint) (dto.AcknowledgeResponse, error) {
	if viewer.ID == 0 {
		return dto.AcknowledgeResponse{}, ErrUnauthenticated
	}
	document, err := s.find(ctx, id)
	if err != nil {
		return dto.AcknowledgeResponse{}, err
	}

	updated, err := s.highlights.Acknowledge(ctx, viewer.ID, document.EntityType, document.ID)
	if err != nil {
		return dto.AcknowledgeResponse{}, err
	}

	return dto.AcknowledgeResponse{
		EntityType: document.EntityType,
		EntityID:   document.ID,
		Updated:    updated,
	}, nil
}

func (s *documentService) find(ctx context.Context, id uint) (models.Document, error) {
	document, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Document{}, ErrDocumentNotFound
		}
		return models.Document{}, err
	}
	return document, nil
}

func snapshotOf(document models.Document) Snapshot {
	return Snapshot{Title: document.Title, Description: document.Description}
}

func metadataFor(actor Actor, reason, supportingDoc string) ChangeMetadata {
	return ChangeMetadata{Reason: reason, SupportingDoc: supportingDoc, AuthorUserID: actor.ID}
}
