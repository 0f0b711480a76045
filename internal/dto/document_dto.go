package dto

import (
	"time"

	"github.com/noah-isme/railrules-api/internal/models"
)

// DocumentCreateRequest creates a rule, manual, circular or other document.
type DocumentCreateRequest struct {
	EntityType    string `json:"entity_type" validate:"required"`
	Title         string `json:"title" validate:"required,min=1,max=255"`
	Description   string `json:"description" validate:"max=200000"`
	Reason        string `json:"reason" validate:"max=2000"`
	SupportingDoc string `json:"supporting_doc" validate:"omitempty,max=512"`
	NotifyRole    string `json:"notify_role" validate:"omitempty,max=32"`
}

// DocumentUpdateRequest changes the title and/or description of a document.
type DocumentUpdateRequest struct {
	Title         *string `json:"title" validate:"omitempty,min=1,max=255"`
	Description   *string `json:"description" validate:"omitempty,max=200000"`
	Reason        string  `json:"reason" validate:"max=2000"`
	SupportingDoc string  `json:"supporting_doc" validate:"omitempty,max=512"`
	NotifyRole    string  `json:"notify_role" validate:"omitempty,max=32"`
}

// DocumentDeleteRequest carries the audit metadata of a deletion.
type DocumentDeleteRequest struct {
	Reason        string `json:"reason" validate:"max=2000"`
	SupportingDoc string `json:"supporting_doc" validate:"omitempty,max=512"`
	NotifyRole    string `json:"notify_role" validate:"omitempty,max=32"`
}

// DocumentListRequest filters document listings. Search is a case-insensitive
// substring match on title and description.
type DocumentListRequest struct {
	Page       int
	PageSize   int
	EntityType string
	Search     string
}

// DocumentResponse is the serialized document.
type DocumentResponse struct {
	ID          uint              `json:"id"`
	EntityType  models.EntityType `json:"entity_type"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	CreatedBy   uint              `json:"created_by"`
	UpdatedBy   uint              `json:"updated_by"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// DocumentListResponse wraps a paginated document listing.
type DocumentListResponse struct {
	Items      []DocumentResponse `json:"items"`
	Pagination PaginationMeta     `json:"pagination"`
}

// HighlightResult is rendered content with unread changes marked.
type HighlightResult struct {
	HTML         string   `json:"html"`
	State        string   `json:"state"`
	ChangeLogIDs []uint   `json:"changelog_ids"`
	Words        []string `json:"words"`
}

// HighlightedDocumentResponse pairs a document with its highlighted rendering.
type HighlightedDocumentResponse struct {
	Document  DocumentResponse `json:"document"`
	Highlight HighlightResult  `json:"highlight"`
}

// AcknowledgeResponse reports the outcome of acknowledging an entity's changes.
type AcknowledgeResponse struct {
	EntityType models.EntityType `json:"entity_type"`
	EntityID   uint              `json:"entity_id"`
	Updated    int64             `json:"updated"`
}

// NewDocumentResponse converts a model into a DTO.
func NewDocumentResponse(model models.Document) DocumentResponse {
	return DocumentResponse{
		ID:          model.ID,
		EntityType:  model.EntityType,
		Title:       model.Title,
		Description: model.Description,
		CreatedBy:   model.CreatedBy,
		UpdatedBy:   model.UpdatedBy,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}
