package dto

import (
	"time"

	"github.com/noah-isme/railrules-api/internal/models"
)

// ChangeLogListRequest defines filters for listing change logs.
type ChangeLogListRequest struct {
	Page       int    `query:"page"`
	PageSize   int    `query:"page_size"`
	EntityType string `query:"entity_type"`
	EntityID   uint   `query:"entity_id"`
	Action     string `query:"action"`
	AuthorID   uint   `query:"author_id"`
}

// ChangeLogResponse is the serialized representation of a change log entry.
type ChangeLogResponse struct {
	ID            uint                `json:"id"`
	EntityType    models.EntityType   `json:"entity_type"`
	EntityID      uint                `json:"entity_id"`
	Action        models.ChangeAction `json:"action"`
	Changes       models.ChangeSet    `json:"changes"`
	Reason        string              `json:"reason,omitempty"`
	SupportingDoc string              `json:"supporting_doc,omitempty"`
	AuthorUserID  uint                `json:"author_user_id"`
	CreatedAt     time.Time           `json:"created_at"`
}

// ChangeLogListResponse wraps a paginated change log listing.
type ChangeLogListResponse struct {
	Items      []ChangeLogResponse `json:"items"`
	Pagination PaginationMeta      `json:"pagination"`
}

// NewChangeLogResponse converts a model into a DTO.
func NewChangeLogResponse(model models.ChangeLog) ChangeLogResponse {
	changes := model.Changes.Data()
	if changes.FieldChanges == nil {
		changes.FieldChanges = []models.FieldChange{}
	}
	return ChangeLogResponse{
		ID:            model.ID,
		EntityType:    model.EntityType,
		EntityID:      model.EntityID,
		Action:        model.Action,
		Changes:       changes,
		Reason:        model.Reason,
		SupportingDoc: model.SupportingDoc,
		AuthorUserID:  model.AuthorUserID,
		CreatedAt:     model.CreatedAt,
	}
}
