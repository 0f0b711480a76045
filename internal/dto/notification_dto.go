package dto

import (
	"time"

	"github.com/noah-isme/railrules-api/internal/models"
)

// NotificationCreateRequest describes the payload to create a single notification.
type NotificationCreateRequest struct {
	UserID     uint   `json:"user_id" validate:"required"`
	Title      string `json:"title" validate:"required,min=1,max=255"`
	Type       string `json:"type" validate:"required,oneof=INFO SUCCESS WARNING ERROR CHANGE"`
	Message    string `json:"message" validate:"required,min=1,max=2000"`
	EntityType string `json:"entity_type" validate:"omitempty,max=32"`
	EntityID   *uint  `json:"entity_id"`
}

// NotificationListQuery holds listing options for the current user.
type NotificationListQuery struct {
	Limit      int
	Offset     int
	UnreadOnly bool
}

// NotificationBulkReadRequest marks several notifications read at once.
type NotificationBulkReadRequest struct {
	IDs []uint `json:"ids" validate:"required,min=1,max=500,dive,required"`
}

// NotificationResponse represents notification data returned to clients.
type NotificationResponse struct {
	ID          uint                    `json:"id"`
	UserID      uint                    `json:"user_id"`
	Title       string                  `json:"title"`
	Message     string                  `json:"message"`
	Type        models.NotificationType `json:"type"`
	EntityType  models.EntityType       `json:"entity_type,omitempty"`
	EntityID    *uint                   `json:"entity_id,omitempty"`
	ChangeLogID *uint                   `json:"changelog_id,omitempty"`
	IsRead      bool                    `json:"is_read"`
	ReadAt      *time.Time              `json:"read_at,omitempty"`
	CreatedAt   time.Time               `json:"created_at"`
}

// NotificationCountResponse reports the number of unread notifications.
type NotificationCountResponse struct {
	Unread int64 `json:"unread"`
}

// NotificationBulkResponse reports how many rows a bulk operation touched.
type NotificationBulkResponse struct {
	Affected int64 `json:"affected"`
}

// NewNotificationResponse converts a notification model to DTO.
func NewNotificationResponse(model models.Notification) NotificationResponse {
	return NotificationResponse{
		ID:          model.ID,
		UserID:      model.UserID,
		Title:       model.Title,
		Message:     model.Message,
		Type:        model.Type,
		EntityType:  model.EntityType,
		EntityID:    model.EntityID,
		ChangeLogID: model.ChangeLogID,
		IsRead:      model.IsRead,
		ReadAt:      model.ReadAt,
		CreatedAt:   model.CreatedAt,
	}
}

// NewNotificationResponseSlice converts a slice to DTOs.
func NewNotificationResponseSlice(items []models.Notification) []NotificationResponse {
	out := make([]NotificationResponse, 0, len(items))
	for _, item := range items {
		out = append(out, NewNotificationResponse(item))
	}
	return out
}
