package models

import "time"

// NotificationType classifies a notification for display.
type NotificationType string

const (
	NotificationInfo    NotificationType = "INFO"
	NotificationSuccess NotificationType = "SUCCESS"
	NotificationWarning NotificationType = "WARNING"
	NotificationError   NotificationType = "ERROR"
	NotificationChange  NotificationType = "CHANGE"
)

// NotificationTypeFor maps a change action to the notification type shown to users.
func NotificationTypeFor(action ChangeAction) NotificationType {
	switch action {
	case ActionCreate:
		return NotificationSuccess
	case ActionUpdate:
		return NotificationWarning
	case ActionDelete:
		return NotificationError
	default:
		return NotificationInfo
	}
}

// Notification is a message addressed to a single user, optionally linked to
// the entity and change log that triggered it.
type Notification struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	UserID      uint             `gorm:"not null;index:idx_notification_user" json:"user_id"`
	Title       string           `gorm:"size:255;not null" json:"title"`
	Message     string           `gorm:"type:text" json:"message"`
	Type        NotificationType `gorm:"size:16;not null" json:"type"`
	EntityType  EntityType       `gorm:"size:32;index:idx_notification_entity" json:"entity_type,omitempty"`
	EntityID    *uint            `gorm:"index:idx_notification_entity" json:"entity_id,omitempty"`
	ChangeLogID *uint            `gorm:"index" json:"changelog_id,omitempty"`
	IsRead      bool             `gorm:"not null;default:false;index:idx_notification_user" json:"is_read"`
	ReadAt      *time.Time       `json:"read_at,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}
