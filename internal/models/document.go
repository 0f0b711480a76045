package models

import "time"

// Document is a piece of managed content: a rule, manual, circular, chapter,
// rule link or rule book. Description carries rich-text markup whose
// id-tagged <div> sections are tracked across edits.
type Document struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	EntityType  EntityType `gorm:"size:32;not null;index" json:"entity_type"`
	Title       string     `gorm:"size:255;not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	CreatedBy   uint       `gorm:"index" json:"created_by"`
	UpdatedBy   uint       `json:"updated_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
