package models

import (
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrChangeLogImmutable is returned when an update to a persisted change log is attempted.
var ErrChangeLogImmutable = errors.New("change log entries are immutable")

// ContentKind describes how a field's value should be interpreted.
type ContentKind string

const (
	ContentText ContentKind = "text"
	ContentHTML ContentKind = "html"
	ContentJSON ContentKind = "json"
	ContentFile ContentKind = "file"
)

// FieldOperation is the per-field effect of a change.
type FieldOperation string

const (
	FieldAdd    FieldOperation = "add"
	FieldModify FieldOperation = "modify"
	FieldDelete FieldOperation = "delete"
)

// DiffSegment is a run of words classified as add, remove or unchanged.
type DiffSegment struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// FieldChange records one changed field. Simple fields carry OldValue/NewValue,
// prose fields carry Diff; never both.
type FieldChange struct {
	Field       string         `json:"field"`
	ContentKind ContentKind    `json:"content_kind"`
	Operation   FieldOperation `json:"operation"`
	OldValue    *string        `json:"old_value,omitempty"`
	NewValue    *string        `json:"new_value,omitempty"`
	Diff        []DiffSegment  `json:"diff,omitempty"`
}

// ChangeSet is the structured payload stored with a change log.
type ChangeSet struct {
	FieldChanges    []FieldChange `json:"field_changes"`
	ChangedSections []string      `json:"changed_sections,omitempty"`
}

// ChangeLog is an immutable audit record of a content mutation.
type ChangeLog struct {
	ID            uint                          `gorm:"primaryKey" json:"id"`
	EntityType    EntityType                    `gorm:"size:32;not null;index:idx_changelog_entity" json:"entity_type"`
	EntityID      uint                          `gorm:"not null;index:idx_changelog_entity" json:"entity_id"`
	Action        ChangeAction                  `gorm:"size:16;not null;index" json:"action"`
	Changes       datatypes.JSONType[ChangeSet] `json:"changes"`
	Reason        string                        `gorm:"type:text" json:"reason"`
	SupportingDoc string                        `gorm:"size:512" json:"supporting_doc"`
	AuthorUserID  uint                          `gorm:"not null;index" json:"author_user_id"`
	CreatedAt     time.Time                     `gorm:"index" json:"created_at"`
}

// BeforeUpdate rejects every update so entries stay append-only.
func (c *ChangeLog) BeforeUpdate(tx *gorm.DB) error {
	return ErrChangeLogImmutable
}
