package service

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"gorm.io/datatypes"

	"github.com/noah-isme/railrules-api/internal/models"
	"github.com/noah-isme/railrules-api/internal/textdiff"
)

const (
	fieldTitle       = "title"
	fieldDescription = "description"

	// summaryLimit caps the normalised text stored for created fields.
	summaryLimit = 500
)

// Snapshot is the tracked state of an entity before or after a change.
type Snapshot struct {
	Title       string
	Description string
}

// ChangeMetadata is the audit context supplied by the caller.
type ChangeMetadata struct {
	Reason        string
	SupportingDoc string
	AuthorUserID  uint
}

// BuildInput describes one mutation to be turned into a change log.
type BuildInput struct {
	EntityType models.EntityType
	EntityID   uint
	Action     models.ChangeAction
	Old        Snapshot
	New        Snapshot
	Metadata   ChangeMetadata
}

// ChangeLogBuilder compares snapshots and assembles change log entries.
type ChangeLogBuilder struct {
	differ textdiff.Differ
}

// NewChangeLogBuilder constructs a builder whose word diff scans lookahead
// words on a mismatch; non-positive values use textdiff.DefaultLookahead.
func NewChangeLogBuilder(lookahead int) *ChangeLogBuilder {
	return &ChangeLogBuilder{differ: textdiff.NewDiffer(lookahead)}
}

// Build returns an unsaved change log for input.
//
// CREATE stores truncated normalised summaries of populated fields. UPDATE
// emits a change only for fields that differ: the title verbatim, the
// description as a word diff over normalised text plus the ids of changed
// sections. DELETE carries no field changes.
func (b *ChangeLogBuilder) Build(input BuildInput) (models.ChangeLog, error) {
	if err := validateBuildInput(input); err != nil {
		return models.ChangeLog{}, err
	}

	changes := models.ChangeSet{FieldChanges: []models.FieldChange{}}
	switch input.Action {
	case models.ActionCreate:
		changes.FieldChanges = b.createChanges(input.New)
	case models.ActionUpdate:
		changes = b.updateChanges(input.Old, input.New)
	}

	return models.ChangeLog{
		EntityType:    input.EntityType,
		EntityID:      input.EntityID,
		Action:        input.Action,
		Changes:       datatypes.NewJSONType(changes),
		Reason:        strings.TrimSpace(input.Metadata.Reason),
		SupportingDoc: strings.TrimSpace(input.Metadata.SupportingDoc),
		AuthorUserID:  input.Metadata.AuthorUserID,
	}, nil
}

func validateBuildInput(input BuildInput) error {
	switch {
	case !input.EntityType.Valid():
		return fmt.Errorf("%w: unknown entity type %q", ErrInvalidChangeLog, input.EntityType)
	case !input.Action.Valid():
		return fmt.Errorf("%w: unknown action %q", ErrInvalidChangeLog, input.Action)
	case input.EntityID == 0:
		return fmt.Errorf("%w: entity id is required", ErrInvalidChangeLog)
	case input.Metadata.AuthorUserID == 0:
		return fmt.Errorf("%w: author is required", ErrInvalidChangeLog)
	}
	return nil
}

func (b *ChangeLogBuilder) createChanges(snapshot Snapshot) []models.FieldChange {
	changes := make([]models.FieldChange, 0, 2)
	fields := []struct {
		name  string
		value string
	}{
		{fieldTitle, snapshot.Title},
		{fieldDescription, snapshot.Description},
	}

	for _, field := range fields {
		summary := truncateRunes(textdiff.Normalize(field.value), summaryLimit)
		if summary == "" {
			continue
		}
		changes = append(changes, models.FieldChange{
			Field:       field.name,
			ContentKind: detectContentKind(field.value),
			Operation:   models.FieldAdd,
			NewValue:    &summary,
		})
	}
	return changes
}

func (b *ChangeLogBuilder) updateChanges(previous, current Snapshot) models.ChangeSet {
	changes := models.ChangeSet{FieldChanges: []models.FieldChange{}}

	if previous.Title != current.Title {
		change := models.FieldChange{
			Field:       fieldTitle,
			ContentKind: detectContentKind(current.Title),
			Operation:   fieldOperation(previous.Title, current.Title),
		}
		if previous.Title != "" {
			oldValue := previous.Title
			change.OldValue = &oldValue
		}
		if current.Title != "" {
			newValue := current.Title
			change.NewValue = &newValue
		}
		changes.FieldChanges = append(changes.FieldChanges, change)
	}

	if previous.Description != current.Description {
		oldText := textdiff.Normalize(previous.Description)
		newText := textdiff.Normalize(current.Description)
		if oldText != newText {
			kind := detectContentKind(current.Description)
			if current.Description == "" {
				kind = detectContentKind(previous.Description)
			}
			changes.FieldChanges = append(changes.FieldChanges, models.FieldChange{
				Field:       fieldDescription,
				ContentKind: kind,
				Operation:   fieldOperation(oldText, newText),
				Diff:        toDiffSegments(b.differ.Diff(oldText, newText)),
			})
			if sections := textdiff.ChangedSections(previous.Description, current.Description); len(sections) > 0 {
				changes.ChangedSections = sections
			}
		}
	}

	return changes
}

func fieldOperation(previous, current string) models.FieldOperation {
	switch {
	case previous == "":
		return models.FieldAdd
	case current == "":
		return models.FieldDelete
	default:
		return models.FieldModify
	}
}

func toDiffSegments(segments []textdiff.Segment) []models.DiffSegment {
	out := make([]models.DiffSegment, 0, len(segments))
	for _, segment := range segments {
		out = append(out, models.DiffSegment{Type: string(segment.Type), Content: segment.Content})
	}
	return out
}

func fromDiffSegments(segments []models.DiffSegment) []textdiff.Segment {
	out := make([]textdiff.Segment, 0, len(segments))
	for _, segment := range segments {
		out = append(out, textdiff.Segment{Type: textdiff.SegmentType(segment.Type), Content: segment.Content})
	}
	return out
}

// detectContentKind sniffs a field value. Markup that does not open with a
// recognised tag still counts as html when stripping it changes the text.
func detectContentKind(value string) models.ContentKind {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return models.ContentText
	}

	mime := mimetype.Detect([]byte(trimmed))
	if mime.Is("application/json") {
		if trimmed[0] == '{' || trimmed[0] == '[' {
			return models.ContentJSON
		}
		return models.ContentText
	}

	switch {
	case mime.Is("text/html"):
		return models.ContentHTML
	case !strings.HasPrefix(mime.String(), "text/"):
		return models.ContentFile
	case strings.ContainsRune(trimmed, '<') && textdiff.Normalize(trimmed) != strings.Join(strings.Fields(trimmed), " "):
		return models.ContentHTML
	default:
		return models.ContentText
	}
}

func truncateRunes(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return string(runes[:limit])
}
