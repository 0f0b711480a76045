package models

import "strings"

// EntityType identifies the kind of content a change record describes.
type EntityType string

const (
	EntityRule     EntityType = "RULE"
	EntityManual   EntityType = "MANUAL"
	EntityCircular EntityType = "CIRCULAR"
	EntityChapter  EntityType = "CHAPTER"
	EntityRuleLink EntityType = "RULE_LINK"
	EntityRuleBook EntityType = "RULE_BOOK"
)

// EntityTypes lists every supported entity type.
var EntityTypes = []EntityType{EntityRule, EntityManual, EntityCircular, EntityChapter, EntityRuleLink, EntityRuleBook}

// Valid reports whether e is a known entity type.
func (e EntityType) Valid() bool {
	for _, known := range EntityTypes {
		if e == known {
			return true
		}
	}
	return false
}

// Label renders the type for humans: "RULE_BOOK" becomes "rule book".
func (e EntityType) Label() string {
	return strings.ReplaceAll(strings.ToLower(string(e)), "_", " ")
}

// ParseEntityType accepts any casing and dashes in place of underscores.
func ParseEntityType(value string) (EntityType, bool) {
	normalized := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(value), "-", "_"))
	entity := EntityType(normalized)
	return entity, entity.Valid()
}

// ChangeAction is the kind of mutation recorded in a change log.
type ChangeAction string

const (
	ActionCreate ChangeAction = "CREATE"
	ActionUpdate ChangeAction = "UPDATE"
	ActionDelete ChangeAction = "DELETE"
)

// Valid reports whether a is a known action.
func (a ChangeAction) Valid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete:
		return true
	default:
		return false
	}
}
