package service

import "errors"

var (
	// ErrDocumentNotFound indicates the referenced document does not exist.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrChangeLogNotFound indicates the referenced change log does not exist.
	ErrChangeLogNotFound = errors.New("change log not found")
	// ErrNotificationNotFound indicates the notification is missing or belongs to another user.
	ErrNotificationNotFound = errors.New("notification not found")
	// ErrInvalidChangeLog marks change log input rejected before any write.
	ErrInvalidChangeLog = errors.New("invalid change log")
	// ErrInvalidEntityType marks an unknown entity type in a request.
	ErrInvalidEntityType = errors.New("invalid entity type")
	// ErrNoChanges is returned by Record when an update changed nothing tracked.
	ErrNoChanges = errors.New("no tracked fields changed")
	// ErrUnauthenticated indicates the caller has no actor identity.
	ErrUnauthenticated = errors.New("actor identity required")
	// ErrEmptySearch is returned when a document search has no query text.
	ErrEmptySearch = errors.New("search query is required")
	// ErrEmptyNotification is returned when a published notification has no text left after sanitizing.
	ErrEmptyNotification = errors.New("notification content empty after sanitization")
)
