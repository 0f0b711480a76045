package service

import "strings"

// Actor is the authenticated user performing an operation. Every write path
// takes it explicitly so change logs and fan-out never guess the author.
type Actor struct {
	ID   uint
	Role string
}

// Audience selects the recipients of a change notification. An empty Role
// addresses every user except the author; otherwise every user with Role.
type Audience struct {
	Role string
}

func normalizeRole(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}
