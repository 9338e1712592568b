package domain

import (
	"fmt"
	"strings"
	"time"
)

// TicketUpdateType differentiates entries in the update trail.
type TicketUpdateType string

const (
	UpdateTypeComment      TicketUpdateType = "comment"
	UpdateTypeStatusChange TicketUpdateType = "status_change"
	UpdateTypeAssignment   TicketUpdateType = "assignment"
	UpdateTypeInternalNote TicketUpdateType = "internal_note"
)

// ParseTicketUpdateType normalizes an update type. Empty input yields comment.
func ParseTicketUpdateType(value string) (TicketUpdateType, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return UpdateTypeComment, nil
	}
	switch kind := TicketUpdateType(strings.ToLower(trimmed)); kind {
	case UpdateTypeComment, UpdateTypeStatusChange, UpdateTypeAssignment, UpdateTypeInternalNote:
		return kind, nil
	default:
		return "", fmt.Errorf("unknown update type %q", value)
	}
}

// TicketUpdate is an append-only entry in a ticket's trail.
type TicketUpdate struct {
	ID         string
	TicketID   string
	AuthorID   string
	Message    string
	Type       TicketUpdateType
	IsInternal bool
	OldValue   *string
	NewValue   *string
	CreatedAt  time.Time
	UpdatedAt  time.Time

	Author *User
}
