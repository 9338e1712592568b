package events

import (
	"time"

	"github.com/benleytuano/ts-api-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated     EventType = "ticket_created"
	EventTicketClaimed     EventType = "ticket_claimed"
	EventTicketReassigned  EventType = "ticket_reassigned"
	EventTicketUnassigned  EventType = "ticket_unassigned"
	EventTicketResolved    EventType = "ticket_resolved"
	EventTicketDeleted     EventType = "ticket_deleted"
	EventTicketUpdateAdded EventType = "ticket_update_added"
)

// AllEventTypes lists every event the engine publishes.
var AllEventTypes = []EventType{
	EventTicketCreated,
	EventTicketClaimed,
	EventTicketReassigned,
	EventTicketUnassigned,
	EventTicketResolved,
	EventTicketDeleted,
	EventTicketUpdateAdded,
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string       `json:"id"`
	Type      EventType    `json:"type"`
	TicketID  string       `json:"ticket_id"`
	Actor     domain.Actor `json:"actor"`
	Timestamp time.Time    `json:"timestamp"`
	Payload   interface{}  `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	CategoryID   string                `json:"category_id"`
	DepartmentID *string               `json:"department_id,omitempty"`
	Priority     domain.TicketPriority `json:"priority"`
	Title        string                `json:"title"`
}

// AssignmentChangedPayload is shared by claim, reassign and unassign events.
type AssignmentChangedPayload struct {
	PreviousAssigneeID *string `json:"previous_assignee_id,omitempty"`
	AssigneeID         *string `json:"assignee_id,omitempty"`
}

// TicketResolvedPayload payload.
type TicketResolvedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketUpdateAddedPayload payload.
type TicketUpdateAddedPayload struct {
	UpdateID       string                  `json:"update_id"`
	Type           domain.TicketUpdateType `json:"type"`
	IsInternal     bool                    `json:"is_internal"`
	MessagePreview string                  `json:"message_preview"`
}
