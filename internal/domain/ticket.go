package domain

import (
	"fmt"
	"strings"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

// ActiveStatuses are the states in which a ticket can still change hands or be resolved.
var ActiveStatuses = []TicketStatus{TicketStatusOpen, TicketStatusInProgress}

// IsTerminal reports whether the engine treats the status as finished work.
func (s TicketStatus) IsTerminal() bool {
	return s == TicketStatusResolved || s == TicketStatusClosed
}

// ParseTicketStatus normalizes a status value, rejecting anything outside the vocabulary.
func ParseTicketStatus(value string) (TicketStatus, error) {
	switch status := TicketStatus(strings.ToLower(strings.TrimSpace(value))); status {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed:
		return status, nil
	default:
		return "", fmt.Errorf("unknown ticket status %q", value)
	}
}

// TicketPriority enumerates urgency levels.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
)

// ParseTicketPriority normalizes a priority value. Empty input yields the medium default.
func ParseTicketPriority(value string) (TicketPriority, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return TicketPriorityMedium, nil
	}
	switch priority := TicketPriority(strings.ToLower(trimmed)); priority {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh:
		return priority, nil
	default:
		return "", fmt.Errorf("unknown ticket priority %q", value)
	}
}

// Ticket is the aggregate for support requests. Related entities are attached on read.
type Ticket struct {
	ID               string
	RequesterID      string
	AssigneeID       *string
	AssignedAt       *time.Time
	Title            string
	Description      string
	CategoryID       string
	DepartmentID     *string
	LocationID       *string
	Priority         TicketPriority
	Status           TicketStatus
	ContactNumber    *string
	PatientName      *string
	EquipmentDetails *string
	CreatedAt        time.Time
	UpdatedAt        time.Time

	Requester  *User
	Assignee   *User
	Category   *Reference
	Department *Reference
	Location   *Reference
}

// IsAssigned reports whether someone currently holds the ticket.
func (t *Ticket) IsAssigned() bool {
	return t.AssigneeID != nil
}

// IsAssignedTo reports whether the given identity holds the ticket.
func (t *Ticket) IsAssignedTo(userID string) bool {
	return t.AssigneeID != nil && *t.AssigneeID == userID
}
