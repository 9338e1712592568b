package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/benleytuano/ts-api-service/internal/domain"
)

// Store-level errors. Implementations wrap these so callers can match with errors.Is.
var (
	ErrNotFound         = errors.New("record not found")
	ErrInvalidReference = errors.New("referenced record does not exist")
	ErrStillReferenced  = errors.New("record is still referenced")
	ErrDuplicate        = errors.New("record already exists")
	ErrConstraint       = errors.New("constraint violated")
	ErrEmptyChange      = errors.New("conditional update without changes")
)

// TicketFilter narrows ticket queries.
type TicketFilter struct {
	RequesterID *string
	AssigneeID  *string
	Statuses    []domain.TicketStatus
	// Limit of zero or less returns every matching row.
	Limit  int
	Offset int
}

// TicketGuard is the predicate a row must satisfy at write time for a conditional update to apply.
type TicketGuard struct {
	Unassigned bool
	AssigneeID *string
	Statuses   []domain.TicketStatus
}

// Assignment writes assignee_id and assigned_at together. An empty AssigneeID clears both.
type Assignment struct {
	AssigneeID string
	At         time.Time
}

// TicketChange lists the lifecycle fields written by a conditional update.
type TicketChange struct {
	Assignment *Assignment
	Status     *domain.TicketStatus
	UpdatedAt  time.Time
}

// ClearAssignment releases the ticket.
func ClearAssignment() *Assignment {
	return &Assignment{}
}

// AssignTo hands the ticket to userID at the given instant.
func AssignTo(userID string, at time.Time) *Assignment {
	return &Assignment{AssigneeID: userID, At: at}
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	// ConditionalUpdate applies change only when the row matches guard, as one atomic statement.
	// It returns the number of rows changed: 0 when the guard did not hold or the row is absent.
	ConditionalUpdate(ctx context.Context, id string, guard TicketGuard, change TicketChange) (int64, error)
	Delete(ctx context.Context, id string) error
}

// TicketUpdateRepository persists the append-only update trail.
type TicketUpdateRepository interface {
	Append(ctx context.Context, update *domain.TicketUpdate) error
	ListByTicket(ctx context.Context, ticketID string, includeInternal bool) ([]domain.TicketUpdate, error)
}

// UserRepository manages identities referenced by tickets.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// Delete clears assignments held by the user and removes it. Requesters and update authors
	// cannot be removed while referenced.
	Delete(ctx context.Context, id string) error
}

// ReferenceRepository serves categories, departments and locations.
type ReferenceRepository interface {
	Create(ctx context.Context, ref *domain.Reference) error
	Get(ctx context.Context, kind domain.ReferenceKind, id string) (*domain.Reference, error)
	List(ctx context.Context, kind domain.ReferenceKind) ([]domain.Reference, error)
}

// NewID returns a time-ordered identifier for new rows.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// IsID reports whether value has the shape of a row identifier.
func IsID(value string) bool {
	_, err := uuid.Parse(value)
	return err == nil
}

// Validate rejects changes that would write nothing.
func (c TicketChange) Validate() error {
	if c.Assignment == nil && c.Status == nil {
		return ErrEmptyChange
	}
	return nil
}

// StatusStrings converts statuses to their stored form.
func StatusStrings(statuses []domain.TicketStatus) []string {
	result := make([]string, len(statuses))
	for i, status := range statuses {
		result[i] = string(status)
	}
	return result
}

// StampTimes fills zero creation and update timestamps.
func StampTimes(created, updated *time.Time, now time.Time) {
	if created.IsZero() {
		*created = now
	}
	if updated.IsZero() {
		*updated = *created
	}
}
