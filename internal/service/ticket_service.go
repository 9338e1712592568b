package service

import (
	"context"
	"errors"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/benleytuano/ts-api-service/internal/auth"
	"github.com/benleytuano/ts-api-service/internal/domain"
	"github.com/benleytuano/ts-api-service/internal/events"
	"github.com/benleytuano/ts-api-service/internal/repository"
	apperrors "github.com/benleytuano/ts-api-service/pkg/util/errorutil"
)

// Listing bounds.
const (
	DefaultPageSize = 50
	MaxPageSize     = 200
	// maxOffset keeps the row offset inside a 32-bit range for both stores.
	maxOffset = math.MaxInt32
)

// TicketService is the entry point for ticket workflows. It applies visibility rules to reads and
// routes every assignee or status change through the AssignmentService.
type TicketService struct {
	tickets     repository.TicketRepository
	updates     repository.TicketUpdateRepository
	references  repository.ReferenceRepository
	assignments *AssignmentService
	policy      *auth.Policy
	visibility  Visibility
	logger      *zap.Logger
	events      publisher
}

// TicketDependencies bundles repositories for ticket service.
type TicketDependencies struct {
	TicketRepo    repository.TicketRepository
	UpdateRepo    repository.TicketUpdateRepository
	ReferenceRepo repository.ReferenceRepository
	Assignments   *AssignmentService
	Policy        *auth.Policy
	Dispatcher    events.Dispatcher
	Logger        *zap.Logger
	Clock         func() time.Time
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title            string
	Description      string
	CategoryID       string
	DepartmentID     *string
	LocationID       *string
	Priority         string
	ContactNumber    *string
	PatientName      *string
	EquipmentDetails *string
}

// TicketListFilter narrows a listing. It is always intersected with the actor's visibility.
type TicketListFilter struct {
	Statuses   []string
	AssigneeID *string
	Page       int
	PageSize   int
}

// UpdateCreateInput describes a manual update entry.
type UpdateCreateInput struct {
	Message    string
	Type       string
	IsInternal bool
	OldValue   *string
	NewValue   *string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = utcNow
	}
	policy := deps.Policy
	if policy == nil {
		policy = auth.DefaultPolicy()
	}
	return &TicketService{
		tickets:     deps.TicketRepo,
		updates:     deps.UpdateRepo,
		references:  deps.ReferenceRepo,
		assignments: deps.Assignments,
		policy:      policy,
		visibility:  NewVisibility(policy),
		logger:      logger.Named("tickets"),
		events:      publisher{dispatcher: deps.Dispatcher, logger: logger, now: clock},
	}
}

// CreateTicket opens a ticket on behalf of the actor.
func (s *TicketService) CreateTicket(ctx context.Context, actor domain.Actor, input TicketCreateInput) (*domain.Ticket, error) {
	if !s.policy.Can(actor.Role, domain.CapTicketsCreate) {
		return nil, apperrors.NewForbidden("role may not create tickets")
	}

	details := map[string]any{}
	ticket := &domain.Ticket{
		RequesterID:      actor.ID,
		Title:            sanitize(input.Title),
		Description:      sanitize(input.Description),
		CategoryID:       input.CategoryID,
		DepartmentID:     optionalText(input.DepartmentID),
		LocationID:       optionalText(input.LocationID),
		Status:           domain.TicketStatusOpen,
		ContactNumber:    optionalText(input.ContactNumber),
		PatientName:      optionalText(input.PatientName),
		EquipmentDetails: optionalText(input.EquipmentDetails),
	}

	switch {
	case ticket.Title == "":
		details["title"] = "is required"
	case tooLong(&ticket.Title, maxTitleLength):
		details["title"] = "must be at most 255 characters"
	}
	if ticket.Description == "" {
		details["description"] = "is required"
	}
	priority, err := domain.ParseTicketPriority(input.Priority)
	if err != nil {
		details["priority"] = "must be one of low, medium, high"
	}
	ticket.Priority = priority
	if tooLong(ticket.ContactNumber, maxContactNumberLength) {
		details["contact_number"] = "must be at most 50 characters"
	}
	if tooLong(ticket.PatientName, maxShortTextLength) {
		details["patient_name"] = "must be at most 255 characters"
	}
	if tooLong(ticket.EquipmentDetails, maxShortTextLength) {
		details["equipment_details"] = "must be at most 255 characters"
	}
	if err := s.checkReferences(ctx, ticket, details); err != nil {
		return nil, err
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("invalid ticket", details)
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, storeError(err, "ticket", ticket.ID)
	}
	created, err := s.tickets.GetByID(ctx, ticket.ID)
	if err != nil {
		return nil, storeError(err, "ticket", ticket.ID)
	}

	s.logger.Info("ticket created", zap.String("ticket_id", created.ID), zap.String("requester_id", actor.ID))
	s.events.publish(ctx, events.EventTicketCreated, actor, created.ID, events.TicketCreatedPayload{
		CategoryID:   created.CategoryID,
		DepartmentID: created.DepartmentID,
		Priority:     created.Priority,
		Title:        created.Title,
	})
	return created, nil
}

// checkReferences verifies category, department and location, recording problems in details.
func (s *TicketService) checkReferences(ctx context.Context, ticket *domain.Ticket, details map[string]any) error {
	if ticket.CategoryID == "" {
		details["category_id"] = "is required"
	} else if _, err := s.lookupReference(ctx, domain.ReferenceCategory, ticket.CategoryID); err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return storeError(err, "category", ticket.CategoryID)
		}
		details["category_id"] = "does not exist"
	}

	if ticket.DepartmentID != nil {
		if _, err := s.lookupReference(ctx, domain.ReferenceDepartment, *ticket.DepartmentID); err != nil {
			if !errors.Is(err, repository.ErrNotFound) {
				return storeError(err, "department", *ticket.DepartmentID)
			}
			details["department_id"] = "does not exist"
		}
	}

	if ticket.LocationID != nil {
		location, err := s.lookupReference(ctx, domain.ReferenceLocation, *ticket.LocationID)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			details["location_id"] = "does not exist"
		case err != nil:
			return storeError(err, "location", *ticket.LocationID)
		case ticket.DepartmentID != nil && location.ParentID != nil && *location.ParentID != *ticket.DepartmentID:
			details["location_id"] = "does not belong to the department"
		}
	}
	return nil
}

func (s *TicketService) lookupReference(ctx context.Context, kind domain.ReferenceKind, id string) (*domain.Reference, error) {
	if !repository.IsID(id) {
		return nil, repository.ErrNotFound
	}
	return s.references.Get(ctx, kind, id)
}

// ListTickets returns the tickets visible to the actor, newest first.
func (s *TicketService) ListTickets(ctx context.Context, actor domain.Actor, filter TicketListFilter) ([]domain.Ticket, error) {
	query := repository.TicketFilter{}
	for _, raw := range filter.Statuses {
		status, err := domain.ParseTicketStatus(raw)
		if err != nil {
			return nil, apperrors.NewValidationError("invalid filter", map[string]any{"status": err.Error()})
		}
		query.Statuses = append(query.Statuses, status)
	}
	if filter.AssigneeID != nil {
		if !repository.IsID(*filter.AssigneeID) {
			return nil, apperrors.NewValidationError("invalid filter", map[string]any{"assignee_id": "must be a user id"})
		}
		query.AssigneeID = filter.AssigneeID
	}

	size := filter.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	if lastPage := maxOffset/size + 1; page > lastPage {
		page = lastPage
	}
	query.Limit = size
	query.Offset = (page - 1) * size

	tickets, err := s.tickets.List(ctx, s.visibility.ScopeTickets(actor, query))
	if err != nil {
		return nil, storeError(err, "ticket", "")
	}
	return tickets, nil
}

// GetTicket returns a ticket the actor may see. Tickets hidden from the actor are reported as
// missing.
func (s *TicketService) GetTicket(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, error) {
	if !repository.IsID(ticketID) {
		return nil, ticketNotFound(ticketID)
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, storeError(err, "ticket", ticketID)
	}
	if !s.visibility.CanViewTicket(actor, ticket) {
		return nil, ticketNotFound(ticketID)
	}
	return ticket, nil
}

// Claim delegates to the assignment engine.
func (s *TicketService) Claim(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, error) {
	return s.assignments.Claim(ctx, actor, ticketID)
}

// Reassign delegates to the assignment engine.
func (s *TicketService) Reassign(ctx context.Context, actor domain.Actor, ticketID, assigneeID string) (*domain.Ticket, error) {
	return s.assignments.Reassign(ctx, actor, ticketID, assigneeID)
}

// Unassign delegates to the assignment engine.
func (s *TicketService) Unassign(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, error) {
	return s.assignments.Unassign(ctx, actor, ticketID)
}

// Resolve delegates to the assignment engine.
func (s *TicketService) Resolve(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, error) {
	return s.assignments.Resolve(ctx, actor, ticketID)
}

// DeleteTicket removes a ticket and its update trail.
func (s *TicketService) DeleteTicket(ctx context.Context, actor domain.Actor, ticketID string) error {
	if !s.policy.Can(actor.Role, domain.CapTicketsDelete) {
		return apperrors.NewForbidden("role may not delete tickets")
	}
	if !repository.IsID(ticketID) {
		return ticketNotFound(ticketID)
	}
	if err := s.tickets.Delete(ctx, ticketID); err != nil {
		return storeError(err, "ticket", ticketID)
	}

	s.logger.Info("ticket deleted", zap.String("ticket_id", ticketID), zap.String("actor_id", actor.ID))
	s.events.publish(ctx, events.EventTicketDeleted, actor, ticketID, nil)
	return nil
}

// ListUpdates returns a ticket's trail in creation order, hiding internal notes from actors who
// may not see them.
func (s *TicketService) ListUpdates(ctx context.Context, actor domain.Actor, ticketID string) ([]domain.TicketUpdate, error) {
	if _, err := s.GetTicket(ctx, actor, ticketID); err != nil {
		return nil, err
	}
	updates, err := s.updates.ListByTicket(ctx, ticketID, s.visibility.IncludeInternal(actor))
	if err != nil {
		return nil, storeError(err, "ticket", ticketID)
	}
	return updates, nil
}

// AddUpdate appends a manual entry to a ticket's trail.
func (s *TicketService) AddUpdate(ctx context.Context, actor domain.Actor, ticketID string, input UpdateCreateInput) (*domain.TicketUpdate, error) {
	if _, err := s.GetTicket(ctx, actor, ticketID); err != nil {
		return nil, err
	}

	kind, err := domain.ParseTicketUpdateType(input.Type)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid update", map[string]any{"type": "must be one of comment, status_change, assignment, internal_note"})
	}
	internal := input.IsInternal || kind == domain.UpdateTypeInternalNote
	if internal && !s.visibility.CanWriteInternal(actor) {
		return nil, apperrors.NewForbidden("role may not write internal notes")
	}

	update := &domain.TicketUpdate{
		TicketID:   ticketID,
		AuthorID:   actor.ID,
		Message:    sanitize(input.Message),
		Type:       kind,
		IsInternal: internal,
		OldValue:   optionalText(input.OldValue),
		NewValue:   optionalText(input.NewValue),
	}
	details := map[string]any{}
	if update.Message == "" {
		details["message"] = "is required"
	}
	if tooLong(update.OldValue, maxShortTextLength) {
		details["old_value"] = "must be at most 255 characters"
	}
	if tooLong(update.NewValue, maxShortTextLength) {
		details["new_value"] = "must be at most 255 characters"
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("invalid update", details)
	}

	if err := s.updates.Append(ctx, update); err != nil {
		return nil, storeError(err, "ticket", ticketID)
	}

	s.events.publish(ctx, events.EventTicketUpdateAdded, actor, ticketID, events.TicketUpdateAddedPayload{
		UpdateID:       update.ID,
		Type:           update.Type,
		IsInternal:     update.IsInternal,
		MessagePreview: preview(update.Message),
	})
	return update, nil
}

func preview(message string) string {
	const limit = 80
	runes := []rune(message)
	if len(runes) <= limit {
		return message
	}
	return string(runes[:limit]) + "..."
}
