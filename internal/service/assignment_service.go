package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/benleytuano/ts-api-service/internal/auth"
	"github.com/benleytuano/ts-api-service/internal/domain"
	"github.com/benleytuano/ts-api-service/internal/events"
	"github.com/benleytuano/ts-api-service/internal/observability"
	"github.com/benleytuano/ts-api-service/internal/repository"
	apperrors "github.com/benleytuano/ts-api-service/pkg/util/errorutil"
)

// Transition names used for logging and metrics.
const (
	opClaim    = "claim"
	opReassign = "reassign"
	opUnassign = "unassign"
	opResolve  = "resolve"
)

// AssignmentService owns every change to a ticket's assignee and status. Each transition is a
// single conditional write, so concurrent callers race on the store and exactly one wins.
type AssignmentService struct {
	tickets    repository.TicketRepository
	users      repository.UserRepository
	policy     *auth.Policy
	visibility Visibility
	metrics    *observability.Metrics
	logger     *zap.Logger
	events     publisher
	now        func() time.Time
}

// AssignmentDependencies bundles repositories and collaborators.
type AssignmentDependencies struct {
	TicketRepo repository.TicketRepository
	UserRepo   repository.UserRepository
	Policy     *auth.Policy
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	// Clock defaults to UTC wall time.
	Clock func() time.Time
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
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
	return &AssignmentService{
		tickets:    deps.TicketRepo,
		users:      deps.UserRepo,
		policy:     policy,
		visibility: NewVisibility(policy),
		metrics:    deps.Metrics,
		logger:     logger.Named("assignment"),
		events:     publisher{dispatcher: deps.Dispatcher, logger: logger, now: clock},
		now:        clock,
	}
}

// Claim assigns an unassigned active ticket to the calling agent.
func (s *AssignmentService) Claim(ctx context.Context, actor domain.Actor, ticketID string) (ticket *domain.Ticket, err error) {
	defer func() { s.record(opClaim, actor, ticketID, err) }()

	if !s.policy.Can(actor.Role, domain.CapTicketsClaim) {
		return nil, apperrors.NewForbidden("role may not claim tickets")
	}
	if !repository.IsID(ticketID) {
		return nil, ticketNotFound(ticketID)
	}

	now := s.now()
	n, err := s.tickets.ConditionalUpdate(ctx, ticketID,
		repository.TicketGuard{Unassigned: true, Statuses: domain.ActiveStatuses},
		repository.TicketChange{Assignment: repository.AssignTo(actor.ID, now), UpdatedAt: now},
	)
	if err != nil {
		return nil, storeError(err, "ticket", ticketID)
	}
	if n == 0 {
		return nil, s.explainMiss(ctx, ticketID, "ticket is already assigned or no longer open")
	}

	ticket, err = s.reload(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	s.events.publish(ctx, events.EventTicketClaimed, actor, ticketID, events.AssignmentChangedPayload{AssigneeID: ticket.AssigneeID})
	return ticket, nil
}

// Reassign hands a ticket to another agent regardless of who holds it. Closed tickets are final.
func (s *AssignmentService) Reassign(ctx context.Context, actor domain.Actor, ticketID, assigneeID string) (ticket *domain.Ticket, err error) {
	defer func() { s.record(opReassign, actor, ticketID, err) }()

	if !s.policy.Can(actor.Role, domain.CapTicketsReassign) {
		return nil, apperrors.NewForbidden("role may not reassign tickets")
	}
	if !repository.IsID(ticketID) {
		return nil, ticketNotFound(ticketID)
	}
	if err := s.validateAssignee(ctx, assigneeID); err != nil {
		return nil, err
	}

	previous, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, storeError(err, "ticket", ticketID)
	}

	now := s.now()
	n, err := s.tickets.ConditionalUpdate(ctx, ticketID,
		repository.TicketGuard{Statuses: reassignableStatuses},
		repository.TicketChange{Assignment: repository.AssignTo(assigneeID, now), UpdatedAt: now},
	)
	if err != nil {
		return nil, storeError(err, "ticket", ticketID)
	}
	if n == 0 {
		return nil, s.explainMiss(ctx, ticketID, "closed tickets cannot be reassigned")
	}

	ticket, err = s.reload(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	s.events.publish(ctx, events.EventTicketReassigned, actor, ticketID, events.AssignmentChangedPayload{
		PreviousAssigneeID: previous.AssigneeID,
		AssigneeID:         ticket.AssigneeID,
	})
	return ticket, nil
}

// Unassign releases an active ticket. Agents may only release their own tickets; actors who may
// reassign release any active ticket.
func (s *AssignmentService) Unassign(ctx context.Context, actor domain.Actor, ticketID string) (ticket *domain.Ticket, err error) {
	defer func() { s.record(opUnassign, actor, ticketID, err) }()

	if !s.policy.Can(actor.Role, domain.CapTicketsClaim) {
		return nil, apperrors.NewForbidden("role may not unassign tickets")
	}
	if !repository.IsID(ticketID) {
		return nil, ticketNotFound(ticketID)
	}

	guard := repository.TicketGuard{Statuses: domain.ActiveStatuses}
	if !s.policy.Can(actor.Role, domain.CapTicketsReassign) {
		holder := actor.ID
		guard.AssigneeID = &holder
	}

	now := s.now()
	n, err := s.tickets.ConditionalUpdate(ctx, ticketID, guard,
		repository.TicketChange{Assignment: repository.ClearAssignment(), UpdatedAt: now},
	)
	if err != nil {
		return nil, storeError(err, "ticket", ticketID)
	}
	if n == 0 {
		return nil, s.explainMiss(ctx, ticketID, "assignment changed, refresh and retry")
	}

	ticket, err = s.reload(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	s.events.publish(ctx, events.EventTicketUnassigned, actor, ticketID, events.AssignmentChangedPayload{})
	return ticket, nil
}

// Resolve marks the caller's assigned ticket as resolved.
func (s *AssignmentService) Resolve(ctx context.Context, actor domain.Actor, ticketID string) (ticket *domain.Ticket, err error) {
	defer func() { s.record(opResolve, actor, ticketID, err) }()

	if !repository.IsID(ticketID) {
		return nil, ticketNotFound(ticketID)
	}

	current, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, storeError(err, "ticket", ticketID)
	}
	if !s.visibility.CanViewTicket(actor, current) {
		return nil, ticketNotFound(ticketID)
	}
	if current.Status.IsTerminal() {
		return nil, apperrors.NewConflict("ticket is already resolved or closed", map[string]any{"status": current.Status})
	}
	if !current.IsAssigned() {
		return nil, apperrors.NewConflict("ticket is unassigned; assign before resolving", nil)
	}
	if !current.IsAssignedTo(actor.ID) {
		return nil, apperrors.NewForbidden("only the assignee may resolve the ticket")
	}

	holder := actor.ID
	resolved := domain.TicketStatusResolved
	now := s.now()
	n, err := s.tickets.ConditionalUpdate(ctx, ticketID,
		repository.TicketGuard{AssigneeID: &holder, Statuses: domain.ActiveStatuses},
		repository.TicketChange{Status: &resolved, UpdatedAt: now},
	)
	if err != nil {
		return nil, storeError(err, "ticket", ticketID)
	}
	if n == 0 {
		return nil, s.explainMiss(ctx, ticketID, "state changed, refresh and retry")
	}

	ticket, err = s.reload(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	s.events.publish(ctx, events.EventTicketResolved, actor, ticketID, events.TicketResolvedPayload{
		OldStatus: current.Status,
		NewStatus: ticket.Status,
	})
	return ticket, nil
}

// reassignableStatuses is every status except closed.
var reassignableStatuses = []domain.TicketStatus{
	domain.TicketStatusOpen,
	domain.TicketStatusInProgress,
	domain.TicketStatusResolved,
}

func (s *AssignmentService) validateAssignee(ctx context.Context, assigneeID string) error {
	if !repository.IsID(assigneeID) {
		return apperrors.NewValidationError("invalid assignee", map[string]any{"assignee_id": "must be a user id"})
	}
	assignee, err := s.users.GetByID(ctx, assigneeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewValidationError("invalid assignee", map[string]any{"assignee_id": "user does not exist"})
		}
		return storeError(err, "user", assigneeID)
	}
	if !s.policy.Can(assignee.Role, domain.CapTicketsClaim) {
		return apperrors.NewValidationError("invalid assignee", map[string]any{"assignee_id": "user cannot work tickets"})
	}
	return nil
}

// explainMiss turns a conditional write that matched no row into NotFound or Conflict.
func (s *AssignmentService) explainMiss(ctx context.Context, ticketID, reason string) error {
	if _, err := s.tickets.GetByID(ctx, ticketID); err != nil {
		return storeError(err, "ticket", ticketID)
	}
	return apperrors.NewConflict(reason, map[string]any{"ticket_id": ticketID})
}

func (s *AssignmentService) reload(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, storeError(err, "ticket", ticketID)
	}
	return ticket, nil
}

func (s *AssignmentService) record(op string, actor domain.Actor, ticketID string, err error) {
	outcome := outcomeOf(err)
	s.metrics.RecordTransition(op, outcome)

	fields := []zap.Field{
		zap.String("operation", op),
		zap.String("outcome", outcome),
		zap.String("ticket_id", ticketID),
		zap.String("actor_id", actor.ID),
		zap.String("actor_role", string(actor.Role)),
	}
	switch outcome {
	case observability.OutcomeApplied:
		s.logger.Info("ticket transition", fields...)
	case observability.OutcomeError:
		s.logger.Error("ticket transition", append(fields, zap.Error(err))...)
	default:
		s.logger.Debug("ticket transition rejected", append(fields, zap.Error(err))...)
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return observability.OutcomeApplied
	case errors.Is(err, apperrors.ErrConflict):
		return observability.OutcomeConflict
	case errors.Is(err, apperrors.ErrForbidden):
		return observability.OutcomeForbidden
	case errors.Is(err, apperrors.ErrNotFound):
		return observability.OutcomeNotFound
	case errors.Is(err, apperrors.ErrValidation):
		return observability.OutcomeInvalid
	default:
		return observability.OutcomeError
	}
}

func ticketNotFound(ticketID string) error {
	return apperrors.NewNotFound("ticket", map[string]any{"id": ticketID})
}
