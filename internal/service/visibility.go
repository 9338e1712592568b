package service

import (
	"github.com/benleytuano/ts-api-service/internal/auth"
	"github.com/benleytuano/ts-api-service/internal/domain"
	"github.com/benleytuano/ts-api-service/internal/repository"
)

// Visibility decides which tickets and updates an actor may see.
type Visibility struct {
	policy *auth.Policy
}

// NewVisibility builds the filter on top of a capability policy.
func NewVisibility(policy *auth.Policy) Visibility {
	return Visibility{policy: policy}
}

// SeesAllTickets reports whether the actor's listing is unscoped.
func (v Visibility) SeesAllTickets(actor domain.Actor) bool {
	return v.policy.Can(actor.Role, domain.CapTicketsViewAll)
}

// CanViewTicket reports whether the actor may read ticket.
func (v Visibility) CanViewTicket(actor domain.Actor, ticket *domain.Ticket) bool {
	return v.SeesAllTickets(actor) || ticket.RequesterID == actor.ID
}

// ScopeTickets narrows filter to what the actor may list.
func (v Visibility) ScopeTickets(actor domain.Actor, filter repository.TicketFilter) repository.TicketFilter {
	if !v.SeesAllTickets(actor) {
		id := actor.ID
		filter.RequesterID = &id
	}
	return filter
}

// IncludeInternal reports whether internal updates are visible to the actor.
func (v Visibility) IncludeInternal(actor domain.Actor) bool {
	return v.policy.Can(actor.Role, domain.CapUpdatesViewInternal)
}

// CanWriteInternal reports whether the actor may author internal notes.
func (v Visibility) CanWriteInternal(actor domain.Actor) bool {
	return v.policy.Can(actor.Role, domain.CapUpdatesWriteInternal)
}
