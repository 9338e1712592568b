package domain

import (
	"fmt"
	"strings"
)

// Role enumerates the actor roles known to the ticket engine.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleAgent     Role = "agent"
	RoleRequester Role = "requester"
)

// Roles lists every valid role.
var Roles = []Role{RoleAdmin, RoleAgent, RoleRequester}

// ParseRole normalizes a role name. The legacy name "user" maps to requester.
func ParseRole(value string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case string(RoleAdmin):
		return RoleAdmin, nil
	case string(RoleAgent):
		return RoleAgent, nil
	case string(RoleRequester), "user":
		return RoleRequester, nil
	default:
		return "", fmt.Errorf("unknown role %q", value)
	}
}

// Capability names an action a role may be granted.
type Capability string

const (
	CapTicketsCreate        Capability = "tickets.create"
	CapTicketsViewAll       Capability = "tickets.view_all"
	CapTicketsClaim         Capability = "tickets.claim"
	CapTicketsReassign      Capability = "tickets.reassign"
	CapTicketsDelete        Capability = "tickets.delete"
	CapUpdatesViewInternal  Capability = "updates.view_internal"
	CapUpdatesWriteInternal Capability = "updates.write_internal"
)

// Capabilities lists every known capability.
var Capabilities = []Capability{
	CapTicketsCreate,
	CapTicketsViewAll,
	CapTicketsClaim,
	CapTicketsReassign,
	CapTicketsDelete,
	CapUpdatesViewInternal,
	CapUpdatesWriteInternal,
}

// ParseCapability validates a capability name.
func ParseCapability(value string) (Capability, error) {
	normalized := Capability(strings.ToLower(strings.TrimSpace(value)))
	for _, c := range Capabilities {
		if c == normalized {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown capability %q", value)
}

// DefaultCapabilities mirrors the stock role grants.
func DefaultCapabilities() map[Role][]Capability {
	return map[Role][]Capability{
		RoleAdmin: append([]Capability(nil), Capabilities...),
		RoleAgent: {
			CapTicketsCreate,
			CapTicketsViewAll,
			CapTicketsClaim,
			CapUpdatesViewInternal,
			CapUpdatesWriteInternal,
		},
		RoleRequester: {
			CapTicketsCreate,
		},
	}
}
