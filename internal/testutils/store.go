// Package testutils provides stores and fixtures for package tests.
package testutils

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/benleytuano/ts-api-service/internal/domain"
	"github.com/benleytuano/ts-api-service/internal/persistence"
	"github.com/benleytuano/ts-api-service/internal/repository/gormstore"
)

// NewSQLiteStore returns a migrated in-memory store closed at test cleanup.
func NewSQLiteStore(t testing.TB) *persistence.Store {
	t.Helper()
	store, err := persistence.OpenSQLiteStore(context.Background(), gormstore.MemoryDSN, 0, true, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// Fixtures holds the identities and reference rows seeded by Seed.
type Fixtures struct {
	Admin      domain.User
	Agent      domain.User
	OtherAgent domain.User
	Requester  domain.User
	Other      domain.User

	Category   domain.Reference
	Department domain.Reference
	Location   domain.Reference
	// Elsewhere is a location owned by a different department.
	Elsewhere domain.Reference
}

// Seed inserts a standard set of users and reference rows.
func Seed(t testing.TB, store *persistence.Store) Fixtures {
	t.Helper()
	ctx := context.Background()

	user := func(name, email string, role domain.Role) domain.User {
		u := domain.User{Name: name, Email: email, Role: role}
		require.NoError(t, store.Users.Create(ctx, &u))
		return u
	}
	ref := func(kind domain.ReferenceKind, name string, parent *string) domain.Reference {
		r := domain.Reference{Kind: kind, Name: name, ParentID: parent}
		require.NoError(t, store.References.Create(ctx, &r))
		return r
	}

	f := Fixtures{
		Admin:      user("Ada Admin", "admin@example.test", domain.RoleAdmin),
		Agent:      user("Alan Agent", "agent@example.test", domain.RoleAgent),
		OtherAgent: user("Grace Agent", "agent2@example.test", domain.RoleAgent),
		Requester:  user("Rita Requester", "rita@example.test", domain.RoleRequester),
		Other:      user("Otto Requester", "otto@example.test", domain.RoleRequester),
	}
	f.Category = ref(domain.ReferenceCategory, "Printer Issues", nil)
	f.Department = ref(domain.ReferenceDepartment, "Emergency Room", nil)
	other := ref(domain.ReferenceDepartment, "Cardiology", nil)
	f.Location = ref(domain.ReferenceLocation, "ER Nurses Station", &f.Department.ID)
	f.Elsewhere = ref(domain.ReferenceLocation, "Cath Lab", &other.ID)
	return f
}

// NewTicket inserts an open ticket raised by requesterID.
func NewTicket(t testing.TB, store *persistence.Store, f Fixtures, requesterID string) domain.Ticket {
	t.Helper()
	ticket := domain.Ticket{
		RequesterID: requesterID,
		Title:       "Printer jammed",
		Description: "Paper stuck in tray 2",
		CategoryID:  f.Category.ID,
		Priority:    domain.TicketPriorityMedium,
		Status:      domain.TicketStatusOpen,
	}
	require.NoError(t, store.Tickets.Create(context.Background(), &ticket))
	return ticket
}
