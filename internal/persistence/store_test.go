package persistence_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benleytuano/ts-api-service/internal/domain"
	"github.com/benleytuano/ts-api-service/internal/persistence"
	"github.com/benleytuano/ts-api-service/internal/repository"
	"github.com/benleytuano/ts-api-service/internal/testutils"
)

func TestSQLiteStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) *persistence.Store { return testutils.NewSQLiteStore(t) })
}

func TestPostgresStore(t *testing.T) {
	if testing.Short() {
		t.Skip("postgres store needs a container runtime")
	}
	dsn := testutils.PostgresDSN(t)
	runStoreContract(t, func(t *testing.T) *persistence.Store { return testutils.NewPostgresStore(t, dsn) })
}

func runStoreContract(t *testing.T, open func(t *testing.T) *persistence.Store) {
	t.Run("create hydrates related rows", func(t *testing.T) {
		store := open(t)
		f := testutils.Seed(t, store)
		ctx := context.Background()

		ticket := domain.Ticket{
			RequesterID:  f.Requester.ID,
			Title:        "Monitor flickers",
			Description:  "Bay 4 monitor",
			CategoryID:   f.Category.ID,
			DepartmentID: &f.Department.ID,
			LocationID:   &f.Location.ID,
			Priority:     domain.TicketPriorityHigh,
			Status:       domain.TicketStatusOpen,
		}
		require.NoError(t, store.Tickets.Create(ctx, &ticket))
		require.True(t, repository.IsID(ticket.ID))

		got, err := store.Tickets.GetByID(ctx, ticket.ID)
		require.NoError(t, err)
		assert.Equal(t, "Monitor flickers", got.Title)
		assert.Equal(t, domain.TicketPriorityHigh, got.Priority)
		assert.Nil(t, got.AssigneeID)
		assert.Nil(t, got.AssignedAt)
		require.NotNil(t, got.Requester)
		assert.Equal(t, f.Requester.Email, got.Requester.Email)
		assert.Nil(t, got.Assignee)
		require.NotNil(t, got.Category)
		assert.Equal(t, "Printer Issues", got.Category.Name)
		require.NotNil(t, got.Department)
		assert.Equal(t, "Emergency Room", got.Department.Name)
		require.NotNil(t, got.Location)
		require.NotNil(t, got.Location.ParentID)
		assert.Equal(t, f.Department.ID, *got.Location.ParentID)
	})

	t.Run("create rejects unknown references", func(t *testing.T) {
		store := open(t)
		f := testutils.Seed(t, store)

		ticket := domain.Ticket{
			RequesterID: f.Requester.ID,
			Title:       "Ghost category",
			Description: "x",
			CategoryID:  repository.NewID(),
			Priority:    domain.TicketPriorityLow,
			Status:      domain.TicketStatusOpen,
		}
		err := store.Tickets.Create(context.Background(), &ticket)
		assert.ErrorIs(t, err, repository.ErrInvalidReference)
	})

	t.Run("missing ticket", func(t *testing.T) {
		store := open(t)
		_, err := store.Tickets.GetByID(context.Background(), repository.NewID())
		assert.ErrorIs(t, err, repository.ErrNotFound)
		assert.ErrorIs(t, store.Tickets.Delete(context.Background(), repository.NewID()), repository.ErrNotFound)
	})

	t.Run("conditional update applies once", func(t *testing.T) {
		store := open(t)
		f := testutils.Seed(t, store)
		ctx := context.Background()
		ticket := testutils.NewTicket(t, store, f, f.Requester.ID)

		now := time.Now().UTC().Truncate(time.Millisecond)
		inProgress := domain.TicketStatusInProgress
		guard := repository.TicketGuard{Unassigned: true, Statuses: domain.ActiveStatuses}
		change := repository.TicketChange{Assignment: repository.AssignTo(f.Agent.ID, now), Status: &inProgress, UpdatedAt: now}

		n, err := store.Tickets.ConditionalUpdate(ctx, ticket.ID, guard, change)
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)

		change.Assignment = repository.AssignTo(f.OtherAgent.ID, now)
		n, err = store.Tickets.ConditionalUpdate(ctx, ticket.ID, guard, change)
		require.NoError(t, err)
		assert.EqualValues(t, 0, n)

		got, err := store.Tickets.GetByID(ctx, ticket.ID)
		require.NoError(t, err)
		require.NotNil(t, got.AssigneeID)
		assert.Equal(t, f.Agent.ID, *got.AssigneeID)
		require.NotNil(t, got.AssignedAt)
		assert.WithinDuration(t, now, *got.AssignedAt, time.Millisecond)
		assert.Equal(t, domain.TicketStatusInProgress, got.Status)
		require.NotNil(t, got.Assignee)
		assert.Equal(t, f.Agent.Name, got.Assignee.Name)

		n, err = store.Tickets.ConditionalUpdate(ctx, ticket.ID,
			repository.TicketGuard{AssigneeID: &f.Agent.ID, Statuses: domain.ActiveStatuses},
			repository.TicketChange{Assignment: repository.ClearAssignment()})
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)

		got, err = store.Tickets.GetByID(ctx, ticket.ID)
		require.NoError(t, err)
		assert.Nil(t, got.AssigneeID)
		assert.Nil(t, got.AssignedAt)

		_, err = store.Tickets.ConditionalUpdate(ctx, ticket.ID, guard, repository.TicketChange{})
		assert.ErrorIs(t, err, repository.ErrEmptyChange)
	})

	t.Run("concurrent claims have one winner", func(t *testing.T) {
		store := open(t)
		f := testutils.Seed(t, store)
		ctx := context.Background()
		ticket := testutils.NewTicket(t, store, f, f.Requester.ID)
		claimants := []string{f.Agent.ID, f.OtherAgent.ID, f.Admin.ID}

		const contenders = 16
		var (
			wg      sync.WaitGroup
			applied atomic.Int64
		)
		start := make(chan struct{})
		for i := 0; i < contenders; i++ {
			claimant := claimants[i%len(claimants)]
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				now := time.Now().UTC()
				n, err := store.Tickets.ConditionalUpdate(ctx, ticket.ID,
					repository.TicketGuard{Unassigned: true, Statuses: domain.ActiveStatuses},
					repository.TicketChange{Assignment: repository.AssignTo(claimant, now), UpdatedAt: now})
				assert.NoError(t, err)
				applied.Add(n)
			}()
		}
		close(start)
		wg.Wait()

		assert.EqualValues(t, 1, applied.Load())
		got, err := store.Tickets.GetByID(ctx, ticket.ID)
		require.NoError(t, err)
		require.NotNil(t, got.AssigneeID)
		assert.Contains(t, claimants, *got.AssigneeID)
		assert.NotNil(t, got.AssignedAt)
		assert.Equal(t, domain.TicketStatusOpen, got.Status)
	})

	t.Run("list orders newest first and filters", func(t *testing.T) {
		store := open(t)
		f := testutils.Seed(t, store)
		ctx := context.Background()

		base := time.Now().UTC().Add(-time.Hour).Truncate(time.Millisecond)
		var ids []string
		for i, requester := range []string{f.Requester.ID, f.Other.ID, f.Requester.ID} {
			ticket := domain.Ticket{
				RequesterID: requester,
				Title:       "Ticket",
				Description: "d",
				CategoryID:  f.Category.ID,
				Priority:    domain.TicketPriorityMedium,
				Status:      domain.TicketStatusOpen,
				CreatedAt:   base.Add(time.Duration(i) * time.Minute),
			}
			require.NoError(t, store.Tickets.Create(ctx, &ticket))
			ids = append(ids, ticket.ID)
		}

		all, err := store.Tickets.List(ctx, repository.TicketFilter{})
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, []string{ids[2], ids[1], ids[0]}, ticketIDs(all))

		mine, err := store.Tickets.List(ctx, repository.TicketFilter{RequesterID: &f.Requester.ID})
		require.NoError(t, err)
		assert.Equal(t, []string{ids[2], ids[0]}, ticketIDs(mine))

		page, err := store.Tickets.List(ctx, repository.TicketFilter{Limit: 1, Offset: 1})
		require.NoError(t, err)
		assert.Equal(t, []string{ids[1]}, ticketIDs(page))

		resolved, err := store.Tickets.List(ctx, repository.TicketFilter{Statuses: []domain.TicketStatus{domain.TicketStatusResolved}})
		require.NoError(t, err)
		assert.Empty(t, resolved)
	})

	t.Run("updates respect internal flag and cascade", func(t *testing.T) {
		store := open(t)
		f := testutils.Seed(t, store)
		ctx := context.Background()
		ticket := testutils.NewTicket(t, store, f, f.Requester.ID)

		base := time.Now().UTC().Truncate(time.Millisecond)
		public := domain.TicketUpdate{TicketID: ticket.ID, AuthorID: f.Requester.ID, Message: "any news?", Type: domain.UpdateTypeComment, CreatedAt: base}
		note := domain.TicketUpdate{TicketID: ticket.ID, AuthorID: f.Agent.ID, Message: "waiting on vendor", Type: domain.UpdateTypeInternalNote, IsInternal: true, CreatedAt: base.Add(time.Second)}
		require.NoError(t, store.Updates.Append(ctx, &public))
		require.NoError(t, store.Updates.Append(ctx, &note))

		visible, err := store.Updates.ListByTicket(ctx, ticket.ID, false)
		require.NoError(t, err)
		require.Len(t, visible, 1)
		assert.Equal(t, public.ID, visible[0].ID)

		everything, err := store.Updates.ListByTicket(ctx, ticket.ID, true)
		require.NoError(t, err)
		require.Len(t, everything, 2)
		assert.Equal(t, public.ID, everything[0].ID)
		assert.Equal(t, note.ID, everything[1].ID)
		require.NotNil(t, everything[1].Author)
		assert.Equal(t, f.Agent.Name, everything[1].Author.Name)

		orphan := domain.TicketUpdate{TicketID: repository.NewID(), AuthorID: f.Agent.ID, Message: "x", Type: domain.UpdateTypeComment}
		assert.ErrorIs(t, store.Updates.Append(ctx, &orphan), repository.ErrInvalidReference)

		require.NoError(t, store.Tickets.Delete(ctx, ticket.ID))
		left, err := store.Updates.ListByTicket(ctx, ticket.ID, true)
		require.NoError(t, err)
		assert.Empty(t, left)
	})

	t.Run("deleting users follows reference policy", func(t *testing.T) {
		store := open(t)
		f := testutils.Seed(t, store)
		ctx := context.Background()
		ticket := testutils.NewTicket(t, store, f, f.Requester.ID)

		now := time.Now().UTC()
		n, err := store.Tickets.ConditionalUpdate(ctx, ticket.ID,
			repository.TicketGuard{Unassigned: true},
			repository.TicketChange{Assignment: repository.AssignTo(f.Agent.ID, now)})
		require.NoError(t, err)
		require.EqualValues(t, 1, n)

		require.NoError(t, store.Users.Delete(ctx, f.Agent.ID))
		got, err := store.Tickets.GetByID(ctx, ticket.ID)
		require.NoError(t, err)
		assert.Nil(t, got.AssigneeID)
		assert.Nil(t, got.AssignedAt)

		err = store.Users.Delete(ctx, f.Requester.ID)
		assert.ErrorIs(t, err, repository.ErrStillReferenced)
		_, err = store.Users.GetByID(ctx, f.Requester.ID)
		assert.NoError(t, err)

		note := domain.TicketUpdate{TicketID: ticket.ID, AuthorID: f.OtherAgent.ID, Message: "checked the cabling", Type: domain.UpdateTypeComment, CreatedAt: now}
		require.NoError(t, store.Updates.Append(ctx, &note))
		err = store.Users.Delete(ctx, f.OtherAgent.ID)
		assert.ErrorIs(t, err, repository.ErrStillReferenced)
		updates, err := store.Updates.ListByTicket(ctx, ticket.ID, true)
		require.NoError(t, err)
		require.Len(t, updates, 1)
		assert.Equal(t, f.OtherAgent.ID, updates[0].AuthorID)

		assert.ErrorIs(t, store.Users.Delete(ctx, repository.NewID()), repository.ErrNotFound)
	})

	t.Run("users and references", func(t *testing.T) {
		store := open(t)
		f := testutils.Seed(t, store)
		ctx := context.Background()

		dup := domain.User{Name: "Dup", Email: f.Agent.Email, Role: domain.RoleAgent}
		assert.ErrorIs(t, store.Users.Create(ctx, &dup), repository.ErrDuplicate)

		byEmail, err := store.Users.GetByEmail(ctx, f.Admin.Email)
		require.NoError(t, err)
		assert.Equal(t, f.Admin.ID, byEmail.ID)
		assert.Equal(t, domain.RoleAdmin, byEmail.Role)

		departments, err := store.References.List(ctx, domain.ReferenceDepartment)
		require.NoError(t, err)
		require.Len(t, departments, 2)
		assert.Equal(t, "Cardiology", departments[0].Name)

		loc, err := store.References.Get(ctx, domain.ReferenceLocation, f.Location.ID)
		require.NoError(t, err)
		require.NotNil(t, loc.ParentID)
		assert.Equal(t, f.Department.ID, *loc.ParentID)

		_, err = store.References.Get(ctx, domain.ReferenceCategory, repository.NewID())
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}

func ticketIDs(tickets []domain.Ticket) []string {
	ids := make([]string, 0, len(tickets))
	for _, ticket := range tickets {
		ids = append(ids, ticket.ID)
	}
	return ids
}
