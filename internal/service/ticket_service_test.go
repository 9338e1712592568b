package service

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benleytuano/ts-api-service/internal/domain"
	"github.com/benleytuano/ts-api-service/internal/events"
	"github.com/benleytuano/ts-api-service/internal/events/mock_events"
	"github.com/benleytuano/ts-api-service/internal/repository"
	apperrors "github.com/benleytuano/ts-api-service/pkg/util/errorutil"
)

func strPtr(s string) *string { return &s }

func validInput(h *harness) TicketCreateInput {
	return TicketCreateInput{
		Title:        "Label printer offline",
		Description:  "Triage desk printer shows no status light",
		CategoryID:   h.f.Category.ID,
		DepartmentID: strPtr(h.f.Department.ID),
		LocationID:   strPtr(h.f.Location.ID),
		Priority:     "high",
	}
}

func validationDetails(t *testing.T, err error) map[string]any {
	t.Helper()
	require.ErrorIs(t, err, apperrors.ErrValidation)
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	return domainErr.Details
}

func TestCreateTicket(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	t.Run("stamps requester and defaults", func(t *testing.T) {
		input := validInput(h)
		input.Title = "  <b>Label</b> printer offline  "
		input.PatientName = strPtr("   ")

		ticket, err := h.tickets.CreateTicket(ctx, h.f.Requester.Actor(), input)
		require.NoError(t, err)
		assert.True(t, repository.IsID(ticket.ID))
		assert.Equal(t, h.f.Requester.ID, ticket.RequesterID)
		assert.Equal(t, "Label printer offline", ticket.Title)
		assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
		assert.Equal(t, domain.TicketPriorityHigh, ticket.Priority)
		assert.Nil(t, ticket.AssigneeID)
		assert.Nil(t, ticket.AssignedAt)
		assert.Nil(t, ticket.PatientName)
		require.NotNil(t, ticket.Location)
		assert.Equal(t, "ER Nurses Station", ticket.Location.Name)
	})

	t.Run("collects field errors", func(t *testing.T) {
		details := validationDetails(t, func() error {
			_, err := h.tickets.CreateTicket(ctx, h.f.Requester.Actor(), TicketCreateInput{
				Title:         strings.Repeat("x", 256),
				Priority:      "urgent",
				ContactNumber: strPtr(strings.Repeat("5", 51)),
			})
			return err
		}())
		assert.Contains(t, details, "title")
		assert.Contains(t, details, "description")
		assert.Contains(t, details, "priority")
		assert.Contains(t, details, "category_id")
		assert.Contains(t, details, "contact_number")
	})

	t.Run("rejects unknown references", func(t *testing.T) {
		input := validInput(h)
		input.CategoryID = repository.NewID()
		input.DepartmentID = strPtr("nope")
		details := validationDetails(t, func() error {
			_, err := h.tickets.CreateTicket(ctx, h.f.Requester.Actor(), input)
			return err
		}())
		assert.Equal(t, "does not exist", details["category_id"])
		assert.Equal(t, "does not exist", details["department_id"])
	})

	t.Run("location must belong to department", func(t *testing.T) {
		input := validInput(h)
		input.LocationID = strPtr(h.f.Elsewhere.ID)
		details := validationDetails(t, func() error {
			_, err := h.tickets.CreateTicket(ctx, h.f.Requester.Actor(), input)
			return err
		}())
		assert.Equal(t, "does not belong to the department", details["location_id"])
	})

	t.Run("nothing persisted on failure", func(t *testing.T) {
		before, err := h.tickets.ListTickets(ctx, h.f.Admin.Actor(), TicketListFilter{})
		require.NoError(t, err)
		input := validInput(h)
		input.Priority = "critical"
		_, err = h.tickets.CreateTicket(ctx, h.f.Requester.Actor(), input)
		require.Error(t, err)
		after, err := h.tickets.ListTickets(ctx, h.f.Admin.Actor(), TicketListFilter{})
		require.NoError(t, err)
		assert.Len(t, after, len(before))
	})
}

func TestCreateTicketPublishesEvent(t *testing.T) {
	ctrl := gomock.NewController(t)
	dispatcher := mock_events.NewMockDispatcher(ctrl)
	h := newHarness(t, dispatcher)

	var got events.Event
	dispatcher.EXPECT().
		Publish(gomock.Any(), gomock.Any()).
		Do(func(_ context.Context, e events.Event) { got = e }).
		Return(nil)

	ticket, err := h.tickets.CreateTicket(context.Background(), h.f.Requester.Actor(), validInput(h))
	require.NoError(t, err)
	assert.Equal(t, events.EventTicketCreated, got.Type)
	assert.Equal(t, ticket.ID, got.TicketID)
	assert.False(t, got.Timestamp.IsZero())
	payload, ok := got.Payload.(events.TicketCreatedPayload)
	require.True(t, ok)
	assert.Equal(t, h.f.Category.ID, payload.CategoryID)
	assert.Equal(t, domain.TicketPriorityHigh, payload.Priority)
}

func TestVisibility(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	mine := h.openTicket(t, h.f.Requester)
	theirs := h.openTicket(t, h.f.Other)
	h.openTicket(t, h.f.Other)

	own, err := h.tickets.ListTickets(ctx, h.f.Requester.Actor(), TicketListFilter{})
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, mine.ID, own[0].ID)

	for _, staff := range []domain.User{h.f.Agent, h.f.Admin} {
		all, err := h.tickets.ListTickets(ctx, staff.Actor(), TicketListFilter{})
		require.NoError(t, err)
		assert.Len(t, all, 3)
	}

	_, err = h.tickets.GetTicket(ctx, h.f.Requester.Actor(), theirs.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = h.tickets.ListUpdates(ctx, h.f.Requester.Actor(), theirs.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = h.tickets.AddUpdate(ctx, h.f.Requester.Actor(), theirs.ID, UpdateCreateInput{Message: "hi", Type: "comment"})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	got, err := h.tickets.GetTicket(ctx, h.f.Agent.Actor(), theirs.ID)
	require.NoError(t, err)
	assert.Equal(t, h.f.Other.ID, got.RequesterID)
}

func TestListTicketsFilters(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	var ids []string
	for i := 0; i < 3; i++ {
		ids = append(ids, h.openTicket(t, h.f.Requester).ID)
	}
	_, err := h.engine.Claim(ctx, h.f.Agent.Actor(), ids[0])
	require.NoError(t, err)
	_, err = h.engine.Resolve(ctx, h.f.Agent.Actor(), ids[0])
	require.NoError(t, err)

	resolved, err := h.tickets.ListTickets(ctx, h.f.Agent.Actor(), TicketListFilter{Statuses: []string{"resolved"}})
	require.NoError(t, err)
	require.Len(t, resolved, 1)
	assert.Equal(t, ids[0], resolved[0].ID)

	held, err := h.tickets.ListTickets(ctx, h.f.Admin.Actor(), TicketListFilter{AssigneeID: strPtr(h.f.Agent.ID)})
	require.NoError(t, err)
	assert.Len(t, held, 1)

	page, err := h.tickets.ListTickets(ctx, h.f.Admin.Actor(), TicketListFilter{Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, page, 1)

	beyond, err := h.tickets.ListTickets(ctx, h.f.Admin.Actor(), TicketListFilter{Page: math.MaxInt, PageSize: 2})
	require.NoError(t, err)
	assert.Empty(t, beyond)

	_, err = h.tickets.ListTickets(ctx, h.f.Admin.Actor(), TicketListFilter{Statuses: []string{"pending"}})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	_, err = h.tickets.ListTickets(ctx, h.f.Admin.Actor(), TicketListFilter{AssigneeID: strPtr("x")})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestInternalNotes(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	ticket := h.openTicket(t, h.f.Requester)

	_, err := h.tickets.AddUpdate(ctx, h.f.Requester.Actor(), ticket.ID, UpdateCreateInput{Message: "secret", Type: "comment", IsInternal: true})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	_, err = h.tickets.AddUpdate(ctx, h.f.Requester.Actor(), ticket.ID, UpdateCreateInput{Message: "secret", Type: "internal_note"})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	comment, err := h.tickets.AddUpdate(ctx, h.f.Requester.Actor(), ticket.ID, UpdateCreateInput{Message: "still broken", Type: "comment"})
	require.NoError(t, err)
	assert.False(t, comment.IsInternal)
	assert.Equal(t, h.f.Requester.ID, comment.AuthorID)

	note, err := h.tickets.AddUpdate(ctx, h.f.Agent.Actor(), ticket.ID, UpdateCreateInput{Message: "vendor ticket raised", Type: "internal_note"})
	require.NoError(t, err)
	assert.True(t, note.IsInternal)

	public, err := h.tickets.ListUpdates(ctx, h.f.Requester.Actor(), ticket.ID)
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, comment.ID, public[0].ID)

	full, err := h.tickets.ListUpdates(ctx, h.f.Agent.Actor(), ticket.ID)
	require.NoError(t, err)
	assert.Len(t, full, 2)
}

func TestAddUpdateValidation(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	ticket := h.openTicket(t, h.f.Requester)

	_, err := h.tickets.AddUpdate(ctx, h.f.Agent.Actor(), ticket.ID, UpdateCreateInput{Message: "x", Type: "shout"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	details := validationDetails(t, func() error {
		_, err := h.tickets.AddUpdate(ctx, h.f.Agent.Actor(), ticket.ID, UpdateCreateInput{
			Message:  "<script></script>",
			Type:     "status_change",
			OldValue: strPtr(strings.Repeat("o", 256)),
		})
		return err
	}())
	assert.Contains(t, details, "message")
	assert.Contains(t, details, "old_value")

	_, err = h.tickets.AddUpdate(ctx, h.f.Agent.Actor(), repository.NewID(), UpdateCreateInput{Message: "x", Type: "comment"})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestDeleteTicket(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	ticket := h.openTicket(t, h.f.Requester)
	_, err := h.tickets.AddUpdate(ctx, h.f.Requester.Actor(), ticket.ID, UpdateCreateInput{Message: "hello", Type: "comment"})
	require.NoError(t, err)

	for _, actor := range []domain.User{h.f.Requester, h.f.Agent} {
		assert.ErrorIs(t, h.tickets.DeleteTicket(ctx, actor.Actor(), ticket.ID), apperrors.ErrForbidden)
	}

	require.NoError(t, h.tickets.DeleteTicket(ctx, h.f.Admin.Actor(), ticket.ID))
	_, err = h.tickets.GetTicket(ctx, h.f.Admin.Actor(), ticket.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	left, err := h.store.Updates.ListByTicket(ctx, ticket.ID, true)
	require.NoError(t, err)
	assert.Empty(t, left)

	assert.ErrorIs(t, h.tickets.DeleteTicket(ctx, h.f.Admin.Actor(), ticket.ID), apperrors.ErrNotFound)
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", preview("short"))
	long := strings.Repeat("é", 100)
	got := preview(long)
	assert.Equal(t, strings.Repeat("é", 80)+"...", got)
}
