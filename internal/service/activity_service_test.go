package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/benleytuano/ts-api-service/internal/events"
	"github.com/benleytuano/ts-api-service/internal/observability"
)

func TestActivityServiceRecordsLifecycle(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()
	core, logs := observer.New(zap.InfoLevel)

	NewActivityService(dispatcher, zap.New(core), metrics).RegisterHandlers()
	h := newHarness(t, dispatcher)
	ctx := context.Background()

	ticket, err := h.tickets.CreateTicket(ctx, h.f.Requester.Actor(), validInput(h))
	require.NoError(t, err)
	_, err = h.tickets.Claim(ctx, h.f.Agent.Actor(), ticket.ID)
	require.NoError(t, err)
	_, err = h.tickets.Resolve(ctx, h.f.Agent.Actor(), ticket.ID)
	require.NoError(t, err)

	snapshot := metrics.Snapshot()
	assert.EqualValues(t, 1, snapshot.Events[string(events.EventTicketCreated)])
	assert.EqualValues(t, 1, snapshot.Events[string(events.EventTicketClaimed)])
	assert.EqualValues(t, 1, snapshot.Events[string(events.EventTicketResolved)])

	claimed := logs.FilterMessage(string(events.EventTicketClaimed)).All()
	require.Len(t, claimed, 1)
	assert.Equal(t, ticket.ID, claimed[0].ContextMap()["ticket_id"])
	assert.Equal(t, h.f.Agent.ID, claimed[0].ContextMap()["actor_id"])
}
