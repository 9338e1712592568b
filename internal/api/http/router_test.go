package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	httptransport "github.com/benleytuano/ts-api-service/internal/api/http"
	"github.com/benleytuano/ts-api-service/internal/api/http/handlers"
	"github.com/benleytuano/ts-api-service/internal/auth"
	"github.com/benleytuano/ts-api-service/internal/domain"
	"github.com/benleytuano/ts-api-service/internal/events"
	"github.com/benleytuano/ts-api-service/internal/observability"
	"github.com/benleytuano/ts-api-service/internal/service"
	"github.com/benleytuano/ts-api-service/internal/testutils"
)

type apiFixture struct {
	app     *fiber.App
	f       testutils.Fixtures
	tokens  *auth.TokenManager
	metrics *observability.Metrics
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	store := testutils.NewSQLiteStore(t)
	f := testutils.Seed(t, store)
	policy := auth.DefaultPolicy()
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	assignments := service.NewAssignmentService(service.AssignmentDependencies{
		TicketRepo: store.Tickets,
		UserRepo:   store.Users,
		Policy:     policy,
		Dispatcher: dispatcher,
		Metrics:    metrics,
	})
	tickets := service.NewTicketService(service.TicketDependencies{
		TicketRepo:    store.Tickets,
		UpdateRepo:    store.Updates,
		ReferenceRepo: store.References,
		Assignments:   assignments,
		Policy:        policy,
		Dispatcher:    dispatcher,
	})
	tokens := auth.NewTokenManager("test-secret", 5)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, zap.NewNop(), metrics, 0)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler("tickets", "test", map[string]handlers.Pinger{"sqlite": store}),
		Metrics:        handlers.NewMetricsHandler(metrics),
		Tickets:        handlers.NewTicketsHandler(tickets),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, store.Users),
		Policy:         policy,
	})
	return &apiFixture{app: app, f: f, tokens: tokens, metrics: metrics}
}

func (a *apiFixture) token(t *testing.T, user domain.User) string {
	t.Helper()
	token, _, err := a.tokens.GenerateToken(&user)
	require.NoError(t, err)
	return token
}

func (a *apiFixture) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	payload := map[string]any{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &payload), string(raw))
	}
	return resp.StatusCode, payload
}

func errorCode(payload map[string]any) string {
	errBody, _ := payload["error"].(map[string]any)
	code, _ := errBody["code"].(string)
	return code
}

func data(t *testing.T, payload map[string]any) map[string]any {
	t.Helper()
	item, ok := payload["data"].(map[string]any)
	require.True(t, ok, "missing data object: %v", payload)
	return item
}

func TestTicketLifecycleOverHTTP(t *testing.T) {
	api := newAPI(t)
	requester := api.token(t, api.f.Requester)
	g1 := api.token(t, api.f.Agent)
	g2 := api.token(t, api.f.OtherAgent)

	status, body := api.do(t, http.MethodPost, "/api/tickets", requester, map[string]any{
		"title":         "Label printer offline",
		"description":   "No status light",
		"category_id":   api.f.Category.ID,
		"department_id": api.f.Department.ID,
		"location_id":   api.f.Location.ID,
		"priority":      "high",
	})
	require.Equal(t, http.StatusCreated, status, body)
	ticket := data(t, body)
	id := ticket["id"].(string)
	assert.Equal(t, "open", ticket["status"])
	assert.Equal(t, api.f.Requester.ID, ticket["requester_id"])
	assert.Nil(t, ticket["assignee_id"])

	status, body = api.do(t, http.MethodPost, "/api/tickets/"+id+"/assign", g1, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, api.f.Agent.ID, data(t, body)["assignee_id"])
	assert.NotNil(t, data(t, body)["assigned_at"])

	status, body = api.do(t, http.MethodPost, "/api/tickets/"+id+"/assign", g2, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "CONFLICT", errorCode(body))

	status, body = api.do(t, http.MethodPost, "/api/tickets/"+id+"/resolve", g2, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", errorCode(body))

	status, body = api.do(t, http.MethodPost, "/api/tickets/"+id+"/resolve", g1, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "resolved", data(t, body)["status"])

	status, _ = api.do(t, http.MethodPost, "/api/tickets/"+id+"/resolve", g1, nil)
	assert.Equal(t, http.StatusConflict, status)

	status, body = api.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, status)
	transitions := body["transitions"].(map[string]any)
	assert.EqualValues(t, 1, transitions["claim:"+observability.OutcomeApplied])
	assert.EqualValues(t, 1, transitions["claim:"+observability.OutcomeConflict])
}

func TestAuthenticationAndRouting(t *testing.T) {
	api := newAPI(t)

	status, body := api.do(t, http.MethodGet, "/api/tickets", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHENTICATED", errorCode(body))

	status, _ = api.do(t, http.MethodGet, "/api/tickets", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body = api.do(t, http.MethodGet, "/nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(body))

	status, body = api.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ready", body["status"])
}

func TestVisibilityAndValidationOverHTTP(t *testing.T) {
	api := newAPI(t)
	requester := api.token(t, api.f.Requester)
	other := api.token(t, api.f.Other)
	admin := api.token(t, api.f.Admin)
	agent := api.token(t, api.f.Agent)

	status, body := api.do(t, http.MethodPost, "/api/tickets", requester, map[string]any{
		"title":       "Phone dead",
		"description": "Extension 4410",
		"category_id": api.f.Category.ID,
	})
	require.Equal(t, http.StatusCreated, status, body)
	id := data(t, body)["id"].(string)

	status, body = api.do(t, http.MethodGet, "/api/tickets/"+id, other, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(body))

	status, body = api.do(t, http.MethodGet, "/api/tickets", other, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, body["data"])

	status, body = api.do(t, http.MethodGet, "/api/tickets?status=open&page_size=10", agent, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["data"], 1)

	status, body = api.do(t, http.MethodGet, "/api/tickets?status=bogus", agent, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))

	status, body = api.do(t, http.MethodPost, "/api/tickets", requester, map[string]any{"title": ""})
	assert.Equal(t, http.StatusBadRequest, status)
	details := body["error"].(map[string]any)["details"].(map[string]any)
	assert.Contains(t, details, "title")
	assert.Contains(t, details, "category_id")

	status, body = api.do(t, http.MethodPost, "/api/tickets/"+id+"/reassign", admin, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))

	status, body = api.do(t, http.MethodPost, "/api/tickets/"+id+"/reassign", admin, map[string]any{"assignee_id": api.f.OtherAgent.ID})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, api.f.OtherAgent.ID, data(t, body)["assignee_id"])
	assignee := data(t, body)["assignee"].(map[string]any)
	assert.Equal(t, api.f.OtherAgent.Name, assignee["name"])

	status, body = api.do(t, http.MethodPost, "/api/tickets/"+id+"/unassign", admin, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Nil(t, data(t, body)["assignee_id"])
}

func TestUpdatesAndDeleteOverHTTP(t *testing.T) {
	api := newAPI(t)
	requester := api.token(t, api.f.Requester)
	agent := api.token(t, api.f.Agent)
	admin := api.token(t, api.f.Admin)

	status, body := api.do(t, http.MethodPost, "/api/tickets", requester, map[string]any{
		"title":       "Scanner offline",
		"description": "Radiology scanner",
		"category_id": api.f.Category.ID,
	})
	require.Equal(t, http.StatusCreated, status, body)
	id := data(t, body)["id"].(string)

	status, body = api.do(t, http.MethodPost, "/api/tickets/"+id+"/updates", requester, map[string]any{"message": "psst", "type": "internal_note"})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", errorCode(body))

	status, body = api.do(t, http.MethodPost, "/api/tickets/"+id+"/updates", agent, map[string]any{"message": "ordered part", "type": "internal_note"})
	require.Equal(t, http.StatusCreated, status, body)
	assert.Equal(t, true, data(t, body)["is_internal"])

	status, body = api.do(t, http.MethodPost, "/api/tickets/"+id+"/updates", requester, map[string]any{"message": "thanks"})
	require.Equal(t, http.StatusCreated, status, body)
	assert.Equal(t, "comment", data(t, body)["type"])

	status, body = api.do(t, http.MethodGet, "/api/tickets/"+id+"/updates", requester, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["data"], 1)

	status, body = api.do(t, http.MethodGet, "/api/tickets/"+id+"/updates", agent, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["data"], 2)

	status, body = api.do(t, http.MethodDelete, "/api/tickets/"+id, agent, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", errorCode(body))

	status, _ = api.do(t, http.MethodDelete, "/api/tickets/"+id, admin, nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = api.do(t, http.MethodGet, "/api/tickets/"+id, admin, nil)
	assert.Equal(t, http.StatusNotFound, status)
}
