package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/voc-service/internal/api/http/handlers"
	"github.com/spec-kit/voc-service/internal/auth"
	"github.com/spec-kit/voc-service/internal/domain"
	"github.com/spec-kit/voc-service/internal/observability"
	"github.com/spec-kit/voc-service/internal/service"
)

const (
	operatorID int64 = 10
	managerID  int64 = 20
)

type testServer struct {
	app     *fiber.App
	tokens  *auth.TokenManager
	tickets *fakeTickets
	bulk    *fakeBulk
	login   *fakeAuth
	metrics *observability.Metrics
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	tokens := auth.NewTokenManager("router-test", 5)
	users := &fakeUsers{users: map[int64]*domain.User{
		operatorID: {ID: operatorID, Name: "Op", Role: domain.UserRoleOperator, Active: true},
		managerID:  {ID: managerID, Name: "Mgr", Role: domain.UserRoleManager, Active: true},
	}}

	srv := &testServer{
		tokens:  tokens,
		tickets: &fakeTickets{},
		bulk:    &fakeBulk{},
		login:   &fakeAuth{},
		metrics: metrics,
	}
	srv.app = fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logger, metrics)})
	RegisterMiddlewares(srv.app, logger, metrics, time.Second)
	RegisterRoutes(srv.app, RouteConfig{
		Health: handlers.NewHealthHandler(handlers.HealthDependencies{
			ServiceName:  "voc-service",
			Version:      "test",
			Dependencies: map[string]handlers.Pinger{"postgres": fakePinger{}},
			Metrics:      metrics,
		}),
		Auth:           handlers.NewAuthHandler(srv.login),
		Tickets:        handlers.NewTicketsHandler(srv.tickets),
		Bulk:           handlers.NewBulkHandler(srv.bulk),
		Categories:     handlers.NewCategoriesHandler(fakeCategories{}),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, users).Handle,
	})
	return srv
}

func (s *testServer) token(t *testing.T, userID int64, role domain.UserRole) string {
	t.Helper()
	token, _, err := s.tokens.GenerateToken(userID, role)
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(raw))
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	decoded := map[string]any{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded), string(raw))
	}
	return resp.StatusCode, decoded
}

func errorCode(body map[string]any) string {
	errBody, _ := body["error"].(map[string]any)
	code, _ := errBody["code"].(string)
	return code
}

func TestCreateTicket_PublicIntake(t *testing.T) {
	srv := newTestServer(t)
	var got service.CreateTicketCommand
	srv.tickets.CreateFn = func(_ context.Context, cmd service.CreateTicketCommand) (*domain.Ticket, error) {
		got = cmd
		return &domain.Ticket{ID: 1, Identifier: "VOC-20250115-00001", Status: domain.TicketStatusNew}, nil
	}

	status, body := srv.do(t, http.MethodPost, "/api/v1/tickets", "", map[string]any{
		"title":         "Refund not received",
		"content":       "I returned the item two weeks ago.",
		"categoryId":    3,
		"customerEmail": "kim@example.com",
		"priority":      "HIGH",
	})
	require.Equal(t, http.StatusCreated, status)
	data := body["data"].(map[string]any)
	assert.Equal(t, "VOC-20250115-00001", data["ticketId"])
	assert.Equal(t, int64(3), got.CategoryID)
	require.NotNil(t, got.Priority)
	assert.Equal(t, domain.TicketPriorityHigh, *got.Priority)
}

func TestCreateTicket_ValidationError(t *testing.T) {
	srv := newTestServer(t)

	status, body := srv.do(t, http.MethodPost, "/api/v1/tickets", "", map[string]any{
		"title":      "Refund not received",
		"content":    "I returned the item two weeks ago.",
		"categoryId": 3,
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(body))
	details := body["error"].(map[string]any)["details"].(map[string]any)
	assert.Equal(t, "customerEmail", details["field"])
}

func TestStaffRoutes_RequireToken(t *testing.T) {
	srv := newTestServer(t)

	status, body := srv.do(t, http.MethodPatch, "/api/v1/tickets/1/status", "", map[string]any{"status": "RESOLVED"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", errorCode(body))

	status, _ = srv.do(t, http.MethodGet, "/api/v1/tickets/1", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestChangeStatus_MapsDomainErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"illegal edge", &domain.InvalidStatusTransitionError{From: domain.TicketStatusNew, To: domain.TicketStatusResolved}, http.StatusConflict, "INVALID_STATUS_TRANSITION"},
		{"stale version", &domain.ConcurrencyConflictError{TicketID: 1, Version: 3}, http.StatusConflict, "CONCURRENT_MODIFICATION"},
		{"missing", domain.NewNotFoundError("ticket", int64(1)), http.StatusNotFound, "NOT_FOUND"},
		{"infrastructure", errors.New("connection refused"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newTestServer(t)
			var got service.ChangeStatusCommand
			srv.tickets.ChangeStatusFn = func(_ context.Context, cmd service.ChangeStatusCommand) (*domain.Ticket, error) {
				got = cmd
				return nil, tc.err
			}

			status, body := srv.do(t, http.MethodPatch, "/api/v1/tickets/1/status",
				srv.token(t, operatorID, domain.UserRoleOperator), map[string]any{"status": "RESOLVED", "reason": "done"})
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.code, errorCode(body))
			require.NotNil(t, got.ChangedBy)
			assert.Equal(t, operatorID, *got.ChangedBy)
			assert.Equal(t, domain.TicketStatusResolved, got.Status)
		})
	}
}

func TestChangeStatus_RejectsUnknownStatus(t *testing.T) {
	srv := newTestServer(t)
	status, body := srv.do(t, http.MethodPatch, "/api/v1/tickets/1/status",
		srv.token(t, operatorID, domain.UserRoleOperator), map[string]any{"status": "ARCHIVED"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(body))
}

func TestBulk_RoleGateAndResult(t *testing.T) {
	srv := newTestServer(t)
	srv.bulk.ChangeStatusFn = func(_ context.Context, cmd service.BulkStatusCommand) (*domain.BulkOperationResult, error) {
		result := domain.NewBulkOperationResult()
		result.RecordSuccess()
		result.RecordFailure(2, "ticket 2 not found")
		result.RecordFailure(3, "invalid status transition from CLOSED to RESOLVED")
		return result, nil
	}
	payload := map[string]any{"ticketIds": []int64{1, 2, 3}, "status": "RESOLVED"}

	status, body := srv.do(t, http.MethodPost, "/api/v1/tickets/bulk/status", srv.token(t, operatorID, domain.UserRoleOperator), payload)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", errorCode(body))

	status, body = srv.do(t, http.MethodPost, "/api/v1/tickets/bulk/status", srv.token(t, managerID, domain.UserRoleManager), payload)
	require.Equal(t, http.StatusOK, status)
	data := body["data"].(map[string]any)
	assert.Equal(t, float64(1), data["successCount"])
	assert.Equal(t, []any{float64(2), float64(3)}, data["failedIds"])
	assert.Equal(t, "ticket 2 not found", data["errors"].(map[string]any)["2"])
}

func TestBulk_EmptyIDs(t *testing.T) {
	srv := newTestServer(t)
	status, body := srv.do(t, http.MethodPost, "/api/v1/tickets/bulk/status",
		srv.token(t, managerID, domain.UserRoleManager), map[string]any{"ticketIds": []int64{}, "status": "RESOLVED"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(body))
}

func TestTrackTicket(t *testing.T) {
	srv := newTestServer(t)
	srv.tickets.TrackFn = func(_ context.Context, identifier, email string) (*domain.Ticket, error) {
		return &domain.Ticket{
			Identifier: identifier,
			Status:     domain.TicketStatusInProgress,
			Memos: []domain.Memo{
				{ID: 1, Content: "internal note", Internal: true},
				{ID: 2, Content: "We are on it", Internal: false},
			},
		}, nil
	}

	status, body := srv.do(t, http.MethodGet, "/api/v1/tickets/track/VOC-20250115-00001", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(body))

	status, body = srv.do(t, http.MethodGet, "/api/v1/tickets/track/VOC-20250115-00001?email=kim@example.com", "", nil)
	require.Equal(t, http.StatusOK, status)
	replies := body["data"].(map[string]any)["replies"].([]any)
	require.Len(t, replies, 1)
	assert.Equal(t, "We are on it", replies[0].(map[string]any)["content"])
}

func TestListTickets_ParsesFilters(t *testing.T) {
	srv := newTestServer(t)
	var got service.TicketListFilter
	srv.tickets.ListFn = func(_ context.Context, filter service.TicketListFilter) ([]domain.Ticket, error) {
		got = filter
		return []domain.Ticket{{ID: 1, Identifier: "VOC-20250115-00001"}}, nil
	}

	status, body := srv.do(t, http.MethodGet, "/api/v1/tickets?status=NEW,IN_PROGRESS&assigneeId=10&page=3&pageSize=500",
		srv.token(t, operatorID, domain.UserRoleOperator), nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["data"], 1)
	assert.Equal(t, []domain.TicketStatus{domain.TicketStatusNew, domain.TicketStatusInProgress}, got.Statuses)
	require.NotNil(t, got.AssigneeID)
	assert.Equal(t, int64(10), *got.AssigneeID)
	assert.Equal(t, 100, got.Limit)
	assert.Equal(t, 200, got.Offset)
}

func TestAddMemo_UsesCaller(t *testing.T) {
	srv := newTestServer(t)
	var got service.AddMemoCommand
	srv.tickets.AddMemoFn = func(_ context.Context, cmd service.AddMemoCommand) (*domain.Memo, error) {
		got = cmd
		return &domain.Memo{ID: 5, TicketID: cmd.TicketID, AuthorID: cmd.AuthorID, Content: cmd.Content}, nil
	}

	status, _ := srv.do(t, http.MethodPost, "/api/v1/tickets/7/memos",
		srv.token(t, operatorID, domain.UserRoleOperator), map[string]any{"content": "Called back", "internal": true})
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, int64(7), got.TicketID)
	assert.Equal(t, operatorID, got.AuthorID)
	assert.True(t, got.Internal)
}

func TestInvalidTicketID(t *testing.T) {
	srv := newTestServer(t)
	status, body := srv.do(t, http.MethodGet, "/api/v1/tickets/abc", srv.token(t, operatorID, domain.UserRoleOperator), nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(body))
}

func TestLogin(t *testing.T) {
	srv := newTestServer(t)
	srv.login.LoginFn = func(_ context.Context, email, password string) (*service.LoginResult, error) {
		if password != "right" {
			return nil, errors.New("unexpected")
		}
		return &service.LoginResult{
			User:  &domain.User{ID: managerID, Email: email, Role: domain.UserRoleManager},
			Token: "signed",
		}, nil
	}

	status, body := srv.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]any{"email": "mgr@example.com", "password": "right"})
	require.Equal(t, http.StatusOK, status)
	data := body["data"].(map[string]any)
	assert.Equal(t, "signed", data["token"])
	assert.Equal(t, "MANAGER", data["user"].(map[string]any)["role"])
}

func TestListCategories_Public(t *testing.T) {
	srv := newTestServer(t)
	status, body := srv.do(t, http.MethodGet, "/api/v1/categories", "", nil)
	require.Equal(t, http.StatusOK, status)
	data := body["data"].([]any)
	require.Len(t, data, 2)
	sub := data[1].(map[string]any)
	assert.Equal(t, "SUB", sub["type"])
	assert.Equal(t, float64(1), sub["parentId"])
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t)

	status, body := srv.do(t, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "alive", body["status"])

	status, body = srv.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["dependencies"].(map[string]any)["postgres"])

	srv.do(t, http.MethodGet, "/api/v1/tickets/abc", "", nil)
	status, body = srv.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, body["http"].(map[string]any)["errors"])
}

func TestUnknownRoute(t *testing.T) {
	srv := newTestServer(t)
	status, body := srv.do(t, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(body))
}
