package http

import (
	"context"
	"encoding/json"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hostdesk/hosting-service/internal/api/http/handlers"
	"github.com/hostdesk/hosting-service/internal/auth"
	"github.com/hostdesk/hosting-service/internal/domain"
	"github.com/hostdesk/hosting-service/internal/entitlement"
	"github.com/hostdesk/hosting-service/internal/observability"
	"github.com/hostdesk/hosting-service/internal/service"
	"github.com/hostdesk/hosting-service/internal/sla"
	apperrors "github.com/hostdesk/hosting-service/pkg/util"
)

var routeNow = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

type tenantTable map[string]*domain.Tenant

func (t tenantTable) GetByID(_ context.Context, id string) (*domain.Tenant, error) {
	if tenant, ok := t[id]; ok {
		return tenant, nil
	}
	return nil, pgx.ErrNoRows
}

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }

type downPinger struct{}

func (downPinger) Ping(context.Context) error { return context.DeadlineExceeded }

type stubAuth struct{}

func (stubAuth) Register(_ context.Context, name, email, _ string) (*service.AuthResult, error) {
	return &service.AuthResult{Tenant: &domain.Tenant{ID: "new", Name: name, Email: email}, Token: "tok", ExpiresAt: routeNow}, nil
}

func (stubAuth) Login(context.Context, string, string) (*service.AuthResult, error) {
	return nil, apperrors.NewUnauthorized("invalid credentials")
}

type stubPlans struct{}

func (stubPlans) ListPlans(context.Context) ([]domain.Plan, error) {
	return []domain.Plan{{ID: "p1", Name: "Starter", PlanLimits: domain.PlanLimits{DomainLimit: 1}}}, nil
}

func (stubPlans) Subscribe(_ context.Context, _ *domain.Tenant, planID string) (*service.PlanStatus, error) {
	return &service.PlanStatus{Plan: &domain.Plan{ID: planID}}, nil
}

func (stubPlans) Current(context.Context, *domain.Tenant) (*service.PlanStatus, error) {
	return nil, apperrors.NewNotFound("hosting plan", nil)
}

type stubDomains struct {
	created   []service.DomainCreateInput
	createErr error
	usage     []domain.UsageSnapshot
}

func (s *stubDomains) ListDomains(context.Context, *domain.Tenant, int, int) ([]service.DomainView, error) {
	expired := routeNow.Add(-10 * 24 * time.Hour)
	return []service.DomainView{
		{Domain: &domain.Domain{ID: "d1", Name: "a.com", ExpiresAt: &expired}, IsExpired: true, DaysUntilExpiry: -10},
	}, nil
}

func (s *stubDomains) GetDomain(_ context.Context, _ *domain.Tenant, id string) (*service.DomainView, error) {
	return nil, apperrors.NewNotFound("domain", map[string]any{"domain_id": id})
}

func (s *stubDomains) CreateDomain(_ context.Context, tenant *domain.Tenant, input service.DomainCreateInput) (*service.DomainView, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.created = append(s.created, input)
	return &service.DomainView{Domain: &domain.Domain{ID: "d2", TenantID: tenant.ID, Name: input.Name, Status: domain.DomainStatusPending}}, nil
}

func (s *stubDomains) UpdateDomain(_ context.Context, _ *domain.Tenant, id string, input service.DomainUpdateInput) (*service.DomainView, error) {
	d := &domain.Domain{ID: id}
	if input.Status != nil {
		d.Status = *input.Status
	}
	return &service.DomainView{Domain: d}, nil
}

func (s *stubDomains) DeleteDomain(context.Context, *domain.Tenant, string) error { return nil }

func (s *stubDomains) ListExpiring(context.Context, *domain.Tenant, int) ([]service.DomainView, error) {
	return nil, nil
}

func (s *stubDomains) RecordUsage(_ context.Context, _ string, usage domain.UsageSnapshot) (*domain.UsageSnapshot, error) {
	s.usage = append(s.usage, usage)
	return &usage, nil
}

func (s *stubDomains) Usage(context.Context, *domain.Tenant, string) (*service.UsageReport, error) {
	return &service.UsageReport{DomainID: "d1"}, nil
}

func (s *stubDomains) Dashboard(context.Context, *domain.Tenant) (*service.Dashboard, error) {
	return &service.Dashboard{
		DomainsCount:     2,
		DomainsReporting: 1,
		Usage:            domain.UsageSnapshot{Storage: 11, Bandwidth: 2, Database: 3, CollectedAt: routeNow},
		Limits:           &domain.PlanLimits{DomainLimit: 5, StorageLimit: 10, BandwidthLimit: 10, DatabaseLimit: 10},
		Verdict:          &entitlement.Verdict{Reason: entitlement.ReasonStorageExceeded},
	}, nil
}

type stubTickets struct {
	lastSupportFilter service.SupportTicketFilter
	lastStatus        domain.TicketStatus
	lastUpdate        *service.TicketUpdateInput
}

func (s *stubTickets) view(id string) *service.TicketView {
	return &service.TicketView{Ticket: &domain.Ticket{ID: id, Status: domain.TicketStatusOpen, Priority: domain.TicketPriorityHigh, CreatedAt: routeNow}}
}

func (s *stubTickets) CreateTicket(_ context.Context, _ *domain.Tenant, input service.TicketCreateInput) (*service.TicketView, error) {
	v := s.view("t-new")
	v.Ticket.Subject = input.Subject
	return v, nil
}

func (s *stubTickets) ListTenantTickets(context.Context, *domain.Tenant, service.TicketListFilter) ([]service.TicketView, error) {
	return []service.TicketView{*s.view("t1")}, nil
}

func (s *stubTickets) GetTicket(_ context.Context, _ *domain.Tenant, id string) (*service.TicketView, error) {
	return s.view(id), nil
}

func (s *stubTickets) UpdateTicket(_ context.Context, _ *domain.Tenant, id string, input service.TicketUpdateInput) (*service.TicketView, error) {
	s.lastUpdate = &input
	if id == "closed" {
		return nil, apperrors.MapError(sla.ErrTicketClosed)
	}
	v := s.view(id)
	if input.Subject != nil {
		v.Ticket.Subject = *input.Subject
	}
	if input.Priority != nil {
		v.Ticket.Priority = *input.Priority
	}
	return v, nil
}

func (s *stubTickets) CloseTicket(context.Context, *domain.Tenant, string, *string) (*service.TicketView, error) {
	return nil, apperrors.MapError(sla.ErrTicketClosed)
}

func (s *stubTickets) ListSupportTickets(_ context.Context, filter service.SupportTicketFilter) ([]service.TicketView, error) {
	s.lastSupportFilter = filter
	return nil, nil
}

func (s *stubTickets) UpdateStatus(_ context.Context, _ *domain.Tenant, id string, status domain.TicketStatus) (*service.TicketView, error) {
	s.lastStatus = status
	v := s.view(id)
	v.Ticket.Status = status
	return v, nil
}

func (s *stubTickets) Escalate(_ context.Context, _ *domain.Tenant, id string) (*service.TicketView, sla.EscalationResult, error) {
	v := s.view(id)
	v.Ticket.Priority = domain.TicketPriorityCritical
	return v, sla.EscalationResult{Escalated: true, OldPriority: domain.TicketPriorityHigh, NewPriority: domain.TicketPriorityCritical}, nil
}

func (s *stubTickets) Assign(_ context.Context, _ *domain.Tenant, id string, _ *string) (*service.TicketView, error) {
	return s.view(id), nil
}

type testServer struct {
	app     *fiber.App
	tokens  *auth.TokenManager
	domains *stubDomains
	tickets *stubTickets
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	tokens := auth.NewTokenManager("secret", 10)
	tenants := tenantTable{
		"cust":  {ID: "cust", Role: domain.TenantRoleCustomer, Status: domain.TenantStatusActive},
		"agent": {ID: "agent", Role: domain.TenantRoleSupport, Status: domain.TenantStatusActive},
	}
	domains := &stubDomains{}
	tickets := &stubTickets{}

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logger, metrics)})
	RegisterMiddlewares(app, logger, metrics, time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("hosting-service", "test", okPinger{}, nil),
		Auth:           handlers.NewAuthHandler(stubAuth{}),
		Plans:          handlers.NewPlansHandler(stubPlans{}),
		Domains:        handlers.NewDomainsHandler(domains),
		Tickets:        handlers.NewTicketsHandler(tickets),
		Support:        handlers.NewSupportTicketsHandler(tickets),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, tenants),
		Metrics:        metrics,
	})
	return &testServer{app: app, tokens: tokens, domains: domains, tickets: tickets}
}

func (s *testServer) do(t *testing.T, method, path, tenantID, body string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if tenantID != "" {
		token, _, err := s.tokens.GenerateToken(tenantID, domain.TenantRoleCustomer)
		require.NoError(t, err)
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var payload map[string]any
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(raw, &payload))
	}
	return resp.StatusCode, payload
}

func errorCode(payload map[string]any) string {
	errBody, _ := payload["error"].(map[string]any)
	code, _ := errBody["code"].(string)
	return code
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)
	status, payload := s.do(t, nethttp.MethodGet, "/health/ready", "", "")
	assert.Equal(t, nethttp.StatusOK, status)
	deps := payload["dependencies"].(map[string]any)
	assert.Equal(t, "disabled", deps["redis"])

	req := httptest.NewRequest(nethttp.MethodGet, "/metrics", nil)
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "http_requests_total")
}

func TestReadinessReportsFailingDependency(t *testing.T) {
	app := fiber.New()
	h := handlers.NewHealthHandler("hosting-service", "test", okPinger{}, downPinger{})
	app.Get("/health/ready", h.Ready)

	resp, err := app.Test(httptest.NewRequest(nethttp.MethodGet, "/health/ready", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, nethttp.StatusServiceUnavailable, resp.StatusCode)

	var payload map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	details := payload["error"].(map[string]any)["details"].(map[string]any)
	assert.Equal(t, "ok", details["postgres"])
	assert.Equal(t, "unavailable", details["redis"])
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)
	status, payload := s.do(t, nethttp.MethodGet, "/domains", "", "")
	assert.Equal(t, nethttp.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", errorCode(payload))

	status, _ = s.do(t, nethttp.MethodGet, "/domains", "cust", "")
	assert.Equal(t, nethttp.StatusOK, status)
}

func TestRegisterValidation(t *testing.T) {
	s := newTestServer(t)
	status, payload := s.do(t, nethttp.MethodPost, "/auth/register", "", `{"name":"A","email":"nope","password":"short"}`)
	assert.Equal(t, nethttp.StatusBadRequest, status)
	details := payload["error"].(map[string]any)["details"].(map[string]any)
	assert.Equal(t, "email", details["email"])
	assert.Equal(t, "min", details["password"])

	status, payload = s.do(t, nethttp.MethodPost, "/auth/register", "", `{"name":"Ada","email":"ADA@example.com","password":"long-enough"}`)
	assert.Equal(t, nethttp.StatusCreated, status)
	user := payload["data"].(map[string]any)["user"].(map[string]any)
	assert.Equal(t, "ada@example.com", user["email"])

	status, _ = s.do(t, nethttp.MethodPost, "/auth/login", "", `{"email":"ada@example.com","password":"x"}`)
	assert.Equal(t, nethttp.StatusUnauthorized, status)
}

func TestCreateDomainValidationAndNormalization(t *testing.T) {
	s := newTestServer(t)
	status, payload := s.do(t, nethttp.MethodPost, "/domains", "cust", `{"name":"not a domain"}`)
	assert.Equal(t, nethttp.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(payload))
	assert.Empty(t, s.domains.created)

	status, payload = s.do(t, nethttp.MethodPost, "/domains", "cust", `{"name":"Example.COM"}`)
	assert.Equal(t, nethttp.StatusCreated, status)
	require.Len(t, s.domains.created, 1)
	assert.Equal(t, "example.com", s.domains.created[0].Name)
	assert.Equal(t, "pending", payload["data"].(map[string]any)["status"])
}

func TestCreateDomainDenialPayload(t *testing.T) {
	s := newTestServer(t)
	s.domains.createErr = apperrors.NewPolicyDenied(&entitlement.Denial{
		Code:    entitlement.CodeDomainLimitReached,
		Message: "Domain limit reached for current hosting plan",
		Detail:  map[string]any{"current_plan": "Starter", "domain_limit": 1},
	})
	status, payload := s.do(t, nethttp.MethodPost, "/domains", "cust", `{"name":"b.com"}`)
	assert.Equal(t, nethttp.StatusForbidden, status)
	errBody := payload["error"].(map[string]any)
	assert.Equal(t, "domain_limit_reached", errBody["code"])
	assert.Equal(t, "Domain limit reached for current hosting plan", errBody["message"])
	details := errBody["details"].(map[string]any)
	assert.Equal(t, "Starter", details["current_plan"])
	assert.EqualValues(t, 1, details["domain_limit"])
}

func TestExpiringRejectsNonNumericDays(t *testing.T) {
	s := newTestServer(t)
	status, _ := s.do(t, nethttp.MethodGet, "/domains/expiring?days=soon", "cust", "")
	assert.Equal(t, nethttp.StatusBadRequest, status)
	status, _ = s.do(t, nethttp.MethodGet, "/domains/expiring?days=7", "cust", "")
	assert.Equal(t, nethttp.StatusOK, status)
}

func TestSupportRoutesRequireStaff(t *testing.T) {
	s := newTestServer(t)
	status, _ := s.do(t, nethttp.MethodGet, "/support/tickets", "cust", "")
	assert.Equal(t, nethttp.StatusForbidden, status)

	status, _ = s.do(t, nethttp.MethodGet, "/support/tickets?overdue=true&priority=high,critical", "agent", "")
	assert.Equal(t, nethttp.StatusOK, status)
	assert.True(t, s.tickets.lastSupportFilter.OverdueOnly)
	assert.Equal(t, []domain.TicketPriority{domain.TicketPriorityHigh, domain.TicketPriorityCritical}, s.tickets.lastSupportFilter.Priorities)

	status, _ = s.do(t, nethttp.MethodPut, "/admin/domains/d1/usage", "cust", `{"storage":1}`)
	assert.Equal(t, nethttp.StatusForbidden, status)
	status, _ = s.do(t, nethttp.MethodPut, "/admin/domains/d1/usage", "agent", `{"storage":-5}`)
	assert.Equal(t, nethttp.StatusBadRequest, status)
	status, _ = s.do(t, nethttp.MethodPut, "/admin/domains/d1/usage", "agent", `{"storage":5,"bandwidth":6,"database":7}`)
	assert.Equal(t, nethttp.StatusOK, status)
	require.Len(t, s.domains.usage, 1)
	assert.Equal(t, int64(6), s.domains.usage[0].Bandwidth)
}

func TestSupportStatusAndEscalate(t *testing.T) {
	s := newTestServer(t)
	status, _ := s.do(t, nethttp.MethodPatch, "/support/tickets/t1/status", "agent", `{"status":"pending"}`)
	assert.Equal(t, nethttp.StatusBadRequest, status)

	status, payload := s.do(t, nethttp.MethodPatch, "/support/tickets/t1/status", "agent", `{"status":"In_Progress"}`)
	assert.Equal(t, nethttp.StatusOK, status)
	assert.Equal(t, domain.TicketStatusInProgress, s.tickets.lastStatus)
	assert.Equal(t, "in_progress", payload["data"].(map[string]any)["status"])

	status, payload = s.do(t, nethttp.MethodPost, "/support/tickets/t1/escalate", "agent", "")
	assert.Equal(t, nethttp.StatusOK, status)
	data := payload["data"].(map[string]any)
	assert.Equal(t, true, data["escalated"])
	assert.Equal(t, "critical", data["new_priority"])
}

func TestTicketRoutes(t *testing.T) {
	s := newTestServer(t)
	status, payload := s.do(t, nethttp.MethodPost, "/tickets", "cust", `{"subject":"Hi","description":"short"}`)
	assert.Equal(t, nethttp.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(payload))

	status, payload = s.do(t, nethttp.MethodPost, "/tickets", "cust",
		`{"subject":"Email is down","description":"Nothing has arrived in my inbox since yesterday.","priority":"high"}`)
	assert.Equal(t, nethttp.StatusCreated, status)
	assert.Equal(t, "Email is down", payload["data"].(map[string]any)["subject"])

	status, payload = s.do(t, nethttp.MethodPost, "/tickets/t1/close", "cust", "")
	assert.Equal(t, nethttp.StatusConflict, status)
	assert.Equal(t, "CONFLICT", errorCode(payload))

	status, _ = s.do(t, nethttp.MethodGet, "/plans/current", "cust", "")
	assert.Equal(t, nethttp.StatusNotFound, status)
}

func TestListDomainsIncludesExpiry(t *testing.T) {
	s := newTestServer(t)
	status, payload := s.do(t, nethttp.MethodGet, "/domains", "cust", "")
	assert.Equal(t, nethttp.StatusOK, status)
	items := payload["data"].([]any)
	require.Len(t, items, 1)
	item := items[0].(map[string]any)
	assert.Equal(t, true, item["is_expired"])
	assert.EqualValues(t, -10, item["days_until_expiry"])
}

func TestUpdateTicketRoute(t *testing.T) {
	s := newTestServer(t)
	status, payload := s.do(t, nethttp.MethodPatch, "/tickets/t1", "cust", `{"subject":"Hey"}`)
	assert.Equal(t, nethttp.StatusBadRequest, status)
	details := payload["error"].(map[string]any)["details"].(map[string]any)
	assert.Equal(t, "min", details["subject"])
	assert.Nil(t, s.tickets.lastUpdate)

	status, _ = s.do(t, nethttp.MethodPatch, "/tickets/t1", "cust", `{"priority":"urgent"}`)
	assert.Equal(t, nethttp.StatusBadRequest, status)

	status, payload = s.do(t, nethttp.MethodPatch, "/tickets/t1", "cust", `{"subject":"  Mail bounces  ","priority":"CRITICAL"}`)
	assert.Equal(t, nethttp.StatusOK, status)
	require.NotNil(t, s.tickets.lastUpdate)
	assert.Nil(t, s.tickets.lastUpdate.Description)
	data := payload["data"].(map[string]any)
	assert.Equal(t, "Mail bounces", data["subject"])
	assert.Equal(t, "critical", data["priority"])

	status, payload = s.do(t, nethttp.MethodPatch, "/tickets/closed", "cust", `{"subject":"Still broken"}`)
	assert.Equal(t, nethttp.StatusConflict, status)
	assert.Equal(t, "CONFLICT", errorCode(payload))
}

func TestDashboardRoute(t *testing.T) {
	s := newTestServer(t)
	status, _ := s.do(t, nethttp.MethodGet, "/dashboard", "", "")
	assert.Equal(t, nethttp.StatusUnauthorized, status)

	status, payload := s.do(t, nethttp.MethodGet, "/dashboard", "cust", "")
	assert.Equal(t, nethttp.StatusOK, status)
	data := payload["data"].(map[string]any)
	assert.EqualValues(t, 2, data["domains_count"])
	assert.EqualValues(t, 1, data["domains_reporting"])
	metrics := data["user_metrics"].(map[string]any)
	assert.EqualValues(t, 11, metrics["storage"])
	verdict := data["verdict"].(map[string]any)
	assert.Equal(t, false, verdict["allowed"])
	assert.Equal(t, "storage_limit_exceeded", verdict["reason"])
}
