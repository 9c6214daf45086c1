package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"tenderportal/db/memory"
	"tenderportal/internal/apperr"
	"tenderportal/internal/auth"
	"tenderportal/internal/handlers"
	"tenderportal/internal/handlers/testutils"
	"tenderportal/internal/license"
	"tenderportal/internal/middleware"
	"tenderportal/internal/service"
	"tenderportal/models"

	"github.com/stretchr/testify/require"
)

const password = "password123"

type testEnv struct {
	t      *testing.T
	store  *memory.Storage
	h      *handlers.Handler
	router http.Handler
	admin  string
	admin2 string
	vendor string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	checker := license.NewChecker(license.NewClient("", "TenderSystem", time.Second), store, "", nil, time.Minute)

	authSvc := service.NewAuthService(store, tokens, checker.Gate)
	h := handlers.NewHandler(
		service.NewTenderService(store, checker.Gate),
		service.NewBidService(store, checker.Gate),
		service.NewUserService(store),
		authSvc,
		checker,
	)
	env := &testEnv{t: t, store: store, h: h, router: h.Routes(authSvc)}

	created, err := authSvc.EnsureAdmin(ctx, service.RegisterInput{Email: "admin@example.com", Password: password, FullName: "Admin"})
	require.NoError(t, err)
	require.True(t, created)
	env.admin = env.login("admin@example.com")

	resp := env.do(http.MethodPost, "/api/auth/admin/register", env.admin,
		map[string]string{"email": "admin2@example.com", "password": password, "full_name": "Second Admin"})
	require.Equal(t, http.StatusCreated, resp.Code)
	env.admin2 = env.login("admin2@example.com")

	resp = env.do(http.MethodPost, "/api/auth/register", "",
		map[string]string{"email": "vendor@example.com", "password": password, "full_name": "Vendor", "company": "ACME"})
	require.Equal(t, http.StatusCreated, resp.Code)
	env.vendor = env.login("vendor@example.com")
	return env
}

func (e *testEnv) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(e.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) login(email string) string {
	e.t.Helper()
	resp := e.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": email, "password": password})
	require.Equal(e.t, http.StatusOK, resp.Code, resp.Body.String())
	var res service.LoginResult
	require.NoError(e.t, json.Unmarshal(resp.Body.Bytes(), &res))
	require.Equal(e.t, "bearer", res.TokenType)
	return res.AccessToken
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func (e *testEnv) createTender(token string) service.TenderView {
	e.t.Helper()
	resp := e.do(http.MethodPost, "/api/tenders", token, map[string]interface{}{
		"title":       "Road repair",
		"description": "Resurface 2km of road",
		"category":    "construction",
		"budget":      100000,
		"deadline":    time.Now().Add(7 * 24 * time.Hour),
	})
	require.Equal(e.t, http.StatusCreated, resp.Code, resp.Body.String())
	return decode[service.TenderView](e.t, resp)
}

func (e *testEnv) publishedTender() service.TenderView {
	e.t.Helper()
	tender := e.createTender(e.admin)
	resp := e.do(http.MethodPost, fmt.Sprintf("/api/tenders/%d/publish", tender.ID), e.admin, nil)
	require.Equal(e.t, http.StatusOK, resp.Code, resp.Body.String())
	return decode[service.TenderView](e.t, resp)
}

func (e *testEnv) submitBid(tenderID int64, amount float64) *httptest.ResponseRecorder {
	e.t.Helper()
	return e.do(http.MethodPost, "/api/bids", e.vendor, map[string]interface{}{
		"tender_id": tenderID,
		"amount":    amount,
		"proposal":  "fixed price, two weeks",
	})
}

func TestPingHandler(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(http.MethodGet, "/api/ping", "", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, "ok", resp.Body.String())
	require.NotEmpty(t, resp.Header().Get(middleware.RequestIDHeader))
}

func TestLoginHandler(t *testing.T) {
	env := newTestEnv(t)

	form := url.Values{"username": {"vendor@example.com"}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	resp := env.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "vendor@example.com", "password": "wrong"})
	require.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = env.do(http.MethodGet, "/api/auth/me", env.vendor, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	me := decode[models.User](t, resp)
	require.Equal(t, models.RoleVendor, me.Role)
	require.NotContains(t, resp.Body.String(), "password")
}

func TestTenderLifecycleOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	tender := env.publishedTender()
	require.Equal(t, models.TenderBidding, tender.Status)

	resp := env.submitBid(tender.ID, 90000)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	bid := decode[service.BidView](t, resp)
	require.Equal(t, models.BidPending, bid.Status)

	resp = env.do(http.MethodPatch, fmt.Sprintf("/api/bids/%d/status", bid.ID), env.admin, map[string]string{"status": "accepted"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = env.do(http.MethodPost, fmt.Sprintf("/api/tenders/%d/close", tender.ID), env.admin, nil)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = env.do(http.MethodPost, fmt.Sprintf("/api/tenders/%d/award", tender.ID), env.admin, map[string]int64{"winning_bid_id": bid.ID})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	awarded := decode[service.TenderView](t, resp)
	require.Equal(t, models.TenderAwarded, awarded.Status)

	resp = env.do(http.MethodGet, fmt.Sprintf("/api/tenders/%d/history", tender.ID), env.admin, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Len(t, decode[[]models.TenderEvent](t, resp), 3)

	resp = env.do(http.MethodGet, "/api/bids/my", env.vendor, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	mine := decode[[]service.BidView](t, resp)
	require.Len(t, mine, 1)
	require.Equal(t, models.TenderAwarded, mine[0].TenderStatus)
}

func TestErrorStatusMapping(t *testing.T) {
	env := newTestEnv(t)
	draft := env.createTender(env.admin)
	bidding := env.publishedTender()
	require.Equal(t, http.StatusCreated, env.submitBid(bidding.ID, 10).Code)
	require.Equal(t, http.StatusCreated, env.submitBid(bidding.ID, 20).Code)

	tests := []struct {
		name      string
		method    string
		path      string
		token     string
		body      interface{}
		status    int
		code      string
		retryable bool
	}{
		{"anonymous", http.MethodGet, "/api/tenders", "", nil, http.StatusUnauthorized, "unauthenticated", false},
		{"vendor creates tender", http.MethodPost, "/api/tenders", env.vendor, map[string]string{}, http.StatusForbidden, "forbidden", false},
		{"vendor reads draft", http.MethodGet, fmt.Sprintf("/api/tenders/%d", draft.ID), env.vendor, nil, http.StatusNotFound, "not_found", false},
		{"other admin publishes", http.MethodPost, fmt.Sprintf("/api/tenders/%d/publish", draft.ID), env.admin2, nil, http.StatusForbidden, "forbidden", false},
		{"bid on draft", http.MethodPost, "/api/bids", env.vendor, map[string]interface{}{"tender_id": draft.ID, "amount": 1, "proposal": "p"}, http.StatusConflict, "invalid_transition", false},
		{"delete with bids", http.MethodDelete, fmt.Sprintf("/api/tenders/%d", bidding.ID), env.admin, nil, http.StatusConflict, "conflict", true},
		{"negative amount", http.MethodPost, "/api/bids", env.vendor, map[string]interface{}{"tender_id": bidding.ID, "amount": -5, "proposal": "p"}, http.StatusBadRequest, "validation_error", false},
		{"bad id", http.MethodGet, "/api/tenders/abc", env.admin, nil, http.StatusBadRequest, "validation_error", false},
		{"unknown tender", http.MethodGet, "/api/tenders/9999", env.admin, nil, http.StatusNotFound, "not_found", false},
		{"other admin lists bids", http.MethodGet, fmt.Sprintf("/api/bids/tender/%d", bidding.ID), env.admin2, nil, http.StatusForbidden, "forbidden", false},
		{"vendor lists users", http.MethodGet, "/api/users", env.vendor, nil, http.StatusForbidden, "forbidden", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(tt.method, tt.path, tt.token, tt.body)
			require.Equal(t, tt.status, resp.Code, resp.Body.String())
			body := decode[apperr.Response](t, resp)
			require.Equal(t, tt.code, body.Code)
			require.Equal(t, tt.retryable, body.Retryable)
		})
	}
}

func TestValidationErrorCarriesFields(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(http.MethodPost, "/api/tenders", env.admin, map[string]interface{}{
		"title":    "",
		"budget":   -1,
		"deadline": time.Now().Add(time.Hour),
	})
	require.Equal(t, http.StatusBadRequest, resp.Code)
	body := decode[apperr.Response](t, resp)
	require.Contains(t, body.Fields, "title")
	require.Contains(t, body.Fields, "budget")
}

func TestDeactivatedUserIsLoggedOut(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(http.MethodGet, "/api/users", env.admin, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var vendorID int64
	for _, u := range decode[[]models.User](t, resp) {
		if u.Role == models.RoleVendor {
			vendorID = u.ID
		}
	}
	require.NotZero(t, vendorID)

	resp = env.do(http.MethodPatch, fmt.Sprintf("/api/users/%d", vendorID), env.admin, map[string]bool{"is_active": false})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = env.do(http.MethodGet, "/api/tenders", env.vendor, nil)
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestLicenseStatusUnconfigured(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(http.MethodGet, "/api/license/status", env.admin, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	st := decode[license.Status](t, resp)
	require.False(t, st.Configured)

	resp = env.do(http.MethodGet, "/api/license/status", env.vendor, nil)
	require.Equal(t, http.StatusForbidden, resp.Code)
}

func TestGetTenderHandlerDirect(t *testing.T) {
	env := newTestEnv(t)
	tender := env.createTender(env.admin)

	admin, err := env.store.GetUserByEmail(context.Background(), "admin@example.com")
	require.NoError(t, err)

	req := testutils.Request(http.MethodGet, "/", nil, admin)
	req = testutils.WithChiURLParams(req, map[string]string{"tenderId": fmt.Sprint(tender.ID)})
	rr := httptest.NewRecorder()
	env.h.GetTenderHandler(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	got := decode[service.TenderView](t, rr)
	require.Equal(t, tender.ID, got.ID)
	require.Contains(t, rr.Body.String(), `"allowed_actions"`)
}

func TestCreateTenderHandlerDirectRejectsVendor(t *testing.T) {
	env := newTestEnv(t)

	vendor, err := env.store.GetUserByEmail(context.Background(), "vendor@example.com")
	require.NoError(t, err)

	req := testutils.Request(http.MethodPost, "/", map[string]any{
		"title":       "Chairs",
		"description": "20 office chairs",
		"category":    "furniture",
		"budget":      500,
		"deadline":    time.Now().Add(time.Hour),
	}, vendor)
	rr := httptest.NewRecorder()
	env.h.CreateTenderHandler(rr, req)

	require.Equal(t, http.StatusForbidden, rr.Code)
}
