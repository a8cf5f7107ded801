package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"filedrop/internal/api/handlers"
	"filedrop/internal/api/middleware"
	"filedrop/internal/engine/billing"
	"filedrop/internal/engine/cascade"
	"filedrop/internal/engine/inboxes"
	"filedrop/internal/engine/profiles"
	"filedrop/internal/engine/submissions"
	"filedrop/internal/pkg/metrics"
	"filedrop/internal/platform/audit"
	"filedrop/internal/platform/auth"
	"filedrop/internal/platform/cache"
	"filedrop/internal/platform/database/dbtest"
	"filedrop/internal/platform/repositories"
	"filedrop/internal/platform/storage"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jwtSecret = "test-secret"

type noGateway struct{}

func (noGateway) LookupCustomer(ctx context.Context, id string) (billing.CustomerStatus, error) {
	return billing.CustomerActive, nil
}
func (noGateway) CreateCustomer(ctx context.Context, email, userID string) (string, error) {
	return "cus_test", nil
}
func (noGateway) CreateCheckoutSession(ctx context.Context, customerID, userID string) (string, error) {
	return "https://checkout.test/session", nil
}
func (noGateway) CreatePortalSession(ctx context.Context, customerID string) (string, error) {
	return "https://portal.test/session", nil
}

type testServer struct {
	router *httprouter.Router
	tokens *auth.TokenService
}

func newTestServer(t *testing.T) *testServer {
	db := dbtest.New(t)
	m := metrics.New(prometheus.NewRegistry())

	profileRepo := repositories.NewProfileRepository(db)
	inboxRepo := repositories.NewInboxRepository(db)
	submissionRepo := repositories.NewSubmissionRepository(db)

	store, err := storage.NewLocalStore(t.TempDir(), "http://localhost/files")
	require.NoError(t, err)
	mem := cache.NewMemory(time.Minute)
	tokens := auth.NewTokenService(jwtSecret)

	cascadeSvc := cascade.NewService(inboxRepo, submissionRepo, profileRepo, store, mem, mem, m)
	inboxSvc := inboxes.NewService(inboxRepo, profileRepo, cascadeSvc, mem, mem, m, "https://filedrop.test")
	submissionSvc := submissions.NewService(inboxSvc, inboxRepo, submissionRepo, profileRepo, store, mem, m)
	profileSvc := profiles.NewService(profileRepo, inboxRepo, m)
	webhooks := billing.NewHandler(billing.NewStripeVerifier("whsec_test"), profileRepo, audit.NewLogger(db), m)
	sessions := billing.NewSessions(noGateway{}, profileRepo)

	router := NewRouter(&Dependencies{
		InboxHandler:      handlers.NewInboxHandler(inboxSvc, submissionSvc),
		SubmissionHandler: handlers.NewSubmissionHandler(inboxSvc, submissionSvc, cascadeSvc, 1<<30),
		ProfileHandler:    handlers.NewProfileHandler(profileSvc),
		BillingHandler:    handlers.NewBillingHandler(webhooks, sessions),
		EventsHandler:     handlers.NewEventsHandler(mem),
		HealthHandler:     handlers.NewHealthHandler(db, nil),
		MetricsHandler:    handlers.NewMetricsHandler(m),
		AuthMiddleware:    middleware.NewAuthMiddleware(tokens, profileSvc),
		Metrics:           m,
		FilesDir:          store.Dir(),
	})

	return &testServer{router: router, tokens: tokens}
}

func (s *testServer) token(t *testing.T, userID string) string {
	tok, err := s.tokens.GenerateAccessToken(userID, userID+"@example.com", time.Hour)
	require.NoError(t, err)
	return tok
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), v))
}

func multipartBody(t *testing.T, name string, files map[string]string) (*bytes.Buffer, string) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("name", name))
	for fileName, content := range files {
		part, err := mw.CreateFormFile("files", fileName)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestRouter_RequiresAuth(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic abc"},
		{"bad token", "Bearer not-a-jwt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/inboxes", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			s.router.ServeHTTP(rr, req)
			assert.Equal(t, http.StatusUnauthorized, rr.Code)
		})
	}
}

func TestRouter_InboxLifecycle(t *testing.T) {
	s := newTestServer(t)
	tok := s.token(t, "creator-1")

	rr := s.do(t, http.MethodPost, "/api/v1/inboxes", tok, map[string]interface{}{
		"title": "Homework", "allow_multiple_files": true,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var created struct {
		Inbox struct {
			ID   string `json:"id"`
			Slug string `json:"slug"`
		} `json:"inbox"`
		ShareURL string `json:"share_url"`
	}
	decode(t, rr, &created)
	assert.Equal(t, "https://filedrop.test/submit/"+created.Inbox.Slug, created.ShareURL)

	rr = s.do(t, http.MethodPost, "/api/v1/inboxes/"+created.Inbox.ID+"/pause", tok, nil)
	assert.Equal(t, http.StatusPaymentRequired, rr.Code)

	rr = s.do(t, http.MethodPatch, "/api/v1/inboxes/"+created.Inbox.ID, s.token(t, "intruder"), map[string]string{"title": "x"})
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = s.do(t, http.MethodGet, "/api/v1/inboxes/"+created.Inbox.ID+"/qr", tok, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))

	// public submit with two files
	body, contentType := multipartBody(t, "Ada", map[string]string{"a.txt": "hello", "b.txt": "world"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/public/inboxes/"+created.Inbox.Slug+"/submissions", body)
	req.Header.Set("Content-Type", contentType)
	sub := httptest.NewRecorder()
	s.router.ServeHTTP(sub, req)
	require.Equal(t, http.StatusCreated, sub.Code, sub.Body.String())

	rr = s.do(t, http.MethodGet, "/api/v1/inboxes/"+created.Inbox.ID+"/submissions", tok, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var listed struct {
		Submissions []struct {
			ID      string `json:"id"`
			FileURL string `json:"file_url"`
		} `json:"submissions"`
	}
	decode(t, rr, &listed)
	require.Len(t, listed.Submissions, 2)

	// uploaded file is served back
	path := strings.TrimPrefix(listed.Submissions[0].FileURL, "http://localhost")
	rr = s.do(t, http.MethodGet, path, "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = s.do(t, http.MethodGet, "/api/v1/profile/usage", tok, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var usage struct {
		InboxCount        int64 `json:"inbox_count"`
		TotalSubmissions  int64 `json:"total_submissions"`
		TotalStorageBytes int64 `json:"total_storage_bytes"`
	}
	decode(t, rr, &usage)
	assert.Equal(t, int64(1), usage.InboxCount)
	assert.Equal(t, int64(2), usage.TotalSubmissions)
	assert.Equal(t, int64(10), usage.TotalStorageBytes)

	rr = s.do(t, http.MethodDelete, "/api/v1/submissions/"+listed.Submissions[0].ID, tok, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = s.do(t, http.MethodDelete, "/api/v1/inboxes/"+created.Inbox.ID, tok, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var outcome cascade.Outcome
	decode(t, rr, &outcome)
	assert.Equal(t, int64(1), outcome.DeletedSubmissions)

	rr = s.do(t, http.MethodGet, "/api/v1/public/inboxes/"+created.Inbox.Slug, "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRouter_SubmitValidation(t *testing.T) {
	s := newTestServer(t)
	tok := s.token(t, "creator-1")

	rr := s.do(t, http.MethodPost, "/api/v1/inboxes", tok, map[string]string{"title": "Homework"})
	require.Equal(t, http.StatusCreated, rr.Code)
	var created struct {
		Inbox struct {
			Slug string `json:"slug"`
		} `json:"inbox"`
	}
	decode(t, rr, &created)

	body, contentType := multipartBody(t, "   ", map[string]string{"a.txt": "hello"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/public/inboxes/"+created.Inbox.Slug+"/submissions", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	s.router.ServeHTTP(res, req)

	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), "Please enter your name")

	body, contentType = multipartBody(t, "Ada", map[string]string{"a.txt": "hello"})
	req = httptest.NewRequest(http.MethodPost, "/api/v1/public/inboxes/missing/submissions", body)
	req.Header.Set("Content-Type", contentType)
	res = httptest.NewRecorder()
	s.router.ServeHTTP(res, req)
	assert.Equal(t, http.StatusNotFound, res.Code)
}

func TestRouter_ProfileAndBilling(t *testing.T) {
	s := newTestServer(t)
	tok := s.token(t, "user-1")

	rr := s.do(t, http.MethodPatch, "/api/v1/profile", tok, map[string]string{"full_name": "Ada"})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = s.do(t, http.MethodGet, "/api/v1/profile", tok, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"full_name":"Ada"`)
	assert.Contains(t, rr.Body.String(), `"subscription_tier":"basic"`)

	rr = s.do(t, http.MethodPost, "/api/v1/billing/portal", tok, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = s.do(t, http.MethodPost, "/api/v1/billing/checkout", tok, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "https://checkout.test/session")

	rr = s.do(t, http.MethodPost, "/api/v1/profile/reconcile", tok, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRouter_WebhookSignature(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, http.MethodPost, "/api/v1/billing/webhook", "", map[string]string{"id": "evt_1"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "No signature")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/billing/webhook", strings.NewReader(`{"id":"evt_1"}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=bad")
	res := httptest.NewRecorder()
	s.router.ServeHTTP(res, req)
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), "Invalid signature")
}

func TestRouter_WebhookOversizedBody(t *testing.T) {
	s := newTestServer(t)

	body := `{"id":"evt_big","pad":"` + strings.Repeat("x", 1<<20) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/billing/webhook", strings.NewReader(body))
	req.Header.Set("Stripe-Signature", "t=1,v1=whatever")
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	assert.NotContains(t, rr.Body.String(), "Invalid signature")
}

func TestRouter_EventStream(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.router)
	defer srv.Close()
	token := s.token(t, "user-1")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/events", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewReader(resp.Body)
	first, err := lines.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, ": connected\n", first)

	rr := s.do(t, http.MethodPost, "/api/v1/inboxes", token, map[string]interface{}{"title": "Homework"})
	require.Equal(t, http.StatusCreated, rr.Code)

	got := make(chan string, 1)
	go func() {
		for {
			line, err := lines.ReadString('\n')
			if err != nil {
				got <- ""
				return
			}
			if strings.HasPrefix(line, "event: ") {
				got <- line
				return
			}
		}
	}()

	select {
	case line := <-got:
		assert.Equal(t, "event: refresh\n", line)
	case <-time.After(2 * time.Second):
		t.Fatal("no refresh event after creating an inbox")
	}
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = s.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = s.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `filedrop_http_requests_total{method="GET",route="/health/live",status="200"} 1`)
}
