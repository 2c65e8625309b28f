//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"freelance-market/internal/config"
	"freelance-market/internal/database"
	"freelance-market/internal/event"
	"freelance-market/internal/handler"
	"freelance-market/internal/mail"
	"freelance-market/internal/middleware"
	"freelance-market/internal/model"
	"freelance-market/internal/repository"
	"freelance-market/internal/router"
	"freelance-market/internal/service"
	"freelance-market/internal/storage"
)

const databaseURLEnv = "MARKETPLACE_TEST_DATABASE_URL"

type testStack struct {
	server     *httptest.Server
	pool       *pgxpool.Pool
	users      *repository.UserRepository
	bids       *service.BidService
	dispatcher *service.NotificationDispatcher
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *model.APIError `json:"error"`
}

// newStack wires the full application against a real PostgreSQL database.
// Every table is truncated first, so the database must be dedicated to tests.
func newStack(t *testing.T) *testStack {
	t.Helper()

	databaseURL := os.Getenv(databaseURLEnv)
	if databaseURL == "" {
		t.Skipf("%s is not set", databaseURLEnv)
	}

	ctx := context.Background()
	db, err := database.New(ctx, databaseURL, 5, 1)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, db.EnsureSchema(ctx))
	_, err = db.Pool.Exec(ctx, `TRUNCATE audit_entries, outbox_messages, deliverables, bids, projects, users CASCADE`)
	require.NoError(t, err)

	files, err := storage.New(t.TempDir())
	require.NoError(t, err)

	userRepo := repository.NewUserRepository(db.Pool)
	projectRepo := repository.NewProjectRepository(db.Pool)
	bus := event.NewBus()
	audit := service.NewAuditService(repository.NewAuditRepository(db.Pool))

	authService := service.NewAuthService(userRepo, audit, bus, service.AuthConfig{
		AccessSecret:  "integration-access",
		RefreshSecret: "integration-refresh",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    24 * time.Hour,
		BcryptCost:    bcrypt.MinCost,
	})
	projectService := service.NewProjectService(projectRepo, userRepo, audit, bus, "Project Team")
	bidService := service.NewBidService(repository.NewBidRepository(db.Pool), projectRepo, audit, bus)
	deliverableService := service.NewDeliverableService(repository.NewDeliverableRepository(db.Pool), projectRepo, userRepo,
		files, audit, bus, 10*1024*1024, nil)
	dispatcher := service.NewNotificationDispatcher(repository.NewOutboxRepository(db.Pool), &mail.LogSender{From: "team@example.com"},
		nil, service.DispatcherConfig{})

	cfg := &config.Config{
		CORSOrigins:      []string{"*"},
		RateLimitRPM:     1000,
		AuthRateLimitRPM: 1000,
		RequestTimeout:   10 * time.Second,
	}

	server := httptest.NewServer(router.New(cfg, middleware.NewAuthMiddleware(authService, projectService), router.Handlers{
		Auth:        handler.NewAuthHandler(authService, handler.CookieOptions{}),
		Project:     handler.NewProjectHandler(projectService),
		Bid:         handler.NewBidHandler(bidService, projectService),
		Deliverable: handler.NewDeliverableHandler(deliverableService, 10*1024*1024),
		Audit:       handler.NewAuditHandler(projectService),
	}))
	t.Cleanup(server.Close)

	return &testStack{server: server, pool: db.Pool, users: userRepo, bids: bidService, dispatcher: dispatcher}
}

func newSessionClient(t *testing.T) *http.Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func (s *testStack) doJSON(t *testing.T, client *http.Client, method string, path string, body any, accessToken string) (int, envelope) {
	t.Helper()

	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		payload = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, s.server.URL+path, payload)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var parsed envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))
	return resp.StatusCode, parsed
}

// signup registers and logs in, returning the user id and an access token.
func (s *testStack) signup(t *testing.T, client *http.Client, name string, email string, role model.Role) (string, string) {
	t.Helper()

	status, env := s.doJSON(t, client, http.MethodPost, "/api/auth/register", map[string]string{
		"name": name, "email": email, "password": "secret123", "role": string(role),
	}, "")
	require.Equal(t, http.StatusCreated, status)
	var user model.AuthUser
	require.NoError(t, json.Unmarshal(env.Data, &user))

	status, env = s.doJSON(t, client, http.MethodPost, "/api/auth/login", map[string]string{
		"email": email, "password": "secret123",
	}, "")
	require.Equal(t, http.StatusOK, status)
	var tokens model.TokenPair
	require.NoError(t, json.Unmarshal(env.Data, &tokens))

	return user.ID, tokens.AccessToken
}

func (s *testStack) count(t *testing.T, query string, args ...any) int {
	t.Helper()

	var n int
	require.NoError(t, s.pool.QueryRow(context.Background(), query, args...).Scan(&n))
	return n
}
