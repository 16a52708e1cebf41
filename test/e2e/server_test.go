package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/sundayezeilo/edgelink/internal/config"
	"github.com/sundayezeilo/edgelink/internal/server"
	"github.com/sundayezeilo/edgelink/internal/shortener"
	"github.com/sundayezeilo/edgelink/internal/store"
	"github.com/sundayezeilo/edgelink/internal/telemetry"
)

// testApp is the full HTTP stack backed by a real PostgreSQL container.
type testApp struct {
	http   *httptest.Server
	client *http.Client
	dbPool *pgxpool.Pool
}

func setupTestApp(t *testing.T, strict bool) *testApp {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping e2e test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("links"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Errorf("failed to terminate container: %v", err)
		}
	})

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	cfg := &config.Config{
		Server: config.ServerConfig{
			Port:            "0",
			Host:            "127.0.0.1",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: config.DatabaseConfig{
			Host:      host,
			Port:      port.Port(),
			User:      "testuser",
			Password:  "testpass",
			Name:      "links",
			Namespace: "edge_go",
			SSLMode:   "disable",
			MaxConns:  4,
			MinConns:  1,
			Migrate:   true,
		},
		App: config.AppConfig{
			Environment:        "test",
			LogLevel:           "error",
			StrictCreateStatus: strict,
		},
		Observability: config.ObservabilityConfig{
			ServiceName:    "edgelink-test",
			ServiceVersion: "test",
			MetricsEnabled: true,
		},
	}

	dbPool, err := pgxpool.New(ctx, cfg.Database.ConnectionString())
	require.NoError(t, err, "failed to create pool")
	t.Cleanup(dbPool.Close)
	require.NoError(t, dbPool.Ping(ctx))

	logger := slog.New(slog.DiscardHandler)

	require.NoError(t, store.EnsureNamespace(ctx, dbPool, cfg.Database.Namespace))
	m, err := store.NewMigrator(cfg.Database.MigrationURL(), logger)
	require.NoError(t, err)
	require.NoError(t, m.Up())
	require.NoError(t, m.Close())

	exec := store.NewExecutor(dbPool, &store.ExecutorConfig{Logger: logger})
	repo := shortener.NewRepository(exec, &shortener.RepositoryConfig{Logger: logger})
	handler := shortener.NewHandler(shortener.HandlerConfig{
		Repository:         repo,
		Logger:             logger,
		StrictCreateStatus: strict,
	})

	srv := server.New(cfg, logger, handler, server.WithMetrics(telemetry.NewHTTPMetrics("edgelink")))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	client := ts.Client()
	client.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	return &testApp{http: ts, client: client, dbPool: dbPool}
}

func (a *testApp) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, a.http.URL+path, &buf)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := a.client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestLinks_E2E(t *testing.T) {
	app := setupTestApp(t, false)

	t.Run("hello", func(t *testing.T) {
		resp := app.do(t, "GET", "/", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, "Hello, World!", decode[map[string]string](t, resp)["message"])
	})

	t.Run("health", func(t *testing.T) {
		resp := app.do(t, "GET", "/x/health", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body := decode[map[string]string](t, resp)
		require.Equal(t, "ok", body["status"])
		require.Equal(t, "edgelink-test", body["service"])
	})

	var id string
	t.Run("create", func(t *testing.T) {
		resp := app.do(t, "POST", "/new-link", map[string]string{"key": "abc", "url": "https://example.com"})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		id = decode[map[string]string](t, resp)["message"]
		require.True(t, strings.HasPrefix(id, "link:"), "message %q is not a link id", id)
		require.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	})

	t.Run("redirect", func(t *testing.T) {
		resp := app.do(t, "GET", "/abc", nil)
		require.Equal(t, http.StatusSeeOther, resp.StatusCode)
		require.Equal(t, "https://example.com", resp.Header.Get("Location"))
	})

	t.Run("unknown key", func(t *testing.T) {
		resp := app.do(t, "GET", "/xyz", nil)
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
		require.Empty(t, resp.Header.Get("Location"))
		var buf bytes.Buffer
		_, err := buf.ReadFrom(resp.Body)
		require.NoError(t, err)
		require.Zero(t, buf.Len())
	})

	t.Run("duplicate key keeps the first url", func(t *testing.T) {
		resp := app.do(t, "POST", "/new-link", map[string]string{"key": "abc", "url": "https://other.example"})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, "Link not created!", decode[map[string]string](t, resp)["message"])

		resp = app.do(t, "GET", "/abc", nil)
		require.Equal(t, "https://example.com", resp.Header.Get("Location"))
	})

	t.Run("empty url rejected", func(t *testing.T) {
		resp := app.do(t, "POST", "/new-link", map[string]string{"key": "empty", "url": ""})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, "Link not created!", decode[map[string]string](t, resp)["message"])
	})

	t.Run("list", func(t *testing.T) {
		resp := app.do(t, "POST", "/new-link", map[string]string{"key": "def", "url": "https://example.org"})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp = app.do(t, "GET", "/links", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		links := decode[[]map[string]any](t, resp)
		require.Len(t, links, 2)
		require.Equal(t, "abc", links[0]["key"])
		require.Equal(t, id, links[0]["id"])
		require.Equal(t, "def", links[1]["key"])
		require.Equal(t, "https://example.org", links[1]["url"])
		require.NotEmpty(t, links[1]["created_at"])
	})

	t.Run("metrics", func(t *testing.T) {
		resp := app.do(t, "GET", "/x/metrics", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var buf bytes.Buffer
		_, err := buf.ReadFrom(resp.Body)
		require.NoError(t, err)
		require.Contains(t, buf.String(), `edgelink_http_requests_total{method="GET",route="GET /{key}",status="303"}`)
	})
}

func TestLinks_StrictCreateStatus_E2E(t *testing.T) {
	app := setupTestApp(t, true)

	resp := app.do(t, "POST", "/new-link", map[string]string{"key": "abc", "url": "https://example.com"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = app.do(t, "POST", "/new-link", map[string]string{"key": "abc", "url": "https://other.example"})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Equal(t, "Link not created!", decode[map[string]string](t, resp)["message"])

	resp = app.do(t, "POST", "/new-link", map[string]string{"key": "", "url": "https://example.com"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLinks_ConcurrentCreateSameKey_E2E(t *testing.T) {
	app := setupTestApp(t, false)

	const writers = 8
	ids := make(chan string, writers)
	for i := range writers {
		go func() {
			body, _ := json.Marshal(map[string]string{"key": "race", "url": "https://example.com/" + string(rune('a'+i))})
			resp, err := app.client.Post(app.http.URL+"/new-link", "application/json", bytes.NewReader(body))
			if err != nil {
				ids <- ""
				return
			}
			defer resp.Body.Close()
			var msg map[string]string
			_ = json.NewDecoder(resp.Body).Decode(&msg)
			ids <- msg["message"]
		}()
	}

	created := 0
	for range writers {
		if strings.HasPrefix(<-ids, "link:") {
			created++
		}
	}
	require.Equal(t, 1, created, "exactly one writer should win the key")

	var count int
	require.NoError(t, app.dbPool.QueryRow(context.Background(), "SELECT count(*) FROM link WHERE key = 'race'").Scan(&count))
	require.Equal(t, 1, count)
}
