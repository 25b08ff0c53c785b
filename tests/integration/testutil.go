//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/watchearn/watchearn/internal/ads"
	"github.com/watchearn/watchearn/internal/api"
	"github.com/watchearn/watchearn/internal/audit"
	"github.com/watchearn/watchearn/internal/auth"
	"github.com/watchearn/watchearn/internal/config"
	"github.com/watchearn/watchearn/internal/ledger"
	"github.com/watchearn/watchearn/internal/profile"
	"github.com/watchearn/watchearn/internal/verify"
)

const testSecret = "test-access-secret-32-chars-long!!"

type TestEnv struct {
	Pool        *pgxpool.Pool
	RedisClient *redis.Client
	Server      *httptest.Server
	JWTManager  *auth.JWTManager
}

var testEnv *TestEnv

func SetupTestEnv(t *testing.T) *TestEnv {
	t.Helper()
	if testEnv != nil {
		return testEnv
	}

	ctx := context.Background()

	// Start PostgreSQL container
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "watchearn_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("starting postgres container: %v", err)
	}
	t.Cleanup(func() { pgContainer.Terminate(ctx) })

	pgHost, _ := pgContainer.Host(ctx)
	pgPort, _ := pgContainer.MappedPort(ctx, "5432")

	// Start Redis container
	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("starting redis container: %v", err)
	}
	t.Cleanup(func() { redisContainer.Terminate(ctx) })

	redisHost, _ := redisContainer.Host(ctx)
	redisPort, _ := redisContainer.MappedPort(ctx, "6379")

	// Connect to PostgreSQL
	dsn := fmt.Sprintf("postgres://test:test@%s:%s/watchearn_test?sslmode=disable", pgHost, pgPort.Port())
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connecting to postgres: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	// Run migrations
	m, err := migrate.New(
		fmt.Sprintf("file://%s", getMigrationsPath()),
		dsn,
	)
	if err != nil {
		t.Fatalf("creating migrator: %v", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		t.Fatalf("running migrations: %v", err)
	}

	// Connect to Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%s", redisHost, redisPort.Port()),
	})
	t.Cleanup(func() { redisClient.Close() })

	// Wire up the service
	jwtManager := auth.NewJWTManager(testSecret, "watchearn")

	adsCfg := config.AdsConfig{
		MaxDaily:      10,
		HistoryLimit:  20,
		LimitCacheTTL: 5 * time.Second,
	}

	ledgerRepo := ledger.NewRepository(pool)
	limitCache := ledger.NewLimitCache(redisClient, adsCfg.LimitCacheTTL)
	ledgerSvc := ledger.NewService(ledgerRepo, limitCache, nil, adsCfg)
	ledgerHandler := ledger.NewHandler(ledgerSvc)

	verifyHandler := verify.NewHandler()
	adsHandler := ads.NewHandler(ads.DefaultCatalog())
	profileHandler := profile.NewHandler(profile.NewRepository(pool))
	auditHandler := audit.NewHandler(audit.NewRepository(pool))

	router := api.NewRouter(pool, redisClient, nil, api.RouterConfig{}, api.HandlerSet{
		VerifyAdView: verifyHandler.Verify,

		AdViewLimit:    ledgerHandler.Limit,
		AdViewComplete: ledgerHandler.Complete,
		AdViewHistory:  ledgerHandler.History,

		ListAuditEntries: auditHandler.List,

		ListAds:    adsHandler.List,
		GetProfile: profileHandler.Get,

		AuthMiddleware: auth.Middleware(jwtManager),
	})

	server := httptest.NewServer(router)
	t.Cleanup(func() { server.Close() })

	testEnv = &TestEnv{
		Pool:        pool,
		RedisClient: redisClient,
		Server:      server,
		JWTManager:  jwtManager,
	}

	return testEnv
}

func getMigrationsPath() string {
	paths := []string{
		"../../migrations",
		"../../../migrations",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	log.Fatal("migrations directory not found")
	return ""
}

// Helper functions

var taskSeq atomic.Int64

// NewUser signs a token for a fresh user id, as the external auth
// provider would.
func NewUser(t *testing.T, env *TestEnv) (uuid.UUID, string) {
	t.Helper()
	userID := uuid.New()
	token, err := env.JWTManager.SignAccessToken(userID.String(), fmt.Sprintf("user-%d@test.com", taskSeq.Add(1)), time.Hour)
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return userID, token
}

func DoRequest(t *testing.T, env *TestEnv, method, path string, body any, token string) *http.Response {
	t.Helper()
	var bodyReader io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, env.Server.URL+path, bodyReader)
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("doing request: %v", err)
	}
	return resp
}

func ParseResponse(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var result map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("parsing response: %v", err)
	}
	return result
}

// CompleteAd runs verification and submits a completion claim.
func CompleteAd(t *testing.T, env *TestEnv, userID uuid.UUID, token string) map[string]any {
	t.Helper()
	taskID := ledger.NewTaskID()

	verifyResp := DoRequest(t, env, "POST", "/api/v1/verify/ad-view", map[string]any{
		"userId":   userID.String(),
		"adId":     "ad1",
		"provider": "AdsTerra",
		"duration": 30,
		"taskId":   taskID,
	}, "")
	if verifyResp.StatusCode != http.StatusOK {
		t.Fatalf("verification failed: status %d", verifyResp.StatusCode)
	}
	verification := ParseResponse(t, verifyResp)

	resp := DoRequest(t, env, "POST", "/api/v1/adviews/complete", map[string]any{
		"task_id":      taskID,
		"ad_id":        "ad1",
		"provider":     "AdsTerra",
		"verification": verification,
	}, token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("completion failed: status %d", resp.StatusCode)
	}
	return ParseResponse(t, resp)
}
