package app

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seller-center/internal/config"
	"seller-center/internal/model"
	"seller-center/internal/session"
)

type recordedRequest struct {
	path          string
	authorization string
	correlationID string
}

// fakeGateway stands in for both the backend API and the identity provider.
type fakeGateway struct {
	server *httptest.Server

	mu       sync.Mutex
	requests []recordedRequest
}

func newFakeGateway(t *testing.T) *fakeGateway {
	t.Helper()

	g := &fakeGateway{}
	g.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g.mu.Lock()
		g.requests = append(g.requests, recordedRequest{
			path:          r.URL.Path,
			authorization: r.Header.Get("Authorization"),
			correlationID: r.Header.Get("X-Correlation-ID"),
		})
		g.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/health":
			_, _ = io.WriteString(w, `{"status":"ok"}`)
		case "/api/v1/products":
			_, _ = io.WriteString(w, `{"products":[{"id":"p-1","name":"Shirt","category":"c-1","productVariants":[],"productSkus":[]}],"pagination":{"currentPage":1,"pageSize":20,"totalItems":1,"totalPages":1}}`)
		case "/api/v1/categories":
			_, _ = io.WriteString(w, `[{"id":"c-1","name":"Clothes"}]`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(g.server.Close)
	return g
}

func (g *fakeGateway) last() recordedRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.requests[len(g.requests)-1]
}

func testConfig(gatewayURL string) *config.Config {
	return &config.Config{
		Environment:      config.EnvDevelopment,
		ServerPort:       "0",
		RequestTimeout:   5 * time.Second,
		CORSOrigins:      []string{"http://localhost:5173"},
		RateLimitRPM:     0,
		AuthRateLimitRPM: 100,

		APIBaseURL:     gatewayURL,
		APIVersion:     "v1",
		APITimeout:     2 * time.Second,
		APIMaxAttempts: 1,
		APIRetryDelay:  time.Millisecond,

		OIDCAuthority:   gatewayURL + "/identity",
		OIDCClientID:    "seller-center",
		OIDCRedirectURI: "http://localhost:8080/callback",
		OIDCScope:       "openid profile offline_access",
		DefaultCulture:  "vi",

		SessionBackend:  config.SessionBackendMemory,
		SessionCacheTTL: time.Minute,
		RefreshLeeway:   time.Minute,
	}
}

func signedInIdentity(roles []any, verified bool) *model.Identity {
	return &model.Identity{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		ExpiresAt:    model.At(time.Now().Add(time.Hour).Unix()),
		Profile: map[string]any{
			"sub":            "seller-1",
			"role":           roles,
			"email_verified": verified,
		},
	}
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHandler_GuardsPrivateRoutes(t *testing.T) {
	gateway := newFakeGateway(t)
	portal := NewHandler(testConfig(gateway.server.URL), session.NewMemoryBackend(), nil)

	rec := get(t, portal, "/api/v1/categories")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "/auth/login?returnUrl=%2Fapi%2Fv1%2Fcategories", rec.Header().Get("Location"))

	rec = get(t, portal, "/auth/me")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = get(t, portal, "/auth/login")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Location"), gateway.server.URL+"/identity/connect/authorize?"))
}

func TestHandler_SellerReachesProductsWithBearerToken(t *testing.T) {
	gateway := newFakeGateway(t)
	portal := NewHandler(testConfig(gateway.server.URL), session.NewMemoryBackend(), nil)
	require.True(t, portal.Pipeline().Store.Save(t.Context(), signedInIdentity([]any{"seller"}, true)).OK())

	rec := get(t, portal, "/api/v1/products")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"id":"p-1"`)
	last := gateway.last()
	assert.Equal(t, "/api/v1/products", last.path)
	assert.Equal(t, "Bearer access-1", last.authorization)
	assert.NotEmpty(t, last.correlationID)
}

func TestHandler_RoleAndVerificationPolicy(t *testing.T) {
	tests := []struct {
		name     string
		roles    []any
		verified bool
		target   string
		status   int
	}{
		{name: "unverified seller", roles: []any{"seller"}, verified: false, target: "/api/v1/products", status: http.StatusForbidden},
		{name: "admin without seller role", roles: []any{"admin"}, verified: true, target: "/api/v1/products", status: http.StatusForbidden},
		{name: "seller on admin route", roles: []any{"seller"}, verified: true, target: "/api/v1/admins", status: http.StatusForbidden},
		{name: "any session reads categories", roles: []any{}, verified: false, target: "/api/v1/categories", status: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gateway := newFakeGateway(t)
			portal := NewHandler(testConfig(gateway.server.URL), session.NewMemoryBackend(), nil)
			require.True(t, portal.Pipeline().Store.Save(t.Context(), signedInIdentity(tt.roles, tt.verified)).OK())

			rec := get(t, portal, tt.target)

			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestHandler_HealthIncludesBackend(t *testing.T) {
	gateway := newFakeGateway(t)
	portal := NewHandler(testConfig(gateway.server.URL), session.NewMemoryBackend(), nil)

	rec := get(t, portal, "/health")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"backend":"ok"`)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestOpenSessionBackend(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		b, err := openSessionBackend(ctx, &config.Config{SessionBackend: config.SessionBackendMemory})
		require.NoError(t, err)
		assert.IsType(t, &session.MemoryBackend{}, b.backend)
		assert.Nil(t, b.sweep)
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "session.json")
		b, err := openSessionBackend(ctx, &config.Config{SessionBackend: config.SessionBackendFile, SessionFile: path})
		require.NoError(t, err)
		assert.IsType(t, &session.FileBackend{}, b.backend)
	})

	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		b, err := openSessionBackend(ctx, &config.Config{SessionBackend: config.SessionBackendRedis, RedisAddr: mr.Addr()})
		require.NoError(t, err)
		defer b.Close()

		require.NoError(t, b.backend.Set(ctx, "k", []byte(`{"a":1}`)))
		assert.True(t, mr.Exists(redisKeyPrefix+"k"))
		require.Contains(t, b.checkers, "redis")
		assert.NoError(t, b.checkers["redis"].Health(ctx))
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := openSessionBackend(ctx, &config.Config{SessionBackend: "etcd"})
		assert.Error(t, err)
	})
}

type countingSweeper struct {
	mu      sync.Mutex
	cutoffs []time.Time
	cancel  context.CancelFunc
}

func (c *countingSweeper) CleanStale(_ context.Context, cutoff time.Time) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cutoffs = append(c.cutoffs, cutoff)
	c.cancel()
	return 2, nil
}

func TestSweepStaleSessions(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sweeper := &countingSweeper{cancel: cancel}

	sweepStaleSessions(ctx, sweeper)

	require.Len(t, sweeper.cutoffs, 1)
	assert.WithinDuration(t, time.Now().Add(-staleSessionAge), sweeper.cutoffs[0], time.Minute)
}
