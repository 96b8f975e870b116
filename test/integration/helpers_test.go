//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"seller-center/internal/app"
	"seller-center/internal/config"
	"seller-center/internal/session"
)

// upstream plays both the identity provider and the backend API the portal
// fronts.
type upstream struct {
	server *httptest.Server

	mu            sync.Mutex
	nonce         string
	roles         []any
	verified      bool
	accessTokens  []string
	productStatus int
}

func newUpstream(t *testing.T, roles []any, verified bool) *upstream {
	t.Helper()

	u := &upstream{roles: roles, verified: verified, productStatus: http.StatusOK}
	mux := http.NewServeMux()

	mux.HandleFunc("POST /identity/connect/token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()

		u.mu.Lock()
		claims := jwt.MapClaims{
			"sub":            "user-1",
			"email":          "user@example.com",
			"name":           "Test User",
			"role":           u.roles,
			"email_verified": u.verified,
			"nonce":          u.nonce,
		}
		u.mu.Unlock()

		idToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-only"))
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "access-" + r.PostForm.Get("grant_type"),
			"refresh_token": "refresh-1",
			"id_token":      idToken,
			"token_type":    "Bearer",
			"expires_in":    3600,
		})
	})

	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"status":"ok"}`)
	})

	mux.HandleFunc("GET /api/v1/products", func(w http.ResponseWriter, r *http.Request) {
		u.mu.Lock()
		u.accessTokens = append(u.accessTokens, r.Header.Get("Authorization"))
		status := u.productStatus
		u.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = io.WriteString(w, `{"errors":[{"code":"INTERNAL_ERROR","messageCode":"error.internal"}],"status":500,"traceId":"trace-1","version":"v1"}`)
			return
		}
		_, _ = io.WriteString(w, `{"products":[{"id":"p-1","name":"Shirt","category":"c-1","productVariants":[],"productSkus":[]}],"pagination":{"currentPage":1,"pageSize":20,"totalItems":1,"totalPages":1}}`)
	})

	mux.HandleFunc("GET /api/v1/admins", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"admins":[],"pagination":{"currentPage":1,"pageSize":20,"totalItems":0,"totalPages":0}}`)
	})

	u.server = httptest.NewServer(mux)
	t.Cleanup(u.server.Close)
	return u
}

func (u *upstream) setNonce(nonce string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.nonce = nonce
}

func (u *upstream) failProducts(status int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.productStatus = status
}

func (u *upstream) authorizations() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.accessTokens...)
}

type portal struct {
	server   *httptest.Server
	client   *http.Client
	upstream *upstream
}

func newPortal(t *testing.T, roles []any, verified bool) *portal {
	t.Helper()

	up := newUpstream(t, roles, verified)
	cfg := &config.Config{
		Environment:      config.EnvDevelopment,
		RequestTimeout:   5 * time.Second,
		RateLimitRPM:     0,
		AuthRateLimitRPM: 1000,

		APIBaseURL:     up.server.URL,
		APIVersion:     "v1",
		APITimeout:     2 * time.Second,
		APIMaxAttempts: 1,
		APIRetryDelay:  time.Millisecond,

		OIDCAuthority:   up.server.URL + "/identity",
		OIDCClientID:    "seller-center",
		OIDCRedirectURI: "http://portal.test/callback",
		OIDCScope:       "openid profile offline_access",
		DefaultCulture:  "vi",

		SessionBackend:  config.SessionBackendMemory,
		SessionCacheTTL: time.Minute,
		RefreshLeeway:   time.Minute,
	}

	h := app.NewHandler(cfg, session.NewMemoryBackend(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	t.Cleanup(cancel)

	server := httptest.NewServer(h)
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &portal{
		server:   server,
		upstream: up,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (p *portal) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := p.client.Get(p.server.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}
