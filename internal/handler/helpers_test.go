package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"seller-center/internal/client"
	"seller-center/internal/notify"
	"seller-center/internal/service"
)

type backendCall struct {
	method string
	path   string
	query  string
	body   string
	header http.Header
}

// fakeBackend is the seller center REST API. Routes answer with canned
// status and body; every request is recorded.
type fakeBackend struct {
	server *httptest.Server

	mu     sync.Mutex
	routes map[string]func(w http.ResponseWriter, r *http.Request)
	calls  []backendCall
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()

	b := &fakeBackend{routes: map[string]func(http.ResponseWriter, *http.Request){}}
	b.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		b.mu.Lock()
		b.calls = append(b.calls, backendCall{
			method: r.Method,
			path:   r.URL.Path,
			query:  r.URL.RawQuery,
			body:   string(body),
			header: r.Header.Clone(),
		})
		route, ok := b.routes[r.Method+" "+r.URL.Path]
		b.mu.Unlock()

		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		route(w, r)
	}))
	t.Cleanup(b.server.Close)
	return b
}

func (b *fakeBackend) on(method string, path string, status int, body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.routes[method+" "+path] = func(w http.ResponseWriter, _ *http.Request) {
		if body != "" {
			w.Header().Set("Content-Type", "application/json")
		}
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

func (b *fakeBackend) last() backendCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[len(b.calls)-1]
}

func (b *fakeBackend) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.calls)
}

func (b *fakeBackend) api() *client.API {
	dispatcher := client.NewDispatcher(client.Options{
		HTTPClient:  b.server.Client(),
		Notifier:    notify.Discard,
		MaxAttempts: 1,
		BaseDelay:   time.Millisecond,
		Sleep:       func(context.Context, time.Duration) error { return nil },
	})
	return client.NewAPI(dispatcher, b.server.URL, "v1")
}

// testRoutes mounts the domain handlers the way the portal router does,
// without the session guard.
func testRoutes(b *fakeBackend) http.Handler {
	api := b.api()
	admins := NewAdminHandler(service.NewAdminService(api))
	products := NewProductHandler(service.NewProductService(api))
	categories := NewCategoryHandler(service.NewCategoryService(api))
	media := NewMediaHandler(service.NewMediaService(api, b.server.Client()), 1024)
	accounts := NewAccountHandler(service.NewAccountService(api), service.NewStoreService(api), service.NewUserService(api))

	r := chi.NewRouter()
	r.Get("/api/v1/admins", admins.List)
	r.Post("/api/v1/admins", admins.Create)
	r.Get("/api/v1/products", products.List)
	r.Post("/api/v1/products", products.Create)
	r.Get("/api/v1/products/{id}", products.Get)
	r.Put("/api/v1/products/{id}", products.Update)
	r.Get("/api/v1/categories", categories.List)
	r.Get("/api/v1/categories/{id}", categories.Get)
	r.Get("/api/v1/categories/{id}/attributes", categories.Attributes)
	r.Post("/api/v1/media/presign-url", media.Presign)
	r.Post("/api/v1/media/{id}/confirm", media.Confirm)
	r.Post("/api/v1/media/upload", media.Upload)
	r.Post("/api/v1/accounts/email-verification", accounts.SendVerificationEmail)
	r.Post("/api/v1/accounts/email-verification/verify", accounts.VerifyEmail)
	r.Post("/api/v1/stores", accounts.RegisterStore)
	r.Get("/api/v1/users/settings", accounts.GetSettings)
	r.Put("/api/v1/users/settings", accounts.SetSettings)
	return r
}

func do(t *testing.T, h http.Handler, method string, target string, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Meta    json.RawMessage `json:"meta"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()

	var out envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}
