package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"seller-center/internal/event"
	"seller-center/internal/model"
	"seller-center/internal/session"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Unix(1_750_000_000, 0)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordedEvents struct {
	mu     sync.Mutex
	events []event.Event
}

func (r *recordedEvents) Publish(e event.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordedEvents) count(t event.Type) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

// fakeProvider is a token endpoint whose answer is set per test.
type fakeProvider struct {
	server *httptest.Server
	hits   atomic.Int32

	mu      sync.Mutex
	status  int
	body    string
	forms   []url.Values
	handler func(w http.ResponseWriter, form url.Values)
}

func newFakeProvider(t *testing.T) *fakeProvider {
	t.Helper()

	p := &fakeProvider{status: http.StatusOK}
	p.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.hits.Add(1)
		if r.URL.Path != "/identity/connect/token" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseForm(); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		p.mu.Lock()
		p.forms = append(p.forms, r.PostForm)
		status, body, handler := p.status, p.body, p.handler
		p.mu.Unlock()

		if handler != nil {
			handler(w, r.PostForm)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(p.server.Close)
	return p
}

func (p *fakeProvider) authority() string {
	return p.server.URL + "/identity"
}

func (p *fakeProvider) respond(status int, body string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = status
	p.body = body
}

func (p *fakeProvider) lastForm() url.Values {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.forms) == 0 {
		return nil
	}
	return p.forms[len(p.forms)-1]
}

func newTestStore(authority string, clock *testClock) *session.Store {
	return session.NewStore(session.NewMemoryBackend(), session.Options{
		Authority: authority,
		ClientID:  "seller-center",
		Now:       clock.Now,
	})
}

func newTestCoordinator(p *fakeProvider, store SessionStore, clock *testClock, events event.Publisher) *Coordinator {
	return NewCoordinator(store, CoordinatorOptions{
		Authority:  p.authority(),
		ClientID:   "seller-center",
		HTTPClient: p.server.Client(),
		Events:     events,
		Now:        clock.Now,
	})
}

func unsignedIDToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-only"))
	require.NoError(t, err)
	return token
}

func tokenJSON(t *testing.T, v map[string]any) string {
	t.Helper()

	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}

func mustSave(t *testing.T, store *session.Store, identity *model.Identity) {
	t.Helper()
	require.True(t, store.Save(context.Background(), identity).OK())
}

func (p *fakeProvider) handle(fn func(w http.ResponseWriter, form url.Values)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handler = fn
}
