package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"seller-center/internal/event"
	"seller-center/internal/model"
)

const (
	testAuthority = "https://id.example.com/identity"
	testClientID  = "seller-center"
)

type flakyBackend struct {
	*MemoryBackend
	mu       sync.Mutex
	getErr   error
	setErr   error
	gets     int
	sets     int
	lastSets [][]byte
}

func newFlakyBackend() *flakyBackend {
	return &flakyBackend{MemoryBackend: NewMemoryBackend()}
}

func (f *flakyBackend) Get(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	f.gets++
	err := f.getErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.MemoryBackend.Get(ctx, key)
}

func (f *flakyBackend) Set(ctx context.Context, key string, value []byte) error {
	f.mu.Lock()
	f.sets++
	f.lastSets = append(f.lastSets, append([]byte(nil), value...))
	err := f.setErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.MemoryBackend.Set(ctx, key, value)
}

func (f *flakyBackend) reads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gets
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []event.Event
}

func (r *recordingPublisher) Publish(e event.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingPublisher) types() []event.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]event.Type, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestStore(t *testing.T, backend Backend, fallback Backend, clock *fakeClock, events event.Publisher) *Store {
	t.Helper()
	return NewStore(backend, Options{
		Authority: testAuthority,
		ClientID:  testClientID,
		Fallback:  fallback,
		Events:    events,
		Now:       clock.Now,
	})
}

func sampleIdentity(clock *fakeClock) *model.Identity {
	return &model.Identity{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		IDToken:      "id-1",
		TokenType:    "Bearer",
		ExpiresAt:    model.At(clock.Now().Add(time.Hour).Unix()),
		Profile: map[string]any{
			"sub":            "user-1",
			"email":          "seller@example.com",
			"email_verified": true,
			"role":           []any{"seller"},
		},
	}
}

func TestKeyFormat(t *testing.T) {
	t.Parallel()

	require.Equal(t, "user:https://id.example.com/identity:seller-center", Key(testAuthority+"/", testClientID))
	require.NotEqual(t, Key(testAuthority, "a"), Key(testAuthority, "b"))
}

func TestStoreRoundTrip(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	store := newTestStore(t, NewMemoryBackend(), nil, clock, nil)
	ctx := context.Background()

	require.Nil(t, store.Current(ctx))

	identity := sampleIdentity(clock)
	outcome := store.Save(ctx, identity)
	require.True(t, outcome.OK())
	require.True(t, outcome.Persisted)
	require.False(t, outcome.FellBack)

	require.Equal(t, identity, store.Current(ctx))
}

func TestStoreSaveIsIdempotent(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	backend := newFlakyBackend()
	store := newTestStore(t, backend, nil, clock, nil)
	ctx := context.Background()

	identity := sampleIdentity(clock)
	require.True(t, store.Save(ctx, identity).OK())
	first, err := backend.MemoryBackend.Get(ctx, store.Key())
	require.NoError(t, err)

	require.True(t, store.Save(ctx, identity).OK())
	second, err := backend.MemoryBackend.Get(ctx, store.Key())
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Len(t, backend.lastSets, 2)
	require.Equal(t, backend.lastSets[0], backend.lastSets[1])
}

func TestStoreCachesReadsForTTL(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	backend := newFlakyBackend()
	store := newTestStore(t, backend, nil, clock, nil)
	ctx := context.Background()

	require.True(t, store.Save(ctx, sampleIdentity(clock)).OK())

	for i := 0; i < 5; i++ {
		require.NotNil(t, store.Current(ctx))
	}
	require.Equal(t, 1, backend.reads())

	clock.Advance(DefaultCacheTTL - time.Second)
	require.NotNil(t, store.Current(ctx))
	require.Equal(t, 1, backend.reads())

	clock.Advance(time.Second)
	require.NotNil(t, store.Current(ctx))
	require.Equal(t, 2, backend.reads())
}

func TestStoreReturnsCopies(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	store := newTestStore(t, NewMemoryBackend(), nil, clock, nil)
	ctx := context.Background()
	require.True(t, store.Save(ctx, sampleIdentity(clock)).OK())

	first := store.Current(ctx)
	first.AccessToken = "tampered"
	first.Profile["email"] = "tampered@example.com"

	second := store.Current(ctx)
	require.Equal(t, "access-1", second.AccessToken)
	require.Equal(t, "seller@example.com", second.Email())
}

func TestStoreReadFailureReturnsNilAndClearsCache(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	backend := newFlakyBackend()
	store := newTestStore(t, backend, nil, clock, nil)
	ctx := context.Background()

	require.True(t, store.Save(ctx, sampleIdentity(clock)).OK())
	require.NotNil(t, store.Current(ctx))

	clock.Advance(DefaultCacheTTL)
	backend.getErr = errors.New("storage offline")
	require.Nil(t, store.Current(ctx))

	backend.getErr = nil
	require.NotNil(t, store.Current(ctx))
	require.Equal(t, 3, backend.reads())
}

func TestStoreCorruptValueIsNoUser(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	backend := NewMemoryBackend()
	store := newTestStore(t, backend, nil, clock, nil)
	ctx := context.Background()

	require.NoError(t, backend.Set(ctx, store.Key(), []byte("{not json")))
	require.Nil(t, store.Current(ctx))

	require.NoError(t, backend.Set(ctx, store.Key(), []byte(`{"access_token":""}`)))
	clock.Advance(DefaultCacheTTL)
	require.Nil(t, store.Current(ctx))
}

func TestStoreSaveFallsBackWhenPrimaryFails(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	primary := newFlakyBackend()
	primary.setErr = errors.New("quota exceeded")
	fallback := NewMemoryBackend()
	store := newTestStore(t, primary, fallback, clock, nil)
	ctx := context.Background()

	identity := sampleIdentity(clock)
	outcome := store.Save(ctx, identity)
	require.False(t, outcome.OK())
	require.True(t, outcome.FellBack)
	require.False(t, outcome.Persisted)
	require.ErrorContains(t, outcome.Err, "quota exceeded")

	_, err := fallback.Get(ctx, FallbackKey(testAuthority, testClientID))
	require.NoError(t, err)

	require.Equal(t, identity, store.Current(ctx))
}

func TestStoreSaveReportsDoubleFailure(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	primary := newFlakyBackend()
	primary.setErr = errors.New("primary down")
	fallback := newFlakyBackend()
	fallback.setErr = errors.New("fallback down")
	store := newTestStore(t, primary, fallback, clock, nil)

	outcome := store.Save(context.Background(), sampleIdentity(clock))
	require.False(t, outcome.FellBack)
	require.ErrorContains(t, outcome.Err, "primary down")
	require.ErrorContains(t, outcome.Err, "fallback down")
}

func TestStoreRejectsInvalidIdentity(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	backend := newFlakyBackend()
	store := newTestStore(t, backend, nil, clock, nil)

	outcome := store.Save(context.Background(), &model.Identity{RefreshToken: "r"})
	require.ErrorIs(t, outcome.Err, model.ErrInvalidIdentity)
	require.Zero(t, backend.sets)
}

func TestStoreInvalidate(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	events := &recordingPublisher{}
	fallback := NewMemoryBackend()
	store := newTestStore(t, NewMemoryBackend(), fallback, clock, events)
	ctx := context.Background()

	require.True(t, store.Save(ctx, sampleIdentity(clock)).OK())
	require.NoError(t, fallback.Set(ctx, FallbackKey(testAuthority, testClientID), []byte(`{"access_token":"stale"}`)))
	require.NotNil(t, store.Current(ctx))

	require.True(t, store.Invalidate(ctx).OK())
	require.Nil(t, store.Current(ctx))
	require.Contains(t, events.types(), event.TypeSessionUnloaded)
}

func TestStorePublishesLoadAndExpiring(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	events := &recordingPublisher{}
	store := newTestStore(t, NewMemoryBackend(), nil, clock, events)
	ctx := context.Background()

	identity := sampleIdentity(clock)
	require.True(t, store.Save(ctx, identity).OK())
	require.NotNil(t, store.Current(ctx))
	require.Equal(t, []event.Type{event.TypeSessionLoaded}, events.types())

	soon := identity.Clone()
	soon.ExpiresAt = model.At(clock.Now().Add(30 * time.Second).Unix())
	require.True(t, store.Save(ctx, soon).OK())
	require.NotNil(t, store.Current(ctx))
	require.Equal(t, []event.Type{
		event.TypeSessionLoaded,
		event.TypeSessionExpiring,
	}, events.types())
}

func TestStoreAnnouncesOnlyTransitions(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	events := &recordingPublisher{}
	store := newTestStore(t, NewMemoryBackend(), nil, clock, events)
	ctx := context.Background()

	identity := sampleIdentity(clock)
	require.True(t, store.Save(ctx, identity).OK())
	require.NotNil(t, store.Current(ctx))

	// Cache expiry and a token rotation for the same user are not new loads.
	clock.Advance(DefaultCacheTTL + time.Second)
	require.NotNil(t, store.Current(ctx))
	rotated := identity.Clone()
	rotated.AccessToken = "access-2"
	require.True(t, store.Save(ctx, rotated).OK())
	require.NotNil(t, store.Current(ctx))
	require.Equal(t, []event.Type{event.TypeSessionLoaded}, events.types())

	require.True(t, store.Invalidate(ctx).OK())
	require.True(t, store.Save(ctx, identity).OK())
	require.NotNil(t, store.Current(ctx))
	require.Equal(t, []event.Type{
		event.TypeSessionLoaded,
		event.TypeSessionUnloaded,
		event.TypeSessionLoaded,
	}, events.types())
}

// gatedBackend blocks Get until release is closed, once armed.
type gatedBackend struct {
	*MemoryBackend
	mu      sync.Mutex
	armed   bool
	entered chan struct{}
	release chan struct{}
}

func newGatedBackend() *gatedBackend {
	return &gatedBackend{
		MemoryBackend: NewMemoryBackend(),
		entered:       make(chan struct{}),
		release:       make(chan struct{}),
	}
}

func (g *gatedBackend) arm() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.armed = true
}

func (g *gatedBackend) Get(ctx context.Context, key string) ([]byte, error) {
	g.mu.Lock()
	armed := g.armed
	g.armed = false
	g.mu.Unlock()

	if !armed {
		return g.MemoryBackend.Get(ctx, key)
	}
	// Read before blocking so the caller holds the value from before any
	// concurrent write.
	data, err := g.MemoryBackend.Get(ctx, key)
	close(g.entered)
	<-g.release
	return data, err
}

func TestStoreReadInFlightDuringSaveDoesNotCacheOldValue(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	backend := newGatedBackend()
	store := newTestStore(t, backend, nil, clock, nil)
	ctx := context.Background()

	require.True(t, store.Save(ctx, sampleIdentity(clock)).OK())

	backend.arm()
	done := make(chan *model.Identity, 1)
	go func() { done <- store.Current(ctx) }()
	<-backend.entered

	rotated := sampleIdentity(clock)
	rotated.AccessToken = "access-2"
	require.True(t, store.Save(ctx, rotated).OK())

	close(backend.release)
	stale := <-done
	require.Equal(t, "access-1", stale.AccessToken)

	current := store.Current(ctx)
	require.NotNil(t, current)
	require.Equal(t, "access-2", current.AccessToken)
}

func TestStoreFallbackWinsOverStalePrimary(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	primary := newFlakyBackend()
	store := newTestStore(t, primary, NewMemoryBackend(), clock, nil)
	ctx := context.Background()

	require.True(t, store.Save(ctx, sampleIdentity(clock)).OK())

	primary.mu.Lock()
	primary.setErr = errors.New("quota exceeded")
	primary.mu.Unlock()

	rotated := sampleIdentity(clock)
	rotated.AccessToken = "access-2"
	rotated.RefreshToken = "refresh-2"
	require.True(t, store.Save(ctx, rotated).FellBack)
	require.Equal(t, "refresh-2", store.Current(ctx).RefreshToken)

	// Once the primary accepts writes again it is authoritative.
	primary.mu.Lock()
	primary.setErr = nil
	primary.mu.Unlock()

	rotated.RefreshToken = "refresh-3"
	require.True(t, store.Save(ctx, rotated).Persisted)
	require.Equal(t, "refresh-3", store.Current(ctx).RefreshToken)
}
