package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"seller-center/internal/event"
	"seller-center/internal/model"
)

const (
	DefaultCacheTTL       = 5 * time.Minute
	DefaultExpiringWindow = 60 * time.Second
)

// Outcome reports what a write actually did. Storage failures never surface
// as errors to callers; they show up here instead.
type Outcome struct {
	// Persisted is true when the primary backend accepted the write.
	Persisted bool
	// FellBack is true when the value went to the fallback backend instead.
	FellBack bool
	// Err is the primary backend failure, if any.
	Err error
}

func (o Outcome) OK() bool {
	return o.Err == nil
}

type Options struct {
	Authority      string
	ClientID       string
	Fallback       Backend
	CacheTTL       time.Duration
	ExpiringWindow time.Duration
	Events         event.Publisher
	Logger         *slog.Logger
	Now            func() time.Time
}

// Store is the single source of truth for the current identity. It fronts a
// persistent Backend with a short-lived read cache.
type Store struct {
	backend        Backend
	fallback       Backend
	key            string
	fallbackKey    string
	cacheTTL       time.Duration
	expiringWindow time.Duration
	events         event.Publisher
	logger         *slog.Logger
	now            func() time.Time

	mu       sync.Mutex
	cached   *model.Identity
	cachedAt time.Time
	hasCache bool
	// generation changes whenever the cache is dropped, so a read that
	// started before a write cannot refill the cache with the old value.
	generation uint64
	// fallbackNewer is set while the fallback key holds a newer identity
	// than the primary.
	fallbackNewer bool
	announced     *announcement
}

// announcement is the session state last reported on the event bus.
type announcement struct {
	subject  string
	expiring bool
}

func NewStore(backend Backend, opts Options) *Store {
	if opts.Fallback == nil {
		opts.Fallback = NewMemoryBackend()
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if opts.ExpiringWindow <= 0 {
		opts.ExpiringWindow = DefaultExpiringWindow
	}
	if opts.Events == nil {
		opts.Events = event.Discard
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Store{
		backend:        backend,
		fallback:       opts.Fallback,
		key:            Key(opts.Authority, opts.ClientID),
		fallbackKey:    FallbackKey(opts.Authority, opts.ClientID),
		cacheTTL:       opts.CacheTTL,
		expiringWindow: opts.ExpiringWindow,
		events:         opts.Events,
		logger:         opts.Logger.With("component", "session_store"),
		now:            opts.Now,
	}
}

// Key returns the primary storage key.
func (s *Store) Key() string {
	return s.key
}

// Current returns the current identity, or nil when nobody is signed in or
// storage cannot be read.
func (s *Store) Current(ctx context.Context) *model.Identity {
	s.mu.Lock()
	if s.hasCache && s.now().Sub(s.cachedAt) < s.cacheTTL {
		cached := s.cached.Clone()
		s.mu.Unlock()
		return cached
	}
	generation := s.generation
	s.mu.Unlock()

	identity, err := s.load(ctx)
	if err != nil {
		s.logger.Warn("session read failed", "error", err)
		s.clearCache()
		return nil
	}

	s.mu.Lock()
	if s.generation == generation {
		s.cached = identity
		s.cachedAt = s.now()
		s.hasCache = true
	}
	s.mu.Unlock()

	s.announce(identity)
	return identity.Clone()
}

// Save persists identity under the primary key and drops the read cache.
func (s *Store) Save(ctx context.Context, identity *model.Identity) Outcome {
	if !identity.Valid() {
		return Outcome{Err: model.ErrInvalidIdentity}
	}

	data, err := json.Marshal(identity)
	if err != nil {
		return Outcome{Err: fmt.Errorf("encode identity: %w", err)}
	}

	defer s.clearCache()

	primaryErr := s.backend.Set(ctx, s.key, data)
	if primaryErr == nil {
		s.setFallbackNewer(false)
		if err := s.fallback.Delete(ctx, s.fallbackKey); err != nil && !errors.Is(err, ErrNotFound) {
			s.logger.Warn("clear fallback session failed", "error", err)
		}
		return Outcome{Persisted: true}
	}

	s.logger.Error("session write failed; using fallback key", "key", s.key, "error", primaryErr)
	if err := s.fallback.Set(ctx, s.fallbackKey, data); err != nil {
		s.logger.Error("fallback session write failed", "key", s.fallbackKey, "error", err)
		return Outcome{Err: errors.Join(primaryErr, err)}
	}
	s.setFallbackNewer(true)

	return Outcome{FellBack: true, Err: primaryErr}
}

// Invalidate forgets the current identity everywhere.
func (s *Store) Invalidate(ctx context.Context) Outcome {
	s.mu.Lock()
	s.fallbackNewer = false
	s.announced = nil
	s.mu.Unlock()
	s.clearCache()

	var errs []error
	if err := s.backend.Delete(ctx, s.key); err != nil && !errors.Is(err, ErrNotFound) {
		errs = append(errs, err)
	}
	if err := s.fallback.Delete(ctx, s.fallbackKey); err != nil && !errors.Is(err, ErrNotFound) {
		errs = append(errs, err)
	}

	s.events.Publish(event.New(event.TypeSessionUnloaded, nil))

	if len(errs) > 0 {
		joined := errors.Join(errs...)
		s.logger.Error("session removal failed", "error", joined)
		return Outcome{Err: joined}
	}
	return Outcome{Persisted: true}
}

// load reads the fallback first while it holds the newer copy, then the
// primary, then the fallback again when the primary has nothing.
func (s *Store) load(ctx context.Context) (*model.Identity, error) {
	s.mu.Lock()
	preferFallback := s.fallbackNewer
	s.mu.Unlock()

	if preferFallback {
		data, err := s.fallback.Get(ctx, s.fallbackKey)
		if err == nil {
			return decodeIdentity(data)
		}
		if !errors.Is(err, ErrNotFound) {
			s.logger.Warn("fallback session read failed", "key", s.fallbackKey, "error", err)
		}
	}

	data, err := s.backend.Get(ctx, s.key)
	if errors.Is(err, ErrNotFound) {
		data, err = s.fallback.Get(ctx, s.fallbackKey)
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
	}
	if err != nil {
		return nil, err
	}
	return decodeIdentity(data)
}

func decodeIdentity(data []byte) (*model.Identity, error) {
	var identity model.Identity
	if err := json.Unmarshal(data, &identity); err != nil {
		return nil, fmt.Errorf("decode identity: %w", err)
	}

	if !identity.Valid() {
		return nil, nil
	}
	return &identity, nil
}

func (s *Store) setFallbackNewer(newer bool) {
	s.mu.Lock()
	s.fallbackNewer = newer
	s.mu.Unlock()
}

func (s *Store) clearCache() {
	s.mu.Lock()
	s.cached = nil
	s.hasCache = false
	s.cachedAt = time.Time{}
	s.generation++
	s.mu.Unlock()
}

// announce publishes session.loaded when a different user appears and
// session.expiring when the identity enters the expiring window.
func (s *Store) announce(identity *model.Identity) {
	var next *announcement
	if identity != nil {
		remaining, ok := identity.ExpiresIn(s.now())
		next = &announcement{subject: identity.Subject(), expiring: !ok || remaining <= s.expiringWindow}
	}

	s.mu.Lock()
	prev := s.announced
	s.announced = next
	s.mu.Unlock()

	if next == nil {
		return
	}
	payload := map[string]any{"subject": next.subject}
	changed := prev == nil || prev.subject != next.subject
	if changed {
		s.events.Publish(event.New(event.TypeSessionLoaded, payload))
	}
	if next.expiring && (changed || !prev.expiring) {
		s.events.Publish(event.New(event.TypeSessionExpiring, payload))
	}
}
