package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/sync/singleflight"

	"seller-center/internal/event"
	"seller-center/internal/model"
	"seller-center/internal/session"
)

// SessionStore is the part of *session.Store the auth flows depend on.
type SessionStore interface {
	Current(ctx context.Context) *model.Identity
	Save(ctx context.Context, identity *model.Identity) session.Outcome
	Invalidate(ctx context.Context) session.Outcome
}

type CoordinatorOptions struct {
	Authority  string
	ClientID   string
	HTTPClient *http.Client
	Leeway     time.Duration
	Events     event.Publisher
	Logger     *slog.Logger
	Now        func() time.Time
}

// Coordinator renews access tokens with the refresh_token grant.
type Coordinator struct {
	store    SessionStore
	tokens   *tokenClient
	clientID string
	leeway   time.Duration
	events   event.Publisher
	logger   *slog.Logger
	now      func() time.Time

	group singleflight.Group
}

func NewCoordinator(store SessionStore, opts CoordinatorOptions) *Coordinator {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	if opts.Leeway <= 0 {
		opts.Leeway = DefaultLeeway
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

	return &Coordinator{
		store:    store,
		tokens:   &tokenClient{httpClient: opts.HTTPClient, endpoint: TokenEndpoint(opts.Authority)},
		clientID: opts.ClientID,
		leeway:   opts.Leeway,
		events:   opts.Events,
		logger:   opts.Logger.With("component", "refresh_coordinator"),
		now:      opts.Now,
	}
}

// Assess places identity in the refresh state machine using the
// coordinator's clock and leeway.
func (c *Coordinator) Assess(identity *model.Identity) State {
	return Assess(identity, c.now(), c.leeway)
}

// RefreshIfNeeded returns identity unchanged while it is valid, and otherwise
// exchanges its refresh token for a new one.
//
// A nil identity and ErrReauthenticationRequired mean the session is gone
// and has been invalidated. ErrRefreshFailed means the exchange failed
// transiently and the stored identity was left alone.
func (c *Coordinator) RefreshIfNeeded(ctx context.Context, identity *model.Identity) (*model.Identity, error) {
	if !identity.Valid() {
		return nil, model.ErrNoSession
	}
	if c.Assess(identity) == StateValid {
		return identity, nil
	}

	if identity.RefreshToken == "" {
		c.logger.Info("session expired without refresh token")
		c.invalidate(ctx)
		return nil, model.ErrReauthenticationRequired
	}

	// Overlapping refreshes of the same credential share one exchange. The
	// exchange is detached from any single caller's cancellation.
	flight := c.group.DoChan(identity.RefreshToken, func() (any, error) {
		return c.refresh(context.WithoutCancel(ctx), identity)
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", model.ErrRefreshFailed, ctx.Err())
	case res := <-flight:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*model.Identity).Clone(), nil
	}
}

func (c *Coordinator) refresh(ctx context.Context, identity *model.Identity) (*model.Identity, error) {
	if stored := c.store.Current(ctx); stored != nil &&
		stored.AccessToken != identity.AccessToken &&
		c.Assess(stored) == StateValid {
		c.logger.Debug("session already refreshed by another flow")
		return stored, nil
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", identity.RefreshToken)
	if c.clientID != "" {
		form.Set("client_id", c.clientID)
	}

	started := c.now()
	tokens, err := c.tokens.exchange(ctx, form)
	if err != nil {
		var endpointErr *EndpointError
		if errors.As(err, &endpointErr) && endpointErr.InvalidGrant() {
			c.logger.Warn("refresh token rejected; session ends", "error", err)
			c.invalidate(ctx)
			return nil, fmt.Errorf("%w: %v", model.ErrReauthenticationRequired, err)
		}

		c.logger.Warn("token refresh failed", "error", err)
		return nil, fmt.Errorf("%w: %w", model.ErrRefreshFailed, err)
	}

	updated := identity.Clone()
	updated.AccessToken = tokens.AccessToken
	if tokens.RefreshToken != "" {
		updated.RefreshToken = tokens.RefreshToken
	}
	if tokens.TokenType != "" {
		updated.TokenType = tokens.TokenType
	}
	if tokens.Scope != "" {
		updated.Scope = tokens.Scope
	}
	if tokens.ExpiresIn != nil {
		updated.ExpiresAt = model.At(started.Unix() + *tokens.ExpiresIn)
	}
	if tokens.IDToken != "" {
		updated.IDToken = tokens.IDToken
		claims, err := ParseIDTokenClaims(tokens.IDToken)
		if err != nil {
			c.logger.Warn("refreshed id_token unreadable; keeping previous profile", "error", err)
		} else {
			updated.Profile = mergeProfile(updated.Profile, ProfileClaims(claims))
		}
	}

	if outcome := c.store.Save(ctx, updated); !outcome.OK() {
		c.logger.Error("refreshed session not persisted", "fell_back", outcome.FellBack, "error", outcome.Err)
	}

	expiresAt, _ := updated.ExpiresAt.Unix()
	c.events.Publish(event.New(event.TypeSessionRefreshed, map[string]any{
		"subject":    updated.Subject(),
		"expires_at": expiresAt,
	}))
	c.logger.Info("session refreshed", "subject", updated.Subject(), "expires_at", expiresAt)

	return updated, nil
}

func (c *Coordinator) invalidate(ctx context.Context) {
	if outcome := c.store.Invalidate(ctx); !outcome.OK() {
		c.logger.Error("session invalidation incomplete", "error", outcome.Err)
	}
}

func mergeProfile(base map[string]any, fresh map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(fresh))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range fresh {
		out[k] = v
	}
	return out
}
