package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"seller-center/internal/model"
)

const DefaultStateTTL = 10 * time.Minute

type SignInOptions struct {
	Authority             string
	ClientID              string
	RedirectURI           string
	PostLogoutRedirectURI string
	ResponseType          string
	ResponseMode          string
	Scope                 string
	DefaultCulture        string
	StateTTL              time.Duration
	HTTPClient            *http.Client
	Logger                *slog.Logger
	Now                   func() time.Time
}

type pendingSignIn struct {
	verifier  string
	nonce     string
	createdAt time.Time
}

// SignIn drives the authorization code flow with PKCE.
type SignIn struct {
	opts   SignInOptions
	store  SessionStore
	oauth  *oauth2.Config
	logger *slog.Logger

	mu      sync.Mutex
	pending map[string]pendingSignIn
}

func NewSignIn(store SessionStore, opts SignInOptions) *SignIn {
	if opts.ResponseType == "" {
		opts.ResponseType = "code"
	}
	if opts.Scope == "" {
		opts.Scope = "openid profile offline_access"
	}
	if opts.StateTTL <= 0 {
		opts.StateTTL = DefaultStateTTL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &SignIn{
		opts:  opts,
		store: store,
		oauth: &oauth2.Config{
			ClientID:    opts.ClientID,
			RedirectURL: opts.RedirectURI,
			Scopes:      strings.Fields(opts.Scope),
			Endpoint: oauth2.Endpoint{
				AuthURL:   strings.TrimRight(opts.Authority, "/") + "/connect/authorize",
				TokenURL:  TokenEndpoint(opts.Authority),
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		logger:  opts.Logger.With("component", "signin"),
		pending: map[string]pendingSignIn{},
	}
}

// AuthorizationURL starts a sign-in and returns the identity provider URL the
// user must visit. An empty culture falls back to the configured default.
func (s *SignIn) AuthorizationURL(culture string) (string, error) {
	if s.opts.ClientID == "" {
		return "", errors.New("sign-in needs a client id")
	}

	verifier := oauth2.GenerateVerifier()
	state := uuid.NewString()
	nonce := uuid.NewString()

	s.mu.Lock()
	s.pruneLocked()
	s.pending[state] = pendingSignIn{verifier: verifier, nonce: nonce, createdAt: s.opts.Now()}
	s.mu.Unlock()

	if culture == "" {
		culture = s.opts.DefaultCulture
	}

	opts := []oauth2.AuthCodeOption{
		oauth2.S256ChallengeOption(verifier),
		oauth2.SetAuthURLParam("response_type", s.opts.ResponseType),
		oauth2.SetAuthURLParam("nonce", nonce),
	}
	if s.opts.ResponseMode != "" {
		opts = append(opts, oauth2.SetAuthURLParam("response_mode", s.opts.ResponseMode))
	}
	if culture != "" {
		opts = append(opts, oauth2.SetAuthURLParam("culture", culture))
	}

	return s.oauth.AuthCodeURL(state, opts...), nil
}

// HandleCallback completes a sign-in started by AuthorizationURL and stores
// the resulting identity.
func (s *SignIn) HandleCallback(ctx context.Context, code string, state string) (*model.Identity, error) {
	pending, ok := s.takePending(state)
	if !ok {
		return nil, model.ErrSignInStateMismatch
	}
	if strings.TrimSpace(code) == "" {
		return nil, fmt.Errorf("%w: missing authorization code", model.ErrInvalidInput)
	}

	started := s.opts.Now()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.opts.HTTPClient)
	token, err := s.oauth.Exchange(ctx, code, oauth2.VerifierOption(pending.verifier))
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			s.logger.Warn("authorization code exchange rejected",
				"error_code", retrieveErr.ErrorCode,
				"error_description", retrieveErr.ErrorDescription,
			)
		} else {
			s.logger.Warn("authorization code exchange failed", "error", err)
		}
		return nil, fmt.Errorf("%w: %w", model.ErrCodeExchangeFailed, err)
	}

	identity := &model.Identity{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		IDToken:      extraString(token, "id_token"),
		TokenType:    token.TokenType,
		Scope:        extraString(token, "scope"),
	}
	if expiresIn, ok := extraSeconds(token, "expires_in"); ok {
		identity.ExpiresAt = model.At(started.Unix() + expiresIn)
	}

	if identity.IDToken != "" {
		claims, err := ParseIDTokenClaims(identity.IDToken)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", model.ErrCodeExchangeFailed, err)
		}
		if nonce, _ := claims["nonce"].(string); nonce != pending.nonce {
			return nil, fmt.Errorf("%w: id_token nonce missing or mismatched", model.ErrCodeExchangeFailed)
		}
		identity.Profile = ProfileClaims(claims)
	}

	if outcome := s.store.Save(ctx, identity); !outcome.OK() {
		s.logger.Error("signed-in session not persisted", "fell_back", outcome.FellBack, "error", outcome.Err)
	}

	s.logger.Info("user signed in", "subject", identity.Subject())
	return identity, nil
}

// SignOutURL ends the local session and returns the identity provider's end
// session URL. redirectTo, when set, travels in the state parameter.
func (s *SignIn) SignOutURL(ctx context.Context, redirectTo string) string {
	q := url.Values{}
	q.Set("client_id", s.opts.ClientID)
	if current := s.store.Current(ctx); current != nil && current.IDToken != "" {
		q.Set("id_token_hint", current.IDToken)
	}
	if s.opts.PostLogoutRedirectURI != "" {
		q.Set("post_logout_redirect_uri", s.opts.PostLogoutRedirectURI)
	}
	if redirectTo != "" {
		q.Set("state", redirectTo)
	}

	if outcome := s.store.Invalidate(ctx); !outcome.OK() {
		s.logger.Error("sign-out left session data behind", "error", outcome.Err)
	}

	return s.endpoint("/connect/endsession") + "?" + q.Encode()
}

// Pending returns the number of sign-ins awaiting their callback.
func (s *SignIn) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked()
	return len(s.pending)
}

func (s *SignIn) takePending(state string) (pendingSignIn, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked()
	pending, ok := s.pending[state]
	if ok {
		delete(s.pending, state)
	}
	return pending, ok
}

func (s *SignIn) pruneLocked() {
	cutoff := s.opts.Now().Add(-s.opts.StateTTL)
	for state, pending := range s.pending {
		if !pending.createdAt.After(cutoff) {
			delete(s.pending, state)
		}
	}
}

func (s *SignIn) endpoint(path string) string {
	return strings.TrimRight(s.opts.Authority, "/") + path
}

func extraString(token *oauth2.Token, key string) string {
	v, _ := token.Extra(key).(string)
	return v
}

// extraSeconds reads a numeric token response field. The raw value is kept so
// expiry is computed from the injected clock rather than oauth2's.
func extraSeconds(token *oauth2.Token, key string) (int64, bool) {
	switch v := token.Extra(key).(type) {
	case float64:
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}
