package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"seller-center/internal/auth"
	"seller-center/internal/model"
	"seller-center/pkg/apierror"
)

type identitySource interface {
	Current(ctx context.Context) *model.Identity
}

type refresher interface {
	RefreshIfNeeded(ctx context.Context, identity *model.Identity) (*model.Identity, error)
}

type contextKey string

const principalContextKey contextKey = "principal"

// Principal is the signed-in user attached to a guarded request.
type Principal struct {
	Identity      *model.Identity
	Roles         auth.RoleSet
	EmailVerified bool
}

// View projects the principal without any token material.
func (p Principal) View() model.SessionView {
	view := model.SessionView{
		Roles:         p.Roles.Names(),
		EmailVerified: p.EmailVerified,
	}
	if p.Identity == nil {
		return view
	}
	view.Subject = p.Identity.Subject()
	view.Email = p.Identity.Email()
	view.Name = p.Identity.Name()
	if seconds, ok := p.Identity.ExpiresAt.Unix(); ok {
		view.ExpiresAt = &seconds
	}
	return view
}

func NewPrincipal(identity *model.Identity) Principal {
	var claims map[string]any
	if identity != nil {
		claims = identity.Profile
	}
	return Principal{
		Identity:      identity,
		Roles:         auth.ClassifyRoles(claims),
		EmailVerified: auth.EmailVerified(claims),
	}
}

// Guard enforces the portal's route access policy.
type Guard struct {
	store     identitySource
	refresher refresher
	loginPath string
	logger    *slog.Logger
	now       func() time.Time
}

func NewGuard(store identitySource, refresher refresher, loginPath string, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	if loginPath == "" {
		loginPath = "/auth/login"
	}
	return &Guard{
		store:     store,
		refresher: refresher,
		loginPath: loginPath,
		logger:    logger.With("component", "route_guard"),
		now:       time.Now,
	}
}

// RequireSession admits requests backed by a usable session, renewing the
// access token first when it is close to expiry.
func (g *Guard) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		identity := g.store.Current(ctx)
		if identity == nil {
			g.requireSignIn(w, r)
			return
		}

		renewed, err := g.refresher.RefreshIfNeeded(ctx, identity)
		switch {
		case err == nil:
			identity = renewed
		case errors.Is(err, model.ErrRefreshFailed):
			// The old token stays usable until it actually expires.
			if remaining, ok := identity.ExpiresIn(g.now()); ok && remaining <= 0 {
				g.logger.Warn("session expired and renewal failed", "error", err)
				writeEnvelope(w, apierror.New("SESSION_RENEWAL_FAILED", "errors.SERVICE_UNAVAILABLE", "session", http.StatusServiceUnavailable))
				return
			}
		default:
			g.requireSignIn(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithPrincipal(ctx, NewPrincipal(identity))))
	})
}

// RequireRoles admits principals holding at least one of roles. It must run
// after RequireSession.
func (g *Guard) RequireRoles(roles ...auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				g.requireSignIn(w, r)
				return
			}
			if !principal.Roles.Any(roles...) {
				writeEnvelope(w, apierror.New("FORBIDDEN", "errors.ACCESS_DENIED", "role", http.StatusForbidden))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireVerifiedEmail admits principals whose email claim is verified.
func (g *Guard) RequireVerifiedEmail(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := PrincipalFromContext(r.Context())
		if !ok {
			g.requireSignIn(w, r)
			return
		}
		if !principal.EmailVerified {
			writeEnvelope(w, apierror.New("EMAIL_NOT_VERIFIED", "errors.ACCESS_DENIED", "email_verified", http.StatusForbidden))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// LoginURL returns the sign-in entry point that brings the user back to
// returnTo afterwards.
func (g *Guard) LoginURL(returnTo string) string {
	if returnTo == "" {
		return g.loginPath
	}
	return g.loginPath + "?returnUrl=" + url.QueryEscape(returnTo)
}

func (g *Guard) requireSignIn(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Location", g.LoginURL(r.URL.RequestURI()))
	writeEnvelope(w, apierror.New("UNAUTHORIZED", "errors.UNAUTHORIZED", "session", http.StatusUnauthorized))
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	principal, ok := ctx.Value(principalContextKey).(Principal)
	return principal, ok
}

// WithPrincipal attaches principal to ctx.
func WithPrincipal(ctx context.Context, principal Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, principal)
}
