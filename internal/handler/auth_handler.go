package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"seller-center/internal/auth"
	"seller-center/internal/middleware"
	"seller-center/internal/model"
	"seller-center/internal/session"
	"seller-center/pkg/apierror"
)

const returnCookieName = "sc_return_to"

type AuthHandler struct {
	signIn      *auth.SignIn
	coordinator *auth.Coordinator
	store       *session.Store
	secure      bool
	logger      *slog.Logger
}

// NewAuthHandler serves the sign-in flow. secure marks the return-path
// cookie Secure and should be set outside development.
func NewAuthHandler(signIn *auth.SignIn, coordinator *auth.Coordinator, store *session.Store, secure bool, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		signIn:      signIn,
		coordinator: coordinator,
		store:       store,
		secure:      secure,
		logger:      logger.With("component", "auth_handler"),
	}
}

// Login redirects the browser to the identity provider.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	target, err := h.signIn.AuthorizationURL(strings.TrimSpace(query.Get("culture")))
	if err != nil {
		writeError(w, err)
		return
	}

	if returnTo := safeReturnPath(query.Get("returnUrl")); returnTo != "" {
		http.SetCookie(w, &http.Cookie{
			Name:     returnCookieName,
			Value:    returnTo,
			Path:     "/",
			MaxAge:   int(auth.DefaultStateTTL.Seconds()),
			HttpOnly: true,
			Secure:   h.secure,
			SameSite: http.SameSiteLaxMode,
		})
	}

	http.Redirect(w, r, target, http.StatusFound)
}

// Callback completes the sign-in. It accepts both query and form_post
// responses.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	if providerErr := strings.TrimSpace(r.FormValue("error")); providerErr != "" {
		h.logger.Warn("identity provider rejected sign-in", "error", providerErr, "description", r.FormValue("error_description"))
		writeError(w, apierror.New("SIGNIN_REJECTED", "errors.ACCESS_DENIED", providerErr, http.StatusBadRequest))
		return
	}

	identity, err := h.signIn.HandleCallback(r.Context(), r.FormValue("code"), r.FormValue("state"))
	if err != nil {
		writeError(w, err)
		return
	}

	target := "/"
	if cookie, err := r.Cookie(returnCookieName); err == nil {
		if returnTo := safeReturnPath(cookie.Value); returnTo != "" {
			target = returnTo
		}
		h.clearReturnCookie(w)
	}

	h.logger.Info("sign-in completed", "subject", identity.Subject(), "redirect", target)
	http.Redirect(w, r, target, http.StatusFound)
}

type logoutRequest struct {
	RedirectTo string `json:"redirectTo"`
}

// Logout ends the session and returns the identity provider's end session URL
// for the browser to visit.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	payload := logoutRequest{RedirectTo: r.URL.Query().Get("redirectTo")}
	if r.ContentLength > 0 && !decodeJSON(w, r, &payload) {
		return
	}

	h.clearReturnCookie(w)
	logoutURL := h.signIn.SignOutURL(r.Context(), strings.TrimSpace(payload.RedirectTo))
	writeSuccess(w, http.StatusOK, map[string]string{"logoutUrl": logoutURL}, nil)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, model.ErrNoSession)
		return
	}
	writeSuccess(w, http.StatusOK, principal.View(), nil)
}

// Refresh renews the session if it is close to expiry and reports the
// resulting state.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	identity := h.store.Current(r.Context())
	if identity == nil {
		writeError(w, model.ErrNoSession)
		return
	}

	renewed, err := h.coordinator.RefreshIfNeeded(r.Context(), identity)
	if err != nil {
		if errors.Is(err, model.ErrReauthenticationRequired) {
			w.Header().Set("Location", "/auth/login")
		}
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, middleware.NewPrincipal(renewed).View(), map[string]string{
		"state": h.coordinator.Assess(renewed).String(),
	})
}

func (h *AuthHandler) clearReturnCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     returnCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// safeReturnPath accepts only same-origin absolute paths so the callback
// cannot be turned into an open redirect.
func safeReturnPath(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return ""
	}
	return raw
}
