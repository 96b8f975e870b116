package auth

import (
	"context"
	"log/slog"

	"seller-center/internal/event"
)

// RedirectTrigger asks connected clients to start a new sign-in.
type RedirectTrigger struct {
	events    event.Publisher
	loginPath string
	logger    *slog.Logger
}

func NewRedirectTrigger(events event.Publisher, loginPath string, logger *slog.Logger) *RedirectTrigger {
	if events == nil {
		events = event.Discard
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedirectTrigger{events: events, loginPath: loginPath, logger: logger}
}

func (t *RedirectTrigger) TriggerSignIn(_ context.Context) {
	t.logger.Info("sign-in required", "login_path", t.loginPath)
	t.events.Publish(event.New(event.TypeSignInRequired, map[string]any{
		"login_path": t.loginPath,
	}))
}
