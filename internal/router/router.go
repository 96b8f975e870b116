package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"seller-center/internal/auth"
	"seller-center/internal/config"
	"seller-center/internal/handler"
	"seller-center/internal/middleware"
)

type Handlers struct {
	Auth     *handler.AuthHandler
	Admin    *handler.AdminHandler
	Product  *handler.ProductHandler
	Category *handler.CategoryHandler
	Media    *handler.MediaHandler
	Account  *handler.AccountHandler
	Health   *handler.HealthHandler
	// Notifications serves the websocket endpoint.
	Notifications http.Handler
}

// New builds the portal router. Only /health, /auth/login and /callback are
// reachable without a session.
func New(cfg *config.Config, guard *middleware.Guard, h Handlers) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM)

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	r.Use(rateLimitMiddleware.Handler)

	r.Get("/health", h.Health.Health)
	r.Get("/auth/login", h.Auth.Login)
	r.Get("/callback", h.Auth.Callback)
	r.Post("/callback", h.Auth.Callback)

	r.Group(func(private chi.Router) {
		private.Use(guard.RequireSession)

		private.Post("/auth/logout", h.Auth.Logout)
		private.Get("/auth/me", h.Auth.Me)
		private.Post("/auth/refresh", h.Auth.Refresh)
		private.Handle("/ws", h.Notifications)

		private.Route("/api/v1", func(api chi.Router) {
			api.Use(middleware.Timeout(cfg.RequestTimeout))

			api.Route("/admins", func(admins chi.Router) {
				admins.Use(guard.RequireRoles(auth.RoleAdmin, auth.RoleSystemAdmin))
				admins.Get("/", h.Admin.List)
				admins.Post("/", h.Admin.Create)
			})

			api.Route("/products", func(products chi.Router) {
				products.Use(guard.RequireRoles(auth.RoleSeller), guard.RequireVerifiedEmail)
				products.Get("/", h.Product.List)
				products.Post("/", h.Product.Create)
				products.Get("/{id}", h.Product.Get)
				products.Put("/{id}", h.Product.Update)
			})

			api.Get("/categories", h.Category.List)
			api.Get("/categories/{id}", h.Category.Get)
			api.Get("/categories/{id}/attributes", h.Category.Attributes)

			api.Post("/media/presign-url", h.Media.Presign)
			api.Post("/media/{id}/confirm", h.Media.Confirm)
			api.Post("/media/upload", h.Media.Upload)

			api.Post("/accounts/email-verification", h.Account.SendVerificationEmail)
			api.Post("/accounts/email-verification/verify", h.Account.VerifyEmail)
			api.Post("/stores", h.Account.RegisterStore)
			api.Get("/users/settings", h.Account.GetSettings)
			api.Put("/users/settings", h.Account.SetSettings)
		})
	})

	return r
}
