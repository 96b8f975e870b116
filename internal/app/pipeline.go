package app

import (
	"log/slog"
	"net/http"

	"golang.org/x/time/rate"

	"seller-center/internal/auth"
	"seller-center/internal/client"
	"seller-center/internal/config"
	"seller-center/internal/event"
	"seller-center/internal/notify"
	"seller-center/internal/service"
	"seller-center/internal/session"
)

// LoginPath is where interactive sign-in starts.
const LoginPath = "/auth/login"

// Pipeline is the session, token and request machinery shared by the server
// and the command line client.
type Pipeline struct {
	Store       *session.Store
	Coordinator *auth.Coordinator
	SignIn      *auth.SignIn
	Dispatcher  *client.Dispatcher
	API         *client.API

	Admins     *service.AdminService
	Products   *service.ProductService
	Categories *service.CategoryService
	Media      *service.MediaService
	Accounts   *service.AccountService
	Stores     *service.StoreService
	Users      *service.UserService
}

// NewPipeline wires the pipeline over backend. Events from every component go
// to bus.
func NewPipeline(cfg *config.Config, backend session.Backend, bus event.Bus, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}

	store := session.NewStore(backend, session.Options{
		Authority: cfg.OIDCAuthority,
		ClientID:  cfg.OIDCClientID,
		CacheTTL:  cfg.SessionCacheTTL,
		Events:    bus,
		Logger:    logger,
	})

	idpClient := &http.Client{Timeout: cfg.APITimeout}

	coordinator := auth.NewCoordinator(store, auth.CoordinatorOptions{
		Authority:  cfg.OIDCAuthority,
		ClientID:   cfg.OIDCClientID,
		HTTPClient: idpClient,
		Leeway:     cfg.RefreshLeeway,
		Events:     bus,
		Logger:     logger,
	})

	signIn := auth.NewSignIn(store, auth.SignInOptions{
		Authority:             cfg.OIDCAuthority,
		ClientID:              cfg.OIDCClientID,
		RedirectURI:           cfg.OIDCRedirectURI,
		PostLogoutRedirectURI: cfg.OIDCPostLogoutRedirectURI,
		ResponseType:          cfg.OIDCResponseType,
		ResponseMode:          cfg.OIDCResponseMode,
		Scope:                 cfg.OIDCScope,
		DefaultCulture:        cfg.DefaultCulture,
		HTTPClient:            idpClient,
		Logger:                logger,
	})

	var limiter *rate.Limiter
	if cfg.APIMaxRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.APIMaxRPS), max(1, int(cfg.APIMaxRPS)))
	}

	dispatcher := client.NewDispatcher(client.Options{
		HTTPClient:  &http.Client{Timeout: cfg.APITimeout},
		Identity:    store,
		Refresher:   coordinator,
		Notifier:    notify.NewBusNotifier(bus, logger),
		SignIn:      auth.NewRedirectTrigger(bus, LoginPath, logger),
		Limiter:     limiter,
		MaxAttempts: cfg.APIMaxAttempts,
		BaseDelay:   cfg.APIRetryDelay,
		Logger:      logger,
	})

	api := client.NewAPI(dispatcher, cfg.APIBaseURL, cfg.APIVersion)

	return &Pipeline{
		Store:       store,
		Coordinator: coordinator,
		SignIn:      signIn,
		Dispatcher:  dispatcher,
		API:         api,

		Admins:     service.NewAdminService(api),
		Products:   service.NewProductService(api),
		Categories: service.NewCategoryService(api),
		Media:      service.NewMediaService(api, nil),
		Accounts:   service.NewAccountService(api),
		Stores:     service.NewStoreService(api),
		Users:      service.NewUserService(api),
	}
}
