package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

const (
	SessionBackendMemory   = "memory"
	SessionBackendFile     = "file"
	SessionBackendPostgres = "postgres"
	SessionBackendRedis    = "redis"
)

type Config struct {
	Environment        string
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	ServerIdleTimeout  time.Duration
	RequestTimeout     time.Duration
	CORSOrigins        []string
	RateLimitRPM       int
	AuthRateLimitRPM   int

	APIBaseURL     string
	APIVersion     string
	APITimeout     time.Duration
	APIMaxAttempts int
	APIRetryDelay  time.Duration
	APIMaxRPS      float64

	OIDCAuthority             string
	OIDCClientID              string
	OIDCRedirectURI           string
	OIDCPostLogoutRedirectURI string
	OIDCResponseType          string
	OIDCResponseMode          string
	OIDCScope                 string
	DefaultCulture            string

	SessionBackend  string
	SessionFile     string
	SessionCacheTTL time.Duration
	RefreshLeeway   time.Duration

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	RedisSessionTTL time.Duration

	LogLevel  string
	LogFormat string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	apiBase := strings.TrimRight(firstEnv("http://localhost:5000", "GATEWAY_BASE_URL", "API_BASE_URL", "API_URL"), "/")

	cfg := &Config{
		Environment:        NormalizeEnvironment(os.Getenv("APP_ENV")),
		ServerPort:         getEnv("SERVER_PORT", "8080"),
		ServerReadTimeout:  getDuration("SERVER_READ_TIMEOUT", 15*time.Second),
		ServerWriteTimeout: getDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
		ServerIdleTimeout:  getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		RequestTimeout:     getDuration("REQUEST_TIMEOUT", 0),
		CORSOrigins:        splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		RateLimitRPM:       getInt("RATE_LIMIT_RPM", 300),
		AuthRateLimitRPM:   getInt("AUTH_RATE_LIMIT_RPM", 30),

		APIBaseURL:     apiBase,
		APIVersion:     getEnv("API_VERSION", "v1"),
		APITimeout:     getDuration("API_TIMEOUT", 30*time.Second),
		APIMaxAttempts: getInt("API_MAX_ATTEMPTS", 3),
		APIRetryDelay:  getDuration("API_RETRY_DELAY", time.Second),
		APIMaxRPS:      getFloat("API_MAX_RPS", 0),

		OIDCAuthority:             getEnv("OIDC_AUTHORITY", DefaultAuthority(apiBase)),
		OIDCClientID:              strings.TrimSpace(os.Getenv("OIDC_CLIENT_ID")),
		OIDCRedirectURI:           getEnv("OIDC_REDIRECT_URI", "http://localhost:8080/callback"),
		OIDCPostLogoutRedirectURI: getEnv("OIDC_POST_LOGOUT_REDIRECT_URI", "http://localhost:8080/"),
		OIDCResponseType:          getEnv("OIDC_RESPONSE_TYPE", "code"),
		OIDCResponseMode:          getEnv("OIDC_RESPONSE_MODE", "query"),
		OIDCScope:                 getEnv("OIDC_SCOPE", "openid profile offline_access"),
		DefaultCulture:            getEnv("DEFAULT_CULTURE", "vi"),

		SessionBackend:  strings.ToLower(getEnv("SESSION_BACKEND", SessionBackendMemory)),
		SessionFile:     getEnv("SESSION_FILE", "./state/session.json"),
		SessionCacheTTL: getDuration("SESSION_CACHE_TTL", 5*time.Minute),
		RefreshLeeway:   getDuration("REFRESH_LEEWAY", 60*time.Second),

		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DBMaxConns:  int32(getInt("DB_MAX_CONNS", 10)),
		DBMinConns:  int32(getInt("DB_MIN_CONNS", 1)),

		RedisAddr:       strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		RedisDB:         getInt("REDIS_DB", 0),
		RedisSessionTTL: getDuration("REDIS_SESSION_TTL", 0),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "pretty"),
	}

	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = cfg.DispatchBudget() + requestTimeoutMargin
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

const (
	maxAPIAttempts       = 10
	requestTimeoutMargin = 5 * time.Second
)

// DispatchBudget is the longest a single backend call can take: every
// attempt running to API_TIMEOUT plus the doubling waits between them.
func (c *Config) DispatchBudget() time.Duration {
	if c.APIMaxAttempts < 1 {
		return 0
	}
	attempts := time.Duration(c.APIMaxAttempts)
	backoff := c.APIRetryDelay * time.Duration(1<<(c.APIMaxAttempts-1)-1)
	return attempts*c.APITimeout + backoff
}

func (c *Config) Validate() error {
	if c.OIDCClientID == "" {
		return fmt.Errorf("OIDC_CLIENT_ID is required")
	}

	if c.ServerPort == "" {
		return fmt.Errorf("SERVER_PORT cannot be empty")
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}

	if c.APITimeout <= 0 {
		return fmt.Errorf("API_TIMEOUT must be positive")
	}

	if err := requireAbsoluteURL("API_BASE_URL", c.APIBaseURL); err != nil {
		return err
	}
	if err := requireAbsoluteURL("OIDC_AUTHORITY", c.OIDCAuthority); err != nil {
		return err
	}
	if err := requireAbsoluteURL("OIDC_REDIRECT_URI", c.OIDCRedirectURI); err != nil {
		return err
	}
	if c.OIDCPostLogoutRedirectURI != "" {
		if err := requireAbsoluteURL("OIDC_POST_LOGOUT_REDIRECT_URI", c.OIDCPostLogoutRedirectURI); err != nil {
			return err
		}
	}

	if c.APIMaxAttempts < 1 || c.APIMaxAttempts > maxAPIAttempts {
		return fmt.Errorf("API_MAX_ATTEMPTS must be between 1 and %d", maxAPIAttempts)
	}

	if c.APIRetryDelay <= 0 {
		return fmt.Errorf("API_RETRY_DELAY must be positive")
	}

	// The route deadline cancels the outbound call, so it has to outlast
	// every attempt and backoff or terminal failures never get reported.
	if budget := c.DispatchBudget(); c.RequestTimeout <= budget {
		return fmt.Errorf("REQUEST_TIMEOUT (%s) must exceed the API retry budget of %s (API_MAX_ATTEMPTS x API_TIMEOUT plus backoff)", c.RequestTimeout, budget)
	}

	if c.APIMaxRPS < 0 {
		return fmt.Errorf("API_MAX_RPS cannot be negative")
	}

	switch c.SessionBackend {
	case SessionBackendMemory:
	case SessionBackendFile:
		if strings.TrimSpace(c.SessionFile) == "" {
			return fmt.Errorf("SESSION_FILE cannot be empty when SESSION_BACKEND=file")
		}
	case SessionBackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when SESSION_BACKEND=postgres")
		}
		if c.DBMaxConns < 1 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
			return fmt.Errorf("DB_MIN_CONNS/DB_MAX_CONNS are out of range")
		}
	case SessionBackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required when SESSION_BACKEND=redis")
		}
	default:
		return fmt.Errorf("SESSION_BACKEND must be one of memory, file, postgres, redis")
	}

	return nil
}

// IsProduction reports whether the portal runs in production.
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// NormalizeEnvironment maps common spellings onto development, staging and
// production. Unknown values mean development.
func NormalizeEnvironment(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "prod", "production":
		return EnvProduction
	case "stage", "staging":
		return EnvStaging
	default:
		return EnvDevelopment
	}
}

// DefaultAuthority is the identity provider hosted next to the API gateway.
func DefaultAuthority(apiBaseURL string) string {
	u, err := url.Parse(strings.TrimSpace(apiBaseURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host + "/identity"
}

func requireAbsoluteURL(key string, raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%s must be an absolute http(s) URL", key)
	}
	return nil
}

func firstEnv(fallback string, keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return fallback
}

func getEnv(key string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}

	return v
}

func getInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getFloat(key string, fallback float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}

	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return v
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}

	return out
}
