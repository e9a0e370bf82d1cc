package app

import (
	"os"
	"strings"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/joho/godotenv"
)

// Config holds the complete application configuration, loadable from
// environment variables (SNACK_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL (SNACK_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	RedisURL    string `usage:"Redis URL for carts, settings and rate limits; in-memory when empty" flag:"redis-url"`
	AMQPURL     string `usage:"RabbitMQ URL for order events; disabled when empty" flag:"amqp-url"`

	Auth          AuthConfig
	Chat          ChatConfig
	Mail          MailConfig
	Idempotency   IdempotencyConfig
	RateLimit     RateLimitConfig
	ChatRateLimit RateLimitConfig
	CORS          CORSConfig
	Graceful      GracefulConfig
}

// AuthConfig configures session token verification.
type AuthConfig struct {
	JWTSecret   string        `usage:"HS256 secret of the auth provider (or SUPABASE_JWT_SECRET)" flag:"jwt-secret"`
	Audience    string        `default:"authenticated" usage:"Required aud claim; empty disables the check"`
	AdminEmails []string      `usage:"Emails granted the admin role" flag:"admin-emails"`
	Leeway      time.Duration `default:"30s" usage:"Allowed clock skew for token expiry"`
}

// ChatConfig configures the chat gateway.
type ChatConfig struct {
	BaseURL string        `default:"https://ai.gateway.lovable.dev/v1" usage:"OpenAI-compatible gateway base URL"`
	APIKey  string        `usage:"Gateway key (or AI_GATEWAY_API_KEY); chat is disabled when empty" flag:"chat-api-key"`
	Model   string        `default:"google/gemini-2.5-flash" usage:"Chat model"`
	Timeout time.Duration `default:"60s" usage:"Maximum duration of one chat reply"`
}

// MailConfig configures help center delivery.
type MailConfig struct {
	SendGridKey string `usage:"SendGrid API key (or SENDGRID_API_KEY); messages are only logged when empty" flag:"sendgrid-key"`
	From        string `default:"no-reply@dreamsnack.in" usage:"Verified sender address"`
	SupportTo   string `default:"support@dreamsnack.in" usage:"Support mailbox"`
}

// IdempotencyConfig sizes the in-process idempotency key filter.
type IdempotencyConfig struct {
	Capacity uint `default:"1000000" usage:"Expected number of idempotency keys"`
}

// RateLimitConfig controls a per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `usage:"Max requests per window"`
	Window time.Duration `usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from a local .env file, environment
// variables and YAML config files, then applies platform defaults.
func LoadConfig() (*Config, error) {
	// A missing .env is the normal case outside local development.
	_ = godotenv.Load()

	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "SNACK",
		Files:     []string{"config.yaml", "/etc/snack/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return errors.New("database URL is required: set SNACK_DATABASE_URL or DATABASE_URL")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("JWT secret is required: set SNACK_AUTH_JWT_SECRET or SUPABASE_JWT_SECRET")
	}
	return nil
}

// applyPlatformDefaults maps platform-provided environment variables
// (Railway, Render, Supabase, etc.) that use standard names to the
// application's SNACK_-prefixed configuration, and fills rate limits left
// unset.
func (c *Config) applyPlatformDefaults() {
	fallback := func(dst *string, env string) {
		if *dst == "" {
			*dst = os.Getenv(env)
		}
	}
	fallback(&c.DatabaseURL, "DATABASE_URL")
	fallback(&c.RedisURL, "REDIS_URL")
	fallback(&c.AMQPURL, "CLOUDAMQP_URL")
	fallback(&c.Auth.JWTSecret, "SUPABASE_JWT_SECRET")
	fallback(&c.Chat.APIKey, "AI_GATEWAY_API_KEY")
	fallback(&c.Mail.SendGridKey, "SENDGRID_API_KEY")

	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}

	if c.RateLimit.Max == 0 {
		c.RateLimit.Max = 100
	}
	if c.RateLimit.Window == 0 {
		c.RateLimit.Window = time.Minute
	}
	if c.ChatRateLimit.Max == 0 {
		c.ChatRateLimit.Max = 10
	}
	if c.ChatRateLimit.Window == 0 {
		c.ChatRateLimit.Window = time.Minute
	}

	for i, e := range c.Auth.AdminEmails {
		c.Auth.AdminEmails[i] = strings.TrimSpace(e)
	}
}
