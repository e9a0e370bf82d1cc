package app

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/xenking/dream-snack/internal/auth"
	"github.com/xenking/dream-snack/internal/chat"
	"github.com/xenking/dream-snack/internal/domain/cart"
	"github.com/xenking/dream-snack/internal/domain/contact"
	"github.com/xenking/dream-snack/internal/domain/order"
	"github.com/xenking/dream-snack/internal/domain/settings"
	"github.com/xenking/dream-snack/internal/events"
	"github.com/xenking/dream-snack/internal/handler"
	"github.com/xenking/dream-snack/internal/idempotency"
	"github.com/xenking/dream-snack/internal/kv"
	"github.com/xenking/dream-snack/internal/mail"
	"github.com/xenking/dream-snack/internal/storage/postgres"
	redisstore "github.com/xenking/dream-snack/internal/storage/redis"
	"github.com/xenking/dream-snack/pkg/health"
	"github.com/xenking/dream-snack/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}
	orderRepo := postgres.NewOrderRepository(pool)

	keys := idempotency.NewIndex(cfg.Idempotency.Capacity)
	warmed, err := keys.Warm(ctx, orderRepo)
	if err != nil {
		return errors.Wrap(err, "warm idempotency index")
	}
	lg.Info("Idempotency index warmed", zap.Int("keys", warmed))

	// Health check service.
	healthSvc := health.New()
	healthSvc.Add(health.Readiness, "postgres", 5*time.Second, health.PingCheck(pool))
	healthSvc.Add(health.Liveness, "goroutines", time.Second, health.GoroutineCountCheck(10000))

	// Key-value storage and rate limiters: Redis when configured, process
	// memory otherwise.
	var (
		store       kv.Storage
		apiLimiter  httpmiddleware.Limiter
		chatLimiter httpmiddleware.Limiter
	)
	if cfg.RedisURL != "" {
		rdb, err := redisstore.Dial(ctx, cfg.RedisURL)
		if err != nil {
			return errors.Wrap(err, "connect redis")
		}
		defer func() { _ = rdb.Close() }()

		redisKV := redisstore.NewStore(rdb)
		store = redisKV
		apiLimiter = redisstore.NewLimiter(rdb, "api", cfg.RateLimit.Max, cfg.RateLimit.Window)
		chatLimiter = redisstore.NewLimiter(rdb, "chat", cfg.ChatRateLimit.Max, cfg.ChatRateLimit.Window)
		healthSvc.Add(health.Readiness, "redis", 2*time.Second, health.PingCheck(redisKV))
	} else {
		lg.Warn("Redis is not configured, carts and settings are kept in memory")
		store = kv.NewMemory()
		mem := httpmiddleware.NewMemoryLimiter(cfg.RateLimit.Max, cfg.RateLimit.Window)
		chatMem := httpmiddleware.NewMemoryLimiter(cfg.ChatRateLimit.Max, cfg.ChatRateLimit.Window)
		go mem.RunSweeper(ctx)
		go chatMem.RunSweeper(ctx)
		apiLimiter, chatLimiter = mem, chatMem
	}

	// Order events: the admin feed always, the broker when configured.
	hub := events.NewHub(originChecker(cfg.CORS.Origins))
	publishers := events.Multi{hub}
	if cfg.AMQPURL != "" {
		broker, err := events.DialAMQP(cfg.AMQPURL)
		if err != nil {
			return errors.Wrap(err, "connect amqp")
		}
		defer func() { _ = broker.Close() }()
		publishers = append(publishers, broker)
		healthSvc.Add(health.Readiness, "amqp", time.Second, health.PingCheck(broker))
	}

	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	verifier, err := auth.NewVerifier(auth.VerifierConfig{
		Secret:      []byte(cfg.Auth.JWTSecret),
		Audience:    cfg.Auth.Audience,
		AdminEmails: cfg.Auth.AdminEmails,
		Leeway:      cfg.Auth.Leeway,
	})
	if err != nil {
		return errors.Wrap(err, "create token verifier")
	}

	// Domain services.
	carts := cart.NewStore(store)
	orderService := order.NewService(orderRepo, carts,
		order.WithPublisher(publishers),
		order.WithKeyIndex(keys),
		order.WithMeterProvider(m.MeterProvider()),
	)

	var sender contact.Sender = mail.Discard{}
	if cfg.Mail.SendGridKey != "" {
		sender = mail.NewSendGrid(mail.Config{
			APIKey: cfg.Mail.SendGridKey,
			From:   cfg.Mail.From,
			To:     cfg.Mail.SupportTo,
		})
	} else {
		lg.Warn("SendGrid is not configured, help center messages are discarded")
	}

	gatewayHTTP := &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport,
			otelhttp.WithTracerProvider(m.TracerProvider()),
			otelhttp.WithMeterProvider(m.MeterProvider()),
		),
	}
	chatClient := chat.NewClient(
		chat.Config{
			BaseURL: cfg.Chat.BaseURL,
			APIKey:  cfg.Chat.APIKey,
			Model:   cfg.Chat.Model,
			Timeout: cfg.Chat.Timeout,
		},
		chat.WithTracerProvider(m.TracerProvider()),
		chat.WithHTTPClient(gatewayHTTP),
	)
	if !chatClient.Configured() {
		lg.Warn("Chat gateway key is not set, chat is disabled")
	}

	// HTTP handlers.
	h := handler.New(handler.Deps{
		Auth:     verifier,
		Carts:    carts,
		Orders:   orderService,
		Settings: settings.NewStore(store, uuid.NewString),
		Contact:  contact.NewService(sender),
		Chat:     chatClient,
		Feed:     hub,
		ChatLimit: httpmiddleware.RateLimit(httpmiddleware.RateLimitConfig{
			Limiter: chatLimiter,
			Message: "Rate limit exceeded. Please try again later.",
		}),
	})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("GET /readyz", healthSvc.ReadyEndpoint)
	h.Register(mux)
	routeFinder := httpmiddleware.MakeRouteFinder(mux)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      cfg.Chat.Timeout + 10*time.Second, // chat replies stream
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				Origins:     cfg.CORS.Origins,
				Headers:     []string{"Content-Type", "Authorization", handler.IdempotencyKeyHeader, httpmiddleware.RequestIDHeader},
				Expose:      []string{httpmiddleware.RequestIDHeader, "Content-Disposition", "Idempotent-Replayed"},
				Credentials: cfg.CORS.AllowCredentials,
				MaxAge:      86400,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.RateLimit(httpmiddleware.RateLimitConfig{
				Limiter: apiLimiter,
			}),
			httpmiddleware.Instrument("dream-snack-api", routeFinder, m.TracerProvider(), m.MeterProvider()),
			httpmiddleware.LogRequests(routeFinder),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// originChecker allows websocket handshakes from the configured CORS
// origins. A wildcard allows any origin.
func originChecker(origins []string) func(*http.Request) bool {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		allowed[strings.ToLower(strings.TrimRight(o, "/"))] = struct{}{}
	}
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := allowed[strings.ToLower(origin)]
		return ok
	}
}
