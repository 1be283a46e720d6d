package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/portfolio-site/meetbook/libs/config"
	"github.com/portfolio-site/meetbook/libs/db"
	"github.com/portfolio-site/meetbook/libs/httpx"
	"github.com/portfolio-site/meetbook/libs/kafkax"
	otelx "github.com/portfolio-site/meetbook/libs/otel"
	"github.com/portfolio-site/meetbook/libs/runtime"
	"github.com/portfolio-site/meetbook/services/booking-service/internal/availability"
	"github.com/portfolio-site/meetbook/services/booking-service/internal/calendar"
	"github.com/portfolio-site/meetbook/services/booking-service/internal/handlers"
	"github.com/portfolio-site/meetbook/services/booking-service/internal/outbox"
	"github.com/portfolio-site/meetbook/services/booking-service/internal/storage"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		panic(err)
	}
	service := config.String("SERVICE_NAME", "booking-service")
	port, err := config.Port("PORT", "8083")
	if err != nil {
		panic(err)
	}
	grpcPort, err := config.Port("GRPC_PORT", "9093")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext(logger)
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	loc, err := time.LoadLocation(config.String("BOOKING_TIMEZONE", "America/Los_Angeles"))
	if err != nil {
		logger.Error("invalid BOOKING_TIMEZONE", "err", err)
		panic(err)
	}
	table, err := loadTable(config.String("AVAILABILITY_TABLE_FILE", ""))
	if err != nil {
		logger.Error("constraint table load failed", "err", err)
		panic(err)
	}
	engine := availability.NewEngine(table, loc)

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	pool, err := db.OpenWithConfig(ctx, dbURL, db.PoolConfig{
		MaxConns: int32(config.Int("DB_MAX_CONNS", 10)),
	})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()
	if config.Bool("AUTO_MIGRATE", false) {
		if err := storage.Migrate(ctx, pool); err != nil {
			logger.Error("migration failed", "err", err)
			panic(err)
		}
		logger.Info("schema migrated")
	}

	brokers := config.String("KAFKA_BROKERS", "")
	checks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
		{Name: "kafka", Check: kafkax.ReadyCheck(brokers), Optional: brokers == ""},
	}

	var rdb *redis.Client
	if addr := strings.TrimSpace(config.String("REDIS_ADDR", "")); addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       config.Int("REDIS_DB", 0),
		})
		defer func() { _ = rdb.Close() }()
		checks = append(checks, runtime.ReadyCheck{
			Name:     "redis",
			Check:    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
			Optional: true,
		})
	}

	outboxRepo := outbox.NewRepository(pool)
	repo := storage.NewMeetingRepository(pool, outboxRepo)
	publisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   brokers,
		PollEvery: config.Duration("OUTBOX_POLL_EVERY", 2*time.Second),
		BatchSize: config.Int("OUTBOX_BATCH_SIZE", 50),
	})
	go publisher.Run(ctx)

	source, err := buildSource(ctx, logger, loc, rdb, repo)
	if err != nil {
		logger.Error("calendar sources init failed", "err", err)
		panic(err)
	}

	avail := handlers.NewAvailabilityHandler(engine, source, logger, config.Int("MAX_RANGE_DAYS", handlers.DefaultMaxRangeDays))
	meetings := handlers.NewMeetingHandler(engine, source, repo, logger)
	admin := handlers.NewAdminHandler(repo, loc, logger, handlers.AdminConfig{
		PasswordHash: config.String("ADMIN_PASSWORD_HASH", ""),
		JWTSecret:    config.String("ADMIN_JWT_SECRET", ""),
		TokenTTL:     config.Duration("ADMIN_TOKEN_TTL", 12*time.Hour),
	})
	if config.String("ADMIN_PASSWORD_HASH", "") == "" {
		logger.Warn("admin login disabled; ADMIN_PASSWORD_HASH not set")
	}

	mux := runtime.NewBaseMuxWithReady(checks...)
	handlers.Register(mux, avail, meetings, admin)

	handler := httpx.Chain(mux,
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: config.List("CORS_ALLOWED_ORIGINS", ""),
			AllowedMethods: config.List("CORS_ALLOWED_METHODS", "GET,POST,OPTIONS"),
			AllowedHeaders: config.List("CORS_ALLOWED_HEADERS", "Authorization,Content-Type,X-Request-Id"),
			MaxAge:         config.Duration("CORS_MAX_AGE", 10*time.Minute),
		}),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithRecover(logger),
		httpx.WithBodyLimit(int64(config.Int("REQUEST_BODY_LIMIT_BYTES", 64<<10))),
		httpx.WithTimeout(config.Duration("REQUEST_TIMEOUT", 15*time.Second)),
		rateLimit(logger, rdb),
	)
	handler = otelhttp.NewHandler(handler, "booking")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	lis, err := net.Listen("tcp", ":"+grpcPort)
	if err != nil {
		logger.Error("grpc listen failed", "err", err)
		panic(err)
	}
	startGrpcServer(ctx, logger, lis, checks, config.Duration("GRPC_HEALTH_EVERY", 15*time.Second))

	go func() {
		logger.Info("http server starting", "addr", srv.Addr, "timezone", loc.String())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}

func loadTable(path string) (*availability.Table, error) {
	if strings.TrimSpace(path) == "" {
		return availability.DefaultTable(), nil
	}
	return availability.LoadTable(path)
}

// buildSource merges the configured calendars with the meetings already
// requested or confirmed in the database.
func buildSource(ctx context.Context, logger *slog.Logger, loc *time.Location, rdb *redis.Client, repo calendar.MeetingLister) (calendar.Source, error) {
	var (
		sources  []calendar.Source
		required []string
	)
	if path := strings.TrimSpace(config.String("CALENDAR_SOURCES_FILE", "")); path != "" {
		file, err := calendar.LoadSources(path)
		if err != nil {
			return nil, err
		}
		deps := calendar.BuildDeps{
			Logger:             logger,
			Location:           loc,
			CacheTTL:           config.Duration("CALENDAR_CACHE_TTL", time.Minute),
			GoogleClientID:     config.String("GOOGLE_CLIENT_ID", ""),
			GoogleClientSecret: config.String("GOOGLE_CLIENT_SECRET", ""),
			GoogleRate:         rate.Limit(config.Int("GOOGLE_RATE_PER_SECOND", 1)),
		}
		if rdb != nil {
			deps.Cache = calendar.NewRedisCache(rdb)
		}
		sources, required, err = file.Build(ctx, deps)
		if err != nil {
			return nil, err
		}
	} else {
		logger.Warn("no CALENDAR_SOURCES_FILE; only stored meetings block availability")
	}
	sources = append(sources, calendar.NewBookingsSource(repo))
	required = append(required, calendar.BookingsSourceName)

	return calendar.NewMulti(logger, sources,
		calendar.WithRequired(required...),
		calendar.WithSourceTimeout(config.Duration("SOURCE_TIMEOUT", 10*time.Second)),
	), nil
}

func rateLimit(logger *slog.Logger, rdb *redis.Client) httpx.Middleware {
	limit := config.Int("RATE_LIMIT_PER_MINUTE", 60)
	if rdb != nil {
		rl := httpx.NewRedisRateLimiter(rdb, limit, time.Minute, config.String("RATE_LIMIT_PREFIX", "meetbook:rl"))
		logger.Info("rate limiting enabled (redis)", "per_minute", limit)
		return rl.Middleware(logger, config.Bool("RATE_LIMIT_FAIL_OPEN", true))
	}
	logger.Info("rate limiting enabled (in-memory)", "per_minute", limit)
	return httpx.NewRateLimiter(limit, time.Minute).Middleware()
}
