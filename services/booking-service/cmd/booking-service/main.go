package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/barberbook/platform/libs/auth"
	"github.com/barberbook/platform/libs/config"
	"github.com/barberbook/platform/libs/db"
	"github.com/barberbook/platform/libs/httpx"
	"github.com/barberbook/platform/libs/kafkax"
	otelx "github.com/barberbook/platform/libs/otel"
	"github.com/barberbook/platform/libs/runtime"
	"github.com/barberbook/platform/services/booking-service/internal/availability"
	"github.com/barberbook/platform/services/booking-service/internal/handlers"
	"github.com/barberbook/platform/services/booking-service/internal/outbox"
	"github.com/barberbook/platform/services/booking-service/internal/storage"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	service := config.String("SERVICE_NAME", "booking-service")
	port, err := config.Port("PORT", "8081")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
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

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	jwtSecret, err := config.RequiredString("ADMIN_JWT_SECRET")
	if err != nil {
		panic(err)
	}

	apptRepo := storage.NewAppointmentRepository(pool)
	scheduleRepo := storage.NewScheduleRepository(pool)
	catalogRepo := storage.NewCatalogRepository(pool)
	tokenRepo := storage.NewTokenRepository(pool)
	paymentRepo := storage.NewPaymentRepository(pool)
	adminRepo := storage.NewAdminRepository(pool)
	outboxRepo := outbox.NewRepository(pool)
	engine := availability.NewEngine(scheduleRepo)

	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	bookingHandler := handlers.NewBookingHandler(
		apptRepo, scheduleRepo, catalogRepo, tokenRepo, outboxRepo, engine, logger,
		config.String("PUBLIC_BASE_URL", "http://localhost:8081"),
		config.Minutes("ACTION_TOKEN_TTL_MINUTES", 30*24*time.Hour),
		config.String("VIP_CODES", ""),
	)
	actionHandler := handlers.NewActionHandler(bookingHandler, logger)
	paymentHandler := handlers.NewPaymentHandler(paymentRepo, apptRepo, outboxRepo, logger)
	catalogHandler := handlers.NewCatalogHandler(catalogRepo, scheduleRepo)
	adminHandler := handlers.NewAdminHandler(adminRepo, scheduleRepo, catalogRepo, apptRepo, logger, jwtSecret)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	)
	mux.HandleFunc("/api/v1/public/services", catalogHandler.Services)
	mux.HandleFunc("/api/v1/public/addons", catalogHandler.Addons)
	mux.HandleFunc("/api/v1/public/barbers", catalogHandler.Barbers)
	mux.HandleFunc("/api/v1/public/slots", bookingHandler.Slots)
	mux.HandleFunc("/api/v1/public/book", bookingHandler.Create)
	mux.HandleFunc("/api/v1/public/appointments", bookingHandler.Lookup)
	mux.HandleFunc("/api/v1/public/payments", paymentHandler.Submit)
	mux.Handle("/a/", actionHandler)
	mux.HandleFunc("/api/v1/admin/login", adminHandler.Login)

	adminMux := http.NewServeMux()
	adminMux.HandleFunc("/api/v1/admin/barbers", adminHandler.Barbers)
	adminMux.HandleFunc("/api/v1/admin/windows", adminHandler.UpsertWindow)
	adminMux.HandleFunc("/api/v1/admin/services", adminHandler.CreateService)
	adminMux.HandleFunc("/api/v1/admin/addons", adminHandler.CreateAddon)
	adminMux.HandleFunc("/api/v1/admin/appointments", adminHandler.Appointments)
	adminMux.HandleFunc("/api/v1/admin/appointments/complete", adminHandler.Complete)
	adminMux.HandleFunc("/api/v1/admin/payments", paymentHandler.ListPending)
	adminMux.HandleFunc("/api/v1/admin/payments/verify", paymentHandler.Verify)
	mux.Handle("/api/v1/admin/", auth.RequireAdmin(jwtSecret, adminMux))

	middlewares := []httpx.Middleware{
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: strings.Split(config.String("CORS_ALLOWED_ORIGINS", ""), ","),
		}),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(1 << 20),
	}
	if redisAddr := config.String("REDIS_ADDR", ""); redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
		limiter := httpx.NewRedisRateLimiter(rdb,
			config.Int("RATE_LIMIT_PER_MINUTE", 120), time.Minute, service)
		middlewares = append(middlewares, limiter.Middleware(logger, true))
	} else {
		limiter := httpx.NewRateLimiter(config.Int("RATE_LIMIT_PER_MINUTE", 120), time.Minute)
		middlewares = append(middlewares, limiter.Middleware())
	}

	httpHandler := httpx.Chain(mux, middlewares...)
	httpHandler = otelhttp.NewHandler(httpHandler, "booking")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
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
