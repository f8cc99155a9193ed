package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jubileehq/jubilee-backend/api/routes"
	"github.com/jubileehq/jubilee-backend/internal/audit"
	"github.com/jubileehq/jubilee-backend/internal/auth"
	"github.com/jubileehq/jubilee-backend/internal/catalog"
	"github.com/jubileehq/jubilee-backend/internal/chat"
	"github.com/jubileehq/jubilee-backend/internal/deliveries"
	"github.com/jubileehq/jubilee-backend/internal/media"
	"github.com/jubileehq/jubilee-backend/internal/notifications"
	"github.com/jubileehq/jubilee-backend/internal/orders"
	"github.com/jubileehq/jubilee-backend/internal/payments"
	"github.com/jubileehq/jubilee-backend/internal/settings"
	"github.com/jubileehq/jubilee-backend/internal/users"
	paystackwebhook "github.com/jubileehq/jubilee-backend/internal/webhooks/paystack"
	"github.com/jubileehq/jubilee-backend/pkg/auth/session"
	"github.com/jubileehq/jubilee-backend/pkg/config"
	"github.com/jubileehq/jubilee-backend/pkg/db"
	"github.com/jubileehq/jubilee-backend/pkg/logger"
	"github.com/jubileehq/jubilee-backend/pkg/metrics"
	"github.com/jubileehq/jubilee-backend/pkg/migrate"
	"github.com/jubileehq/jubilee-backend/pkg/outbox"
	"github.com/jubileehq/jubilee-backend/pkg/paystack"
	"github.com/jubileehq/jubilee-backend/pkg/redis"
	"github.com/jubileehq/jubilee-backend/pkg/storage/gcs"
)

const shutdownGrace = 15 * time.Second

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	cfg.Service.Kind = "api"

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	gcsClient, err := gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg)
	requireResource(ctx, logg, "gcs", err)

	paystackClient, err := paystack.NewClient(ctx, cfg.Paystack, logg)
	requireResource(ctx, logg, "paystack", err)

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	requireResource(ctx, logg, "session manager", err)

	usersRepo := users.NewRepository(dbClient.DB())
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	paymentMetrics := metrics.NewPaymentMetrics(prometheus.DefaultRegisterer)

	auditService, err := audit.NewService(audit.NewRepository(dbClient.DB()))
	requireResource(ctx, logg, "audit service", err)

	authService, err := auth.NewService(auth.ServiceParams{
		DB:             dbClient,
		UserRepo:       usersRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	requireResource(ctx, logg, "auth service", err)

	catalogRepo := catalog.NewRepository(dbClient.DB())
	catalogService, err := catalog.NewService(catalogRepo, auditService)
	requireResource(ctx, logg, "catalog service", err)

	ordersRepo := orders.NewRepository(dbClient.DB())
	ordersService, err := orders.NewService(orders.ServiceParams{
		DB:      dbClient,
		Repo:    ordersRepo,
		Catalog: catalogRepo,
		Users:   usersRepo,
		Emitter: outboxService,
		Audit:   auditService,
		Config:  cfg.Orders,
		Logger:  logg,
	})
	requireResource(ctx, logg, "orders service", err)

	settingsService, err := settings.NewService(settings.NewRepository(dbClient.DB()), auditService)
	requireResource(ctx, logg, "settings service", err)

	paymentsService, err := payments.NewService(payments.ServiceParams{
		DB:       dbClient,
		Orders:   ordersRepo,
		Gateway:  paystackClient,
		Settings: settingsService,
		Emitter:  outboxService,
		Audit:    auditService,
		Metrics:  paymentMetrics,
		Logger:   logg,
	})
	requireResource(ctx, logg, "payments service", err)

	deliveriesService, err := deliveries.NewService(deliveries.ServiceParams{
		DB:      dbClient,
		Repo:    deliveries.NewRepository(dbClient.DB()),
		Orders:  ordersRepo,
		Emitter: outboxService,
		Audit:   auditService,
		Logger:  logg,
	})
	requireResource(ctx, logg, "deliveries service", err)

	chatService, err := chat.NewService(chat.ServiceParams{
		Repo:      chat.NewRepository(dbClient.DB()),
		Orders:    ordersRepo,
		Publisher: redisClient,
		Logger:    logg,
	})
	requireResource(ctx, logg, "chat service", err)

	notificationsService, err := notifications.NewService(notifications.NewRepository(dbClient.DB()))
	requireResource(ctx, logg, "notifications service", err)

	mediaService, err := media.NewService(gcsClient, logg)
	requireResource(ctx, logg, "media service", err)

	webhookService, err := paystackwebhook.NewService(paystackwebhook.ServiceParams{
		Payments: paymentsService,
		Orders:   ordersRepo,
		Logger:   logg,
	})
	requireResource(ctx, logg, "paystack webhook service", err)

	webhookGuard, err := paystackwebhook.NewGuard(redisClient, cfg.Eventing.OutboxIdempotencyTTL)
	requireResource(ctx, logg, "paystack webhook guard", err)

	handler := routes.NewRouter(routes.RouterParams{
		Config:         cfg,
		Logger:         logg,
		Redis:          redisClient,
		SessionManager: sessionManager,
		DBPinger:       dbClient,
		GCSPinger:      gcsClient,

		Auth:          authService,
		Catalog:       catalogService,
		Orders:        ordersService,
		Payments:      paymentsService,
		Deliveries:    deliveriesService,
		Chat:          chatService,
		Notifications: notificationsService,
		Media:         mediaService,
		Settings:      settingsService,
		Audit:         auditService,

		WebhookService: webhookService,
		WebhookGuard:   webhookGuard,
		WebhookSecret:  cfg.Paystack.SecretKey,
		PaymentMetrics: paymentMetrics,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(runCtx, "starting api server")

	server := &http.Server{
		Addr:        addr,
		Handler:     handler,
		BaseContext: func(net.Listener) context.Context { return runCtx },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(runCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-runCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(runCtx, "api server shutdown failed", err)
		}
	}

	logg.Info(runCtx, "api server shutting down gracefully")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
