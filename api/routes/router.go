package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jubileehq/jubilee-backend/api/controllers"
	webhookcontrollers "github.com/jubileehq/jubilee-backend/api/controllers/webhooks"
	"github.com/jubileehq/jubilee-backend/api/middleware"
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
	paystackwebhook "github.com/jubileehq/jubilee-backend/internal/webhooks/paystack"
	"github.com/jubileehq/jubilee-backend/pkg/auth/session"
	"github.com/jubileehq/jubilee-backend/pkg/config"
	"github.com/jubileehq/jubilee-backend/pkg/enums"
	"github.com/jubileehq/jubilee-backend/pkg/logger"
	"github.com/jubileehq/jubilee-backend/pkg/metrics"
	"github.com/jubileehq/jubilee-backend/pkg/redis"
)

type sessionManager interface {
	session.AccessSessionChecker
	Rotate(context.Context, string, string) (string, string, error)
	Revoke(context.Context, string) error
}

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterParams carries everything the HTTP surface needs. Readiness pingers
// are optional; a nil entry is simply not probed.
type RouterParams struct {
	Config         *config.Config
	Logger         *logger.Logger
	Redis          *redis.Client
	SessionManager sessionManager

	DBPinger  Pinger
	GCSPinger Pinger
	BQPinger  Pinger

	Auth          auth.Service
	Catalog       catalog.Service
	Orders        orders.Service
	Payments      payments.Service
	Deliveries    deliveries.Service
	Chat          chat.Service
	Notifications notifications.Service
	Media         media.Service
	Settings      settings.Service
	Audit         audit.Service

	WebhookService *paystackwebhook.Service
	WebhookGuard   *paystackwebhook.Guard
	WebhookSecret  string
	PaymentMetrics *metrics.PaymentMetrics
}

func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	readiness := map[string]controllers.Pinger{}
	if p.DBPinger != nil {
		readiness["postgres"] = p.DBPinger
	}
	if p.Redis != nil {
		readiness["redis"] = p.Redis
	}
	if p.GCSPinger != nil {
		readiness["gcs"] = p.GCSPinger
	}
	if p.BQPinger != nil {
		readiness["bigquery"] = p.BQPinger
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/paystack", webhookcontrollers.Paystack(webhookcontrollers.PaystackParams{
			Service:   p.WebhookService,
			Guard:     p.WebhookGuard,
			SecretKey: p.WebhookSecret,
			Metrics:   p.PaymentMetrics,
			Logger:    logg,
		}))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, p.Redis, logg)).Post("/login", controllers.AuthLogin(p.Auth, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, p.Redis, logg)).Post("/register", controllers.AuthRegister(p.Auth, logg))
		r.Post("/logout", controllers.AuthLogout(p.SessionManager, cfg.JWT, logg))
		r.Post("/refresh", controllers.AuthRefresh(p.SessionManager, cfg.JWT, logg))
	})

	// Storefront surface: browsable without an account.
	r.Route("/api/v1/catalog", func(r chi.Router) {
		r.Get("/categories", controllers.ListCategories(p.Catalog, logg))
		r.Get("/packages", controllers.ListPackages(p.Catalog, logg))
		r.Get("/packages/{slug}", controllers.GetPackageBySlug(p.Catalog, logg))
	})
	r.Get("/api/v1/settings/payments", controllers.PublicPaymentSettings(p.Settings, logg))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, p.SessionManager, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Post("/checkout", controllers.Checkout(p.Orders, logg))
			r.Post("/custom", controllers.CreateCustomRequest(p.Orders, logg))
			r.Get("/", controllers.ListOrders(p.Orders, logg))
			r.Get("/{orderId}", controllers.GetOrder(p.Orders, logg))
			r.Post("/{orderId}/proof", controllers.UploadProof(p.Orders, logg))
			r.Post("/{orderId}/pay", controllers.InitializePayment(p.Payments, logg))
			r.Get("/{orderId}/verify", controllers.VerifyPayment(p.Payments, logg))

			r.Route("/{orderId}/chat", func(r chi.Router) {
				r.Post("/", controllers.PostOrderMessage(p.Chat, logg))
				r.Get("/", controllers.ListOrderMessages(p.Chat, logg))
				r.Get("/stream", controllers.StreamOrderMessages(p.Chat, p.Redis, logg))
				r.Post("/read", controllers.MarkOrderMessagesRead(p.Chat, logg))
				r.Get("/unread", controllers.OrderUnreadCount(p.Chat, logg))
			})
		})

		r.Post("/payments/virtual-account", controllers.CreateVirtualAccount(p.Payments, logg))

		r.Route("/support", func(r chi.Router) {
			r.Post("/messages", controllers.PostSupportMessage(p.Chat, logg))
			r.Get("/messages", controllers.ListSupportMessages(p.Chat, logg))
			r.Get("/messages/stream", controllers.StreamSupportMessages(p.Chat, p.Redis, logg))
			r.Post("/messages/read", controllers.MarkSupportMessagesRead(p.Chat, logg))
			r.Get("/messages/unread", controllers.SupportUnreadCount(p.Chat, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(p.Notifications, logg))
			r.Get("/unread", controllers.NotificationUnreadCount(p.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(p.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(p.Notifications, logg))
		})

		r.Post("/media", controllers.UploadMedia(p.Media, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, p.SessionManager, logg))
		r.Use(middleware.RequireStaff(logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.AdminListOrders(p.Orders, logg))
			r.Get("/{orderId}", controllers.AdminGetOrder(p.Orders, logg))
			r.Post("/{orderId}/respond", controllers.AdminRespondOrder(p.Orders, logg))
			r.Post("/{orderId}/verify-payment", controllers.AdminVerifyPayment(p.Payments, logg))
			r.Post("/{orderId}/delivery", controllers.AdminScheduleDelivery(p.Deliveries, logg))
			r.Post("/{orderId}/delivery/complete", controllers.AdminCompleteDelivery(p.Deliveries, logg))

			r.Route("/{orderId}/chat", func(r chi.Router) {
				r.Post("/", controllers.PostOrderMessage(p.Chat, logg))
				r.Get("/", controllers.ListOrderMessages(p.Chat, logg))
				r.Get("/stream", controllers.StreamOrderMessages(p.Chat, p.Redis, logg))
				r.Post("/read", controllers.MarkOrderMessagesRead(p.Chat, logg))
				r.Get("/unread", controllers.OrderUnreadCount(p.Chat, logg))
			})
		})

		r.Get("/deliveries", controllers.AdminListDeliveries(p.Deliveries, logg))

		r.Route("/support/{userId}", func(r chi.Router) {
			r.Post("/messages", controllers.PostSupportMessage(p.Chat, logg))
			r.Get("/messages", controllers.ListSupportMessages(p.Chat, logg))
			r.Get("/messages/stream", controllers.StreamSupportMessages(p.Chat, p.Redis, logg))
			r.Post("/messages/read", controllers.MarkSupportMessagesRead(p.Chat, logg))
			r.Get("/messages/unread", controllers.SupportUnreadCount(p.Chat, logg))
		})

		r.Route("/catalog", func(r chi.Router) {
			r.Get("/packages", controllers.AdminListPackages(p.Catalog, logg))
			r.Post("/categories", controllers.AdminCreateCategory(p.Catalog, logg))
			r.Patch("/categories/{categoryId}", controllers.AdminUpdateCategory(p.Catalog, logg))
			r.Delete("/categories/{categoryId}", controllers.AdminDeleteCategory(p.Catalog, logg))
			r.Post("/packages", controllers.AdminCreatePackage(p.Catalog, logg))
			r.Patch("/packages/{packageId}", controllers.AdminUpdatePackage(p.Catalog, logg))
			r.Delete("/packages/{packageId}", controllers.AdminDeletePackage(p.Catalog, logg))
			r.Post("/classes", controllers.AdminCreateClass(p.Catalog, logg))
			r.Patch("/classes/{classId}", controllers.AdminUpdateClass(p.Catalog, logg))
			r.Delete("/classes/{classId}", controllers.AdminDeleteClass(p.Catalog, logg))
		})

		r.Route("/settings/payments", func(r chi.Router) {
			r.Get("/", controllers.AdminGetPaymentSettings(p.Settings, logg))
			r.Patch("/", controllers.AdminUpdatePaymentSettings(p.Settings, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.UserRoleSuperAdmin), logg))
			r.Get("/audit-log", controllers.AdminListAuditLog(p.Audit, logg))
			r.Post("/staff", controllers.AdminCreateStaff(p.Auth, logg))
		})
	})

	return r
}
