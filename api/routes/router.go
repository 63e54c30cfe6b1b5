package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/shopcore-backend/api/controllers"
	"github.com/angelmondragon/shopcore-backend/api/middleware"
	"github.com/angelmondragon/shopcore-backend/internal/auth"
	"github.com/angelmondragon/shopcore-backend/internal/cart"
	"github.com/angelmondragon/shopcore-backend/internal/ledger"
	"github.com/angelmondragon/shopcore-backend/internal/orders"
	"github.com/angelmondragon/shopcore-backend/internal/payments"
	"github.com/angelmondragon/shopcore-backend/pkg/config"
	"github.com/angelmondragon/shopcore-backend/pkg/db"
	"github.com/angelmondragon/shopcore-backend/pkg/logger"
	"github.com/angelmondragon/shopcore-backend/pkg/redis"
)

// Deps bundles everything the router needs.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       db.Pinger
	Redis    *redis.Client
	Registry *prometheus.Registry

	Auth     auth.Service
	Cart     cart.Service
	Orders   orders.Service
	Payments payments.Service
	Events   ledger.Service
}

func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	logg := d.Logger
	secure := cfg.App.IsProd()

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	authPolicy := middleware.NewAuthRateLimitPolicy("auth", cfg.AuthRateLimit)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, d.DB, d.Redis))
	})

	if d.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(authPolicy, d.Redis, logg)).
			Post("/register", controllers.AuthRegister(d.Auth, cfg.JWT, secure, logg))
		r.With(middleware.AuthRateLimit(authPolicy, d.Redis, logg)).
			Post("/login", controllers.AuthLogin(d.Auth, cfg.JWT, secure, logg))
		r.Post("/refresh", controllers.AuthRefresh(d.Auth, cfg.JWT, secure, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Session(d.Auth, cfg.JWT, secure, logg))
			r.Use(middleware.RequireAuth(logg))
			r.Post("/logout", controllers.AuthLogout(d.Auth, secure, logg))
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Session(d.Auth, cfg.JWT, secure, logg))
		r.Use(middleware.RequireAuth(logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(d.Cart, logg))
			r.Delete("/", controllers.CartClear(d.Cart, logg))
			r.Post("/items", controllers.CartAddItem(d.Cart, logg))
			r.Patch("/items/{itemId}", controllers.CartUpdateItem(d.Cart, logg))
			r.Delete("/items/{itemId}", controllers.CartRemoveItem(d.Cart, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.OrderCheckout(d.Orders, logg))
			r.Get("/", controllers.OrderList(d.Orders, logg))
			r.Get("/{orderId}", controllers.OrderDetail(d.Orders, logg))
			r.Post("/{orderId}/cancel", controllers.OrderCancel(d.Orders, logg))
			r.Post("/{orderId}/payment", controllers.PaymentProcess(d.Payments, logg))
			r.Get("/{orderId}/payment", controllers.PaymentDetail(d.Payments, logg))
		})

		r.Get("/payments", controllers.PaymentList(d.Payments, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Session(d.Auth, cfg.JWT, secure, logg))
		r.Use(middleware.RequireAdmin(logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.AdminOrderList(d.Orders, logg))
			r.Patch("/{orderId}/status", controllers.AdminOrderUpdateStatus(d.Orders, logg))
			r.Get("/{orderId}/events", controllers.AdminOrderEvents(d.Events, logg))
		})
		r.Post("/payments/{paymentId}/refund", controllers.AdminPaymentRefund(d.Payments, logg))
	})

	return r
}
