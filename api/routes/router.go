package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/giftledger-backend/api/controllers"
	"github.com/angelmondragon/giftledger-backend/api/middleware"
	"github.com/angelmondragon/giftledger-backend/internal/auth"
	"github.com/angelmondragon/giftledger-backend/internal/orders"
	"github.com/angelmondragon/giftledger-backend/internal/suppliers"
	"github.com/angelmondragon/giftledger-backend/internal/users"
	"github.com/angelmondragon/giftledger-backend/pkg/auth/session"
	"github.com/angelmondragon/giftledger-backend/pkg/config"
	"github.com/angelmondragon/giftledger-backend/pkg/enums"
	"github.com/angelmondragon/giftledger-backend/pkg/logger"
)

type rateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// Params carries everything the router mounts. Nil Gatherer disables /metrics.
type Params struct {
	Config         *config.Config
	Logger         *logger.Logger
	Pingers        map[string]controllers.Pinger
	Sessions       session.AccessSessionChecker
	RateLimiter    rateLimiter
	Gatherer       prometheus.Gatherer
	Auth           auth.Service
	Profiles       users.ProfileService
	Orders         orders.Service
	Suppliers      suppliers.Service
	PlayerVerifier controllers.PlayerVerifier
}

func NewRouter(p Params) http.Handler {
	cfg, logg := p.Config, p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Recoverer(logg),
	)
	if len(cfg.App.CORSOrigins) > 0 {
		r.Use(middleware.CORS(cfg.App.CORSOrigins))
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.Pingers))
	})
	if p.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}))
	}

	loginLimit := middleware.RateLimit(middleware.LoginRateLimitPolicy(cfg.RateLimit), p.RateLimiter, logg)
	authenticated := middleware.Auth(cfg.JWT, p.Sessions, logg)
	adminOnly := middleware.RequireRole(logg, enums.RoleAdmin)

	r.Route("/api/v1", func(r chi.Router) {
		r.With(loginLimit).Post("/auth/login", controllers.AuthLogin(p.Auth, logg))

		r.Group(func(r chi.Router) {
			r.Use(authenticated)

			r.Post("/auth/logout", controllers.AuthLogout(p.Auth, logg))
			r.Get("/profile", controllers.ProfileGet(p.Profiles, logg))
			r.Patch("/profile", controllers.ProfileUpdate(p.Profiles, logg))

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.OrdersList(p.Orders, logg))
				r.With(adminOnly).Post("/", controllers.OrderCreate(p.Orders, logg))
				r.Get("/{orderId}", controllers.OrderGet(p.Orders, logg))
				r.Patch("/{orderId}", controllers.OrderUpdate(p.Orders, logg))
				r.With(adminOnly).Delete("/{orderId}", controllers.OrderDelete(p.Orders, logg))
			})

			r.Route("/suppliers", func(r chi.Router) {
				r.Get("/", controllers.SuppliersList(p.Suppliers, logg))
				r.With(adminOnly).Post("/", controllers.SupplierCreate(p.Suppliers, logg))
				r.Get("/{supplierId}", controllers.SupplierGet(p.Suppliers, logg))
				r.With(adminOnly).Patch("/{supplierId}", controllers.SupplierUpdate(p.Suppliers, logg))
				r.Post("/{supplierId}/balance", controllers.SupplierAdjustBalance(p.Suppliers, logg))
			})

			r.Get("/balance-logs", controllers.BalanceLogsList(p.Suppliers, logg))

			r.Group(func(r chi.Router) {
				r.Use(adminOnly)
				r.Get("/admin/stats", controllers.AdminStats(p.Orders, logg))
				r.Post("/players/verify", controllers.PlayerVerify(p.PlayerVerifier, logg))
			})
		})
	})

	return r
}
