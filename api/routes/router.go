package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/asarum-backend/api/controllers"
	authcontrollers "github.com/angelmondragon/asarum-backend/api/controllers/auth"
	cartcontrollers "github.com/angelmondragon/asarum-backend/api/controllers/cart"
	webhookcontrollers "github.com/angelmondragon/asarum-backend/api/controllers/webhooks"
	"github.com/angelmondragon/asarum-backend/api/middleware"
	"github.com/angelmondragon/asarum-backend/internal/advisor"
	"github.com/angelmondragon/asarum-backend/internal/auth"
	"github.com/angelmondragon/asarum-backend/internal/cart"
	"github.com/angelmondragon/asarum-backend/internal/catalog"
	"github.com/angelmondragon/asarum-backend/internal/fulfillment"
	"github.com/angelmondragon/asarum-backend/internal/orders"
	"github.com/angelmondragon/asarum-backend/internal/settings"
	"github.com/angelmondragon/asarum-backend/pkg/config"
	"github.com/angelmondragon/asarum-backend/pkg/db"
	"github.com/angelmondragon/asarum-backend/pkg/dedupe"
	"github.com/angelmondragon/asarum-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/asarum-backend/pkg/redis"
)

// RequestStore backs rate limiting and idempotent replays.
type RequestStore interface {
	middleware.ReplayStore
	pkgredis.RateLimiter
}

type squareSigner interface {
	SigningSecret() string
	NotificationURL() string
}

// SquareWebhook groups what the payment webhook endpoint needs. A nil value
// leaves the endpoint unregistered.
type SquareWebhook struct {
	Service webhookcontrollers.SquareWebhookService
	Client  squareSigner
	Ledger  *dedupe.Ledger
}

// Dependencies carries every service the HTTP surface routes to.
type Dependencies struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       db.Pinger
	Redis    pkgredis.Pinger
	Store    RequestStore
	Gatherer prometheus.Gatherer

	Catalog     catalog.Service
	Settings    settings.Service
	Cart        cart.Service
	Orders      orders.Service
	Fulfillment fulfillment.Service
	Advisor     advisor.Service
	Auth        auth.Service
	Square      *SquareWebhook
}

func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	loginPolicy := middleware.ThrottlePolicy{
		Surface:     "login",
		Window:      cfg.AuthRateLimit.LoginWindow,
		PerIP:       cfg.AuthRateLimit.LoginIPLimit,
		PerUsername: cfg.AuthRateLimit.LoginUsernameLimit,
	}
	advisorPolicy := middleware.ThrottlePolicy{
		Surface: "advisor",
		Window:  cfg.Advisor.RateLimitWindow,
		PerIP:   cfg.Advisor.RateLimitIP,
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg,
			controllers.ReadinessCheck{Name: "db", Pinger: deps.DB},
			controllers.ReadinessCheck{Name: "redis", Pinger: deps.Redis},
		))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/catalog", controllers.CatalogList(deps.Catalog, deps.Settings, logg))
		r.Get("/catalog/{productId}", controllers.CatalogGet(deps.Catalog, logg))
		r.Get("/settings/season", controllers.CurrentSeason(deps.Settings, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.CartSession(logg))
			r.Use(middleware.Idempotency(deps.Store, logg))

			r.Get("/cart", cartcontrollers.Fetch(deps.Cart, logg))
			r.Delete("/cart", cartcontrollers.Clear(deps.Cart, logg))
			r.Post("/cart/items", cartcontrollers.AddItem(deps.Cart, logg))
			r.Patch("/cart/items", cartcontrollers.UpdateItem(deps.Cart, logg))
			r.Delete("/cart/items", cartcontrollers.RemoveItem(deps.Cart, logg))
			r.Post("/checkout", controllers.Checkout(deps.Orders, logg))
		})

		r.With(middleware.Throttle(advisorPolicy, deps.Store, logg)).
			Post("/advisor/messages", controllers.AdvisorMessage(deps.Advisor, logg))

		if deps.Square != nil {
			r.Post("/webhooks/square", webhookcontrollers.SquareWebhook(deps.Square.Service, deps.Square.Client, deps.Square.Ledger, logg))
		}

		r.Route("/admin", func(r chi.Router) {
			r.With(middleware.Throttle(loginPolicy, deps.Store, logg)).
				Post("/auth/login", authcontrollers.Login(deps.Auth, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(cfg.JWT, logg))
				r.Use(middleware.RequireAdmin(logg))
				r.Use(middleware.Idempotency(deps.Store, logg))

				r.Get("/products", controllers.AdminListProducts(deps.Catalog, logg))
				r.Post("/products", controllers.AdminCreateProduct(deps.Catalog, logg))
				r.Patch("/products/{productId}", controllers.AdminUpdateProduct(deps.Catalog, logg))
				r.Delete("/products/{productId}", controllers.AdminDeleteProduct(deps.Catalog, logg))
				r.Put("/products/{productId}/price", controllers.AdminUpdatePrice(deps.Catalog, logg))
				r.Post("/products/{productId}/seasons/toggle", controllers.AdminToggleSeason(deps.Catalog, logg))
				r.Get("/orders", controllers.AdminOrdersBoard(deps.Fulfillment, logg))
				r.Get("/orders/{orderId}", controllers.AdminOrderDetail(deps.Fulfillment, logg))
				r.Post("/orders/{orderId}/status", controllers.AdminOrderStatus(deps.Fulfillment, logg))
				r.Get("/sales", controllers.AdminSales(deps.Fulfillment, logg))
				r.Put("/settings/season", controllers.AdminSetSeason(deps.Settings, logg))
			})
		})
	})

	return r
}
