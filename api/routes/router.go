package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/avoronkov/laptopshop-backend/api/controllers"
	webhookcontrollers "github.com/avoronkov/laptopshop-backend/api/controllers/webhooks"
	"github.com/avoronkov/laptopshop-backend/api/middleware"
	authsvc "github.com/avoronkov/laptopshop-backend/internal/auth"
	cartsvc "github.com/avoronkov/laptopshop-backend/internal/cart"
	"github.com/avoronkov/laptopshop-backend/internal/catalog"
	"github.com/avoronkov/laptopshop-backend/internal/delivery"
	"github.com/avoronkov/laptopshop-backend/internal/orders"
	"github.com/avoronkov/laptopshop-backend/internal/payments"
	"github.com/avoronkov/laptopshop-backend/pkg/config"
	"github.com/avoronkov/laptopshop-backend/pkg/db"
	"github.com/avoronkov/laptopshop-backend/pkg/logger"
	"github.com/avoronkov/laptopshop-backend/pkg/redis"
)

// Deps collects everything the HTTP surface needs.
type Deps struct {
	Config       *config.Config
	Logger       *logger.Logger
	DB           db.Pinger
	Redis        redis.Pinger
	Registry     *prometheus.Registry
	AuthService  authsvc.Service
	Consolidator *cartsvc.Consolidator
	Catalog      catalog.Service
	Cart         cartsvc.Service
	Orders       orders.Service
	Payments     payments.Service
	Delivery     *delivery.Client
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger
	cookies := cfg.Cookies

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Get("/products/{productID}/configurations", controllers.ProductConfigurations(deps.Catalog, logg))

	r.Post("/auth/login", controllers.AuthLogin(deps.AuthService, deps.Consolidator, cookies, logg))

	r.Group(func(r chi.Router) {
		r.Use(middleware.OptionalAuth(cfg.JWT, logg))
		r.Get("/cart", controllers.CartFetch(deps.Cart, cookies, logg))
		r.Post("/cart/items", controllers.CartAddItem(deps.Cart, deps.Catalog, cookies, logg))
		r.Delete("/cart/items", controllers.CartRemoveItem(deps.Cart, cookies, logg))
	})

	auth := middleware.Auth(cfg.JWT, logg)
	r.Route("/orders", func(r chi.Router) {
		r.Post("/guest", controllers.GuestOrderCreate(deps.Orders, cookies, logg))
		r.With(auth).Post("/", controllers.OrderCreate(deps.Orders, logg))
		r.With(auth).Get("/", controllers.OrderList(deps.Orders, logg))
		r.With(auth).Get("/{orderID}", controllers.OrderDetail(deps.Orders, logg))
		r.With(auth).Patch("/{orderID}", controllers.OrderUpdate(deps.Orders, cookies, logg))
		r.With(auth).Delete("/{orderID}", controllers.OrderRemove(deps.Orders, logg))
		r.With(auth).Get("/{orderID}/payment", controllers.OrderPayment(deps.Payments, logg))
	})

	r.Post("/webhooks/tinkoff", webhookcontrollers.TinkoffWebhook(deps.Payments, logg))

	r.Route("/delivery", func(r chi.Router) {
		r.Get("/regions", controllers.DeliveryRegions(deps.Delivery, logg))
		r.Get("/cities", controllers.DeliveryCities(deps.Delivery, logg))
		r.Get("/cost", controllers.DeliveryCost(deps.Delivery, logg))
	})

	return r
}
