package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	ordercontrollers "github.com/angelmondragon/storefront-backend/api/controllers/orders"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/address"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

// NewRouter mounts the storefront and admin API. redisClient may be nil, in
// which case Idempotency-Key replay is disabled.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	gatherer prometheus.Gatherer,
	httpMetrics *metrics.HTTPMetrics,
	ordersSvc orders.Service,
	addressSvc address.Service,
	inventoryLedger controllers.InventoryLedger,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, httpMetrics),
		middleware.CORS(),
		middleware.OptionsOK,
	)

	var idempotencyStore redis.IdempotencyStore
	readiness := map[string]db.Pinger{"db": dbP}
	if redisClient != nil {
		idempotencyStore = redisClient
		readiness["redis"] = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, readiness, logg))
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Idempotency(idempotencyStore, cfg.Redis.IdempotencyTTL, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", ordercontrollers.Place(ordersSvc, orders.ChannelStorefront, logg))
			r.Get("/", ordercontrollers.List(ordersSvc, logg))
			r.Get("/track/{reference}", ordercontrollers.Track(ordersSvc, logg))
			r.Get("/{orderId}", ordercontrollers.Detail(ordersSvc, logg))
			r.Put("/{orderId}", ordercontrollers.Update(ordersSvc, logg))
		})

		r.Route("/addresses", func(r chi.Router) {
			r.Get("/", controllers.AddressList(addressSvc, logg))
			r.Post("/", controllers.AddressCreate(addressSvc, logg))
			r.Get("/{addressId}", controllers.AddressGet(addressSvc, logg))
			r.Put("/{addressId}", controllers.AddressUpdate(addressSvc, logg))
			r.Put("/{addressId}/default", controllers.AddressSetDefault(addressSvc, logg))
			r.Delete("/{addressId}", controllers.AddressDelete(addressSvc, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/orders", ordercontrollers.Place(ordersSvc, orders.ChannelAdmin, logg))
			r.Get("/orders/{orderId}/events", ordercontrollers.Events(ordersSvc, logg))
			r.Get("/inventory/low-stock", controllers.InventoryLowStock(inventoryLedger, logg))
			r.Get("/inventory/{productId}", controllers.InventoryGet(inventoryLedger, logg))
			r.Put("/inventory/{productId}", controllers.InventorySet(inventoryLedger, logg))
		})
	})

	return r
}
