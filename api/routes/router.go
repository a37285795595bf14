package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mercaline/pos-backend/api/controllers"
	"github.com/mercaline/pos-backend/api/middleware"
	"github.com/mercaline/pos-backend/internal/catalog"
	"github.com/mercaline/pos-backend/internal/employees"
	salesvc "github.com/mercaline/pos-backend/internal/sales"
	"github.com/mercaline/pos-backend/pkg/config"
	"github.com/mercaline/pos-backend/pkg/db"
	"github.com/mercaline/pos-backend/pkg/enums"
	"github.com/mercaline/pos-backend/pkg/logger"
	pkgredis "github.com/mercaline/pos-backend/pkg/redis"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config           *config.Config
	Logger           *logger.Logger
	DB               db.Pinger
	Redis            *pkgredis.Client
	SalesService     salesvc.Service
	CatalogService   catalog.Service
	EmployeeService  employees.Service
	MetricsHandler   http.Handler
	IdempotencyStore pkgredis.IdempotencyStore
}

// NewRouter assembles the API surface with its middleware chain.
func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, redisPinger(deps.Redis)))
	})

	metricsHandler := deps.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", controllers.Login(deps.EmployeeService, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Use(middleware.Idempotency(deps.IdempotencyStore, logg))

			r.Route("/sales", func(r chi.Router) {
				r.Post("/", controllers.CreateSale(deps.SalesService, logg))
				r.Get("/", controllers.ListSales(deps.SalesService, logg))
				r.Get("/{saleId}", controllers.GetSale(deps.SalesService, logg))
				r.Post("/{saleId}/reverse", controllers.ReverseSale(deps.SalesService, logg))
				r.Post("/{saleId}/complete", controllers.CompleteSale(deps.SalesService, logg))
			})

			r.Route("/products", func(r chi.Router) {
				r.Get("/", controllers.ListProducts(deps.CatalogService, logg))
				r.Get("/low-stock", controllers.LowStockProducts(deps.CatalogService, logg))
				r.Get("/{productId}", controllers.GetProduct(deps.CatalogService, logg))
				r.Get("/{productId}/inventory-logs", controllers.ProductInventoryHistory(deps.CatalogService, logg))

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireRoles(logg, enums.EmployeeRoleManager, enums.EmployeeRoleAdmin))
					r.Post("/", controllers.CreateProduct(deps.CatalogService, logg))
					r.Post("/{productId}/restock", controllers.RestockProduct(deps.CatalogService, logg))
					r.Post("/{productId}/adjust", controllers.AdjustProductStock(deps.CatalogService, logg))
				})
			})
		})
	})

	return r
}

func redisPinger(client *pkgredis.Client) pkgredis.Pinger {
	if client == nil {
		return nil
	}
	return client
}
