package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/mercaline/pos-backend/api/routes"
	"github.com/mercaline/pos-backend/internal/catalog"
	"github.com/mercaline/pos-backend/internal/customers"
	"github.com/mercaline/pos-backend/internal/employees"
	"github.com/mercaline/pos-backend/internal/inventory"
	"github.com/mercaline/pos-backend/internal/sales"
	"github.com/mercaline/pos-backend/internal/tax"
	"github.com/mercaline/pos-backend/pkg/config"
	"github.com/mercaline/pos-backend/pkg/db"
	"github.com/mercaline/pos-backend/pkg/logger"
	"github.com/mercaline/pos-backend/pkg/metrics"
	"github.com/mercaline/pos-backend/pkg/migrate"
	"github.com/mercaline/pos-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}

	engine := inventory.NewEngine()
	inventoryRepo := inventory.NewRepository(dbClient.DB())
	catalogRepo := catalog.NewRepository(dbClient.DB())
	customerRepo := customers.NewRepository(dbClient.DB())
	employeeRepo := employees.NewRepository(dbClient.DB())
	salesRepo := sales.NewRepository(dbClient.DB())

	taxPolicy, err := tax.NewFlatRate(cfg.Sales.TaxRatePercent)
	if err != nil {
		logg.Error(context.Background(), "invalid tax rate", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	saleMetrics := metrics.NewSaleMetrics(registry)

	catalogService, err := catalog.NewService(catalogRepo, dbClient, engine, inventoryRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	employeeService, err := employees.NewService(employeeRepo, cfg.JWT, cfg.Password, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create employee service", err)
		os.Exit(1)
	}

	salesService, err := sales.NewService(
		salesRepo,
		catalogRepo,
		customerRepo,
		employeeRepo,
		engine,
		taxPolicy,
		dbClient,
		cfg.Sales,
		saleMetrics,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create sales service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:           cfg,
			Logger:           logg,
			DB:               dbClient,
			Redis:            redisClient,
			SalesService:     salesService,
			CatalogService:   catalogService,
			EmployeeService:  employeeService,
			MetricsHandler:   promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
			IdempotencyStore: redisClient,
		}),
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-runCtx.Done():
		logg.Info(ctx, "shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var closeErr error
	if err := server.Shutdown(shutdownCtx); err != nil {
		closeErr = multierr.Append(closeErr, err)
	}
	if err := redisClient.Close(); err != nil {
		closeErr = multierr.Append(closeErr, err)
	}
	if err := dbClient.Close(); err != nil {
		closeErr = multierr.Append(closeErr, err)
	}
	if closeErr != nil {
		logg.Error(ctx, "shutdown completed with errors", closeErr)
		os.Exit(1)
	}
	logg.Info(ctx, "api server stopped")
}
