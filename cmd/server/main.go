// Command server runs the hospicore HTTP API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hospicore/internal/core/clock"
	"hospicore/internal/domain/catalogs/center"
	"hospicore/internal/domain/catalogs/financier"
	"hospicore/internal/domain/catalogs/paymentmethod"
	"hospicore/internal/domain/catalogs/product"
	"hospicore/internal/domain/episodes"
	"hospicore/internal/domain/examinations"
	"hospicore/internal/domain/prescriptions"
	"hospicore/internal/domain/registers/cash"
	"hospicore/internal/domain/registers/stock"
	"hospicore/internal/infrastructure/config"
	v1 "hospicore/internal/infrastructure/http/v1"
	"hospicore/internal/infrastructure/http/v1/middleware"
	"hospicore/internal/infrastructure/metrics"
	"hospicore/internal/infrastructure/storage/postgres"
	"hospicore/internal/infrastructure/storage/postgres/catalog_repo"
	"hospicore/internal/infrastructure/storage/postgres/document_repo"
	"hospicore/internal/infrastructure/storage/postgres/register_repo"
	"hospicore/pkg/logger"
	"hospicore/pkg/numerator"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctx = logger.WithLogger(ctx, log)

	// Database
	poolCfg := postgres.DefaultPoolConfig(cfg.DB.DSN)
	poolCfg.MaxConns = cfg.DB.MaxConns
	poolCfg.MinConns = cfg.DB.MinConns
	poolCfg.MaxConnLifetime = cfg.DB.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.DB.MaxConnIdleTime

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	txManager := postgres.NewTxManager(pool)

	auditStore, err := postgres.NewAuditStore(txManager)
	if err != nil {
		return fmt.Errorf("init audit store: %w", err)
	}

	numbers := numerator.New(pool)
	wallClock := clock.NewWall(cfg.App.Timezone)

	// Repositories
	centerRepo := catalog_repo.NewCenterRepo(txManager)
	productRepo := catalog_repo.NewProductRepo(txManager)
	financierRepo := catalog_repo.NewFinancierRepo(txManager)
	paymentMethodRepo := catalog_repo.NewPaymentMethodRepo(txManager)
	stockRepo := register_repo.NewStockRepo(txManager)
	cashRepo := register_repo.NewCashRepo(txManager)
	episodeRepo := document_repo.NewEpisodeRepo(txManager)
	examinationRepo := document_repo.NewExaminationRepo(txManager)
	prescriptionRepo := document_repo.NewPrescriptionRepo(txManager)

	// Catalog services
	classifier, err := paymentmethod.NewClassifier(cfg.Cash.ClassifierExpression)
	if err != nil {
		return fmt.Errorf("compile cash classifier: %w", err)
	}

	centerSvc := center.NewService(centerRepo, txManager)
	productSvc := product.NewService(productRepo, txManager)
	financierSvc := financier.NewService(financierRepo, txManager)
	paymentMethodSvc := paymentmethod.NewService(paymentMethodRepo, txManager, classifier)

	// Registers
	stockSvc := stock.NewService(stockRepo, txManager, auditStore, wallClock, stock.Policy{
		SkipMissingProducts: cfg.Stock.SkipMissingProducts,
	})
	cashSvc := cash.NewService(cashRepo, financierSvc, txManager, numbers, auditStore, wallClock)

	// Clinical documents
	episodeSvc := episodes.NewService(episodeRepo, stockSvc, productSvc, txManager, numbers, auditStore, wallClock)
	examinationSvc := examinations.NewService(examinationRepo, txManager, numbers, auditStore, wallClock)
	prescriptionSvc := prescriptions.NewService(prescriptionRepo, stockSvc, episodeSvc, productSvc, txManager, numbers, auditStore, wallClock)

	// HTTP
	var tokens *middleware.TokenService
	if cfg.Auth.JWTSecret != "" {
		tokens = middleware.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	} else if cfg.IsProduction() {
		return fmt.Errorf("auth.jwt_secret is required in production")
	} else {
		log.Warnw("authentication disabled: no JWT secret configured")
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		go m.CollectPoolStats(ctx, pool, 15*time.Second)
	}

	router := v1.NewRouter(v1.RouterConfig{
		Pool:           pool,
		Logger:         log,
		Clock:          wallClock,
		Tokens:         tokens,
		Metrics:        m,
		MetricsPath:    cfg.Metrics.Path,
		Centers:        centerSvc,
		Products:       productSvc,
		Financiers:     financierSvc,
		PaymentMethods: paymentMethodSvc,
		Stock:          stockSvc,
		Cash:           cashSvc,
		Episodes:       episodeSvc,
		Examinations:   examinationSvc,
		Prescriptions:  prescriptionSvc,
	})

	server := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infow("server listening", "port", cfg.HTTP.Port, "env", cfg.App.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	log.Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	return nil
}
