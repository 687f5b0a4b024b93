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

	appfin "github.com/opsuite/backend/internal/application/finance"
	appinv "github.com/opsuite/backend/internal/application/inventory"
	domaininv "github.com/opsuite/backend/internal/domain/inventory"
	"github.com/opsuite/backend/internal/infrastructure/cache"
	"github.com/opsuite/backend/internal/infrastructure/config"
	"github.com/opsuite/backend/internal/infrastructure/logger"
	"github.com/opsuite/backend/internal/infrastructure/persistence"
	httpiface "github.com/opsuite/backend/internal/interfaces/http"
	"github.com/opsuite/backend/internal/interfaces/http/handler"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	db, err := persistence.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	if err := persistence.AutoMigrate(db); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}

	batchRepo := persistence.NewGormBatchRepository(db)
	ledgerRepo := persistence.NewGormLedgerRepository(db)
	saleRepo := persistence.NewGormSaleRepository(db)
	entryRepo := persistence.NewGormFinanceEntryRepository(db)

	method, err := domaininv.ParseCostingMethod(cfg.Inventory.CostingMethod)
	if err != nil {
		return fmt.Errorf("inventory.costing_method: %w", err)
	}
	inventoryService := appinv.NewService(batchRepo, ledgerRepo, log,
		appinv.WithCostingMethod(method),
		appinv.WithMaxRetries(cfg.Inventory.MaxAllocationRetries),
	)

	var syncCoordinator *appinv.StockSyncCoordinator
	if cfg.Redis.Enabled() {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(context.Background()).Err(); err != nil {
			log.Warn("redis unreachable, stock cache disabled", zap.Error(err))
		} else {
			stockCache := cache.NewRedisStockCache(client, cfg.Redis.StockTTL)
			syncCoordinator = appinv.NewStockSyncCoordinator(batchRepo, stockCache, log)
		}
	}

	financeService := appfin.NewService(saleRepo, entryRepo, inventoryService, inventoryService, ledgerRepo, log)

	router := httpiface.NewRouter(
		handler.NewInventoryHandler(inventoryService, syncCoordinator, log),
		handler.NewFinanceHandler(financeService, log),
		log,
	)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case sig := <-quit:
		log.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	log.Info("server stopped")
	return nil
}
