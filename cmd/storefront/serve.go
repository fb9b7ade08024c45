package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/config"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/db"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/events"
	httpapi "github.com/andreasstove999/ecommerce-system/storefront-go/internal/http"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/localstore"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/order"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/storefront"
)

func newServeCommand(rootOpts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:          "serve",
		Short:        "Run the storefront HTTP API",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(rootOpts)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			if addr != "" {
				cfg.HTTPAddr = addr
			}
			return serve(cfg, logger)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "override HTTP_ADDR")

	return cmd
}

func serve(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.RunMigrations {
		if err := db.RunMigrations(cfg.DatabaseDSN, logger); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer pool.Close()

	database, err := db.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer database.Close()

	var local localstore.Store = localstore.NewMemory()
	if cfg.LocalStorePath != "" {
		sqlite, err := localstore.OpenSQLite(cfg.LocalStorePath)
		if err != nil {
			return err
		}
		defer sqlite.Close()
		local = sqlite
	}

	var publisher cart.OrderPublisher
	if cfg.RabbitMQURL != "" {
		conn, err := events.Dial(cfg.RabbitMQURL)
		if err != nil {
			return err
		}
		defer conn.Close()

		p, err := events.NewPublisher(conn, events.NewOrderSequenceStore(database, logger), logger)
		if err != nil {
			return fmt.Errorf("create order publisher: %w", err)
		}
		defer func() {
			if err := p.Close(); err != nil {
				logger.Warn("publisher close", zap.Error(err))
			}
		}()
		publisher = p
	} else {
		logger.Info("RABBITMQ_URL not set, order events disabled")
	}

	orders := order.NewRepository(database)
	registry := storefront.NewRegistry(storefront.Deps{
		Remote:        cart.NewPostgresStore(pool),
		Orders:        orders,
		Local:         local,
		Publisher:     publisher,
		Logger:        logger,
		RemoteTimeout: cfg.RemoteTimeout,
		MaxClients:    cfg.MaxClients,
	})
	// closes every cart, which drains pending remote writes
	defer registry.Close()

	go registry.RunSweeper(ctx, cfg.ClientIdleTTL)

	handler := httpapi.NewHandler(catalog.NewPostgresRepository(pool), orders, registry, logger)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      httpapi.NewRouter(handler, cfg.CORSAllowOrigins),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("storefront listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown", zap.Error(err))
	}
	return nil
}
