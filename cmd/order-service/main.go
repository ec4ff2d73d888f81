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

	"cafe-order-service/internal/config"
	"cafe-order-service/internal/connections/database"
	"cafe-order-service/internal/connections/rabbitmq"
	dbschema "cafe-order-service/internal/database"
	"cafe-order-service/internal/events"
	"cafe-order-service/internal/handlers"
	"cafe-order-service/internal/logger"
	"cafe-order-service/internal/product"
	"cafe-order-service/internal/repository"
	"cafe-order-service/internal/service"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "path to YAML config (default: auto-detect)")
	flag.Parse()

	lg := logger.New("order-service")

	if cfgPath == "" {
		found, err := config.FindConfig()
		if err != nil {
			lg.Error("config_not_found", "", "no config file found", err, nil)
			os.Exit(1)
		}
		cfgPath = found
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		lg.Error("config_load_failed", "", "failed to load config", err, map[string]any{"path": cfgPath})
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, lg); err != nil {
		lg.Error("fatal", "", "service stopped with error", err, nil)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, lg *logger.Logger) error {
	pool, err := database.Connect(ctx, cfg.DatabaseURL())
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	if err := dbschema.Migrate(ctx, pool); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	lg.Info("db_ready", "", "database connected and migrated", map[string]any{
		"host": cfg.Database.Host, "database": cfg.Database.Database,
	})

	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.EventsEnabled() {
		mq, err := rabbitmq.Dial(rabbitmq.Config{
			Host:     cfg.RabbitMQ.Host,
			Port:     cfg.RabbitMQ.Port,
			User:     cfg.RabbitMQ.User,
			Password: cfg.RabbitMQ.Password,
			VHost:    cfg.RabbitMQ.VHost,
		})
		if err != nil {
			return fmt.Errorf("connect rabbitmq: %w", err)
		}
		defer mq.Close()

		publisher, err = events.NewAMQPPublisher(mq)
		if err != nil {
			return fmt.Errorf("declare events exchange: %w", err)
		}
		lg.Info("events_ready", "", "order events enabled", map[string]any{
			"exchange": events.Exchange, "host": cfg.RabbitMQ.Host,
		})
	} else {
		lg.Info("events_disabled", "", "no broker configured, order events are off", nil)
	}

	inventory := product.NewClient(cfg.Product.URL, time.Duration(cfg.Product.TimeoutSeconds)*time.Second)
	store := repository.NewOrderStore(pool)

	h := handlers.New(
		service.NewOrders(store, inventory, publisher, lg),
		service.NewStats(repository.NewStatsQueries(pool)),
		service.NewTables(store),
		lg,
		pool.Ping,
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           h.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		lg.Info("service_started", "", "HTTP server listening", map[string]any{"port": cfg.HTTP.Port})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	lg.Info("shutdown_started", "", "signal received, draining connections", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	lg.Info("shutdown_complete", "", "HTTP server stopped", nil)
	return nil
}
