package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"fintrack/internal/amqp"
	"fintrack/internal/cli"
	apphttp "fintrack/internal/http"
	"fintrack/internal/log"
	"fintrack/internal/services"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code so deferred cleanup runs before exit.
func run() int {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	store := cli.OpenStore(ctx, logger, cfg.SQLiteDBPath)
	defer store.Close()
	logger.Info("Database ready", "path", store.Path())

	// The publisher stays a nil interface when AMQP is disabled or unreachable.
	var events services.EventPublisher
	if cfg.AMQPEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey)
		if err != nil {
			logger.WithComponent(log.ComponentAMQP).Warn("AMQP unavailable, events disabled", log.FieldError, err)
		} else {
			defer client.Close()
			events = client
			logger.WithComponent(log.ComponentAMQP).Info("Publishing transaction events",
				"exchange", cfg.AMQPExchange,
				"routing_key", cfg.AMQPRoutingKey)
		}
	}

	transactions := services.NewTransactionService(store, events)
	srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Dependencies{
		Transactions:       transactions,
		Budgets:            services.NewBudgetService(store),
		Savings:            services.NewSavingsService(store),
		Exports:            services.NewExportService(transactions),
		Store:              store,
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TrustedProxies:     cfg.TrustedProxies,
	})
	if err != nil {
		logger.Error("Failed to build server", log.FieldError, err)
		return 1
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting fintrack server",
			log.FieldOperation, log.OpStartup,
			"port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
			return 1
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", log.FieldOperation, log.OpShutdown, log.FieldError, err)
	}

	m := srv.Metrics()
	logger.Info("Server stopped gracefully",
		log.FieldOperation, log.OpShutdown,
		"requests", m.Requests,
		"server_errors", m.ServerErrors,
		"rate_limited", m.RateLimited,
		"suspicious_requests", m.SuspiciousRequests)
	return 0
}
