package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"saas-gateway/internal/config"
	"saas-gateway/internal/logging"
	"saas-gateway/middleware/ratelimit"
	"saas-gateway/middleware/ratelimit/domain"
	"saas-gateway/middleware/ratelimit/infra"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Exemplo: rate limit chamado de dentro dos handlers da API (sem proxy),
// cada rota com o seu requestsPerMinute.
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "example-server:", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadEnvFiles(); err != nil {
		return err
	}
	v := viper.New()
	config.SetDefaults(v)
	v.SetDefault("listen_addr", ":8081")
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}

	logger, err := logging.New("example-server", cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	stats := infra.NewMemoryStatsStore()
	limiter := ratelimit.New(ratelimit.Options{
		Store:              infra.NewFixedWindowStore(infra.WithLogger(logger)),
		Stats:              stats,
		KeyHeader:          cfg.Rate.KeyHeader,
		TrustXForwardedFor: cfg.Rate.TrustXFF,
		Policy:             domain.Policy{Limit: cfg.Rate.RequestsPerMinute, Window: cfg.Rate.Window},
		Logger:             logger,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           newRouter(limiter, logger),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("example server listening", zap.String("addr", cfg.ListenAddr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	total := stats.Total()
	logger.Info("rate limit totals", zap.Int64("allowed", total.Allowed), zap.Int64("rejected", total.Rejected))
	return nil
}
