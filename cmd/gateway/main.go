package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"saas-gateway/internal/config"
	"saas-gateway/internal/logging"
	"saas-gateway/middleware/ratelimit"
	"saas-gateway/middleware/ratelimit/domain"
	"saas-gateway/middleware/ratelimit/infra"
	"saas-gateway/middleware/requestid"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "gateway:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:           "gateway",
		Short:         "Reverse proxy com rate limit por cliente+rota na frente da aplicação",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.LoadEnvFiles(); err != nil {
				return err
			}
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			if err := cfg.RequireUpstream(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.String("listen", "", "endereço de escuta (LISTEN_ADDR)")
	flags.String("upstream", "", "URL da aplicação (UPSTREAM_URL)")
	flags.Int("rpm", 0, "requisições por janela (RATE_REQUESTS_PER_MINUTE)")
	flags.String("algorithm", "", "fixed_window ou token_bucket (RATE_ALGORITHM)")
	flags.String("log-level", "", "nível de log (LOG_LEVEL)")

	bindFlags(v, cmd)
	return cmd
}

// bindFlags registra os defaults e liga as flags às chaves do viper.
func bindFlags(v *viper.Viper, cmd *cobra.Command) {
	config.SetDefaults(v)
	for flag, key := range map[string]string{
		"listen":    "listen_addr",
		"upstream":  "upstream_url",
		"rpm":       "rate_requests_per_minute",
		"algorithm": "rate_algorithm",
		"log-level": "log_level",
	} {
		_ = v.BindPFlag(key, cmd.Flags().Lookup(flag))
	}
}

func run(ctx context.Context, cfg config.Config) error {
	logger, err := logging.New("gateway", cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	handler, cleanup, err := newHandler(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("gateway listening",
		zap.String("addr", cfg.ListenAddr),
		zap.String("upstream", cfg.UpstreamURL),
	)
	logger.Info("rate",
		zap.Bool("enabled", cfg.Rate.Enabled),
		zap.String("algorithm", cfg.Rate.Algorithm),
		zap.Int("limit", cfg.Rate.RequestsPerMinute),
		zap.Duration("window", cfg.Rate.Window),
		zap.String("routes", config.FormatRoutes(cfg.Rate.Routes)),
		zap.String("key_header", cfg.Rate.KeyHeader),
		zap.Bool("trust_xff", cfg.Rate.TrustXFF),
	)
	logger.Info("rate-stats",
		zap.Bool("enabled", cfg.Stats.Enabled),
		zap.String("redis_addr", cfg.Stats.RedisAddr),
		zap.String("bucket", cfg.Stats.Bucket),
		zap.Duration("ttl", cfg.Stats.TTL),
		zap.Bool("metrics", cfg.MetricsEnabled),
	)
	logger.Info("concurrency", zap.Int("max", cfg.Concurrency.Max), zap.Duration("acquire_timeout", cfg.Concurrency.Timeout))

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// newHandler monta o roteador: /healthz e /metrics locais, o resto vai para o
// upstream passando por concorrência e rate limit.
func newHandler(ctx context.Context, cfg config.Config, logger *zap.Logger) (http.Handler, func(), error) {
	target, err := url.Parse(cfg.UpstreamURL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid UPSTREAM_URL: %w", err)
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Warn("proxy error", zap.Error(err), zap.String("request_id", requestid.FromContext(r.Context())))
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	stats, closeStats, err := buildStats(ctx, cfg, reg)
	if err != nil {
		return nil, nil, err
	}

	router := chi.NewRouter()
	router.Use(requestid.Middleware)
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	if cfg.MetricsEnabled {
		router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}

	h := http.Handler(proxy)
	h = ratelimit.ConcurrencyMiddleware(ratelimit.ConcurrencyOptions{
		Max:            cfg.Concurrency.Max,
		RejectStatus:   http.StatusServiceUnavailable,
		AcquireTimeout: cfg.Concurrency.Timeout,
		Logger:         logger,
	})(h)
	if cfg.Rate.Enabled {
		h = ratelimit.Middleware(ratelimit.Options{
			Store:               buildStore(ctx, cfg, logger),
			Stats:               stats,
			KeyHeader:           cfg.Rate.KeyHeader,
			TrustXForwardedFor:  cfg.Rate.TrustXFF,
			Policy:              domain.Policy{Limit: cfg.Rate.RequestsPerMinute, Window: cfg.Rate.Window},
			Routes:              cfg.Rate.Routes,
			AddRateLimitHeaders: cfg.Rate.AddHeaders,
			Logger:              logger,
		})(h)
	}
	router.Handle("/*", h)

	return router, closeStats, nil
}

func buildStore(ctx context.Context, cfg config.Config, logger *zap.Logger) domain.WindowLimiter {
	if cfg.Rate.Algorithm == config.AlgorithmTokenBucket {
		tb := infra.NewTokenBucketStore(infra.WithLogger(logger))
		tb.StartJanitor(ctx)
		return tb
	}
	return infra.NewFixedWindowStore(infra.WithLogger(logger))
}

func buildStats(ctx context.Context, cfg config.Config, reg prometheus.Registerer) (domain.StatsStore, func(), error) {
	closeFn := func() {}

	var promStats domain.StatsStore
	if cfg.MetricsEnabled {
		// só rotas configuradas viram label; o resto cai em "other"
		s, err := infra.NewPrometheusStatsStore(reg, infra.WithKnownRoutes(routeNames(cfg.Rate.Routes)...))
		if err != nil {
			return nil, closeFn, err
		}
		promStats = s
	}

	var redisStats domain.StatsStore
	if cfg.Stats.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Stats.RedisAddr,
			Password: cfg.Stats.RedisPassword,
			DB:       cfg.Stats.RedisDB,
		})
		closeFn = func() { _ = rdb.Close() }

		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		_, err := rdb.Ping(pingCtx).Result()
		cancel()
		if err != nil {
			closeFn()
			return nil, func() {}, fmt.Errorf("redis stats ping: %w", err)
		}

		redisStats = infra.NewRedisStatsStore(
			rdb,
			infra.WithStatsPrefix(cfg.Stats.Prefix),
			infra.WithStatsTTL(cfg.Stats.TTL),
			infra.WithStatsBucket(cfg.Stats.Bucket),
			infra.WithStatsTrackKeys(cfg.Stats.TrackKeys),
		)
	}

	return infra.NewMultiStats(promStats, redisStats), closeFn, nil
}

func routeNames(routes map[string]int) []string {
	out := make([]string, 0, len(routes))
	for r := range routes {
		out = append(out, r)
	}
	return out
}
