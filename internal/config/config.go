// Package config carrega a configuração dos binários a partir de variáveis de
// ambiente (mesmos nomes do gateway original), arquivos .env e flags, via viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrInvalid marca erros de validação; teste com errors.Is.
var ErrInvalid = errors.New("invalid config")

const (
	AlgorithmFixedWindow = "fixed_window"
	AlgorithmTokenBucket = "token_bucket"
)

type Config struct {
	ListenAddr  string
	UpstreamURL string

	Rate        RateConfig
	Concurrency ConcurrencyConfig
	Stats       StatsConfig

	MetricsEnabled bool
	LogLevel       string
	LogFormat      string
}

type RateConfig struct {
	Enabled           bool
	RequestsPerMinute int
	Window            time.Duration
	Algorithm         string
	KeyHeader         string
	TrustXFF          bool
	AddHeaders        bool
	// Routes: requestsPerMinute por rota, de RATE_ROUTES="/a=5,/b=10".
	Routes map[string]int
}

type ConcurrencyConfig struct {
	Max     int
	Timeout time.Duration
}

type StatsConfig struct {
	Enabled       bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Prefix        string
	TTL           time.Duration
	Bucket        string
	TrackKeys     bool
}

// SetDefaults registra os defaults e liga a leitura automática do ambiente.
// As chaves viper são os nomes das variáveis em minúsculas.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("upstream_url", "")

	v.SetDefault("rate_enabled", true)
	v.SetDefault("rate_requests_per_minute", 60)
	v.SetDefault("rate_window", "60s")
	v.SetDefault("rate_algorithm", AlgorithmFixedWindow)
	v.SetDefault("rate_key_header", "")
	v.SetDefault("trust_xff", false)
	v.SetDefault("add_ratelimit_headers", false)
	v.SetDefault("rate_routes", "")

	v.SetDefault("concurrency_max", 100)
	v.SetDefault("concurrency_timeout", "0s")

	v.SetDefault("rate_stats_enabled", false)
	v.SetDefault("rate_stats_redis_addr", "")
	v.SetDefault("rate_stats_redis_password", "")
	v.SetDefault("rate_stats_redis_db", 0)
	v.SetDefault("rate_stats_prefix", "ratelimit:stats")
	v.SetDefault("rate_stats_ttl", "24h")
	v.SetDefault("rate_stats_bucket", "minute")
	v.SetDefault("rate_stats_track_keys", false)

	v.SetDefault("metrics_enabled", true)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")

	v.AutomaticEnv()
}

// Load lê a configuração de v (defaults, ambiente e flags ligadas) e valida.
func Load(v *viper.Viper) (Config, error) {
	routes, err := ParseRoutes(v.GetString("rate_routes"))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		ListenAddr:  v.GetString("listen_addr"),
		UpstreamURL: strings.TrimSpace(v.GetString("upstream_url")),
		Rate: RateConfig{
			Enabled:           v.GetBool("rate_enabled"),
			RequestsPerMinute: v.GetInt("rate_requests_per_minute"),
			Window:            v.GetDuration("rate_window"),
			Algorithm:         strings.ToLower(strings.TrimSpace(v.GetString("rate_algorithm"))),
			KeyHeader:         v.GetString("rate_key_header"),
			TrustXFF:          v.GetBool("trust_xff"),
			AddHeaders:        v.GetBool("add_ratelimit_headers"),
			Routes:            routes,
		},
		Concurrency: ConcurrencyConfig{
			Max:     v.GetInt("concurrency_max"),
			Timeout: v.GetDuration("concurrency_timeout"),
		},
		Stats: StatsConfig{
			Enabled:       v.GetBool("rate_stats_enabled"),
			RedisAddr:     strings.TrimSpace(v.GetString("rate_stats_redis_addr")),
			RedisPassword: v.GetString("rate_stats_redis_password"),
			RedisDB:       v.GetInt("rate_stats_redis_db"),
			Prefix:        v.GetString("rate_stats_prefix"),
			TTL:           v.GetDuration("rate_stats_ttl"),
			Bucket:        v.GetString("rate_stats_bucket"),
			TrackKeys:     v.GetBool("rate_stats_track_keys"),
		},
		MetricsEnabled: v.GetBool("metrics_enabled"),
		LogLevel:       v.GetString("log_level"),
		LogFormat:      v.GetString("log_format"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Rate.RequestsPerMinute <= 0 {
		return fmt.Errorf("%w: RATE_REQUESTS_PER_MINUTE must be > 0", ErrInvalid)
	}
	if c.Rate.Window <= 0 {
		return fmt.Errorf("%w: RATE_WINDOW must be > 0", ErrInvalid)
	}
	switch c.Rate.Algorithm {
	case AlgorithmFixedWindow, AlgorithmTokenBucket:
	default:
		return fmt.Errorf("%w: RATE_ALGORITHM must be %s or %s, got %q", ErrInvalid, AlgorithmFixedWindow, AlgorithmTokenBucket, c.Rate.Algorithm)
	}
	if c.Concurrency.Max < 0 {
		return fmt.Errorf("%w: CONCURRENCY_MAX must be >= 0", ErrInvalid)
	}
	if c.Stats.Enabled && c.Stats.RedisAddr == "" {
		return fmt.Errorf("%w: RATE_STATS_REDIS_ADDR is required when RATE_STATS_ENABLED=true", ErrInvalid)
	}
	return nil
}

// RequireUpstream é a checagem extra do gateway (o example-server não tem upstream).
func (c Config) RequireUpstream() error {
	if c.UpstreamURL == "" {
		return fmt.Errorf("%w: UPSTREAM_URL is required", ErrInvalid)
	}
	return nil
}

// ParseRoutes lê "rota=rpm" separados por vírgula.
func ParseRoutes(s string) (map[string]int, error) {
	routes := make(map[string]int)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		route, raw, ok := strings.Cut(part, "=")
		route = strings.TrimSpace(route)
		if !ok || !strings.HasPrefix(route, "/") {
			return nil, fmt.Errorf("%w: RATE_ROUTES entry %q must look like /path=rpm", ErrInvalid, part)
		}
		rpm, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || rpm <= 0 {
			return nil, fmt.Errorf("%w: RATE_ROUTES entry %q needs a positive rpm", ErrInvalid, part)
		}
		routes[route] = rpm
	}
	return routes, nil
}

// FormatRoutes é o inverso de ParseRoutes, com rotas ordenadas (usado em logs).
func FormatRoutes(routes map[string]int) string {
	keys := make([]string, 0, len(routes))
	for k := range routes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+strconv.Itoa(routes[k]))
	}
	return strings.Join(parts, ",")
}

// LoadEnvFiles carrega .env.local e .env, sem sobrescrever o ambiente do processo.
// Arquivos ausentes são ignorados.
func LoadEnvFiles(files ...string) error {
	if len(files) == 0 {
		files = []string{".env.local", ".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load %s: %w", file, err)
		}
	}
	return nil
}
