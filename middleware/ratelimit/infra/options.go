package infra

import (
	"time"

	"code.cloudfoundry.org/clock"
	"go.uber.org/zap"
)

// storeConfig é compartilhado pelos stores de limite (janela fixa e token bucket).
type storeConfig struct {
	clock        clock.Clock
	logger       *zap.Logger
	idleTTL      time.Duration
	cleanupEvery time.Duration
}

type StoreOption func(*storeConfig)

// WithClock injeta o relógio. Nos testes usa-se fakeclock para avançar o tempo.
func WithClock(c clock.Clock) StoreOption {
	return func(cfg *storeConfig) {
		if c != nil {
			cfg.clock = c
		}
	}
}

func WithLogger(l *zap.Logger) StoreOption {
	return func(cfg *storeConfig) {
		if l != nil {
			cfg.logger = l
		}
	}
}

// WithIdleTTL define após quanto tempo sem uso um bucket é descartado (token bucket).
func WithIdleTTL(d time.Duration) StoreOption {
	return func(cfg *storeConfig) { cfg.idleTTL = d }
}

// WithCleanupEvery define o intervalo do janitor (token bucket). 0 desliga.
func WithCleanupEvery(d time.Duration) StoreOption {
	return func(cfg *storeConfig) { cfg.cleanupEvery = d }
}

func newStoreConfig(opts []StoreOption) storeConfig {
	cfg := storeConfig{
		clock:        clock.NewClock(),
		logger:       zap.NewNop(),
		idleTTL:      15 * time.Minute,
		cleanupEvery: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
