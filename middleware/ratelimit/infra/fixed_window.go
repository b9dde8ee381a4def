package infra

import (
	"sync"
	"time"

	"saas-gateway/middleware/ratelimit/domain"

	"go.uber.org/zap"
)

// FixedWindowStore conta requisições por chave em janelas fixas, só em memória.
//
// Cada chamada varre as entradas expiradas antes da consulta, então o mapa
// fica limitado às chaves ativas sem goroutine de limpeza.
//
// Limitações conhecidas: o estado é por processo (várias instâncias limitam de
// forma independente) e, por ser janela fixa, um cliente pode emitir até
// 2x o limite na virada entre duas janelas.
type FixedWindowStore struct {
	mu      sync.Mutex
	entries map[domain.Key]*domain.Entry
	cfg     storeConfig
}

var _ domain.WindowLimiter = (*FixedWindowStore)(nil)

func NewFixedWindowStore(opts ...StoreOption) *FixedWindowStore {
	return &FixedWindowStore{
		entries: make(map[domain.Key]*domain.Entry),
		cfg:     newStoreConfig(opts),
	}
}

// CheckAndRecord implementa domain.WindowLimiter.
func (s *FixedWindowStore) CheckAndRecord(key domain.Key, p domain.Policy) domain.Decision {
	p = p.Normalize()
	now := s.cfg.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked(now)

	ent, ok := s.entries[key]
	if !ok || ent.Expired(now) {
		ent = &domain.Entry{Key: key, Count: 1, WindowResetAt: now.Add(p.Window)}
		s.entries[key] = ent
		return domain.Decision{
			Allowed:   true,
			Limit:     p.Limit,
			Remaining: ent.Remaining(p.Limit),
			ResetAt:   ent.WindowResetAt,
		}
	}

	ent.Count++
	if ent.Count > p.Limit {
		return domain.Decision{
			Allowed:    false,
			Limit:      p.Limit,
			ResetAt:    ent.WindowResetAt,
			RetryAfter: ent.WindowResetAt.Sub(now),
		}
	}
	return domain.Decision{
		Allowed:   true,
		Limit:     p.Limit,
		Remaining: ent.Remaining(p.Limit),
		ResetAt:   ent.WindowResetAt,
	}
}

// sweepLocked remove entradas cuja janela já terminou. Exige s.mu.
func (s *FixedWindowStore) sweepLocked(now time.Time) {
	removed := 0
	for k, ent := range s.entries {
		if ent.Expired(now) {
			delete(s.entries, k)
			removed++
		}
	}
	if removed > 0 {
		s.cfg.logger.Debug("ratelimit sweep", zap.Int("removed", removed), zap.Int("remaining", len(s.entries)))
	}
}

// Snapshot retorna uma cópia da entrada da chave, se existir.
func (s *FixedWindowStore) Snapshot(key domain.Key) (domain.Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.entries[key]
	if !ok {
		return domain.Entry{}, false
	}
	return *ent, true
}

// Len retorna quantas chaves estão armazenadas (inclui expiradas ainda não varridas).
func (s *FixedWindowStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
