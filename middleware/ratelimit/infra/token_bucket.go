package infra

import (
	"sync"
	"time"

	"saas-gateway/middleware/ratelimit/domain"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// TokenBucketStore é a alternativa à janela fixa baseada em token bucket (x/time/rate).
//
// Para uma Policy{Limit: n, Window: w} o bucket reabastece n tokens a cada w e
// aceita rajadas de até n. Não tem o efeito de 2x na virada de janela.
type TokenBucketStore struct {
	mu      sync.Mutex
	entries map[domain.Key]*bucketEntry
	cfg     storeConfig
}

type bucketEntry struct {
	lim      *rate.Limiter
	policy   domain.Policy
	lastSeen time.Time
}

var _ domain.WindowLimiter = (*TokenBucketStore)(nil)

func NewTokenBucketStore(opts ...StoreOption) *TokenBucketStore {
	return &TokenBucketStore{
		entries: make(map[domain.Key]*bucketEntry),
		cfg:     newStoreConfig(opts),
	}
}

func (s *TokenBucketStore) CleanupEvery() time.Duration { return s.cfg.cleanupEvery }

// CheckAndRecord implementa domain.WindowLimiter.
func (s *TokenBucketStore) CheckAndRecord(key domain.Key, p domain.Policy) domain.Decision {
	p = p.Normalize()
	now := s.cfg.clock.Now()
	interval := p.Window / time.Duration(p.Limit)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cleanupLocked(now)

	ent, ok := s.entries[key]
	if !ok || ent.policy != p {
		ent = &bucketEntry{
			lim:    rate.NewLimiter(rate.Every(interval), p.Limit),
			policy: p,
		}
		s.entries[key] = ent
	}
	ent.lastSeen = now

	res := ent.lim.ReserveN(now, 1)
	if delay := res.DelayFrom(now); !res.OK() || delay > 0 {
		res.CancelAt(now)
		return domain.Decision{
			Allowed:    false,
			Limit:      p.Limit,
			ResetAt:    now.Add(delay),
			RetryAfter: delay,
		}
	}

	tokens := ent.lim.TokensAt(now)
	remaining := int(tokens)
	if remaining < 0 {
		remaining = 0
	}
	missing := float64(p.Limit) - tokens
	return domain.Decision{
		Allowed:   true,
		Limit:     p.Limit,
		Remaining: remaining,
		ResetAt:   now.Add(time.Duration(missing * float64(interval))),
	}
}

// Cleanup remove buckets sem uso há mais de idleTTL.
func (s *TokenBucketStore) Cleanup() {
	now := s.cfg.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanupLocked(now)
}

func (s *TokenBucketStore) cleanupLocked(now time.Time) {
	if s.cfg.idleTTL <= 0 {
		return
	}
	cutoff := now.Add(-s.cfg.idleTTL)
	removed := 0
	for k, ent := range s.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(s.entries, k)
			removed++
		}
	}
	if removed > 0 {
		s.cfg.logger.Debug("token bucket cleanup", zap.Int("removed", removed))
	}
}

func (s *TokenBucketStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// StartJanitor inicia uma goroutine que limpa buckets inativos periodicamente.
// Pare cancelando o contexto.
func (s *TokenBucketStore) StartJanitor(ctx DoneContext) {
	if s.cfg.cleanupEvery <= 0 {
		return
	}

	t := s.cfg.clock.NewTicker(s.cfg.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C():
				s.Cleanup()
			}
		}
	}()
}

// DoneContext é o mínimo necessário para aceitar context.Context sem importar context aqui.
type DoneContext interface {
	Done() <-chan struct{}
}
