package application

import (
	"saas-gateway/middleware/ratelimit/domain"

	"go.uber.org/zap"
)

// Service concentra a regra de aplicação do rate limit.
//
// Ele não sabe nada sobre HTTP (headers/status), apenas monta a chave,
// resolve a política e retorna uma decisão.
type Service struct {
	Limiter domain.WindowLimiter
	// Policy é usada quando a chamada não traz política própria.
	Policy domain.Policy
	Logger *zap.Logger
}

// CheckAndRecord registra uma requisição de client em route.
// Identidade ausente cai no bucket compartilhado "unknown"; nunca retorna erro.
func (s Service) CheckAndRecord(client, route string, p domain.Policy) (domain.Key, domain.Decision) {
	key := domain.NewKey(client, route)
	return key, s.Decide(key, p)
}

func (s Service) Decide(key domain.Key, p domain.Policy) domain.Decision {
	p = s.resolve(p)
	if s.Limiter == nil {
		return domain.Decision{Allowed: true, Limit: p.Limit, Remaining: p.Limit}
	}

	dec := s.Limiter.CheckAndRecord(key, p)
	if !dec.Allowed && s.Logger != nil {
		s.Logger.Info("rate limit exceeded",
			zap.String("key", string(key)),
			zap.Int("limit", dec.Limit),
			zap.Duration("window", p.Window),
			zap.Int("retry_after", dec.RetryAfterSeconds()),
		)
	}
	return dec
}

func (s Service) resolve(p domain.Policy) domain.Policy {
	if p.IsZero() {
		p = s.Policy
	}
	return p.Normalize()
}
