package domain

import (
	"context"
	"time"
)

// StatsEvent representa um evento de decisão do rate limit.
//
// Ele é propositalmente "agnóstico de HTTP": Method/Path/Route são strings genéricas.
//
// Observação: cuidado com cardinalidade. Route deve ser o padrão normalizado
// (ex.: /api/users/{id}) e não o path cru; Key só deve ser persistida sob opt-in.
type StatsEvent struct {
	Key     Key
	Allowed bool

	Method string
	Path   string
	Route  string

	At time.Time
}

// StatsStore é a estratégia de persistência para estatísticas do rate limit.
//
// Implementações podem armazenar em Redis, Prometheus, memória, etc.
// O middleware trata erro como best-effort (não derruba request).
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}
