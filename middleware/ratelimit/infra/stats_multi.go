package infra

import (
	"context"
	"errors"

	"saas-gateway/middleware/ratelimit/domain"
)

// MultiStats repassa o evento para todos os stores e junta os erros.
type MultiStats []domain.StatsStore

// NewMultiStats ignora stores nil e retorna nil quando não sobra nenhum.
func NewMultiStats(stores ...domain.StatsStore) domain.StatsStore {
	var out MultiStats
	for _, s := range stores {
		if s != nil {
			out = append(out, s)
		}
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	}
	return out
}

func (m MultiStats) Record(ctx context.Context, ev domain.StatsEvent) error {
	var errs []error
	for _, s := range m {
		if err := s.Record(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
