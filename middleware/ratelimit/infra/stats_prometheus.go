package infra

import (
	"context"
	"fmt"

	"saas-gateway/middleware/ratelimit/domain"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusStatsStore expõe as decisões como ratelimit_decisions_total{route,outcome}.
//
// Key nunca vira label: a cardinalidade ficaria ilimitada. Pelo mesmo motivo,
// com WithKnownRoutes as rotas fora da lista são agregadas em "other".
type PrometheusStatsStore struct {
	decisions *prometheus.CounterVec
	known     map[string]struct{}
}

type PrometheusStatsOption func(*PrometheusStatsStore)

// WithKnownRoutes limita o label route à lista; lista vazia agrega tudo em "other".
func WithKnownRoutes(routes ...string) PrometheusStatsOption {
	return func(s *PrometheusStatsStore) {
		s.known = make(map[string]struct{}, len(routes))
		for _, r := range routes {
			s.known[r] = struct{}{}
		}
	}
}

func NewPrometheusStatsStore(reg prometheus.Registerer, opts ...PrometheusStatsOption) (*PrometheusStatsStore, error) {
	s := &PrometheusStatsStore{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ratelimit",
			Name:      "decisions_total",
			Help:      "Rate limit decisions by route and outcome.",
		}, []string{"route", "outcome"}),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := reg.Register(s.decisions); err != nil {
		return nil, fmt.Errorf("register ratelimit collector: %w", err)
	}
	return s, nil
}

func (s *PrometheusStatsStore) Record(_ context.Context, ev domain.StatsEvent) error {
	s.decisions.WithLabelValues(s.routeLabel(ev.Route), outcome(ev.Allowed)).Inc()
	return nil
}

func (s *PrometheusStatsStore) routeLabel(route string) string {
	if route == "" {
		return "unknown"
	}
	if s.known == nil {
		return route
	}
	if _, ok := s.known[route]; ok {
		return route
	}
	return "other"
}
