package ratelimit

import (
	"net/http"
	"time"

	"saas-gateway/middleware/ratelimit/application"
	"saas-gateway/middleware/ratelimit/domain"
	"saas-gateway/middleware/ratelimit/infra"

	"go.uber.org/zap"
)

type Options struct {
	// Store decide por chave. Sem Store, usa uma FixedWindowStore nova.
	Store domain.WindowLimiter
	Stats domain.StatsStore

	KeyFn              KeyFunc
	KeyHeader          string
	TrustXForwardedFor bool
	RouteFn            RouteFunc

	// Policy padrão (60 req / 60s quando zerada).
	Policy domain.Policy
	// Routes sobrescreve requestsPerMinute por rota normalizada.
	Routes        map[string]int
	ExcludedPaths []string

	// AddRateLimitHeaders também envia os headers X-RateLimit-* nas respostas permitidas.
	AddRateLimitHeaders bool

	Logger *zap.Logger
}

// Override é a configuração opcional por chamada ({ requestsPerMinute }).
type Override struct {
	RequestsPerMinute int
}

// Result é o contrato externo do limiter. Headers só é garantido quando !Allowed.
type Result struct {
	Allowed  bool
	Headers  http.Header
	Key      domain.Key
	Decision domain.Decision
}

// Limiter é o adapter HTTP: extrai cliente e rota, decide e traduz para headers.
// Deve ser construído uma vez por processo; o estado vive no Store.
type Limiter struct {
	opts     Options
	svc      application.Service
	excluded map[string]struct{}
}

func New(opts Options) *Limiter {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Store == nil {
		opts.Store = infra.NewFixedWindowStore(infra.WithLogger(opts.Logger))
	}
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc(opts.KeyHeader, opts.TrustXForwardedFor)
	}
	if opts.RouteFn == nil {
		opts.RouteFn = RoutePath
	}

	excluded := make(map[string]struct{}, len(opts.ExcludedPaths))
	for _, p := range opts.ExcludedPaths {
		excluded[p] = struct{}{}
	}

	return &Limiter{
		opts: opts,
		svc: application.Service{
			Limiter: opts.Store,
			Policy:  opts.Policy,
			Logger:  opts.Logger,
		},
		excluded: excluded,
	}
}

// Check é chamado de dentro do handler, antes de qualquer acesso a banco ou API externa.
// Nunca falha: sem identidade o cliente cai no bucket "unknown".
func (l *Limiter) Check(r *http.Request, overrides ...Override) Result {
	route := l.opts.RouteFn(r)
	key, dec := l.svc.CheckAndRecord(l.opts.KeyFn(r), route, l.policyFor(route, overrides))

	if l.opts.Stats != nil {
		err := l.opts.Stats.Record(r.Context(), domain.StatsEvent{
			Key:     key,
			Allowed: dec.Allowed,
			Method:  r.Method,
			Path:    r.URL.Path,
			Route:   route,
			At:      time.Now(),
		})
		if err != nil {
			l.opts.Logger.Debug("ratelimit stats failed", zap.Error(err))
		}
	}

	res := Result{Allowed: dec.Allowed, Key: key, Decision: dec}
	if !dec.Allowed || l.opts.AddRateLimitHeaders {
		res.Headers = headersFor(dec)
	}
	return res
}

func (l *Limiter) policyFor(route string, overrides []Override) domain.Policy {
	for _, o := range overrides {
		if o.RequestsPerMinute > 0 {
			return domain.PolicyFromRPM(o.RequestsPerMinute)
		}
	}
	if rpm, ok := l.opts.Routes[route]; ok && rpm > 0 {
		return domain.PolicyFromRPM(rpm)
	}
	return l.opts.Policy
}

// Middleware aplica Check a todas as rotas, exceto ExcludedPaths.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, skip := l.excluded[r.URL.Path]; skip {
			next.ServeHTTP(w, r)
			return
		}

		res := l.Check(r)
		if !res.Allowed {
			WriteRejected(w, res)
			return
		}
		copyHeaders(w.Header(), res.Headers)

		next.ServeHTTP(w, r)
	})
}

// Middleware é o atalho para New(opts).Middleware.
func Middleware(opts Options) func(next http.Handler) http.Handler {
	return New(opts).Middleware
}
