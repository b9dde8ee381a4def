package ratelimit

import (
	"net"
	"net/http"
	"path"
	"strings"

	"saas-gateway/middleware/ratelimit/domain"

	"github.com/go-chi/chi/v5"
)

// KeyFunc extrai a identidade do cliente da requisição.
type KeyFunc func(r *http.Request) string

// RouteFunc extrai a rota normalizada que compõe a chave.
type RouteFunc func(r *http.Request) string

// DefaultKeyFunc resolve o cliente na ordem: header configurado, primeiro IP do
// X-Forwarded-For e X-Real-IP (só com trustXFF), host do RemoteAddr, "unknown".
func DefaultKeyFunc(keyHeader string, trustXFF bool) KeyFunc {
	return func(r *http.Request) string {
		if keyHeader != "" {
			if v := strings.TrimSpace(r.Header.Get(keyHeader)); v != "" {
				return v
			}
		}

		if trustXFF {
			// pega o primeiro IP do X-Forwarded-For (cliente original)
			if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
				first, _, _ := strings.Cut(xff, ",")
				if ip := strings.TrimSpace(first); ip != "" {
					return ip
				}
			}
			if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
				return ip
			}
		}

		// fallback: RemoteAddr
		remote := strings.TrimSpace(r.RemoteAddr)
		host, _, err := net.SplitHostPort(remote)
		if err == nil && host != "" {
			return host
		}
		if remote != "" {
			return remote
		}
		return domain.UnknownClient
	}
}

// RoutePath usa o padrão de rota do chi quando já resolvido (dentro do handler)
// e, fora dele, o path limpo sem barra final.
func RoutePath(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" && !strings.HasSuffix(pattern, "/*") {
			return pattern
		}
	}

	p := r.URL.Path
	if p == "" {
		return "/"
	}
	p = path.Clean("/" + p)
	if len(p) > 1 {
		p = strings.TrimSuffix(p, "/")
	}
	return p
}
