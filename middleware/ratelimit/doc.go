// Package ratelimit fornece adapters HTTP (net/http) para rate limit e limite de concorrência.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (sem dependência de net/http)
//   - application: casos de uso (decisão allow/deny, acquire/timeout) sem net/http
//   - infra: implementações concretas (janela fixa, token bucket, semáforo, stats)
//   - ratelimit (este pacote): Limiter.Check, middlewares HTTP, extração de chave
//     e tradução para status/headers
//
// Fluxo por requisição:
//
//  1. Extrai o cliente (header/XFF/RemoteAddr, senão "unknown") e a rota normalizada
//  2. Chama a camada application com a chave "cliente:rota" e a política da rota
//  3. Se bloqueado, responde 429 com Retry-After e X-RateLimit-*
//  4. Se permitido, segue para o handler (ou para o proxy, no gateway)
//
// Handlers que precisam de limite próprio chamam Limiter.Check diretamente:
//
//	if res := limiter.Check(r, ratelimit.Override{RequestsPerMinute: 5}); !res.Allowed {
//		ratelimit.WriteRejected(w, res)
//		return
//	}
package ratelimit
