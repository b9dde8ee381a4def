package domain

// Camada de domínio do rate limit.
//
// Regras e contratos (interfaces/tipos) sem dependência de net/http.

import (
	"math"
	"strings"
	"time"
)

const (
	// UnknownClient é o bucket compartilhado quando não há identidade de cliente.
	UnknownClient = "unknown"

	DefaultLimit  = 60
	DefaultWindow = 60 * time.Second
)

// Key é a identidade composta cliente + rota contra a qual as requisições são contadas.
type Key string

// NewKey monta a chave "cliente:rota". Cliente vazio cai no bucket UnknownClient.
func NewKey(client, route string) Key {
	client = strings.TrimSpace(client)
	if client == "" {
		client = UnknownClient
	}
	return Key(client + ":" + route)
}

// Policy define quantas requisições são aceitas por janela.
type Policy struct {
	Limit  int
	Window time.Duration
}

// DefaultPolicy: 60 requisições por minuto.
func DefaultPolicy() Policy {
	return Policy{Limit: DefaultLimit, Window: DefaultWindow}
}

// PolicyFromRPM converte um override requestsPerMinute em Policy de um minuto.
func PolicyFromRPM(rpm int) Policy {
	return Policy{Limit: rpm, Window: time.Minute}.Normalize()
}

// Normalize aplica os defaults para valores não positivos.
func (p Policy) Normalize() Policy {
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Window <= 0 {
		p.Window = DefaultWindow
	}
	return p
}

// IsZero indica que nenhum campo foi preenchido.
func (p Policy) IsZero() bool { return p.Limit == 0 && p.Window == 0 }

// WindowLimiter decide e registra, de forma atômica, uma requisição para a chave.
//
// A implementação padrão é janela fixa (infra.FixedWindowStore); o token bucket
// (infra.TokenBucketStore) respeita o mesmo contrato.
type WindowLimiter interface {
	CheckAndRecord(key Key, p Policy) Decision
}

type Decision struct {
	Allowed bool

	// Limit é o limite original da política, usado nos headers de diagnóstico.
	Limit     int
	Remaining int
	// ResetAt é o instante em que a janela atual termina.
	ResetAt time.Time
	// RetryAfter é o tempo até a janela liberar novamente. Só é preenchido ao bloquear.
	RetryAfter time.Duration
}

// RetryAfterSeconds arredonda RetryAfter para cima, em segundos inteiros.
func (d Decision) RetryAfterSeconds() int {
	if d.RetryAfter <= 0 {
		return 0
	}
	return int(math.Ceil(d.RetryAfter.Seconds()))
}
