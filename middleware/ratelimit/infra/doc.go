// Package infra contém implementações concretas (infraestrutura) para os contratos
// definidos no pacote domain.
//
//   - FixedWindowStore: janela fixa por chave em memória, com varredura síncrona
//   - TokenBucketStore: token bucket por chave usando golang.org/x/time/rate
//   - ChanPool: semáforo simples para limite de concorrência
//   - Stats: memória, Redis (go-redis) e Prometheus, combináveis com MultiStats
package infra
