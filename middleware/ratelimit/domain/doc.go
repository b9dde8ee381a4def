// Package domain define contratos e tipos de domínio para rate limit e concorrência.
//
// Este pacote não depende de net/http nem de implementações concretas.
// Key, Policy, Entry e Decision descrevem o limitador de janela fixa;
// WindowLimiter é o contrato implementado pelos stores em infra.
package domain
