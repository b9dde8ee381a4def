package domain

import "time"

// Entry é o estado de uma chave dentro da janela fixa.
//
// Invariantes: Count >= 0 e existe no máximo uma Entry por Key no store.
// Pertence exclusivamente ao store que a criou; leituras externas recebem cópias.
type Entry struct {
	Key           Key
	Count         int
	WindowResetAt time.Time
}

// Expired indica que a janela já terminou em now (WindowResetAt <= now).
func (e Entry) Expired(now time.Time) bool {
	return !now.Before(e.WindowResetAt)
}

// Remaining retorna quantas requisições ainda cabem na janela, nunca negativo.
func (e Entry) Remaining(limit int) int {
	if r := limit - e.Count; r > 0 {
		return r
	}
	return 0
}
