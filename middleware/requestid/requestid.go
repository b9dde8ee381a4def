// Package requestid propaga um identificador por requisição (header X-Request-ID).
package requestid

import (
	"context"
	"net/http"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

const Header = "X-Request-ID"

type ctxKey struct{}

// Middleware reaproveita o id do chi ou do header de entrada; senão gera um UUID.
// O id volta no header da resposta e segue no contexto.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chimw.GetReqID(r.Context())
		if id == "" {
			id = strings.TrimSpace(r.Header.Get(Header))
		}
		if id == "" {
			id = uuid.NewString()
		}

		w.Header().Set(Header, id)
		// o upstream (proxy) também recebe o id
		r.Header.Set(Header, id)

		ctx := context.WithValue(r.Context(), ctxKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// FromContext retorna o id da requisição, ou "" se o middleware não rodou.
func FromContext(ctx context.Context) string {
	if id, ok := ctx.Value(ctxKey{}).(string); ok {
		return id
	}
	return chimw.GetReqID(ctx)
}
