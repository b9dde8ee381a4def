// Upstream "burro" para validar o gateway manualmente: responde tudo com 200
// e ecoa método, path e X-Request-ID recebidos.
//
//	go run ./teste-validacao/servidor-burrao &
//	UPSTREAM_URL=http://localhost:3000 RATE_ROUTES=/api/auth/signup=3 go run ./cmd/gateway
//	for i in 1 2 3 4; do curl -si -XPOST localhost:8080/api/auth/signup | head -1; done
package main

import (
	"encoding/json"
	"net/http"
	"os"

	"saas-gateway/middleware/requestid"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func main() {
	logger, _ := zap.NewDevelopment()
	defer func() { _ = logger.Sync() }()

	addr := ":3000"
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		addr = v
	}

	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.HandleFunc("/*", func(w http.ResponseWriter, r *http.Request) {
		id := requestid.FromContext(r.Context())
		logger.Info("upstream hit", zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.String("request_id", id))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"method":     r.Method,
			"path":       r.URL.Path,
			"request_id": id,
		})
	})

	logger.Info("upstream stub listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, r); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
