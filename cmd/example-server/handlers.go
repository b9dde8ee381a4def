package main

import (
	"encoding/json"
	"net/http"
	"net/mail"
	"strings"

	"saas-gateway/middleware/ratelimit"
	"saas-gateway/middleware/requestid"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Limites por rota, em requisições por minuto.
const (
	signupRPM         = 5
	forgotPasswordRPM = 3
	twoFactorRPM      = 10
	newsletterRPM     = 10
)

type api struct {
	limiter *ratelimit.Limiter
	logger  *zap.Logger
}

func newRouter(limiter *ratelimit.Limiter, logger *zap.Logger) http.Handler {
	a := &api{limiter: limiter, logger: logger}

	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/signup", a.limited(signupRPM, a.signup))
		r.Post("/auth/forgot-password", a.limited(forgotPasswordRPM, a.forgotPassword))
		r.Post("/auth/2fa/setup", a.limited(twoFactorRPM, a.twoFactorSetup))
		r.Post("/newsletter", a.limited(newsletterRPM, a.newsletter))
	})
	return r
}

// limited roda o rate limit dentro do handler, antes de qualquer trabalho.
func (a *api) limited(rpm int, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res := a.limiter.Check(r, ratelimit.Override{RequestsPerMinute: rpm})
		if !res.Allowed {
			ratelimit.WriteRejected(w, res)
			return
		}
		next(w, r)
	}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *api) signup(w http.ResponseWriter, r *http.Request) {
	var body credentials
	if !decode(w, r, &body) {
		return
	}
	if !validEmail(body.Email) {
		writeError(w, http.StatusBadRequest, "invalid email")
		return
	}
	if len(body.Password) < 8 {
		writeError(w, http.StatusBadRequest, "password must have at least 8 characters")
		return
	}

	a.logger.Info("signup accepted", zap.String("request_id", requestid.FromContext(r.Context())))
	writeJSON(w, http.StatusCreated, map[string]string{"message": "account created"})
}

func (a *api) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
	}
	if !decode(w, r, &body) {
		return
	}
	if !validEmail(body.Email) {
		writeError(w, http.StatusBadRequest, "invalid email")
		return
	}
	// mesma resposta exista ou não a conta
	writeJSON(w, http.StatusOK, map[string]string{"message": "if the account exists, a reset link was sent"})
}

func (a *api) twoFactorSetup(w http.ResponseWriter, r *http.Request) {
	if strings.TrimSpace(r.Header.Get("Authorization")) == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "2fa setup started"})
}

func (a *api) newsletter(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
	}
	if !decode(w, r, &body) {
		return
	}
	if !validEmail(body.Email) {
		writeError(w, http.StatusBadRequest, "invalid email")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "subscribed"})
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(strings.TrimSpace(s))
	return err == nil && addr.Address == strings.TrimSpace(s)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
