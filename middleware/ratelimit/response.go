package ratelimit

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"saas-gateway/middleware/ratelimit/domain"
)

const (
	HeaderRetryAfter = "Retry-After"
	HeaderLimit      = "X-RateLimit-Limit"
	HeaderRemaining  = "X-RateLimit-Remaining"
	HeaderReset      = "X-RateLimit-Reset"

	// isoMillis é o ISO-8601 em UTC com milissegundos (ex.: 2026-01-01T00:01:00.000Z).
	isoMillis = "2006-01-02T15:04:05.000Z07:00"

	rejectedMessage = "Too many requests, please try again later."
)

func headersFor(dec domain.Decision) http.Header {
	h := make(http.Header, 4)
	h.Set(HeaderLimit, strconv.Itoa(dec.Limit))
	h.Set(HeaderRemaining, strconv.Itoa(dec.Remaining))
	h.Set(HeaderReset, dec.ResetAt.UTC().Format(isoMillis))
	if !dec.Allowed {
		h.Set(HeaderRetryAfter, strconv.Itoa(dec.RetryAfterSeconds()))
	}
	return h
}

func copyHeaders(dst, src http.Header) {
	for k, vs := range src {
		for _, v := range vs {
			dst.Add(k, v)
		}
	}
}

type errorBody struct {
	Error      string `json:"error"`
	RetryAfter int    `json:"retryAfter,omitempty"`
}

// WriteRejected responde 429 com os headers do resultado e um corpo JSON.
func WriteRejected(w http.ResponseWriter, res Result) {
	copyHeaders(w.Header(), res.Headers)
	writeJSON(w, http.StatusTooManyRequests, errorBody{
		Error:      rejectedMessage,
		RetryAfter: res.Decision.RetryAfterSeconds(),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// ResetTime converte o header X-RateLimit-Reset de volta para time.Time.
func ResetTime(h http.Header) (time.Time, error) {
	return time.Parse(isoMillis, h.Get(HeaderReset))
}
