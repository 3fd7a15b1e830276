package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-auth-nosql/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// LoginEnvelope wraps successful login responses.
type LoginEnvelope struct {
	Message string             `json:"message"`
	Token   string             `json:"token"`
	User    *domain.PublicUser `json:"user"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

// statusBySentinel maps domain sentinels to HTTP codes. Conflicts surface as
// 400 to keep the signup error contract a single status.
var statusBySentinel = []struct {
	sentinel error
	code     int
}{
	{domain.ErrBadRequest, http.StatusBadRequest},
	{domain.ErrConflict, http.StatusBadRequest},
	{domain.ErrUnauthorized, http.StatusUnauthorized},
	{domain.ErrNotFound, http.StatusNotFound},
}

// httpError resolves a service error to a status code and strips the wrapped
// sentinel suffix so clients see only the human-readable message.
func httpError(w http.ResponseWriter, err error) {
	for _, m := range statusBySentinel {
		if errors.Is(err, m.sentinel) {
			writeError(w, m.code, strings.TrimSuffix(err.Error(), ": "+m.sentinel.Error()))
			return
		}
	}
	writeError(w, http.StatusInternalServerError, "internal server error")
}
