package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dropDatabas3/tenantcore/internal/auth"
	"github.com/dropDatabas3/tenantcore/internal/domain/repository"
	"github.com/dropDatabas3/tenantcore/internal/rbac"
	"github.com/dropDatabas3/tenantcore/internal/session"
)

type apiError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
	ErrorCode        int    `json:"error_code,omitempty"`
	RequestID        string `json:"request_id,omitempty"`
}

func WriteError(w http.ResponseWriter, status int, code, desc string, errCode int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	rid := w.Header().Get("X-Request-ID")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiError{
		Error:            code,
		ErrorDescription: desc,
		ErrorCode:        errCode,
		RequestID:        rid,
	})
}

// WriteJSON: respuesta JSON estándar
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ReadJSON: decodifica JSON de forma tolerante (NO falla por campos
// desconocidos). Valida Content-Type y limita el body a 1MB.
func ReadJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := strings.ToLower(r.Header.Get("Content-Type"))
	if !strings.Contains(ct, "application/json") {
		WriteError(w, http.StatusBadRequest, "invalid_json", "Content-Type debe ser application/json", 1102)
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil && err != io.EOF {
		WriteError(w, http.StatusBadRequest, "invalid_json", "json inválido", 1102)
		return false
	}
	return true
}

// WriteDomainError mapea los errores del dominio al status HTTP y cuerpo
// correspondientes. retryAfter solo aplica al caso throttled (0 lo omite).
func WriteDomainError(w http.ResponseWriter, err error, retryAfter time.Duration) {
	switch {
	case errors.Is(err, auth.ErrThrottled):
		if retryAfter > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
		}
		WriteError(w, http.StatusTooManyRequests, "too_many_attempts",
			"demasiados intentos fallidos, reintentá más tarde", 1401)
	case errors.Is(err, auth.ErrInvalidCredentials):
		WriteError(w, http.StatusUnauthorized, "invalid_credentials",
			"usuario o contraseña incorrectos", 1201)
	case errors.Is(err, auth.ErrUnauthorized), errors.Is(err, session.ErrInvalid):
		WriteError(w, http.StatusUnauthorized, "unauthorized",
			"credencial ausente, inválida o revocada", 1202)
	case errors.Is(err, repository.ErrLastAdmin):
		WriteError(w, http.StatusForbidden, "last_admin",
			"el tenant quedaría sin administradores", 1302)
	case errors.Is(err, repository.ErrConflict):
		WriteError(w, http.StatusConflict, "conflict",
			"el recurso ya existe", 1301)
	case errors.Is(err, repository.ErrNotFound):
		WriteError(w, http.StatusNotFound, "not_found",
			"recurso inexistente", 1404)
	case errors.Is(err, rbac.ErrUnknownRole):
		WriteError(w, http.StatusBadRequest, "unknown_role",
			"rol fuera del set permitido", 1303)
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error",
			"error interno", 1500)
	}
}
