package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dropDatabas3/tenantcore/internal/auth"
	"github.com/dropDatabas3/tenantcore/internal/rbac"
	"github.com/dropDatabas3/tenantcore/internal/session"
)

// API agrupa los handlers del surface de autenticación y membresías.
type API struct {
	Auth    *auth.Service
	RBAC    *rbac.Service
	Cookies CookieConfig
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

func (a *API) writePair(w http.ResponseWriter, status int, pair *session.TokenPair) {
	a.Cookies.setPair(w, pair.Access, pair.Refresh, pair.AccessTTL, pair.RefreshTTL)
	WriteJSON(w, status, tokenResponse{
		AccessToken:  pair.Access,
		RefreshToken: pair.Refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int(pair.AccessTTL.Seconds()),
	})
}

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register maneja POST /v1/auth/register.
func (a *API) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !ReadJSON(w, r, &req) {
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	req.Username = strings.TrimSpace(req.Username)
	if req.Email == "" || req.Username == "" || req.Password == "" {
		WriteError(w, http.StatusBadRequest, "invalid_request",
			"email, username y password son obligatorios", 1101)
		return
	}

	pair, err := a.Auth.SignUp(r.Context(), auth.SignUpInput{
		Email:     req.Email,
		Username:  req.Username,
		Password:  req.Password,
		UserAgent: r.UserAgent(),
		IPAddress: clientIP(r),
	})
	if err != nil {
		WriteDomainError(w, err, 0)
		return
	}
	a.writePair(w, http.StatusCreated, pair)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login maneja POST /v1/auth/login.
func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !ReadJSON(w, r, &req) {
		return
	}
	if req.Username == "" || req.Password == "" {
		WriteError(w, http.StatusBadRequest, "invalid_request",
			"username y password son obligatorios", 1101)
		return
	}

	pair, err := a.Auth.SignIn(r.Context(), req.Username, req.Password, clientIP(r), r.UserAgent())
	if err != nil {
		var retryAfter time.Duration
		if errors.Is(err, auth.ErrThrottled) {
			// Lo que queda de la ventana, no la ventana entera.
			retryAfter = a.Auth.RetryAfter(r.Context(), req.Username, clientIP(r))
		}
		WriteDomainError(w, err, retryAfter)
		return
	}
	a.writePair(w, http.StatusOK, pair)
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Logout maneja POST /v1/auth/logout. Toma los tokens de los cookies (body
// como fallback), revoca el estado server-side y borra los cookies. Es
// idempotente: sin tokens presentes igual responde 204.
func (a *API) Logout(w http.ResponseWriter, r *http.Request) {
	access := bearerToken(r, a.Cookies.AccessName)

	refresh := ""
	if ck, err := r.Cookie(a.Cookies.RefreshName); err == nil {
		refresh = ck.Value
	}
	if refresh == "" && strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
		var req logoutRequest
		if !ReadJSON(w, r, &req) {
			return
		}
		refresh = req.RefreshToken
	}

	if err := a.Auth.SignOut(r.Context(), access, refresh); err != nil {
		WriteDomainError(w, err, 0)
		return
	}
	a.Cookies.deletePair(w)
	w.WriteHeader(http.StatusNoContent)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh maneja POST /v1/auth/refresh: rota el refresh token presentado.
func (a *API) Refresh(w http.ResponseWriter, r *http.Request) {
	refresh := ""
	if ck, err := r.Cookie(a.Cookies.RefreshName); err == nil {
		refresh = ck.Value
	}
	if refresh == "" && strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
		var req refreshRequest
		if !ReadJSON(w, r, &req) {
			return
		}
		refresh = req.RefreshToken
	}
	if refresh == "" {
		WriteError(w, http.StatusUnauthorized, "unauthorized", "refresh token ausente", 1202)
		return
	}

	pair, err := a.Auth.Refresh(r.Context(), refresh, clientIP(r), r.UserAgent())
	if err != nil {
		if errors.Is(err, session.ErrInvalid) {
			// Un refresh rechazado deja los cookies viejos inservibles.
			a.Cookies.deletePair(w)
		}
		WriteDomainError(w, err, 0)
		return
	}
	a.writePair(w, http.StatusOK, pair)
}

type meResponse struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	JTI    string `json:"jti"`
}

// Me maneja GET /v1/auth/me (detrás de AccessGuard).
func (a *API) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFrom(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "unauthorized", "credencial ausente", 1202)
		return
	}
	WriteJSON(w, http.StatusOK, meResponse{
		UserID: claims.Subject,
		Email:  claims.Email,
		JTI:    claims.JTI(),
	})
}
