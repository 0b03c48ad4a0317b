package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/tenantcore/internal/auth"
	"github.com/dropDatabas3/tenantcore/internal/domain/repository"
	"github.com/dropDatabas3/tenantcore/internal/observability/logger"
	"github.com/dropDatabas3/tenantcore/internal/rbac"
	"github.com/dropDatabas3/tenantcore/internal/token"
)

type ctxKey int

const (
	ctxClaims ctxKey = iota
	ctxRole
)

// ClaimsFrom retorna los claims del access token validado por AccessGuard.
func ClaimsFrom(ctx context.Context) (*token.Claims, bool) {
	c, ok := ctx.Value(ctxClaims).(*token.Claims)
	return c, ok
}

// RoleFrom retorna la membresía resuelta por RoleGuard.
func RoleFrom(ctx context.Context) (*rbac.Entry, bool) {
	e, ok := ctx.Value(ctxRole).(*rbac.Entry)
	return e, ok
}

// bearerToken extrae el access token: cookie primero, header Bearer como
// fallback para clientes no-browser.
func bearerToken(r *http.Request, cookieName string) string {
	if ck, err := r.Cookie(cookieName); err == nil && ck.Value != "" {
		return ck.Value
	}
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(h), "bearer ") {
		return strings.TrimSpace(h[len("bearer "):])
	}
	return ""
}

// AccessGuard exige un access token válido (firma, claims, blocklist) y deja
// los claims en el contexto. Toda negativa es 401; solo un problema de
// infraestructura (secreto irresoluble) responde 500.
func AccessGuard(svc *auth.Service, accessCookie string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r, accessCookie)

			claims, err := svc.CheckAccess(r.Context(), raw)
			if err != nil {
				if err == auth.ErrUnauthorized {
					WriteDomainError(w, err, 0)
					return
				}
				logger.From(r.Context()).Error("access check failed",
					logger.Component("http"), logger.Err(err))
				WriteError(w, http.StatusInternalServerError, "internal_error", "error interno", 1500)
				return
			}

			ctx := context.WithValue(r.Context(), ctxClaims, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RoleGuard exige que el usuario autenticado tenga en el tenant del path
// ({tenantID}) alguno de los roles dados. Corre después de AccessGuard.
// No-miembro y rol insuficiente son indistinguibles para el cliente: 403.
func RoleGuard(svc *rbac.Service, roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFrom(r.Context())
			if !ok {
				WriteError(w, http.StatusUnauthorized, "unauthorized", "credencial ausente", 1202)
				return
			}
			tenantID := chi.URLParam(r, "tenantID")
			if tenantID == "" {
				WriteError(w, http.StatusBadRequest, "invalid_tenant", "tenant ausente en el path", 1101)
				return
			}

			entry, err := svc.Role(r.Context(), tenantID, claims.Subject)
			if err != nil {
				if repository.IsNotFound(err) {
					WriteError(w, http.StatusForbidden, "forbidden", "sin membresía en el tenant", 1203)
					return
				}
				logger.From(r.Context()).Error("role lookup failed",
					logger.Component("http"), logger.TenantID(tenantID), logger.Err(err))
				WriteError(w, http.StatusInternalServerError, "internal_error", "error interno", 1500)
				return
			}
			if _, ok := allowed[entry.Role]; !ok {
				WriteError(w, http.StatusForbidden, "forbidden", "rol insuficiente", 1203)
				return
			}

			ctx := context.WithValue(r.Context(), ctxRole, entry)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
