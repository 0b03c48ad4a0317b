package auth

import (
	"context"
	"time"

	"github.com/dropDatabas3/tenantcore/internal/cache"
	"github.com/dropDatabas3/tenantcore/internal/metrics"
	"github.com/dropDatabas3/tenantcore/internal/observability/logger"
)

// Revoker mantiene la blocklist de access tokens revocados en sign-out.
// El access token es stateless: sin esta entrada seguiría siendo válido
// hasta su expiración natural.
//
// Lectura fallida degrada a "no bloqueado" (log + métrica): una caída de
// Redis abre una ventana igual al TTL restante del token (≤10m) en vez de
// rechazar todos los requests. Tradeoff explícito, ver DESIGN.md.
type Revoker struct {
	cache cache.Client
}

// NewRevoker crea un Revoker sobre el cache dado.
func NewRevoker(c cache.Client) *Revoker {
	return &Revoker{cache: c}
}

func revocationKey(jti string) string { return "revoked:" + jti }

// Block marca el jti como revocado por el TTL dado, que debe ser la vida
// restante del token — nunca más, para acotar el crecimiento del cache.
func (r *Revoker) Block(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		// Token ya vencido: no hay nada que bloquear.
		return nil
	}
	cctx, cancel := context.WithTimeout(ctx, cacheTimeout)
	defer cancel()

	if err := r.cache.Set(cctx, revocationKey(jti), "1", ttl); err != nil {
		metrics.CacheFailuresTotal.WithLabelValues("revocation").Inc()
		logger.From(ctx).Error("revocation write failed",
			logger.Component("revocation"), logger.JTI(jti), logger.Err(err))
		return err
	}
	return nil
}

// IsBlocked consulta la blocklist.
func (r *Revoker) IsBlocked(ctx context.Context, jti string) bool {
	cctx, cancel := context.WithTimeout(ctx, cacheTimeout)
	defer cancel()

	_, err := r.cache.Get(cctx, revocationKey(jti))
	if err == nil {
		return true
	}
	if !cache.IsNotFound(err) {
		metrics.CacheFailuresTotal.WithLabelValues("revocation").Inc()
		logger.From(ctx).Warn("revocation read failed, allowing",
			logger.Component("revocation"), logger.JTI(jti), logger.Err(err))
	}
	return false
}
