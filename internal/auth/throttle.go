package auth

import (
	"context"
	"strconv"
	"time"

	"github.com/dropDatabas3/tenantcore/internal/cache"
	"github.com/dropDatabas3/tenantcore/internal/metrics"
	"github.com/dropDatabas3/tenantcore/internal/observability/logger"
)

// cacheTimeout es el deadline de cada llamada al cache: un cache colgado se
// trata como cache caído, no frena el login.
const cacheTimeout = 500 * time.Millisecond

// Throttle cuenta intentos fallidos de login por (username, ip) con ventana
// fija de TTL.
//
// Si el cache no responde, el throttle degrada a "no bloqueado" con log y
// métrica: preferimos una ventana acotada de fuerza bruta a una tormenta de
// falsos 429 cuando Redis parpadea. Tradeoff explícito, ver DESIGN.md.
type Throttle struct {
	cache  cache.Client
	max    int64
	window time.Duration
}

// NewThrottle crea un Throttle. max es el umbral de bloqueo (5 por defecto
// en config), window la ventana de lockout.
func NewThrottle(c cache.Client, max int, window time.Duration) *Throttle {
	return &Throttle{cache: c, max: int64(max), window: window}
}

func throttleKey(username, ip string) string {
	return "login:attempts:" + username + "|" + ip
}

// Blocked informa si el par ya alcanzó el umbral. Se consulta ANTES de
// verificar la password: un par bloqueado no gasta un hash argon2.
func (t *Throttle) Blocked(ctx context.Context, username, ip string) bool {
	cctx, cancel := context.WithTimeout(ctx, cacheTimeout)
	defer cancel()

	v, err := t.cache.Get(cctx, throttleKey(username, ip))
	if err != nil {
		if !cache.IsNotFound(err) {
			metrics.CacheFailuresTotal.WithLabelValues("throttle").Inc()
			logger.From(ctx).Warn("throttle read failed, allowing",
				logger.Component("throttle"), logger.Username(username), logger.Err(err))
		}
		return false
	}
	n, _ := strconv.ParseInt(v, 10, 64)
	return n >= t.max
}

// RecordFailure incrementa el contador tras una credencial incorrecta.
// hitThreshold es true SOLO cuando el contador llega exactamente al umbral:
// es el disparador de la notificación de seguridad, una vez por ventana.
func (t *Throttle) RecordFailure(ctx context.Context, username, ip string) (count int64, hitThreshold bool) {
	cctx, cancel := context.WithTimeout(ctx, cacheTimeout)
	defer cancel()

	n, err := t.cache.Incr(cctx, throttleKey(username, ip), t.window)
	if err != nil {
		metrics.CacheFailuresTotal.WithLabelValues("throttle").Inc()
		logger.From(ctx).Warn("throttle increment failed",
			logger.Component("throttle"), logger.Username(username), logger.Err(err))
		return 0, false
	}
	return n, n == t.max
}

// Reset borra el contador tras un login exitoso.
func (t *Throttle) Reset(ctx context.Context, username, ip string) {
	cctx, cancel := context.WithTimeout(ctx, cacheTimeout)
	defer cancel()

	if err := t.cache.Delete(cctx, throttleKey(username, ip)); err != nil {
		metrics.CacheFailuresTotal.WithLabelValues("throttle").Inc()
		logger.From(ctx).Warn("throttle reset failed",
			logger.Component("throttle"), logger.Username(username), logger.Err(err))
	}
}

// RetryAfter informa cuánto falta para que la ventana del par expire, para
// el header Retry-After. Si el cache no puede responder se informa la
// ventana completa: sobreestimar la espera es el default seguro.
func (t *Throttle) RetryAfter(ctx context.Context, username, ip string) time.Duration {
	cctx, cancel := context.WithTimeout(ctx, cacheTimeout)
	defer cancel()

	ttl, err := t.cache.TTL(cctx, throttleKey(username, ip))
	if err != nil || ttl <= 0 {
		return t.window
	}
	return ttl
}

// Window expone la ventana configurada (para el texto del aviso).
func (t *Throttle) Window() time.Duration { return t.window }
