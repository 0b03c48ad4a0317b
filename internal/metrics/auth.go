// Package metrics define los contadores Prometheus del core de auth.
// Paquete standalone para evitar ciclos de import entre auth, rbac y http.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	LoginsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_logins_total",
		Help: "Intentos de login por resultado",
	}, []string{"result"}) // ok | invalid_credentials | throttled | error

	LockoutAlertsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_lockout_alerts_total",
		Help: "Notificaciones de seguridad disparadas por lockout",
	})

	TokenVerifiesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_token_verifies_total",
		Help: "Verificaciones de access token por clase de resultado",
	}, []string{"outcome"}) // ok | soft | hard | revoked

	SessionRotationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_session_rotations_total",
		Help: "Rotaciones de refresh token por resultado",
	}, []string{"result"}) // ok | rejected | error

	RoleCacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rbac_role_cache_lookups_total",
		Help: "Lecturas del cache de roles",
	}, []string{"result"}) // hit | miss | error

	CacheFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_failures_total",
		Help: "Fallas de cache por componente (degradaciones logueadas)",
	}, []string{"component"}) // revocation | throttle | rolecache
)

// Register registra los contadores en el registry dado (o el default si es
// nil). Tolera AlreadyRegistered para poder llamarse desde tests.
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	collectors := []prometheus.Collector{
		LoginsTotal, LockoutAlertsTotal, TokenVerifiesTotal,
		SessionRotationsTotal, RoleCacheLookups, CacheFailuresTotal,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
