// Package cache provee la abstracción key-value volátil del servicio.
//
// Soporta:
//   - Memory (in-process, para desarrollo/testing)
//   - Redis (distribuido, para producción)
//
// Todas las entradas son TTL-bounded: revocaciones, contadores de login y
// proyecciones de rol expiran solas; nadie recorre el cache para limpiarlo.
package cache

import (
	"context"
	"time"
)

// Client define las operaciones de cache que usa el servicio.
type Client interface {
	// Get obtiene un valor. Retorna ErrNotFound si no existe.
	Get(ctx context.Context, key string) (string, error)

	// Set guarda un valor con TTL. Si ttl es 0, no expira.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Delete elimina una key. Idempotente.
	Delete(ctx context.Context, key string) error

	// Incr incrementa un contador en 1 y retorna el valor resultante.
	// En el primer incremento fija el TTL de la key; los siguientes NO lo
	// renuevan, así la ventana de conteo es fija. Una key preexistente sin
	// expiración recibe el TTL dado, para que ningún contador viva para
	// siempre.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// TTL informa la vida restante de una key. Retorna ErrNotFound si la
	// key no existe y 0 si existe sin expiración.
	TTL(ctx context.Context, key string) (time.Duration, error)

	// Ping verifica la conexión.
	Ping(ctx context.Context) error

	// Close cierra la conexión.
	Close() error
}

// Config configuración para crear un cliente de cache.
type Config struct {
	Kind     string // "memory" | "redis"
	Addr     string
	Password string
	DB       int
	Prefix   string // Prefijo para todas las keys
}

// ErrNotFound indica que la key no existe en el cache.
var ErrNotFound = errNotFound{}

type errNotFound struct{}

func (errNotFound) Error() string { return "cache: key not found" }

// IsNotFound verifica si el error es porque la key no existe.
func IsNotFound(err error) bool {
	_, ok := err.(errNotFound)
	return ok
}

// New crea un cliente de cache según la configuración.
func New(cfg Config) (Client, error) {
	switch cfg.Kind {
	case "redis":
		return NewRedis(cfg)
	default:
		return NewMemory(cfg.Prefix), nil
	}
}
