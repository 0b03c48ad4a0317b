// Package secrets define el colaborador que resuelve secretos de firma.
// El codec lo consulta en cada operación; acá no se cachea nada para que
// una rotación del secreto tome efecto sin reiniciar el proceso.
package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Source resuelve un secreto por nombre.
type Source interface {
	Resolve(ctx context.Context, name string) ([]byte, error)
}

// EnvSource resuelve secretos desde variables de entorno con un prefijo:
// name "jwt_signing" → TENANTCORE_SECRET_JWT_SIGNING.
type EnvSource struct {
	Prefix string // default "TENANTCORE_SECRET_"
}

func (s EnvSource) Resolve(ctx context.Context, name string) ([]byte, error) {
	prefix := s.Prefix
	if prefix == "" {
		prefix = "TENANTCORE_SECRET_"
	}
	key := prefix + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
	v := os.Getenv(key)
	if v == "" {
		return nil, fmt.Errorf("secrets: %s not set", key)
	}
	return []byte(v), nil
}

// Static es un Source fijo en memoria, para tests y desarrollo.
type Static map[string][]byte

func (s Static) Resolve(ctx context.Context, name string) ([]byte, error) {
	v, ok := s[name]
	if !ok || len(v) == 0 {
		return nil, fmt.Errorf("secrets: %q not found", name)
	}
	return v, nil
}
