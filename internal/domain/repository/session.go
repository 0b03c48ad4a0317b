package repository

import (
	"context"
	"time"
)

// Session es una fila por refresh token vigente. La existencia de la fila es
// la única fuente de verdad sobre la validez del refresh: el JWT firmado es
// solo un puntero de capacidad hacia ella.
type Session struct {
	ID        string // = jti del refresh token
	UserID    string
	TokenHash string // argon2id del token firmado
	UserAgent string
	IPAddress string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// CreateSessionInput contiene los datos para persistir una sesión nueva.
type CreateSessionInput struct {
	ID        string
	UserID    string
	TokenHash string
	UserAgent string
	IPAddress string
	ExpiresAt time.Time
}

// SessionRepository gestiona las sesiones de refresh.
type SessionRepository interface {
	// Create persiste una sesión. ID duplicado retorna ErrConflict.
	Create(ctx context.Context, input CreateSessionInput) (*Session, error)

	// Get busca por id (jti). ErrNotFound si no existe.
	Get(ctx context.Context, id string) (*Session, error)

	// Delete elimina la fila y reporta si existía. El retorno es la base de
	// la garantía single-use: ante dos rotaciones concurrentes del mismo
	// refresh, solo una ve deleted=true.
	Delete(ctx context.Context, id string) (deleted bool, err error)

	// DeleteExpired elimina sesiones vencidas. Retorna cuántas borró.
	DeleteExpired(ctx context.Context) (int, error)
}
