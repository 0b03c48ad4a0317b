// Package repository define las interfaces de acceso a datos durables.
package repository

import (
	"context"
	"time"
)

// User es la credencial de primera parte de un usuario.
type User struct {
	ID           string
	Email        string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// CreateUserInput contiene los datos para crear un usuario.
type CreateUserInput struct {
	Email        string
	Username     string
	PasswordHash string
}

// IdentityRepository gestiona credenciales.
// Fuera del sign-in y el sign-up, nadie más lee esta tabla.
type IdentityRepository interface {
	// Create crea un usuario. Email y username son únicos; duplicado
	// retorna ErrConflict.
	Create(ctx context.Context, input CreateUserInput) (*User, error)

	// GetByUsername busca por username. ErrNotFound si no existe.
	GetByUsername(ctx context.Context, username string) (*User, error)

	// GetByID busca por id. ErrNotFound si no existe.
	GetByID(ctx context.Context, id string) (*User, error)
}
