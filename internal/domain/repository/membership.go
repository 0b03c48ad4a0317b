package repository

import (
	"context"
	"time"
)

// Roles conocidos. El set es cerrado: las rutas declaran subconjuntos de esto.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
	RoleViewer = "viewer"
)

// Membership es la fila autoritativa (tenant, user) → rol, con los campos de
// perfil denormalizados que la capa de cache proyecta.
type Membership struct {
	TenantID  string
	UserID    string
	Role      string
	Email     string // denormalizado de users
	Username  string // denormalizado de users
	CreatedAt time.Time
}

// MembershipRepository gestiona la tabla autoritativa de membresías.
type MembershipRepository interface {
	// Get busca la membresía de un usuario en un tenant. ErrNotFound si no
	// es miembro.
	Get(ctx context.Context, tenantID, userID string) (*Membership, error)

	// List retorna todas las membresías del tenant.
	List(ctx context.Context, tenantID string) ([]Membership, error)

	// Add agrega un miembro. Par duplicado retorna ErrConflict.
	Add(ctx context.Context, tenantID, userID, role string) (*Membership, error)

	// UpdateRole cambia el rol. ErrNotFound si no es miembro; ErrLastAdmin
	// si la mutación dejaría al tenant sin admins.
	UpdateRole(ctx context.Context, tenantID, userID, role string) error

	// Remove elimina la membresía. ErrNotFound si no es miembro;
	// ErrLastAdmin si era el último admin del tenant.
	Remove(ctx context.Context, tenantID, userID string) error

	// CountAdmins cuenta los miembros admin del tenant, excluyendo
	// opcionalmente a un usuario (para el chequeo de last-admin).
	CountAdmins(ctx context.Context, tenantID, excludeUserID string) (int, error)
}
