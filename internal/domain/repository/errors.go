package repository

import "errors"

var (
	// ErrNotFound indica que el recurso solicitado no existe.
	ErrNotFound = errors.New("not found")

	// ErrConflict indica un conflicto de unicidad (email/username duplicado,
	// membership repetida).
	ErrConflict = errors.New("conflict")

	// ErrLastAdmin indica que la operación dejaría al tenant sin ningún
	// miembro con rol admin. La mutación no se aplica, ni parcialmente.
	ErrLastAdmin = errors.New("cannot remove last admin")
)

// IsNotFound verifica si el error es ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict verifica si el error es ErrConflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsLastAdmin verifica si el error es ErrLastAdmin.
func IsLastAdmin(err error) bool {
	return errors.Is(err, ErrLastAdmin)
}
