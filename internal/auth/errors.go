package auth

import "errors"

var (
	// ErrInvalidCredentials cubre usuario inexistente y password incorrecta.
	// Hacia afuera son indistinguibles a propósito.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")

	// ErrThrottled indica que el par (username, ip) superó el umbral de
	// intentos. Distinto de ErrInvalidCredentials para que el cliente pueda
	// hacer backoff en vez de reintentar.
	ErrThrottled = errors.New("auth: too many attempts")

	// ErrUnauthorized indica un access token ausente, inválido, expirado o
	// revocado.
	ErrUnauthorized = errors.New("auth: unauthorized")
)
