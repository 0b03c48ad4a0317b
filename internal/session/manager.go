// Package session gestiona el ciclo de vida de las sesiones de refresh:
// emisión del par access/refresh, rotación single-use y revocación.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/tenantcore/internal/domain/repository"
	"github.com/dropDatabas3/tenantcore/internal/observability/logger"
	"github.com/dropDatabas3/tenantcore/internal/security/password"
	"github.com/dropDatabas3/tenantcore/internal/token"
)

// ErrInvalid cubre todo refresh que no da derecho a rotar: replay de un
// token ya rotado, sesión expirada, hash que no coincide, tipo equivocado.
// El caller responde Unauthorized sin distinguir el motivo hacia afuera.
var ErrInvalid = errors.New("session: invalid refresh token")

// TokenPair es el resultado de una emisión o rotación.
type TokenPair struct {
	Access        string
	Refresh       string
	AccessClaims  *token.Claims
	RefreshClaims *token.Claims
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// Manager emite y rota sesiones. La fila en el repo es la fuente de verdad;
// el refresh firmado es solo un puntero de capacidad.
type Manager struct {
	repo       repository.SessionRepository
	codec      *token.Codec
	hasher     *password.Hasher
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewManager crea un Manager con los TTLs del servicio.
func NewManager(repo repository.SessionRepository, codec *token.Codec, hasher *password.Hasher, accessTTL, refreshTTL time.Duration) *Manager {
	return &Manager{
		repo:       repo,
		codec:      codec,
		hasher:     hasher,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// Issue emite un par access/refresh nuevo y persiste la sesión de refresh
// (hasheada). Un fallo de escritura durable NO se degrada: propaga.
func (m *Manager) Issue(ctx context.Context, userID, email, agent, ip string) (*TokenPair, error) {
	accessJTI := uuid.NewString()
	refreshJTI := uuid.NewString()

	access, accessClaims, err := m.codec.Sign(ctx, token.TypeAccess, accessJTI, userID, email, m.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, refreshClaims, err := m.codec.Sign(ctx, token.TypeRefresh, refreshJTI, userID, email, m.refreshTTL)
	if err != nil {
		return nil, err
	}

	tokenHash, err := m.hasher.Hash(ctx, refresh)
	if err != nil {
		return nil, fmt.Errorf("session: hash refresh: %w", err)
	}

	if _, err := m.repo.Create(ctx, repository.CreateSessionInput{
		ID:        refreshJTI,
		UserID:    userID,
		TokenHash: tokenHash,
		UserAgent: agent,
		IPAddress: ip,
		ExpiresAt: refreshClaims.ExpiresAt.Time,
	}); err != nil {
		return nil, fmt.Errorf("session: persist: %w", err)
	}

	return &TokenPair{
		Access:        access,
		Refresh:       refresh,
		AccessClaims:  accessClaims,
		RefreshClaims: refreshClaims,
		AccessTTL:     m.accessTTL,
		RefreshTTL:    m.refreshTTL,
	}, nil
}

// Rotate consume un refresh token (single-use) y emite un par nuevo.
//
// El delete condicional del repo decide las carreras: si dos requests
// presentan el mismo refresh a la vez, solo el que ve deleted=true rota; el
// otro recibe ErrInvalid. Entre el delete y el create no hay transacción
// cross-store: un crash en el medio deja al usuario re-autenticando, lo cual
// se acepta.
func (m *Manager) Rotate(ctx context.Context, rawRefresh, agent, ip string) (*TokenPair, error) {
	claims, ok, err := m.codec.Verify(ctx, rawRefresh)
	if err != nil {
		return nil, err
	}
	if !ok || claims.Type != token.TypeRefresh {
		return nil, ErrInvalid
	}

	rec, err := m.repo.Get(ctx, claims.JTI())
	if repository.IsNotFound(err) {
		// Replay de un refresh ya rotado o revocado.
		logger.From(ctx).Warn("refresh replay detected",
			logger.Component("session"), logger.JTI(claims.JTI()), logger.UserID(claims.Subject))
		return nil, ErrInvalid
	}
	if err != nil {
		return nil, err
	}

	if time.Now().After(rec.ExpiresAt) {
		if _, derr := m.repo.Delete(ctx, rec.ID); derr != nil {
			logger.From(ctx).Warn("delete expired session failed",
				logger.Component("session"), logger.JTI(rec.ID), logger.Err(derr))
		}
		return nil, ErrInvalid
	}

	if !m.hasher.Verify(ctx, rawRefresh, rec.TokenHash) {
		return nil, ErrInvalid
	}

	deleted, err := m.repo.Delete(ctx, rec.ID)
	if err != nil {
		return nil, err
	}
	if !deleted {
		// Otro request rotó primero.
		return nil, ErrInvalid
	}

	return m.Issue(ctx, rec.UserID, claims.Email, agent, ip)
}

// Revoke elimina la sesión del refresh presentado (sign-out). Idempotente:
// un refresh ya inválido no es error acá.
func (m *Manager) Revoke(ctx context.Context, rawRefresh string) error {
	claims, ok, err := m.codec.Verify(ctx, rawRefresh)
	if err != nil {
		return err
	}
	if !ok || claims.Type != token.TypeRefresh {
		return nil
	}
	if _, err := m.repo.Delete(ctx, claims.JTI()); err != nil {
		return err
	}
	return nil
}

// AccessTTL expone el TTL de access configurado.
func (m *Manager) AccessTTL() time.Duration { return m.accessTTL }
