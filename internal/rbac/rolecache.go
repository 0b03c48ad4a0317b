// Package rbac resuelve roles por (tenant, user) con cache-aside sobre la
// tabla autoritativa de membresías.
package rbac

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/dropDatabas3/tenantcore/internal/cache"
	"github.com/dropDatabas3/tenantcore/internal/domain/repository"
	"github.com/dropDatabas3/tenantcore/internal/metrics"
	"github.com/dropDatabas3/tenantcore/internal/observability/logger"
)

// ErrUnknownRole indica un rol fuera del set cerrado.
var ErrUnknownRole = errors.New("rbac: unknown role")

// Entry es la proyección cacheada de una membresía.
type Entry struct {
	TenantID string `json:"tenant_id"`
	UserID   string `json:"user_id"`
	Role     string `json:"role"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

// cacheTimeout acota cada llamada al cache; un cache lento no frena la
// autorización, se sigue contra la tabla durable.
const cacheTimeout = 500 * time.Millisecond

// Service implementa la resolución de roles y las mutaciones de membresía.
type Service struct {
	members repository.MembershipRepository
	cache   cache.Client
	ttl     time.Duration
}

// NewService crea el Service. ttl acota la ventana de staleness del cache.
func NewService(members repository.MembershipRepository, c cache.Client, ttl time.Duration) *Service {
	return &Service{members: members, cache: c, ttl: ttl}
}

func roleKey(tenantID, userID string) string {
	return "role:" + tenantID + ":" + userID
}

// Role resuelve el rol del usuario en el tenant, cache-aside: hit retorna
// directo; miss cae a la tabla durable y puebla el cache con TTL. Un fallo
// de cache en este camino NO es fatal: se loguea y responde la tabla.
// ErrNotFound significa "no es miembro" (el guard lo vuelve Forbidden).
func (s *Service) Role(ctx context.Context, tenantID, userID string) (*Entry, error) {
	key := roleKey(tenantID, userID)

	cctx, cancel := context.WithTimeout(ctx, cacheTimeout)
	raw, err := s.cache.Get(cctx, key)
	cancel()
	switch {
	case err == nil:
		var e Entry
		if jerr := json.Unmarshal([]byte(raw), &e); jerr == nil {
			metrics.RoleCacheLookups.WithLabelValues("hit").Inc()
			return &e, nil
		}
		// Entrada corrupta: tratarla como miss y sobreescribir.
		logger.From(ctx).Warn("role cache entry corrupt",
			logger.Component("rbac"), logger.Key(key))
	case !cache.IsNotFound(err):
		metrics.RoleCacheLookups.WithLabelValues("error").Inc()
		metrics.CacheFailuresTotal.WithLabelValues("rolecache").Inc()
		logger.From(ctx).Warn("role cache read failed, falling through",
			logger.Component("rbac"), logger.Key(key), logger.Err(err))
	}

	metrics.RoleCacheLookups.WithLabelValues("miss").Inc()
	m, err := s.members.Get(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}

	e := &Entry{
		TenantID: m.TenantID,
		UserID:   m.UserID,
		Role:     m.Role,
		Email:    m.Email,
		Username: m.Username,
	}
	s.populate(ctx, key, e)
	return e, nil
}

func (s *Service) populate(ctx context.Context, key string, e *Entry) {
	buf, err := json.Marshal(e)
	if err != nil {
		return
	}
	cctx, cancel := context.WithTimeout(ctx, cacheTimeout)
	defer cancel()
	if err := s.cache.Set(cctx, key, string(buf), s.ttl); err != nil {
		metrics.CacheFailuresTotal.WithLabelValues("rolecache").Inc()
		logger.From(ctx).Warn("role cache populate failed",
			logger.Component("rbac"), logger.Key(key), logger.Err(err))
	}
}

// invalidate borra la proyección cacheada tras una mutación. Best effort:
// si falla, el TTL acota la staleness igual.
func (s *Service) invalidate(ctx context.Context, tenantID, userID string) {
	cctx, cancel := context.WithTimeout(ctx, cacheTimeout)
	defer cancel()
	if err := s.cache.Delete(cctx, roleKey(tenantID, userID)); err != nil {
		metrics.CacheFailuresTotal.WithLabelValues("rolecache").Inc()
		logger.From(ctx).Warn("role cache invalidate failed",
			logger.Component("rbac"), logger.TenantID(tenantID), logger.UserID(userID), logger.Err(err))
	}
}

func validRole(role string) bool {
	switch role {
	case repository.RoleAdmin, repository.RoleMember, repository.RoleViewer:
		return true
	}
	return false
}

// AddMember agrega un usuario al tenant con el rol dado.
func (s *Service) AddMember(ctx context.Context, tenantID, userID, role string) (*repository.Membership, error) {
	if !validRole(role) {
		return nil, ErrUnknownRole
	}
	return s.members.Add(ctx, tenantID, userID, role)
}

// ChangeRole cambia el rol de un miembro. El repositorio verifica el
// invariante last-admin dentro de la misma transacción que la mutación:
// demover al último admin retorna ErrLastAdmin sin aplicar nada.
func (s *Service) ChangeRole(ctx context.Context, tenantID, userID, role string) error {
	if !validRole(role) {
		return ErrUnknownRole
	}
	if err := s.members.UpdateRole(ctx, tenantID, userID, role); err != nil {
		return err
	}
	s.invalidate(ctx, tenantID, userID)
	logger.From(ctx).Info("role changed",
		logger.Component("rbac"), logger.TenantID(tenantID), logger.UserID(userID), logger.String("role", role))
	return nil
}

// RemoveMember elimina la membresía, con el mismo tratamiento del
// invariante last-admin que ChangeRole.
func (s *Service) RemoveMember(ctx context.Context, tenantID, userID string) error {
	if err := s.members.Remove(ctx, tenantID, userID); err != nil {
		return err
	}
	s.invalidate(ctx, tenantID, userID)
	logger.From(ctx).Info("member removed",
		logger.Component("rbac"), logger.TenantID(tenantID), logger.UserID(userID))
	return nil
}

// ListMembers retorna las membresías del tenant (siempre de la tabla
// durable; el listado no pasa por el cache).
func (s *Service) ListMembers(ctx context.Context, tenantID string) ([]repository.Membership, error) {
	return s.members.List(ctx, tenantID)
}
