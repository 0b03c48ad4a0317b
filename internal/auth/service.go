// Package auth orquesta sign-up, sign-in, sign-out y refresh. Es el único
// componente que toca hasher, codec, sesiones, blocklist y throttle juntos.
package auth

import (
	"context"
	"strings"
	"time"

	"github.com/dropDatabas3/tenantcore/internal/domain/repository"
	"github.com/dropDatabas3/tenantcore/internal/email"
	"github.com/dropDatabas3/tenantcore/internal/metrics"
	"github.com/dropDatabas3/tenantcore/internal/observability/logger"
	"github.com/dropDatabas3/tenantcore/internal/security/password"
	"github.com/dropDatabas3/tenantcore/internal/session"
	"github.com/dropDatabas3/tenantcore/internal/token"
)

// Service es el gateway de autenticación.
type Service struct {
	users    repository.IdentityRepository
	sessions *session.Manager
	codec    *token.Codec
	hasher   *password.Hasher
	throttle *Throttle
	revoker  *Revoker
	mailer   email.Sender // nil deshabilita las alertas
}

// NewService arma el gateway con sus colaboradores.
func NewService(
	users repository.IdentityRepository,
	sessions *session.Manager,
	codec *token.Codec,
	hasher *password.Hasher,
	throttle *Throttle,
	revoker *Revoker,
	mailer email.Sender,
) *Service {
	return &Service{
		users:    users,
		sessions: sessions,
		codec:    codec,
		hasher:   hasher,
		throttle: throttle,
		revoker:  revoker,
		mailer:   mailer,
	}
}

// SignUpInput son los datos de registro.
type SignUpInput struct {
	Email     string
	Username  string
	Password  string
	UserAgent string
	IPAddress string
}

// SignUp crea la credencial y deja al usuario logueado (par de tokens).
// Email o username duplicado retorna repository.ErrConflict.
func (s *Service) SignUp(ctx context.Context, in SignUpInput) (*session.TokenPair, error) {
	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return nil, err
	}

	u, err := s.users.Create(ctx, repository.CreateUserInput{
		Email:        strings.TrimSpace(strings.ToLower(in.Email)),
		Username:     strings.TrimSpace(in.Username),
		PasswordHash: hash,
	})
	if err != nil {
		return nil, err
	}

	logger.From(ctx).Info("user registered",
		logger.Component("auth"), logger.UserID(u.ID), logger.Username(u.Username))
	return s.sessions.Issue(ctx, u.ID, u.Email, in.UserAgent, in.IPAddress)
}

// SignIn verifica credenciales con throttling por (username, ip).
//
// Orden del flujo, deliberado:
//  1. chequeo de bloqueo ANTES de tocar el hash (un par bloqueado no gasta
//     argon2; la asimetría de timing resultante se acepta),
//  2. verificación de password,
//  3. en fallo, incremento del contador; al llegar exactamente al umbral se
//     dispara UNA notificación por ventana,
//  4. en éxito, reset del contador.
func (s *Service) SignIn(ctx context.Context, username, plainPassword, ip, agent string) (*session.TokenPair, error) {
	username = strings.TrimSpace(username)

	if s.throttle.Blocked(ctx, username, ip) {
		metrics.LoginsTotal.WithLabelValues("throttled").Inc()
		return nil, ErrThrottled
	}

	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if repository.IsNotFound(err) {
			// Username inexistente cuenta igual que password incorrecta:
			// mismo contador, misma respuesta.
			return nil, s.failAttempt(ctx, username, "", ip)
		}
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	if !s.hasher.Verify(ctx, plainPassword, u.PasswordHash) {
		return nil, s.failAttempt(ctx, username, u.Email, ip)
	}

	s.throttle.Reset(ctx, username, ip)

	pair, err := s.sessions.Issue(ctx, u.ID, u.Email, agent, ip)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.LoginsTotal.WithLabelValues("ok").Inc()
	logger.From(ctx).Info("sign-in ok",
		logger.Component("auth"), logger.UserID(u.ID), logger.ClientIP(ip))
	return pair, nil
}

// failAttempt registra el intento fallido y decide la respuesta: al alcanzar
// el umbral el error pasa de InvalidCredentials a Throttled.
func (s *Service) failAttempt(ctx context.Context, username, userEmail, ip string) error {
	count, hitThreshold := s.throttle.RecordFailure(ctx, username, ip)

	if hitThreshold {
		s.sendLockoutAlert(ctx, username, userEmail, ip)
	}

	if count >= s.throttle.max && count > 0 {
		metrics.LoginsTotal.WithLabelValues("throttled").Inc()
		return ErrThrottled
	}
	metrics.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
	return ErrInvalidCredentials
}

// sendLockoutAlert dispara la notificación de seguridad. Solo se llama
// cuando el contador tocó exactamente el umbral, así no se repite en cada
// intento posterior de la misma ventana.
func (s *Service) sendLockoutAlert(ctx context.Context, username, userEmail, ip string) {
	metrics.LockoutAlertsTotal.Inc()
	logger.From(ctx).Warn("login lockout threshold reached",
		logger.Component("auth"), logger.Username(username), logger.ClientIP(ip))

	if s.mailer == nil || userEmail == "" {
		// Username desconocido: no hay casilla a la cual avisar.
		return
	}
	subject, html, text := email.LockoutAlert(username, ip, int(s.throttle.Window().Minutes()))
	if err := s.mailer.Send(userEmail, subject, html, text); err != nil {
		logger.From(ctx).Error("lockout alert send failed",
			logger.Component("auth"), logger.Username(username), logger.Err(err))
	}
}

// RetryAfter informa la espera restante del par throttled, para el header
// Retry-After del 429.
func (s *Service) RetryAfter(ctx context.Context, username, ip string) time.Duration {
	return s.throttle.RetryAfter(ctx, strings.TrimSpace(username), ip)
}

// SignOut revoca el estado server-side de ambos tokens: blocklist para el
// access (que si no seguiría siendo válido hasta expirar) y borrado de la
// fila de sesión para el refresh.
func (s *Service) SignOut(ctx context.Context, rawAccess, rawRefresh string) error {
	if rawAccess != "" {
		claims, ok, err := s.codec.Verify(ctx, rawAccess)
		switch {
		case err != nil:
			logger.From(ctx).Warn("sign-out: unverifiable access token",
				logger.Component("auth"), logger.Err(err))
		case ok && claims.Type == token.TypeAccess:
			// TTL = vida restante del token, nunca más. Si la blocklist no
			// pudo escribirse el token sigue vivo: el sign-out NO puede
			// reportarse exitoso.
			if err := s.revoker.Block(ctx, claims.JTI(), time.Until(claims.ExpiresAt.Time)); err != nil {
				return err
			}
		}
	}

	if rawRefresh != "" {
		if err := s.sessions.Revoke(ctx, rawRefresh); err != nil {
			return err
		}
	}
	return nil
}

// Refresh rota el refresh token presentado (single-use).
func (s *Service) Refresh(ctx context.Context, rawRefresh, ip, agent string) (*session.TokenPair, error) {
	pair, err := s.sessions.Rotate(ctx, rawRefresh, agent, ip)
	switch {
	case err == nil:
		metrics.SessionRotationsTotal.WithLabelValues("ok").Inc()
	case err == session.ErrInvalid:
		metrics.SessionRotationsTotal.WithLabelValues("rejected").Inc()
	default:
		metrics.SessionRotationsTotal.WithLabelValues("error").Inc()
	}
	return pair, err
}

// CheckAccess valida un access token contra firma, claims y blocklist.
// Cualquier negativa es ErrUnauthorized; solo los problemas de
// infraestructura (token corrupto, secreto irresoluble) salen como error
// distinto.
func (s *Service) CheckAccess(ctx context.Context, rawAccess string) (*token.Claims, error) {
	if rawAccess == "" {
		metrics.TokenVerifiesTotal.WithLabelValues("soft").Inc()
		return nil, ErrUnauthorized
	}

	claims, ok, err := s.codec.Verify(ctx, rawAccess)
	if err != nil {
		metrics.TokenVerifiesTotal.WithLabelValues("hard").Inc()
		return nil, err
	}
	if !ok || claims.Type != token.TypeAccess {
		metrics.TokenVerifiesTotal.WithLabelValues("soft").Inc()
		return nil, ErrUnauthorized
	}
	if s.revoker.IsBlocked(ctx, claims.JTI()) {
		metrics.TokenVerifiesTotal.WithLabelValues("revoked").Inc()
		return nil, ErrUnauthorized
	}
	metrics.TokenVerifiesTotal.WithLabelValues("ok").Inc()
	return claims, nil
}
