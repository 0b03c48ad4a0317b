// Package token firma y verifica los claim sets de sesión (access y refresh).
package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"github.com/dropDatabas3/tenantcore/internal/secrets"
)

// Tipos de token. Ambos usan el mismo mecanismo de firma; el claim "type"
// es lo único que los distingue.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// Claims es el contrato de claims de un token de sesión.
type Claims struct {
	Email string `json:"email,omitempty"`
	Type  string `json:"type"`
	jwtv5.RegisteredClaims
}

// JTI devuelve el identificador único del token.
func (c *Claims) JTI() string { return c.ID }

// Codec firma/verifica tokens HS256 con un secreto simétrico resuelto por
// nombre en cada llamada (nunca cacheado process-wide).
type Codec struct {
	issuer     string
	audience   string
	secretName string
	source     secrets.Source
}

// NewCodec crea un Codec con issuer/audience fijos del servicio.
func NewCodec(issuer, audience, secretName string, src secrets.Source) *Codec {
	return &Codec{
		issuer:     issuer,
		audience:   audience,
		secretName: secretName,
		source:     src,
	}
}

// Sign emite un token firmado del tipo dado, con jti, sub y email provistos.
// Fallo al resolver el secreto o al firmar es error duro para el caller.
func (c *Codec) Sign(ctx context.Context, typ, jti, sub, email string, ttl time.Duration) (string, *Claims, error) {
	secret, err := c.source.Resolve(ctx, c.secretName)
	if err != nil {
		return "", nil, fmt.Errorf("token: resolve secret: %w", err)
	}

	now := time.Now().UTC()
	claims := &Claims{
		Email: email,
		Type:  typ,
		RegisteredClaims: jwtv5.RegisteredClaims{
			ID:        jti,
			Subject:   sub,
			Issuer:    c.issuer,
			Audience:  jwtv5.ClaimStrings{c.audience},
			IssuedAt:  jwtv5.NewNumericDate(now),
			NotBefore: jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(now.Add(ttl)),
		},
	}

	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	signed, err := tk.SignedString(secret)
	if err != nil {
		return "", nil, fmt.Errorf("token: sign: %w", err)
	}
	return signed, claims, nil
}

// Verify valida un token y clasifica el resultado en tres salidas:
//
//   - (claims, true, nil): firma y claims OK.
//   - (nil, false, nil): token bien formado pero expirado o con iss/aud/nbf
//     inválidos. Negativo "blando": el caller responde no-autenticado, no 500.
//   - (nil, false, err): entrada corrupta, firma inválida o fallo resolviendo
//     el secreto. Error duro, visible para operaciones.
//
// Confundir las dos últimas clases produce 500s por expiración normal o
// 200s sobre tokens corruptos; por eso la distinción vive acá y no en cada
// caller.
func (c *Codec) Verify(ctx context.Context, raw string) (*Claims, bool, error) {
	keyfunc := func(t *jwtv5.Token) (any, error) {
		secret, err := c.source.Resolve(ctx, c.secretName)
		if err != nil {
			return nil, err
		}
		return secret, nil
	}

	claims := &Claims{}
	_, err := jwtv5.ParseWithClaims(raw, claims, keyfunc,
		jwtv5.WithValidMethods([]string{"HS256"}),
		jwtv5.WithIssuer(c.issuer),
		jwtv5.WithAudience(c.audience),
		jwtv5.WithIssuedAt(),
	)
	if err == nil {
		return claims, true, nil
	}

	if isSoftVerifyError(err) {
		return nil, false, nil
	}
	return nil, false, fmt.Errorf("token: verify: %w", err)
}

// isSoftVerifyError separa el churn esperado (expiración, claims que no
// matchean) de los problemas reales (malformado, firma rota, secreto
// irresoluble).
func isSoftVerifyError(err error) bool {
	switch {
	case errors.Is(err, jwtv5.ErrTokenExpired),
		errors.Is(err, jwtv5.ErrTokenNotValidYet),
		errors.Is(err, jwtv5.ErrTokenUsedBeforeIssued),
		errors.Is(err, jwtv5.ErrTokenInvalidIssuer),
		errors.Is(err, jwtv5.ErrTokenInvalidAudience),
		errors.Is(err, jwtv5.ErrTokenInvalidSubject),
		errors.Is(err, jwtv5.ErrTokenInvalidId),
		errors.Is(err, jwtv5.ErrTokenRequiredClaimMissing):
		return true
	}
	return false
}
