package auth

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/tenantcore/internal/cache"
	"github.com/dropDatabas3/tenantcore/internal/domain/repository"
	"github.com/dropDatabas3/tenantcore/internal/secrets"
	"github.com/dropDatabas3/tenantcore/internal/security/password"
	"github.com/dropDatabas3/tenantcore/internal/session"
	"github.com/dropDatabas3/tenantcore/internal/token"
)

// ─── fakes ───

type fakeUsers struct {
	mu    sync.Mutex
	byID  map[string]*repository.User
	seq   int
	users map[string]*repository.User // por username
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: map[string]*repository.User{}, users: map[string]*repository.User{}}
}

func (f *fakeUsers) Create(ctx context.Context, in repository.CreateUserInput) (*repository.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == in.Email || u.Username == in.Username {
			return nil, repository.ErrConflict
		}
	}
	f.seq++
	u := &repository.User{
		ID:           fmt.Sprintf("user-%d", f.seq),
		Email:        in.Email,
		Username:     in.Username,
		PasswordHash: in.PasswordHash,
		CreatedAt:    time.Now(),
	}
	f.users[u.Username] = u
	f.byID[u.ID] = u
	return u, nil
}

func (f *fakeUsers) GetByUsername(ctx context.Context, username string) (*repository.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[username]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUsers) GetByID(ctx context.Context, id string) (*repository.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

type fakeSessions struct {
	mu   sync.Mutex
	rows map[string]repository.Session
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{rows: map[string]repository.Session{}}
}

func (f *fakeSessions) Create(ctx context.Context, in repository.CreateSessionInput) (*repository.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[in.ID]; ok {
		return nil, repository.ErrConflict
	}
	s := repository.Session{ID: in.ID, UserID: in.UserID, TokenHash: in.TokenHash,
		UserAgent: in.UserAgent, IPAddress: in.IPAddress, ExpiresAt: in.ExpiresAt}
	f.rows[in.ID] = s
	return &s, nil
}

func (f *fakeSessions) Get(ctx context.Context, id string) (*repository.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.rows[id]; ok {
		return &s, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeSessions) Delete(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.rows[id]
	delete(f.rows, id)
	return ok, nil
}

func (f *fakeSessions) DeleteExpired(ctx context.Context) (int, error) { return 0, nil }

type fakeMailer struct {
	mu    sync.Mutex
	sent  []string // destinatarios
	count int
}

func (f *fakeMailer) Send(to, subject, htmlBody, textBody string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count++
	f.sent = append(f.sent, to)
	return nil
}

func (f *fakeMailer) sends() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count
}

// ─── wiring ───

type fixture struct {
	svc      *Service
	cache    cache.Client
	mailer   *fakeMailer
	sessions *fakeSessions
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	c := cache.NewMemory("")
	codec := token.NewCodec("tenantcore", "tenantcore-api", "jwt_signing",
		secrets.Static{"jwt_signing": []byte("test-secret-0123456789abcdef")})
	hasher := password.NewHasher(password.Params{Memory: 8 * 1024, Time: 1, Parallelism: 1, KeyLen: 32}, 4)
	sessRepo := newFakeSessions()
	mgr := session.NewManager(sessRepo, codec, hasher, 10*time.Minute, 14*24*time.Hour)
	mailer := &fakeMailer{}
	svc := NewService(newFakeUsers(), mgr, codec, hasher,
		NewThrottle(c, 5, 10*time.Minute), NewRevoker(c), mailer)
	return &fixture{svc: svc, cache: c, mailer: mailer, sessions: sessRepo}
}

func (fx *fixture) register(t *testing.T) *session.TokenPair {
	t.Helper()
	pair, err := fx.svc.SignUp(context.Background(), SignUpInput{
		Email: "a@x.com", Username: "a", Password: "Str0ng!Pass",
		UserAgent: "ua", IPAddress: "1.2.3.4",
	})
	require.NoError(t, err)
	return pair
}

// ─── tests ───

func TestSignUpThenCheckAccess(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	pair := fx.register(t)
	require.NotEmpty(t, pair.Access)
	require.NotEmpty(t, pair.Refresh)
	require.NotEqual(t, pair.Access, pair.Refresh)

	claims, err := fx.svc.CheckAccess(ctx, pair.Access)
	require.NoError(t, err)
	require.Equal(t, pair.AccessClaims.Subject, claims.Subject)
	require.Equal(t, "a@x.com", claims.Email)
}

func TestSignUpDuplicateIsConflict(t *testing.T) {
	fx := newFixture(t)
	fx.register(t)

	_, err := fx.svc.SignUp(context.Background(), SignUpInput{
		Email: "a@x.com", Username: "other", Password: "Str0ng!Pass",
	})
	require.ErrorIs(t, err, repository.ErrConflict)
}

func TestSignInCreatesSessionAndResetsCounter(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.register(t)

	// Un fallo previo deja contador.
	_, err := fx.svc.SignIn(ctx, "a", "wrong", "1.2.3.4", "ua")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = fx.cache.Get(ctx, throttleKey("a", "1.2.3.4"))
	require.NoError(t, err)

	pair, err := fx.svc.SignIn(ctx, "a", "Str0ng!Pass", "1.2.3.4", "ua")
	require.NoError(t, err)

	// Exactamente una fila de sesión para el jti del refresh emitido.
	rec, err := fx.sessions.Get(ctx, pair.RefreshClaims.JTI())
	require.NoError(t, err)
	require.Equal(t, pair.AccessClaims.Subject, rec.UserID)

	// El contador de intentos desapareció.
	_, err = fx.cache.Get(ctx, throttleKey("a", "1.2.3.4"))
	require.True(t, cache.IsNotFound(err))
}

func TestLockoutAfterThreshold(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.register(t)

	// Cuatro fallos: credenciales inválidas, sin alertas.
	for i := 0; i < 4; i++ {
		_, err := fx.svc.SignIn(ctx, "a", "wrong", "9.9.9.9", "ua")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}
	require.Equal(t, 0, fx.mailer.sends())

	// Quinto fallo: throttled y exactamente UNA alerta.
	_, err := fx.svc.SignIn(ctx, "a", "wrong", "9.9.9.9", "ua")
	require.ErrorIs(t, err, ErrThrottled)
	require.Equal(t, 1, fx.mailer.sends())
	require.Equal(t, "a@x.com", fx.mailer.sent[0])

	// Sexto intento, incluso con la password CORRECTA: bloqueado antes de
	// tocar el hash, y sin alertas nuevas.
	_, err = fx.svc.SignIn(ctx, "a", "Str0ng!Pass", "9.9.9.9", "ua")
	require.ErrorIs(t, err, ErrThrottled)
	require.Equal(t, 1, fx.mailer.sends())
}

func TestLockoutScopedToUsernameAndIP(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.register(t)

	for i := 0; i < 5; i++ {
		_, _ = fx.svc.SignIn(ctx, "a", "wrong", "9.9.9.9", "ua")
	}
	// Misma cuenta, otra IP: no bloqueada.
	_, err := fx.svc.SignIn(ctx, "a", "Str0ng!Pass", "8.8.8.8", "ua")
	require.NoError(t, err)
}

func TestUnknownUserThrottledWithoutAlert(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := fx.svc.SignIn(ctx, "ghost", "whatever", "1.1.1.1", "ua")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}
	_, err := fx.svc.SignIn(ctx, "ghost", "whatever", "1.1.1.1", "ua")
	require.ErrorIs(t, err, ErrThrottled)
	// No hay casilla a la cual avisar.
	require.Equal(t, 0, fx.mailer.sends())
}

func TestSignOutBlocksAccessToken(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	pair := fx.register(t)

	// Antes del sign-out el access valida.
	_, err := fx.svc.CheckAccess(ctx, pair.Access)
	require.NoError(t, err)

	require.NoError(t, fx.svc.SignOut(ctx, pair.Access, pair.Refresh))

	// Firma y expiración siguen siendo válidas; la blocklist manda igual.
	_, err = fx.svc.CheckAccess(ctx, pair.Access)
	require.ErrorIs(t, err, ErrUnauthorized)

	// Y el refresh quedó muerto.
	_, err = fx.svc.Refresh(ctx, pair.Refresh, "1.2.3.4", "ua")
	require.ErrorIs(t, err, session.ErrInvalid)
}

// setFailingCache deja pasar las lecturas pero rechaza toda escritura, como
// un Redis que entró en modo read-only.
type setFailingCache struct {
	cache.Client
}

func (c setFailingCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return errCacheDown
}

func TestSignOutFailsWhenBlocklistWriteFails(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	pair := fx.register(t)

	// Solo el revoker ve el cache degradado; el resto del fixture sigue sano.
	fx.svc.revoker = NewRevoker(setFailingCache{fx.cache})

	err := fx.svc.SignOut(ctx, pair.Access, pair.Refresh)
	require.ErrorIs(t, err, errCacheDown)

	// El access quedó vivo: un 204 acá habría sido mentira.
	_, err = fx.svc.CheckAccess(ctx, pair.Access)
	require.NoError(t, err)
}

func TestRefreshRotation(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	pair := fx.register(t)

	rotated, err := fx.svc.Refresh(ctx, pair.Refresh, "1.2.3.4", "ua")
	require.NoError(t, err)
	require.NotEqual(t, pair.Refresh, rotated.Refresh)

	// Replay del viejo: Unauthorized.
	_, err = fx.svc.Refresh(ctx, pair.Refresh, "1.2.3.4", "ua")
	require.ErrorIs(t, err, session.ErrInvalid)

	// El nuevo rota bien.
	_, err = fx.svc.Refresh(ctx, rotated.Refresh, "1.2.3.4", "ua")
	require.NoError(t, err)
}

func TestCheckAccessRejectsRefreshToken(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	pair := fx.register(t)

	// Un refresh firmado y vigente NO sirve como access.
	_, err := fx.svc.CheckAccess(ctx, pair.Refresh)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestCheckAccessMalformedIsHardError(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.svc.CheckAccess(context.Background(), "not-a-jwt")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrUnauthorized)
}
