package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/tenantcore/internal/domain/repository"
	"github.com/dropDatabas3/tenantcore/internal/secrets"
	"github.com/dropDatabas3/tenantcore/internal/security/password"
	"github.com/dropDatabas3/tenantcore/internal/token"
)

// fakeSessionRepo implementa repository.SessionRepository en memoria.
type fakeSessionRepo struct {
	mu   sync.Mutex
	rows map[string]repository.Session
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{rows: make(map[string]repository.Session)}
}

func (f *fakeSessionRepo) Create(ctx context.Context, in repository.CreateSessionInput) (*repository.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[in.ID]; ok {
		return nil, repository.ErrConflict
	}
	s := repository.Session{
		ID: in.ID, UserID: in.UserID, TokenHash: in.TokenHash,
		UserAgent: in.UserAgent, IPAddress: in.IPAddress,
		ExpiresAt: in.ExpiresAt, CreatedAt: time.Now(),
	}
	f.rows[in.ID] = s
	return &s, nil
}

func (f *fakeSessionRepo) Get(ctx context.Context, id string) (*repository.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

func (f *fakeSessionRepo) Delete(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.rows[id]
	delete(f.rows, id)
	return ok, nil
}

func (f *fakeSessionRepo) DeleteExpired(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for id, s := range f.rows {
		if time.Now().After(s.ExpiresAt) {
			delete(f.rows, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeSessionRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

var testParams = password.Params{Memory: 8 * 1024, Time: 1, Parallelism: 1, KeyLen: 32}

func newTestManager(repo repository.SessionRepository) *Manager {
	codec := token.NewCodec("tenantcore", "tenantcore-api", "jwt_signing",
		secrets.Static{"jwt_signing": []byte("test-secret-0123456789abcdef")})
	hasher := password.NewHasher(testParams, 2)
	return NewManager(repo, codec, hasher, 10*time.Minute, 14*24*time.Hour)
}

func TestIssueCreatesOneSessionRow(t *testing.T) {
	repo := newFakeSessionRepo()
	m := newTestManager(repo)
	ctx := context.Background()

	pair, err := m.Issue(ctx, "user-1", "a@x.com", "ua", "1.2.3.4")
	require.NoError(t, err)
	require.NotEmpty(t, pair.Access)
	require.NotEmpty(t, pair.Refresh)
	require.NotEqual(t, pair.Access, pair.Refresh)

	require.Equal(t, 1, repo.count())
	rec, err := repo.Get(ctx, pair.RefreshClaims.JTI())
	require.NoError(t, err)
	require.Equal(t, "user-1", rec.UserID)
	// El token firmado nunca se guarda en claro.
	require.NotEqual(t, pair.Refresh, rec.TokenHash)
}

func TestRotateIsSingleUse(t *testing.T) {
	repo := newFakeSessionRepo()
	m := newTestManager(repo)
	ctx := context.Background()

	pair, err := m.Issue(ctx, "user-1", "a@x.com", "ua", "ip")
	require.NoError(t, err)
	oldJTI := pair.RefreshClaims.JTI()

	rotated, err := m.Rotate(ctx, pair.Refresh, "ua", "ip")
	require.NoError(t, err)
	require.Equal(t, 1, repo.count())

	// La fila vieja ya no existe; la nueva sí.
	_, err = repo.Get(ctx, oldJTI)
	require.True(t, repository.IsNotFound(err))
	_, err = repo.Get(ctx, rotated.RefreshClaims.JTI())
	require.NoError(t, err)

	// Replay del refresh viejo: rechazado siempre.
	_, err = m.Rotate(ctx, pair.Refresh, "ua", "ip")
	require.ErrorIs(t, err, ErrInvalid)
}

func TestRotateRejectsAccessToken(t *testing.T) {
	repo := newFakeSessionRepo()
	m := newTestManager(repo)
	ctx := context.Background()

	pair, err := m.Issue(ctx, "user-1", "", "ua", "ip")
	require.NoError(t, err)

	// Mismo mecanismo de firma, pero type=access: no rota.
	_, err = m.Rotate(ctx, pair.Access, "ua", "ip")
	require.ErrorIs(t, err, ErrInvalid)
}

func TestRotateExpiredSessionDeletesRow(t *testing.T) {
	repo := newFakeSessionRepo()
	m := newTestManager(repo)
	ctx := context.Background()

	pair, err := m.Issue(ctx, "user-1", "", "ua", "ip")
	require.NoError(t, err)

	// Vencer la fila sin tocar el token.
	jti := pair.RefreshClaims.JTI()
	repo.mu.Lock()
	s := repo.rows[jti]
	s.ExpiresAt = time.Now().Add(-time.Minute)
	repo.rows[jti] = s
	repo.mu.Unlock()

	_, err = m.Rotate(ctx, pair.Refresh, "ua", "ip")
	require.ErrorIs(t, err, ErrInvalid)
	require.Equal(t, 0, repo.count())
}

func TestRotateConcurrentOnlyOneWins(t *testing.T) {
	repo := newFakeSessionRepo()
	m := newTestManager(repo)
	ctx := context.Background()

	pair, err := m.Issue(ctx, "user-1", "", "ua", "ip")
	require.NoError(t, err)

	const n = 4
	var wg sync.WaitGroup
	results := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = m.Rotate(ctx, pair.Refresh, "ua", "ip")
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range results {
		if err == nil {
			wins++
		} else {
			require.ErrorIs(t, err, ErrInvalid)
		}
	}
	require.Equal(t, 1, wins, "exactly one concurrent rotation must succeed")
	require.Equal(t, 1, repo.count())
}

func TestRevokeIsIdempotent(t *testing.T) {
	repo := newFakeSessionRepo()
	m := newTestManager(repo)
	ctx := context.Background()

	pair, err := m.Issue(ctx, "user-1", "", "ua", "ip")
	require.NoError(t, err)

	require.NoError(t, m.Revoke(ctx, pair.Refresh))
	require.Equal(t, 0, repo.count())

	// Revocar dos veces no es error.
	require.NoError(t, m.Revoke(ctx, pair.Refresh))
	// Revocar basura sí: entrada corrupta es error duro.
	require.Error(t, m.Revoke(ctx, "garbage"))
}
