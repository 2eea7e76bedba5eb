package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/fyrsmithlabs/buildledger/internal/model"
)

// memUserStore is an in-memory UserStore for tests.
type memUserStore struct {
	users    map[string]*model.User // by ID
	byEmail  map[string]*model.User
	sessions map[string]*model.Session
}

func newMemUserStore() *memUserStore {
	return &memUserStore{
		users:    map[string]*model.User{},
		byEmail:  map[string]*model.User{},
		sessions: map[string]*model.Session{},
	}
}

func (m *memUserStore) CreateUser(_ context.Context, u *model.User) error {
	if _, ok := m.byEmail[u.Email]; ok {
		return model.ErrAlreadyExists
	}
	m.users[u.ID] = u
	m.byEmail[u.Email] = u
	return nil
}

func (m *memUserStore) GetUser(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, model.ErrNotFound
}

func (m *memUserStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	if u, ok := m.byEmail[model.NormalizeEmail(email)]; ok {
		return u, nil
	}
	return nil, model.ErrNotFound
}

func (m *memUserStore) CreateSession(_ context.Context, sess *model.Session) error {
	m.sessions[sess.TokenDigest] = sess
	return nil
}

func (m *memUserStore) GetSession(_ context.Context, digest string) (*model.Session, error) {
	if s, ok := m.sessions[digest]; ok {
		return s, nil
	}
	return nil, model.ErrNotFound
}

func (m *memUserStore) DeleteSession(_ context.Context, digest string) error {
	delete(m.sessions, digest)
	return nil
}

func (m *memUserStore) PurgeExpiredSessions(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for digest, s := range m.sessions {
		if s.Expired(now) {
			delete(m.sessions, digest)
			n++
		}
	}
	return n, nil
}

func newTestService(store UserStore) *Service {
	return NewService(store, Config{SessionTTL: time.Hour, BcryptCost: bcrypt.MinCost}, nil)
}

func TestService_Register(t *testing.T) {
	ctx := context.Background()
	store := newMemUserStore()
	svc := newTestService(store)

	user, err := svc.Register(ctx, "Alice@Example.com", "Alice", "correct horse battery")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email, "email is normalized")
	assert.NotEmpty(t, user.ID)
	assert.NotEqual(t, "correct horse battery", user.PasswordHash)

	// Duplicate email
	_, err = svc.Register(ctx, "alice@example.com", "Alice again", "correct horse battery")
	assert.ErrorIs(t, err, model.ErrAlreadyExists)

	// Short password
	_, err = svc.Register(ctx, "bob@example.com", "Bob", "short")
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestService_LoginAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	store := newMemUserStore()
	svc := newTestService(store)

	_, err := svc.Register(ctx, "alice@example.com", "Alice", "correct horse battery")
	require.NoError(t, err)

	token, user, err := svc.Login(ctx, "alice@example.com", "correct horse battery")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.Equal(t, "alice@example.com", user.Email)

	// The cleartext token is never stored.
	_, ok := store.sessions[token]
	assert.False(t, ok)
	_, ok = store.sessions[DigestToken(token)]
	assert.True(t, ok)

	got, err := svc.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
}

func TestService_LoginFailures(t *testing.T) {
	ctx := context.Background()
	store := newMemUserStore()
	svc := newTestService(store)

	_, err := svc.Register(ctx, "alice@example.com", "Alice", "correct horse battery")
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "alice@example.com", "wrong password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, "nobody@example.com", "whatever password")
	assert.ErrorIs(t, err, ErrInvalidCredentials, "unknown email reports the same error")
}

func TestService_AuthenticateExpired(t *testing.T) {
	ctx := context.Background()
	store := newMemUserStore()
	svc := newTestService(store)

	_, err := svc.Register(ctx, "alice@example.com", "Alice", "correct horse battery")
	require.NoError(t, err)

	token, _, err := svc.Login(ctx, "alice@example.com", "correct horse battery")
	require.NoError(t, err)

	// Jump past the session TTL.
	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	_, err = svc.Authenticate(ctx, token)
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Empty(t, store.sessions, "expired sessions are purged lazily")
}

func TestService_Logout(t *testing.T) {
	ctx := context.Background()
	store := newMemUserStore()
	svc := newTestService(store)

	_, err := svc.Register(ctx, "alice@example.com", "Alice", "correct horse battery")
	require.NoError(t, err)
	token, _, err := svc.Login(ctx, "alice@example.com", "correct horse battery")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, token))
	_, err = svc.Authenticate(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestNewToken(t *testing.T) {
	token, digest, err := NewToken()
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, DigestToken(token), digest)
	assert.Len(t, digest, 64, "hex SHA-256")

	token2, _, err := NewToken()
	require.NoError(t, err)
	assert.NotEqual(t, token, token2)
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", bearerToken("Bearer abc"))
	assert.Equal(t, "abc", bearerToken("bearer abc"))
	assert.Equal(t, "", bearerToken(""))
	assert.Equal(t, "", bearerToken("Basic abc"))
	assert.Equal(t, "", bearerToken("Bearer "))
}
