// Package auth provides registration, password login, and bearer-token
// sessions for buildledger.
//
// Tokens are opaque 256-bit random values. Only their SHA-256 digest is
// stored; the cleartext token exists once, in the login response. The same
// scheme is reused for invite tokens by the project service.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/fyrsmithlabs/buildledger/internal/logging"
	"github.com/fyrsmithlabs/buildledger/internal/model"
)

// Authentication errors.
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrSessionExpired     = errors.New("session expired")
	ErrPasswordTooShort   = errors.New("password must be at least 10 characters")
	ErrPasswordTooLong    = errors.New("password exceeds 72 bytes")
)

// MinPasswordLength is the minimum accepted password length.
const MinPasswordLength = 10

// maxPasswordBytes is bcrypt's input limit.
const maxPasswordBytes = 72

// UserStore is the persistence surface the auth service needs.
type UserStore interface {
	CreateUser(ctx context.Context, u *model.User) error
	GetUser(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	CreateSession(ctx context.Context, sess *model.Session) error
	GetSession(ctx context.Context, tokenDigest string) (*model.Session, error)
	DeleteSession(ctx context.Context, tokenDigest string) error
	PurgeExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// Config holds auth service settings.
type Config struct {
	SessionTTL time.Duration
	BcryptCost int
}

// Service implements registration, login, and session resolution.
type Service struct {
	store  UserStore
	cfg    Config
	logger *logging.Logger
	now    func() time.Time
}

// NewService creates an auth service. A zero BcryptCost falls back to
// bcrypt.DefaultCost.
func NewService(store UserStore, cfg Config, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = 30 * 24 * time.Hour
	}
	return &Service{store: store, cfg: cfg, logger: logger, now: time.Now}
}

// Register creates a new user account.
func (s *Service) Register(ctx context.Context, email, name, password string) (*model.User, error) {
	if err := checkPassword(password); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrValidation, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	user := &model.User{
		ID:           uuid.New().String(),
		Email:        model.NormalizeEmail(email),
		Name:         name,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info(ctx, "user registered", zap.String("user_id", user.ID))
	return user, nil
}

// Login verifies credentials and creates a session. Returns the cleartext
// bearer token; it is not recoverable afterwards.
func (s *Service) Login(ctx context.Context, email, password string) (token string, user *model.User, err error) {
	user, err = s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			// Equalize timing between unknown email and wrong password.
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("lookup user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, digest, err := NewToken()
	if err != nil {
		return "", nil, fmt.Errorf("generate token: %w", err)
	}

	now := s.now().UTC()
	sess := &model.Session{
		TokenDigest: digest,
		UserID:      user.ID,
		ExpiresAt:   now.Add(s.cfg.SessionTTL),
		CreatedAt:   now,
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return "", nil, fmt.Errorf("create session: %w", err)
	}

	return token, user, nil
}

// Logout deletes the session for the given token. Unknown tokens are a
// no-op.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.store.DeleteSession(ctx, DigestToken(token))
}

// Authenticate resolves a bearer token to its user. Expired sessions are
// rejected and trigger a lazy purge of all expired rows.
func (s *Service) Authenticate(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, ErrInvalidCredentials
	}

	sess, err := s.store.GetSession(ctx, DigestToken(token))
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup session: %w", err)
	}

	now := s.now().UTC()
	if sess.Expired(now) {
		if n, err := s.store.PurgeExpiredSessions(ctx, now); err == nil && n > 0 {
			s.logger.Debug(ctx, "purged expired sessions")
		}
		return nil, ErrSessionExpired
	}

	user, err := s.store.GetUser(ctx, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("lookup session user: %w", err)
	}
	return user, nil
}

// NewToken generates an opaque bearer token and its storage digest.
func NewToken() (token, digest string, err error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", "", err
	}
	token = base64.RawURLEncoding.EncodeToString(raw)
	return token, DigestToken(token), nil
}

// DigestToken returns the hex SHA-256 digest of a token, the only form
// ever written to the database.
func DigestToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func checkPassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if len(password) > maxPasswordBytes {
		return ErrPasswordTooLong
	}
	return nil
}

// dummyHash is compared against when the email is unknown, so login timing
// does not reveal account existence.
var dummyHash = func() []byte {
	h, _ := bcrypt.GenerateFromPassword([]byte("buildledger-timing-pad"), bcrypt.MinCost)
	return h
}()
