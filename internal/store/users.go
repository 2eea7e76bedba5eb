package store

import (
	"context"
	"time"

	"github.com/fyrsmithlabs/buildledger/internal/model"
)

// CreateUser inserts a new user. Returns model.ErrAlreadyExists when the
// email is taken.
func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO users (id, email, name, password_hash, created_at, updated_at)
		VALUES (:id, :email, :name, :password_hash, :created_at, :updated_at)`, u)
	return mapErr(err)
}

// GetUser fetches a user by ID.
func (s *Store) GetUser(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	err := s.db.GetContext(ctx, &u, `SELECT * FROM users WHERE id = $1`, id)
	if err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

// GetUserByEmail fetches a user by normalized email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	err := s.db.GetContext(ctx, &u, `SELECT * FROM users WHERE email = $1`, model.NormalizeEmail(email))
	if err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

// CreateSession stores a session row keyed by token digest.
func (s *Store) CreateSession(ctx context.Context, sess *model.Session) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO sessions (token_digest, user_id, expires_at, created_at)
		VALUES (:token_digest, :user_id, :expires_at, :created_at)`, sess)
	return mapErr(err)
}

// GetSession fetches a session by token digest.
func (s *Store) GetSession(ctx context.Context, tokenDigest string) (*model.Session, error) {
	var sess model.Session
	err := s.db.GetContext(ctx, &sess, `SELECT * FROM sessions WHERE token_digest = $1`, tokenDigest)
	if err != nil {
		return nil, mapErr(err)
	}
	return &sess, nil
}

// DeleteSession removes a session (logout). Missing rows are not an error.
func (s *Store) DeleteSession(ctx context.Context, tokenDigest string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token_digest = $1`, tokenDigest)
	return mapErr(err)
}

// PurgeExpiredSessions removes sessions past their expiry and returns the
// number of rows removed. Called lazily from the auth middleware path.
func (s *Store) PurgeExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < $1`, now)
	if err != nil {
		return 0, mapErr(err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
