// Package store is the PostgreSQL persistence layer for buildledger.
//
// It wraps an sqlx handle over the pgx stdlib driver and exposes one
// repository method set per aggregate (users, projects, costs, contacts,
// documents, milestones). Schema management is embedded golang-migrate
// migrations applied through Migrate.
//
// Driver errors are mapped onto the sentinel errors in internal/model:
// sql.ErrNoRows becomes model.ErrNotFound, unique violations become
// model.ErrAlreadyExists, foreign key violations become model.ErrNotFound
// for the referenced entity.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	pgmigrate "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/buildledger/internal/model"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Postgres error codes checked during error mapping.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// Config holds database connection settings.
type Config struct {
	DSN             string        `koanf:"dsn"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
}

// Store is the shared database handle. All repository methods hang off it.
type Store struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// Open connects to PostgreSQL and verifies the connection with a ping.
//
// Example:
//
//	st, err := store.Open(ctx, store.Config{DSN: dsn}, logger)
//	if err != nil {
//	    return err
//	}
//	defer st.Close()
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (*Store, error) {
	if cfg.DSN == "" {
		return nil, errors.New("database DSN is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sqlx.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// Migrate applies all pending embedded migrations.
func (s *Store) Migrate() error {
	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	driver, err := pgmigrate.WithInstance(s.db.DB, &pgmigrate.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "buildledger", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	s.logger.Info("database schema up to date")
	return nil
}

// Ping verifies database connectivity, used by the readiness endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// inTx runs fn inside a transaction, rolling back on error.
func (s *Store) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// mapErr translates driver errors into model sentinel errors.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return model.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s", model.ErrAlreadyExists, pgErr.ConstraintName)
		case pgForeignKeyViolation:
			return fmt.Errorf("%w: referenced row (%s)", model.ErrNotFound, pgErr.ConstraintName)
		}
	}
	return err
}
