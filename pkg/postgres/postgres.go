// Package postgres opens PostgreSQL connection pools and applies schema migrations.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type poolSettings struct {
	connMaxIdleTime time.Duration
	connMaxLifetime time.Duration
	maxIdleConns    int
	maxOpenConns    int
	connectTimeout  time.Duration
}

var defaultPoolSettings = poolSettings{
	connMaxIdleTime: 5 * time.Minute,
	connMaxLifetime: 30 * time.Minute,
	maxIdleConns:    5,
	maxOpenConns:    25,
	connectTimeout:  5 * time.Second,
}

type Option func(*poolSettings)

func WithConnMaxIdleTime(d time.Duration) Option {
	return func(s *poolSettings) {
		s.connMaxIdleTime = d
	}
}

func WithConnMaxLifetime(d time.Duration) Option {
	return func(s *poolSettings) {
		s.connMaxLifetime = d
	}
}

func WithMaxIdleConns(n int) Option {
	return func(s *poolSettings) {
		s.maxIdleConns = n
	}
}

func WithMaxOpenConns(n int) Option {
	return func(s *poolSettings) {
		s.maxOpenConns = n
	}
}

// WithConnectTimeout bounds the initial connection and ping.
func WithConnectTimeout(d time.Duration) Option {
	return func(s *poolSettings) {
		if d > 0 {
			s.connectTimeout = d
		}
	}
}

// New connects to the database through the pgx driver and configures the pool.
func New(ctx context.Context, dsn string, opts ...Option) (*sqlx.DB, error) {
	const op = "postgres.New"

	s := defaultPoolSettings
	for _, opt := range opts {
		opt(&s)
	}

	ctx, cancel := context.WithTimeout(ctx, s.connectTimeout)
	defer cancel()

	db, err := sqlx.ConnectContext(ctx, "pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to connect to database: %w", op, err)
	}

	db.SetConnMaxIdleTime(s.connMaxIdleTime)
	db.SetConnMaxLifetime(s.connMaxLifetime)
	db.SetMaxIdleConns(s.maxIdleConns)
	db.SetMaxOpenConns(s.maxOpenConns)

	return db, nil
}
