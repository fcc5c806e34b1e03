// Package postgres implements the store gateway on PostgreSQL. Journey
// transactions serialize on a transaction-scoped advisory lock keyed by the
// journey id.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/store"
)

//go:embed schema.sql
var schemaSQL string

// Config holds the connection settings.
type Config struct {
	DSN      string `json:"dsn"`
	MaxConns int32  `json:"max_conns"`
	// Migrate applies the embedded schema on open.
	Migrate bool `json:"migrate"`
}

// Store is a store.Gateway backed by a pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

var _ store.Gateway = (*Store)(nil)

// Open connects to the database and optionally applies the schema.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	s := &Store{pool: pool}
	if cfg.Migrate {
		if err := s.Migrate(ctx); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return s, nil
}

// Migrate creates missing tables and indexes.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// InJourney implements store.Gateway.
func (s *Store) InJourney(ctx context.Context, journeyID string, fn func(store.Tx) error) error {
	return s.inTx(ctx, pgx.TxOptions{}, func(t pgx.Tx) error {
		if _, err := t.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, "journey:"+journeyID); err != nil {
			return fmt.Errorf("lock journey %s: %w", journeyID, err)
		}
		return fn(&tx{q: t})
	})
}

// View implements store.Gateway.
func (s *Store) View(ctx context.Context, fn func(store.Tx) error) error {
	return s.inTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly}, func(t pgx.Tx) error {
		return fn(&tx{q: t})
	})
}

func (s *Store) inTx(ctx context.Context, opts pgx.TxOptions, fn func(pgx.Tx) error) (err error) {
	t, err := s.pool.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = t.Rollback(context.WithoutCancel(ctx))
		}
	}()
	if err = fn(t); err != nil {
		return err
	}
	if err = t.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Close implements store.Gateway.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type tx struct {
	q querier
}

func isNoRows(err error) bool { return errors.Is(err, pgx.ErrNoRows) }
