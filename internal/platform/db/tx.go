package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	readCommitted = pgx.TxOptions{IsoLevel: pgx.ReadCommitted}
	snapshotRead  = pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}
)

// WithTx runs fn in a READ COMMITTED transaction that commits only when fn
// returns nil. Writers on the same row serialise through SELECT ... FOR UPDATE.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	return pgx.BeginTxFunc(ctx, pool, readCommitted, fn)
}

// ReadSnapshot runs fn in a read-only REPEATABLE READ transaction so multi
// statement reads observe a single snapshot.
func ReadSnapshot(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	return pgx.BeginTxFunc(ctx, pool, snapshotRead, fn)
}
