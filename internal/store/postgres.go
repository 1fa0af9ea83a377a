package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrUnexpectedDatabase = errors.New("数据库异常")

// PostgresStore 把每个键存成 game_records 表中的一行
// 表结构由 migrations 包创建
type PostgresStore struct {
	pool *pgxpool.Pool
	ttl  time.Duration
}

func NewPostgresStore(ctx context.Context, connString string, ttl time.Duration) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnexpectedDatabase, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: %w", ErrUnexpectedDatabase, err)
	}

	return &PostgresStore{pool: pool, ttl: ttl}, nil
}

func (ps *PostgresStore) Close() {
	ps.pool.Close()
}

func wrapDBError(err error) error {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return ErrNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrUnexpectedDatabase, err)
	}
}

func (ps *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	row := ps.pool.QueryRow(ctx,
		`SELECT value FROM game_records WHERE key = $1 AND (expires_at IS NULL OR expires_at > now())`,
		key,
	)

	var value []byte
	if err := row.Scan(&value); err != nil {
		return nil, wrapDBError(err)
	}

	return value, nil
}

func (ps *PostgresStore) Set(ctx context.Context, key string, value []byte) error {
	_, err := ps.pool.Exec(ctx,
		`INSERT INTO game_records (key, value, updated_at, expires_at)
		VALUES ($1, $2, now(), $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now(), expires_at = EXCLUDED.expires_at`,
		key, value, ps.expiresAt(),
	)
	if err != nil {
		return wrapDBError(err)
	}

	return nil
}

func (ps *PostgresStore) CompareAndSwap(ctx context.Context, key string, old, value []byte) error {
	var (
		tag pgconn.CommandTag
		err error
	)

	if old == nil {
		// 已过期的行视为不存在，允许覆盖
		tag, err = ps.pool.Exec(ctx,
			`INSERT INTO game_records (key, value, updated_at, expires_at)
			VALUES ($1, $2, now(), $3)
			ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now(), expires_at = EXCLUDED.expires_at
			WHERE game_records.expires_at IS NOT NULL AND game_records.expires_at <= now()`,
			key, value, ps.expiresAt(),
		)
	} else {
		tag, err = ps.pool.Exec(ctx,
			`UPDATE game_records SET value = $2, updated_at = now(), expires_at = $3
			WHERE key = $1 AND value = $4 AND (expires_at IS NULL OR expires_at > now())`,
			key, value, ps.expiresAt(), old,
		)
	}

	if err != nil {
		var pgErr *pgconn.PgError
		// 23505: unique_violation，并发插入同一个键
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}

		return wrapDBError(err)
	}

	if tag.RowsAffected() == 0 {
		return ErrConflict
	}

	return nil
}

// Cleanup 删除已过期的行，返回删除的行数
func (ps *PostgresStore) Cleanup(ctx context.Context) (int64, error) {
	tag, err := ps.pool.Exec(ctx, `DELETE FROM game_records WHERE expires_at IS NOT NULL AND expires_at <= now()`)
	if err != nil {
		return 0, wrapDBError(err)
	}

	return tag.RowsAffected(), nil
}

func (ps *PostgresStore) expiresAt() *time.Time {
	if ps.ttl <= 0 {
		return nil
	}

	t := time.Now().Add(ps.ttl)
	return &t
}
