package pgstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jrsteele09/go-session-limiter/tokens"
)

var _ tokens.Repo = (*TokenRepo)(nil)

type TokenRepo struct {
	pool  *pgxpool.Pool
	table string
}

func NewTokenRepo(pool *pgxpool.Pool, opts ...Option) *TokenRepo {
	return &TokenRepo{pool: pool, table: buildOptions(opts).table("session_tokens")}
}

func (r *TokenRepo) Get(ctx context.Context, userID string) (tokens.Entry, error) {
	var e tokens.Entry
	err := r.pool.QueryRow(ctx,
		`SELECT user_id, token, issued_at FROM `+r.table+` WHERE user_id = $1`, userID,
	).Scan(&e.UserID, &e.Token, &e.IssuedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return tokens.Entry{}, tokens.ErrTokenNotFound
	}
	if err != nil {
		return tokens.Entry{}, fmt.Errorf("[pgstore TokenRepo Get] %w", err)
	}
	e.IssuedAt = e.IssuedAt.UTC()
	return e, nil
}

func (r *TokenRepo) Upsert(ctx context.Context, entry tokens.Entry) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO `+r.table+` (user_id, token, issued_at) VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET token = EXCLUDED.token, issued_at = EXCLUDED.issued_at
	`, entry.UserID, string(entry.Token), entry.IssuedAt)
	if err != nil {
		return fmt.Errorf("[pgstore TokenRepo Upsert] %w", err)
	}
	return nil
}

func (r *TokenRepo) Delete(ctx context.Context, userID string) (bool, error) {
	ct, err := r.pool.Exec(ctx, `DELETE FROM `+r.table+` WHERE user_id = $1`, userID)
	if err != nil {
		return false, fmt.Errorf("[pgstore TokenRepo Delete] %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

func (r *TokenRepo) List(ctx context.Context) ([]tokens.Entry, error) {
	// COLLATE "C" keeps the order byte-wise regardless of the database locale.
	rows, err := r.pool.Query(ctx,
		`SELECT user_id, token, issued_at FROM `+r.table+` ORDER BY user_id COLLATE "C"`)
	if err != nil {
		return nil, fmt.Errorf("[pgstore TokenRepo List] %w", err)
	}
	defer rows.Close()

	list := make([]tokens.Entry, 0)
	for rows.Next() {
		var e tokens.Entry
		if err := rows.Scan(&e.UserID, &e.Token, &e.IssuedAt); err != nil {
			return nil, fmt.Errorf("[pgstore TokenRepo List] %w", err)
		}
		e.IssuedAt = e.IssuedAt.UTC()
		list = append(list, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("[pgstore TokenRepo List] %w", err)
	}
	return list, nil
}

func (r *TokenRepo) Clear(ctx context.Context) (int, error) {
	ct, err := r.pool.Exec(ctx, `DELETE FROM `+r.table)
	if err != nil {
		return 0, fmt.Errorf("[pgstore TokenRepo Clear] %w", err)
	}
	return int(ct.RowsAffected()), nil
}
