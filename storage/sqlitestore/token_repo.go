package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jrsteele09/go-session-limiter/tokens"
)

var _ tokens.Repo = (*TokenRepo)(nil)

type TokenRepo struct {
	db *sql.DB
}

func NewTokenRepo(db *sql.DB) *TokenRepo {
	return &TokenRepo{db: db}
}

func (r *TokenRepo) Get(ctx context.Context, userID string) (tokens.Entry, error) {
	var (
		e      tokens.Entry
		issued int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, token, issued_at FROM session_tokens WHERE user_id = ?`, userID,
	).Scan(&e.UserID, &e.Token, &issued)
	if errors.Is(err, sql.ErrNoRows) {
		return tokens.Entry{}, tokens.ErrTokenNotFound
	}
	if err != nil {
		return tokens.Entry{}, fmt.Errorf("[sqlitestore TokenRepo Get] %w", err)
	}
	e.IssuedAt = time.Unix(0, issued).UTC()
	return e, nil
}

func (r *TokenRepo) Upsert(ctx context.Context, entry tokens.Entry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO session_tokens (user_id, token, issued_at) VALUES (?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET token = excluded.token, issued_at = excluded.issued_at
	`, entry.UserID, string(entry.Token), entry.IssuedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("[sqlitestore TokenRepo Upsert] %w", err)
	}
	return nil
}

func (r *TokenRepo) Delete(ctx context.Context, userID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM session_tokens WHERE user_id = ?`, userID)
	if err != nil {
		return false, fmt.Errorf("[sqlitestore TokenRepo Delete] %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("[sqlitestore TokenRepo Delete] %w", err)
	}
	return n > 0, nil
}

func (r *TokenRepo) List(ctx context.Context) ([]tokens.Entry, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT user_id, token, issued_at FROM session_tokens ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("[sqlitestore TokenRepo List] %w", err)
	}
	defer rows.Close()

	list := make([]tokens.Entry, 0)
	for rows.Next() {
		var (
			e      tokens.Entry
			issued int64
		)
		if err := rows.Scan(&e.UserID, &e.Token, &issued); err != nil {
			return nil, fmt.Errorf("[sqlitestore TokenRepo List] %w", err)
		}
		e.IssuedAt = time.Unix(0, issued).UTC()
		list = append(list, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("[sqlitestore TokenRepo List] %w", err)
	}
	return list, nil
}

func (r *TokenRepo) Clear(ctx context.Context) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM session_tokens`)
	if err != nil {
		return 0, fmt.Errorf("[sqlitestore TokenRepo Clear] %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("[sqlitestore TokenRepo Clear] %w", err)
	}
	return int(n), nil
}
