package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/jrsteele09/go-session-limiter/tokens"
	"github.com/redis/go-redis/v9"
)

var _ tokens.Repo = (*TokenRepo)(nil)

type TokenRepo struct {
	client redis.UniversalClient
	key    string
}

func NewTokenRepo(client redis.UniversalClient, prefix string) *TokenRepo {
	return &TokenRepo{client: client, key: normalizePrefix(prefix) + ":tokens"}
}

func (r *TokenRepo) Get(ctx context.Context, userID string) (tokens.Entry, error) {
	raw, err := r.client.HGet(ctx, r.key, userID).Bytes()
	if errors.Is(err, redis.Nil) {
		return tokens.Entry{}, tokens.ErrTokenNotFound
	}
	if err != nil {
		return tokens.Entry{}, fmt.Errorf("[redisstore TokenRepo Get] %w", err)
	}

	var e tokens.Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return tokens.Entry{}, fmt.Errorf("[redisstore TokenRepo Get] corrupt entry for %s: %w", userID, err)
	}
	return e, nil
}

func (r *TokenRepo) Upsert(ctx context.Context, entry tokens.Entry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("[redisstore TokenRepo Upsert] %w", err)
	}
	if err := r.client.HSet(ctx, r.key, entry.UserID, raw).Err(); err != nil {
		return fmt.Errorf("[redisstore TokenRepo Upsert] %w", err)
	}
	return nil
}

func (r *TokenRepo) Delete(ctx context.Context, userID string) (bool, error) {
	n, err := r.client.HDel(ctx, r.key, userID).Result()
	if err != nil {
		return false, fmt.Errorf("[redisstore TokenRepo Delete] %w", err)
	}
	return n > 0, nil
}

func (r *TokenRepo) List(ctx context.Context) ([]tokens.Entry, error) {
	all, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, fmt.Errorf("[redisstore TokenRepo List] %w", err)
	}

	list := make([]tokens.Entry, 0, len(all))
	for userID, raw := range all {
		var e tokens.Entry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, fmt.Errorf("[redisstore TokenRepo List] corrupt entry for %s: %w", userID, err)
		}
		list = append(list, e)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].UserID < list[j].UserID })
	return list, nil
}

func (r *TokenRepo) Clear(ctx context.Context) (int, error) {
	var count *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		count = pipe.HLen(ctx, r.key)
		pipe.Del(ctx, r.key)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("[redisstore TokenRepo Clear] %w", err)
	}
	return int(count.Val()), nil
}
