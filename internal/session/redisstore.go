package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultSessionTTL = 24 * time.Hour
	updateRetries     = 64
	retryBaseDelay    = time.Millisecond
	retryMaxDelay     = 50 * time.Millisecond
)

type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// OpenRedis connects to redisURL (redis:// or rediss://) and verifies the
// connection with a ping.
func OpenRedis(ctx context.Context, redisURL string, ttl time.Duration) (*RedisStore, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("redis url is required")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisStore(rdb, ttl), nil
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) keySession(id string) string { return "boardwatch:session:" + strings.TrimSpace(id) }

func (s *RedisStore) Create(ctx context.Context, p *Payload) error {
	if p == nil {
		return nil
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	ok, err := s.rdb.SetNX(ctx, s.keySession(p.SessionUUID), raw, s.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrSessionExists
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, id string) (*Payload, error) {
	raw, err := s.rdb.Get(ctx, s.keySession(id)).Bytes()
	if err == redis.Nil {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodePayload(raw)
}

// Update applies fn inside a WATCH transaction on the session key and retries
// with a jittered backoff when another writer got there first.
func (s *RedisStore) Update(ctx context.Context, id string, fn func(p *Payload) error) (*Payload, error) {
	key := s.keySession(id)
	var result *Payload
	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return ErrSessionNotFound
		}
		if err != nil {
			return err
		}
		cur, err := decodePayload(raw)
		if err != nil {
			return err
		}
		if err := fn(cur); err != nil {
			return err
		}
		next, err := json.Marshal(cur)
		if err != nil {
			return fmt.Errorf("marshal session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, s.ttl)
			return nil
		})
		if err == nil {
			result = cur
		}
		return err
	}

	for attempt := 0; attempt < updateRetries; attempt++ {
		err := s.rdb.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			if err := sleepCtx(ctx, retryDelay(attempt)); err != nil {
				return nil, err
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		return result, nil
	}
	return nil, fmt.Errorf("update session %s: %w", id, redis.TxFailedErr)
}

func (s *RedisStore) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}

// retryDelay spreads conflicting writers apart: a random wait in
// [0, attempt+1) ms, capped at retryMaxDelay.
func retryDelay(attempt int) time.Duration {
	limit := time.Duration(attempt+1) * retryBaseDelay
	if limit > retryMaxDelay {
		limit = retryMaxDelay
	}
	return rand.N(limit) + 100*time.Microsecond
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func decodePayload(raw []byte) (*Payload, error) {
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if p.State == nil || p.State.Board == nil {
		return nil, fmt.Errorf("decode session: missing board state")
	}
	return &p, nil
}
