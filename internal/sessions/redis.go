package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"image-translator-backend/internal/models"
)

const (
	keyPrefix       = "canvas_session:"
	maxWatchRetries = 10
)

// RedisBackend stores each session as a JSON value with a sliding TTL.
// Mutations run in a WATCH transaction and retry on concurrent writes.
type RedisBackend struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisBackend(client *redis.Client, ttl time.Duration) *RedisBackend {
	return &RedisBackend{client: client, ttl: ttl}
}

func (r *RedisBackend) Insert(ctx context.Context, s *models.CanvasSession) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	ok, err := r.client.SetNX(ctx, keyPrefix+s.ID, data, r.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: session %s already exists", models.ErrConflict, s.ID)
	}
	return nil
}

func (r *RedisBackend) Load(ctx context.Context, id string) (*models.CanvasSession, error) {
	data, err := r.client.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: session %s", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return decode(data)
}

func (r *RedisBackend) Mutate(ctx context.Context, id string, fn func(*models.CanvasSession) error) (*models.CanvasSession, error) {
	key := keyPrefix + id
	var out *models.CanvasSession

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("%w: session %s", models.ErrNotFound, id)
		}
		if err != nil {
			return err
		}
		sess, err := decode(data)
		if err != nil {
			return err
		}
		if err := fn(sess); err != nil {
			return err
		}
		next, err := json.Marshal(sess)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, r.ttl)
			return nil
		})
		if err == nil {
			out = sess
		}
		return err
	}

	for i := 0; i < maxWatchRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: session %s is being modified concurrently", models.ErrConflict, id)
}

func decode(data []byte) (*models.CanvasSession, error) {
	var s models.CanvasSession
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	if s.UndoPointer < 0 || s.UndoPointer > len(s.LayerStack) {
		return nil, fmt.Errorf("session %s has undo pointer out of range", s.ID)
	}
	return &s, nil
}
