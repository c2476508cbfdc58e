package store

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Karannkx/Kxshare/internal/models"
)

var _ Store = (*RedisStore)(nil)

// expiryGrace keeps an expired record around long enough for the
// lifecycle manager to observe it, report expiry once and purge it.
// The redis TTL is only a backstop against records nobody ever resolves.
const expiryGrace = 24 * time.Hour

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(options *redis.Options) (*RedisStore, error) {
	client := redis.NewClient(options)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisStore{client: client}, nil
}

func (r *RedisStore) Save(ctx context.Context, share *models.Share) error {
	data, err := encode(share)
	if err != nil {
		return err
	}

	ttl := time.Until(share.ExpiresAt) + expiryGrace

	ok, err := r.client.SetNX(ctx, shareKey(share.ID), data, ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrDuplicateID
	}
	return nil
}

func (r *RedisStore) Get(ctx context.Context, id string) (*models.Share, error) {
	data, err := r.client.Get(ctx, shareKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return decode(data)
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	return r.client.Del(ctx, shareKey(id)).Err()
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

// Helpers

func shareKey(id string) string {
	return "share:" + id
}

func encode(share *models.Share) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(share); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decode(data []byte) (*models.Share, error) {
	var share models.Share
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&share); err != nil {
		return nil, err
	}
	return &share, nil
}
