package redis

import (
	"context"
	"fmt"
	"time"

	"finance_api/internal/lib/tokenhash"

	"github.com/redis/go-redis/v9"
)

type Storage struct {
	client *redis.Client
}

func New(ctx context.Context, addr, pass string, db int) (*Storage, error) {
	const op = "storage.redis.New"

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     pass,
		DB:           db,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{
		client: client,
	}, nil
}

// * AcquireResetCooldown claims the reset-request slot for email (atomic SETNX).
// Returns false when a request for the same email was accepted within ttl.
func (s *Storage) AcquireResetCooldown(ctx context.Context, email string, ttl time.Duration) (bool, error) {
	const op = "storage.redis.AcquireResetCooldown"

	// keys hold a digest so addresses never appear in redis
	key := fmt.Sprintf("reset:cooldown:%s", tokenhash.Sum(email))

	ok, err := s.client.SetNX(ctx, key, time.Now().Unix(), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return ok, nil
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Storage) Close() {
	_ = s.client.Close()
}
