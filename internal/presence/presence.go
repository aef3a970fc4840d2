// Package presence mirrors connection liveness into Redis so other services
// (and the REST surface) can answer "is this user online" without touching
// the hub.
package presence

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "presence:"

// Connections are re-registered on reconnect; the TTL sweeps up entries left
// behind by a crashed instance.
const ttl = 24 * time.Hour

type Store struct {
	cli *redis.Client
}

func NewStore(cli *redis.Client) *Store {
	return &Store{cli: cli}
}

func (s *Store) SetOnline(ctx context.Context, userID string) error {
	return s.cli.Set(ctx, keyPrefix+userID, "1", ttl).Err()
}

func (s *Store) SetOffline(ctx context.Context, userID string) error {
	return s.cli.Del(ctx, keyPrefix+userID).Err()
}

func (s *Store) IsOnline(ctx context.Context, userID string) (bool, error) {
	v, err := s.cli.Get(ctx, keyPrefix+userID).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return v == "1", nil
}
