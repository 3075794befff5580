package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// ScoreMirror maintains a best-effort copy of live standings in a Redis
// sorted set, one ZSET per PIN:
//
//	ZADD game:{pin}:scores {score} {playerID}
//
// The session engine stays authoritative; the mirror only exists so external
// consumers (dashboards, cross-instance readers) can poll standings without
// touching session state. Missed updates are acceptable.
type ScoreMirror struct {
	client *redis.Client
	ttl    time.Duration
}

func NewScoreMirror(client *redis.Client, ttl time.Duration) *ScoreMirror {
	return &ScoreMirror{client: client, ttl: ttl}
}

func (m *ScoreMirror) UpdateScore(ctx context.Context, pin, playerID string, score int) error {
	key := m.key(pin)
	pipe := m.client.Pipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(score), Member: playerID})
	if m.ttl > 0 {
		pipe.Expire(ctx, key, m.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Top returns up to limit player IDs with scores, highest first.
func (m *ScoreMirror) Top(ctx context.Context, pin string, limit int) ([]redis.Z, error) {
	return m.client.ZRevRangeWithScores(ctx, m.key(pin), 0, int64(limit-1)).Result()
}

// Drop removes a finished game's mirror.
func (m *ScoreMirror) Drop(ctx context.Context, pin string) error {
	return m.client.Del(ctx, m.key(pin)).Err()
}

func (m *ScoreMirror) key(pin string) string {
	return "game:" + pin + ":scores"
}
