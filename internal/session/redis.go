package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"mailpilot/config"
)

// RedisSnapshotter stores one JSON snapshot per session with a TTL, so a
// restarted process can resume dialogue state.
type RedisSnapshotter struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisSnapshotter(cfg config.RedisConfig, ttl time.Duration) *RedisSnapshotter {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &RedisSnapshotter{rdb: rdb, ttl: ttl}
}

func sessionKey(userID string) string {
	return fmt.Sprintf("session:%s", userID)
}

func (r *RedisSnapshotter) Load(ctx context.Context, userID string) (*Session, error) {
	data, err := r.rdb.Get(ctx, sessionKey(userID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decode session snapshot: %w", err)
	}
	return &sess, nil
}

func (r *RedisSnapshotter) Save(ctx context.Context, sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, sessionKey(sess.UserID), data, r.ttl).Err()
}

func (r *RedisSnapshotter) Delete(ctx context.Context, userID string) error {
	return r.rdb.Del(ctx, sessionKey(userID)).Err()
}
