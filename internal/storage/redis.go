package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig はRedisストアの接続設定。
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient はタイムアウトを短めに設定したRedisクライアントを生成する。
func NewRedisClient(cfg RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

// RedisStore はプロファイルごとに1つのハッシュへ保存するStore実装。
// SetManyはHSET1回で複数フィールドを書き込むため、ペアの書き込みがアトミックになる。
type RedisStore struct {
	rdb *redis.Client
	key string
}

// NewRedisStore はRedisStoreを生成する。
func NewRedisStore(rdb *redis.Client, profile string) *RedisStore {
	return &RedisStore{
		rdb: rdb,
		key: "peerview:storage:" + profile,
	}
}

// Ping はRedisへの疎通を確認する。
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Get はキーの値を取得する。
func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.rdb.HGet(ctx, s.key, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get storage entry: %w", err)
	}
	return v, true, nil
}

// SetMany は複数エントリをまとめて書き込む。
func (s *RedisStore) SetMany(ctx context.Context, entries map[string]string) error {
	if len(entries) == 0 {
		return nil
	}
	values := make(map[string]any, len(entries))
	for k, v := range entries {
		values[k] = v
	}
	if err := s.rdb.HSet(ctx, s.key, values).Err(); err != nil {
		return fmt.Errorf("failed to set storage entries: %w", err)
	}
	return nil
}

// Delete は指定キーを削除する。
func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.rdb.HDel(ctx, s.key, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete storage entries: %w", err)
	}
	return nil
}

var _ Store = (*RedisStore)(nil)
