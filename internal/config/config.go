// Package config はPeerViewクライアントの設定を提供する。
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ストレージバックエンドの種類
const (
	StorageFile     = "file"
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageRedis    = "redis"
)

// Config はクライアント全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// API
	APIURL      string
	HTTPTimeout time.Duration
	RateLimit   float64 // 1秒あたりのリクエスト数。0以下で無効
	UploadHosts []string

	// Storage
	Storage     string
	StoragePath string
	Profile     string

	// Postgres storage
	DatabaseURL string

	// Redis storage
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Logging
	LogLevel string

	// Watch
	WatchInterval time.Duration
	MetricsAddr   string
}

// Load は環境変数からConfigを読み込む。
// カレントディレクトリに.envがあれば先に読み込む（既に設定済みの環境変数は上書きしない）。
// 必須の環境変数が未設定の場合や、選択したストレージに必要な値がない場合はエラーを返す。
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{}

	var missing []string

	cfg.APIURL = strings.TrimRight(os.Getenv("PEERVIEW_API_URL"), "/")
	if cfg.APIURL == "" {
		missing = append(missing, "PEERVIEW_API_URL")
	}

	cfg.Storage = strings.ToLower(getEnvString("PEERVIEW_STORAGE", StorageFile))
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.RedisAddr = os.Getenv("REDIS_ADDR")

	switch cfg.Storage {
	case StorageFile, StorageMemory:
	case StoragePostgres:
		if cfg.DatabaseURL == "" {
			missing = append(missing, "DATABASE_URL")
		}
	case StorageRedis:
		if cfg.RedisAddr == "" {
			missing = append(missing, "REDIS_ADDR")
		}
	default:
		return nil, fmt.Errorf("unsupported PEERVIEW_STORAGE: %q (file, memory, postgres, redis)", cfg.Storage)
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.HTTPTimeout = getEnvDuration("PEERVIEW_HTTP_TIMEOUT", 10*time.Second)
	cfg.RateLimit = getEnvFloat("PEERVIEW_RATE_LIMIT", 0)
	cfg.UploadHosts = getEnvList("PEERVIEW_UPLOAD_HOSTS")
	cfg.StoragePath = getEnvString("PEERVIEW_STORAGE_PATH", defaultStoragePath())
	cfg.Profile = getEnvString("PEERVIEW_PROFILE", "default")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.RedisDB = getEnvInt("REDIS_DB", 0)
	cfg.LogLevel = strings.ToLower(getEnvString("PEERVIEW_LOG_LEVEL", "info"))
	cfg.WatchInterval = getEnvDuration("PEERVIEW_WATCH_INTERVAL", time.Minute)
	cfg.MetricsAddr = getEnvString("PEERVIEW_METRICS_ADDR", "")

	return cfg, nil
}

// defaultStoragePath はファイルストレージの既定の保存先（~/.peerview/storage.json）を返す。
func defaultStoragePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".peerview", "storage.json")
	}
	return filepath.Join(home, ".peerview", "storage.json")
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

// getEnvList はカンマ区切りの値を空要素を除いて返す。
func getEnvList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
