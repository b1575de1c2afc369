package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// clearEnv はテストに影響する環境変数を空にする。
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PEERVIEW_API_URL", "PEERVIEW_HTTP_TIMEOUT", "PEERVIEW_RATE_LIMIT", "PEERVIEW_UPLOAD_HOSTS",
		"PEERVIEW_STORAGE", "PEERVIEW_STORAGE_PATH", "PEERVIEW_PROFILE",
		"DATABASE_URL", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
		"PEERVIEW_LOG_LEVEL", "PEERVIEW_WATCH_INTERVAL", "PEERVIEW_METRICS_ADDR",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_RequiredVarSet_ReturnsConfig(t *testing.T) {
	clearEnv(t)
	t.Setenv("PEERVIEW_API_URL", "https://peerview.example.com/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.APIURL != "https://peerview.example.com" {
		t.Errorf("APIURL = %q, want %q", cfg.APIURL, "https://peerview.example.com")
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("PEERVIEW_API_URL", "http://localhost:8000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.HTTPTimeout != 10*time.Second {
		t.Errorf("HTTPTimeout = %v, want %v", cfg.HTTPTimeout, 10*time.Second)
	}
	if cfg.RateLimit != 0 {
		t.Errorf("RateLimit = %v, want 0", cfg.RateLimit)
	}
	if len(cfg.UploadHosts) != 0 {
		t.Errorf("UploadHosts = %v, want empty", cfg.UploadHosts)
	}
	if cfg.Storage != StorageFile {
		t.Errorf("Storage = %q, want %q", cfg.Storage, StorageFile)
	}
	if !strings.HasSuffix(cfg.StoragePath, filepath.Join(".peerview", "storage.json")) {
		t.Errorf("StoragePath = %q, want suffix .peerview/storage.json", cfg.StoragePath)
	}
	if cfg.Profile != "default" {
		t.Errorf("Profile = %q, want default", cfg.Profile)
	}
	if cfg.RedisDB != 0 {
		t.Errorf("RedisDB = %d, want 0", cfg.RedisDB)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.WatchInterval != time.Minute {
		t.Errorf("WatchInterval = %v, want %v", cfg.WatchInterval, time.Minute)
	}
	if cfg.MetricsAddr != "" {
		t.Errorf("MetricsAddr = %q, want empty", cfg.MetricsAddr)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("PEERVIEW_API_URL", "http://localhost:8000")
	t.Setenv("PEERVIEW_HTTP_TIMEOUT", "30s")
	t.Setenv("PEERVIEW_RATE_LIMIT", "2.5")
	t.Setenv("PEERVIEW_UPLOAD_HOSTS", "blob.core.windows.net, ,cdn.example.com")
	t.Setenv("PEERVIEW_STORAGE", "Redis")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_PASSWORD", "secret")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("PEERVIEW_PROFILE", "teacher-account")
	t.Setenv("PEERVIEW_LOG_LEVEL", "DEBUG")
	t.Setenv("PEERVIEW_WATCH_INTERVAL", "15s")
	t.Setenv("PEERVIEW_METRICS_ADDR", ":9091")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.HTTPTimeout != 30*time.Second {
		t.Errorf("HTTPTimeout = %v, want 30s", cfg.HTTPTimeout)
	}
	if cfg.RateLimit != 2.5 {
		t.Errorf("RateLimit = %v, want 2.5", cfg.RateLimit)
	}
	if len(cfg.UploadHosts) != 2 || cfg.UploadHosts[0] != "blob.core.windows.net" || cfg.UploadHosts[1] != "cdn.example.com" {
		t.Errorf("UploadHosts = %v", cfg.UploadHosts)
	}
	if cfg.Storage != StorageRedis {
		t.Errorf("Storage = %q, want redis", cfg.Storage)
	}
	if cfg.RedisAddr != "localhost:6379" || cfg.RedisPassword != "secret" || cfg.RedisDB != 3 {
		t.Errorf("Redis = %q %q %d", cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	}
	if cfg.Profile != "teacher-account" {
		t.Errorf("Profile = %q", cfg.Profile)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.WatchInterval != 15*time.Second {
		t.Errorf("WatchInterval = %v", cfg.WatchInterval)
	}
	if cfg.MetricsAddr != ":9091" {
		t.Errorf("MetricsAddr = %q", cfg.MetricsAddr)
	}
}

func TestLoad_MissingAPIURL_ReturnsError(t *testing.T) {
	clearEnv(t)

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing required env vars, got nil")
	}
	if !strings.Contains(err.Error(), "PEERVIEW_API_URL") {
		t.Errorf("error should mention PEERVIEW_API_URL: %v", err)
	}
}

func TestLoad_BackendRequirements(t *testing.T) {
	tests := []struct {
		storage string
		wantVar string
	}{
		{StoragePostgres, "DATABASE_URL"},
		{StorageRedis, "REDIS_ADDR"},
	}
	for _, tt := range tests {
		t.Run(tt.storage, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("PEERVIEW_API_URL", "http://localhost:8000")
			t.Setenv("PEERVIEW_STORAGE", tt.storage)

			_, err := Load()
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantVar) {
				t.Errorf("error should mention %s: %v", tt.wantVar, err)
			}
		})
	}
}

func TestLoad_UnknownStorage_ReturnsError(t *testing.T) {
	clearEnv(t)
	t.Setenv("PEERVIEW_API_URL", "http://localhost:8000")
	t.Setenv("PEERVIEW_STORAGE", "sqlite")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unsupported storage, got nil")
	}
}

func TestLoad_InvalidValuesFallBackToDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("PEERVIEW_API_URL", "http://localhost:8000")
	t.Setenv("PEERVIEW_HTTP_TIMEOUT", "soon")
	t.Setenv("PEERVIEW_RATE_LIMIT", "fast")
	t.Setenv("REDIS_DB", "x")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.HTTPTimeout != 10*time.Second {
		t.Errorf("HTTPTimeout = %v, want 10s", cfg.HTTPTimeout)
	}
	if cfg.RateLimit != 0 {
		t.Errorf("RateLimit = %v, want 0", cfg.RateLimit)
	}
	if cfg.RedisDB != 0 {
		t.Errorf("RedisDB = %d, want 0", cfg.RedisDB)
	}
}

func TestLoad_ReadsDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("PEERVIEW_API_URL=http://from-dotenv:8000\nPEERVIEW_PROFILE=dotenv\n"), 0o600); err != nil {
		t.Fatalf("failed to write .env: %v", err)
	}
	t.Setenv("PEERVIEW_PROFILE", "from-env")
	// 空文字列でも設定済みとみなされ.envの値が使われないため、未設定に戻す
	os.Unsetenv("PEERVIEW_API_URL")
	chdirForTest(t, dir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.APIURL != "http://from-dotenv:8000" {
		t.Errorf("APIURL = %q, want value from .env", cfg.APIURL)
	}
	if cfg.Profile != "from-env" {
		t.Errorf("Profile = %q, 設定済みの環境変数を.envで上書きしてはならない", cfg.Profile)
	}
}

// chdirForTest changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which requires Go 1.24+).
func chdirForTest(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir %s: %v", dir, err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("restore working directory: %v", err)
		}
	})
}
