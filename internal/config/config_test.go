package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, k := range []string{"PORT", "DB_PATH", "LOG_LEVEL", "REDIS_DB", "NUTRITION_WORKERS", "SESSION_TTL"} {
		t.Setenv(envPrefix+k, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.DBPath != "larder.db" {
		t.Errorf("DBPath = %q, want larder.db", cfg.DBPath)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.NutritionWorkers != 2 || cfg.NutritionQueueSize != 100 {
		t.Errorf("nutrition = %d workers / %d queue, want 2 / 100", cfg.NutritionWorkers, cfg.NutritionQueueSize)
	}
	if cfg.SessionTTL != 30*24*time.Hour {
		t.Errorf("SessionTTL = %v, want 720h", cfg.SessionTTL)
	}
	if cfg.Addr() != ":8080" {
		t.Errorf("Addr = %q", cfg.Addr())
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LARDER_PORT", "9090")
	t.Setenv("LARDER_LOG_FORMAT", "json")
	t.Setenv("LARDER_REDIS_ADDR", "localhost:6379")
	t.Setenv("LARDER_REDIS_DB", "3")
	t.Setenv("LARDER_NUTRITION_WORKERS", "4")
	t.Setenv("LARDER_SESSION_TTL", "12h")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("Port = %q, want 9090", cfg.Port)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %q, want json", cfg.LogFormat)
	}
	if cfg.RedisAddr != "localhost:6379" || cfg.RedisDB != 3 {
		t.Errorf("redis = %q db %d", cfg.RedisAddr, cfg.RedisDB)
	}
	if cfg.NutritionWorkers != 4 {
		t.Errorf("NutritionWorkers = %d, want 4", cfg.NutritionWorkers)
	}
	if cfg.SessionTTL != 12*time.Hour {
		t.Errorf("SessionTTL = %v, want 12h", cfg.SessionTTL)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"LARDER_REDIS_DB", "one"},
		{"LARDER_NUTRITION_WORKERS", "0"},
		{"LARDER_NUTRITION_QUEUE_SIZE", "-5"},
		{"LARDER_SESSION_TTL", "forever"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Chdir(t.TempDir())
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("expected error for %s=%s", tt.key, tt.value)
			}
		})
	}
}

func TestLoadPushAndBackup(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, k := range []string{"VAPID_PUBLIC_KEY", "VAPID_PRIVATE_KEY", "BACKUP_S3_BUCKET", "BACKUP_INTERVAL"} {
		t.Setenv(envPrefix+k, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PushEnabled() {
		t.Error("push enabled without keys")
	}
	if cfg.Backup.Interval != 24*time.Hour || cfg.Backup.Prefix != "larder/" {
		t.Errorf("backup defaults = %+v", cfg.Backup)
	}

	t.Setenv("LARDER_VAPID_PUBLIC_KEY", "pub")
	t.Setenv("LARDER_VAPID_PRIVATE_KEY", "priv")
	t.Setenv("LARDER_PUSH_BATCH_WINDOW", "1m")
	t.Setenv("LARDER_BACKUP_S3_BUCKET", "larder-backups")
	t.Setenv("LARDER_BACKUP_INTERVAL", "6h")

	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.PushEnabled() || cfg.PushBatchWindow != time.Minute {
		t.Errorf("push = %v window %v", cfg.PushEnabled(), cfg.PushBatchWindow)
	}
	if cfg.Backup.S3.Bucket != "larder-backups" || cfg.Backup.Interval != 6*time.Hour {
		t.Errorf("backup = %+v", cfg.Backup)
	}

	t.Setenv("LARDER_BACKUP_RETENTION", "a month")
	if _, err := Load(); err == nil {
		t.Error("expected error for bad retention")
	}
}
