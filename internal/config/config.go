// Package config reads runtime settings from the environment. A .env file in
// the working directory is loaded first when present; variables already set
// in the environment take precedence over it.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/dukerupert/larder/internal/backup"
	"github.com/dukerupert/larder/internal/barcode"
	"github.com/dukerupert/larder/internal/nutrition"
	"github.com/dukerupert/larder/internal/push"
	"github.com/dukerupert/larder/internal/store"
)

const envPrefix = "LARDER_"

type Config struct {
	Port      string
	DBPath    string
	LogLevel  string
	LogFormat string

	GeminiAPIKey string
	GeminiModel  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	NutritionWorkers   int
	NutritionQueueSize int

	BarcodeBaseURL string
	SessionTTL     time.Duration

	VAPIDPublicKey  string
	VAPIDPrivateKey string
	PushSubscriber  string
	PushBatchWindow time.Duration

	Backup backup.Config
}

// PushEnabled reports whether both VAPID keys are set.
func (c Config) PushEnabled() bool {
	return c.VAPIDPublicKey != "" && c.VAPIDPrivateKey != ""
}

// Load reads .env (if any) and then LARDER_* variables, applying defaults for
// anything unset. A malformed numeric or duration value is an error.
func Load() (Config, error) {
	// Missing .env is the normal case in production.
	_ = godotenv.Load()

	cfg := Config{
		Port:           getenv("PORT", "8080"),
		DBPath:         getenv("DB_PATH", "larder.db"),
		LogLevel:       getenv("LOG_LEVEL", "info"),
		LogFormat:      getenv("LOG_FORMAT", "text"),
		GeminiAPIKey:   getenv("GEMINI_API_KEY", ""),
		GeminiModel:    getenv("GEMINI_MODEL", nutrition.DefaultGeminiModel),
		RedisAddr:      getenv("REDIS_ADDR", ""),
		RedisPassword:  getenv("REDIS_PASSWORD", ""),
		BarcodeBaseURL: getenv("BARCODE_BASE_URL", barcode.DefaultBaseURL),

		VAPIDPublicKey:  getenv("VAPID_PUBLIC_KEY", ""),
		VAPIDPrivateKey: getenv("VAPID_PRIVATE_KEY", ""),
		PushSubscriber:  getenv("PUSH_SUBSCRIBER", ""),

		Backup: backup.Config{
			S3: backup.S3Config{
				Endpoint:  getenv("BACKUP_S3_ENDPOINT", ""),
				Bucket:    getenv("BACKUP_S3_BUCKET", ""),
				Region:    getenv("BACKUP_S3_REGION", "auto"),
				AccessKey: getenv("BACKUP_S3_ACCESS_KEY", ""),
				SecretKey: getenv("BACKUP_S3_SECRET_KEY", ""),
			},
			Passphrase: getenv("BACKUP_PASSPHRASE", ""),
			Prefix:     getenv("BACKUP_PREFIX", "larder/"),
		},
	}

	var err error
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return Config{}, err
	}
	if cfg.NutritionWorkers, err = getInt("NUTRITION_WORKERS", nutrition.DefaultWorkers); err != nil {
		return Config{}, err
	}
	if cfg.NutritionQueueSize, err = getInt("NUTRITION_QUEUE_SIZE", nutrition.DefaultQueueSize); err != nil {
		return Config{}, err
	}
	if cfg.SessionTTL, err = getDuration("SESSION_TTL", store.DefaultSessionTTL); err != nil {
		return Config{}, err
	}

	if cfg.PushBatchWindow, err = getDuration("PUSH_BATCH_WINDOW", push.DefaultBatchWindow); err != nil {
		return Config{}, err
	}
	if cfg.Backup.Interval, err = getDuration("BACKUP_INTERVAL", backup.DefaultInterval); err != nil {
		return Config{}, err
	}
	if cfg.Backup.Retention, err = getDuration("BACKUP_RETENTION", backup.DefaultRetention); err != nil {
		return Config{}, err
	}

	if cfg.NutritionWorkers < 1 {
		return Config{}, fmt.Errorf("%sNUTRITION_WORKERS must be at least 1", envPrefix)
	}
	if cfg.NutritionQueueSize < 1 {
		return Config{}, fmt.Errorf("%sNUTRITION_QUEUE_SIZE must be at least 1", envPrefix)
	}
	return cfg, nil
}

// Addr returns the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + c.Port
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(envPrefix + key)); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) (int, error) {
	v := getenv(key, "")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s%s: %w", envPrefix, key, err)
	}
	return n, nil
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := getenv(key, "")
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s%s: %w", envPrefix, key, err)
	}
	return d, nil
}
