package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/dukerupert/larder/internal/backup"
	"github.com/dukerupert/larder/internal/barcode"
	"github.com/dukerupert/larder/internal/config"
	"github.com/dukerupert/larder/internal/database"
	"github.com/dukerupert/larder/internal/logging"
	"github.com/dukerupert/larder/internal/nutrition"
	"github.com/dukerupert/larder/internal/push"
	"github.com/dukerupert/larder/internal/server"
	"github.com/dukerupert/larder/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	if len(os.Args) > 1 {
		os.Exit(runCommand(cfg, logger, os.Args[1], os.Args[2:]))
	}

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	extractor, closeExtractor := buildExtractor(ctx, cfg, logger)
	defer closeExtractor()

	queue := nutrition.NewQueue(store.NewRecipeStore(db), extractor, nil,
		cfg.NutritionQueueSize, cfg.NutritionWorkers, logger)
	queue.Start(ctx)

	backups := backup.NewManager(cfg.Backup, db, store.NewBackupStore(db), logger)
	backups.Start(ctx)

	deps := server.Deps{
		Products:        barcode.NewClient(cfg.BarcodeBaseURL),
		Nutrition:       queue,
		SessionTTL:      cfg.SessionTTL,
		PushBatchWindow: cfg.PushBatchWindow,
		Backups:         backups,
	}
	if cfg.PushEnabled() {
		deps.Push = push.NewService(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, cfg.PushSubscriber)
	} else {
		logger.Info("push notifications disabled, no vapid keys")
	}
	srv := server.New(db, deps, logger)
	if n := srv.Notifier(); n != nil {
		n.Start(ctx)
	}

	go srv.RateLimiter().RunCleanup(ctx, 5*time.Minute)
	go purgeSessions(ctx, srv.SessionStore(), logger)

	httpServer := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("larder listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	if n := srv.Notifier(); n != nil {
		n.Stop()
	}
	backups.Stop()
	queue.Stop()
}

// runCommand handles the maintenance subcommands and returns the exit code.
func runCommand(cfg config.Config, logger *slog.Logger, name string, args []string) int {
	switch name {
	case "vapid-keys":
		pub, priv, err := push.GenerateVAPIDKeys()
		if err != nil {
			logger.Error("generate vapid keys", "error", err)
			return 1
		}
		fmt.Printf("LARDER_VAPID_PUBLIC_KEY=%s\nLARDER_VAPID_PRIVATE_KEY=%s\n", pub, priv)
		return 0

	case "restore":
		if len(args) != 2 {
			fmt.Fprintln(os.Stderr, "usage: larder restore <backup-id> <output.db>")
			return 2
		}
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid backup id %q\n", args[0])
			return 2
		}
		db, err := database.Open(cfg.DBPath)
		if err != nil {
			logger.Error("failed to open database", "path", cfg.DBPath, "error", err)
			return 1
		}
		defer db.Close()

		m := backup.NewManager(cfg.Backup, db, store.NewBackupStore(db), logger)
		if err := m.Restore(context.Background(), id, args[1]); err != nil {
			logger.Error("restore failed", "backup_id", id, "error", err)
			return 1
		}
		logger.Info("restored backup; stop the server and replace the database file to use it",
			"backup_id", id, "path", args[1])
		return 0
	}
	fmt.Fprintf(os.Stderr, "unknown command %q (want vapid-keys or restore)\n", name)
	return 2
}

// buildExtractor picks Gemini when an API key is configured and layers the
// Redis cache on top when an address is set. The returned func releases
// whatever clients were opened.
func buildExtractor(ctx context.Context, cfg config.Config, logger *slog.Logger) (nutrition.Extractor, func()) {
	var closers []func() error
	cleanup := func() {
		for _, c := range closers {
			c()
		}
	}

	var extractor nutrition.Extractor = nutrition.NoopExtractor{}
	if cfg.GeminiAPIKey != "" {
		g, err := nutrition.NewGeminiExtractor(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.Warn("gemini disabled", "error", err)
		} else {
			extractor = g
			closers = append(closers, g.Close)
			logger.Info("nutrition extraction enabled", "model", cfg.GeminiModel)
		}
	} else {
		logger.Info("nutrition extraction disabled, no gemini api key")
	}

	if cfg.RedisAddr == "" {
		return extractor, cleanup
	}
	cache := nutrition.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := cache.Ping(pingCtx); err != nil {
		logger.Warn("redis unavailable, nutrition cache disabled", "addr", cfg.RedisAddr, "error", err)
		cache.Close()
		return extractor, cleanup
	}
	closers = append(closers, cache.Close)
	return nutrition.NewCachedExtractor(extractor, cache, nutrition.DefaultCacheTTL, logger), cleanup
}

func purgeSessions(ctx context.Context, sessions *store.SessionStore, logger *slog.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sessions.DeleteExpired()
			if err != nil {
				logger.Error("purge expired sessions", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("purged expired sessions", "count", n)
			}
		}
	}
}
