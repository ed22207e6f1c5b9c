package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"CharityFund/internal/api"
	"CharityFund/internal/config"
	"CharityFund/internal/fund"
	"CharityFund/internal/lock"
	"CharityFund/internal/notifier"
	"CharityFund/internal/scheduler"
	"CharityFund/internal/storage"

	"github.com/redis/go-redis/v9"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] CharityFund starting...")

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	// Init store
	if dir := filepath.Dir(cfg.Database.SQLitePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatalf("[FATAL] create data dir: %v", err)
		}
	}
	store, err := storage.Open(cfg.Database.SQLitePath)
	if err != nil {
		log.Fatalf("[FATAL] open store: %v", err)
	}
	defer store.Close()

	// Init allocation lock
	var locker lock.Locker
	if cfg.Lock.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Lock.RedisAddr,
			Password: cfg.Lock.RedisPassword,
		})
		defer client.Close()
		if err := client.Ping(context.Background()).Err(); err != nil {
			log.Fatalf("[FATAL] connect redis: %v", err)
		}
		opts := lock.DefaultRedisOptions()
		opts.Expiry = cfg.Lock.Expiry
		locker = lock.NewRedis(client, opts)
		log.Printf("[INFO] allocation lock: redis %s", cfg.Lock.RedisAddr)
	} else {
		locker = lock.NewLocal()
		log.Println("[INFO] allocation lock: in-process")
	}

	// Init notifier
	var (
		fundNotifier fund.Notifier
		sender       scheduler.Sender
		poll         func(context.Context, notifier.CommandHandler)
	)
	if cfg.TelegramEnabled() {
		tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		fundNotifier, sender, poll = tn, tn, tn.StartPolling
	} else {
		log.Println("[WARN] telegram not configured, notifications disabled")
		nn := notifier.NewNoop()
		fundNotifier, sender, poll = nn, nn, nn.StartPolling
	}

	fm := fund.NewManager(store, locker, fundNotifier)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init scheduler
	sched := scheduler.NewScheduler(ctx, fm, sender)
	if err := sched.RegisterAll(cfg.Schedule.SnapshotCron, cfg.Schedule.ReportCron); err != nil {
		log.Fatalf("[FATAL] register cron tasks: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	// Start Telegram polling
	go poll(ctx, sched.HandleCommand)

	// Start HTTP server
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.New(fm, cfg.HTTP.AdminToken),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("[INFO] HTTP listening on %s", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("[ERROR] HTTP server: %v", err)
			cancel()
		}
	}()

	log.Println("[INFO] CharityFund is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		log.Println("[INFO] shutdown signal received, stopping...")
	case <-ctx.Done():
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[ERROR] HTTP shutdown: %v", err)
	}
	cancel()
	log.Println("[INFO] CharityFund stopped")
}
