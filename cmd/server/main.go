package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hongminglow/flous-cash-be/internal/auth"
	"github.com/hongminglow/flous-cash-be/internal/cache"
	"github.com/hongminglow/flous-cash-be/internal/config"
	"github.com/hongminglow/flous-cash-be/internal/contract"
	"github.com/hongminglow/flous-cash-be/internal/lifecycle"
	"github.com/hongminglow/flous-cash-be/internal/logger"
	"github.com/hongminglow/flous-cash-be/internal/models"
	"github.com/hongminglow/flous-cash-be/internal/notify"
	"github.com/hongminglow/flous-cash-be/internal/server"
	"github.com/hongminglow/flous-cash-be/internal/storage"
	"github.com/hongminglow/flous-cash-be/internal/storage/memory"
	"github.com/hongminglow/flous-cash-be/internal/storage/postgres"
)

func main() {
	loadLocalEnv()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zlog, err := logger.New(cfg.Logger())
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	if err := run(cfg, zlog); err != nil {
		zlog.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, zlog *zap.Logger) error {
	ctx := context.Background()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("parse REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}

	cached := cache.NewStore(store, rdb, cfg.UserCacheTTL, zlog)
	if cfg.SeedAdmin() {
		if err := seedAdmin(ctx, cached, cfg, zlog); err != nil {
			return err
		}
	}

	files, err := contract.NewFileStore(cfg.ContractsDir)
	if err != nil {
		return err
	}
	renderer := contract.NewPDFRenderer(files, cfg.WalletNumber, zlog)

	notifier, closeNotifiers := buildNotifier(cfg, rdb, zlog)
	defer closeNotifiers()

	manager := lifecycle.NewManager(cached, renderer, files, notifier, lifecycle.Options{
		RenderTimeout: cfg.RenderTimeout,
		NotifyTimeout: cfg.NotifyTimeout,
	}, zlog)

	srv := server.New(cfg, server.Deps{
		Users:    cached,
		Tokens:   auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL()),
		Denylist: auth.NewDenylist(rdb),
		Services: manager,
		Log:      zlog,
	})

	errCh := make(chan error, 1)
	go func() {
		zlog.Info("Flous Cash backend listening", zap.String("addr", cfg.HTTPAddress()), zap.String("storage", cfg.StorageDriver))
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		zlog.Warn("graceful shutdown error", zap.Error(err))
	}
	zlog.Info("server stopped")
	return nil
}

func openStore(ctx context.Context, cfg config.Config) (storage.Store, error) {
	switch cfg.StorageDriver {
	case config.DriverMemory:
		return memory.NewStore(), nil
	default:
		store, err := postgres.NewStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("init database: %w", err)
		}
		return store, nil
	}
}

// buildNotifier assembles the configured sinks. Optional sinks that fail to
// start are logged and skipped.
func buildNotifier(cfg config.Config, rdb *redis.Client, zlog *zap.Logger) (lifecycle.Notifier, func()) {
	sinks := []notify.Notifier{notify.NewLog(zlog)}
	closers := []func(){}

	if cfg.TelegramBotToken != "" {
		tg, err := notify.NewTelegram(notify.TelegramConfig{
			Token:  cfg.TelegramBotToken,
			ChatID: cfg.TelegramChatID,
			Wallet: cfg.WalletNumber,
		}, zlog)
		if err != nil {
			zlog.Warn("telegram notifications disabled", zap.Error(err))
		} else {
			sinks = append(sinks, tg)
		}
	}
	if cfg.EventsStream != "" {
		sinks = append(sinks, notify.NewStream(rdb, cfg.EventsStream, zlog))
	}
	if cfg.AMQPURL != "" {
		pub, err := notify.DialPublisher(cfg.AMQPURL, cfg.AMQPExchange, zlog)
		if err != nil {
			zlog.Warn("amqp notifications disabled", zap.Error(err))
		} else {
			sinks = append(sinks, pub)
			closers = append(closers, func() { _ = pub.Close() })
		}
	}

	return notify.NewFanout(zlog, sinks...), func() {
		for _, c := range closers {
			c()
		}
	}
}

// seedAdmin ensures the configured operator account exists.
func seedAdmin(ctx context.Context, store storage.UserStore, cfg config.Config, zlog *zap.Logger) error {
	if _, err := store.FindByUsername(ctx, cfg.AdminUsername); err == nil {
		return nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("look up admin: %w", err)
	}

	hash, err := auth.HashPassword(cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	email := cfg.AdminEmail
	if email == "" {
		email = cfg.AdminUsername + "@flous.cash"
	}
	admin, err := store.CreateUser(ctx, models.User{
		Username:     cfg.AdminUsername,
		Email:        email,
		PasswordHash: hash,
		FullName:     "Flous Cash Admin",
		IsAdmin:      true,
	})
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			zlog.Warn("admin seed skipped: username or email taken", zap.String("username", cfg.AdminUsername))
			return nil
		}
		return fmt.Errorf("seed admin: %w", err)
	}
	zlog.Info("admin account created", zap.Int64("user_id", admin.ID))
	return nil
}

func loadLocalEnv() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found; relying on existing environment")
	}
}
