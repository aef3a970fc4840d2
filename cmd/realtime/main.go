package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/voxsynq/realtime/internal/api"
	"github.com/voxsynq/realtime/internal/auth"
	"github.com/voxsynq/realtime/internal/call"
	"github.com/voxsynq/realtime/internal/chat"
	"github.com/voxsynq/realtime/internal/config"
	"github.com/voxsynq/realtime/internal/group"
	"github.com/voxsynq/realtime/internal/hub"
	"github.com/voxsynq/realtime/internal/identity"
	"github.com/voxsynq/realtime/internal/notify"
	"github.com/voxsynq/realtime/internal/presence"
	"github.com/voxsynq/realtime/internal/store"
	"github.com/voxsynq/realtime/internal/ws"
)

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	var zl *zap.Logger
	if cfg.App.Development {
		zl, err = zap.NewDevelopment()
	} else {
		zl, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer zl.Sync()
	logger := zl.Sugar()

	ctx := context.Background()

	db, err := store.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
	if err != nil {
		logger.Fatalw("mongo connect", "err", err)
	}
	if err := store.EnsureIndexes(ctx, db); err != nil {
		logger.Fatalw("mongo indexes", "err", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	{
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			logger.Fatalw("redis ping", "err", err)
		}
		cancel()
	}

	var verifier *auth.Verifier
	if cfg.JWT.Algorithm == "RS256" {
		verifier, err = auth.NewVerifierRS256(cfg.JWT.PublicKeyPath)
	} else {
		verifier, err = auth.NewVerifierHS256(cfg.JWT.HSSecret)
	}
	if err != nil {
		logger.Fatalw("jwt verifier init", "err", err)
	}

	var notifier notify.Notifier = notify.Noop{}
	var kafkaNotifier *notify.KafkaNotifier
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaNotifier = notify.NewKafkaNotifier(cfg.Kafka.Brokers, cfg.Kafka.NotificationsTopic, logger)
		notifier = kafkaNotifier
	}

	ids := identity.NewClient(cfg.Identity.BaseURL, cfg.IdentityTimeout, logger)
	pres := presence.NewStore(rdb)
	h := hub.New(logger)

	messages := store.NewMessageStore(db)
	groups := store.NewGroupStore(db)
	reads := store.NewReadStatusStore(db)
	calls := store.NewCallStore(db)

	chatSvc := chat.NewService(messages, groups, ids, h, notifier, logger)
	tracker := chat.NewTracker(reads, messages, groups, h, logger)
	groupSvc := group.NewService(groups, ids, h, logger)
	callSvc := call.NewService(calls, ids, h, logger)

	wsHandler := ws.NewHandler(verifier, h, chatSvc, callSvc, groups, pres, ws.Config{
		PingInterval:  cfg.PingInterval,
		WriteDeadline: cfg.WriteDeadline,
		MaxMsgSize:    cfg.WS.MaxMessageBytes,
		SendBuffer:    cfg.WS.SendBuffer,
	}, logger)

	app := api.NewServer(api.Deps{
		Verifier: verifier,
		Chat:     chatSvc,
		Tracker:  tracker,
		Groups:   groupSvc,
		Calls:    callSvc,
		Presence: pres,
		WS:       wsHandler,
		Limiter:  api.NewIPRateLimiter(cfg.RateLimitPerMin, logger),
		Log:      logger,
	})

	addr := ":" + cfg.App.Port
	go func() {
		logger.Infow("starting realtime service", "addr", addr)
		if err := app.Listen(addr); err != nil {
			logger.Fatalw("server failed", "err", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Infow("shutdown requested")

	_ = app.Shutdown()
	if kafkaNotifier != nil {
		_ = kafkaNotifier.Close()
	}
	_ = rdb.Close()
	logger.Infow("realtime service stopped")
}
