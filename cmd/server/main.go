package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/listazap/gateway/internal/ai"
	"github.com/listazap/gateway/internal/config"
	"github.com/listazap/gateway/internal/ratelimit"
	"github.com/listazap/gateway/internal/repository/messagelog"
	"github.com/listazap/gateway/internal/scheduler"
	"github.com/listazap/gateway/internal/server/handlers"
	"github.com/listazap/gateway/internal/server/router"
	gatewaysvc "github.com/listazap/gateway/internal/service/gateway"
	"github.com/listazap/gateway/internal/webhook"
	"github.com/listazap/gateway/pkg/clients/deepseek"
	"github.com/listazap/gateway/pkg/clients/ollama"
	whatsappclient "github.com/listazap/gateway/pkg/clients/whatsapp"
	"github.com/listazap/gateway/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New())
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	// Counter store: Redis when configured, in-process otherwise. The
	// janitor only matters for the in-process store.
	var counterStore ratelimit.CounterStore
	var memoryStore *ratelimit.MemoryStore
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			baseLogger.Fatal("failed to connect to redis", zap.Error(err))
		}
		counterStore = ratelimit.NewRedisStore(redisClient)
		baseLogger.Info("redis counter store enabled", zap.String("addr", cfg.Redis.Addr))
	} else {
		memoryStore = ratelimit.NewMemoryStore()
		counterStore = memoryStore
		baseLogger.Info("in-memory counter store enabled")
	}

	inboundLimiter := ratelimit.NewLimiter(counterStore, ratelimit.ScopeInboundReply, cfg.RateLimit.MaxMessagesPerHour, cfg.RateLimit.Window)
	sendLimiter := ratelimit.NewLimiter(counterStore, ratelimit.ScopeOutboundSend, cfg.RateLimit.MaxMessagesPerHour, cfg.RateLimit.Window)

	var msgLog messagelog.Store = messagelog.NopStore{}
	if cfg.MongoDB.URI != "" {
		mongoStore, err := messagelog.NewMongoStore(context.Background(), cfg.MongoDB.URI, cfg.MongoDB.DBName)
		if err != nil {
			baseLogger.Fatal("failed to init message log store", zap.Error(err))
		}
		defer func() {
			if err := mongoStore.Close(context.Background()); err != nil {
				baseLogger.Error("failed to close mongodb connection", zap.Error(err))
			}
		}()
		msgLog = mongoStore
		baseLogger.Info("mongodb message log enabled")
	}

	aiRouter := ai.NewRouter(cfg.AI.DefaultBackend, baseLogger.Named("ai.router"),
		deepseek.New(cfg.AI.Deepseek, cfg.WhatsApp.Timeout, baseLogger.Named("ai.deepseek")),
		ollama.New(cfg.AI.Ollama, cfg.WhatsApp.Timeout, baseLogger.Named("ai.ollama")),
	)

	whatsClient := whatsappclient.NewClient(cfg.WhatsApp, baseLogger.Named("client.whatsapp"))
	parser := webhook.NewParser(baseLogger.Named("webhook.parser"))

	gatewaySvc := gatewaysvc.NewService(
		cfg.WhatsApp,
		parser,
		aiRouter,
		whatsClient,
		inboundLimiter,
		msgLog,
		baseLogger.Named("svc.gateway"),
	)

	webhookHandler := handlers.NewWebhookHandler(gatewaySvc, cfg.WhatsApp, baseLogger.Named("handlers.webhook"))
	sendHandler := handlers.NewSendHandler(gatewaySvc, cfg.WhatsApp, baseLogger.Named("handlers.send"))
	engine := router.New(cfg.WhatsApp, webhookHandler, sendHandler, sendLimiter, baseLogger.Named("router"))

	sched := scheduler.NewScheduler(cfg.Janitor, memoryStore, baseLogger.Named("scheduler"))
	sched.Start()
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
