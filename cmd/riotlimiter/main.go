package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/subaru9/riot-ratelimit/internal/ratelimit"
	"github.com/subaru9/riot-ratelimit/pkg/config"
	"github.com/subaru9/riot-ratelimit/pkg/logger"
	storeredis "github.com/subaru9/riot-ratelimit/pkg/redis"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	l := logger.NewLogger(cfg.Logging)
	defer l.Sync()

	redisClient, err := storeredis.NewClientFromConfig(&cfg.Redis)
	if err != nil {
		l.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer redisClient.Close()

	events, err := ratelimit.NewEventPublisher(cfg.Kafka, l.Named("events"))
	if err != nil {
		l.Fatal("failed to build event publisher", zap.Error(err))
	}

	metrics := ratelimit.NewMetrics(prometheus.DefaultRegisterer)

	rl := ratelimit.New(redisClient, cfg.RateLimit, l.Named("ratelimit"), events, metrics)
	codec := ratelimit.NewKeyCodec(cfg.RateLimit.KeyPrefixPolicy, cfg.RateLimit.KeyPrefixLive, cfg.RateLimit.KeyPrefixCooldown)

	router := newAdminRouter(rl, codec, l.Named("admin"))
	server := &http.Server{
		Addr:           fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go func() {
		l.Info("starting admin server", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.Fatal("admin server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	l.Info("shutting down riotlimiter")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		l.Error("admin server forced to shutdown", zap.Error(err))
	}

	l.Info("riotlimiter stopped")
}
