package main

import (
	"context"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/AdalSuUygur/Akademi-Topluluk-Botu/internal/clients/groq"
	"github.com/AdalSuUygur/Akademi-Topluluk-Botu/internal/clients/slack"
	"github.com/AdalSuUygur/Akademi-Topluluk-Botu/internal/config"
	"github.com/AdalSuUygur/Akademi-Topluluk-Botu/internal/logger"
	"github.com/AdalSuUygur/Akademi-Topluluk-Botu/internal/ratelimit"
	"github.com/AdalSuUygur/Akademi-Topluluk-Botu/internal/service"
	"github.com/AdalSuUygur/Akademi-Topluluk-Botu/internal/store"
	httptr "github.com/AdalSuUygur/Akademi-Topluluk-Botu/internal/transport/http"
)

func main() {
	cfg := config.Load()

	baseLog, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer baseLog.Sync()

	if cfg.SlackToken == "" {
		baseLog.Fatal("SLACK_BOT_TOKEN is not set")
	}
	if cfg.GroqAPIKey == "" {
		baseLog.Fatal("GROQ_API_KEY is not set")
	}

	var st store.ChallengeStore
	switch cfg.StoreDriver {
	case "memory":
		st = store.NewMemory()
		baseLog.Warn("using in-memory store, state will not survive a restart")
	default:
		pg, err := store.NewPostgres(cfg.DBUrl, baseLog)
		if err != nil {
			baseLog.Fatal("db connect", "error", err)
		}
		defer pg.DB().Close()
		st = pg
	}

	var limiter *ratelimit.Limiter
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		limiter = ratelimit.New(rdb, cfg.RateLimitMax, cfg.RateLimitWindow)
	}

	slackClient := slack.New(cfg.SlackToken, cfg.HTTPTimeout, baseLog)
	announcer := slack.NewAnnouncer(slackClient, cfg.SlackAnnounceChannel)
	gen := groq.New(cfg.GroqAPIKey, cfg.GroqModel, cfg.HTTPTimeout, baseLog)

	svc := service.New(st, gen, slackClient, announcer, limiter, baseLog)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go service.NewSweeper(svc, cfg.SweepInterval, baseLog).Run(ctx)

	r := httptr.NewRouter(svc, baseLog)
	baseLog.Info("listening", "port", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		baseLog.Fatal("server failed", "error", err)
	}
}
