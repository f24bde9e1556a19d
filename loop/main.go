package main

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	_redis "github.com/doorbash/stylize-services/api/cache/redis"
	"github.com/doorbash/stylize-services/api/config"
	"github.com/doorbash/stylize-services/api/repository"
	"github.com/doorbash/stylize-services/api/stylize"
	"github.com/doorbash/stylize-services/api/util"
)

// every runs f now and then after each interval.
func every(ctx context.Context, name string, interval time.Duration, f func(context.Context) error) {
	for {
		if err := f(ctx); err != nil {
			log.Error().Err(err).Str("job", name).Msg("loop")
		}
		time.Sleep(interval)
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	util.SetupLogger(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()
	repos, closeStore, err := repository.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("store")
	}
	defer closeStore()

	rdb := _redis.NewClient(cfg.RedisAddr, cfg.RedisPassword, _redis.REDIS_DATABASE_CACHE)
	defer rdb.Close()

	stylizer, err := stylize.NewReplicateStylizer(cfg.ReplicateToken, cfg.ReplicateVersion, cfg.WebhookBaseURL, cfg.WebhookSecret)
	if err != nil {
		log.Fatal().Err(err).Msg("replicate")
	}

	l := NewLoop(
		repos.Tasks,
		repos.Templates,
		_redis.NewTemplateRedisCache(rdb, cfg.TemplatesTTL),
		stylizer,
		util.NewFCMNotifier(cfg.FCMCredentialFile),
		cfg.TaskTimeout,
	)

	go every(ctx, "templates", 5*time.Minute, l.RefreshTemplates)
	go every(ctx, "stale", time.Minute, l.FailStaleTasks)
	every(ctx, "submit", 10*time.Second, l.SubmitQueuedTasks)
}
