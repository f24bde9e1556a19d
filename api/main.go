package main

import (
	"context"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	_redis "github.com/doorbash/stylize-services/api/cache/redis"
	"github.com/doorbash/stylize-services/api/config"
	"github.com/doorbash/stylize-services/api/domain"
	handler "github.com/doorbash/stylize-services/api/handler"
	auth "github.com/doorbash/stylize-services/api/handler/auth"
	"github.com/doorbash/stylize-services/api/quota"
	"github.com/doorbash/stylize-services/api/repository"
	"github.com/doorbash/stylize-services/api/util"
	"github.com/doorbash/stylize-services/api/util/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	util.SetupLogger(cfg.LogLevel, cfg.LogFormat)

	repos, closeStore, err := repository.Open(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("store")
	}
	defer closeStore()

	authRdb := _redis.NewClient(cfg.RedisAddr, cfg.RedisPassword, _redis.REDIS_DATABASE_AUTH)
	defer authRdb.Close()
	cacheRdb := _redis.NewClient(cfg.RedisAddr, cfg.RedisPassword, _redis.REDIS_DATABASE_CACHE)
	defer cacheRdb.Close()

	ctx, cancel := util.GetContextWithTimeout(context.Background())
	if err := _redis.Ping(ctx, authRdb); err != nil {
		log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis is not reachable yet")
	}
	cancel()

	gate := quota.NewGate(repos.Users, cfg.QuotaLocation)

	var extraVerifiers []domain.TokenVerifier
	if repos.Verifier != nil {
		extraVerifiers = append(extraVerifiers, repos.Verifier)
	}

	r := mux.NewRouter()
	r.Use(middleware.LoggerMiddleware)

	authHandler := auth.NewGithubOAuth2Handler(
		r,
		repos.Users,
		_redis.NewAuthRedisCache(authRdb, cfg.TokenExpiry),
		extraVerifiers,
		gate,
		cfg.AuthClientSecret,
		cfg.AuthClientID,
		cfg.AuthSessionKey,
		cfg.AdminEmail,
		cfg.IsPrivate,
		cfg.APIPath,
		"/oauth2",
	)

	handler.NewUserHandler(
		r,
		authHandler.Middleware,
		repos.Users,
		gate,
		"/user",
	)

	handler.NewTemplateHandler(
		r,
		authHandler.Middleware,
		repos.Templates,
		_redis.NewTemplateRedisCache(cacheRdb, cfg.TemplatesTTL),
		"/templates",
	)

	handler.NewTaskHandler(
		r,
		authHandler.Middleware,
		gate,
		repos.Users,
		repos.Templates,
		repos.Tasks,
		"/tasks",
	)

	handler.NewArtworkHandler(
		r,
		authHandler.Middleware,
		repos.Artworks,
		"/artworks",
	)

	handler.NewWebhookHandler(
		r,
		repos.Tasks,
		repos.Artworks,
		util.NewFCMNotifier(cfg.FCMCredentialFile),
		cfg.WebhookSecret,
		"/webhooks",
	)

	var h http.Handler = r
	if len(cfg.AllowedOrigins) > 0 {
		h = handlers.CORS(
			handlers.AllowedOrigins(cfg.AllowedOrigins),
			handlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"}),
			handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
			handlers.AllowCredentials(),
		)(h)
	}
	h = handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(h)

	log.Info().Str("addr", cfg.ListenAddr).Str("timezone", cfg.QuotaLocation.String()).Msg("listening")
	log.Fatal().Err(http.ListenAndServe(cfg.ListenAddr, h)).Msg("server")
}
