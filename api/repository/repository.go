// Package repository opens the record store selected by configuration.
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/doorbash/stylize-services/api/config"
	"github.com/doorbash/stylize-services/api/domain"
	_pg "github.com/doorbash/stylize-services/api/repository/pg"
	_supabase "github.com/doorbash/stylize-services/api/repository/supabase"
	"github.com/doorbash/stylize-services/api/util"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog/log"
)

type Repositories struct {
	Users     domain.UserRepository
	Templates domain.TemplateRepository
	Tasks     domain.TaskRepository
	Artworks  domain.ArtworkRepository
	// Verifier accepts Supabase auth tokens. Nil unless enabled.
	Verifier domain.TokenVerifier
}

// Open connects to the configured store. The returned func releases it.
func Open(ctx context.Context, cfg *config.Config) (*Repositories, func(), error) {
	repos := &Repositories{}
	closer := func() {}

	switch cfg.StoreBackend {
	case config.STORE_POSTGRES:
		pool, err := openPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		closer = pool.Close
		repos.Users = _pg.NewUserPostgresRepository(pool)
		repos.Templates = _pg.NewTemplatePostgresRepository(pool)
		repos.Tasks = _pg.NewTaskPostgresRepository(pool)
		repos.Artworks = _pg.NewArtworkPostgresRepository(pool)
	case config.STORE_SUPABASE:
		client, err := _supabase.NewClient(_supabase.Config{ProjectURL: cfg.SupabaseURL, ServiceKey: cfg.SupabaseKey})
		if err != nil {
			return nil, nil, fmt.Errorf("supabase client: %w", err)
		}
		repos.Users = _supabase.NewUserSupabaseRepository(client)
		repos.Templates = _supabase.NewTemplateSupabaseRepository(client)
		repos.Tasks = _supabase.NewTaskSupabaseRepository(client)
		repos.Artworks = _supabase.NewArtworkSupabaseRepository(client)
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	if cfg.SupabaseAuth {
		client, err := _supabase.NewClient(_supabase.Config{ProjectURL: cfg.SupabaseURL, ServiceKey: cfg.SupabaseKey})
		if err != nil {
			closer()
			return nil, nil, fmt.Errorf("supabase auth client: %w", err)
		}
		repos.Verifier = _supabase.NewAuthVerifier(client)
	}

	log.Info().Str("backend", cfg.StoreBackend).Bool("supabase_auth", cfg.SupabaseAuth).Msg("store opened")
	return repos, closer, nil
}

func openPostgres(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("unable to parse DATABASE_URL: %w", err)
	}

	poolConfig.HealthCheckPeriod = time.Minute
	poolConfig.ConnConfig.Logger = util.DatabaseLogger()
	poolConfig.ConnConfig.LogLevel = util.DatabaseLogLevel()

	c, cancel := util.GetContextWithTimeout(ctx)
	defer cancel()
	pool, err := pgxpool.ConnectConfig(c, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	for _, q := range _pg.CreateTables() {
		c, cancel := util.GetContextWithTimeout(ctx)
		_, err := pool.Exec(c, q)
		cancel()
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("create tables: %w", err)
		}
	}
	return pool, nil
}
