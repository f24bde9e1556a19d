package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const (
	STORE_POSTGRES = "postgres"
	STORE_SUPABASE = "supabase"
)

type Config struct {
	ListenAddr string
	APIPath    string
	IsPrivate  bool
	AdminEmail string
	LogLevel   string
	LogFormat  string

	StoreBackend string
	DatabaseURL  string
	SupabaseURL  string
	SupabaseKey  string
	SupabaseAuth bool

	RedisAddr     string
	RedisPassword string

	AuthClientID     string
	AuthClientSecret string
	AuthSessionKey   string
	TokenExpiry      time.Duration

	QuotaLocation  *time.Location
	TemplatesTTL   time.Duration
	AllowedOrigins []string

	ReplicateToken    string
	ReplicateVersion  string
	WebhookBaseURL    string
	WebhookSecret     string
	TaskTimeout       time.Duration
	FCMCredentialFile string
}

// Load reads the environment, after loading .env from the working directory
// if there is one.
func Load() (*Config, error) {
	if err := godotenv.Load(); err == nil {
		log.Info().Msg("Loaded configuration from .env in current directory")
	}

	cfg := &Config{
		ListenAddr:        getEnv("API_LISTEN_ADDR", ":8080"),
		APIPath:           os.Getenv("API_PATH"),
		IsPrivate:         os.Getenv("API_MODE") == "private",
		AdminEmail:        os.Getenv("API_ADMIN_EMAIL"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "console"),
		StoreBackend:      getEnv("STORE_BACKEND", STORE_POSTGRES),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		SupabaseURL:       os.Getenv("SUPABASE_URL"),
		SupabaseKey:       os.Getenv("SUPABASE_SERVICE_ROLE_KEY"),
		RedisAddr:         getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		AuthClientID:      os.Getenv("AUTH_CLIENT_ID"),
		AuthClientSecret:  os.Getenv("AUTH_CLIENT_SECRET"),
		AuthSessionKey:    os.Getenv("AUTH_SESSION_KEY"),
		ReplicateToken:    os.Getenv("REPLICATE_API_TOKEN"),
		ReplicateVersion:  os.Getenv("REPLICATE_MODEL_VERSION"),
		WebhookBaseURL:    os.Getenv("WEBHOOK_BASE_URL"),
		WebhookSecret:     os.Getenv("WEBHOOK_SECRET"),
		FCMCredentialFile: os.Getenv("FCM_CREDENTIALS_FILE"),
	}

	if cfg.DatabaseURL == "" && os.Getenv("DATABASE_USER") != "" {
		cfg.DatabaseURL = fmt.Sprintf(
			"postgres://%s:%s@%s/%s",
			os.Getenv("DATABASE_USER"),
			os.Getenv("DATABASE_PASSWORD"),
			getEnv("DATABASE_HOST", "db:5432"),
			os.Getenv("DATABASE_NAME"),
		)
	}

	var err error
	if cfg.TokenExpiry, err = getDuration("AUTH_TOKEN_EXPIRY", time.Hour); err != nil {
		return nil, err
	}
	if cfg.TemplatesTTL, err = getDuration("TEMPLATES_CACHE_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.TaskTimeout, err = getDuration("TASK_TIMEOUT", time.Hour); err != nil {
		return nil, err
	}

	tz := getEnv("QUOTA_TIMEZONE", "UTC")
	if cfg.QuotaLocation, err = time.LoadLocation(tz); err != nil {
		return nil, fmt.Errorf("bad QUOTA_TIMEZONE %q: %w", tz, err)
	}

	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = splitList(origins)
	}

	if cfg.SupabaseAuth, err = getBool("SUPABASE_AUTH", cfg.SupabaseURL != ""); err != nil {
		return nil, err
	}

	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	switch c.StoreBackend {
	case STORE_POSTGRES:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL or DATABASE_USER/DATABASE_PASSWORD/DATABASE_NAME must be set for the postgres store")
		}
	case STORE_SUPABASE:
		if c.SupabaseURL == "" || c.SupabaseKey == "" {
			return fmt.Errorf("SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY must be set for the supabase store")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	if c.SupabaseAuth && (c.SupabaseURL == "" || c.SupabaseKey == "") {
		return fmt.Errorf("SUPABASE_AUTH needs SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY")
	}
	return nil
}

func getEnv(key string, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("bad %s %q: %w", key, v, err)
	}
	return d, nil
}

func getBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("bad %s %q: %w", key, v, err)
	}
	return b, nil
}

func splitList(s string) []string {
	ret := make([]string, 0)
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			ret = append(ret, item)
		}
	}
	return ret
}
