package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage drivers.
const (
	StorageDriverPostgres = "postgres"
	StorageDriverMongo    = "mongo"
	StorageDriverMemory   = "memory"
)

// Media drivers.
const (
	MediaDriverLocal = "local"
	MediaDriverS3    = "s3"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Storage      StorageConfig
	Postgres     PostgresConfig
	Mongo        MongoConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Media        MediaConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	CORSAllowOrigins      string
}

// StorageConfig selects the report/user store.
type StorageConfig struct {
	Driver string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// MongoConfig holds document store connection values.
type MongoConfig struct {
	URI      string
	Database string
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr                 string
	Password             string
	DB                   int
	StatsCacheTTLSeconds int
	AuthRateLimitPerMin  int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret     string
	TokenTTLHours int
	BcryptCost    int
}

// MediaConfig controls upload limits and the object store backend.
type MediaConfig struct {
	Driver        string
	LocalDir      string
	PublicBaseURL string
	MaxFiles      int
	MaxFileMB     int
	S3Endpoint    string
	S3Region      string
	S3Bucket      string
	S3AccessKey   string
	S3SecretKey   string
	S3PublicURL   string
}

// NotificationConfig holds the outbound event webhook.
type NotificationConfig struct {
	WebhookURL     string
	WebhookTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "street-cats-report-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "5000"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			CORSAllowOrigins:      getEnv("CORS_ALLOW_ORIGINS", "*"),
		},
		Storage: StorageConfig{
			Driver: strings.ToLower(getEnv("STORAGE_DRIVER", StorageDriverPostgres)),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Mongo: MongoConfig{
			URI:      getEnv("MONGO_URI", "mongodb://127.0.0.1:27017"),
			Database: getEnv("MONGO_DATABASE", "streetcats"),
		},
		Redis: RedisConfig{
			Addr:                 getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:             os.Getenv("REDIS_PASSWORD"),
			DB:                   redisDB,
			StatsCacheTTLSeconds: getEnvAsInt("STATS_CACHE_TTL_SECONDS", 30),
			AuthRateLimitPerMin:  getEnvAsInt("AUTH_RATE_LIMIT_PER_MINUTE", 20),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:     getEnv("AUTH_JWT_SECRET", "dev-secret"),
			TokenTTLHours: getEnvAsInt("AUTH_TOKEN_TTL_HOURS", 24*7),
			BcryptCost:    getEnvAsInt("AUTH_BCRYPT_COST", 10),
		},
		Media: MediaConfig{
			Driver:        strings.ToLower(getEnv("MEDIA_DRIVER", MediaDriverLocal)),
			LocalDir:      getEnv("MEDIA_LOCAL_DIR", "uploads"),
			PublicBaseURL: strings.TrimRight(getEnv("MEDIA_PUBLIC_BASE_URL", "http://localhost:5000/uploads"), "/"),
			MaxFiles:      getEnvAsInt("MEDIA_MAX_FILES", 5),
			MaxFileMB:     getEnvAsInt("MEDIA_MAX_FILE_MB", 25),
			S3Endpoint:    os.Getenv("S3_ENDPOINT"),
			S3Region:      getEnv("S3_REGION", "us-east-1"),
			S3Bucket:      os.Getenv("S3_BUCKET"),
			S3AccessKey:   os.Getenv("S3_ACCESS_KEY"),
			S3SecretKey:   os.Getenv("S3_SECRET_KEY"),
			S3PublicURL:   os.Getenv("S3_PUBLIC_BASE_URL"),
		},
		Notification: NotificationConfig{
			WebhookURL:     getEnv("NOTIFY_WEBHOOK_URL", ""),
			WebhookTimeout: time.Duration(getEnvAsInt("NOTIFY_WEBHOOK_TIMEOUT_SECONDS", 5)) * time.Second,
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case StorageDriverPostgres, StorageDriverMongo, StorageDriverMemory:
	default:
		return fmt.Errorf("invalid STORAGE_DRIVER %q", c.Storage.Driver)
	}
	switch c.Media.Driver {
	case MediaDriverLocal:
	case MediaDriverS3:
		if c.Media.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET required when MEDIA_DRIVER=s3")
		}
	default:
		return fmt.Errorf("invalid MEDIA_DRIVER %q", c.Media.Driver)
	}
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// TokenTTL returns the bearer token lifetime.
func (a AuthConfig) TokenTTL() time.Duration {
	if a.TokenTTLHours <= 0 {
		return 7 * 24 * time.Hour
	}
	return time.Duration(a.TokenTTLHours) * time.Hour
}

// StatsCacheTTL returns how long global stats stay cached.
func (r RedisConfig) StatsCacheTTL() time.Duration {
	if r.StatsCacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(r.StatsCacheTTLSeconds) * time.Second
}

// MaxFileBytes returns the per-file upload limit.
func (m MediaConfig) MaxFileBytes() int64 {
	return int64(m.MaxFileMB) * 1024 * 1024
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
