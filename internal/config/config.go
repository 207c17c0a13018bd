package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store drivers.
const (
	DriverMemory    = "memory"
	DriverMongo     = "mongo"
	DriverFirestore = "firestore"
	DriverRedis     = "redis"
	DriverPostgres  = "postgres"
)

// API auth modes.
const (
	AuthNone = "none"
	AuthJWT  = "jwt"
	AuthOIDC = "oidc"
)

// Config holds application configuration
type Config struct {
	Server     ServerConfig
	Log        LogConfig
	Store      StoreConfig
	MongoDB    MongoDBConfig
	Firestore  FirestoreConfig
	Redis      RedisConfig
	Postgres   PostgresConfig
	RateLimit  RateLimitConfig
	Repository RepositoryConfig
	Auth       AuthConfig
	MinIO      MinIOConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type LogConfig struct {
	Level  string
	Format string // console|json
}

type StoreConfig struct {
	Driver         string
	Collection     string
	ConnectRetries int
	ConnectTimeout time.Duration
}

type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type FirestoreConfig struct {
	ProjectID       string
	DatabaseID      string
	CredentialsFile string
	EmulatorHost    string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Prefix   string
}

// Addr returns host:port.
func (r RedisConfig) Addr() string { return r.Host + ":" + r.Port }

type PostgresConfig struct {
	DSN      string
	MaxConns int32
}

type RateLimitConfig struct {
	Enabled       bool
	RPS           float64
	Burst         int
	UseRedis      bool
	WindowSeconds int
}

type RepositoryConfig struct {
	WriteConcurrency int
	OperationTimeout time.Duration
}

// AuthConfig guards /api/persons. jwt verifies HS256 tokens signed with
// JWTSecret (see personctl token); oidc verifies ID tokens of OIDCIssuer.
type AuthConfig struct {
	Mode         string
	JWTSecret    string
	OIDCIssuer   string
	OIDCClientID string
}

// MinIOConfig is the object storage personctl export writes snapshots to.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

// LoadConfig loads configuration from environment variables and .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", "5010")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_ENVIRONMENT", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "")
	v.SetDefault("STORE_DRIVER", DriverMemory)
	v.SetDefault("STORE_COLLECTION", "Persons")
	v.SetDefault("STORE_CONNECT_RETRIES", 5)
	v.SetDefault("STORE_CONNECT_TIMEOUT", 10)
	v.SetDefault("MONGODB_DATABASE", "personstore")
	v.SetDefault("MONGODB_TIMEOUT", 10)
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_PREFIX", "person:")
	v.SetDefault("POSTGRES_MAX_CONNS", 4)
	v.SetDefault("RATE_LIMIT_ENABLED", false)
	v.SetDefault("RATE_LIMIT_RPS", 10)
	v.SetDefault("RATE_LIMIT_BURST", 20)
	v.SetDefault("RATE_LIMIT_USE_REDIS", false)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 1)
	v.SetDefault("REPOSITORY_WRITE_CONCURRENCY", 4)
	v.SetDefault("REPOSITORY_OPERATION_TIMEOUT", 30)
	v.SetDefault("AUTH_MODE", AuthNone)
	v.SetDefault("MINIO_USE_SSL", false)
	v.SetDefault("MINIO_BUCKET", "personstore")

	env := v.GetString("SERVER_ENVIRONMENT")
	format := v.GetString("LOG_FORMAT")
	if format == "" {
		format = "console"
		if env == "production" {
			format = "json"
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:         v.GetString("SERVER_PORT"),
			Host:         v.GetString("SERVER_HOST"),
			Environment:  env,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: format,
		},
		Store: StoreConfig{
			Driver:         strings.ToLower(strings.TrimSpace(v.GetString("STORE_DRIVER"))),
			Collection:     v.GetString("STORE_COLLECTION"),
			ConnectRetries: v.GetInt("STORE_CONNECT_RETRIES"),
			ConnectTimeout: time.Duration(v.GetInt("STORE_CONNECT_TIMEOUT")) * time.Second,
		},
		MongoDB: MongoDBConfig{
			URI:      v.GetString("MONGODB_URI"),
			Database: v.GetString("MONGODB_DATABASE"),
			Timeout:  time.Duration(v.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		Firestore: FirestoreConfig{
			ProjectID:       v.GetString("FIRESTORE_PROJECT_ID"),
			DatabaseID:      v.GetString("FIRESTORE_DATABASE_ID"),
			CredentialsFile: v.GetString("GOOGLE_APPLICATION_CREDENTIALS"),
			EmulatorHost:    v.GetString("FIRESTORE_EMULATOR_HOST"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
			Prefix:   v.GetString("REDIS_PREFIX"),
		},
		Postgres: PostgresConfig{
			DSN:      os.Getenv("POSTGRES_DSN"),
			MaxConns: v.GetInt32("POSTGRES_MAX_CONNS"),
		},
		RateLimit: RateLimitConfig{
			Enabled:       v.GetBool("RATE_LIMIT_ENABLED"),
			RPS:           v.GetFloat64("RATE_LIMIT_RPS"),
			Burst:         v.GetInt("RATE_LIMIT_BURST"),
			UseRedis:      v.GetBool("RATE_LIMIT_USE_REDIS"),
			WindowSeconds: v.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
		Repository: RepositoryConfig{
			WriteConcurrency: v.GetInt("REPOSITORY_WRITE_CONCURRENCY"),
			OperationTimeout: time.Duration(v.GetInt("REPOSITORY_OPERATION_TIMEOUT")) * time.Second,
		},
		Auth: AuthConfig{
			Mode:         strings.ToLower(strings.TrimSpace(v.GetString("AUTH_MODE"))),
			JWTSecret:    os.Getenv("AUTH_JWT_SECRET"),
			OIDCIssuer:   v.GetString("AUTH_OIDC_ISSUER"),
			OIDCClientID: v.GetString("AUTH_OIDC_CLIENT_ID"),
		},
		MinIO: MinIOConfig{
			Endpoint:  v.GetString("MINIO_ENDPOINT"),
			AccessKey: v.GetString("MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("MINIO_SECRET_KEY"),
			UseSSL:    v.GetBool("MINIO_USE_SSL"),
			Bucket:    v.GetString("MINIO_BUCKET"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the selected store driver has what it needs.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverMemory:
	case DriverMongo:
		if c.MongoDB.URI == "" {
			return fmt.Errorf("store driver %q requires MONGODB_URI", c.Store.Driver)
		}
	case DriverFirestore:
		if c.Firestore.ProjectID == "" {
			return fmt.Errorf("store driver %q requires FIRESTORE_PROJECT_ID", c.Store.Driver)
		}
	case DriverRedis:
		if c.Redis.Host == "" {
			return fmt.Errorf("store driver %q requires REDIS_HOST", c.Store.Driver)
		}
	case DriverPostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("store driver %q requires POSTGRES_DSN", c.Store.Driver)
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.RateLimit.UseRedis && c.Redis.Host == "" {
		return fmt.Errorf("RATE_LIMIT_USE_REDIS requires REDIS_HOST")
	}
	switch c.Auth.Mode {
	case "", AuthNone:
	case AuthJWT:
		if len(c.Auth.JWTSecret) < 32 {
			return fmt.Errorf("AUTH_MODE=jwt requires AUTH_JWT_SECRET of at least 32 bytes")
		}
	case AuthOIDC:
		if c.Auth.OIDCIssuer == "" || c.Auth.OIDCClientID == "" {
			return fmt.Errorf("AUTH_MODE=oidc requires AUTH_OIDC_ISSUER and AUTH_OIDC_CLIENT_ID")
		}
	default:
		return fmt.Errorf("unknown auth mode %q", c.Auth.Mode)
	}
	if c.Repository.WriteConcurrency < 1 {
		c.Repository.WriteConcurrency = 1
	}
	return nil
}
