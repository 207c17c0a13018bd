package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("SERVER_ENVIRONMENT", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, DriverMemory, cfg.Store.Driver)
	require.Equal(t, "Persons", cfg.Store.Collection)
	require.Equal(t, "console", cfg.Log.Format)
	require.Equal(t, 4, cfg.Repository.WriteConcurrency)
	require.Equal(t, 30*time.Second, cfg.Repository.OperationTimeout)
}

func TestLoadConfigMongo(t *testing.T) {
	t.Setenv("STORE_DRIVER", "Mongo")
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017/testdb")
	t.Setenv("MONGODB_DATABASE", "persons_test")
	t.Setenv("SERVER_ENVIRONMENT", "production")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, DriverMongo, cfg.Store.Driver)
	require.Equal(t, "persons_test", cfg.MongoDB.Database)
	require.Equal(t, "json", cfg.Log.Format)
}

func TestLoadConfigRequiresDriverSettings(t *testing.T) {
	cases := map[string]string{
		DriverMongo:     "MONGODB_URI",
		DriverFirestore: "FIRESTORE_PROJECT_ID",
		DriverRedis:     "REDIS_HOST",
		DriverPostgres:  "POSTGRES_DSN",
	}
	for driver, key := range cases {
		t.Run(driver, func(t *testing.T) {
			t.Setenv("STORE_DRIVER", driver)
			t.Setenv(key, "")
			_, err := LoadConfig()
			require.Error(t, err)
			require.Contains(t, err.Error(), key)
		})
	}

	t.Setenv("STORE_DRIVER", "cassandra")
	_, err := LoadConfig()
	require.ErrorContains(t, err, "unknown store driver")
}

func TestValidateClampsWriteConcurrency(t *testing.T) {
	cfg := &Config{Store: StoreConfig{Driver: DriverMemory}}
	require.NoError(t, cfg.Validate())
	require.Equal(t, 1, cfg.Repository.WriteConcurrency)
}

func TestLoadConfigAuth(t *testing.T) {
	t.Setenv("AUTH_MODE", "JWT")
	t.Setenv("AUTH_JWT_SECRET", "short")
	_, err := LoadConfig()
	require.ErrorContains(t, err, "AUTH_JWT_SECRET")

	t.Setenv("AUTH_JWT_SECRET", "0123456789abcdef0123456789abcdef")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, AuthJWT, cfg.Auth.Mode)

	t.Setenv("AUTH_MODE", "oidc")
	_, err = LoadConfig()
	require.ErrorContains(t, err, "AUTH_OIDC_ISSUER")

	t.Setenv("AUTH_MODE", "basic")
	_, err = LoadConfig()
	require.ErrorContains(t, err, "unknown auth mode")
}

func TestLoadConfigMinIO(t *testing.T) {
	t.Setenv("MINIO_ENDPOINT", "localhost:9000")
	t.Setenv("MINIO_USE_SSL", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "localhost:9000", cfg.MinIO.Endpoint)
	require.True(t, cfg.MinIO.UseSSL)
	require.Equal(t, "personstore", cfg.MinIO.Bucket)
}
