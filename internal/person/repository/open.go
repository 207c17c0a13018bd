package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"google.golang.org/api/option"

	"github.com/firestoretut/personstore/internal/config"
	"github.com/firestoretut/personstore/internal/database"
	"github.com/firestoretut/personstore/internal/person"
	"github.com/firestoretut/personstore/pkg/logger"
)

const connectBackoff = 500 * time.Millisecond

// Open connects the store selected by cfg.Store.Driver. The returned close
// function releases the underlying client and is never nil.
func Open(ctx context.Context, cfg *config.Config) (person.Store, func() error, error) {
	noop := func() error { return nil }
	retries := cfg.Store.ConnectRetries
	timeout := cfg.Store.ConnectTimeout

	switch cfg.Store.Driver {
	case config.DriverMemory:
		logger.Infof("using in-memory person store")
		return NewMemoryRepo(), noop, nil

	case config.DriverMongo:
		mongoTimeout := cfg.MongoDB.Timeout
		if mongoTimeout <= 0 {
			mongoTimeout = timeout
		}
		client, err := database.Retry(ctx, "mongo", retries, connectBackoff, func(ctx context.Context) (*mongo.Client, error) {
			return database.ConnectMongo(ctx, cfg.MongoDB.URI, mongoTimeout)
		})
		if err != nil {
			return nil, noop, err
		}
		closeFn := func() error { return client.Disconnect(context.Background()) }
		repo, err := NewMongoRepo(ctx, client.Database(cfg.MongoDB.Database).Collection(cfg.Store.Collection))
		if err != nil {
			_ = closeFn()
			return nil, noop, err
		}
		logger.Infof("using mongo person store %s.%s", cfg.MongoDB.Database, cfg.Store.Collection)
		return repo, closeFn, nil

	case config.DriverFirestore:
		var opts []option.ClientOption
		if cfg.Firestore.CredentialsFile != "" && cfg.Firestore.EmulatorHost == "" {
			opts = append(opts, option.WithCredentialsFile(cfg.Firestore.CredentialsFile))
		}
		client, err := database.Retry(ctx, "firestore", retries, connectBackoff, func(ctx context.Context) (*firestore.Client, error) {
			return database.ConnectFirestore(ctx, cfg.Firestore.ProjectID, cfg.Firestore.DatabaseID, timeout, opts...)
		})
		if err != nil {
			return nil, noop, err
		}
		logger.Infof("using firestore person store %s/%s", cfg.Firestore.ProjectID, cfg.Store.Collection)
		return NewFirestoreRepo(client, cfg.Store.Collection), client.Close, nil

	case config.DriverRedis:
		client, err := database.Retry(ctx, "redis", retries, connectBackoff, func(ctx context.Context) (*redis.Client, error) {
			return database.ConnectRedis(ctx, cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB, timeout)
		})
		if err != nil {
			return nil, noop, err
		}
		logger.Infof("using redis person store at %s", cfg.Redis.Addr())
		return NewRedisRepo(client, cfg.Redis.Prefix), client.Close, nil

	case config.DriverPostgres:
		pool, err := database.Retry(ctx, "postgres", retries, connectBackoff, func(ctx context.Context) (*pgxpool.Pool, error) {
			return database.ConnectPostgres(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxConns, timeout)
		})
		if err != nil {
			return nil, noop, err
		}
		closeFn := func() error { pool.Close(); return nil }
		repo, err := NewPostgresRepo(ctx, pool, strings.ToLower(cfg.Store.Collection))
		if err != nil {
			pool.Close()
			return nil, noop, err
		}
		logger.Infof("using postgres person store, table %s", repo.table)
		return repo, closeFn, nil
	}
	return nil, noop, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}
