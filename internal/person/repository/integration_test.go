//go:build integration

package repository

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/firestoretut/personstore/internal/database"
	"github.com/firestoretut/personstore/internal/person"
)

// Run with: go test -tags=integration ./internal/person/repository/...
// Each backend is skipped unless its endpoint is configured.

func uniqueName(prefix string) string {
	return prefix + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func TestMongoRepoIntegration(t *testing.T) {
	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		t.Skip("MONGODB_URI not set")
	}
	ctx := context.Background()
	client, err := database.ConnectMongo(ctx, uri, 5*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })
	db := client.Database(uniqueName("personstore_it"))
	t.Cleanup(func() { _ = db.Drop(context.Background()) })

	runStoreConformance(t, conformanceOpts{insertionOrderTies: true}, func(t *testing.T) person.Store {
		r, err := NewMongoRepo(ctx, db.Collection(uniqueName("persons")))
		require.NoError(t, err)
		return r
	})
}

func TestFirestoreRepoIntegration(t *testing.T) {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	ctx := context.Background()
	client, err := database.ConnectFirestore(ctx, "personstore-it", "", 5*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	runStoreConformance(t, conformanceOpts{}, func(t *testing.T) person.Store {
		return NewFirestoreRepo(client, uniqueName("Persons"))
	})
}

func TestPostgresRepoIntegration(t *testing.T) {
	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_DSN not set")
	}
	ctx := context.Background()
	pool, err := database.ConnectPostgres(ctx, dsn, 4, 5*time.Second)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	runStoreConformance(t, conformanceOpts{insertionOrderTies: true}, func(t *testing.T) person.Store {
		table := uniqueName("persons")
		r, err := NewPostgresRepo(ctx, pool, table)
		require.NoError(t, err)
		t.Cleanup(func() { _, _ = pool.Exec(context.Background(), "DROP TABLE IF EXISTS "+r.table) })
		return r
	})
}
