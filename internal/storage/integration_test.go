//go:build integration

package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/require"

	"github.com/firestoretut/personstore/internal/config"
	"github.com/firestoretut/personstore/internal/person"
)

func TestPutSnapshotIntegration(t *testing.T) {
	endpoint := os.Getenv("MINIO_ENDPOINT")
	if endpoint == "" {
		t.Skip("MINIO_ENDPOINT not set")
	}
	ctx := context.Background()
	s, err := NewMinIOStorage(ctx, config.MinIOConfig{
		Endpoint:  endpoint,
		AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		SecretKey: os.Getenv("MINIO_SECRET_KEY"),
		Bucket:    "personstore-it",
	})
	require.NoError(t, err)

	key, err := s.PutSnapshot(ctx, Snapshot{
		TakenAt: time.Now(), From: 0, To: 100,
		Persons: []person.Person{{FirstName: "Ann", LastName: "Lee", Age: 30}},
	})
	require.NoError(t, err)
	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	require.NoError(t, err)
	require.Equal(t, "application/json", info.ContentType)
}
