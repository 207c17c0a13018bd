package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/firestoretut/personstore/internal/config"
	"github.com/firestoretut/personstore/internal/person"
)

// Snapshot is the object written by an export.
type Snapshot struct {
	TakenAt time.Time       `json:"takenAt"`
	From    int             `json:"from"`
	To      int             `json:"to"`
	Persons []person.Person `json:"persons"`
}

// snapshotLayout keeps nanoseconds so back-to-back exports get distinct keys.
const snapshotLayout = "20060102T150405.000000000Z"

// SnapshotKey names the object of a snapshot taken at t.
func SnapshotKey(t time.Time) string {
	return "snapshots/persons-" + t.UTC().Format(snapshotLayout) + ".json"
}

// MinIOStorage writes snapshots to an S3 compatible bucket.
type MinIOStorage struct {
	client *minio.Client
	bucket string
}

// NewMinIOStorage creates a new MinIO storage client and ensures the bucket exists.
func NewMinIOStorage(ctx context.Context, cfg config.MinIOConfig) (*MinIOStorage, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio config missing: MINIO_ENDPOINT is empty")
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio new: %w", err)
	}
	s := &MinIOStorage{client: mc, bucket: cfg.Bucket}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mc.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		// ignore "already exists" style errors
		exist, xerr := mc.BucketExists(ctx, s.bucket)
		if xerr != nil || !exist {
			return nil, fmt.Errorf("minio bucket ensure: %w", err)
		}
	}
	return s, nil
}

// PutSnapshot uploads snap as JSON and returns its object key.
func (s *MinIOStorage) PutSnapshot(ctx context.Context, snap Snapshot) (string, error) {
	body, err := json.Marshal(snap)
	if err != nil {
		return "", err
	}
	key := SnapshotKey(snap.TakenAt)
	_, err = s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(body), int64(len(body)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return key, nil
}
