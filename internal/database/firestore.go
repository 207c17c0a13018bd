package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// ConnectFirestore opens a data-plane Firestore client for projectID. An empty
// databaseID selects the "(default)" database. When FIRESTORE_EMULATOR_HOST is
// set the client library talks to the emulator instead.
// Caller should call client.Close().
func ConnectFirestore(ctx context.Context, projectID, databaseID string, timeout time.Duration, opts ...option.ClientOption) (*firestore.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if databaseID == "" {
		databaseID = firestore.DefaultDatabaseID
	}
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID, opts...)
	if err != nil {
		return nil, fmt.Errorf("firestore connect: %w", err)
	}
	// a cheap read proves credentials and reachability
	iter := client.Collections(ctx)
	if _, err := iter.Next(); err != nil && !errors.Is(err, iterator.Done) {
		_ = client.Close()
		return nil, fmt.Errorf("firestore ping: %w", err)
	}
	return client, nil
}
