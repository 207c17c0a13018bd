package repository

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/firestoretut/personstore/internal/person"
)

// FirestoreRepo implements Store on a Cloud Firestore collection. Document ids
// are Firestore auto-ids; the order of documents with equal sort keys is
// whatever Firestore returns.
type FirestoreRepo struct {
	col *firestore.CollectionRef
}

func NewFirestoreRepo(client *firestore.Client, collection string) *FirestoreRepo {
	if collection == "" {
		collection = person.DefaultCollection
	}
	return &FirestoreRepo{col: client.Collection(collection)}
}

func (f *FirestoreRepo) Insert(ctx context.Context, p person.Person) (string, error) {
	ref, _, err := f.col.Add(ctx, p)
	if err != nil {
		return "", err
	}
	return ref.ID, nil
}

func (f *FirestoreRepo) Query(ctx context.Context, q person.Query) ([]person.Document, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	fq := f.col.Query
	for _, flt := range q.Filters {
		fq = fq.Where(flt.Field, string(flt.Op), flt.Value)
	}
	if q.OrderBy != "" {
		fq = fq.OrderBy(q.OrderBy, firestore.Asc)
	}
	snaps, err := fq.Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	out := make([]person.Document, 0, len(snaps))
	for _, s := range snaps {
		var p person.Person
		if err := s.DataTo(&p); err != nil {
			return nil, fmt.Errorf("decode %s: %w", s.Ref.ID, err)
		}
		out = append(out, person.Document{ID: s.Ref.ID, Person: p})
	}
	return out, nil
}

// MergeUpdate writes only the patched field paths. Update fails on a missing
// document where Set with MergeAll would recreate it.
func (f *FirestoreRepo) MergeUpdate(ctx context.Context, id string, patch person.Patch) error {
	ref := f.col.Doc(id)
	if patch.IsEmpty() {
		_, err := ref.Get(ctx)
		return mapFirestoreErr(err)
	}
	updates := make([]firestore.Update, 0, 3)
	for k, v := range patch.Fields() {
		updates = append(updates, firestore.Update{Path: k, Value: v})
	}
	_, err := ref.Update(ctx, updates)
	return mapFirestoreErr(err)
}

func (f *FirestoreRepo) Remove(ctx context.Context, id string) error {
	_, err := f.col.Doc(id).Delete(ctx, firestore.Exists)
	return mapFirestoreErr(err)
}

func (f *FirestoreRepo) RemoveField(ctx context.Context, id string, field string) error {
	_, err := f.col.Doc(id).Update(ctx, []firestore.Update{{Path: field, Value: firestore.Delete}})
	return mapFirestoreErr(err)
}

func mapFirestoreErr(err error) error {
	if err == nil {
		return nil
	}
	if status.Code(err) == codes.NotFound {
		return person.ErrNotFound
	}
	return err
}
