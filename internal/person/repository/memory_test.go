package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/firestoretut/personstore/internal/person"
)

func TestMemoryRepoConformance(t *testing.T) {
	runStoreConformance(t, conformanceOpts{insertionOrderTies: true}, func(t *testing.T) person.Store { return NewMemoryRepo() })
}

func TestMemoryRepoCRUD(t *testing.T) {
	r := NewMemoryRepo()
	ctx := context.Background()
	id, err := r.Insert(ctx, person.Person{FirstName: "Ann", LastName: "Lee", Age: 30})
	require.NoError(t, err)
	require.NotEmpty(t, id)
	require.Equal(t, 1, r.Len())

	name := "Anna"
	require.NoError(t, r.MergeUpdate(ctx, id, person.Patch{FirstName: &name}))
	docs, err := r.Query(ctx, person.Query{})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Equal(t, "Anna", docs[0].Person.FirstName)

	require.NoError(t, r.Remove(ctx, id))
	require.Equal(t, 0, r.Len())
}

func TestMemoryRepoTiesKeepInsertionOrder(t *testing.T) {
	r := NewMemoryRepo()
	ctx := context.Background()
	for _, n := range []string{"first", "second", "third"} {
		_, err := r.Insert(ctx, person.Person{FirstName: n, Age: 50})
		require.NoError(t, err)
	}
	_, err := r.Insert(ctx, person.Person{FirstName: "young", Age: 10})
	require.NoError(t, err)

	docs, err := r.Query(ctx, person.AgeRangeQuery(0, 100))
	require.NoError(t, err)
	names := []string{}
	for _, d := range docs {
		names = append(names, d.Person.FirstName)
	}
	require.Equal(t, []string{"young", "first", "second", "third"}, names)
}

func TestMemoryRepoHonoursCancelledContext(t *testing.T) {
	r := NewMemoryRepo()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Insert(ctx, person.Person{})
	require.ErrorIs(t, err, context.Canceled)
	_, err = r.Query(ctx, person.Query{})
	require.ErrorIs(t, err, context.Canceled)
}
