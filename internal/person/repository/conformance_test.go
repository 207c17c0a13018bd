package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/firestoretut/personstore/internal/person"
)

type conformanceOpts struct {
	// insertionOrderTies is set by stores that return equal ages in
	// insertion order.
	insertionOrderTies bool
}

// runStoreConformance checks the Store contract every backend must honour.
// newStore must return an empty store.
func runStoreConformance(t *testing.T, opts conformanceOpts, newStore func(t *testing.T) person.Store) {
	ctx := context.Background()
	ann := person.Person{FirstName: "Ann", LastName: "Lee", Age: 30}
	bo := person.Person{FirstName: "Bo", LastName: "Kim", Age: 40}

	t.Run("InsertAllowsDuplicates", func(t *testing.T) {
		s := newStore(t)
		id1, err := s.Insert(ctx, ann)
		require.NoError(t, err)
		id2, err := s.Insert(ctx, ann)
		require.NoError(t, err)
		require.NotEqual(t, id1, id2)

		docs, err := s.Query(ctx, person.MatchQuery(ann))
		require.NoError(t, err)
		require.Len(t, docs, 2)
	})

	t.Run("RangeIsExclusiveAndSorted", func(t *testing.T) {
		s := newStore(t)
		for _, p := range []person.Person{
			{FirstName: "d", Age: 35}, {FirstName: "c", Age: 33}, {FirstName: "a", Age: 20}, {FirstName: "b", Age: 21},
		} {
			_, err := s.Insert(ctx, p)
			require.NoError(t, err)
		}
		docs, err := s.Query(ctx, person.AgeRangeQuery(20, 35))
		require.NoError(t, err)
		require.Len(t, docs, 2)
		require.Equal(t, 21, docs[0].Person.Age)
		require.Equal(t, 33, docs[1].Person.Age)
		require.NotEmpty(t, docs[0].ID)
	})

	t.Run("RangeAcceptsHugeBounds", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Insert(ctx, ann)
		require.NoError(t, err)
		docs, err := s.Query(ctx, person.AgeRangeQuery(0, 99999999999))
		require.NoError(t, err)
		require.Len(t, docs, 1)

		docs, err = s.Query(ctx, person.AgeRangeQuery(-99999999999, 0))
		require.NoError(t, err)
		require.Empty(t, docs)
	})

	t.Run("TiesKeepInsertionOrder", func(t *testing.T) {
		if !opts.insertionOrderTies {
			t.Skip("tie order is unspecified for this store")
		}
		s := newStore(t)
		var want []string
		for i := 0; i < 20; i++ {
			id, err := s.Insert(ctx, person.Person{FirstName: fmt.Sprintf("p%02d", i), Age: 50})
			require.NoError(t, err)
			want = append(want, id)
		}
		_, err := s.Insert(ctx, person.Person{FirstName: "young", Age: 49})
		require.NoError(t, err)

		docs, err := s.Query(ctx, person.AgeRangeQuery(48, 51))
		require.NoError(t, err)
		require.Len(t, docs, 21)
		require.Equal(t, "young", docs[0].Person.FirstName)
		got := make([]string, 0, 20)
		for _, d := range docs[1:] {
			got = append(got, d.ID)
		}
		require.Equal(t, want, got)
	})

	t.Run("MatchNeedsAllFields", func(t *testing.T) {
		s := newStore(t)
		for _, p := range []person.Person{ann, {FirstName: "Ann", LastName: "Lee", Age: 31}, {FirstName: "Ann", LastName: "Li", Age: 30}, bo} {
			_, err := s.Insert(ctx, p)
			require.NoError(t, err)
		}
		docs, err := s.Query(ctx, person.MatchQuery(ann))
		require.NoError(t, err)
		require.Len(t, docs, 1)
		require.Equal(t, ann, docs[0].Person)
	})

	t.Run("MergeUpdateKeepsOtherFields", func(t *testing.T) {
		s := newStore(t)
		id, err := s.Insert(ctx, bo)
		require.NoError(t, err)
		age := 41
		require.NoError(t, s.MergeUpdate(ctx, id, person.Patch{Age: &age}))

		docs, err := s.Query(ctx, person.AgeRangeQuery(40, 42))
		require.NoError(t, err)
		require.Len(t, docs, 1)
		require.Equal(t, person.Person{FirstName: "Bo", LastName: "Kim", Age: 41}, docs[0].Person)
		require.Equal(t, id, docs[0].ID)

		// the old age no longer matches
		docs, err = s.Query(ctx, person.MatchQuery(bo))
		require.NoError(t, err)
		require.Empty(t, docs)
	})

	t.Run("RemoveDeletesWholeDocument", func(t *testing.T) {
		s := newStore(t)
		id, err := s.Insert(ctx, ann)
		require.NoError(t, err)
		_, err = s.Insert(ctx, bo)
		require.NoError(t, err)

		require.NoError(t, s.Remove(ctx, id))
		docs, err := s.Query(ctx, person.AgeRangeQuery(0, 100))
		require.NoError(t, err)
		require.Len(t, docs, 1)
		require.Equal(t, bo, docs[0].Person)
	})

	t.Run("RemoveFieldKeepsDocument", func(t *testing.T) {
		s := newStore(t)
		id, err := s.Insert(ctx, ann)
		require.NoError(t, err)

		require.NoError(t, s.RemoveField(ctx, id, "firstname"))
		docs, err := s.Query(ctx, person.MatchQuery(ann))
		require.NoError(t, err)
		require.Len(t, docs, 1)

		require.NoError(t, s.RemoveField(ctx, id, person.FieldFirstName))
		docs, err = s.Query(ctx, person.AgeRangeQuery(29, 31))
		require.NoError(t, err)
		require.Len(t, docs, 1)
		require.Equal(t, "", docs[0].Person.FirstName)
		require.Equal(t, "Lee", docs[0].Person.LastName)
	})

	t.Run("MissingDocument", func(t *testing.T) {
		s := newStore(t)
		id, err := s.Insert(ctx, ann)
		require.NoError(t, err)
		require.NoError(t, s.Remove(ctx, id))

		age := 1
		require.ErrorIs(t, s.MergeUpdate(ctx, id, person.Patch{Age: &age}), person.ErrNotFound)
		require.ErrorIs(t, s.Remove(ctx, id), person.ErrNotFound)
		require.ErrorIs(t, s.RemoveField(ctx, id, person.FieldAge), person.ErrNotFound)
	})

	t.Run("RejectsUnsupportedQuery", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Query(ctx, person.Query{Filters: []person.Filter{{Field: "nickname", Op: person.OpEq, Value: "x"}}})
		require.Error(t, err)
	})
}
