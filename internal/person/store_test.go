package person

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAgeRangeQueryIsExclusive(t *testing.T) {
	q := AgeRangeQuery(20, 35)
	require.NoError(t, q.Validate())
	require.False(t, q.Matches(Person{Age: 20}))
	require.True(t, q.Matches(Person{Age: 21}))
	require.True(t, q.Matches(Person{Age: 34}))
	require.False(t, q.Matches(Person{Age: 35}))

	lo, hi, hasLo, hasHi, eq := q.AgeBounds()
	require.True(t, hasLo)
	require.True(t, hasHi)
	require.Nil(t, eq)
	require.Equal(t, 20, lo)
	require.Equal(t, 35, hi)
}

func TestMatchQueryNeedsAllThreeFields(t *testing.T) {
	q := MatchQuery(Person{FirstName: "Ann", LastName: "Lee", Age: 30})
	require.NoError(t, q.Validate())
	require.True(t, q.Matches(Person{FirstName: "Ann", LastName: "Lee", Age: 30}))
	require.False(t, q.Matches(Person{FirstName: "Ann", LastName: "Lee", Age: 31}))
	require.False(t, q.Matches(Person{FirstName: "ann", LastName: "Lee", Age: 30}))
	require.False(t, q.Matches(Person{FirstName: "Ann", LastName: "", Age: 30}))

	_, _, _, _, eq := q.AgeBounds()
	require.NotNil(t, eq)
	require.Equal(t, 30, *eq)
}

func TestQueryValidate(t *testing.T) {
	require.Error(t, Query{Filters: []Filter{{Field: "nickname", Op: OpEq, Value: "x"}}}.Validate())
	require.Error(t, Query{Filters: []Filter{{Field: FieldAge, Op: ">=", Value: 1}}}.Validate())
	require.Error(t, Query{Filters: []Filter{{Field: FieldAge, Op: OpEq, Value: "1"}}}.Validate())
	require.Error(t, Query{OrderBy: "createdAt"}.Validate())
	require.NoError(t, Query{}.Validate())
}

func TestBatchResultErr(t *testing.T) {
	require.NoError(t, BatchResult{Matched: 2, Applied: 2}.Err())

	boom := errors.New("boom")
	r := BatchResult{Matched: 3, Applied: 2, Failures: []Failure{{ID: "b", Err: boom}}}
	err := r.Err()
	require.ErrorIs(t, err, boom)
	require.Contains(t, err.Error(), "document b")
	require.False(t, r.NoMatch())
	require.True(t, BatchResult{}.NoMatch())
}

func TestBackendErrorUnwraps(t *testing.T) {
	err := fmt.Errorf("save: %w", &BackendError{Op: "insert", Err: ErrNotFound})
	require.True(t, IsBackend(err))
	require.ErrorIs(t, err, ErrNotFound)
	require.False(t, IsValidation(err))
}
