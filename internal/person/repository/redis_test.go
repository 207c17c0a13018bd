package repository

import (
	"context"
	"testing"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/firestoretut/personstore/internal/person"
)

func newMiniredisRepo(t *testing.T) (*RedisRepo, *mr.Miniredis) {
	t.Helper()
	m, err := mr.Run()
	require.NoError(t, err)
	t.Cleanup(m.Close)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisRepo(client, "test:person:"), m
}

func TestRedisRepoConformance(t *testing.T) {
	runStoreConformance(t, conformanceOpts{insertionOrderTies: true}, func(t *testing.T) person.Store {
		r, _ := newMiniredisRepo(t)
		return r
	})
}

func TestRedisRepoKeyLayout(t *testing.T) {
	r, m := newMiniredisRepo(t)
	ctx := context.Background()

	id, err := r.Insert(ctx, person.Person{FirstName: "Bo", LastName: "Kim", Age: 40})
	require.NoError(t, err)

	raw, err := m.Get("test:person:doc:" + id)
	require.NoError(t, err)
	require.JSONEq(t, `{"firstName":"Bo","lastName":"Kim","age":40}`, raw)

	score, err := m.ZScore("test:person:by_age", id)
	require.NoError(t, err)
	require.Equal(t, 40.0, score)

	// index follows age changes
	age := 41
	require.NoError(t, r.MergeUpdate(ctx, id, person.Patch{Age: &age}))
	score, err = m.ZScore("test:person:by_age", id)
	require.NoError(t, err)
	require.Equal(t, 41.0, score)

	require.NoError(t, r.Remove(ctx, id))
	require.False(t, m.Exists("test:person:doc:"+id))
	members, err := m.ZMembers("test:person:by_age")
	if err == nil {
		require.Empty(t, members)
	}
}

func TestRedisRepoSkipsDanglingIndexEntries(t *testing.T) {
	r, m := newMiniredisRepo(t)
	ctx := context.Background()
	id, err := r.Insert(ctx, person.Person{FirstName: "Ann", Age: 30})
	require.NoError(t, err)

	m.Del("test:person:doc:" + id)
	docs, err := r.Query(ctx, person.AgeRangeQuery(0, 100))
	require.NoError(t, err)
	require.Empty(t, docs)
}

func TestRedisRepoDefaultPrefix(t *testing.T) {
	r := NewRedisRepo(nil, "")
	require.Equal(t, "person:doc:x", r.docKey("x"))
	require.Equal(t, "person:by_age", r.indexKey())
}

func TestScoreRange(t *testing.T) {
	rng := scoreRange(person.AgeRangeQuery(20, 35))
	require.Equal(t, "(20", rng.Min)
	require.Equal(t, "(35", rng.Max)

	rng = scoreRange(person.MatchQuery(person.Person{Age: 7}))
	require.Equal(t, "7", rng.Min)
	require.Equal(t, "7", rng.Max)

	rng = scoreRange(person.Query{})
	require.Equal(t, "-inf", rng.Min)
	require.Equal(t, "+inf", rng.Max)
}
