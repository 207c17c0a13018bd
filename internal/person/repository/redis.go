package repository

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/firestoretut/personstore/internal/person"
)

// RedisRepo implements Store using Redis.
// Each person is stored as JSON under "<prefix>doc:<id>" and indexed in the
// sorted set "<prefix>by_age" (score = age, member = id). Ids are time-ordered,
// so members with equal scores come back in insertion order.
type RedisRepo struct {
	client *redis.Client
	prefix string
}

// NewRedisRepo creates a Redis-based person store. Prefix may be empty.
func NewRedisRepo(client *redis.Client, prefix string) *RedisRepo {
	if prefix == "" {
		prefix = "person:"
	}
	return &RedisRepo{client: client, prefix: prefix}
}

func (r *RedisRepo) docKey(id string) string { return r.prefix + "doc:" + id }

func (r *RedisRepo) indexKey() string { return r.prefix + "by_age" }

func (r *RedisRepo) Insert(ctx context.Context, p person.Person) (string, error) {
	id, err := newID()
	if err != nil {
		return "", err
	}
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.docKey(id), b, 0)
		pipe.ZAdd(ctx, r.indexKey(), redis.Z{Score: float64(p.Age), Member: id})
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *RedisRepo) Query(ctx context.Context, q person.Query) ([]person.Document, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	ids, err := r.client.ZRangeByScore(ctx, r.indexKey(), scoreRange(q)).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []person.Document{}, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.docKey(id)
	}
	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	out := make([]person.Document, 0, len(ids))
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			// removed between the index read and the fetch
			continue
		}
		var p person.Person
		if err := json.Unmarshal([]byte(s), &p); err != nil {
			return nil, err
		}
		if q.Matches(p) {
			out = append(out, person.Document{ID: ids[i], Person: p})
		}
	}
	if q.OrderBy != "" && q.OrderBy != person.FieldAge {
		sort.SliceStable(out, func(i, j int) bool { return q.Less(out[i].Person, out[j].Person) })
	}
	return out, nil
}

func (r *RedisRepo) MergeUpdate(ctx context.Context, id string, patch person.Patch) error {
	return r.modify(ctx, id, patch.Apply)
}

func (r *RedisRepo) Remove(ctx context.Context, id string) error {
	var del *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, r.docKey(id))
		pipe.ZRem(ctx, r.indexKey(), id)
		return nil
	})
	if err != nil {
		return err
	}
	if del.Val() == 0 {
		return person.ErrNotFound
	}
	return nil
}

func (r *RedisRepo) RemoveField(ctx context.Context, id string, field string) error {
	return r.modify(ctx, id, func(p person.Person) person.Person {
		out, _ := person.ClearField(p, field)
		return out
	})
}

// modify runs a read-modify-write of one document under WATCH so a concurrent
// writer makes this write fail instead of being overwritten.
func (r *RedisRepo) modify(ctx context.Context, id string, fn func(person.Person) person.Person) error {
	key := r.docKey(id)
	return r.client.Watch(ctx, func(tx *redis.Tx) error {
		b, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return person.ErrNotFound
		}
		if err != nil {
			return err
		}
		var p person.Person
		if err := json.Unmarshal(b, &p); err != nil {
			return err
		}
		p = fn(p)
		nb, err := json.Marshal(p)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, nb, 0)
			pipe.ZAdd(ctx, r.indexKey(), redis.Z{Score: float64(p.Age), Member: id})
			return nil
		})
		return err
	}, key)
}

func scoreRange(q person.Query) *redis.ZRangeBy {
	lo, hi, hasLo, hasHi, eq := q.AgeBounds()
	if eq != nil {
		s := strconv.Itoa(*eq)
		return &redis.ZRangeBy{Min: s, Max: s}
	}
	rng := &redis.ZRangeBy{Min: "-inf", Max: "+inf"}
	if hasLo {
		rng.Min = "(" + strconv.Itoa(lo)
	}
	if hasHi {
		rng.Max = "(" + strconv.Itoa(hi)
	}
	return rng
}
