package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/firestoretut/personstore/internal/person"
)

// MemoryRepo is an in-process Store used by unit tests and local runs.
// Documents are kept in insertion order so ties in a sorted query come back
// in the order they were saved.
type MemoryRepo struct {
	mu    sync.RWMutex
	order []string
	store map[string]person.Person
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{store: make(map[string]person.Person)}
}

func (m *MemoryRepo) Insert(ctx context.Context, p person.Person) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id, err := newID()
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[id] = p
	m.order = append(m.order, id)
	return id, nil
}

func (m *MemoryRepo) Query(ctx context.Context, q person.Query) ([]person.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	out := make([]person.Document, 0)
	for _, id := range m.order {
		p := m.store[id]
		if q.Matches(p) {
			out = append(out, person.Document{ID: id, Person: p})
		}
	}
	m.mu.RUnlock()
	if q.OrderBy != "" {
		sort.SliceStable(out, func(i, j int) bool { return q.Less(out[i].Person, out[j].Person) })
	}
	return out, nil
}

func (m *MemoryRepo) MergeUpdate(ctx context.Context, id string, patch person.Patch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok {
		return person.ErrNotFound
	}
	m.store[id] = patch.Apply(p)
	return nil
}

func (m *MemoryRepo) Remove(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[id]; !ok {
		return person.ErrNotFound
	}
	delete(m.store, id)
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *MemoryRepo) RemoveField(ctx context.Context, id string, field string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok {
		return person.ErrNotFound
	}
	m.store[id], _ = person.ClearField(p, field)
	return nil
}

// Len returns the number of stored documents.
func (m *MemoryRepo) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.store)
}

// newID returns a time-ordered id, so lexical order follows insertion order.
func newID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	return id.String(), nil
}
