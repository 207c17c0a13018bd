package person

import (
	"context"
	"fmt"
)

// Store is the persistence boundary the service consumes. Implementations
// live in the repository package.
type Store interface {
	// Insert adds a new document and returns its id. Duplicates are allowed.
	Insert(ctx context.Context, p Person) (string, error)
	// Query returns a snapshot of the documents matching q.
	Query(ctx context.Context, q Query) ([]Document, error)
	// MergeUpdate overwrites only the fields set in patch.
	MergeUpdate(ctx context.Context, id string, patch Patch) error
	// Remove deletes the whole document.
	Remove(ctx context.Context, id string) error
	// RemoveField deletes a single field of the document. Unknown fields are a no-op.
	RemoveField(ctx context.Context, id string, field string) error
}

// Op is a comparison operator of a query filter. The values match the
// operators understood by Firestore.
type Op string

const (
	OpEq Op = "=="
	OpGt Op = ">"
	OpLt Op = "<"
)

// Filter constrains one field.
type Filter struct {
	Field string
	Op    Op
	Value any
}

// Query is a conjunction of filters with an optional ascending sort key.
type Query struct {
	Filters []Filter
	OrderBy string
}

// MatchQuery selects documents whose three fields equal criteria.
func MatchQuery(criteria Person) Query {
	return Query{Filters: []Filter{
		{Field: FieldFirstName, Op: OpEq, Value: criteria.FirstName},
		{Field: FieldLastName, Op: OpEq, Value: criteria.LastName},
		{Field: FieldAge, Op: OpEq, Value: criteria.Age},
	}}
}

// AgeRangeQuery selects documents with from < age < to, ordered by age.
func AgeRangeQuery(from, to int) Query {
	return Query{
		Filters: []Filter{
			{Field: FieldAge, Op: OpGt, Value: from},
			{Field: FieldAge, Op: OpLt, Value: to},
		},
		OrderBy: FieldAge,
	}
}

// Validate rejects filters on unknown fields, unknown operators and values of
// the wrong type. Stores call it before translating a query.
func (q Query) Validate() error {
	for _, f := range q.Filters {
		switch f.Op {
		case OpEq, OpGt, OpLt:
		default:
			return fmt.Errorf("unsupported operator %q", f.Op)
		}
		switch f.Field {
		case FieldFirstName, FieldLastName:
			if _, ok := f.Value.(string); !ok {
				return fmt.Errorf("filter on %s needs a string value, got %T", f.Field, f.Value)
			}
		case FieldAge:
			if _, ok := f.Value.(int); !ok {
				return fmt.Errorf("filter on %s needs an int value, got %T", f.Field, f.Value)
			}
		default:
			return fmt.Errorf("unsupported filter field %q", f.Field)
		}
	}
	switch q.OrderBy {
	case "", FieldFirstName, FieldLastName, FieldAge:
	default:
		return fmt.Errorf("unsupported order field %q", q.OrderBy)
	}
	return nil
}

// Matches evaluates the filters against p. Stores without a native query
// language use it.
func (q Query) Matches(p Person) bool {
	for _, f := range q.Filters {
		v, ok := p.Value(f.Field)
		if !ok {
			return false
		}
		if !compare(v, f.Op, f.Value) {
			return false
		}
	}
	return true
}

// AgeBounds reports the exclusive age bounds expressed by the filters, if any.
// Stores with a sorted age index use it to narrow the scan.
func (q Query) AgeBounds() (lo, hi int, hasLo, hasHi bool, eq *int) {
	for _, f := range q.Filters {
		if f.Field != FieldAge {
			continue
		}
		n, _ := f.Value.(int)
		switch f.Op {
		case OpGt:
			if !hasLo || n > lo {
				lo = n
			}
			hasLo = true
		case OpLt:
			if !hasHi || n < hi {
				hi = n
			}
			hasHi = true
		case OpEq:
			v := n
			eq = &v
		}
	}
	return lo, hi, hasLo, hasHi, eq
}

// Less orders a before b by the query's sort key. It returns false for equal
// keys so a stable sort keeps insertion order.
func (q Query) Less(a, b Person) bool {
	switch q.OrderBy {
	case FieldAge:
		return a.Age < b.Age
	case FieldFirstName:
		return a.FirstName < b.FirstName
	case FieldLastName:
		return a.LastName < b.LastName
	}
	return false
}

func compare(have any, op Op, want any) bool {
	switch h := have.(type) {
	case string:
		w, ok := want.(string)
		if !ok {
			return false
		}
		switch op {
		case OpEq:
			return h == w
		case OpGt:
			return h > w
		case OpLt:
			return h < w
		}
	case int:
		w, ok := want.(int)
		if !ok {
			return false
		}
		switch op {
		case OpEq:
			return h == w
		case OpGt:
			return h > w
		case OpLt:
			return h < w
		}
	}
	return false
}
