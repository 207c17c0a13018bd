package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/firestoretut/personstore/internal/person"
	"github.com/firestoretut/personstore/pkg/logger"
	"github.com/firestoretut/personstore/pkg/metrics"
)

// Operation names used in errors, logs and metrics.
const (
	OpSave        = "save"
	OpQueryRange  = "query_range"
	OpUpdate      = "update"
	OpDelete      = "delete"
	OpDeleteField = "delete_field"
)

// Service translates the person intents into Store operations.
type Service struct {
	store       person.Store
	log         *zap.SugaredLogger
	concurrency int
	timeout     time.Duration
}

type Option func(*Service)

// WithWriteConcurrency bounds the per-document writes of a batch running at
// once. 1 writes sequentially.
func WithWriteConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithOperationTimeout bounds each operation, including all of its writes.
func WithOperationTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

func WithLogger(l *zap.SugaredLogger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// New returns a Service on store. The store is required.
func New(store person.Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("person store cannot be nil")
	}
	s := &Service{store: store, log: logger.Named("person"), concurrency: 4}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Save inserts p as a new document and returns its id. Matching documents
// that already exist are not deduplicated.
func (s *Service) Save(ctx context.Context, p person.Person) (id string, err error) {
	defer s.observe(OpSave, time.Now(), &err, nil)
	if err := person.Validate(p); err != nil {
		return "", err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	id, err = s.store.Insert(ctx, p)
	if err != nil {
		return "", &person.BackendError{Op: OpSave, Err: err}
	}
	s.log.Debugw("person saved", "id", id)
	return id, nil
}

// QueryByAgeRange returns the persons with from < age < to, ascending by age.
// The result is a snapshot taken at call time.
func (s *Service) QueryByAgeRange(ctx context.Context, from, to int) (out []person.Person, err error) {
	defer s.observe(OpQueryRange, time.Now(), &err, nil)
	if from >= to {
		return []person.Person{}, nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	docs, err := s.store.Query(ctx, person.AgeRangeQuery(from, to))
	if err != nil {
		return nil, &person.BackendError{Op: OpQueryRange, Err: err}
	}
	out = make([]person.Person, len(docs))
	for i, d := range docs {
		out[i] = d.Person
	}
	return out, nil
}

// UpdateByMatch merges patch into every document equal to criteria. The
// result's Matched is the number of documents selected; an empty patch writes
// nothing but still counts every match as applied.
func (s *Service) UpdateByMatch(ctx context.Context, criteria person.Person, patch person.Patch) (res person.BatchResult, err error) {
	defer s.observe(OpUpdate, time.Now(), &err, &res)
	if err := person.Validate(criteria); err != nil {
		return res, err
	}
	if patch.Age != nil && *patch.Age < 0 {
		return res, &person.ValidationError{Field: person.FieldAge, Value: fmt.Sprint(*patch.Age), Reason: "must not be negative"}
	}
	return s.runBatch(ctx, OpUpdate, criteria, func(ctx context.Context, id string) error {
		if patch.IsEmpty() {
			return nil
		}
		return s.store.MergeUpdate(ctx, id, patch)
	})
}

// DeleteByMatch removes every document equal to criteria. The result's
// Applied is the number of documents removed.
func (s *Service) DeleteByMatch(ctx context.Context, criteria person.Person) (res person.BatchResult, err error) {
	defer s.observe(OpDelete, time.Now(), &err, &res)
	if err := person.Validate(criteria); err != nil {
		return res, err
	}
	return s.runBatch(ctx, OpDelete, criteria, s.store.Remove)
}

// DeleteFieldByMatch removes a single field from every document equal to
// criteria instead of removing the documents.
//
// Deprecated: this reproduces a historical behaviour of the mobile client,
// which cleared a misspelt "firstname" field and left the documents in
// place. Use DeleteByMatch.
func (s *Service) DeleteFieldByMatch(ctx context.Context, criteria person.Person, field string) (res person.BatchResult, err error) {
	defer s.observe(OpDeleteField, time.Now(), &err, &res)
	if err := person.Validate(criteria); err != nil {
		return res, err
	}
	if field == "" {
		return res, &person.ValidationError{Field: "field", Reason: "must not be empty"}
	}
	s.log.Warnw("deprecated field delete", "field", field)
	return s.runBatch(ctx, OpDeleteField, criteria, func(ctx context.Context, id string) error {
		return s.store.RemoveField(ctx, id, field)
	})
}

func (s *Service) SaveAsync(ctx context.Context, p person.Person) *Task[string] {
	return Go(ctx, func(ctx context.Context) (string, error) { return s.Save(ctx, p) })
}

func (s *Service) QueryByAgeRangeAsync(ctx context.Context, from, to int) *Task[[]person.Person] {
	return Go(ctx, func(ctx context.Context) ([]person.Person, error) { return s.QueryByAgeRange(ctx, from, to) })
}

func (s *Service) UpdateByMatchAsync(ctx context.Context, criteria person.Person, patch person.Patch) *Task[person.BatchResult] {
	return Go(ctx, func(ctx context.Context) (person.BatchResult, error) { return s.UpdateByMatch(ctx, criteria, patch) })
}

func (s *Service) DeleteByMatchAsync(ctx context.Context, criteria person.Person) *Task[person.BatchResult] {
	return Go(ctx, func(ctx context.Context) (person.BatchResult, error) { return s.DeleteByMatch(ctx, criteria) })
}

// runBatch issues the match query, then one write per matched document.
// A failed write is recorded and does not stop its siblings. Once ctx is
// done no new write starts and every remaining document is recorded as
// failed with the context error.
func (s *Service) runBatch(ctx context.Context, op string, criteria person.Person, write func(context.Context, string) error) (person.BatchResult, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	docs, err := s.store.Query(ctx, person.MatchQuery(criteria))
	if err != nil {
		return person.BatchResult{}, &person.BackendError{Op: op, Err: err}
	}
	res := person.BatchResult{Matched: len(docs)}
	if len(docs) == 0 {
		s.log.Infow(person.NoMatchMessage, "op", op)
		return res, nil
	}

	errs := make([]error, len(docs))
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, d := range docs {
		if err := ctx.Err(); err != nil {
			errs[i] = err
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			errs[i] = safeWrite(ctx, d.ID, write)
			return nil
		})
	}
	_ = g.Wait()

	for i, err := range errs {
		if err != nil {
			res.Failures = append(res.Failures, person.Failure{ID: docs[i].ID, Err: err})
			s.log.Warnw("document write failed", "op", op, "id", docs[i].ID, "error", err)
			continue
		}
		res.Applied++
	}
	return res, nil
}

func safeWrite(ctx context.Context, id string, write func(context.Context, string) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("write panicked: %v", r)
		}
	}()
	return write(ctx, id)
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout > 0 {
		return context.WithTimeout(ctx, s.timeout)
	}
	return context.WithCancel(ctx)
}

func (s *Service) observe(op string, start time.Time, errp *error, res *person.BatchResult) {
	metrics.OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	outcome := "ok"
	switch {
	case *errp != nil && person.IsValidation(*errp):
		outcome = "invalid"
	case *errp != nil:
		outcome = "backend_error"
		s.log.Errorw("operation failed", "op", op, "error", *errp)
	case res != nil && res.NoMatch():
		outcome = "no_match"
	case res != nil && len(res.Failures) > 0:
		outcome = "partial"
	}
	if res != nil && *errp == nil {
		metrics.DocumentsMatched.WithLabelValues(op).Add(float64(res.Matched))
		metrics.WriteFailures.WithLabelValues(op).Add(float64(len(res.Failures)))
	}
	metrics.Operations.WithLabelValues(op, outcome).Inc()
}
