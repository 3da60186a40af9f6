// Package mongostore is a MongoDB queryable. Predicates are lowered to bson
// filters and run with Find and CountDocuments.
package mongostore

import (
	"context"
	"fmt"
	"iter"
	"reflect"
	"slices"
	"time"

	"github.com/architeacher/smartsearch/pkg/circuitbreaker"
	"github.com/architeacher/smartsearch/pkg/logger"
	"github.com/architeacher/smartsearch/pkg/search/queryable"
	"github.com/architeacher/smartsearch/pkg/spec"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type (
	// Collection is the part of *mongo.Collection a query needs.
	Collection interface {
		Find(ctx context.Context, filter any, opts ...*options.FindOptions) (*mongo.Cursor, error)
		CountDocuments(ctx context.Context, filter any, opts ...*options.CountOptions) (int64, error)
	}

	Option func(*store)

	store struct {
		coll       Collection
		logger     logger.Logger
		breaker    *circuitbreaker.CircuitBreaker
		translator *Translator
	}

	ordering struct {
		path string
		dir  queryable.Direction
	}

	// Query is an immutable find over one collection.
	Query[M any] struct {
		store   *store
		filters []spec.Specification
		orders  []ordering
		skip    int
		take    int
	}
)

var _ queryable.Queryable[struct{}] = Query[struct{}]{}

func WithLogger(l logger.Logger) Option {
	return func(s *store) { s.logger = l }
}

func WithCircuitBreaker(cb *circuitbreaker.CircuitBreaker) Option {
	return func(s *store) { s.breaker = cb }
}

func New[M any](coll Collection, opts ...Option) Query[M] {
	st := &store{
		coll:       coll,
		logger:     logger.Nop(),
		translator: NewTranslator(reflect.TypeFor[M]()),
	}

	for _, opt := range opts {
		opt(st)
	}

	return Query[M]{store: st, take: -1}
}

func (q Query[M]) Where(s spec.Specification) queryable.Queryable[M] {
	if s == nil {
		return q
	}

	q.filters = append(slices.Clip(q.filters), s)

	return q
}

func (q Query[M]) OrderBy(path string, dir queryable.Direction) queryable.Queryable[M] {
	q.orders = []ordering{{path: path, dir: dir}}

	return q
}

func (q Query[M]) ThenBy(path string, dir queryable.Direction) queryable.Queryable[M] {
	q.orders = append(slices.Clip(q.orders), ordering{path: path, dir: dir})

	return q
}

func (q Query[M]) Skip(n int) queryable.Queryable[M] {
	q.skip = max(n, 0)

	return q
}

func (q Query[M]) Take(n int) queryable.Queryable[M] {
	q.take = queryable.NarrowLimit(q.take, n)

	return q
}

// Filter is the bson filter of every predicate joined with $and.
func (q Query[M]) Filter() (bson.D, error) {
	switch len(q.filters) {
	case 0:
		return bson.D{}, nil
	case 1:
		return q.store.translator.Filter(q.filters[0])
	default:
		return q.store.translator.Filter(spec.Must(q.filters...))
	}
}

// FindOptions carries the ordering and paging of q.
func (q Query[M]) FindOptions() (*options.FindOptions, error) {
	opts := options.Find()

	if len(q.orders) > 0 {
		sort := make(bson.D, 0, len(q.orders))

		for _, o := range q.orders {
			e, err := q.store.translator.Sort(o.path, o.dir)
			if err != nil {
				return nil, err
			}

			sort = append(sort, e)
		}

		opts.SetSort(sort)
	}

	if q.skip > 0 {
		opts.SetSkip(int64(q.skip))
	}

	if q.take >= 0 {
		opts.SetLimit(int64(q.take))
	}

	return opts, nil
}

func (q Query[M]) find(ctx context.Context) (*mongo.Cursor, error) {
	filter, err := q.Filter()
	if err != nil {
		return nil, err
	}

	opts, err := q.FindOptions()
	if err != nil {
		return nil, err
	}

	return run(ctx, q.store, "find", func() (*mongo.Cursor, error) {
		cursor, err := q.store.coll.Find(ctx, filter, opts)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrQuery, err)
		}

		return cursor, nil
	})
}

func (q Query[M]) ToList(ctx context.Context) ([]M, error) {
	// A zero limit means no limit to the server.
	if q.take == 0 {
		return []M{}, nil
	}

	cursor, err := q.find(ctx)
	if err != nil {
		return nil, err
	}

	items := []M{}
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQuery, err)
	}

	return items, nil
}

// Count ignores ordering and paging.
func (q Query[M]) Count(ctx context.Context) (int, error) {
	filter, err := q.Filter()
	if err != nil {
		return 0, err
	}

	return run(ctx, q.store, "count", func() (int, error) {
		n, err := q.store.coll.CountDocuments(ctx, filter)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrQuery, err)
		}

		return int(n), nil
	})
}

func (q Query[M]) Stream(ctx context.Context) iter.Seq2[M, error] {
	return func(yield func(M, error) bool) {
		var zero M

		if q.take == 0 {
			return
		}

		cursor, err := q.find(ctx)
		if err != nil {
			yield(zero, err)

			return
		}
		defer cursor.Close(ctx)

		for cursor.Next(ctx) {
			var item M
			if err := cursor.Decode(&item); err != nil {
				yield(zero, fmt.Errorf("%w: %v", ErrQuery, err))

				return
			}

			if !yield(item, nil) {
				return
			}
		}

		if err := cursor.Err(); err != nil {
			yield(zero, fmt.Errorf("%w: %v", ErrQuery, err))
		}
	}
}

func run[T any](ctx context.Context, st *store, op string, fn func() (T, error)) (T, error) {
	start := time.Now()

	result, err := circuitbreaker.Execute(st.breaker, fn)

	log := st.logger.WithContext(ctx)
	if err != nil {
		log.Error().
			Err(err).
			Str("operation", op).
			Str("breaker", st.breaker.State()).
			Msg("mongo operation failed")

		return result, err
	}

	log.Debug().
		Str("operation", op).
		Dur("elapsed", time.Since(start)).
		Msg("mongo operation executed")

	return result, nil
}
