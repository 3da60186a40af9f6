// Package filtering compiles annotated filter structs into specifiers that
// constrain a queryable.
//
// Compilation happens once per (model, filter) type pair. Every exported
// filter field is classified into a resolution: a registered predicate
// factory, a disjunction group, a complex nested filter, an expression
// generator or a plain operator comparison. Problems are collected as lacks
// and reported together the first time the pair is used. Ready resolutions
// are lowered into clauses, each producing a spec.Specification (or nothing)
// for a filter value.
package filtering

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/architeacher/smartsearch/pkg/logger"
	"github.com/architeacher/smartsearch/pkg/metrics"
	"github.com/architeacher/smartsearch/pkg/metrics/noop"
	"github.com/architeacher/smartsearch/pkg/search/criterion"
	"github.com/architeacher/smartsearch/pkg/search/queryable"
	"github.com/architeacher/smartsearch/pkg/search/selection"
	"github.com/architeacher/smartsearch/pkg/spec"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"
)

type (
	// Specifier applies a filter value to a query.
	Specifier[M, F any] func(q queryable.Queryable[M], filter F) queryable.Queryable[M]

	// Specifiable is implemented by filters that apply themselves.
	Specifiable[M any] interface {
		Specify(q queryable.Queryable[M]) queryable.Queryable[M]
	}

	// Generator supplies specifiers for type pairs it knows about. The
	// returned value must be a func(queryable.Queryable[M], F) queryable.Queryable[M]
	// such as a Specifier[M, F].
	Generator interface {
		Generate(model, filter reflect.Type) (any, bool)
	}

	GeneratorFunc func(model, filter reflect.Type) (any, bool)

	Option func(*Factory)

	// Factory compiles and caches specifiers. Registrations must happen before
	// the first use of the affected type pair; a compiled pair is never
	// recompiled.
	Factory struct {
		logger  logger.Logger
		metrics metrics.Client
		splitOr bool

		mu         sync.RWMutex
		specifiers map[pairKey]entry
		group      singleflight.Group

		static     map[pairKey]any
		generators []Generator
		predicates map[pairKey]map[string]predicateFactory
		expression map[string]criterion.ExpressionGenerator
	}

	pairKey struct {
		model  reflect.Type
		filter reflect.Type
	}

	entry struct {
		specifier any
		err       error
	}

	// compiled is the type-erased specifier stored in the cache. The filter
	// value is always an addressable struct.
	compiled[M any] func(q queryable.Queryable[M], filter reflect.Value) queryable.Queryable[M]
)

func (g GeneratorFunc) Generate(model, filter reflect.Type) (any, bool) {
	return g(model, filter)
}

func WithLogger(l logger.Logger) Option {
	return func(f *Factory) { f.logger = l }
}

func WithMetrics(c metrics.Client) Option {
	return func(f *Factory) { f.metrics = c }
}

// WithOrSplit toggles splitting "AOrB" field names into disjunctions. It is
// on by default.
func WithOrSplit(enabled bool) Option {
	return func(f *Factory) { f.splitOr = enabled }
}

func NewFactory(opts ...Option) *Factory {
	f := &Factory{
		logger:     logger.Nop(),
		metrics:    noop.NewMetricsClient(),
		splitOr:    true,
		specifiers: make(map[pairKey]entry),
		static:     make(map[pairKey]any),
		predicates: make(map[pairKey]map[string]predicateFactory),
		expression: make(map[string]criterion.ExpressionGenerator),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

func keyOf[M, F any]() pairKey {
	return pairKey{model: reflect.TypeFor[M](), filter: reflect.TypeFor[F]()}
}

func (k pairKey) String() string {
	return typeName(k.model) + "|" + typeName(k.filter)
}

func typeName(t reflect.Type) string {
	if t.PkgPath() == "" {
		return t.String()
	}

	return t.PkgPath() + "." + t.Name()
}

// AddSpecifier registers a hand-written specifier for the (M, F) pair.
func AddSpecifier[M, F any](f *Factory, s Specifier[M, F]) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.static[keyOf[M, F]()] = compiled[M](func(q queryable.Queryable[M], filter reflect.Value) queryable.Queryable[M] {
		return s(q, filter.Interface().(F))
	})
}

func (f *Factory) AddGenerator(g Generator) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.generators = append(f.generators, g)
}

// AddPredicateFactory overrides the classification of one filter field. field
// is the field name, dotted for fields of nested filters ("Address.City").
func AddPredicateFactory[M, F, V any](f *Factory, field string, build func(V) spec.Specification) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := keyOf[M, F]()
	if f.predicates[key] == nil {
		f.predicates[key] = make(map[string]predicateFactory)
	}

	f.predicates[key][field] = predicateFactory{
		valueType: reflect.TypeFor[V](),
		build: func(v reflect.Value) spec.Specification {
			return build(v.Interface().(V))
		},
	}
}

// AddExpressionGenerator registers a generator referenced by name from
// criterion tags (`criterion:"generator=name"`).
func (f *Factory) AddExpressionGenerator(name string, g criterion.ExpressionGenerator) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.expression[name] = g
}

// GetSpecifier returns the specifier of the (M, F) pair, compiling it on first
// use. A pair whose criteria cannot be resolved yields a *LacksError every
// time.
func GetSpecifier[M, F any](f *Factory) (Specifier[M, F], error) {
	fn, err := specifierFor[M](f, reflect.TypeFor[F]())
	if err != nil {
		return nil, err
	}

	return func(q queryable.Queryable[M], filter F) queryable.Queryable[M] {
		return fn(q, reflect.ValueOf(&filter).Elem())
	}, nil
}

// Apply applies a filter of any struct type, or a pointer to one, to q. A nil
// filter leaves q untouched.
func Apply[M any](f *Factory, q queryable.Queryable[M], filter any) (queryable.Queryable[M], error) {
	value, ok := addressable(filter)
	if !ok {
		return q, nil
	}

	fn, err := specifierFor[M](f, value.Type())
	if err != nil {
		return q, err
	}

	return fn(q, value), nil
}

func addressable(filter any) (reflect.Value, bool) {
	v := reflect.ValueOf(filter)
	if !v.IsValid() {
		return v, false
	}

	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return v, false
		}

		return v.Elem(), true
	}

	copied := reflect.New(v.Type()).Elem()
	copied.Set(v)

	return copied, true
}

func specifierFor[M any](f *Factory, filterType reflect.Type) (compiled[M], error) {
	key := pairKey{model: reflect.TypeFor[M](), filter: filterType}

	if e, ok := f.cached(key); ok {
		return unwrap[M](e)
	}

	v, _, _ := f.group.Do(selection.TypeKey(key.model, key.filter), func() (any, error) {
		if e, ok := f.cached(key); ok {
			return e, nil
		}

		fn, err := build[M](f, key)
		e := entry{specifier: fn, err: err}

		f.mu.Lock()
		f.specifiers[key] = e
		f.mu.Unlock()

		return e, nil
	})

	return unwrap[M](v.(entry))
}

func (f *Factory) cached(key pairKey) (entry, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	e, ok := f.specifiers[key]

	return e, ok
}

func unwrap[M any](e entry) (compiled[M], error) {
	if e.err != nil {
		return nil, e.err
	}

	return e.specifier.(compiled[M]), nil
}

func build[M any](f *Factory, key pairKey) (compiled[M], error) {
	start := time.Now()

	if key.filter.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: filter %s is not a struct", ErrInvalidCriteria, key.filter)
	}

	f.mu.RLock()
	static := f.static[key]
	generators := f.generators
	c := &classifier{
		model:      key.model,
		filter:     key.filter,
		predicates: f.predicates[key],
		generators: f.expression,
		splitOr:    f.splitOr,
	}
	f.mu.RUnlock()

	if static != nil {
		f.compiled(key, "static", 0, start)

		return static.(compiled[M]), nil
	}

	for _, g := range generators {
		generated, ok := g.Generate(key.model, key.filter)
		if !ok {
			continue
		}

		fn, err := fromFunc[M](generated, key)
		if err != nil {
			f.failed(key, err)

			return nil, err
		}

		f.compiled(key, "generator", 0, start)

		return fn, nil
	}

	if reflect.PointerTo(key.filter).Implements(reflect.TypeFor[Specifiable[M]]()) {
		f.compiled(key, "convention", 0, start)

		return func(q queryable.Queryable[M], filter reflect.Value) queryable.Queryable[M] {
			return filter.Addr().Interface().(Specifiable[M]).Specify(q)
		}, nil
	}

	resolutions := c.classify(rootTarget(key.model), key.filter, accessor(rootAccessor), "")

	var (
		lacks   []Lack
		clauses = make([]clause, 0, len(resolutions))
	)

	for _, r := range resolutions {
		if !r.ready() {
			lacks = append(lacks, r.lacks...)

			continue
		}

		if cl := r.emit(); cl != nil {
			clauses = append(clauses, cl)
		}
	}

	if len(lacks) > 0 {
		err := &LacksError{Model: key.model, Filter: key.filter, Lacks: lacks}
		f.failed(key, err)

		return nil, err
	}

	f.compiled(key, "pipeline", len(clauses), start)

	return func(q queryable.Queryable[M], filter reflect.Value) queryable.Queryable[M] {
		for _, cl := range clauses {
			if s := cl(filter); s != nil {
				q = q.Where(s)
			}
		}

		return q
	}, nil
}

// fromFunc adapts a generator-supplied func(queryable.Queryable[M], F)
// queryable.Queryable[M] of any named or unnamed func type.
func fromFunc[M any](generated any, key pairKey) (compiled[M], error) {
	queryType := reflect.TypeFor[queryable.Queryable[M]]()

	fv := reflect.ValueOf(generated)
	ft := fv.Type()

	if ft.Kind() != reflect.Func || ft.NumIn() != 2 || ft.NumOut() != 1 ||
		ft.In(0) != queryType || ft.In(1) != key.filter || ft.Out(0) != queryType || fv.IsNil() {
		return nil, fmt.Errorf("%w: generator returned %s for %s", ErrIncompatibleSpecifier, ft, key)
	}

	return func(q queryable.Queryable[M], filter reflect.Value) queryable.Queryable[M] {
		out := fv.Call([]reflect.Value{reflect.ValueOf(&q).Elem(), filter})

		return out[0].Interface().(queryable.Queryable[M])
	}, nil
}

func (f *Factory) compiled(key pairKey, source string, clauses int, start time.Time) {
	f.logger.Debug().
		Str("model", typeName(key.model)).
		Str("filter", typeName(key.filter)).
		Str("source", source).
		Int("clauses", clauses).
		Dur("elapsed", time.Since(start)).
		Msg("filter specifier compiled")

	f.metrics.Inc(context.Background(), "search.specifiers.compiled", 1,
		attribute.String("source", source),
		attribute.String("filter", key.filter.Name()),
	)
}

func (f *Factory) failed(key pairKey, err error) {
	f.logger.Error().
		Err(err).
		Str("model", typeName(key.model)).
		Str("filter", typeName(key.filter)).
		Msg("filter specifier cannot be compiled")

	f.metrics.Inc(context.Background(), "search.specifiers.failed", 1,
		attribute.String("filter", key.filter.Name()),
	)
}
