package projection

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/architeacher/smartsearch/pkg/logger"
	"github.com/architeacher/smartsearch/pkg/search/selection"
	"golang.org/x/sync/singleflight"
)

type (
	// Mapped is implemented by DTOs that name the entity member of some of
	// their fields. Fields left out are matched automatically.
	Mapped interface {
		SelectorMapping() map[string]string
	}

	// Generator supplies selectors for pairs it knows about. The returned
	// value must be a func(E) D.
	Generator interface {
		Generate(entity, dto reflect.Type) (any, bool)
	}

	GeneratorFunc func(entity, dto reflect.Type) (any, bool)

	Option func(*Factory)

	// Selector maps entities of type E to DTOs of type D.
	Selector[E, D any] struct {
		fn         func(E) D
		projection *Projection
	}

	// Factory creates and caches selectors per (entity, DTO) pair.
	Factory struct {
		logger logger.Logger

		mu         sync.RWMutex
		selectors  map[pairKey]selectorEntry
		functions  map[pairKey]any
		mappings   map[pairKey]map[string]string
		generators []Generator
		group      singleflight.Group
	}

	pairKey struct {
		entity reflect.Type
		dto    reflect.Type
	}

	selectorEntry struct {
		selector any
		err      error
	}
)

func (g GeneratorFunc) Generate(entity, dto reflect.Type) (any, bool) {
	return g(entity, dto)
}

func WithLogger(l logger.Logger) Option {
	return func(f *Factory) { f.logger = l }
}

func NewFactory(opts ...Option) *Factory {
	f := &Factory{
		logger:    logger.Nop(),
		selectors: make(map[pairKey]selectorEntry),
		functions: make(map[pairKey]any),
		mappings:  make(map[pairKey]map[string]string),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

func keyOf[E, D any]() pairKey {
	return pairKey{entity: reflect.TypeFor[E](), dto: reflect.TypeFor[D]()}
}

// AddSelector registers a mapping function. Function selectors cannot be
// pushed down to the backend.
func AddSelector[E, D any](f *Factory, fn func(E) D) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := keyOf[E, D]()
	f.functions[key] = fn
	delete(f.selectors, key)
}

// AddMapping names the entity member of DTO fields, by field name.
func AddMapping[E, D any](f *Factory, members map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := keyOf[E, D]()
	f.mappings[key] = members
	delete(f.selectors, key)
}

func (f *Factory) AddGenerator(g Generator) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.generators = append(f.generators, g)
}

// Create returns the selector of the (E, D) pair, building it on first use.
func Create[E, D any](f *Factory) (*Selector[E, D], error) {
	key := keyOf[E, D]()

	f.mu.RLock()
	e, ok := f.selectors[key]
	f.mu.RUnlock()

	if !ok {
		v, _, _ := f.group.Do(selection.TypeKey(key.entity, key.dto), func() (any, error) {
			f.mu.RLock()
			cached, hit := f.selectors[key]
			f.mu.RUnlock()

			if hit {
				return cached, nil
			}

			s, err := create[E, D](f, key)
			if err != nil {
				f.logger.Error().
					Err(err).
					Str("entity", key.entity.Name()).
					Str("dto", key.dto.Name()).
					Msg("selector cannot be created")
			}

			created := selectorEntry{selector: s, err: err}

			f.mu.Lock()
			f.selectors[key] = created
			f.mu.Unlock()

			return created, nil
		})

		e = v.(selectorEntry)
	}

	if e.err != nil {
		return nil, e.err
	}

	return e.selector.(*Selector[E, D]), nil
}

func create[E, D any](f *Factory, key pairKey) (*Selector[E, D], error) {
	f.mu.RLock()
	fn := f.functions[key]
	mapping, hasMapping := f.mappings[key]
	generators := f.generators
	f.mu.RUnlock()

	if fn != nil {
		return &Selector[E, D]{fn: fn.(func(E) D)}, nil
	}

	if !hasMapping {
		var zero D
		if m, ok := any(zero).(Mapped); ok {
			mapping, hasMapping = m.SelectorMapping(), true
		}
	}

	if !hasMapping {
		for _, g := range generators {
			generated, ok := g.Generate(key.entity, key.dto)
			if !ok {
				continue
			}

			fn, ok := generated.(func(E) D)
			if !ok {
				return nil, fmt.Errorf("%w: generator returned %T for %s to %s", ErrIncompatibleSelector, generated, key.entity, key.dto)
			}

			return &Selector[E, D]{fn: fn}, nil
		}
	}

	p, err := build(key.entity, key.dto, mapping, 0)
	if err != nil {
		return nil, err
	}

	return FromProjection[E, D](p), nil
}

// FromProjection returns a selector filling D through p.
func FromProjection[E, D any](p *Projection) *Selector[E, D] {
	return &Selector[E, D]{
		projection: p,
		fn: func(e E) D {
			var d D

			p.Fill(reflect.ValueOf(&e).Elem(), reflect.ValueOf(&d).Elem())

			return d
		},
	}
}

func (s *Selector[E, D]) Map(e E) D {
	return s.fn(e)
}

func (s *Selector[E, D]) MapAll(items []E) []D {
	out := make([]D, 0, len(items))
	for _, item := range items {
		out = append(out, s.fn(item))
	}

	return out
}

// Projection is nil for function selectors.
func (s *Selector[E, D]) Projection() *Projection {
	return s.projection
}
