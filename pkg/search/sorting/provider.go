package sorting

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/architeacher/smartsearch/pkg/logger"
	"github.com/architeacher/smartsearch/pkg/search/queryable"
	"github.com/architeacher/smartsearch/pkg/search/selection"
	"golang.org/x/sync/singleflight"
)

// DefaultKey is the member paginated queries fall back to.
const DefaultKey = "Id"

type (
	// Generator supplies handlers for keys that are not registered. The
	// returned value must be a Handler[M] for the given model.
	Generator interface {
		Generate(model reflect.Type, key string) (any, bool)
	}

	GeneratorFunc func(model reflect.Type, key string) (any, bool)

	Option func(*Provider)

	// Provider resolves and caches order by handlers per (model, key).
	Provider struct {
		logger logger.Logger

		mu         sync.RWMutex
		handlers   map[handlerKey]handlerEntry
		explicit   map[handlerKey]any
		generators []Generator
		group      singleflight.Group
	}

	handlerKey struct {
		model reflect.Type
		key   string
	}

	handlerEntry struct {
		handler any
		err     error
	}
)

func (g GeneratorFunc) Generate(model reflect.Type, key string) (any, bool) {
	return g(model, key)
}

func WithLogger(l logger.Logger) Option {
	return func(p *Provider) { p.logger = l }
}

func NewProvider(opts ...Option) *Provider {
	p := &Provider{
		logger:   logger.Nop(),
		handlers: make(map[handlerKey]handlerEntry),
		explicit: make(map[handlerKey]any),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

func keyFor[M any](key string) handlerKey {
	return handlerKey{model: reflectType[M](), key: strings.ToLower(strings.TrimSpace(key))}
}

func reflectType[M any]() reflect.Type {
	return reflect.TypeFor[M]()
}

// AddHandler registers h for key, taking precedence over member resolution.
// Keys are case-insensitive.
func AddHandler[M any](p *Provider, key string, h Handler[M]) {
	p.mu.Lock()
	defer p.mu.Unlock()

	k := keyFor[M](key)
	p.explicit[k] = h
	delete(p.handlers, k)
}

func (p *Provider) AddGenerator(g Generator) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.generators = append(p.generators, g)
}

// GetHandler resolves key for M: a registered handler, then a generator,
// then a sortable member of M.
func GetHandler[M any](p *Provider, key string) (Handler[M], error) {
	k := keyFor[M](key)

	p.mu.RLock()
	e, ok := p.handlers[k]
	p.mu.RUnlock()

	if !ok {
		v, _, _ := p.group.Do(selection.TypeKey(k.model)+"|"+k.key, func() (any, error) {
			p.mu.RLock()
			cached, hit := p.handlers[k]
			p.mu.RUnlock()

			if hit {
				return cached, nil
			}

			h, err := resolve[M](p, k, key)
			created := handlerEntry{handler: h, err: err}

			p.mu.Lock()
			p.handlers[k] = created
			p.mu.Unlock()

			return created, nil
		})

		e = v.(handlerEntry)
	}

	if e.err != nil {
		// Entries are shared across key casings, so the reported key is the caller's.
		var unsupported *OrderByNotSupportedError
		if errors.As(e.err, &unsupported) {
			return nil, &OrderByNotSupportedError{Key: key, Model: unsupported.Model}
		}

		return nil, e.err
	}

	return e.handler.(Handler[M]), nil
}

func resolve[M any](p *Provider, k handlerKey, key string) (Handler[M], error) {
	p.mu.RLock()
	explicit := p.explicit[k]
	generators := p.generators
	p.mu.RUnlock()

	if explicit != nil {
		return explicit.(Handler[M]), nil
	}

	for _, g := range generators {
		generated, ok := g.Generate(k.model, key)
		if !ok {
			continue
		}

		h, ok := generated.(Handler[M])
		if !ok {
			return nil, fmt.Errorf("%w: generator returned %T for %s", ErrIncompatibleHandler, generated, k.model)
		}

		return h, nil
	}

	sel, err := selection.Resolve(k.model, key)
	if err != nil || !sortable(sel.Type()) {
		p.logger.Debug().
			Str("model", k.model.Name()).
			Str("key", key).
			Msg("order by key not supported")

		return nil, &OrderByNotSupportedError{Key: key, Model: k.model.Name()}
	}

	return MemberHandler[M](sel), nil
}

func sortable(t reflect.Type) bool {
	t = selection.Indirect(t)

	switch t.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array, reflect.Func, reflect.Chan, reflect.Interface:
		return false
	case reflect.Struct:
		return !selection.IsStruct(t)
	default:
		return true
	}
}

// Apply orders q by sortings, in order.
func Apply[M any](p *Provider, q queryable.Queryable[M], sortings []Sorting) (queryable.Queryable[M], error) {
	b := NewBuilder(q)

	for _, s := range sortings {
		h, err := GetHandler[M](p, s.OrderBy)
		if err != nil {
			return q, err
		}

		h.Apply(b, s.Direction)
	}

	return b.Query(), nil
}
