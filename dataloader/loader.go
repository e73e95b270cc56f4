package dataloader

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/hashicorp/go-multierror"
)

// Loader batches and caches lookups of one key to value mapping for the lifetime
// of the context it was created with, normally one request.
//
// Keys registered while a window is open are fetched together. The window closes
// after the configured wait, once MaxBatch distinct keys are queued, or on Flush,
// whichever happens first. Callers that need every sibling lookup in the same fetch
// should register with LoadThunk or LoadManyThunk before waiting on any of them.
type Loader[K comparable, V any] struct {
	ctx   context.Context
	fetch BatchFunc[K, V]
	opt   options
	cache cache[K, V]

	mu      sync.Mutex
	open    *window[K, V]
	pending map[K]*call[V]  // keys of open or dispatched windows
	err     error           // set once ctx is done
	tail    <-chan struct{} // done of the last closed window
}

var _ DataLoader[int, string] = (*Loader[int, string])(nil)

// NewLoader creates a loader bound to ctx. When ctx is done every caller still
// waiting in the open window fails with the context error and later lookups of
// uncached keys fail immediately.
func NewLoader[K comparable, V any](ctx context.Context, fetch BatchFunc[K, V], opts ...Option) *Loader[K, V] {
	l := &Loader[K, V]{
		ctx:     ctx,
		fetch:   fetch,
		opt:     newOptions(opts),
		pending: make(map[K]*call[V]),
	}
	context.AfterFunc(ctx, l.abort)

	return l
}

func (l *Loader[K, V]) Name() string {
	return l.opt.name
}

func (l *Loader[K, V]) Load(ctx context.Context, key K) (V, bool, error) {
	return l.LoadThunk(key)(ctx)
}

func (l *Loader[K, V]) LoadThunk(key K) Thunk[V] {
	if e, ok := l.cache.get(key); ok {
		l.opt.observer.CacheHit(l.opt.name)
		return func(context.Context) (V, bool, error) {
			return e.value, e.found, nil
		}
	}

	return l.register(key).wait
}

func (l *Loader[K, V]) LoadMany(ctx context.Context, keys []K) (map[K]V, error) {
	return l.LoadManyThunk(keys)(ctx)
}

func (l *Loader[K, V]) LoadManyThunk(keys []K) ManyThunk[K, V] {
	thunks := make([]Thunk[V], len(keys))
	for i, key := range keys {
		thunks[i] = l.LoadThunk(key)
	}

	return func(ctx context.Context) (map[K]V, error) {
		result := make(map[K]V, len(keys))

		var errs *multierror.Error
		seen := map[string]struct{}{}
		for i, thunk := range thunks {
			v, found, err := thunk(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return result, ctx.Err()
				}
				if _, ok := seen[err.Error()]; !ok {
					seen[err.Error()] = struct{}{}
					errs = multierror.Append(errs, err)
				}
				continue
			}
			if found {
				result[keys[i]] = v
			}
		}

		if errs != nil && len(errs.Errors) == 1 {
			return result, errs.Errors[0]
		}
		return result, errs.ErrorOrNil()
	}
}

func (l *Loader[K, V]) Prime(key K, value V) bool {
	return l.cache.add(key, entry[V]{value: value, found: true})
}

func (l *Loader[K, V]) Clear(key K) {
	l.cache.delete(key)
}

// Flush closes the open window and returns once it and every window closed
// before it resolved.
func (l *Loader[K, V]) Flush() {
	l.mu.Lock()
	w := l.detach()
	tail := l.tail
	l.mu.Unlock()

	if w != nil {
		l.dispatch(w)
		return
	}
	if tail != nil {
		<-tail
	}
}

// Pending returns the number of distinct keys waiting in the open window.
func (l *Loader[K, V]) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.open == nil {
		return 0
	}
	return len(l.open.keys)
}

func (l *Loader[K, V]) safeFetch(keys []K) (values map[K]V, err error) {
	if err := l.ctx.Err(); err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			l.opt.logger.Errorw("panic in dataloader batch function",
				"loader", l.opt.name,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			values, err = nil, fmt.Errorf("%w: %v", ErrBatchPanic, r)
		}
	}()

	return l.fetch(l.ctx, keys)
}
