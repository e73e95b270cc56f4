package dataloader

import (
	"context"
	"time"
)

// call is the pending result of one distinct key. Every caller that registered
// the key waits on done and then reads the same result.
type call[V any] struct {
	done  chan struct{}
	value V
	found bool
	err   error
}

func newCall[V any]() *call[V] {
	return &call[V]{done: make(chan struct{})}
}

func resolvedCall[V any](e entry[V]) *call[V] {
	c := &call[V]{done: make(chan struct{}), value: e.value, found: e.found}
	close(c.done)
	return c
}

func failedCall[V any](err error) *call[V] {
	c := &call[V]{done: make(chan struct{}), err: err}
	close(c.done)
	return c
}

func (c *call[V]) wait(ctx context.Context) (V, bool, error) {
	// a resolved call wins over a canceled caller
	select {
	case <-c.done:
		return c.value, c.found, c.err
	default:
	}

	select {
	case <-c.done:
		return c.value, c.found, c.err
	case <-ctx.Done():
		var zero V
		return zero, false, ctx.Err()
	}
}

// window accumulates the distinct keys registered before it closes.
// keys keeps registration order, which is the order handed to the fetch.
type window[K comparable, V any] struct {
	keys  []K
	calls map[K]*call[V]
	timer *time.Timer

	prev <-chan struct{} // done of the window closed before this one
	done chan struct{}   // closed once the window resolved
}

func newWindow[K comparable, V any]() *window[K, V] {
	return &window[K, V]{
		calls: make(map[K]*call[V]),
		done:  make(chan struct{}),
	}
}

func (w *window[K, V]) add(key K, c *call[V]) {
	w.keys = append(w.keys, key)
	w.calls[key] = c
}

func (w *window[K, V]) fail(err error) {
	for _, c := range w.calls {
		c.err = err
	}
}

// complete releases every caller waiting on the window.
func (w *window[K, V]) complete() {
	for _, key := range w.keys {
		close(w.calls[key].done)
	}
}

// register places key in the open window, opening one if needed, and returns the
// call to wait on. It never blocks on a fetch.
func (l *Loader[K, V]) register(key K) *call[V] {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e, ok := l.cache.get(key); ok {
		l.opt.observer.CacheHit(l.opt.name)
		return resolvedCall(e)
	}
	if l.err != nil {
		return failedCall[V](l.err)
	}
	if c, ok := l.pending[key]; ok {
		return c
	}

	if l.open == nil {
		w := newWindow[K, V]()
		if l.opt.wait > 0 {
			w.timer = time.AfterFunc(l.opt.wait, func() { l.closeWindow(w) })
		}
		l.open = w
	}

	c := newCall[V]()
	l.open.add(key, c)
	l.pending[key] = c

	if l.opt.maxBatch > 0 && len(l.open.keys) >= l.opt.maxBatch {
		go l.dispatch(l.detach())
	}

	return c
}

// detach removes the open window from the loader and queues it behind the
// window closed before it. l.mu must be held.
func (l *Loader[K, V]) detach() *window[K, V] {
	w := l.open
	if w == nil {
		return nil
	}
	l.open = nil
	if w.timer != nil {
		w.timer.Stop()
	}
	w.prev = l.tail
	l.tail = w.done

	return w
}

// closeWindow dispatches w unless it was already closed by another trigger.
func (l *Loader[K, V]) closeWindow(w *window[K, V]) {
	l.mu.Lock()
	if l.open != w {
		l.mu.Unlock()
		return
	}
	l.detach()
	l.mu.Unlock()

	l.dispatch(w)
}

// dispatch runs the fetch for a closed window and resolves its callers.
// Windows of one loader are fetched one at a time, in the order they closed.
func (l *Loader[K, V]) dispatch(w *window[K, V]) {
	defer close(w.done)
	if w.prev != nil {
		<-w.prev
	}

	start := time.Now()
	values, err := l.safeFetch(w.keys)
	elapsed := time.Since(start)

	l.mu.Lock()
	for _, key := range w.keys {
		c := w.calls[key]
		if l.pending[key] == c {
			delete(l.pending, key)
		}
		if err != nil {
			c.err = err
			continue
		}

		v, ok := values[key]
		c.value, c.found = v, ok
		l.cache.put(key, entry[V]{value: v, found: ok})
	}
	l.mu.Unlock()

	l.opt.observer.BatchDispatched(l.opt.name, len(w.keys), elapsed, err)
	w.complete()

	if err != nil {
		l.opt.logger.Warnw("dataloader batch failed",
			"loader", l.opt.name,
			"keys", len(w.keys),
			"error", err,
		)
		return
	}
	l.opt.logger.Debugw("dataloader batch dispatched",
		"loader", l.opt.name,
		"keys", len(w.keys),
		"found", len(values),
		"elapsed", elapsed,
	)
}

// abort fails the open window once the owning context is done.
// Windows already dispatched finish with whatever their fetch returns.
func (l *Loader[K, V]) abort() {
	err := l.ctx.Err()

	l.mu.Lock()
	l.err = err
	w := l.detach()
	if w != nil {
		for _, key := range w.keys {
			delete(l.pending, key)
		}
		w.fail(err)
	}
	l.mu.Unlock()

	if w == nil {
		return
	}
	w.complete()
	l.opt.logger.Debugw("dataloader window aborted",
		"loader", l.opt.name,
		"keys", len(w.keys),
		"error", err,
	)

	if w.prev != nil {
		<-w.prev
	}
	close(w.done)
}
