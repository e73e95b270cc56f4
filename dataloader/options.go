package dataloader

import (
	"time"

	"go.uber.org/zap"
)

const DefaultWait = 2 * time.Millisecond

type options struct {
	name     string
	wait     time.Duration
	maxBatch int
	logger   *zap.SugaredLogger
	observer Observer
}

type Option func(*options)

// WithWait sets how long a window stays open after its first key was registered.
// A zero duration disables the timer: windows then close on Flush or MaxBatch only.
func WithWait(d time.Duration) Option {
	return func(o *options) {
		if d < 0 {
			d = 0
		}
		o.wait = d
	}
}

// WithMaxBatch closes a window as soon as it holds n distinct keys. Zero means unbounded.
func WithMaxBatch(n int) Option {
	return func(o *options) {
		if n < 0 {
			n = 0
		}
		o.maxBatch = n
	}
}

// WithName labels the loader in logs and metrics.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

func WithLogger(logger *zap.SugaredLogger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func WithObserver(observer Observer) Option {
	return func(o *options) {
		if observer != nil {
			o.observer = observer
		}
	}
}

func newOptions(opts []Option) options {
	o := options{
		name:     "loader",
		wait:     DefaultWait,
		logger:   zap.S(),
		observer: NoopObserver{},
	}
	for _, opt := range opts {
		opt(&o)
	}

	return o
}

// Observer receives loader activity, typically to export metrics.
type Observer interface {
	// BatchDispatched is called after each fetch with the number of distinct keys it carried.
	BatchDispatched(loader string, keys int, elapsed time.Duration, err error)
	// CacheHit is called when a key was served without entering a window.
	CacheHit(loader string)
}

type NoopObserver struct{}

func (NoopObserver) BatchDispatched(string, int, time.Duration, error) {}

func (NoopObserver) CacheHit(string) {}
