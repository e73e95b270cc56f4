package dataloader

import "context"

// BatchFunc performs exactly one backend round trip for a set of distinct keys.
// Keys missing from the returned map are reported as not found.
type BatchFunc[K comparable, V any] func(ctx context.Context, keys []K) (map[K]V, error)

// Thunk blocks until the value it was created for is resolved.
// The found result is false when the backend has no value for the key.
type Thunk[V any] func(ctx context.Context) (value V, found bool, err error)

// ManyThunk blocks until every value it was created for is resolved.
type ManyThunk[K comparable, V any] func(ctx context.Context) (map[K]V, error)

type DataLoader[K comparable, V any] interface {
	// Load a value by key, batching and caching will be applied automatically
	Load(ctx context.Context, key K) (V, bool, error)

	// LoadThunk registers the key in the current window without blocking and returns
	// a function that waits for the value. Use it to queue keys on several loaders
	// before waiting on any of them.
	LoadThunk(key K) Thunk[V]

	// LoadMany fetches many keys at once. Keys that were not found are absent from the result.
	LoadMany(ctx context.Context, keys []K) (map[K]V, error)

	// LoadManyThunk is the non-blocking form of LoadMany.
	LoadManyThunk(keys []K) ManyThunk[K, V]

	// Prime the cache with the provided key and value. If the key already exists, no change is made
	// and false is returned.
	Prime(key K, value V) bool

	// Clear the value at key from the cache, if it exists
	Clear(key K)

	// Flush closes the open window and returns once it has been resolved.
	Flush()
}
