package dataloader

import "context"

// Index adapts a query returning rows in any order into a BatchFunc, using key to
// find the key of each row. Rows whose key was not requested are ignored.
func Index[K comparable, R any](
	rows func(ctx context.Context, keys []K) ([]R, error),
	key func(R) K,
) BatchFunc[K, R] {
	return func(ctx context.Context, keys []K) (map[K]R, error) {
		result, err := rows(ctx, keys)
		if err != nil {
			return nil, err
		}

		requested := make(map[K]struct{}, len(keys))
		for _, k := range keys {
			requested[k] = struct{}{}
		}

		out := make(map[K]R, len(result))
		for _, row := range result {
			k := key(row)
			if _, ok := requested[k]; ok {
				out[k] = row
			}
		}

		return out, nil
	}
}

// Group adapts a query over a join table into a one to many BatchFunc.
// parent extracts the key a row belongs to and child the related key it carries.
// Every requested parent is present in the result, with an empty set when it has
// no rows, and child keys are deduplicated in the order rows were returned.
func Group[K comparable, C comparable, R any](
	rows func(ctx context.Context, keys []K) ([]R, error),
	parent func(R) K,
	child func(R) C,
) BatchFunc[K, []C] {
	return func(ctx context.Context, keys []K) (map[K][]C, error) {
		result, err := rows(ctx, keys)
		if err != nil {
			return nil, err
		}

		out := make(map[K][]C, len(keys))
		seen := make(map[K]map[C]struct{}, len(keys))
		for _, k := range keys {
			out[k] = []C{}
			seen[k] = map[C]struct{}{}
		}

		for _, row := range result {
			p := parent(row)
			children, ok := seen[p]
			if !ok {
				continue
			}

			c := child(row)
			if _, dup := children[c]; dup {
				continue
			}
			children[c] = struct{}{}
			out[p] = append(out[p], c)
		}

		return out, nil
	}
}

// NewRelationshipLoader creates a loader resolving a parent key to the set of
// related keys stored in a join table.
func NewRelationshipLoader[K comparable, C comparable, R any](
	ctx context.Context,
	rows func(ctx context.Context, keys []K) ([]R, error),
	parent func(R) K,
	child func(R) C,
	opts ...Option,
) *Loader[K, []C] {
	return NewLoader(ctx, Group(rows, parent, child), opts...)
}
