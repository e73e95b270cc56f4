package query

import (
	"context"

	"github.com/cinegraph/common/errors"
	"github.com/cinegraph/common/structures"
)

// Store is one backend session. It runs exactly one query per call and returns rows
// in any order. A Store is owned by a single request and is not shared.
type Store interface {
	Users(ctx context.Context, ids []int32) ([]structures.User, error)
	Movies(ctx context.Context, ids []int32) ([]structures.Movie, error)
	Characters(ctx context.Context, ids []int32) ([]structures.Character, error)
	MovieCharacters(ctx context.Context, by structures.MovieCharacterColumn, ids []int32) ([]structures.MovieCharacter, error)
	Close() error
}

type Query struct {
	store Store
}

func New(store Store) *Query {
	return &Query{store: store}
}

func (q *Query) Store() Store {
	return q.store
}

func backendError(query string, err error) error {
	return errors.ErrBackendFailure().WithCause(err).SetFields(errors.Fields{"query": query})
}
