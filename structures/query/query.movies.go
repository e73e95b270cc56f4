package query

import (
	"context"

	"github.com/cinegraph/common/dataloader"
	"github.com/cinegraph/common/structures"
)

func (q *Query) MoviesByID() dataloader.BatchFunc[int32, structures.Movie] {
	return dataloader.Index(q.movies, func(m structures.Movie) int32 { return m.ID })
}

func (q *Query) movies(ctx context.Context, ids []int32) ([]structures.Movie, error) {
	movies, err := q.store.Movies(ctx, ids)
	if err != nil {
		return nil, backendError("movies", err)
	}

	return movies, nil
}
