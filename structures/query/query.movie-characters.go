package query

import (
	"context"

	"github.com/cinegraph/common/errors"
	"github.com/cinegraph/common/structures"
)

// MovieCharacters returns a row query over the movie_characters join table,
// filtering on the given column.
func (q *Query) MovieCharacters(by structures.MovieCharacterColumn) func(context.Context, []int32) ([]structures.MovieCharacter, error) {
	return func(ctx context.Context, ids []int32) ([]structures.MovieCharacter, error) {
		if !by.Valid() {
			return nil, errors.ErrInternalServerError().SetDetail("unknown join column %q", string(by))
		}

		rows, err := q.store.MovieCharacters(ctx, by, ids)
		if err != nil {
			return nil, backendError("movie_characters."+string(by), err)
		}

		return rows, nil
	}
}
