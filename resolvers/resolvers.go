// Package resolvers answers field lookups through the loaders of the current request.
//
// The single field resolvers block on their loader and rely on the timed window to
// batch concurrent siblings. ResolveMovies walks a whole selection level by level and
// flushes each level itself, so it costs one backend fetch per loader and level.
package resolvers

import (
	"context"

	"github.com/cinegraph/common/errors"
	"github.com/cinegraph/common/loaders"
	"github.com/cinegraph/common/structures"
)

// User resolves a user. Soft deleted users are reported as unknown.
func User(ctx context.Context, id int32) (structures.User, error) {
	user, found, err := loaders.For(ctx).UserByID().Load(ctx, id)
	if err != nil {
		return user, errors.From(err)
	}
	if !found {
		return user, errors.ErrUnknownUser().SetDetail("user %d", id)
	}
	if user.Deleted {
		return structures.User{}, errors.ErrUnknownUser().SetDetail("user %d was deleted", id).SetFields(errors.Fields{"deleted": true})
	}

	return user, nil
}

func Movie(ctx context.Context, id int32) (structures.Movie, error) {
	movie, found, err := loaders.For(ctx).MovieByID().Load(ctx, id)
	if err != nil {
		return movie, errors.From(err)
	}
	if !found {
		return movie, errors.ErrUnknownMovie().SetDetail("movie %d", id)
	}

	return movie, nil
}

func Character(ctx context.Context, id int32) (structures.Character, error) {
	character, found, err := loaders.For(ctx).CharacterByID().Load(ctx, id)
	if err != nil {
		return character, errors.From(err)
	}
	if !found {
		return character, errors.ErrUnknownCharacter().SetDetail("character %d", id)
	}

	return character, nil
}

// MovieCharacters returns the cast of a movie in join table order.
// Join rows pointing at a missing character are skipped.
func MovieCharacters(ctx context.Context, movieID int32) ([]structures.Character, error) {
	l := loaders.For(ctx)

	ids, _, err := l.CharacterIDsByMovieID().Load(ctx, movieID)
	if err != nil {
		return nil, errors.From(err)
	}

	characters, err := l.CharacterByID().LoadMany(ctx, ids)
	if err != nil {
		return nil, errors.From(err)
	}

	return ordered(ids, characters), nil
}

// CharacterMovies returns the movies a character appears in.
func CharacterMovies(ctx context.Context, characterID int32) ([]structures.Movie, error) {
	l := loaders.For(ctx)

	ids, _, err := l.MovieIDsByCharacterID().Load(ctx, characterID)
	if err != nil {
		return nil, errors.From(err)
	}

	movies, err := l.MovieByID().LoadMany(ctx, ids)
	if err != nil {
		return nil, errors.From(err)
	}

	return ordered(ids, movies), nil
}

func ordered[V any](ids []int32, values map[int32]V) []V {
	out := make([]V, 0, len(ids))
	for _, id := range ids {
		if v, ok := values[id]; ok {
			out = append(out, v)
		}
	}

	return out
}
