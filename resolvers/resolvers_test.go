package resolvers

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/cinegraph/common/dataloader"
	apierrors "github.com/cinegraph/common/errors"
	"github.com/cinegraph/common/loaders"
	"github.com/cinegraph/common/structures"
	"github.com/cinegraph/common/structures/query"
	"github.com/cinegraph/common/structures/query/querytest"
)

func run(t *testing.T, store *querytest.Store, fn func(ctx context.Context) error, opts ...dataloader.Option) {
	t.Helper()

	opener := loaders.OpenerFunc(func(ctx context.Context) (query.Store, error) { return store.Open(ctx) })
	require.NoError(t, loaders.Scope(context.Background(), opener, fn, opts...))
}

func TestResolveMovies(t *testing.T) {
	store := querytest.Fixture()

	var res *Result
	run(t, store, func(ctx context.Context) (err error) {
		res, err = ResolveMovies(ctx, []int32{7, 8, 9, 404})
		return err
	}, dataloader.WithWait(0))

	require.Len(t, res.Movies, 4)

	heat := res.Movies[0]
	require.NotNil(t, heat)
	assert.Equal(t, "Heat", heat.Title)
	require.Len(t, heat.Characters, 2)
	assert.Equal(t, "Neil", heat.Characters[0].Name)
	assert.Equal(t, []int32{7, 9}, heat.Characters[0].MovieIDs)
	assert.Equal(t, "Vincent", heat.Characters[1].Name)
	assert.Equal(t, []int32{7}, heat.Characters[1].MovieIDs)

	require.NotNil(t, res.Movies[1])
	assert.Equal(t, "Ronin", res.Movies[1].Title)
	assert.Empty(t, res.Movies[1].Characters)

	require.NotNil(t, res.Movies[2])
	require.Len(t, res.Movies[2].Characters, 1)
	assert.Equal(t, "Neil", res.Movies[2].Characters[0].Name)

	assert.Nil(t, res.Movies[3])
	require.Len(t, res.Errors, 1)
	assert.True(t, apierrors.Compare(res.Errors[0], apierrors.ErrUnknownMovie().Code()))
	assert.Equal(t, "movies.3", res.Errors[0].GetFields()["path"])

	// one round trip per table however many movies and characters were involved
	assert.Equal(t, []querytest.Call{{Table: "movies", IDs: []int32{7, 8, 9, 404}}}, store.CallsTo("movies"))
	assert.Equal(t, []querytest.Call{{Table: "characters", IDs: []int32{11, 12}}}, store.CallsTo("characters"))
	assert.Len(t, store.CallsTo("movie_characters.movie_id"), 1)
	assert.Len(t, store.CallsTo("movie_characters.character_id"), 1)
	assert.Len(t, store.Calls(), 4)
	assert.True(t, store.Closed())
}

func TestResolveMoviesPartialFailure(t *testing.T) {
	store := querytest.Fixture()
	store.Err["characters"] = errors.New("lost connection")

	var res *Result
	run(t, store, func(ctx context.Context) (err error) {
		res, err = ResolveMovies(ctx, []int32{7, 9})
		return err
	}, dataloader.WithWait(0))

	require.NotNil(t, res.Movies[0])
	require.NotNil(t, res.Movies[1])
	assert.Empty(t, res.Movies[0].Characters)
	assert.Empty(t, res.Movies[1].Characters)

	require.Len(t, res.Errors, 3)
	paths := make([]any, len(res.Errors))
	for i, e := range res.Errors {
		assert.True(t, apierrors.Compare(e, apierrors.ErrBackendFailure().Code()))
		assert.Equal(t, "characters", e.GetFields()["query"])
		paths[i] = e.GetFields()["path"]
	}
	assert.Equal(t, []any{"movies.0.characters.0", "movies.0.characters.1", "movies.1.characters.0"}, paths)
	assert.Len(t, store.CallsTo("characters"), 1)
}

func TestResolveMoviesOrdersErrorsByPath(t *testing.T) {
	store := querytest.Fixture()

	ids := make([]int32, 12)
	for i := range ids {
		ids[i] = int32(500 + i)
	}

	var res *Result
	run(t, store, func(ctx context.Context) (err error) {
		res, err = ResolveMovies(ctx, ids)
		return err
	}, dataloader.WithWait(0))

	require.Len(t, res.Errors, 12)
	for i, e := range res.Errors {
		assert.Equal(t, fmt.Sprintf("movies.%d", i), e.GetFields()["path"])
	}
}

func TestComparePaths(t *testing.T) {
	assert.Negative(t, comparePaths("movies.2", "movies.10"))
	assert.Negative(t, comparePaths("movies.1", "movies.1.characters"))
	assert.Negative(t, comparePaths("movies.1.characters.9", "movies.1.characters.10"))
	assert.Positive(t, comparePaths("movies.10.characters", "movies.9.characters.0"))
	assert.Zero(t, comparePaths("movies.3", "movies.3"))
}

func TestResolveMoviesCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := querytest.Fixture()
	opener := loaders.OpenerFunc(func(ctx context.Context) (query.Store, error) { return store.Open(ctx) })

	err := loaders.Scope(ctx, opener, func(ctx context.Context) error {
		_, err := ResolveMovies(ctx, []int32{7})
		return err
	}, dataloader.WithWait(0))

	assert.True(t, apierrors.Compare(err, apierrors.ErrCanceled().Code()))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, store.CallsTo("characters"))
}

func TestFieldResolvers(t *testing.T) {
	store := querytest.Fixture()

	run(t, store, func(ctx context.Context) error {
		user, err := User(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "ada@example.com", user.Email)

		_, err = User(ctx, 3)
		assert.True(t, apierrors.Compare(err, apierrors.ErrUnknownUser().Code()), "soft deleted users are unknown")
		assert.Equal(t, true, apierrors.From(err).GetFields()["deleted"])

		_, err = User(ctx, 404)
		assert.True(t, apierrors.Compare(err, apierrors.ErrUnknownUser().Code()))
		assert.NotContains(t, apierrors.From(err).GetFields(), "deleted")

		movie, err := Movie(ctx, 9)
		require.NoError(t, err)
		assert.Equal(t, "Collateral", movie.Title)

		_, err = Character(ctx, 99)
		assert.True(t, apierrors.Compare(err, apierrors.ErrUnknownCharacter().Code()))

		cast, err := MovieCharacters(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, []structures.Character{store.CharacterRows[11], store.CharacterRows[12]}, cast)

		cast, err = MovieCharacters(ctx, 8)
		require.NoError(t, err)
		assert.Empty(t, cast)

		movies, err := CharacterMovies(ctx, 11)
		require.NoError(t, err)
		assert.Equal(t, []structures.Movie{store.MovieRows[7], store.MovieRows[9]}, movies)
		return nil
	}, dataloader.WithWait(time.Millisecond))
}

func TestFieldResolversBatchConcurrentSiblings(t *testing.T) {
	store := querytest.Fixture()

	run(t, store, func(ctx context.Context) error {
		titles := make([]string, 3)
		g, gctx := errgroup.WithContext(ctx)
		for i, id := range []int32{7, 8, 9} {
			g.Go(func() error {
				movie, err := Movie(gctx, id)
				titles[i] = movie.Title
				return err
			})
		}
		require.NoError(t, g.Wait())
		assert.Equal(t, []string{"Heat", "Ronin", "Collateral"}, titles)

		_, err := Movie(ctx, 8)
		return err
	}, dataloader.WithWait(20*time.Millisecond))

	calls := store.CallsTo("movies")
	require.NotEmpty(t, calls)
	assert.LessOrEqual(t, len(calls), 3)

	seen := map[int32]int{}
	for _, c := range calls {
		for _, id := range c.IDs {
			seen[id]++
		}
	}
	assert.Equal(t, map[int32]int{7: 1, 8: 1, 9: 1}, seen, "every movie fetched exactly once")
}

func TestFieldErrorsFromBackend(t *testing.T) {
	store := querytest.Fixture()
	store.Err["movies"] = errors.New("timeout")

	run(t, store, func(ctx context.Context) error {
		_, err := Movie(ctx, 7)
		assert.True(t, apierrors.Compare(err, apierrors.ErrBackendFailure().Code()))

		_, err = CharacterMovies(ctx, 11)
		assert.True(t, apierrors.Compare(err, apierrors.ErrBackendFailure().Code()))
		return nil
	}, dataloader.WithWait(time.Millisecond))
}
