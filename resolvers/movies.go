package resolvers

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/cinegraph/common/dataloader"
	"github.com/cinegraph/common/errors"
	"github.com/cinegraph/common/loaders"
	"github.com/cinegraph/common/structures"
)

type MovieView struct {
	structures.Movie
	Characters []*CharacterView `json:"characters"`
}

type CharacterView struct {
	structures.Character
	MovieIDs []int32 `json:"movie_ids"`
}

// Result holds whatever could be resolved. A movie that failed is nil in Movies and
// every failure is reported in Errors with its path.
type Result struct {
	Movies []*MovieView      `json:"movies"`
	Errors []errors.APIError `json:"errors,omitempty"`
}

type flusher interface {
	Flush()
}

// flush closes the open window of every loader and waits until all of them resolved.
func flush(ls ...flusher) {
	var g errgroup.Group
	for _, l := range ls {
		g.Go(func() error {
			l.Flush()
			return nil
		})
	}
	_ = g.Wait()
}

// ResolveMovies resolves the movies with the given ids, their casts and, for every cast
// member, the ids of the movies they appear in. Lookups that fail or find nothing are
// reported as field errors while the rest of the tree is still returned. The returned
// error is only set when ctx ends before the walk completes.
func ResolveMovies(ctx context.Context, ids []int32) (*Result, error) {
	l := loaders.For(ctx)
	res := &Result{Movies: make([]*MovieView, len(ids))}

	var mu sync.Mutex
	fail := func(err error, path string, a ...any) {
		e := errors.From(err).Clone().SetFields(errors.Fields{"path": fmt.Sprintf(path, a...)})

		mu.Lock()
		res.Errors = append(res.Errors, e)
		mu.Unlock()
	}

	movies := make([]dataloader.Thunk[structures.Movie], len(ids))
	casts := make([]dataloader.Thunk[[]int32], len(ids))
	for i, id := range ids {
		movies[i] = l.MovieByID().LoadThunk(id)
		casts[i] = l.CharacterIDsByMovieID().LoadThunk(id)
	}
	flush(l.MovieByID(), l.CharacterIDsByMovieID())

	castIDs := make([][]int32, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		g.Go(func() error {
			movie, found, err := movies[i](gctx)
			switch {
			case gctx.Err() != nil:
				return gctx.Err()
			case err != nil:
				fail(err, "movies.%d", i)
				return nil
			case !found:
				fail(errors.ErrUnknownMovie().SetDetail("movie %d", id), "movies.%d", i)
				return nil
			}

			cast, _, err := casts[i](gctx)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				fail(err, "movies.%d.characters", i)
			}

			res.Movies[i] = &MovieView{Movie: movie, Characters: []*CharacterView{}}
			castIDs[i] = cast
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, errors.ErrCanceled().WithCause(err)
	}

	characters := make(map[int32]dataloader.Thunk[structures.Character])
	filmographies := make(map[int32]dataloader.Thunk[[]int32])
	for _, cast := range castIDs {
		for _, id := range cast {
			if _, ok := characters[id]; ok {
				continue
			}
			characters[id] = l.CharacterByID().LoadThunk(id)
			filmographies[id] = l.MovieIDsByCharacterID().LoadThunk(id)
		}
	}
	if len(characters) > 0 {
		flush(l.CharacterByID(), l.MovieIDsByCharacterID())
	}

	g, gctx = errgroup.WithContext(ctx)
	for i, view := range res.Movies {
		if view == nil {
			continue
		}
		g.Go(func() error {
			for j, id := range castIDs[i] {
				character, found, err := characters[id](gctx)
				switch {
				case gctx.Err() != nil:
					return gctx.Err()
				case err != nil:
					fail(err, "movies.%d.characters.%d", i, j)
					continue
				case !found:
					fail(errors.ErrUnknownCharacter().SetDetail("character %d", id), "movies.%d.characters.%d", i, j)
					continue
				}

				movieIDs, _, err := filmographies[id](gctx)
				if err != nil {
					if gctx.Err() != nil {
						return gctx.Err()
					}
					fail(err, "movies.%d.characters.%d.movie_ids", i, j)
				}

				view.Characters = append(view.Characters, &CharacterView{Character: character, MovieIDs: movieIDs})
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, errors.ErrCanceled().WithCause(err)
	}

	slices.SortFunc(res.Errors, func(a, b errors.APIError) int {
		return comparePaths(fmt.Sprint(a.GetFields()["path"]), fmt.Sprint(b.GetFields()["path"]))
	})
	return res, nil
}

// comparePaths orders field paths segment by segment, list indexes numerically.
func comparePaths(a, b string) int {
	as, bs := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < len(as) && i < len(bs); i++ {
		x, xerr := strconv.Atoi(as[i])
		y, yerr := strconv.Atoi(bs[i])

		var c int
		if xerr == nil && yerr == nil {
			c = cmp.Compare(x, y)
		} else {
			c = strings.Compare(as[i], bs[i])
		}
		if c != 0 {
			return c
		}
	}

	return cmp.Compare(len(as), len(bs))
}
