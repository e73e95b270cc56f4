package loaders

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/cinegraph/common/dataloader"
	apierrors "github.com/cinegraph/common/errors"
	"github.com/cinegraph/common/structures"
	"github.com/cinegraph/common/structures/query"
)

// Opener acquires a backend session owned exclusively by one request.
type Opener interface {
	Open(ctx context.Context) (query.Store, error)
}

type OpenerFunc func(ctx context.Context) (query.Store, error)

func (f OpenerFunc) Open(ctx context.Context) (query.Store, error) {
	return f(ctx)
}

type Loaders interface {
	UserByID() UserLoaderByID
	MovieByID() MovieLoaderByID
	CharacterByID() CharacterLoaderByID
	MovieIDsByCharacterID() MovieIDsLoaderByCharacterID
	CharacterIDsByMovieID() CharacterIDsLoaderByMovieID

	// Close fails every lookup still waiting and releases the backend session.
	Close() error
}

type (
	UserLoaderByID              = *dataloader.Loader[int32, structures.User]
	MovieLoaderByID             = *dataloader.Loader[int32, structures.Movie]
	CharacterLoaderByID         = *dataloader.Loader[int32, structures.Character]
	MovieIDsLoaderByCharacterID = *dataloader.Loader[int32, []int32]
	CharacterIDsLoaderByMovieID = *dataloader.Loader[int32, []int32]
)

type inst struct {
	cancel context.CancelFunc
	store  query.Store

	closeOnce sync.Once
	closeErr  error

	userByID              UserLoaderByID
	movieByID             MovieLoaderByID
	characterByID         CharacterLoaderByID
	movieIDsByCharacterID MovieIDsLoaderByCharacterID
	characterIDsByMovieID CharacterIDsLoaderByMovieID
}

// New opens a backend session and builds a fresh set of loaders bound to it.
// The loaders live until ctx is done or Close is called, whichever comes first.
// Failing to open the session fails the whole request.
func New(ctx context.Context, opener Opener, opts ...dataloader.Option) (Loaders, error) {
	store, err := opener.Open(ctx)
	if err != nil {
		return nil, apierrors.ErrConnectionUnavailable().WithCause(err)
	}

	ctx, cancel := context.WithCancel(ctx)
	q := query.New(store)

	byMovie := structures.MovieCharacterColumnMovieID
	byCharacter := structures.MovieCharacterColumnCharacterID

	return &inst{
		cancel: cancel,
		store:  store,

		userByID:      dataloader.NewLoader(ctx, q.UsersByID(), named(opts, "user_by_id")...),
		movieByID:     dataloader.NewLoader(ctx, q.MoviesByID(), named(opts, "movie_by_id")...),
		characterByID: dataloader.NewLoader(ctx, q.CharactersByID(), named(opts, "character_by_id")...),
		movieIDsByCharacterID: dataloader.NewRelationshipLoader(ctx, q.MovieCharacters(byCharacter),
			byCharacter.Parent, byCharacter.Child, named(opts, "movie_ids_by_character_id")...),
		characterIDsByMovieID: dataloader.NewRelationshipLoader(ctx, q.MovieCharacters(byMovie),
			byMovie.Parent, byMovie.Child, named(opts, "character_ids_by_movie_id")...),
	}, nil
}

func named(opts []dataloader.Option, name string) []dataloader.Option {
	return append(append(make([]dataloader.Option, 0, len(opts)+1), opts...), dataloader.WithName(name))
}

func (l *inst) UserByID() UserLoaderByID {
	return l.userByID
}

func (l *inst) MovieByID() MovieLoaderByID {
	return l.movieByID
}

func (l *inst) CharacterByID() CharacterLoaderByID {
	return l.characterByID
}

func (l *inst) MovieIDsByCharacterID() MovieIDsLoaderByCharacterID {
	return l.movieIDsByCharacterID
}

func (l *inst) CharacterIDsByMovieID() CharacterIDsLoaderByMovieID {
	return l.characterIDsByMovieID
}

func (l *inst) Close() error {
	l.closeOnce.Do(func() {
		l.cancel()
		if err := l.store.Close(); err != nil {
			l.closeErr = errors.Wrap(err, "close backend session")
		}
	})

	return l.closeErr
}

type ctxKey struct{}

func WithLoaders(ctx context.Context, l Loaders) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// For returns the loaders of the request ctx belongs to.
// It panics when ctx carries none: resolvers never build their own loaders.
func For(ctx context.Context) Loaders {
	l, ok := ctx.Value(ctxKey{}).(Loaders)
	if !ok {
		panic("loaders: no loaders in context")
	}

	return l
}

// Scope runs fn with a fresh set of loaders threaded through its context and
// tears them down once fn returns.
func Scope(ctx context.Context, opener Opener, fn func(ctx context.Context) error, opts ...dataloader.Option) error {
	l, err := New(ctx, opener, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if err := l.Close(); err != nil {
			zap.S().Warnw("loaders, failed to close", "error", err)
		}
	}()

	return fn(WithLoaders(ctx, l))
}
