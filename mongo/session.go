package mongo

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/cinegraph/common/structures"
)

// Session runs the batch queries of one request. Mongo sessions are not safe for
// concurrent use, so queries are serialized.
type Session struct {
	mu   sync.Mutex
	db   *mongo.Database
	sess mongo.Session // nil runs queries outside an explicit session
}

func newSession(db *mongo.Database, sess mongo.Session) *Session {
	return &Session{db: db, sess: sess}
}

func (s *Session) Users(ctx context.Context, ids []int32) ([]structures.User, error) {
	result, err := find[structures.User](ctx, s, CollectionNameUsers, inFilter("_id", ids))
	return result, errors.Wrap(err, "find users")
}

func (s *Session) Movies(ctx context.Context, ids []int32) ([]structures.Movie, error) {
	result, err := find[structures.Movie](ctx, s, CollectionNameMovies, inFilter("_id", ids))
	return result, errors.Wrap(err, "find movies")
}

func (s *Session) Characters(ctx context.Context, ids []int32) ([]structures.Character, error) {
	result, err := find[structures.Character](ctx, s, CollectionNameCharacters, inFilter("_id", ids))
	return result, errors.Wrap(err, "find characters")
}

func (s *Session) MovieCharacters(ctx context.Context, by structures.MovieCharacterColumn, ids []int32) ([]structures.MovieCharacter, error) {
	sortBy := structures.MovieCharacterColumnCharacterID
	if by == structures.MovieCharacterColumnCharacterID {
		sortBy = structures.MovieCharacterColumnMovieID
	}

	result, err := find[structures.MovieCharacter](ctx, s, CollectionNameMovieCharacters, inFilter(string(by), ids),
		options.Find().
			SetSort(bson.D{{Key: string(sortBy), Value: 1}}).
			SetProjection(bson.M{"_id": 0, "movie_id": 1, "character_id": 1}),
	)

	return result, errors.Wrapf(err, "find movie_characters by %s", by)
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sess != nil {
		s.sess.EndSession(context.Background())
		s.sess = nil
	}

	return nil
}

func (s *Session) sessionContext(ctx context.Context) context.Context {
	if s.sess == nil {
		return ctx
	}

	return mongo.NewSessionContext(ctx, s.sess)
}

func find[T any](ctx context.Context, s *Session, coll CollectionName, filter bson.M, opts ...*options.FindOptions) ([]T, error) {
	result := []T{}
	if len(filter) == 0 {
		return result, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx = s.sessionContext(ctx)
	cur, err := s.db.Collection(string(coll)).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}

	if err = cur.All(ctx, &result); err != nil {
		return nil, err
	}

	return result, nil
}

// inFilter matches documents whose field is one of ids. It is empty when ids is.
func inFilter(field string, ids []int32) bson.M {
	if len(ids) == 0 {
		return bson.M{}
	}

	return bson.M{field: bson.M{"$in": ids}}
}
