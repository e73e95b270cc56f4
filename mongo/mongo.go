package mongo

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/cinegraph/common/structures/query"
)

type CollectionName string

const (
	CollectionNameUsers           CollectionName = "users"
	CollectionNameMovies          CollectionName = "movies"
	CollectionNameCharacters      CollectionName = "characters"
	CollectionNameMovieCharacters CollectionName = "movie_characters"
)

type SetupOptions struct {
	URI    string
	DB     string
	Direct bool
}

type Instance struct {
	client *mongo.Client
	db     *mongo.Database
}

func Setup(ctx context.Context, opt SetupOptions) (*Instance, error) {
	clientOptions := options.Client().ApplyURI(opt.URI).SetDirect(opt.Direct)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, errors.Wrap(err, "connect mongo")
	}

	if err = client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(err, "ping mongo")
	}

	zap.S().Infow("mongo, connected", "database", opt.DB)

	return New(client, client.Database(opt.DB)), nil
}

func New(client *mongo.Client, db *mongo.Database) *Instance {
	return &Instance{client: client, db: db}
}

// Open starts a session owned by the caller until the returned store is closed.
func (i *Instance) Open(ctx context.Context) (query.Store, error) {
	sess, err := i.client.StartSession()
	if err != nil {
		return nil, errors.Wrap(err, "start mongo session")
	}

	return newSession(i.db, sess), nil
}

func (i *Instance) Close(ctx context.Context) error {
	return i.client.Disconnect(ctx)
}
