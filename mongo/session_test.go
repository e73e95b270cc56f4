package mongo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/cinegraph/common/structures"
)

func TestInFilter(t *testing.T) {
	assert.Empty(t, inFilter("_id", nil))
	assert.Equal(t, bson.M{"movie_id": bson.M{"$in": []int32{7, 8}}}, inFilter("movie_id", []int32{7, 8}))
}

func TestSession(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	defer mt.Close()

	mt.Run("users", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, mt.DB.Name()+".users", mtest.FirstBatch,
			bson.D{{Key: "_id", Value: int32(1)}, {Key: "email", Value: "ada@example.com"}},
			bson.D{{Key: "_id", Value: int32(2)}, {Key: "email", Value: "grace@example.com"}, {Key: "deleted", Value: true}},
		))

		s := newSession(mt.DB, nil)
		users, err := s.Users(context.Background(), []int32{1, 2, 3})
		require.NoError(mt, err)

		require.Len(mt, users, 2)
		assert.Equal(mt, structures.User{ID: 1, Email: "ada@example.com"}, users[0])
		assert.True(mt, users[1].Deleted)
	})

	mt.Run("movie characters", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, mt.DB.Name()+".movie_characters", mtest.FirstBatch,
			bson.D{{Key: "movie_id", Value: int32(7)}, {Key: "character_id", Value: int32(11)}},
			bson.D{{Key: "movie_id", Value: int32(7)}, {Key: "character_id", Value: int32(12)}},
		))

		s := newSession(mt.DB, nil)
		rows, err := s.MovieCharacters(context.Background(), structures.MovieCharacterColumnMovieID, []int32{7, 8})
		require.NoError(mt, err)
		assert.Equal(mt, []structures.MovieCharacter{{MovieID: 7, CharacterID: 11}, {MovieID: 7, CharacterID: 12}}, rows)
	})

	mt.Run("empty keys", func(mt *mtest.T) {
		s := newSession(mt.DB, nil)
		movies, err := s.Movies(context.Background(), nil)
		require.NoError(mt, err)
		assert.Empty(mt, movies)
	})

	mt.Run("command error", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    2,
			Name:    "BadValue",
			Message: "$in needs an array",
		}))

		s := newSession(mt.DB, nil)
		_, err := s.Characters(context.Background(), []int32{11})
		require.Error(mt, err)
		assert.Contains(mt, err.Error(), "find characters")
		assert.Contains(mt, err.Error(), "$in needs an array")
	})
}
