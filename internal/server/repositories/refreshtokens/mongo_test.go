package refreshtokens

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/recipehub/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func updateResult(n int) bson.D {
	return bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: n}, {Key: "nModified", Value: n}}
}

func TestMongoRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("get", func(mt *mtest.T) {
		id := primitive.NewObjectID()
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "test.users", mtest.FirstBatch,
				bson.D{{Key: "_id", Value: id}, {Key: "refresh_token", Value: "r1"}}),
			mtest.CreateCursorResponse(0, "test.users", mtest.FirstBatch,
				bson.D{{Key: "_id", Value: id}}),
			mtest.CreateCursorResponse(0, "test.users", mtest.FirstBatch),
		)

		repo := NewMongoRepository(mt.DB)

		tok, err := repo.Get(ctx, id.Hex())
		require.NoError(mt, err)
		assert.Equal(mt, "r1", tok)

		tok, err = repo.Get(ctx, id.Hex())
		require.NoError(mt, err)
		assert.Empty(mt, tok)

		_, err = repo.Get(ctx, id.Hex())
		assert.ErrorIs(mt, err, common.ErrorNotFound)

		_, err = repo.Get(ctx, "zzz")
		assert.ErrorIs(mt, err, common.ErrorNotFound)
	})

	mt.Run("set and clear", func(mt *mtest.T) {
		mt.AddMockResponses(updateResult(1), updateResult(1), updateResult(0))

		repo := NewMongoRepository(mt.DB)
		id := primitive.NewObjectID().Hex()

		require.NoError(mt, repo.Set(ctx, id, "r1"))
		require.NoError(mt, repo.Set(ctx, id, ""))
		assert.ErrorIs(mt, repo.Set(ctx, id, ""), common.ErrorNotFound)
	})

	mt.Run("rotate", func(mt *mtest.T) {
		mt.AddMockResponses(updateResult(1), updateResult(0))

		repo := NewMongoRepository(mt.DB)
		id := primitive.NewObjectID().Hex()

		ok, err := repo.Rotate(ctx, id, "r1", "r2")
		require.NoError(mt, err)
		assert.True(mt, ok)

		ok, err = repo.Rotate(ctx, id, "r1", "r3")
		require.NoError(mt, err)
		assert.False(mt, ok)

		ok, err = repo.Rotate(ctx, "zzz", "r1", "r3")
		require.NoError(mt, err)
		assert.False(mt, ok)
	})

	mt.Run("store failure", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 91, Message: "shutdown"}))

		err := NewMongoRepository(mt.DB).Set(ctx, primitive.NewObjectID().Hex(), "r1")
		assert.ErrorIs(mt, err, common.ErrorDependency)
	})
}
