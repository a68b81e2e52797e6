package repomanager

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/recipehub/internal/server/config"
	"github.com/dmitrijs2005/recipehub/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestNew_Memory(t *testing.T) {
	ctx := context.Background()

	m, err := New(ctx, &config.Config{StoreDriver: config.StoreMemory})
	require.NoError(t, err)
	require.NoError(t, m.RunMigrations(ctx))

	u, err := m.Users().Create(ctx, &models.User{Username: "alice", Email: "alice@x.com"})
	require.NoError(t, err)

	// both repositories see the same record
	require.NoError(t, m.RefreshTokens().Set(ctx, u.ID, "r1"))
	got, err := m.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "r1", got.RefreshToken)

	require.NoError(t, m.Close(ctx))
}

func TestNew_UnknownDriver(t *testing.T) {
	_, err := New(context.Background(), &config.Config{StoreDriver: "sqlite"})
	assert.Error(t, err)
}

func TestMongoRepositoryManager(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("run migrations creates indexes", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		m := newMongoManager(mt.Client, mt.DB)
		require.NoError(mt, m.RunMigrations(context.Background()))
		assert.NotNil(mt, m.Users())
		assert.NotNil(mt, m.RefreshTokens())
	})
}
