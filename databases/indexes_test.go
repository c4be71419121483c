package databases_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/cleanpath/cleanpath-api/databases"
	"github.com/cleanpath/cleanpath-api/databases/mocks"
)

func TestEnsureIndexes(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collectionHelper := &mocks.CollectionHelper{}

	var txIndexes []mongo.IndexModel
	collectionHelper.On("CreateIndexes", mock.Anything, mock.Anything).Return(nil)
	dbHelper.On("Collection", mock.Anything).Return(collectionHelper)

	assert.NoError(t, databases.EnsureIndexes(context.Background(), dbHelper))

	for _, c := range collectionHelper.Calls {
		models := c.Arguments.Get(1).([]mongo.IndexModel)
		for _, m := range models {
			if keys, ok := m.Keys.(bson.D); ok && len(keys) == 1 && keys[0].Key == "garbage" {
				txIndexes = append(txIndexes, m)
			}
		}
	}
	if assert.Len(t, txIndexes, 1) {
		assert.True(t, *txIndexes[0].Options.Unique)
	}
	dbHelper.AssertCalled(t, "Collection", "transactions")
	dbHelper.AssertCalled(t, "Collection", "schedules")
}

func TestEnsureIndexes_Failure(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collectionHelper := &mocks.CollectionHelper{}

	collectionHelper.On("CreateIndexes", mock.Anything, mock.Anything).Return(errors.New("not authorized"))
	dbHelper.On("Collection", mock.Anything).Return(collectionHelper)

	err := databases.EnsureIndexes(context.Background(), dbHelper)

	assert.ErrorContains(t, err, "not authorized")
}
