package databases

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// indexes lists the indexes each collection needs. The unique partial index on
// transactions.garbage backs the one-charge-per-request rule at the storage level.
var indexes = map[string][]mongo.IndexModel{
	transactionName: {
		{
			Keys: bson.D{{Key: "garbage", Value: 1}},
			Options: options.Index().
				SetName("garbage_unique").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"garbage": bson.M{"$exists": true}}),
		},
		{Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}}},
	},
	binName: {
		{Keys: bson.D{{Key: "owner", Value: 1}}},
		{Keys: bson.D{{Key: "wmaId", Value: 1}, {Key: "isUrgent", Value: 1}}},
		{Keys: bson.D{{Key: "forwardedToAdmin", Value: 1}}},
	},
	garbageName: {
		{Keys: bson.D{{Key: "user", Value: 1}}},
		{Keys: bson.D{{Key: "area", Value: 1}}},
	},
	scheduleName: {
		{Keys: bson.D{{Key: "collectorId", Value: 1}}},
		{Keys: bson.D{{Key: "wmaId", Value: 1}, {Key: "status", Value: 1}}},
	},
	notificationName: {
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
	},
}

// EnsureIndexes creates the indexes used by this service. Creating an index
// that already exists is a no-op in mongo, so this is safe on every startup.
func EnsureIndexes(ctx context.Context, db DatabaseHelper) error {
	for collection, models := range indexes {
		if err := db.Collection(collection).CreateIndexes(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", collection, err)
		}
	}
	return nil
}
