package services_test

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/cleanpath/cleanpath-api/databases"
	"github.com/cleanpath/cleanpath-api/models"
)

func newActor(kind models.ActorKind) (models.Actor, primitive.ObjectID) {
	id := primitive.NewObjectID()
	return models.Actor{ID: id.Hex(), Kind: kind}, id
}

// duplicateKey is what the driver returns when a unique index rejects a write
var duplicateKey = mongo.WriteException{
	WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key error"}},
}

type urgentScheduler struct {
	mu    sync.Mutex
	calls []primitive.ObjectID
	err   error
}

func (u *urgentScheduler) CreateUrgent(_ context.Context, wmaID, areaID, binID primitive.ObjectID) (*models.Schedule, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls = append(u.calls, wmaID)
	if u.err != nil {
		return nil, u.err
	}
	bid := binID
	return &models.Schedule{
		ID:     primitive.NewObjectID(),
		WMAID:  wmaID,
		AreaID: areaID,
		BinID:  &bid,
		Status: models.ScheduleUrgent,
	}, nil
}

type staticResolver struct {
	id  *primitive.ObjectID
	err error
}

func (s staticResolver) Resolve(context.Context, *models.Area) (*primitive.ObjectID, error) {
	return s.id, s.err
}

type fakeGateway struct {
	calls int
	err   error
}

func (f *fakeGateway) Checkout(_ context.Context, tx *models.Transaction) (string, string, error) {
	f.calls++
	if f.err != nil {
		return "", "", f.err
	}
	return "cs_test_" + tx.ID.Hex(), "https://checkout.stripe.com/c/pay/cs_test", nil
}

func databasesPage() databases.Page {
	return databases.Page{Limit: 20, Page: 1}
}
