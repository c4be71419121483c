package services_test

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/cleanpath/cleanpath-api/databases/mocks"
	"github.com/cleanpath/cleanpath-api/models"
	"github.com/cleanpath/cleanpath-api/services"
)

type garbageFixture struct {
	garbages *mocks.GarbageDatabase
	areas    *mocks.AreaDatabase
	txs      *mocks.TransactionDatabase
	svc      *services.GarbageService
}

func newGarbageFixture(t *testing.T) *garbageFixture {
	f := &garbageFixture{
		garbages: mocks.NewGarbageDatabase(t),
		areas:    mocks.NewAreaDatabase(t),
		txs:      mocks.NewTransactionDatabase(t),
	}
	f.svc = services.NewGarbageService(f.garbages, f.areas, services.NewLedgerService(f.txs, nil), "https://collector.example/")
	return f
}

func pendingGarbage(area primitive.ObjectID, weight float64) *models.Garbage {
	return &models.Garbage{
		ID:      primitive.NewObjectID(),
		UserID:  primitive.NewObjectID(),
		AreaID:  area,
		Type:    models.GarbageNonRecyclable,
		Weight:  weight,
		QRToken: "5f0e7c43-6c1a-4c5e-9d3b-0c2a1f9e8d77",
		Status:  models.GarbagePending,
	}
}

func collectedCopy(g *models.Garbage) *models.Garbage {
	c := *g
	c.Status = models.GarbageCollected
	txID := primitive.NewObjectID()
	c.TransactionID = &txID
	return &c
}

func TestGarbageService_Create(t *testing.T) {
	f := newGarbageFixture(t)
	user, uid := newActor(models.ActorUser)
	area := primitive.NewObjectID()
	f.garbages.On("InsertOne", mock.Anything, mock.AnythingOfType("*models.Garbage")).Return(nil, nil)

	res, err := f.svc.Create(context.Background(), user, models.CreateGarbageRequest{
		AreaID:  area.Hex(),
		Address: "7 Lake Rd",
		Type:    models.GarbageRecyclable,
		Weight:  2.5,
	})

	require.NoError(t, err)
	assert.Equal(t, uid, res.Garbage.UserID)
	assert.Equal(t, models.GarbagePending, res.Garbage.Status)
	assert.NotEmpty(t, res.Garbage.QRToken)
	assert.False(t, res.Garbage.QRGeneratedAt.IsZero())
	assert.Nil(t, res.Garbage.Longitude)
	assert.NotNil(t, res.Garbage.Images)

	u, err := url.Parse(res.ScanURL)
	require.NoError(t, err)
	assert.Equal(t, "/scanner", u.Path)
	assert.Equal(t, res.Garbage.ID.Hex(), u.Query().Get("garbageId"))
	assert.Equal(t, res.Garbage.QRToken, u.Query().Get("token"))
}

func TestGarbageService_Create_IssuesFreshTokens(t *testing.T) {
	f := newGarbageFixture(t)
	user, _ := newActor(models.ActorUser)
	f.garbages.On("InsertOne", mock.Anything, mock.Anything).Return(nil, nil)
	in := models.CreateGarbageRequest{AreaID: primitive.NewObjectID().Hex(), Type: models.GarbageRecyclable}

	a, err := f.svc.Create(context.Background(), user, in)
	require.NoError(t, err)
	b, err := f.svc.Create(context.Background(), user, in)
	require.NoError(t, err)

	assert.NotEqual(t, a.Garbage.QRToken, b.Garbage.QRToken)
}

func TestGarbageService_Create_Validation(t *testing.T) {
	f := newGarbageFixture(t)
	user, _ := newActor(models.ActorUser)
	area := primitive.NewObjectID().Hex()

	tests := []struct {
		name string
		in   models.CreateGarbageRequest
	}{
		{"missing type", models.CreateGarbageRequest{AreaID: area}},
		{"missing area", models.CreateGarbageRequest{Type: models.GarbageRecyclable}},
		{"unknown type", models.CreateGarbageRequest{AreaID: area, Type: "Glass"}},
		{"negative weight", models.CreateGarbageRequest{AreaID: area, Type: models.GarbageRecyclable, Weight: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), user, tt.in)
			assert.Equal(t, services.KindValidation, services.KindOf(err))
		})
	}
}

func TestGarbageService_Scan_WeightBasedBilling(t *testing.T) {
	f := newGarbageFixture(t)
	collector, collectorID := newActor(models.ActorCollector)
	area := &models.Area{ID: primitive.NewObjectID(), Type: models.AreaWeightBased, Rate: 50}
	g := pendingGarbage(area.ID, 3)
	claimed := *g
	claimed.Status = models.GarbageCollected
	claimed.CollectedBy = &collectorID

	f.garbages.On("FindOne", mock.Anything, bson.M{"_id": g.ID}).Return(g, nil)
	f.areas.On("FindOne", mock.Anything, bson.M{"_id": area.ID}).Return(area, nil)
	f.garbages.On("FindOneAndUpdate", mock.Anything, mock.MatchedBy(func(filter bson.M) bool {
		return filter["_id"] == g.ID && assert.ObjectsAreEqual(bson.M{"$ne": models.GarbageCollected}, filter["status"])
	}), mock.Anything).Return(&claimed, nil)
	f.txs.On("FindOne", mock.Anything, bson.M{"garbage": g.ID}).Return(nil, mongo.ErrNoDocuments)
	f.txs.On("InsertOne", mock.Anything, mock.AnythingOfType("*models.Transaction")).Return(nil, nil)
	f.garbages.On("UpdateOne", mock.Anything, bson.M{"_id": g.ID}, mock.Anything).Return(nil)

	res, err := f.svc.Scan(context.Background(), collector, g.ID.Hex(), g.QRToken)

	require.NoError(t, err)
	require.NotNil(t, res.Transaction)
	assert.Equal(t, 150.0, res.Transaction.Amount)
	assert.False(t, res.Transaction.IsPaid)
	assert.False(t, res.Transaction.IsRefund)
	assert.Equal(t, g.UserID, res.Transaction.UserID)
	assert.Equal(t, models.GarbageCollected, res.Garbage.Status)
	assert.Equal(t, &res.Transaction.ID, res.Garbage.TransactionID)
	assert.Equal(t, "Garbage marked collected and transaction created", res.Message)
}

func TestGarbageService_Scan_TwiceBillsOnce(t *testing.T) {
	f := newGarbageFixture(t)
	collector, _ := newActor(models.ActorCollector)
	area := &models.Area{ID: primitive.NewObjectID(), Type: models.AreaFlat, Rate: 100}
	g := pendingGarbage(area.ID, 0)
	claimed := collectedCopy(g)
	claimed.TransactionID = nil

	// the second scan reads a stale pending row and loses the claim
	f.garbages.On("FindOne", mock.Anything, mock.Anything).Return(g, nil).Twice()
	f.garbages.On("FindOne", mock.Anything, mock.Anything).Return(collectedCopy(g), nil).Once()
	f.areas.On("FindOne", mock.Anything, mock.Anything).Return(area, nil)
	f.garbages.On("FindOneAndUpdate", mock.Anything, mock.Anything, mock.Anything).Return(claimed, nil).Once()
	f.garbages.On("FindOneAndUpdate", mock.Anything, mock.Anything, mock.Anything).Return(nil, mongo.ErrNoDocuments).Once()
	f.txs.On("FindOne", mock.Anything, mock.Anything).Return(nil, mongo.ErrNoDocuments).Once()
	f.txs.On("InsertOne", mock.Anything, mock.Anything).Return(nil, nil).Once()
	f.garbages.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

	first, err := f.svc.Scan(context.Background(), collector, g.ID.Hex(), g.QRToken)
	require.NoError(t, err)
	second, err := f.svc.Scan(context.Background(), collector, g.ID.Hex(), g.QRToken)
	require.NoError(t, err)

	assert.NotNil(t, first.Transaction)
	assert.Nil(t, second.Transaction)
	assert.Equal(t, models.GarbageCollected, second.Garbage.Status)
	f.txs.AssertNumberOfCalls(t, "InsertOne", 1)
	f.garbages.AssertNumberOfCalls(t, "UpdateOne", 1)
}

func TestGarbageService_Scan_AlreadyCollectedIsNoop(t *testing.T) {
	f := newGarbageFixture(t)
	collector, _ := newActor(models.ActorCollector)
	g := collectedCopy(pendingGarbage(primitive.NewObjectID(), 1))
	f.garbages.On("FindOne", mock.Anything, mock.Anything).Return(g, nil)

	res, err := f.svc.Scan(context.Background(), collector, g.ID.Hex(), g.QRToken)

	require.NoError(t, err)
	assert.Equal(t, "Already collected or transaction exists", res.Message)
	assert.Nil(t, res.Transaction)
	f.garbages.AssertNotCalled(t, "FindOneAndUpdate", mock.Anything, mock.Anything, mock.Anything)
}

func TestGarbageService_Scan_MismatchedTokenAlwaysRejected(t *testing.T) {
	collector, _ := newActor(models.ActorCollector)
	statuses := []string{
		models.GarbagePending,
		models.GarbageScheduled,
		models.GarbageCollected,
		models.GarbageInProgress,
		models.GarbageCancelled,
	}
	for _, status := range statuses {
		for _, token := range []string{"", "not-the-token"} {
			t.Run(status+"/"+token, func(t *testing.T) {
				f := newGarbageFixture(t)
				g := pendingGarbage(primitive.NewObjectID(), 1)
				g.Status = status
				f.garbages.On("FindOne", mock.Anything, mock.Anything).Return(g, nil)

				_, err := f.svc.Scan(context.Background(), collector, g.ID.Hex(), token)

				assert.Equal(t, services.KindInvalidToken, services.KindOf(err))
			})
		}
	}
}

func TestGarbageService_Scan_NotFound(t *testing.T) {
	f := newGarbageFixture(t)
	collector, _ := newActor(models.ActorCollector)
	f.garbages.On("FindOne", mock.Anything, mock.Anything).Return(nil, mongo.ErrNoDocuments)

	_, err := f.svc.Scan(context.Background(), collector, primitive.NewObjectID().Hex(), "token")

	assert.Equal(t, services.KindNotFound, services.KindOf(err))
}

func TestGarbageService_Scan_OnlyCollectors(t *testing.T) {
	f := newGarbageFixture(t)
	user, _ := newActor(models.ActorUser)

	_, err := f.svc.Scan(context.Background(), user, primitive.NewObjectID().Hex(), "token")

	assert.Equal(t, services.KindForbidden, services.KindOf(err))
}

func TestGarbageService_Scan_AreaLookupFailureLeavesRequestUntouched(t *testing.T) {
	f := newGarbageFixture(t)
	collector, _ := newActor(models.ActorCollector)
	g := pendingGarbage(primitive.NewObjectID(), 1)
	f.garbages.On("FindOne", mock.Anything, mock.Anything).Return(g, nil)
	f.areas.On("FindOne", mock.Anything, mock.Anything).Return(nil, errors.New("socket closed"))

	_, err := f.svc.Scan(context.Background(), collector, g.ID.Hex(), g.QRToken)

	assert.Equal(t, services.KindInternal, services.KindOf(err))
	f.garbages.AssertNotCalled(t, "FindOneAndUpdate", mock.Anything, mock.Anything, mock.Anything)
}

func TestGarbageService_UpdateStatus(t *testing.T) {
	admin, _ := newActor(models.ActorAdmin)
	wma, _ := newActor(models.ActorWMA)
	user, _ := newActor(models.ActorUser)
	id := primitive.NewObjectID()

	t.Run("residents are refused", func(t *testing.T) {
		f := newGarbageFixture(t)
		_, err := f.svc.UpdateStatus(context.Background(), user, id.Hex(), models.GarbageCancelled)
		assert.Equal(t, services.KindForbidden, services.KindOf(err))
	})

	t.Run("unknown status", func(t *testing.T) {
		f := newGarbageFixture(t)
		_, err := f.svc.UpdateStatus(context.Background(), admin, id.Hex(), "Lost")
		assert.Equal(t, services.KindValidation, services.KindOf(err))
	})

	t.Run("collected only through scanning", func(t *testing.T) {
		f := newGarbageFixture(t)
		_, err := f.svc.UpdateStatus(context.Background(), admin, id.Hex(), models.GarbageCollected)
		assert.Equal(t, services.KindValidation, services.KindOf(err))
	})

	t.Run("updates", func(t *testing.T) {
		f := newGarbageFixture(t)
		f.garbages.On("FindOneAndUpdate", mock.Anything, mock.Anything, mock.MatchedBy(func(u bson.M) bool {
			return u["$set"].(bson.M)["status"] == models.GarbageInProgress
		})).Return(&models.Garbage{ID: id, Status: models.GarbageInProgress}, nil)

		g, err := f.svc.UpdateStatus(context.Background(), wma, id.Hex(), models.GarbageInProgress)
		require.NoError(t, err)
		assert.Equal(t, models.GarbageInProgress, g.Status)
	})

	t.Run("collected is terminal", func(t *testing.T) {
		f := newGarbageFixture(t)
		f.garbages.On("FindOneAndUpdate", mock.Anything, mock.Anything, mock.Anything).Return(nil, mongo.ErrNoDocuments)
		f.garbages.On("FindOne", mock.Anything, mock.Anything).Return(&models.Garbage{ID: id, Status: models.GarbageCollected}, nil)

		_, err := f.svc.UpdateStatus(context.Background(), admin, id.Hex(), models.GarbagePending)
		assert.Equal(t, services.KindConflict, services.KindOf(err))
	})

	t.Run("missing", func(t *testing.T) {
		f := newGarbageFixture(t)
		f.garbages.On("FindOneAndUpdate", mock.Anything, mock.Anything, mock.Anything).Return(nil, mongo.ErrNoDocuments)
		f.garbages.On("FindOne", mock.Anything, mock.Anything).Return(nil, mongo.ErrNoDocuments)

		_, err := f.svc.UpdateStatus(context.Background(), admin, id.Hex(), models.GarbagePending)
		assert.Equal(t, services.KindNotFound, services.KindOf(err))
	})
}

func TestGarbageService_MarkScheduled(t *testing.T) {
	id := primitive.NewObjectID()

	t.Run("pending moves to scheduled", func(t *testing.T) {
		f := newGarbageFixture(t)
		f.garbages.On("FindOneAndUpdate", mock.Anything, mock.Anything, mock.Anything).
			Return(&models.Garbage{ID: id, Status: models.GarbageScheduled}, nil)

		g, err := f.svc.MarkScheduled(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, models.GarbageScheduled, g.Status)
	})

	for _, status := range []string{models.GarbageScheduled, models.GarbageCollected} {
		t.Run(status+" conflicts", func(t *testing.T) {
			f := newGarbageFixture(t)
			f.garbages.On("FindOneAndUpdate", mock.Anything, mock.Anything, mock.Anything).Return(nil, mongo.ErrNoDocuments)
			f.garbages.On("FindOne", mock.Anything, mock.Anything).Return(&models.Garbage{ID: id, Status: status}, nil)

			_, err := f.svc.MarkScheduled(context.Background(), id)
			assert.Equal(t, services.KindConflict, services.KindOf(err))
		})
	}
}

func TestGarbageService_QR_IssuesMissingToken(t *testing.T) {
	f := newGarbageFixture(t)
	user, uid := newActor(models.ActorUser)
	g := &models.Garbage{ID: primitive.NewObjectID(), UserID: uid}
	f.garbages.On("FindOne", mock.Anything, mock.Anything).Return(g, nil)
	f.garbages.On("UpdateOne", mock.Anything, bson.M{"_id": g.ID}, mock.Anything).Return(nil)

	qr, err := f.svc.QR(context.Background(), user, g.ID.Hex())

	require.NoError(t, err)
	assert.Equal(t, g.ID.Hex(), qr.GarbageID)
	assert.Contains(t, qr.URL, "token="+g.QRToken)
	assert.NotEmpty(t, g.QRToken)
}

func TestGarbageService_Get_ResidentsSeeOwnRequests(t *testing.T) {
	f := newGarbageFixture(t)
	stranger, _ := newActor(models.ActorUser)
	collector, _ := newActor(models.ActorCollector)
	g := pendingGarbage(primitive.NewObjectID(), 1)
	f.garbages.On("FindOne", mock.Anything, mock.Anything).Return(g, nil)

	_, err := f.svc.Get(context.Background(), stranger, g.ID.Hex())
	assert.Equal(t, services.KindForbidden, services.KindOf(err))

	got, err := f.svc.Get(context.Background(), collector, g.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, g.ID, got.ID)
}

func TestGarbageService_ListByArea_ScopesResidents(t *testing.T) {
	f := newGarbageFixture(t)
	user, uid := newActor(models.ActorUser)
	area := primitive.NewObjectID()
	f.garbages.On("Find", mock.Anything, bson.M{"area": area, "user": uid}, mock.Anything).Return([]models.Garbage{}, nil)

	list, err := f.svc.ListByArea(context.Background(), user, area.Hex(), databasesPage())

	require.NoError(t, err)
	assert.Empty(t, list)
}
