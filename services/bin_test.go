package services_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/cleanpath/cleanpath-api/databases"
	"github.com/cleanpath/cleanpath-api/databases/mocks"
	"github.com/cleanpath/cleanpath-api/models"
	"github.com/cleanpath/cleanpath-api/services"
)

func TestBinService_ApplyLevelDelta_CrossingThresholdSchedulesPickup(t *testing.T) {
	user, owner := newActor(models.ActorUser)
	wma := primitive.NewObjectID()
	bin := &models.Bin{
		ID:           primitive.NewObjectID(),
		Capacity:     100,
		CurrentLevel: 85,
		OwnerID:      owner,
		AreaID:       primitive.NewObjectID(),
		WMAID:        &wma,
	}

	binDB := mocks.NewBinDatabase(t)
	binDB.On("FindOne", mock.Anything, bson.M{"_id": bin.ID}).Return(bin, nil)
	binDB.On("FindOneAndUpdate", mock.Anything, bson.M{"_id": bin.ID, "currentLevel": 85.0, "isUrgent": false}, mock.MatchedBy(func(u bson.M) bool {
		set := u["$set"].(bson.M)
		return set["currentLevel"] == 95.0 && set["isUrgent"] == true
	})).Return(bin, nil)

	scheduler := &urgentScheduler{}
	svc := services.NewBinService(binDB, mocks.NewAreaDatabase(t), nil, scheduler, nil)

	res, err := svc.ApplyLevelDelta(context.Background(), user, bin.ID.Hex(), 10)

	require.NoError(t, err)
	assert.Equal(t, 85.0, res.PreviousLevel)
	assert.Equal(t, 10.0, res.Added)
	assert.Equal(t, 95.0, res.NewLevel)
	assert.Equal(t, 95, res.Percentage)
	assert.True(t, res.Bin.IsUrgent)
	assert.Equal(t, 95, res.Bin.PercentageFilled)
	require.NotNil(t, res.CreatedSchedule)
	assert.Equal(t, models.ScheduleUrgent, res.CreatedSchedule.Status)
	assert.Equal(t, []primitive.ObjectID{wma}, scheduler.calls)
}

func TestBinService_ApplyLevelDelta_ClampAndUrgencyInvariant(t *testing.T) {
	user, _ := newActor(models.ActorUser)
	levels := []float64{0, 10, 44, 45, 50}
	deltas := []float64{-100, -5, 0, 0.5, 1, 5, 100}

	for _, level := range levels {
		for _, delta := range deltas {
			t.Run(fmt.Sprintf("level %v delta %v", level, delta), func(t *testing.T) {
				wma := primitive.NewObjectID()
				wasUrgent := level/50*100 >= 90
				bin := &models.Bin{
					ID:           primitive.NewObjectID(),
					Capacity:     50,
					CurrentLevel: level,
					IsUrgent:     wasUrgent,
					WMAID:        &wma,
				}
				binDB := mocks.NewBinDatabase(t)
				binDB.On("FindOne", mock.Anything, mock.Anything).Return(bin, nil)
				binDB.On("FindOneAndUpdate", mock.Anything, mock.Anything, mock.Anything).Return(bin, nil)
				scheduler := &urgentScheduler{}
				svc := services.NewBinService(binDB, mocks.NewAreaDatabase(t), nil, scheduler, nil)

				res, err := svc.ApplyLevelDelta(context.Background(), user, bin.ID.Hex(), delta)
				require.NoError(t, err)

				assert.GreaterOrEqual(t, res.NewLevel, 0.0)
				assert.LessOrEqual(t, res.NewLevel, 50.0)
				assert.Equal(t, res.NewLevel/50*100 >= 90, res.Bin.IsUrgent)

				if !wasUrgent && res.Bin.IsUrgent {
					assert.Len(t, scheduler.calls, 1)
				} else {
					assert.Empty(t, scheduler.calls)
					assert.Nil(t, res.CreatedSchedule)
				}
			})
		}
	}
}

func TestBinService_ApplyLevelDelta_SchedulingFailureIsNotFatal(t *testing.T) {
	user, _ := newActor(models.ActorUser)
	wma := primitive.NewObjectID()
	bin := &models.Bin{ID: primitive.NewObjectID(), Capacity: 10, CurrentLevel: 8, WMAID: &wma}

	binDB := mocks.NewBinDatabase(t)
	binDB.On("FindOne", mock.Anything, mock.Anything).Return(bin, nil)
	binDB.On("FindOneAndUpdate", mock.Anything, mock.Anything, mock.Anything).Return(bin, nil)
	scheduler := &urgentScheduler{err: errors.New("insert failed")}
	svc := services.NewBinService(binDB, mocks.NewAreaDatabase(t), nil, scheduler, nil)

	res, err := svc.ApplyLevelDelta(context.Background(), user, bin.ID.Hex(), 1)

	require.NoError(t, err)
	assert.True(t, res.Bin.IsUrgent)
	assert.Nil(t, res.CreatedSchedule)
	assert.Len(t, scheduler.calls, 1)
}

func TestBinService_ApplyLevelDelta_ResolvesWMAFromArea(t *testing.T) {
	user, _ := newActor(models.ActorUser)
	area := &models.Area{ID: primitive.NewObjectID(), Name: "Kandy"}
	resolved := primitive.NewObjectID()
	bin := &models.Bin{ID: primitive.NewObjectID(), Capacity: 10, CurrentLevel: 0, AreaID: area.ID}

	binDB := mocks.NewBinDatabase(t)
	binDB.On("FindOne", mock.Anything, mock.Anything).Return(bin, nil)
	binDB.On("FindOneAndUpdate", mock.Anything, mock.Anything, mock.Anything).Return(bin, nil)
	areaDB := mocks.NewAreaDatabase(t)
	areaDB.On("FindOne", mock.Anything, bson.M{"_id": area.ID}).Return(area, nil)
	scheduler := &urgentScheduler{}
	svc := services.NewBinService(binDB, areaDB, staticResolver{id: &resolved}, scheduler, nil)

	res, err := svc.ApplyLevelDelta(context.Background(), user, bin.ID.Hex(), 9)

	require.NoError(t, err)
	assert.NotNil(t, res.CreatedSchedule)
	assert.Equal(t, []primitive.ObjectID{resolved}, scheduler.calls)
}

func TestBinService_ApplyLevelDelta_UnresolvedWMASkipsScheduling(t *testing.T) {
	user, _ := newActor(models.ActorUser)
	bin := &models.Bin{ID: primitive.NewObjectID(), Capacity: 10, AreaID: primitive.NewObjectID()}

	binDB := mocks.NewBinDatabase(t)
	binDB.On("FindOne", mock.Anything, mock.Anything).Return(bin, nil)
	binDB.On("FindOneAndUpdate", mock.Anything, mock.Anything, mock.Anything).Return(bin, nil)
	areaDB := mocks.NewAreaDatabase(t)
	areaDB.On("FindOne", mock.Anything, mock.Anything).Return(&models.Area{ID: bin.AreaID, Name: "Nowhere"}, nil)
	scheduler := &urgentScheduler{}
	svc := services.NewBinService(binDB, areaDB, staticResolver{}, scheduler, nil)

	res, err := svc.ApplyLevelDelta(context.Background(), user, bin.ID.Hex(), 10)

	require.NoError(t, err)
	assert.True(t, res.Bin.IsUrgent)
	assert.Nil(t, res.CreatedSchedule)
	assert.Empty(t, scheduler.calls)
}

func TestBinService_ApplyLevelDelta_RetriesWhenLevelMovedUnderneath(t *testing.T) {
	user, _ := newActor(models.ActorUser)
	wma := primitive.NewObjectID()
	id := primitive.NewObjectID()
	stale := &models.Bin{ID: id, Capacity: 100, CurrentLevel: 85, WMAID: &wma}
	fresh := &models.Bin{ID: id, Capacity: 100, CurrentLevel: 95, IsUrgent: true, WMAID: &wma}

	binDB := mocks.NewBinDatabase(t)
	binDB.On("FindOne", mock.Anything, bson.M{"_id": id}).Return(stale, nil).Once()
	binDB.On("FindOne", mock.Anything, bson.M{"_id": id}).Return(fresh, nil).Once()
	binDB.On("FindOneAndUpdate", mock.Anything, bson.M{"_id": id, "currentLevel": 85.0, "isUrgent": false}, mock.Anything).
		Return(nil, mongo.ErrNoDocuments).Once()
	binDB.On("FindOneAndUpdate", mock.Anything, bson.M{"_id": id, "currentLevel": 95.0, "isUrgent": true}, mock.MatchedBy(func(u bson.M) bool {
		return u["$set"].(bson.M)["currentLevel"] == 100.0
	})).Return(fresh, nil).Once()
	scheduler := &urgentScheduler{}
	svc := services.NewBinService(binDB, mocks.NewAreaDatabase(t), nil, scheduler, nil)

	res, err := svc.ApplyLevelDelta(context.Background(), user, id.Hex(), 10)

	require.NoError(t, err)
	assert.Equal(t, 95.0, res.PreviousLevel)
	assert.Equal(t, 100.0, res.NewLevel)
	// the other writer already crossed the threshold, so no second escalation
	assert.Nil(t, res.CreatedSchedule)
	assert.Empty(t, scheduler.calls)
}

func TestBinService_ApplyLevelDelta_GivesUpAfterRepeatedContention(t *testing.T) {
	user, _ := newActor(models.ActorUser)
	bin := &models.Bin{ID: primitive.NewObjectID(), Capacity: 100, CurrentLevel: 10}

	binDB := mocks.NewBinDatabase(t)
	binDB.On("FindOne", mock.Anything, mock.Anything).Return(bin, nil)
	binDB.On("FindOneAndUpdate", mock.Anything, mock.Anything, mock.Anything).Return(nil, mongo.ErrNoDocuments).Times(3)
	svc := services.NewBinService(binDB, mocks.NewAreaDatabase(t), nil, &urgentScheduler{}, nil)

	_, err := svc.ApplyLevelDelta(context.Background(), user, bin.ID.Hex(), 5)

	assert.Equal(t, services.KindConflict, services.KindOf(err))
}

func TestBinService_ApplyLevelDelta_NotFound(t *testing.T) {
	user, _ := newActor(models.ActorUser)
	binDB := mocks.NewBinDatabase(t)
	binDB.On("FindOne", mock.Anything, mock.Anything).Return(nil, mongo.ErrNoDocuments)
	svc := services.NewBinService(binDB, mocks.NewAreaDatabase(t), nil, &urgentScheduler{}, nil)

	_, err := svc.ApplyLevelDelta(context.Background(), user, primitive.NewObjectID().Hex(), 5)

	assert.Equal(t, services.KindNotFound, services.KindOf(err))
}

func TestBinService_ApplyLevelDelta_RequiresIdentity(t *testing.T) {
	svc := services.NewBinService(mocks.NewBinDatabase(t), mocks.NewAreaDatabase(t), nil, &urgentScheduler{}, nil)

	_, err := svc.ApplyLevelDelta(context.Background(), models.Actor{}, primitive.NewObjectID().Hex(), 5)

	assert.Equal(t, services.KindUnauthorized, services.KindOf(err))
}

func TestBinService_ForwardToAdmin_RequiresUrgentBin(t *testing.T) {
	wma, _ := newActor(models.ActorWMA)
	bin := &models.Bin{ID: primitive.NewObjectID(), Capacity: 100, CurrentLevel: 50}

	binDB := mocks.NewBinDatabase(t)
	binDB.On("FindOne", mock.Anything, mock.Anything).Return(bin, nil)
	svc := services.NewBinService(binDB, mocks.NewAreaDatabase(t), nil, &urgentScheduler{}, nil)

	_, err := svc.ForwardToAdmin(context.Background(), wma, bin.ID.Hex())

	assert.Equal(t, services.KindValidation, services.KindOf(err))
	binDB.AssertNotCalled(t, "UpdateOne", mock.Anything, mock.Anything, mock.Anything)
}

func TestBinService_ForwardToAdmin_ClearsSchedule(t *testing.T) {
	wma, _ := newActor(models.ActorWMA)
	linked := primitive.NewObjectID()
	bin := &models.Bin{ID: primitive.NewObjectID(), Capacity: 100, CurrentLevel: 95, IsUrgent: true, ScheduleID: &linked}

	binDB := mocks.NewBinDatabase(t)
	binDB.On("FindOne", mock.Anything, mock.Anything).Return(bin, nil)
	binDB.On("UpdateOne", mock.Anything, bson.M{"_id": bin.ID}, mock.MatchedBy(func(u bson.M) bool {
		set := u["$set"].(bson.M)
		v, ok := set["scheduleId"]
		return ok && v == nil && set["forwardedToAdmin"] == true
	})).Return(nil)
	svc := services.NewBinService(binDB, mocks.NewAreaDatabase(t), nil, &urgentScheduler{}, nil)

	res, err := svc.ForwardToAdmin(context.Background(), wma, bin.ID.Hex())

	require.NoError(t, err)
	assert.Nil(t, res.ScheduleID)
	assert.True(t, res.ForwardedToAdmin)
	assert.NotNil(t, res.ForwardedAt)
}

func TestBinService_ForwardToAdmin_OnlyAuthorities(t *testing.T) {
	user, _ := newActor(models.ActorUser)
	svc := services.NewBinService(mocks.NewBinDatabase(t), mocks.NewAreaDatabase(t), nil, &urgentScheduler{}, nil)

	_, err := svc.ForwardToAdmin(context.Background(), user, primitive.NewObjectID().Hex())

	assert.Equal(t, services.KindForbidden, services.KindOf(err))
}

func TestBinService_Collect_FlatRateChargesOwnerOnce(t *testing.T) {
	collector, _ := newActor(models.ActorCollector)
	area := &models.Area{ID: primitive.NewObjectID(), Type: models.AreaFlat, Rate: 200}
	bin := &models.Bin{
		ID:           primitive.NewObjectID(),
		Capacity:     100,
		CurrentLevel: 95,
		IsUrgent:     true,
		OwnerID:      primitive.NewObjectID(),
		AreaID:       area.ID,
	}

	binDB := mocks.NewBinDatabase(t)
	binDB.On("FindOne", mock.Anything, mock.Anything).Return(bin, nil)
	binDB.On("UpdateOne", mock.Anything, bson.M{"_id": bin.ID}, mock.MatchedBy(func(u bson.M) bool {
		set := u["$set"].(bson.M)
		return set["currentLevel"] == 0 && set["isUrgent"] == false && set["lastCollectedAt"] != nil
	})).Return(nil)
	areaDB := mocks.NewAreaDatabase(t)
	areaDB.On("FindOne", mock.Anything, bson.M{"_id": area.ID}).Return(area, nil)
	txDB := mocks.NewTransactionDatabase(t)
	txDB.On("InsertOne", mock.Anything, mock.AnythingOfType("*models.Transaction")).Return(nil, nil).Once()

	svc := services.NewBinService(binDB, areaDB, nil, &urgentScheduler{}, services.NewLedgerService(txDB, nil))

	res, err := svc.Collect(context.Background(), collector, bin.ID.Hex())

	require.NoError(t, err)
	require.NotNil(t, res.Transaction)
	assert.Equal(t, 200.0, res.Transaction.Amount)
	assert.False(t, res.Transaction.IsPaid)
	assert.Equal(t, bin.OwnerID, res.Transaction.UserID)
	assert.Equal(t, 0.0, res.Bin.CurrentLevel)
	assert.False(t, res.Bin.IsUrgent)
	assert.NotNil(t, res.Bin.LastCollectedAt)
	txDB.AssertNumberOfCalls(t, "InsertOne", 1)
}

func TestBinService_Collect_WeightBasedAreaStillFlat(t *testing.T) {
	collector, _ := newActor(models.ActorCollector)
	area := &models.Area{ID: primitive.NewObjectID(), Type: models.AreaWeightBased, Rate: 75}
	bin := &models.Bin{ID: primitive.NewObjectID(), Capacity: 100, OwnerID: primitive.NewObjectID(), AreaID: area.ID}

	binDB := mocks.NewBinDatabase(t)
	binDB.On("FindOne", mock.Anything, mock.Anything).Return(bin, nil)
	binDB.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	areaDB := mocks.NewAreaDatabase(t)
	areaDB.On("FindOne", mock.Anything, mock.Anything).Return(area, nil)
	txDB := mocks.NewTransactionDatabase(t)
	txDB.On("InsertOne", mock.Anything, mock.Anything).Return(nil, nil)

	svc := services.NewBinService(binDB, areaDB, nil, &urgentScheduler{}, services.NewLedgerService(txDB, nil))

	res, err := svc.Collect(context.Background(), collector, bin.ID.Hex())

	require.NoError(t, err)
	assert.Equal(t, 75.0, res.Transaction.Amount)
}

func TestBinService_Collect_WithoutOwner(t *testing.T) {
	collector, _ := newActor(models.ActorCollector)
	bin := &models.Bin{ID: primitive.NewObjectID(), Capacity: 100, CurrentLevel: 40, AreaID: primitive.NewObjectID()}

	binDB := mocks.NewBinDatabase(t)
	binDB.On("FindOne", mock.Anything, mock.Anything).Return(bin, nil)
	binDB.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	areaDB := mocks.NewAreaDatabase(t)
	areaDB.On("FindOne", mock.Anything, mock.Anything).Return(&models.Area{Rate: 200}, nil)
	txDB := mocks.NewTransactionDatabase(t)

	svc := services.NewBinService(binDB, areaDB, nil, &urgentScheduler{}, services.NewLedgerService(txDB, nil))

	res, err := svc.Collect(context.Background(), collector, bin.ID.Hex())

	require.NoError(t, err)
	assert.Nil(t, res.Transaction)
	assert.Equal(t, "Bin collected but no owner to bill", res.Message)
	txDB.AssertNotCalled(t, "InsertOne", mock.Anything, mock.Anything)
}

func TestBinService_Create(t *testing.T) {
	user, owner := newActor(models.ActorUser)
	area := &models.Area{ID: primitive.NewObjectID(), Name: "Galle"}
	wma := primitive.NewObjectID()

	binDB := mocks.NewBinDatabase(t)
	binDB.On("InsertOne", mock.Anything, mock.AnythingOfType("*models.Bin")).Return(nil, nil)
	areaDB := mocks.NewAreaDatabase(t)
	areaDB.On("FindOne", mock.Anything, bson.M{"_id": area.ID}).Return(area, nil)
	svc := services.NewBinService(binDB, areaDB, staticResolver{id: &wma}, &urgentScheduler{}, nil)

	bin, err := svc.Create(context.Background(), user, models.CreateBinRequest{
		Name:     "Kitchen",
		Capacity: 40,
		AreaID:   area.ID.Hex(),
		Address:  "12 Temple Rd",
	})

	require.NoError(t, err)
	assert.Equal(t, owner, bin.OwnerID)
	assert.Equal(t, 0.0, bin.CurrentLevel)
	assert.False(t, bin.IsUrgent)
	assert.Equal(t, &wma, bin.WMAID)
}

func TestBinService_Create_ResolverFailureIsLogged(t *testing.T) {
	user, _ := newActor(models.ActorUser)
	area := &models.Area{ID: primitive.NewObjectID(), Name: "Galle"}

	binDB := mocks.NewBinDatabase(t)
	binDB.On("InsertOne", mock.Anything, mock.Anything).Return(nil, nil)
	areaDB := mocks.NewAreaDatabase(t)
	areaDB.On("FindOne", mock.Anything, mock.Anything).Return(area, nil)
	svc := services.NewBinService(binDB, areaDB, staticResolver{err: errors.New("wmas offline")}, &urgentScheduler{}, nil)

	bin, err := svc.Create(context.Background(), user, models.CreateBinRequest{
		Name: "Yard", Capacity: 10, AreaID: area.ID.Hex(), Address: "1 Main St",
	})

	require.NoError(t, err)
	assert.Nil(t, bin.WMAID)
}

func TestBinService_Create_Validation(t *testing.T) {
	user, _ := newActor(models.ActorUser)
	svc := services.NewBinService(mocks.NewBinDatabase(t), mocks.NewAreaDatabase(t), nil, &urgentScheduler{}, nil)
	area := primitive.NewObjectID().Hex()

	tests := []struct {
		name string
		in   models.CreateBinRequest
	}{
		{"missing name", models.CreateBinRequest{Capacity: 10, AreaID: area, Address: "a"}},
		{"zero capacity", models.CreateBinRequest{Name: "b", AreaID: area, Address: "a"}},
		{"negative capacity", models.CreateBinRequest{Name: "b", Capacity: -1, AreaID: area, Address: "a"}},
		{"missing area", models.CreateBinRequest{Name: "b", Capacity: 10, Address: "a"}},
		{"bad area", models.CreateBinRequest{Name: "b", Capacity: 10, AreaID: "nope", Address: "a"}},
		{"missing address", models.CreateBinRequest{Name: "b", Capacity: 10, AreaID: area}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), user, tt.in)
			assert.Equal(t, services.KindValidation, services.KindOf(err))
		})
	}
}

func TestBinService_Create_UnknownArea(t *testing.T) {
	user, _ := newActor(models.ActorUser)
	areaDB := mocks.NewAreaDatabase(t)
	areaDB.On("FindOne", mock.Anything, mock.Anything).Return(nil, mongo.ErrNoDocuments)
	svc := services.NewBinService(mocks.NewBinDatabase(t), areaDB, nil, &urgentScheduler{}, nil)

	_, err := svc.Create(context.Background(), user, models.CreateBinRequest{
		Name: "b", Capacity: 10, AreaID: primitive.NewObjectID().Hex(), Address: "a",
	})

	assert.Equal(t, services.KindNotFound, services.KindOf(err))
}

func TestBinService_Delete(t *testing.T) {
	owner, ownerID := newActor(models.ActorUser)
	stranger, _ := newActor(models.ActorUser)
	admin, _ := newActor(models.ActorAdmin)
	bin := &models.Bin{ID: primitive.NewObjectID(), OwnerID: ownerID}

	binDB := mocks.NewBinDatabase(t)
	binDB.On("FindOne", mock.Anything, mock.Anything).Return(bin, nil)
	binDB.On("DeleteOne", mock.Anything, bson.M{"_id": bin.ID}).Return(nil).Twice()
	svc := services.NewBinService(binDB, mocks.NewAreaDatabase(t), nil, &urgentScheduler{}, nil)

	err := svc.Delete(context.Background(), stranger, bin.ID.Hex())
	assert.Equal(t, services.KindForbidden, services.KindOf(err))

	assert.NoError(t, svc.Delete(context.Background(), owner, bin.ID.Hex()))
	assert.NoError(t, svc.Delete(context.Background(), admin, bin.ID.Hex()))
}

func TestBinService_ListUrgentForWMA(t *testing.T) {
	wma, wmaID := newActor(models.ActorWMA)
	binDB := mocks.NewBinDatabase(t)
	binDB.On("Find", mock.Anything, bson.M{"wmaId": wmaID, "isUrgent": true}, mock.Anything).
		Return([]models.Bin{{Capacity: 10, CurrentLevel: 9.6}}, nil)
	svc := services.NewBinService(binDB, mocks.NewAreaDatabase(t), nil, &urgentScheduler{}, nil)

	bins, err := svc.ListUrgentForWMA(context.Background(), wma, databases.Page{})

	require.NoError(t, err)
	require.Len(t, bins, 1)
	assert.Equal(t, 96, bins[0].PercentageFilled)
}
