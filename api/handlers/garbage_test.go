package handlers_test

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/cleanpath/cleanpath-api/api/handlers"
	"github.com/cleanpath/cleanpath-api/databases/mocks"
	"github.com/cleanpath/cleanpath-api/models"
	"github.com/cleanpath/cleanpath-api/services"
)

func TestGarbage_CreateGarbageHandler(t *testing.T) {
	area := &models.Area{ID: primitive.NewObjectID(), Type: models.AreaWeightBased, Rate: 50}
	garbages := mocks.NewGarbageDatabase(t)
	areas := mocks.NewAreaDatabase(t)
	areas.On("FindOne", mock.Anything, bson.M{"_id": area.ID}).Return(area, nil).Maybe()
	garbages.On("InsertOne", mock.Anything, mock.AnythingOfType("*models.Garbage")).Return(nil, nil)
	g := handlers.Garbage{Service: services.NewGarbageService(garbages, areas, nil, "https://collector.example")}

	req, owner := newRequest(t, "POST", "/api/v1/garbage", models.CreateGarbageRequest{
		AreaID: area.ID.Hex(), Address: "4 Lake Rd", Type: models.GarbageRecyclable, Weight: 3,
	}, models.ActorUser)
	rr := serve(g.CreateGarbageHandler, req)

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var created models.GarbageCreated
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.Equal(t, owner, created.Garbage.UserID)
	assert.Equal(t, models.GarbagePending, created.Garbage.Status)
	assert.True(t, strings.HasPrefix(created.ScanURL, "https://collector.example/scanner?"))
	assert.Contains(t, created.ScanURL, "token="+created.Garbage.QRToken)
}

func TestGarbage_ScanGarbageHandler(t *testing.T) {
	area := &models.Area{ID: primitive.NewObjectID(), Type: models.AreaWeightBased, Rate: 50}
	pending := func() *models.Garbage {
		return &models.Garbage{
			ID: primitive.NewObjectID(), UserID: primitive.NewObjectID(), AreaID: area.ID,
			Weight: 3, QRToken: "secret-token", Status: models.GarbagePending,
		}
	}

	t.Run("token in query string", func(t *testing.T) {
		g := pending()
		garbages := mocks.NewGarbageDatabase(t)
		areas := mocks.NewAreaDatabase(t)
		txDB := mocks.NewTransactionDatabase(t)
		garbages.On("FindOne", mock.Anything, bson.M{"_id": g.ID}).Return(g, nil)
		areas.On("FindOne", mock.Anything, bson.M{"_id": area.ID}).Return(area, nil)
		garbages.On("FindOneAndUpdate", mock.Anything, mock.Anything, mock.Anything).Return(func() *models.Garbage {
			c := *g
			c.Status = models.GarbageCollected
			return &c
		}(), nil)
		txDB.On("FindOne", mock.Anything, bson.M{"garbage": g.ID}).Return(nil, errNoDocuments)
		txDB.On("InsertOne", mock.Anything, mock.AnythingOfType("*models.Transaction")).Return(nil, nil)
		garbages.On("UpdateOne", mock.Anything, bson.M{"_id": g.ID}, mock.Anything).Return(nil)
		h := handlers.Garbage{Service: services.NewGarbageService(garbages, areas, services.NewLedgerService(txDB, nil), "")}

		req, _ := newRequest(t, "POST", "/api/v1/garbage/"+g.ID.Hex()+"/scan?token=secret-token", nil, models.ActorCollector)
		req = mux.SetURLVars(req, map[string]string{"garbage_id": g.ID.Hex()})
		rr := serve(h.ScanGarbageHandler, req)

		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		var scan models.GarbageScan
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &scan))
		assert.Equal(t, "Garbage marked collected and transaction created", scan.Message)
		require.NotNil(t, scan.Transaction)
		assert.Equal(t, 150.0, scan.Transaction.Amount)
		assert.False(t, scan.Transaction.IsPaid)
	})

	t.Run("wrong token in body", func(t *testing.T) {
		g := pending()
		garbages := mocks.NewGarbageDatabase(t)
		garbages.On("FindOne", mock.Anything, bson.M{"_id": g.ID}).Return(g, nil)
		h := handlers.Garbage{Service: services.NewGarbageService(garbages, mocks.NewAreaDatabase(t), nil, "")}

		req, _ := newRequest(t, "POST", "/api/v1/garbage/"+g.ID.Hex()+"/scan", models.ScanGarbageRequest{Token: "guess"}, models.ActorCollector)
		req = mux.SetURLVars(req, map[string]string{"garbage_id": g.ID.Hex()})
		rr := serve(h.ScanGarbageHandler, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "invalid or missing QR token", decodeError(t, rr).Response.Message)
	})
}

func TestGarbage_UpdateGarbageStatusHandler(t *testing.T) {
	h := handlers.Garbage{Service: services.NewGarbageService(mocks.NewGarbageDatabase(t), mocks.NewAreaDatabase(t), nil, "")}
	id := primitive.NewObjectID().Hex()

	req, _ := newRequest(t, "PUT", "/api/v1/garbage/"+id, models.UpdateGarbageStatusRequest{Status: models.GarbageCollected}, models.ActorWMA)
	req = mux.SetURLVars(req, map[string]string{"garbage_id": id})
	rr := serve(h.UpdateGarbageStatusHandler, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGarbage_GarbageQRHandler(t *testing.T) {
	owner := primitive.NewObjectID()
	g := &models.Garbage{ID: primitive.NewObjectID(), UserID: owner, QRToken: "tok", Status: models.GarbagePending}
	garbages := mocks.NewGarbageDatabase(t)
	garbages.On("FindOne", mock.Anything, bson.M{"_id": g.ID}).Return(g, nil)
	h := handlers.Garbage{Service: services.NewGarbageService(garbages, mocks.NewAreaDatabase(t), nil, "https://collector.example")}

	req, _ := newRequest(t, "GET", "/api/v1/garbage/"+g.ID.Hex()+"/qr", nil, "")
	req = req.WithContext(withActor(req, models.Actor{ID: owner.Hex(), Kind: models.ActorUser}))
	req = mux.SetURLVars(req, map[string]string{"garbage_id": g.ID.Hex()})
	rr := serve(h.GarbageQRHandler, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var qr models.GarbageQR
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &qr))
	assert.Equal(t, g.ID.Hex(), qr.GarbageID)
	assert.Contains(t, qr.URL, "token=tok")
}
