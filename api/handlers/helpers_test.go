package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/cleanpath/cleanpath-api/api"
	"github.com/cleanpath/cleanpath-api/models"
)

// newRequest builds a request with the given caller already authenticated
func newRequest(t *testing.T, method, target string, body interface{}, kind models.ActorKind) (*http.Request, primitive.ObjectID) {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	id := primitive.NewObjectID()
	if kind != "" {
		req = req.WithContext(api.WithActor(req.Context(), models.Actor{ID: id.Hex(), Kind: kind}))
	}
	return req, id
}

func serve(h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) models.ErrorMessageResponse {
	t.Helper()
	var body models.ErrorMessageResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body
}

type fixedResolver struct {
	id *primitive.ObjectID
}

func (f fixedResolver) Resolve(context.Context, *models.Area) (*primitive.ObjectID, error) {
	return f.id, nil
}

var errNoDocuments = mongo.ErrNoDocuments

func withActor(req *http.Request, actor models.Actor) context.Context {
	return api.WithActor(req.Context(), actor)
}

type stubGateway struct{}

func (stubGateway) Checkout(_ context.Context, tx *models.Transaction) (string, string, error) {
	return "cs_test", "https://checkout.example/cs_test", nil
}
