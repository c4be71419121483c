package api_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleanpath/cleanpath-api/api"
	"github.com/cleanpath/cleanpath-api/databases"
	"github.com/cleanpath/cleanpath-api/models"
	"github.com/cleanpath/cleanpath-api/services"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		err     error
		status  int
		message string
	}{
		{services.Validationf("capacity must be positive"), http.StatusBadRequest, "capacity must be positive"},
		{services.InvalidTokenf("Invalid QR token"), http.StatusBadRequest, "Invalid QR token"},
		{services.NotFoundf("bin not found"), http.StatusNotFound, "bin not found"},
		{services.Unauthorizedf("missing identity"), http.StatusUnauthorized, "missing identity"},
		{services.Forbiddenf("collectors only"), http.StatusForbidden, "collectors only"},
		{services.Conflictf("already completed"), http.StatusConflict, "already completed"},
		{services.Internal("failed to load bin", errors.New("socket closed")), http.StatusInternalServerError, "failed to load bin"},
		{errors.New("bare"), http.StatusInternalServerError, "bare"},
	}
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			rr := httptest.NewRecorder()
			api.WriteError(rr, tt.err)

			assert.Equal(t, tt.status, rr.Code)
			var body models.ErrorMessageResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.Equal(t, tt.message, body.Response.Message)
		})
	}
}

func TestWriteJSON(t *testing.T) {
	rr := httptest.NewRecorder()
	api.WriteJSON(rr, http.StatusCreated, map[string]int{"n": 1})

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"n":1}`, rr.Body.String())
}

func TestPageFrom(t *testing.T) {
	p := api.PageFrom(httptest.NewRequest("GET", "/x?limit=5&page=3", nil))
	assert.Equal(t, 5, p.Limit)
	assert.Equal(t, 3, p.Page)

	p = api.PageFrom(httptest.NewRequest("GET", "/x?limit=abc&page=-1", nil))
	assert.Equal(t, 0, p.Limit)
	assert.Equal(t, 1, p.Page)

	p = api.PageFrom(httptest.NewRequest("GET", "/x", nil))
	assert.Equal(t, databases.Page{Page: 1}, p)
	assert.Nil(t, databases.NewestFirst(p).Limit)
}
