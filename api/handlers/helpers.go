package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/cleanpath/cleanpath-api/config"
)

// decodeBody reads a JSON request body into v. It writes a 400 and returns
// false when the body cannot be decoded.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return false
	}
	return true
}
