package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/cleanpath/cleanpath-api/config"
	"github.com/cleanpath/cleanpath-api/databases"
	"github.com/cleanpath/cleanpath-api/services"
)

var kindStatus = map[services.Kind]int{
	services.KindValidation:   http.StatusBadRequest,
	services.KindInvalidToken: http.StatusBadRequest,
	services.KindNotFound:     http.StatusNotFound,
	services.KindUnauthorized: http.StatusUnauthorized,
	services.KindForbidden:    http.StatusForbidden,
	services.KindConflict:     http.StatusConflict,
	services.KindInternal:     http.StatusInternalServerError,
}

// StatusFor returns the http status for a service error
func StatusFor(err error) int {
	if status, ok := kindStatus[services.KindOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// WriteError writes a service error with the status its kind maps to. Only
// internal failures carry the underlying cause.
func WriteError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	message := err.Error()
	var e *services.Error
	if errors.As(err, &e) {
		message = e.Message
	}
	if status >= http.StatusInternalServerError {
		config.ErrorStatus(message, status, w, err)
		return
	}
	config.ErrorStatus(message, status, w, nil)
}

// WriteJSON marshals v and writes it with status
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}

// PageFrom reads limit and page from the query string. Without a valid
// limit the whole listing is returned.
func PageFrom(r *http.Request) databases.Page {
	p := databases.Page{Page: 1}
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		p.Limit = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v > 0 {
		p.Page = v
	}
	return p
}
