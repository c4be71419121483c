package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
)

// Pinger reports whether the datastore is reachable
type Pinger interface {
	Ping(context.Context) error
}

// New creates a new mux router with the health check mounted
func New(db Pinger) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", HealthCheckHandler(db)).Methods("GET")

	return r
}

// HealthCheckHandler reports liveness and whether the datastore answers a ping
func HealthCheckHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := WithQueryTimeout(r.Context())
		defer cancel()

		resp := healthResponse{Alive: true, Database: "up"}
		status := http.StatusOK
		if db != nil {
			if err := db.Ping(ctx); err != nil {
				resp.Database = "down"
				status = http.StatusServiceUnavailable
			}
		}
		WriteJSON(w, status, resp)
	}
}

type healthResponse struct {
	Alive    bool   `json:"alive"`
	Database string `json:"database"`
}
