package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/cleanpath/cleanpath-api/api"
	"github.com/cleanpath/cleanpath-api/databases"
	"github.com/cleanpath/cleanpath-api/models"
	"github.com/cleanpath/cleanpath-api/services"
)

// Garbage exported for testing purposes
type Garbage struct {
	Service *services.GarbageService
}

// CreateGarbageHandler files a pickup request for the calling resident
func (g Garbage) CreateGarbageHandler(w http.ResponseWriter, r *http.Request) {
	var in models.CreateGarbageRequest
	if !decodeBody(w, r, &in) {
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	created, err := g.Service.Create(ctx, api.ActorFrom(r.Context()), in)
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, created)
}

// ScanGarbageHandler is called by a collector after scanning a QR code. The
// token is read from the body, or from the query string when the body is empty.
func (g Garbage) ScanGarbageHandler(w http.ResponseWriter, r *http.Request) {
	garbageID := mux.Vars(r)["garbage_id"]

	var in models.ScanGarbageRequest
	if r.ContentLength != 0 {
		if !decodeBody(w, r, &in) {
			return
		}
	}
	if in.Token == "" {
		in.Token = r.URL.Query().Get("token")
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	res, err := g.Service.Scan(ctx, api.ActorFrom(r.Context()), garbageID, in.Token)
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, res)
}

// UpdateGarbageStatusHandler lets an authority move a request through its statuses
func (g Garbage) UpdateGarbageStatusHandler(w http.ResponseWriter, r *http.Request) {
	garbageID := mux.Vars(r)["garbage_id"]

	var in models.UpdateGarbageStatusRequest
	if !decodeBody(w, r, &in) {
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	garbage, err := g.Service.UpdateStatus(ctx, api.ActorFrom(r.Context()), garbageID, in.Status)
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, garbage)
}

// GarbageQRHandler returns the scan URL to encode in the request's QR code
func (g Garbage) GarbageQRHandler(w http.ResponseWriter, r *http.Request) {
	garbageID := mux.Vars(r)["garbage_id"]

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	qr, err := g.Service.QR(ctx, api.ActorFrom(r.Context()), garbageID)
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, qr)
}

// GarbageByIDHandler returns a single request
func (g Garbage) GarbageByIDHandler(w http.ResponseWriter, r *http.Request) {
	garbageID := mux.Vars(r)["garbage_id"]

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	garbage, err := g.Service.Get(ctx, api.ActorFrom(r.Context()), garbageID)
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, garbage)
}

// DeleteGarbageHandler removes a request
func (g Garbage) DeleteGarbageHandler(w http.ResponseWriter, r *http.Request) {
	garbageID := mux.Vars(r)["garbage_id"]

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if err := g.Service.Delete(ctx, api.ActorFrom(r.Context()), garbageID); err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]string{"message": "Garbage request deleted"})
}

// GarbageHandler returns every request
func (g Garbage) GarbageHandler(w http.ResponseWriter, r *http.Request) {
	g.list(w, r, g.Service.List)
}

// MyGarbageHandler returns the caller's requests
func (g Garbage) MyGarbageHandler(w http.ResponseWriter, r *http.Request) {
	g.list(w, r, g.Service.ListForUser)
}

// GarbageByAreaHandler returns the requests filed in an area
func (g Garbage) GarbageByAreaHandler(w http.ResponseWriter, r *http.Request) {
	areaID := mux.Vars(r)["area_id"]
	g.list(w, r, func(ctx context.Context, actor models.Actor, page databases.Page) ([]models.Garbage, error) {
		return g.Service.ListByArea(ctx, actor, areaID, page)
	})
}

func (g Garbage) list(w http.ResponseWriter, r *http.Request, fn func(context.Context, models.Actor, databases.Page) ([]models.Garbage, error)) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	list, err := fn(ctx, api.ActorFrom(r.Context()), api.PageFrom(r))
	if err != nil {
		api.WriteError(w, err)
		return
	}
	if list == nil {
		list = []models.Garbage{}
	}
	api.WriteJSON(w, http.StatusOK, list)
}
