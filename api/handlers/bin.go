package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/cleanpath/cleanpath-api/api"
	"github.com/cleanpath/cleanpath-api/config"
	"github.com/cleanpath/cleanpath-api/databases"
	"github.com/cleanpath/cleanpath-api/models"
	"github.com/cleanpath/cleanpath-api/services"
)

// Bin exported for testing purposes
type Bin struct {
	Service *services.BinService
}

// CreateBinHandler registers a bin for the calling resident
func (b Bin) CreateBinHandler(w http.ResponseWriter, r *http.Request) {
	var in models.CreateBinRequest
	if !decodeBody(w, r, &in) {
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	bin, err := b.Service.Create(ctx, api.ActorFrom(r.Context()), in)
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, bin)
}

// UpdateBinLevelHandler applies a level delta reported by a device or a resident
func (b Bin) UpdateBinLevelHandler(w http.ResponseWriter, r *http.Request) {
	binID := mux.Vars(r)["bin_id"]

	var in models.UpdateBinLevelRequest
	if !decodeBody(w, r, &in) {
		return
	}
	delta, ok := in.Delta()
	if !ok {
		config.ErrorStatus("added is required", http.StatusBadRequest, w, nil)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	update, err := b.Service.ApplyLevelDelta(ctx, api.ActorFrom(r.Context()), binID, delta)
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, update)
}

// CollectBinHandler empties a bin and bills its owner
func (b Bin) CollectBinHandler(w http.ResponseWriter, r *http.Request) {
	binID := mux.Vars(r)["bin_id"]

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	res, err := b.Service.Collect(ctx, api.ActorFrom(r.Context()), binID)
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, res)
}

// ForwardBinHandler escalates an urgent bin to the admins
func (b Bin) ForwardBinHandler(w http.ResponseWriter, r *http.Request) {
	binID := mux.Vars(r)["bin_id"]

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	bin, err := b.Service.ForwardToAdmin(ctx, api.ActorFrom(r.Context()), binID)
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, models.BinAction{Message: "Bin forwarded to admin", Bin: bin})
}

// DeleteBinHandler removes a bin
func (b Bin) DeleteBinHandler(w http.ResponseWriter, r *http.Request) {
	binID := mux.Vars(r)["bin_id"]

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if err := b.Service.Delete(ctx, api.ActorFrom(r.Context()), binID); err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]string{"message": "Bin deleted"})
}

// MyBinsHandler returns the caller's bins
func (b Bin) MyBinsHandler(w http.ResponseWriter, r *http.Request) {
	b.list(w, r, b.Service.ListForOwner)
}

// UrgentBinsHandler returns urgent bins in the calling authority's areas
func (b Bin) UrgentBinsHandler(w http.ResponseWriter, r *http.Request) {
	b.list(w, r, b.Service.ListUrgentForWMA)
}

// WMABinsHandler returns every bin of the calling authority
func (b Bin) WMABinsHandler(w http.ResponseWriter, r *http.Request) {
	b.list(w, r, b.Service.ListForWMA)
}

// ForwardedBinsHandler returns bins forwarded to the admins
func (b Bin) ForwardedBinsHandler(w http.ResponseWriter, r *http.Request) {
	b.list(w, r, b.Service.ListForwarded)
}

type binLister func(ctx context.Context, actor models.Actor, page databases.Page) ([]models.Bin, error)

func (b Bin) list(w http.ResponseWriter, r *http.Request, fn binLister) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	bins, err := fn(ctx, api.ActorFrom(r.Context()), api.PageFrom(r))
	if err != nil {
		api.WriteError(w, err)
		return
	}
	if bins == nil {
		bins = []models.Bin{}
	}
	api.WriteJSON(w, http.StatusOK, bins)
}
