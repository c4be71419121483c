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

// Schedule exported for testing purposes
type Schedule struct {
	Service *services.ScheduleService
}

// CreateScheduleHandler is the admin entry point. When the body names a
// pickup request, that request is marked scheduled and its owner notified.
func (s Schedule) CreateScheduleHandler(w http.ResponseWriter, r *http.Request) {
	var in models.CreateScheduleRequest
	if !decodeBody(w, r, &in) {
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	sched, err := s.Service.CreateWithNotification(ctx, api.ActorFrom(r.Context()), in)
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, sched)
}

// CreateWMAScheduleHandler lets an authority schedule a pickup for itself
func (s Schedule) CreateWMAScheduleHandler(w http.ResponseWriter, r *http.Request) {
	var in models.CreateScheduleRequest
	if !decodeBody(w, r, &in) {
		return
	}
	actor := api.ActorFrom(r.Context())
	if in.WMAID == "" {
		in.WMAID = actor.ID
	}
	// pickup requests are only linked through the admin endpoint
	in.GarbageID = ""

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	sched, err := s.Service.Create(ctx, actor, in)
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, sched)
}

// CompleteScheduleHandler closes a schedule on behalf of its collector
func (s Schedule) CompleteScheduleHandler(w http.ResponseWriter, r *http.Request) {
	scheduleID := mux.Vars(r)["schedule_id"]

	var in models.CompleteScheduleRequest
	if r.ContentLength != 0 {
		if !decodeBody(w, r, &in) {
			return
		}
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	res, err := s.Service.Complete(ctx, api.ActorFrom(r.Context()), scheduleID, in)
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, res)
}

// UpdateScheduleHandler applies an admin edit
func (s Schedule) UpdateScheduleHandler(w http.ResponseWriter, r *http.Request) {
	scheduleID := mux.Vars(r)["schedule_id"]

	var in models.UpdateScheduleRequest
	if !decodeBody(w, r, &in) {
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	sched, err := s.Service.Update(ctx, api.ActorFrom(r.Context()), scheduleID, in)
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, sched)
}

// ScheduleByIDHandler returns a single schedule
func (s Schedule) ScheduleByIDHandler(w http.ResponseWriter, r *http.Request) {
	scheduleID := mux.Vars(r)["schedule_id"]

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	sched, err := s.Service.Get(ctx, api.ActorFrom(r.Context()), scheduleID)
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, sched)
}

// DeleteScheduleHandler removes a schedule
func (s Schedule) DeleteScheduleHandler(w http.ResponseWriter, r *http.Request) {
	scheduleID := mux.Vars(r)["schedule_id"]

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if err := s.Service.Delete(ctx, api.ActorFrom(r.Context()), scheduleID); err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]string{"message": "Schedule deleted"})
}

// ScheduleHandler returns every schedule
func (s Schedule) ScheduleHandler(w http.ResponseWriter, r *http.Request) {
	s.list(w, r, s.Service.List)
}

// CollectorSchedulesHandler returns the schedules assigned to the calling collector
func (s Schedule) CollectorSchedulesHandler(w http.ResponseWriter, r *http.Request) {
	s.list(w, r, s.Service.ListForCollector)
}

// WMASchedulesHandler returns an authority's schedules, optionally filtered by
// status. Authorities call it without a wma_id to get their own.
func (s Schedule) WMASchedulesHandler(w http.ResponseWriter, r *http.Request) {
	wmaID := mux.Vars(r)["wma_id"]
	status := r.URL.Query().Get("status")
	s.list(w, r, func(ctx context.Context, actor models.Actor, page databases.Page) ([]models.Schedule, error) {
		return s.Service.ListForWMA(ctx, actor, wmaID, status, page)
	})
}

func (s Schedule) list(w http.ResponseWriter, r *http.Request, fn func(context.Context, models.Actor, databases.Page) ([]models.Schedule, error)) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	list, err := fn(ctx, api.ActorFrom(r.Context()), api.PageFrom(r))
	if err != nil {
		api.WriteError(w, err)
		return
	}
	if list == nil {
		list = []models.Schedule{}
	}
	api.WriteJSON(w, http.StatusOK, list)
}
