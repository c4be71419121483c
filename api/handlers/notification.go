package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/cleanpath/cleanpath-api/api"
	"github.com/cleanpath/cleanpath-api/models"
	"github.com/cleanpath/cleanpath-api/services"
)

// Notification exported for testing purposes
type Notification struct {
	Service *services.NotificationService
}

// MyNotificationsHandler returns the caller's notifications, newest first
func (n Notification) MyNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	list, err := n.Service.ListForUser(ctx, api.ActorFrom(r.Context()), api.PageFrom(r))
	if err != nil {
		api.WriteError(w, err)
		return
	}
	if list == nil {
		list = []models.Notification{}
	}
	api.WriteJSON(w, http.StatusOK, list)
}

// MarkNotificationReadHandler flags a notification as read
func (n Notification) MarkNotificationReadHandler(w http.ResponseWriter, r *http.Request) {
	notificationID := mux.Vars(r)["notification_id"]

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	notification, err := n.Service.MarkRead(ctx, api.ActorFrom(r.Context()), notificationID)
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, notification)
}

// DeleteNotificationHandler removes a notification
func (n Notification) DeleteNotificationHandler(w http.ResponseWriter, r *http.Request) {
	notificationID := mux.Vars(r)["notification_id"]

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if err := n.Service.Delete(ctx, api.ActorFrom(r.Context()), notificationID); err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]string{"message": "Notification deleted"})
}
