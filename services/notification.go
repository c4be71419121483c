package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/cleanpath/cleanpath-api/databases"
	"github.com/cleanpath/cleanpath-api/models"
)

// NotificationService stores per-user notifications. Delivery is pull only:
// users read them through the listing endpoints.
type NotificationService struct {
	Notifications databases.NotificationDatabase
}

// NewNotificationService returns a notification service
func NewNotificationService(db databases.NotificationDatabase) *NotificationService {
	return &NotificationService{Notifications: db}
}

// Notify stores a new unread notification for userID
func (n *NotificationService) Notify(ctx context.Context, userID primitive.ObjectID, title, message string, data map[string]interface{}) (*models.Notification, error) {
	if data == nil {
		data = map[string]interface{}{}
	}
	notification := &models.Notification{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		Title:     title,
		Message:   message,
		Data:      data,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := n.Notifications.InsertOne(ctx, notification); err != nil {
		return nil, Internal("failed to create notification", err)
	}
	return notification, nil
}

// ListForUser returns the caller's notifications, newest first
func (n *NotificationService) ListForUser(ctx context.Context, actor models.Actor, page databases.Page) ([]models.Notification, error) {
	uid, err := actorID(actor)
	if err != nil {
		return nil, err
	}
	list, err := n.Notifications.Find(ctx, bson.M{"userId": uid}, databases.NewestFirst(page))
	if err != nil {
		return nil, Internal("failed to list notifications", err)
	}
	return list, nil
}

// MarkRead flags one of the caller's notifications as read
func (n *NotificationService) MarkRead(ctx context.Context, actor models.Actor, id string) (*models.Notification, error) {
	notification, err := n.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if notification.Read {
		return notification, nil
	}
	err = n.Notifications.UpdateOne(ctx, bson.M{"_id": notification.ID}, bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return nil, Internal("failed to update notification", err)
	}
	notification.Read = true
	return notification, nil
}

// Delete removes one of the caller's notifications
func (n *NotificationService) Delete(ctx context.Context, actor models.Actor, id string) error {
	notification, err := n.owned(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := n.Notifications.DeleteOne(ctx, bson.M{"_id": notification.ID}); err != nil {
		return Internal("failed to delete notification", err)
	}
	return nil
}

func (n *NotificationService) owned(ctx context.Context, actor models.Actor, id string) (*models.Notification, error) {
	if _, err := actorID(actor); err != nil {
		return nil, err
	}
	oid, err := parseID("notification id", id)
	if err != nil {
		return nil, err
	}
	notification, err := n.Notifications.FindOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return nil, storeError(err, "notification")
	}
	if notification.UserID.Hex() != actor.ID {
		return nil, Forbiddenf("notification belongs to another user")
	}
	return notification, nil
}
