package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification holds the structure for the notifications collection in mongo
type Notification struct {
	ID        primitive.ObjectID     `json:"_id" bson:"_id"`
	UserID    primitive.ObjectID     `json:"userId" bson:"userId"`
	Title     string                 `json:"title" bson:"title"`
	Message   string                 `json:"message" bson:"message"`
	Data      map[string]interface{} `json:"data" bson:"data"`
	Read      bool                   `json:"read" bson:"read"`
	CreatedAt time.Time              `json:"createdAt" bson:"createdAt"`
}
