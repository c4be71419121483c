package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// SmartDevice statuses set when a collector completes a distribution run
const (
	DeviceDistributed      = "Distributed"
	DeviceGarbageCollected = "Collected"
)

// SmartDevice holds the structure for the smartdevices collection in mongo
type SmartDevice struct {
	ID            primitive.ObjectID `json:"_id" bson:"_id"`
	UserID        primitive.ObjectID `json:"userId" bson:"userId"`
	AreaID        primitive.ObjectID `json:"area" bson:"area"`
	Status        string             `json:"status" bson:"status"`
	GarbageStatus string             `json:"garbageStatus" bson:"garbageStatus"`
}
