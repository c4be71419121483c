package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Schedule statuses
const (
	SchedulePending    = "Pending"
	ScheduleUrgent     = "Urgent"
	ScheduleInProgress = "In Progress"
	ScheduleScheduled  = "Scheduled"
	ScheduleCompleted  = "Completed"
)

// Schedule holds the structure for the schedules collection in mongo
type Schedule struct {
	ID          primitive.ObjectID  `json:"_id" bson:"_id"`
	WMAID       primitive.ObjectID  `json:"wmaId" bson:"wmaId"`
	CollectorID *primitive.ObjectID `json:"collectorId" bson:"collectorId"`
	AreaID      primitive.ObjectID  `json:"area" bson:"area"`
	Date        time.Time           `json:"date" bson:"date"`
	Time        string              `json:"time" bson:"time"`
	Longitude   *float64            `json:"longitude" bson:"longitude"`
	Latitude    *float64            `json:"latitude" bson:"latitude"`
	Status      string              `json:"status" bson:"status"`
	BinID       *primitive.ObjectID `json:"binId,omitempty" bson:"binId,omitempty"`
	GarbageID   *primitive.ObjectID `json:"garbageId,omitempty" bson:"garbageId,omitempty"`
	CreatedAt   time.Time           `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt" bson:"updatedAt"`
}

// IsScheduleStatus reports whether s is part of the schedule status taxonomy
func IsScheduleStatus(s string) bool {
	switch s {
	case SchedulePending, ScheduleUrgent, ScheduleInProgress, ScheduleScheduled, ScheduleCompleted:
		return true
	}
	return false
}

// CreateScheduleRequest is the request body for creating a schedule. GarbageID
// is only honoured by the admin endpoint that also notifies the requester.
type CreateScheduleRequest struct {
	WMAID       string `json:"wmaId"`
	CollectorID string `json:"collectorId"`
	AreaID      string `json:"area"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	BinID       string `json:"binId"`
	GarbageID   string `json:"garbageId"`
}

// UpdateScheduleRequest holds the optional fields an admin may change
type UpdateScheduleRequest struct {
	WMAID       string   `json:"wmaId"`
	CollectorID string   `json:"collectorId"`
	AreaID      string   `json:"area"`
	Date        string   `json:"date"`
	Time        string   `json:"time"`
	Longitude   *float64 `json:"longitude"`
	Latitude    *float64 `json:"latitude"`
	Status      string   `json:"status"`
}

// CompleteScheduleRequest is sent by a collector when closing a schedule
type CompleteScheduleRequest struct {
	GarbageID     string `json:"garbageId"`
	SmartDeviceID string `json:"smartDeviceId"`
}

// ScheduleCompletion is the outcome of completing a schedule. Every field
// other than Schedule may be nil.
type ScheduleCompletion struct {
	Schedule    *Schedule    `json:"schedule"`
	Garbage     *Garbage     `json:"garbage"`
	SmartDevice *SmartDevice `json:"smartDevice"`
	Transaction *Transaction `json:"transaction"`
}
