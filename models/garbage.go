package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Garbage types
const (
	GarbageRecyclable    = "Recyclable"
	GarbageNonRecyclable = "Non-Recyclable"
)

// Garbage request statuses
const (
	GarbagePending    = "Pending"
	GarbageScheduled  = "Scheduled"
	GarbageCollected  = "Collected"
	GarbageInProgress = "In Progress"
	GarbageCancelled  = "Cancelled"
)

// Garbage holds the structure for the garbages collection in mongo
type Garbage struct {
	ID            primitive.ObjectID  `json:"_id" bson:"_id"`
	UserID        primitive.ObjectID  `json:"user" bson:"user"`
	Address       string              `json:"address" bson:"address"`
	Longitude     *float64            `json:"longitude,omitempty" bson:"longitude,omitempty"`
	Latitude      *float64            `json:"latitude,omitempty" bson:"latitude,omitempty"`
	Type          string              `json:"type" bson:"type"`
	AreaID        primitive.ObjectID  `json:"area" bson:"area"`
	Weight        float64             `json:"weight" bson:"weight"`
	WasteDetails  string              `json:"wasteDetails" bson:"wasteDetails"`
	Images        []string            `json:"images" bson:"images"`
	QRToken       string              `json:"qrToken" bson:"qrToken"`
	QRGeneratedAt time.Time           `json:"qrGeneratedAt" bson:"qrGeneratedAt"`
	CollectedBy   *primitive.ObjectID `json:"collectedBy,omitempty" bson:"collectedBy,omitempty"`
	CollectedAt   *time.Time          `json:"collectedAt,omitempty" bson:"collectedAt,omitempty"`
	TransactionID *primitive.ObjectID `json:"transaction,omitempty" bson:"transaction,omitempty"`
	Status        string              `json:"status" bson:"status"`
	CreatedAt     time.Time           `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time           `json:"updatedAt" bson:"updatedAt"`
}

// IsGarbageType reports whether t is one of the accepted garbage types
func IsGarbageType(t string) bool {
	return t == GarbageRecyclable || t == GarbageNonRecyclable
}

// IsGarbageStatus reports whether s is part of the garbage status taxonomy
func IsGarbageStatus(s string) bool {
	switch s {
	case GarbagePending, GarbageScheduled, GarbageCollected, GarbageInProgress, GarbageCancelled:
		return true
	}
	return false
}

// CreateGarbageRequest is the request body for a new pickup request
type CreateGarbageRequest struct {
	AreaID       string   `json:"area"`
	Address      string   `json:"address"`
	Longitude    *float64 `json:"longitude"`
	Latitude     *float64 `json:"latitude"`
	Type         string   `json:"type"`
	Weight       float64  `json:"weight"`
	WasteDetails string   `json:"wasteDetails"`
	Images       []string `json:"images"`
}

// ScanGarbageRequest is sent by a collector after scanning a QR code
type ScanGarbageRequest struct {
	Token string `json:"token"`
}

// UpdateGarbageStatusRequest changes the status of a pickup request
type UpdateGarbageStatusRequest struct {
	Status string `json:"status"`
}

// GarbageCreated is returned after a pickup request is stored
type GarbageCreated struct {
	Garbage *Garbage `json:"garbage"`
	ScanURL string   `json:"scanUrl"`
}

// GarbageScan is returned by the scan endpoint
type GarbageScan struct {
	Message     string       `json:"message"`
	Garbage     *Garbage     `json:"garbage"`
	Transaction *Transaction `json:"transaction,omitempty"`
}

// GarbageQR carries the scan URL handed to the QR renderer
type GarbageQR struct {
	GarbageID string `json:"garbageId"`
	URL       string `json:"url"`
}
