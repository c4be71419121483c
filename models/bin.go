package models

import (
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UrgentThreshold is the fill percentage at or above which a bin is urgent
const UrgentThreshold = 90.0

// Bin holds the structure for the bins collection in mongo
type Bin struct {
	ID               primitive.ObjectID  `json:"_id" bson:"_id"`
	Name             string              `json:"name" bson:"name"`
	Capacity         float64             `json:"capacity" bson:"capacity"`
	CurrentLevel     float64             `json:"currentLevel" bson:"currentLevel"`
	Address          string              `json:"address" bson:"address"`
	OwnerID          primitive.ObjectID  `json:"owner" bson:"owner"`
	AreaID           primitive.ObjectID  `json:"area" bson:"area"`
	WMAID            *primitive.ObjectID `json:"wmaId,omitempty" bson:"wmaId,omitempty"`
	IsUrgent         bool                `json:"isUrgent" bson:"isUrgent"`
	ForwardedToAdmin bool                `json:"forwardedToAdmin" bson:"forwardedToAdmin"`
	ForwardedAt      *time.Time          `json:"forwardedAt,omitempty" bson:"forwardedAt,omitempty"`
	ScheduleID       *primitive.ObjectID `json:"scheduleId" bson:"scheduleId"`
	LastCollectedAt  *time.Time          `json:"lastCollectedAt,omitempty" bson:"lastCollectedAt,omitempty"`
	PercentageFilled int                 `json:"percentageFilled" bson:"-"`
	CreatedAt        time.Time           `json:"createdAt" bson:"createdAt"`
	UpdatedAt        time.Time           `json:"updatedAt" bson:"updatedAt"`
}

// Percentage returns the raw fill percentage of the bin. A bin without a
// capacity is reported as empty.
func (b *Bin) Percentage() float64 {
	if b.Capacity <= 0 {
		return 0
	}
	return b.CurrentLevel / b.Capacity * 100
}

// Fill refreshes the derived PercentageFilled field, rounded and capped at 100
func (b *Bin) Fill() *Bin {
	b.PercentageFilled = int(math.Min(100, math.Round(b.Percentage())))
	return b
}

// CreateBinRequest is the request body for creating a bin
type CreateBinRequest struct {
	Name     string  `json:"name"`
	Capacity float64 `json:"capacity"`
	AreaID   string  `json:"area"`
	Address  string  `json:"address"`
}

// UpdateBinLevelRequest is the request body for a level update. Added is the
// signed delta; CurrentLevel is the legacy field name for the same delta.
type UpdateBinLevelRequest struct {
	Added        *float64 `json:"added"`
	CurrentLevel *float64 `json:"currentLevel"`
}

// Delta returns the level delta carried by the request, preferring Added
func (r UpdateBinLevelRequest) Delta() (float64, bool) {
	if r.Added != nil {
		return *r.Added, true
	}
	if r.CurrentLevel != nil {
		return *r.CurrentLevel, true
	}
	return 0, false
}

// BinLevelUpdate is the outcome of a level update. CreatedSchedule is set only
// when the update made the bin urgent and a pickup could be scheduled.
type BinLevelUpdate struct {
	Bin             *Bin      `json:"bin"`
	PreviousLevel   float64   `json:"previousLevel"`
	Added           float64   `json:"added"`
	NewLevel        float64   `json:"newLevel"`
	Percentage      int       `json:"percentage"`
	CreatedSchedule *Schedule `json:"createdSchedule"`
}

// BinAction is returned by the forward and collect endpoints
type BinAction struct {
	Message     string       `json:"message"`
	Bin         *Bin         `json:"bin"`
	Transaction *Transaction `json:"transaction,omitempty"`
}
