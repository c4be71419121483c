package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Area billing policies
const (
	AreaFlat        = "flat"
	AreaWeightBased = "weightBased"
)

// Area holds the structure for the areas collection in mongo. Areas are
// maintained outside this service and only read for billing.
type Area struct {
	ID   primitive.ObjectID `json:"_id" bson:"_id"`
	Name string             `json:"name" bson:"name"`
	Type string             `json:"type" bson:"type"`
	Rate float64            `json:"rate" bson:"rate"`
}

// WMA holds the structure for the wmas collection in mongo
type WMA struct {
	ID      primitive.ObjectID `json:"_id" bson:"_id"`
	Name    string             `json:"wmaname" bson:"wmaname"`
	Address string             `json:"address" bson:"address"`
}

// Collector holds the structure for the collectors collection in mongo
type Collector struct {
	ID            primitive.ObjectID  `json:"_id" bson:"_id"`
	CollectorName string              `json:"collectorName" bson:"collectorName"`
	TruckNumber   string              `json:"truckNumber" bson:"truckNumber"`
	WMAID         *primitive.ObjectID `json:"wmaId,omitempty" bson:"wmaId,omitempty"`
}
