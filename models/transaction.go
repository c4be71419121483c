package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Transaction holds the structure for the transactions collection in mongo
type Transaction struct {
	ID                primitive.ObjectID  `json:"_id" bson:"_id"`
	UserID            primitive.ObjectID  `json:"user" bson:"user"`
	Description       string              `json:"description" bson:"description"`
	Amount            float64             `json:"amount" bson:"amount"`
	IsPaid            bool                `json:"isPaid" bson:"isPaid"`
	IsRefund          bool                `json:"isRefund" bson:"isRefund"`
	GarbageID         *primitive.ObjectID `json:"garbage,omitempty" bson:"garbage,omitempty"`
	BinID             *primitive.ObjectID `json:"bin,omitempty" bson:"bin,omitempty"`
	CheckoutSessionID string              `json:"checkoutSessionId,omitempty" bson:"checkoutSessionId,omitempty"`
	CreatedAt         time.Time           `json:"createdAt" bson:"createdAt"`
	UpdatedAt         time.Time           `json:"updatedAt" bson:"updatedAt"`
}

// CreateTransactionRequest is the admin request body for a manual transaction
type CreateTransactionRequest struct {
	UserID      string   `json:"userID"`
	Description string   `json:"description"`
	Amount      *float64 `json:"amount"`
	IsPaid      bool     `json:"isPaid"`
	IsRefund    bool     `json:"isRefund"`
}

// UpdateTransactionRequest holds the optional fields an admin may change
type UpdateTransactionRequest struct {
	Description *string  `json:"description"`
	Amount      *float64 `json:"amount"`
	IsPaid      *bool    `json:"isPaid"`
	IsRefund    *bool    `json:"isRefund"`
}

// Checkout is returned when a payment session is opened for a transaction
type Checkout struct {
	TransactionID string `json:"transactionId"`
	SessionID     string `json:"sessionId"`
	URL           string `json:"url"`
}
