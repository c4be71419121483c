package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/cleanpath/cleanpath-api/databases"
	"github.com/cleanpath/cleanpath-api/models"
)

// LedgerService owns billing transactions
type LedgerService struct {
	Transactions databases.TransactionDatabase
	Gateway      PaymentGateway
}

// NewLedgerService returns a ledger. gateway may be nil, in which case
// checkout is unavailable.
func NewLedgerService(tx databases.TransactionDatabase, gateway PaymentGateway) *LedgerService {
	return &LedgerService{Transactions: tx, Gateway: gateway}
}

// ChargeGarbage bills the owner of a collected pickup request. A request is
// billed at most once: an existing transaction for it is returned as is.
func (l *LedgerService) ChargeGarbage(ctx context.Context, g *models.Garbage, area *models.Area) (*models.Transaction, error) {
	existing, err := l.transactionForGarbage(ctx, g.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	now := time.Now().UTC()
	gid := g.ID
	tx := &models.Transaction{
		ID:          primitive.NewObjectID(),
		UserID:      g.UserID,
		Description: fmt.Sprintf("Garbage collection - request %s", g.ID.Hex()),
		Amount:      GarbageAmount(area, g.Weight),
		GarbageID:   &gid,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	_, err = l.Transactions.InsertOne(ctx, tx)
	if mongo.IsDuplicateKeyError(err) {
		// lost the race against another charge for the same request
		existing, err = l.transactionForGarbage(ctx, g.ID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
		return nil, Internal("failed to read back transaction", nil)
	}
	if err != nil {
		return nil, Internal("failed to create transaction", err)
	}

	zap.S().Infow("charged garbage request",
		"garbage", g.ID.Hex(),
		"transaction", tx.ID.Hex(),
		"amount", tx.Amount)
	return tx, nil
}

func (l *LedgerService) transactionForGarbage(ctx context.Context, id primitive.ObjectID) (*models.Transaction, error) {
	tx, err := l.Transactions.FindOne(ctx, bson.M{"garbage": id})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, Internal("failed to look up transaction", err)
	}
	return tx, nil
}

// ChargeBin bills the owner of a bin for one collection event
func (l *LedgerService) ChargeBin(ctx context.Context, bin *models.Bin, area *models.Area) (*models.Transaction, error) {
	now := time.Now().UTC()
	bid := bin.ID
	tx := &models.Transaction{
		ID:          primitive.NewObjectID(),
		UserID:      bin.OwnerID,
		Description: fmt.Sprintf("Bin collection - bin %s", bin.ID.Hex()),
		Amount:      BinAmount(area),
		BinID:       &bid,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := l.Transactions.InsertOne(ctx, tx); err != nil {
		return nil, Internal("failed to create transaction", err)
	}
	return tx, nil
}

// Create stores a manual transaction on behalf of an admin
func (l *LedgerService) Create(ctx context.Context, actor models.Actor, in models.CreateTransactionRequest) (*models.Transaction, error) {
	if err := requireKind(actor, models.ActorAdmin); err != nil {
		return nil, err
	}
	userID, err := parseID("userID", in.UserID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Description) == "" {
		return nil, Validationf("description is required")
	}
	if in.Amount == nil {
		return nil, Validationf("amount is required")
	}
	if *in.Amount < 0 {
		return nil, Validationf("amount must not be negative")
	}

	now := time.Now().UTC()
	tx := &models.Transaction{
		ID:          primitive.NewObjectID(),
		UserID:      userID,
		Description: in.Description,
		Amount:      roundAmount(*in.Amount),
		IsPaid:      in.IsPaid,
		IsRefund:    in.IsRefund,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := l.Transactions.InsertOne(ctx, tx); err != nil {
		return nil, Internal("failed to create transaction", err)
	}
	return tx, nil
}

// Get returns a transaction visible to its owner and to admins
func (l *LedgerService) Get(ctx context.Context, actor models.Actor, id string) (*models.Transaction, error) {
	oid, err := parseID("transaction id", id)
	if err != nil {
		return nil, err
	}
	tx, err := l.Transactions.FindOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return nil, storeError(err, "transaction")
	}
	if !actor.Is(models.ActorAdmin) && tx.UserID.Hex() != actor.ID {
		return nil, Forbiddenf("transaction belongs to another user")
	}
	return tx, nil
}

// ListForUser returns the caller's transactions, newest first
func (l *LedgerService) ListForUser(ctx context.Context, actor models.Actor, page databases.Page) ([]models.Transaction, error) {
	uid, err := actorID(actor)
	if err != nil {
		return nil, err
	}
	txs, err := l.Transactions.Find(ctx, bson.M{"user": uid}, databases.NewestFirst(page))
	if err != nil {
		return nil, Internal("failed to list transactions", err)
	}
	return txs, nil
}

// List returns every transaction for an admin
func (l *LedgerService) List(ctx context.Context, actor models.Actor, page databases.Page) ([]models.Transaction, error) {
	if err := requireKind(actor, models.ActorAdmin); err != nil {
		return nil, err
	}
	txs, err := l.Transactions.Find(ctx, bson.M{}, databases.NewestFirst(page))
	if err != nil {
		return nil, Internal("failed to list transactions", err)
	}
	return txs, nil
}

// Update applies the fields an admin supplied
func (l *LedgerService) Update(ctx context.Context, actor models.Actor, id string, in models.UpdateTransactionRequest) (*models.Transaction, error) {
	if err := requireKind(actor, models.ActorAdmin); err != nil {
		return nil, err
	}
	oid, err := parseID("transaction id", id)
	if err != nil {
		return nil, err
	}

	set := bson.M{}
	if in.Description != nil {
		if strings.TrimSpace(*in.Description) == "" {
			return nil, Validationf("description must not be empty")
		}
		set["description"] = *in.Description
	}
	if in.Amount != nil {
		if *in.Amount < 0 {
			return nil, Validationf("amount must not be negative")
		}
		set["amount"] = roundAmount(*in.Amount)
	}
	if in.IsPaid != nil {
		set["isPaid"] = *in.IsPaid
	}
	if in.IsRefund != nil {
		set["isRefund"] = *in.IsRefund
	}
	if len(set) == 0 {
		return nil, Validationf("nothing to update")
	}
	set["updatedAt"] = time.Now().UTC()

	tx, err := l.Transactions.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		return nil, storeError(err, "transaction")
	}
	return tx, nil
}

// Checkout opens a payment session for one of the caller's unpaid transactions
func (l *LedgerService) Checkout(ctx context.Context, actor models.Actor, id string) (*models.Checkout, error) {
	if l.Gateway == nil {
		return nil, Internal("payments are not configured", nil)
	}
	oid, err := parseID("transaction id", id)
	if err != nil {
		return nil, err
	}
	tx, err := l.Transactions.FindOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return nil, storeError(err, "transaction")
	}
	if tx.UserID.Hex() != actor.ID {
		return nil, Forbiddenf("transaction belongs to another user")
	}
	if tx.IsPaid {
		return nil, Conflictf("transaction is already paid")
	}

	sessionID, url, err := l.Gateway.Checkout(ctx, tx)
	if err != nil {
		return nil, Internal("failed to open checkout session", err)
	}
	err = l.Transactions.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{
		"checkoutSessionId": sessionID,
		"updatedAt":         time.Now().UTC(),
	}})
	if err != nil {
		// the session is live; the payer can still complete it
		zap.S().Errorw("failed to store checkout session",
			"transaction", id,
			"session", sessionID,
			"error", err)
	}
	return &models.Checkout{TransactionID: id, SessionID: sessionID, URL: url}, nil
}
