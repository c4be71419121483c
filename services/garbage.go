package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/cleanpath/cleanpath-api/databases"
	"github.com/cleanpath/cleanpath-api/models"
)

// GarbageService owns pickup requests from creation to collection
type GarbageService struct {
	Garbages databases.GarbageDatabase
	Areas    databases.AreaDatabase
	Ledger   *LedgerService

	// ScannerURL is the collector app base that QR codes point at
	ScannerURL string
}

// NewGarbageService returns a garbage service
func NewGarbageService(garbages databases.GarbageDatabase, areas databases.AreaDatabase, ledger *LedgerService, scannerURL string) *GarbageService {
	return &GarbageService{
		Garbages:   garbages,
		Areas:      areas,
		Ledger:     ledger,
		ScannerURL: scannerURL,
	}
}

// Create stores a pending pickup request for the caller and issues its QR token
func (s *GarbageService) Create(ctx context.Context, actor models.Actor, in models.CreateGarbageRequest) (*models.GarbageCreated, error) {
	uid, err := actorID(actor)
	if err != nil {
		return nil, err
	}
	if in.Type == "" || in.AreaID == "" {
		return nil, Validationf("please fill all required fields (type and area)")
	}
	if !models.IsGarbageType(in.Type) {
		return nil, Validationf("type must be %s or %s", models.GarbageRecyclable, models.GarbageNonRecyclable)
	}
	areaID, err := parseID("area", in.AreaID)
	if err != nil {
		return nil, err
	}
	if in.Weight < 0 {
		return nil, Validationf("weight must not be negative")
	}
	images := in.Images
	if images == nil {
		images = []string{}
	}

	now := time.Now().UTC()
	g := &models.Garbage{
		ID:            primitive.NewObjectID(),
		UserID:        uid,
		Address:       in.Address,
		Longitude:     in.Longitude,
		Latitude:      in.Latitude,
		Type:          in.Type,
		AreaID:        areaID,
		Weight:        in.Weight,
		WasteDetails:  in.WasteDetails,
		Images:        images,
		QRToken:       uuid.NewString(),
		QRGeneratedAt: now,
		Status:        models.GarbagePending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if _, err := s.Garbages.InsertOne(ctx, g); err != nil {
		return nil, Internal("failed to create garbage request", err)
	}
	return &models.GarbageCreated{Garbage: g, ScanURL: s.ScanURL(g)}, nil
}

// ScanURL is the link encoded in the QR code of g
func (s *GarbageService) ScanURL(g *models.Garbage) string {
	q := url.Values{}
	q.Set("garbageId", g.ID.Hex())
	q.Set("token", g.QRToken)
	return strings.TrimRight(s.ScannerURL, "/") + "/scanner?" + q.Encode()
}

// Scan verifies the QR token presented by a collector and collects the
// request. Scanning a request that is already collected succeeds without
// changing anything.
func (s *GarbageService) Scan(ctx context.Context, actor models.Actor, garbageID, token string) (*models.GarbageScan, error) {
	if err := requireKind(actor, models.ActorCollector); err != nil {
		return nil, err
	}
	collector, err := actorID(actor)
	if err != nil {
		return nil, err
	}
	g, err := s.find(ctx, garbageID)
	if err != nil {
		return nil, err
	}
	if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(g.QRToken)) != 1 {
		return nil, InvalidTokenf("invalid or missing QR token")
	}
	if g.Status == models.GarbageCollected || g.TransactionID != nil {
		return &models.GarbageScan{Message: "Already collected or transaction exists", Garbage: g}, nil
	}

	collected, tx, err := s.MarkCollected(ctx, g, collector)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return &models.GarbageScan{Message: "Already collected or transaction exists", Garbage: collected}, nil
	}
	return &models.GarbageScan{
		Message:     "Garbage marked collected and transaction created",
		Garbage:     collected,
		Transaction: tx,
	}, nil
}

// MarkCollected claims g for collector and bills its owner. The claim is a
// conditional update, so of several concurrent callers exactly one bills; the
// others get the stored request back with a nil transaction.
func (s *GarbageService) MarkCollected(ctx context.Context, g *models.Garbage, collector primitive.ObjectID) (*models.Garbage, *models.Transaction, error) {
	area, err := s.Areas.FindOne(ctx, bson.M{"_id": g.AreaID})
	if err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil, Internal("failed to load area", err)
		}
		zap.S().Warnw("collecting garbage request without an area, charging nothing",
			"garbage", g.ID.Hex())
		area = nil
	}

	now := time.Now().UTC()
	claimed, err := s.Garbages.FindOneAndUpdate(ctx,
		bson.M{
			"_id":    g.ID,
			"status": bson.M{"$ne": models.GarbageCollected},
		},
		bson.M{"$set": bson.M{
			"status":      models.GarbageCollected,
			"collectedBy": collector,
			"collectedAt": now,
			"updatedAt":   now,
		}})
	if errors.Is(err, mongo.ErrNoDocuments) {
		current, err := s.Garbages.FindOne(ctx, bson.M{"_id": g.ID})
		if err != nil {
			return nil, nil, storeError(err, "garbage request")
		}
		return current, nil, nil
	}
	if err != nil {
		return nil, nil, Internal("failed to collect garbage request", err)
	}

	if claimed.TransactionID != nil {
		zap.S().Infow("garbage request already billed, marked collected only",
			"garbage", claimed.ID.Hex(),
			"transaction", claimed.TransactionID.Hex())
		return claimed, nil, nil
	}

	tx, err := s.Ledger.ChargeGarbage(ctx, claimed, area)
	if err != nil {
		zap.S().Errorw("garbage request collected but not billed",
			"garbage", claimed.ID.Hex(),
			"error", err)
		return nil, nil, err
	}

	err = s.Garbages.UpdateOne(ctx, bson.M{"_id": claimed.ID}, bson.M{"$set": bson.M{"transaction": tx.ID}})
	if err != nil {
		// the unique index on transactions.garbage still prevents a second charge
		zap.S().Errorw("failed to link transaction to garbage request",
			"garbage", claimed.ID.Hex(),
			"transaction", tx.ID.Hex(),
			"error", err)
	}
	txID := tx.ID
	claimed.TransactionID = &txID
	return claimed, tx, nil
}

// MarkScheduled moves a request to Scheduled unless it is already scheduled
// or collected.
func (s *GarbageService) MarkScheduled(ctx context.Context, id primitive.ObjectID) (*models.Garbage, error) {
	g, err := s.Garbages.FindOneAndUpdate(ctx,
		bson.M{
			"_id":    id,
			"status": bson.M{"$nin": []string{models.GarbageScheduled, models.GarbageCollected}},
		},
		bson.M{"$set": bson.M{
			"status":    models.GarbageScheduled,
			"updatedAt": time.Now().UTC(),
		}})
	if err == nil {
		return g, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, Internal("failed to schedule garbage request", err)
	}

	current, err := s.Garbages.FindOne(ctx, bson.M{"_id": id})
	if err != nil {
		return nil, storeError(err, "garbage request")
	}
	if current.Status == models.GarbageCollected {
		return nil, Conflictf("garbage request is already collected")
	}
	return nil, Conflictf("garbage request is already scheduled")
}

// UpdateStatus sets the status of a request. Collection only happens through
// a scan or a schedule completion, and a collected request is final.
func (s *GarbageService) UpdateStatus(ctx context.Context, actor models.Actor, garbageID, status string) (*models.Garbage, error) {
	if err := requireKind(actor, models.ActorAdmin, models.ActorWMA); err != nil {
		return nil, err
	}
	if !models.IsGarbageStatus(status) {
		return nil, Validationf("unknown status %q", status)
	}
	if status == models.GarbageCollected {
		return nil, Validationf("garbage requests are collected by scanning their QR code")
	}
	id, err := parseID("garbage id", garbageID)
	if err != nil {
		return nil, err
	}

	g, err := s.Garbages.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": bson.M{"$ne": models.GarbageCollected}},
		bson.M{"$set": bson.M{"status": status, "updatedAt": time.Now().UTC()}})
	if err == nil {
		return g, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, Internal("failed to update garbage request", err)
	}
	if _, err := s.Garbages.FindOne(ctx, bson.M{"_id": id}); err != nil {
		return nil, storeError(err, "garbage request")
	}
	return nil, Conflictf("garbage request is already collected")
}

// QR returns the scan link of a request, issuing a token for rows that
// predate tokens.
func (s *GarbageService) QR(ctx context.Context, actor models.Actor, garbageID string) (*models.GarbageQR, error) {
	g, err := s.Get(ctx, actor, garbageID)
	if err != nil {
		return nil, err
	}
	if g.QRToken == "" {
		now := time.Now().UTC()
		g.QRToken = uuid.NewString()
		g.QRGeneratedAt = now
		err = s.Garbages.UpdateOne(ctx, bson.M{"_id": g.ID}, bson.M{"$set": bson.M{
			"qrToken":       g.QRToken,
			"qrGeneratedAt": now,
		}})
		if err != nil {
			return nil, Internal("failed to issue QR token", err)
		}
	}
	return &models.GarbageQR{GarbageID: g.ID.Hex(), URL: s.ScanURL(g)}, nil
}

// Get returns a request. Residents only see their own requests.
func (s *GarbageService) Get(ctx context.Context, actor models.Actor, garbageID string) (*models.Garbage, error) {
	if _, err := actorID(actor); err != nil {
		return nil, err
	}
	g, err := s.find(ctx, garbageID)
	if err != nil {
		return nil, err
	}
	if actor.Is(models.ActorUser) && g.UserID.Hex() != actor.ID {
		return nil, Forbiddenf("garbage request belongs to another user")
	}
	return g, nil
}

// List returns every request for admins and authorities
func (s *GarbageService) List(ctx context.Context, actor models.Actor, page databases.Page) ([]models.Garbage, error) {
	if err := requireKind(actor, models.ActorAdmin, models.ActorWMA); err != nil {
		return nil, err
	}
	return s.list(ctx, bson.M{}, page)
}

// ListForUser returns the caller's requests, newest first
func (s *GarbageService) ListForUser(ctx context.Context, actor models.Actor, page databases.Page) ([]models.Garbage, error) {
	uid, err := actorID(actor)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, bson.M{"user": uid}, page)
}

// ListByArea returns the requests raised in an area
func (s *GarbageService) ListByArea(ctx context.Context, actor models.Actor, areaID string, page databases.Page) ([]models.Garbage, error) {
	uid, err := actorID(actor)
	if err != nil {
		return nil, err
	}
	id, err := parseID("area id", areaID)
	if err != nil {
		return nil, err
	}
	filter := bson.M{"area": id}
	if actor.Is(models.ActorUser) {
		filter["user"] = uid
	}
	return s.list(ctx, filter, page)
}

// Delete removes a request. Only its owner or an admin may do so.
func (s *GarbageService) Delete(ctx context.Context, actor models.Actor, garbageID string) error {
	if _, err := actorID(actor); err != nil {
		return err
	}
	g, err := s.find(ctx, garbageID)
	if err != nil {
		return err
	}
	if g.UserID.Hex() != actor.ID && !actor.Is(models.ActorAdmin) {
		return Forbiddenf("not authorized to delete this garbage request")
	}
	if err := s.Garbages.DeleteOne(ctx, bson.M{"_id": g.ID}); err != nil {
		return Internal("failed to delete garbage request", err)
	}
	return nil
}

func (s *GarbageService) find(ctx context.Context, garbageID string) (*models.Garbage, error) {
	id, err := parseID("garbage id", garbageID)
	if err != nil {
		return nil, err
	}
	g, err := s.Garbages.FindOne(ctx, bson.M{"_id": id})
	if err != nil {
		return nil, storeError(err, "garbage request")
	}
	return g, nil
}

func (s *GarbageService) list(ctx context.Context, filter bson.M, page databases.Page) ([]models.Garbage, error) {
	list, err := s.Garbages.Find(ctx, filter, databases.NewestFirst(page))
	if err != nil {
		return nil, Internal("failed to list garbage requests", err)
	}
	return list, nil
}
