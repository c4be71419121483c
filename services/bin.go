package services

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/cleanpath/cleanpath-api/databases"
	"github.com/cleanpath/cleanpath-api/models"
)

// levelAttempts bounds how often a level update is retried when another
// update lands between the read and the write
const levelAttempts = 3

// UrgentScheduler creates the pickup schedule for a bin that just became urgent
type UrgentScheduler interface {
	CreateUrgent(ctx context.Context, wmaID, areaID, binID primitive.ObjectID) (*models.Schedule, error)
}

// BinService owns the bin lifecycle: fill level, urgency, escalation and
// collection.
type BinService struct {
	Bins      databases.BinDatabase
	Areas     databases.AreaDatabase
	Resolver  WMAResolver
	Scheduler UrgentScheduler
	Ledger    *LedgerService
}

// NewBinService returns a bin service
func NewBinService(bins databases.BinDatabase, areas databases.AreaDatabase, resolver WMAResolver, scheduler UrgentScheduler, ledger *LedgerService) *BinService {
	return &BinService{
		Bins:      bins,
		Areas:     areas,
		Resolver:  resolver,
		Scheduler: scheduler,
		Ledger:    ledger,
	}
}

// Create registers a new empty bin owned by the caller
func (b *BinService) Create(ctx context.Context, actor models.Actor, in models.CreateBinRequest) (*models.Bin, error) {
	owner, err := actorID(actor)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, Validationf("name is required")
	}
	if in.Capacity <= 0 {
		return nil, Validationf("capacity must be greater than zero")
	}
	if strings.TrimSpace(in.Address) == "" {
		return nil, Validationf("address is required")
	}
	areaID, err := parseID("area", in.AreaID)
	if err != nil {
		return nil, err
	}
	area, err := b.Areas.FindOne(ctx, bson.M{"_id": areaID})
	if err != nil {
		return nil, storeError(err, "area")
	}

	now := time.Now().UTC()
	bin := &models.Bin{
		ID:        primitive.NewObjectID(),
		Name:      in.Name,
		Capacity:  in.Capacity,
		Address:   in.Address,
		OwnerID:   owner,
		AreaID:    area.ID,
		WMAID:     b.resolve(ctx, area),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := b.Bins.InsertOne(ctx, bin); err != nil {
		return nil, Internal("failed to create bin", err)
	}
	return bin.Fill(), nil
}

// ApplyLevelDelta adds delta to the bin level, clamped to the bin capacity,
// and recomputes urgency. When the bin crosses into urgent an urgent pickup
// is scheduled; failures there are logged and never fail the update.
func (b *BinService) ApplyLevelDelta(ctx context.Context, actor models.Actor, binID string, delta float64) (*models.BinLevelUpdate, error) {
	if _, err := actorID(actor); err != nil {
		return nil, err
	}
	if math.IsNaN(delta) || math.IsInf(delta, 0) {
		return nil, Validationf("added (number) is required")
	}
	for attempt := 0; attempt < levelAttempts; attempt++ {
		bin, err := b.find(ctx, binID)
		if err != nil {
			return nil, err
		}

		previous := bin.CurrentLevel
		level := math.Max(0, previous+delta)
		if bin.Capacity > 0 {
			level = math.Min(bin.Capacity, level)
		}
		wasUrgent := bin.IsUrgent
		bin.CurrentLevel = level
		percentage := bin.Percentage()
		bin.IsUrgent = percentage >= models.UrgentThreshold
		bin.UpdatedAt = time.Now().UTC()

		// the write only lands if nobody moved the level since it was read
		_, err = b.Bins.FindOneAndUpdate(ctx,
			bson.M{"_id": bin.ID, "currentLevel": previous, "isUrgent": wasUrgent},
			bson.M{"$set": bson.M{
				"currentLevel": bin.CurrentLevel,
				"isUrgent":     bin.IsUrgent,
				"updatedAt":    bin.UpdatedAt,
			}})
		if errors.Is(err, mongo.ErrNoDocuments) {
			zap.S().Debugw("bin level changed while updating, retrying",
				"bin", bin.ID.Hex(),
				"attempt", attempt+1)
			continue
		}
		if err != nil {
			return nil, Internal("failed to update bin level", err)
		}

		var created *models.Schedule
		if !wasUrgent && bin.IsUrgent {
			created = b.escalate(ctx, bin)
		}

		return &models.BinLevelUpdate{
			Bin:             bin.Fill(),
			PreviousLevel:   previous,
			Added:           delta,
			NewLevel:        bin.CurrentLevel,
			Percentage:      int(math.Round(percentage)),
			CreatedSchedule: created,
		}, nil
	}
	return nil, Conflictf("bin level is changing too quickly, try again")
}

// escalate schedules an urgent pickup for bin. It never fails the caller.
func (b *BinService) escalate(ctx context.Context, bin *models.Bin) *models.Schedule {
	wmaID := bin.WMAID
	if wmaID == nil {
		area, err := b.Areas.FindOne(ctx, bson.M{"_id": bin.AreaID})
		if err != nil {
			zap.S().Warnw("fallback wma lookup failed",
				"bin", bin.ID.Hex(),
				"error", err)
		} else {
			wmaID = b.resolve(ctx, area)
		}
	}
	if wmaID == nil {
		zap.S().Warnw("bin became urgent but no wma could be determined",
			"bin", bin.ID.Hex(),
			"area", bin.AreaID.Hex())
		return nil
	}

	schedule, err := b.Scheduler.CreateUrgent(ctx, *wmaID, bin.AreaID, bin.ID)
	if err != nil {
		zap.S().Errorw("failed to auto-create schedule for urgent bin",
			"bin", bin.ID.Hex(),
			"wma", wmaID.Hex(),
			"error", err)
		return nil
	}
	zap.S().Infow("auto-created schedule for urgent bin",
		"bin", bin.ID.Hex(),
		"schedule", schedule.ID.Hex())
	return schedule
}

func (b *BinService) resolve(ctx context.Context, area *models.Area) *primitive.ObjectID {
	if b.Resolver == nil {
		return nil
	}
	id, err := b.Resolver.Resolve(ctx, area)
	if err != nil {
		zap.S().Warnw("wma lookup failed",
			"area", area.ID.Hex(),
			"error", err)
		return nil
	}
	return id
}

// ForwardToAdmin hands an urgent bin to the admin. Any schedule previously
// linked to the bin is dropped so the admin has to create a fresh one.
func (b *BinService) ForwardToAdmin(ctx context.Context, actor models.Actor, binID string) (*models.Bin, error) {
	if err := requireKind(actor, models.ActorWMA); err != nil {
		return nil, err
	}
	bin, err := b.find(ctx, binID)
	if err != nil {
		return nil, err
	}
	if !bin.IsUrgent {
		return nil, Validationf("only urgent bins can be forwarded to admin")
	}

	now := time.Now().UTC()
	err = b.Bins.UpdateOne(ctx, bson.M{"_id": bin.ID}, bson.M{"$set": bson.M{
		"forwardedToAdmin": true,
		"forwardedAt":      now,
		"scheduleId":       nil,
		"updatedAt":        now,
	}})
	if err != nil {
		return nil, Internal("failed to forward bin", err)
	}
	bin.ForwardedToAdmin = true
	bin.ForwardedAt = &now
	bin.ScheduleID = nil
	bin.UpdatedAt = now
	return bin.Fill(), nil
}

// Collect empties a bin and bills its owner the flat area rate. Every call is
// a separate collection event.
func (b *BinService) Collect(ctx context.Context, actor models.Actor, binID string) (*models.BinAction, error) {
	if err := requireKind(actor, models.ActorCollector); err != nil {
		return nil, err
	}
	bin, err := b.find(ctx, binID)
	if err != nil {
		return nil, err
	}
	area, err := b.Areas.FindOne(ctx, bson.M{"_id": bin.AreaID})
	if err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, Internal("failed to load area", err)
		}
		zap.S().Warnw("collecting bin without an area, charging nothing",
			"bin", bin.ID.Hex())
		area = nil
	}

	var tx *models.Transaction
	if !bin.OwnerID.IsZero() {
		tx, err = b.Ledger.ChargeBin(ctx, bin, area)
		if err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	err = b.Bins.UpdateOne(ctx, bson.M{"_id": bin.ID}, bson.M{"$set": bson.M{
		"currentLevel":    0,
		"isUrgent":        false,
		"lastCollectedAt": now,
		"updatedAt":       now,
	}})
	if err != nil {
		return nil, Internal("failed to reset bin", err)
	}
	bin.CurrentLevel = 0
	bin.IsUrgent = false
	bin.LastCollectedAt = &now
	bin.UpdatedAt = now

	if tx == nil {
		return &models.BinAction{Message: "Bin collected but no owner to bill", Bin: bin.Fill()}, nil
	}
	return &models.BinAction{Message: "Bin collected and transaction created", Bin: bin.Fill(), Transaction: tx}, nil
}

// ListForOwner returns the caller's bins, newest first
func (b *BinService) ListForOwner(ctx context.Context, actor models.Actor, page databases.Page) ([]models.Bin, error) {
	uid, err := actorID(actor)
	if err != nil {
		return nil, err
	}
	return b.list(ctx, bson.M{"owner": uid}, page)
}

// ListUrgentForWMA returns the urgent bins assigned to the calling authority
func (b *BinService) ListUrgentForWMA(ctx context.Context, actor models.Actor, page databases.Page) ([]models.Bin, error) {
	if err := requireKind(actor, models.ActorWMA); err != nil {
		return nil, err
	}
	uid, err := actorID(actor)
	if err != nil {
		return nil, err
	}
	return b.list(ctx, bson.M{"wmaId": uid, "isUrgent": true}, page)
}

// ListForWMA returns every bin assigned to the calling authority
func (b *BinService) ListForWMA(ctx context.Context, actor models.Actor, page databases.Page) ([]models.Bin, error) {
	if err := requireKind(actor, models.ActorWMA); err != nil {
		return nil, err
	}
	uid, err := actorID(actor)
	if err != nil {
		return nil, err
	}
	return b.list(ctx, bson.M{"wmaId": uid}, page)
}

// ListForwarded returns the bins authorities forwarded to the admin
func (b *BinService) ListForwarded(ctx context.Context, actor models.Actor, page databases.Page) ([]models.Bin, error) {
	if err := requireKind(actor, models.ActorAdmin); err != nil {
		return nil, err
	}
	return b.list(ctx, bson.M{"forwardedToAdmin": true}, page)
}

// Delete removes a bin. Only the owner or an admin may do so.
func (b *BinService) Delete(ctx context.Context, actor models.Actor, binID string) error {
	if _, err := actorID(actor); err != nil {
		return err
	}
	bin, err := b.find(ctx, binID)
	if err != nil {
		return err
	}
	if bin.OwnerID.Hex() != actor.ID && !actor.Is(models.ActorAdmin) {
		return Forbiddenf("not authorized to delete this bin")
	}
	if err := b.Bins.DeleteOne(ctx, bson.M{"_id": bin.ID}); err != nil {
		return Internal("failed to delete bin", err)
	}
	return nil
}

func (b *BinService) find(ctx context.Context, binID string) (*models.Bin, error) {
	id, err := parseID("bin id", binID)
	if err != nil {
		return nil, err
	}
	bin, err := b.Bins.FindOne(ctx, bson.M{"_id": id})
	if err != nil {
		return nil, storeError(err, "bin")
	}
	return bin, nil
}

func (b *BinService) list(ctx context.Context, filter bson.M, page databases.Page) ([]models.Bin, error) {
	bins, err := b.Bins.Find(ctx, filter, databases.NewestFirst(page))
	if err != nil {
		return nil, Internal("failed to list bins", err)
	}
	for i := range bins {
		bins[i].Fill()
	}
	return bins, nil
}
