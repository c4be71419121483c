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

const dateLayout = "2006-01-02"

// ScheduleService owns pickup schedules and the completion that closes them
type ScheduleService struct {
	Schedules    databases.ScheduleDatabase
	Bins         databases.BinDatabase
	Collectors   databases.CollectorDatabase
	SmartDevices databases.SmartDeviceDatabase
	Garbage      *GarbageService
	Notifier     *NotificationService
}

// NewScheduleService returns a schedule service
func NewScheduleService(
	schedules databases.ScheduleDatabase,
	bins databases.BinDatabase,
	collectors databases.CollectorDatabase,
	devices databases.SmartDeviceDatabase,
	garbage *GarbageService,
	notifier *NotificationService,
) *ScheduleService {
	return &ScheduleService{
		Schedules:    schedules,
		Bins:         bins,
		Collectors:   collectors,
		SmartDevices: devices,
		Garbage:      garbage,
		Notifier:     notifier,
	}
}

// Create stores a pending schedule. An authority may only schedule for
// itself. When a bin is given the bin is linked to the new schedule.
// Garbage requests are only attached through CreateWithNotification.
func (s *ScheduleService) Create(ctx context.Context, actor models.Actor, in models.CreateScheduleRequest) (*models.Schedule, error) {
	in.GarbageID = ""
	sched, err := s.build(actor, in)
	if err != nil {
		return nil, err
	}
	if err := s.insert(ctx, sched); err != nil {
		return nil, err
	}
	s.linkBin(ctx, sched)
	return sched, nil
}

// CreateWithNotification creates a schedule for a garbage request and tells
// the requester about it. A request that is already scheduled or collected
// cannot be scheduled again; the new schedule is removed in that case.
func (s *ScheduleService) CreateWithNotification(ctx context.Context, actor models.Actor, in models.CreateScheduleRequest) (*models.Schedule, error) {
	if err := requireKind(actor, models.ActorAdmin); err != nil {
		return nil, err
	}
	sched, err := s.build(actor, in)
	if err != nil {
		return nil, err
	}
	if err := s.insert(ctx, sched); err != nil {
		return nil, err
	}

	var garbage *models.Garbage
	if sched.GarbageID != nil {
		garbage, err = s.Garbage.MarkScheduled(ctx, *sched.GarbageID)
		if err != nil {
			if derr := s.Schedules.DeleteOne(ctx, bson.M{"_id": sched.ID}); derr != nil {
				zap.S().Errorw("failed to remove schedule after garbage conflict",
					"schedule", sched.ID.Hex(),
					"error", derr)
			}
			return nil, err
		}
	}

	s.linkBin(ctx, sched)
	if garbage != nil {
		s.notifyScheduled(ctx, sched, garbage)
	}
	return sched, nil
}

// CreateUrgent stores an unassigned urgent schedule for a bin that just
// became urgent. The caller owns the bin and links it if it wants to.
func (s *ScheduleService) CreateUrgent(ctx context.Context, wmaID, areaID, binID primitive.ObjectID) (*models.Schedule, error) {
	now := time.Now().UTC()
	bid := binID
	sched := &models.Schedule{
		ID:        primitive.NewObjectID(),
		WMAID:     wmaID,
		AreaID:    areaID,
		Date:      now,
		Time:      now.Format("15:04"),
		Status:    models.ScheduleUrgent,
		BinID:     &bid,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.insert(ctx, sched); err != nil {
		return nil, err
	}
	return sched, nil
}

func (s *ScheduleService) build(actor models.Actor, in models.CreateScheduleRequest) (*models.Schedule, error) {
	if err := requireKind(actor, models.ActorAdmin, models.ActorWMA); err != nil {
		return nil, err
	}
	if actor.Is(models.ActorWMA) {
		if in.WMAID != "" && in.WMAID != actor.ID {
			return nil, Forbiddenf("authorities may only schedule for themselves")
		}
		in.WMAID = actor.ID
	}
	if in.WMAID == "" || in.AreaID == "" || in.Date == "" || strings.TrimSpace(in.Time) == "" {
		return nil, Validationf("please fill all required fields")
	}
	wmaID, err := parseID("wmaId", in.WMAID)
	if err != nil {
		return nil, err
	}
	areaID, err := parseID("area", in.AreaID)
	if err != nil {
		return nil, err
	}
	date, err := parseDate(in.Date)
	if err != nil {
		return nil, err
	}
	collectorID, err := parseOptionalID("collectorId", in.CollectorID)
	if err != nil {
		return nil, err
	}
	binID, err := parseOptionalID("binId", in.BinID)
	if err != nil {
		return nil, err
	}
	garbageID, err := parseOptionalID("garbageId", in.GarbageID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &models.Schedule{
		ID:          primitive.NewObjectID(),
		WMAID:       wmaID,
		CollectorID: collectorID,
		AreaID:      areaID,
		Date:        date,
		Time:        strings.TrimSpace(in.Time),
		Status:      models.SchedulePending,
		BinID:       binID,
		GarbageID:   garbageID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (s *ScheduleService) insert(ctx context.Context, sched *models.Schedule) error {
	if _, err := s.Schedules.InsertOne(ctx, sched); err != nil {
		return Internal("failed to create schedule", err)
	}
	return nil
}

// linkBin points the scheduled bin at sched and clears its forwarded flag
func (s *ScheduleService) linkBin(ctx context.Context, sched *models.Schedule) {
	if sched.BinID == nil {
		return
	}
	err := s.Bins.UpdateOne(ctx, bson.M{"_id": *sched.BinID}, bson.M{"$set": bson.M{
		"scheduleId":       sched.ID,
		"forwardedToAdmin": false,
		"updatedAt":        time.Now().UTC(),
	}})
	if err != nil {
		zap.S().Warnw("failed to link schedule to bin",
			"schedule", sched.ID.Hex(),
			"bin", sched.BinID.Hex(),
			"error", err)
	}
}

func (s *ScheduleService) notifyScheduled(ctx context.Context, sched *models.Schedule, garbage *models.Garbage) {
	message := fmt.Sprintf("Your waste pickup is scheduled on %s at %s.", sched.Date.Format(dateLayout), sched.Time)
	if sched.CollectorID != nil {
		collector, err := s.Collectors.FindOne(ctx, bson.M{"_id": *sched.CollectorID})
		if err != nil {
			zap.S().Warnw("failed to load collector for notification",
				"collector", sched.CollectorID.Hex(),
				"error", err)
		} else {
			message += fmt.Sprintf(" Collector: %s (Truck: %s)", collector.CollectorName, collector.TruckNumber)
		}
	}

	_, err := s.Notifier.Notify(ctx, garbage.UserID, "Waste Pickup Scheduled", message, map[string]interface{}{
		"scheduleId": sched.ID.Hex(),
		"garbageId":  garbage.ID.Hex(),
	})
	if err != nil {
		zap.S().Warnw("failed to create notification for schedule",
			"schedule", sched.ID.Hex(),
			"user", garbage.UserID.Hex(),
			"error", err)
	}
}

// Complete closes a schedule on behalf of a collector. The transition to
// Completed is a single conditional update and is the only step whose
// failure is returned; the garbage and device updates that follow are best
// effort.
func (s *ScheduleService) Complete(ctx context.Context, actor models.Actor, scheduleID string, in models.CompleteScheduleRequest) (*models.ScheduleCompletion, error) {
	if err := requireKind(actor, models.ActorCollector); err != nil {
		return nil, err
	}
	collector, err := actorID(actor)
	if err != nil {
		return nil, err
	}
	id, err := parseID("schedule id", scheduleID)
	if err != nil {
		return nil, err
	}
	garbageID, err := parseOptionalID("garbageId", in.GarbageID)
	if err != nil {
		return nil, err
	}
	deviceID, err := parseOptionalID("smartDeviceId", in.SmartDeviceID)
	if err != nil {
		return nil, err
	}

	current, err := s.Schedules.FindOne(ctx, bson.M{"_id": id})
	if err != nil {
		return nil, storeError(err, "schedule")
	}
	if current.CollectorID != nil && *current.CollectorID != collector {
		return nil, Forbiddenf("not authorized to complete this schedule")
	}

	sched, err := s.Schedules.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": bson.M{"$ne": models.ScheduleCompleted}},
		bson.M{"$set": bson.M{
			"status":    models.ScheduleCompleted,
			"updatedAt": time.Now().UTC(),
		}})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, Conflictf("schedule not found or already completed")
	}
	if err != nil {
		return nil, Internal("failed to complete schedule", err)
	}

	result := &models.ScheduleCompletion{Schedule: sched}
	if garbageID == nil {
		garbageID = sched.GarbageID
	}
	if garbageID != nil {
		result.Garbage, result.Transaction = s.collectGarbage(ctx, *garbageID, collector)
	}
	if deviceID != nil {
		result.SmartDevice = s.distributeDevice(ctx, *deviceID)
	}

	zap.S().Infow("schedule completed",
		"schedule", sched.ID.Hex(),
		"collector", collector.Hex())
	return result, nil
}

func (s *ScheduleService) collectGarbage(ctx context.Context, id, collector primitive.ObjectID) (*models.Garbage, *models.Transaction) {
	g, err := s.Garbage.Garbages.FindOne(ctx, bson.M{"_id": id})
	if err != nil {
		zap.S().Warnw("garbage request of completed schedule could not be loaded",
			"garbage", id.Hex(),
			"error", err)
		return nil, nil
	}
	if g.Status == models.GarbageCollected {
		return g, nil
	}
	collected, tx, err := s.Garbage.MarkCollected(ctx, g, collector)
	if err != nil {
		zap.S().Errorw("failed to collect garbage request of completed schedule",
			"garbage", id.Hex(),
			"error", err)
		return g, nil
	}
	return collected, tx
}

func (s *ScheduleService) distributeDevice(ctx context.Context, id primitive.ObjectID) *models.SmartDevice {
	device, err := s.SmartDevices.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"status":        models.DeviceDistributed,
		"garbageStatus": models.DeviceGarbageCollected,
	}})
	if err != nil {
		zap.S().Warnw("failed to mark smart device distributed",
			"device", id.Hex(),
			"error", err)
		return nil
	}
	return device
}

// Update applies an admin edit. Completed schedules are frozen and the
// Completed status can only be reached through Complete.
func (s *ScheduleService) Update(ctx context.Context, actor models.Actor, scheduleID string, in models.UpdateScheduleRequest) (*models.Schedule, error) {
	if err := requireKind(actor, models.ActorAdmin); err != nil {
		return nil, err
	}
	id, err := parseID("schedule id", scheduleID)
	if err != nil {
		return nil, err
	}

	set := bson.M{}
	for field, value := range map[string]string{"wmaId": in.WMAID, "collectorId": in.CollectorID, "area": in.AreaID} {
		if value == "" {
			continue
		}
		oid, err := parseID(field, value)
		if err != nil {
			return nil, err
		}
		set[field] = oid
	}
	if in.Date != "" {
		date, err := parseDate(in.Date)
		if err != nil {
			return nil, err
		}
		set["date"] = date
	}
	if t := strings.TrimSpace(in.Time); t != "" {
		set["time"] = t
	}
	if in.Longitude != nil {
		set["longitude"] = *in.Longitude
	}
	if in.Latitude != nil {
		set["latitude"] = *in.Latitude
	}
	if in.Status != "" {
		if !models.IsScheduleStatus(in.Status) {
			return nil, Validationf("unknown status %q", in.Status)
		}
		if in.Status == models.ScheduleCompleted {
			return nil, Validationf("schedules are completed by their collector")
		}
		set["status"] = in.Status
	}
	if len(set) == 0 {
		return nil, Validationf("nothing to update")
	}
	set["updatedAt"] = time.Now().UTC()

	sched, err := s.Schedules.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": bson.M{"$ne": models.ScheduleCompleted}},
		bson.M{"$set": set})
	if err == nil {
		return sched, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, Internal("failed to update schedule", err)
	}
	if _, err := s.Schedules.FindOne(ctx, bson.M{"_id": id}); err != nil {
		return nil, storeError(err, "schedule")
	}
	return nil, Conflictf("completed schedules cannot be changed")
}

// Get returns a schedule. Authorities and collectors only see their own.
func (s *ScheduleService) Get(ctx context.Context, actor models.Actor, scheduleID string) (*models.Schedule, error) {
	uid, err := actorID(actor)
	if err != nil {
		return nil, err
	}
	sched, err := s.find(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	switch actor.Kind {
	case models.ActorWMA:
		if sched.WMAID != uid {
			return nil, Forbiddenf("schedule belongs to another authority")
		}
	case models.ActorCollector:
		if sched.CollectorID != nil && *sched.CollectorID != uid {
			return nil, Forbiddenf("schedule is assigned to another collector")
		}
	}
	return sched, nil
}

// List returns every schedule for an admin
func (s *ScheduleService) List(ctx context.Context, actor models.Actor, page databases.Page) ([]models.Schedule, error) {
	if err := requireKind(actor, models.ActorAdmin); err != nil {
		return nil, err
	}
	return s.list(ctx, bson.M{}, page)
}

// ListForCollector returns the schedules assigned to the calling collector
func (s *ScheduleService) ListForCollector(ctx context.Context, actor models.Actor, page databases.Page) ([]models.Schedule, error) {
	if err := requireKind(actor, models.ActorCollector); err != nil {
		return nil, err
	}
	uid, err := actorID(actor)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, bson.M{"collectorId": uid}, page)
}

// ListForWMA returns the schedules of an authority, optionally filtered by
// status. An authority always gets its own; an admin names the authority.
func (s *ScheduleService) ListForWMA(ctx context.Context, actor models.Actor, wmaID, status string, page databases.Page) ([]models.Schedule, error) {
	if err := requireKind(actor, models.ActorAdmin, models.ActorWMA); err != nil {
		return nil, err
	}
	if actor.Is(models.ActorWMA) {
		if wmaID != "" && wmaID != actor.ID {
			return nil, Forbiddenf("authorities may only list their own schedules")
		}
		wmaID = actor.ID
	}
	id, err := parseID("wma id", wmaID)
	if err != nil {
		return nil, err
	}
	filter := bson.M{"wmaId": id}
	if status != "" {
		if !models.IsScheduleStatus(status) {
			return nil, Validationf("unknown status %q", status)
		}
		filter["status"] = status
	}
	return s.list(ctx, filter, page)
}

// Delete removes a schedule and unlinks any bin still pointing at it
func (s *ScheduleService) Delete(ctx context.Context, actor models.Actor, scheduleID string) error {
	if err := requireKind(actor, models.ActorAdmin); err != nil {
		return err
	}
	sched, err := s.find(ctx, scheduleID)
	if err != nil {
		return err
	}
	if err := s.Schedules.DeleteOne(ctx, bson.M{"_id": sched.ID}); err != nil {
		return Internal("failed to delete schedule", err)
	}
	err = s.Bins.UpdateOne(ctx, bson.M{"scheduleId": sched.ID}, bson.M{"$set": bson.M{"scheduleId": nil}})
	if err != nil {
		zap.S().Warnw("failed to unlink bin from deleted schedule",
			"schedule", sched.ID.Hex(),
			"error", err)
	}
	return nil
}

func (s *ScheduleService) find(ctx context.Context, scheduleID string) (*models.Schedule, error) {
	id, err := parseID("schedule id", scheduleID)
	if err != nil {
		return nil, err
	}
	sched, err := s.Schedules.FindOne(ctx, bson.M{"_id": id})
	if err != nil {
		return nil, storeError(err, "schedule")
	}
	return sched, nil
}

func (s *ScheduleService) list(ctx context.Context, filter bson.M, page databases.Page) ([]models.Schedule, error) {
	list, err := s.Schedules.Find(ctx, filter, databases.NewestFirst(page))
	if err != nil {
		return nil, Internal("failed to list schedules", err)
	}
	return list, nil
}

// parseDate accepts a calendar date or a full RFC 3339 timestamp
func parseDate(value string) (time.Time, error) {
	if d, err := time.Parse(dateLayout, value); err == nil {
		return d, nil
	}
	if d, err := time.Parse(time.RFC3339, value); err == nil {
		return d.UTC(), nil
	}
	return time.Time{}, Validationf("date must be YYYY-MM-DD or an RFC 3339 timestamp")
}
