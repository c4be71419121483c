package databases

// go generate: mockery --name ScheduleDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/cleanpath/cleanpath-api/models"
)

const scheduleName = "schedules"

// ScheduleDatabase contains the methods to use with the schedule database
type ScheduleDatabase interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Schedule, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Schedule, error)
	InsertOne(context.Context, interface{}, ...*options.InsertOneOptions) (InsertOneResultHelper, error)
	UpdateOne(context.Context, interface{}, interface{}, ...*options.UpdateOptions) error
	DeleteOne(context.Context, interface{}, ...*options.DeleteOptions) error
	FindOneAndUpdate(ctx context.Context, filter interface{}, update interface{}, opts ...*options.FindOneAndUpdateOptions) (*models.Schedule, error)
}

type scheduleDatabase struct {
	db DatabaseHelper
}

// NewScheduleDatabase initializes a new instance of schedule database with the provided db connection
func NewScheduleDatabase(db DatabaseHelper) ScheduleDatabase {
	return &scheduleDatabase{
		db: db,
	}
}

func (c *scheduleDatabase) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Schedule, error) {
	schedule := &models.Schedule{}
	err := c.db.Collection(scheduleName).FindOne(ctx, filter, opts...).Decode(&schedule)
	if err != nil {
		return nil, err
	}
	return schedule, nil
}

func (c *scheduleDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Schedule, error) {
	var schedules []models.Schedule
	curr, err := c.db.Collection(scheduleName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer curr.Close(ctx)
	err = curr.All(ctx, &schedules)
	if err != nil {
		return nil, err
	}
	return schedules, nil
}

func (c *scheduleDatabase) InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (InsertOneResultHelper, error) {
	res, err := c.db.Collection(scheduleName).InsertOne(ctx, document, opts...)
	return res, err
}

func (c *scheduleDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) error {
	_, err := c.db.Collection(scheduleName).UpdateOne(ctx, filter, update, opts...)
	return err
}

func (c *scheduleDatabase) DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) error {
	return c.db.Collection(scheduleName).DeleteOne(ctx, filter, opts...)
}

// FindOneAndUpdate applies update to the first document matching filter and
// returns the document as it is after the update
func (c *scheduleDatabase) FindOneAndUpdate(ctx context.Context, filter interface{}, update interface{}, opts ...*options.FindOneAndUpdateOptions) (*models.Schedule, error) {
	schedule := &models.Schedule{}
	opts = append([]*options.FindOneAndUpdateOptions{options.FindOneAndUpdate().SetReturnDocument(options.After)}, opts...)
	err := c.db.Collection(scheduleName).FindOneAndUpdate(ctx, filter, update, opts...).Decode(&schedule)
	if err != nil {
		return nil, err
	}
	return schedule, nil
}
