package databases

// go generate: mockery --name GarbageDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/cleanpath/cleanpath-api/models"
)

const garbageName = "garbages"

// GarbageDatabase contains the methods to use with the garbage database
type GarbageDatabase interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Garbage, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Garbage, error)
	InsertOne(context.Context, interface{}, ...*options.InsertOneOptions) (InsertOneResultHelper, error)
	UpdateOne(context.Context, interface{}, interface{}, ...*options.UpdateOptions) error
	DeleteOne(context.Context, interface{}, ...*options.DeleteOptions) error
	FindOneAndUpdate(ctx context.Context, filter interface{}, update interface{}, opts ...*options.FindOneAndUpdateOptions) (*models.Garbage, error)
}

type garbageDatabase struct {
	db DatabaseHelper
}

// NewGarbageDatabase initializes a new instance of garbage database with the provided db connection
func NewGarbageDatabase(db DatabaseHelper) GarbageDatabase {
	return &garbageDatabase{
		db: db,
	}
}

func (c *garbageDatabase) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Garbage, error) {
	garbage := &models.Garbage{}
	err := c.db.Collection(garbageName).FindOne(ctx, filter, opts...).Decode(&garbage)
	if err != nil {
		return nil, err
	}
	return garbage, nil
}

func (c *garbageDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Garbage, error) {
	var garbages []models.Garbage
	curr, err := c.db.Collection(garbageName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer curr.Close(ctx)
	err = curr.All(ctx, &garbages)
	if err != nil {
		return nil, err
	}
	return garbages, nil
}

func (c *garbageDatabase) InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (InsertOneResultHelper, error) {
	res, err := c.db.Collection(garbageName).InsertOne(ctx, document, opts...)
	return res, err
}

func (c *garbageDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) error {
	_, err := c.db.Collection(garbageName).UpdateOne(ctx, filter, update, opts...)
	return err
}

func (c *garbageDatabase) DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) error {
	return c.db.Collection(garbageName).DeleteOne(ctx, filter, opts...)
}

// FindOneAndUpdate applies update to the first document matching filter and
// returns the document as it is after the update
func (c *garbageDatabase) FindOneAndUpdate(ctx context.Context, filter interface{}, update interface{}, opts ...*options.FindOneAndUpdateOptions) (*models.Garbage, error) {
	garbage := &models.Garbage{}
	opts = append([]*options.FindOneAndUpdateOptions{options.FindOneAndUpdate().SetReturnDocument(options.After)}, opts...)
	err := c.db.Collection(garbageName).FindOneAndUpdate(ctx, filter, update, opts...).Decode(&garbage)
	if err != nil {
		return nil, err
	}
	return garbage, nil
}
