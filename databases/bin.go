package databases

// go generate: mockery --name BinDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/cleanpath/cleanpath-api/models"
)

const binName = "bins"

// BinDatabase contains the methods to use with the bin database
type BinDatabase interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Bin, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Bin, error)
	InsertOne(context.Context, interface{}, ...*options.InsertOneOptions) (InsertOneResultHelper, error)
	UpdateOne(context.Context, interface{}, interface{}, ...*options.UpdateOptions) error
	DeleteOne(context.Context, interface{}, ...*options.DeleteOptions) error
	FindOneAndUpdate(ctx context.Context, filter interface{}, update interface{}, opts ...*options.FindOneAndUpdateOptions) (*models.Bin, error)
}

type binDatabase struct {
	db DatabaseHelper
}

// NewBinDatabase initializes a new instance of bin database with the provided db connection
func NewBinDatabase(db DatabaseHelper) BinDatabase {
	return &binDatabase{
		db: db,
	}
}

func (c *binDatabase) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Bin, error) {
	bin := &models.Bin{}
	err := c.db.Collection(binName).FindOne(ctx, filter, opts...).Decode(&bin)
	if err != nil {
		return nil, err
	}
	return bin, nil
}

func (c *binDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Bin, error) {
	var bins []models.Bin
	curr, err := c.db.Collection(binName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer curr.Close(ctx)
	err = curr.All(ctx, &bins)
	if err != nil {
		return nil, err
	}
	return bins, nil
}

func (c *binDatabase) InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (InsertOneResultHelper, error) {
	res, err := c.db.Collection(binName).InsertOne(ctx, document, opts...)
	return res, err
}

func (c *binDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) error {
	_, err := c.db.Collection(binName).UpdateOne(ctx, filter, update, opts...)
	return err
}

func (c *binDatabase) DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) error {
	return c.db.Collection(binName).DeleteOne(ctx, filter, opts...)
}

// FindOneAndUpdate applies update to the first bin matching filter and
// returns the bin as it is after the update
func (c *binDatabase) FindOneAndUpdate(ctx context.Context, filter interface{}, update interface{}, opts ...*options.FindOneAndUpdateOptions) (*models.Bin, error) {
	bin := &models.Bin{}
	opts = append([]*options.FindOneAndUpdateOptions{options.FindOneAndUpdate().SetReturnDocument(options.After)}, opts...)
	err := c.db.Collection(binName).FindOneAndUpdate(ctx, filter, update, opts...).Decode(&bin)
	if err != nil {
		return nil, err
	}
	return bin, nil
}
