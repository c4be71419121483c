package databases

// go generate: mockery --name SmartDeviceDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/cleanpath/cleanpath-api/models"
)

const smartDeviceName = "smartdevices"

// SmartDeviceDatabase contains the methods to use with the smart device database
type SmartDeviceDatabase interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.SmartDevice, error)
	FindOneAndUpdate(ctx context.Context, filter interface{}, update interface{}, opts ...*options.FindOneAndUpdateOptions) (*models.SmartDevice, error)
}

type smartDeviceDatabase struct {
	db DatabaseHelper
}

// NewSmartDeviceDatabase initializes a new instance of smart device database with the provided db connection
func NewSmartDeviceDatabase(db DatabaseHelper) SmartDeviceDatabase {
	return &smartDeviceDatabase{
		db: db,
	}
}

func (c *smartDeviceDatabase) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.SmartDevice, error) {
	smartDevice := &models.SmartDevice{}
	err := c.db.Collection(smartDeviceName).FindOne(ctx, filter, opts...).Decode(&smartDevice)
	if err != nil {
		return nil, err
	}
	return smartDevice, nil
}

// FindOneAndUpdate applies update to the first document matching filter and
// returns the document as it is after the update
func (c *smartDeviceDatabase) FindOneAndUpdate(ctx context.Context, filter interface{}, update interface{}, opts ...*options.FindOneAndUpdateOptions) (*models.SmartDevice, error) {
	smartDevice := &models.SmartDevice{}
	opts = append([]*options.FindOneAndUpdateOptions{options.FindOneAndUpdate().SetReturnDocument(options.After)}, opts...)
	err := c.db.Collection(smartDeviceName).FindOneAndUpdate(ctx, filter, update, opts...).Decode(&smartDevice)
	if err != nil {
		return nil, err
	}
	return smartDevice, nil
}
