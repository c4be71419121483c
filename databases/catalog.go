package databases

// go generate: mockery --name AreaDatabase
// go generate: mockery --name WMADatabase
// go generate: mockery --name CollectorDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/cleanpath/cleanpath-api/models"
)

// The collections below are owned by the user, area and WMA services. This
// service only reads them.
const (
	areaName      = "areas"
	wmaName       = "wmas"
	collectorName = "collectors"
)

// AreaDatabase contains the methods to use with the area database
type AreaDatabase interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Area, error)
}

// WMADatabase contains the methods to use with the wma database
type WMADatabase interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.WMA, error)
}

// CollectorDatabase contains the methods to use with the collector database
type CollectorDatabase interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Collector, error)
}

type areaDatabase struct {
	db DatabaseHelper
}

type wmaDatabase struct {
	db DatabaseHelper
}

type collectorDatabase struct {
	db DatabaseHelper
}

// NewAreaDatabase initializes a new instance of area database with the provided db connection
func NewAreaDatabase(db DatabaseHelper) AreaDatabase {
	return &areaDatabase{db: db}
}

// NewWMADatabase initializes a new instance of wma database with the provided db connection
func NewWMADatabase(db DatabaseHelper) WMADatabase {
	return &wmaDatabase{db: db}
}

// NewCollectorDatabase initializes a new instance of collector database with the provided db connection
func NewCollectorDatabase(db DatabaseHelper) CollectorDatabase {
	return &collectorDatabase{db: db}
}

func (c *areaDatabase) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Area, error) {
	area := &models.Area{}
	err := c.db.Collection(areaName).FindOne(ctx, filter, opts...).Decode(&area)
	if err != nil {
		return nil, err
	}
	return area, nil
}

func (c *wmaDatabase) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.WMA, error) {
	wma := &models.WMA{}
	err := c.db.Collection(wmaName).FindOne(ctx, filter, opts...).Decode(&wma)
	if err != nil {
		return nil, err
	}
	return wma, nil
}

func (c *collectorDatabase) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Collector, error) {
	collector := &models.Collector{}
	err := c.db.Collection(collectorName).FindOne(ctx, filter, opts...).Decode(&collector)
	if err != nil {
		return nil, err
	}
	return collector, nil
}
