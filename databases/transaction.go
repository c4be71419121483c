package databases

// go generate: mockery --name TransactionDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/cleanpath/cleanpath-api/models"
)

const transactionName = "transactions"

// TransactionDatabase contains the methods to use with the transaction database
type TransactionDatabase interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Transaction, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Transaction, error)
	InsertOne(context.Context, interface{}, ...*options.InsertOneOptions) (InsertOneResultHelper, error)
	UpdateOne(context.Context, interface{}, interface{}, ...*options.UpdateOptions) error
	FindOneAndUpdate(ctx context.Context, filter interface{}, update interface{}, opts ...*options.FindOneAndUpdateOptions) (*models.Transaction, error)
}

type transactionDatabase struct {
	db DatabaseHelper
}

// NewTransactionDatabase initializes a new instance of transaction database with the provided db connection
func NewTransactionDatabase(db DatabaseHelper) TransactionDatabase {
	return &transactionDatabase{
		db: db,
	}
}

func (c *transactionDatabase) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Transaction, error) {
	transaction := &models.Transaction{}
	err := c.db.Collection(transactionName).FindOne(ctx, filter, opts...).Decode(&transaction)
	if err != nil {
		return nil, err
	}
	return transaction, nil
}

func (c *transactionDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Transaction, error) {
	var transactions []models.Transaction
	curr, err := c.db.Collection(transactionName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer curr.Close(ctx)
	err = curr.All(ctx, &transactions)
	if err != nil {
		return nil, err
	}
	return transactions, nil
}

func (c *transactionDatabase) InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (InsertOneResultHelper, error) {
	res, err := c.db.Collection(transactionName).InsertOne(ctx, document, opts...)
	return res, err
}

func (c *transactionDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) error {
	_, err := c.db.Collection(transactionName).UpdateOne(ctx, filter, update, opts...)
	return err
}

// FindOneAndUpdate applies update to the first document matching filter and
// returns the document as it is after the update
func (c *transactionDatabase) FindOneAndUpdate(ctx context.Context, filter interface{}, update interface{}, opts ...*options.FindOneAndUpdateOptions) (*models.Transaction, error) {
	transaction := &models.Transaction{}
	opts = append([]*options.FindOneAndUpdateOptions{options.FindOneAndUpdate().SetReturnDocument(options.After)}, opts...)
	err := c.db.Collection(transactionName).FindOneAndUpdate(ctx, filter, update, opts...).Decode(&transaction)
	if err != nil {
		return nil, err
	}
	return transaction, nil
}
