package databases

// go generate: mockery --name PaymentDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/safekid-nepal/safekid-api/models"
)

const paymentName = "payments"

// PaymentDatabase contains the methods to use with the payment database
type PaymentDatabase interface {
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Payment, error)
	InsertOne(ctx context.Context, payment models.Payment) error
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
}

type paymentDatabase struct {
	db DatabaseHelper
}

// NewPaymentDatabase initializes a new instance of payment database with the provided db connection
func NewPaymentDatabase(db DatabaseHelper) PaymentDatabase {
	return &paymentDatabase{
		db: db,
	}
}

func (p *paymentDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Payment, error) {
	var payments []models.Payment
	cr, err := p.db.Collection(paymentName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	err = cr.Decode(&payments)
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (p *paymentDatabase) InsertOne(ctx context.Context, payment models.Payment) error {
	_, err := p.db.Collection(paymentName).InsertOne(ctx, payment)
	return err
}

func (p *paymentDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	return p.db.Collection(paymentName).UpdateOne(ctx, filter, update, opts...)
}
