package payment

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/safekid-nepal/safekid-api/apperrors"
	"github.com/safekid-nepal/safekid-api/databases"
	"github.com/safekid-nepal/safekid-api/models"
)

// recordTimeout bounds the write of a payment record
const recordTimeout = 10 * time.Second

// Processor routes a charge to the gateway for its method and records the
// attempt in the payments collection
type Processor struct {
	gateways map[models.PaymentMethod]Gateway
	db       databases.PaymentDatabase
	log      *zap.SugaredLogger
}

// NewProcessor returns a Processor with no gateways registered
func NewProcessor(db databases.PaymentDatabase, log *zap.SugaredLogger) *Processor {
	return &Processor{
		gateways: map[models.PaymentMethod]Gateway{},
		db:       db,
		log:      log,
	}
}

// Register routes method to gw
func (p *Processor) Register(method models.PaymentMethod, gw Gateway) *Processor {
	p.gateways[method] = gw
	return p
}

// Charge runs req through its gateway. A declined charge is not an error; the
// returned error is reserved for requests that could not be attempted.
func (p *Processor) Charge(ctx context.Context, req Request) (Result, error) {
	gw, ok := p.gateways[req.Method]
	if !ok {
		return Result{}, apperrors.Validation("method", "unsupported payment method "+string(req.Method))
	}

	res := gw.Charge(ctx, req)

	record := models.Payment{
		ID:            primitive.NewObjectID(),
		ReportID:      req.ReferenceID,
		UserID:        req.UserID,
		Amount:        req.BaseAmount,
		TokensUsed:    req.TokensUsed,
		FinalAmount:   req.Amount,
		Method:        req.Method,
		TransactionID: res.TransactionID,
		Success:       res.Success,
		Error:         res.Error,
		CreatedAt:     primitive.NewDateTimeFromTime(time.Now()),
	}
	if p.db != nil {
		recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
		defer cancel()
		if err := p.db.InsertOne(recordCtx, record); err != nil {
			p.log.Errorw("failed to record payment", "reference_id", req.ReferenceID, "error", err)
		}
	}
	return res, nil
}

// AttachReport rewrites the payment recorded under referenceID to point at the
// report it paid for
func (p *Processor) AttachReport(ctx context.Context, referenceID, reportID string) error {
	if p.db == nil {
		return nil
	}
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	res, err := p.db.UpdateOne(recordCtx,
		bson.M{"report_id": referenceID},
		bson.M{"$set": bson.M{"report_id": reportID}})
	if err != nil {
		return apperrors.Network("payments", err)
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound("payment", referenceID)
	}
	return nil
}
