package payment

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/safekid-nepal/safekid-api/apperrors"
	"github.com/safekid-nepal/safekid-api/databases/mocks"
	"github.com/safekid-nepal/safekid-api/logging"
	"github.com/safekid-nepal/safekid-api/models"
)

var txPattern = regexp.MustCompile(`^ESEWA_\d+_[0-9a-z]{9}$`)

func TestSimulatorSucceeds(t *testing.T) {
	s := NewSimulator(time.Millisecond, 0, logging.Nop())

	res := s.Pay(context.Background(), models.MethodEsewa, 470, "r1")
	assert.True(t, res.Success)
	assert.Empty(t, res.Error)
	assert.Regexp(t, txPattern, res.TransactionID)
}

func TestSimulatorAlwaysFails(t *testing.T) {
	s := NewSimulator(time.Millisecond, 1, logging.Nop())

	for i := 0; i < 5; i++ {
		res := s.Pay(context.Background(), models.MethodKhalti, 100, "r1")
		assert.False(t, res.Success)
		assert.Equal(t, FailureMessage, res.Error)
		assert.Empty(t, res.TransactionID)
	}
}

func TestSimulatorHonoursCancel(t *testing.T) {
	s := NewSimulator(time.Hour, 0, logging.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	res := s.Pay(ctx, models.MethodEsewa, 100, "r1")
	assert.False(t, res.Success)
	assert.Less(t, time.Since(start), time.Second)
}

func TestSimulatorRejectsNonPositiveAmount(t *testing.T) {
	s := NewSimulator(time.Hour, 0, logging.Nop())
	res := s.Pay(context.Background(), models.MethodEsewa, 0, "r1")
	assert.False(t, res.Success)
}

func TestSimulatorTransactionIDsDiffer(t *testing.T) {
	s := NewSimulator(0, 0, logging.Nop())
	a := s.Pay(context.Background(), models.MethodEsewa, 1, "r1")
	b := s.Pay(context.Background(), models.MethodEsewa, 1, "r1")
	assert.NotEqual(t, a.TransactionID, b.TransactionID)
}

func TestStripeGateway(t *testing.T) {
	var got *stripe.PaymentIntentParams
	g := &StripeGateway{log: logging.Nop(), newIntent: func(p *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
		got = p
		return &stripe.PaymentIntent{ID: "pi_123", Status: stripe.PaymentIntentStatusSucceeded}, nil
	}}

	res := g.Charge(context.Background(), Request{Method: models.MethodCard, Amount: 470, ReferenceID: "r1", PaymentMethodID: "pm_card_visa"})
	assert.Equal(t, Result{Success: true, TransactionID: "pi_123"}, res)
	require.NotNil(t, got)
	assert.Equal(t, int64(47000), *got.Amount)
	assert.Equal(t, "npr", *got.Currency)
	assert.True(t, *got.Confirm)
}

func TestStripeGatewayFailures(t *testing.T) {
	g := &StripeGateway{log: logging.Nop(), newIntent: func(p *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
		return &stripe.PaymentIntent{ID: "pi_1", Status: stripe.PaymentIntentStatusRequiresAction}, nil
	}}
	res := g.Charge(context.Background(), Request{Method: models.MethodCard, Amount: 100, PaymentMethodID: "pm"})
	assert.False(t, res.Success)

	g.newIntent = func(p *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
		return nil, errors.New("card declined")
	}
	res = g.Charge(context.Background(), Request{Method: models.MethodCard, Amount: 100, PaymentMethodID: "pm"})
	assert.Equal(t, FailureMessage, res.Error)

	res = g.Charge(context.Background(), Request{Method: models.MethodCard, Amount: 100})
	assert.False(t, res.Success)
}

func TestProcessorRoutesAndRecords(t *testing.T) {
	db := &mocks.PaymentDatabase{}
	var recorded models.Payment
	db.On("InsertOne", mock.Anything, mock.AnythingOfType("models.Payment")).Return(nil).Run(func(args mock.Arguments) {
		recorded = args.Get(1).(models.Payment)
	})

	p := NewProcessor(db, logging.Nop()).
		Register(models.MethodEsewa, NewSimulator(0, 0, logging.Nop()))

	res, err := p.Charge(context.Background(), Request{Method: models.MethodEsewa, Amount: 470, BaseAmount: 500, TokensUsed: 30, ReferenceID: "r1", UserID: "u1"})
	require.NoError(t, err)
	assert.True(t, res.Success)

	assert.Equal(t, 500, recorded.Amount)
	assert.Equal(t, 470, recorded.FinalAmount)
	assert.Equal(t, 30, recorded.TokensUsed)
	assert.Equal(t, res.TransactionID, recorded.TransactionID)
	assert.True(t, recorded.Success)
}

func TestProcessorRecordFailureIsNotFatal(t *testing.T) {
	db := &mocks.PaymentDatabase{}
	db.On("InsertOne", mock.Anything, mock.Anything).Return(errors.New("mongo down"))

	p := NewProcessor(db, logging.Nop()).Register(models.MethodKhalti, NewSimulator(0, 0, logging.Nop()))
	res, err := p.Charge(context.Background(), Request{Method: models.MethodKhalti, Amount: 100})
	require.NoError(t, err)
	assert.True(t, res.Success)
}

func TestProcessorAttachReport(t *testing.T) {
	db := &mocks.PaymentDatabase{}
	db.On("UpdateOne", mock.Anything, bson.M{"report_id": "pending_1"}, bson.M{"$set": bson.M{"report_id": "r1"}}).
		Return(&mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil)
	db.On("UpdateOne", mock.Anything, bson.M{"report_id": "pending_2"}, mock.Anything).
		Return(&mongo.UpdateResult{}, nil)

	p := NewProcessor(db, logging.Nop())
	require.NoError(t, p.AttachReport(context.Background(), "pending_1", "r1"))
	assert.True(t, apperrors.IsNotFound(p.AttachReport(context.Background(), "pending_2", "r2")))
}

func TestProcessorUnknownMethod(t *testing.T) {
	p := NewProcessor(nil, logging.Nop())
	_, err := p.Charge(context.Background(), Request{Method: models.MethodCard, Amount: 100})
	var verr *apperrors.ValidationError
	assert.ErrorAs(t, err, &verr)
}
