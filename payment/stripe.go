package payment

import (
	"context"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"
	"go.uber.org/zap"
)

// StripeGateway charges cards with a confirmed Stripe PaymentIntent in NPR
type StripeGateway struct {
	log       *zap.SugaredLogger
	newIntent func(*stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

// NewStripeGateway sets the global Stripe key and returns a gateway
func NewStripeGateway(secretKey string, log *zap.SugaredLogger) *StripeGateway {
	stripe.Key = secretKey
	return &StripeGateway{log: log, newIntent: paymentintent.New}
}

// Charge creates and confirms a PaymentIntent for req. Amounts are whole
// rupees and are sent to Stripe in paisa.
func (g *StripeGateway) Charge(ctx context.Context, req Request) Result {
	if req.PaymentMethodID == "" {
		return Result{Error: "a card payment method is required"}
	}
	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(int64(req.Amount) * 100),
		Currency:      stripe.String("npr"),
		PaymentMethod: stripe.String(req.PaymentMethodID),
		Confirm:       stripe.Bool(true),
		Description:   stripe.String("SafeKid broadcast " + req.ReferenceID),
	}
	params.Context = ctx
	params.AddMetadata("reference_id", req.ReferenceID)
	params.AddMetadata("user_id", req.UserID)

	pi, err := g.newIntent(params)
	if err != nil {
		g.log.Errorw("stripe payment intent failed", "reference_id", req.ReferenceID, "error", err)
		return Result{Error: FailureMessage}
	}
	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		g.log.Infow("stripe payment intent not settled", "reference_id", req.ReferenceID, "status", pi.Status)
		return Result{Error: FailureMessage}
	}
	return Result{Success: true, TransactionID: pi.ID}
}
