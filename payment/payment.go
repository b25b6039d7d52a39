// Package payment charges report fees. Wallet methods go through a simulator
// and card payments through Stripe; every attempt is recorded.
package payment

import (
	"context"

	"github.com/safekid-nepal/safekid-api/models"
)

// FailureMessage is returned to the caller when a charge does not go through
const FailureMessage = "Payment failed. Please try again."

// Request describes one charge
type Request struct {
	Method      models.PaymentMethod `json:"method"`
	Amount      int                  `json:"amount"`
	ReferenceID string               `json:"referenceId"`
	UserID      string               `json:"userId"`
	BaseAmount  int                  `json:"baseAmount"`
	TokensUsed  int                  `json:"tokensUsed"`
	// PaymentMethodID is the Stripe payment method for card charges
	PaymentMethodID string `json:"paymentMethodId,omitempty"`
}

// Result is the outcome of a charge
type Result struct {
	Success       bool   `json:"success"`
	TransactionID string `json:"transactionId,omitempty"`
	Error         string `json:"error,omitempty"`
}

// Gateway charges a request
type Gateway interface {
	Charge(ctx context.Context, req Request) Result
}
