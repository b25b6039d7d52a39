package models

import (
	"encoding/json"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PaymentMethod is the channel a report fee is paid through
type PaymentMethod string

// Supported payment methods
const (
	MethodEsewa  PaymentMethod = "esewa"
	MethodKhalti PaymentMethod = "khalti"
	MethodCard   PaymentMethod = "card"
)

// PaymentMethods lists every valid payment method
var PaymentMethods = []PaymentMethod{MethodEsewa, MethodKhalti, MethodCard}

// ParsePaymentMethod returns the method for s or an error when s is not a known method
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	for _, m := range PaymentMethods {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown payment method %q", s)
}

// UnmarshalJSON rejects methods outside the closed set
func (m *PaymentMethod) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParsePaymentMethod(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Payment records a single payment attempt in the payments collection
type Payment struct {
	ID            primitive.ObjectID `json:"id" bson:"_id"`
	ReportID      string             `json:"reportId" bson:"report_id"`
	UserID        string             `json:"userId" bson:"user_id"`
	Amount        int                `json:"amount" bson:"amount"`
	TokensUsed    int                `json:"tokensUsed" bson:"tokens_used"`
	FinalAmount   int                `json:"finalAmount" bson:"final_amount"`
	Method        PaymentMethod      `json:"method" bson:"method"`
	TransactionID string             `json:"transactionId,omitempty" bson:"transaction_id,omitempty"`
	Success       bool               `json:"success" bson:"success"`
	Error         string             `json:"error,omitempty" bson:"error,omitempty"`
	CreatedAt     primitive.DateTime `json:"createdAt" bson:"created_at"`
}
