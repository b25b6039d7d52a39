// Package workflow runs the multi-step user flows: posting a report through
// checkout and submitting a sighting.
package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/safekid-nepal/safekid-api/apperrors"
	"github.com/safekid-nepal/safekid-api/models"
	"github.com/safekid-nepal/safekid-api/notify"
	"github.com/safekid-nepal/safekid-api/payment"
	"github.com/safekid-nepal/safekid-api/pricing"
)

// ReportForm is what a parent fills in to post a report
type ReportForm struct {
	ChildName           string               `json:"childName"`
	ChildAge            int                  `json:"childAge"`
	ChildPhoto          string               `json:"childPhoto"`
	Description         string               `json:"description"`
	LastSeenLocation    string               `json:"lastSeenLocation"`
	LastSeenCoordinates *models.Coordinates  `json:"lastSeenCoordinates,omitempty"`
	BroadcastArea       models.BroadcastArea `json:"broadcastArea"`
	PaymentMethod       models.PaymentMethod `json:"paymentMethod,omitempty"`
	PaymentMethodID     string               `json:"paymentMethodId,omitempty"`
}

// SightingForm is what a community member fills in to report a sighting
type SightingForm struct {
	Photo       string              `json:"photo,omitempty"`
	Description string              `json:"description"`
	Location    string              `json:"location"`
	Coordinates *models.Coordinates `json:"coordinates,omitempty"`
}

// Reports is the part of the report repository the flows need
type Reports interface {
	Create(ctx context.Context, input models.ReportInput) (*models.MissingChildReport, notify.Result, error)
	AddSighting(ctx context.Context, reportID string, input models.SightingInput, callerID string) (*models.Sighting, error)
}

// Tokens sets a user's balance
type Tokens interface {
	UpdateTokens(ctx context.Context, userID string, balance int) (*models.User, error)
}

// Charger takes payment for a report
type Charger interface {
	Charge(ctx context.Context, req payment.Request) (payment.Result, error)
	AttachReport(ctx context.Context, referenceID, reportID string) error
}

// Geocoder resolves a place name
type Geocoder interface {
	ResolveCoordinates(ctx context.Context, place string) *models.Coordinates
}

// Checkout is the outcome of posting a report
type Checkout struct {
	Report    *models.MissingChildReport `json:"report"`
	Quote     pricing.Quote              `json:"quote"`
	Payment   *payment.Result            `json:"payment,omitempty"`
	Broadcast notify.Result              `json:"broadcast"`
	Balance   int                        `json:"balance"`
}

// Flows wires the services used by the user flows
type Flows struct {
	reports  Reports
	tokens   Tokens
	payments Charger
	geocoder Geocoder
	log      *zap.SugaredLogger
}

// New returns Flows over the given services
func New(reports Reports, tokens Tokens, payments Charger, geocoder Geocoder, log *zap.SugaredLogger) *Flows {
	return &Flows{
		reports:  reports,
		tokens:   tokens,
		payments: payments,
		geocoder: geocoder,
		log:      log,
	}
}

func validateReport(f ReportForm) error {
	switch {
	case strings.TrimSpace(f.ChildName) == "":
		return apperrors.Validation("childName", "child name is required")
	case f.ChildAge <= 0:
		return apperrors.Validation("childAge", "child age must be a positive number")
	case strings.TrimSpace(f.ChildPhoto) == "":
		return apperrors.Validation("childPhoto", "a photo is required")
	case strings.TrimSpace(f.Description) == "":
		return apperrors.Validation("description", "description is required")
	case strings.TrimSpace(f.LastSeenLocation) == "" && f.LastSeenCoordinates == nil:
		return apperrors.Validation("lastSeenLocation", "last seen location or coordinates are required")
	}
	if _, err := models.ParseBroadcastArea(string(f.BroadcastArea)); err != nil {
		return apperrors.Validation("broadcastArea", err.Error())
	}
	return nil
}

// Quote prices a broadcast for user
func (fl *Flows) Quote(user models.User, area models.BroadcastArea) (pricing.Quote, error) {
	q, err := pricing.QuoteFor(area, user.Tokens)
	if err != nil {
		return q, apperrors.Validation("broadcastArea", err.Error())
	}
	return q, nil
}

// PostReport validates the form, takes payment for whatever tokens do not
// cover and creates the report. The report is only created once payment has
// succeeded. The user's balance is then reduced by the tokens spent.
func (fl *Flows) PostReport(ctx context.Context, user models.User, form ReportForm) (*Checkout, error) {
	if err := validateReport(form); err != nil {
		return nil, err
	}

	coords := form.LastSeenCoordinates
	if coords == nil && fl.geocoder != nil {
		coords = fl.geocoder.ResolveCoordinates(ctx, form.LastSeenLocation)
	}

	quote, err := fl.Quote(user, form.BroadcastArea)
	if err != nil {
		return nil, err
	}
	out := &Checkout{Quote: quote, Balance: user.Tokens}
	var reference string

	if quote.RequiresPayment {
		if form.PaymentMethod == "" {
			return nil, apperrors.Validation("paymentMethod", fmt.Sprintf("a payment method is required to pay Rs. %d", quote.FinalCost))
		}
		reference = "pending_" + uuid.New().String()
		res, err := fl.payments.Charge(ctx, payment.Request{
			Method:          form.PaymentMethod,
			Amount:          quote.FinalCost,
			ReferenceID:     reference,
			UserID:          user.ID.Hex(),
			BaseAmount:      quote.BaseCost,
			TokensUsed:      quote.TokensUsed,
			PaymentMethodID: form.PaymentMethodID,
		})
		if err != nil {
			return nil, err
		}
		out.Payment = &res
		if !res.Success {
			return out, &apperrors.PaymentError{Message: res.Error, TransactionID: res.TransactionID}
		}
	}

	report, broadcast, err := fl.reports.Create(ctx, models.ReportInput{
		ParentID:            user.ID.Hex(),
		ParentName:          user.Name,
		ParentPhone:         user.Phone,
		ParentEmail:         user.Email,
		ChildName:           strings.TrimSpace(form.ChildName),
		ChildAge:            form.ChildAge,
		ChildPhoto:          form.ChildPhoto,
		Description:         strings.TrimSpace(form.Description),
		LastSeenLocation:    strings.TrimSpace(form.LastSeenLocation),
		LastSeenCoordinates: coords,
		BroadcastArea:       form.BroadcastArea,
		Cost:                quote.BaseCost,
	})
	if err != nil {
		if out.Payment != nil {
			fl.log.Errorw("report creation failed after payment", "user_id", user.ID.Hex(), "transaction_id", out.Payment.TransactionID, "error", err)
		}
		return nil, err
	}
	out.Report = report
	out.Broadcast = broadcast

	if reference != "" {
		if err := fl.payments.AttachReport(ctx, reference, report.ID.Hex()); err != nil {
			fl.log.Errorw("failed to link payment to report", "reference_id", reference, "report_id", report.ID.Hex(), "error", err)
		}
	}

	if quote.TokensUsed > 0 {
		updated, err := fl.tokens.UpdateTokens(ctx, user.ID.Hex(), user.Tokens-quote.TokensUsed)
		if err != nil {
			fl.log.Errorw("failed to deduct tokens for report", "user_id", user.ID.Hex(), "report_id", report.ID.Hex(), "error", err)
			return out, nil
		}
		out.Balance = updated.Tokens
	}
	return out, nil
}

// SubmitSighting validates the form, resolves its coordinates when only a
// place name is given and adds the sighting to reportID. The reward is
// credited by the repository.
func (fl *Flows) SubmitSighting(ctx context.Context, user models.User, reportID string, form SightingForm) (*models.Sighting, error) {
	switch {
	case strings.TrimSpace(form.Description) == "":
		return nil, apperrors.Validation("description", "description is required")
	case strings.TrimSpace(form.Location) == "" && form.Coordinates == nil:
		return nil, apperrors.Validation("location", "location or coordinates are required")
	}

	coords := form.Coordinates
	if coords == nil {
		if fl.geocoder != nil {
			coords = fl.geocoder.ResolveCoordinates(ctx, form.Location)
		}
		if coords == nil {
			return nil, apperrors.Validation("location", "could not determine coordinates for this location")
		}
	}

	return fl.reports.AddSighting(ctx, reportID, models.SightingInput{
		SubmitterID:    user.ID.Hex(),
		SubmitterName:  user.Name,
		SubmitterPhone: user.Phone,
		Photo:          form.Photo,
		Description:    strings.TrimSpace(form.Description),
		Location:       strings.TrimSpace(form.Location),
		Coordinates:    coords,
	}, user.ID.Hex())
}
