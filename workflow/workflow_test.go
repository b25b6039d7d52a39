package workflow

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/safekid-nepal/safekid-api/apperrors"
	"github.com/safekid-nepal/safekid-api/logging"
	"github.com/safekid-nepal/safekid-api/models"
	"github.com/safekid-nepal/safekid-api/notify"
	"github.com/safekid-nepal/safekid-api/payment"
)

type fakeReports struct{ mock.Mock }

func (f *fakeReports) Create(ctx context.Context, input models.ReportInput) (*models.MissingChildReport, notify.Result, error) {
	args := f.Called(ctx, input)
	r, _ := args.Get(0).(*models.MissingChildReport)
	return r, args.Get(1).(notify.Result), args.Error(2)
}

func (f *fakeReports) AddSighting(ctx context.Context, reportID string, input models.SightingInput, callerID string) (*models.Sighting, error) {
	args := f.Called(ctx, reportID, input, callerID)
	s, _ := args.Get(0).(*models.Sighting)
	return s, args.Error(1)
}

type fakeTokens struct{ mock.Mock }

func (f *fakeTokens) UpdateTokens(ctx context.Context, userID string, balance int) (*models.User, error) {
	args := f.Called(ctx, userID, balance)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

type fakeCharger struct{ mock.Mock }

func (f *fakeCharger) Charge(ctx context.Context, req payment.Request) (payment.Result, error) {
	args := f.Called(ctx, req)
	return args.Get(0).(payment.Result), args.Error(1)
}

func (f *fakeCharger) AttachReport(ctx context.Context, referenceID, reportID string) error {
	return f.Called(ctx, referenceID, reportID).Error(0)
}

type fakeGeocoder map[string]*models.Coordinates

func (g fakeGeocoder) ResolveCoordinates(_ context.Context, place string) *models.Coordinates {
	return g[place]
}

var thamel = &models.Coordinates{Latitude: 27.7154, Longitude: 85.3123}

func parent(tokens int) models.User {
	return models.User{
		ID:     primitive.NewObjectID(),
		Name:   "Sita Sharma",
		Phone:  "+9779800000001",
		Email:  "sita@example.com",
		Role:   models.RoleParent,
		Tokens: tokens,
	}
}

func form(area models.BroadcastArea) ReportForm {
	return ReportForm{
		ChildName:        "Aarav",
		ChildAge:         7,
		ChildPhoto:       "https://bit.ly/aarav",
		Description:      "Red jacket, blue school bag",
		LastSeenLocation: "Thamel",
		BroadcastArea:    area,
	}
}

func TestPostReportCoveredByTokens(t *testing.T) {
	user := parent(120)
	reports := &fakeReports{}
	tokens := &fakeTokens{}
	charger := &fakeCharger{}
	fl := New(reports, tokens, charger, fakeGeocoder{"Thamel": thamel}, logging.Nop())

	created := &models.MissingChildReport{ID: primitive.NewObjectID(), ChildName: "Aarav", Cost: 100}
	reports.On("Create", mock.Anything, mock.MatchedBy(func(in models.ReportInput) bool {
		return in.Cost == 100 && in.ParentID == user.ID.Hex() && in.LastSeenCoordinates == thamel
	})).Return(created, notify.Result{Success: true, SentCount: 5}, nil)
	tokens.On("UpdateTokens", mock.Anything, user.ID.Hex(), 20).Return(&models.User{ID: user.ID, Tokens: 20}, nil)

	out, err := fl.PostReport(context.Background(), user, form(models.AreaCity))
	require.NoError(t, err)
	assert.Equal(t, created, out.Report)
	assert.False(t, out.Quote.RequiresPayment)
	assert.Equal(t, 100, out.Quote.TokensUsed)
	assert.Nil(t, out.Payment)
	assert.Equal(t, 20, out.Balance)
	assert.Equal(t, 5, out.Broadcast.SentCount)
	charger.AssertNotCalled(t, "Charge", mock.Anything, mock.Anything)
	reports.AssertExpectations(t)
	tokens.AssertExpectations(t)
}

func TestPostReportChargesRemainder(t *testing.T) {
	user := parent(30)
	reports := &fakeReports{}
	tokens := &fakeTokens{}
	charger := &fakeCharger{}
	fl := New(reports, tokens, charger, fakeGeocoder{}, logging.Nop())

	f := form(models.AreaNationwide)
	f.LastSeenCoordinates = thamel
	f.PaymentMethod = models.MethodEsewa

	var reference string
	charger.On("Charge", mock.Anything, mock.MatchedBy(func(req payment.Request) bool {
		return req.Amount == 470 && req.BaseAmount == 500 && req.TokensUsed == 30 && req.Method == models.MethodEsewa
	})).Return(payment.Result{Success: true, TransactionID: "ESEWA_1_abcdefghi"}, nil).Run(func(args mock.Arguments) {
		reference = args.Get(1).(payment.Request).ReferenceID
	})
	reportID := primitive.NewObjectID()
	reports.On("Create", mock.Anything, mock.MatchedBy(func(in models.ReportInput) bool {
		return in.Cost == 500
	})).Return(&models.MissingChildReport{ID: reportID, Cost: 500}, notify.Result{Success: true, SentCount: 5}, nil)
	charger.On("AttachReport", mock.Anything, mock.Anything, reportID.Hex()).Return(nil)
	tokens.On("UpdateTokens", mock.Anything, user.ID.Hex(), 0).Return(&models.User{ID: user.ID}, nil)

	out, err := fl.PostReport(context.Background(), user, f)
	require.NoError(t, err)
	require.NotNil(t, out.Payment)
	assert.Equal(t, "ESEWA_1_abcdefghi", out.Payment.TransactionID)
	assert.Equal(t, 470, out.Quote.FinalCost)
	assert.Equal(t, 0, out.Balance)
	assert.True(t, strings.HasPrefix(reference, "pending_"))
	charger.AssertCalled(t, "AttachReport", mock.Anything, reference, reportID.Hex())
	charger.AssertExpectations(t)
	tokens.AssertExpectations(t)
}

func TestPostReportKeepsReportWhenPaymentLinkFails(t *testing.T) {
	user := parent(0)
	reports := &fakeReports{}
	charger := &fakeCharger{}
	fl := New(reports, &fakeTokens{}, charger, fakeGeocoder{}, logging.Nop())

	f := form(models.AreaCity)
	f.LastSeenCoordinates = thamel
	f.PaymentMethod = models.MethodKhalti
	charger.On("Charge", mock.Anything, mock.Anything).Return(payment.Result{Success: true, TransactionID: "KHALTI_1_abcdefghi"}, nil)
	charger.On("AttachReport", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("mongo down"))
	reports.On("Create", mock.Anything, mock.Anything).Return(&models.MissingChildReport{ID: primitive.NewObjectID(), Cost: 100}, notify.Result{}, nil)

	out, err := fl.PostReport(context.Background(), user, f)
	require.NoError(t, err)
	assert.NotNil(t, out.Report)
	charger.AssertExpectations(t)
}

func TestPostReportDeclinedCreatesNothing(t *testing.T) {
	user := parent(0)
	reports := &fakeReports{}
	tokens := &fakeTokens{}
	charger := &fakeCharger{}
	fl := New(reports, tokens, charger, fakeGeocoder{}, logging.Nop())

	f := form(models.AreaProvince)
	f.PaymentMethod = models.MethodKhalti
	charger.On("Charge", mock.Anything, mock.Anything).Return(payment.Result{Error: payment.FailureMessage}, nil)

	out, err := fl.PostReport(context.Background(), user, f)
	require.Error(t, err)
	var perr *apperrors.PaymentError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, payment.FailureMessage, perr.Message)
	require.NotNil(t, out)
	assert.Nil(t, out.Report)
	reports.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	tokens.AssertNotCalled(t, "UpdateTokens", mock.Anything, mock.Anything, mock.Anything)
}

func TestPostReportRequiresMethodWhenPaying(t *testing.T) {
	fl := New(&fakeReports{}, &fakeTokens{}, &fakeCharger{}, fakeGeocoder{}, logging.Nop())

	_, err := fl.PostReport(context.Background(), parent(10), form(models.AreaCity))
	require.Error(t, err)
	assert.Equal(t, 422, apperrors.Status(err))
}

func TestPostReportValidation(t *testing.T) {
	fl := New(&fakeReports{}, &fakeTokens{}, &fakeCharger{}, fakeGeocoder{}, logging.Nop())

	tests := []struct {
		name  string
		edit  func(*ReportForm)
		field string
	}{
		{"missing name", func(f *ReportForm) { f.ChildName = " " }, "childName"},
		{"zero age", func(f *ReportForm) { f.ChildAge = 0 }, "childAge"},
		{"no photo", func(f *ReportForm) { f.ChildPhoto = "" }, "childPhoto"},
		{"no description", func(f *ReportForm) { f.Description = "" }, "description"},
		{"no location", func(f *ReportForm) { f.LastSeenLocation = "" }, "lastSeenLocation"},
		{"bad area", func(f *ReportForm) { f.BroadcastArea = "district" }, "broadcastArea"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := form(models.AreaCity)
			tt.edit(&f)
			_, err := fl.PostReport(context.Background(), parent(500), f)
			var verr *apperrors.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestPostReportKeepsReportWhenDeductionFails(t *testing.T) {
	user := parent(100)
	reports := &fakeReports{}
	tokens := &fakeTokens{}
	fl := New(reports, tokens, &fakeCharger{}, fakeGeocoder{}, logging.Nop())

	created := &models.MissingChildReport{ID: primitive.NewObjectID()}
	reports.On("Create", mock.Anything, mock.Anything).Return(created, notify.Result{}, nil)
	tokens.On("UpdateTokens", mock.Anything, user.ID.Hex(), 0).Return(nil, apperrors.Network("users", errors.New("timeout")))

	out, err := fl.PostReport(context.Background(), user, form(models.AreaCity))
	require.NoError(t, err)
	assert.Equal(t, created, out.Report)
	assert.Equal(t, 100, out.Balance)
}

func TestSubmitSightingGeocodes(t *testing.T) {
	user := parent(0)
	reports := &fakeReports{}
	fl := New(reports, &fakeTokens{}, &fakeCharger{}, fakeGeocoder{"Thamel": thamel}, logging.Nop())

	want := &models.Sighting{ID: primitive.NewObjectID(), TokensEarned: models.SightingReward}
	reports.On("AddSighting", mock.Anything, "r1", mock.MatchedBy(func(in models.SightingInput) bool {
		return in.Coordinates == thamel && in.SubmitterID == user.ID.Hex()
	}), user.ID.Hex()).Return(want, nil)

	got, err := fl.SubmitSighting(context.Background(), user, "r1", SightingForm{Description: "near the stupa", Location: "Thamel"})
	require.NoError(t, err)
	assert.Equal(t, want, got)
	reports.AssertExpectations(t)
}

func TestSubmitSightingUnresolvableLocation(t *testing.T) {
	reports := &fakeReports{}
	fl := New(reports, &fakeTokens{}, &fakeCharger{}, fakeGeocoder{}, logging.Nop())

	_, err := fl.SubmitSighting(context.Background(), parent(0), "r1", SightingForm{Description: "seen", Location: "Nowhere"})
	var verr *apperrors.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "location", verr.Field)
	reports.AssertNotCalled(t, "AddSighting", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDecodeReportForm(t *testing.T) {
	ctx := context.Background()

	f, err := DecodeReportForm(ctx, []byte(`{"childName":"Aarav","childAge":7,"childPhoto":"p","description":"d","lastSeenLocation":"Thamel","broadcastArea":"city"}`))
	require.NoError(t, err)
	assert.Equal(t, models.AreaCity, f.BroadcastArea)
	assert.Equal(t, 7, f.ChildAge)

	_, err = DecodeReportForm(ctx, []byte(`{"childName":"Aarav","childAge":7,"childPhoto":"p","description":"d","broadcastArea":"district"}`))
	assert.Equal(t, 422, apperrors.Status(err))

	_, err = DecodeReportForm(ctx, []byte(`{"childAge":7}`))
	assert.Equal(t, 422, apperrors.Status(err))

	_, err = DecodeReportForm(ctx, []byte(`not json`))
	assert.Equal(t, 422, apperrors.Status(err))
}

func TestDecodeSightingForm(t *testing.T) {
	ctx := context.Background()

	f, err := DecodeSightingForm(ctx, []byte(`{"description":"d","coordinates":{"latitude":27.7,"longitude":85.3}}`))
	require.NoError(t, err)
	require.NotNil(t, f.Coordinates)
	assert.Equal(t, 85.3, f.Coordinates.Longitude)

	_, err = DecodeSightingForm(ctx, []byte(`{"description":"d","coordinates":{"latitude":127,"longitude":85.3}}`))
	assert.Equal(t, 422, apperrors.Status(err))
}
