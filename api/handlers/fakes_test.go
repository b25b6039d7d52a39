package handlers_test

import (
	"context"
	"io"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/safekid-nepal/safekid-api/apperrors"
	"github.com/safekid-nepal/safekid-api/geocoding"
	"github.com/safekid-nepal/safekid-api/media"
	"github.com/safekid-nepal/safekid-api/models"
	"github.com/safekid-nepal/safekid-api/pricing"
	"github.com/safekid-nepal/safekid-api/session"
	"github.com/safekid-nepal/safekid-api/workflow"
)

// fakeStore stands in for session.Store
type fakeStore struct {
	mu       sync.Mutex
	sessions map[string]models.User
	password string
}

func newFakeStore() *fakeStore {
	return &fakeStore{sessions: map[string]models.User{}, password: "secret1"}
}

func (f *fakeStore) login(role models.Role, tokens int) (string, models.User) {
	user := models.User{ID: primitive.NewObjectID(), Name: "Sita", Phone: "+9779800000001", Role: role, Tokens: tokens}
	token := "tok-" + user.ID.Hex()
	f.mu.Lock()
	f.sessions[token] = user
	f.mu.Unlock()
	return token, user
}

func (f *fakeStore) SignIn(_ context.Context, identifier, password string) (*session.Session, error) {
	if password != f.password {
		return nil, apperrors.Auth("invalid credentials", nil)
	}
	token, user := f.login(models.RoleParent, 100)
	user.Email = identifier
	return &session.Session{Token: token, User: user}, nil
}

func (f *fakeStore) SignUp(_ context.Context, name, identifier string, role models.Role, password string) (*session.Session, error) {
	if len(password) < 6 {
		return nil, apperrors.Validation("password", "password must be at least 6 characters")
	}
	token, user := f.login(role, models.InitialTokens(role))
	user.Name = name
	return &session.Session{Token: token, User: user}, nil
}

func (f *fakeStore) Authenticate(token string) (*models.User, error) {
	user, ok := f.Current(token)
	if !ok {
		return nil, apperrors.Auth("session not found", nil)
	}
	return user, nil
}

func (f *fakeStore) SignOut(_ context.Context, token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, token)
}

func (f *fakeStore) Current(token string) (*models.User, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.sessions[token]
	if !ok {
		return nil, false
	}
	return &user, true
}

func (f *fakeStore) Refresh(_ context.Context, userID string) (*models.User, error) {
	return nil, apperrors.NotFound("user", userID)
}

func (f *fakeStore) Resume(token string) (*models.User, session.Route) {
	user, ok := f.Current(token)
	if !ok {
		return nil, session.RouteSignIn
	}
	if user.Role == models.RoleAdmin {
		return user, session.RouteAdmin
	}
	return user, session.RouteHome
}

func (f *fakeStore) UpdateTokens(_ context.Context, userID string, balance int) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for token, user := range f.sessions {
		if user.ID.Hex() == userID {
			user.Tokens = balance
			f.sessions[token] = user
			return &user, nil
		}
	}
	return nil, apperrors.NotFound("user", userID)
}

// fakeReports stands in for reports.Repository
type fakeReports struct {
	items     []models.MissingChildReport
	reloadErr error
}

func (f *fakeReports) List() []models.MissingChildReport { return f.items }

func (f *fakeReports) ActiveReports() []models.MissingChildReport {
	var out []models.MissingChildReport
	for _, r := range f.items {
		if r.Status == models.StatusActive {
			out = append(out, r)
		}
	}
	return out
}

func (f *fakeReports) ReportsByOwner(parentID string) []models.MissingChildReport {
	out := []models.MissingChildReport{}
	for _, r := range f.items {
		if r.ParentID == parentID {
			out = append(out, r)
		}
	}
	return out
}

func (f *fakeReports) Get(id string) (*models.MissingChildReport, error) {
	for i := range f.items {
		if f.items[i].ID.Hex() == id {
			r := f.items[i]
			return &r, nil
		}
	}
	return nil, apperrors.NotFound("report", id)
}

func (f *fakeReports) Stats() models.ReportStats {
	return models.ReportStats{Active: len(f.ActiveReports())}
}

func (f *fakeReports) MarkAsFound(_ context.Context, id string) (*models.MissingChildReport, error) {
	r, err := f.Get(id)
	if err != nil {
		return nil, err
	}
	r.Status = models.StatusFound
	return r, nil
}

func (f *fakeReports) Close(_ context.Context, id string) (*models.MissingChildReport, error) {
	r, err := f.Get(id)
	if err != nil {
		return nil, err
	}
	if r.Status == models.StatusFound {
		return nil, apperrors.Validation("status", "a found report cannot be closed")
	}
	r.Status = models.StatusClosed
	return r, nil
}

func (f *fakeReports) VerifySighting(_ context.Context, reportID, sightingID string) (*models.Sighting, error) {
	r, err := f.Get(reportID)
	if err != nil {
		return nil, err
	}
	for _, s := range r.Sightings {
		if s.ID.Hex() == sightingID {
			s.IsVerified = true
			return &s, nil
		}
	}
	return nil, apperrors.NotFound("sighting", sightingID)
}

func (f *fakeReports) Reload(context.Context) error { return f.reloadErr }

// fakeFlows stands in for workflow.Flows
type fakeFlows struct {
	postErr error
	posted  []workflow.ReportForm
}

func (f *fakeFlows) Quote(user models.User, area models.BroadcastArea) (pricing.Quote, error) {
	q, err := pricing.QuoteFor(area, user.Tokens)
	if err != nil {
		return q, apperrors.Validation("broadcastArea", err.Error())
	}
	return q, nil
}

func (f *fakeFlows) PostReport(_ context.Context, user models.User, form workflow.ReportForm) (*workflow.Checkout, error) {
	f.posted = append(f.posted, form)
	if f.postErr != nil {
		return nil, f.postErr
	}
	q, _ := f.Quote(user, form.BroadcastArea)
	return &workflow.Checkout{
		Report:  &models.MissingChildReport{ID: primitive.NewObjectID(), ChildName: form.ChildName, ParentID: user.ID.Hex()},
		Quote:   q,
		Balance: user.Tokens - q.TokensUsed,
	}, nil
}

func (f *fakeFlows) SubmitSighting(_ context.Context, user models.User, reportID string, form workflow.SightingForm) (*models.Sighting, error) {
	if reportID == "missing" {
		return nil, apperrors.NotFound("report", reportID)
	}
	return &models.Sighting{ID: primitive.NewObjectID(), ReportID: reportID, SubmitterID: user.ID.Hex(), Description: form.Description, TokensEarned: models.SightingReward}, nil
}

type fakeFinder struct{}

func (fakeFinder) SearchPlaces(_ context.Context, query string, limit int) []geocoding.Place {
	if len(query) < 2 {
		return []geocoding.Place{}
	}
	return []geocoding.Place{{Name: "Thamel", Lat: 27.7154, Lon: 85.3123, Country: "NP"}}
}

func (fakeFinder) ResolveBest(_ context.Context, text string) *models.Coordinates {
	if strings.EqualFold(text, "thamel") {
		return &models.Coordinates{Latitude: 27.7154, Longitude: 85.3123}
	}
	return nil
}

type fakeUploader struct{ filenames []string }

func (f *fakeUploader) Upload(_ context.Context, file io.Reader, filename string) (*media.Result, error) {
	if _, err := io.ReadAll(file); err != nil {
		return nil, err
	}
	f.filenames = append(f.filenames, filename)
	return &media.Result{URL: "https://bit.ly/x", LongURL: "https://res.cloudinary.com/x/" + filename}, nil
}

type fakeFocus map[string]bool

func (f fakeFocus) Focus(id string) bool { return f[id] }
