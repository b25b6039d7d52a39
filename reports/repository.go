// Package reports keeps the in-memory collection of missing-child reports in
// step with the remote store and drives the side effects of each change.
package reports

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/safekid-nepal/safekid-api/apperrors"
	"github.com/safekid-nepal/safekid-api/databases"
	"github.com/safekid-nepal/safekid-api/localcache"
	"github.com/safekid-nepal/safekid-api/models"
	"github.com/safekid-nepal/safekid-api/notify"
)

const snapshotKey = "snapshot"

// Notifier fans out alerts for new reports and keeps the parent informed
type Notifier interface {
	Broadcast(ctx context.Context, report models.MissingChildReport, area models.BroadcastArea) notify.Result
	ReportPosted(ctx context.Context, report models.MissingChildReport, sent int)
	ReportFound(ctx context.Context, report models.MissingChildReport)
}

// TokenCrediter adds tokens to a user's balance
type TokenCrediter interface {
	CreditTokens(ctx context.Context, userID string, delta int) (*models.User, error)
}

// Snapshotter stores the last known collection for offline start
type Snapshotter interface {
	Put(ctx context.Context, ns, key string, v interface{}) error
	Get(ctx context.Context, ns, key string, out interface{}) (bool, error)
}

// Repository is the report collection. Reads are served from memory; every
// mutation is written remotely before memory changes.
type Repository struct {
	reports   databases.ReportDatabase
	sightings databases.SightingDatabase
	notifier  Notifier
	tokens    TokenCrediter
	snapshots Snapshotter
	log       *zap.SugaredLogger
	now       func() time.Time

	// mu guards items and loaded. items is never modified in place; each
	// change installs a new slice.
	mu     sync.RWMutex
	items  []models.MissingChildReport
	loaded bool

	obsMu     sync.Mutex
	observers []func(Event)
}

// Config carries the collaborators of a Repository. Snapshots may be nil.
type Config struct {
	Reports   databases.ReportDatabase
	Sightings databases.SightingDatabase
	Notifier  Notifier
	Tokens    TokenCrediter
	Snapshots Snapshotter
	Log       *zap.SugaredLogger
}

// New returns an empty Repository. Call Load before serving reads.
func New(c Config) *Repository {
	return &Repository{
		reports:   c.Reports,
		sightings: c.Sightings,
		notifier:  c.Notifier,
		tokens:    c.Tokens,
		snapshots: c.Snapshots,
		log:       c.Log,
		now:       time.Now,
	}
}

// Load fetches the collection once. Later calls are no-ops; use Reload to
// re-fetch.
func (r *Repository) Load(ctx context.Context) error {
	r.mu.RLock()
	loaded := r.loaded
	r.mu.RUnlock()
	if loaded {
		return nil
	}
	return r.Reload(ctx)
}

// Reload replaces the collection with what the remote store holds. If the
// fetch fails before anything has been loaded, the local snapshot is served
// instead and the fetch error is still returned.
func (r *Repository) Reload(ctx context.Context) error {
	items, err := r.reports.FindWithSightings(ctx, nil)
	if err != nil {
		r.log.Errorw("failed to load reports", "error", err)
		r.fallback(ctx)
		return apperrors.Network("reports", err)
	}
	for i := range items {
		if items[i].Sightings == nil {
			items[i].Sightings = []models.Sighting{}
		}
	}

	r.mu.Lock()
	r.items = items
	r.loaded = true
	r.mu.Unlock()

	r.log.Infow("reports loaded", "count", len(items))
	r.Snapshot(ctx)
	r.emit(EventReloaded, "")
	return nil
}

func (r *Repository) fallback(ctx context.Context) {
	if r.snapshots == nil {
		return
	}
	r.mu.RLock()
	loaded := r.loaded
	r.mu.RUnlock()
	if loaded {
		return
	}

	var items []models.MissingChildReport
	ok, err := r.snapshots.Get(ctx, localcache.NamespaceReports, snapshotKey, &items)
	if err != nil {
		r.log.Errorw("failed to read report snapshot", "error", err)
		return
	}
	if !ok {
		return
	}
	r.mu.Lock()
	r.items = items
	r.mu.Unlock()
	r.log.Infow("serving reports from local snapshot", "count", len(items))
	r.emit(EventReloaded, "")
}

// Snapshot writes the current collection to the local cache
func (r *Repository) Snapshot(ctx context.Context) {
	if r.snapshots == nil {
		return
	}
	if err := r.snapshots.Put(ctx, localcache.NamespaceReports, snapshotKey, r.List()); err != nil {
		r.log.Errorw("failed to write report snapshot", "error", err)
	}
}

// List returns every report, newest first
func (r *Repository) List() []models.MissingChildReport {
	return r.filter(func(models.MissingChildReport) bool { return true })
}

// ActiveReports returns reports whose status is active
func (r *Repository) ActiveReports() []models.MissingChildReport {
	return r.filter(func(m models.MissingChildReport) bool { return m.Status == models.StatusActive })
}

// ReportsByOwner returns every report posted by parentID regardless of status
func (r *Repository) ReportsByOwner(parentID string) []models.MissingChildReport {
	return r.filter(func(m models.MissingChildReport) bool { return m.ParentID == parentID })
}

func (r *Repository) filter(keep func(models.MissingChildReport) bool) []models.MissingChildReport {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.MissingChildReport, 0, len(r.items))
	for _, m := range r.items {
		if keep(m) {
			out = append(out, m.Clone())
		}
	}
	return out
}

// Get returns the report with id
func (r *Repository) Get(id string) (*models.MissingChildReport, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i := r.index(id)
	if i < 0 {
		return nil, apperrors.NotFound("report", id)
	}
	m := r.items[i].Clone()
	return &m, nil
}

// index finds id in items. Caller holds mu.
func (r *Repository) index(id string) int {
	for i := range r.items {
		if r.items[i].ID.Hex() == id {
			return i
		}
	}
	return -1
}

// update applies fn to a copy of the report with id and installs a new slice
// holding the result
func (r *Repository) update(id string, fn func(*models.MissingChildReport)) (*models.MissingChildReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.index(id)
	if i < 0 {
		return nil, apperrors.NotFound("report", id)
	}
	items := make([]models.MissingChildReport, len(r.items))
	copy(items, r.items)
	m := items[i].Clone()
	fn(&m)
	items[i] = m
	r.items = items
	out := m.Clone()
	return &out, nil
}

// Create stores a new active report, puts it at the head of the collection
// and broadcasts the alert once. A failed broadcast does not fail the create.
func (r *Repository) Create(ctx context.Context, input models.ReportInput) (*models.MissingChildReport, notify.Result, error) {
	report := models.MissingChildReport{
		ID:                  primitive.NewObjectID(),
		ParentID:            input.ParentID,
		ParentName:          input.ParentName,
		ParentPhone:         input.ParentPhone,
		ParentEmail:         input.ParentEmail,
		ChildName:           input.ChildName,
		ChildAge:            input.ChildAge,
		ChildPhoto:          input.ChildPhoto,
		Description:         input.Description,
		LastSeenLocation:    input.LastSeenLocation,
		LastSeenCoordinates: input.LastSeenCoordinates,
		BroadcastArea:       input.BroadcastArea,
		Cost:                input.Cost,
		Status:              models.StatusActive,
		CreatedAt:           primitive.NewDateTimeFromTime(r.now()),
		Sightings:           []models.Sighting{},
	}
	if err := r.reports.InsertOne(ctx, report); err != nil {
		r.log.Errorw("failed to create report", "parent_id", input.ParentID, "error", err)
		return nil, notify.Result{}, apperrors.Network("reports", err)
	}

	r.mu.Lock()
	items := make([]models.MissingChildReport, 0, len(r.items)+1)
	items = append(items, report)
	items = append(items, r.items...)
	r.items = items
	r.mu.Unlock()

	r.log.Infow("report created", "report_id", report.ID.Hex(), "area", report.BroadcastArea)

	var res notify.Result
	if r.notifier != nil {
		res = r.notifier.Broadcast(ctx, report.Clone(), report.BroadcastArea)
		r.notifier.ReportPosted(ctx, report.Clone(), res.SentCount)
	}

	r.Snapshot(ctx)
	r.emit(EventCreated, report.ID.Hex())
	out := report.Clone()
	return &out, res, nil
}

// AddSighting appends a sighting to the report with reportID. When the
// submitter is the caller, the caller's balance is credited with the reward.
func (r *Repository) AddSighting(ctx context.Context, reportID string, input models.SightingInput, callerID string) (*models.Sighting, error) {
	if _, err := r.Get(reportID); err != nil {
		return nil, err
	}

	sighting := models.Sighting{
		ID:             primitive.NewObjectID(),
		ReportID:       reportID,
		SubmitterID:    input.SubmitterID,
		SubmitterName:  input.SubmitterName,
		SubmitterPhone: input.SubmitterPhone,
		Photo:          input.Photo,
		Description:    input.Description,
		Location:       input.Location,
		Coordinates:    input.Coordinates,
		TokensEarned:   models.SightingReward,
		CreatedAt:      primitive.NewDateTimeFromTime(r.now()),
		IsVerified:     false,
	}
	if err := r.sightings.InsertOne(ctx, sighting); err != nil {
		r.log.Errorw("failed to add sighting", "report_id", reportID, "error", err)
		return nil, apperrors.Network("sightings", err)
	}

	if _, err := r.update(reportID, func(m *models.MissingChildReport) {
		m.Sightings = append(m.Sightings, sighting)
	}); err != nil {
		return nil, err
	}

	if r.tokens != nil && sighting.SubmitterID != "" && sighting.SubmitterID == callerID {
		if _, err := r.tokens.CreditTokens(ctx, callerID, sighting.TokensEarned); err != nil {
			r.log.Errorw("failed to credit sighting reward", "user_id", callerID, "sighting_id", sighting.ID.Hex(), "error", err)
		}
	}

	r.Snapshot(ctx)
	r.emit(EventSightingAdded, reportID)
	return &sighting, nil
}

func reportOID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, apperrors.NotFound("report", id)
	}
	return oid, nil
}

// MarkAsFound moves an active report to found. A report that is already found
// is returned unchanged. Closed reports cannot be marked found.
func (r *Repository) MarkAsFound(ctx context.Context, id string) (*models.MissingChildReport, error) {
	current, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	switch current.Status {
	case models.StatusFound:
		return current, nil
	case models.StatusClosed:
		return nil, apperrors.Validation("status", "a closed report cannot be marked found")
	}

	at := primitive.NewDateTimeFromTime(r.now())
	if err := r.setStatus(ctx, id, bson.M{"status": models.StatusFound, "found_at": at}); err != nil {
		return nil, err
	}
	report, err := r.update(id, func(m *models.MissingChildReport) {
		m.Status = models.StatusFound
		m.FoundAt = &at
	})
	if err != nil {
		return nil, err
	}

	if r.notifier != nil {
		r.notifier.ReportFound(ctx, *report)
	}
	r.Snapshot(ctx)
	r.emit(EventFound, id)
	return report, nil
}

// Close moves an active report to closed. Closing a closed report is a no-op;
// a found report cannot be closed.
func (r *Repository) Close(ctx context.Context, id string) (*models.MissingChildReport, error) {
	current, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	switch current.Status {
	case models.StatusClosed:
		return current, nil
	case models.StatusFound:
		return nil, apperrors.Validation("status", "a found report cannot be closed")
	}

	at := primitive.NewDateTimeFromTime(r.now())
	if err := r.setStatus(ctx, id, bson.M{"status": models.StatusClosed, "closed_at": at}); err != nil {
		return nil, err
	}
	report, err := r.update(id, func(m *models.MissingChildReport) {
		m.Status = models.StatusClosed
		m.ClosedAt = &at
	})
	if err != nil {
		return nil, err
	}

	r.Snapshot(ctx)
	r.emit(EventClosed, id)
	return report, nil
}

func (r *Repository) setStatus(ctx context.Context, id string, set bson.M) error {
	oid, err := reportOID(id)
	if err != nil {
		return err
	}
	res, err := r.reports.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		r.log.Errorw("failed to update report status", "report_id", id, "error", err)
		return apperrors.Network("reports", err)
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound("report", id)
	}
	return nil
}

// VerifySighting marks a sighting on reportID as verified
func (r *Repository) VerifySighting(ctx context.Context, reportID, sightingID string) (*models.Sighting, error) {
	report, err := r.Get(reportID)
	if err != nil {
		return nil, err
	}
	var found *models.Sighting
	for i := range report.Sightings {
		if report.Sightings[i].ID.Hex() == sightingID {
			found = &report.Sightings[i]
			break
		}
	}
	if found == nil {
		return nil, apperrors.NotFound("sighting", sightingID)
	}
	if found.IsVerified {
		return found, nil
	}

	at := primitive.NewDateTimeFromTime(r.now())
	res, err := r.sightings.UpdateOne(ctx, bson.M{"_id": found.ID}, bson.M{"$set": bson.M{"is_verified": true, "verified_at": at}})
	if err != nil {
		r.log.Errorw("failed to verify sighting", "sighting_id", sightingID, "error", err)
		return nil, apperrors.Network("sightings", err)
	}
	if res.MatchedCount == 0 {
		return nil, apperrors.NotFound("sighting", sightingID)
	}

	var verified models.Sighting
	if _, err := r.update(reportID, func(m *models.MissingChildReport) {
		for i := range m.Sightings {
			if m.Sightings[i].ID == found.ID {
				m.Sightings[i].IsVerified = true
				m.Sightings[i].VerifiedAt = &at
				verified = m.Sightings[i]
			}
		}
	}); err != nil {
		return nil, err
	}

	r.Snapshot(ctx)
	r.emit(EventSightingVerified, reportID)
	return &verified, nil
}

// Stats summarises the collection for the admin dashboard. Revenue is the
// sum of report costs.
func (r *Repository) Stats() models.ReportStats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var s models.ReportStats
	for _, m := range r.items {
		switch m.Status {
		case models.StatusActive:
			s.Active++
		case models.StatusFound:
			s.Found++
		case models.StatusClosed:
			s.Closed++
		}
		s.TotalSightings += len(m.Sightings)
		s.Revenue += m.Cost
	}
	return s
}
