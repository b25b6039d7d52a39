package reports

import "github.com/safekid-nepal/safekid-api/models"

// EventKind names a change to the report collection
type EventKind string

// Events emitted by the repository
const (
	EventReloaded         EventKind = "reloaded"
	EventCreated          EventKind = "created"
	EventSightingAdded    EventKind = "sighting_added"
	EventFound            EventKind = "found"
	EventClosed           EventKind = "closed"
	EventSightingVerified EventKind = "sighting_verified"
)

// Event is delivered to subscribers after the collection changes. Reports is
// a copy of the whole collection as it stood after the change.
type Event struct {
	Kind     EventKind
	ReportID string
	Reports  []models.MissingChildReport
}

// Subscribe registers fn to be called after every change. Subscribers run
// synchronously on the goroutine that made the change.
func (r *Repository) Subscribe(fn func(Event)) {
	r.obsMu.Lock()
	defer r.obsMu.Unlock()
	r.observers = append(r.observers, fn)
}

func (r *Repository) emit(kind EventKind, reportID string) {
	r.obsMu.Lock()
	observers := append([]func(Event){}, r.observers...)
	r.obsMu.Unlock()
	if len(observers) == 0 {
		return
	}
	ev := Event{Kind: kind, ReportID: reportID, Reports: r.List()}
	for _, fn := range observers {
		fn(ev)
	}
}
