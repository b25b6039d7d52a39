// Package markers turns the report collection into map marker commands and
// pushes them to connected map clients.
package markers

import (
	"fmt"
	"sync"

	"github.com/safekid-nepal/safekid-api/models"
	"github.com/safekid-nepal/safekid-api/reports"
)

// Surface is a map that can draw markers
type Surface interface {
	AddOrUpdateMarker(id string, lat, lng float64, label string)
	// MoveMarker also re-centres the view on the marker
	MoveMarker(id string, lat, lng float64, label string)
	AnimateMarker(id string, lat, lng float64, label string)
	RemoveMarker(id string)
}

type marker struct {
	coords models.Coordinates
	label  string
}

// Sync keeps a Surface in line with the active reports and their located
// sightings. Marker ids are report and sighting ids, so the last command for
// an id wins.
type Sync struct {
	surface Surface

	mu      sync.Mutex
	tracked map[string]marker
}

// NewSync returns a Sync drawing on surface
func NewSync(surface Surface) *Sync {
	return &Sync{surface: surface, tracked: map[string]marker{}}
}

// SightingLabel is the marker label for a sighting of report
func SightingLabel(report models.MissingChildReport) string {
	return fmt.Sprintf("Sighting: %s", report.ChildName)
}

// Apply brings the surface in line with the located active reports and the
// located sightings of active reports. Only changes are sent: new markers are
// added, moved markers are animated, relabelled markers are replaced and
// markers no longer in the set are removed.
func (s *Sync) Apply(all []models.MissingChildReport) {
	next := map[string]marker{}
	var order []string
	for _, r := range all {
		if r.Status != models.StatusActive {
			continue
		}
		if r.LastSeenCoordinates != nil {
			id := r.ID.Hex()
			next[id] = marker{coords: *r.LastSeenCoordinates, label: r.ChildName}
			order = append(order, id)
		}
		for _, sg := range r.Sightings {
			if sg.Coordinates == nil {
				continue
			}
			id := sg.ID.Hex()
			next[id] = marker{coords: *sg.Coordinates, label: SightingLabel(r)}
			order = append(order, id)
		}
	}

	s.mu.Lock()
	prev := s.tracked
	s.tracked = next
	s.mu.Unlock()

	for _, id := range order {
		m := next[id]
		old, ok := prev[id]
		switch {
		case ok && old == m:
		case ok && old.coords != m.coords:
			s.surface.AnimateMarker(id, m.coords.Latitude, m.coords.Longitude, m.label)
		default:
			s.surface.AddOrUpdateMarker(id, m.coords.Latitude, m.coords.Longitude, m.label)
		}
	}
	for id := range prev {
		if _, ok := next[id]; !ok {
			s.surface.RemoveMarker(id)
		}
	}
}

// Focus re-centres the surface on a tracked marker. It reports false when id
// has no marker.
func (s *Sync) Focus(id string) bool {
	s.mu.Lock()
	m, ok := s.tracked[id]
	s.mu.Unlock()
	if !ok {
		return false
	}
	s.surface.MoveMarker(id, m.coords.Latitude, m.coords.Longitude, m.label)
	return true
}

// OnEvent applies the collection carried by a repository event
func (s *Sync) OnEvent(ev reports.Event) {
	s.Apply(ev.Reports)
}
