package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/safekid-nepal/safekid-api/api"
	"github.com/safekid-nepal/safekid-api/apperrors"
	"github.com/safekid-nepal/safekid-api/geocoding"
	"github.com/safekid-nepal/safekid-api/models"
)

// PlaceFinder searches and resolves place names
type PlaceFinder interface {
	SearchPlaces(ctx context.Context, query string, limit int) []geocoding.Place
	ResolveBest(ctx context.Context, text string) *models.Coordinates
}

// Places exported for testing purposes
type Places struct {
	Finder PlaceFinder
}

// SearchHandler suggests places matching q
func (p Places) SearchHandler(w http.ResponseWriter, r *http.Request) {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = geocoding.DefaultSearchLimit
	}
	api.WriteJSON(w, http.StatusOK, p.Finder.SearchPlaces(r.Context(), r.URL.Query().Get("q"), limit))
}

// ResolveHandler turns typed text into coordinates
func (p Places) ResolveHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	coords := p.Finder.ResolveBest(r.Context(), q)
	if coords == nil {
		writeError(w, "failed to resolve place", apperrors.NotFound("place", q))
		return
	}
	api.WriteJSON(w, http.StatusOK, coords)
}
