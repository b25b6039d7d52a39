// Package geocoding resolves free-text place names to coordinates through the
// OpenWeatherMap direct geocoding API.
package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/safekid-nepal/safekid-api/apperrors"
	"github.com/safekid-nepal/safekid-api/models"
)

// DefaultBaseURL is the public OpenWeatherMap API host
const DefaultBaseURL = "http://api.openweathermap.org"

// DefaultSearchLimit is used when SearchPlaces is called with limit <= 0
const DefaultSearchLimit = 5

// minQueryLength is the shortest query SearchPlaces sends upstream
const minQueryLength = 2

// Place is a single geocoding candidate
type Place struct {
	Name    string  `json:"name"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	State   string  `json:"state,omitempty"`
	Country string  `json:"country"`
}

// Coordinates returns the place as a point
func (p Place) Coordinates() models.Coordinates {
	return models.Coordinates{Latitude: p.Lat, Longitude: p.Lon}
}

// Client looks places up and memoises single-place resolutions for the life
// of the process
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *zap.SugaredLogger

	mu    sync.RWMutex
	cache map[string]models.Coordinates
}

// New returns a Client. An empty baseURL uses DefaultBaseURL.
func New(baseURL, apiKey string, log *zap.SugaredLogger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 15 * time.Second},
		log:     log,
		cache:   map[string]models.Coordinates{},
	}
}

func cacheKey(place string) string {
	return strings.ToLower(strings.TrimSpace(place))
}

// ResolveCoordinates returns the best match for place, or nil when nothing
// matched or the lookup failed. Successful lookups are cached under the
// lowercased name.
func (c *Client) ResolveCoordinates(ctx context.Context, place string) *models.Coordinates {
	key := cacheKey(place)
	if key == "" {
		return nil
	}

	c.mu.RLock()
	coords, ok := c.cache[key]
	c.mu.RUnlock()
	if ok {
		return &coords
	}

	places, err := c.direct(ctx, place, 1)
	if err != nil {
		c.log.Errorw("failed to resolve place coordinates", "place", place, "error", err)
		return nil
	}
	if len(places) == 0 {
		return nil
	}

	coords = places[0].Coordinates()
	c.mu.Lock()
	c.cache[key] = coords
	c.mu.Unlock()
	return &coords
}

// SearchPlaces returns up to limit candidates for query. Queries shorter than
// two characters return nothing without a request.
func (c *Client) SearchPlaces(ctx context.Context, query string, limit int) []Place {
	if len(strings.TrimSpace(query)) < minQueryLength {
		return []Place{}
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	places, err := c.direct(ctx, query, limit)
	if err != nil {
		c.log.Errorw("failed to search places", "query", query, "error", err)
		return []Place{}
	}
	return places
}

// ResolveBest searches for text and resolves the first candidate's name,
// falling back to text itself when the search comes back empty
func (c *Client) ResolveBest(ctx context.Context, text string) *models.Coordinates {
	candidates := c.SearchPlaces(ctx, text, 1)
	if len(candidates) == 0 {
		return c.ResolveCoordinates(ctx, text)
	}
	return c.ResolveCoordinates(ctx, candidates[0].Name)
}

func (c *Client) direct(ctx context.Context, query string, limit int) ([]Place, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("limit", strconv.Itoa(limit))
	q.Set("appid", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/geo/1.0/direct?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create geocoding request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperrors.Network("geocoding", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.Network("geocoding", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var places []Place
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return nil, apperrors.Network("geocoding", fmt.Errorf("failed to decode response: %w", err))
	}
	return places, nil
}
