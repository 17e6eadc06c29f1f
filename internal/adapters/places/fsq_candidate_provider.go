package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"tour-planner-service/internal/domain"
	"tour-planner-service/internal/platform/obs"
	"tour-planner-service/internal/ports"
)

// GeocodeCache persists resolved place-query coordinates.
type GeocodeCache interface {
	Get(ctx context.Context, query string) (domain.Coordinates, bool, error)
	Put(ctx context.Context, query string, c domain.Coordinates) error
}

// FSQCandidateProvider implements CandidateProvider against the Foursquare
// places search API, with Nominatim-style geocoding for the city center.
//
// It coordinates:
//   - City geocoding with a persistent cache
//   - Place search by center/radius/categories
//   - External API calls with retry/backoff
//
// The provider is safe for concurrent use.
type FSQCandidateProvider struct {
	session      *http.Client
	apiKey       string
	searchURL    string
	geocodeURL   string
	geocodeCache GeocodeCache
}

func NewFSQCandidateProvider(apiKey string, geocodeCache GeocodeCache) (*FSQCandidateProvider, error) {
	if apiKey == "" {
		return nil, errors.New("FSQ api key is empty")
	}

	return &FSQCandidateProvider{
		session:      &http.Client{Timeout: 10 * time.Second},
		apiKey:       apiKey,
		searchURL:    "https://api.foursquare.com/v3/places/search",
		geocodeURL:   "https://nominatim.openstreetmap.org/search",
		geocodeCache: geocodeCache,
	}, nil
}

type fsqPlace struct {
	FsqID      string  `json:"fsq_id"`
	Name       string  `json:"name"`
	Popularity float64 `json:"popularity"`
	Price      int     `json:"price"`
	Geocodes   struct {
		Main struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		} `json:"main"`
	} `json:"geocodes"`
	Categories []fsqCategory `json:"categories"`
}

type fsqCategory struct {
	Name string `json:"name"`
}

type fsqSearchResponse struct {
	Results []fsqPlace `json:"results"`
}

// ListCandidates searches places around the city center. Partial results
// are returned with Truncated set; only a fully unreachable upstream is an
// error, and that error wraps ErrCandidateLookupFailed so the planner can
// degrade instead of failing the session.
func (f *FSQCandidateProvider) ListCandidates(ctx context.Context, q ports.CandidateQuery) (_ ports.CandidateResult, err error) {
	defer obs.Time(ctx, "fsq.ListCandidates")(&err)

	if q.City == "" {
		return ports.CandidateResult{}, fmt.Errorf("list candidates: %w: city must be non-empty", domain.ErrCandidateLookupFailed)
	}

	center := q.Center
	if center == (domain.Coordinates{}) {
		center, err = f.geocode(ctx, q.City)
		if err != nil {
			return ports.CandidateResult{}, fmt.Errorf("list candidates: geocode %q: %w: %v", q.City, domain.ErrCandidateLookupFailed, err)
		}
	}

	radius := q.RadiusMeters
	if radius <= 0 {
		radius = 80000
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 24
	}

	params := url.Values{}
	params.Set("ll", fmt.Sprintf("%f,%f", center.Lat, center.Lon))
	params.Set("radius", strconv.Itoa(radius))
	params.Set("sort", "DISTANCE")
	params.Set("limit", strconv.Itoa(limit))
	if len(q.Categories) > 0 {
		params.Set("query", strings.Join(q.Categories, " "))
	}

	resp, err := f.doWithRetry(ctx, "places search", func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.searchURL+"?"+params.Encode(), nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Authorization", f.apiKey)
		return req, nil
	})
	if err != nil {
		return ports.CandidateResult{}, fmt.Errorf("list candidates: search places: %w: %v", domain.ErrCandidateLookupFailed, err)
	}
	defer resp.Body.Close()

	var body fsqSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return ports.CandidateResult{}, fmt.Errorf("list candidates: decode response: %w: %v", domain.ErrCandidateLookupFailed, err)
	}

	stops := make([]*domain.Stop, 0, len(body.Results))
	for _, p := range body.Results {
		if p.FsqID == "" || p.Name == "" {
			continue
		}
		stops = append(stops, placeToStop(p))
	}

	return ports.CandidateResult{
		Stops:     stops,
		Truncated: len(body.Results) >= limit,
	}, nil
}

func placeToStop(p fsqPlace) *domain.Stop {
	categories := make([]string, 0, len(p.Categories))
	popularity := make(map[string]float64, len(p.Categories))
	for _, c := range p.Categories {
		name := normalizeCategory(c.Name)
		categories = append(categories, name)
		pop := p.Popularity
		if pop <= 0 {
			pop = 0.5
		}
		popularity[name] = pop
	}

	return &domain.Stop{
		ID:            p.FsqID,
		Name:          p.Name,
		Location:      domain.Coordinates{Lat: p.Geocodes.Main.Latitude, Lon: p.Geocodes.Main.Longitude},
		Categories:    categories,
		VisitDuration: visitDurationFor(categories),
		Cost:          costForPrice(p.Price, categories),
		Popularity:    popularity,
	}
}

// normalizeCategory collapses Foursquare's taxonomy into the coarse
// category tags the constraint model uses.
func normalizeCategory(name string) string {
	n := strings.ToLower(name)
	switch {
	case strings.Contains(n, "museum") || strings.Contains(n, "gallery") ||
		strings.Contains(n, "monument") || strings.Contains(n, "historic"):
		return "culture"
	case strings.Contains(n, "restaurant") || strings.Contains(n, "café") ||
		strings.Contains(n, "cafe") || strings.Contains(n, "bakery") || strings.Contains(n, "food"):
		return "food"
	case strings.Contains(n, "park") || strings.Contains(n, "garden") || strings.Contains(n, "trail"):
		return "nature"
	case strings.Contains(n, "shop") || strings.Contains(n, "market") || strings.Contains(n, "store"):
		return "shopping"
	case strings.Contains(n, "bar") || strings.Contains(n, "club") || strings.Contains(n, "theater"):
		return "nightlife"
	}
	return strings.ReplaceAll(n, " ", "_")
}

func visitDurationFor(categories []string) time.Duration {
	for _, c := range categories {
		switch c {
		case "culture":
			return 90 * time.Minute
		case "food":
			return 60 * time.Minute
		case "nature":
			return 45 * time.Minute
		}
	}
	return 60 * time.Minute
}

// costForPrice maps Foursquare price tiers (1..4) to a currency estimate.
func costForPrice(price int, categories []string) float64 {
	switch price {
	case 1:
		return 10
	case 2:
		return 25
	case 3:
		return 50
	case 4:
		return 80
	}
	// No tier reported. Attractions typically charge admission.
	for _, c := range categories {
		if c == "culture" {
			return 15
		}
		if c == "nature" {
			return 0
		}
	}
	return 10
}

type nominatimResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// geocode resolves a city query to coordinates, consulting the persistent
// cache before calling the geocoding service.
func (f *FSQCandidateProvider) geocode(ctx context.Context, query string) (domain.Coordinates, error) {
	norm := strings.Join(strings.Fields(query), " ")

	if f.geocodeCache != nil {
		if c, ok, err := f.geocodeCache.Get(ctx, norm); err != nil {
			return domain.Coordinates{}, fmt.Errorf("geocode cache: %w", err)
		} else if ok {
			return c, nil
		}
	}

	params := url.Values{}
	params.Set("q", norm)
	params.Set("format", "json")
	params.Set("limit", "1")

	resp, err := f.doWithRetry(ctx, "geocode", func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.geocodeURL+"?"+params.Encode(), nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "tour-planner-service")
		return req, nil
	})
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("geocode %q: %w", norm, err)
	}
	defer resp.Body.Close()

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return domain.Coordinates{}, fmt.Errorf("geocode %q: decode response: %w", norm, err)
	}
	if len(results) == 0 {
		return domain.Coordinates{}, fmt.Errorf("geocode %q: no results", norm)
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("geocode %q: parse lat: %w", norm, err)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("geocode %q: parse lon: %w", norm, err)
	}

	c := domain.Coordinates{Lat: lat, Lon: lon}
	if f.geocodeCache != nil {
		if err := f.geocodeCache.Put(ctx, norm, c); err != nil {
			return domain.Coordinates{}, fmt.Errorf("geocode cache put: %w", err)
		}
	}

	return c, nil
}
