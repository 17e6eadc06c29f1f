package travel

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"tour-planner-service/internal/domain"
	"tour-planner-service/internal/platform/obs"
	"tour-planner-service/internal/ports"
)

// ORSTravelProvider implements TravelProvider using the OpenRouteService
// matrix API for walk and taxi profiles.
//
// It coordinates:
//   - Persistent travel-leg caching
//   - External matrix calls with retry/backoff
//   - Monetary cost derivation (ORS returns distance, not fares)
//
// ORS has no transit profile, so transit and mixed legs delegate to the
// deterministic estimator. The provider is safe for concurrent use.
type ORSTravelProvider struct {
	session   *http.Client
	apiKey    string
	baseURL   string
	cache     ports.TravelCache
	estimator *EstimateTravelProvider
}

func NewORSTravelProvider(apiKey string, cache ports.TravelCache) (*ORSTravelProvider, error) {
	if apiKey == "" {
		return nil, errors.New("ORS api key is empty")
	}

	return &ORSTravelProvider{
		session:   &http.Client{Timeout: 10 * time.Second},
		apiKey:    apiKey,
		baseURL:   "https://api.openrouteservice.org",
		cache:     cache,
		estimator: NewEstimateTravelProvider(),
	}, nil
}

func profileFor(mode domain.TransportMode) (string, bool) {
	switch mode {
	case domain.ModeWalk:
		return "foot-walking", true
	case domain.ModeTaxi:
		return "driving-car", true
	}
	return "", false
}

// coordKey builds a stable cache key for a coordinate pair.
func coordKey(c domain.Coordinates) string {
	return fmt.Sprintf("%.5f,%.5f", c.Lat, c.Lon)
}

func (o *ORSTravelProvider) GetTravel(ctx context.Context, q ports.TravelQuery) (domain.TravelLeg, error) {
	res, err := o.GetTravels(ctx, q.From, []domain.Coordinates{q.To}, q.Mode, q.DepartAt)
	if err != nil {
		return domain.TravelLeg{}, fmt.Errorf("get travel %s -> %s: %w", coordKey(q.From), coordKey(q.To), err)
	}
	leg, ok := res[0]
	if !ok {
		return domain.TravelLeg{}, fmt.Errorf("get travel %s -> %s: %w", coordKey(q.From), coordKey(q.To), domain.ErrRouteUnavailable)
	}
	return leg, nil
}

type orsMatrixRequest struct {
	Locations    [][]float64 `json:"locations"`
	Sources      []int       `json:"sources"`
	Destinations []int       `json:"destinations"`
	Metrics      []string    `json:"metrics"`
}

type orsMatrixResponse struct {
	Durations [][]float64 `json:"durations"`
	Distances [][]float64 `json:"distances"`
}

// GetTravels computes legs from one origin to many destinations, consulting
// the persistent cache before issuing an external matrix call.
func (o *ORSTravelProvider) GetTravels(
	ctx context.Context,
	from domain.Coordinates,
	to []domain.Coordinates,
	mode domain.TransportMode,
	departAt time.Time,
) (_ map[int]domain.TravelLeg, err error) {
	defer obs.Time(ctx, "ors.GetTravels")(&err)

	if len(to) == 0 {
		return map[int]domain.TravelLeg{}, nil
	}

	profile, ok := profileFor(mode)
	if !ok {
		return o.estimator.GetTravels(ctx, from, to, mode, departAt)
	}

	originKey := coordKey(from)
	destKeys := make([]string, len(to))
	for i, d := range to {
		destKeys[i] = coordKey(d)
	}

	out := make(map[int]domain.TravelLeg, len(to))
	hits := map[string]domain.TravelLeg{}
	if o.cache != nil {
		hits, err = o.cache.GetMany(ctx, mode, originKey, destKeys)
		if err != nil {
			return nil, fmt.Errorf("ORS get travel cache: %w", err)
		}
	}

	missIdx := make([]int, 0, len(to))
	for i, key := range destKeys {
		if leg, ok := hits[key]; ok {
			out[i] = leg
		} else {
			missIdx = append(missIdx, i)
		}
	}

	if len(missIdx) == 0 {
		return out, nil
	}

	locations := make([][]float64, 0, 1+len(missIdx))
	locations = append(locations, from.CoordsToList())
	destinations := make([]int, 0, len(missIdx))
	for n, i := range missIdx {
		locations = append(locations, to[i].CoordsToList())
		destinations = append(destinations, n+1)
	}

	payload, err := json.Marshal(orsMatrixRequest{
		Locations:    locations,
		Sources:      []int{0},
		Destinations: destinations,
		Metrics:      []string{"duration", "distance"},
	})
	if err != nil {
		return nil, fmt.Errorf("ORS matrix: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v2/matrix/%s", o.baseURL, profile)
	resp, err := o.doWithRetry(ctx, "matrix/"+profile, func() (*http.Request, error) {
		return o.newRequest(ctx, http.MethodPost, url, bytes.NewReader(payload))
	})
	if err != nil {
		return nil, fmt.Errorf("ORS matrix %s: %w: %v", profile, domain.ErrRouteUnavailable, err)
	}
	defer resp.Body.Close()

	var body orsMatrixResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("ORS matrix: decode response: %w", err)
	}
	if len(body.Durations) == 0 || len(body.Durations[0]) != len(missIdx) {
		return nil, fmt.Errorf("ORS matrix: %w: unexpected response shape", domain.ErrRouteUnavailable)
	}

	fresh := make(map[string]domain.TravelLeg, len(missIdx))
	for n, i := range missIdx {
		dur := body.Durations[0][n]
		if dur <= 0 {
			// Unroutable pair; leave the edge out.
			continue
		}
		meters := 0.0
		if len(body.Distances) > 0 && len(body.Distances[0]) > n {
			meters = body.Distances[0][n]
		}

		leg := domain.TravelLeg{
			Mode:     mode,
			Duration: time.Duration(dur * float64(time.Second)),
			Cost:     fareFor(mode, meters),
		}
		out[i] = leg
		fresh[destKeys[i]] = leg
	}

	if o.cache != nil && len(fresh) > 0 {
		if err := o.cache.PutMany(ctx, mode, originKey, fresh); err != nil {
			return nil, fmt.Errorf("ORS put travel cache: %w", err)
		}
	}

	return out, nil
}

// fareFor derives a monetary cost from routed distance using the same fare
// model as the estimator.
func fareFor(mode domain.TransportMode, meters float64) float64 {
	switch mode {
	case domain.ModeTaxi:
		return taxiBaseFare + taxiFarePerKm*meters/1000
	case domain.ModeTransit:
		return transitFlatFare
	}
	return 0
}
