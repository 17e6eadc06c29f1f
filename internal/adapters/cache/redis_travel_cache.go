package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"tour-planner-service/internal/domain"
)

// RedisTravelCache is a TTL travel-leg cache for deployments sharing one
// cache across instances. Entries are stored as "seconds|cost" strings
// under mode-qualified keys.
type RedisTravelCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisTravelCache(client *redis.Client, ttl time.Duration) *RedisTravelCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisTravelCache{Client: client, TTL: ttl}
}

func travelKey(mode domain.TransportMode, origin, destination string) string {
	return fmt.Sprintf("travel:%s:%s:%s", mode, origin, destination)
}

func (r *RedisTravelCache) GetMany(
	ctx context.Context,
	mode domain.TransportMode,
	origin string,
	destinations []string,
) (map[string]domain.TravelLeg, error) {
	if r.Client == nil {
		return nil, errors.New("travel cache: redis client is nil")
	}

	if origin == "" {
		return nil, errors.New("get travel cache: origin must not be empty")
	}

	if len(destinations) == 0 {
		return map[string]domain.TravelLeg{}, nil
	}

	keys := make([]string, len(destinations))
	for i, d := range destinations {
		keys[i] = travelKey(mode, origin, d)
	}

	vals, err := r.Client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("get travel cache: redis mget: %w", err)
	}

	out := make(map[string]domain.TravelLeg, len(destinations))
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var seconds int
		var cost float64
		if _, err := fmt.Sscanf(s, "%d|%f", &seconds, &cost); err != nil {
			// Unparseable entries are treated as misses.
			continue
		}
		out[destinations[i]] = domain.TravelLeg{
			Mode:     mode,
			Duration: time.Duration(seconds) * time.Second,
			Cost:     cost,
		}
	}

	return out, nil
}

func (r *RedisTravelCache) PutMany(
	ctx context.Context,
	mode domain.TransportMode,
	origin string,
	legs map[string]domain.TravelLeg,
) error {
	if r.Client == nil {
		return errors.New("travel cache: redis client is nil")
	}

	if origin == "" {
		return errors.New("insert travel cache: origin must not be empty")
	}

	if len(legs) == 0 {
		return nil
	}

	pipe := r.Client.Pipeline()
	for dest, leg := range legs {
		if strings.TrimSpace(dest) == "" {
			return fmt.Errorf("insert travel cache: empty destination key")
		}
		val := fmt.Sprintf("%d|%f", int(leg.Duration.Seconds()), leg.Cost)
		pipe.Set(ctx, travelKey(mode, origin, dest), val, r.TTL)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("insert travel cache: redis pipeline: %w", err)
	}

	return nil
}
