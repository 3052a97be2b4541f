package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"smsride/internal/domain"
	"smsride/internal/service"
)

const handsetLocationKey = "handsets:locations"

// Coordinate limits accepted by Redis GEO commands.
const (
	MaxLatitude  = 85.05112878
	MaxLongitude = 180.0
)

// LocationStore keeps the last reported position of each handset in a
// Redis GEO set and serves it as the dispatch location provider.
type LocationStore struct {
	client *redis.Client
}

// NewLocationStore creates a new LocationStore.
func NewLocationStore(client *redis.Client) *LocationStore {
	return &LocationStore{client: client}
}

// UpdateLocation stores a handset's position using GEOADD.
func (s *LocationStore) UpdateLocation(ctx context.Context, phone string, lat, lng float64) error {
	return s.client.GeoAdd(ctx, handsetLocationKey, &redis.GeoLocation{
		Name:      phone,
		Longitude: lng,
		Latitude:  lat,
	}).Err()
}

// Position returns the last reported position of phone in degrees.
// Returns service.ErrLocationUnavailable if the handset never reported one.
func (s *LocationStore) Position(ctx context.Context, phone string) (domain.Location, error) {
	positions, err := s.client.GeoPos(ctx, handsetLocationKey, phone).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Location{}, service.ErrLocationUnavailable
		}
		return domain.Location{}, fmt.Errorf("failed to read location of %s: %w", phone, err)
	}

	if len(positions) == 0 || positions[0] == nil {
		return domain.Location{}, service.ErrLocationUnavailable
	}

	return domain.Location{
		Latitude:  positions[0].Latitude,
		Longitude: positions[0].Longitude,
	}, nil
}

// RequestLocation returns the position of phone as map coordinates, each
// in [0, 1].
func (s *LocationStore) RequestLocation(ctx context.Context, phone string) (domain.Location, error) {
	pos, err := s.Position(ctx, phone)
	if err != nil {
		return domain.Location{}, err
	}
	return toMapCoordinates(pos), nil
}

// toMapCoordinates scales degrees linearly over the GEO range, so
// (-MaxLatitude, -MaxLongitude) maps to (0, 0).
func toMapCoordinates(pos domain.Location) domain.Location {
	return domain.Location{
		Latitude:  (pos.Latitude + MaxLatitude) / (2 * MaxLatitude),
		Longitude: (pos.Longitude + MaxLongitude) / (2 * MaxLongitude),
	}
}

// RemoveLocation forgets a handset's position.
func (s *LocationStore) RemoveLocation(ctx context.Context, phone string) error {
	return s.client.ZRem(ctx, handsetLocationKey, phone).Err()
}
