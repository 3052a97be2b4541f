package redis

import (
	"context"

	"smsride/internal/domain"
	"smsride/internal/service"
)

// LocationStoreInterface defines the interface for handset location operations.
type LocationStoreInterface interface {
	service.LocationProvider
	Position(ctx context.Context, phone string) (domain.Location, error)
	UpdateLocation(ctx context.Context, phone string, lat, lng float64) error
	RemoveLocation(ctx context.Context, phone string) error
}

// Ensure concrete types implement interfaces.
var (
	_ LocationStoreInterface = (*LocationStore)(nil)
)
