package service

import (
	"context"

	"smsride/internal/domain"
)

// LocationProvider resolves the current position of a handset. Calls may
// block for a long time; callers bound them with the context.
type LocationProvider interface {
	RequestLocation(ctx context.Context, number string) (domain.Location, error)
}
