package repository

import (
	"context"

	"smsride/internal/domain"
)

// RideLedger owns every ride record. Rides are never deleted.
type RideLedger interface {
	// Create stores a new pending ride under the next ride number.
	Create(ctx context.Context, clientNumber string) (*domain.Ride, error)

	// GetByNumber retrieves a ride by its number.
	GetByNumber(ctx context.Context, number int64) (*domain.Ride, error)

	// ActiveFor retrieves the active ride where phone is client or driver.
	ActiveFor(ctx context.Context, phone string) (*domain.Ride, error)

	// LastForClient retrieves the highest numbered ride of the client.
	LastForClient(ctx context.Context, phone string) (*domain.Ride, error)

	// LastForDriver retrieves the highest numbered ride of the driver.
	LastForDriver(ctx context.Context, phone string) (*domain.Ride, error)

	// Claim assigns driver to a ride that was never taken and activates it.
	// Exactly one of several concurrent claims succeeds; the others get
	// ErrRideAlreadyTaken.
	Claim(ctx context.Context, number int64, driverNumber string) (*domain.Ride, error)

	// Finish deactivates an active ride and marks it finished.
	// Returns ErrRideNotActive if the ride was not active.
	Finish(ctx context.Context, number int64) (*domain.Ride, error)

	// MarkRated records a rating by role.
	// Returns ErrAlreadyRated if role already rated the ride.
	MarkRated(ctx context.Context, number int64, role domain.Role) (*domain.Ride, error)

	// List retrieves the most recent rides, newest first.
	List(ctx context.Context, limit int) ([]*domain.Ride, error)
}
