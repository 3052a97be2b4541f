package memory

import (
	"context"
	"sync"
	"time"

	"smsride/internal/domain"
	"smsride/internal/repository"
)

// RideLedger is an in-memory implementation of repository.RideLedger.
// Rides are kept in creation order, so the slice is sorted by number.
type RideLedger struct {
	mu       sync.RWMutex
	rides    []*domain.Ride
	byNumber map[int64]*domain.Ride
	next     int64
}

// NewRideLedger creates an empty ledger whose first ride gets number base.
func NewRideLedger(base int64) *RideLedger {
	return &RideLedger{
		byNumber: make(map[int64]*domain.Ride),
		next:     base,
	}
}

// Create stores a new pending ride under the next ride number.
func (l *RideLedger) Create(ctx context.Context, clientNumber string) (*domain.Ride, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ride := &domain.Ride{
		Number:       l.next,
		ClientNumber: clientNumber,
		CreatedAt:    time.Now(),
	}
	l.next++
	l.rides = append(l.rides, ride)
	l.byNumber[ride.Number] = ride

	snapshot := *ride
	return &snapshot, nil
}

// GetByNumber retrieves a ride by its number.
func (l *RideLedger) GetByNumber(ctx context.Context, number int64) (*domain.Ride, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ride, ok := l.byNumber[number]
	if !ok {
		return nil, repository.ErrNotFound
	}
	snapshot := *ride
	return &snapshot, nil
}

// ActiveFor retrieves the most recent active ride involving phone.
func (l *RideLedger) ActiveFor(ctx context.Context, phone string) (*domain.Ride, error) {
	return l.lastMatching(func(r *domain.Ride) bool {
		return r.Active && r.Involves(phone)
	})
}

// LastForClient retrieves the highest numbered ride of the client.
func (l *RideLedger) LastForClient(ctx context.Context, phone string) (*domain.Ride, error) {
	return l.lastMatching(func(r *domain.Ride) bool { return r.ClientNumber == phone })
}

// LastForDriver retrieves the highest numbered ride of the driver.
func (l *RideLedger) LastForDriver(ctx context.Context, phone string) (*domain.Ride, error) {
	return l.lastMatching(func(r *domain.Ride) bool {
		return r.HasDriver() && r.DriverNumber == phone
	})
}

func (l *RideLedger) lastMatching(match func(*domain.Ride) bool) (*domain.Ride, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for i := len(l.rides) - 1; i >= 0; i-- {
		if match(l.rides[i]) {
			snapshot := *l.rides[i]
			return &snapshot, nil
		}
	}
	return nil, repository.ErrNotFound
}

// Claim assigns driver to a ride that was never taken and activates it.
func (l *RideLedger) Claim(ctx context.Context, number int64, driverNumber string) (*domain.Ride, error) {
	return l.mutate(number, func(r *domain.Ride) error {
		if r.HasDriver() || r.Active || r.Finished {
			return repository.ErrRideAlreadyTaken
		}
		r.DriverNumber = driverNumber
		r.Active = true
		return nil
	})
}

// Finish deactivates an active ride and marks it finished.
func (l *RideLedger) Finish(ctx context.Context, number int64) (*domain.Ride, error) {
	return l.mutate(number, func(r *domain.Ride) error {
		if !r.Active {
			return repository.ErrRideNotActive
		}
		r.Active = false
		r.Finished = true
		return nil
	})
}

// MarkRated records a rating by role.
func (l *RideLedger) MarkRated(ctx context.Context, number int64, role domain.Role) (*domain.Ride, error) {
	return l.mutate(number, func(r *domain.Ride) error {
		switch role {
		case domain.RoleClient:
			if r.RatedByClient {
				return repository.ErrAlreadyRated
			}
			r.RatedByClient = true
		case domain.RoleDriver:
			if r.RatedByDriver {
				return repository.ErrAlreadyRated
			}
			r.RatedByDriver = true
		}
		return nil
	})
}

// mutate applies fn to the stored ride under the write lock, so the check
// and the update inside fn are a single step for concurrent callers.
func (l *RideLedger) mutate(number int64, fn func(*domain.Ride) error) (*domain.Ride, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ride, ok := l.byNumber[number]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if err := fn(ride); err != nil {
		return nil, err
	}
	snapshot := *ride
	return &snapshot, nil
}

// List retrieves the most recent rides, newest first.
func (l *RideLedger) List(ctx context.Context, limit int) ([]*domain.Ride, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if limit <= 0 || limit > len(l.rides) {
		limit = len(l.rides)
	}
	result := make([]*domain.Ride, 0, limit)
	for i := len(l.rides) - 1; i >= 0 && len(result) < limit; i-- {
		snapshot := *l.rides[i]
		result = append(result, &snapshot)
	}
	return result, nil
}

// Ensure RideLedger implements repository.RideLedger.
var _ repository.RideLedger = (*RideLedger)(nil)
