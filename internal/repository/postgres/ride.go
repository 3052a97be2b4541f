package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"smsride/internal/domain"
	"smsride/internal/repository"
)

const rideColumns = `number, client_number, driver_number, active, finished, rated_by_client, rated_by_driver, created_at`

// RideLedger is a PostgreSQL implementation of repository.RideLedger.
// State transitions are conditional UPDATEs, so the row lock taken by
// PostgreSQL serializes concurrent claims on the same ride.
type RideLedger struct {
	q Querier
}

// NewRideLedger creates a new PostgreSQL ride ledger.
func NewRideLedger(db *sql.DB) *RideLedger {
	return &RideLedger{q: db}
}

// Create stores a new pending ride under the next ride number.
func (r *RideLedger) Create(ctx context.Context, clientNumber string) (*domain.Ride, error) {
	query := `INSERT INTO rides (client_number, created_at) VALUES ($1, $2) RETURNING ` + rideColumns
	return scanRide(r.q.QueryRowContext(ctx, query, clientNumber, time.Now().UTC()))
}

// GetByNumber retrieves a ride by its number.
func (r *RideLedger) GetByNumber(ctx context.Context, number int64) (*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE number = $1`
	return scanRide(r.q.QueryRowContext(ctx, query, number))
}

// ActiveFor retrieves the most recent active ride involving phone.
func (r *RideLedger) ActiveFor(ctx context.Context, phone string) (*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides
		WHERE active AND (client_number = $1 OR driver_number = $1)
		ORDER BY number DESC LIMIT 1`
	return scanRide(r.q.QueryRowContext(ctx, query, phone))
}

// LastForClient retrieves the highest numbered ride of the client.
func (r *RideLedger) LastForClient(ctx context.Context, phone string) (*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE client_number = $1 ORDER BY number DESC LIMIT 1`
	return scanRide(r.q.QueryRowContext(ctx, query, phone))
}

// LastForDriver retrieves the highest numbered ride of the driver.
func (r *RideLedger) LastForDriver(ctx context.Context, phone string) (*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE driver_number = $1 ORDER BY number DESC LIMIT 1`
	return scanRide(r.q.QueryRowContext(ctx, query, phone))
}

// Claim assigns driver to a ride that was never taken and activates it.
func (r *RideLedger) Claim(ctx context.Context, number int64, driverNumber string) (*domain.Ride, error) {
	query := `UPDATE rides SET driver_number = $1, active = TRUE
		WHERE number = $2 AND driver_number IS NULL AND NOT active AND NOT finished
		RETURNING ` + rideColumns
	return r.transition(ctx, number, repository.ErrRideAlreadyTaken, query, driverNumber, number)
}

// Finish deactivates an active ride and marks it finished.
func (r *RideLedger) Finish(ctx context.Context, number int64) (*domain.Ride, error) {
	query := `UPDATE rides SET active = FALSE, finished = TRUE
		WHERE number = $1 AND active
		RETURNING ` + rideColumns
	return r.transition(ctx, number, repository.ErrRideNotActive, query, number)
}

// MarkRated records a rating by role.
func (r *RideLedger) MarkRated(ctx context.Context, number int64, role domain.Role) (*domain.Ride, error) {
	query := `UPDATE rides SET rated_by_client = TRUE
		WHERE number = $1 AND NOT rated_by_client
		RETURNING ` + rideColumns
	if role == domain.RoleDriver {
		query = `UPDATE rides SET rated_by_driver = TRUE
			WHERE number = $1 AND NOT rated_by_driver
			RETURNING ` + rideColumns
	}
	return r.transition(ctx, number, repository.ErrAlreadyRated, query, number)
}

// transition runs a conditional update. When no row matched it tells a
// missing ride apart from a failed precondition.
func (r *RideLedger) transition(ctx context.Context, number int64, conflict error, query string, args ...any) (*domain.Ride, error) {
	ride, err := scanRide(r.q.QueryRowContext(ctx, query, args...))
	if err == nil {
		return ride, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if _, err := r.GetByNumber(ctx, number); err != nil {
		return nil, err
	}
	return nil, conflict
}

// List retrieves the most recent rides, newest first.
func (r *RideLedger) List(ctx context.Context, limit int) ([]*domain.Ride, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + rideColumns + ` FROM rides ORDER BY number DESC LIMIT $1`

	rows, err := r.q.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rides []*domain.Ride
	for rows.Next() {
		ride, err := scanRide(rows)
		if err != nil {
			return nil, err
		}
		rides = append(rides, ride)
	}
	return rides, rows.Err()
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRide(row rowScanner) (*domain.Ride, error) {
	var ride domain.Ride
	var driverNumber sql.NullString

	err := row.Scan(
		&ride.Number,
		&ride.ClientNumber,
		&driverNumber,
		&ride.Active,
		&ride.Finished,
		&ride.RatedByClient,
		&ride.RatedByDriver,
		&ride.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	if driverNumber.Valid {
		ride.DriverNumber = driverNumber.String
	}
	return &ride, nil
}

// Ensure RideLedger implements repository.RideLedger.
var _ repository.RideLedger = (*RideLedger)(nil)
