package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"smsride/internal/domain"
	"smsride/internal/repository"
)

// Directory is a PostgreSQL implementation of repository.Directory.
// The phone primary key on participants enforces one role per number.
type Directory struct {
	q Querier
}

// NewDirectory creates a new PostgreSQL directory.
func NewDirectory(db *sql.DB) *Directory {
	return &Directory{q: db}
}

// RegisterClient registers number as a client.
func (r *Directory) RegisterClient(ctx context.Context, number string) (*domain.Client, error) {
	registeredAt, err := r.register(ctx, number, domain.RoleClient)
	if err != nil {
		return nil, err
	}
	return &domain.Client{PhoneNumber: number, RegisteredAt: registeredAt}, nil
}

// RegisterDriver registers number as a driver.
func (r *Directory) RegisterDriver(ctx context.Context, number string) (*domain.Driver, error) {
	registeredAt, err := r.register(ctx, number, domain.RoleDriver)
	if err != nil {
		return nil, err
	}
	return &domain.Driver{PhoneNumber: number, RegisteredAt: registeredAt}, nil
}

func (r *Directory) register(ctx context.Context, number string, role domain.Role) (time.Time, error) {
	query := `INSERT INTO participants (phone, role, registered_at) VALUES ($1, $2, $3) ON CONFLICT (phone) DO NOTHING`

	registeredAt := time.Now().UTC()
	result, err := r.q.ExecContext(ctx, query, number, string(role), registeredAt)
	if err != nil {
		return time.Time{}, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return time.Time{}, err
	}
	if rowsAffected == 1 {
		return registeredAt, nil
	}

	existing, err := r.roleOf(ctx, number)
	if err != nil {
		return time.Time{}, err
	}
	if existing == domain.RoleClient {
		return time.Time{}, repository.ErrAlreadyClient
	}
	return time.Time{}, repository.ErrAlreadyDriver
}

func (r *Directory) roleOf(ctx context.Context, number string) (domain.Role, error) {
	var role string
	err := r.q.QueryRowContext(ctx, `SELECT role FROM participants WHERE phone = $1`, number).Scan(&role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", repository.ErrNotFound
		}
		return "", err
	}
	return domain.Role(role), nil
}

// GetClient retrieves a client by phone number.
func (r *Directory) GetClient(ctx context.Context, number string) (*domain.Client, error) {
	registeredAt, err := r.get(ctx, number, domain.RoleClient)
	if err != nil {
		return nil, err
	}
	return &domain.Client{PhoneNumber: number, RegisteredAt: registeredAt}, nil
}

// GetDriver retrieves a driver by phone number.
func (r *Directory) GetDriver(ctx context.Context, number string) (*domain.Driver, error) {
	registeredAt, err := r.get(ctx, number, domain.RoleDriver)
	if err != nil {
		return nil, err
	}
	return &domain.Driver{PhoneNumber: number, RegisteredAt: registeredAt}, nil
}

func (r *Directory) get(ctx context.Context, number string, role domain.Role) (time.Time, error) {
	query := `SELECT registered_at FROM participants WHERE phone = $1 AND role = $2`

	var registeredAt time.Time
	err := r.q.QueryRowContext(ctx, query, number, string(role)).Scan(&registeredAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, repository.ErrNotFound
		}
		return time.Time{}, err
	}
	return registeredAt, nil
}

// ListClients retrieves all clients.
func (r *Directory) ListClients(ctx context.Context) ([]*domain.Client, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT phone, registered_at FROM participants WHERE role = $1 ORDER BY phone`, string(domain.RoleClient))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []*domain.Client
	for rows.Next() {
		var c domain.Client
		if err := rows.Scan(&c.PhoneNumber, &c.RegisteredAt); err != nil {
			return nil, err
		}
		clients = append(clients, &c)
	}
	return clients, rows.Err()
}

// ListDrivers retrieves all drivers.
func (r *Directory) ListDrivers(ctx context.Context) ([]*domain.Driver, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT phone, registered_at FROM participants WHERE role = $1 ORDER BY phone`, string(domain.RoleDriver))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var drivers []*domain.Driver
	for rows.Next() {
		var d domain.Driver
		if err := rows.Scan(&d.PhoneNumber, &d.RegisteredAt); err != nil {
			return nil, err
		}
		drivers = append(drivers, &d)
	}
	return drivers, rows.Err()
}

// Ensure Directory implements repository.Directory.
var _ repository.Directory = (*Directory)(nil)
