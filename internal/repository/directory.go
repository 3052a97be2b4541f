package repository

import (
	"context"

	"smsride/internal/domain"
)

// Directory holds registered clients and drivers keyed by phone number.
// A number is a client, a driver, or unregistered, never both.
type Directory interface {
	// RegisterClient registers number as a client.
	// Returns ErrAlreadyClient or ErrAlreadyDriver if the number is taken.
	RegisterClient(ctx context.Context, number string) (*domain.Client, error)

	// RegisterDriver registers number as a driver.
	// Returns ErrAlreadyClient or ErrAlreadyDriver if the number is taken.
	RegisterDriver(ctx context.Context, number string) (*domain.Driver, error)

	// GetClient retrieves a client by phone number.
	GetClient(ctx context.Context, number string) (*domain.Client, error)

	// GetDriver retrieves a driver by phone number.
	GetDriver(ctx context.Context, number string) (*domain.Driver, error)

	// ListClients retrieves all clients.
	ListClients(ctx context.Context) ([]*domain.Client, error)

	// ListDrivers retrieves all drivers.
	ListDrivers(ctx context.Context) ([]*domain.Driver, error)
}
