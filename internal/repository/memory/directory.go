package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"smsride/internal/domain"
	"smsride/internal/repository"
)

// Directory is an in-memory implementation of repository.Directory.
type Directory struct {
	mu      sync.RWMutex
	clients map[string]*domain.Client
	drivers map[string]*domain.Driver
}

// NewDirectory creates an empty in-memory directory.
func NewDirectory() *Directory {
	return &Directory{
		clients: make(map[string]*domain.Client),
		drivers: make(map[string]*domain.Driver),
	}
}

// RegisterClient registers number as a client.
func (d *Directory) RegisterClient(ctx context.Context, number string) (*domain.Client, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.checkFreeLocked(number); err != nil {
		return nil, err
	}

	client := &domain.Client{PhoneNumber: number, RegisteredAt: time.Now()}
	d.clients[number] = client
	snapshot := *client
	return &snapshot, nil
}

// RegisterDriver registers number as a driver.
func (d *Directory) RegisterDriver(ctx context.Context, number string) (*domain.Driver, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.checkFreeLocked(number); err != nil {
		return nil, err
	}

	driver := &domain.Driver{PhoneNumber: number, RegisteredAt: time.Now()}
	d.drivers[number] = driver
	snapshot := *driver
	return &snapshot, nil
}

// checkFreeLocked reports which role already holds number. Caller holds mu.
func (d *Directory) checkFreeLocked(number string) error {
	if _, ok := d.clients[number]; ok {
		return repository.ErrAlreadyClient
	}
	if _, ok := d.drivers[number]; ok {
		return repository.ErrAlreadyDriver
	}
	return nil
}

// GetClient retrieves a client by phone number.
func (d *Directory) GetClient(ctx context.Context, number string) (*domain.Client, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	client, ok := d.clients[number]
	if !ok {
		return nil, repository.ErrNotFound
	}
	snapshot := *client
	return &snapshot, nil
}

// GetDriver retrieves a driver by phone number.
func (d *Directory) GetDriver(ctx context.Context, number string) (*domain.Driver, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	driver, ok := d.drivers[number]
	if !ok {
		return nil, repository.ErrNotFound
	}
	snapshot := *driver
	return &snapshot, nil
}

// ListClients retrieves all clients ordered by phone number.
func (d *Directory) ListClients(ctx context.Context) ([]*domain.Client, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	result := make([]*domain.Client, 0, len(d.clients))
	for _, c := range d.clients {
		snapshot := *c
		result = append(result, &snapshot)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].PhoneNumber < result[j].PhoneNumber })
	return result, nil
}

// ListDrivers retrieves all drivers ordered by phone number.
func (d *Directory) ListDrivers(ctx context.Context) ([]*domain.Driver, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	result := make([]*domain.Driver, 0, len(d.drivers))
	for _, dr := range d.drivers {
		snapshot := *dr
		result = append(result, &snapshot)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].PhoneNumber < result[j].PhoneNumber })
	return result, nil
}

// Ensure Directory implements repository.Directory.
var _ repository.Directory = (*Directory)(nil)
