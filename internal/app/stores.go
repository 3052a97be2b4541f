package app

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/newrelic/go-agent/v3/newrelic"

	"smsride/internal/config"
	"smsride/internal/repository"
	"smsride/internal/repository/memory"
	"smsride/internal/repository/postgres"
)

// Stores bundles the directory and ride ledger backends.
type Stores struct {
	Directory repository.Directory
	Rides     repository.RideLedger

	db *sql.DB
}

// NewStores builds the backend selected by cfg.Dispatch.Store.
func NewStores(ctx context.Context, cfg *config.Config, nrApp *newrelic.Application) (*Stores, error) {
	switch cfg.Dispatch.Store {
	case config.StoreMemory:
		log.Println("Using in-memory directory and ride ledger")
		return &Stores{
			Directory: memory.NewDirectory(),
			Rides:     memory.NewRideLedger(cfg.Dispatch.RideNumberBase),
		}, nil

	case config.StorePostgres:
		db, err := NewDatabase(ctx, cfg.Database, cfg.Dispatch.RideNumberBase, nrApp)
		if err != nil {
			return nil, err
		}
		log.Println("Connected to PostgreSQL")
		return &Stores{
			Directory: postgres.NewDirectory(db),
			Rides:     postgres.NewRideLedger(db),
			db:        db,
		}, nil

	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Dispatch.Store)
	}
}

// Close releases the database pool, if any.
func (s *Stores) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
