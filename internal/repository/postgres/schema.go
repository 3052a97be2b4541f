package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// EnsureSchema creates the participant and ride tables if they are missing.
// rideNumberBase is the first ride number handed out by a fresh database.
// All statements are applied in one transaction.
func EnsureSchema(ctx context.Context, db *sql.DB, rideNumberBase int64) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS participants (
			phone         TEXT PRIMARY KEY,
			role          TEXT NOT NULL CHECK (role IN ('CLIENT', 'DRIVER')),
			registered_at TIMESTAMPTZ NOT NULL
		)`,
		fmt.Sprintf(`CREATE SEQUENCE IF NOT EXISTS ride_numbers START WITH %d MINVALUE %d`, rideNumberBase, rideNumberBase),
		`CREATE TABLE IF NOT EXISTS rides (
			number          BIGINT PRIMARY KEY DEFAULT nextval('ride_numbers'),
			client_number   TEXT NOT NULL REFERENCES participants (phone),
			driver_number   TEXT REFERENCES participants (phone),
			active          BOOLEAN NOT NULL DEFAULT FALSE,
			finished        BOOLEAN NOT NULL DEFAULT FALSE,
			rated_by_client BOOLEAN NOT NULL DEFAULT FALSE,
			rated_by_driver BOOLEAN NOT NULL DEFAULT FALSE,
			created_at      TIMESTAMPTZ NOT NULL,
			CHECK (NOT (finished AND active)),
			CHECK (NOT active OR driver_number IS NOT NULL)
		)`,
		`CREATE INDEX IF NOT EXISTS rides_client_number_idx ON rides (client_number, number DESC)`,
		`CREATE INDEX IF NOT EXISTS rides_driver_number_idx ON rides (driver_number, number DESC)`,
	}

	return inTx(ctx, db, func(q Querier) error {
		for _, stmt := range statements {
			if _, err := q.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("failed to apply schema: %w", err)
			}
		}
		return nil
	})
}
