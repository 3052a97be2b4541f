package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smsride/internal/domain"
	"smsride/internal/repository"
)

var createdAt = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func rideRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"number", "client_number", "driver_number", "active", "finished",
		"rated_by_client", "rated_by_driver", "created_at",
	})
}

func newMockLedger(t *testing.T) (*RideLedger, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return NewRideLedger(db), mock
}

func TestRideLedger_Create(t *testing.T) {
	ledger, mock := newMockLedger(t)

	mock.ExpectQuery(`INSERT INTO rides \(client_number, created_at\)`).
		WithArgs("A", sqlmock.AnyArg()).
		WillReturnRows(rideRows().AddRow(int64(7), "A", nil, false, false, false, false, createdAt))

	ride, err := ledger.Create(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, int64(7), ride.Number)
	assert.False(t, ride.HasDriver())
}

func TestRideLedger_Claim_Succeeds(t *testing.T) {
	ledger, mock := newMockLedger(t)

	mock.ExpectQuery(`UPDATE rides SET driver_number = \$1, active = TRUE\s+WHERE number = \$2 AND driver_number IS NULL AND NOT active AND NOT finished`).
		WithArgs("B", int64(1)).
		WillReturnRows(rideRows().AddRow(int64(1), "A", "B", true, false, false, false, createdAt))

	ride, err := ledger.Claim(context.Background(), 1, "B")
	require.NoError(t, err)
	assert.Equal(t, "B", ride.DriverNumber)
	assert.True(t, ride.Active)
}

func TestRideLedger_Claim_AlreadyTaken(t *testing.T) {
	ledger, mock := newMockLedger(t)

	mock.ExpectQuery(`UPDATE rides SET driver_number`).
		WithArgs("C", int64(1)).
		WillReturnRows(rideRows())
	mock.ExpectQuery(`SELECT .+ FROM rides WHERE number = \$1`).
		WithArgs(int64(1)).
		WillReturnRows(rideRows().AddRow(int64(1), "A", "B", true, false, false, false, createdAt))

	_, err := ledger.Claim(context.Background(), 1, "C")
	assert.ErrorIs(t, err, repository.ErrRideAlreadyTaken)
}

func TestRideLedger_Claim_MissingRide(t *testing.T) {
	ledger, mock := newMockLedger(t)

	mock.ExpectQuery(`UPDATE rides SET driver_number`).
		WithArgs("C", int64(9)).
		WillReturnRows(rideRows())
	mock.ExpectQuery(`SELECT .+ FROM rides WHERE number = \$1`).
		WithArgs(int64(9)).
		WillReturnRows(rideRows())

	_, err := ledger.Claim(context.Background(), 9, "C")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRideLedger_Claim_DatabaseError(t *testing.T) {
	ledger, mock := newMockLedger(t)
	dbErr := errors.New("connection reset")

	mock.ExpectQuery(`UPDATE rides SET driver_number`).
		WithArgs("C", int64(1)).
		WillReturnError(dbErr)

	_, err := ledger.Claim(context.Background(), 1, "C")
	assert.ErrorIs(t, err, dbErr)
}

func TestRideLedger_Finish_NotActive(t *testing.T) {
	ledger, mock := newMockLedger(t)

	mock.ExpectQuery(`UPDATE rides SET active = FALSE, finished = TRUE\s+WHERE number = \$1 AND active`).
		WithArgs(int64(1)).
		WillReturnRows(rideRows())
	mock.ExpectQuery(`SELECT .+ FROM rides WHERE number = \$1`).
		WithArgs(int64(1)).
		WillReturnRows(rideRows().AddRow(int64(1), "A", "B", false, true, false, false, createdAt))

	_, err := ledger.Finish(context.Background(), 1)
	assert.ErrorIs(t, err, repository.ErrRideNotActive)
}

func TestRideLedger_MarkRated(t *testing.T) {
	ledger, mock := newMockLedger(t)

	mock.ExpectQuery(`UPDATE rides SET rated_by_driver = TRUE\s+WHERE number = \$1 AND NOT rated_by_driver`).
		WithArgs(int64(1)).
		WillReturnRows(rideRows().AddRow(int64(1), "A", "B", false, true, false, true, createdAt))

	ride, err := ledger.MarkRated(context.Background(), 1, domain.RoleDriver)
	require.NoError(t, err)
	assert.True(t, ride.RatedByDriver)

	mock.ExpectQuery(`UPDATE rides SET rated_by_client = TRUE\s+WHERE number = \$1 AND NOT rated_by_client`).
		WithArgs(int64(1)).
		WillReturnRows(rideRows())
	mock.ExpectQuery(`SELECT .+ FROM rides WHERE number = \$1`).
		WithArgs(int64(1)).
		WillReturnRows(rideRows().AddRow(int64(1), "A", "B", false, true, true, true, createdAt))

	_, err = ledger.MarkRated(context.Background(), 1, domain.RoleClient)
	assert.ErrorIs(t, err, repository.ErrAlreadyRated)
}

func TestDirectory_RegisterConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	dir := NewDirectory(db)

	mock.ExpectExec(`INSERT INTO participants`).
		WithArgs("A", "DRIVER", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT role FROM participants WHERE phone = \$1`).
		WithArgs("A").
		WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow("CLIENT"))

	_, err = dir.RegisterDriver(context.Background(), "A")
	assert.ErrorIs(t, err, repository.ErrAlreadyClient)

	mock.ExpectExec(`INSERT INTO participants`).
		WithArgs("B", "DRIVER", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	driver, err := dir.RegisterDriver(context.Background(), "B")
	require.NoError(t, err)
	assert.Equal(t, "B", driver.PhoneNumber)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS participants`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE SEQUENCE IF NOT EXISTS ride_numbers START WITH 100 MINVALUE 100`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS rides`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE INDEX IF NOT EXISTS rides_client_number_idx`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE INDEX IF NOT EXISTS rides_driver_number_idx`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	require.NoError(t, EnsureSchema(context.Background(), db, 100))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchema_RollsBackOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS participants`).WillReturnError(errors.New("permission denied"))
	mock.ExpectRollback()

	err = EnsureSchema(context.Background(), db, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to apply schema")
	assert.NoError(t, mock.ExpectationsWereMet())
}
