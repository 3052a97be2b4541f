package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrAlreadyClient is returned when the number is already registered as a client.
	ErrAlreadyClient = errors.New("number already registered as client")

	// ErrAlreadyDriver is returned when the number is already registered as a driver.
	ErrAlreadyDriver = errors.New("number already registered as driver")

	// ErrRideAlreadyTaken is returned when a claim loses to an earlier one.
	ErrRideAlreadyTaken = errors.New("ride already taken")

	// ErrRideNotActive is returned when stopping a ride that is not active.
	ErrRideNotActive = errors.New("ride not active")

	// ErrAlreadyRated is returned when a role rates the same ride twice.
	ErrAlreadyRated = errors.New("ride already rated")
)
