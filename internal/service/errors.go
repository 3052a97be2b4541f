package service

import "errors"

var (
	// ErrNotClient is returned when a command requires a registered client.
	ErrNotClient = errors.New("sender is not a registered client")

	// ErrNotDriver is returned when a command requires a registered driver.
	ErrNotDriver = errors.New("sender is not a registered driver")

	// ErrNoActiveRide is returned when the sender has no active ride to stop.
	ErrNoActiveRide = errors.New("no active ride")

	// ErrRideNotTaken is returned when rating a ride no driver ever claimed.
	ErrRideNotTaken = errors.New("ride was never taken")

	// ErrInvalidScore is returned when a rating is outside 1..5.
	ErrInvalidScore = errors.New("invalid rating score")

	// ErrLocationUnavailable is returned by location providers that have no
	// position for the requested number.
	ErrLocationUnavailable = errors.New("location unavailable")
)
