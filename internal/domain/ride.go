package domain

import "time"

// Ride represents a ride request between one client and at most one driver.
//
// DriverNumber is empty until the ride is claimed and never changes after.
// Finished implies !Active.
type Ride struct {
	Number        int64
	ClientNumber  string
	DriverNumber  string
	Active        bool
	Finished      bool
	RatedByClient bool
	RatedByDriver bool
	CreatedAt     time.Time
}

// HasDriver reports whether the ride was ever claimed.
func (r *Ride) HasDriver() bool {
	return r.DriverNumber != ""
}

// Involves reports whether phone is the client or the driver of the ride.
func (r *Ride) Involves(phone string) bool {
	return r.ClientNumber == phone || (r.DriverNumber != "" && r.DriverNumber == phone)
}

// Counterpart returns the phone number on the other side of the ride.
func (r *Ride) Counterpart(phone string) string {
	if phone == r.ClientNumber {
		return r.DriverNumber
	}
	return r.ClientNumber
}
