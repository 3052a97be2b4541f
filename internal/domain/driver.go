package domain

import "time"

// Role identifies which side of a ride a phone number is on.
type Role string

const (
	RoleClient Role = "CLIENT"
	RoleDriver Role = "DRIVER"
)

// Driver represents a registered driver, identified by phone number.
type Driver struct {
	PhoneNumber  string
	RegisteredAt time.Time
}
