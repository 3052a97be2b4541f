package domain

import "time"

// Client represents a registered rider, identified by phone number.
type Client struct {
	PhoneNumber  string
	RegisteredAt time.Time
}
