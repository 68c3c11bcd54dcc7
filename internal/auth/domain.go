package auth

import "time"

// User represents a user account with credentials. PasswordHash never leaves
// this package in an outward-facing representation.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
