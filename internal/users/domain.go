package users

import "time"

// User represents a user account for management. The password hash never
// leaves the store through this package.
type User struct {
	ID        int64
	Username  string
	Email     string
	RoleIDs   []int64
	RoleNames []string
	CreatedAt time.Time
	UpdatedAt time.Time
}
