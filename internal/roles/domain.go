package roles

import "time"

// Role is a named bundle of permission references. The set may be empty (a
// role that grants nothing) and may contain ids of permissions that have
// since been deleted; the authorization engine skips those.
type Role struct {
	ID            int64
	Name          string
	PermissionIDs []int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
