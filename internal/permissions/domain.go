package permissions

import "time"

// Permission is one row of the route allow-list: an exact (route, method)
// pair, a display name and whether callers must authenticate.
type Permission struct {
	ID           int64
	Name         string
	Route        string
	Method       string
	RequiresAuth bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Methods is the fixed set of HTTP methods a permission may declare.
var Methods = []string{"GET", "POST", "PUT", "PATCH", "DELETE"}

// ValidMethod reports whether method is in the fixed enumeration. Comparison
// is case-sensitive; lowercase methods can never match a request.
func ValidMethod(method string) bool {
	for _, m := range Methods {
		if m == method {
			return true
		}
	}
	return false
}
