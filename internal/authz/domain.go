package authz

// Permission is a declared (route, method, requiresAuth) policy entry. The
// permission table is a fail-closed allow-list: a route/method pair with no
// row is unreachable.
type Permission struct {
	ID           int64
	Name         string
	Route        string
	Method       string
	RequiresAuth bool
}

// Role is a named bundle of permissions assignable to principals.
type Role struct {
	ID            int64
	Name          string
	PermissionIDs []int64
}

// Principal is the authenticated account a decision was made for. Granted is
// populated by the engine on an allowed decision with the deduplicated
// expansion of the principal's roles.
type Principal struct {
	ID       int64
	Username string
	Email    string
	RoleIDs  []int64
	Granted  []Permission
}

// Outcome enumerates the terminal states of an authorization decision.
type Outcome int

const (
	// OutcomeAllowed lets the request proceed.
	OutcomeAllowed Outcome = iota
	// OutcomeRouteNotRegistered means no permission row exists for the
	// route/method pair. Surfaced as 404 so protected-but-absent routes are
	// indistinguishable from missing ones.
	OutcomeRouteNotRegistered
	// OutcomeUnauthenticated covers missing, malformed, invalid, expired and
	// revoked tokens, and tokens whose subject no longer exists.
	OutcomeUnauthenticated
	// OutcomeForbidden means the principal authenticated but its expanded
	// role set does not include the permission.
	OutcomeForbidden
)

// String returns a stable label used in logs and metrics.
func (o Outcome) String() string {
	switch o {
	case OutcomeAllowed:
		return "allowed"
	case OutcomeRouteNotRegistered:
		return "route_not_registered"
	case OutcomeUnauthenticated:
		return "unauthenticated"
	case OutcomeForbidden:
		return "forbidden"
	default:
		return "unknown"
	}
}

// Input is the fixed request shape the engine decides on, constructed by the
// HTTP adapter so the engine stays independent of the web framework.
type Input struct {
	RoutePattern        string
	Method              string
	AuthorizationHeader string
}

// Decision is the transient result of authorizing one request. Principal is
// set only when the outcome is OutcomeAllowed and authentication was
// required.
type Decision struct {
	Outcome   Outcome
	Principal *Principal
}
