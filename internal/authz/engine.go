// Package authz implements the request authorization engine. Every inbound
// API request is resolved against a persisted permission table and, when the
// matched permission requires authentication, against the caller's expanded
// role set. Reads go straight to the store on every request so permission
// edits take effect immediately.
package authz

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gatewarden/gatewarden/internal/shared"
)

// PermissionStore resolves permission rows.
type PermissionStore interface {
	// FindPermission returns the single permission matching route and method
	// exactly, or shared.ErrNotFound.
	FindPermission(ctx context.Context, route, method string) (*Permission, error)
	// PermissionsByIDs returns the permissions that still exist among ids.
	// Missing ids are skipped, not reported.
	PermissionsByIDs(ctx context.Context, ids []int64) ([]Permission, error)
}

// RoleStore resolves roles with their permission id sets.
type RoleStore interface {
	// RolesByIDs returns the roles that still exist among ids. Dangling role
	// references contribute nothing.
	RolesByIDs(ctx context.Context, ids []int64) ([]Role, error)
}

// PrincipalStore resolves principals with their role references.
type PrincipalStore interface {
	// PrincipalByID returns the principal or shared.ErrNotFound.
	PrincipalByID(ctx context.Context, id int64) (*Principal, error)
}

// Store aggregates the read contracts the engine depends on.
type Store interface {
	PermissionStore
	RoleStore
	PrincipalStore
}

// CredentialVerifier validates a bearer token and yields the subject's id.
type CredentialVerifier interface {
	Verify(ctx context.Context, token string) (int64, error)
}

// Engine makes allow/deny decisions for inbound requests.
type Engine struct {
	store    Store
	verifier CredentialVerifier
}

// NewEngine constructs an Engine.
func NewEngine(store Store, verifier CredentialVerifier) *Engine {
	return &Engine{store: store, verifier: verifier}
}

// Authorize decides whether the request described by in may proceed. A
// non-nil error means a store read failed; the decision is then unusable and
// the caller must fail the request, never fall through to an allow.
func (e *Engine) Authorize(ctx context.Context, in Input) (Decision, error) {
	perm, err := e.store.FindPermission(ctx, in.RoutePattern, in.Method)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Decision{Outcome: OutcomeRouteNotRegistered}, nil
		}
		return Decision{}, fmt.Errorf("authz: find permission: %w", err)
	}

	if !perm.RequiresAuth {
		return Decision{Outcome: OutcomeAllowed}, nil
	}

	token, ok := BearerToken(in.AuthorizationHeader)
	if !ok {
		return Decision{Outcome: OutcomeUnauthenticated}, nil
	}

	subject, err := e.verifier.Verify(ctx, token)
	if err != nil {
		// Expired, malformed and revoked tokens all map to the same outcome.
		return Decision{Outcome: OutcomeUnauthenticated}, nil
	}

	principal, err := e.store.PrincipalByID(ctx, subject)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			// Valid token for an account that no longer exists.
			return Decision{Outcome: OutcomeUnauthenticated}, nil
		}
		return Decision{}, fmt.Errorf("authz: load principal: %w", err)
	}

	granted, err := e.Expand(ctx, principal.RoleIDs)
	if err != nil {
		return Decision{}, fmt.Errorf("authz: expand roles: %w", err)
	}

	if !contains(granted, in.RoutePattern, in.Method) {
		return Decision{Outcome: OutcomeForbidden}, nil
	}

	principal.Granted = granted
	return Decision{Outcome: OutcomeAllowed, Principal: principal}, nil
}

// Expand returns the deduplicated union of permissions reachable through the
// given roles. Dangling role and permission references are skipped; an empty
// role set expands to nothing, so the subsequent membership check fails
// closed.
func (e *Engine) Expand(ctx context.Context, roleIDs []int64) ([]Permission, error) {
	if len(roleIDs) == 0 {
		return nil, nil
	}

	roles, err := e.store.RolesByIDs(ctx, roleIDs)
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]struct{})
	ids := make([]int64, 0)
	for _, role := range roles {
		for _, id := range role.PermissionIDs {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	return e.store.PermissionsByIDs(ctx, ids)
}

type routeMethod struct {
	route  string
	method string
}

func contains(perms []Permission, route, method string) bool {
	set := make(map[routeMethod]struct{}, len(perms))
	for _, p := range perms {
		set[routeMethod{route: p.Route, method: p.Method}] = struct{}{}
	}
	_, ok := set[routeMethod{route: route, method: method}]
	return ok
}

// BearerToken extracts the token from an Authorization header using the
// Bearer scheme. The scheme name is matched case-insensitively per RFC 7235.
func BearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}
