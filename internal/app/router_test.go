package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatewarden/gatewarden/internal/auth"
	"github.com/gatewarden/gatewarden/internal/authz"
	"github.com/gatewarden/gatewarden/internal/permissions"
	"github.com/gatewarden/gatewarden/internal/roles"
	"github.com/gatewarden/gatewarden/internal/shared"
	"github.com/gatewarden/gatewarden/internal/users"
	_ "github.com/gatewarden/gatewarden/testing"
)

type routerStore struct {
	perms      []authz.Permission
	roles      map[int64]authz.Role
	principals map[int64]*authz.Principal
}

func (s *routerStore) FindPermission(_ context.Context, route, method string) (*authz.Permission, error) {
	for _, p := range s.perms {
		if p.Route == route && p.Method == method {
			perm := p
			return &perm, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (s *routerStore) PermissionsByIDs(_ context.Context, ids []int64) ([]authz.Permission, error) {
	var out []authz.Permission
	for _, id := range ids {
		for _, p := range s.perms {
			if p.ID == id {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func (s *routerStore) RolesByIDs(_ context.Context, ids []int64) ([]authz.Role, error) {
	var out []authz.Role
	for _, id := range ids {
		if role, ok := s.roles[id]; ok {
			out = append(out, role)
		}
	}
	return out, nil
}

func (s *routerStore) PrincipalByID(_ context.Context, id int64) (*authz.Principal, error) {
	p, ok := s.principals[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	clone := *p
	return &clone, nil
}

type emptyAuthRepo struct{}

func (emptyAuthRepo) FindByEmail(context.Context, string) (*auth.User, error) {
	return nil, shared.ErrNotFound
}

func (emptyAuthRepo) CreateUser(_ context.Context, username, email, hash string) (*auth.User, error) {
	return &auth.User{ID: 1, Username: username, Email: email, PasswordHash: hash}, nil
}

type emptyPermsRepo struct{}

func (emptyPermsRepo) ListPermissions(context.Context) ([]permissions.Permission, error) {
	return nil, nil
}
func (emptyPermsRepo) GetPermission(context.Context, int64) (*permissions.Permission, error) {
	return nil, shared.ErrNotFound
}
func (emptyPermsRepo) CreatePermission(context.Context, string, string, string, bool) (*permissions.Permission, error) {
	return nil, shared.ErrNotFound
}
func (emptyPermsRepo) UpdatePermission(context.Context, int64, string, string, string, bool) (*permissions.Permission, error) {
	return nil, shared.ErrNotFound
}
func (emptyPermsRepo) DeletePermission(context.Context, int64) error { return shared.ErrNotFound }

type emptyRolesRepo struct{}

func (emptyRolesRepo) ListRoles(context.Context) ([]roles.Role, error) { return nil, nil }
func (emptyRolesRepo) GetRole(context.Context, int64) (*roles.Role, error) {
	return nil, shared.ErrNotFound
}
func (emptyRolesRepo) CreateRole(context.Context, string, []int64) (*roles.Role, error) {
	return nil, shared.ErrNotFound
}
func (emptyRolesRepo) UpdateRole(context.Context, int64, string, []int64) (*roles.Role, error) {
	return nil, shared.ErrNotFound
}
func (emptyRolesRepo) DeleteRole(context.Context, int64) error { return shared.ErrNotFound }

type emptyUsersRepo struct{}

func (emptyUsersRepo) ListUsers(context.Context) ([]users.User, error) { return nil, nil }
func (emptyUsersRepo) GetUser(context.Context, int64) (*users.User, error) {
	return nil, shared.ErrNotFound
}
func (emptyUsersRepo) CreateUser(context.Context, string, string, string, []int64) (*users.User, error) {
	return nil, shared.ErrNotFound
}
func (emptyUsersRepo) UpdateUser(context.Context, int64, string, string, []int64) (*users.User, error) {
	return nil, shared.ErrNotFound
}
func (emptyUsersRepo) ReplaceRoles(context.Context, int64, []int64) (*users.User, error) {
	return nil, shared.ErrNotFound
}
func (emptyUsersRepo) DeleteUser(context.Context, int64) error { return shared.ErrNotFound }

func newTestRouter(t *testing.T) (http.Handler, string) {
	t.Helper()

	store := &routerStore{
		perms: []authz.Permission{
			{ID: 1, Name: "auth.login", Route: "/api/auth/login", Method: "POST", RequiresAuth: false},
			{ID: 2, Name: "users.list", Route: "/api/admin/users", Method: "GET", RequiresAuth: true},
			{ID: 3, Name: "users.view", Route: "/api/admin/users/{id}", Method: "GET", RequiresAuth: true},
			{ID: 4, Name: "roles.list", Route: "/api/admin/roles", Method: "GET", RequiresAuth: true},
		},
		roles: map[int64]authz.Role{
			20: {ID: 20, Name: "admin", PermissionIDs: []int64{2, 3}},
		},
		principals: map[int64]*authz.Principal{
			7: {ID: 7, Username: "root", Email: "root@example.com", RoleIDs: []int64{20}},
		},
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	issuer := auth.NewTokenIssuer("router-secret", time.Hour)
	verifier := auth.NewTokenVerifier("router-secret", nil)
	engine := authz.NewEngine(store, verifier)

	authHandler := auth.NewHandler(logger, auth.NewService(emptyAuthRepo{}), issuer, verifier, nil, nil)
	permsHandler := permissions.NewHandler(logger, permissions.NewService(emptyPermsRepo{}), nil)
	rolesHandler := roles.NewHandler(logger, roles.NewService(emptyRolesRepo{}), nil)
	usersHandler := users.NewHandler(logger, users.NewService(emptyUsersRepo{}), nil)

	router := NewRouter(RouterParams{
		Logger:             logger,
		Config:             &Config{AppEnv: "test", AppRequestTimeout: 5 * time.Second},
		Engine:             engine,
		AuthHandler:        authHandler,
		PermissionsHandler: permsHandler,
		RolesHandler:       rolesHandler,
		UsersHandler:       usersHandler,
	})

	token, err := issuer.Issue(7)
	require.NoError(t, err)
	return router, token
}

func get(router http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = "10.0.0.1:1234"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRouterHealthzIsOpen(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := get(router, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestRouterPublicRouteSkipsAuth(t *testing.T) {
	router, _ := newTestRouter(t)

	// Invalid credentials still reach the login handler; the gate lets the
	// request through because the permission row is public.
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":"a@b.c","password":"nope"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouterProtectedRouteRequiresToken(t *testing.T) {
	router, token := newTestRouter(t)

	rec := get(router, "/api/admin/users", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = get(router, "/api/admin/users", token)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouterResolvesParameterizedPattern(t *testing.T) {
	router, token := newTestRouter(t)

	// users.view is granted against the /api/admin/users/{id} pattern, not
	// the literal path.
	rec := get(router, "/api/admin/users/123", token)
	assert.Equal(t, http.StatusNotFound, rec.Code) // empty repo, but past the gate
	assert.Contains(t, rec.Body.String(), "Not Found")
}

func TestRouterForbiddenWithoutGrant(t *testing.T) {
	router, token := newTestRouter(t)

	// roles.list is registered but not granted to the test principal.
	rec := get(router, "/api/admin/roles", token)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRouterUnregisteredRouteIs404(t *testing.T) {
	router, token := newTestRouter(t)

	rec := get(router, "/api/admin/unknown", token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
