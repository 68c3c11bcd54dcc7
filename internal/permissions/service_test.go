package permissions

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatewarden/gatewarden/internal/shared"
)

type memoryRepo struct {
	perms  map[int64]Permission
	nextID int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{perms: make(map[int64]Permission), nextID: 1}
}

func (r *memoryRepo) ListPermissions(_ context.Context) ([]Permission, error) {
	out := make([]Permission, 0, len(r.perms))
	for _, p := range r.perms {
		out = append(out, p)
	}
	return out, nil
}

func (r *memoryRepo) GetPermission(_ context.Context, id int64) (*Permission, error) {
	p, ok := r.perms[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &p, nil
}

func (r *memoryRepo) CreatePermission(_ context.Context, name, route, method string, requiresAuth bool) (*Permission, error) {
	for _, p := range r.perms {
		if p.Route == route && p.Method == method {
			return nil, shared.ErrDuplicate
		}
	}
	p := Permission{ID: r.nextID, Name: name, Route: route, Method: method, RequiresAuth: requiresAuth}
	r.perms[p.ID] = p
	r.nextID++
	return &p, nil
}

func (r *memoryRepo) UpdatePermission(_ context.Context, id int64, name, route, method string, requiresAuth bool) (*Permission, error) {
	if _, ok := r.perms[id]; !ok {
		return nil, shared.ErrNotFound
	}
	for _, p := range r.perms {
		if p.ID != id && p.Route == route && p.Method == method {
			return nil, shared.ErrDuplicate
		}
	}
	p := Permission{ID: id, Name: name, Route: route, Method: method, RequiresAuth: requiresAuth}
	r.perms[id] = p
	return &p, nil
}

func (r *memoryRepo) DeletePermission(_ context.Context, id int64) error {
	if _, ok := r.perms[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.perms, id)
	return nil
}

func TestCreatePermission(t *testing.T) {
	service := NewService(newMemoryRepo())

	p, err := service.CreatePermission(context.Background(), " users.list ", " /api/admin/users ", " GET ", true)
	require.NoError(t, err)
	assert.Equal(t, "users.list", p.Name)
	assert.Equal(t, "/api/admin/users", p.Route)
	assert.Equal(t, "GET", p.Method)
	assert.True(t, p.RequiresAuth)
}

func TestCreatePermissionRejectsBadMethod(t *testing.T) {
	service := NewService(newMemoryRepo())

	for _, method := range []string{"", "get", "FETCH", "OPTIONS"} {
		_, err := service.CreatePermission(context.Background(), "x", "/api/x", method, true)
		assert.Error(t, err, "method %q", method)
	}
}

func TestCreatePermissionRequiresNameAndRoute(t *testing.T) {
	service := NewService(newMemoryRepo())

	_, err := service.CreatePermission(context.Background(), "", "/api/x", "GET", true)
	assert.Error(t, err)
	_, err = service.CreatePermission(context.Background(), "x", "", "GET", true)
	assert.Error(t, err)
}

func TestCreatePermissionDuplicateRouteMethod(t *testing.T) {
	service := NewService(newMemoryRepo())

	_, err := service.CreatePermission(context.Background(), "first", "/api/x", "GET", true)
	require.NoError(t, err)

	// Same route, different method is fine.
	_, err = service.CreatePermission(context.Background(), "second", "/api/x", "POST", true)
	require.NoError(t, err)

	_, err = service.CreatePermission(context.Background(), "third", "/api/x", "GET", false)
	assert.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestUpdatePermission(t *testing.T) {
	repo := newMemoryRepo()
	service := NewService(repo)

	created, err := service.CreatePermission(context.Background(), "x", "/api/x", "GET", true)
	require.NoError(t, err)

	updated, err := service.UpdatePermission(context.Background(), created.ID, "x", "/api/x", "GET", false)
	require.NoError(t, err)
	assert.False(t, updated.RequiresAuth)

	_, err = service.UpdatePermission(context.Background(), 999, "x", "/api/y", "GET", true)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestDeletePermission(t *testing.T) {
	repo := newMemoryRepo()
	service := NewService(repo)

	created, err := service.CreatePermission(context.Background(), "x", "/api/x", "GET", true)
	require.NoError(t, err)

	require.NoError(t, service.DeletePermission(context.Background(), created.ID))
	_, err = service.GetPermission(context.Background(), created.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	assert.ErrorIs(t, service.DeletePermission(context.Background(), created.ID), shared.ErrNotFound)
}

func TestValidMethodIsCaseSensitive(t *testing.T) {
	assert.True(t, ValidMethod("GET"))
	assert.True(t, ValidMethod("DELETE"))
	assert.False(t, ValidMethod("get"))
	assert.False(t, ValidMethod("Get"))
	assert.False(t, ValidMethod("HEAD"))
}
