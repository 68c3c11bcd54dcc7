package permissions

import (
	"context"
	"errors"
	"strings"
)

// RepositoryPort defines data access methods for permissions.
type RepositoryPort interface {
	ListPermissions(ctx context.Context) ([]Permission, error)
	GetPermission(ctx context.Context, id int64) (*Permission, error)
	CreatePermission(ctx context.Context, name, route, method string, requiresAuth bool) (*Permission, error)
	UpdatePermission(ctx context.Context, id int64, name, route, method string, requiresAuth bool) (*Permission, error)
	DeletePermission(ctx context.Context, id int64) error
}

// Service handles permission registry business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListPermissions returns all permissions.
func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	return s.repo.ListPermissions(ctx)
}

// GetPermission fetches one permission.
func (s *Service) GetPermission(ctx context.Context, id int64) (*Permission, error) {
	return s.repo.GetPermission(ctx, id)
}

// CreatePermission registers a new allow-list entry.
func (s *Service) CreatePermission(ctx context.Context, name, route, method string, requiresAuth bool) (*Permission, error) {
	name, route, method, err := normalize(name, route, method)
	if err != nil {
		return nil, err
	}
	return s.repo.CreatePermission(ctx, name, route, method, requiresAuth)
}

// UpdatePermission replaces an existing entry's fields.
func (s *Service) UpdatePermission(ctx context.Context, id int64, name, route, method string, requiresAuth bool) (*Permission, error) {
	name, route, method, err := normalize(name, route, method)
	if err != nil {
		return nil, err
	}
	return s.repo.UpdatePermission(ctx, id, name, route, method, requiresAuth)
}

// DeletePermission removes an entry. The guarded route becomes unreachable
// on the next request.
func (s *Service) DeletePermission(ctx context.Context, id int64) error {
	return s.repo.DeletePermission(ctx, id)
}

func normalize(name, route, method string) (string, string, string, error) {
	name = strings.TrimSpace(name)
	route = strings.TrimSpace(route)
	method = strings.TrimSpace(method)
	if name == "" || route == "" {
		return "", "", "", errors.New("permissions: name and route required")
	}
	if !ValidMethod(method) {
		return "", "", "", errors.New("permissions: method must be one of GET, POST, PUT, PATCH, DELETE")
	}
	return name, route, method, nil
}
