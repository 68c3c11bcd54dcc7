package roles

import (
	"context"
	"errors"
	"strings"
)

// RepositoryPort defines data access methods for roles.
type RepositoryPort interface {
	ListRoles(ctx context.Context) ([]Role, error)
	GetRole(ctx context.Context, id int64) (*Role, error)
	CreateRole(ctx context.Context, name string, permissionIDs []int64) (*Role, error)
	UpdateRole(ctx context.Context, id int64, name string, permissionIDs []int64) (*Role, error)
	DeleteRole(ctx context.Context, id int64) error
}

// Service handles role business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListRoles returns all roles.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListRoles(ctx)
}

// GetRole fetches one role.
func (s *Service) GetRole(ctx context.Context, id int64) (*Role, error) {
	return s.repo.GetRole(ctx, id)
}

// CreateRole creates a role with an optional permission set.
func (s *Service) CreateRole(ctx context.Context, name string, permissionIDs []int64) (*Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("roles: role name required")
	}
	return s.repo.CreateRole(ctx, name, permissionIDs)
}

// UpdateRole renames a role and replaces its permission set.
func (s *Service) UpdateRole(ctx context.Context, id int64, name string, permissionIDs []int64) (*Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("roles: role name required")
	}
	return s.repo.UpdateRole(ctx, id, name, permissionIDs)
}

// DeleteRole removes a role. User references to it go stale and grant
// nothing from the next request on.
func (s *Service) DeleteRole(ctx context.Context, id int64) error {
	return s.repo.DeleteRole(ctx, id)
}
