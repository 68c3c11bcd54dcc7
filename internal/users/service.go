package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context) ([]User, error)
	GetUser(ctx context.Context, id int64) (*User, error)
	CreateUser(ctx context.Context, username, email, passwordHash string, roleIDs []int64) (*User, error)
	UpdateUser(ctx context.Context, id int64, username, email string, roleIDs []int64) (*User, error)
	ReplaceRoles(ctx context.Context, id int64, roleIDs []int64) (*User, error)
	DeleteUser(ctx context.Context, id int64) error
}

// Service handles user management business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListUsers returns all users.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.repo.ListUsers(ctx)
}

// GetUser fetches one user.
func (s *Service) GetUser(ctx context.Context, id int64) (*User, error) {
	return s.repo.GetUser(ctx, id)
}

// CreateUser creates an account with a hashed password and an optional
// initial role set.
func (s *Service) CreateUser(ctx context.Context, username, email, password string, roleIDs []int64) (*User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" || password == "" {
		return nil, errors.New("users: username, email and password required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("users: hash password: %w", err)
	}
	return s.repo.CreateUser(ctx, username, email, string(hash), roleIDs)
}

// UpdateUser updates identity fields and replaces the role set.
func (s *Service) UpdateUser(ctx context.Context, id int64, username, email string, roleIDs []int64) (*User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" {
		return nil, errors.New("users: username and email required")
	}
	return s.repo.UpdateUser(ctx, id, username, email, roleIDs)
}

// AssignRoles replaces the user's role set. Takes effect on the user's next
// request; there is no token invalidation on role change.
func (s *Service) AssignRoles(ctx context.Context, id int64, roleIDs []int64) (*User, error) {
	return s.repo.ReplaceRoles(ctx, id, roleIDs)
}

// DeleteUser removes an account. Outstanding tokens for it fail
// authentication from the next request on.
func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	return s.repo.DeleteUser(ctx, id)
}
