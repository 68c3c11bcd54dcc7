package auth

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/gatewarden/gatewarden/internal/shared"
)

type memoryRepo struct {
	byEmail map[string]*User
	nextID  int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{byEmail: make(map[string]*User), nextID: 1}
}

func (r *memoryRepo) FindByEmail(_ context.Context, email string) (*User, error) {
	user, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, shared.ErrNotFound
	}
	clone := *user
	return &clone, nil
}

func (r *memoryRepo) CreateUser(_ context.Context, username, email, passwordHash string) (*User, error) {
	key := strings.ToLower(email)
	if _, exists := r.byEmail[key]; exists {
		return nil, shared.ErrDuplicate
	}
	user := &User{ID: r.nextID, Username: username, Email: email, PasswordHash: passwordHash}
	r.byEmail[key] = user
	r.nextID++
	clone := *user
	return &clone, nil
}

func seedUser(t *testing.T, repo *memoryRepo, email, password string) *User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	user, err := repo.CreateUser(context.Background(), "tester", email, string(hash))
	require.NoError(t, err)
	return user
}

func TestAuthenticateSuccess(t *testing.T) {
	repo := newMemoryRepo()
	seeded := seedUser(t, repo, "user@example.com", "correct-horse")
	service := NewService(repo)

	user, err := service.Authenticate(context.Background(), "user@example.com", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, user.ID)
}

func TestAuthenticateFailuresAreUniform(t *testing.T) {
	repo := newMemoryRepo()
	seedUser(t, repo, "user@example.com", "correct-horse")
	service := NewService(repo)

	_, wrongPassword := service.Authenticate(context.Background(), "user@example.com", "wrong")
	_, unknownEmail := service.Authenticate(context.Background(), "nobody@example.com", "correct-horse")

	assert.ErrorIs(t, wrongPassword, shared.ErrInvalidCredentials)
	assert.ErrorIs(t, unknownEmail, shared.ErrInvalidCredentials)
	assert.Equal(t, wrongPassword, unknownEmail)
}

func TestRegisterHashesPassword(t *testing.T) {
	repo := newMemoryRepo()
	service := NewService(repo)

	user, err := service.Register(context.Background(), "tester", "user@example.com", "hunter2hunter2")
	require.NoError(t, err)
	require.NotEmpty(t, user.PasswordHash)
	assert.NotEqual(t, "hunter2hunter2", user.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("hunter2hunter2")))
}

func TestRegisterTrimsWhitespace(t *testing.T) {
	repo := newMemoryRepo()
	service := NewService(repo)

	user, err := service.Register(context.Background(), "  tester  ", " user@example.com ", "hunter2hunter2")
	require.NoError(t, err)
	assert.Equal(t, "tester", user.Username)
	assert.Equal(t, "user@example.com", user.Email)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	repo := newMemoryRepo()
	service := NewService(repo)

	_, err := service.Register(context.Background(), "tester", "user@example.com", "hunter2hunter2")
	require.NoError(t, err)

	_, err = service.Register(context.Background(), "other", "user@example.com", "hunter2hunter2")
	assert.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestRegisterRequiresFields(t *testing.T) {
	service := NewService(newMemoryRepo())

	_, err := service.Register(context.Background(), "", "user@example.com", "hunter2hunter2")
	assert.Error(t, err)
	_, err = service.Register(context.Background(), "tester", "", "hunter2hunter2")
	assert.Error(t, err)
	_, err = service.Register(context.Background(), "tester", "user@example.com", "")
	assert.Error(t, err)
}
