package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/usersvc/usersvc/internal/model"
	"github.com/usersvc/usersvc/internal/repository"
)

// MemStore is an in-memory user store for handler and middleware tests.
// It mirrors the repository contract, including its sentinel errors and
// atomic uniqueness semantics.
type MemStore struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*model.User
}

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		nextID: 1,
		users:  make(map[int64]*model.User),
	}
}

// CreateUser assigns an id and stores the user.
// Either a username or an email collision fails the whole operation.
func (s *MemStore) CreateUser(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Username == user.Username {
			return repository.ErrUsernameExists
		}
		if existing.Email == user.Email {
			return repository.ErrEmailExists
		}
	}

	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	user.ID = s.nextID
	s.nextID++

	stored := *user
	s.users[user.ID] = &stored
	return nil
}

// GetUserByID retrieves a user by id.
func (s *MemStore) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

// GetUserByEmail retrieves a user by email.
func (s *MemStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

// ListUsers returns all users ordered by creation time, newest first.
func (s *MemStore) ListUsers(ctx context.Context) ([]*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users := make([]*model.User, 0, len(s.users))
	for _, user := range s.users {
		copied := *user
		users = append(users, &copied)
	}

	sort.Slice(users, func(i, j int) bool {
		return users[i].CreatedAt.After(users[j].CreatedAt)
	})

	return users, nil
}

// UpdateUserFlags persists the active and admin flags.
func (s *MemStore) UpdateUserFlags(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.users[user.ID]
	if !ok {
		return repository.ErrUserNotFound
	}

	stored.Active = user.Active
	stored.Admin = user.Admin
	return nil
}
