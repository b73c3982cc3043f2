package authkit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// memoryUserRepository backs the auth tests with the same uniqueness
// contract the database enforces.
type memoryUserRepository struct {
	mutex   sync.Mutex
	byEmail map[string]*User
	nextID  uint

	failCreates int
}

func newMemoryUserRepository() *memoryUserRepository {
	return &memoryUserRepository{byEmail: make(map[string]*User), nextID: 1}
}

func (repository *memoryUserRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	repository.mutex.Lock()
	defer repository.mutex.Unlock()
	user, ok := repository.byEmail[NormalizeEmail(email)]
	if !ok {
		return nil, nil
	}
	clone := *user
	return &clone, nil
}

func (repository *memoryUserRepository) FindByID(ctx context.Context, id uint) (*User, error) {
	repository.mutex.Lock()
	defer repository.mutex.Unlock()
	for _, user := range repository.byEmail {
		if user.ID == id {
			clone := *user
			return &clone, nil
		}
	}
	return nil, nil
}

func (repository *memoryUserRepository) Create(ctx context.Context, fields NewUserFields) (*User, error) {
	repository.mutex.Lock()
	defer repository.mutex.Unlock()
	if repository.failCreates > 0 {
		repository.failCreates--
		return nil, fmt.Errorf("memory_repo.create: %w", ErrRepositoryConflict)
	}
	email := NormalizeEmail(fields.Email)
	if _, exists := repository.byEmail[email]; exists {
		return nil, fmt.Errorf("memory_repo.create: %w", ErrRepositoryConflict)
	}
	user := &User{
		ID:           repository.nextID,
		FirstName:    fields.FirstName,
		LastName:     fields.LastName,
		Email:        email,
		PasswordHash: fields.PasswordHash,
		Role:         fields.Role,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	repository.nextID++
	repository.byEmail[email] = user
	clone := *user
	return &clone, nil
}

func (repository *memoryUserRepository) count() int {
	repository.mutex.Lock()
	defer repository.mutex.Unlock()
	return len(repository.byEmail)
}

func (repository *memoryUserRepository) insert(user *User) {
	repository.mutex.Lock()
	defer repository.mutex.Unlock()
	clone := *user
	repository.byEmail[NormalizeEmail(user.Email)] = &clone
	if user.ID >= repository.nextID {
		repository.nextID = user.ID + 1
	}
}

func (repository *memoryUserRepository) remove(email string) {
	repository.mutex.Lock()
	defer repository.mutex.Unlock()
	delete(repository.byEmail, NormalizeEmail(email))
}

type fixedClock struct {
	timestamp time.Time
}

func (clock fixedClock) Now() time.Time {
	return clock.timestamp
}

type movableClock struct {
	current time.Time
}

func (clock *movableClock) Now() time.Time {
	return clock.current
}

func (clock *movableClock) Advance(duration time.Duration) {
	clock.current = clock.current.Add(duration)
}
