package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/holocron-api/holocron/internal/authkit"
)

type userTypeRecord struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"uniqueIndex;size:50;not null"`
}

func (userTypeRecord) TableName() string {
	return "user_types"
}

type userRecord struct {
	ID           uint   `gorm:"primaryKey"`
	FirstName    string `gorm:"size:100;not null"`
	LastName     string `gorm:"size:100;not null"`
	Email        string `gorm:"uniqueIndex;size:120;not null"`
	PasswordHash string `gorm:"column:password;size:255;not null"`
	UserTypeID   uint   `gorm:"not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (userRecord) TableName() string {
	return "users"
}

// UserRepository is the GORM-backed implementation of
// authkit.UserRepository. Email uniqueness is enforced by the unique index;
// a duplicate-key insert surfaces as authkit.ErrRepositoryConflict so the
// reconciler can fall back to a lookup.
type UserRepository struct {
	database     *gorm.DB
	roleIDByName map[string]uint
	roleNameByID map[uint]string
}

// NewUserRepository migrates the user tables, seeds the ADMIN and USER
// types, and returns a ready repository.
func NewUserRepository(database *gorm.DB) (*UserRepository, error) {
	if migrateErr := database.AutoMigrate(&userTypeRecord{}, &userRecord{}); migrateErr != nil {
		return nil, fmt.Errorf("users.migrate: %w", migrateErr)
	}
	repository := &UserRepository{
		database:     database,
		roleIDByName: make(map[string]uint),
		roleNameByID: make(map[uint]string),
	}
	for _, roleName := range []string{authkit.RoleAdmin, authkit.RoleUser} {
		record := userTypeRecord{Name: roleName}
		if seedErr := database.Where(userTypeRecord{Name: roleName}).FirstOrCreate(&record).Error; seedErr != nil {
			return nil, fmt.Errorf("users.seed_roles: %w", seedErr)
		}
		repository.roleIDByName[roleName] = record.ID
		repository.roleNameByID[record.ID] = roleName
	}
	return repository, nil
}

// FindByEmail returns the user for the case-normalized email, or (nil, nil)
// when no record matches.
func (repository *UserRepository) FindByEmail(ctx context.Context, email string) (*authkit.User, error) {
	var record userRecord
	lookupErr := repository.database.WithContext(ctx).
		Where("email = ?", authkit.NormalizeEmail(email)).
		Take(&record).Error
	if lookupErr != nil {
		if errors.Is(lookupErr, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("users.find_by_email: %w", lookupErr)
	}
	return repository.toUser(&record), nil
}

// FindByID returns the user for the id, or (nil, nil) when no record
// matches.
func (repository *UserRepository) FindByID(ctx context.Context, id uint) (*authkit.User, error) {
	var record userRecord
	lookupErr := repository.database.WithContext(ctx).Take(&record, id).Error
	if lookupErr != nil {
		if errors.Is(lookupErr, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("users.find_by_id: %w", lookupErr)
	}
	return repository.toUser(&record), nil
}

// Create inserts a user in one atomic call. A duplicate email maps to
// authkit.ErrRepositoryConflict.
func (repository *UserRepository) Create(ctx context.Context, fields authkit.NewUserFields) (*authkit.User, error) {
	roleID, roleKnown := repository.roleIDByName[fields.Role]
	if !roleKnown {
		return nil, fmt.Errorf("users.create: unknown role %q", fields.Role)
	}
	record := userRecord{
		FirstName:    fields.FirstName,
		LastName:     fields.LastName,
		Email:        authkit.NormalizeEmail(fields.Email),
		PasswordHash: fields.PasswordHash,
		UserTypeID:   roleID,
	}
	createErr := repository.database.WithContext(ctx).Create(&record).Error
	if createErr != nil {
		if errors.Is(createErr, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("users.create: %w", authkit.ErrRepositoryConflict)
		}
		return nil, fmt.Errorf("users.create: %w", createErr)
	}
	return repository.toUser(&record), nil
}

func (repository *UserRepository) toUser(record *userRecord) *authkit.User {
	return &authkit.User{
		ID:           record.ID,
		FirstName:    record.FirstName,
		LastName:     record.LastName,
		Email:        record.Email,
		PasswordHash: record.PasswordHash,
		Role:         repository.roleNameByID[record.UserTypeID],
		CreatedAt:    record.CreatedAt,
		UpdatedAt:    record.UpdatedAt,
	}
}
