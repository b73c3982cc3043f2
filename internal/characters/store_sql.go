package characters

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"
)

type eyeColorRecord struct {
	ID    uint   `gorm:"primaryKey"`
	Color string `gorm:"uniqueIndex;size:50;not null"`
}

func (eyeColorRecord) TableName() string {
	return "eye_colors"
}

type characterRecord struct {
	ID         uint   `gorm:"primaryKey"`
	Name       string `gorm:"index;size:100;not null"`
	Height     int
	Mass       int
	HairColor  string `gorm:"size:50"`
	SkinColor  string `gorm:"size:50"`
	EyeColorID uint   `gorm:"not null"`
	EyeColor   eyeColorRecord
}

func (characterRecord) TableName() string {
	return "characters"
}

// SQLStore is the relational Store and EyeColorStore backend.
type SQLStore struct {
	database *gorm.DB
}

// NewSQLStore migrates the character tables and returns the store.
func NewSQLStore(database *gorm.DB) (*SQLStore, error) {
	if migrateErr := database.AutoMigrate(&eyeColorRecord{}, &characterRecord{}); migrateErr != nil {
		return nil, fmt.Errorf("characters.sql.migrate: %w", migrateErr)
	}
	return &SQLStore{database: database}, nil
}

// FindAll returns every character with its eye color resolved.
func (store *SQLStore) FindAll(ctx context.Context) ([]Character, error) {
	var records []characterRecord
	if listErr := store.database.WithContext(ctx).Preload("EyeColor").Find(&records).Error; listErr != nil {
		return nil, fmt.Errorf("characters.sql.find_all: %w", listErr)
	}
	return toCharacters(records), nil
}

// FindByName returns every character matching the exact name.
func (store *SQLStore) FindByName(ctx context.Context, name string) ([]Character, error) {
	var records []characterRecord
	if listErr := store.database.WithContext(ctx).Preload("EyeColor").Where("name = ?", name).Find(&records).Error; listErr != nil {
		return nil, fmt.Errorf("characters.sql.find_by_name: %w", listErr)
	}
	return toCharacters(records), nil
}

// Create inserts a character after validating the referenced eye color.
func (store *SQLStore) Create(ctx context.Context, character Character) (Character, error) {
	colorRecord, colorErr := store.eyeColorByName(ctx, character.EyeColor)
	if colorErr != nil {
		return Character{}, colorErr
	}
	record := characterRecord{
		Name:       character.Name,
		Height:     character.Height,
		Mass:       character.Mass,
		HairColor:  character.HairColor,
		SkinColor:  character.SkinColor,
		EyeColorID: colorRecord.ID,
	}
	if createErr := store.database.WithContext(ctx).Create(&record).Error; createErr != nil {
		return Character{}, fmt.Errorf("characters.sql.create: %w", createErr)
	}
	record.EyeColor = *colorRecord
	return toCharacter(record), nil
}

// Update rewrites an existing character's fields.
func (store *SQLStore) Update(ctx context.Context, id string, character Character) (Character, error) {
	rowID, idErr := parseRowID(id)
	if idErr != nil {
		return Character{}, idErr
	}
	var record characterRecord
	if lookupErr := store.database.WithContext(ctx).Take(&record, rowID).Error; lookupErr != nil {
		if errors.Is(lookupErr, gorm.ErrRecordNotFound) {
			return Character{}, fmt.Errorf("characters.sql.update: %w", ErrCharacterNotFound)
		}
		return Character{}, fmt.Errorf("characters.sql.update: %w", lookupErr)
	}
	colorRecord, colorErr := store.eyeColorByName(ctx, character.EyeColor)
	if colorErr != nil {
		return Character{}, colorErr
	}
	record.Name = character.Name
	record.Height = character.Height
	record.Mass = character.Mass
	record.HairColor = character.HairColor
	record.SkinColor = character.SkinColor
	record.EyeColorID = colorRecord.ID
	if saveErr := store.database.WithContext(ctx).Save(&record).Error; saveErr != nil {
		return Character{}, fmt.Errorf("characters.sql.update: %w", saveErr)
	}
	record.EyeColor = *colorRecord
	return toCharacter(record), nil
}

// Delete removes a character by id.
func (store *SQLStore) Delete(ctx context.Context, id string) error {
	rowID, idErr := parseRowID(id)
	if idErr != nil {
		return idErr
	}
	result := store.database.WithContext(ctx).Delete(&characterRecord{}, rowID)
	if result.Error != nil {
		return fmt.Errorf("characters.sql.delete: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("characters.sql.delete: %w", ErrCharacterNotFound)
	}
	return nil
}

// ListEyeColors returns the eye-color catalog.
func (store *SQLStore) ListEyeColors(ctx context.Context) ([]EyeColor, error) {
	var records []eyeColorRecord
	if listErr := store.database.WithContext(ctx).Order("id").Find(&records).Error; listErr != nil {
		return nil, fmt.Errorf("characters.sql.list_eye_colors: %w", listErr)
	}
	colors := make([]EyeColor, 0, len(records))
	for _, record := range records {
		colors = append(colors, EyeColor{ID: record.ID, Color: record.Color})
	}
	return colors, nil
}

// CreateEyeColor adds a catalog entry.
func (store *SQLStore) CreateEyeColor(ctx context.Context, color string) (EyeColor, error) {
	record := eyeColorRecord{Color: normalizeColor(color)}
	if createErr := store.database.WithContext(ctx).Create(&record).Error; createErr != nil {
		if errors.Is(createErr, gorm.ErrDuplicatedKey) {
			return EyeColor{}, fmt.Errorf("characters.sql.create_eye_color: %w", ErrEyeColorExists)
		}
		return EyeColor{}, fmt.Errorf("characters.sql.create_eye_color: %w", createErr)
	}
	return EyeColor{ID: record.ID, Color: record.Color}, nil
}

// ValidEyeColor reports whether the catalog contains the color.
func (store *SQLStore) ValidEyeColor(ctx context.Context, color string) (bool, error) {
	_, colorErr := store.eyeColorByName(ctx, color)
	if colorErr != nil {
		if errors.Is(colorErr, ErrUnknownEyeColor) {
			return false, nil
		}
		return false, colorErr
	}
	return true, nil
}

func (store *SQLStore) eyeColorByName(ctx context.Context, color string) (*eyeColorRecord, error) {
	var record eyeColorRecord
	lookupErr := store.database.WithContext(ctx).Where("color = ?", normalizeColor(color)).Take(&record).Error
	if lookupErr != nil {
		if errors.Is(lookupErr, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("characters.sql.eye_color %q: %w", color, ErrUnknownEyeColor)
		}
		return nil, fmt.Errorf("characters.sql.eye_color: %w", lookupErr)
	}
	return &record, nil
}

func normalizeColor(color string) string {
	return strings.ToLower(strings.TrimSpace(color))
}

func parseRowID(id string) (uint, error) {
	rowID, parseErr := strconv.ParseUint(id, 10, 64)
	if parseErr != nil {
		return 0, fmt.Errorf("characters.sql.parse_id %q: %w", id, ErrCharacterNotFound)
	}
	return uint(rowID), nil
}

func toCharacters(records []characterRecord) []Character {
	result := make([]Character, 0, len(records))
	for _, record := range records {
		result = append(result, toCharacter(record))
	}
	return result
}

func toCharacter(record characterRecord) Character {
	return Character{
		ID:        strconv.FormatUint(uint64(record.ID), 10),
		Name:      record.Name,
		Height:    record.Height,
		Mass:      record.Mass,
		HairColor: record.HairColor,
		SkinColor: record.SkinColor,
		EyeColor:  record.EyeColor.Color,
	}
}
