package characters

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Service fronts the selected storage backend and owns cross-backend
// validation.
type Service struct {
	store     Store
	eyeColors EyeColorStore
	logger    *zap.Logger
}

// NewService wires the service with the backend selected at startup.
func NewService(store Store, eyeColors EyeColorStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, eyeColors: eyeColors, logger: logger}
}

// List returns all characters.
func (service *Service) List(ctx context.Context) ([]Character, error) {
	return service.store.FindAll(ctx)
}

// GetByName returns all characters with the exact name.
func (service *Service) GetByName(ctx context.Context, name string) ([]Character, error) {
	return service.store.FindByName(ctx, name)
}

// Create validates the referenced eye color, then persists the character.
func (service *Service) Create(ctx context.Context, character Character) (Character, error) {
	if validateErr := service.validate(ctx, character); validateErr != nil {
		return Character{}, validateErr
	}
	created, createErr := service.store.Create(ctx, character)
	if createErr != nil {
		return Character{}, createErr
	}
	service.logger.Info("character created",
		zap.String("id", created.ID),
		zap.String("name", created.Name))
	return created, nil
}

// Update validates and rewrites an existing character.
func (service *Service) Update(ctx context.Context, id string, character Character) (Character, error) {
	if validateErr := service.validate(ctx, character); validateErr != nil {
		return Character{}, validateErr
	}
	return service.store.Update(ctx, id, character)
}

// Delete removes a character.
func (service *Service) Delete(ctx context.Context, id string) error {
	return service.store.Delete(ctx, id)
}

// ListEyeColors returns the eye-color catalog.
func (service *Service) ListEyeColors(ctx context.Context) ([]EyeColor, error) {
	return service.eyeColors.ListEyeColors(ctx)
}

// CreateEyeColor adds a catalog entry.
func (service *Service) CreateEyeColor(ctx context.Context, color string) (EyeColor, error) {
	if strings.TrimSpace(color) == "" {
		return EyeColor{}, fmt.Errorf("characters.create_eye_color: %w", ErrUnknownEyeColor)
	}
	return service.eyeColors.CreateEyeColor(ctx, color)
}

func (service *Service) validate(ctx context.Context, character Character) error {
	if strings.TrimSpace(character.Name) == "" {
		return fmt.Errorf("characters.validate: name is required")
	}
	valid, validErr := service.eyeColors.ValidEyeColor(ctx, character.EyeColor)
	if validErr != nil {
		return validErr
	}
	if !valid {
		return fmt.Errorf("characters.validate %q: %w", character.EyeColor, ErrUnknownEyeColor)
	}
	return nil
}
