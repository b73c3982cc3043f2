package characters

import "context"

// Store is the polymorphic character storage capability. The backend is
// chosen once at startup from configuration; there is no per-call dispatch
// on the concrete type.
type Store interface {
	FindAll(ctx context.Context) ([]Character, error)
	FindByName(ctx context.Context, name string) ([]Character, error)
	Create(ctx context.Context, character Character) (Character, error)
	Update(ctx context.Context, id string, character Character) (Character, error)
	Delete(ctx context.Context, id string) error
}

// EyeColorStore manages the eye-color catalog. Only the relational backend
// maintains the catalog; the document backend stores colors inline and
// accepts any value.
type EyeColorStore interface {
	ListEyeColors(ctx context.Context) ([]EyeColor, error)
	CreateEyeColor(ctx context.Context, color string) (EyeColor, error)
	// ValidEyeColor reports whether characters may reference the color.
	ValidEyeColor(ctx context.Context, color string) (bool, error)
}
