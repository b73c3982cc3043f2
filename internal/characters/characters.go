// Package characters implements the character and eye-color catalog with a
// storage backend selected once at startup: relational (GORM) or document
// (Redis). Handlers never inspect which variant they talk to.
package characters

import "errors"

// Character is the storage-independent character record. IDs are opaque
// strings: decimal row ids for the relational store, UUIDs for the document
// store.
type Character struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Height    int    `json:"height"`
	Mass      int    `json:"mass"`
	HairColor string `json:"hair_color"`
	SkinColor string `json:"skin_color"`
	EyeColor  string `json:"eye_color"`
}

// EyeColor is a catalog entry characters reference by name.
type EyeColor struct {
	ID    uint   `json:"id"`
	Color string `json:"color"`
}

var (
	// ErrCharacterNotFound indicates no character matched the id.
	ErrCharacterNotFound = errors.New("characters.not_found")
	// ErrUnknownEyeColor indicates the referenced eye color is not in the
	// catalog.
	ErrUnknownEyeColor = errors.New("characters.unknown_eye_color")
	// ErrEyeColorExists indicates a duplicate eye color name.
	ErrEyeColorExists = errors.New("characters.eye_color_exists")
)
