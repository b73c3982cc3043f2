package characters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const documentHashKey = "characters:documents"

// documentCommands is the slice of the Redis API the document store needs.
// *redis.Client satisfies it; tests substitute an in-memory fake.
type documentCommands interface {
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	HGet(ctx context.Context, key string, field string) *redis.StringCmd
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	HDel(ctx context.Context, key string, fields ...string) *redis.IntCmd
}

// DocumentStore keeps characters as JSON documents in one Redis hash keyed
// by a generated UUID. Eye colors are stored inline; the catalog operations
// accept any non-empty color.
type DocumentStore struct {
	commands documentCommands
	newID    func() string
}

// NewDocumentStore constructs the store on an established Redis client.
func NewDocumentStore(client *redis.Client) *DocumentStore {
	return newDocumentStore(client)
}

func newDocumentStore(commands documentCommands) *DocumentStore {
	return &DocumentStore{
		commands: commands,
		newID:    func() string { return uuid.NewString() },
	}
}

// FindAll returns every stored character document.
func (store *DocumentStore) FindAll(ctx context.Context) ([]Character, error) {
	documents, listErr := store.commands.HGetAll(ctx, documentHashKey).Result()
	if listErr != nil {
		return nil, fmt.Errorf("characters.document.find_all: %w", listErr)
	}
	result := make([]Character, 0, len(documents))
	for id, document := range documents {
		character, decodeErr := decodeCharacter(id, document)
		if decodeErr != nil {
			return nil, decodeErr
		}
		result = append(result, character)
	}
	return result, nil
}

// FindByName filters the documents on exact name match.
func (store *DocumentStore) FindByName(ctx context.Context, name string) ([]Character, error) {
	all, listErr := store.FindAll(ctx)
	if listErr != nil {
		return nil, listErr
	}
	matched := make([]Character, 0)
	for _, character := range all {
		if character.Name == name {
			matched = append(matched, character)
		}
	}
	return matched, nil
}

// Create assigns a fresh UUID and stores the document.
func (store *DocumentStore) Create(ctx context.Context, character Character) (Character, error) {
	character.ID = store.newID()
	if writeErr := store.write(ctx, character); writeErr != nil {
		return Character{}, fmt.Errorf("characters.document.create: %w", writeErr)
	}
	return character, nil
}

// Update replaces an existing document in full.
func (store *DocumentStore) Update(ctx context.Context, id string, character Character) (Character, error) {
	if _, lookupErr := store.commands.HGet(ctx, documentHashKey, id).Result(); lookupErr != nil {
		if errors.Is(lookupErr, redis.Nil) {
			return Character{}, fmt.Errorf("characters.document.update: %w", ErrCharacterNotFound)
		}
		return Character{}, fmt.Errorf("characters.document.update: %w", lookupErr)
	}
	character.ID = id
	if writeErr := store.write(ctx, character); writeErr != nil {
		return Character{}, fmt.Errorf("characters.document.update: %w", writeErr)
	}
	return character, nil
}

// Delete removes a document by id.
func (store *DocumentStore) Delete(ctx context.Context, id string) error {
	removed, deleteErr := store.commands.HDel(ctx, documentHashKey, id).Result()
	if deleteErr != nil {
		return fmt.Errorf("characters.document.delete: %w", deleteErr)
	}
	if removed == 0 {
		return fmt.Errorf("characters.document.delete: %w", ErrCharacterNotFound)
	}
	return nil
}

// ListEyeColors is not backed by a catalog in the document variant.
func (store *DocumentStore) ListEyeColors(ctx context.Context) ([]EyeColor, error) {
	all, listErr := store.FindAll(ctx)
	if listErr != nil {
		return nil, listErr
	}
	seen := make(map[string]bool)
	colors := make([]EyeColor, 0)
	for _, character := range all {
		if character.EyeColor == "" || seen[character.EyeColor] {
			continue
		}
		seen[character.EyeColor] = true
		colors = append(colors, EyeColor{ID: uint(len(colors) + 1), Color: character.EyeColor})
	}
	return colors, nil
}

// CreateEyeColor is a no-op acknowledgement; colors live inline on the
// documents.
func (store *DocumentStore) CreateEyeColor(ctx context.Context, color string) (EyeColor, error) {
	return EyeColor{Color: normalizeColor(color)}, nil
}

// ValidEyeColor accepts any non-empty color for the document variant.
func (store *DocumentStore) ValidEyeColor(ctx context.Context, color string) (bool, error) {
	return normalizeColor(color) != "", nil
}

func (store *DocumentStore) write(ctx context.Context, character Character) error {
	document, encodeErr := json.Marshal(character)
	if encodeErr != nil {
		return encodeErr
	}
	return store.commands.HSet(ctx, documentHashKey, character.ID, string(document)).Err()
}

func decodeCharacter(id string, document string) (Character, error) {
	var character Character
	if decodeErr := json.Unmarshal([]byte(document), &character); decodeErr != nil {
		return Character{}, fmt.Errorf("characters.document.decode %q: %w", id, decodeErr)
	}
	character.ID = id
	return character, nil
}
