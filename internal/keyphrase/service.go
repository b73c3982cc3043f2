package keyphrase

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type keyPhraseRecord struct {
	ID          uint   `gorm:"primaryKey"`
	CharacterID string `gorm:"index;size:64;not null"`
	Phrase      string `gorm:"size:255;not null"`
}

func (keyPhraseRecord) TableName() string {
	return "key_phrases"
}

// KeyPhrase is one extracted phrase attached to a character.
type KeyPhrase struct {
	ID          uint   `json:"id"`
	CharacterID string `json:"character_id"`
	Phrase      string `json:"phrase"`
}

// Service extracts phrases through the language client and persists them.
type Service struct {
	client   *Client
	database *gorm.DB
	logger   *zap.Logger
}

// NewService migrates the phrases table and wires the service.
func NewService(client *Client, database *gorm.DB, logger *zap.Logger) (*Service, error) {
	if migrateErr := database.AutoMigrate(&keyPhraseRecord{}); migrateErr != nil {
		return nil, fmt.Errorf("keyphrase.migrate: %w", migrateErr)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{client: client, database: database, logger: logger}, nil
}

// ExtractAndSave extracts phrases for the text and stores them against the
// character.
func (service *Service) ExtractAndSave(ctx context.Context, characterID string, text string, language string) ([]KeyPhrase, error) {
	phrases, extractErr := service.client.ExtractKeyPhrases(ctx, text, language)
	if extractErr != nil {
		return nil, extractErr
	}
	records := make([]keyPhraseRecord, 0, len(phrases))
	for _, phrase := range phrases {
		records = append(records, keyPhraseRecord{CharacterID: characterID, Phrase: phrase})
	}
	if len(records) > 0 {
		if saveErr := service.database.WithContext(ctx).Create(&records).Error; saveErr != nil {
			return nil, fmt.Errorf("keyphrase.save: %w", saveErr)
		}
	}
	service.logger.Info("key phrases extracted",
		zap.String("character_id", characterID),
		zap.Int("phrases", len(records)))
	return toKeyPhrases(records), nil
}

// ListByCharacter returns every phrase stored for the character.
func (service *Service) ListByCharacter(ctx context.Context, characterID string) ([]KeyPhrase, error) {
	var records []keyPhraseRecord
	listErr := service.database.WithContext(ctx).
		Where("character_id = ?", characterID).
		Order("id").
		Find(&records).Error
	if listErr != nil {
		return nil, fmt.Errorf("keyphrase.list: %w", listErr)
	}
	return toKeyPhrases(records), nil
}

func toKeyPhrases(records []keyPhraseRecord) []KeyPhrase {
	result := make([]KeyPhrase, 0, len(records))
	for _, record := range records {
		result = append(result, KeyPhrase{ID: record.ID, CharacterID: record.CharacterID, Phrase: record.Phrase})
	}
	return result
}
