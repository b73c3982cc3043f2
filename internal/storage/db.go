// Package storage owns database access: connection setup, the user
// repository, and the relational character tables.
package storage

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	sqliteDialector "github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	// ErrUnsupportedDialect indicates that no GORM dialector is available for
	// the database URL scheme.
	ErrUnsupportedDialect = errors.New("storage.unsupported_dialect")

	errEmptyDatabaseURL = errors.New("storage.empty_database_url")
	errSQLiteEmptyPath  = errors.New("storage.sqlite.empty_path")
	errSQLiteInvalidURL = errors.New("storage.sqlite.invalid_url")
)

// Open connects to the database named by the URL. postgres:// URLs use the
// Postgres driver; sqlite:// URLs use the pure-Go SQLite driver, with
// sqlite://:memory: accepted for tests and local runs.
func Open(databaseURL string) (*gorm.DB, string, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, "", fmt.Errorf("storage.open: %w", errEmptyDatabaseURL)
	}
	dialector, driverLabel, resolveErr := resolveDialector(databaseURL)
	if resolveErr != nil {
		return nil, "", resolveErr
	}
	database, openErr := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if openErr != nil {
		return nil, "", fmt.Errorf("storage.open.%s: %w", driverLabel, openErr)
	}
	return database, driverLabel, nil
}

func resolveDialector(databaseURL string) (gorm.Dialector, string, error) {
	parsed, parseErr := url.Parse(databaseURL)
	if parseErr != nil || parsed.Scheme == "" {
		return nil, "", fmt.Errorf("storage.open %q: %w", databaseURL, ErrUnsupportedDialect)
	}
	switch parsed.Scheme {
	case "postgres", "postgresql":
		return postgres.Open(databaseURL), "postgres", nil
	case "sqlite", "sqlite3":
		path, pathErr := sqlitePath(databaseURL, parsed)
		if pathErr != nil {
			return nil, "", pathErr
		}
		return sqliteDialector.Open(path), "sqlite", nil
	default:
		return nil, "", fmt.Errorf("storage.open %q: %w", parsed.Scheme, ErrUnsupportedDialect)
	}
}

func sqlitePath(databaseURL string, parsed *url.URL) (string, error) {
	trimmed := strings.TrimPrefix(databaseURL, parsed.Scheme+"://")
	if trimmed == databaseURL {
		trimmed = strings.TrimPrefix(databaseURL, parsed.Scheme+":")
	}
	if trimmed == "" {
		return "", fmt.Errorf("storage.open: %w", errSQLiteEmptyPath)
	}
	if trimmed == databaseURL {
		return "", fmt.Errorf("storage.open: %w", errSQLiteInvalidURL)
	}
	return trimmed, nil
}
