package database

import (
	"github.com/google/uuid"

	"github.com/arnold/milestones-api/internal/config"
)

// ConnectMemory opens a private in-memory SQLite database and migrates it.
// The pool is pinned to one connection so the database lives as long as DB.
func ConnectMemory() error {
	if err := Connect(&config.Config{DatabaseURL: "file:" + uuid.NewString() + "?mode=memory&cache=shared"}); err != nil {
		return err
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxOpenConns(1)
	return Migrate()
}
