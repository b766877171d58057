package migrate

import (
	"context"
	"fmt"

	"github.com/poltekatipdg/sipbmn-backend/pkg/db"
	"github.com/poltekatipdg/sipbmn-backend/pkg/db/models"
)

// Run applies the gorm schema for every entity collection.
func Run(ctx context.Context, client *db.Client) error {
	if client == nil {
		return fmt.Errorf("db client is required")
	}
	conn := client.DB().WithContext(ctx)
	if err := conn.AutoMigrate(
		&models.Item{},
		&models.Loan{},
		&models.User{},
		&models.LetterConfig{},
	); err != nil {
		return fmt.Errorf("auto-migrating schema: %w", err)
	}
	return nil
}
