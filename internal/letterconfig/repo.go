package letterconfig

import (
	"context"

	"github.com/poltekatipdg/sipbmn-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository persists the single letter configuration row.
type Repository interface {
	Get(ctx context.Context) (*models.LetterConfig, error)
	Save(ctx context.Context, config *models.LetterConfig) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a letter config repository bound to the database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Get(ctx context.Context) (*models.LetterConfig, error) {
	var config models.LetterConfig
	if err := r.db.WithContext(ctx).First(&config, "id = ?", 1).Error; err != nil {
		return nil, err
	}
	return &config, nil
}

func (r *repository) Save(ctx context.Context, config *models.LetterConfig) error {
	config.ID = 1
	return r.db.WithContext(ctx).Save(config).Error
}
