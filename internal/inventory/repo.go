package inventory

import (
	"context"
	"strings"

	"github.com/poltekatipdg/sipbmn-backend/pkg/db/models"
	"github.com/poltekatipdg/sipbmn-backend/pkg/enums"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ListFilter narrows item listings.
type ListFilter struct {
	Category    *enums.ItemCategory
	Search      string
	VisibleOnly bool
}

// Repository manages persistence for items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, item *models.Item) error
	Save(ctx context.Context, item *models.Item) error
	Delete(ctx context.Context, itemCode int) error
	FindByCode(ctx context.Context, itemCode int) (*models.Item, error)
	// FindByCodeForUpdate locks the item row for the duration of the
	// surrounding transaction. Stock writers must use it.
	FindByCodeForUpdate(ctx context.Context, itemCode int) (*models.Item, error)
	List(ctx context.Context, filter ListFilter) ([]models.Item, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an item repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, item *models.Item) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *repository) Save(ctx context.Context, item *models.Item) error {
	return r.db.WithContext(ctx).Save(item).Error
}

func (r *repository) Delete(ctx context.Context, itemCode int) error {
	return r.db.WithContext(ctx).Delete(&models.Item{}, "item_code = ?", itemCode).Error
}

func (r *repository) FindByCode(ctx context.Context, itemCode int) (*models.Item, error) {
	var item models.Item
	if err := r.db.WithContext(ctx).First(&item, "item_code = ?", itemCode).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) FindByCodeForUpdate(ctx context.Context, itemCode int) (*models.Item, error) {
	var item models.Item
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&item, "item_code = ?", itemCode).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]models.Item, error) {
	query := r.db.WithContext(ctx).Model(&models.Item{})
	if filter.Category != nil {
		query = query.Where("category = ?", *filter.Category)
	}
	if filter.VisibleOnly {
		query = query.Where("visibility = ?", enums.ItemVisibilityVisible)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(brand) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern, pattern)
	}

	var items []models.Item
	if err := query.Order("item_code ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
