package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/poltekatipdg/sipbmn-backend/pkg/db/models"
	"github.com/poltekatipdg/sipbmn-backend/pkg/enums"
	pkgerrors "github.com/poltekatipdg/sipbmn-backend/pkg/errors"
	"github.com/poltekatipdg/sipbmn-backend/pkg/types"
	"gorm.io/gorm"
)

// Ledger is the stock surface consumed by the loan lifecycle engine. Reserve
// and Release must run inside the engine's transaction via WithTx.
type Ledger interface {
	WithTx(tx *gorm.DB) Ledger
	Reserve(ctx context.Context, itemCode, quantity int) (*models.Item, error)
	Release(ctx context.Context, itemCode, quantity int) (*models.Item, error)
}

// activeLoanCounter reports how many non-terminal loans reference an item.
type activeLoanCounter interface {
	CountActiveByItem(ctx context.Context, itemCode int) (int64, error)
}

// TxRunner opens the transaction that holds an item's row lock for the whole
// read-modify-write. *gorm.DB satisfies it.
type TxRunner interface {
	Transaction(fc func(tx *gorm.DB) error, opts ...*sql.TxOptions) error
}

// AddItemInput captures the fields an inventory manager supplies for a new item.
type AddItemInput struct {
	PropertyNumber int
	Name           string
	Brand          string
	Description    string
	ImageURL       *string
	TotalQuantity  int
	Condition      enums.ItemCondition
	Visibility     enums.ItemVisibility
	Category       enums.ItemCategory
}

// UpdateItemInput captures the editable item fields; nil means unchanged.
type UpdateItemInput struct {
	PropertyNumber *int
	Name           *string
	Brand          *string
	Description    *string
	ImageURL       *string
	TotalQuantity  *int
	Condition      *enums.ItemCondition
	Visibility     *enums.ItemVisibility
	Category       *enums.ItemCategory
}

// Service owns every mutation of item stock counts.
type Service interface {
	Ledger
	AddItem(ctx context.Context, actor types.Actor, input AddItemInput) (*models.Item, error)
	UpdateItem(ctx context.Context, actor types.Actor, itemCode int, input UpdateItemInput) (*models.Item, error)
	DeleteItem(ctx context.Context, actor types.Actor, itemCode int) error
	GetItem(ctx context.Context, itemCode int) (*models.Item, error)
	ListItems(ctx context.Context, filter ListFilter) ([]models.Item, error)
	Resize(ctx context.Context, actor types.Actor, itemCode, newTotal int) (*models.Item, error)
	LowStock(item models.Item) bool
}

type service struct {
	repo              Repository
	activeLoans       activeLoanCounter
	tx                TxRunner
	lowStockThreshold int
}

// NewService builds the inventory ledger with the provided repository.
func NewService(repo Repository, activeLoans activeLoanCounter, tx TxRunner, lowStockThreshold int) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if activeLoans == nil {
		return nil, fmt.Errorf("active loan counter required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:              repo,
		activeLoans:       activeLoans,
		tx:                tx,
		lowStockThreshold: lowStockThreshold,
	}, nil
}

func (s *service) WithTx(tx *gorm.DB) Ledger {
	if tx == nil {
		return s
	}
	return &service{
		repo:              s.repo.WithTx(tx),
		activeLoans:       s.activeLoans,
		tx:                s.tx,
		lowStockThreshold: s.lowStockThreshold,
	}
}

// Reserve debits available stock for an approval. Callers pre-check the
// status transition; the quantity check happens here under the row lock.
func (s *service) Reserve(ctx context.Context, itemCode, quantity int) (*models.Item, error) {
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	item, err := lockItem(ctx, s.repo, itemCode)
	if err != nil {
		return nil, err
	}

	if quantity > item.AvailableQuantity {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock, "requested quantity exceeds available stock").
			WithDetails(map[string]any{
				"item_code": itemCode,
				"requested": quantity,
				"available": item.AvailableQuantity,
			})
	}

	item.AvailableQuantity -= quantity
	if item.AvailableQuantity < 0 {
		item.AvailableQuantity = 0
	}

	if err := s.repo.Save(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save item")
	}
	return item, nil
}

// Release credits stock back on return, clamped to the total so a double
// release cannot corrupt the count.
func (s *service) Release(ctx context.Context, itemCode, quantity int) (*models.Item, error) {
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	item, err := lockItem(ctx, s.repo, itemCode)
	if err != nil {
		return nil, err
	}

	item.AvailableQuantity += quantity
	if item.AvailableQuantity > item.TotalQuantity {
		item.AvailableQuantity = item.TotalQuantity
	}

	if err := s.repo.Save(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save item")
	}
	return item, nil
}

// Resize changes total stock. Shrinking below the loaned-out floor fails. The
// row lock must survive until the save, so the whole read-modify-write runs
// in one transaction.
func (s *service) Resize(ctx context.Context, actor types.Actor, itemCode, newTotal int) (*models.Item, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	if newTotal < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "total quantity cannot be negative")
	}

	var resized *models.Item
	err := s.tx.Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		item, err := lockItem(ctx, repo, itemCode)
		if err != nil {
			return err
		}

		loanedOut := item.LoanedOut()
		if newTotal < loanedOut {
			return pkgerrors.New(pkgerrors.CodeStockFloor, "total cannot shrink below loaned-out units").
				WithDetails(map[string]any{
					"item_code":  itemCode,
					"new_total":  newTotal,
					"loaned_out": loanedOut,
				})
		}

		item.TotalQuantity = newTotal
		item.AvailableQuantity = newTotal - loanedOut

		if err := repo.Save(ctx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save item")
		}
		resized = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resized, nil
}

func (s *service) AddItem(ctx context.Context, actor types.Actor, input AddItemInput) (*models.Item, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item name is required")
	}
	if input.TotalQuantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "total quantity cannot be negative")
	}
	if !input.Condition.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid condition %q", input.Condition))
	}
	if !input.Visibility.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid visibility %q", input.Visibility))
	}
	if !input.Category.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid category %q", input.Category))
	}

	item := &models.Item{
		PropertyNumber: input.PropertyNumber,
		Name:           strings.TrimSpace(input.Name),
		Brand:          input.Brand,
		Description:    input.Description,
		ImageURL:       input.ImageURL,
		TotalQuantity:  input.TotalQuantity,
		// New stock starts fully available.
		AvailableQuantity: input.TotalQuantity,
		Condition:         input.Condition,
		Visibility:        input.Visibility,
		Category:          input.Category,
	}

	if err := s.repo.Create(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create item")
	}
	return item, nil
}

func (s *service) UpdateItem(ctx context.Context, actor types.Actor, itemCode int, input UpdateItemInput) (*models.Item, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}

	var updated *models.Item
	err := s.tx.Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		item, err := lockItem(ctx, repo, itemCode)
		if err != nil {
			return err
		}

		if err := applyItemUpdate(item, input); err != nil {
			return err
		}

		if err := repo.Save(ctx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save item")
		}
		updated = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func applyItemUpdate(item *models.Item, input UpdateItemInput) error {
	if input.PropertyNumber != nil {
		item.PropertyNumber = *input.PropertyNumber
	}
	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "item name is required")
		}
		item.Name = strings.TrimSpace(*input.Name)
	}
	if input.Brand != nil {
		item.Brand = *input.Brand
	}
	if input.Description != nil {
		item.Description = *input.Description
	}
	if input.ImageURL != nil {
		item.ImageURL = input.ImageURL
	}
	if input.Condition != nil {
		if !input.Condition.IsValid() {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid condition %q", *input.Condition))
		}
		item.Condition = *input.Condition
	}
	if input.Visibility != nil {
		if !input.Visibility.IsValid() {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid visibility %q", *input.Visibility))
		}
		item.Visibility = *input.Visibility
	}
	if input.Category != nil {
		if !input.Category.IsValid() {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid category %q", *input.Category))
		}
		item.Category = *input.Category
	}
	if input.TotalQuantity != nil && *input.TotalQuantity != item.TotalQuantity {
		newTotal := *input.TotalQuantity
		if newTotal < 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "total quantity cannot be negative")
		}
		loanedOut := item.LoanedOut()
		if newTotal < loanedOut {
			return pkgerrors.New(pkgerrors.CodeStockFloor, "total cannot shrink below loaned-out units").
				WithDetails(map[string]any{
					"item_code":  item.ItemCode,
					"new_total":  newTotal,
					"loaned_out": loanedOut,
				})
		}
		item.TotalQuantity = newTotal
		item.AvailableQuantity = newTotal - loanedOut
	}
	return nil
}

func (s *service) DeleteItem(ctx context.Context, actor types.Actor, itemCode int) error {
	if !actor.IsAdmin() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}

	return s.tx.Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := lockItem(ctx, repo, itemCode); err != nil {
			return err
		}

		active, err := s.activeLoans.CountActiveByItem(ctx, itemCode)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count active loans")
		}
		if active > 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "item has active loans").
				WithDetails(map[string]any{"item_code": itemCode, "active_loans": active})
		}

		if err := repo.Delete(ctx, itemCode); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete item")
		}
		return nil
	})
}

func (s *service) GetItem(ctx context.Context, itemCode int) (*models.Item, error) {
	item, err := s.repo.FindByCode(ctx, itemCode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find item")
	}
	return item, nil
}

func (s *service) ListItems(ctx context.Context, filter ListFilter) ([]models.Item, error) {
	items, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list items")
	}
	return items, nil
}

// LowStock reports whether the item's availability sits under the alert threshold.
func (s *service) LowStock(item models.Item) bool {
	return item.AvailableQuantity < s.lowStockThreshold
}

func lockItem(ctx context.Context, repo Repository, itemCode int) (*models.Item, error) {
	item, err := repo.FindByCodeForUpdate(ctx, itemCode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find item")
	}
	return item, nil
}
