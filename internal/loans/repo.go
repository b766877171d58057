package loans

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/poltekatipdg/sipbmn-backend/pkg/db/models"
	"github.com/poltekatipdg/sipbmn-backend/pkg/enums"
	"github.com/poltekatipdg/sipbmn-backend/pkg/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ListFilter narrows loan listings and exports.
type ListFilter struct {
	Status     *enums.LoanStatus
	BorrowerID string
	ItemCode   *int
	Search     string
	// From and To bound request_date: From inclusive, To exclusive.
	From *time.Time
	To   *time.Time
}

// Repository manages persistence for loans. Loans are append-only records;
// there is no delete.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, loan *models.Loan) error
	Save(ctx context.Context, loan *models.Loan) error
	FindByCode(ctx context.Context, loanCode string) (*models.Loan, error)
	// FindByCodeForUpdate locks the loan row so concurrent transitions on the
	// same loan serialize.
	FindByCodeForUpdate(ctx context.Context, loanCode string) (*models.Loan, error)
	LastLoanCode(ctx context.Context) (string, error)
	List(ctx context.Context, filter ListFilter, limit int, cursor *pagination.Cursor) ([]models.Loan, error)
	ListAll(ctx context.Context, filter ListFilter) ([]models.Loan, error)
	ListForDashboard(ctx context.Context, limit int) ([]models.Loan, error)
	ListApprovedByItem(ctx context.Context, itemCode int) ([]models.Loan, error)
	CountByStatus(ctx context.Context, status enums.LoanStatus) (int64, error)
	CountOverdue(ctx context.Context, before time.Time) (int64, error)
	CountActiveByItem(ctx context.Context, itemCode int) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a loan repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, loan *models.Loan) error {
	return r.db.WithContext(ctx).Create(loan).Error
}

func (r *repository) Save(ctx context.Context, loan *models.Loan) error {
	return r.db.WithContext(ctx).Save(loan).Error
}

func (r *repository) FindByCode(ctx context.Context, loanCode string) (*models.Loan, error) {
	var loan models.Loan
	if err := r.db.WithContext(ctx).First(&loan, "loan_code = ?", loanCode).Error; err != nil {
		return nil, err
	}
	return &loan, nil
}

func (r *repository) FindByCodeForUpdate(ctx context.Context, loanCode string) (*models.Loan, error) {
	var loan models.Loan
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&loan, "loan_code = ?", loanCode).Error; err != nil {
		return nil, err
	}
	return &loan, nil
}

func (r *repository) LastLoanCode(ctx context.Context) (string, error) {
	var loan models.Loan
	// Codes are a fixed prefix plus digits; length-first ordering keeps the
	// sequence numeric once it outgrows the zero padding.
	err := r.db.WithContext(ctx).
		Order("LENGTH(loan_code) DESC, loan_code DESC").
		First(&loan).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return loan.LoanCode, nil
}

func applyFilter(query *gorm.DB, filter ListFilter) *gorm.DB {
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.BorrowerID != "" {
		query = query.Where("borrower_id = ?", filter.BorrowerID)
	}
	if filter.ItemCode != nil {
		query = query.Where("item_code = ?", *filter.ItemCode)
	}
	if filter.From != nil {
		query = query.Where("request_date >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("request_date < ?", *filter.To)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(item_name) LIKE ? OR LOWER(borrower_name) LIKE ? OR LOWER(loan_code) LIKE ?", pattern, pattern, pattern)
	}
	return query
}

func (r *repository) List(ctx context.Context, filter ListFilter, limit int, cursor *pagination.Cursor) ([]models.Loan, error) {
	query := applyFilter(r.db.WithContext(ctx).Model(&models.Loan{}), filter)
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND loan_code < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.Code,
		)
	}

	var loans []models.Loan
	if err := query.
		Order("created_at DESC, loan_code DESC").
		Limit(limit).
		Find(&loans).Error; err != nil {
		return nil, err
	}
	return loans, nil
}

func (r *repository) ListAll(ctx context.Context, filter ListFilter) ([]models.Loan, error) {
	var loans []models.Loan
	err := applyFilter(r.db.WithContext(ctx).Model(&models.Loan{}), filter).
		Order("created_at DESC, loan_code DESC").
		Find(&loans).Error
	if err != nil {
		return nil, err
	}
	return loans, nil
}

// ListForDashboard surfaces the triage queue: approved loans first by how
// soon they are due, then pending requests.
func (r *repository) ListForDashboard(ctx context.Context, limit int) ([]models.Loan, error) {
	var loans []models.Loan
	err := r.db.WithContext(ctx).
		Model(&models.Loan{}).
		Where("status IN ?", []enums.LoanStatus{enums.LoanStatusPending, enums.LoanStatusApproved}).
		Order("CASE status WHEN 'APPROVED' THEN 0 ELSE 1 END ASC, scheduled_return_date ASC, loan_code ASC").
		Limit(limit).
		Find(&loans).Error
	if err != nil {
		return nil, err
	}
	return loans, nil
}

func (r *repository) ListApprovedByItem(ctx context.Context, itemCode int) ([]models.Loan, error) {
	var loans []models.Loan
	err := r.db.WithContext(ctx).
		Model(&models.Loan{}).
		Where("item_code = ? AND status = ?", itemCode, enums.LoanStatusApproved).
		Find(&loans).Error
	if err != nil {
		return nil, err
	}
	return loans, nil
}

func (r *repository) CountByStatus(ctx context.Context, status enums.LoanStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Loan{}).
		Where("status = ?", status).
		Count(&count).Error
	return count, err
}

func (r *repository) CountOverdue(ctx context.Context, before time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Loan{}).
		Where("status = ? AND scheduled_return_date < ?", enums.LoanStatusApproved, before).
		Count(&count).Error
	return count, err
}

func (r *repository) CountActiveByItem(ctx context.Context, itemCode int) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Loan{}).
		Where("item_code = ? AND status IN ?", itemCode, []enums.LoanStatus{enums.LoanStatusPending, enums.LoanStatusApproved}).
		Count(&count).Error
	return count, err
}
