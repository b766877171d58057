package loans

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/poltekatipdg/sipbmn-backend/internal/inventory"
	"github.com/poltekatipdg/sipbmn-backend/pkg/db"
	"github.com/poltekatipdg/sipbmn-backend/pkg/db/models"
	"github.com/poltekatipdg/sipbmn-backend/pkg/enums"
	pkgerrors "github.com/poltekatipdg/sipbmn-backend/pkg/errors"
	"github.com/poltekatipdg/sipbmn-backend/pkg/logger"
	"github.com/poltekatipdg/sipbmn-backend/pkg/metrics"
	"github.com/poltekatipdg/sipbmn-backend/pkg/pagination"
	"github.com/poltekatipdg/sipbmn-backend/pkg/types"
	"gorm.io/gorm"
)

const (
	loanCodePrefix = "P"
	loanCodeWidth  = 4

	dashboardAttentionLimit = 20
	createRetryAttempts     = 3
)

// ItemReader is the read surface of the inventory catalog the engine needs
// when accepting a request.
type ItemReader interface {
	GetItem(ctx context.Context, itemCode int) (*models.Item, error)
}

// TxRunner opens a database transaction shared by the loan and item writes of
// one transition. *gorm.DB satisfies it.
type TxRunner interface {
	Transaction(fc func(tx *gorm.DB) error, opts ...*sql.TxOptions) error
}

// Service is the loan lifecycle engine. It owns every status transition and is
// the only writer of loan records.
type Service interface {
	SubmitRequest(ctx context.Context, actor types.Actor, input SubmitRequestInput) (*models.Loan, error)
	Approve(ctx context.Context, actor types.Actor, loanCode string) (*models.Loan, error)
	Reject(ctx context.Context, actor types.Actor, loanCode string) (*models.Loan, error)
	Return(ctx context.Context, actor types.Actor, loanCode string, input ReturnInput) (*models.Loan, error)
	GetLoan(ctx context.Context, actor types.Actor, loanCode string) (*models.Loan, error)
	ListLoans(ctx context.Context, actor types.Actor, filter ListFilter, params pagination.Params) (*Page, error)
	Dashboard(ctx context.Context) (*DashboardSummary, error)
	ExportCSV(ctx context.Context, actor types.Actor, filter ListFilter) ([]byte, error)
	CountActiveByItem(ctx context.Context, itemCode int) (int64, error)
	Now() time.Time
}

type service struct {
	repo    Repository
	stock   inventory.Ledger
	items   ItemReader
	tx      TxRunner
	logg    *logger.Logger
	metrics *metrics.LifecycleMetrics
	now     func() time.Time
}

// NewService builds the lifecycle engine. Metrics may be nil.
func NewService(
	repo Repository,
	stock inventory.Ledger,
	items ItemReader,
	tx TxRunner,
	logg *logger.Logger,
	lifecycleMetrics *metrics.LifecycleMetrics,
	now func() time.Time,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("loan repository required")
	}
	if stock == nil {
		return nil, fmt.Errorf("inventory ledger required")
	}
	if items == nil {
		return nil, fmt.Errorf("item reader required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:    repo,
		stock:   stock,
		items:   items,
		tx:      tx,
		logg:    logg,
		metrics: lifecycleMetrics,
		now:     now,
	}, nil
}

func (s *service) Now() time.Time {
	return s.now()
}

func (s *service) SubmitRequest(ctx context.Context, actor types.Actor, input SubmitRequestInput) (*models.Loan, error) {
	if input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "requested quantity must be at least 1")
	}

	// The engine owns the request date; a client-supplied one would skew the
	// early-return check, overdue derivation, and the document fingerprint.
	requestDate := s.now()
	if input.ScheduledReturnDate.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "scheduled return date is required")
	}
	if truncateDay(input.ScheduledReturnDate).Before(truncateDay(requestDate)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "scheduled return date cannot precede the request date")
	}

	item, err := s.items.GetItem(ctx, input.ItemCode)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && item.Visibility == enums.ItemVisibilityHidden {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
	}
	if item.Condition != enums.ItemConditionGood {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item condition does not allow lending").
			WithDetails(map[string]any{"item_code": item.ItemCode, "condition": item.Condition})
	}
	if input.Quantity > item.TotalQuantity {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "requested quantity exceeds total stock").
			WithDetails(map[string]any{"item_code": item.ItemCode, "requested": input.Quantity, "total": item.TotalQuantity})
	}

	// Availability is checked here but only debited at approval, so two
	// pending requests may still compete for the same units.
	required := input.Quantity
	if item.Category.IsTimeBounded() {
		required = 1
	}
	if item.AvailableQuantity < required {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock, "requested quantity exceeds available stock").
			WithDetails(map[string]any{"item_code": item.ItemCode, "requested": input.Quantity, "available": item.AvailableQuantity})
	}

	startTime, endTime := input.StartTime, input.EndTime
	if item.Category.IsTimeBounded() {
		if err := validateTimeWindow(startTime, endTime); err != nil {
			return nil, err
		}
	} else {
		// Time windows only apply to building bookings.
		startTime, endTime = nil, nil
	}

	loan := &models.Loan{
		ItemCode:            item.ItemCode,
		BorrowerID:          actor.ID,
		BorrowerName:        actor.Name,
		ItemName:            item.Name,
		ItemCategory:        item.Category,
		RequestedQuantity:   input.Quantity,
		RequestDate:         requestDate,
		ScheduledReturnDate: input.ScheduledReturnDate,
		StartTime:           startTime,
		EndTime:             endTime,
		Status:              enums.LoanStatusPending,
	}

	// No stock reservation here. Availability is debited at approval.
	if err := s.createWithCode(ctx, loan); err != nil {
		return nil, err
	}

	ctx = s.logg.WithLoanCode(ctx, loan.LoanCode)
	s.logg.Info(ctx, "loan request submitted")
	return loan, nil
}

// createWithCode assigns the next sequential loan code and inserts the row.
// A concurrent submit can win the same code; the unique key flags it and we
// retry with a fresh sequence read.
func (s *service) createWithCode(ctx context.Context, loan *models.Loan) error {
	var lastErr error
	for attempt := 0; attempt < createRetryAttempts; attempt++ {
		err := s.tx.Transaction(func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			last, err := repo.LastLoanCode(ctx)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read last loan code")
			}
			loan.LoanCode = nextLoanCode(last)
			if err := repo.Create(ctx, loan); err != nil {
				return err
			}
			return nil
		})
		if err == nil {
			return nil
		}
		if db.IsUniqueViolation(err, "") {
			lastErr = err
			continue
		}
		if typed := pkgerrors.As(err); typed != nil {
			return typed
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create loan")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, lastErr, "create loan: code contention")
}

func nextLoanCode(last string) string {
	seq := 0
	if trimmed := strings.TrimPrefix(last, loanCodePrefix); trimmed != last {
		if n, err := strconv.Atoi(trimmed); err == nil {
			seq = n
		}
	}
	return fmt.Sprintf("%s%0*d", loanCodePrefix, loanCodeWidth, seq+1)
}

func (s *service) Approve(ctx context.Context, actor types.Actor, loanCode string) (*models.Loan, error) {
	return s.transition(ctx, "approve", func() (*models.Loan, error) {
		if !actor.IsAdmin() {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
		}

		var approved *models.Loan
		err := s.tx.Transaction(func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			stock := s.stock.WithTx(tx)

			loan, err := s.lockLoan(ctx, repo, loanCode)
			if err != nil {
				return err
			}
			if loan.Status != enums.LoanStatusPending {
				return transitionConflict(loan.Status, enums.LoanStatusApproved)
			}

			// Reserve first: the item row lock serializes concurrent
			// approvals that compete for the same stock or time window.
			if _, err := stock.Reserve(ctx, loan.ItemCode, loan.RequestedQuantity); err != nil {
				return err
			}

			if loan.ItemCategory.IsTimeBounded() {
				if err := s.checkBookingOverlap(ctx, repo, loan); err != nil {
					return err
				}
			}

			loan.Status = enums.LoanStatusApproved
			loan.ApproverName = ptr(actor.Name)
			loan.ApproverIdentifier = ptr(actor.IdentifierNumber)
			if err := repo.Save(ctx, loan); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save loan")
			}
			approved = loan
			return nil
		})
		if err != nil {
			return nil, err
		}

		ctx = s.logg.WithLoanCode(ctx, approved.LoanCode)
		s.logg.Info(ctx, "loan approved")
		return approved, nil
	})
}

func (s *service) Reject(ctx context.Context, actor types.Actor, loanCode string) (*models.Loan, error) {
	return s.transition(ctx, "reject", func() (*models.Loan, error) {
		if !actor.IsAdmin() {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
		}

		var rejected *models.Loan
		err := s.tx.Transaction(func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)

			loan, err := s.lockLoan(ctx, repo, loanCode)
			if err != nil {
				return err
			}
			if loan.Status != enums.LoanStatusPending {
				return transitionConflict(loan.Status, enums.LoanStatusRejected)
			}

			// Rejection never touched stock, so there is nothing to release.
			loan.Status = enums.LoanStatusRejected
			loan.ApproverName = ptr(actor.Name)
			loan.ApproverIdentifier = ptr(actor.IdentifierNumber)
			if err := repo.Save(ctx, loan); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save loan")
			}
			rejected = loan
			return nil
		})
		if err != nil {
			return nil, err
		}

		ctx = s.logg.WithLoanCode(ctx, rejected.LoanCode)
		s.logg.Info(ctx, "loan rejected")
		return rejected, nil
	})
}

func (s *service) Return(ctx context.Context, actor types.Actor, loanCode string, input ReturnInput) (*models.Loan, error) {
	return s.transition(ctx, "return", func() (*models.Loan, error) {
		if !actor.IsAdmin() {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
		}
		if !input.Condition.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid return condition %q", input.Condition))
		}

		returnedAt := s.now()
		note := strings.TrimSpace(input.Note)

		var returned *models.Loan
		err := s.tx.Transaction(func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			stock := s.stock.WithTx(tx)

			loan, err := s.lockLoan(ctx, repo, loanCode)
			if err != nil {
				return err
			}
			if loan.Status != enums.LoanStatusApproved {
				return transitionConflict(loan.Status, enums.LoanStatusReturned)
			}

			if truncateDay(returnedAt).Before(truncateDay(loan.ScheduledReturnDate)) && note == "" {
				return pkgerrors.New(pkgerrors.CodeReturnNoteRequired, "early returns require a note").
					WithDetails(map[string]any{
						"loan_code":             loan.LoanCode,
						"scheduled_return_date": loan.ScheduledReturnDate,
					})
			}

			if _, err := stock.Release(ctx, loan.ItemCode, loan.RequestedQuantity); err != nil {
				return err
			}

			loan.Status = enums.LoanStatusReturned
			loan.ActualReturnDate = &returnedAt
			loan.ReturnCondition = &input.Condition
			if note != "" {
				loan.ReturnNote = &note
			}
			if err := repo.Save(ctx, loan); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save loan")
			}
			returned = loan
			return nil
		})
		if err != nil {
			return nil, err
		}

		ctx = s.logg.WithLoanCode(ctx, returned.LoanCode)
		s.logg.Info(ctx, "loan returned")
		return returned, nil
	})
}

func (s *service) GetLoan(ctx context.Context, actor types.Actor, loanCode string) (*models.Loan, error) {
	loan, err := s.findLoan(ctx, loanCode)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && loan.BorrowerID != actor.ID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "loan not found")
	}
	return loan, nil
}

func (s *service) ListLoans(ctx context.Context, actor types.Actor, filter ListFilter, params pagination.Params) (*Page, error) {
	// Borrowers only ever see their own loans.
	if !actor.IsAdmin() {
		filter.BorrowerID = actor.ID
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(params.Limit)

	loans, err := s.repo.List(ctx, filter, pagination.LimitWithBuffer(params.Limit), cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list loans")
	}

	page := &Page{}
	today := s.now()
	if len(loans) > limit {
		loans = loans[:limit]
		last := loans[len(loans)-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			Code:      last.LoanCode,
		})
	}
	page.Loans = make([]LoanView, 0, len(loans))
	for _, loan := range loans {
		page.Loans = append(page.Loans, NewLoanView(loan, today))
	}
	return page, nil
}

func (s *service) Dashboard(ctx context.Context) (*DashboardSummary, error) {
	today := s.now()

	pending, err := s.repo.CountByStatus(ctx, enums.LoanStatusPending)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count pending loans")
	}
	active, err := s.repo.CountByStatus(ctx, enums.LoanStatusApproved)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count active loans")
	}
	returned, err := s.repo.CountByStatus(ctx, enums.LoanStatusReturned)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count returned loans")
	}
	overdue, err := s.repo.CountOverdue(ctx, truncateDay(today))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count overdue loans")
	}
	attention, err := s.repo.ListForDashboard(ctx, dashboardAttentionLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list dashboard loans")
	}

	summary := &DashboardSummary{
		PendingCount:  pending,
		ActiveCount:   active,
		OverdueCount:  overdue,
		ReturnedCount: returned,
		Attention:     make([]LoanView, 0, len(attention)),
	}
	for _, loan := range attention {
		summary.Attention = append(summary.Attention, NewLoanView(loan, today))
	}
	return summary, nil
}

// CountActiveByItem reports loans still holding or requesting the item. The
// inventory service consults it before deleting items.
func (s *service) CountActiveByItem(ctx context.Context, itemCode int) (int64, error) {
	return s.repo.CountActiveByItem(ctx, itemCode)
}

// checkBookingOverlap rejects an approval whose booking window collides with
// an already approved booking of the same building.
func (s *service) checkBookingOverlap(ctx context.Context, repo Repository, candidate *models.Loan) error {
	approved, err := repo.ListApprovedByItem(ctx, candidate.ItemCode)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list approved bookings")
	}
	for i := range approved {
		if bookingsOverlap(candidate, &approved[i]) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "booking window overlaps an approved booking").
				WithDetails(map[string]any{
					"loan_code":        candidate.LoanCode,
					"conflicting_loan": approved[i].LoanCode,
				})
		}
	}
	return nil
}

func bookingsOverlap(a, b *models.Loan) bool {
	aStart, aEnd := truncateDay(a.RequestDate), truncateDay(a.ScheduledReturnDate)
	bStart, bEnd := truncateDay(b.RequestDate), truncateDay(b.ScheduledReturnDate)
	if aEnd.Before(bStart) || bEnd.Before(aStart) {
		return false
	}
	// Same days: compare time-of-day windows. A booking without a window
	// holds the whole day.
	if a.StartTime == nil || a.EndTime == nil || b.StartTime == nil || b.EndTime == nil {
		return true
	}
	return *a.StartTime < *b.EndTime && *b.StartTime < *a.EndTime
}

func (s *service) lockLoan(ctx context.Context, repo Repository, loanCode string) (*models.Loan, error) {
	loan, err := repo.FindByCodeForUpdate(ctx, loanCode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "loan not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find loan")
	}
	return loan, nil
}

func (s *service) findLoan(ctx context.Context, loanCode string) (*models.Loan, error) {
	loan, err := s.repo.FindByCode(ctx, loanCode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "loan not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find loan")
	}
	return loan, nil
}

// transition wraps a lifecycle transition with duration and outcome metrics.
func (s *service) transition(ctx context.Context, name string, fn func() (*models.Loan, error)) (*models.Loan, error) {
	start := time.Now()
	loan, err := fn()
	s.metrics.ObserveDuration(name, time.Since(start))
	if err != nil {
		reason := string(pkgerrors.CodeInternal)
		if typed := pkgerrors.As(err); typed != nil {
			reason = string(typed.Code())
		}
		s.metrics.IncFailure(name, reason)
		return nil, err
	}
	s.metrics.IncSuccess(name)
	return loan, nil
}

func transitionConflict(from, to enums.LoanStatus) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot move a %s loan to %s", from, to)).
		WithDetails(map[string]any{"from": from, "to": to})
}

func validateTimeWindow(start, end *string) error {
	if start == nil || end == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "building bookings require a start and end time")
	}
	for _, value := range []string{*start, *end} {
		if _, err := time.Parse("15:04", value); err != nil {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid time %q, expected HH:MM", value))
		}
	}
	if *start >= *end {
		return pkgerrors.New(pkgerrors.CodeValidation, "start time must be before end time")
	}
	return nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func ptr[T any](v T) *T {
	return &v
}
