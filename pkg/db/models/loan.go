package models

import (
	"time"

	"github.com/poltekatipdg/sipbmn-backend/pkg/enums"
)

// Loan is a permanent audit record of one borrowing transaction. Status is
// owned by the lifecycle engine; loans are never deleted.
type Loan struct {
	LoanCode     string `gorm:"column:loan_code;primaryKey"`
	ItemCode     int    `gorm:"column:item_code;not null;index"`
	BorrowerID   string `gorm:"column:borrower_id;not null;index"`
	BorrowerName string `gorm:"column:borrower_name;not null"`

	// Denormalized for document rendering; loans outlive item edits.
	ItemName     string             `gorm:"column:item_name;not null"`
	ItemCategory enums.ItemCategory `gorm:"column:item_category;type:text;not null"`

	RequestedQuantity   int       `gorm:"column:requested_quantity;not null"`
	RequestDate         time.Time `gorm:"column:request_date;not null"`
	ScheduledReturnDate time.Time `gorm:"column:scheduled_return_date;not null"`

	// Time-of-day window, only set for BUILDING bookings (HH:MM).
	StartTime *string `gorm:"column:start_time"`
	EndTime   *string `gorm:"column:end_time"`

	Status             enums.LoanStatus `gorm:"column:status;type:text;not null;index"`
	ApproverName       *string          `gorm:"column:approver_name"`
	ApproverIdentifier *string          `gorm:"column:approver_identifier"`

	ActualReturnDate *time.Time           `gorm:"column:actual_return_date"`
	ReturnCondition  *enums.ItemCondition `gorm:"column:return_condition;type:text"`
	ReturnNote       *string              `gorm:"column:return_note"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// OverdueAt reports whether the loan is overdue relative to the given day.
// Derived on every read, never stored.
func (l Loan) OverdueAt(today time.Time) bool {
	return l.Status == enums.LoanStatusApproved && l.ScheduledReturnDate.Before(truncateToDay(today))
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
