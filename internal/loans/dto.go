package loans

import (
	"time"

	"github.com/poltekatipdg/sipbmn-backend/pkg/db/models"
	"github.com/poltekatipdg/sipbmn-backend/pkg/enums"
)

// SubmitRequestInput captures what a borrower supplies when asking for an
// item. The request date is not part of it; the engine stamps its own clock.
type SubmitRequestInput struct {
	ItemCode            int
	Quantity            int
	ScheduledReturnDate time.Time
	StartTime           *string
	EndTime             *string
}

// ReturnInput captures the condition assessment recorded at hand-back.
type ReturnInput struct {
	Condition enums.ItemCondition
	Note      string
}

// LoanView is the API representation of a loan. Overdue is derived per read.
type LoanView struct {
	LoanCode            string               `json:"loanCode"`
	ItemCode            int                  `json:"itemCode"`
	ItemName            string               `json:"itemName"`
	ItemCategory        enums.ItemCategory   `json:"itemCategory"`
	BorrowerID          string               `json:"borrowerId"`
	BorrowerName        string               `json:"borrowerName"`
	RequestedQuantity   int                  `json:"requestedQuantity"`
	RequestDate         time.Time            `json:"requestDate"`
	ScheduledReturnDate time.Time            `json:"scheduledReturnDate"`
	StartTime           *string              `json:"startTime,omitempty"`
	EndTime             *string              `json:"endTime,omitempty"`
	Status              enums.LoanStatus     `json:"status"`
	Overdue             bool                 `json:"overdue"`
	ApproverName        *string              `json:"approverName,omitempty"`
	ApproverIdentifier  *string              `json:"approverIdentifier,omitempty"`
	ActualReturnDate    *time.Time           `json:"actualReturnDate,omitempty"`
	ReturnCondition     *enums.ItemCondition `json:"returnCondition,omitempty"`
	ReturnNote          *string              `json:"returnNote,omitempty"`
	CreatedAt           time.Time            `json:"createdAt"`
	UpdatedAt           time.Time            `json:"updatedAt"`
}

// NewLoanView maps a stored loan onto its API shape, deriving overdue against
// the provided day.
func NewLoanView(loan models.Loan, today time.Time) LoanView {
	return LoanView{
		LoanCode:            loan.LoanCode,
		ItemCode:            loan.ItemCode,
		ItemName:            loan.ItemName,
		ItemCategory:        loan.ItemCategory,
		BorrowerID:          loan.BorrowerID,
		BorrowerName:        loan.BorrowerName,
		RequestedQuantity:   loan.RequestedQuantity,
		RequestDate:         loan.RequestDate,
		ScheduledReturnDate: loan.ScheduledReturnDate,
		StartTime:           loan.StartTime,
		EndTime:             loan.EndTime,
		Status:              loan.Status,
		Overdue:             loan.OverdueAt(today),
		ApproverName:        loan.ApproverName,
		ApproverIdentifier:  loan.ApproverIdentifier,
		ActualReturnDate:    loan.ActualReturnDate,
		ReturnCondition:     loan.ReturnCondition,
		ReturnNote:          loan.ReturnNote,
		CreatedAt:           loan.CreatedAt,
		UpdatedAt:           loan.UpdatedAt,
	}
}

// Page is one cursor page of loans.
type Page struct {
	Loans      []LoanView `json:"loans"`
	NextCursor string     `json:"nextCursor,omitempty"`
}

// DashboardSummary powers the admin triage screen: queue counts plus the loans
// that need attention soonest.
type DashboardSummary struct {
	PendingCount  int64      `json:"pendingCount"`
	ActiveCount   int64      `json:"activeCount"`
	OverdueCount  int64      `json:"overdueCount"`
	ReturnedCount int64      `json:"returnedCount"`
	Attention     []LoanView `json:"attention"`
}
