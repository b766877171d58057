package loans

import (
	"bytes"
	"context"
	"encoding/csv"
	"strconv"
	"time"

	"github.com/poltekatipdg/sipbmn-backend/pkg/db/models"
	"github.com/poltekatipdg/sipbmn-backend/pkg/enums"
	pkgerrors "github.com/poltekatipdg/sipbmn-backend/pkg/errors"
	"github.com/poltekatipdg/sipbmn-backend/pkg/types"
)

var exportHeader = []string{
	"loan_code",
	"item_code",
	"item_name",
	"item_category",
	"borrower_id",
	"borrower_name",
	"requested_quantity",
	"request_date",
	"scheduled_return_date",
	"start_time",
	"end_time",
	"status",
	"approver_name",
	"actual_return_date",
	"return_condition",
	"return_note",
	"overdue",
}

// ExportCSV renders every loan matching the filter as a CSV report.
func (s *service) ExportCSV(ctx context.Context, actor types.Actor, filter ListFilter) ([]byte, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}

	loans, err := s.repo.ListAll(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list loans for export")
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write(exportHeader); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "write export header")
	}

	today := s.now()
	for _, loan := range loans {
		if err := writer.Write(exportRow(loan, today)); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "write export row")
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "flush export")
	}
	return buf.Bytes(), nil
}

func exportRow(loan models.Loan, today time.Time) []string {
	return []string{
		loan.LoanCode,
		strconv.Itoa(loan.ItemCode),
		loan.ItemName,
		loan.ItemCategory.String(),
		loan.BorrowerID,
		loan.BorrowerName,
		strconv.Itoa(loan.RequestedQuantity),
		formatDay(&loan.RequestDate),
		formatDay(&loan.ScheduledReturnDate),
		derefOr(loan.StartTime, ""),
		derefOr(loan.EndTime, ""),
		loan.Status.String(),
		derefOr(loan.ApproverName, ""),
		formatDay(loan.ActualReturnDate),
		conditionOr(loan.ReturnCondition),
		derefOr(loan.ReturnNote, ""),
		strconv.FormatBool(loan.OverdueAt(today)),
	}
}

func formatDay(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func derefOr(value *string, fallback string) string {
	if value == nil {
		return fallback
	}
	return *value
}

func conditionOr(value *enums.ItemCondition) string {
	if value == nil {
		return ""
	}
	return value.String()
}
