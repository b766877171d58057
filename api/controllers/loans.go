package controllers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/poltekatipdg/sipbmn-backend/api/middleware"
	"github.com/poltekatipdg/sipbmn-backend/api/responses"
	"github.com/poltekatipdg/sipbmn-backend/api/validators"
	"github.com/poltekatipdg/sipbmn-backend/internal/documents"
	loansvc "github.com/poltekatipdg/sipbmn-backend/internal/loans"
	"github.com/poltekatipdg/sipbmn-backend/pkg/db/models"
	"github.com/poltekatipdg/sipbmn-backend/pkg/enums"
	pkgerrors "github.com/poltekatipdg/sipbmn-backend/pkg/errors"
	"github.com/poltekatipdg/sipbmn-backend/pkg/logger"
	"github.com/poltekatipdg/sipbmn-backend/pkg/pagination"
	"github.com/poltekatipdg/sipbmn-backend/pkg/types"
)

const requestDateLayout = "2006-01-02"

type submitLoanRequest struct {
	ItemCode            int     `json:"itemCode" validate:"required,min=1"`
	Quantity            int     `json:"quantity" validate:"required,min=1"`
	ScheduledReturnDate string  `json:"scheduledReturnDate" validate:"required"`
	StartTime           *string `json:"startTime,omitempty"`
	EndTime             *string `json:"endTime,omitempty"`
}

type returnLoanRequest struct {
	Condition string `json:"condition" validate:"required"`
	Note      string `json:"note,omitempty"`
}

// SubmitLoan accepts a borrower's loan request.
func SubmitLoan(svc loansvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "loan service unavailable"))
			return
		}

		var body submitLoanRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := loansvc.SubmitRequestInput{
			ItemCode:  body.ItemCode,
			Quantity:  body.Quantity,
			StartTime: body.StartTime,
			EndTime:   body.EndTime,
		}
		scheduled, err := parseDate(body.ScheduledReturnDate, "scheduledReturnDate")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.ScheduledReturnDate = scheduled

		actor := middleware.ActorFromContext(r.Context())
		loan, err := svc.SubmitRequest(r.Context(), actor, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, loansvc.NewLoanView(*loan, svc.Now()))
	}
}

// ListLoans returns a cursor page of loans; borrowers only see their own.
func ListLoans(svc loansvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "loan service unavailable"))
			return
		}

		filter, err := loanFilterFromQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor := middleware.ActorFromContext(r.Context())
		page, err := svc.ListLoans(r.Context(), actor, filter, pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, page)
	}
}

// GetLoan returns a single loan scoped to the caller.
func GetLoan(svc loansvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "loan service unavailable"))
			return
		}

		actor := middleware.ActorFromContext(r.Context())
		loan, err := svc.GetLoan(r.Context(), actor, chi.URLParam(r, "loanCode"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, loansvc.NewLoanView(*loan, svc.Now()))
	}
}

// LoanDashboard serves the admin triage summary.
func LoanDashboard(svc loansvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "loan service unavailable"))
			return
		}

		summary, err := svc.Dashboard(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, summary)
	}
}

// ExportLoans streams the filtered loan ledger as a CSV download.
func ExportLoans(svc loansvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "loan service unavailable"))
			return
		}

		filter, err := loanFilterFromQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor := middleware.ActorFromContext(r.Context())
		data, err := svc.ExportCSV(r.Context(), actor, filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filename := fmt.Sprintf("loans-%s.csv", svc.Now().Format("20060102"))
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(data); err != nil && logg != nil {
			logg.Error(r.Context(), "write csv export", err)
		}
	}
}

// ApproveLoan moves a pending loan to APPROVED, reserving stock.
func ApproveLoan(svc loansvc.Service, logg *logger.Logger) http.HandlerFunc {
	return loanTransition(svc, logg, func(ctx context.Context, actor types.Actor, loanCode string) (*models.Loan, error) {
		return svc.Approve(ctx, actor, loanCode)
	})
}

// RejectLoan moves a pending loan to REJECTED without touching stock.
func RejectLoan(svc loansvc.Service, logg *logger.Logger) http.HandlerFunc {
	return loanTransition(svc, logg, func(ctx context.Context, actor types.Actor, loanCode string) (*models.Loan, error) {
		return svc.Reject(ctx, actor, loanCode)
	})
}

// ReturnLoan records the hand-back of an approved loan.
func ReturnLoan(svc loansvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "loan service unavailable"))
			return
		}

		var body returnLoanRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		condition, err := enums.ParseItemCondition(strings.TrimSpace(body.Condition))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid condition"))
			return
		}

		actor := middleware.ActorFromContext(r.Context())
		loan, err := svc.Return(r.Context(), actor, chi.URLParam(r, "loanCode"), loansvc.ReturnInput{
			Condition: condition,
			Note:      body.Note,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, loansvc.NewLoanView(*loan, svc.Now()))
	}
}

// RenderLoanDocument produces the printable letter for a loan.
func RenderLoanDocument(svc documents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "document service unavailable"))
			return
		}

		docType, err := enums.ParseDocumentType(strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("type"))))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid document type"))
			return
		}

		actor := middleware.ActorFromContext(r.Context())
		doc, err := svc.Render(r.Context(), actor, chi.URLParam(r, "loanCode"), docType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, doc)
	}
}

func loanTransition(
	svc loansvc.Service,
	logg *logger.Logger,
	transition func(ctx context.Context, actor types.Actor, loanCode string) (*models.Loan, error),
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "loan service unavailable"))
			return
		}

		actor := middleware.ActorFromContext(r.Context())
		loan, err := transition(r.Context(), actor, chi.URLParam(r, "loanCode"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, loansvc.NewLoanView(*loan, svc.Now()))
	}
}

func loanFilterFromQuery(r *http.Request) (loansvc.ListFilter, error) {
	filter := loansvc.ListFilter{
		Search: strings.TrimSpace(r.URL.Query().Get("q")),
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, err := enums.ParseLoanStatus(raw)
		if err != nil {
			return loansvc.ListFilter{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
		}
		filter.Status = &status
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("itemCode")); raw != "" {
		itemCode, err := strconv.Atoi(raw)
		if err != nil || itemCode < 1 {
			return loansvc.ListFilter{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid item code").WithDetails(map[string]any{"item_code": raw})
		}
		filter.ItemCode = &itemCode
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("borrowerId")); raw != "" {
		filter.BorrowerID = raw
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("from")); raw != "" {
		from, err := parseDate(raw, "from")
		if err != nil {
			return loansvc.ListFilter{}, err
		}
		filter.From = &from
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("to")); raw != "" {
		parsed, err := parseDate(raw, "to")
		if err != nil {
			return loansvc.ListFilter{}, err
		}
		// "to" names a day, so include the whole of it.
		to := parsed.AddDate(0, 0, 1)
		filter.To = &to
	}
	return filter, nil
}

func parseDate(value, field string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if t, err := time.Parse(requestDateLayout, trimmed); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, trimmed); err == nil {
		return t, nil
	}
	return time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid date").WithDetails(map[string]any{"field": field})
}
