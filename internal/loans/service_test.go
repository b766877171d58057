package loans

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/poltekatipdg/sipbmn-backend/internal/inventory"
	"github.com/poltekatipdg/sipbmn-backend/pkg/db/models"
	"github.com/poltekatipdg/sipbmn-backend/pkg/enums"
	pkgerrors "github.com/poltekatipdg/sipbmn-backend/pkg/errors"
	"github.com/poltekatipdg/sipbmn-backend/pkg/logger"
	"github.com/poltekatipdg/sipbmn-backend/pkg/pagination"
	"github.com/poltekatipdg/sipbmn-backend/pkg/types"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

var testDay = time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

type stubLoanRepo struct {
	loans map[string]*models.Loan
	order []string
}

func newStubLoanRepo(loans ...*models.Loan) *stubLoanRepo {
	repo := &stubLoanRepo{loans: map[string]*models.Loan{}}
	for _, loan := range loans {
		repo.loans[loan.LoanCode] = loan
		repo.order = append(repo.order, loan.LoanCode)
	}
	return repo
}

func (r *stubLoanRepo) WithTx(tx *gorm.DB) Repository { return r }

func (r *stubLoanRepo) Create(ctx context.Context, loan *models.Loan) error {
	if loan.CreatedAt.IsZero() {
		loan.CreatedAt = testDay
	}
	r.loans[loan.LoanCode] = loan
	r.order = append(r.order, loan.LoanCode)
	return nil
}

func (r *stubLoanRepo) Save(ctx context.Context, loan *models.Loan) error {
	r.loans[loan.LoanCode] = loan
	return nil
}

func (r *stubLoanRepo) FindByCode(ctx context.Context, loanCode string) (*models.Loan, error) {
	loan, ok := r.loans[loanCode]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *loan
	return &copied, nil
}

func (r *stubLoanRepo) FindByCodeForUpdate(ctx context.Context, loanCode string) (*models.Loan, error) {
	return r.FindByCode(ctx, loanCode)
}

func (r *stubLoanRepo) LastLoanCode(ctx context.Context) (string, error) {
	codes := make([]string, 0, len(r.loans))
	for code := range r.loans {
		codes = append(codes, code)
	}
	if len(codes) == 0 {
		return "", nil
	}
	sort.Slice(codes, func(i, j int) bool {
		if len(codes[i]) != len(codes[j]) {
			return len(codes[i]) < len(codes[j])
		}
		return codes[i] < codes[j]
	})
	return codes[len(codes)-1], nil
}

func (r *stubLoanRepo) matches(loan *models.Loan, filter ListFilter) bool {
	if filter.Status != nil && loan.Status != *filter.Status {
		return false
	}
	if filter.BorrowerID != "" && loan.BorrowerID != filter.BorrowerID {
		return false
	}
	if filter.ItemCode != nil && loan.ItemCode != *filter.ItemCode {
		return false
	}
	return true
}

func (r *stubLoanRepo) List(ctx context.Context, filter ListFilter, limit int, cursor *pagination.Cursor) ([]models.Loan, error) {
	var out []models.Loan
	for i := len(r.order) - 1; i >= 0 && len(out) < limit; i-- {
		loan := r.loans[r.order[i]]
		if r.matches(loan, filter) {
			out = append(out, *loan)
		}
	}
	return out, nil
}

func (r *stubLoanRepo) ListAll(ctx context.Context, filter ListFilter) ([]models.Loan, error) {
	return r.List(ctx, filter, len(r.order), nil)
}

func (r *stubLoanRepo) ListForDashboard(ctx context.Context, limit int) ([]models.Loan, error) {
	var out []models.Loan
	for _, code := range r.order {
		loan := r.loans[code]
		if loan.Status == enums.LoanStatusPending || loan.Status == enums.LoanStatusApproved {
			out = append(out, *loan)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *stubLoanRepo) ListApprovedByItem(ctx context.Context, itemCode int) ([]models.Loan, error) {
	var out []models.Loan
	for _, code := range r.order {
		loan := r.loans[code]
		if loan.ItemCode == itemCode && loan.Status == enums.LoanStatusApproved {
			out = append(out, *loan)
		}
	}
	return out, nil
}

func (r *stubLoanRepo) CountByStatus(ctx context.Context, status enums.LoanStatus) (int64, error) {
	var count int64
	for _, loan := range r.loans {
		if loan.Status == status {
			count++
		}
	}
	return count, nil
}

func (r *stubLoanRepo) CountOverdue(ctx context.Context, before time.Time) (int64, error) {
	var count int64
	for _, loan := range r.loans {
		if loan.Status == enums.LoanStatusApproved && loan.ScheduledReturnDate.Before(before) {
			count++
		}
	}
	return count, nil
}

func (r *stubLoanRepo) CountActiveByItem(ctx context.Context, itemCode int) (int64, error) {
	var count int64
	for _, loan := range r.loans {
		if loan.ItemCode == itemCode && !loan.Status.IsTerminal() {
			count++
		}
	}
	return count, nil
}

type stubLedger struct {
	items    map[int]*models.Item
	reserved int
	released int
}

func newStubLedger(items ...*models.Item) *stubLedger {
	ledger := &stubLedger{items: map[int]*models.Item{}}
	for _, item := range items {
		ledger.items[item.ItemCode] = item
	}
	return ledger
}

func (l *stubLedger) WithTx(tx *gorm.DB) inventory.Ledger { return l }

func (l *stubLedger) Reserve(ctx context.Context, itemCode, quantity int) (*models.Item, error) {
	item, ok := l.items[itemCode]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
	}
	if quantity > item.AvailableQuantity {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock, "requested quantity exceeds available stock")
	}
	item.AvailableQuantity -= quantity
	l.reserved += quantity
	return item, nil
}

func (l *stubLedger) Release(ctx context.Context, itemCode, quantity int) (*models.Item, error) {
	item, ok := l.items[itemCode]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
	}
	item.AvailableQuantity += quantity
	if item.AvailableQuantity > item.TotalQuantity {
		item.AvailableQuantity = item.TotalQuantity
	}
	l.released += quantity
	return item, nil
}

type stubItemReader struct {
	items map[int]*models.Item
}

func (r stubItemReader) GetItem(ctx context.Context, itemCode int) (*models.Item, error) {
	item, ok := r.items[itemCode]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
	}
	copied := *item
	return &copied, nil
}

type stubTxRunner struct{}

func (stubTxRunner) Transaction(fc func(tx *gorm.DB) error, opts ...*sql.TxOptions) error {
	return fc(nil)
}

type fixture struct {
	svc    Service
	repo   *stubLoanRepo
	ledger *stubLedger
}

func newFixture(t *testing.T, items []*models.Item, loans ...*models.Loan) *fixture {
	t.Helper()
	repo := newStubLoanRepo(loans...)
	ledger := newStubLedger(items...)
	reader := stubItemReader{items: ledger.items}
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled, Output: io.Discard})

	svc, err := NewService(repo, ledger, reader, stubTxRunner{}, logg, nil, func() time.Time { return testDay })
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &fixture{svc: svc, repo: repo, ledger: ledger}
}

func projector() *models.Item {
	return &models.Item{
		ItemCode:          1001,
		Name:              "Proyektor Epson",
		TotalQuantity:     5,
		AvailableQuantity: 5,
		Condition:         enums.ItemConditionGood,
		Visibility:        enums.ItemVisibilityVisible,
		Category:          enums.ItemCategoryElectronic,
	}
}

func meetingRoom() *models.Item {
	return &models.Item{
		ItemCode:          2001,
		Name:              "Aula Gedung B",
		TotalQuantity:     1,
		AvailableQuantity: 1,
		Condition:         enums.ItemConditionGood,
		Visibility:        enums.ItemVisibilityVisible,
		Category:          enums.ItemCategoryBuilding,
	}
}

func adminActor() types.Actor {
	return types.Actor{ID: "A001", Name: "Petugas BMN", IdentifierNumber: "19800101", Role: enums.UserRoleAdmin}
}

func borrowerActor() types.Actor {
	return types.Actor{ID: "U001", Name: "Rina", Role: enums.UserRoleBorrower}
}

func pendingLoan(code string, item *models.Item, quantity int) *models.Loan {
	return &models.Loan{
		LoanCode:            code,
		ItemCode:            item.ItemCode,
		BorrowerID:          "U001",
		BorrowerName:        "Rina",
		ItemName:            item.Name,
		ItemCategory:        item.Category,
		RequestedQuantity:   quantity,
		RequestDate:         testDay,
		ScheduledReturnDate: testDay.AddDate(0, 0, 3),
		Status:              enums.LoanStatusPending,
		CreatedAt:           testDay,
	}
}

func TestSubmitRequestCreatesPendingLoan(t *testing.T) {
	fix := newFixture(t, []*models.Item{projector()})

	loan, err := fix.svc.SubmitRequest(context.Background(), borrowerActor(), SubmitRequestInput{
		ItemCode:            1001,
		Quantity:            2,
		ScheduledReturnDate: testDay.AddDate(0, 0, 3),
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if loan.Status != enums.LoanStatusPending {
		t.Fatalf("expected PENDING got %s", loan.Status)
	}
	if loan.LoanCode != "P0001" {
		t.Fatalf("expected code P0001 got %s", loan.LoanCode)
	}
	if loan.ItemName != "Proyektor Epson" || loan.ItemCategory != enums.ItemCategoryElectronic {
		t.Fatalf("item fields not denormalized: %+v", loan)
	}
	if loan.BorrowerID != "U001" || loan.BorrowerName != "Rina" {
		t.Fatalf("borrower fields not set: %+v", loan)
	}
	if fix.ledger.reserved != 0 {
		t.Fatalf("submit must not reserve stock, reserved=%d", fix.ledger.reserved)
	}
}

func TestSubmitRequestSequencesCodes(t *testing.T) {
	fix := newFixture(t, []*models.Item{projector()}, pendingLoan("P0007", projector(), 1))

	loan, err := fix.svc.SubmitRequest(context.Background(), borrowerActor(), SubmitRequestInput{
		ItemCode:            1001,
		Quantity:            1,
		ScheduledReturnDate: testDay.AddDate(0, 0, 1),
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if loan.LoanCode != "P0008" {
		t.Fatalf("expected P0008 got %s", loan.LoanCode)
	}
}

func TestSubmitRequestValidation(t *testing.T) {
	fix := newFixture(t, []*models.Item{projector(), meetingRoom()})
	start, end := "10:00", "12:00"
	badEnd := "09:00"

	cases := []struct {
		name  string
		input SubmitRequestInput
	}{
		{"zero quantity", SubmitRequestInput{ItemCode: 1001, Quantity: 0, ScheduledReturnDate: testDay}},
		{"return before today", SubmitRequestInput{ItemCode: 1001, Quantity: 1, ScheduledReturnDate: testDay.AddDate(0, 0, -1)}},
		{"quantity above total", SubmitRequestInput{ItemCode: 1001, Quantity: 6, ScheduledReturnDate: testDay}},
		{"missing return date", SubmitRequestInput{ItemCode: 1001, Quantity: 1}},
		{"building without window", SubmitRequestInput{ItemCode: 2001, Quantity: 1, ScheduledReturnDate: testDay}},
		{"building inverted window", SubmitRequestInput{ItemCode: 2001, Quantity: 1, ScheduledReturnDate: testDay, StartTime: &start, EndTime: &badEnd}},
		{"building malformed time", SubmitRequestInput{ItemCode: 2001, Quantity: 1, ScheduledReturnDate: testDay, StartTime: ptr("25:99"), EndTime: &end}},
	}
	for _, tc := range cases {
		_, err := fix.svc.SubmitRequest(context.Background(), borrowerActor(), tc.input)
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("%s: expected VALIDATION_ERROR, got %v", tc.name, err)
		}
	}
}

func TestSubmitRequestStampsOwnRequestDate(t *testing.T) {
	fix := newFixture(t, []*models.Item{projector()})

	loan, err := fix.svc.SubmitRequest(context.Background(), borrowerActor(), SubmitRequestInput{
		ItemCode:            1001,
		Quantity:            1,
		ScheduledReturnDate: testDay.AddDate(0, 0, 3),
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !loan.RequestDate.Equal(testDay) {
		t.Fatalf("request date must come from the engine clock, got %v", loan.RequestDate)
	}
}

func TestSubmitRequestRejectsDamagedItem(t *testing.T) {
	item := projector()
	item.Condition = enums.ItemConditionDamaged
	fix := newFixture(t, []*models.Item{item})

	_, err := fix.svc.SubmitRequest(context.Background(), borrowerActor(), SubmitRequestInput{
		ItemCode:            1001,
		Quantity:            1,
		ScheduledReturnDate: testDay.AddDate(0, 0, 1),
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected VALIDATION_ERROR for damaged item, got %v", err)
	}
}

func TestSubmitRequestInsufficientAvailability(t *testing.T) {
	item := projector()
	item.AvailableQuantity = 1
	fix := newFixture(t, []*models.Item{item})

	_, err := fix.svc.SubmitRequest(context.Background(), borrowerActor(), SubmitRequestInput{
		ItemCode:            1001,
		Quantity:            4,
		ScheduledReturnDate: testDay.AddDate(0, 0, 1),
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("expected INSUFFICIENT_STOCK, got %v", err)
	}
}

func TestSubmitRequestBuildingNeedsOneAvailable(t *testing.T) {
	room := meetingRoom()
	room.AvailableQuantity = 0
	fix := newFixture(t, []*models.Item{room})
	start, end := "09:00", "11:00"

	_, err := fix.svc.SubmitRequest(context.Background(), borrowerActor(), SubmitRequestInput{
		ItemCode:            2001,
		Quantity:            1,
		ScheduledReturnDate: testDay,
		StartTime:           &start,
		EndTime:             &end,
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("expected INSUFFICIENT_STOCK for fully booked building, got %v", err)
	}
}

func TestSubmitRequestHiddenItemNotFoundForBorrower(t *testing.T) {
	item := projector()
	item.Visibility = enums.ItemVisibilityHidden
	fix := newFixture(t, []*models.Item{item})

	_, err := fix.svc.SubmitRequest(context.Background(), borrowerActor(), SubmitRequestInput{
		ItemCode:            1001,
		Quantity:            1,
		ScheduledReturnDate: testDay.AddDate(0, 0, 1),
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestSubmitRequestDropsWindowForUnitItems(t *testing.T) {
	fix := newFixture(t, []*models.Item{projector()})
	start, end := "08:00", "10:00"

	loan, err := fix.svc.SubmitRequest(context.Background(), borrowerActor(), SubmitRequestInput{
		ItemCode:            1001,
		Quantity:            1,
		ScheduledReturnDate: testDay.AddDate(0, 0, 1),
		StartTime:           &start,
		EndTime:             &end,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if loan.StartTime != nil || loan.EndTime != nil {
		t.Fatal("unit loans must not carry a time window")
	}
}

func TestApproveReservesStock(t *testing.T) {
	item := projector()
	fix := newFixture(t, []*models.Item{item}, pendingLoan("P0001", item, 3))

	loan, err := fix.svc.Approve(context.Background(), adminActor(), "P0001")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if loan.Status != enums.LoanStatusApproved {
		t.Fatalf("expected APPROVED got %s", loan.Status)
	}
	if loan.ApproverName == nil || *loan.ApproverName != "Petugas BMN" {
		t.Fatalf("approver not recorded: %+v", loan)
	}
	if item.AvailableQuantity != 2 {
		t.Fatalf("expected availability 2 got %d", item.AvailableQuantity)
	}
}

func TestApproveInsufficientStock(t *testing.T) {
	item := projector()
	item.AvailableQuantity = 1
	fix := newFixture(t, []*models.Item{item}, pendingLoan("P0001", item, 3))

	_, err := fix.svc.Approve(context.Background(), adminActor(), "P0001")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("expected INSUFFICIENT_STOCK, got %v", err)
	}
	if fix.repo.loans["P0001"].Status != enums.LoanStatusPending {
		t.Fatalf("loan must stay PENDING, got %s", fix.repo.loans["P0001"].Status)
	}
}

func TestApproveContendedSingleWinner(t *testing.T) {
	item := projector()
	item.AvailableQuantity = 1
	fix := newFixture(t, []*models.Item{item},
		pendingLoan("P0001", item, 1),
		pendingLoan("P0002", item, 1),
	)

	// Two pending requests compete for the last unit; only the first approval
	// may debit it.
	if _, err := fix.svc.Approve(context.Background(), adminActor(), "P0001"); err != nil {
		t.Fatalf("first approve: %v", err)
	}
	if item.AvailableQuantity != 0 {
		t.Fatalf("expected availability 0 got %d", item.AvailableQuantity)
	}

	_, err := fix.svc.Approve(context.Background(), adminActor(), "P0002")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("expected INSUFFICIENT_STOCK for the loser, got %v", err)
	}
	if fix.repo.loans["P0002"].Status != enums.LoanStatusPending {
		t.Fatalf("losing loan must stay PENDING, got %s", fix.repo.loans["P0002"].Status)
	}
	if item.AvailableQuantity != 0 {
		t.Fatalf("losing approval must not touch stock, got %d", item.AvailableQuantity)
	}
}

func TestApproveRequiresAdmin(t *testing.T) {
	item := projector()
	fix := newFixture(t, []*models.Item{item}, pendingLoan("P0001", item, 1))

	_, err := fix.svc.Approve(context.Background(), borrowerActor(), "P0001")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}
}

func TestApproveNonPendingConflicts(t *testing.T) {
	item := projector()
	loan := pendingLoan("P0001", item, 1)
	loan.Status = enums.LoanStatusRejected
	fix := newFixture(t, []*models.Item{item}, loan)

	_, err := fix.svc.Approve(context.Background(), adminActor(), "P0001")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected STATE_CONFLICT, got %v", err)
	}
}

func TestApproveBuildingOverlapConflicts(t *testing.T) {
	room := meetingRoom()
	room.AvailableQuantity = 1
	booked := pendingLoan("P0001", room, 1)
	booked.Status = enums.LoanStatusApproved
	booked.StartTime = ptr("09:00")
	booked.EndTime = ptr("12:00")

	overlapping := pendingLoan("P0002", room, 1)
	overlapping.StartTime = ptr("11:00")
	overlapping.EndTime = ptr("13:00")

	fix := newFixture(t, []*models.Item{room}, booked, overlapping)

	_, err := fix.svc.Approve(context.Background(), adminActor(), "P0002")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected STATE_CONFLICT, got %v", err)
	}
}

func TestApproveBuildingDisjointWindows(t *testing.T) {
	room := meetingRoom()
	room.TotalQuantity = 2
	room.AvailableQuantity = 2
	booked := pendingLoan("P0001", room, 1)
	booked.Status = enums.LoanStatusApproved
	booked.StartTime = ptr("08:00")
	booked.EndTime = ptr("10:00")

	later := pendingLoan("P0002", room, 1)
	later.StartTime = ptr("10:00")
	later.EndTime = ptr("12:00")

	fix := newFixture(t, []*models.Item{room}, booked, later)

	loan, err := fix.svc.Approve(context.Background(), adminActor(), "P0002")
	if err != nil {
		t.Fatalf("approve disjoint booking: %v", err)
	}
	if loan.Status != enums.LoanStatusApproved {
		t.Fatalf("expected APPROVED got %s", loan.Status)
	}
}

func TestRejectLeavesStockUntouched(t *testing.T) {
	item := projector()
	fix := newFixture(t, []*models.Item{item}, pendingLoan("P0001", item, 3))

	loan, err := fix.svc.Reject(context.Background(), adminActor(), "P0001")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if loan.Status != enums.LoanStatusRejected {
		t.Fatalf("expected REJECTED got %s", loan.Status)
	}
	if item.AvailableQuantity != 5 {
		t.Fatalf("reject must not touch stock, got %d", item.AvailableQuantity)
	}
	if fix.ledger.reserved != 0 || fix.ledger.released != 0 {
		t.Fatal("reject must not call the ledger")
	}
}

func TestReturnReleasesStock(t *testing.T) {
	item := projector()
	item.AvailableQuantity = 2
	loan := pendingLoan("P0001", item, 3)
	loan.Status = enums.LoanStatusApproved
	loan.ScheduledReturnDate = testDay.AddDate(0, 0, -1)
	fix := newFixture(t, []*models.Item{item}, loan)

	returned, err := fix.svc.Return(context.Background(), adminActor(), "P0001", ReturnInput{
		Condition: enums.ItemConditionGood,
	})
	if err != nil {
		t.Fatalf("return: %v", err)
	}
	if returned.Status != enums.LoanStatusReturned {
		t.Fatalf("expected RETURNED got %s", returned.Status)
	}
	if returned.ActualReturnDate == nil || !returned.ActualReturnDate.Equal(testDay) {
		t.Fatalf("actual return date not recorded: %+v", returned.ActualReturnDate)
	}
	if item.AvailableQuantity != 5 {
		t.Fatalf("expected availability restored to 5, got %d", item.AvailableQuantity)
	}
}

func TestReturnEarlyRequiresNote(t *testing.T) {
	item := projector()
	item.AvailableQuantity = 2
	loan := pendingLoan("P0001", item, 3)
	loan.Status = enums.LoanStatusApproved
	loan.ScheduledReturnDate = testDay.AddDate(0, 0, 5)
	fix := newFixture(t, []*models.Item{item}, loan)

	_, err := fix.svc.Return(context.Background(), adminActor(), "P0001", ReturnInput{
		Condition: enums.ItemConditionGood,
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeReturnNoteRequired {
		t.Fatalf("expected RETURN_NOTE_REQUIRED, got %v", err)
	}

	returned, err := fix.svc.Return(context.Background(), adminActor(), "P0001", ReturnInput{
		Condition: enums.ItemConditionGood,
		Note:      "kegiatan selesai lebih cepat",
	})
	if err != nil {
		t.Fatalf("return with note: %v", err)
	}
	if returned.ReturnNote == nil || *returned.ReturnNote != "kegiatan selesai lebih cepat" {
		t.Fatalf("note not recorded: %+v", returned.ReturnNote)
	}
}

func TestReturnPendingConflicts(t *testing.T) {
	item := projector()
	fix := newFixture(t, []*models.Item{item}, pendingLoan("P0001", item, 1))

	_, err := fix.svc.Return(context.Background(), adminActor(), "P0001", ReturnInput{
		Condition: enums.ItemConditionGood,
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected STATE_CONFLICT, got %v", err)
	}
}

func TestGetLoanScopedToBorrower(t *testing.T) {
	item := projector()
	mine := pendingLoan("P0001", item, 1)
	theirs := pendingLoan("P0002", item, 1)
	theirs.BorrowerID = "U999"
	fix := newFixture(t, []*models.Item{item}, mine, theirs)

	if _, err := fix.svc.GetLoan(context.Background(), borrowerActor(), "P0001"); err != nil {
		t.Fatalf("own loan: %v", err)
	}
	_, err := fix.svc.GetLoan(context.Background(), borrowerActor(), "P0002")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND for foreign loan, got %v", err)
	}
	if _, err := fix.svc.GetLoan(context.Background(), adminActor(), "P0002"); err != nil {
		t.Fatalf("admin must see every loan: %v", err)
	}
}

func TestListLoansForcesBorrowerScope(t *testing.T) {
	item := projector()
	mine := pendingLoan("P0001", item, 1)
	theirs := pendingLoan("P0002", item, 1)
	theirs.BorrowerID = "U999"
	fix := newFixture(t, []*models.Item{item}, mine, theirs)

	page, err := fix.svc.ListLoans(context.Background(), borrowerActor(), ListFilter{}, pagination.Params{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Loans) != 1 || page.Loans[0].LoanCode != "P0001" {
		t.Fatalf("borrower must only see own loans, got %+v", page.Loans)
	}
}

func TestListLoansNextCursor(t *testing.T) {
	item := projector()
	var loans []*models.Loan
	for i := 1; i <= 3; i++ {
		loan := pendingLoan(fmt.Sprintf("P%04d", i), item, 1)
		loan.CreatedAt = testDay.Add(time.Duration(i) * time.Minute)
		loans = append(loans, loan)
	}
	fix := newFixture(t, []*models.Item{item}, loans...)

	page, err := fix.svc.ListLoans(context.Background(), adminActor(), ListFilter{}, pagination.Params{Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Loans) != 2 {
		t.Fatalf("expected 2 loans got %d", len(page.Loans))
	}
	if page.NextCursor == "" {
		t.Fatal("expected next cursor for remaining page")
	}
	cursor, err := pagination.ParseCursor(page.NextCursor)
	if err != nil || cursor == nil {
		t.Fatalf("cursor must round trip: %v", err)
	}
}

func TestDashboardCounts(t *testing.T) {
	item := projector()
	pending := pendingLoan("P0001", item, 1)
	active := pendingLoan("P0002", item, 1)
	active.Status = enums.LoanStatusApproved
	overdue := pendingLoan("P0003", item, 1)
	overdue.Status = enums.LoanStatusApproved
	overdue.ScheduledReturnDate = testDay.AddDate(0, 0, -2)
	done := pendingLoan("P0004", item, 1)
	done.Status = enums.LoanStatusReturned
	fix := newFixture(t, []*models.Item{item}, pending, active, overdue, done)

	summary, err := fix.svc.Dashboard(context.Background())
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if summary.PendingCount != 1 || summary.ActiveCount != 2 || summary.OverdueCount != 1 || summary.ReturnedCount != 1 {
		t.Fatalf("unexpected counts: %+v", summary)
	}
	if len(summary.Attention) != 3 {
		t.Fatalf("expected 3 attention loans got %d", len(summary.Attention))
	}
	for _, view := range summary.Attention {
		if view.LoanCode == "P0003" && !view.Overdue {
			t.Fatal("overdue loan must be flagged in the attention list")
		}
	}
}

func TestExportCSV(t *testing.T) {
	item := projector()
	loan := pendingLoan("P0001", item, 2)
	loan.Status = enums.LoanStatusApproved
	loan.ScheduledReturnDate = testDay.AddDate(0, 0, -1)
	fix := newFixture(t, []*models.Item{item}, loan)

	data, err := fix.svc.ExportCSV(context.Background(), adminActor(), ListFilter{})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header plus one row, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "loan_code,item_code") {
		t.Fatalf("unexpected header: %s", lines[0])
	}
	if !strings.Contains(lines[1], "P0001") || !strings.Contains(lines[1], "true") {
		t.Fatalf("row missing code or overdue flag: %s", lines[1])
	}
}

func TestExportCSVRequiresAdmin(t *testing.T) {
	fix := newFixture(t, []*models.Item{projector()})

	_, err := fix.svc.ExportCSV(context.Background(), borrowerActor(), ListFilter{})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}
}

func TestNextLoanCode(t *testing.T) {
	cases := []struct {
		last string
		want string
	}{
		{"", "P0001"},
		{"P0001", "P0002"},
		{"P0099", "P0100"},
		{"P9999", "P10000"},
		{"garbage", "P0001"},
	}
	for _, tc := range cases {
		if got := nextLoanCode(tc.last); got != tc.want {
			t.Fatalf("nextLoanCode(%q) = %q, want %q", tc.last, got, tc.want)
		}
	}
}

func TestBookingsOverlap(t *testing.T) {
	base := func(start, end string, day time.Time) *models.Loan {
		return &models.Loan{
			RequestDate:         day,
			ScheduledReturnDate: day,
			StartTime:           &start,
			EndTime:             &end,
		}
	}

	a := base("09:00", "12:00", testDay)
	if !bookingsOverlap(a, base("11:00", "13:00", testDay)) {
		t.Fatal("expected overlap for intersecting windows")
	}
	if bookingsOverlap(a, base("12:00", "14:00", testDay)) {
		t.Fatal("touching windows must not overlap")
	}
	if bookingsOverlap(a, base("09:00", "12:00", testDay.AddDate(0, 0, 1))) {
		t.Fatal("different days must not overlap")
	}
	allDay := &models.Loan{RequestDate: testDay, ScheduledReturnDate: testDay}
	if !bookingsOverlap(a, allDay) {
		t.Fatal("windowless booking holds the whole day")
	}
}
