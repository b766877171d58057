package documents

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/poltekatipdg/sipbmn-backend/internal/letterconfig"
	"github.com/poltekatipdg/sipbmn-backend/pkg/db/models"
	"github.com/poltekatipdg/sipbmn-backend/pkg/enums"
	pkgerrors "github.com/poltekatipdg/sipbmn-backend/pkg/errors"
	"github.com/poltekatipdg/sipbmn-backend/pkg/types"
	"gorm.io/gorm"
)

var testDay = time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

type stubLoanReader struct {
	loans map[string]*models.Loan
}

func (r stubLoanReader) FindByCode(ctx context.Context, loanCode string) (*models.Loan, error) {
	loan, ok := r.loans[loanCode]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *loan
	return &copied, nil
}

type stubConfigService struct{}

func (stubConfigService) Get(ctx context.Context) (*models.LetterConfig, error) {
	defaults := letterconfig.Defaults()
	return &defaults, nil
}

func (stubConfigService) Update(ctx context.Context, actor types.Actor, input letterconfig.UpdateInput) (*models.LetterConfig, error) {
	return nil, nil
}

func (stubConfigService) Reset(ctx context.Context, actor types.Actor) (*models.LetterConfig, error) {
	return nil, nil
}

func approvedLoan() *models.Loan {
	approver := "Petugas BMN"
	return &models.Loan{
		LoanCode:            "P0042",
		ItemCode:            1001,
		BorrowerID:          "U001",
		BorrowerName:        "Rina",
		ItemName:            "Proyektor Epson",
		ItemCategory:        enums.ItemCategoryElectronic,
		RequestedQuantity:   1,
		RequestDate:         time.Date(2025, time.February, 14, 0, 0, 0, 0, time.UTC),
		ScheduledReturnDate: time.Date(2025, time.February, 21, 0, 0, 0, 0, time.UTC),
		Status:              enums.LoanStatusApproved,
		ApproverName:        &approver,
	}
}

func newTestService(t *testing.T, loans map[string]*models.Loan) (Service, *Signer) {
	t.Helper()
	signer, err := NewSigner("test-document-secret")
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	svc, err := NewService(stubLoanReader{loans: loans}, stubConfigService{}, signer, func() time.Time { return testDay })
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, signer
}

func adminActor() types.Actor {
	return types.Actor{ID: "A001", Name: "Petugas", Role: enums.UserRoleAdmin}
}

func TestRenderNumber(t *testing.T) {
	at := time.Date(2025, time.November, 3, 0, 0, 0, 0, time.UTC)
	got := RenderNumber("[ID]/BA-PINJAM/ATI/[BLN]/[THN]", "P0042", at)
	if got != "P0042/BA-PINJAM/ATI/XI/2025" {
		t.Fatalf("unexpected number %q", got)
	}
}

func TestRomanMonths(t *testing.T) {
	if RomanMonth(time.January) != "I" || RomanMonth(time.June) != "VI" || RomanMonth(time.December) != "XII" {
		t.Fatal("roman month mapping broken")
	}
}

func TestTokenDeterministicAndVerifiable(t *testing.T) {
	loan := approvedLoan()
	_, signer := newTestService(t, nil)

	first := signer.Token(enums.DocumentTypeLoan, loan)
	second := signer.Token(enums.DocumentTypeLoan, loan)
	if first != second {
		t.Fatal("token must be deterministic for an unchanged loan")
	}

	payload, ok := signer.Decode(first)
	if !ok {
		t.Fatal("token must decode with the minting secret")
	}
	if payload.LoanCode != "P0042" || payload.Status != enums.LoanStatusApproved {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestTokenRejectsTampering(t *testing.T) {
	loan := approvedLoan()
	_, signer := newTestService(t, nil)
	token := signer.Token(enums.DocumentTypeLoan, loan)

	if _, ok := signer.Decode(token + "x"); ok {
		t.Fatal("tampered signature must not decode")
	}
	if _, ok := signer.Decode("not-a-token"); ok {
		t.Fatal("malformed token must not decode")
	}

	other, err := NewSigner("different-secret")
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	if _, ok := other.Decode(token); ok {
		t.Fatal("token must not verify under another secret")
	}
}

func TestVerifyValidThenStale(t *testing.T) {
	loan := approvedLoan()
	svc, signer := newTestService(t, map[string]*models.Loan{loan.LoanCode: loan})
	token := signer.Token(enums.DocumentTypeLoan, loan)

	result, err := svc.Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if result.Status != VerificationValid {
		t.Fatalf("expected VALID got %s", result.Status)
	}
	if result.Loan == nil || result.Loan.LoanCode != "P0042" {
		t.Fatalf("expected loan in result, got %+v", result.Loan)
	}

	loan.Status = enums.LoanStatusReturned
	result, err = svc.Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("verify after transition: %v", err)
	}
	if result.Status != VerificationStale {
		t.Fatalf("expected STALE after status change, got %s", result.Status)
	}
}

func TestVerifyRawLoanCodeFallback(t *testing.T) {
	loan := approvedLoan()
	svc, _ := newTestService(t, map[string]*models.Loan{loan.LoanCode: loan})

	result, err := svc.Verify(context.Background(), "P0042")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if result.Status != VerificationFoundByID {
		t.Fatalf("expected FOUND_BY_ID got %s", result.Status)
	}

	result, err = svc.Verify(context.Background(), "P9999")
	if err != nil {
		t.Fatalf("verify unknown: %v", err)
	}
	if result.Status != VerificationNotFound {
		t.Fatalf("expected NOT_FOUND got %s", result.Status)
	}
}

func TestRenderLoanDocument(t *testing.T) {
	loan := approvedLoan()
	svc, signer := newTestService(t, map[string]*models.Loan{loan.LoanCode: loan})

	doc, err := svc.Render(context.Background(), adminActor(), "P0042", enums.DocumentTypeLoan)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if doc.Number != "P0042/BA-PINJAM/ATI/II/2025" {
		t.Fatalf("unexpected number %q", doc.Number)
	}
	if !strings.Contains(doc.BodyHeader, "PEMINJAMAN") {
		t.Fatalf("expected loan body header, got %q", doc.BodyHeader)
	}
	if _, ok := signer.Decode(doc.Fingerprint); !ok {
		t.Fatal("document fingerprint must verify")
	}
}

func TestRenderReturnDocumentRequiresReturnedLoan(t *testing.T) {
	loan := approvedLoan()
	svc, _ := newTestService(t, map[string]*models.Loan{loan.LoanCode: loan})

	_, err := svc.Render(context.Background(), adminActor(), "P0042", enums.DocumentTypeReturn)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected STATE_CONFLICT, got %v", err)
	}

	returnedAt := time.Date(2025, time.February, 20, 0, 0, 0, 0, time.UTC)
	loan.Status = enums.LoanStatusReturned
	loan.ActualReturnDate = &returnedAt

	doc, err := svc.Render(context.Background(), adminActor(), "P0042", enums.DocumentTypeReturn)
	if err != nil {
		t.Fatalf("render return doc: %v", err)
	}
	if doc.Number != "P0042/BA-KEMBALI/ATI/II/2025" {
		t.Fatalf("unexpected number %q", doc.Number)
	}
	if !strings.Contains(doc.BodyHeader, "PENGEMBALIAN") {
		t.Fatalf("expected return body header, got %q", doc.BodyHeader)
	}
}

func TestRenderPendingLoanConflicts(t *testing.T) {
	loan := approvedLoan()
	loan.Status = enums.LoanStatusPending
	svc, _ := newTestService(t, map[string]*models.Loan{loan.LoanCode: loan})

	_, err := svc.Render(context.Background(), adminActor(), "P0042", enums.DocumentTypeLoan)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected STATE_CONFLICT, got %v", err)
	}
}

func TestRenderScopedToBorrower(t *testing.T) {
	loan := approvedLoan()
	svc, _ := newTestService(t, map[string]*models.Loan{loan.LoanCode: loan})

	stranger := types.Actor{ID: "U999", Name: "Lain", Role: enums.UserRoleBorrower}
	_, err := svc.Render(context.Background(), stranger, "P0042", enums.DocumentTypeLoan)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND for foreign borrower, got %v", err)
	}

	owner := types.Actor{ID: "U001", Name: "Rina", Role: enums.UserRoleBorrower}
	if _, err := svc.Render(context.Background(), owner, "P0042", enums.DocumentTypeLoan); err != nil {
		t.Fatalf("owner must render own document: %v", err)
	}
}
