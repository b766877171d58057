package documents

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/poltekatipdg/sipbmn-backend/internal/letterconfig"
	"github.com/poltekatipdg/sipbmn-backend/internal/loans"
	"github.com/poltekatipdg/sipbmn-backend/pkg/db/models"
	"github.com/poltekatipdg/sipbmn-backend/pkg/enums"
	pkgerrors "github.com/poltekatipdg/sipbmn-backend/pkg/errors"
	"github.com/poltekatipdg/sipbmn-backend/pkg/types"
	"gorm.io/gorm"
)

// VerificationStatus is the outcome of checking a scanned fingerprint.
type VerificationStatus string

const (
	// VerificationValid means the token is authentic and the loan still
	// matches the signed snapshot.
	VerificationValid VerificationStatus = "VALID"
	// VerificationStale means the token is authentic but the loan has moved
	// on since the document was printed.
	VerificationStale VerificationStatus = "STALE"
	// VerificationFoundByID means the input was not a token but matched a
	// loan code directly.
	VerificationFoundByID VerificationStatus = "FOUND_BY_ID"
	// VerificationNotFound means nothing matched.
	VerificationNotFound VerificationStatus = "NOT_FOUND"
)

// VerificationResult is what the public verification endpoint returns.
type VerificationResult struct {
	Status VerificationStatus `json:"status"`
	Loan   *loans.LoanView    `json:"loan,omitempty"`
}

// Document is the render model for a printed loan or return letter.
type Document struct {
	Type        enums.DocumentType  `json:"type"`
	Number      string              `json:"number"`
	Letterhead  models.LetterConfig `json:"letterhead"`
	BodyHeader  string              `json:"bodyHeader"`
	BodyOpening string              `json:"bodyOpening"`
	BodyClosing string              `json:"bodyClosing"`
	Loan        loans.LoanView      `json:"loan"`
	Fingerprint string              `json:"fingerprint"`
}

// LoanReader is the loan lookup surface the document service needs.
type LoanReader interface {
	FindByCode(ctx context.Context, loanCode string) (*models.Loan, error)
}

// Service renders printable documents and verifies their fingerprints.
type Service interface {
	Render(ctx context.Context, actor types.Actor, loanCode string, docType enums.DocumentType) (*Document, error)
	Verify(ctx context.Context, token string) (*VerificationResult, error)
}

type service struct {
	loans   LoanReader
	configs letterconfig.Service
	signer  *Signer
	now     func() time.Time
}

// NewService builds the document service.
func NewService(loanReader LoanReader, configs letterconfig.Service, signer *Signer, now func() time.Time) (Service, error) {
	if loanReader == nil {
		return nil, fmt.Errorf("loan reader required")
	}
	if configs == nil {
		return nil, fmt.Errorf("letter config service required")
	}
	if signer == nil {
		return nil, fmt.Errorf("signer required")
	}
	if now == nil {
		now = time.Now
	}
	return &service{loans: loanReader, configs: configs, signer: signer, now: now}, nil
}

func (s *service) Render(ctx context.Context, actor types.Actor, loanCode string, docType enums.DocumentType) (*Document, error) {
	if !docType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid document type %q", docType))
	}

	loan, err := s.findLoan(ctx, loanCode)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && loan.BorrowerID != actor.ID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "loan not found")
	}

	switch docType {
	case enums.DocumentTypeLoan:
		if loan.Status != enums.LoanStatusApproved && loan.Status != enums.LoanStatusReturned {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "loan document requires an approved loan").
				WithDetails(map[string]any{"status": loan.Status})
		}
	case enums.DocumentTypeReturn:
		if loan.Status != enums.LoanStatusReturned {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "return document requires a returned loan").
				WithDetails(map[string]any{"status": loan.Status})
		}
	}

	config, err := s.configs.Get(ctx)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		Type:        docType,
		Letterhead:  *config,
		Loan:        loans.NewLoanView(*loan, s.now()),
		Fingerprint: s.signer.Token(docType, loan),
	}
	if docType == enums.DocumentTypeLoan {
		doc.Number = RenderNumber(config.LoanLetterNumberFormat, loan.LoanCode, loan.RequestDate)
		doc.BodyHeader = config.BodyHeader
		doc.BodyOpening = config.BodyOpening
		doc.BodyClosing = config.BodyClosing
	} else {
		numberedAt := s.now()
		if loan.ActualReturnDate != nil {
			numberedAt = *loan.ActualReturnDate
		}
		doc.Number = RenderNumber(config.ReturnLetterNumberFormat, loan.LoanCode, numberedAt)
		doc.BodyHeader = config.ReturnBodyHeader
		doc.BodyOpening = config.ReturnBodyOpening
		doc.BodyClosing = config.ReturnBodyClosing
	}
	return doc, nil
}

// Verify resolves a scanned token without authentication. Authentic tokens
// report VALID or STALE; anything else falls back to a raw loan code lookup.
func (s *service) Verify(ctx context.Context, token string) (*VerificationResult, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "token is required")
	}

	if payload, ok := s.signer.Decode(token); ok {
		loan, err := s.loans.FindByCode(ctx, payload.LoanCode)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &VerificationResult{Status: VerificationNotFound}, nil
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find loan")
		}
		view := loans.NewLoanView(*loan, s.now())
		if payload.Matches(loan) {
			return &VerificationResult{Status: VerificationValid, Loan: &view}, nil
		}
		return &VerificationResult{Status: VerificationStale, Loan: &view}, nil
	}

	loan, err := s.loans.FindByCode(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &VerificationResult{Status: VerificationNotFound}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find loan")
	}
	view := loans.NewLoanView(*loan, s.now())
	return &VerificationResult{Status: VerificationFoundByID, Loan: &view}, nil
}

func (s *service) findLoan(ctx context.Context, loanCode string) (*models.Loan, error) {
	loan, err := s.loans.FindByCode(ctx, loanCode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "loan not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find loan")
	}
	return loan, nil
}
