package documents

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/poltekatipdg/sipbmn-backend/pkg/db/models"
	"github.com/poltekatipdg/sipbmn-backend/pkg/enums"
)

const fingerprintDateLayout = "2006-01-02"

// Signer mints and checks document fingerprints. A fingerprint binds the
// document type to the loan fields that appear on the printed page, so a
// status change after printing makes the old document verifiably stale.
type Signer struct {
	secret []byte
}

// NewSigner builds a signer keyed with the document secret.
func NewSigner(secret string) (*Signer, error) {
	if secret == "" {
		return nil, fmt.Errorf("document secret required")
	}
	return &Signer{secret: []byte(secret)}, nil
}

// FingerprintPayload is the signed snapshot embedded in a document token.
type FingerprintPayload struct {
	DocType     enums.DocumentType
	LoanCode    string
	BorrowerID  string
	RequestDate string
	Status      enums.LoanStatus
}

func payloadFor(docType enums.DocumentType, loan *models.Loan) FingerprintPayload {
	return FingerprintPayload{
		DocType:     docType,
		LoanCode:    loan.LoanCode,
		BorrowerID:  loan.BorrowerID,
		RequestDate: loan.RequestDate.UTC().Format(fingerprintDateLayout),
		Status:      loan.Status,
	}
}

func (p FingerprintPayload) encode() string {
	return fmt.Sprintf("%s|%s|%s|%s|%s", p.DocType, p.LoanCode, p.BorrowerID, p.RequestDate, p.Status)
}

func decodePayload(raw string) (FingerprintPayload, bool) {
	parts := strings.Split(raw, "|")
	if len(parts) != 5 {
		return FingerprintPayload{}, false
	}
	docType, err := enums.ParseDocumentType(parts[0])
	if err != nil {
		return FingerprintPayload{}, false
	}
	status, err := enums.ParseLoanStatus(parts[4])
	if err != nil {
		return FingerprintPayload{}, false
	}
	if _, err := time.Parse(fingerprintDateLayout, parts[3]); err != nil {
		return FingerprintPayload{}, false
	}
	return FingerprintPayload{
		DocType:     docType,
		LoanCode:    parts[1],
		BorrowerID:  parts[2],
		RequestDate: parts[3],
		Status:      status,
	}, true
}

func (s *Signer) mac(payload string) []byte {
	h := hmac.New(sha256.New, s.secret)
	h.Write([]byte(payload))
	return h.Sum(nil)
}

// Token mints the fingerprint token printed on a document.
func (s *Signer) Token(docType enums.DocumentType, loan *models.Loan) string {
	payload := payloadFor(docType, loan).encode()
	return base64.RawURLEncoding.EncodeToString([]byte(payload)) +
		"." + base64.RawURLEncoding.EncodeToString(s.mac(payload))
}

// Decode checks a token's signature and returns the signed payload. The second
// return is false for malformed tokens and forged signatures alike.
func (s *Signer) Decode(token string) (FingerprintPayload, bool) {
	parts := strings.SplitN(token, ".", 2)
	if len(parts) != 2 {
		return FingerprintPayload{}, false
	}
	payloadBytes, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return FingerprintPayload{}, false
	}
	macBytes, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return FingerprintPayload{}, false
	}
	if !hmac.Equal(macBytes, s.mac(string(payloadBytes))) {
		return FingerprintPayload{}, false
	}
	return decodePayload(string(payloadBytes))
}

// Matches reports whether the signed snapshot still describes the loan.
func (p FingerprintPayload) Matches(loan *models.Loan) bool {
	current := payloadFor(p.DocType, loan)
	return p == current
}
