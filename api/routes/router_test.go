package routes_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/poltekatipdg/sipbmn-backend/api/routes"
	authsvc "github.com/poltekatipdg/sipbmn-backend/internal/auth"
	"github.com/poltekatipdg/sipbmn-backend/internal/documents"
	"github.com/poltekatipdg/sipbmn-backend/internal/inventory"
	"github.com/poltekatipdg/sipbmn-backend/internal/letterconfig"
	loansvc "github.com/poltekatipdg/sipbmn-backend/internal/loans"
	usersvc "github.com/poltekatipdg/sipbmn-backend/internal/users"
	pkgauth "github.com/poltekatipdg/sipbmn-backend/pkg/auth"
	"github.com/poltekatipdg/sipbmn-backend/pkg/auth/session"
	"github.com/poltekatipdg/sipbmn-backend/pkg/config"
	"github.com/poltekatipdg/sipbmn-backend/pkg/db/models"
	"github.com/poltekatipdg/sipbmn-backend/pkg/enums"
	"github.com/poltekatipdg/sipbmn-backend/pkg/logger"
	"github.com/poltekatipdg/sipbmn-backend/pkg/pagination"
	"github.com/poltekatipdg/sipbmn-backend/pkg/types"
)

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "8080"},
		JWT: config.JWTConfig{
			Secret:                 "router-test-secret",
			Issuer:                 "sipbmn-test",
			ExpirationMinutes:      60,
			RefreshTokenTTLMinutes: 120,
		},
	}
}

func newTestRouter(t *testing.T, cfg *config.Config) http.Handler {
	t.Helper()

	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	return routes.NewRouter(cfg, logg, stubPinger{}, nil, stubSessionChecker{}, nil, routes.Services{
		Auth:         stubAuthService{},
		Users:        stubUserService{},
		Inventory:    stubInventoryService{},
		Loans:        stubLoanService{},
		Documents:    stubDocumentService{},
		LetterConfig: stubLetterConfigService{},
	})
}

func buildToken(t *testing.T, cfg *config.Config, role enums.UserRole) string {
	t.Helper()

	token, err := pkgauth.MintAccessToken(cfg.JWT, time.Now(), pkgauth.AccessTokenPayload{
		UserID:           uuid.NewString(),
		Name:             "Sari Dewi",
		Role:             role,
		IdentifierNumber: "197511082001122002",
		JTI:              session.NewAccessID(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthLiveIsPublic(t *testing.T) {
	router := newTestRouter(t, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestVerifyEndpointIsPublic(t *testing.T) {
	router := newTestRouter(t, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/public/verify?token=abc", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestPrivateGroupRejectsMissingToken(t *testing.T) {
	router := newTestRouter(t, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/loans", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestPrivateGroupAcceptsValidToken(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/loans", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleBorrower))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestAdminGroupRejectsBorrower(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/loans/dashboard", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleBorrower))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestAdminGroupAcceptsAdmin(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/loans/dashboard", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleAdmin))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestItemsListAllowsBorrower(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/items", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleBorrower))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

type stubPinger struct{}

func (stubPinger) Ping(ctx context.Context) error { return nil }

type stubSessionChecker struct{}

func (stubSessionChecker) HasSession(ctx context.Context, accessID string) (bool, error) {
	return true, nil
}

type stubAuthService struct{}

func (stubAuthService) Login(ctx context.Context, input authsvc.LoginInput) (*authsvc.TokenPair, *models.User, error) {
	panic("unimplemented")
}

func (stubAuthService) Register(ctx context.Context, input authsvc.RegisterInput) (*models.User, error) {
	panic("unimplemented")
}

func (stubAuthService) Refresh(ctx context.Context, accessToken, refreshToken string) (*authsvc.TokenPair, error) {
	panic("unimplemented")
}

func (stubAuthService) Logout(ctx context.Context, accessID string) error {
	panic("unimplemented")
}

func (stubAuthService) Profile(ctx context.Context, userID string) (*models.User, error) {
	panic("unimplemented")
}

type stubUserService struct{}

func (stubUserService) CreateUser(ctx context.Context, actor types.Actor, input usersvc.CreateUserInput) (*models.User, error) {
	panic("unimplemented")
}

func (stubUserService) UpdateUser(ctx context.Context, actor types.Actor, id string, input usersvc.UpdateUserInput) (*models.User, error) {
	panic("unimplemented")
}

func (stubUserService) DeleteUser(ctx context.Context, actor types.Actor, id string) error {
	panic("unimplemented")
}

func (stubUserService) GetUser(ctx context.Context, actor types.Actor, id string) (*models.User, error) {
	panic("unimplemented")
}

func (stubUserService) ListUsers(ctx context.Context, actor types.Actor, filter usersvc.ListFilter) ([]models.User, error) {
	panic("unimplemented")
}

func (stubUserService) ImportCSV(ctx context.Context, actor types.Actor, data []byte) (*usersvc.ImportResult, error) {
	panic("unimplemented")
}

type stubInventoryService struct{}

func (s stubInventoryService) WithTx(tx *gorm.DB) inventory.Ledger { return s }

func (stubInventoryService) Reserve(ctx context.Context, itemCode, quantity int) (*models.Item, error) {
	panic("unimplemented")
}

func (stubInventoryService) Release(ctx context.Context, itemCode, quantity int) (*models.Item, error) {
	panic("unimplemented")
}

func (stubInventoryService) AddItem(ctx context.Context, actor types.Actor, input inventory.AddItemInput) (*models.Item, error) {
	panic("unimplemented")
}

func (stubInventoryService) UpdateItem(ctx context.Context, actor types.Actor, itemCode int, input inventory.UpdateItemInput) (*models.Item, error) {
	panic("unimplemented")
}

func (stubInventoryService) DeleteItem(ctx context.Context, actor types.Actor, itemCode int) error {
	panic("unimplemented")
}

func (stubInventoryService) GetItem(ctx context.Context, itemCode int) (*models.Item, error) {
	panic("unimplemented")
}

func (stubInventoryService) ListItems(ctx context.Context, filter inventory.ListFilter) ([]models.Item, error) {
	return []models.Item{}, nil
}

func (stubInventoryService) Resize(ctx context.Context, actor types.Actor, itemCode, newTotal int) (*models.Item, error) {
	panic("unimplemented")
}

func (stubInventoryService) LowStock(item models.Item) bool { return false }

type stubLoanService struct{}

func (stubLoanService) SubmitRequest(ctx context.Context, actor types.Actor, input loansvc.SubmitRequestInput) (*models.Loan, error) {
	panic("unimplemented")
}

func (stubLoanService) Approve(ctx context.Context, actor types.Actor, loanCode string) (*models.Loan, error) {
	panic("unimplemented")
}

func (stubLoanService) Reject(ctx context.Context, actor types.Actor, loanCode string) (*models.Loan, error) {
	panic("unimplemented")
}

func (stubLoanService) Return(ctx context.Context, actor types.Actor, loanCode string, input loansvc.ReturnInput) (*models.Loan, error) {
	panic("unimplemented")
}

func (stubLoanService) GetLoan(ctx context.Context, actor types.Actor, loanCode string) (*models.Loan, error) {
	panic("unimplemented")
}

func (stubLoanService) ListLoans(ctx context.Context, actor types.Actor, filter loansvc.ListFilter, params pagination.Params) (*loansvc.Page, error) {
	return &loansvc.Page{Loans: []loansvc.LoanView{}}, nil
}

func (stubLoanService) Dashboard(ctx context.Context) (*loansvc.DashboardSummary, error) {
	return &loansvc.DashboardSummary{Attention: []loansvc.LoanView{}}, nil
}

func (stubLoanService) ExportCSV(ctx context.Context, actor types.Actor, filter loansvc.ListFilter) ([]byte, error) {
	panic("unimplemented")
}

func (stubLoanService) CountActiveByItem(ctx context.Context, itemCode int) (int64, error) {
	panic("unimplemented")
}

func (stubLoanService) Now() time.Time { return time.Now() }

type stubDocumentService struct{}

func (stubDocumentService) Render(ctx context.Context, actor types.Actor, loanCode string, docType enums.DocumentType) (*documents.Document, error) {
	panic("unimplemented")
}

func (stubDocumentService) Verify(ctx context.Context, token string) (*documents.VerificationResult, error) {
	return &documents.VerificationResult{Status: documents.VerificationNotFound}, nil
}

type stubLetterConfigService struct{}

func (stubLetterConfigService) Get(ctx context.Context) (*models.LetterConfig, error) {
	panic("unimplemented")
}

func (stubLetterConfigService) Update(ctx context.Context, actor types.Actor, input letterconfig.UpdateInput) (*models.LetterConfig, error) {
	panic("unimplemented")
}

func (stubLetterConfigService) Reset(ctx context.Context, actor types.Actor) (*models.LetterConfig, error) {
	panic("unimplemented")
}
