package auth

import (
	"context"
	"errors"
	"io"
	"testing"

	pkgauth "github.com/poltekatipdg/sipbmn-backend/pkg/auth"
	"github.com/poltekatipdg/sipbmn-backend/pkg/auth/session"
	"github.com/poltekatipdg/sipbmn-backend/pkg/config"
	"github.com/poltekatipdg/sipbmn-backend/pkg/db/models"
	"github.com/poltekatipdg/sipbmn-backend/pkg/enums"
	pkgerrors "github.com/poltekatipdg/sipbmn-backend/pkg/errors"
	"github.com/poltekatipdg/sipbmn-backend/pkg/logger"
	"github.com/poltekatipdg/sipbmn-backend/pkg/security"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

var testJWTCfg = config.JWTConfig{
	Secret:                 "unit-test-secret",
	Issuer:                 "sipbmn-test",
	ExpirationMinutes:      15,
	RefreshTokenTTLMinutes: 60,
}

var errDuplicate = errors.New("duplicate key value violates unique constraint")

type stubUserStore struct {
	users map[string]*models.User
}

func (s *stubUserStore) Create(ctx context.Context, user *models.User) error {
	for _, existing := range s.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return errDuplicate
		}
	}
	s.users[user.ID] = user
	return nil
}

func (s *stubUserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *user
	return &copied, nil
}

func (s *stubUserStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	for _, user := range s.users {
		if user.Username == username {
			copied := *user
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

type stubSessions struct {
	tokens  map[string]string
	counter int
}

func newStubSessions() *stubSessions {
	return &stubSessions{tokens: map[string]string{}}
}

func (s *stubSessions) Generate(ctx context.Context, accessID string) (string, error) {
	s.counter++
	token := "refresh-" + accessID
	s.tokens[accessID] = token
	return token, nil
}

func (s *stubSessions) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error) {
	stored, ok := s.tokens[oldAccessID]
	if !ok || stored != provided {
		return "", "", session.ErrInvalidRefreshToken
	}
	delete(s.tokens, oldAccessID)
	newAccessID := session.NewAccessID()
	token, _ := s.Generate(ctx, newAccessID)
	return newAccessID, token, nil
}

func (s *stubSessions) Revoke(ctx context.Context, accessID string) error {
	delete(s.tokens, accessID)
	return nil
}

type fixture struct {
	svc      Service
	users    *stubUserStore
	sessions *stubSessions
}

func newFixture(t *testing.T, seed ...*models.User) *fixture {
	t.Helper()
	users := &stubUserStore{users: map[string]*models.User{}}
	for _, user := range seed {
		users.users[user.ID] = user
	}
	sessions := newStubSessions()
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled, Output: io.Discard})

	svc, err := NewService(users, sessions, testJWTCfg, config.PasswordConfig{}, logg)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &fixture{svc: svc, users: users, sessions: sessions}
}

func seededUser(t *testing.T, password string) *models.User {
	t.Helper()
	hash, err := security.HashPassword(password, config.PasswordConfig{})
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return &models.User{
		ID:           "U001",
		Username:     "rina",
		Name:         "Rina",
		Role:         enums.UserRoleBorrower,
		Email:        "rina@example.ac.id",
		PasswordHash: hash,
	}
}

func TestLoginIssuesTokenPair(t *testing.T) {
	fix := newFixture(t, seededUser(t, "sangatrahasia"))

	pair, user, err := fix.svc.Login(context.Background(), LoginInput{Username: "rina", Password: "sangatrahasia"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if user.ID != "U001" {
		t.Fatalf("unexpected user %+v", user)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected access and refresh tokens")
	}

	claims, err := pkgauth.ParseAccessToken(testJWTCfg, pair.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.UserID != "U001" || claims.Role != enums.UserRoleBorrower {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if _, ok := fix.sessions.tokens[claims.ID]; !ok {
		t.Fatal("session must be stored under the token jti")
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	fix := newFixture(t, seededUser(t, "sangatrahasia"))

	cases := []LoginInput{
		{Username: "rina", Password: "salah"},
		{Username: "tidakada", Password: "sangatrahasia"},
	}
	for _, input := range cases {
		_, _, err := fix.svc.Login(context.Background(), input)
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
			t.Fatalf("expected UNAUTHORIZED for %+v, got %v", input, err)
		}
	}
}

func TestRegisterCreatesBorrower(t *testing.T) {
	fix := newFixture(t)

	user, err := fix.svc.Register(context.Background(), RegisterInput{
		Username: "budi",
		Name:     "Budi",
		Email:    "budi@example.ac.id",
		Password: "rahasiabanget",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Role != enums.UserRoleBorrower {
		t.Fatalf("self registration must create a borrower, got %s", user.Role)
	}
	ok, err := security.VerifyPassword("rahasiabanget", user.PasswordHash)
	if err != nil || !ok {
		t.Fatalf("hash must verify: ok=%v err=%v", ok, err)
	}
}

func TestRegisterShortPassword(t *testing.T) {
	fix := newFixture(t)

	_, err := fix.svc.Register(context.Background(), RegisterInput{
		Username: "budi", Name: "Budi", Email: "budi@example.ac.id", Password: "pendek",
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
}

func TestRegisterDuplicateConflicts(t *testing.T) {
	fix := newFixture(t, seededUser(t, "sangatrahasia"))

	_, err := fix.svc.Register(context.Background(), RegisterInput{
		Username: "rina", Name: "Rina Lain", Email: "lain@example.ac.id", Password: "rahasiabanget",
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected CONFLICT, got %v", err)
	}
}

func TestRefreshRotatesSession(t *testing.T) {
	fix := newFixture(t, seededUser(t, "sangatrahasia"))

	pair, _, err := fix.svc.Login(context.Background(), LoginInput{Username: "rina", Password: "sangatrahasia"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	next, err := fix.svc.Refresh(context.Background(), pair.AccessToken, pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if next.AccessToken == pair.AccessToken || next.RefreshToken == pair.RefreshToken {
		t.Fatal("refresh must rotate both tokens")
	}

	// The old refresh token is burned.
	if _, err := fix.svc.Refresh(context.Background(), pair.AccessToken, pair.RefreshToken); err == nil {
		t.Fatal("expected rotation replay to fail")
	}
}

func TestRefreshRejectsForgedToken(t *testing.T) {
	fix := newFixture(t, seededUser(t, "sangatrahasia"))

	_, err := fix.svc.Refresh(context.Background(), "not-a-jwt", "whatever")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected UNAUTHORIZED, got %v", err)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	fix := newFixture(t, seededUser(t, "sangatrahasia"))

	pair, _, err := fix.svc.Login(context.Background(), LoginInput{Username: "rina", Password: "sangatrahasia"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	claims, err := pkgauth.ParseAccessToken(testJWTCfg, pair.AccessToken)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if err := fix.svc.Logout(context.Background(), claims.ID); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, ok := fix.sessions.tokens[claims.ID]; ok {
		t.Fatal("session must be revoked")
	}
}
