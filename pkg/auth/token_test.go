package auth

import (
	"testing"
	"time"

	"github.com/poltekatipdg/sipbmn-backend/pkg/config"
	"github.com/poltekatipdg/sipbmn-backend/pkg/enums"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "sipbmn-test",
		ExpirationMinutes: 30,
	}
}

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := testJWTConfig()
	now := time.Now()

	signed, err := MintAccessToken(cfg, now, AccessTokenPayload{
		UserID: "A001",
		Name:   "Rifa Turaina",
		Role:   enums.UserRoleAdmin,
		JTI:    "session-1",
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	claims, err := ParseAccessToken(cfg, signed)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.UserID != "A001" {
		t.Fatalf("expected user A001 got %s", claims.UserID)
	}
	if claims.Role != enums.UserRoleAdmin {
		t.Fatalf("expected role ADMIN got %s", claims.Role)
	}
	if claims.ID != "session-1" {
		t.Fatalf("expected jti session-1 got %s", claims.ID)
	}
}

func TestMintAccessTokenValidation(t *testing.T) {
	now := time.Now()

	if _, err := MintAccessToken(config.JWTConfig{}, now, AccessTokenPayload{UserID: "U1", Role: enums.UserRoleBorrower}); err == nil {
		t.Fatal("expected error without secret")
	}

	cfg := testJWTConfig()
	if _, err := MintAccessToken(cfg, now, AccessTokenPayload{UserID: "", Role: enums.UserRoleBorrower}); err == nil {
		t.Fatal("expected error without user id")
	}
	if _, err := MintAccessToken(cfg, now, AccessTokenPayload{UserID: "U1", Role: enums.UserRole("STAFF")}); err == nil {
		t.Fatal("expected error for invalid role")
	}
}

func TestParseAccessTokenWrongSecret(t *testing.T) {
	cfg := testJWTConfig()
	signed, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: "U1", Role: enums.UserRoleBorrower})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	other := cfg
	other.Secret = "different"
	if _, err := ParseAccessToken(other, signed); err == nil {
		t.Fatal("expected parse failure with wrong secret")
	}
}
