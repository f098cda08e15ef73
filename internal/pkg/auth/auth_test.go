package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/unihub/unihub/internal/app/models"
	"github.com/unihub/unihub/internal/pkg/apperrors"
	"golang.org/x/crypto/bcrypt"
)

func testService() *JWTService {
	return NewJWTService(JWTConfig{SecretKey: "test-secret", AccessTokenExp: time.Hour, TokenIssuer: "unihub.test"})
}

func TestIssueAndValidateToken(t *testing.T) {
	s := testService()
	user := &models.User{ID: 7, Email: "ada@uni.test", RoleType: models.RoleStudent}

	token, expiresIn, err := s.IssueToken(user)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	if expiresIn != 3600 {
		t.Errorf("expiresIn = %d", expiresIn)
	}

	claims, err := s.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.UserID != 7 || claims.Email != "ada@uni.test" || claims.RoleType != string(models.RoleStudent) {
		t.Errorf("claims = %+v", claims)
	}
	if claims.ID == "" {
		t.Error("token id not set")
	}
}

func TestValidateTokenFailures(t *testing.T) {
	s := testService()
	user := &models.User{ID: 7, Email: "ada@uni.test"}
	token, _, err := s.IssueToken(user)
	if err != nil {
		t.Fatal(err)
	}

	expired := testService()
	expired.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	other := NewJWTService(JWTConfig{SecretKey: "other", TokenIssuer: "unihub.test"})
	wrongIssuer := NewJWTService(JWTConfig{SecretKey: "test-secret", TokenIssuer: "someone.else"})

	tests := []struct {
		name    string
		svc     *JWTService
		token   string
		wantErr error
	}{
		{"empty", s, "", apperrors.ErrTokenInvalid},
		{"garbage", s, "not.a.token", apperrors.ErrTokenInvalid},
		{"wrong secret", other, token, apperrors.ErrTokenInvalid},
		{"wrong issuer", wrongIssuer, token, apperrors.ErrTokenInvalid},
		{"expired", expired, token, apperrors.ErrTokenExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.svc.ValidateToken(tt.token)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ValidateToken() error = %v, want %v", err, tt.wantErr)
			}
			if apperrors.KindOf(err) != apperrors.KindUnauthenticated {
				t.Errorf("kind = %s", apperrors.KindOf(err))
			}
		})
	}
}

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		header  string
		want    string
		wantErr bool
	}{
		{"Bearer abc", "abc", false},
		{"bearer  abc ", "abc", false},
		{"abc", "", true},
		{"Basic abc", "", true},
		{"Bearer ", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ExtractBearerToken(tt.header)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ExtractBearerToken(%q) = %q, %v", tt.header, got, err)
		}
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := hashPasswordWithCost("s3cret", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash error = %v", err)
	}
	if !CheckPassword(hash, "s3cret") {
		t.Error("correct password rejected")
	}
	if CheckPassword(hash, "wrong") {
		t.Error("wrong password accepted")
	}
}
