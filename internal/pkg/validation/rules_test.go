package validation

import (
	"testing"

	"github.com/go-playground/validator/v10"
)

func TestPasswordProblem(t *testing.T) {
	tests := []struct {
		password string
		ok       bool
	}{
		{"analytical1", true},
		{"a1", false},
		{"abcdefghij", false},
		{"1234567890", false},
	}
	for _, tt := range tests {
		t.Run(tt.password, func(t *testing.T) {
			if got := PasswordProblem(tt.password) == ""; got != tt.ok {
				t.Errorf("PasswordProblem(%q) ok = %v, want %v", tt.password, got, tt.ok)
			}
		})
	}
}

func TestIsEmail(t *testing.T) {
	if !IsEmail("ada@uni.ac.uk") {
		t.Error("ada@uni.ac.uk should be valid")
	}
	for _, bad := range []string{"ada", "ada@uni", "@uni.ac.uk", "Ada@Uni.ac.uk"} {
		if IsEmail(bad) {
			t.Errorf("IsEmail(%q) = true", bad)
		}
	}
}

func TestRegisteredTags(t *testing.T) {
	v := validator.New()
	if err := Register(v); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	type form struct {
		Name     string `validate:"notblank"`
		Password string `validate:"password"`
	}
	if err := v.Struct(form{Name: "Chess", Password: "knight42x"}); err != nil {
		t.Errorf("valid form rejected: %v", err)
	}
	if err := v.Struct(form{Name: "   ", Password: "knight42x"}); err == nil {
		t.Error("blank name accepted")
	}
	if err := v.Struct(form{Name: "Chess", Password: "short"}); err == nil {
		t.Error("weak password accepted")
	}
}
