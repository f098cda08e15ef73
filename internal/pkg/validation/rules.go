package validation

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Validation rule patterns
var (
	// Email validation pattern, applied to lower-cased input
	EmailPattern = `^[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}$`

	// Password min length
	PasswordMinLength = 8

	// Name max length
	NameMaxLength = 100
)

var emailRegex = regexp.MustCompile(EmailPattern)

// IsEmail reports whether s is a well-formed, lower-cased email address
func IsEmail(s string) bool {
	return emailRegex.MatchString(s)
}

// PasswordProblem describes why password is too weak, or returns "" when it
// is acceptable.
func PasswordProblem(password string) string {
	if len(password) < PasswordMinLength {
		return "password must be at least 8 characters long"
	}

	var hasLetter, hasDigit bool
	for _, char := range password {
		switch {
		case unicode.IsLetter(char):
			hasLetter = true
		case unicode.IsDigit(char):
			hasDigit = true
		}
	}
	if !hasLetter {
		return "password must contain at least one letter"
	}
	if !hasDigit {
		return "password must contain at least one digit"
	}
	return ""
}

// notBlank rejects strings that are empty after trimming
func notBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func strongPassword(fl validator.FieldLevel) bool {
	return PasswordProblem(fl.Field().String()) == ""
}

// Register adds the custom tags "notblank" and "password" to v
func Register(v *validator.Validate) error {
	if err := v.RegisterValidation("notblank", notBlank); err != nil {
		return err
	}
	return v.RegisterValidation("password", strongPassword)
}

// RegisterWithGin installs the custom tags on gin's binding validator
func RegisterWithGin() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	return Register(v)
}
