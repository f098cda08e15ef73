package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/unihub/unihub/internal/app/models"
	"github.com/unihub/unihub/internal/app/repositories"
	"github.com/unihub/unihub/internal/pkg/apperrors"
	"github.com/unihub/unihub/internal/pkg/auth"
	"github.com/unihub/unihub/internal/pkg/validation"
)

// RegisterParams holds the fields of a new account
type RegisterParams struct {
	Email           string
	Password        string
	FirstName       string
	LastName        string
	AcademicProgram *string
	AcademicYear    *string
}

// TokenResult is returned by Register and Login
type TokenResult struct {
	AccessToken string      `json:"accessToken"`
	TokenType   string      `json:"tokenType"`
	ExpiresIn   int         `json:"expiresIn"`
	User        models.User `json:"user"`
}

// AuthService handles authentication operations
type AuthService struct {
	store      repositories.Store
	jwtService *auth.JWTService
	hash       func(string) (string, error)
	logger     zerolog.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(store repositories.Store, jwtService *auth.JWTService, logger zerolog.Logger) *AuthService {
	return &AuthService{
		store:      store,
		jwtService: jwtService,
		hash:       auth.HashPassword,
		logger:     logger.With().Str("service", "auth").Logger(),
	}
}

// normalizeEmail trims and lower-cases an email address
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validateEmail validates an email address
func validateEmail(email string) error {
	if email == "" {
		return apperrors.NewBadRequestError("email cannot be empty")
	}
	if !validation.IsEmail(email) {
		return apperrors.NewBadRequestError("invalid email format")
	}
	return nil
}

// validatePassword checks if password meets requirements
func validatePassword(password string) error {
	if problem := validation.PasswordProblem(password); problem != "" {
		return apperrors.NewBadRequestError(problem)
	}
	return nil
}

// Register creates a student account and signs the user in
func (s *AuthService) Register(ctx context.Context, params RegisterParams) (*TokenResult, error) {
	email := normalizeEmail(params.Email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(params.Password); err != nil {
		return nil, err
	}
	firstName, err := requiredText("first name", params.FirstName)
	if err != nil {
		return nil, err
	}

	hash, err := s.hash(params.Password)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to hash password", err)
	}

	user := &models.User{
		Email:           email,
		FirstName:       firstName,
		LastName:        strings.TrimSpace(params.LastName),
		RoleType:        models.RoleStudent,
		AcademicProgram: optionalText(params.AcademicProgram),
		AcademicYear:    optionalText(params.AcademicYear),
	}
	if _, err := s.store.Repos().Users.Create(ctx, user, hash); err != nil {
		if errors.Is(err, apperrors.ErrEmailAlreadyExists) {
			s.logger.Warn().Str("email", email).Msg("Registration with existing email")
			return nil, apperrors.ErrEmailAlreadyExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info().Int64("userID", user.ID).Msg("User registered")
	return s.issue(user)
}

// Login verifies credentials and returns a fresh access token
func (s *AuthService) Login(ctx context.Context, email, password string) (*TokenResult, error) {
	email = normalizeEmail(email)
	user, hash, err := s.store.Repos().Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !user.IsActive || !auth.CheckPassword(hash, password) {
		s.logger.Warn().Str("email", email).Msg("Failed login attempt")
		return nil, apperrors.ErrInvalidCredentials
	}

	return s.issue(user)
}

func (s *AuthService) issue(user *models.User) (*TokenResult, error) {
	token, expiresIn, err := s.jwtService.IssueToken(user)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to issue token", err)
	}
	return &TokenResult{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   expiresIn,
		User:        *user,
	}, nil
}
