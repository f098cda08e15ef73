package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/unihub/unihub/internal/app/models/dto"
	"github.com/unihub/unihub/internal/pkg/apperrors"
	"github.com/unihub/unihub/internal/pkg/auth"
)

// Context keys set by the auth middleware
const (
	ContextUserID   = "userID"
	ContextEmail    = "email"
	ContextRoleType = "roleType"
)

// AuthMiddleware for authentication
type AuthMiddleware struct {
	jwtService *auth.JWTService
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(jwtService *auth.JWTService) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtService,
	}
}

// tokenFromRequest finds the bearer token in the header, or in the query
// string where Swagger UI sometimes puts it.
func tokenFromRequest(c *gin.Context) (string, bool, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		authHeader = c.Query("token")
	}
	if authHeader == "" {
		return "", false, nil
	}

	authHeader = strings.Trim(authHeader, "\"'")
	// Raw JWT without the Bearer prefix
	if strings.Count(authHeader, ".") == 2 && !strings.Contains(authHeader, " ") {
		return authHeader, true, nil
	}

	token, err := auth.ExtractBearerToken(authHeader)
	if err != nil {
		return "", true, err
	}
	return token, true, nil
}

func abortUnauthorized(c *gin.Context, err error) {
	code := dto.ErrorCodeInvalidToken
	details := "Invalid token"
	if errors.Is(err, apperrors.ErrTokenExpired) {
		code = dto.ErrorCodeExpiredToken
		details = "Token has expired"
	}

	errorDetail := dto.NewErrorDetail(code, "Authentication failed").WithDetails(details)
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(errorDetail))
}

// authenticate validates the request token and stores its claims on the
// context. present is false when the request carried no token at all.
func (m *AuthMiddleware) authenticate(c *gin.Context) (present bool, ok bool) {
	tokenString, present, err := tokenFromRequest(c)
	if !present {
		return false, false
	}
	if err != nil {
		abortUnauthorized(c, err)
		return true, false
	}

	claims, err := m.jwtService.ValidateToken(tokenString)
	if err != nil {
		abortUnauthorized(c, err)
		return true, false
	}

	c.Set(ContextUserID, claims.UserID)
	c.Set(ContextEmail, claims.Email)
	c.Set(ContextRoleType, claims.RoleType)
	return true, true
}

// JWTAuth rejects requests without a valid token
func (m *AuthMiddleware) JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		present, ok := m.authenticate(c)
		if !present {
			errorDetail := dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required").
				WithDetails("Authorization header missing")
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(errorDetail))
			return
		}
		if !ok {
			return
		}
		c.Next()
	}
}

// OptionalJWTAuth lets anonymous requests through but still rejects a
// token that is present and invalid.
func (m *AuthMiddleware) OptionalJWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if present, ok := m.authenticate(c); present && !ok {
			return
		}
		c.Next()
	}
}

// UserID returns the authenticated user id, or 0 for anonymous requests
func UserID(c *gin.Context) int64 {
	v, ok := c.Get(ContextUserID)
	if !ok {
		return 0
	}
	id, _ := v.(int64)
	return id
}
