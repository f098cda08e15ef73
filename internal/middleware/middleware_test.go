package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/unihub/unihub/internal/app/models"
	"github.com/unihub/unihub/internal/pkg/apperrors"
	"github.com/unihub/unihub/internal/pkg/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuthRouter(t *testing.T) (*gin.Engine, string) {
	t.Helper()
	jwtService := auth.NewJWTService(auth.JWTConfig{SecretKey: "test-secret", AccessTokenExp: time.Hour, TokenIssuer: "unihub.test"})
	token, _, err := jwtService.IssueToken(&models.User{ID: 42, Email: "ada@uni.test", RoleType: models.RoleStudent})
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}

	m := NewAuthMiddleware(jwtService)
	whoami := func(c *gin.Context) { c.String(http.StatusOK, strconv.FormatInt(UserID(c), 10)) }

	r := gin.New()
	r.GET("/required", m.JWTAuth(), whoami)
	r.GET("/optional", m.OptionalJWTAuth(), whoami)
	return r, token
}

func TestAuthMiddleware(t *testing.T) {
	r, token := newAuthRouter(t)

	tests := []struct {
		name       string
		path       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{"required without token", "/required", "", http.StatusUnauthorized, ""},
		{"required with bearer", "/required", "Bearer " + token, http.StatusOK, "42"},
		{"required with raw token", "/required", token, http.StatusOK, "42"},
		{"required with query token", "/required?token=" + token, "", http.StatusOK, "42"},
		{"required with garbage", "/required", "Bearer a.b.c", http.StatusUnauthorized, ""},
		{"optional anonymous", "/optional", "", http.StatusOK, "0"},
		{"optional with bearer", "/optional", "Bearer " + token, http.StatusOK, "42"},
		{"optional with garbage", "/optional", "Bearer a.b.c", http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantBody != "" && w.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", w.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestHandleAPIErrorStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unauthenticated", apperrors.ErrUnauthenticated, http.StatusUnauthorized},
		{"forbidden", apperrors.ErrNotCommunityOwner, http.StatusForbidden},
		{"not found", apperrors.ErrCommunityNotFound, http.StatusNotFound},
		{"invalid argument", apperrors.NewBadRequestError("name is required"), http.StatusBadRequest},
		{"conflict", apperrors.ErrAlreadyMember, http.StatusConflict},
		{"internal", errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/", func(c *gin.Context) { HandleAPIError(c, tt.err) })

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestHandleAPIErrorHidesInternalMessage(t *testing.T) {
	r := gin.New()
	r.GET("/", func(c *gin.Context) { HandleAPIError(c, errors.New("pq: password authentication failed")) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if body := w.Body.String(); strings.Contains(body, "password authentication") {
		t.Errorf("internal error leaked: %s", body)
	}
}

func TestRequestLoggerSetsRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogger(zerolog.Nop()))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header not set")
	}
}

