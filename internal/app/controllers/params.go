package controllers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/unihub/unihub/internal/app/models/dto"
)

// maxUploadBytes caps image uploads
const maxUploadBytes = 5 << 20

// pathID parses a positive integer path parameter. On failure it writes a
// 400 response and returns false.
func pathID(ctx *gin.Context, name, label string) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param(name), 10, 64)
	if err != nil || id <= 0 {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid "+label+" ID").
			WithField(name).
			WithDetails(label + " ID must be a positive number")
		ctx.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return 0, false
	}
	return id, true
}

// dateLayout is the calendar date format query filters accept
const dateLayout = "2006-01-02"

// queryID parses an optional positive integer query parameter
func queryID(ctx *gin.Context, name, label string) (*int64, bool) {
	raw := ctx.Query(name)
	if raw == "" {
		return nil, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid "+label+" ID").WithField(name)
		ctx.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return nil, false
	}
	return &id, true
}

// queryDate parses an optional YYYY-MM-DD query parameter
func queryDate(ctx *gin.Context, name string) (*time.Time, bool) {
	raw := ctx.Query(name)
	if raw == "" {
		return nil, true
	}
	d, err := time.Parse(dateLayout, raw)
	if err != nil {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid date").
			WithField(name).
			WithDetails("expected " + dateLayout)
		ctx.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return nil, false
	}
	return &d, true
}

// queryList splits a comma separated query parameter, dropping blanks
func queryList(ctx *gin.Context, name string) []string {
	var out []string
	for _, v := range strings.Split(ctx.Query(name), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
