package helpers

import (
	"math"
	"strconv"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
	DefaultPage     = 1 // Default page is 1-based

	// MaxPage keeps (page-1)*size within an int32 offset
	MaxPage = math.MaxInt32 / MaxPageSize
)

// CalculateOffsetLimit calculates the offset and limit for SQL queries based on 1-based page index.
func CalculateOffsetLimit(page, size int) (offset uint64, limit int) {
	if size <= 0 || size > MaxPageSize {
		limit = DefaultPageSize
	} else {
		limit = size
	}

	if page < 1 {
		page = DefaultPage
	} else if page > MaxPage {
		page = MaxPage
	}

	offset = uint64((page - 1) * limit)
	return offset, limit
}

// ParsePagination parses raw page and size query values, falling back to
// the defaults when a value is missing or out of range.
func ParsePagination(pageStr, sizeStr string) (page, size int) {
	page, err := strconv.Atoi(pageStr)
	if err != nil || page < 1 {
		page = DefaultPage
	} else if page > MaxPage {
		page = MaxPage
	}

	size, err = strconv.Atoi(sizeStr)
	if err != nil || size <= 0 || size > MaxPageSize {
		size = DefaultPageSize
	}

	return page, size
}

// ParseLimit parses a positive limit; blank or invalid input yields 0 so the
// caller's default applies.
func ParseLimit(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
