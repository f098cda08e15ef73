package helpers

import (
	"math"
	"testing"
	"time"
)

func TestCalculateOffsetLimit(t *testing.T) {
	tests := []struct {
		page, size int
		offset     uint64
		limit      int
	}{
		{1, 10, 0, 10},
		{3, 20, 40, 20},
		{0, 0, 0, DefaultPageSize},
		{2, MaxPageSize + 1, DefaultPageSize, DefaultPageSize},
		{math.MaxInt, MaxPageSize, uint64(MaxPage-1) * MaxPageSize, MaxPageSize},
	}
	for _, tt := range tests {
		offset, limit := CalculateOffsetLimit(tt.page, tt.size)
		if offset != tt.offset || limit != tt.limit {
			t.Errorf("CalculateOffsetLimit(%d, %d) = (%d, %d), want (%d, %d)", tt.page, tt.size, offset, limit, tt.offset, tt.limit)
		}
	}
}

func TestParsePagination(t *testing.T) {
	tests := []struct {
		pageStr, sizeStr string
		page, size       int
	}{
		{"", "", DefaultPage, DefaultPageSize},
		{"2", "25", 2, 25},
		{"-1", "abc", DefaultPage, DefaultPageSize},
		{"x", "1000", DefaultPage, DefaultPageSize},
		{"9223372036854775807", "100", MaxPage, 100},
		{"99999999999", "", MaxPage, DefaultPageSize},
	}
	for _, tt := range tests {
		page, size := ParsePagination(tt.pageStr, tt.sizeStr)
		if page != tt.page || size != tt.size {
			t.Errorf("ParsePagination(%q, %q) = (%d, %d), want (%d, %d)", tt.pageStr, tt.sizeStr, page, size, tt.page, tt.size)
		}
	}
}

func TestHugePageOffsetStaysNonNegative(t *testing.T) {
	page, size := ParsePagination("9223372036854775807", "100")
	offset, _ := CalculateOffsetLimit(page, size)
	if offset > math.MaxInt32 {
		t.Errorf("offset = %d, want at most %d", offset, math.MaxInt32)
	}
}

func TestParseLimit(t *testing.T) {
	for in, want := range map[string]int{"": 0, "7": 7, "-3": 0, "ten": 0} {
		if got := ParseLimit(in); got != want {
			t.Errorf("ParseLimit(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"90s", 90 * time.Second},
		{" 2m ", 2 * time.Minute},
		{"", time.Minute},
		{"soon", time.Minute},
		{"0s", time.Minute},
		{"-5s", time.Minute},
	}
	for _, tt := range tests {
		if got := ParseDuration(tt.in, time.Minute); got != tt.want {
			t.Errorf("ParseDuration(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
