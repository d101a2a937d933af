package types

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestUserID_Validate(t *testing.T) {
	tests := []struct {
		name string
		id   UserID
		ok   bool
	}{
		{"simple", "asha", true},
		{"empty", "", false},
		{"max length", UserID(strings.Repeat("a", 128)), true},
		{"too long", UserID(strings.Repeat("a", 129)), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.id.Validate()
			if tt.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidUserID) {
				t.Errorf("expected ErrInvalidUserID, got %v", err)
			}
		})
	}
}

func TestCategoryAndChannel_IsValid(t *testing.T) {
	for _, c := range []IncidentCategory{CategoryIllegalMining, CategoryWaterPollution, CategoryDeforestation} {
		if !c.IsValid() {
			t.Errorf("category %q should be valid", c)
		}
	}
	if IncidentCategory("littering").IsValid() || IncidentCategory("").IsValid() {
		t.Error("unknown category accepted")
	}

	for _, c := range []ReportChannel{ChannelWeb, ChannelSMS, ChannelVoice} {
		if !c.IsValid() {
			t.Errorf("channel %q should be valid", c)
		}
	}
	if ReportChannel("fax").IsValid() {
		t.Error("unknown channel accepted")
	}
}

func TestLatLng_IsValid(t *testing.T) {
	tests := []struct {
		loc  LatLng
		want bool
	}{
		{LatLng{21.6, 85.5}, true},
		{LatLng{90, 180}, true},
		{LatLng{-90, -180}, true},
		{LatLng{90.1, 0}, false},
		{LatLng{0, -180.5}, false},
	}
	for _, tt := range tests {
		if got := tt.loc.IsValid(); got != tt.want {
			t.Errorf("%+v.IsValid() = %v, want %v", tt.loc, got, tt.want)
		}
	}
}

func TestPagination_Normalize(t *testing.T) {
	tests := []struct {
		in   Pagination
		want Pagination
	}{
		{Pagination{}, Pagination{Page: 1, PageSize: DefaultPageSize}},
		{Pagination{Page: -3, PageSize: 10}, Pagination{Page: 1, PageSize: 10}},
		{Pagination{Page: 2, PageSize: 5000}, Pagination{Page: 2, PageSize: MaxPageSize}},
		{Pagination{Page: math.MaxInt, PageSize: 50}, Pagination{Page: math.MaxInt/50 - 1, PageSize: 50}},
	}
	for _, tt := range tests {
		if got := tt.in.Normalize(); got != tt.want {
			t.Errorf("Normalize(%+v) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestPagination_HugePageOffset(t *testing.T) {
	for _, page := range []int{math.MaxInt / 3, math.MaxInt} {
		p := Pagination{Page: page, PageSize: 50, Total: 10}.Normalize()
		off := p.Offset()
		if off < 0 {
			t.Fatalf("page %d: offset %d is negative", page, off)
		}
		if end := off + p.PageSize; end < off {
			t.Fatalf("page %d: offset+page size overflows", page)
		}
		if p.HasMore() {
			t.Errorf("page %d: HasMore = true past the end", page)
		}
	}
}

func TestPagination(t *testing.T) {
	tests := []struct {
		p       Pagination
		hasMore bool
		offset  int
		pages   int
	}{
		{Pagination{Page: 1, PageSize: 10, Total: 25}, true, 0, 3},
		{Pagination{Page: 3, PageSize: 10, Total: 25}, false, 20, 3},
		{Pagination{Page: 2, PageSize: 10, Total: 20}, false, 10, 2},
		{Pagination{Page: 1, PageSize: 10, Total: 0}, false, 0, 0},
		{Pagination{Page: 1, PageSize: 0, Total: 10}, false, 0, 0},
	}
	for _, tt := range tests {
		if got := tt.p.HasMore(); got != tt.hasMore {
			t.Errorf("%+v HasMore = %v, want %v", tt.p, got, tt.hasMore)
		}
		if got := tt.p.Offset(); got != tt.offset {
			t.Errorf("%+v Offset = %d, want %d", tt.p, got, tt.offset)
		}
		if got := tt.p.TotalPages(); got != tt.pages {
			t.Errorf("%+v TotalPages = %d, want %d", tt.p, got, tt.pages)
		}
	}
}

func TestValidationResult(t *testing.T) {
	v := NewValidationResult()
	if !v.Valid || v.HasErrors() || v.Err() != nil {
		t.Fatal("new result should be valid")
	}

	v.RequireNonNegative(map[string]int{"points": 3, "reports_verified": 0})
	if v.HasErrors() {
		t.Fatal("non-negative fields flagged")
	}

	v.RequireNonNegative(map[string]int{"points": -1, "enforcement_actions": -2})

	if v.Valid || len(v.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %v", v.Errors)
	}
	err := v.Err()
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("Err() should wrap ErrInvalidInput, got %v", err)
	}
	if !strings.Contains(err.Error(), "enforcement_actions") {
		t.Errorf("Err() should name the first field in order, got %q", err.Error())
	}
}
