// Package types provides common types and errors for the Guardian core packages.
// This package defines the fundamental data structures and error types used
// across scoring, badges, rank-ladder, outcome-impact, leaderboard and store.
package types

import (
	"errors"
	"fmt"
	"math"
)

// Common Error Definitions
var (
	// General errors
	ErrInvalidInput  = errors.New("invalid input")
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// User-related errors
	ErrInvalidUserID = errors.New("invalid user ID")
	ErrUserNotFound  = errors.New("user not found")

	// Incident/outcome errors
	ErrInvalidIncidentID = errors.New("invalid incident ID")
	ErrOutcomeNotFound   = errors.New("outcome not found")

	// Location errors
	ErrInvalidLocation = errors.New("invalid location")
)

// UserID represents a unique user identifier
type UserID string

// IncidentID represents a unique incident report identifier
type IncidentID string

// OutcomeID represents a unique enforcement outcome identifier
type OutcomeID string

// RegionID represents an H3 cell used as a region key
type RegionID string

// Validate checks that the user id is usable as a key
func (id UserID) Validate() error {
	if id == "" {
		return ErrInvalidUserID
	}
	if len(id) > 128 {
		return fmt.Errorf("%w: longer than 128 bytes", ErrInvalidUserID)
	}
	return nil
}

// IncidentCategory is the kind of environmental incident a report describes
type IncidentCategory string

const (
	CategoryIllegalMining  IncidentCategory = "illegal_mining"
	CategoryWaterPollution IncidentCategory = "water_pollution"
	CategoryDeforestation  IncidentCategory = "deforestation"
)

// IsValid reports whether c is one of the known incident categories
func (c IncidentCategory) IsValid() bool {
	switch c {
	case CategoryIllegalMining, CategoryWaterPollution, CategoryDeforestation:
		return true
	}
	return false
}

// ReportChannel is how a report reached the platform
type ReportChannel string

const (
	ChannelWeb   ReportChannel = "web"
	ChannelSMS   ReportChannel = "sms"
	ChannelVoice ReportChannel = "voice"
)

// IsValid reports whether c is one of the known report channels
func (c ReportChannel) IsValid() bool {
	switch c {
	case ChannelWeb, ChannelSMS, ChannelVoice:
		return true
	}
	return false
}

// Metadata keys written on activity records
const (
	MetaCategory = "category"
	MetaChannel  = "channel"
	MetaBadgeID  = "badge_id"
	MetaRankFrom = "rank_from"
	MetaRankTo   = "rank_to"
	MetaOutcome  = "outcome_id"
	MetaRegion   = "region"
	MetaCell     = "cell"
)

// LatLng represents a geographic coordinate
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// IsValid checks the coordinate is on the globe
func (l LatLng) IsValid() bool {
	return l.Lat >= -90 && l.Lat <= 90 && l.Lng >= -180 && l.Lng <= 180
}

// Pagination contains pagination parameters
type Pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Total    int `json:"total"`
}

// Default and maximum page sizes
const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// Normalize fills defaults and clamps the page size. Page is capped so that
// Offset()+PageSize stays within int.
func (p Pagination) Normalize() Pagination {
	if p.PageSize <= 0 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	if p.Page < 1 {
		p.Page = 1
	}
	if maxPage := math.MaxInt/p.PageSize - 1; p.Page > maxPage {
		p.Page = maxPage
	}
	return p
}

// HasMore returns true if there are more pages
func (p Pagination) HasMore() bool {
	return p.Page*p.PageSize < p.Total
}

// Offset returns the offset for database queries
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// TotalPages returns the total number of pages
func (p Pagination) TotalPages() int {
	if p.PageSize <= 0 {
		return 0
	}
	return (p.Total + p.PageSize - 1) / p.PageSize
}

// ValidationResult contains validation results
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors map[string]string `json:"errors,omitempty"`
}

// NewValidationResult creates a new validation result
func NewValidationResult() *ValidationResult {
	return &ValidationResult{
		Valid:  true,
		Errors: make(map[string]string),
	}
}

// AddError adds a validation error
func (v *ValidationResult) AddError(field, message string) {
	v.Valid = false
	v.Errors[field] = message
}

// HasErrors returns true if there are validation errors
func (v *ValidationResult) HasErrors() bool {
	return len(v.Errors) > 0
}

// Err converts the result into an error wrapping ErrInvalidInput, or nil when valid
func (v *ValidationResult) Err() error {
	if !v.HasErrors() {
		return nil
	}
	// first field in a stable order keeps messages reproducible
	var first string
	for field := range v.Errors {
		if first == "" || field < first {
			first = field
		}
	}
	return fmt.Errorf("%w: %s %s", ErrInvalidInput, first, v.Errors[first])
}

// RequireNonNegative records an error for each negative field
func (v *ValidationResult) RequireNonNegative(fields map[string]int) {
	for field, n := range fields {
		if n < 0 {
			v.AddError(field, fmt.Sprintf("must be non-negative, got %d", n))
		}
	}
}
