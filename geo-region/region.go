// Package region maps incident locations to H3 regions.
// Wraps uber/h3-go: a region is an H3 cell at RegionResolution, and incident
// cells at finer resolutions roll up to the region containing them.
package region

import (
	"errors"
	"fmt"

	"github.com/uber/h3-go/v4"

	"github.com/ecoguardian-in/core/types"
)

// Error definitions
var (
	ErrInvalidCellID      = errors.New("invalid H3 cell ID")
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	ErrInvalidResolution  = errors.New("invalid resolution")
)

// Resolution constants
const (
	// RegionResolution is H3 resolution 5 (~253 km² per hexagon), about a
	// district: the unit regional leaderboards and regional_expert use
	RegionResolution = 5

	// IncidentResolution is H3 resolution 9 (~0.1 km²), precise enough to
	// tell two mining pits apart without publishing exact coordinates
	IncidentResolution = 9

	MinResolution = 0
	MaxResolution = 15
)

// cellFromString parses a hex string into an H3 Cell
func cellFromString(cellID string) (h3.Cell, error) {
	var cell h3.Cell
	if err := cell.UnmarshalText([]byte(cellID)); err != nil {
		return 0, fmt.Errorf("%w: %s", ErrInvalidCellID, cellID)
	}
	if !cell.IsValid() {
		return 0, fmt.Errorf("%w: %s", ErrInvalidCellID, cellID)
	}
	return cell, nil
}

// IncidentCell converts an incident location to its H3 cell
func IncidentCell(loc types.LatLng) (string, error) {
	return cellAt(loc, IncidentResolution)
}

// ForLocation returns the region containing a location
func ForLocation(loc types.LatLng) (types.RegionID, error) {
	cell, err := cellAt(loc, RegionResolution)
	if err != nil {
		return "", err
	}
	return types.RegionID(cell), nil
}

func cellAt(loc types.LatLng, resolution int) (string, error) {
	if !loc.IsValid() {
		return "", fmt.Errorf("%w: (%f, %f)", ErrInvalidCoordinates, loc.Lat, loc.Lng)
	}
	if resolution < MinResolution || resolution > MaxResolution {
		return "", fmt.Errorf("%w: %d", ErrInvalidResolution, resolution)
	}
	cell := h3.LatLngToCell(h3.NewLatLng(loc.Lat, loc.Lng), resolution)
	return cell.String(), nil
}

// ForCell returns the region containing cellID. A cell already at region
// resolution is its own region; coarser cells are rejected.
func ForCell(cellID string) (types.RegionID, error) {
	cell, err := cellFromString(cellID)
	if err != nil {
		return "", err
	}
	switch res := cell.Resolution(); {
	case res == RegionResolution:
		return types.RegionID(cell.String()), nil
	case res < RegionResolution:
		return "", fmt.Errorf("%w: cell resolution %d is coarser than region resolution %d",
			ErrInvalidResolution, res, RegionResolution)
	}
	return types.RegionID(cell.Parent(RegionResolution).String()), nil
}
