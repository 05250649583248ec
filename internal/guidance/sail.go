// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package guidance

import (
	"fmt"
	"math"
)

// SailLaw maps the mean apparent wind angle to a sail command. [0, pi] is
// split into Sectors equal sectors; sector 0 (wind ahead) gives Max, every
// following sector eases the sail by Max/Sectors and the last sector gives 0.
type SailLaw struct {
	Max     float64
	Sectors int

	positionQuantum float64
	commandQuantum  float64
}

// NewSailLaw validates and precomputes a sail law.
func NewSailLaw(maxCmd float64, sectors int) (SailLaw, error) {
	if sectors < 2 {
		return SailLaw{}, fmt.Errorf("sail sectors must be >= 2, got %d", sectors)
	}
	if maxCmd <= 0 {
		return SailLaw{}, fmt.Errorf("sail max must be > 0, got %v", maxCmd)
	}
	return SailLaw{
		Max:             maxCmd,
		Sectors:         sectors,
		positionQuantum: math.Pi / float64(sectors),
		commandQuantum:  maxCmd / float64(sectors),
	}, nil
}

// Command returns the sail command for the apparent wind angle in radians.
func (s SailLaw) Command(apparent float64) float64 {
	a := math.Abs(apparent)
	if math.IsNaN(a) {
		return 0
	}
	sector := int(a / s.positionQuantum)
	if sector >= s.Sectors-1 {
		return 0
	}
	return s.Max - float64(sector)*s.commandQuantum
}
