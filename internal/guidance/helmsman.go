// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package guidance

import "math"

func deg(d float64) float64 { return d * math.Pi / 180 }

// rudder breakpoints for a port-to-starboard tack
var (
	rudderFull  = deg(-30)
	rudderPeak  = deg(18)
	rudderHold  = deg(22)
	rudderRelax = deg(40)
)

// sail breakpoints for a port-to-starboard tack
var (
	sailLow     = deg(-30)
	sailLowSpan = deg(60)
	sailStart   = deg(5)
	sailPeak    = deg(15.5)
	sailHold    = deg(19.5)
	sailRelax   = deg(30)
)

// HelmsmanLaw reproduces how a human helmsman drives rudder and sail through
// a tack, as a function of the angle between heading and true wind.
// Rudder is the command of a hard-over (45 degree) left rudder; Sail is the
// command of a sail trimmed at 20 degrees.
type HelmsmanLaw struct {
	Rudder float64 `json:"rudder"`
	Sail   float64 `json:"sail"`
}

// PortToStarboard returns rudder and sail for a tack from port haul
// (alpha < 0) to starboard haul.
func (h HelmsmanLaw) PortToStarboard(alpha float64) (rudder, sail float64) {
	return h.rudder(alpha), h.sail(alpha)
}

// StarboardToPort mirrors PortToStarboard: alpha is negated on the way in and
// the rudder on the way out. The sail command is not mirrored.
func (h HelmsmanLaw) StarboardToPort(alpha float64) (rudder, sail float64) {
	r, s := h.PortToStarboard(-alpha)
	return -r, s
}

func (h HelmsmanLaw) rudder(a float64) float64 {
	r := h.Rudder
	switch {
	case a <= rudderFull:
		return r
	case a <= 0:
		return r * a / rudderFull
	case a <= rudderPeak:
		return r * a / rudderPeak
	case a <= rudderHold:
		return r
	case a <= rudderRelax:
		return r * (rudderRelax - a) / (rudderRelax - rudderHold)
	default:
		return 0
	}
}

func (h HelmsmanLaw) sail(a float64) float64 {
	s := h.Sail
	switch {
	case a <= sailLow:
		return s * (sailLow - a) / sailLowSpan
	case a <= sailStart:
		return 0
	case a <= sailPeak:
		return s * (a - sailStart) / (sailPeak - sailStart)
	case a <= sailHold:
		return s
	case a <= sailRelax:
		return s * (sailRelax - a) / (sailRelax - sailHold)
	default:
		return 0
	}
}
