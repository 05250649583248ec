// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package guidance

import "math"

// Gains configures the PI rudder controller.
//
// With Conditional set the proportional and integral gains shrink as the
// error grows:
//
//	out = P/(1+Cp*|e|)*e + I/(1+Ci*e^2)*sum(e)
//
// Otherwise a plain PI with back-calculation anti-windup is used:
//
//	sum += e + Kaw*(sat(last) - last)
//	out  = P*e + I*sum
type Gains struct {
	P           float64 `json:"p"`
	I           float64 `json:"i"`
	Kaw         float64 `json:"kaw"`
	Cp          float64 `json:"cp"`
	Ci          float64 `json:"ci"`
	Conditional bool    `json:"conditional"`
}

// PI is a discrete PI controller. The output is not saturated; Limit is only
// used by the anti-windup term.
type PI struct {
	gains Gains
	limit float64
	sum   float64
	last  float64
}

// NewPI returns a controller with zero state.
func NewPI(g Gains, limit float64) *PI {
	return &PI{gains: g, limit: limit}
}

// Gains returns the active gains.
func (c *PI) Gains() Gains { return c.gains }

// SetGains installs new gains. Switching between the conditional and the
// anti-windup law clears the accumulator and the last output; the return
// value reports whether that happened.
func (c *PI) SetGains(g Gains) bool {
	switched := g.Conditional != c.gains.Conditional
	c.gains = g
	if switched {
		c.Reset()
	}
	return switched
}

// SetLimit changes the saturation used for anti-windup.
func (c *PI) SetLimit(limit float64) { c.limit = limit }

// Reset clears the integral accumulator and the last output.
func (c *PI) Reset() {
	c.sum = 0
	c.last = 0
}

// Update runs one step with error ref-meas and returns the raw output.
// A non-finite error leaves the state untouched and returns 0.
func (c *PI) Update(ref, meas float64) float64 {
	e := ref - meas
	if math.IsNaN(e) || math.IsInf(e, 0) {
		return 0
	}
	g := c.gains

	var out float64
	if g.Conditional {
		p := g.P / (1 + g.Cp*math.Abs(e))
		c.sum += e
		i := g.I / (1 + g.Ci*e*e)
		out = p*e + i*c.sum
	} else {
		c.sum += e + g.Kaw*(saturate(c.last, c.limit)-c.last)
		out = g.P*e + g.I*c.sum
	}

	c.last = out
	return out
}

func saturate(v, limit float64) float64 {
	if v > limit {
		return limit
	}
	if v < -limit {
		return -limit
	}
	return v
}

// clamp bounds v to [lo, hi]; NaN is treated as 0.
func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		v = 0
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
