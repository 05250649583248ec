// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package guidance computes rudder and sail commands each control tick.
//
// While following the reference the rudder comes from a PI controller on
// alpha (the angle between true wind direction and course) and the sail from
// a sector law on the apparent wind. During a tack both come from a helmsman
// law until the roll and yaw completion conditions hold.
package guidance

import (
	"fmt"
	"math"
)

// Mode is the controller state.
type Mode int

const (
	FollowingReference Mode = iota
	Tacking
)

func (m Mode) String() string {
	switch m {
	case FollowingReference:
		return "following"
	case Tacking:
		return "tacking"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// ReferenceAction is what path planning asks for. AlphaStar is in radians.
type ReferenceAction struct {
	AlphaStar  float64 `json:"alpha_star"`
	ShouldTack bool    `json:"should_tack"`
}

// Measurements are the per-tick inputs. Angles in radians; Roll and Yaw are
// indexed by SourceEstimator and SourceStation. Silent marks a source that
// has not reported yet, whose Roll and Yaw are placeholders.
type Measurements struct {
	Alpha    float64
	AlphaYaw float64
	Apparent float64
	Roll     [numSources]float64
	Yaw      [numSources]float64
	Silent   [numSources]bool
}

// Output is the result of one Step.
type Output struct {
	Rudder        float64
	Sail          float64
	Mode          Mode
	Alpha         float64
	AlphaStar     float64
	TackCompleted bool
	Notices       []string
}

// Config is the full controller configuration.
type Config struct {
	Gains        Gains
	RudderMax    float64
	SailMax      float64
	SailSectors  int
	SailOverride float64 // sail command used instead of the sail law when >= 0
	Helmsman     HelmsmanLaw
	Tack         TackThresholds
}

// DefaultConfig returns the onboard defaults.
func DefaultConfig() Config {
	return Config{
		Gains: Gains{
			P:           1.0,
			I:           0.05,
			Kaw:         0.5,
			Cp:          1.0,
			Ci:          1.0,
			Conditional: true,
		},
		RudderMax:    0.9,
		SailMax:      0.56,
		SailSectors:  4,
		SailOverride: -1,
		Helmsman:     HelmsmanLaw{Rudder: 0.7, Sail: 0.2},
		Tack: TackThresholds{
			RollStopRatio: 2.0,
			YawStop:       deg(60),
		},
	}
}

// Validate checks the ranges the control laws depend on.
func (c Config) Validate() error {
	if c.RudderMax <= 0 {
		return fmt.Errorf("rudder max must be > 0, got %v", c.RudderMax)
	}
	if c.SailMax <= 0 {
		return fmt.Errorf("sail max must be > 0, got %v", c.SailMax)
	}
	if c.SailSectors < 2 {
		return fmt.Errorf("sail sectors must be >= 2, got %d", c.SailSectors)
	}
	if c.Tack.RollStopRatio <= 0 {
		return fmt.Errorf("roll stop ratio must be > 0, got %v", c.Tack.RollStopRatio)
	}
	if c.Tack.YawStop <= 0 || c.Tack.YawStop >= 2*math.Pi {
		return fmt.Errorf("yaw stop must be in (0, 2pi), got %v", c.Tack.YawStop)
	}
	return nil
}

// Controller holds the PI state and the tack state machine. It is driven
// from a single goroutine.
type Controller struct {
	cfg  Config
	pi   *PI
	sail SailLaw
	tack *tackManeuver
}

// New returns a controller in FollowingReference mode.
func New(cfg Config) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	sail, err := NewSailLaw(cfg.SailMax, cfg.SailSectors)
	if err != nil {
		return nil, err
	}
	return &Controller{
		cfg:  cfg,
		pi:   NewPI(cfg.Gains, cfg.RudderMax),
		sail: sail,
	}, nil
}

// Config returns the active configuration.
func (c *Controller) Config() Config { return c.cfg }

// Mode reports whether a tack is in progress.
func (c *Controller) Mode() Mode {
	if c.tack != nil {
		return Tacking
	}
	return FollowingReference
}

// Step runs one guidance tick. When the tack completes, ref.ShouldTack is
// cleared and Output.TackCompleted is set so path planning can be told.
func (c *Controller) Step(ref *ReferenceAction, m Measurements) Output {
	out := Output{Alpha: m.Alpha, AlphaStar: ref.AlphaStar}

	var rudder, sail float64
	if ref.ShouldTack {
		if c.tack == nil {
			c.tack = newTackManeuver(ref.AlphaStar, m)
			dir := "starboard to port"
			if c.tack.turn > 0 {
				dir = "port to starboard"
			}
			out.Notices = append(out.Notices, "Tack started, "+dir+".")
		} else if c.tack.completed(m, c.cfg.Tack) {
			c.tack = nil
			ref.ShouldTack = false
			out.TackCompleted = true
			out.Notices = append(out.Notices, "Tack completed.")
		}

		if c.tack != nil {
			if c.tack.turn > 0 {
				rudder, sail = c.cfg.Helmsman.PortToStarboard(m.AlphaYaw)
			} else {
				rudder, sail = c.cfg.Helmsman.StarboardToPort(m.AlphaYaw)
			}
		}
	}

	if !ref.ShouldTack {
		if c.tack != nil && !out.TackCompleted {
			c.tack = nil
			out.Notices = append(out.Notices, "Tack aborted.")
		}
		rudder = c.pi.Update(ref.AlphaStar, m.Alpha)
		if c.cfg.SailOverride < 0 {
			sail = c.sail.Command(m.Apparent)
		} else {
			sail = c.cfg.SailOverride
		}
	}

	out.Rudder = clamp(rudder, -c.cfg.RudderMax, c.cfg.RudderMax)
	out.Sail = clamp(sail, 0, c.cfg.SailMax)
	out.Mode = c.Mode()
	return out
}

// Params is a live parameter update. Nil fields are left unchanged.
type Params struct {
	P             *float64 `json:"p,omitempty"`
	I             *float64 `json:"i,omitempty"`
	Kaw           *float64 `json:"kaw,omitempty"`
	Cp            *float64 `json:"cp,omitempty"`
	Ci            *float64 `json:"ci,omitempty"`
	Conditional   *bool    `json:"conditional,omitempty"`
	SailOverride  *float64 `json:"sail_override,omitempty"`
	SailSectors   *int     `json:"sail_sectors,omitempty"`
	RollStopRatio *float64 `json:"roll_stop_ratio,omitempty"`
	YawStopDeg    *float64 `json:"yaw_stop_deg,omitempty"`
	HelmRudder    *float64 `json:"helm_rudder,omitempty"`
	HelmSail      *float64 `json:"helm_sail,omitempty"`
}

// Apply validates and installs a parameter update. Nothing is changed when
// the update is rejected. The returned notices are meant for the operator.
func (c *Controller) Apply(p Params) ([]string, error) {
	next := c.cfg
	g := &next.Gains
	setFloat(&g.P, p.P)
	setFloat(&g.I, p.I)
	setFloat(&g.Kaw, p.Kaw)
	setFloat(&g.Cp, p.Cp)
	setFloat(&g.Ci, p.Ci)
	if p.Conditional != nil {
		g.Conditional = *p.Conditional
	}
	setFloat(&next.SailOverride, p.SailOverride)
	if p.SailSectors != nil {
		next.SailSectors = *p.SailSectors
	}
	setFloat(&next.Tack.RollStopRatio, p.RollStopRatio)
	if p.YawStopDeg != nil {
		next.Tack.YawStop = deg(*p.YawStopDeg)
	}
	setFloat(&next.Helmsman.Rudder, p.HelmRudder)
	setFloat(&next.Helmsman.Sail, p.HelmSail)

	if err := next.Validate(); err != nil {
		return nil, err
	}
	sail, err := NewSailLaw(next.SailMax, next.SailSectors)
	if err != nil {
		return nil, err
	}

	var notices []string
	if c.pi.SetGains(next.Gains) {
		if next.Gains.Conditional {
			notices = append(notices, "Switched to conditional PI.")
		} else {
			notices = append(notices, "Switched to standard PI with anti-windup.")
		}
	}
	c.cfg = next
	c.sail = sail
	return notices, nil
}

func setFloat(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}
