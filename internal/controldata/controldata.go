// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package controldata keeps the moving averages guidance works on: true wind
// direction, apparent wind angle and alpha, the angle between the true wind
// direction and the course over ground. Alpha is negative on port haul.
package controldata

import (
	"fmt"
	"math"

	"github.com/relabs-tech/sailing_computer/internal/navigation"
)

// Windows sets the number of samples in each moving average.
type Windows struct {
	Alpha    int
	Apparent int
	TWD      int
}

// DefaultWindows returns the onboard window sizes.
func DefaultWindows() Windows {
	return Windows{Alpha: 10, Apparent: 10, TWD: 30}
}

// angleWindow averages angles on the unit circle over the last n samples.
type angleWindow struct {
	sin, cos []float64
	next     int
	count    int
	sumSin   float64
	sumCos   float64
}

func newAngleWindow(n int) *angleWindow {
	return &angleWindow{sin: make([]float64, n), cos: make([]float64, n)}
}

func (w *angleWindow) push(a float64) {
	s, c := math.Sin(a), math.Cos(a)
	if w.count == len(w.sin) {
		w.sumSin -= w.sin[w.next]
		w.sumCos -= w.cos[w.next]
	} else {
		w.count++
	}
	w.sin[w.next], w.cos[w.next] = s, c
	w.sumSin += s
	w.sumCos += c
	w.next = (w.next + 1) % len(w.sin)
}

func (w *angleWindow) mean() (float64, bool) {
	if w.count == 0 {
		return 0, false
	}
	return math.Atan2(w.sumSin, w.sumCos), true
}

func (w *angleWindow) reset() {
	for i := range w.sin {
		w.sin[i], w.cos[i] = 0, 0
	}
	w.next, w.count = 0, 0
	w.sumSin, w.sumCos = 0, 0
}

// Store is fed from the control loop goroutine only. All angles are radians.
type Store struct {
	alpha    *angleWindow
	apparent *angleWindow
	twd      *angleWindow

	cog     float64
	haveCOG bool
	yaw     float64
	haveYaw bool
}

// New returns an empty store.
func New(w Windows) (*Store, error) {
	if w.Alpha < 1 || w.Apparent < 1 || w.TWD < 1 {
		return nil, fmt.Errorf("moving average windows must be >= 1, got %+v", w)
	}
	return &Store{
		alpha:    newAngleWindow(w.Alpha),
		apparent: newAngleWindow(w.Apparent),
		twd:      newAngleWindow(w.TWD),
	}, nil
}

// UpdateCOG records a course over ground and, once the true wind direction
// is known, a new alpha sample.
func (s *Store) UpdateCOG(cog float64) {
	s.cog = navigation.WrapAngle(cog)
	s.haveCOG = true
	if twd, ok := s.twd.mean(); ok {
		s.alpha.push(navigation.WrapAngle(twd - s.cog))
	}
}

// UpdateTWD records a true wind direction (where the wind comes from).
func (s *Store) UpdateTWD(twd float64) {
	s.twd.push(twd)
}

// UpdateApparent records an apparent wind angle relative to the bow,
// negative when the wind comes from port.
func (s *Store) UpdateApparent(a float64) {
	s.apparent.push(a)
}

// UpdateYaw records the boat heading.
func (s *Store) UpdateYaw(yaw float64) {
	s.yaw = navigation.WrapAngle(yaw)
	s.haveYaw = true
}

// Alpha returns the moving average of alpha.
func (s *Store) Alpha() (float64, bool) { return s.alpha.mean() }

// AlphaYaw returns alpha computed from the heading instead of the course.
// It follows the boat during a tack, when COG lags.
func (s *Store) AlphaYaw() (float64, bool) {
	twd, ok := s.twd.mean()
	if !ok || !s.haveYaw {
		return 0, false
	}
	return navigation.WrapAngle(twd - s.yaw), true
}

// Apparent returns the mean apparent wind angle.
func (s *Store) Apparent() (float64, bool) { return s.apparent.mean() }

// TWD returns the mean true wind direction.
func (s *Store) TWD() (float64, bool) { return s.twd.mean() }

// COG returns the last course over ground.
func (s *Store) COG() (float64, bool) { return s.cog, s.haveCOG }

// ResetAlpha drops the alpha history, e.g. after the boat changed haul.
func (s *Store) ResetAlpha() { s.alpha.reset() }
