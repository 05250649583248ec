// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package actuator defines the messages sent to the servo driver.
package actuator

import "time"

// Control channel indices.
const (
	Rudder = 0
	Sail   = 3

	NumControls = 8
)

// Command is one actuator command. Only Rudder and Sail are driven; every
// other channel stays zero.
type Command struct {
	Control [NumControls]float64 `json:"control"`
	Time    time.Time            `json:"time"`
}

// NewCommand builds a command with the rudder and sail channels set.
func NewCommand(rudder, sail float64, t time.Time) Command {
	var c Command
	c.Control[Rudder] = rudder
	c.Control[Sail] = sail
	c.Time = t
	return c
}

// Zero returns the all-zero command published on start-up and shutdown.
func Zero(t time.Time) Command {
	return Command{Time: t}
}

// IsZero reports whether every channel is zero.
func (c Command) IsZero() bool {
	for _, v := range c.Control {
		if v != 0 {
			return false
		}
	}
	return true
}

// Armed is published once at start-up to arm the servo driver.
type Armed struct {
	Armed bool      `json:"armed"`
	Time  time.Time `json:"time"`
}
