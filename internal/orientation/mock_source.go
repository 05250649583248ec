// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"math"
	"time"
)

type mockSource struct {
	start   time.Time
	now     func() time.Time
	heading float64
	heel    float64
}

// NewMockSource creates a mock attitude source for bench runs: the boat
// heels steadily to heel degrees with some wave motion while the heading
// wanders around heading.
func NewMockSource(heading, heel float64) Source {
	return &mockSource{start: time.Now(), now: time.Now, heading: heading, heel: heel}
}

func (m *mockSource) Next() (Pose, error) {
	now := m.now()
	elapsed := now.Sub(m.start).Seconds()

	yaw := m.heading + 5*math.Sin(elapsed*0.2)
	yaw = math.Mod(yaw+180, 360)
	if yaw <= 0 {
		yaw += 360
	}
	yaw -= 180

	return Pose{
		Source: "mock",
		Roll:   m.heel + 3*math.Sin(elapsed*1.3),
		Pitch:  2 * math.Cos(elapsed*0.9),
		Yaw:    yaw,
		Time:   now,
	}, nil
}
