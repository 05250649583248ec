// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package guidance

import (
	"math"

	"github.com/relabs-tech/sailing_computer/internal/navigation"
)

// Attitude sources compared during a tack.
const (
	SourceEstimator = iota
	SourceStation
	numSources
)

// TackThresholds decide when a tack is over.
//
// The roll condition holds when the heel has changed side and reached at
// least 1/RollStopRatio of the pre-tack heel. The yaw condition holds when the
// heading has turned by at least YawStop radians in the steering direction.
type TackThresholds struct {
	RollStopRatio float64 `json:"roll_stop_ratio"`
	YawStop       float64 `json:"yaw_stop"`
}

// tackManeuver is the state carried while tacking. Its presence on the
// Controller is what makes the controller "tacking".
type tackManeuver struct {
	// +1 steers left (port to starboard haul), -1 steers right.
	turn       float64
	rollBefore [numSources]float64
	yawBefore  [numSources]float64
	// sources without a pre-tack snapshot never satisfy a condition
	silent [numSources]bool
}

func newTackManeuver(alphaStar float64, m Measurements) *tackManeuver {
	t := &tackManeuver{turn: -1}
	if portHaul(alphaStar) {
		t.turn = 1
	}
	for i := 0; i < numSources; i++ {
		t.rollBefore[i] = m.Roll[i]
		t.yawBefore[i] = navigation.WrapAngle(m.Yaw[i])
		t.silent[i] = m.Silent[i]
	}
	return t
}

// portHaul reports whether a tack requested towards alphaStar starts from a
// port haul.
func portHaul(alphaStar float64) bool { return -alphaStar < 0 }

func (t *tackManeuver) completed(m Measurements, th TackThresholds) bool {
	rollOK := false
	yawOK := false
	for i := 0; i < numSources; i++ {
		if t.silent[i] || m.Silent[i] {
			continue
		}
		if rollReversed(t.rollBefore[i], m.Roll[i], th.RollStopRatio) {
			rollOK = true
		}
		if yawTurned(t.yawBefore[i], navigation.WrapAngle(m.Yaw[i]), t.turn, th.YawStop) {
			yawOK = true
		}
	}
	return rollOK && yawOK
}

// rollReversed is true when roll has crossed to the other side by at least
// |before|/ratio. An exactly upright snapshot never counts as reversed.
func rollReversed(before, now, ratio float64) bool {
	switch {
	case before > 0:
		return now <= -before/ratio
	case before < 0:
		return now >= -before/ratio
	default:
		return false
	}
}

// yawTurned compares the current yaw with the pre-tack yaw, unwrapping across
// +-pi in the steering direction.
func yawTurned(before, now, turn, threshold float64) bool {
	if turn > 0 {
		if before < 0 && now >= 0 {
			now -= 2 * math.Pi
		}
		return now-before <= -threshold
	}
	if before > 0 && now <= 0 {
		now += 2 * math.Pi
	}
	return now-before >= threshold
}
