package orientation

import (
	"math"
	"time"
)

// Pose is an attitude estimate in degrees. Yaw is the heading, clockwise
// from north, in (-180, 180].
type Pose struct {
	Source string    `json:"source"`
	Roll   float64   `json:"roll"`
	Pitch  float64   `json:"pitch"`
	Yaw    float64   `json:"yaw"`
	Time   time.Time `json:"time"`
}

// Radians returns roll, pitch and yaw in radians.
func (p Pose) Radians() (roll, pitch, yaw float64) {
	return p.Roll * math.Pi / 180, p.Pitch * math.Pi / 180, p.Yaw * math.Pi / 180
}

// Source is anything that can provide poses over time.
type Source interface {
	Next() (Pose, error)
}

// PoseFromGravity derives roll and pitch from an accelerometer reading taken
// while the boat is not accelerating. Yaw is taken from the given heading.
//
//	roll  = atan2(ay, az)
//	pitch = atan2(-ax, sqrt(ay² + az²))
func PoseFromGravity(ax, ay, az, headingDeg float64) Pose {
	rollRad := math.Atan2(ay, az)
	pitchRad := math.Atan2(-ax, math.Sqrt(ay*ay+az*az))

	return Pose{
		Roll:  rollRad * 180.0 / math.Pi,
		Pitch: pitchRad * 180.0 / math.Pi,
		Yaw:   headingDeg,
	}
}
