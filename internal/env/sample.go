package env

import "time"

// Wind is the weather station's wind reading as published on MQTT.
// Angles in degrees, speeds in knots. The apparent angle is relative to the
// bow and negative when the wind comes from port; the true angle is the
// direction the wind comes from.
type Wind struct {
	Source string `json:"source"`

	ApparentAngle float64 `json:"apparent_angle_deg"`
	ApparentSpeed float64 `json:"apparent_speed_kn"`
	TrueAngle     float64 `json:"true_angle_deg"`
	TrueSpeed     float64 `json:"true_speed_kn"`

	HaveApparent bool `json:"have_apparent"`
	HaveTrue     bool `json:"have_true"`

	Time time.Time `json:"time"`
}
