package imu

import "time"

// Motion is the weather station's rate gyro and accelerometer output.
type Motion struct {
	Source string `json:"source"`

	RollRate  float64 `json:"roll_rate"` // deg/s
	PitchRate float64 `json:"pitch_rate"`
	YawRate   float64 `json:"yaw_rate"`

	Ax float64 `json:"ax"` // g
	Ay float64 `json:"ay"`
	Az float64 `json:"az"`

	HaveRates bool `json:"have_rates"`
	HaveAccel bool `json:"have_accel"`

	Time time.Time `json:"time"`
}
