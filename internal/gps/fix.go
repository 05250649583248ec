package gps

// Fix represents a single combined GPS fix suitable for JSON and MQTT.
// The same shape carries raw receiver fixes and filtered estimator output.
type Fix struct {
	Time       string  `json:"time"`        // e.g. "12:34:56"
	Date       string  `json:"date"`        // e.g. "2025-12-06"
	Latitude   float64 `json:"lat"`         // decimal degrees
	Longitude  float64 `json:"lon"`         // decimal degrees
	Altitude   float64 `json:"alt"`         // meters above mean sea level
	SpeedKnots float64 `json:"speed_knots"` // speed over ground
	CourseDeg  float64 `json:"course_deg"`  // course over ground
	Validity   string  `json:"validity"`    // "A" (valid) / "V" (void), etc.

	Quality    int     `json:"quality"`    // GGA fix quality, 0 = invalid
	FixType    int     `json:"fix_type"`   // 1 = none, 2 = 2D, 3 = 3D
	Satellites int     `json:"satellites"` // satellites in use
	HDOP       float64 `json:"hdop"`

	HavePosition bool `json:"have_position"`
	HaveVelocity bool `json:"have_velocity"`
}

// Valid reports whether the fix carries a usable position.
func (f Fix) Valid() bool {
	if !f.HavePosition {
		return false
	}
	if f.Validity == "V" {
		return false
	}
	return f.Quality > 0 || f.Validity == "A"
}
