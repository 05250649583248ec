// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package navigation converts GNSS positions into the local frames used by
// guidance: Earth-centred (ECEF), local North-East-Down (NED) around a fixed
// origin, and the race frame aligned with the mean wind.
package navigation

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Spheroid constants.
const (
	flatteningSq = 0.99330561993959 // (1 - f)^2
	radiusSq     = 40680631590769.0 // equatorial radius squared, m^2
)

var (
	ErrOriginNotSet     = errors.New("navigation: NED origin not set")
	ErrWindAngleNotSet  = errors.New("navigation: mean wind angle not set")
	ErrRaceOriginNotSet = errors.New("navigation: race origin not set")
)

// GeodeticPosition is a WGS-84 style position. Lat and Lon in degrees,
// Alt in meters.
type GeodeticPosition struct {
	Lat float64 `json:"lat" yaml:"lat_deg"`
	Lon float64 `json:"lon" yaml:"lon_deg"`
	Alt float64 `json:"alt" yaml:"alt_m"`
}

// Validate reports whether the position is within the geodetic ranges.
func (g GeodeticPosition) Validate() error {
	if math.IsNaN(g.Lat) || g.Lat < -90 || g.Lat > 90 {
		return fmt.Errorf("latitude %v out of range [-90,90]", g.Lat)
	}
	if math.IsNaN(g.Lon) || g.Lon < -180 || g.Lon > 180 {
		return fmt.Errorf("longitude %v out of range [-180,180]", g.Lon)
	}
	if math.IsNaN(g.Alt) || math.IsInf(g.Alt, 0) {
		return fmt.Errorf("altitude %v is not finite", g.Alt)
	}
	return nil
}

// ECEF is an Earth-centred Earth-fixed position in decimeters.
type ECEF struct {
	X int32 `json:"x_dm"`
	Y int32 `json:"y_dm"`
	Z int32 `json:"z_dm"`
}

// NED is a local North-East-Down offset in decimeters.
type NED struct {
	North int32 `json:"north_dm"`
	East  int32 `json:"east_dm"`
	Down  int32 `json:"down_dm"`
}

// RacePosition is the boat position in the race frame, in meters. X points
// downwind along the mean wind, Y completes the frame.
type RacePosition struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Precision selects the arithmetic used by Transform.
type Precision int

const (
	// PrecisionFixed works on int32 decimeters and truncates toward zero at
	// every frame, matching the onboard integer message formats.
	PrecisionFixed Precision = iota
	// PrecisionFloat keeps float64 meters and rounds to decimeters only
	// when producing NED.
	PrecisionFloat
)

func (p Precision) String() string {
	switch p {
	case PrecisionFixed:
		return "fixed"
	case PrecisionFloat:
		return "float"
	default:
		return fmt.Sprintf("precision(%d)", int(p))
	}
}

// ParsePrecision accepts "fixed" or "float".
func ParsePrecision(s string) (Precision, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fixed":
		return PrecisionFixed, nil
	case "float":
		return PrecisionFloat, nil
	}
	return 0, fmt.Errorf("unknown precision %q (want fixed or float)", s)
}

// quantize applies the on-wire resolution of a GNSS fix:
// 1e-7 degree for lat/lon and millimeters for altitude.
func quantize(g GeodeticPosition) GeodeticPosition {
	return GeodeticPosition{
		Lat: float64(int32(g.Lat*1e7)) / 1e7,
		Lon: float64(int32(g.Lon*1e7)) / 1e7,
		Alt: float64(int32(g.Alt*1e3)) / 1e3,
	}
}

// ecefMeters returns the ECEF position in meters.
func ecefMeters(g GeodeticPosition) (x, y, z float64) {
	mu := g.Lat * math.Pi / 180
	l := g.Lon * math.Pi / 180
	h := g.Alt

	labS := math.Atan2(flatteningSq*math.Tan(mu), 1)
	sinLab := math.Sin(labS)
	rS := math.Sqrt(radiusSq / (1 + (1/flatteningSq-1)*sinLab*sinLab))

	cosL, sinL := math.Cos(l), math.Sin(l)
	x = rS*math.Cos(labS)*cosL + h*math.Cos(mu)*cosL
	y = rS*math.Cos(labS)*sinL + h*math.Cos(mu)*sinL
	z = rS*sinLab + h*math.Sin(mu)
	return x, y, z
}

// GeoToECEF converts a geodetic position to ECEF decimeters, truncating
// toward zero.
func GeoToECEF(g GeodeticPosition) ECEF {
	x, y, z := ecefMeters(quantize(g))
	return ECEF{
		X: int32(x * 10),
		Y: int32(y * 10),
		Z: int32(z * 10),
	}
}

// WrapAngle maps an angle in radians into (-pi, pi].
func WrapAngle(a float64) float64 {
	if math.IsNaN(a) || math.IsInf(a, 0) {
		return a
	}
	a = math.Mod(a, 2*math.Pi)
	if a > math.Pi {
		a -= 2 * math.Pi
	} else if a <= -math.Pi {
		a += 2 * math.Pi
	}
	return a
}
