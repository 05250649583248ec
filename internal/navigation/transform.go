// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package navigation

import (
	"math"
)

// Transform carries the frame state: NED origin with its cached trig values,
// the mean wind angle and the race origin. It is not safe for concurrent use.
type Transform struct {
	precision Precision

	originSet  bool
	origin     GeodeticPosition
	originECEF ECEF
	originM    [3]float64
	sinLat     float64
	cosLat     float64
	sinLon     float64
	cosLon     float64

	windSet   bool
	windAngle float64
	sinWind   float64
	cosWind   float64

	raceSet bool
	raceGeo GeodeticPosition
	raceN   float64 // race origin north; decimeters in fixed mode, meters in float mode
	raceE   float64
}

// NewTransform returns an empty transform using the given precision.
func NewTransform(p Precision) *Transform {
	return &Transform{precision: p}
}

// Precision returns the arithmetic mode.
func (t *Transform) Precision() Precision { return t.precision }

// SetOrigin fixes the NED origin. A previously set race origin is re-expressed
// relative to the new origin.
func (t *Transform) SetOrigin(g GeodeticPosition) error {
	if err := g.Validate(); err != nil {
		return err
	}
	src := g
	if t.precision == PrecisionFixed {
		src = quantize(g)
	}
	lat := src.Lat * math.Pi / 180
	lon := src.Lon * math.Pi / 180

	t.origin = g
	t.originECEF = GeoToECEF(g)
	x, y, z := ecefMeters(g)
	t.originM = [3]float64{x, y, z}
	t.sinLat, t.cosLat = math.Sin(lat), math.Cos(lat)
	t.sinLon, t.cosLon = math.Sin(lon), math.Cos(lon)
	t.originSet = true

	if t.raceSet {
		return t.SetRaceOrigin(t.raceGeo)
	}
	return nil
}

// Origin returns the NED origin and whether it has been set.
func (t *Transform) Origin() (GeodeticPosition, bool) {
	return t.origin, t.originSet
}

// Ready reports whether NED conversions are possible.
func (t *Transform) Ready() bool { return t.originSet }

// RaceReady reports whether race-frame conversions are possible.
func (t *Transform) RaceReady() bool { return t.originSet && t.windSet && t.raceSet }

func (t *Transform) rotate(u, v, w float64) (n, e, d float64) {
	tt := t.cosLon*u + t.sinLon*v
	n = -t.sinLat*tt + t.cosLat*w
	e = -t.sinLon*u + t.cosLon*v
	d = -t.cosLat*tt - t.sinLat*w
	return n, e, d
}

// ECEFToNED expresses an ECEF position relative to the origin.
func (t *Transform) ECEFToNED(p ECEF) (NED, error) {
	if !t.originSet {
		return NED{}, ErrOriginNotSet
	}
	u := float64(p.X - t.originECEF.X)
	v := float64(p.Y - t.originECEF.Y)
	w := float64(p.Z - t.originECEF.Z)
	n, e, d := t.rotate(u, v, w)
	return NED{North: int32(n), East: int32(e), Down: int32(d)}, nil
}

// nedFloat returns the NED offset of g in meters without quantization.
func (t *Transform) nedFloat(g GeodeticPosition) (n, e, d float64) {
	x, y, z := ecefMeters(g)
	return t.rotate(x-t.originM[0], y-t.originM[1], z-t.originM[2])
}

// GeoToNED converts a geodetic position to NED decimeters.
func (t *Transform) GeoToNED(g GeodeticPosition) (NED, error) {
	if !t.originSet {
		return NED{}, ErrOriginNotSet
	}
	if t.precision == PrecisionFixed {
		return t.ECEFToNED(GeoToECEF(g))
	}
	n, e, d := t.nedFloat(g)
	return NED{
		North: int32(math.Round(n * 10)),
		East:  int32(math.Round(e * 10)),
		Down:  int32(math.Round(d * 10)),
	}, nil
}

// SetMeanWindAngle sets the mean true wind direction, radians clockwise from
// north, the wind coming from that direction.
func (t *Transform) SetMeanWindAngle(rad float64) {
	t.windAngle = rad
	t.sinWind = math.Sin(rad)
	t.cosWind = math.Cos(rad)
	t.windSet = true
}

// MeanWindAngle returns the mean wind angle in radians and whether it is set.
func (t *Transform) MeanWindAngle() (float64, bool) {
	return t.windAngle, t.windSet
}

// SetRaceOrigin places the race frame origin (usually the top mark).
func (t *Transform) SetRaceOrigin(g GeodeticPosition) error {
	if err := g.Validate(); err != nil {
		return err
	}
	if !t.originSet {
		return ErrOriginNotSet
	}
	if t.precision == PrecisionFixed {
		ned, err := t.GeoToNED(g)
		if err != nil {
			return err
		}
		t.raceN, t.raceE = float64(ned.North), float64(ned.East)
	} else {
		t.raceN, t.raceE, _ = t.nedFloat(g)
	}
	t.raceGeo = g
	t.raceSet = true
	return nil
}

// RaceOrigin returns the race origin and whether it has been set.
func (t *Transform) RaceOrigin() (GeodeticPosition, bool) {
	return t.raceGeo, t.raceSet
}

// GeoToRace converts a geodetic position to the race frame.
func (t *Transform) GeoToRace(g GeodeticPosition) (RacePosition, error) {
	switch {
	case !t.originSet:
		return RacePosition{}, ErrOriginNotSet
	case !t.windSet:
		return RacePosition{}, ErrWindAngleNotSet
	case !t.raceSet:
		return RacePosition{}, ErrRaceOriginNotSet
	}

	var n, e float64
	if t.precision == PrecisionFixed {
		ned, err := t.GeoToNED(g)
		if err != nil {
			return RacePosition{}, err
		}
		n, e = float64(ned.North), float64(ned.East)
	} else {
		n, e, _ = t.nedFloat(g)
	}

	dn := n - t.raceN
	de := e - t.raceE
	x := -t.cosWind*dn - t.sinWind*de
	y := -t.sinWind*dn + t.cosWind*de

	if t.precision == PrecisionFixed {
		return RacePosition{
			X: float64(int32(x)) / 10,
			Y: float64(int32(y)) / 10,
		}, nil
	}
	return RacePosition{X: x, Y: y}, nil
}
