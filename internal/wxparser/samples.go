// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package wxparser

import "time"

// AttitudeSample holds the weather station's own attitude readings.
// A nil field was not seen. Angles are degrees, rates degrees per second,
// accelerations in g.
type AttitudeSample struct {
	Roll    *float64
	Pitch   *float64
	Heading *float64

	RollRate  *float64
	PitchRate *float64
	YawRate   *float64

	AccelX *float64
	AccelY *float64
	AccelZ *float64

	Updated time.Time
}

// WindSample holds apparent wind (relative to the bow, negative to port) and
// true wind direction and speed. Angles in degrees, speeds in knots.
type WindSample struct {
	ApparentAngle *float64
	ApparentSpeed *float64
	TrueAngle     *float64
	TrueSpeed     *float64

	Updated time.Time
}

// FixQuality is the GGA position fix indicator.
type FixQuality uint8

const (
	FixInvalid FixQuality = iota
	FixGPS
	FixDGPS
	FixPPS
	FixRTK
	FixFloatRTK
	FixEstimated
	FixManual
	FixSimulation
)

// FixType is the GSA fix dimension.
type FixType uint8

const (
	FixNone FixType = 1
	Fix2D   FixType = 2
	Fix3D   FixType = 3
)

// GpsFragment holds the GNSS fields carried by the station.
type GpsFragment struct {
	// UTC is hhmmss.ss; zero when the time field was too short to be valid.
	UTC        *float64
	Latitude   *float64
	Longitude  *float64
	Altitude   *float64
	HDOP       *float64
	Satellites *int
	Quality    *FixQuality
	FixType    *FixType
	COG        *float64
	SOG        *float64

	Updated time.Time
}

// Stats counts per-tag sentence outcomes for one Parse call.
type Stats struct {
	Parsed  map[string]int
	Aborted map[string]int
}

func (s *Stats) ok(tag string) {
	if s.Parsed == nil {
		s.Parsed = make(map[string]int)
	}
	s.Parsed[tag]++
}

func (s *Stats) abort(tag string) {
	if s.Aborted == nil {
		s.Aborted = make(map[string]int)
	}
	s.Aborted[tag]++
}

// Readings is the result of parsing one buffer.
type Readings struct {
	Attitude AttitudeSample
	Wind     WindSample
	GPS      GpsFragment
	Stats    Stats
}

// Merge copies the fields present in u into s.
func (s *AttitudeSample) Merge(u AttitudeSample) {
	mergeField(&s.Roll, u.Roll)
	mergeField(&s.Pitch, u.Pitch)
	mergeField(&s.Heading, u.Heading)
	mergeField(&s.RollRate, u.RollRate)
	mergeField(&s.PitchRate, u.PitchRate)
	mergeField(&s.YawRate, u.YawRate)
	mergeField(&s.AccelX, u.AccelX)
	mergeField(&s.AccelY, u.AccelY)
	mergeField(&s.AccelZ, u.AccelZ)
	if u.Updated.After(s.Updated) {
		s.Updated = u.Updated
	}
}

// Merge copies the fields present in u into s.
func (s *WindSample) Merge(u WindSample) {
	mergeField(&s.ApparentAngle, u.ApparentAngle)
	mergeField(&s.ApparentSpeed, u.ApparentSpeed)
	mergeField(&s.TrueAngle, u.TrueAngle)
	mergeField(&s.TrueSpeed, u.TrueSpeed)
	if u.Updated.After(s.Updated) {
		s.Updated = u.Updated
	}
}

// Merge copies the fields present in u into s.
func (s *GpsFragment) Merge(u GpsFragment) {
	mergeField(&s.UTC, u.UTC)
	mergeField(&s.Latitude, u.Latitude)
	mergeField(&s.Longitude, u.Longitude)
	mergeField(&s.Altitude, u.Altitude)
	mergeField(&s.HDOP, u.HDOP)
	mergeField(&s.Satellites, u.Satellites)
	mergeField(&s.Quality, u.Quality)
	mergeField(&s.FixType, u.FixType)
	mergeField(&s.COG, u.COG)
	mergeField(&s.SOG, u.SOG)
	if u.Updated.After(s.Updated) {
		s.Updated = u.Updated
	}
}

func mergeField[T any](dst **T, src *T) {
	if src == nil {
		return
	}
	v := *src
	*dst = &v
}

func ptr[T any](v T) *T { return &v }
