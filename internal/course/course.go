// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package course loads the race geometry: the NED origin, the race origin
// (top mark) and the mean wind direction.
package course

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/relabs-tech/sailing_computer/internal/navigation"
)

// Course is the YAML course file.
//
//	origin:
//	  lat_deg: 47.3769
//	  lon_deg: 8.5417
//	  alt_m: 406
//	race_origin:
//	  lat_deg: 47.3801
//	  lon_deg: 8.5417
//	mean_wind_deg: 0
type Course struct {
	Origin *navigation.GeodeticPosition `yaml:"origin" json:"origin,omitempty"`
	// OriginFromFirstFix takes the NED origin from the first valid filtered
	// GPS fix instead of Origin.
	OriginFromFirstFix bool                         `yaml:"origin_from_first_fix" json:"origin_from_first_fix,omitempty"`
	RaceOrigin         *navigation.GeodeticPosition `yaml:"race_origin" json:"race_origin,omitempty"`
	MeanWindDeg        *float64                     `yaml:"mean_wind_deg" json:"mean_wind_deg,omitempty"`
}

// Load reads and validates a course file.
func Load(path string) (Course, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Course{}, err
	}
	return Parse(b)
}

// Parse decodes and validates course YAML.
func Parse(b []byte) (Course, error) {
	var c Course
	if err := yaml.Unmarshal(b, &c); err != nil {
		return Course{}, err
	}
	if err := c.Validate(); err != nil {
		return Course{}, err
	}
	return c, nil
}

// Validate checks the course for consistency.
func (c Course) Validate() error {
	if c.Origin == nil && !c.OriginFromFirstFix {
		return fmt.Errorf("course.origin is required unless origin_from_first_fix is set")
	}
	if c.Origin != nil {
		if err := c.Origin.Validate(); err != nil {
			return fmt.Errorf("course.origin: %w", err)
		}
	}
	if c.RaceOrigin != nil {
		if err := c.RaceOrigin.Validate(); err != nil {
			return fmt.Errorf("course.race_origin: %w", err)
		}
	}
	if c.MeanWindDeg != nil {
		w := *c.MeanWindDeg
		if math.IsNaN(w) || w < -360 || w > 360 {
			return fmt.Errorf("course.mean_wind_deg must be within [-360,360], got %v", w)
		}
	}
	return nil
}

// Apply installs the course into t. When origin is nil the course origin is
// used; the race origin defaults to the NED origin.
func (c Course) Apply(t *navigation.Transform, origin *navigation.GeodeticPosition) error {
	o := c.Origin
	if origin != nil {
		o = origin
	}
	if o == nil {
		return navigation.ErrOriginNotSet
	}
	if err := t.SetOrigin(*o); err != nil {
		return fmt.Errorf("set origin: %w", err)
	}
	race := c.RaceOrigin
	if race == nil {
		race = o
	}
	if err := t.SetRaceOrigin(*race); err != nil {
		return fmt.Errorf("set race origin: %w", err)
	}
	if c.MeanWindDeg != nil {
		t.SetMeanWindAngle(*c.MeanWindDeg * math.Pi / 180)
	}
	return nil
}
