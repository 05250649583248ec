// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package wxparser decodes the byte stream of a marine weather station
// (attitude, wind and GNSS sentences) into typed samples.
//
// The parser works on raw buffers rather than lines: a read from the serial
// port may hold several sentences, a partial sentence at either end, or
// garbage. Every sentence type is scanned for independently over the whole
// buffer. A sentence is committed only when all of its fields decode; on any
// failure nothing from it is written and the scan resumes one byte after the
// point of failure.
package wxparser

import (
	"time"
)

const (
	TagXDR = "YXXDR"
	TagGGA = "GPGGA"
	TagGSA = "GPGSA"
	TagVTG = "GPVTG"
	TagVWR = "WIVWR"
	TagHDT = "HCHDT"
	TagMWD = "WIMWD"
)

// minimum UTC field width for the time to be considered valid (hhmmss.s)
const minTimeLen = 8

type sentenceFunc func(buf []byte, at int, r *Readings, now time.Time) (int, error)

var sentences = []struct {
	tag   string
	parse sentenceFunc
}{
	{TagXDR, parseXDR},
	{TagGGA, parseGGA},
	{TagGSA, parseGSA},
	{TagVTG, parseVTG},
	{TagVWR, parseVWR},
	{TagHDT, parseHDT},
	{TagMWD, parseMWD},
}

// Parse decodes every recognized sentence in buf. Fields not present in the
// buffer are left nil in the returned samples; when a sentence type occurs
// more than once the later occurrence wins.
func Parse(buf []byte, now time.Time) Readings {
	var r Readings
	for _, s := range sentences {
		i := 0
		for {
			at, ok := FindTag(buf, i, s.tag)
			if !ok {
				break
			}
			end, err := s.parse(buf, at, &r, now)
			if err != nil {
				r.Stats.abort(s.tag)
				if end < at {
					end = at
				}
				i = end + 1
				continue
			}
			r.Stats.ok(s.tag)
			if end <= at {
				end = at + len(s.tag)
			}
			i = end
		}
	}
	return r
}

// YXXDR comes in three layouts:
//
//	B: A,<pitch>,D,PTCH,A,<roll>,D,ROLL
//	E: A,<rollrate>,D,RRTR,A,<pitchrate>,D,PRTR,A,<yawrate>,D,YRTR
//	C: A,<ax>,G,XACC,A,<ay>,G,YACC,A,<az>,G,ZACC
func parseXDR(buf []byte, at int, r *Readings, now time.Time) (int, error) {
	i := at + len("YXXDR,A,")
	first, i, err := ExtractField(buf, i)
	if err != nil {
		return i, err
	}
	i++

	unit, ok := byteAt(buf, i)
	if !ok {
		return i, ErrTruncatedField
	}

	switch unit {
	case 'D':
		i += 2
		if hasPrefixAt(buf, i, "PTCH") {
			roll, end, err := ExtractField(buf, i+len("PTCH,A,"))
			if err != nil {
				return end, err
			}
			r.Attitude.Pitch = ptr(first)
			r.Attitude.Roll = ptr(roll)
			r.Attitude.Updated = now
			return end, nil
		}

		pitchRate, end, err := ExtractField(buf, i+len("RRTR,A,"))
		if err != nil {
			return end, err
		}
		yawRate, end, err := ExtractField(buf, end+len(",D,PRTR,A,"))
		if err != nil {
			return end, err
		}
		r.Attitude.RollRate = ptr(first)
		r.Attitude.PitchRate = ptr(pitchRate)
		r.Attitude.YawRate = ptr(yawRate)
		r.Attitude.Updated = now
		return end, nil

	case 'G':
		ay, end, err := ExtractField(buf, i+len("G,XACC,A,"))
		if err != nil {
			return end, err
		}
		az, end, err := ExtractField(buf, end+len(",G,YACC,A,"))
		if err != nil {
			return end, err
		}
		r.Attitude.AccelX = ptr(first)
		r.Attitude.AccelY = ptr(ay)
		r.Attitude.AccelZ = ptr(az)
		r.Attitude.Updated = now
		return end, nil
	}

	return i, ErrMalformedField
}

// GPGGA,<utc>,<lat>,<N|S>,<lon>,<E|W>,<quality>,<sats>,<hdop>,<alt>,M,...
func parseGGA(buf []byte, at int, r *Readings, now time.Time) (int, error) {
	start := at + len("GPGGA,")
	i, err := JumpToComma(buf, start)
	if err != nil {
		return i, err
	}
	utc := 0.0
	if i-start >= minTimeLen {
		utc, _, err = ExtractField(buf, start)
		if err != nil {
			return i, err
		}
	}
	i++

	lat, i, err := ExtractField(buf, i)
	if err != nil {
		return i, err
	}
	lat = NMEADegrees(lat)
	if h, ok := byteAt(buf, i+1); ok && h == 'S' {
		lat = -lat
	}
	i += 3

	lon, i, err := ExtractField(buf, i)
	if err != nil {
		return i, err
	}
	lon = NMEADegrees(lon)
	if h, ok := byteAt(buf, i+1); ok && h == 'W' {
		lon = -lon
	}
	i += 3

	q, i, err := ExtractField(buf, i)
	if err != nil {
		return i, err
	}
	sats, i, err := ExtractField(buf, i+1)
	if err != nil {
		return i, err
	}
	hdop, i, err := ExtractField(buf, i+1)
	if err != nil {
		return i, err
	}
	alt, i, err := ExtractField(buf, i+1)
	if err != nil {
		return i, err
	}

	g := &r.GPS
	g.UTC = ptr(utc)
	g.Latitude = ptr(lat)
	g.Longitude = ptr(lon)
	g.Quality = ptr(fixQuality(q))
	g.Satellites = ptr(int(sats))
	g.HDOP = ptr(hdop)
	g.Altitude = ptr(alt)
	g.Updated = now
	return i, nil
}

func fixQuality(q float64) FixQuality {
	if q < 0 || q > float64(FixSimulation) || q != float64(int(q)) {
		return FixInvalid
	}
	return FixQuality(q)
}

// GPGSA,<mode>,<fix>,...
func parseGSA(buf []byte, at int, r *Readings, now time.Time) (int, error) {
	i := at + len("GPGSA,A,")
	c, ok := byteAt(buf, i)
	if !ok {
		return i, ErrTruncatedField
	}
	ft := FixNone
	switch c {
	case '2':
		ft = Fix2D
	case '3':
		ft = Fix3D
	}
	r.GPS.FixType = ptr(ft)
	r.GPS.Updated = now
	return i + 1, nil
}

// GPVTG,<cog>,T,<cog magnetic>,M,<sog>,N,<sog kmh>,K
func parseVTG(buf []byte, at int, r *Readings, now time.Time) (int, error) {
	cog, i, err := ExtractField(buf, at+len("GPVTG,"))
	if err != nil {
		return i, err
	}
	i, err = JumpToComma(buf, i+len(",T,"))
	if err != nil {
		return i, err
	}
	sog, i, err := ExtractField(buf, i+len(",M,"))
	if err != nil {
		return i, err
	}
	r.GPS.COG = ptr(cog)
	r.GPS.SOG = ptr(sog)
	r.GPS.Updated = now
	return i, nil
}

// WIVWR,<angle>,<L|R>,<speed>,N,...
func parseVWR(buf []byte, at int, r *Readings, now time.Time) (int, error) {
	angle, i, err := ExtractField(buf, at+len("WIVWR,"))
	if err != nil {
		return i, err
	}
	side, ok := byteAt(buf, i+1)
	if !ok {
		return i, ErrTruncatedField
	}
	if side == 'L' {
		angle = -angle
	}
	speed, i, err := ExtractField(buf, i+len(",R,"))
	if err != nil {
		return i, err
	}
	r.Wind.ApparentAngle = ptr(angle)
	r.Wind.ApparentSpeed = ptr(speed)
	r.Wind.Updated = now
	return i, nil
}

// HCHDT,<heading>,T
func parseHDT(buf []byte, at int, r *Readings, now time.Time) (int, error) {
	heading, i, err := ExtractField(buf, at+len("HCHDT,"))
	if err != nil {
		return i, err
	}
	r.Attitude.Heading = ptr(heading)
	r.Attitude.Updated = now
	return i, nil
}

// WIMWD,<dir true>,T,<dir magnetic>,M,<speed>,N,<speed m/s>,M
func parseMWD(buf []byte, at int, r *Readings, now time.Time) (int, error) {
	dir, i, err := ExtractField(buf, at+len("WIMWD,"))
	if err != nil {
		return i, err
	}
	i, err = JumpToComma(buf, i+len(",T,"))
	if err != nil {
		return i, err
	}
	speed, i, err := ExtractField(buf, i+len(",M,"))
	if err != nil {
		return i, err
	}
	r.Wind.TrueAngle = ptr(dir)
	r.Wind.TrueSpeed = ptr(speed)
	r.Wind.Updated = now
	return i, nil
}
