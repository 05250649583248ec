// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package wxparser

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"
)

// MaxFieldLen is the longest numeric field accepted before giving up on
// finding its terminating comma.
const MaxFieldLen = 15

var (
	ErrRunawayField   = errors.New("wxparser: no comma within field limit")
	ErrEmptyField     = errors.New("wxparser: empty field")
	ErrTruncatedField = errors.New("wxparser: buffer ends inside field")
	ErrMalformedField = errors.New("wxparser: field is not a number")
)

// FindTag returns the index of the first occurrence of tag at or after start.
func FindTag(buf []byte, start int, tag string) (int, bool) {
	if start < 0 {
		start = 0
	}
	if tag == "" || start+len(tag) > len(buf) {
		return 0, false
	}
	idx := bytes.Index(buf[start:], []byte(tag))
	if idx < 0 {
		return 0, false
	}
	return start + idx, true
}

// ExtractField decodes the decimal number starting at start and returns it
// together with the index of the comma that terminates it.
func ExtractField(buf []byte, start int) (float64, int, error) {
	if start < 0 || start >= len(buf) {
		return 0, start, ErrTruncatedField
	}

	i := start
	for i < len(buf) && buf[i] != ',' {
		if i-start >= MaxFieldLen {
			return 0, i, ErrRunawayField
		}
		i++
	}
	if i >= len(buf) {
		return 0, i, ErrTruncatedField
	}
	if i == start {
		return 0, i, ErrEmptyField
	}

	if !isDecimal(buf[start:i]) {
		return 0, i, fmt.Errorf("%w: %q", ErrMalformedField, buf[start:i])
	}
	v, err := strconv.ParseFloat(string(buf[start:i]), 64)
	if err != nil {
		return 0, i, fmt.Errorf("%w: %q", ErrMalformedField, buf[start:i])
	}
	return v, i, nil
}

// JumpToComma returns the index of the next comma at or after start,
// skipping at most MaxFieldLen bytes.
func JumpToComma(buf []byte, start int) (int, error) {
	if start < 0 || start >= len(buf) {
		return start, ErrTruncatedField
	}
	i := start
	for i < len(buf) && buf[i] != ',' {
		if i-start >= MaxFieldLen {
			return i, ErrRunawayField
		}
		i++
	}
	if i >= len(buf) {
		return i, ErrTruncatedField
	}
	return i, nil
}

// NMEADegrees converts a DDMM.MMMM (or DDDMM.MMMM) value to decimal degrees.
func NMEADegrees(v float64) float64 {
	neg := v < 0
	v = math.Abs(v)
	deg := math.Floor(v / 100)
	out := deg + (v-deg*100)/60
	if neg {
		return -out
	}
	return out
}

// isDecimal accepts an optional sign, digits and at most one decimal point,
// with at least one digit.
func isDecimal(b []byte) bool {
	if len(b) > 0 && (b[0] == '+' || b[0] == '-') {
		b = b[1:]
	}
	digits, dots := 0, 0
	for _, c := range b {
		switch {
		case c >= '0' && c <= '9':
			digits++
		case c == '.':
			dots++
		default:
			return false
		}
	}
	return digits > 0 && dots <= 1
}

func byteAt(buf []byte, i int) (byte, bool) {
	if i < 0 || i >= len(buf) {
		return 0, false
	}
	return buf[i], true
}

func hasPrefixAt(buf []byte, i int, prefix string) bool {
	if i < 0 || i+len(prefix) > len(buf) {
		return false
	}
	return string(buf[i:i+len(prefix)]) == prefix
}
