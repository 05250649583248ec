package gps

import "testing"

func TestFixValid(t *testing.T) {
	cases := []struct {
		name string
		fix  Fix
		want bool
	}{
		{"no position", Fix{Quality: 1}, false},
		{"gga fix", Fix{HavePosition: true, Quality: 1}, true},
		{"gga invalid", Fix{HavePosition: true, Quality: 0}, false},
		{"rmc active", Fix{HavePosition: true, Validity: "A"}, true},
		{"rmc void wins", Fix{HavePosition: true, Quality: 1, Validity: "V"}, false},
	}
	for _, tc := range cases {
		if got := tc.fix.Valid(); got != tc.want {
			t.Errorf("%s: Valid()=%v, want %v", tc.name, got, tc.want)
		}
	}
}
