package navigation

import (
	"errors"
	"math"
	"testing"
)

var zurich = GeodeticPosition{Lat: 47.3769, Lon: 8.5417, Alt: 406}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

func TestGeoToECEF_Equator(t *testing.T) {
	got := GeoToECEF(GeodeticPosition{})
	if got.X != 63781370 || got.Y != 0 || got.Z != 0 {
		t.Fatalf("equator ecef=%+v, want {63781370 0 0}", got)
	}
}

func TestGeoToECEF_Pole(t *testing.T) {
	got := GeoToECEF(GeodeticPosition{Lat: 90})
	// polar radius 6356752.3 m
	if d := got.Z - 63567523; d < -10 || d > 10 {
		t.Fatalf("pole z=%d dm, want ~63567523", got.Z)
	}
	if abs32(got.X) > 10 || abs32(got.Y) > 10 {
		t.Fatalf("pole x/y=%d/%d, want ~0", got.X, got.Y)
	}
}

func TestGeoToNED_OriginIsZero(t *testing.T) {
	for _, p := range []Precision{PrecisionFixed, PrecisionFloat} {
		tr := NewTransform(p)
		if err := tr.SetOrigin(zurich); err != nil {
			t.Fatalf("%v SetOrigin: %v", p, err)
		}
		ned, err := tr.GeoToNED(zurich)
		if err != nil {
			t.Fatalf("%v GeoToNED: %v", p, err)
		}
		if abs32(ned.North) > 1 || abs32(ned.East) > 1 || abs32(ned.Down) > 1 {
			t.Fatalf("%v origin ned=%+v, want zero", p, ned)
		}
	}
}

func TestGeoToNED_Offsets(t *testing.T) {
	for _, p := range []Precision{PrecisionFixed, PrecisionFloat} {
		tr := NewTransform(p)
		if err := tr.SetOrigin(zurich); err != nil {
			t.Fatalf("SetOrigin: %v", err)
		}

		north := zurich
		north.Lat += 0.001
		ned, err := tr.GeoToNED(north)
		if err != nil {
			t.Fatalf("GeoToNED: %v", err)
		}
		if ned.North < 1105 || ned.North > 1118 || abs32(ned.East) > 3 || abs32(ned.Down) > 3 {
			t.Fatalf("%v north offset ned=%+v, want ~{1112 0 0}", p, ned)
		}

		east := zurich
		east.Lon += 0.001
		ned, err = tr.GeoToNED(east)
		if err != nil {
			t.Fatalf("GeoToNED: %v", err)
		}
		if ned.East < 747 || ned.East > 760 || abs32(ned.North) > 3 || abs32(ned.Down) > 3 {
			t.Fatalf("%v east offset ned=%+v, want ~{0 754 0}", p, ned)
		}

		up := zurich
		up.Alt += 10
		ned, err = tr.GeoToNED(up)
		if err != nil {
			t.Fatalf("GeoToNED: %v", err)
		}
		if ned.Down < -103 || ned.Down > -97 {
			t.Fatalf("%v up offset ned=%+v, want down ~-100", p, ned)
		}
	}
}

func TestGeoToNED_FixedAgreesWithFloat(t *testing.T) {
	fixed := NewTransform(PrecisionFixed)
	float := NewTransform(PrecisionFloat)
	for _, tr := range []*Transform{fixed, float} {
		if err := tr.SetOrigin(zurich); err != nil {
			t.Fatalf("SetOrigin: %v", err)
		}
	}

	for i := -5; i <= 5; i++ {
		for j := -5; j <= 5; j++ {
			g := zurich
			g.Lat += float64(i) * 0.0137
			g.Lon += float64(j) * 0.0211
			a, _ := fixed.GeoToNED(g)
			b, _ := float.GeoToNED(g)
			if abs32(a.North-b.North) > 4 || abs32(a.East-b.East) > 4 || abs32(a.Down-b.Down) > 4 {
				t.Fatalf("(%d,%d) fixed=%+v float=%+v", i, j, a, b)
			}
		}
	}
}

func TestGeoToRace(t *testing.T) {
	north := zurich
	north.Lat += 0.001

	for _, p := range []Precision{PrecisionFixed, PrecisionFloat} {
		tr := NewTransform(p)
		if err := tr.SetOrigin(zurich); err != nil {
			t.Fatalf("SetOrigin: %v", err)
		}
		if err := tr.SetRaceOrigin(zurich); err != nil {
			t.Fatalf("SetRaceOrigin: %v", err)
		}
		tr.SetMeanWindAngle(0)

		pos, err := tr.GeoToRace(zurich)
		if err != nil {
			t.Fatalf("GeoToRace: %v", err)
		}
		if pos.X != 0 || pos.Y != 0 {
			t.Fatalf("%v race origin maps to %+v, want (0,0)", p, pos)
		}

		// wind from the north: x points south
		pos, _ = tr.GeoToRace(north)
		if math.Abs(pos.X+111.2) > 0.6 || math.Abs(pos.Y) > 0.2 {
			t.Fatalf("%v north point with north wind=%+v, want (-111.2,0)", p, pos)
		}

		// wind from the east
		tr.SetMeanWindAngle(math.Pi / 2)
		pos, _ = tr.GeoToRace(north)
		if math.Abs(pos.X) > 0.2 || math.Abs(pos.Y+111.2) > 0.6 {
			t.Fatalf("%v north point with east wind=%+v, want (0,-111.2)", p, pos)
		}
	}
}

func TestGeoToRace_OffsetRaceOrigin(t *testing.T) {
	mark := zurich
	mark.Lat += 0.002

	tr := NewTransform(PrecisionFloat)
	_ = tr.SetOrigin(zurich)
	if err := tr.SetRaceOrigin(mark); err != nil {
		t.Fatalf("SetRaceOrigin: %v", err)
	}
	tr.SetMeanWindAngle(0)

	pos, err := tr.GeoToRace(mark)
	if err != nil {
		t.Fatalf("GeoToRace: %v", err)
	}
	if math.Abs(pos.X) > 1e-6 || math.Abs(pos.Y) > 1e-6 {
		t.Fatalf("mark=%+v, want (0,0)", pos)
	}
	pos, _ = tr.GeoToRace(zurich)
	if pos.X < 220 || pos.X > 225 {
		t.Fatalf("origin is %v m downwind of the mark, want ~222", pos.X)
	}
}

func TestTransform_NotReady(t *testing.T) {
	tr := NewTransform(PrecisionFixed)
	if _, err := tr.GeoToNED(zurich); !errors.Is(err, ErrOriginNotSet) {
		t.Fatalf("GeoToNED err=%v, want ErrOriginNotSet", err)
	}
	if _, err := tr.ECEFToNED(ECEF{}); !errors.Is(err, ErrOriginNotSet) {
		t.Fatalf("ECEFToNED err=%v", err)
	}
	if err := tr.SetRaceOrigin(zurich); !errors.Is(err, ErrOriginNotSet) {
		t.Fatalf("SetRaceOrigin err=%v", err)
	}

	_ = tr.SetOrigin(zurich)
	if _, err := tr.GeoToRace(zurich); !errors.Is(err, ErrWindAngleNotSet) {
		t.Fatalf("GeoToRace err=%v, want ErrWindAngleNotSet", err)
	}
	tr.SetMeanWindAngle(1)
	if _, err := tr.GeoToRace(zurich); !errors.Is(err, ErrRaceOriginNotSet) {
		t.Fatalf("GeoToRace err=%v, want ErrRaceOriginNotSet", err)
	}
	if tr.RaceReady() {
		t.Fatalf("RaceReady before race origin")
	}
}

func TestSetOrigin_RejectsOutOfRange(t *testing.T) {
	tr := NewTransform(PrecisionFixed)
	if err := tr.SetOrigin(GeodeticPosition{Lat: 91}); err == nil {
		t.Fatalf("expected error for lat 91")
	}
	if err := tr.SetOrigin(GeodeticPosition{Lon: -181}); err == nil {
		t.Fatalf("expected error for lon -181")
	}
	if tr.Ready() {
		t.Fatalf("transform ready after rejected origins")
	}
}

func TestSetOrigin_ReanchorsRaceOrigin(t *testing.T) {
	tr := NewTransform(PrecisionFloat)
	_ = tr.SetOrigin(zurich)
	_ = tr.SetRaceOrigin(zurich)
	tr.SetMeanWindAngle(0)

	moved := zurich
	moved.Lon += 0.01
	if err := tr.SetOrigin(moved); err != nil {
		t.Fatalf("SetOrigin: %v", err)
	}
	pos, _ := tr.GeoToRace(zurich)
	if math.Abs(pos.X) > 1e-6 || math.Abs(pos.Y) > 1e-6 {
		t.Fatalf("race origin moved with NED origin: %+v", pos)
	}
}

func TestWrapAngle(t *testing.T) {
	cases := map[float64]float64{
		0:               0,
		math.Pi:         math.Pi,
		-math.Pi:        math.Pi,
		3 * math.Pi / 2: -math.Pi / 2,
		7:               7 - 2*math.Pi,
	}
	for in, want := range cases {
		if got := WrapAngle(in); math.Abs(got-want) > 1e-12 {
			t.Fatalf("WrapAngle(%v)=%v, want %v", in, got, want)
		}
	}
}
