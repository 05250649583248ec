package guidance

import (
	"math"
	"testing"
)

const eps = 1e-9

func approx(a, b float64) bool { return math.Abs(a-b) < eps }

func TestPI_ZeroErrorGivesZero(t *testing.T) {
	for _, cond := range []bool{true, false} {
		pi := NewPI(Gains{P: 2, I: 0.5, Kaw: 0.5, Cp: 1, Ci: 1, Conditional: cond}, 0.9)
		for i := 0; i < 20; i++ {
			if out := pi.Update(0.3, 0.3); out != 0 {
				t.Fatalf("conditional=%v tick %d: out=%v, want 0", cond, i, out)
			}
		}
	}
}

func TestPI_ConditionalProportional(t *testing.T) {
	pi := NewPI(Gains{P: 1, I: 0, Cp: 0, Ci: 0, Conditional: true}, 0.9)
	if out := pi.Update(0.5, 0.3); !approx(out, 0.2) {
		t.Fatalf("out=%v, want 0.2", out)
	}

	pi = NewPI(Gains{P: 1, I: 0, Cp: 1, Ci: 0, Conditional: true}, 0.9)
	if out := pi.Update(0.5, 0.3); !approx(out, 0.2/1.2) {
		t.Fatalf("gain-scheduled out=%v, want %v", out, 0.2/1.2)
	}
}

func TestPI_ConditionalIntegral(t *testing.T) {
	pi := NewPI(Gains{P: 0, I: 1, Cp: 0, Ci: 0, Conditional: true}, 0.9)
	for i, want := range []float64{0.1, 0.2, 0.3} {
		if out := pi.Update(0.1, 0); !approx(out, want) {
			t.Fatalf("tick %d: out=%v, want %v", i, out, want)
		}
	}
}

func TestPI_AntiWindupBoundsIntegral(t *testing.T) {
	withAW := NewPI(Gains{P: 0, I: 1, Kaw: 1}, 0.5)
	without := NewPI(Gains{P: 0, I: 1, Kaw: 0}, 0.5)

	var a, b float64
	for i := 0; i < 10; i++ {
		a = withAW.Update(0.4, 0)
		b = without.Update(0.4, 0)
	}
	if !approx(a, 0.9) {
		t.Fatalf("anti-windup out=%v, want 0.9", a)
	}
	if !approx(b, 4.0) {
		t.Fatalf("plain integral out=%v, want 4.0", b)
	}
}

func TestPI_ModeSwitchResets(t *testing.T) {
	pi := NewPI(Gains{P: 0, I: 1, Conditional: true}, 0.9)
	pi.Update(0.2, 0)
	pi.Update(0.2, 0)

	if pi.SetGains(Gains{P: 0, I: 1, Conditional: true}) {
		t.Fatalf("same mode reported as switch")
	}
	if out := pi.Update(0, 0); !approx(out, 0.4) {
		t.Fatalf("accumulator lost without a mode switch: %v", out)
	}

	if !pi.SetGains(Gains{P: 0, I: 1, Conditional: false}) {
		t.Fatalf("mode switch not reported")
	}
	if out := pi.Update(0, 0); out != 0 {
		t.Fatalf("out after switch=%v, want 0", out)
	}
}

func TestSailLaw_Sectors(t *testing.T) {
	law, err := NewSailLaw(1, 4)
	if err != nil {
		t.Fatalf("NewSailLaw: %v", err)
	}
	cases := []struct {
		angle float64
		want  float64
	}{
		{0, 1},
		{0.1 * math.Pi, 1},
		{0.3 * math.Pi, 0.75},
		{-0.3 * math.Pi, 0.75},
		{0.6 * math.Pi, 0.5},
		{0.8 * math.Pi, 0},
		{math.Pi, 0},
		{-math.Pi, 0},
	}
	for _, tc := range cases {
		if got := law.Command(tc.angle); !approx(got, tc.want) {
			t.Fatalf("Command(%v)=%v, want %v", tc.angle, got, tc.want)
		}
	}
}

func TestSailLaw_MonotoneNonIncreasing(t *testing.T) {
	for _, n := range []int{2, 3, 4, 7} {
		law, err := NewSailLaw(0.56, n)
		if err != nil {
			t.Fatalf("NewSailLaw(%d): %v", n, err)
		}
		if got := law.Command(0); got != 0.56 {
			t.Fatalf("n=%d: Command(0)=%v, want max", n, got)
		}
		prev := math.Inf(1)
		for a := 0.0; a <= math.Pi; a += 0.01 {
			got := law.Command(a)
			if got > prev {
				t.Fatalf("n=%d: Command(%v)=%v rises above %v", n, a, got, prev)
			}
			if got < 0 || got > 0.56 {
				t.Fatalf("n=%d: Command(%v)=%v out of range", n, a, got)
			}
			prev = got
		}
		if got := law.Command(math.Pi - 1e-6); got != 0 {
			t.Fatalf("n=%d: last sector=%v, want 0", n, got)
		}
	}
}

func TestSailLaw_RejectsBadConfig(t *testing.T) {
	if _, err := NewSailLaw(1, 1); err == nil {
		t.Fatalf("expected error for a single sector")
	}
	if _, err := NewSailLaw(0, 4); err == nil {
		t.Fatalf("expected error for zero max")
	}
}

func TestHelmsman_PortToStarboard(t *testing.T) {
	h := HelmsmanLaw{Rudder: 0.8, Sail: 0.4}
	rudder := []struct{ alpha, want float64 }{
		{deg(-60), 0.8},
		{deg(-30), 0.8},
		{deg(-15), 0.4},
		{0, 0},
		{deg(9), 0.4},
		{deg(18), 0.8},
		{deg(20), 0.8},
		{deg(31), 0.4},
		{deg(40), 0},
		{deg(60), 0},
	}
	for _, tc := range rudder {
		if got, _ := h.PortToStarboard(tc.alpha); !approx(got, tc.want) {
			t.Fatalf("rudder(%v deg)=%v, want %v", tc.alpha*180/math.Pi, got, tc.want)
		}
	}

	sail := []struct{ alpha, want float64 }{
		{deg(-90), 0.4},
		{deg(-60), 0.2},
		{deg(-30), 0},
		{0, 0},
		{deg(5), 0},
		{deg(10.25), 0.2},
		{deg(17), 0.4},
		{deg(24.75), 0.2},
		{deg(30), 0},
		{deg(45), 0},
	}
	for _, tc := range sail {
		if _, got := h.PortToStarboard(tc.alpha); !approx(got, tc.want) {
			t.Fatalf("sail(%v deg)=%v, want %v", tc.alpha*180/math.Pi, got, tc.want)
		}
	}
}

func TestHelmsman_StarboardToPortMirrors(t *testing.T) {
	h := HelmsmanLaw{Rudder: 0.7, Sail: 0.2}
	for a := -math.Pi; a <= math.Pi; a += 0.05 {
		r1, s1 := h.StarboardToPort(a)
		r2, s2 := h.PortToStarboard(-a)
		if r1 != -r2 || s1 != s2 {
			t.Fatalf("alpha=%v: s2p=(%v,%v) p2s(-alpha)=(%v,%v)", a, r1, s1, r2, s2)
		}
	}
}

func TestHelmsman_Continuous(t *testing.T) {
	h := HelmsmanLaw{Rudder: 1, Sail: 1}
	const step = 1e-4
	for a := -math.Pi; a < math.Pi; a += step {
		r0, s0 := h.PortToStarboard(a)
		r1, s1 := h.PortToStarboard(a + step)
		if math.Abs(r1-r0) > 0.01 || math.Abs(s1-s0) > 0.01 {
			t.Fatalf("jump at alpha=%v: rudder %v->%v sail %v->%v", a, r0, r1, s0, s1)
		}
	}
}

func TestPI_NonFiniteErrorKeepsState(t *testing.T) {
	c := NewPI(Gains{P: 1, I: 0.5, Conditional: true}, 0.9)
	c.Update(0.2, 0)
	before := *c
	if out := c.Update(0.2, math.NaN()); out != 0 {
		t.Fatalf("out=%v, want 0", out)
	}
	if out := c.Update(math.Inf(1), 0); out != 0 {
		t.Fatalf("out=%v, want 0", out)
	}
	if c.sum != before.sum || c.last != before.last {
		t.Fatalf("state changed: sum=%v last=%v", c.sum, c.last)
	}
}
