package app

import (
	"strings"
	"testing"
	"time"

	"github.com/relabs-tech/sailing_computer/internal/actuator"
	"github.com/relabs-tech/sailing_computer/internal/control"
	"github.com/relabs-tech/sailing_computer/internal/env"
)

func TestFormatWind(t *testing.T) {
	got := formatWind(env.Wind{ApparentAngle: -30, ApparentSpeed: 8, HaveApparent: true})
	if !strings.Contains(got, "AWA= -30.0°") || strings.Contains(got, "TWD") {
		t.Fatalf("got %q", got)
	}
}

func TestFormatCommand(t *testing.T) {
	got := formatCommand(actuator.NewCommand(-0.25, 0.42, time.Time{}))
	if got != "[ACT ]  rudder=-0.250 sail=0.420" {
		t.Fatalf("got %q", got)
	}
}

func TestFormatDebug_Stale(t *testing.T) {
	got := formatDebug(control.DebugMsg{Mode: "tacking", Stale: true})
	if !strings.HasPrefix(got, "[GUID]  tacking") || !strings.HasSuffix(got, "(stale)") {
		t.Fatalf("got %q", got)
	}
}
