package control

import (
	"time"

	"github.com/relabs-tech/sailing_computer/internal/env"
	"github.com/relabs-tech/sailing_computer/internal/gps"
	"github.com/relabs-tech/sailing_computer/internal/guidance"
	"github.com/relabs-tech/sailing_computer/internal/navigation"
	"github.com/relabs-tech/sailing_computer/internal/orientation"
)

// ParamsMsg is a live parameter update from the operator. Guidance fields
// are inlined; the remaining fields adjust the race frame.
type ParamsMsg struct {
	guidance.Params

	MeanWindDeg *float64                     `json:"mean_wind_deg,omitempty"`
	RaceOrigin  *navigation.GeodeticPosition `json:"race_origin,omitempty"`
	// Rehome moves the NED origin to the next filtered fix.
	Rehome bool `json:"rehome,omitempty"`
}

// RacePositionMsg is published for path planning on every filtered fix once
// the race frame is configured.
type RacePositionMsg struct {
	X     float64        `json:"x_m"` // downwind from the race origin
	Y     float64        `json:"y_m"`
	NED   navigation.NED `json:"ned"`
	Alpha float64        `json:"alpha_deg"`
	Time  time.Time      `json:"time"`
}

// DebugMsg mirrors one guidance step for the console and the web view.
type DebugMsg struct {
	Mode          string    `json:"mode"`
	Rudder        float64   `json:"rudder"`
	Sail          float64   `json:"sail"`
	AlphaDeg      float64   `json:"alpha_deg"`
	AlphaStarDeg  float64   `json:"alpha_star_deg"`
	AlphaYawDeg   float64   `json:"alpha_yaw_deg"`
	ApparentDeg   float64   `json:"apparent_deg"`
	TWDDeg        float64   `json:"twd_deg"`
	ShouldTack    bool      `json:"should_tack"`
	TackCompleted bool      `json:"tack_completed"`
	Stale         bool      `json:"stale"` // no message arrived this tick
	Time          time.Time `json:"time"`
}

// TackCompletedMsg tells path planning a tack is done.
type TackCompletedMsg struct {
	AlphaStarDeg float64   `json:"alpha_star_deg"`
	Time         time.Time `json:"time"`
}

// Notice is a short operator message.
type Notice struct {
	Text string    `json:"text"`
	Time time.Time `json:"time"`
}

// Events holds what arrived during one poll. Nil fields did not fire.
type Events struct {
	GPSRaw      *gps.Fix
	GPSFiltered *gps.Fix
	Wind        *env.Wind
	Attitude    *orientation.Pose // attitude estimator
	WXAttitude  *orientation.Pose // weather station
	Reference   *guidance.ReferenceAction
	Params      []ParamsMsg
}

// Empty reports whether nothing arrived.
func (e Events) Empty() bool {
	return e.GPSRaw == nil && e.GPSFiltered == nil && e.Wind == nil &&
		e.Attitude == nil && e.WXAttitude == nil && e.Reference == nil &&
		len(e.Params) == 0
}
