package app

import (
	"context"
	"fmt"
	"log"

	"github.com/relabs-tech/sailing_computer/internal/actuator"
	"github.com/relabs-tech/sailing_computer/internal/bus"
	"github.com/relabs-tech/sailing_computer/internal/config"
	"github.com/relabs-tech/sailing_computer/internal/control"
	"github.com/relabs-tech/sailing_computer/internal/env"
	"github.com/relabs-tech/sailing_computer/internal/gps"
	imu_raw "github.com/relabs-tech/sailing_computer/internal/imu"
	"github.com/relabs-tech/sailing_computer/internal/orientation"
)

// RunConsoleMQTT prints every sailing topic to stdout until ctx is done.
func RunConsoleMQTT(ctx context.Context) error {
	cfg := config.Get()

	client, err := bus.Connect(cfg.MQTTBroker, cfg.MQTTClientIDConsole)
	if err != nil {
		return err
	}
	defer client.Close()

	show := func(s string) { fmt.Println(s) }
	subs := []struct {
		topic string
		fn    func([]byte)
	}{
		{cfg.TopicAttitude, bus.Decode(cfg.TopicAttitude, func(p orientation.Pose) { show(formatPose("[EKF ]", p)) })},
		{cfg.TopicWXAttitude, bus.Decode(cfg.TopicWXAttitude, func(p orientation.Pose) { show(formatPose("[WX  ]", p)) })},
		{cfg.TopicWXMotion, bus.Decode(cfg.TopicWXMotion, func(m imu_raw.Motion) { show(formatMotion(m)) })},
		{cfg.TopicWind, bus.Decode(cfg.TopicWind, func(w env.Wind) { show(formatWind(w)) })},
		{cfg.TopicGPSRaw, bus.Decode(cfg.TopicGPSRaw, func(f gps.Fix) { show(formatFix("[GPS ]", f)) })},
		{cfg.TopicGPSFiltered, bus.Decode(cfg.TopicGPSFiltered, func(f gps.Fix) { show(formatFix("[GPSF]", f)) })},
		{cfg.TopicActuators, bus.Decode(cfg.TopicActuators, func(c actuator.Command) { show(formatCommand(c)) })},
		{cfg.TopicGuidance, bus.Decode(cfg.TopicGuidance, func(d control.DebugMsg) { show(formatDebug(d)) })},
		{cfg.TopicRacePosition, bus.Decode(cfg.TopicRacePosition, func(r control.RacePositionMsg) {
			show(fmt.Sprintf("[RACE]  x=%8.1fm y=%8.1fm alpha=%6.1f°", r.X, r.Y, r.Alpha))
		})},
		{cfg.TopicNotice, bus.Decode(cfg.TopicNotice, func(n control.Notice) { show("[NOTE]  " + n.Text) })},
	}
	for _, s := range subs {
		if err := client.Subscribe(s.topic, s.fn); err != nil {
			return err
		}
	}

	<-ctx.Done()
	log.Println("console: shutting down")
	return nil
}

func formatPose(tag string, p orientation.Pose) string {
	return fmt.Sprintf("%s  ROLL=%6.2f  PITCH=%6.2f  YAW=%7.2f", tag, p.Roll, p.Pitch, p.Yaw)
}

func formatMotion(m imu_raw.Motion) string {
	return fmt.Sprintf(
		"[MOTN]  p=%6.2f q=%6.2f r=%6.2f °/s  ax=%5.2f ay=%5.2f az=%5.2f g",
		m.RollRate, m.PitchRate, m.YawRate, m.Ax, m.Ay, m.Az,
	)
}

func formatWind(w env.Wind) string {
	s := "[WIND]"
	if w.HaveApparent {
		s += fmt.Sprintf("  AWA=%6.1f° AWS=%5.1fkn", w.ApparentAngle, w.ApparentSpeed)
	}
	if w.HaveTrue {
		s += fmt.Sprintf("  TWD=%6.1f° TWS=%5.1fkn", w.TrueAngle, w.TrueSpeed)
	}
	return s
}

func formatFix(tag string, f gps.Fix) string {
	return fmt.Sprintf(
		"%s  time=%s lat=%.6f lon=%.6f alt=%.1f speed=%.1fkn course=%.1f° q=%d sats=%d",
		tag, f.Time, f.Latitude, f.Longitude, f.Altitude, f.SpeedKnots, f.CourseDeg, f.Quality, f.Satellites,
	)
}

func formatCommand(c actuator.Command) string {
	return fmt.Sprintf("[ACT ]  rudder=%+.3f sail=%.3f", c.Control[actuator.Rudder], c.Control[actuator.Sail])
}

func formatDebug(d control.DebugMsg) string {
	s := fmt.Sprintf(
		"[GUID]  %-9s alpha=%6.1f° alpha*=%6.1f° awa=%6.1f° twd=%6.1f° rudder=%+.3f sail=%.3f",
		d.Mode, d.AlphaDeg, d.AlphaStarDeg, d.ApparentDeg, d.TWDDeg, d.Rudder, d.Sail,
	)
	if d.Stale {
		s += " (stale)"
	}
	return s
}
