// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/relabs-tech/sailing_computer/internal/bus"
	"github.com/relabs-tech/sailing_computer/internal/config"
	"github.com/relabs-tech/sailing_computer/internal/control"
	"github.com/relabs-tech/sailing_computer/internal/env"
	"github.com/relabs-tech/sailing_computer/internal/gps"
	imu_raw "github.com/relabs-tech/sailing_computer/internal/imu"
	"github.com/relabs-tech/sailing_computer/internal/metrics"
	"github.com/relabs-tech/sailing_computer/internal/orientation"
	"github.com/relabs-tech/sailing_computer/internal/wxparser"
	"github.com/relabs-tech/sailing_computer/internal/wxstation"
)

const wxSource = "wx"

// RunWXProducer opens the weather station, runs the start-up handshake and
// publishes wind, attitude, motion and (outdoors) GNSS readings to MQTT
// until ctx is done.
func RunWXProducer(ctx context.Context) error {
	cfg := config.Get()

	client, err := bus.Connect(cfg.MQTTBroker, cfg.MQTTClientIDWX)
	if err != nil {
		return err
	}
	defer client.Close()

	collector, err := metrics.NewCollector(nil)
	if err != nil {
		return err
	}
	serveMetrics(cfg.MetricsListen, collector)

	var port io.ReadWriteCloser
	if cfg.WXSkipInit {
		port, err = wxstation.Open(cfg.WXSerialPort, cfg.WXBaudRate)
	} else {
		opts := wxstation.DefaultOptions(cfg.WXSerialPort)
		opts.InitBaud = cfg.WXInitBaudRate
		opts.Baud = cfg.WXBaudRate
		opts.Outdoor = cfg.WXOutdoor
		port, err = wxstation.Connect(opts, wxstation.SerialOpener(cfg.WXSerialPort), time.Sleep)
	}
	if err != nil {
		return err
	}

	// unblock the pending read on shutdown
	go func() {
		<-ctx.Done()
		port.Close()
	}()

	p := newWXPublisher(client, cfg, collector)
	err = p.run(ctx, port, cfg.WXReadBuffer)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// wxPublisher turns parsed station readings into MQTT messages. The merged
// samples keep the last value of every field across reads.
type wxPublisher struct {
	pub     control.Publisher
	cfg     *config.Config
	metrics *metrics.Collector
	now     func() time.Time

	attitude wxparser.AttitudeSample
	wind     wxparser.WindSample
	gnss     wxparser.GpsFragment
}

func newWXPublisher(pub control.Publisher, cfg *config.Config, m *metrics.Collector) *wxPublisher {
	return &wxPublisher{pub: pub, cfg: cfg, metrics: m, now: time.Now}
}

// run reads the serial stream until it fails. Only complete lines are
// handed to the parser; a partial sentence at the end of a read is kept for
// the next one.
func (p *wxPublisher) run(ctx context.Context, r io.Reader, size int) error {
	buf := make([]byte, size)
	var pending []byte

	for ctx.Err() == nil {
		n, err := r.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)
			if i := bytes.LastIndexByte(pending, '\n'); i >= 0 {
				p.handle(wxparser.Parse(pending[:i+1], p.now()))
				pending = append(pending[:0], pending[i+1:]...)
			}
			if len(pending) > size {
				// no line end in a whole buffer: garbage
				pending = pending[:0]
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("wx read: %w", err)
		}
	}
	return nil
}

func (p *wxPublisher) handle(r wxparser.Readings) {
	p.metrics.AddSentences(r.Stats.Parsed, r.Stats.Aborted)

	if !r.Wind.Updated.IsZero() {
		p.wind.Merge(r.Wind)
		p.publish(p.cfg.TopicWind, windMessage(p.wind))
	}
	if !r.Attitude.Updated.IsZero() {
		p.attitude.Merge(r.Attitude)
		if pose, ok := attitudeMessage(p.attitude); ok {
			p.publish(p.cfg.TopicWXAttitude, pose)
		}
		if m, ok := motionMessage(p.attitude); ok {
			p.publish(p.cfg.TopicWXMotion, m)
		}
	}
	if p.cfg.WXOutdoor && !r.GPS.Updated.IsZero() {
		p.gnss.Merge(r.GPS)
		p.publish(p.cfg.TopicGPSRaw, fixMessage(p.gnss))
	}
}

func (p *wxPublisher) publish(topic string, v any) {
	if err := p.pub.Publish(topic, v); err != nil {
		log.Printf("wx: publish %s error: %v", topic, err)
		p.metrics.PublishError()
	}
}

func value[T any](v *T) (T, bool) {
	if v == nil {
		var zero T
		return zero, false
	}
	return *v, true
}

func windMessage(w wxparser.WindSample) env.Wind {
	out := env.Wind{Source: wxSource, Time: w.Updated}
	if aa, ok := value(w.ApparentAngle); ok {
		out.ApparentAngle, out.HaveApparent = aa, true
		out.ApparentSpeed, _ = value(w.ApparentSpeed)
	}
	if ta, ok := value(w.TrueAngle); ok {
		out.TrueAngle, out.HaveTrue = ta, true
		out.TrueSpeed, _ = value(w.TrueSpeed)
	}
	return out
}

// attitudeMessage prefers the station's roll and pitch sentence and falls
// back to the accelerometer when only that has been seen.
func attitudeMessage(a wxparser.AttitudeSample) (orientation.Pose, bool) {
	heading, _ := value(a.Heading)
	roll, okR := value(a.Roll)
	pitch, okP := value(a.Pitch)

	var pose orientation.Pose
	switch {
	case okR && okP:
		pose = orientation.Pose{Roll: roll, Pitch: pitch, Yaw: wrapDegrees(heading)}
	case a.AccelX != nil && a.AccelY != nil && a.AccelZ != nil:
		pose = orientation.PoseFromGravity(*a.AccelX, *a.AccelY, *a.AccelZ, wrapDegrees(heading))
	default:
		return orientation.Pose{}, false
	}
	pose.Source = wxSource
	pose.Time = a.Updated
	return pose, true
}

func motionMessage(a wxparser.AttitudeSample) (imu_raw.Motion, bool) {
	m := imu_raw.Motion{Source: wxSource, Time: a.Updated}
	if a.RollRate != nil && a.PitchRate != nil && a.YawRate != nil {
		m.RollRate, m.PitchRate, m.YawRate = *a.RollRate, *a.PitchRate, *a.YawRate
		m.HaveRates = true
	}
	if a.AccelX != nil && a.AccelY != nil && a.AccelZ != nil {
		m.Ax, m.Ay, m.Az = *a.AccelX, *a.AccelY, *a.AccelZ
		m.HaveAccel = true
	}
	return m, m.HaveRates || m.HaveAccel
}

func fixMessage(g wxparser.GpsFragment) gps.Fix {
	f := gps.Fix{FixType: int(wxparser.FixNone)}
	if utc, ok := value(g.UTC); ok && utc > 0 {
		s := int(utc)
		f.Time = fmt.Sprintf("%02d:%02d:%02d", s/10000, s/100%100, s%100)
	}
	lat, okLat := value(g.Latitude)
	lon, okLon := value(g.Longitude)
	if okLat && okLon {
		f.Latitude, f.Longitude, f.HavePosition = lat, lon, true
	}
	f.Altitude, _ = value(g.Altitude)
	f.HDOP, _ = value(g.HDOP)
	f.Satellites, _ = value(g.Satellites)
	if q, ok := value(g.Quality); ok {
		f.Quality = int(q)
	}
	if t, ok := value(g.FixType); ok {
		f.FixType = int(t)
	}
	if cog, ok := value(g.COG); ok {
		f.CourseDeg = cog
		f.SpeedKnots, _ = value(g.SOG)
		f.HaveVelocity = true
	}
	return f
}

// wrapDegrees maps a heading onto (-180, 180].
func wrapDegrees(d float64) float64 {
	for d > 180 {
		d -= 360
	}
	for d <= -180 {
		d += 360
	}
	return d
}
