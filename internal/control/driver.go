// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package control runs the sailing control loop: it polls the sensor
// inputs, keeps the navigation and moving-average state current and runs
// guidance once per tick, publishing the actuator command every time.
package control

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/relabs-tech/sailing_computer/internal/actuator"
	"github.com/relabs-tech/sailing_computer/internal/controldata"
	"github.com/relabs-tech/sailing_computer/internal/course"
	"github.com/relabs-tech/sailing_computer/internal/gps"
	"github.com/relabs-tech/sailing_computer/internal/guidance"
	"github.com/relabs-tech/sailing_computer/internal/metrics"
	"github.com/relabs-tech/sailing_computer/internal/navigation"
	"github.com/relabs-tech/sailing_computer/internal/orientation"
)

// Publisher sends a JSON-encodable value on a topic. Publish is for state
// that a late subscriber should still see; PublishEvent is for one-shot
// messages that must not be replayed.
type Publisher interface {
	Publish(topic string, v any) error
	PublishEvent(topic string, v any) error
}

// Topics the driver publishes on.
type Topics struct {
	Actuators     string
	ActuatorArmed string
	Guidance      string
	RacePosition  string
	TackCompleted string
	Notice        string
}

// Config wires a Driver. Publisher, Poller, Guidance, Store and Transform
// are required.
type Config struct {
	Publisher Publisher
	Poller    Poller
	Guidance  *guidance.Controller
	Store     *controldata.Store
	Transform *navigation.Transform
	Metrics   *metrics.Collector

	Course      course.Course
	Topics      Topics
	PollTimeout time.Duration
	Reference   guidance.ReferenceAction // until path planning sends one

	Now func() time.Time
}

// Driver owns every piece of control state. Run must be called from a
// single goroutine.
type Driver struct {
	pub     Publisher
	poller  Poller
	guid    *guidance.Controller
	store   *controldata.Store
	nav     *navigation.Transform
	metrics *metrics.Collector
	course  course.Course
	topics  Topics
	timeout time.Duration
	now     func() time.Time

	ref          guidance.ReferenceAction
	roll, yaw    [2]float64
	seen         [2]bool
	awaitOrigin  bool
	warnedRace   bool
}

// New builds a driver and applies the course to the transform. With
// origin_from_first_fix the origin is taken from the first filtered fix.
func New(cfg Config) (*Driver, error) {
	switch {
	case cfg.Publisher == nil:
		return nil, errors.New("control: publisher is required")
	case cfg.Poller == nil:
		return nil, errors.New("control: poller is required")
	case cfg.Guidance == nil || cfg.Store == nil || cfg.Transform == nil:
		return nil, errors.New("control: guidance, store and transform are required")
	case cfg.PollTimeout <= 0:
		return nil, fmt.Errorf("control: poll timeout must be > 0, got %v", cfg.PollTimeout)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	d := &Driver{
		pub:     cfg.Publisher,
		poller:  cfg.Poller,
		guid:    cfg.Guidance,
		store:   cfg.Store,
		nav:     cfg.Transform,
		metrics: cfg.Metrics,
		course:  cfg.Course,
		topics:  cfg.Topics,
		timeout: cfg.PollTimeout,
		now:     cfg.Now,
		ref:     cfg.Reference,
	}

	switch {
	case cfg.Course.OriginFromFirstFix:
		d.awaitOrigin = true
		log.Println("control: NED origin will be taken from the first filtered fix")
	case cfg.Course.Origin != nil:
		if err := cfg.Course.Apply(d.nav, nil); err != nil {
			return nil, fmt.Errorf("control: apply course: %w", err)
		}
		log.Printf("control: NED origin set to %+v", *cfg.Course.Origin)
	default:
		log.Println("control: no course origin, race position disabled")
	}
	return d, nil
}

// Reference returns the active reference action.
func (d *Driver) Reference() guidance.ReferenceAction { return d.ref }

// Run arms the actuators and loops until ctx is done. The stop signal is
// only looked at between ticks; on the way out an all-zero command is
// published. A failed arming publishes zeros and returns the error.
func (d *Driver) Run(ctx context.Context) error {
	if err := d.arm(); err != nil {
		d.publishZero()
		return fmt.Errorf("control: actuator init failed: %w", err)
	}
	log.Printf("control: running, poll timeout %v", d.timeout)

	for ctx.Err() == nil {
		d.tick(ctx)
	}

	d.publishZero()
	log.Println("control: exiting")
	return nil
}

func (d *Driver) arm() error {
	t := d.now()
	if err := d.pub.Publish(d.topics.ActuatorArmed, actuator.Armed{Armed: true, Time: t}); err != nil {
		return err
	}
	return d.pub.Publish(d.topics.Actuators, actuator.Zero(t))
}

func (d *Driver) publishZero() {
	if err := d.pub.Publish(d.topics.Actuators, actuator.Zero(d.now())); err != nil {
		log.Printf("control: zero command publish error: %v", err)
		d.metrics.PublishError()
	}
}

// tick is one loop iteration: poll, ingest, steer.
func (d *Driver) tick(ctx context.Context) {
	ev, err := d.poller.Poll(ctx, d.timeout)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		log.Printf("control: poll error: %v", err)
		d.metrics.PollError()
		return
	}

	stale := ev.Empty()
	if stale {
		log.Printf("control: got no data within %v", d.timeout)
		d.metrics.PollTimeout()
	} else {
		d.ingest(ev)
	}
	d.steer(stale)
}

func (d *Driver) ingest(ev Events) {
	// wind first: a COG sample only turns into alpha once TWD is known
	if w := ev.Wind; w != nil {
		if w.HaveTrue {
			d.store.UpdateTWD(rad(w.TrueAngle))
		}
		if w.HaveApparent {
			d.store.UpdateApparent(rad(w.ApparentAngle))
		}
	}
	if f := ev.GPSRaw; f != nil && f.HaveVelocity {
		d.store.UpdateCOG(rad(f.CourseDeg))
	}
	if f := ev.GPSFiltered; f != nil && f.Valid() {
		d.navigate(*f)
	}
	if p := ev.Attitude; p != nil {
		d.attitude(guidance.SourceEstimator, *p)
	}
	if p := ev.WXAttitude; p != nil {
		d.attitude(guidance.SourceStation, *p)
	}
	if r := ev.Reference; r != nil {
		d.ref = *r
	}
	for _, p := range ev.Params {
		d.applyParams(p)
	}
}

// attitude stores roll and yaw for the tack test. The heading used for
// alpha_yaw comes from the estimator once it has been heard from.
func (d *Driver) attitude(src int, p orientation.Pose) {
	roll, _, yaw := p.Radians()
	d.roll[src] = roll
	d.yaw[src] = yaw
	d.seen[src] = true
	if src == guidance.SourceEstimator || !d.seen[guidance.SourceEstimator] {
		d.store.UpdateYaw(yaw)
	}
}

func (d *Driver) navigate(f gps.Fix) {
	pos := navigation.GeodeticPosition{Lat: f.Latitude, Lon: f.Longitude, Alt: f.Altitude}

	if d.awaitOrigin {
		if err := d.course.Apply(d.nav, &pos); err != nil {
			log.Printf("control: origin from fix rejected: %v", err)
			return
		}
		d.awaitOrigin = false
		d.notice(fmt.Sprintf("NED origin set to %.7f, %.7f.", pos.Lat, pos.Lon))
	}
	if !d.nav.RaceReady() {
		if !d.warnedRace {
			log.Println("control: race frame not configured, skipping race position")
			d.warnedRace = true
		}
		return
	}

	ned, err := d.nav.GeoToNED(pos)
	if err != nil {
		log.Printf("control: NED conversion error: %v", err)
		return
	}
	race, err := d.nav.GeoToRace(pos)
	if err != nil {
		log.Printf("control: race conversion error: %v", err)
		return
	}
	alpha, _ := d.store.Alpha()
	d.publish(d.topics.RacePosition, RacePositionMsg{
		X:     race.X,
		Y:     race.Y,
		NED:   ned,
		Alpha: deg(alpha),
		Time:  d.now(),
	})
}

func (d *Driver) applyParams(p ParamsMsg) {
	notices, err := d.guid.Apply(p.Params)
	if err != nil {
		log.Printf("control: parameter update rejected: %v", err)
		d.notice("Parameter update rejected: " + err.Error())
	}
	for _, n := range notices {
		d.notice(n)
	}

	if p.Rehome {
		d.awaitOrigin = true
		d.notice("Re-homing on next fix.")
	}
	if p.MeanWindDeg != nil {
		d.nav.SetMeanWindAngle(rad(*p.MeanWindDeg))
		d.course.MeanWindDeg = p.MeanWindDeg
		d.warnedRace = false
	}
	if p.RaceOrigin != nil {
		if err := d.nav.SetRaceOrigin(*p.RaceOrigin); err != nil {
			d.notice("Race origin rejected: " + err.Error())
		} else {
			ro := *p.RaceOrigin
			d.course.RaceOrigin = &ro
			d.warnedRace = false
		}
	}
}

// steer runs guidance with the freshest stored values and publishes the
// command whether or not anything new arrived.
func (d *Driver) steer(stale bool) {
	alpha, _ := d.store.Alpha()
	alphaYaw, _ := d.store.AlphaYaw()
	apparent, _ := d.store.Apparent()

	out := d.guid.Step(&d.ref, guidance.Measurements{
		Alpha:    alpha,
		AlphaYaw: alphaYaw,
		Apparent: apparent,
		Roll:     d.roll,
		Yaw:      d.yaw,
		Silent:   [2]bool{!d.seen[0], !d.seen[1]},
	})

	t := d.now()
	d.publish(d.topics.Actuators, actuator.NewCommand(out.Rudder, out.Sail, t))
	d.metrics.ObserveTick(out.Rudder, out.Sail, out.Mode == guidance.Tacking, out.TackCompleted)

	for _, n := range out.Notices {
		d.notice(n)
	}
	if out.TackCompleted {
		d.store.ResetAlpha()
		d.event(d.topics.TackCompleted, TackCompletedMsg{AlphaStarDeg: deg(d.ref.AlphaStar), Time: t})
	}

	twd, _ := d.store.TWD()
	d.publish(d.topics.Guidance, DebugMsg{
		Mode:          out.Mode.String(),
		Rudder:        out.Rudder,
		Sail:          out.Sail,
		AlphaDeg:      deg(alpha),
		AlphaStarDeg:  deg(d.ref.AlphaStar),
		AlphaYawDeg:   deg(alphaYaw),
		ApparentDeg:   deg(apparent),
		TWDDeg:        deg(twd),
		ShouldTack:    d.ref.ShouldTack,
		TackCompleted: out.TackCompleted,
		Stale:         stale,
		Time:          t,
	})
}

func (d *Driver) notice(text string) {
	log.Printf("control: %s", text)
	d.event(d.topics.Notice, Notice{Text: text, Time: d.now()})
}

func (d *Driver) publish(topic string, v any) { d.send(d.pub.Publish, topic, v) }

func (d *Driver) event(topic string, v any) { d.send(d.pub.PublishEvent, topic, v) }

func (d *Driver) send(fn func(string, any) error, topic string, v any) {
	if topic == "" {
		return
	}
	if err := fn(topic, v); err != nil {
		log.Printf("control: publish %s error: %v", topic, err)
		d.metrics.PublishError()
	}
}

func rad(d float64) float64 { return d * math.Pi / 180 }
func deg(r float64) float64 { return r * 180 / math.Pi }
