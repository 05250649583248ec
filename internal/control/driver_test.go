package control

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/relabs-tech/sailing_computer/internal/actuator"
	"github.com/relabs-tech/sailing_computer/internal/controldata"
	"github.com/relabs-tech/sailing_computer/internal/course"
	"github.com/relabs-tech/sailing_computer/internal/env"
	"github.com/relabs-tech/sailing_computer/internal/gps"
	"github.com/relabs-tech/sailing_computer/internal/guidance"
	"github.com/relabs-tech/sailing_computer/internal/metrics"
	"github.com/relabs-tech/sailing_computer/internal/navigation"
	"github.com/relabs-tech/sailing_computer/internal/orientation"
)

var testTopics = Topics{
	Actuators:     "act",
	ActuatorArmed: "armed",
	Guidance:      "guidance",
	RacePosition:  "race",
	TackCompleted: "tack",
	Notice:        "notice",
}

type published struct {
	topic    string
	v        any
	retained bool
}

type fakePublisher struct {
	msgs      []published
	failTopic string
}

func (f *fakePublisher) Publish(topic string, v any) error {
	return f.record(topic, v, true)
}

func (f *fakePublisher) PublishEvent(topic string, v any) error {
	return f.record(topic, v, false)
}

func (f *fakePublisher) record(topic string, v any, retained bool) error {
	if topic == f.failTopic {
		return errors.New("broker down")
	}
	f.msgs = append(f.msgs, published{topic, v, retained})
	return nil
}

func (f *fakePublisher) retained(topic string) []bool {
	var out []bool
	for _, m := range f.msgs {
		if m.topic == topic {
			out = append(out, m.retained)
		}
	}
	return out
}

func (f *fakePublisher) on(topic string) []any {
	var out []any
	for _, m := range f.msgs {
		if m.topic == topic {
			out = append(out, m.v)
		}
	}
	return out
}

func (f *fakePublisher) notices() []string {
	var out []string
	for _, v := range f.on(testTopics.Notice) {
		out = append(out, v.(Notice).Text)
	}
	return out
}

type step struct {
	ev  Events
	err error
}

// scriptedPoller replays steps, then stops the driver.
type scriptedPoller struct {
	steps  []step
	cancel context.CancelFunc
	polls  int
}

func (p *scriptedPoller) Poll(ctx context.Context, _ time.Duration) (Events, error) {
	if p.polls >= len(p.steps) {
		p.cancel()
		return Events{}, ctx.Err()
	}
	s := p.steps[p.polls]
	p.polls++
	return s.ev, s.err
}

type harness struct {
	driver  *Driver
	pub     *fakePublisher
	poller  *scriptedPoller
	metrics *metrics.Collector
	ctx     context.Context
}

func newHarness(t *testing.T, gmut func(*guidance.Config), crs course.Course, steps ...step) *harness {
	t.Helper()
	gcfg := guidance.DefaultConfig()
	if gmut != nil {
		gmut(&gcfg)
	}
	g, err := guidance.New(gcfg)
	if err != nil {
		t.Fatalf("guidance.New: %v", err)
	}
	store, err := controldata.New(controldata.Windows{Alpha: 1, Apparent: 1, TWD: 1})
	if err != nil {
		t.Fatalf("controldata.New: %v", err)
	}
	m, err := metrics.NewCollector(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	poller := &scriptedPoller{steps: steps, cancel: cancel}
	pub := &fakePublisher{}

	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	d, err := New(Config{
		Publisher:   pub,
		Poller:      poller,
		Guidance:    g,
		Store:       store,
		Transform:   navigation.NewTransform(navigation.PrecisionFixed),
		Metrics:     m,
		Course:      crs,
		Topics:      testTopics,
		PollTimeout: time.Second,
		Reference:   guidance.ReferenceAction{AlphaStar: rad(30)},
		Now:         func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return &harness{driver: d, pub: pub, poller: poller, metrics: m, ctx: ctx}
}

func (h *harness) run(t *testing.T) {
	t.Helper()
	if err := h.driver.Run(h.ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func commands(pub *fakePublisher) []actuator.Command {
	var out []actuator.Command
	for _, v := range pub.on(testTopics.Actuators) {
		out = append(out, v.(actuator.Command))
	}
	return out
}

func ptr[T any](v T) *T { return &v }

func TestRun_ArmsAndShutsDownWithZeroCommand(t *testing.T) {
	h := newHarness(t, nil, course.Course{})
	h.run(t)

	if len(h.pub.msgs) < 2 || h.pub.msgs[0].topic != testTopics.ActuatorArmed {
		t.Fatalf("first publish=%+v, want arming", h.pub.msgs)
	}
	if armed := h.pub.msgs[0].v.(actuator.Armed); !armed.Armed {
		t.Fatalf("armed=%+v", armed)
	}
	cmds := commands(h.pub)
	if len(cmds) != 2 || !cmds[0].IsZero() || !cmds[1].IsZero() {
		t.Fatalf("commands=%+v, want zero at start and at stop", cmds)
	}
	last := h.pub.msgs[len(h.pub.msgs)-1]
	if last.topic != testTopics.Actuators {
		t.Fatalf("last publish on %q, want actuators", last.topic)
	}
}

func TestRun_ArmFailureIsFatal(t *testing.T) {
	h := newHarness(t, nil, course.Course{}, step{ev: Events{}})
	h.pub.failTopic = testTopics.ActuatorArmed

	err := h.driver.Run(h.ctx)
	if err == nil || !strings.Contains(err.Error(), "actuator init failed") {
		t.Fatalf("err=%v", err)
	}
	if h.poller.polls != 0 {
		t.Fatalf("loop ran %d polls after failed init", h.poller.polls)
	}
	cmds := commands(h.pub)
	if len(cmds) != 1 || !cmds[0].IsZero() {
		t.Fatalf("commands=%+v, want a single zero command", cmds)
	}
}

func TestRun_TimeoutStillSteers(t *testing.T) {
	h := newHarness(t, nil, course.Course{}, step{ev: Events{}}, step{ev: Events{}})
	h.run(t)

	if got := len(commands(h.pub)); got != 4 {
		t.Fatalf("commands=%d, want arm + 2 ticks + stop", got)
	}
	dbg := h.pub.on(testTopics.Guidance)
	if len(dbg) != 2 || !dbg[0].(DebugMsg).Stale {
		t.Fatalf("debug=%+v, want two stale ticks", dbg)
	}
	if got := testutil.ToFloat64(h.metrics.PollTimeouts); got != 2 {
		t.Fatalf("poll timeouts=%v, want 2", got)
	}
	if got := testutil.ToFloat64(h.metrics.Ticks); got != 2 {
		t.Fatalf("ticks=%v, want 2", got)
	}
}

func TestRun_PollErrorSkipsTick(t *testing.T) {
	h := newHarness(t, nil, course.Course{},
		step{err: errors.New("poll failed")},
		step{ev: Events{Reference: &guidance.ReferenceAction{AlphaStar: 0.1}}},
	)
	h.run(t)

	if got := len(commands(h.pub)); got != 3 {
		t.Fatalf("commands=%d, want arm + 1 tick + stop", got)
	}
	if got := testutil.ToFloat64(h.metrics.PollErrors); got != 1 {
		t.Fatalf("poll errors=%v", got)
	}
	if h.driver.Reference().AlphaStar != 0.1 {
		t.Fatalf("reference not taken after the failed poll")
	}
}

func TestRun_RudderFromWindAndCourse(t *testing.T) {
	h := newHarness(t, func(c *guidance.Config) {
		c.Gains = guidance.Gains{P: 1, I: 0, Cp: 0, Ci: 0, Conditional: true}
	}, course.Course{}, step{ev: Events{
		Wind:      &env.Wind{TrueAngle: deg(0.3), HaveTrue: true, ApparentAngle: -45, HaveApparent: true},
		GPSRaw:    &gps.Fix{CourseDeg: 0, HaveVelocity: true},
		Reference: &guidance.ReferenceAction{AlphaStar: 0.5},
	}})
	h.run(t)

	cmds := commands(h.pub)
	cmd := cmds[1]
	if math.Abs(cmd.Control[actuator.Rudder]-0.2) > 1e-9 {
		t.Fatalf("rudder=%v, want 0.2", cmd.Control[actuator.Rudder])
	}
	if cmd.Control[actuator.Sail] <= 0 {
		t.Fatalf("sail=%v, want positive at 45 deg apparent", cmd.Control[actuator.Sail])
	}
	for i, v := range cmd.Control {
		if i != actuator.Rudder && i != actuator.Sail && v != 0 {
			t.Fatalf("control[%d]=%v, want 0", i, v)
		}
	}
}

func TestRun_RacePosition(t *testing.T) {
	origin := navigation.GeodeticPosition{Lat: 47.3769, Lon: 8.5417, Alt: 406}
	mark := navigation.GeodeticPosition{Lat: 47.3789, Lon: 8.5417, Alt: 406}
	crs := course.Course{Origin: &origin, RaceOrigin: &mark, MeanWindDeg: ptr(0.0)}

	h := newHarness(t, nil, crs, step{ev: Events{GPSFiltered: &gps.Fix{
		Latitude: origin.Lat, Longitude: origin.Lon, Altitude: origin.Alt,
		Quality: 1, HavePosition: true,
	}}})
	h.run(t)

	got := h.pub.on(testTopics.RacePosition)
	if len(got) != 1 {
		t.Fatalf("race positions=%d, want 1", len(got))
	}
	rp := got[0].(RacePositionMsg)
	if math.Abs(rp.X-222.3) > 1.5 || math.Abs(rp.Y) > 0.5 {
		t.Fatalf("race=(%v,%v), want about (222, 0)", rp.X, rp.Y)
	}
	if rp.NED.North != 0 || rp.NED.East != 0 {
		t.Fatalf("ned=%+v, want origin", rp.NED)
	}
}

func TestRun_OriginFromFirstFix(t *testing.T) {
	fix := &gps.Fix{Latitude: 45.5, Longitude: -73.6, Altitude: 20, Quality: 1, HavePosition: true}
	crs := course.Course{OriginFromFirstFix: true, MeanWindDeg: ptr(90.0)}

	h := newHarness(t, nil, crs,
		step{ev: Events{GPSFiltered: &gps.Fix{Latitude: 45.5, HavePosition: true, Validity: "V"}}},
		step{ev: Events{GPSFiltered: fix}},
	)
	h.run(t)

	got := h.pub.on(testTopics.RacePosition)
	if len(got) != 1 {
		t.Fatalf("race positions=%d, want 1 (void fix ignored)", len(got))
	}
	if rp := got[0].(RacePositionMsg); rp.X != 0 || rp.Y != 0 {
		t.Fatalf("race=%+v, want origin", rp)
	}
	notices := h.pub.notices()
	if len(notices) != 1 || !strings.HasPrefix(notices[0], "NED origin set to 45.5") {
		t.Fatalf("notices=%v", notices)
	}
}

func TestRun_TackCompletedNotifiesPathPlanning(t *testing.T) {
	h := newHarness(t, nil, course.Course{},
		step{ev: Events{
			Reference:  &guidance.ReferenceAction{AlphaStar: rad(40), ShouldTack: true},
			Wind:       &env.Wind{TrueAngle: 150, HaveTrue: true},
			Attitude:   &orientation.Pose{Roll: 10, Yaw: -170},
			WXAttitude: &orientation.Pose{Roll: 12, Yaw: -168},
		}},
		step{ev: Events{
			Attitude:   &orientation.Pose{Roll: -6, Yaw: 125},
			WXAttitude: &orientation.Pose{Roll: 1, Yaw: 127},
		}},
	)
	h.run(t)

	if got := h.pub.on(testTopics.TackCompleted); len(got) != 1 {
		t.Fatalf("tack completed messages=%d, want 1", len(got))
	}
	if h.driver.Reference().ShouldTack {
		t.Fatalf("should_tack still set")
	}
	notices := h.pub.notices()
	if len(notices) != 2 || notices[1] != "Tack completed." {
		t.Fatalf("notices=%v", notices)
	}
	if got := testutil.ToFloat64(h.metrics.Tacks); got != 1 {
		t.Fatalf("tacks metric=%v", got)
	}
	for _, topic := range []string{testTopics.TackCompleted, testTopics.Notice} {
		for _, r := range h.pub.retained(topic) {
			if r {
				t.Fatalf("%s published retained", topic)
			}
		}
	}
	if r := h.pub.retained(testTopics.Actuators); len(r) == 0 || !r[0] {
		t.Fatalf("actuator commands not retained: %v", r)
	}
	cmds := commands(h.pub)
	if r := cmds[1].Control[actuator.Rudder]; r <= 0 {
		t.Fatalf("rudder during tack=%v, want positive (left)", r)
	}
}

func TestRun_Params(t *testing.T) {
	h := newHarness(t, nil, course.Course{},
		step{ev: Events{Params: []ParamsMsg{
			{Params: guidance.Params{Conditional: ptr(false)}},
			{Params: guidance.Params{SailSectors: ptr(1)}},
		}}},
	)
	h.run(t)

	notices := h.pub.notices()
	if len(notices) != 2 {
		t.Fatalf("notices=%v", notices)
	}
	if notices[0] != "Switched to standard PI with anti-windup." {
		t.Fatalf("first notice=%q", notices[0])
	}
	if !strings.HasPrefix(notices[1], "Parameter update rejected") {
		t.Fatalf("second notice=%q", notices[1])
	}
}

func TestNew_RequiresDependencies(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatalf("expected error for empty config")
	}
}

func TestRun_TackWaitsForHeelWhenEstimatorSilent(t *testing.T) {
	h := newHarness(t, nil, course.Course{},
		step{ev: Events{
			Reference:  &guidance.ReferenceAction{AlphaStar: rad(40), ShouldTack: true},
			Wind:       &env.Wind{TrueAngle: 150, HaveTrue: true},
			WXAttitude: &orientation.Pose{Roll: 10, Yaw: 0},
		}},
		// turned far enough but still heeled on the old side
		step{ev: Events{WXAttitude: &orientation.Pose{Roll: 10, Yaw: -70}}},
		step{ev: Events{WXAttitude: &orientation.Pose{Roll: -6, Yaw: -75}}},
	)
	h.run(t)

	if got := h.pub.on(testTopics.TackCompleted); len(got) != 1 {
		t.Fatalf("tack completed messages=%d, want 1", len(got))
	}
	cmds := commands(h.pub)
	// arm zero, tack start, still tacking, completed, shutdown zero
	if r := cmds[2].Control[actuator.Rudder]; r <= 0 {
		t.Fatalf("rudder=%v on the unreversed-heel tick, want helmsman left", r)
	}
}
