// Package metrics exposes Prometheus counters and gauges for the producers
// and the control loop.
package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles the sailing metrics. A nil *Collector is valid and
// records nothing.
type Collector struct {
	gatherer prometheus.Gatherer

	Ticks         prometheus.Counter
	PollTimeouts  prometheus.Counter
	PollErrors    prometheus.Counter
	Tacks         prometheus.Counter
	PublishErrors prometheus.Counter

	Rudder prometheus.Gauge
	Sail   prometheus.Gauge
	Mode   prometheus.Gauge

	Sentences *prometheus.CounterVec
	Aborts    *prometheus.CounterVec
}

// NewCollector registers the sailing metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	c := &Collector{gatherer: gatherer}
	var err error

	counters := []struct {
		dst  *prometheus.Counter
		name string
		help string
	}{
		{&c.Ticks, "sailing_control_ticks_total", "Control loop iterations that ran guidance."},
		{&c.PollTimeouts, "sailing_control_poll_timeouts_total", "Control loop polls that returned without any message."},
		{&c.PollErrors, "sailing_control_poll_errors_total", "Control loop polls that failed."},
		{&c.Tacks, "sailing_tacks_total", "Completed tack maneuvers."},
		{&c.PublishErrors, "sailing_publish_errors_total", "Failed MQTT publishes."},
	}
	for _, cc := range counters {
		*cc.dst, err = registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Name: cc.name,
			Help: cc.help,
		}), cc.name)
		if err != nil {
			return nil, err
		}
	}

	gauges := []struct {
		dst  *prometheus.Gauge
		name string
		help string
	}{
		{&c.Rudder, "sailing_rudder_command", "Last rudder command, positive steers left."},
		{&c.Sail, "sailing_sail_command", "Last sail command."},
		{&c.Mode, "sailing_guidance_mode", "Guidance mode: 0 following reference, 1 tacking."},
	}
	for _, gg := range gauges {
		*gg.dst, err = registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Name: gg.name,
			Help: gg.help,
		}), gg.name)
		if err != nil {
			return nil, err
		}
	}

	c.Sentences, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sailing_wx_sentences_total",
		Help: "Weather station sentences parsed, labeled by tag.",
	}, []string{"tag"}), "sailing_wx_sentences_total")
	if err != nil {
		return nil, err
	}
	c.Aborts, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sailing_wx_sentence_aborts_total",
		Help: "Weather station sentences dropped as malformed, labeled by tag.",
	}, []string{"tag"}), "sailing_wx_sentence_aborts_total")
	if err != nil {
		return nil, err
	}

	return c, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// ObserveTick records one guidance step.
func (c *Collector) ObserveTick(rudder, sail float64, tacking, completed bool) {
	if c == nil {
		return
	}
	c.Ticks.Inc()
	c.Rudder.Set(rudder)
	c.Sail.Set(sail)
	if tacking {
		c.Mode.Set(1)
	} else {
		c.Mode.Set(0)
	}
	if completed {
		c.Tacks.Inc()
	}
}

// PollTimeout records a poll that saw no messages.
func (c *Collector) PollTimeout() {
	if c == nil {
		return
	}
	c.PollTimeouts.Inc()
}

// PollError records a failed poll.
func (c *Collector) PollError() {
	if c == nil {
		return
	}
	c.PollErrors.Inc()
}

// PublishError records a failed publish.
func (c *Collector) PublishError() {
	if c == nil {
		return
	}
	c.PublishErrors.Inc()
}

// AddSentences folds one parse pass worth of per-tag counts in.
func (c *Collector) AddSentences(parsed, aborted map[string]int) {
	if c == nil {
		return
	}
	for tag, n := range parsed {
		c.Sentences.WithLabelValues(tag).Add(float64(n))
	}
	for tag, n := range aborted {
		c.Aborts.WithLabelValues(tag).Add(float64(n))
	}
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
