package control

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/relabs-tech/sailing_computer/internal/env"
	"github.com/relabs-tech/sailing_computer/internal/gps"
	"github.com/relabs-tech/sailing_computer/internal/guidance"
	"github.com/relabs-tech/sailing_computer/internal/orientation"
)

// ErrDisconnected is returned by Poll while the transport is down.
var ErrDisconnected = errors.New("control: input transport disconnected")

// Poller waits up to timeout for input. A timeout returns empty Events and a
// nil error.
type Poller interface {
	Poll(ctx context.Context, timeout time.Duration) (Events, error)
}

// ChanPoller collects messages posted from MQTT callbacks until the control
// goroutine polls them. Only the latest value of each kind is kept, except
// parameter updates, which queue.
type ChanPoller struct {
	mu        sync.Mutex
	pending   Events
	ready     chan struct{}
	connected func() bool
}

// NewChanPoller returns a poller. connected may be nil.
func NewChanPoller(connected func() bool) *ChanPoller {
	return &ChanPoller{ready: make(chan struct{}, 1), connected: connected}
}

func (p *ChanPoller) post(fn func(*Events)) {
	p.mu.Lock()
	fn(&p.pending)
	p.mu.Unlock()
	select {
	case p.ready <- struct{}{}:
	default:
	}
}

func (p *ChanPoller) PostGPSRaw(f gps.Fix)      { p.post(func(e *Events) { e.GPSRaw = &f }) }
func (p *ChanPoller) PostGPSFiltered(f gps.Fix) { p.post(func(e *Events) { e.GPSFiltered = &f }) }
func (p *ChanPoller) PostWind(w env.Wind)       { p.post(func(e *Events) { e.Wind = &w }) }
func (p *ChanPoller) PostAttitude(a orientation.Pose) {
	p.post(func(e *Events) { e.Attitude = &a })
}
func (p *ChanPoller) PostWXAttitude(a orientation.Pose) {
	p.post(func(e *Events) { e.WXAttitude = &a })
}
func (p *ChanPoller) PostReference(r guidance.ReferenceAction) {
	p.post(func(e *Events) { e.Reference = &r })
}
func (p *ChanPoller) PostParams(m ParamsMsg) {
	p.post(func(e *Events) { e.Params = append(e.Params, m) })
}

func (p *ChanPoller) take() (Events, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending.Empty() {
		return Events{}, false
	}
	ev := p.pending
	p.pending = Events{}
	return ev, true
}

// Poll implements Poller.
func (p *ChanPoller) Poll(ctx context.Context, timeout time.Duration) (Events, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	if p.connected != nil && !p.connected() {
		select {
		case <-ctx.Done():
			return Events{}, ctx.Err()
		case <-timer.C:
			return Events{}, ErrDisconnected
		}
	}

	for {
		if ev, ok := p.take(); ok {
			return ev, nil
		}
		select {
		case <-ctx.Done():
			return Events{}, ctx.Err()
		case <-timer.C:
			return Events{}, nil
		case <-p.ready:
		}
	}
}
