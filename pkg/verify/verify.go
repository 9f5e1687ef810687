// Package verify confirms that the routing tables actually steer
// traffic over the intended path after a cost change. Cost mutations
// only express intent; OSPF has to recompute and install routes before
// the switch is real.
package verify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/duopath-network/duopath/pkg/channel"
	"github.com/duopath-network/duopath/pkg/topology"
	"github.com/duopath-network/duopath/pkg/util"
	"github.com/duopath-network/duopath/pkg/vtysh"
)

// Config tunes the polling loop.
type Config struct {
	Interval time.Duration // delay between polls
	Timeout  time.Duration // overall deadline
}

// DefaultConfig matches OSPF's usual SPF and flooding timers: a few
// seconds per poll, a minute overall.
var DefaultConfig = Config{
	Interval: 2 * time.Second,
	Timeout:  60 * time.Second,
}

// Observation is one boundary router's view of its monitored prefix.
type Observation struct {
	Router       string
	Prefix       string
	WantVia      string
	WantIface    string
	Got          *vtysh.NextHop // nil until a selected route is parsed
	Match        bool
	Unreachable  bool
	ParseFailure string
}

// Snapshot is the result of one verification poll across both boundary
// routers.
type Snapshot struct {
	Time         time.Time
	Observations []Observation
}

// Converged reports whether every observation matched.
func (s *Snapshot) Converged() bool {
	for _, o := range s.Observations {
		if !o.Match {
			return false
		}
	}
	return len(s.Observations) > 0
}

// TimeoutError reports a convergence deadline miss together with the
// last snapshot so the operator can see which router lagged.
type TimeoutError struct {
	Target  topology.Preference
	Elapsed time.Duration
	Last    *Snapshot
}

func (e *TimeoutError) Error() string {
	var lagging []string
	if e.Last != nil {
		for _, o := range e.Last.Observations {
			if !o.Match {
				lagging = append(lagging, o.Router)
			}
		}
	}
	return fmt.Sprintf("path %s not converged after %s (lagging: %s)",
		e.Target, e.Elapsed.Round(time.Millisecond), strings.Join(lagging, ", "))
}

func (e *TimeoutError) Unwrap() error {
	return util.ErrConvergenceTimeout
}

// Verifier polls the boundary routers' routing tables until both
// forward their monitored prefix over the target path.
type Verifier struct {
	topo *topology.Topology
	ch   channel.Channel
	cfg  Config
}

// New creates a verifier. Zero config fields fall back to
// DefaultConfig.
func New(topo *topology.Topology, ch channel.Channel, cfg Config) *Verifier {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig.Interval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig.Timeout
	}
	return &Verifier{topo: topo, ch: ch, cfg: cfg}
}

// WaitConverged polls until both boundary routers route their monitored
// prefix over the target path's interface, or the deadline passes. An
// unreachable router counts as not yet converged and is polled again.
func (v *Verifier) WaitConverged(ctx context.Context, target topology.Preference) error {
	log := util.WithOperation("verify").WithField("target", string(target))
	start := time.Now()
	deadline := time.NewTimer(v.cfg.Timeout)
	defer deadline.Stop()

	var last *Snapshot
	for {
		snap, err := v.Check(ctx, target)
		if err != nil {
			return err
		}
		last = snap
		if snap.Converged() {
			log.Debugf("converged after %s", time.Since(start).Round(time.Millisecond))
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return &TimeoutError{Target: target, Elapsed: time.Since(start), Last: last}
		case <-time.After(v.cfg.Interval):
		}
	}
}

// Check performs a single verification poll. Transport failures toward
// a router are folded into its observation rather than returned, so the
// caller keeps polling while a container restarts; only context
// cancellation aborts.
func (v *Verifier) Check(ctx context.Context, target topology.Preference) (*Snapshot, error) {
	upstream, downstream, err := v.topo.Boundaries()
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{Time: time.Now()}
	for _, b := range []*topology.Boundary{downstream, upstream} {
		obs, err := v.observe(ctx, b, target)
		if err != nil {
			return nil, err
		}
		snap.Observations = append(snap.Observations, obs)
	}
	return snap, nil
}

func (v *Verifier) observe(ctx context.Context, b *topology.Boundary, target topology.Preference) (Observation, error) {
	obs := Observation{
		Router:    b.Router,
		Prefix:    b.MonitoredPrefix,
		WantVia:   b.NextHop(target),
		WantIface: b.Interface(target),
	}

	resp, err := v.ch.Apply(ctx, v.topo.Handle(b.Router), []string{vtysh.ShowRoute(b.MonitoredPrefix)})
	if err != nil {
		if ctx.Err() != nil {
			return obs, ctx.Err()
		}
		if errors.Is(err, util.ErrChannelUnavailable) {
			obs.Unreachable = true
			util.WithNode(b.Router).Debugf("unreachable during verification: %v", err)
			return obs, nil
		}
		return obs, err
	}

	nh, err := vtysh.ParseNextHop(resp.Output())
	if err != nil {
		// No selected route yet. OSPF is still recomputing.
		obs.ParseFailure = err.Error()
		return obs, nil
	}
	obs.Got = nh
	obs.Match = nh.Interface == obs.WantIface && (nh.Connected || nh.Via == obs.WantVia)
	return obs, nil
}
