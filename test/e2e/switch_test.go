//go:build e2e

package e2e_test

import (
	"context"
	"testing"
	"time"

	"github.com/duopath-network/duopath/internal/testutil"
	"github.com/duopath-network/duopath/pkg/channel"
	"github.com/duopath-network/duopath/pkg/pathswitch"
	"github.com/duopath-network/duopath/pkg/topology"
	"github.com/duopath-network/duopath/pkg/verify"
	"github.com/duopath-network/duopath/pkg/vtysh"
)

// liveRig wires the real docker transport against a running lab.
func liveRig(t *testing.T) (*topology.Topology, channel.Channel, *pathswitch.Controller) {
	t.Helper()
	testutil.SkipIfNoLab(t)

	topo, err := topology.Load(testutil.LabTopologyPath())
	if err != nil {
		t.Fatalf("loading lab topology: %v", err)
	}
	ch := channel.WithRetry(channel.NewDockerChannel(), channel.DefaultRetryPolicy)
	verifier := verify.New(topo, ch, verify.Config{Interval: 2 * time.Second, Timeout: 90 * time.Second})
	ctrl := pathswitch.NewController(topo, ch, verifier, pathswitch.Options{})
	return topo, ch, ctrl
}

func TestE2E_SwitchRoundTrip(t *testing.T) {
	topo, _, ctrl := liveRig(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	before, err := ctrl.ReadAssignment(ctx)
	if err != nil {
		t.Fatalf("ReadAssignment: %v", err)
	}
	active, coherent := pathswitch.Active(topo, before)
	if !coherent {
		t.Fatalf("lab costs incoherent before test: %v", before)
	}

	other := active.Other()
	if _, err := ctrl.SwitchTo(ctx, other); err != nil {
		t.Fatalf("SwitchTo(%s): %v", other, err)
	}
	if _, err := ctrl.SwitchTo(ctx, active); err != nil {
		t.Fatalf("SwitchTo(%s): %v", active, err)
	}

	after, err := ctrl.ReadAssignment(ctx)
	if err != nil {
		t.Fatalf("ReadAssignment: %v", err)
	}
	if !after.Equal(before) {
		t.Errorf("round trip changed the assignment:\n before %v\n after  %v", before, after)
	}
}

func TestE2E_TrafficFollowsSwitch(t *testing.T) {
	topo, ch, ctrl := liveRig(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	src, dst := topo.Hosts()
	target, err := topo.HostAddress(dst.ID)
	if err != nil {
		t.Fatalf("HostAddress: %v", err)
	}

	for _, path := range []topology.Preference{topology.PathB, topology.PathA} {
		if _, err := ctrl.SwitchTo(ctx, path); err != nil {
			t.Fatalf("SwitchTo(%s): %v", path, err)
		}

		resp, err := ch.Apply(ctx, src.Mgmt, []string{vtysh.Traceroute(target)})
		if err != nil {
			t.Fatalf("traceroute: %v", err)
		}
		hops := vtysh.ParseTracerouteHops(resp.Output())
		if len(hops) == 0 {
			t.Fatalf("no traceroute hops on path %s", path)
		}
		if !hopsUsePath(topo, hops, path) {
			t.Errorf("path %s active but traceroute went elsewhere: %v", path, hops)
		}

		resp, err = ch.Apply(ctx, src.Mgmt, []string{vtysh.Ping(target, 4)})
		if err != nil {
			t.Fatalf("ping: %v", err)
		}
		stats, err := vtysh.ParsePingStats(resp.Output())
		if err != nil {
			t.Fatalf("parsing ping stats: %v", err)
		}
		if stats.Loss() > 0 {
			t.Errorf("path %s: %.0f%% packet loss", path, stats.Loss()*100)
		}
	}
}

// hopsUsePath reports whether any traceroute hop address sits on a link
// labelled with the given path.
func hopsUsePath(topo *topology.Topology, hops []string, path topology.Preference) bool {
	for _, hop := range hops {
		for _, link := range topo.Links {
			if link.Path != path {
				continue
			}
			for _, ep := range link.Endpoints() {
				if ep.Address == hop {
					return true
				}
			}
		}
	}
	return false
}
