package pathswitch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/duopath-network/duopath/pkg/channel"
	"github.com/duopath-network/duopath/pkg/topology"
	"github.com/duopath-network/duopath/pkg/util"
	"github.com/duopath-network/duopath/pkg/vtysh"
)

// Verifier confirms that the routing tables have converged onto the
// target path after a cost mutation.
type Verifier interface {
	WaitConverged(ctx context.Context, target topology.Preference) error
}

// Mutation is one cost change on one labelled interface.
type Mutation struct {
	Router    string
	Interface string
	From      int
	To        int
}

// Result describes the outcome of a switch attempt. On failure the
// controller still returns a Result alongside the error so callers can
// journal what happened.
type Result struct {
	From       topology.Preference // empty when the starting state was indeterminate
	To         topology.Preference
	Mutations  []Mutation
	Noop       bool
	Converged  bool
	RolledBack bool
	Duration   time.Duration
}

// Options configures controller behavior.
type Options struct {
	// WaitForLock makes SwitchTo block until the in-process switch
	// lock is free. When false a concurrent switch is rejected with
	// ErrSwitchInProgress instead.
	WaitForLock bool
}

// Controller is the single writer of the cost assignment. All cost
// mutations on the lab routers go through SwitchTo, one switch at a
// time.
type Controller struct {
	topo     *topology.Topology
	ch       channel.Channel
	verifier Verifier
	opts     Options

	mu sync.Mutex
}

// NewController creates a controller for the topology using ch to reach
// the routers.
func NewController(topo *topology.Topology, ch channel.Channel, verifier Verifier, opts Options) *Controller {
	return &Controller{
		topo:     topo,
		ch:       ch,
		verifier: verifier,
		opts:     opts,
	}
}

// ReadAssignment reads the authoritative cost of every labelled
// interface from the routers. The running config, not any cached state,
// decides what the assignment is.
func (c *Controller) ReadAssignment(ctx context.Context) (CostAssignment, error) {
	perRouter := make(map[string][]string)
	for _, li := range c.topo.LabelledInterfaces() {
		perRouter[li.Router] = append(perRouter[li.Router], li.Interface)
	}

	assignment := make(CostAssignment)
	for _, router := range c.topo.Routers() {
		ifaces, ok := perRouter[router.ID]
		if !ok {
			continue
		}
		commands := make([]string, len(ifaces))
		for i, iface := range ifaces {
			commands[i] = vtysh.ShowInterface(iface)
		}
		resp, err := c.ch.Apply(ctx, c.topo.Handle(router.ID), commands)
		if err != nil {
			return nil, err
		}
		for i, result := range resp.Results {
			cost, err := vtysh.ParseInterfaceCost(result.Output)
			if err != nil {
				return nil, fmt.Errorf("reading cost of %s/%s: %w", router.ID, ifaces[i], err)
			}
			assignment[CostKey{Router: router.ID, Interface: ifaces[i]}] = cost
		}
	}
	return assignment, nil
}

// SwitchTo makes target the preferred path. It reads the authoritative
// assignment, plans the minimal set of cost mutations, applies them
// downstream boundary first and upstream boundary last, then waits for
// the routing tables to converge.
//
// A failed mutation is rolled back before returning; a failed rollback
// surfaces as ErrInconsistentState. A convergence timeout is returned
// without rollback since the mutations themselves committed.
func (c *Controller) SwitchTo(ctx context.Context, target topology.Preference) (*Result, error) {
	if !target.Valid() {
		return nil, fmt.Errorf("%w: unknown path %q", util.ErrValidationFailed, target)
	}
	if err := c.acquire(); err != nil {
		return nil, err
	}
	defer c.mu.Unlock()

	start := time.Now()
	log := util.WithOperation("switch").WithField("target", string(target))

	current, err := c.ReadAssignment(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading cost assignment: %w", err)
	}
	from, _ := Active(c.topo, current)

	desired := Desired(c.topo, current, target)
	if current.Equal(desired) {
		log.Info("costs already prefer target path, nothing to do")
		return &Result{From: from, To: target, Noop: true, Converged: true, Duration: time.Since(start)}, nil
	}

	mutations, err := c.plan(current, desired, target)
	if err != nil {
		return nil, err
	}
	result := &Result{From: from, To: target, Mutations: mutations}

	log.Infof("applying %d cost mutations", len(mutations))
	applied, err := c.apply(ctx, mutations)
	if err != nil {
		if rbErr := c.rollback(ctx, applied); rbErr != nil {
			result.Duration = time.Since(start)
			return result, c.inconsistent(applied, rbErr)
		}
		result.RolledBack = true
		result.Duration = time.Since(start)
		return result, err
	}

	if err := c.verifier.WaitConverged(ctx, target); err != nil {
		// The mutations committed; the network just has not settled.
		// Rolling back here could leave things worse, so report and
		// let the operator reconcile.
		result.Duration = time.Since(start)
		return result, err
	}

	result.Converged = true
	result.Duration = time.Since(start)
	log.Infof("path %s active after %s", target, result.Duration.Round(time.Millisecond))
	return result, nil
}

func (c *Controller) acquire() error {
	if c.opts.WaitForLock {
		c.mu.Lock()
		return nil
	}
	if !c.mu.TryLock() {
		return util.ErrSwitchInProgress
	}
	return nil
}

// plan orders the mutations so the downstream boundary router changes
// first and the upstream boundary router changes last. Traffic enters
// at the upstream router, so it keeps steering onto the old path until
// everything beyond it already prefers the new one.
func (c *Controller) plan(current, desired CostAssignment, target topology.Preference) ([]Mutation, error) {
	upstream, downstream, err := c.topo.Boundaries()
	if err != nil {
		return nil, err
	}

	order := []string{downstream.Router}
	for _, router := range c.topo.Routers() {
		if router.ID != upstream.Router && router.ID != downstream.Router {
			order = append(order, router.ID)
		}
	}
	order = append(order, upstream.Router)

	labels := pathOf(c.topo)
	var mutations []Mutation
	for _, router := range order {
		var lower, raise []Mutation
		for _, key := range desired.Keys() {
			if key.Router != router || current[key] == desired[key] {
				continue
			}
			m := Mutation{Router: key.Router, Interface: key.Interface, From: current[key], To: desired[key]}
			if labels[key] == target {
				lower = append(lower, m)
			} else {
				raise = append(raise, m)
			}
		}
		// Within a router, prefer the new path before penalizing the
		// old one so the router never briefly has no cheap exit.
		mutations = append(mutations, lower...)
		mutations = append(mutations, raise...)
	}
	return mutations, nil
}

// apply executes mutations in order and returns the prefix that
// succeeded.
func (c *Controller) apply(ctx context.Context, mutations []Mutation) ([]Mutation, error) {
	for i, m := range mutations {
		cmd := vtysh.SetInterfaceCost(m.Interface, m.To)
		if _, err := c.ch.Apply(ctx, c.topo.Handle(m.Router), []string{cmd}); err != nil {
			return mutations[:i], err
		}
		util.WithNode(m.Router).Debugf("%s cost %d -> %d", m.Interface, m.From, m.To)
	}
	return mutations, nil
}

// rollback restores the original costs of already-applied mutations in
// reverse order.
func (c *Controller) rollback(ctx context.Context, applied []Mutation) error {
	for i := len(applied) - 1; i >= 0; i-- {
		m := applied[i]
		cmd := vtysh.SetInterfaceCost(m.Interface, m.From)
		if _, err := c.ch.Apply(ctx, c.topo.Handle(m.Router), []string{cmd}); err != nil {
			return err
		}
		util.WithNode(m.Router).Debugf("rolled back %s cost to %d", m.Interface, m.From)
	}
	return nil
}

func (c *Controller) inconsistent(applied []Mutation, cause error) error {
	perRouter := make(map[string]map[string]int)
	for _, m := range applied {
		if perRouter[m.Router] == nil {
			perRouter[m.Router] = make(map[string]int)
		}
		perRouter[m.Router][m.Interface] = m.To
	}
	var routers []util.RouterCostState
	for router, costs := range perRouter {
		routers = append(routers, util.RouterCostState{Router: router, Costs: costs})
	}
	return &util.InconsistentStateError{
		Operation: "switch rollback",
		Routers:   routers,
		Cause:     cause,
	}
}
