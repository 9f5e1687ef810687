// Package orch coordinates the lab lifecycle and the path-switch
// control loop: container bring-up, routing daemon provisioning, base
// OSPF configuration, switches between the two paths, and recovery
// after a crash.
package orch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/duopath-network/duopath/pkg/audit"
	"github.com/duopath-network/duopath/pkg/channel"
	"github.com/duopath-network/duopath/pkg/pathswitch"
	"github.com/duopath-network/duopath/pkg/store"
	"github.com/duopath-network/duopath/pkg/topology"
	"github.com/duopath-network/duopath/pkg/util"
	"github.com/duopath-network/duopath/pkg/vtysh"
)

// State is the orchestrator's view of the lab.
type State string

const (
	StateUninitialized State = "UNINITIALIZED"
	StateStarted       State = "STARTED"
	StateConfigured    State = "CONFIGURED"
	StatePathAActive   State = "PATH_A_ACTIVE"
	StatePathBActive   State = "PATH_B_ACTIVE"
	StateStopped       State = "STOPPED"
)

// switchLeaseTTL bounds how long a crashed process can hold the
// cross-process switch lease.
const switchLeaseTTL = 2 * time.Minute

// Lifecycle starts and stops the lab containers.
type Lifecycle interface {
	Up(ctx context.Context) error
	Down(ctx context.Context) error
	WaitRunning(ctx context.Context, nodes []string, interval time.Duration) error
}

// Switcher is the cost-mutation surface the orchestrator drives.
type Switcher interface {
	SwitchTo(ctx context.Context, target topology.Preference) (*pathswitch.Result, error)
	ReadAssignment(ctx context.Context) (pathswitch.CostAssignment, error)
}

// Options configures orchestrator behavior.
type Options struct {
	// User is recorded on audit events.
	User string

	// InstallDaemons provisions FRR on the routers during Initialize.
	// Skip when the container image already ships it.
	InstallDaemons bool

	// Parallelism bounds concurrent router provisioning.
	Parallelism int
}

// Orchestrator owns the lab's control loop.
type Orchestrator struct {
	topo     *topology.Topology
	ch       channel.Channel
	ctrl     Switcher
	verifier pathswitch.Verifier
	life     Lifecycle
	st       store.Store
	auditor  audit.Logger
	opts     Options

	mu    sync.Mutex
	state State
}

// New creates an orchestrator. It starts in StateUninitialized;
// Reconcile adopts an already-running lab.
func New(topo *topology.Topology, ch channel.Channel, ctrl Switcher, verifier pathswitch.Verifier,
	life Lifecycle, st store.Store, auditor audit.Logger, opts Options) *Orchestrator {
	if opts.Parallelism <= 0 {
		opts.Parallelism = 2
	}
	if opts.User == "" {
		opts.User = os.Getenv("USER")
	}
	return &Orchestrator{
		topo:     topo,
		ch:       ch,
		ctrl:     ctrl,
		verifier: verifier,
		life:     life,
		st:       st,
		auditor:  auditor,
		opts:     opts,
		state:    StateUninitialized,
	}
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

func stateFor(p topology.Preference) State {
	if p == topology.PathB {
		return StatePathBActive
	}
	return StatePathAActive
}

// Initialize brings the lab from nothing to a converged network on the
// default preferred path: containers up, routing daemons provisioned,
// OSPF configured with the topology's default costs, static routes on
// the hosts.
func (o *Orchestrator) Initialize(ctx context.Context) error {
	if s := o.State(); s != StateUninitialized && s != StateStopped {
		return fmt.Errorf("%w: initialize from state %s", util.ErrValidationFailed, s)
	}

	start := time.Now()
	event := audit.NewEvent(o.opts.User, audit.OpInitialize)
	err := o.initialize(ctx)
	if err != nil {
		event.WithError(err)
	} else {
		event.WithSuccess()
	}
	o.logEvent(event.WithDuration(time.Since(start)))
	return err
}

func (o *Orchestrator) initialize(ctx context.Context) error {
	log := util.WithOperation("initialize")

	if err := o.life.Up(ctx); err != nil {
		return err
	}
	nodes := make([]string, 0, len(o.topo.Nodes))
	for _, n := range o.topo.Nodes {
		nodes = append(nodes, n.Mgmt)
	}
	if err := o.life.WaitRunning(ctx, nodes, time.Second); err != nil {
		return err
	}
	o.setState(StateStarted)

	if o.opts.InstallDaemons {
		log.Info("provisioning routing daemons")
		if err := o.provisionRouters(ctx); err != nil {
			return err
		}
	}

	log.Info("configuring OSPF and default costs")
	for _, router := range o.topo.Routers() {
		commands := []string{vtysh.ConfigureOSPF(router.RouterID, o.topo.RouterNetworks(router.ID))}
		for _, li := range o.topo.LabelledInterfaces() {
			if li.Router == router.ID {
				commands = append(commands, vtysh.SetInterfaceCost(li.Interface, li.Cost))
			}
		}
		if _, err := o.ch.Apply(ctx, router.Mgmt, commands); err != nil {
			return err
		}
	}

	src, dst := o.topo.Hosts()
	for _, pair := range []struct{ host, far *topology.Node }{{src, dst}, {dst, src}} {
		farSubnet, err := o.topo.EdgeSubnet(pair.far.ID)
		if err != nil {
			return err
		}
		cmd := vtysh.HostRoute(farSubnet, pair.host.Gateway)
		if _, err := o.ch.Apply(ctx, pair.host.Mgmt, []string{cmd}); err != nil {
			return err
		}
	}
	o.setState(StateConfigured)

	preferred := o.topo.Defaults.PreferredPath
	log.Infof("waiting for convergence on path %s", preferred)
	if err := o.verifier.WaitConverged(ctx, preferred); err != nil {
		return err
	}

	o.setState(stateFor(preferred))
	if err := o.st.SetIntent(ctx, store.Intent{Preference: preferred, UpdatedAt: time.Now()}); err != nil {
		util.Warnf("recording initial intent: %v", err)
	}
	log.Infof("lab ready, path %s active", preferred)
	return nil
}

// provisionRouters installs the routing daemon on every router, a few
// at a time. The first failure wins; remaining installs still finish.
func (o *Orchestrator) provisionRouters(ctx context.Context) error {
	routers := o.topo.Routers()
	sem := make(chan struct{}, o.opts.Parallelism)
	errs := make(chan error, len(routers))
	var wg sync.WaitGroup

	for _, router := range routers {
		wg.Add(1)
		go func(id, handle string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			util.WithNode(id).Info("installing routing daemon")
			if _, err := o.ch.Apply(ctx, handle, vtysh.InstallRoutingDaemon()); err != nil {
				errs <- fmt.Errorf("provisioning %s: %w", id, err)
			}
		}(router.ID, router.Mgmt)
	}
	wg.Wait()
	close(errs)
	return <-errs
}

// SwitchTo makes target the active path. The cross-process lease in the
// store serializes switches between duopath invocations; the controller
// serializes them within the process.
func (o *Orchestrator) SwitchTo(ctx context.Context, target topology.Preference) (*pathswitch.Result, error) {
	if s := o.State(); s != StatePathAActive && s != StatePathBActive && s != StateConfigured {
		return nil, fmt.Errorf("%w: switch from state %s", util.ErrValidationFailed, s)
	}

	owner := lockOwner()
	ok, err := o.st.AcquireLock(ctx, owner, switchLeaseTTL)
	if err != nil {
		return nil, fmt.Errorf("acquiring switch lease: %w", err)
	}
	if !ok {
		return nil, util.ErrSwitchInProgress
	}
	defer func() {
		if err := o.st.ReleaseLock(ctx, owner); err != nil {
			util.Warnf("releasing switch lease: %v", err)
		}
	}()

	start := time.Now()
	result, err := o.ctrl.SwitchTo(ctx, target)
	o.recordSwitch(ctx, target, result, err, time.Since(start))
	if err != nil {
		return result, err
	}

	o.setState(stateFor(target))
	if serr := o.st.SetIntent(ctx, store.Intent{Preference: target, UpdatedAt: time.Now()}); serr != nil {
		util.Warnf("recording switch intent: %v", serr)
	}
	return result, nil
}

// recordSwitch writes the journal entry and audit event for a switch
// attempt. Bookkeeping failures are logged, never surfaced: they must
// not mask the switch outcome.
func (o *Orchestrator) recordSwitch(ctx context.Context, target topology.Preference, result *pathswitch.Result, err error, elapsed time.Duration) {
	entry := store.JournalEntry{
		Timestamp: time.Now(),
		To:        target,
	}
	event := audit.NewEvent(o.opts.User, audit.OpSwitch).WithPaths("", string(target)).WithDuration(elapsed)

	if result == nil {
		// The attempt failed before any mutation was planned. Nothing
		// happened on the routers, so only the audit trail records it.
		event.WithError(err)
		o.logEvent(event)
		return
	}
	entry.From = result.From
	event.FromPath = string(result.From)
	event.WithMutations(len(result.Mutations))
	if result.RolledBack {
		event.WithRollback()
	}

	switch {
	case errors.Is(err, util.ErrInconsistentState):
		entry.Outcome = store.OutcomeInconsistent
		entry.Detail = err.Error()
		event.WithError(err)
	case err != nil && result.RolledBack:
		entry.Outcome = store.OutcomeRolledBack
		entry.Detail = err.Error()
		event.WithError(err)
	case err != nil:
		// Mutations committed but convergence was not confirmed.
		entry.Outcome = store.OutcomeCommitted
		entry.Detail = "convergence not confirmed: " + err.Error()
		event.WithError(err)
	case result.Noop:
		entry.Outcome = store.OutcomeNoop
		event.WithSuccess()
	default:
		entry.Outcome = store.OutcomeCommitted
		event.WithSuccess()
	}

	if jerr := o.st.AppendJournal(ctx, entry); jerr != nil {
		util.Warnf("appending switch journal: %v", jerr)
	}
	o.logEvent(event)
}

// Adopt aligns the in-process state with the running lab without
// mutating anything. A fresh process starts UNINITIALIZED even when the
// lab is already up; Adopt reads the routers and takes over.
func (o *Orchestrator) Adopt(ctx context.Context) error {
	assignment, err := o.ctrl.ReadAssignment(ctx)
	if err != nil {
		return err
	}
	if active, coherent := pathswitch.Active(o.topo, assignment); coherent {
		o.setState(stateFor(active))
	} else {
		o.setState(StateConfigured)
	}
	return nil
}

// Reconcile restores a coherent state after a crash or an interrupted
// switch. The routers are authoritative: when their costs cleanly
// prefer one path, the orchestrator adopts it. When they disagree, the
// last recorded intent (or the topology default) is forced back on.
func (o *Orchestrator) Reconcile(ctx context.Context) (*pathswitch.Result, error) {
	if o.State() == StateStopped {
		return nil, fmt.Errorf("%w: reconcile from state %s", util.ErrValidationFailed, StateStopped)
	}

	owner := lockOwner()
	ok, err := o.st.AcquireLock(ctx, owner, switchLeaseTTL)
	if err != nil {
		return nil, fmt.Errorf("acquiring switch lease: %w", err)
	}
	if !ok {
		return nil, util.ErrSwitchInProgress
	}
	defer func() {
		if err := o.st.ReleaseLock(ctx, owner); err != nil {
			util.Warnf("releasing switch lease: %v", err)
		}
	}()

	start := time.Now()
	event := audit.NewEvent(o.opts.User, audit.OpReconcile)
	result, err := o.reconcile(ctx)
	if err != nil {
		event.WithError(err)
	} else {
		event.WithSuccess()
		if result != nil {
			event.WithMutations(len(result.Mutations))
		}
	}
	o.logEvent(event.WithDuration(time.Since(start)))
	return result, err
}

func (o *Orchestrator) reconcile(ctx context.Context) (*pathswitch.Result, error) {
	log := util.WithOperation("reconcile")

	assignment, err := o.ctrl.ReadAssignment(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading cost assignment: %w", err)
	}

	if active, coherent := pathswitch.Active(o.topo, assignment); coherent {
		log.Infof("costs coherent, path %s active", active)
		o.setState(stateFor(active))
		if serr := o.st.SetIntent(ctx, store.Intent{Preference: active, UpdatedAt: time.Now()}); serr != nil {
			util.Warnf("recording reconciled intent: %v", serr)
		}
		return nil, nil
	}

	intended := o.topo.Defaults.PreferredPath
	if intent, ierr := o.st.Intent(ctx); ierr == nil {
		intended = intent.Preference
	} else if !errors.Is(ierr, util.ErrNotFound) {
		return nil, fmt.Errorf("reading stored intent: %w", ierr)
	}

	log.Warnf("costs incoherent, forcing path %s", intended)
	result, err := o.ctrl.SwitchTo(ctx, intended)
	if err != nil {
		return result, err
	}

	o.setState(stateFor(intended))
	if serr := o.st.SetIntent(ctx, store.Intent{Preference: intended, UpdatedAt: time.Now()}); serr != nil {
		util.Warnf("recording reconciled intent: %v", serr)
	}
	entry := store.JournalEntry{
		Timestamp: time.Now(),
		From:      result.From,
		To:        intended,
		Outcome:   store.OutcomeCommitted,
		Detail:    "reconcile forced intended path",
	}
	if jerr := o.st.AppendJournal(ctx, entry); jerr != nil {
		util.Warnf("appending reconcile journal: %v", jerr)
	}
	return result, nil
}

// Stop tears the lab down. Safe to call more than once.
func (o *Orchestrator) Stop(ctx context.Context) error {
	if o.State() == StateStopped {
		return nil
	}

	start := time.Now()
	event := audit.NewEvent(o.opts.User, audit.OpTeardown)
	err := o.life.Down(ctx)
	if err != nil {
		event.WithError(err)
	} else {
		event.WithSuccess()
		o.setState(StateStopped)
	}
	o.logEvent(event.WithDuration(time.Since(start)))
	return err
}

// Status reports the lab's current view: lifecycle state, authoritative
// assignment, which path it prefers, and the stored intent.
type Status struct {
	State      State
	Active     topology.Preference
	Coherent   bool
	Assignment pathswitch.CostAssignment
	Intent     *store.Intent
}

// Status reads the authoritative costs and the stored intent.
func (o *Orchestrator) Status(ctx context.Context) (*Status, error) {
	assignment, err := o.ctrl.ReadAssignment(ctx)
	if err != nil {
		return nil, err
	}
	active, coherent := pathswitch.Active(o.topo, assignment)

	status := &Status{
		State:      o.State(),
		Active:     active,
		Coherent:   coherent,
		Assignment: assignment,
	}
	if intent, err := o.st.Intent(ctx); err == nil {
		status.Intent = intent
	} else if !errors.Is(err, util.ErrNotFound) {
		return nil, err
	}
	return status, nil
}

func (o *Orchestrator) logEvent(event *audit.Event) {
	if o.auditor == nil {
		return
	}
	if err := o.auditor.Log(event); err != nil {
		util.Warnf("writing audit event: %v", err)
	}
}

func lockOwner() string {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}
