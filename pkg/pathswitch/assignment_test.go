package pathswitch_test

import (
	"testing"

	"github.com/duopath-network/duopath/internal/testutil"
	"github.com/duopath-network/duopath/pkg/pathswitch"
	"github.com/duopath-network/duopath/pkg/topology"
)

func defaultAssignment(t *testing.T) pathswitch.CostAssignment {
	t.Helper()
	topo := testutil.DualPathTopology(t)
	a := make(pathswitch.CostAssignment)
	for _, li := range topo.LabelledInterfaces() {
		a[pathswitch.CostKey{Router: li.Router, Interface: li.Interface}] = li.Cost
	}
	return a
}

func TestActive(t *testing.T) {
	topo := testutil.DualPathTopology(t)
	a := defaultAssignment(t)

	active, coherent := pathswitch.Active(topo, a)
	if !coherent || active != topology.PathA {
		t.Errorf("Active = %s, %v; want A, coherent", active, coherent)
	}

	// One interface swapped: no path cleanly wins anymore.
	a[pathswitch.CostKey{Router: "r1", Interface: "eth2"}] = 10
	if _, coherent := pathswitch.Active(topo, a); coherent {
		t.Error("Active reported coherence for a partially mutated assignment")
	}

	// Missing interface data is never coherent.
	delete(a, pathswitch.CostKey{Router: "r2", Interface: "eth0"})
	if _, coherent := pathswitch.Active(topo, a); coherent {
		t.Error("Active reported coherence with an unknown interface cost")
	}
}

func TestDesiredSwapsObservedCosts(t *testing.T) {
	topo := testutil.DualPathTopology(t)
	a := defaultAssignment(t)

	// Non-default values on the wire: the swap must preserve them, not
	// reset to the topology defaults.
	for key := range a {
		if a[key] == 10 {
			a[key] = 5
		} else {
			a[key] = 50
		}
	}

	desired := pathswitch.Desired(topo, a, topology.PathB)
	for _, li := range topo.LabelledInterfaces() {
		got := desired[pathswitch.CostKey{Router: li.Router, Interface: li.Interface}]
		want := 50
		if li.Path == topology.PathB {
			want = 5
		}
		if got != want {
			t.Errorf("%s/%s desired = %d, want %d", li.Router, li.Interface, got, want)
		}
	}
}

func TestDesiredFallsBackToDefaultsOnTie(t *testing.T) {
	topo := testutil.DualPathTopology(t)
	a := defaultAssignment(t)
	for key := range a {
		a[key] = 42
	}

	desired := pathswitch.Desired(topo, a, topology.PathA)
	for _, li := range topo.LabelledInterfaces() {
		got := desired[pathswitch.CostKey{Router: li.Router, Interface: li.Interface}]
		want := topo.Defaults.HighCost
		if li.Path == topology.PathA {
			want = topo.Defaults.LowCost
		}
		if got != want {
			t.Errorf("%s/%s desired = %d, want default %d", li.Router, li.Interface, got, want)
		}
	}
}

func TestAssignmentEqual(t *testing.T) {
	a := defaultAssignment(t)
	b := defaultAssignment(t)
	if !a.Equal(b) {
		t.Error("identical assignments reported unequal")
	}
	b[pathswitch.CostKey{Router: "r1", Interface: "eth1"}] = 99
	if a.Equal(b) {
		t.Error("differing assignments reported equal")
	}
	delete(b, pathswitch.CostKey{Router: "r1", Interface: "eth1"})
	if a.Equal(b) {
		t.Error("assignments of different size reported equal")
	}
}
