// Package pathswitch mutates OSPF interface costs to steer traffic
// between the two labelled paths of a dual-path topology.
package pathswitch

import (
	"sort"

	"github.com/duopath-network/duopath/pkg/topology"
)

// CostKey identifies one labelled interface.
type CostKey struct {
	Router    string
	Interface string
}

// CostAssignment maps every labelled interface to its OSPF cost. The
// controller is the only writer; everything else treats a snapshot as
// read-only.
type CostAssignment map[CostKey]int

// Equal reports whether two assignments cover the same interfaces with
// the same costs.
func (a CostAssignment) Equal(b CostAssignment) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if bv, ok := b[k]; !ok || bv != v {
			return false
		}
	}
	return true
}

// Keys returns the assignment's keys sorted by router then interface.
func (a CostAssignment) Keys() []CostKey {
	keys := make([]CostKey, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Router != keys[j].Router {
			return keys[i].Router < keys[j].Router
		}
		return keys[i].Interface < keys[j].Interface
	})
	return keys
}

// pathOf returns the path label each labelled interface belongs to.
func pathOf(topo *topology.Topology) map[CostKey]topology.Preference {
	labels := make(map[CostKey]topology.Preference)
	for _, li := range topo.LabelledInterfaces() {
		labels[CostKey{Router: li.Router, Interface: li.Interface}] = li.Path
	}
	return labels
}

// Desired computes the assignment that makes target the preferred path:
// every interface on target gets the low cost and every interface on
// the other path gets the high cost. The low and high values are reused
// from the current assignment so that switching back restores the
// original costs exactly; when the current costs carry no usable pair
// (all equal, or empty) the topology defaults apply.
func Desired(topo *topology.Topology, current CostAssignment, target topology.Preference) CostAssignment {
	low, high := topo.Defaults.LowCost, topo.Defaults.HighCost
	if min, max, ok := costSpread(current); ok {
		low, high = min, max
	}

	desired := make(CostAssignment, len(current))
	for key, path := range pathOf(topo) {
		if path == target {
			desired[key] = low
		} else {
			desired[key] = high
		}
	}
	return desired
}

// costSpread returns the min and max cost in the assignment, and false
// when they do not form a strictly ordered pair.
func costSpread(a CostAssignment) (int, int, bool) {
	if len(a) == 0 {
		return 0, 0, false
	}
	min, max := 0, 0
	first := true
	for _, c := range a {
		if first {
			min, max = c, c
			first = false
			continue
		}
		if c < min {
			min = c
		}
		if c > max {
			max = c
		}
	}
	return min, max, min < max
}

// Active determines which path the assignment prefers. It returns false
// when the costs do not cleanly separate the two paths, which happens
// after a partial mutation.
func Active(topo *topology.Topology, a CostAssignment) (topology.Preference, bool) {
	maxByPath := map[topology.Preference]int{}
	minByPath := map[topology.Preference]int{topology.PathA: 1 << 30, topology.PathB: 1 << 30}
	for key, path := range pathOf(topo) {
		cost, ok := a[key]
		if !ok {
			return "", false
		}
		if cost > maxByPath[path] {
			maxByPath[path] = cost
		}
		if cost < minByPath[path] {
			minByPath[path] = cost
		}
	}
	if maxByPath[topology.PathA] < minByPath[topology.PathB] {
		return topology.PathA, true
	}
	if maxByPath[topology.PathB] < minByPath[topology.PathA] {
		return topology.PathB, true
	}
	return "", false
}
