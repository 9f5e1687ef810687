package topology

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/duopath-network/duopath/pkg/util"
)

// Load reads a topology descriptor from a YAML file and validates it.
func Load(path string) (*Topology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading topology %s: %w", path, err)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("topology %s: %w", path, err)
	}
	return t, nil
}

// Parse unmarshals and validates a topology descriptor.
func Parse(data []byte) (*Topology, error) {
	var t Topology
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parsing topology: %w", err)
	}
	t.nodeByID = make(map[string]*Node, len(t.Nodes))
	for _, n := range t.Nodes {
		t.nodeByID[n.ID] = n
	}
	if err := t.validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// validate fails fast on any structural problem. All failures are collected
// so the operator sees the full list at once.
func (t *Topology) validate() error {
	v := &util.ValidationBuilder{}

	if t.Name == "" {
		v.AddError("topology name is required")
	}

	// Nodes: unique IDs, valid roles, management handles present.
	seen := make(map[string]bool)
	hosts := 0
	for _, n := range t.Nodes {
		if n.ID == "" {
			v.AddError("node with empty id")
			continue
		}
		if seen[n.ID] {
			v.AddErrorf("duplicate node id %q", n.ID)
		}
		seen[n.ID] = true
		switch n.Role {
		case RoleHost:
			hosts++
		case RoleRouter:
			if n.RouterID == "" {
				v.AddErrorf("router %q missing router_id", n.ID)
			}
		default:
			v.AddErrorf("node %q has invalid role %q", n.ID, n.Role)
		}
		if n.Mgmt == "" {
			v.AddErrorf("node %q missing management handle", n.ID)
		}
	}
	if hosts != 2 {
		v.AddErrorf("expected exactly 2 hosts, found %d", hosts)
	}

	// Traffic endpoints must be declared hosts.
	for _, id := range []string{t.Traffic.Source, t.Traffic.Destination} {
		n, ok := t.nodeByID[id]
		if !ok {
			v.AddErrorf("traffic endpoint %q is not a declared node", id)
		} else if n.Role != RoleHost {
			v.AddErrorf("traffic endpoint %q is not a host", id)
		}
	}
	if t.Traffic.Source == t.Traffic.Destination {
		v.AddError("traffic source and destination must differ")
	}

	// Defaults: valid preference, strictly unequal costs.
	if !t.Defaults.PreferredPath.Valid() {
		v.AddErrorf("defaults.preferred_path %q is not A or B", t.Defaults.PreferredPath)
	}
	if t.Defaults.LowCost <= 0 || t.Defaults.HighCost <= 0 {
		v.AddError("defaults.low_cost and defaults.high_cost must be positive")
	}
	if t.Defaults.LowCost >= t.Defaults.HighCost {
		v.AddError("defaults.low_cost must be strictly below defaults.high_cost")
	}

	// Links: endpoints resolve, addresses inside subnet, subnets disjoint.
	for i, l := range t.Links {
		for _, ep := range l.Endpoints() {
			if _, ok := t.nodeByID[ep.Node]; !ok {
				v.AddErrorf("link %d references unknown node %q", i, ep.Node)
			}
			if ep.Interface == "" {
				v.AddErrorf("link %d endpoint on %q missing interface", i, ep.Node)
			}
			in, err := util.AddrInSubnet(ep.Address, l.Subnet)
			if err != nil {
				v.AddErrorf("link %d: %v", i, err)
			} else if !in {
				v.AddErrorf("link %d: address %s outside subnet %s", i, ep.Address, l.Subnet)
			}
		}
		if l.Path != "" && !l.Path.Valid() {
			v.AddErrorf("link %d has invalid path label %q", i, l.Path)
		}
		if l.Cost <= 0 {
			v.AddErrorf("link %d has non-positive cost %d", i, l.Cost)
		}
	}
	for i := 0; i < len(t.Links); i++ {
		for j := i + 1; j < len(t.Links); j++ {
			overlap, err := util.SubnetsOverlap(t.Links[i].Subnet, t.Links[j].Subnet)
			if err == nil && overlap {
				v.AddErrorf("subnets %s and %s overlap", t.Links[i].Subnet, t.Links[j].Subnet)
			}
		}
	}

	// Stop here if the basic structure is broken; the chain walk below
	// assumes resolvable nodes and endpoints.
	if v.HasErrors() {
		return v.Build()
	}

	// Each labelled path must form a connected chain of links between the
	// two edge hosts (edge links are shared by both chains).
	for _, p := range []Preference{PathA, PathB} {
		if err := t.validateChain(p); err != nil {
			v.AddErrorf("path %s: %v", p, err)
		}
	}

	// Boundary resolution must succeed so switches have a mutation target.
	if !v.HasErrors() {
		if _, _, err := t.Boundaries(); err != nil {
			v.AddErrorf("resolving boundary routers: %v", err)
		}
	}

	return v.Build()
}

// validateChain walks from the source host to the destination host using the
// edge links plus the links labelled p, and requires the walk to be a simple
// chain that consumes every labelled link.
func (t *Topology) validateChain(p Preference) error {
	candidates := t.PathLinks(p)
	for _, host := range []string{t.Traffic.Source, t.Traffic.Destination} {
		edge := t.edgeLink(host)
		if edge == nil {
			return fmt.Errorf("host %q has no unlabelled edge link", host)
		}
		candidates = append(candidates, edge)
	}

	degree := make(map[string]int)
	for _, l := range candidates {
		degree[l.A.Node]++
		degree[l.B.Node]++
	}
	if degree[t.Traffic.Source] != 1 || degree[t.Traffic.Destination] != 1 {
		return fmt.Errorf("edge hosts must terminate the chain")
	}
	for node, d := range degree {
		if node == t.Traffic.Source || node == t.Traffic.Destination {
			continue
		}
		if d != 2 {
			return fmt.Errorf("node %q has %d chain links, want 2", node, d)
		}
	}

	// Walk the chain.
	used := make(map[*Link]bool)
	current := t.Traffic.Source
	for current != t.Traffic.Destination {
		var next *Link
		for _, l := range candidates {
			if used[l] {
				continue
			}
			if _, ok := l.EndpointOn(current); ok {
				next = l
				break
			}
		}
		if next == nil {
			return fmt.Errorf("chain breaks at node %q", current)
		}
		used[next] = true
		peer, _ := next.PeerOf(current)
		current = peer.Node
	}
	if len(used) != len(candidates) {
		return fmt.Errorf("%d labelled links not on the %s→%s chain",
			len(candidates)-len(used), t.Traffic.Source, t.Traffic.Destination)
	}
	return nil
}
