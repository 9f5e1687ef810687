// Package topology loads and validates the static description of the
// dual-path network: nodes, links, subnets, path labels, and default costs.
// The model is read-only after construction.
package topology

import (
	"fmt"
	"sort"
)

// Role classifies a node as a traffic endpoint or a forwarding element.
type Role string

const (
	RoleHost   Role = "host"
	RoleRouter Role = "router"
)

// Preference identifies which of the two disjoint paths should carry
// traffic between the edge hosts. Exactly one preference is intended at
// any instant.
type Preference string

const (
	PathA Preference = "A"
	PathB Preference = "B"
)

// Other returns the opposite preference.
func (p Preference) Other() Preference {
	if p == PathA {
		return PathB
	}
	return PathA
}

// Valid reports whether p is one of the two defined preferences.
func (p Preference) Valid() bool {
	return p == PathA || p == PathB
}

// Node is a host or router in the topology. Mgmt is the opaque management
// handle the command channel uses to reach the node (container name for the
// docker transport, host:port for SSH).
type Node struct {
	ID       string `yaml:"id"`
	Role     Role   `yaml:"role"`
	Mgmt     string `yaml:"mgmt"`
	RouterID string `yaml:"router_id,omitempty"` // routers only
	Gateway  string `yaml:"gateway,omitempty"`   // hosts only: next-hop for the remote subnet
}

// Endpoint is one side of a link.
type Endpoint struct {
	Node      string `yaml:"node"`
	Interface string `yaml:"interface"`
	Address   string `yaml:"address"`
}

// Link is an immutable point-to-point segment. Labelled links (Path A or B)
// carry a default cost that seeds the initial CostAssignment; unlabelled
// links attach the edge hosts and are never mutated.
type Link struct {
	A      Endpoint   `yaml:"a"`
	B      Endpoint   `yaml:"b"`
	Subnet string     `yaml:"subnet"`
	Path   Preference `yaml:"path,omitempty"`
	Cost   int        `yaml:"cost"`
}

// Endpoints returns both endpoints of the link.
func (l *Link) Endpoints() [2]Endpoint {
	return [2]Endpoint{l.A, l.B}
}

// EndpointOn returns the endpoint belonging to node, if any.
func (l *Link) EndpointOn(node string) (Endpoint, bool) {
	if l.A.Node == node {
		return l.A, true
	}
	if l.B.Node == node {
		return l.B, true
	}
	return Endpoint{}, false
}

// PeerOf returns the endpoint on the far side of node.
func (l *Link) PeerOf(node string) (Endpoint, bool) {
	if l.A.Node == node {
		return l.B, true
	}
	if l.B.Node == node {
		return l.A, true
	}
	return Endpoint{}, false
}

// Traffic names the monitored flow: source and destination edge hosts.
type Traffic struct {
	Source      string `yaml:"source"`
	Destination string `yaml:"destination"`
}

// Defaults holds the cost policy applied at initialization and when a
// switch has to synthesize fresh values.
type Defaults struct {
	PreferredPath Preference `yaml:"preferred_path"`
	LowCost       int        `yaml:"low_cost"`
	HighCost      int        `yaml:"high_cost"`
}

// Topology is the validated model. Construct with Load or Parse; all fields
// are read-only afterwards.
type Topology struct {
	Name     string   `yaml:"name"`
	Traffic  Traffic  `yaml:"traffic"`
	Defaults Defaults `yaml:"defaults"`
	Nodes    []*Node  `yaml:"nodes"`
	Links    []*Link  `yaml:"links"`

	nodeByID map[string]*Node
}

// NodeByID returns the named node.
func (t *Topology) NodeByID(id string) (*Node, error) {
	n, ok := t.nodeByID[id]
	if !ok {
		return nil, fmt.Errorf("node %q not in topology", id)
	}
	return n, nil
}

// Routers returns all router nodes, sorted by ID.
func (t *Topology) Routers() []*Node {
	var routers []*Node
	for _, n := range t.Nodes {
		if n.Role == RoleRouter {
			routers = append(routers, n)
		}
	}
	sort.Slice(routers, func(i, j int) bool { return routers[i].ID < routers[j].ID })
	return routers
}

// Hosts returns the two edge hosts, source first.
func (t *Topology) Hosts() (src, dst *Node) {
	src, _ = t.nodeByID[t.Traffic.Source]
	dst, _ = t.nodeByID[t.Traffic.Destination]
	return src, dst
}

// PathLinks returns the links labelled with the given preference.
func (t *Topology) PathLinks(p Preference) []*Link {
	var links []*Link
	for _, l := range t.Links {
		if l.Path == p {
			links = append(links, l)
		}
	}
	return links
}

// edgeLink returns the unlabelled link attaching the given host.
func (t *Topology) edgeLink(host string) *Link {
	for _, l := range t.Links {
		if l.Path != "" {
			continue
		}
		if _, ok := l.EndpointOn(host); ok {
			return l
		}
	}
	return nil
}

// EdgeSubnet returns the subnet of the host's attachment link. This is the
// prefix whose next hop the verifier monitors from the far side.
func (t *Topology) EdgeSubnet(host string) (string, error) {
	l := t.edgeLink(host)
	if l == nil {
		return "", fmt.Errorf("host %q has no edge link", host)
	}
	return l.Subnet, nil
}

// HostAddress returns the host's address on its attachment link. Probes
// target this address.
func (t *Topology) HostAddress(host string) (string, error) {
	l := t.edgeLink(host)
	if l == nil {
		return "", fmt.Errorf("host %q has no edge link", host)
	}
	ep, _ := l.EndpointOn(host)
	return ep.Address, nil
}

// Handle returns the management handle the command channel uses for the
// node, falling back to the ID when the descriptor sets none.
func (t *Topology) Handle(id string) string {
	if n, ok := t.nodeByID[id]; ok && n.Mgmt != "" {
		return n.Mgmt
	}
	return id
}

// Boundary describes one boundary router: the router adjacent to an edge
// host, with its per-path interfaces and the prefix it is monitored against.
type Boundary struct {
	Router          string
	PathInterface   map[Preference]string // path → local interface on the labelled link
	PathNextHop     map[Preference]string // path → peer address on the labelled link
	MonitoredPrefix string                // remote edge subnet this router routes toward
}

// Interface returns the router's interface on the labelled link of p.
func (b *Boundary) Interface(p Preference) string {
	return b.PathInterface[p]
}

// NextHop returns the peer address this router forwards to when p is
// preferred.
func (b *Boundary) NextHop(p Preference) string {
	return b.PathNextHop[p]
}

// Boundaries returns the upstream boundary router (adjacent to the source
// host) and the downstream boundary router (adjacent to the destination
// host). The switch mutation order is downstream first.
func (t *Topology) Boundaries() (upstream, downstream *Boundary, err error) {
	upstream, err = t.boundaryFor(t.Traffic.Source, t.Traffic.Destination)
	if err != nil {
		return nil, nil, err
	}
	downstream, err = t.boundaryFor(t.Traffic.Destination, t.Traffic.Source)
	if err != nil {
		return nil, nil, err
	}
	return upstream, downstream, nil
}

// boundaryFor resolves the boundary router adjacent to nearHost. Its
// monitored prefix is the edge subnet of farHost.
func (t *Topology) boundaryFor(nearHost, farHost string) (*Boundary, error) {
	edge := t.edgeLink(nearHost)
	if edge == nil {
		return nil, fmt.Errorf("host %q has no edge link", nearHost)
	}
	peer, _ := edge.PeerOf(nearHost)

	b := &Boundary{
		Router:        peer.Node,
		PathInterface: make(map[Preference]string, 2),
		PathNextHop:   make(map[Preference]string, 2),
	}
	for _, p := range []Preference{PathA, PathB} {
		var found bool
		for _, l := range t.PathLinks(p) {
			local, ok := l.EndpointOn(b.Router)
			if !ok {
				continue
			}
			far, _ := l.PeerOf(b.Router)
			b.PathInterface[p] = local.Interface
			b.PathNextHop[p] = far.Address
			found = true
			break
		}
		if !found {
			return nil, fmt.Errorf("boundary router %q has no link on path %s", b.Router, p)
		}
	}

	prefix, err := t.EdgeSubnet(farHost)
	if err != nil {
		return nil, err
	}
	b.MonitoredPrefix = prefix
	return b, nil
}

// RouterNetworks returns the subnets a router is attached to, for the base
// OSPF configuration (network statements in area 0). Sorted for determinism.
func (t *Topology) RouterNetworks(router string) []string {
	seen := make(map[string]bool)
	var nets []string
	for _, l := range t.Links {
		if _, ok := l.EndpointOn(router); ok && !seen[l.Subnet] {
			seen[l.Subnet] = true
			nets = append(nets, l.Subnet)
		}
	}
	sort.Strings(nets)
	return nets
}

// LabelledInterfaces returns every (router, interface, default cost) triple
// on labelled links. Initialization seeds all of them; switches later touch
// only the boundary routers' entries.
func (t *Topology) LabelledInterfaces() []LabelledInterface {
	var out []LabelledInterface
	for _, l := range t.Links {
		if l.Path == "" {
			continue
		}
		for _, ep := range l.Endpoints() {
			out = append(out, LabelledInterface{
				Router:    ep.Node,
				Interface: ep.Interface,
				Path:      l.Path,
				Cost:      l.Cost,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Router != out[j].Router {
			return out[i].Router < out[j].Router
		}
		return out[i].Interface < out[j].Interface
	})
	return out
}

// LabelledInterface is one router interface on a labelled link.
type LabelledInterface struct {
	Router    string
	Interface string
	Path      Preference
	Cost      int
}

// TransitRouters returns routers on the given path that are not boundary
// routers, sorted by ID. The verifier may optionally poll these as well.
func (t *Topology) TransitRouters(p Preference) ([]string, error) {
	up, down, err := t.Boundaries()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var transit []string
	for _, l := range t.PathLinks(p) {
		for _, ep := range l.Endpoints() {
			if ep.Node == up.Router || ep.Node == down.Router || seen[ep.Node] {
				continue
			}
			seen[ep.Node] = true
			transit = append(transit, ep.Node)
		}
	}
	sort.Strings(transit)
	return transit, nil
}
