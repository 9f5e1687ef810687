// Package vtysh builds the FRR shell commands the control loop issues and
// parses the text they return into structured observations. Keeping the
// text format knowledge here isolates the control logic from output drift.
package vtysh

import (
	"fmt"
	"strings"
)

// join wraps vtysh config-mode lines into a single shell command.
func join(lines ...string) string {
	parts := make([]string, 0, len(lines))
	for _, l := range lines {
		parts = append(parts, fmt.Sprintf("-c '%s'", l))
	}
	return "vtysh " + strings.Join(parts, " ")
}

// SetInterfaceCost returns the command assigning an absolute OSPF cost to an
// interface. Absolute assignment keeps the command idempotent, per the
// channel contract.
func SetInterfaceCost(iface string, cost int) string {
	return join(
		"configure terminal",
		fmt.Sprintf("interface %s", iface),
		fmt.Sprintf("ip ospf cost %d", cost),
		"exit",
		"end",
		"write memory",
	)
}

// ConfigureOSPF returns the command establishing the base OSPF process:
// router ID plus a network statement in area 0 for every attached subnet.
func ConfigureOSPF(routerID string, networks []string) string {
	lines := []string{
		"configure terminal",
		"router ospf",
		fmt.Sprintf("ospf router-id %s", routerID),
	}
	for _, n := range networks {
		lines = append(lines, fmt.Sprintf("network %s area 0.0.0.0", n))
	}
	lines = append(lines, "exit", "end", "write memory")
	return join(lines...)
}

// ShowInterface returns the query for an interface's OSPF state, including
// its configured cost.
func ShowInterface(iface string) string {
	return fmt.Sprintf("vtysh -c 'show ip ospf interface %s'", iface)
}

// ShowRoute returns the query for the selected route toward a prefix.
func ShowRoute(prefix string) string {
	return fmt.Sprintf("vtysh -c 'show ip route %s'", prefix)
}

// ShowOSPFRoutes returns the query listing all OSPF-learned routes.
func ShowOSPFRoutes() string {
	return "vtysh -c 'show ip route ospf'"
}

// ShowNeighbors returns the query listing OSPF adjacencies.
func ShowNeighbors() string {
	return "vtysh -c 'show ip ospf neighbor'"
}

// HostRoute returns the command installing a static route on an edge host.
// `ip route replace` is idempotent where `ip route add` is not.
func HostRoute(subnet, gateway string) string {
	return fmt.Sprintf("ip route replace %s via %s", subnet, gateway)
}

// Ping returns a bounded reachability probe command.
func Ping(target string, count int) string {
	return fmt.Sprintf("ping -c %d -W 2 %s", count, target)
}

// Traceroute returns a numeric traceroute command.
func Traceroute(target string) string {
	return fmt.Sprintf("traceroute -n %s", target)
}

// InstallRoutingDaemon returns the ordered command sequence that installs
// FRR, enables ospfd, and restarts the service on a router node.
func InstallRoutingDaemon() []string {
	return []string{
		"apt-get update",
		"apt-get -y install curl gnupg lsb-release",
		"curl -s https://deb.frrouting.org/frr/keys.gpg | tee /usr/share/keyrings/frrouting.gpg > /dev/null",
		"echo deb [signed-by=/usr/share/keyrings/frrouting.gpg] https://deb.frrouting.org/frr $(lsb_release -s -c) frr-stable | tee -a /etc/apt/sources.list.d/frr.list",
		"apt-get update",
		"apt-get -y install frr frr-pythontools",
		"sed -i 's/ospfd=no/ospfd=yes/g' /etc/frr/daemons",
		"service frr restart",
		"pgrep ospfd",
	}
}
